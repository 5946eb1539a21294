package api

import (
	"slices" // Origin list lookup
	"time"   // Token lifetime and uptime

	"paper_trading/internal/middleware" // Auth, logging, metrics, throttling
	"paper_trading/internal/storage"    // Repository
	"paper_trading/internal/trading"    // Transaction orchestration

	"github.com/gin-contrib/cors" // CORS middleware
	"github.com/gin-gonic/gin"    // Gin web framework
)

// RouterDeps are the collaborators the HTTP layer is built from
type RouterDeps struct {
	Repo         storage.Repository
	Market       MarketData
	Trading      *trading.Service
	Metrics      *middleware.Metrics     // Optional; /metrics is only mounted when set
	LoginLimiter *middleware.RateLimiter // Optional throttle on admin login
	DemoUsername string                  // User the non-admin endpoints act on
	JWTSecret    string                  // Empty disables admin bearer tokens
	JWTTTL       time.Duration           // Admin token lifetime
	CORSOrigins  []string                // Allowed origins, all when empty or "*"
}

// NewRouter builds the gin engine with every route mounted
func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger())
	r.Use(cors.New(corsConfig(deps.CORSOrigins)))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Handler())
		r.GET("/metrics", deps.Metrics.Expose())
	}
	r.GET("/health", HealthHandler(time.Now()))

	repo, demo := deps.Repo, deps.DemoUsername
	api := r.Group("/api")
	{
		// Market data
		api.GET("/crypto/markets", MarketsHandler(deps.Market))
		api.GET("/crypto/:coinId/chart", ChartHandler(deps.Market))
		api.GET("/crypto/:coinId", CoinHandler(deps.Market))

		// Demo user
		api.GET("/user", GetUserHandler(repo, demo))
		api.GET("/portfolio", GetPortfolioHandler(repo, demo))
		api.POST("/portfolio", UpsertPortfolioHandler(repo, demo))
		api.GET("/portfolio/summary", PortfolioSummaryHandler(repo, deps.Market, demo))
		api.GET("/transactions", ListTransactionsHandler(repo, demo))
		api.POST("/transactions", CreateTransactionHandler(repo, deps.Trading, demo))

		// Mining
		api.GET("/mining/workers", ListWorkersHandler(repo, demo))
		api.POST("/mining/workers", CreateWorkerHandler(repo, demo))
		api.PATCH("/mining/workers/:id", UpdateWorkerHandler(repo, demo))
		api.GET("/mining/rewards", ListRewardsHandler(repo, demo))
		api.POST("/mining/rewards", CreateRewardHandler(repo, deps.Trading, demo))
		api.GET("/mining/stats", MiningStatsHandler(repo, demo))
		api.POST("/mining/simulate", SimulateMiningHandler(repo, deps.Trading, demo))

		// Admin login, throttled per client when a limiter is set
		login := []gin.HandlerFunc{AdminLoginHandler(repo, deps.JWTSecret, deps.JWTTTL)}
		if deps.LoginLimiter != nil {
			login = append([]gin.HandlerFunc{deps.LoginLimiter.Handler()}, login...)
		}
		api.POST("/admin/login", login...)

		admin := api.Group("/admin")
		admin.Use(middleware.AdminAuth(repo, deps.JWTSecret))
		{
			admin.GET("/users", AdminListUsersHandler(repo))
			admin.PATCH("/users/:userId", AdminUpdateUserRoleHandler(repo))
			admin.GET("/transactions", AdminListTransactionsHandler(repo))
			admin.GET("/portfolio", AdminListPortfolioHandler(repo))
			admin.GET("/mining/workers", AdminListWorkersHandler(repo))
			admin.GET("/mining/rewards", AdminListRewardsHandler(repo))
			admin.GET("/stats", AdminStatsHandler(repo))
		}
	}
	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowMethods = []string{"GET", "POST", "PATCH", "OPTIONS"}
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

package api

import (
	"net/http" // HTTP status codes
	"strings"  // String manipulation

	"paper_trading/internal/domain"    // Importing domain models
	"paper_trading/internal/portfolio" // Valuation
	"paper_trading/internal/storage"   // Repository

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logrus for structured logging
)

// PortfolioAssetRequest sets the held amount of one coin
type PortfolioAssetRequest struct {
	CoinID string   `json:"coinId" binding:"required"`
	Symbol string   `json:"symbol" binding:"required"`
	Name   string   `json:"name" binding:"required"`
	Amount *float64 `json:"amount" binding:"required,gte=0"` // Absolute amount, not a delta
}

// GetPortfolioHandler lists the demo user's holdings
func GetPortfolioHandler(repo storage.Repository, demoUser string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c, repo, demoUser)
		if !ok {
			return
		}
		assets, err := repo.GetPortfolioAssets(c.Request.Context(), user.ID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, assets)
	}
}

// UpsertPortfolioHandler creates the holding or overwrites its amount
func UpsertPortfolioHandler(repo storage.Repository, demoUser string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req PortfolioAssetRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid portfolio data")
			return
		}
		// binding:"required" accepts blanks, so check again after trimming
		req.CoinID, req.Symbol, req.Name = strings.TrimSpace(req.CoinID), strings.TrimSpace(req.Symbol), strings.TrimSpace(req.Name)
		if req.CoinID == "" || req.Symbol == "" || req.Name == "" {
			badRequest(c, "Invalid portfolio data")
			return
		}
		user, ok := currentUser(c, repo, demoUser)
		if !ok {
			return
		}
		asset, err := repo.CreateOrUpdatePortfolioAsset(c.Request.Context(), domain.PortfolioAsset{
			UserID: user.ID,
			CoinID: req.CoinID,
			Symbol: req.Symbol,
			Name:   req.Name,
			Amount: *req.Amount,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		logrus.WithFields(logrus.Fields{
			"user_id": user.ID,
			"coin_id": asset.CoinID,
			"amount":  asset.Amount,
		}).Info("Portfolio asset saved")
		c.JSON(http.StatusOK, asset)
	}
}

// PortfolioSummaryHandler values the demo user's holdings at market prices
func PortfolioSummaryHandler(repo storage.Repository, md MarketData, demoUser string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c, repo, demoUser)
		if !ok {
			return
		}
		assets, err := repo.GetPortfolioAssets(c.Request.Context(), user.ID)
		if err != nil {
			respondError(c, err)
			return
		}
		coins, err := md.MarketList(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, portfolio.Valuate(assets, coins))
	}
}

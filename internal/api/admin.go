package api

import (
	"net/http" // HTTP status codes

	"paper_trading/internal/apperr"     // Error kinds
	"paper_trading/internal/domain"     // Importing domain models
	"paper_trading/internal/middleware" // Admin context key
	"paper_trading/internal/storage"    // Repository

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logrus for structured logging
)

// UpdateRoleRequest changes a user's role
type UpdateRoleRequest struct {
	Role string `json:"role"`
}

// AdminTransaction is a transaction with its owner's username
type AdminTransaction struct {
	domain.Transaction
	Username string `json:"username"`
}

// AdminPortfolioAsset is a holding with its owner's username
type AdminPortfolioAsset struct {
	domain.PortfolioAsset
	Username string `json:"username"`
}

// AdminMiningWorker is a worker with its owner's username
type AdminMiningWorker struct {
	domain.MiningWorker
	Username string `json:"username"`
}

// AdminMiningReward is a reward with its owner's username
type AdminMiningReward struct {
	domain.MiningReward
	Username string `json:"username"`
}

// PlatformStats summarises the whole platform for the admin panel
type PlatformStats struct {
	TotalUsers         int     `json:"totalUsers"`
	AdminUsers         int     `json:"adminUsers"`
	TotalTransactions  int     `json:"totalTransactions"`
	TotalAssets        int     `json:"totalAssets"`
	TotalWorkers       int     `json:"totalWorkers"`
	ActiveWorkers      int     `json:"activeWorkers"`
	TotalHashrate      float64 `json:"totalHashrate"` // Active workers only
	TotalRewards       int     `json:"totalRewards"`
	TotalRewardsAmount float64 `json:"totalRewardsAmount"` // BTC
}

// enrich attaches owner usernames to rows, resolving each user once
func enrich[T, R any](c *gin.Context, repo storage.Repository, rows []T, owner func(T) uint, wrap func(T, string) R) ([]R, bool) {
	names := newUsernames(c.Request.Context(), repo)
	out := make([]R, 0, len(rows))
	for _, row := range rows {
		name, err := names.of(owner(row))
		if err != nil {
			respondError(c, err)
			return nil, false
		}
		out = append(out, wrap(row, name))
	}
	return out, true
}

// AdminListUsersHandler returns every user
func AdminListUsersHandler(repo storage.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		users, err := repo.GetAllUsers(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, users)
	}
}

// AdminUpdateUserRoleHandler sets the role of a user
func AdminUpdateUserRoleHandler(repo storage.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "userId")
		if !ok {
			badRequest(c, "Invalid user id")
			return
		}
		var req UpdateRoleRequest
		if err := c.ShouldBindJSON(&req); err != nil || !domain.ValidRole(req.Role) {
			badRequest(c, "Invalid role specified")
			return
		}
		user, err := repo.UpdateUserRole(c.Request.Context(), id, req.Role)
		if err != nil {
			respondError(c, err)
			return
		}
		if user == nil {
			respondError(c, apperr.NotFound(msgUserNotFound))
			return
		}
		fields := logrus.Fields{"user_id": user.ID, "role": user.Role}
		if admin, ok := c.Get(middleware.AdminUserKey); ok {
			fields["admin"] = admin.(*domain.User).Username
		}
		logrus.WithFields(fields).Info("User role updated")
		c.JSON(http.StatusOK, user)
	}
}

// AdminListTransactionsHandler returns every transaction, newest first
func AdminListTransactionsHandler(repo storage.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, err := parseLimit(c)
		if err != nil {
			respondError(c, err)
			return
		}
		txs, err := repo.GetAllTransactions(c.Request.Context(), limit)
		if err != nil {
			respondError(c, err)
			return
		}
		out, ok := enrich(c, repo, txs,
			func(t domain.Transaction) uint { return t.UserID },
			func(t domain.Transaction, name string) AdminTransaction { return AdminTransaction{t, name} })
		if ok {
			c.JSON(http.StatusOK, out)
		}
	}
}

// AdminListPortfolioHandler returns every holding
func AdminListPortfolioHandler(repo storage.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		assets, err := repo.GetAllPortfolioAssets(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		out, ok := enrich(c, repo, assets,
			func(a domain.PortfolioAsset) uint { return a.UserID },
			func(a domain.PortfolioAsset, name string) AdminPortfolioAsset { return AdminPortfolioAsset{a, name} })
		if ok {
			c.JSON(http.StatusOK, out)
		}
	}
}

// AdminListWorkersHandler returns every mining worker
func AdminListWorkersHandler(repo storage.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		workers, err := repo.GetAllMiningWorkers(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		out, ok := enrich(c, repo, workers,
			func(w domain.MiningWorker) uint { return w.UserID },
			func(w domain.MiningWorker, name string) AdminMiningWorker { return AdminMiningWorker{w, name} })
		if ok {
			c.JSON(http.StatusOK, out)
		}
	}
}

// AdminListRewardsHandler returns every mining reward, newest first
func AdminListRewardsHandler(repo storage.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, err := parseLimit(c)
		if err != nil {
			respondError(c, err)
			return
		}
		rewards, err := repo.GetAllMiningRewards(c.Request.Context(), limit)
		if err != nil {
			respondError(c, err)
			return
		}
		out, ok := enrich(c, repo, rewards,
			func(r domain.MiningReward) uint { return r.UserID },
			func(r domain.MiningReward, name string) AdminMiningReward { return AdminMiningReward{r, name} })
		if ok {
			c.JSON(http.StatusOK, out)
		}
	}
}

// AdminStatsHandler counts users, trades, holdings, workers and rewards
func AdminStatsHandler(repo storage.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := platformStats(c, repo)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}

func platformStats(c *gin.Context, repo storage.Repository) (PlatformStats, error) {
	ctx := c.Request.Context()
	var stats PlatformStats

	users, err := repo.GetAllUsers(ctx)
	if err != nil {
		return stats, err
	}
	stats.TotalUsers = len(users)
	for _, u := range users {
		if u.IsAdmin() {
			stats.AdminUsers++
		}
	}

	txs, err := repo.GetAllTransactions(ctx, 0)
	if err != nil {
		return stats, err
	}
	stats.TotalTransactions = len(txs)

	assets, err := repo.GetAllPortfolioAssets(ctx)
	if err != nil {
		return stats, err
	}
	stats.TotalAssets = len(assets)

	workers, err := repo.GetAllMiningWorkers(ctx)
	if err != nil {
		return stats, err
	}
	stats.TotalWorkers = len(workers)
	for _, w := range workers {
		if w.IsActive {
			stats.ActiveWorkers++
			stats.TotalHashrate += w.Hashrate
		}
	}

	rewards, err := repo.GetAllMiningRewards(ctx, 0)
	if err != nil {
		return stats, err
	}
	stats.TotalRewards = len(rewards)
	for _, r := range rewards {
		stats.TotalRewardsAmount += r.Amount
	}
	return stats, nil
}

package api

import (
	"net/http" // HTTP status codes
	"strings"  // String manipulation
	"time"     // Earnings windows

	"paper_trading/internal/apperr"    // Error kinds
	"paper_trading/internal/domain"    // Importing domain models
	"paper_trading/internal/portfolio" // Mining statistics
	"paper_trading/internal/storage"   // Repository
	"paper_trading/internal/trading"   // Reward payouts

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logrus for structured logging
)

// CreateWorkerRequest registers a mining worker
type CreateWorkerRequest struct {
	Name     string   `json:"name" binding:"required"`
	Hashrate *float64 `json:"hashrate" binding:"required,gte=0"` // MH/s
	IsActive *bool    `json:"isActive"`                          // Defaults to true
}

// UpdateWorkerRequest is a partial worker update
type UpdateWorkerRequest struct {
	Name     *string  `json:"name" binding:"omitempty,min=1"`
	Hashrate *float64 `json:"hashrate" binding:"omitempty,gte=0"`
	IsActive *bool    `json:"isActive"`
}

// RewardRequest pays out a mining reward at the given BTC price
type RewardRequest struct {
	Amount *float64 `json:"amount" binding:"required,gt=0"`
	Price  *float64 `json:"price" binding:"required,gte=0"`
}

// ListWorkersHandler lists the demo user's workers
func ListWorkersHandler(repo storage.Repository, demoUser string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c, repo, demoUser)
		if !ok {
			return
		}
		workers, err := repo.GetMiningWorkers(c.Request.Context(), user.ID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, workers)
	}
}

// CreateWorkerHandler adds a worker for the demo user
func CreateWorkerHandler(repo storage.Repository, demoUser string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateWorkerRequest
		if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Name) == "" {
			badRequest(c, "Invalid mining worker data")
			return
		}
		user, ok := currentUser(c, repo, demoUser)
		if !ok {
			return
		}
		worker, err := repo.CreateMiningWorker(c.Request.Context(), domain.NewMiningWorker{
			UserID:   user.ID,
			Name:     strings.TrimSpace(req.Name),
			Hashrate: *req.Hashrate,
			IsActive: req.IsActive,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		logrus.WithFields(logrus.Fields{
			"user_id":   user.ID,
			"worker_id": worker.ID,
			"hashrate":  worker.Hashrate,
		}).Info("Mining worker created")
		c.JSON(http.StatusOK, worker)
	}
}

// UpdateWorkerHandler merges the provided fields over one of the demo user's workers
func UpdateWorkerHandler(repo storage.Repository, demoUser string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			badRequest(c, "Invalid worker id")
			return
		}
		var req UpdateWorkerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid mining worker data")
			return
		}
		user, ok := currentUser(c, repo, demoUser)
		if !ok {
			return
		}
		ctx := c.Request.Context()
		existing, err := repo.GetMiningWorker(ctx, id)
		if err != nil {
			respondError(c, err)
			return
		}
		if existing == nil || existing.UserID != user.ID {
			respondError(c, apperr.NotFound(msgWorkerNotFound))
			return
		}
		worker, err := repo.UpdateMiningWorker(ctx, id, domain.MiningWorkerPatch{
			Name:     req.Name,
			Hashrate: req.Hashrate,
			IsActive: req.IsActive,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		if worker == nil {
			respondError(c, apperr.NotFound(msgWorkerNotFound))
			return
		}
		logrus.WithFields(logrus.Fields{
			"user_id":   user.ID,
			"worker_id": worker.ID,
			"is_active": worker.IsActive,
		}).Info("Mining worker updated")
		c.JSON(http.StatusOK, worker)
	}
}

// ListRewardsHandler returns the demo user's rewards, newest first
func ListRewardsHandler(repo storage.Repository, demoUser string) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, err := parseLimit(c)
		if err != nil {
			respondError(c, err)
			return
		}
		user, ok := currentUser(c, repo, demoUser)
		if !ok {
			return
		}
		rewards, err := repo.GetMiningRewards(c.Request.Context(), user.ID, limit)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, rewards)
	}
}

// CreateRewardHandler pays a reward with its transaction and holding update
func CreateRewardHandler(repo storage.Repository, svc *trading.Service, demoUser string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RewardRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid mining reward data")
			return
		}
		user, ok := currentUser(c, repo, demoUser)
		if !ok {
			return
		}
		reward, err := svc.PayMiningReward(c.Request.Context(), user.ID, *req.Amount, *req.Price)
		if err != nil {
			respondError(c, err)
			return
		}
		logRewardPaid(user.ID, reward, "api")
		c.JSON(http.StatusOK, reward)
	}
}

// SimulateMiningHandler pays a random reward sized by the active hashrate
func SimulateMiningHandler(repo storage.Repository, svc *trading.Service, demoUser string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c, repo, demoUser)
		if !ok {
			return
		}
		reward, err := svc.SimulateMining(c.Request.Context(), user.ID)
		if err != nil {
			respondError(c, err)
			return
		}
		logRewardPaid(user.ID, reward, "simulate")
		c.JSON(http.StatusOK, reward)
	}
}

// MiningStatsHandler summarises hashrate and recent earnings
func MiningStatsHandler(repo storage.Repository, demoUser string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c, repo, demoUser)
		if !ok {
			return
		}
		ctx := c.Request.Context()
		workers, err := repo.GetMiningWorkers(ctx, user.ID)
		if err != nil {
			respondError(c, err)
			return
		}
		rewards, err := repo.GetMiningRewards(ctx, user.ID, 0)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, portfolio.MiningStats(workers, rewards, time.Now()))
	}
}

func logRewardPaid(userID uint, reward *domain.MiningReward, source string) {
	logrus.WithFields(logrus.Fields{
		"user_id":   userID,
		"reward_id": reward.ID,
		"amount":    reward.Amount,
		"source":    source,
	}).Info("Mining reward paid")
}

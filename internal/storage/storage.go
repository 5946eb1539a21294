// Package storage holds the authoritative entity state of the trading platform.
//
// Lookups never fail for a missing entity: they return a nil result and a nil
// error, leaving the not-found decision to the caller.
package storage

import (
	"context"
	"errors"

	"paper_trading/internal/domain"
)

// ErrAlreadyExists indicates a uniqueness conflict on username, email or wallet address.
var ErrAlreadyExists = errors.New("record already exists")

// Repository captures every persistence operation the handlers and services need.
type Repository interface {
	GetUser(ctx context.Context, id uint) (*domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	CreateUser(ctx context.Context, user domain.User) (*domain.User, error)
	GetAllUsers(ctx context.Context) ([]domain.User, error)
	UpdateUserRole(ctx context.Context, id uint, role string) (*domain.User, error)

	GetPortfolioAssets(ctx context.Context, userID uint) ([]domain.PortfolioAsset, error)
	GetPortfolioAsset(ctx context.Context, userID uint, coinID string) (*domain.PortfolioAsset, error)
	// CreateOrUpdatePortfolioAsset overwrites the amount of the (user, coin) row, inserting it when absent.
	CreateOrUpdatePortfolioAsset(ctx context.Context, asset domain.PortfolioAsset) (*domain.PortfolioAsset, error)
	GetAllPortfolioAssets(ctx context.Context) ([]domain.PortfolioAsset, error)

	// GetTransactions lists newest first; limit <= 0 returns everything.
	GetTransactions(ctx context.Context, userID uint, limit int) ([]domain.Transaction, error)
	CreateTransaction(ctx context.Context, tx domain.Transaction) (*domain.Transaction, error)
	GetAllTransactions(ctx context.Context, limit int) ([]domain.Transaction, error)

	GetMiningWorkers(ctx context.Context, userID uint) ([]domain.MiningWorker, error)
	GetMiningWorker(ctx context.Context, id uint) (*domain.MiningWorker, error)
	CreateMiningWorker(ctx context.Context, worker domain.NewMiningWorker) (*domain.MiningWorker, error)
	UpdateMiningWorker(ctx context.Context, id uint, patch domain.MiningWorkerPatch) (*domain.MiningWorker, error)
	GetAllMiningWorkers(ctx context.Context) ([]domain.MiningWorker, error)

	GetMiningRewards(ctx context.Context, userID uint, limit int) ([]domain.MiningReward, error)
	CreateMiningReward(ctx context.Context, reward domain.MiningReward) (*domain.MiningReward, error)
	GetAllMiningRewards(ctx context.Context, limit int) ([]domain.MiningReward, error)

	// WithinTx runs fn as one unit: either every write fn made is kept or none is.
	WithinTx(ctx context.Context, fn func(repo Repository) error) error
}

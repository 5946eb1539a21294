package storage

import (
	"context" // Context for query cancellation
	"errors"  // Error comparison
	"fmt"     // Error wrapping
	"time"    // Record timestamps

	"paper_trading/internal/domain" // Importing domain models

	"gorm.io/gorm"        // GORM ORM library
	"gorm.io/gorm/clause" // Quoted ORDER BY columns
)

// Ensure GormStorage satisfies the Repository interface at compile time.
var _ Repository = (*GormStorage)(nil)

// GormStorage is the Repository backed by a SQL database through GORM
type GormStorage struct {
	db   *gorm.DB
	now  func() time.Time
	inTx bool // Set on the handle passed to WithinTx callbacks
}

// NewGormStorage wraps an open, migrated database handle
func NewGormStorage(db *gorm.DB) *GormStorage {
	return &GormStorage{db: db, now: time.Now}
}

// WithinTx runs fn inside a database transaction, rolling back when fn fails
func (s *GormStorage) WithinTx(ctx context.Context, fn func(repo Repository) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStorage{db: tx, now: s.now, inTx: true}) // Same clock, transactional handle
	})
}

// first loads one row into dest, mapping "no rows" to a nil result
func first[T any](q *gorm.DB) (*T, error) {
	var dest T
	err := q.First(&dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil // Absent, not an error
	}
	if err != nil {
		return nil, err
	}
	return &dest, nil
}

// newest orders by timestamp then id, both descending, and applies limit when positive
func newest(q *gorm.DB, limit int) *gorm.DB {
	q = q.Order(clause.OrderByColumn{Column: clause.Column{Name: "timestamp"}, Desc: true}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}, Desc: true})
	if limit > 0 {
		q = q.Limit(limit)
	}
	return q
}

// User operations

func (s *GormStorage) GetUser(ctx context.Context, id uint) (*domain.User, error) {
	return first[domain.User](s.db.WithContext(ctx).Where("id = ?", id))
}

func (s *GormStorage) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	return first[domain.User](s.db.WithContext(ctx).Where("username = ?", username))
}

func (s *GormStorage) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return first[domain.User](s.db.WithContext(ctx).Where("email = ?", email))
}

func (s *GormStorage) CreateUser(ctx context.Context, user domain.User) (*domain.User, error) {
	var clashes int64
	// Check uniqueness up front so every driver reports the same error
	err := s.db.WithContext(ctx).Model(&domain.User{}).
		Where("username = ? OR email = ? OR wallet_address = ?", user.Username, user.Email, user.WalletAddress).
		Count(&clashes).Error
	if err != nil {
		return nil, err
	}
	if clashes > 0 {
		return nil, fmt.Errorf("%w: user %q", ErrAlreadyExists, user.Username)
	}
	user.ID = 0 // Assigned by the database
	if user.Role == "" {
		user.Role = domain.RoleUser // Default role
	}
	user.CreatedAt = s.now()
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: user %q", ErrAlreadyExists, user.Username)
		}
		return nil, err
	}
	return &user, nil
}

func (s *GormStorage) GetAllUsers(ctx context.Context) ([]domain.User, error) {
	users := []domain.User{}
	err := s.db.WithContext(ctx).Order("id").Find(&users).Error
	return users, err
}

func (s *GormStorage) UpdateUserRole(ctx context.Context, id uint, role string) (*domain.User, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil || user == nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(user).Update("role", role).Error; err != nil {
		return nil, err
	}
	user.Role = role
	return user, nil
}

// Portfolio operations

func (s *GormStorage) GetPortfolioAssets(ctx context.Context, userID uint) ([]domain.PortfolioAsset, error) {
	assets := []domain.PortfolioAsset{}
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("id").Find(&assets).Error
	return assets, err
}

func (s *GormStorage) GetPortfolioAsset(ctx context.Context, userID uint, coinID string) (*domain.PortfolioAsset, error) {
	return first[domain.PortfolioAsset](s.assetQuery(ctx, userID, coinID))
}

// assetQuery selects one holding. Inside a transaction the row is locked
// FOR UPDATE until commit, so concurrent read-modify-write units on the same
// holding run one after the other. SQLite has no row locks and serializes
// writers on its own.
func (s *GormStorage) assetQuery(ctx context.Context, userID uint, coinID string) *gorm.DB {
	q := s.db.WithContext(ctx).Where("user_id = ? AND coin_id = ?", userID, coinID)
	if s.inTx && s.db.Dialector.Name() != "sqlite" {
		q = q.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate})
	}
	return q
}

func (s *GormStorage) CreateOrUpdatePortfolioAsset(ctx context.Context, asset domain.PortfolioAsset) (*domain.PortfolioAsset, error) {
	existing, err := s.GetPortfolioAsset(ctx, asset.UserID, asset.CoinID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if existing != nil {
		// Overwrite the amount only
		err := s.db.WithContext(ctx).Model(existing).
			UpdateColumns(map[string]any{"amount": asset.Amount, "updated_at": now}).Error
		if err != nil {
			return nil, err
		}
		existing.Amount = asset.Amount
		existing.UpdatedAt = now
		return existing, nil
	}
	asset.ID = 0 // Assigned by the database
	asset.UpdatedAt = now
	if err := s.db.WithContext(ctx).Create(&asset).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Another unit inserted the same (user, coin) first
			return nil, fmt.Errorf("%w: holding %q of user %d", ErrAlreadyExists, asset.CoinID, asset.UserID)
		}
		return nil, err
	}
	return &asset, nil
}

func (s *GormStorage) GetAllPortfolioAssets(ctx context.Context) ([]domain.PortfolioAsset, error) {
	assets := []domain.PortfolioAsset{}
	err := s.db.WithContext(ctx).Order("id").Find(&assets).Error
	return assets, err
}

// Transaction operations

func (s *GormStorage) GetTransactions(ctx context.Context, userID uint, limit int) ([]domain.Transaction, error) {
	txs := []domain.Transaction{}
	err := newest(s.db.WithContext(ctx).Where("user_id = ?", userID), limit).Find(&txs).Error
	return txs, err
}

func (s *GormStorage) CreateTransaction(ctx context.Context, tx domain.Transaction) (*domain.Transaction, error) {
	tx.ID = 0
	tx.Timestamp = s.now() // Stamped here, never by the caller
	if err := s.db.WithContext(ctx).Create(&tx).Error; err != nil {
		return nil, err
	}
	return &tx, nil
}

func (s *GormStorage) GetAllTransactions(ctx context.Context, limit int) ([]domain.Transaction, error) {
	txs := []domain.Transaction{}
	err := newest(s.db.WithContext(ctx), limit).Find(&txs).Error
	return txs, err
}

// Mining worker operations

func (s *GormStorage) GetMiningWorkers(ctx context.Context, userID uint) ([]domain.MiningWorker, error) {
	workers := []domain.MiningWorker{}
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("id").Find(&workers).Error
	return workers, err
}

func (s *GormStorage) GetMiningWorker(ctx context.Context, id uint) (*domain.MiningWorker, error) {
	return first[domain.MiningWorker](s.db.WithContext(ctx).Where("id = ?", id))
}

func (s *GormStorage) CreateMiningWorker(ctx context.Context, in domain.NewMiningWorker) (*domain.MiningWorker, error) {
	worker := domain.MiningWorker{
		UserID:   in.UserID,
		Name:     in.Name,
		Hashrate: in.Hashrate,
		IsActive: in.IsActive == nil || *in.IsActive, // Active unless told otherwise
		LastSeen: s.now(),
	}
	if err := s.db.WithContext(ctx).Create(&worker).Error; err != nil {
		return nil, err
	}
	return &worker, nil
}

func (s *GormStorage) UpdateMiningWorker(ctx context.Context, id uint, patch domain.MiningWorkerPatch) (*domain.MiningWorker, error) {
	worker, err := s.GetMiningWorker(ctx, id)
	if err != nil || worker == nil {
		return nil, err
	}
	patch.Apply(worker)
	worker.LastSeen = s.now() // Refreshed on every update
	if err := s.db.WithContext(ctx).Save(worker).Error; err != nil {
		return nil, err
	}
	return worker, nil
}

func (s *GormStorage) GetAllMiningWorkers(ctx context.Context) ([]domain.MiningWorker, error) {
	workers := []domain.MiningWorker{}
	err := s.db.WithContext(ctx).Order("id").Find(&workers).Error
	return workers, err
}

// Mining reward operations

func (s *GormStorage) GetMiningRewards(ctx context.Context, userID uint, limit int) ([]domain.MiningReward, error) {
	rewards := []domain.MiningReward{}
	err := newest(s.db.WithContext(ctx).Where("user_id = ?", userID), limit).Find(&rewards).Error
	return rewards, err
}

func (s *GormStorage) CreateMiningReward(ctx context.Context, reward domain.MiningReward) (*domain.MiningReward, error) {
	reward.ID = 0
	reward.Timestamp = s.now()
	if err := s.db.WithContext(ctx).Create(&reward).Error; err != nil {
		return nil, err
	}
	return &reward, nil
}

func (s *GormStorage) GetAllMiningRewards(ctx context.Context, limit int) ([]domain.MiningReward, error) {
	rewards := []domain.MiningReward{}
	err := newest(s.db.WithContext(ctx), limit).Find(&rewards).Error
	return rewards, err
}

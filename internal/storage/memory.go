package storage

import (
	"cmp"     // Ordering helpers
	"context" // Context for repository calls
	"fmt"     // Error wrapping
	"maps"    // Map cloning
	"slices"  // Sorting listings
	"sync"    // Store lock
	"time"    // Timestamps

	"paper_trading/internal/domain" // Importing domain models
)

// Ensure MemStorage satisfies the Repository interface at compile time.
var _ Repository = (*MemStorage)(nil)

// MemStorage is the in-memory Repository. All calls are serialized by one mutex,
// which also makes WithinTx units atomic with respect to other callers.
type MemStorage struct {
	mu    sync.Mutex
	state *memState
}

// NewMemStorage creates an empty store using the wall clock.
func NewMemStorage() *MemStorage {
	return NewMemStorageWithClock(time.Now)
}

// NewMemStorageWithClock creates an empty store stamping records with now.
func NewMemStorageWithClock(now func() time.Time) *MemStorage {
	return &MemStorage{state: newMemState(now)}
}

// memState holds the maps and id counters. It is not safe for concurrent use;
// MemStorage guards it.
type memState struct {
	now func() time.Time

	users           map[uint]domain.User
	portfolioAssets map[uint]domain.PortfolioAsset
	transactions    map[uint]domain.Transaction
	miningWorkers   map[uint]domain.MiningWorker
	miningRewards   map[uint]domain.MiningReward

	userID           uint
	portfolioAssetID uint
	transactionID    uint
	miningWorkerID   uint
	miningRewardID   uint
}

func newMemState(now func() time.Time) *memState {
	return &memState{
		now:             now,
		users:           make(map[uint]domain.User),
		portfolioAssets: make(map[uint]domain.PortfolioAsset),
		transactions:    make(map[uint]domain.Transaction),
		miningWorkers:   make(map[uint]domain.MiningWorker),
		miningRewards:   make(map[uint]domain.MiningReward),
	}
}

// clone copies the state so a failed unit can be rolled back.
func (s *memState) clone() *memState {
	c := *s
	c.users = maps.Clone(s.users)
	c.portfolioAssets = maps.Clone(s.portfolioAssets)
	c.transactions = maps.Clone(s.transactions)
	c.miningWorkers = maps.Clone(s.miningWorkers)
	c.miningRewards = maps.Clone(s.miningRewards)
	return &c
}

// WithinTx runs fn while holding the store lock and restores the previous state when fn fails.
func (m *MemStorage) WithinTx(ctx context.Context, fn func(repo Repository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshot := m.state.clone()
	if err := fn(m.state); err != nil {
		m.state = snapshot
		return err
	}
	return nil
}

// User operations

func (m *MemStorage) GetUser(ctx context.Context, id uint) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.GetUser(ctx, id)
}

func (m *MemStorage) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.GetUserByUsername(ctx, username)
}

func (m *MemStorage) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.GetUserByEmail(ctx, email)
}

func (m *MemStorage) CreateUser(ctx context.Context, user domain.User) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.CreateUser(ctx, user)
}

func (m *MemStorage) GetAllUsers(ctx context.Context) ([]domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.GetAllUsers(ctx)
}

func (m *MemStorage) UpdateUserRole(ctx context.Context, id uint, role string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.UpdateUserRole(ctx, id, role)
}

// Portfolio operations

func (m *MemStorage) GetPortfolioAssets(ctx context.Context, userID uint) ([]domain.PortfolioAsset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.GetPortfolioAssets(ctx, userID)
}

func (m *MemStorage) GetPortfolioAsset(ctx context.Context, userID uint, coinID string) (*domain.PortfolioAsset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.GetPortfolioAsset(ctx, userID, coinID)
}

func (m *MemStorage) CreateOrUpdatePortfolioAsset(ctx context.Context, asset domain.PortfolioAsset) (*domain.PortfolioAsset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.CreateOrUpdatePortfolioAsset(ctx, asset)
}

func (m *MemStorage) GetAllPortfolioAssets(ctx context.Context) ([]domain.PortfolioAsset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.GetAllPortfolioAssets(ctx)
}

// Transaction operations

func (m *MemStorage) GetTransactions(ctx context.Context, userID uint, limit int) ([]domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.GetTransactions(ctx, userID, limit)
}

func (m *MemStorage) CreateTransaction(ctx context.Context, tx domain.Transaction) (*domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.CreateTransaction(ctx, tx)
}

func (m *MemStorage) GetAllTransactions(ctx context.Context, limit int) ([]domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.GetAllTransactions(ctx, limit)
}

// Mining worker operations

func (m *MemStorage) GetMiningWorkers(ctx context.Context, userID uint) ([]domain.MiningWorker, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.GetMiningWorkers(ctx, userID)
}

func (m *MemStorage) GetMiningWorker(ctx context.Context, id uint) (*domain.MiningWorker, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.GetMiningWorker(ctx, id)
}

func (m *MemStorage) CreateMiningWorker(ctx context.Context, worker domain.NewMiningWorker) (*domain.MiningWorker, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.CreateMiningWorker(ctx, worker)
}

func (m *MemStorage) UpdateMiningWorker(ctx context.Context, id uint, patch domain.MiningWorkerPatch) (*domain.MiningWorker, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.UpdateMiningWorker(ctx, id, patch)
}

func (m *MemStorage) GetAllMiningWorkers(ctx context.Context) ([]domain.MiningWorker, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.GetAllMiningWorkers(ctx)
}

// Mining reward operations

func (m *MemStorage) GetMiningRewards(ctx context.Context, userID uint, limit int) ([]domain.MiningReward, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.GetMiningRewards(ctx, userID, limit)
}

func (m *MemStorage) CreateMiningReward(ctx context.Context, reward domain.MiningReward) (*domain.MiningReward, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.CreateMiningReward(ctx, reward)
}

func (m *MemStorage) GetAllMiningRewards(ctx context.Context, limit int) ([]domain.MiningReward, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.GetAllMiningRewards(ctx, limit)
}

// memState implements Repository without locking; it is handed to WithinTx callbacks.

func (s *memState) WithinTx(ctx context.Context, fn func(repo Repository) error) error {
	return fn(s) // Already inside a unit
}

func (s *memState) GetUser(_ context.Context, id uint) (*domain.User, error) {
	if u, ok := s.users[id]; ok {
		return &u, nil
	}
	return nil, nil
}

func (s *memState) GetUserByUsername(_ context.Context, username string) (*domain.User, error) {
	return s.findUser(func(u domain.User) bool { return u.Username == username }), nil
}

func (s *memState) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	return s.findUser(func(u domain.User) bool { return u.Email == email }), nil
}

func (s *memState) findUser(match func(domain.User) bool) *domain.User {
	for _, u := range s.users {
		if match(u) {
			return &u
		}
	}
	return nil
}

func (s *memState) CreateUser(_ context.Context, user domain.User) (*domain.User, error) {
	// Same unique columns as the SQL schema
	for _, u := range s.users {
		switch {
		case u.Username == user.Username:
			return nil, fmt.Errorf("%w: username %q", ErrAlreadyExists, user.Username)
		case u.Email == user.Email:
			return nil, fmt.Errorf("%w: email %q", ErrAlreadyExists, user.Email)
		case u.WalletAddress == user.WalletAddress:
			return nil, fmt.Errorf("%w: wallet address %q", ErrAlreadyExists, user.WalletAddress)
		}
	}
	s.userID++ // Assign the next id
	user.ID = s.userID
	if user.Role == "" {
		user.Role = domain.RoleUser
	}
	user.CreatedAt = s.now()
	s.users[user.ID] = user
	return &user, nil
}

func (s *memState) GetAllUsers(_ context.Context) ([]domain.User, error) {
	return sortedByID(s.users), nil
}

func (s *memState) UpdateUserRole(_ context.Context, id uint, role string) (*domain.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, nil // Not found
	}
	u.Role = role
	s.users[id] = u
	return &u, nil
}

func (s *memState) GetPortfolioAssets(_ context.Context, userID uint) ([]domain.PortfolioAsset, error) {
	out := []domain.PortfolioAsset{}
	for _, a := range sortedByID(s.portfolioAssets) {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *memState) GetPortfolioAsset(_ context.Context, userID uint, coinID string) (*domain.PortfolioAsset, error) {
	for _, a := range s.portfolioAssets {
		if a.UserID == userID && a.CoinID == coinID {
			return &a, nil
		}
	}
	return nil, nil
}

func (s *memState) CreateOrUpdatePortfolioAsset(ctx context.Context, asset domain.PortfolioAsset) (*domain.PortfolioAsset, error) {
	existing, _ := s.GetPortfolioAsset(ctx, asset.UserID, asset.CoinID)
	if existing != nil {
		// Only the amount moves; identity, symbol and name are kept
		existing.Amount = asset.Amount
		existing.UpdatedAt = s.now()
		s.portfolioAssets[existing.ID] = *existing
		return existing, nil
	}
	s.portfolioAssetID++
	asset.ID = s.portfolioAssetID
	asset.UpdatedAt = s.now()
	s.portfolioAssets[asset.ID] = asset
	return &asset, nil
}

func (s *memState) GetAllPortfolioAssets(_ context.Context) ([]domain.PortfolioAsset, error) {
	return sortedByID(s.portfolioAssets), nil
}

func (s *memState) GetTransactions(_ context.Context, userID uint, limit int) ([]domain.Transaction, error) {
	out := []domain.Transaction{}
	for _, tx := range s.transactions {
		if tx.UserID == userID {
			out = append(out, tx)
		}
	}
	return newestFirst(out, limit, func(tx domain.Transaction) (time.Time, uint) { return tx.Timestamp, tx.ID }), nil
}

func (s *memState) CreateTransaction(_ context.Context, tx domain.Transaction) (*domain.Transaction, error) {
	s.transactionID++
	tx.ID = s.transactionID
	tx.Timestamp = s.now() // Store assigned, callers cannot backdate
	s.transactions[tx.ID] = tx
	return &tx, nil
}

func (s *memState) GetAllTransactions(_ context.Context, limit int) ([]domain.Transaction, error) {
	out := make([]domain.Transaction, 0, len(s.transactions))
	for _, tx := range s.transactions {
		out = append(out, tx)
	}
	return newestFirst(out, limit, func(tx domain.Transaction) (time.Time, uint) { return tx.Timestamp, tx.ID }), nil
}

func (s *memState) GetMiningWorkers(_ context.Context, userID uint) ([]domain.MiningWorker, error) {
	out := []domain.MiningWorker{}
	for _, w := range sortedByID(s.miningWorkers) {
		if w.UserID == userID {
			out = append(out, w)
		}
	}
	return out, nil
}

func (s *memState) GetMiningWorker(_ context.Context, id uint) (*domain.MiningWorker, error) {
	if w, ok := s.miningWorkers[id]; ok {
		return &w, nil
	}
	return nil, nil
}

func (s *memState) CreateMiningWorker(_ context.Context, in domain.NewMiningWorker) (*domain.MiningWorker, error) {
	s.miningWorkerID++
	w := domain.MiningWorker{
		ID:       s.miningWorkerID,
		UserID:   in.UserID,
		Name:     in.Name,
		Hashrate: in.Hashrate,
		IsActive: in.IsActive == nil || *in.IsActive, // Active unless told otherwise
		LastSeen: s.now(),
	}
	s.miningWorkers[w.ID] = w
	return &w, nil
}

func (s *memState) UpdateMiningWorker(_ context.Context, id uint, patch domain.MiningWorkerPatch) (*domain.MiningWorker, error) {
	w, ok := s.miningWorkers[id]
	if !ok {
		return nil, nil
	}
	patch.Apply(&w) // Only the fields present in the request
	w.LastSeen = s.now()
	s.miningWorkers[id] = w
	return &w, nil
}

func (s *memState) GetAllMiningWorkers(_ context.Context) ([]domain.MiningWorker, error) {
	return sortedByID(s.miningWorkers), nil
}

func (s *memState) GetMiningRewards(_ context.Context, userID uint, limit int) ([]domain.MiningReward, error) {
	out := []domain.MiningReward{}
	for _, r := range s.miningRewards {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return newestFirst(out, limit, func(r domain.MiningReward) (time.Time, uint) { return r.Timestamp, r.ID }), nil
}

func (s *memState) CreateMiningReward(_ context.Context, reward domain.MiningReward) (*domain.MiningReward, error) {
	s.miningRewardID++
	reward.ID = s.miningRewardID
	reward.Timestamp = s.now()
	s.miningRewards[reward.ID] = reward
	return &reward, nil
}

func (s *memState) GetAllMiningRewards(_ context.Context, limit int) ([]domain.MiningReward, error) {
	out := make([]domain.MiningReward, 0, len(s.miningRewards))
	for _, r := range s.miningRewards {
		out = append(out, r)
	}
	return newestFirst(out, limit, func(r domain.MiningReward) (time.Time, uint) { return r.Timestamp, r.ID }), nil
}

// sortedByID returns the map values in insertion (id) order.
func sortedByID[T any](m map[uint]T) []T {
	ids := slices.Sorted(maps.Keys(m))
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		out = append(out, m[id])
	}
	return out
}

// newestFirst sorts by timestamp descending, ties broken by id descending, then applies limit.
func newestFirst[T any](items []T, limit int, key func(T) (time.Time, uint)) []T {
	slices.SortFunc(items, func(a, b T) int {
		ta, ia := key(a)
		tb, ib := key(b)
		if c := tb.Compare(ta); c != 0 {
			return c
		}
		return cmp.Compare(ib, ia)
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

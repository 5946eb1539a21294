package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"paper_trading/internal/db"
	"paper_trading/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stepClock hands out strictly increasing instants, one second apart.
type stepClock struct {
	t time.Time
}

func newStepClock() *stepClock {
	return &stepClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

type backend struct {
	name string
	open func(t *testing.T, now func() time.Time) Repository
}

func backends() []backend {
	return []backend{
		{name: "memory", open: func(t *testing.T, now func() time.Time) Repository {
			return NewMemStorageWithClock(now)
		}},
		{name: "gorm", open: func(t *testing.T, now func() time.Time) Repository {
			dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
			gdb, err := db.Open("sqlite", dsn)
			require.NoError(t, err)
			sqlDB, err := gdb.DB()
			require.NoError(t, err)
			sqlDB.SetMaxOpenConns(1)
			t.Cleanup(func() { _ = sqlDB.Close() })
			require.NoError(t, db.Migrate(gdb))
			return &GormStorage{db: gdb, now: now}
		}},
	}
}

// forEachBackend runs fn against a fresh store of every backend.
func forEachBackend(t *testing.T, fn func(t *testing.T, repo Repository)) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			fn(t, b.open(t, newStepClock().Now))
		})
	}
}

func mustUser(t *testing.T, repo Repository, name string) *domain.User {
	t.Helper()
	u, err := repo.CreateUser(context.Background(), domain.User{
		Username:      name,
		Password:      "hash",
		Email:         name + "@example.com",
		WalletAddress: "0x" + name,
	})
	require.NoError(t, err)
	return u
}

func TestCreateUser(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()
		u := mustUser(t, repo, "demo")
		assert.Equal(t, uint(1), u.ID)
		assert.Equal(t, domain.RoleUser, u.Role, "role defaults to user")
		assert.False(t, u.CreatedAt.IsZero())

		admin, err := repo.CreateUser(ctx, domain.User{Username: "admin", Email: "admin@example.com", WalletAddress: "0xadmin", Role: domain.RoleAdmin})
		require.NoError(t, err)
		assert.Equal(t, uint(2), admin.ID)
		assert.Equal(t, domain.RoleAdmin, admin.Role)

		got, err := repo.GetUserByUsername(ctx, "demo")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, u.ID, got.ID)

		got, err = repo.GetUserByEmail(ctx, "admin@example.com")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "admin", got.Username)
	})
}

func TestCreateUserUniqueness(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()
		mustUser(t, repo, "demo")

		clashes := []domain.User{
			{Username: "demo", Email: "other@example.com", WalletAddress: "0xother"},
			{Username: "other", Email: "demo@example.com", WalletAddress: "0xother"},
			{Username: "other", Email: "other@example.com", WalletAddress: "0xdemo"},
		}
		for _, c := range clashes {
			_, err := repo.CreateUser(ctx, c)
			assert.ErrorIs(t, err, ErrAlreadyExists)
		}

		users, err := repo.GetAllUsers(ctx)
		require.NoError(t, err)
		assert.Len(t, users, 1)
	})
}

func TestLookupsReturnNilWhenAbsent(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()

		u, err := repo.GetUser(ctx, 42)
		assert.NoError(t, err)
		assert.Nil(t, u)

		u, err = repo.GetUserByUsername(ctx, "ghost")
		assert.NoError(t, err)
		assert.Nil(t, u)

		u, err = repo.UpdateUserRole(ctx, 42, domain.RoleAdmin)
		assert.NoError(t, err)
		assert.Nil(t, u)

		a, err := repo.GetPortfolioAsset(ctx, 1, "bitcoin")
		assert.NoError(t, err)
		assert.Nil(t, a)

		w, err := repo.GetMiningWorker(ctx, 7)
		assert.NoError(t, err)
		assert.Nil(t, w)

		w, err = repo.UpdateMiningWorker(ctx, 7, domain.MiningWorkerPatch{})
		assert.NoError(t, err)
		assert.Nil(t, w)

		txs, err := repo.GetTransactions(ctx, 1, 0)
		require.NoError(t, err)
		assert.NotNil(t, txs)
		assert.Empty(t, txs)
	})
}

func TestUpdateUserRole(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()
		u := mustUser(t, repo, "demo")

		updated, err := repo.UpdateUserRole(ctx, u.ID, domain.RoleAdmin)
		require.NoError(t, err)
		require.NotNil(t, updated)
		assert.Equal(t, domain.RoleAdmin, updated.Role)

		got, err := repo.GetUser(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.RoleAdmin, got.Role)
	})
}

func TestCreateOrUpdatePortfolioAssetOverwrites(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()
		u := mustUser(t, repo, "demo")
		asset := domain.PortfolioAsset{UserID: u.ID, CoinID: "bitcoin", Symbol: "BTC", Name: "Bitcoin", Amount: 0.5}

		first, err := repo.CreateOrUpdatePortfolioAsset(ctx, asset)
		require.NoError(t, err)
		second, err := repo.CreateOrUpdatePortfolioAsset(ctx, asset)
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)

		assets, err := repo.GetPortfolioAssets(ctx, u.ID)
		require.NoError(t, err)
		require.Len(t, assets, 1)
		assert.Equal(t, 0.5, assets[0].Amount)

		// A different amount replaces rather than accumulates; other fields stay
		asset.Amount = 2
		asset.Name = "ignored"
		updated, err := repo.CreateOrUpdatePortfolioAsset(ctx, asset)
		require.NoError(t, err)
		assert.Equal(t, first.ID, updated.ID)
		assert.Equal(t, 2.0, updated.Amount)
		assert.Equal(t, "Bitcoin", updated.Name)
		assert.True(t, updated.UpdatedAt.After(first.UpdatedAt))

		all, err := repo.GetAllPortfolioAssets(ctx)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, 2.0, all[0].Amount)
	})
}

func TestPortfolioAssetsPerUser(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()
		alice, bob := mustUser(t, repo, "alice"), mustUser(t, repo, "bob")
		for _, a := range []domain.PortfolioAsset{
			{UserID: alice.ID, CoinID: "bitcoin", Symbol: "BTC", Name: "Bitcoin", Amount: 1},
			{UserID: bob.ID, CoinID: "bitcoin", Symbol: "BTC", Name: "Bitcoin", Amount: 3},
			{UserID: alice.ID, CoinID: "ethereum", Symbol: "ETH", Name: "Ethereum", Amount: 2},
		} {
			_, err := repo.CreateOrUpdatePortfolioAsset(ctx, a)
			require.NoError(t, err)
		}

		assets, err := repo.GetPortfolioAssets(ctx, alice.ID)
		require.NoError(t, err)
		require.Len(t, assets, 2)
		assert.Equal(t, "bitcoin", assets[0].CoinID)
		assert.Equal(t, "ethereum", assets[1].CoinID)

		got, err := repo.GetPortfolioAsset(ctx, bob.ID, "bitcoin")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, 3.0, got.Amount)
	})
}

func TestTransactionsNewestFirstWithLimit(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()
		demo, other := mustUser(t, repo, "demo"), mustUser(t, repo, "other")
		for i, amount := range []float64{1, 2, 3} {
			_, err := repo.CreateTransaction(ctx, domain.Transaction{UserID: demo.ID, Type: domain.TxBuy, CoinID: "bitcoin", Symbol: "BTC", Amount: amount, Price: float64(i)})
			require.NoError(t, err)
		}
		_, err := repo.CreateTransaction(ctx, domain.Transaction{UserID: other.ID, Type: domain.TxDeposit, CoinID: "tether", Symbol: "USDT", Amount: 10})
		require.NoError(t, err)

		txs, err := repo.GetTransactions(ctx, demo.ID, 0)
		require.NoError(t, err)
		require.Len(t, txs, 3)
		assert.Equal(t, []float64{3, 2, 1}, []float64{txs[0].Amount, txs[1].Amount, txs[2].Amount})
		for i := 1; i < len(txs); i++ {
			assert.False(t, txs[i].Timestamp.After(txs[i-1].Timestamp))
		}

		txs, err = repo.GetTransactions(ctx, demo.ID, 2)
		require.NoError(t, err)
		require.Len(t, txs, 2)
		assert.Equal(t, 3.0, txs[0].Amount)
		assert.Equal(t, 2.0, txs[1].Amount)

		all, err := repo.GetAllTransactions(ctx, 0)
		require.NoError(t, err)
		require.Len(t, all, 4)
		assert.Equal(t, other.ID, all[0].UserID)

		all, err = repo.GetAllTransactions(ctx, 1)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})
}

func TestTransactionTimestampAssignedByStore(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()
		u := mustUser(t, repo, "demo")
		supplied := time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC)
		tx, err := repo.CreateTransaction(ctx, domain.Transaction{UserID: u.ID, Type: domain.TxSell, CoinID: "ethereum", Symbol: "ETH", Amount: -0.2, Timestamp: supplied, ID: 99})
		require.NoError(t, err)
		assert.Equal(t, uint(1), tx.ID)
		assert.True(t, tx.Timestamp.After(supplied))
	})
}

func TestMemoryListingTiesBrokenByID(t *testing.T) {
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	repo := NewMemStorageWithClock(func() time.Time { return fixed })
	ctx := context.Background()
	for _, amount := range []float64{0.1, 0.2, 0.3} {
		_, err := repo.CreateMiningReward(ctx, domain.MiningReward{UserID: 1, Amount: amount})
		require.NoError(t, err)
	}

	rewards, err := repo.GetMiningRewards(ctx, 1, 0)
	require.NoError(t, err)
	require.Len(t, rewards, 3)
	assert.Equal(t, []uint{3, 2, 1}, []uint{rewards[0].ID, rewards[1].ID, rewards[2].ID})
}

func TestMiningRewardsNewestFirstWithLimit(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()
		u := mustUser(t, repo, "demo")
		for _, amount := range []float64{0.00042, 0.00038, 0.00045} {
			_, err := repo.CreateMiningReward(ctx, domain.MiningReward{UserID: u.ID, Amount: amount})
			require.NoError(t, err)
		}

		rewards, err := repo.GetMiningRewards(ctx, u.ID, 2)
		require.NoError(t, err)
		require.Len(t, rewards, 2)
		assert.Equal(t, 0.00045, rewards[0].Amount)
		assert.Equal(t, 0.00038, rewards[1].Amount)

		all, err := repo.GetAllMiningRewards(ctx, 0)
		require.NoError(t, err)
		assert.Len(t, all, 3)
	})
}

func TestMiningWorkerLifecycle(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()
		u := mustUser(t, repo, "demo")

		w, err := repo.CreateMiningWorker(ctx, domain.NewMiningWorker{UserID: u.ID, Name: "Worker-01", Hashrate: 92})
		require.NoError(t, err)
		assert.True(t, w.IsActive, "workers start active")
		assert.False(t, w.LastSeen.IsZero())

		inactive := false
		w2, err := repo.CreateMiningWorker(ctx, domain.NewMiningWorker{UserID: u.ID, Name: "Worker-02", Hashrate: 83, IsActive: &inactive})
		require.NoError(t, err)
		assert.False(t, w2.IsActive)

		updated, err := repo.UpdateMiningWorker(ctx, w.ID, domain.MiningWorkerPatch{IsActive: &inactive})
		require.NoError(t, err)
		require.NotNil(t, updated)
		assert.False(t, updated.IsActive)
		assert.Equal(t, "Worker-01", updated.Name)
		assert.Equal(t, 92.0, updated.Hashrate)
		assert.True(t, updated.LastSeen.After(w.LastSeen), "lastSeen refreshed on update")

		// An empty patch still refreshes lastSeen
		touched, err := repo.UpdateMiningWorker(ctx, w.ID, domain.MiningWorkerPatch{})
		require.NoError(t, err)
		assert.True(t, touched.LastSeen.After(updated.LastSeen))

		workers, err := repo.GetMiningWorkers(ctx, u.ID)
		require.NoError(t, err)
		require.Len(t, workers, 2)
		assert.Equal(t, w.ID, workers[0].ID)

		all, err := repo.GetAllMiningWorkers(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})
}

func TestWithinTxRollsBack(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()
		u := mustUser(t, repo, "demo")
		boom := errors.New("boom")

		err := repo.WithinTx(ctx, func(r Repository) error {
			if _, err := r.CreateTransaction(ctx, domain.Transaction{UserID: u.ID, Type: domain.TxBuy, CoinID: "bitcoin", Symbol: "BTC", Amount: 1}); err != nil {
				return err
			}
			if _, err := r.CreateOrUpdatePortfolioAsset(ctx, domain.PortfolioAsset{UserID: u.ID, CoinID: "bitcoin", Symbol: "BTC", Name: "Bitcoin", Amount: 1}); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		txs, err := repo.GetTransactions(ctx, u.ID, 0)
		require.NoError(t, err)
		assert.Empty(t, txs)
		asset, err := repo.GetPortfolioAsset(ctx, u.ID, "bitcoin")
		require.NoError(t, err)
		assert.Nil(t, asset)
	})
}

func TestWithinTxCommits(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()
		u := mustUser(t, repo, "demo")

		err := repo.WithinTx(ctx, func(r Repository) error {
			_, err := r.CreateMiningReward(ctx, domain.MiningReward{UserID: u.ID, Amount: 0.001})
			return err
		})
		require.NoError(t, err)

		rewards, err := repo.GetMiningRewards(ctx, u.ID, 0)
		require.NoError(t, err)
		assert.Len(t, rewards, 1)
	})
}

func TestSeed(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()
		require.NoError(t, Seed(ctx, repo, DefaultSeedOptions()))
		require.NoError(t, Seed(ctx, repo, DefaultSeedOptions()), "seeding twice is a no-op")

		users, err := repo.GetAllUsers(ctx)
		require.NoError(t, err)
		require.Len(t, users, 2)
		assert.Equal(t, "demo", users[0].Username)
		assert.Equal(t, domain.RoleAdmin, users[1].Role)
		assert.NotEqual(t, "admin123", users[1].Password, "passwords are stored hashed")
		assert.NotEqual(t, users[0].WalletAddress, users[1].WalletAddress)

		demo := users[0]
		btc, err := repo.GetPortfolioAsset(ctx, demo.ID, "bitcoin")
		require.NoError(t, err)
		require.NotNil(t, btc)
		assert.Equal(t, 0.8642, btc.Amount)

		assets, err := repo.GetPortfolioAssets(ctx, demo.ID)
		require.NoError(t, err)
		assert.Len(t, assets, 4)

		workers, err := repo.GetMiningWorkers(ctx, demo.ID)
		require.NoError(t, err)
		assert.Len(t, workers, 3)

		txs, err := repo.GetTransactions(ctx, demo.ID, 0)
		require.NoError(t, err)
		assert.Len(t, txs, 3)

		rewards, err := repo.GetMiningRewards(ctx, demo.ID, 0)
		require.NoError(t, err)
		assert.Len(t, rewards, 3)
	})
}

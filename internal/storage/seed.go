package storage

import (
	"context"
	"fmt"

	"paper_trading/internal/domain"
	"paper_trading/internal/utils"
)

// SeedOptions names the accounts created by Seed.
type SeedOptions struct {
	DemoUsername  string
	DemoPassword  string
	AdminUsername string
	AdminPassword string
}

// DefaultSeedOptions returns the stock demo and admin accounts.
func DefaultSeedOptions() SeedOptions {
	return SeedOptions{
		DemoUsername:  "demo",
		DemoPassword:  "password123",
		AdminUsername: "admin",
		AdminPassword: "admin123",
	}
}

// Seed loads the demo dataset: a demo trader with holdings, workers, history
// and rewards, plus an admin account. It does nothing when the demo user exists.
func Seed(ctx context.Context, repo Repository, opts SeedOptions) error {
	existing, err := repo.GetUserByUsername(ctx, opts.DemoUsername)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	return repo.WithinTx(ctx, func(repo Repository) error {
		demo, err := seedUser(ctx, repo, opts.DemoUsername, opts.DemoPassword, domain.RoleUser)
		if err != nil {
			return err
		}
		if _, err := seedUser(ctx, repo, opts.AdminUsername, opts.AdminPassword, domain.RoleAdmin); err != nil {
			return err
		}

		assets := []domain.PortfolioAsset{
			{CoinID: "bitcoin", Symbol: "BTC", Name: "Bitcoin", Amount: 0.8642},
			{CoinID: "ethereum", Symbol: "ETH", Name: "Ethereum", Amount: 7.5421},
			{CoinID: "tether", Symbol: "USDT", Name: "Tether", Amount: 8500},
			{CoinID: "binancecoin", Symbol: "BNB", Name: "Binance Coin", Amount: 34.5721},
		}
		for _, a := range assets {
			a.UserID = demo.ID
			if _, err := repo.CreateOrUpdatePortfolioAsset(ctx, a); err != nil {
				return fmt.Errorf("seed asset %s: %w", a.CoinID, err)
			}
		}

		workers := []domain.NewMiningWorker{
			{Name: "Worker-01", Hashrate: 92},
			{Name: "Worker-02", Hashrate: 83},
			{Name: "Worker-03", Hashrate: 70},
		}
		for _, w := range workers {
			w.UserID = demo.ID
			if _, err := repo.CreateMiningWorker(ctx, w); err != nil {
				return fmt.Errorf("seed worker %s: %w", w.Name, err)
			}
		}

		txs := []domain.Transaction{
			{Type: domain.TxMiningReward, CoinID: "bitcoin", Symbol: "BTC", Amount: 0.00018, Price: 29847.32},
			{Type: domain.TxSell, CoinID: "ethereum", Symbol: "ETH", Amount: -0.2, Price: 1876.41},
			{Type: domain.TxBuy, CoinID: "bitcoin", Symbol: "BTC", Amount: 0.0024, Price: 29847.32},
		}
		for _, tx := range txs {
			tx.UserID = demo.ID
			if _, err := repo.CreateTransaction(ctx, tx); err != nil {
				return fmt.Errorf("seed transaction: %w", err)
			}
		}

		for _, amount := range []float64{0.00042, 0.00038, 0.00045} {
			if _, err := repo.CreateMiningReward(ctx, domain.MiningReward{UserID: demo.ID, Amount: amount}); err != nil {
				return fmt.Errorf("seed reward: %w", err)
			}
		}
		return nil
	})
}

func seedUser(ctx context.Context, repo Repository, username, password, role string) (*domain.User, error) {
	hashed, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}
	user, err := repo.CreateUser(ctx, domain.User{
		Username:      username,
		Password:      hashed,
		Email:         username + "@example.com",
		WalletAddress: utils.NewWalletAddress(),
		Role:          role,
	})
	if err != nil {
		return nil, fmt.Errorf("seed user %s: %w", username, err)
	}
	return user, nil
}

// Package trading applies transactions and mining payouts to holdings.
// Every operation that writes more than one row runs as a single unit.
package trading

import (
	"context"      // Context for store calls
	"errors"       // Error comparison
	"math"         // NaN and Inf checks
	"math/rand/v2" // Simulated payout draws
	"strings"      // String manipulation

	"paper_trading/internal/apperr"    // Error kinds
	"paper_trading/internal/domain"    // Importing domain models
	"paper_trading/internal/portfolio" // Reward formula
	"paper_trading/internal/storage"   // Repository

	"github.com/shopspring/decimal" // Exact holding arithmetic
	"github.com/sirupsen/logrus"    // Logrus for structured logging
)

// Mined rewards are always paid in bitcoin
const (
	RewardCoinID = "bitcoin"
	RewardSymbol = "BTC"
	RewardName   = "Bitcoin"
)

// maxAttempts bounds the retries of a unit that lost a first-insert race on a holding
const maxAttempts = 3

// Pricer quotes the current USD price of a coin
type Pricer interface {
	Price(ctx context.Context, coinID string) (float64, error)
}

// TransactionInput is a transaction as submitted by a client
type TransactionInput struct {
	Type   string
	CoinID string
	Symbol string
	Name   string // Needed when a buy opens a new holding
	Amount float64
	Price  float64
}

// Service orchestrates multi-row writes over a Repository
type Service struct {
	repo   storage.Repository
	prices Pricer
	random func() float64
}

// NewService creates a trading service
func NewService(repo storage.Repository, prices Pricer) *Service {
	return &Service{repo: repo, prices: prices, random: rand.Float64}
}

// RecordTransaction stores the transaction and moves the holding by its amount.
// The sign of the amount follows the type: sells and withdrawals are negative,
// everything else positive.
func (s *Service) RecordTransaction(ctx context.Context, userID uint, in TransactionInput) (*domain.Transaction, error) {
	in.CoinID = strings.TrimSpace(in.CoinID)
	in.Symbol = strings.TrimSpace(in.Symbol)
	in.Name = strings.TrimSpace(in.Name)
	switch {
	case !domain.ValidTransactionType(in.Type):
		return nil, apperr.Validation("Invalid transaction type")
	case in.CoinID == "" || in.Symbol == "":
		return nil, apperr.Validation("coinId and symbol are required")
	case invalidAmount(in.Amount) || invalidAmount(in.Price) || in.Price < 0:
		return nil, apperr.Validation("Invalid transaction data")
	}
	in.Amount = math.Abs(in.Amount)
	if domain.IsOutflow(in.Type) {
		in.Amount = -in.Amount // Outflows are stored negative
	}

	var created *domain.Transaction
	err := s.unit(ctx, func(repo storage.Repository) error {
		tx, err := repo.CreateTransaction(ctx, domain.Transaction{
			UserID: userID,
			Type:   in.Type,
			CoinID: in.CoinID,
			Symbol: in.Symbol,
			Amount: in.Amount,
			Price:  in.Price,
		})
		if err != nil {
			return err
		}
		if _, err := AdjustHolding(ctx, repo, userID, in.CoinID, in.Symbol, holdingName(in), in.Amount); err != nil {
			return err
		}
		created = tx
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// holdingName is the display name for a holding the transaction may open.
// Only buys must carry one; other types fall back to a known name or the symbol.
func holdingName(in TransactionInput) string {
	switch {
	case in.Name != "":
		return in.Name
	case in.Type == domain.TxBuy:
		return "" // Rejected by AdjustHolding if the buy opens a holding
	case in.Type == domain.TxMiningReward && in.CoinID == RewardCoinID:
		return RewardName
	default:
		return in.Symbol
	}
}

// PayMiningReward records a reward, its mining_reward transaction and the
// bitcoin holding increase together.
func (s *Service) PayMiningReward(ctx context.Context, userID uint, amount, price float64) (*domain.MiningReward, error) {
	if invalidAmount(amount) || amount <= 0 || invalidAmount(price) || price < 0 {
		return nil, apperr.Validation("Invalid mining reward data")
	}

	var reward *domain.MiningReward
	err := s.unit(ctx, func(repo storage.Repository) error {
		r, err := repo.CreateMiningReward(ctx, domain.MiningReward{UserID: userID, Amount: amount})
		if err != nil {
			return err
		}
		// Dependent transaction, written in the same unit
		_, err = repo.CreateTransaction(ctx, domain.Transaction{
			UserID: userID,
			Type:   domain.TxMiningReward,
			CoinID: RewardCoinID,
			Symbol: RewardSymbol,
			Amount: amount,
			Price:  price,
		})
		if err != nil {
			return err
		}
		if _, err := AdjustHolding(ctx, repo, userID, RewardCoinID, RewardSymbol, RewardName, amount); err != nil {
			return err
		}
		reward = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reward, nil
}

// SimulateMining pays out a random reward proportional to the user's active
// hashrate, priced at the current bitcoin quote.
func (s *Service) SimulateMining(ctx context.Context, userID uint) (*domain.MiningReward, error) {
	workers, err := s.repo.GetMiningWorkers(ctx, userID)
	if err != nil {
		return nil, err
	}
	var hashrate float64 // Active workers only
	for _, w := range workers {
		if w.IsActive {
			hashrate += w.Hashrate
		}
	}
	if hashrate <= 0 {
		return nil, apperr.Validation("No active mining workers")
	}

	price, err := s.prices.Price(ctx, RewardCoinID) // Upstream failures propagate as is
	if err != nil {
		return nil, err
	}
	amount := portfolio.SimulatedReward(hashrate, s.random())
	if amount <= 0 {
		return nil, apperr.Validation("Simulated reward rounded to zero")
	}
	return s.PayMiningReward(ctx, userID, amount, price)
}

// unit runs fn inside WithinTx. Two units opening the same holding can race on
// its unique index; the loser sees ErrAlreadyExists and is replayed so it
// reads the row the winner inserted.
func (s *Service) unit(ctx context.Context, fn func(repo storage.Repository) error) error {
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = s.repo.WithinTx(ctx, fn)
		if !errors.Is(err, storage.ErrAlreadyExists) {
			return err
		}
		logrus.WithField("attempt", attempt).Warn("Holding insert conflicted, retrying")
	}
	return err
}

// AdjustHolding moves the (user, coin) holding by delta using exact decimal
// arithmetic. An existing holding never goes below zero. With no existing
// holding nothing is written unless the result is positive, and name is then
// required.
func AdjustHolding(ctx context.Context, repo storage.Repository, userID uint, coinID, symbol, name string, delta float64) (*domain.PortfolioAsset, error) {
	existing, err := repo.GetPortfolioAsset(ctx, userID, coinID) // Locked for the rest of the unit on SQL backends
	if err != nil {
		return nil, err
	}

	total := decimal.NewFromFloat(delta)
	if existing != nil {
		total = total.Add(decimal.NewFromFloat(existing.Amount))
	}
	amount, _ := total.Float64()

	asset := domain.PortfolioAsset{UserID: userID, CoinID: coinID, Symbol: symbol, Name: name, Amount: amount}
	switch {
	case existing != nil:
		asset.Symbol, asset.Name = existing.Symbol, existing.Name // Keep the stored labels
		if total.IsNegative() {
			asset.Amount = 0 // Clamp, the row is kept
		}
	case amount <= 0:
		return nil, nil // Nothing to open
	case strings.TrimSpace(name) == "":
		return nil, apperr.Validation("name is required to open a new holding")
	}
	return repo.CreateOrUpdatePortfolioAsset(ctx, asset)
}

func invalidAmount(v float64) bool {
	return math.IsNaN(v) || math.IsInf(v, 0)
}

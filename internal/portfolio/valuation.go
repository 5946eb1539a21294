// Package portfolio derives portfolio and mining figures from stored rows and
// market data. Nothing here touches storage or the network.
package portfolio

import (
	"time"

	"paper_trading/internal/domain"
	"paper_trading/internal/market"
)

// Allocation is one holding valued at the current market price
type Allocation struct {
	domain.PortfolioAsset
	CurrentPrice   float64 `json:"currentPrice"`
	Value          float64 `json:"value"`
	Percentage     float64 `json:"percentage"`
	PriceChange24h float64 `json:"priceChange24h"`
}

// Summary is the valued portfolio of one user
type Summary struct {
	TotalValue float64      `json:"totalValue"`
	Change24h  float64      `json:"change24h"` // Value weighted 24h percentage change
	Assets     []Allocation `json:"assets"`
}

// Valuate prices every asset against the markets listing. Assets with no
// matching market entry are valued at zero, and every figure is zero when
// the total is zero.
func Valuate(assets []domain.PortfolioAsset, coins []market.CoinData) Summary {
	byID := make(map[string]market.CoinData, len(coins))
	for _, c := range coins {
		byID[c.ID] = c
	}

	summary := Summary{Assets: make([]Allocation, 0, len(assets))}
	var weighted float64
	for _, a := range assets {
		alloc := Allocation{PortfolioAsset: a}
		if coin, ok := byID[a.CoinID]; ok {
			alloc.CurrentPrice = coin.CurrentPrice
			alloc.PriceChange24h = coin.PriceChangePercentage24h
			alloc.Value = a.Amount * coin.CurrentPrice
		}
		summary.TotalValue += alloc.Value
		weighted += alloc.Value * alloc.PriceChange24h
		summary.Assets = append(summary.Assets, alloc)
	}

	if summary.TotalValue == 0 {
		return summary
	}
	summary.Change24h = weighted / summary.TotalValue
	for i := range summary.Assets {
		summary.Assets[i].Percentage = summary.Assets[i].Value / summary.TotalValue * 100
	}
	return summary
}

// MiningSummary aggregates a user's workers and reward history
type MiningSummary struct {
	TotalHashrate    float64 `json:"totalHashrate"` // Active workers only
	ActiveWorkers    int     `json:"activeWorkerCount"`
	TotalWorkers     int     `json:"totalWorkerCount"`
	DailyEarnings    float64 `json:"dailyEarnings"`
	WeeklyEarnings   float64 `json:"weeklyEarnings"`
	MonthlyEarnings  float64 `json:"monthlyEarnings"`
	ProjectedMonthly float64 `json:"projectedMonthlyEarnings"`
}

// MiningStats sums active hashrate and the rewards earned in the last 1, 7 and 30 days
func MiningStats(workers []domain.MiningWorker, rewards []domain.MiningReward, now time.Time) MiningSummary {
	s := MiningSummary{TotalWorkers: len(workers)}
	for _, w := range workers {
		if w.IsActive {
			s.ActiveWorkers++
			s.TotalHashrate += w.Hashrate
		}
	}

	day, week, month := now.AddDate(0, 0, -1), now.AddDate(0, 0, -7), now.AddDate(0, 0, -30)
	for _, r := range rewards {
		if !r.Timestamp.Before(day) {
			s.DailyEarnings += r.Amount
		}
		if !r.Timestamp.Before(week) {
			s.WeeklyEarnings += r.Amount
		}
		if !r.Timestamp.Before(month) {
			s.MonthlyEarnings += r.Amount
		}
	}
	s.ProjectedMonthly = s.DailyEarnings * 30
	return s
}

// HashrateMultiplier converts thousands of MH/s into BTC per simulated payout
const HashrateMultiplier = 0.00001

// SimulatedReward scales the active hashrate by a random factor r in [0, 1)
func SimulatedReward(totalHashrate, r float64) float64 {
	return totalHashrate / 1000 * HashrateMultiplier * r
}

// Package simulator pays out simulated mining rewards on a fixed interval.
package simulator

import (
	"context" // Cancellation
	"sync"    // Single close of the stop channel
	"time"    // Ticker interval

	"paper_trading/internal/apperr"  // Error kinds
	"paper_trading/internal/domain"  // Importing domain models
	"paper_trading/internal/storage" // Repository

	"github.com/sirupsen/logrus" // Logrus for structured logging
)

// Miner pays one simulated reward to a user
type Miner interface {
	SimulateMining(ctx context.Context, userID uint) (*domain.MiningReward, error)
}

// MiningSimulator runs Miner for one user on every tick
type MiningSimulator struct {
	repo     storage.Repository
	miner    Miner
	username string
	interval time.Duration
	stopChan chan struct{} // Closed by Stop
	stopOnce sync.Once
}

// NewMiningSimulator creates a simulator paying username every interval
func NewMiningSimulator(repo storage.Repository, miner Miner, username string, interval time.Duration) *MiningSimulator {
	return &MiningSimulator{
		repo:     repo,
		miner:    miner,
		username: username,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start blocks until ctx is done or Stop is called. A failed payout is
// logged and the loop carries on.
func (s *MiningSimulator) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stopChan:
			return nil
		case <-ticker.C:
			s.tick(ctx) // Errors are logged inside
		}
	}
}

// Stop ends the loop; later calls are no-ops
func (s *MiningSimulator) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
}

func (s *MiningSimulator) tick(ctx context.Context) {
	log := logrus.WithField("username", s.username)
	user, err := s.repo.GetUserByUsername(ctx, s.username)
	if err != nil {
		log.WithError(err).Error("Mining simulation lookup failed")
		return
	}
	if user == nil {
		log.Warn("Mining simulation skipped, user not found")
		return
	}

	reward, err := s.miner.SimulateMining(ctx, user.ID)
	switch {
	case apperr.IsKind(err, apperr.KindValidation):
		log.WithError(err).Debug("Mining simulation paid nothing") // No active workers
	case err != nil:
		log.WithError(err).Error("Mining simulation failed")
	default:
		log.WithFields(logrus.Fields{
			"reward_id": reward.ID,
			"amount":    reward.Amount,
		}).Info("Simulated mining reward paid")
	}
}

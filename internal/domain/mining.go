package domain

import "time"

// MiningWorker Model
type MiningWorker struct {
	ID       uint      `gorm:"primaryKey" json:"id"`          // Primary key
	UserID   uint      `gorm:"index;not null" json:"userId"`  // Owning user
	Name     string    `gorm:"size:128;not null" json:"name"` // Worker name
	Hashrate float64   `gorm:"not null" json:"hashrate"`      // Hashrate in MH/s
	IsActive bool      `gorm:"not null" json:"isActive"`      // Whether the worker is mining
	LastSeen time.Time `gorm:"not null" json:"lastSeen"`      // Refreshed on every mutation
}

// NewMiningWorker carries the fields of a worker insert; IsActive defaults to true when nil
type NewMiningWorker struct {
	UserID   uint
	Name     string
	Hashrate float64
	IsActive *bool
}

// MiningWorkerPatch carries the fields of a partial worker update; nil fields are left untouched
type MiningWorkerPatch struct {
	Name     *string
	Hashrate *float64
	IsActive *bool
}

// Apply merges the provided fields over w
func (p MiningWorkerPatch) Apply(w *MiningWorker) {
	if p.Name != nil {
		w.Name = *p.Name
	}
	if p.Hashrate != nil {
		w.Hashrate = *p.Hashrate
	}
	if p.IsActive != nil {
		w.IsActive = *p.IsActive
	}
}

// MiningReward Model, BTC denominated. Immutable once created.
type MiningReward struct {
	ID        uint      `gorm:"primaryKey" json:"id"`            // Primary key
	UserID    uint      `gorm:"index;not null" json:"userId"`    // Owning user
	Amount    float64   `gorm:"not null" json:"amount"`          // Reward amount in BTC
	Timestamp time.Time `gorm:"index;not null" json:"timestamp"` // Assigned by the repository
}

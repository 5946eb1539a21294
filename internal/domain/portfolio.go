package domain

import "time"

// PortfolioAsset Model, one row per (user, coin)
type PortfolioAsset struct {
	ID        uint      `gorm:"primaryKey" json:"id"`                                           // Primary key
	UserID    uint      `gorm:"uniqueIndex:idx_asset_user_coin;not null" json:"userId"`         // Owning user
	CoinID    string    `gorm:"uniqueIndex:idx_asset_user_coin;size:64;not null" json:"coinId"` // Market identifier
	Symbol    string    `gorm:"size:16;not null" json:"symbol"`                                 // Ticker symbol
	Name      string    `gorm:"size:128;not null" json:"name"`                                  // Display name
	Amount    float64   `gorm:"not null" json:"amount"`                                         // Held amount
	UpdatedAt time.Time `json:"updatedAt"`                                                      // Last upsert time
}

package domain

import "time"

// Transaction types
const (
	TxBuy          = "buy"
	TxSell         = "sell"
	TxDeposit      = "deposit"
	TxWithdraw     = "withdraw"
	TxMiningReward = "mining_reward"
)

// Transaction Model. Immutable once created.
type Transaction struct {
	ID        uint      `gorm:"primaryKey" json:"id"`            // Primary key
	UserID    uint      `gorm:"index;not null" json:"userId"`    // Owning user
	Type      string    `gorm:"size:16;not null" json:"type"`    // buy, sell, deposit, withdraw, mining_reward
	CoinID    string    `gorm:"size:64;not null" json:"coinId"`  // Market identifier, e.g. bitcoin
	Symbol    string    `gorm:"size:16;not null" json:"symbol"`  // Ticker symbol
	Amount    float64   `gorm:"not null" json:"amount"`          // Signed amount, negative for sells and withdrawals
	Price     float64   `gorm:"not null" json:"price"`           // Fiat unit price at the time
	Timestamp time.Time `gorm:"index;not null" json:"timestamp"` // Assigned by the repository
}

// IsOutflow reports whether the type removes coins from the holding
func IsOutflow(txType string) bool {
	return txType == TxSell || txType == TxWithdraw
}

// ValidTransactionType reports whether txType is a known transaction type
func ValidTransactionType(txType string) bool {
	switch txType {
	case TxBuy, TxSell, TxDeposit, TxWithdraw, TxMiningReward:
		return true
	}
	return false
}

package api

import (
	"net/http" // HTTP status codes

	"paper_trading/internal/storage" // Repository
	"paper_trading/internal/trading" // Transaction orchestration

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logrus for structured logging
)

// TransactionRequest represents a trade submitted from the dashboard
type TransactionRequest struct {
	Type   string   `json:"type" binding:"required"`
	CoinID string   `json:"coinId" binding:"required"`
	Symbol string   `json:"symbol" binding:"required"`
	Name   string   `json:"name"` // Required when the trade opens a new holding
	Amount *float64 `json:"amount" binding:"required"`
	Price  *float64 `json:"price" binding:"required,gte=0"`
}

// ListTransactionsHandler returns the demo user's transactions, newest first
func ListTransactionsHandler(repo storage.Repository, demoUser string) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, err := parseLimit(c)
		if err != nil {
			respondError(c, err)
			return
		}
		user, ok := currentUser(c, repo, demoUser)
		if !ok {
			return
		}
		txs, err := repo.GetTransactions(c.Request.Context(), user.ID, limit)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, txs)
	}
}

// CreateTransactionHandler records a trade and moves the matching holding
func CreateTransactionHandler(repo storage.Repository, svc *trading.Service, demoUser string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req TransactionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid transaction data")
			return
		}
		user, ok := currentUser(c, repo, demoUser)
		if !ok {
			return
		}
		tx, err := svc.RecordTransaction(c.Request.Context(), user.ID, trading.TransactionInput{
			Type:   req.Type,
			CoinID: req.CoinID,
			Symbol: req.Symbol,
			Name:   req.Name,
			Amount: *req.Amount,
			Price:  *req.Price,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		logrus.WithFields(logrus.Fields{
			"user_id": user.ID,
			"type":    tx.Type,
			"coin_id": tx.CoinID,
			"amount":  tx.Amount,
			"price":   tx.Price,
		}).Info("Transaction recorded")
		c.JSON(http.StatusOK, tx)
	}
}

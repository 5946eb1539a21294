package api

import (
	"context"       // Context for upstream calls
	"encoding/json" // Raw payloads
	"net/http"      // HTTP status codes
	"regexp"        // Parameter validation

	"paper_trading/internal/market" // Market-data gateway

	"github.com/gin-gonic/gin" // Gin web framework
)

// MarketData is the market-data gateway as seen by the handlers
type MarketData interface {
	Markets(ctx context.Context) (json.RawMessage, error)
	Chart(ctx context.Context, coinID, days string) (json.RawMessage, error)
	Coin(ctx context.Context, coinID string) (json.RawMessage, error)
	MarketList(ctx context.Context) ([]market.CoinData, error)
}

var (
	coinIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)      // Provider coin identifiers
	daysPattern   = regexp.MustCompile(`^(max|[0-9]+(\.[0-9]+)?)$`) // Lookback window in days
)

// rawJSON forwards an upstream payload unchanged
func rawJSON(c *gin.Context, body json.RawMessage) {
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

// MarketsHandler returns the top coins by market cap
func MarketsHandler(md MarketData) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := md.Markets(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		rawJSON(c, body)
	}
}

// ChartHandler returns the price chart of a coin, ?days= defaulting to 1
func ChartHandler(md MarketData) gin.HandlerFunc {
	return func(c *gin.Context) {
		coinID := c.Param("coinId")
		days := c.DefaultQuery("days", "1")
		if !coinIDPattern.MatchString(coinID) {
			badRequest(c, "Invalid coin id")
			return
		}
		if !daysPattern.MatchString(days) {
			badRequest(c, "Invalid days")
			return
		}
		body, err := md.Chart(c.Request.Context(), coinID, days)
		if err != nil {
			respondError(c, err)
			return
		}
		rawJSON(c, body)
	}
}

// CoinHandler returns the detail record of a coin
func CoinHandler(md MarketData) gin.HandlerFunc {
	return func(c *gin.Context) {
		coinID := c.Param("coinId")
		if !coinIDPattern.MatchString(coinID) {
			badRequest(c, "Invalid coin id")
			return
		}
		body, err := md.Coin(c.Request.Context(), coinID)
		if err != nil {
			respondError(c, err)
			return
		}
		rawJSON(c, body)
	}
}

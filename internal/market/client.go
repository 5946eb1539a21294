// Package market is the gateway to a CoinGecko compatible market-data provider.
package market

import (
	"context"       // Request cancellation
	"encoding/json" // Decoding upstream payloads
	"fmt"           // Error formatting
	"io"            // Reading response bodies
	"net/http"      // HTTP client
	"net/url"       // Query encoding
	"strings"       // URL building
	"time"          // Timeouts

	"paper_trading/internal/apperr" // Error kinds
	"paper_trading/internal/utils"  // Cache abstraction

	"github.com/sirupsen/logrus" // Logrus for structured logging
)

// Upstream failure messages surfaced to API callers
const (
	MsgMarkets = "Failed to fetch market data"
	MsgChart   = "Failed to fetch chart data"
	MsgCoin    = "Failed to fetch coin data"
)

// maxBody bounds how much of an upstream response is read
const maxBody = 8 << 20

// CoinData is one entry of the markets listing
type CoinData struct {
	ID                       string  `json:"id"`
	Symbol                   string  `json:"symbol"`
	Name                     string  `json:"name"`
	Image                    string  `json:"image"`
	CurrentPrice             float64 `json:"current_price"`
	PriceChangePercentage24h float64 `json:"price_change_percentage_24h"`
	MarketCap                float64 `json:"market_cap"`
	TotalVolume              float64 `json:"total_volume"`
	High24h                  float64 `json:"high_24h"`
	Low24h                   float64 `json:"low_24h"`
}

// Options configures a Client
type Options struct {
	BaseURL  string
	APIKey   string        // Sent as x_cg_demo_api_key when set
	Timeout  time.Duration // Per request, zero means no timeout
	Cache    utils.Cache   // Nil disables caching
	CacheTTL time.Duration
}

// Client forwards read-only queries to the provider. Failures are returned,
// never retried, and never answered from cache.
type Client struct {
	baseURL  string
	apiKey   string
	http     *http.Client
	cache    utils.Cache
	cacheTTL time.Duration
}

// NewClient creates a market-data client
func NewClient(opts Options) *Client {
	cache := opts.Cache
	if cache == nil || opts.CacheTTL <= 0 {
		cache = utils.NopCache{} // Every call goes upstream
	}
	return &Client{
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		apiKey:   opts.APIKey,
		http:     &http.Client{Timeout: opts.Timeout},
		cache:    cache,
		cacheTTL: opts.CacheTTL,
	}
}

// Markets returns the raw top-20 listing by market cap in USD
func (c *Client) Markets(ctx context.Context) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("vs_currency", "usd")
	q.Set("order", "market_cap_desc")
	q.Set("per_page", "20")
	q.Set("page", "1")
	q.Set("sparkline", "false")
	q.Set("price_change_percentage", "24h")
	body, err := c.get(ctx, "market:markets", "/coins/markets", q)
	if err != nil {
		return nil, apperr.Upstream(MsgMarkets, err)
	}
	return body, nil
}

// Chart returns the raw price chart of a coin over the last days (default "1")
func (c *Client) Chart(ctx context.Context, coinID, days string) (json.RawMessage, error) {
	if days == "" {
		days = "1"
	}
	q := url.Values{}
	q.Set("vs_currency", "usd")
	q.Set("days", days)
	key := fmt.Sprintf("market:chart:%s:%s", coinID, days)
	body, err := c.get(ctx, key, "/coins/"+url.PathEscape(coinID)+"/market_chart", q)
	if err != nil {
		return nil, apperr.Upstream(MsgChart, err)
	}
	return body, nil
}

// Coin returns the raw detail record of a coin
func (c *Client) Coin(ctx context.Context, coinID string) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("localization", "false")
	q.Set("tickers", "false")
	q.Set("market_data", "true")
	q.Set("community_data", "false")
	q.Set("developer_data", "false")
	q.Set("sparkline", "false")
	body, err := c.get(ctx, "market:coin:"+coinID, "/coins/"+url.PathEscape(coinID), q)
	if err != nil {
		return nil, apperr.Upstream(MsgCoin, err)
	}
	return body, nil
}

// MarketList decodes the markets listing
func (c *Client) MarketList(ctx context.Context) ([]CoinData, error) {
	raw, err := c.Markets(ctx)
	if err != nil {
		return nil, err
	}
	var coins []CoinData
	if err := json.Unmarshal(raw, &coins); err != nil {
		return nil, apperr.Upstream(MsgMarkets, fmt.Errorf("decode markets: %w", err))
	}
	return coins, nil
}

// Price returns the current USD price of a coin from the markets listing
func (c *Client) Price(ctx context.Context, coinID string) (float64, error) {
	coins, err := c.MarketList(ctx)
	if err != nil {
		return 0, err
	}
	for _, coin := range coins {
		if coin.ID == coinID {
			return coin.CurrentPrice, nil
		}
	}
	return 0, apperr.Upstream(MsgMarkets, fmt.Errorf("no market entry for %q", coinID)) // Outside the top 20
}

// get fetches path and returns the JSON body, consulting the cache first
func (c *Client) get(ctx context.Context, cacheKey, path string, q url.Values) ([]byte, error) {
	if body, ok, err := c.cache.Get(ctx, cacheKey); err != nil {
		logrus.WithError(err).WithField("key", cacheKey).Warn("market cache read failed")
	} else if ok {
		return body, nil
	}

	if c.apiKey != "" {
		q.Set("x_cg_demo_api_key", c.apiKey)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	// Read the body (bounded)
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%s returned status %d", path, resp.StatusCode)
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("%s returned invalid JSON", path)
	}

	// Only successful responses are cached
	if err := c.cache.Set(ctx, cacheKey, body, c.cacheTTL); err != nil {
		logrus.WithError(err).WithField("key", cacheKey).Warn("market cache write failed")
	}
	return body, nil
}

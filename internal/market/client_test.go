package market

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"paper_trading/internal/apperr"
	"paper_trading/internal/utils"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const marketsJSON = `[
	{"id":"bitcoin","symbol":"btc","name":"Bitcoin","current_price":30000,"price_change_percentage_24h":2.5},
	{"id":"ethereum","symbol":"eth","name":"Ethereum","current_price":2000,"price_change_percentage_24h":null}
]`

// fakeUpstream serves canned provider responses and counts requests.
type fakeUpstream struct {
	*httptest.Server
	hits   atomic.Int32
	status atomic.Int32
	last   atomic.Pointer[http.Request]
}

func newFakeUpstream(t *testing.T) *fakeUpstream {
	t.Helper()
	f := &fakeUpstream{}
	f.status.Store(http.StatusOK)
	mux := http.NewServeMux()
	mux.HandleFunc("/coins/markets", func(w http.ResponseWriter, r *http.Request) {
		f.serve(w, r, marketsJSON)
	})
	mux.HandleFunc("/coins/bitcoin/market_chart", func(w http.ResponseWriter, r *http.Request) {
		f.serve(w, r, `{"prices":[[1700000000000,30000]],"market_caps":[],"total_volumes":[]}`)
	})
	mux.HandleFunc("/coins/bitcoin", func(w http.ResponseWriter, r *http.Request) {
		f.serve(w, r, `{"id":"bitcoin","market_data":{"current_price":{"usd":30000}}}`)
	})
	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

func (f *fakeUpstream) serve(w http.ResponseWriter, r *http.Request, body string) {
	f.hits.Add(1)
	f.last.Store(r)
	w.Header().Set("Content-Type", "application/json")
	status := int(f.status.Load())
	w.WriteHeader(status)
	if status == http.StatusOK {
		_, _ = w.Write([]byte(body))
	} else {
		_, _ = w.Write([]byte(`{"error":"rate limited"}`))
	}
}

func TestMarketsForwardsQuery(t *testing.T) {
	up := newFakeUpstream(t)
	c := NewClient(Options{BaseURL: up.URL + "/", APIKey: "demo-key", Timeout: time.Second})

	raw, err := c.Markets(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, marketsJSON, string(raw))

	q := up.last.Load().URL.Query()
	assert.Equal(t, "usd", q.Get("vs_currency"))
	assert.Equal(t, "market_cap_desc", q.Get("order"))
	assert.Equal(t, "20", q.Get("per_page"))
	assert.Equal(t, "1", q.Get("page"))
	assert.Equal(t, "false", q.Get("sparkline"))
	assert.Equal(t, "24h", q.Get("price_change_percentage"))
	assert.Equal(t, "demo-key", q.Get("x_cg_demo_api_key"))
}

func TestChartDefaultsToOneDay(t *testing.T) {
	up := newFakeUpstream(t)
	c := NewClient(Options{BaseURL: up.URL})

	raw, err := c.Chart(context.Background(), "bitcoin", "")
	require.NoError(t, err)
	assert.Contains(t, string(raw), "prices")
	q := up.last.Load().URL.Query()
	assert.Equal(t, "1", q.Get("days"))
	assert.Empty(t, q.Get("x_cg_demo_api_key"), "no key configured")
}

func TestCoinDetail(t *testing.T) {
	up := newFakeUpstream(t)
	c := NewClient(Options{BaseURL: up.URL})

	raw, err := c.Coin(context.Background(), "bitcoin")
	require.NoError(t, err)
	assert.Contains(t, string(raw), "market_data")
	q := up.last.Load().URL.Query()
	assert.Equal(t, "true", q.Get("market_data"))
	assert.Equal(t, "false", q.Get("tickers"))
}

func TestUpstreamFailureIsUpstreamError(t *testing.T) {
	up := newFakeUpstream(t)
	up.status.Store(http.StatusTooManyRequests)
	c := NewClient(Options{BaseURL: up.URL})

	_, err := c.Markets(context.Background())
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindUpstream))

	_, err = c.Chart(context.Background(), "bitcoin", "7")
	assert.True(t, apperr.IsKind(err, apperr.KindUpstream))
	assert.Equal(t, int32(2), up.hits.Load(), "failures are not retried")
}

func TestUnreachableUpstream(t *testing.T) {
	up := newFakeUpstream(t)
	up.Close()
	c := NewClient(Options{BaseURL: up.URL, Timeout: time.Second})

	_, err := c.Coin(context.Background(), "bitcoin")
	assert.True(t, apperr.IsKind(err, apperr.KindUpstream))
}

func TestMarketListAndPrice(t *testing.T) {
	up := newFakeUpstream(t)
	c := NewClient(Options{BaseURL: up.URL})

	coins, err := c.MarketList(context.Background())
	require.NoError(t, err)
	require.Len(t, coins, 2)
	assert.Equal(t, 2.5, coins[0].PriceChangePercentage24h)
	assert.Equal(t, 0.0, coins[1].PriceChangePercentage24h, "null change decodes as zero")

	price, err := c.Price(context.Background(), "bitcoin")
	require.NoError(t, err)
	assert.Equal(t, 30000.0, price)

	_, err = c.Price(context.Background(), "dogecoin")
	assert.Error(t, err)
}

func TestCacheServesSuccessOnly(t *testing.T) {
	up := newFakeUpstream(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	c := NewClient(Options{BaseURL: up.URL, Cache: utils.NewRedisCache(rdb), CacheTTL: time.Minute})
	ctx := context.Background()

	// A failure is not cached
	up.status.Store(http.StatusInternalServerError)
	_, err := c.Markets(ctx)
	require.Error(t, err)

	up.status.Store(http.StatusOK)
	_, err = c.Markets(ctx)
	require.NoError(t, err)
	_, err = c.Markets(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), up.hits.Load(), "second success served from cache")

	mr.FastForward(2 * time.Minute)
	_, err = c.Markets(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(3), up.hits.Load(), "expired entry refetched")
}

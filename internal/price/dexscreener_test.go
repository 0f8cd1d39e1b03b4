package price

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const testMint = "7GCihgDB8fe6KNjn2MYtkzZcRjQy3t9GHdC8uHYmW2hr"

const pairsJSON = `{"pairs":[
 {"chainId":"solana","dexId":"raydium","pairAddress":"P1",
  "baseToken":{"address":"` + testMint + `","symbol":"POPCAT"},
  "quoteToken":{"address":"So11111111111111111111111111111111111111112","symbol":"SOL"},
  "priceNative":"0.0021","priceUsd":"0.31","liquidity":{"usd":12000}},
 {"chainId":"solana","dexId":"pumpswap","pairAddress":"P2",
  "baseToken":{"address":"` + testMint + `","symbol":"POPCAT"},
  "quoteToken":{"address":"So11111111111111111111111111111111111111112","symbol":"SOL"},
  "priceNative":"0.0020","priceUsd":"0.30","liquidity":{"usd":90000}},
 {"chainId":"solana","dexId":"orca","pairAddress":"P3",
  "baseToken":{"address":"` + testMint + `","symbol":"POPCAT"},
  "quoteToken":{"address":"EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v","symbol":"USDC"},
  "priceNative":"0.31","priceUsd":"0.31","liquidity":{"usd":500000}},
 {"chainId":"ethereum","dexId":"uniswap","pairAddress":"P4",
  "baseToken":{"address":"` + testMint + `","symbol":"POPCAT"},
  "quoteToken":{"address":"So11111111111111111111111111111111111111112","symbol":"SOL"},
  "priceNative":"9","priceUsd":"9","liquidity":{"usd":900000}}
]}`

func newServer(t *testing.T, status int, body string, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			atomic.AddInt32(hits, 1)
		}
		assert.Equal(t, "/latest/dex/tokens/"+testMint, r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestDexScreener_PicksDeepestSOLPair(t *testing.T) {
	srv := newServer(t, http.StatusOK, pairsJSON, nil)
	ds := NewDexScreener(srv.URL, time.Second, zaptest.NewLogger(t))

	q, err := ds.Quote(context.Background(), testMint)
	require.NoError(t, err)
	assert.Equal(t, "P2", q.PairAddress)
	assert.Equal(t, "POPCAT", q.Symbol)
	assert.True(t, q.PriceSOL.Equal(decimal.RequireFromString("0.0020")))

	p, err := ds.Price(context.Background(), testMint)
	require.NoError(t, err)
	assert.True(t, p.Equal(q.PriceSOL))
}

func TestDexScreener_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"no pairs", http.StatusOK, `{"pairs":null}`, ErrNoPair},
		{"bad price", http.StatusOK, `{"pairs":[{"chainId":"solana","baseToken":{"address":"` + testMint + `"},"quoteToken":{"address":"` + WrappedSOLMint + `"},"priceNative":"abc"}]}`, ErrBadQuote},
		{"negative price", http.StatusOK, `{"pairs":[{"chainId":"solana","baseToken":{"address":"` + testMint + `"},"quoteToken":{"address":"` + WrappedSOLMint + `"},"priceNative":"-1"}]}`, ErrBadQuote},
		{"rate limited", http.StatusTooManyRequests, `{}`, ErrHTTPStatus},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newServer(t, tt.status, tt.body, nil)
			ds := NewDexScreener(srv.URL, time.Second, zaptest.NewLogger(t))
			_, err := ds.Price(context.Background(), testMint)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestDexScreener_ZeroPriceIsAQuote(t *testing.T) {
	body := `{"pairs":[{"chainId":"solana","pairAddress":"P9","baseToken":{"address":"` + testMint + `"},"quoteToken":{"address":"` + WrappedSOLMint + `"},"priceNative":"0","liquidity":{"usd":1}}]}`
	srv := newServer(t, http.StatusOK, body, nil)
	ds := NewDexScreener(srv.URL, time.Second, zaptest.NewLogger(t))

	p, err := ds.Price(context.Background(), testMint)
	require.NoError(t, err)
	assert.True(t, p.IsZero())
}

func TestCached_SharesPrice(t *testing.T) {
	var hits int32
	srv := newServer(t, http.StatusOK, pairsJSON, &hits)
	c := NewCached(NewDexScreener(srv.URL, time.Second, zaptest.NewLogger(t)), time.Minute)

	for i := 0; i < 5; i++ {
		_, err := c.Price(context.Background(), testMint)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))

	c.Invalidate(testMint)
	_, err := c.Price(context.Background(), testMint)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestCached_DoesNotCacheErrors(t *testing.T) {
	var hits int32
	srv := newServer(t, http.StatusBadGateway, `{}`, &hits)
	c := NewCached(NewDexScreener(srv.URL, time.Second, zaptest.NewLogger(t)), time.Minute)

	_, err := c.Price(context.Background(), testMint)
	require.Error(t, err)
	_, err = c.Price(context.Background(), testMint)
	require.Error(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestLimited_HonoursContext(t *testing.T) {
	srv := newServer(t, http.StatusOK, pairsJSON, nil)
	l := NewLimited(NewDexScreener(srv.URL, time.Second, zaptest.NewLogger(t)), 0.001, zaptest.NewLogger(t))

	_, err := l.Price(context.Background(), testMint)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Price(ctx, testMint)
	assert.Error(t, err)
}

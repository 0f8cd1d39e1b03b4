// internal/price/dexscreener.go
package price

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// WrappedSOLMint is the mint DexScreener reports as the quote token of SOL pairs.
const WrappedSOLMint = "So11111111111111111111111111111111111111112"

var (
	ErrNoPair     = errors.New("no SOL-quoted pair found")
	ErrBadQuote   = errors.New("malformed quote")
	ErrHTTPStatus = errors.New("unexpected http status")
)

// Quote is the best SOL-quoted pair of a token.
type Quote struct {
	TokenMint   string
	Symbol      string
	PairAddress string
	DEX         string
	PriceSOL    decimal.Decimal
	PriceUSD    decimal.Decimal
	LiquidityUS float64
}

type dexToken struct {
	Address string `json:"address"`
	Symbol  string `json:"symbol"`
}

type dexPair struct {
	ChainID     string   `json:"chainId"`
	DexID       string   `json:"dexId"`
	PairAddress string   `json:"pairAddress"`
	BaseToken   dexToken `json:"baseToken"`
	QuoteToken  dexToken `json:"quoteToken"`
	PriceNative string   `json:"priceNative"`
	PriceUSD    string   `json:"priceUsd"`
	Liquidity   struct {
		USD float64 `json:"usd"`
	} `json:"liquidity"`
}

type dexTokensResponse struct {
	Pairs []dexPair `json:"pairs"`
}

// DexScreener reads token prices from the public DexScreener API.
type DexScreener struct {
	client *resty.Client
	logger *zap.Logger
}

// NewDexScreener creates a client for baseURL (e.g. https://api.dexscreener.com).
func NewDexScreener(baseURL string, timeout time.Duration, logger *zap.Logger) *DexScreener {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	return &DexScreener{
		client: client,
		logger: logger.Named("dexscreener"),
	}
}

// Price returns the SOL price of the most liquid SOL pair.
func (d *DexScreener) Price(ctx context.Context, tokenMint string) (decimal.Decimal, error) {
	q, err := d.Quote(ctx, tokenMint)
	if err != nil {
		return decimal.Zero, err
	}
	return q.PriceSOL, nil
}

// Quote fetches all pairs of tokenMint and picks the SOL pair with the deepest liquidity.
func (d *DexScreener) Quote(ctx context.Context, tokenMint string) (Quote, error) {
	var body dexTokensResponse
	resp, err := d.client.R().
		SetContext(ctx).
		SetPathParam("mint", tokenMint).
		SetResult(&body).
		Get("/latest/dex/tokens/{mint}")
	if err != nil {
		return Quote{}, fmt.Errorf("dexscreener request: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return Quote{}, fmt.Errorf("%w: %d", ErrHTTPStatus, resp.StatusCode())
	}

	best, ok := bestSOLPair(body.Pairs, tokenMint)
	if !ok {
		return Quote{}, fmt.Errorf("%w for %s", ErrNoPair, tokenMint)
	}

	priceSOL, err := decimal.NewFromString(best.PriceNative)
	// Zero is a real quote for a drained pool.
	if err != nil || priceSOL.IsNegative() {
		return Quote{}, fmt.Errorf("%w: priceNative %q", ErrBadQuote, best.PriceNative)
	}
	priceUSD, _ := decimal.NewFromString(best.PriceUSD)

	d.logger.Debug("Price fetched",
		zap.String("token", tokenMint),
		zap.String("dex", best.DexID),
		zap.String("price_sol", priceSOL.String()),
		zap.Float64("liquidity_usd", best.Liquidity.USD))

	return Quote{
		TokenMint:   tokenMint,
		Symbol:      best.BaseToken.Symbol,
		PairAddress: best.PairAddress,
		DEX:         best.DexID,
		PriceSOL:    priceSOL,
		PriceUSD:    priceUSD,
		LiquidityUS: best.Liquidity.USD,
	}, nil
}

func bestSOLPair(pairs []dexPair, tokenMint string) (dexPair, bool) {
	var (
		best  dexPair
		found bool
	)
	for _, p := range pairs {
		if p.ChainID != "solana" || p.BaseToken.Address != tokenMint || p.QuoteToken.Address != WrappedSOLMint {
			continue
		}
		if !found || p.Liquidity.USD > best.Liquidity.USD {
			best, found = p, true
		}
	}
	return best, found
}

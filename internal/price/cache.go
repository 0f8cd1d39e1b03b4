// internal/price/cache.go
package price

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

// Source is anything that can price a token in SOL.
type Source interface {
	Price(ctx context.Context, tokenMint string) (decimal.Decimal, error)
}

// Cached shares recent prices between monitors. Concurrent misses for one mint
// result in a single upstream request.
type Cached struct {
	source Source
	ttl    time.Duration
	cache  *cache.Cache
	group  singleflight.Group
}

// NewCached wraps source with a cache of the given TTL. A zero TTL disables caching
// but keeps request de-duplication.
func NewCached(source Source, ttl time.Duration) *Cached {
	cleanup := 2 * ttl
	if cleanup <= 0 {
		cleanup = time.Minute
	}
	return &Cached{
		source: source,
		ttl:    ttl,
		cache:  cache.New(ttl, cleanup),
	}
}

func (c *Cached) Price(ctx context.Context, tokenMint string) (decimal.Decimal, error) {
	if c.ttl > 0 {
		if v, ok := c.cache.Get(tokenMint); ok {
			return v.(decimal.Decimal), nil
		}
	}

	v, err, _ := c.group.Do(tokenMint, func() (interface{}, error) {
		p, err := c.source.Price(ctx, tokenMint)
		if err != nil {
			return nil, err
		}
		if c.ttl > 0 {
			c.cache.Set(tokenMint, p, cache.DefaultExpiration)
		}
		return p, nil
	})
	if err != nil {
		return decimal.Zero, err
	}
	return v.(decimal.Decimal), nil
}

// Invalidate drops the cached price of tokenMint.
func (c *Cached) Invalidate(tokenMint string) {
	c.cache.Delete(tokenMint)
}

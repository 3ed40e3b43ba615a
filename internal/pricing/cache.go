package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/fabrykasoft/pricing-engine/pkg/logger"
	"github.com/fabrykasoft/pricing-engine/pkg/metrics"
	"github.com/fabrykasoft/pricing-engine/pkg/pagination"
	"github.com/fabrykasoft/pricing-engine/pkg/redis"
)

// CachedResolver caches single resolutions in Redis with a TTL. Batch and
// auxiliary reads pass through to the inner resolver.
type CachedResolver struct {
	inner   Resolver
	cache   *redis.Client
	ttl     time.Duration
	metrics *metrics.PricingMetrics
	logg    *logger.Logger
}

// NewCachedResolver wraps a resolver with the Redis cache.
func NewCachedResolver(inner Resolver, cache *redis.Client, ttl time.Duration, pricingMetrics *metrics.PricingMetrics, logg *logger.Logger) (*CachedResolver, error) {
	if inner == nil {
		return nil, fmt.Errorf("inner resolver required")
	}
	if cache == nil {
		return nil, fmt.Errorf("redis client required")
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedResolver{
		inner:   inner,
		cache:   cache,
		ttl:     ttl,
		metrics: pricingMetrics,
		logg:    logg,
	}, nil
}

// Resolve serves from the cache when possible, falling back to the inner
// resolver. Cache failures degrade to uncached resolution.
func (c *CachedResolver) Resolve(ctx context.Context, input ResolveInput) (*ResolvedPrice, error) {
	key := c.cacheKey(input)

	raw, err := c.cache.Get(ctx, key)
	if err == nil {
		var cached ResolvedPrice
		if jsonErr := json.Unmarshal([]byte(raw), &cached); jsonErr == nil {
			c.metrics.IncCache("hit")
			return &cached, nil
		}
		c.metrics.IncCache("error")
	} else if redis.IsMiss(err) {
		c.metrics.IncCache("miss")
	} else {
		c.metrics.IncCache("error")
		if c.logg != nil {
			c.logg.Warn(ctx, "price cache read failed")
		}
	}

	resolved, err := c.inner.Resolve(ctx, input)
	if err != nil {
		return nil, err
	}

	if payload, jsonErr := json.Marshal(resolved); jsonErr == nil {
		if setErr := c.cache.Set(ctx, key, payload, c.ttl); setErr != nil && c.logg != nil {
			c.logg.Warn(ctx, "price cache write failed")
		}
	}
	return resolved, nil
}

// ResolveBatch passes through uncached; batch callers tend to sweep whole
// catalogs where per-key caching churns more than it saves.
func (c *CachedResolver) ResolveBatch(ctx context.Context, inputs []ResolveInput) ([]ResolvedPrice, error) {
	return c.inner.ResolveBatch(ctx, inputs)
}

// ComparePrices passes through uncached.
func (c *CachedResolver) ComparePrices(ctx context.Context, tenantID, productID uuid.UUID, asOf time.Time) ([]PriceComparison, error) {
	return c.inner.ComparePrices(ctx, tenantID, productID, asOf)
}

// PriceHistory passes through uncached.
func (c *CachedResolver) PriceHistory(ctx context.Context, tenantID, productID uuid.UUID, params pagination.Params) (*HistoryResult, error) {
	return c.inner.PriceHistory(ctx, tenantID, productID, params)
}

// Invalidate drops every cached resolution for the tenant.
func (c *CachedResolver) Invalidate(ctx context.Context, tenantID uuid.UUID) error {
	return c.cache.DeleteByPrefix(ctx, c.cache.TenantPricePrefix(tenantID.String()))
}

// cacheKey buckets resolutions by day so date-window changes surface at
// most one day late for cached callers.
func (c *CachedResolver) cacheKey(input ResolveInput) string {
	customer := "-"
	if input.CustomerID != nil {
		customer = input.CustomerID.String()
	}
	table := "-"
	if input.TableID != nil {
		table = input.TableID.String()
	}
	qty := input.Quantity
	if qty <= 0 {
		qty = 1
	}
	asOf := input.AsOf
	if asOf.IsZero() {
		asOf = time.Now()
	}
	return c.cache.PriceKey(
		input.TenantID.String(),
		input.ProductID.String(),
		customer,
		table,
		strconv.Itoa(qty),
		asOf.UTC().Format("2006-01-02"),
	)
}

package geocode

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"tranquiltaiwan/internal/domain/entity"
	"tranquiltaiwan/internal/domain/service/livability"
	"tranquiltaiwan/internal/observability"
)

type kvStore interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// CachedGeocoder keeps successful lookups in Redis. Geocoded addresses are
// effectively immutable, so the TTL is generous. Cache failures fall through
// to the inner geocoder; a broken cache must not break scoring.
type CachedGeocoder struct {
	inner   livability.Geocoder
	store   kvStore
	ttl     time.Duration
	metrics *observability.Metrics
}

func NewCachedGeocoder(inner livability.Geocoder, store kvStore, ttl time.Duration) *CachedGeocoder {
	return &CachedGeocoder{
		inner: inner,
		store: store,
		ttl:   ttl,
	}
}

func (c *CachedGeocoder) WithMetrics(metrics *observability.Metrics) *CachedGeocoder {
	c.metrics = metrics
	return c
}

func (c *CachedGeocoder) Geocode(ctx context.Context, query string) (entity.Address, error) {
	key := "nominatim:geocode:" + query

	var cached entity.Address
	if c.lookup(ctx, key, &cached) {
		return cached, nil
	}

	result, err := c.inner.Geocode(ctx, query)
	if err != nil {
		return result, err
	}

	c.put(ctx, key, result)

	return result, nil
}

func (c *CachedGeocoder) Suggest(ctx context.Context, query string, limit int) ([]entity.Suggestion, error) {
	key := fmt.Sprintf("nominatim:suggest:%d:%s", limit, query)

	var cached []entity.Suggestion
	if c.lookup(ctx, key, &cached) {
		return cached, nil
	}

	result, err := c.inner.Suggest(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	c.put(ctx, key, result)

	return result, nil
}

func (c *CachedGeocoder) lookup(ctx context.Context, key string, out any) bool {
	payload, err := c.store.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger(ctx).Warn("geocode cache get failed", "key", key, "error", err)
		}
		c.observeCache("miss")
		return false
	}

	if err := json.Unmarshal(payload, out); err != nil {
		logger(ctx).Warn("geocode cache entry is corrupt", "key", key, "error", err)
		c.observeCache("miss")
		return false
	}

	c.observeCache("hit")

	return true
}

func (c *CachedGeocoder) put(ctx context.Context, key string, value any) {
	payload, err := json.Marshal(value)
	if err != nil {
		logger(ctx).Warn("geocode cache marshal failed", "key", key, "error", err)
		return
	}

	if err := c.store.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		logger(ctx).Warn("geocode cache set failed", "key", key, "error", err)
	}
}

func (c *CachedGeocoder) observeCache(result string) {
	if c.metrics == nil {
		return
	}

	c.metrics.ProviderCache.WithLabelValues(providerName, result).Inc()
}

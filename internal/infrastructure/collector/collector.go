package collector

import (
	"context"
	"errors"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"tranquiltaiwan/internal/domain/entity"
	"tranquiltaiwan/internal/domain/value"
	"tranquiltaiwan/internal/observability"
	"tranquiltaiwan/pkg/contextx"
)

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

var json = jsoniter.ConfigCompatibleWithStandardLibrary //nolint:gochecknoglobals // skip

type OverpassSource interface {
	Noise(ctx context.Context, loc value.Coordinate) ([]entity.NoiseSource, error)
	Safety(ctx context.Context, loc value.Coordinate) ([]entity.SafetyAmenity, error)
	Convenience(ctx context.Context, loc value.Coordinate) ([]entity.ConvenienceAmenity, error)
	Zoning(ctx context.Context, loc value.Coordinate) ([]entity.ZoneHazard, error)
	TransitStops(ctx context.Context, loc value.Coordinate) ([]entity.TransitStop, error)
}

type AirSource interface {
	Nearest(ctx context.Context, loc value.Coordinate) (*entity.AirQuality, error)
}

type TransitSource interface {
	StopsNear(ctx context.Context, loc value.Coordinate) ([]entity.TransitStop, error)
}

type kvStore interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// TTLs control how long provider responses are reused. Mapped features
// change rarely, air hourly.
type TTLs struct {
	Overpass time.Duration
	Air      time.Duration
	Transit  time.Duration
}

// Collector gathers every environment signal around a coordinate, fanning
// out to the providers concurrently. A provider failure never fails the
// collection: the affected concern is marked degraded and scoring falls
// back to a neutral sub-score. Responses are cached in Redis keyed by the
// coordinate rounded to ~110 m, so neighbors share cache entries.
type Collector struct {
	overpass OverpassSource
	air      AirSource
	transit  TransitSource
	store    kvStore
	ttls     TTLs
	metrics  *observability.Metrics
}

func NewCollector(overpass OverpassSource, air AirSource, transit TransitSource) *Collector {
	return &Collector{
		overpass: overpass,
		air:      air,
		transit:  transit,
	}
}

// WithCache enables the Redis response cache.
func (c *Collector) WithCache(store kvStore, ttls TTLs) *Collector {
	c.store = store
	c.ttls = ttls
	return c
}

func (c *Collector) WithMetrics(metrics *observability.Metrics) *Collector {
	c.metrics = metrics
	return c
}

func (c *Collector) Collect(ctx context.Context, loc value.Coordinate) (entity.Environment, error) {
	env := entity.Environment{Location: loc}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)

	degrade := func(concern value.Concern, err error) {
		logger(ctx).Warn("environment provider failed",
			"concern", string(concern),
			"error", err,
		)
		mu.Lock()
		env.Degraded = append(env.Degraded, concern)
		mu.Unlock()
	}

	g.Go(func() error {
		sources, err := fetchCached(ctx, c, "overpass", "env:noise:"+loc.CacheKey(), c.ttls.Overpass,
			func(ctx context.Context) ([]entity.NoiseSource, error) { return c.overpass.Noise(ctx, loc) })
		if err != nil {
			degrade(value.ConcernNoise, err)
			return nil
		}
		env.Noise = sources
		return nil
	})

	g.Go(func() error {
		amenities, err := fetchCached(ctx, c, "overpass", "env:safety:"+loc.CacheKey(), c.ttls.Overpass,
			func(ctx context.Context) ([]entity.SafetyAmenity, error) { return c.overpass.Safety(ctx, loc) })
		if err != nil {
			degrade(value.ConcernSafety, err)
			return nil
		}
		env.Safety = amenities
		return nil
	})

	g.Go(func() error {
		amenities, err := fetchCached(ctx, c, "overpass", "env:convenience:"+loc.CacheKey(), c.ttls.Overpass,
			func(ctx context.Context) ([]entity.ConvenienceAmenity, error) { return c.overpass.Convenience(ctx, loc) })
		if err != nil {
			degrade(value.ConcernConvenience, err)
			return nil
		}
		env.Convenience = amenities
		return nil
	})

	g.Go(func() error {
		hazards, err := fetchCached(ctx, c, "overpass", "env:zoning:"+loc.CacheKey(), c.ttls.Overpass,
			func(ctx context.Context) ([]entity.ZoneHazard, error) { return c.overpass.Zoning(ctx, loc) })
		if err != nil {
			degrade(value.ConcernZoning, err)
			return nil
		}
		env.Zoning = hazards
		return nil
	})

	g.Go(func() error {
		reading, err := fetchCached(ctx, c, "moenv", "env:air:"+loc.CacheKey(), c.ttls.Air,
			func(ctx context.Context) (*entity.AirQuality, error) { return c.air.Nearest(ctx, loc) })
		if err != nil {
			degrade(value.ConcernAir, err)
			return nil
		}
		env.Air = reading
		return nil
	})

	g.Go(func() error {
		env.Transit = c.collectTransit(ctx, loc)
		return nil
	})

	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return env, err //nolint:wrapcheck
	}

	return env, nil
}

// collectTransit tries TDX first and falls back to OpenStreetMap stops.
// Losing both leaves the transit list empty without degrading convenience;
// the amenity signal still carries that sub-score.
func (c *Collector) collectTransit(ctx context.Context, loc value.Coordinate) []entity.TransitStop {
	stops, err := fetchCached(ctx, c, "tdx", "env:transit:"+loc.CacheKey(), c.ttls.Transit,
		func(ctx context.Context) ([]entity.TransitStop, error) { return c.transit.StopsNear(ctx, loc) })
	if err == nil {
		return stops
	}

	logger(ctx).Warn("tdx unavailable, falling back to map data", "error", err)

	stops, err = fetchCached(ctx, c, "overpass", "env:transit:osm:"+loc.CacheKey(), c.ttls.Overpass,
		func(ctx context.Context) ([]entity.TransitStop, error) { return c.overpass.TransitStops(ctx, loc) })
	if err != nil {
		logger(ctx).Warn("transit fallback failed", "error", err)
		return nil
	}

	return stops
}

// fetchCached serves the value from Redis when present, otherwise fetches
// and stores it. Cache failures degrade to a plain fetch.
func fetchCached[T any](
	ctx context.Context,
	c *Collector,
	provider, key string,
	ttl time.Duration,
	fetch func(context.Context) (T, error),
) (T, error) {
	if c.store != nil {
		payload, err := c.store.Get(ctx, key).Bytes()
		switch {
		case err == nil:
			var cached T
			if err := json.Unmarshal(payload, &cached); err == nil {
				c.observeCache(provider, "hit")
				return cached, nil
			}
			logger(ctx).Warn("environment cache entry is corrupt", "key", key)
		case !errors.Is(err, redis.Nil):
			logger(ctx).Warn("environment cache get failed", "key", key, "error", err)
		}
		c.observeCache(provider, "miss")
	}

	result, err := fetch(ctx)
	if err != nil {
		return result, err
	}

	if c.store != nil {
		payload, err := json.Marshal(result)
		if err == nil {
			if err := c.store.Set(ctx, key, payload, ttl).Err(); err != nil {
				logger(ctx).Warn("environment cache set failed", "key", key, "error", err)
			}
		}
	}

	return result, nil
}

func (c *Collector) observeCache(provider, result string) {
	if c.metrics == nil {
		return
	}

	c.metrics.ProviderCache.WithLabelValues(provider, result).Inc()
}

package overpass

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	jsoniter "github.com/json-iterator/go"

	"tranquiltaiwan/internal/domain"
	"tranquiltaiwan/internal/domain/entity"
	"tranquiltaiwan/internal/domain/value"
	"tranquiltaiwan/internal/observability"
	"tranquiltaiwan/pkg/contextx"
	"tranquiltaiwan/pkg/errcodes"
)

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

var json = jsoniter.ConfigCompatibleWithStandardLibrary //nolint:gochecknoglobals // skip

const providerName = "overpass"

// Client queries the Overpass API for mapped features around a coordinate.
// Public Overpass instances rate-limit aggressively, so the client rotates
// across instances: each attempt of a request goes to the next base URL,
// with a doubling delay between attempts.
type Client struct {
	baseURLs    []string
	httpClient  *http.Client
	maxAttempts int
	retryDelay  time.Duration
	maxDelay    time.Duration
	clock       clockwork.Clock
	metrics     *observability.Metrics

	next atomic.Uint32
}

func NewClient(baseURLs []string, httpClient *http.Client, maxAttempts int, retryDelay, maxDelay time.Duration) *Client {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	return &Client{
		baseURLs:    baseURLs,
		httpClient:  httpClient,
		maxAttempts: maxAttempts,
		retryDelay:  retryDelay,
		maxDelay:    maxDelay,
		clock:       clockwork.NewRealClock(),
	}
}

func (c *Client) WithClock(clock clockwork.Clock) *Client {
	c.clock = clock
	return c
}

func (c *Client) WithMetrics(metrics *observability.Metrics) *Client {
	c.metrics = metrics
	return c
}

func (c *Client) Noise(ctx context.Context, loc value.Coordinate) ([]entity.NoiseSource, error) {
	elements, err := c.run(ctx, noiseQuery(loc))
	if err != nil {
		return nil, err
	}

	sources := make([]entity.NoiseSource, 0, len(elements))
	for _, el := range elements {
		kind, ok := noiseKind(el.Tags)
		if !ok {
			continue
		}
		sources = append(sources, entity.NoiseSource{
			Kind:      kind,
			Name:      el.Tags["name"],
			DistanceM: el.distanceFrom(loc),
		})
	}

	sortByDistance(sources, func(s entity.NoiseSource) float64 { return s.DistanceM })

	return sources, nil
}

func (c *Client) Safety(ctx context.Context, loc value.Coordinate) ([]entity.SafetyAmenity, error) {
	elements, err := c.run(ctx, safetyQuery(loc))
	if err != nil {
		return nil, err
	}

	amenities := make([]entity.SafetyAmenity, 0, len(elements))
	for _, el := range elements {
		kind, ok := safetyKind(el.Tags)
		if !ok {
			continue
		}
		amenities = append(amenities, entity.SafetyAmenity{
			Kind:      kind,
			Name:      el.Tags["name"],
			DistanceM: el.distanceFrom(loc),
		})
	}

	sortByDistance(amenities, func(a entity.SafetyAmenity) float64 { return a.DistanceM })

	return amenities, nil
}

func (c *Client) Convenience(ctx context.Context, loc value.Coordinate) ([]entity.ConvenienceAmenity, error) {
	elements, err := c.run(ctx, convenienceQuery(loc))
	if err != nil {
		return nil, err
	}

	amenities := make([]entity.ConvenienceAmenity, 0, len(elements))
	for _, el := range elements {
		kind, ok := convenienceKind(el.Tags)
		if !ok {
			continue
		}
		amenities = append(amenities, entity.ConvenienceAmenity{
			Kind:      kind,
			Name:      el.Tags["name"],
			DistanceM: el.distanceFrom(loc),
		})
	}

	sortByDistance(amenities, func(a entity.ConvenienceAmenity) float64 { return a.DistanceM })

	return amenities, nil
}

// TransitStops is the fallback transit source for when TDX credentials are
// not configured or TDX is down.
func (c *Client) TransitStops(ctx context.Context, loc value.Coordinate) ([]entity.TransitStop, error) {
	elements, err := c.run(ctx, transitQuery(loc))
	if err != nil {
		return nil, err
	}

	stops := make([]entity.TransitStop, 0, len(elements))
	for _, el := range elements {
		kind, ok := transitKind(el.Tags)
		if !ok {
			continue
		}
		stops = append(stops, entity.TransitStop{
			Kind:      kind,
			Name:      el.Tags["name"],
			DistanceM: el.distanceFrom(loc),
		})
	}

	sortByDistance(stops, func(s entity.TransitStop) float64 { return s.DistanceM })

	return stops, nil
}

func (c *Client) Zoning(ctx context.Context, loc value.Coordinate) ([]entity.ZoneHazard, error) {
	elements, err := c.run(ctx, zoningQuery(loc))
	if err != nil {
		return nil, err
	}

	hazards := make([]entity.ZoneHazard, 0, len(elements))
	for _, el := range elements {
		kind, ok := zoningKind(el.Tags)
		if !ok {
			continue
		}
		hazards = append(hazards, entity.ZoneHazard{
			Kind:      kind,
			Name:      el.Tags["name"],
			DistanceM: el.distanceFrom(loc),
		})
	}

	sortByDistance(hazards, func(h entity.ZoneHazard) float64 { return h.DistanceM })

	return hazards, nil
}

// run posts the query, rotating across instances until one answers.
func (c *Client) run(ctx context.Context, query string) ([]element, error) {
	start := int(c.next.Add(1))
	delay := c.retryDelay

	var lastErr error

	began := time.Now()

	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			if err := c.sleep(ctx, delay); err != nil {
				c.observe(began, "error")
				return nil, err //nolint:wrapcheck
			}
			delay = min(delay*2, c.maxDelay)
		}

		instance := c.baseURLs[(start+attempt)%len(c.baseURLs)]

		elements, err := c.post(ctx, instance, query)
		if err != nil {
			lastErr = err
			logger(ctx).Warn("overpass instance failed",
				"instance", instance,
				"attempt", attempt+1,
				"error", err,
			)
			continue
		}

		c.observe(began, "ok")

		return elements, nil
	}

	c.observe(began, "error")

	return nil, domain.WrapError(lastErr, errcodes.OverpassUnavailable, "all overpass instances failed")
}

func (c *Client) post(ctx context.Context, instance, query string) ([]element, error) {
	form := url.Values{"data": {query}}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, instance, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post query: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, body)
	}

	var decoded response
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return decoded.Elements, nil
}

func (c *Client) sleep(ctx context.Context, d time.Duration) error {
	timer := c.clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.Chan():
		return nil
	}
}

func (c *Client) observe(start time.Time, outcome string) {
	if c.metrics == nil {
		return
	}

	c.metrics.ProviderRequests.WithLabelValues(providerName, outcome).Inc()
	c.metrics.ProviderDuration.WithLabelValues(providerName).Observe(time.Since(start).Seconds())
}

func sortByDistance[T any](items []T, distance func(T) float64) {
	sort.Slice(items, func(i, j int) bool {
		return distance(items[i]) < distance(items[j])
	})
}

// Overpass wire types. Ways and relations carry their centroid in center.

type response struct {
	Elements []element `json:"elements"`
}

type element struct {
	Type   string            `json:"type"`
	ID     int64             `json:"id"`
	Lat    float64           `json:"lat"`
	Lon    float64           `json:"lon"`
	Center *center           `json:"center,omitempty"`
	Tags   map[string]string `json:"tags"`
}

type center struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func (e element) distanceFrom(loc value.Coordinate) float64 {
	lat, lon := e.Lat, e.Lon
	if e.Center != nil {
		lat, lon = e.Center.Lat, e.Center.Lon
	}

	return loc.DistanceM(value.Coordinate{Lat: lat, Lon: lon})
}

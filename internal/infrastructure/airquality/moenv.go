package airquality

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

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

const providerName = "moenv"

// aqx_p_432 is the hourly AQI dataset covering every monitoring station.
const aqiDataset = "aqx_p_432"

// Publish times come without a zone, in Taiwan standard time.
var taiwanTime = time.FixedZone("CST", 8*60*60) //nolint:gochecknoglobals

// Client reads air quality from the Taiwan MOENV open data API. Without an
// API key the client reports itself unavailable and the air sub-score
// degrades to neutral.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	metrics    *observability.Metrics
}

func NewClient(baseURL, apiKey string, httpClient *http.Client) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

func (c *Client) WithMetrics(metrics *observability.Metrics) *Client {
	c.metrics = metrics
	return c
}

// Nearest returns the reading of the monitoring station closest to the
// location. The API has no spatial filter, so the full station list is
// fetched and the distance computed here.
func (c *Client) Nearest(ctx context.Context, loc value.Coordinate) (*entity.AirQuality, error) {
	if c.apiKey == "" {
		return nil, domain.NewError(errcodes.AirDataUnavailable, "moenv api key is not configured")
	}

	records, err := c.fetch(ctx)
	if err != nil {
		return nil, err
	}

	var (
		nearest     *entity.AirQuality
		nearestDist = math.MaxFloat64
	)

	for _, rec := range records {
		reading, dist, ok := rec.toReading(loc)
		if !ok {
			continue
		}

		if dist < nearestDist {
			nearestDist = dist
			nearest = reading
		}
	}

	if nearest == nil {
		return nil, domain.NewError(errcodes.AirDataUnavailable, "no usable station records")
	}

	return nearest, nil
}

func (c *Client) fetch(ctx context.Context) ([]record, error) {
	params := url.Values{
		"api_key": {c.apiKey},
		"limit":   {"1000"},
		"format":  {"JSON"},
	}

	endpoint := fmt.Sprintf("%s/%s?%s", c.baseURL, aqiDataset, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, domain.WrapError(err, errcodes.AirDataUnavailable, "failed to create request")
	}

	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(start, "error")
		return nil, domain.WrapError(err, errcodes.AirDataUnavailable, "air quality request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.observe(start, "error")
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		logger(ctx).Warn("moenv returned non-ok status",
			"status", resp.StatusCode,
			"body", string(body),
		)
		return nil, domain.NewError(errcodes.AirDataUnavailable,
			fmt.Sprintf("moenv status %d", resp.StatusCode))
	}

	var decoded response
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		c.observe(start, "error")
		return nil, domain.WrapError(err, errcodes.AirDataUnavailable, "failed to decode response")
	}

	c.observe(start, "ok")

	return decoded.Records, nil
}

func (c *Client) observe(start time.Time, outcome string) {
	if c.metrics == nil {
		return
	}

	c.metrics.ProviderRequests.WithLabelValues(providerName, outcome).Inc()
	c.metrics.ProviderDuration.WithLabelValues(providerName).Observe(time.Since(start).Seconds())
}

// MOENV wire types. Every field arrives as a string; offline stations have
// empty or dashed values.

type response struct {
	Records []record `json:"records"`
}

type record struct {
	SiteName    string `json:"sitename"`
	County      string `json:"county"`
	AQI         string `json:"aqi"`
	PM25        string `json:"pm2.5"`
	Latitude    string `json:"latitude"`
	Longitude   string `json:"longitude"`
	PublishTime string `json:"publishtime"`
}

func (r record) toReading(loc value.Coordinate) (*entity.AirQuality, float64, bool) {
	lat, latErr := strconv.ParseFloat(r.Latitude, 64)
	lon, lonErr := strconv.ParseFloat(r.Longitude, 64)
	aqi, aqiErr := strconv.Atoi(r.AQI)
	if latErr != nil || lonErr != nil || aqiErr != nil {
		return nil, 0, false
	}

	dist := loc.DistanceM(value.Coordinate{Lat: lat, Lon: lon})

	// PM2.5 may be dashed while the AQI is still published.
	pm25, err := strconv.ParseFloat(r.PM25, 64)
	if err != nil {
		pm25 = 0
	}

	observedAt, err := time.ParseInLocation("2006/01/02 15:04:05", r.PublishTime, taiwanTime)
	if err != nil {
		observedAt = time.Time{}
	}

	return &entity.AirQuality{
		AQI:              aqi,
		PM25:             pm25,
		Station:          r.SiteName,
		StationDistanceM: dist,
		ObservedAt:       observedAt,
	}, dist, true
}

package geocode

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"git.appkode.ru/pub/go/failure"
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

const providerName = "nominatim"

// Client resolves Taiwan addresses with the Nominatim search API. The
// http.Client passed in is expected to carry the rate-limit round tripper;
// Nominatim's usage policy allows one request per second.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	metrics    *observability.Metrics
}

func NewClient(baseURL, userAgent string, httpClient *http.Client) *Client {
	return &Client{
		baseURL:    baseURL,
		userAgent:  userAgent,
		httpClient: httpClient,
	}
}

func (c *Client) WithMetrics(metrics *observability.Metrics) *Client {
	c.metrics = metrics
	return c
}

// Geocode resolves a normalized address to a coordinate with city and
// district details. An empty result set is an unresolvable address, not a
// transport failure.
func (c *Client) Geocode(ctx context.Context, query string) (entity.Address, error) {
	places, err := c.search(ctx, query, 1, true)
	if err != nil {
		return entity.Address{}, err
	}

	if len(places) == 0 {
		return entity.Address{}, failure.NewUnprocessableEntityError(
			fmt.Sprintf("no geocoding results: %q", query),
			failure.WithCode(errcodes.AddressNotResolvable),
			failure.WithDescription("Address could not be resolved to a location in Taiwan"),
		)
	}

	place := places[0]

	lat, err := strconv.ParseFloat(place.Lat, 64)
	if err != nil {
		return entity.Address{}, domain.WrapError(err, errcodes.InvalidCoordinates, "failed to parse latitude")
	}

	lon, err := strconv.ParseFloat(place.Lon, 64)
	if err != nil {
		return entity.Address{}, domain.WrapError(err, errcodes.InvalidCoordinates, "failed to parse longitude")
	}

	return entity.Address{
		DisplayName: place.DisplayName,
		City:        place.Address.city(),
		District:    place.Address.district(),
		Location:    value.Coordinate{Lat: lat, Lon: lon},
	}, nil
}

// Suggest returns up to limit autocomplete candidates for a partial address.
func (c *Client) Suggest(ctx context.Context, query string, limit int) ([]entity.Suggestion, error) {
	places, err := c.search(ctx, query, limit, false)
	if err != nil {
		return nil, err
	}

	suggestions := make([]entity.Suggestion, 0, len(places))
	for _, place := range places {
		lat, latErr := strconv.ParseFloat(place.Lat, 64)
		lon, lonErr := strconv.ParseFloat(place.Lon, 64)
		if latErr != nil || lonErr != nil {
			continue
		}

		suggestions = append(suggestions, entity.Suggestion{
			Label: place.DisplayName,
			Lat:   lat,
			Lon:   lon,
		})
	}

	return suggestions, nil
}

func (c *Client) search(ctx context.Context, query string, limit int, details bool) ([]place, error) {
	params := url.Values{
		"q":               {query},
		"format":          {"jsonv2"},
		"countrycodes":    {"tw"},
		"limit":           {strconv.Itoa(limit)},
		"accept-language": {"zh-TW"},
	}
	if details {
		params.Set("addressdetails", "1")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, domain.WrapError(err, errcodes.GeocoderUnavailable, "failed to create request")
	}

	// Nominatim rejects requests without an identifying User-Agent.
	req.Header.Set("User-Agent", c.userAgent)

	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(start, "error")
		return nil, domain.WrapError(err, errcodes.GeocoderUnavailable, "geocode request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.observe(start, "error")
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		logger(ctx).Warn("nominatim returned non-ok status",
			"status", resp.StatusCode,
			"body", string(body),
		)

		// 429 survives the retry round tripper only when the usage policy
		// has been exceeded for a while.
		code := errcodes.GeocoderUnavailable
		if resp.StatusCode == http.StatusTooManyRequests {
			code = errcodes.ProviderRateLimited
		}
		return nil, domain.NewError(code, fmt.Sprintf("nominatim status %d", resp.StatusCode))
	}

	var places []place
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		c.observe(start, "error")
		return nil, domain.WrapError(err, errcodes.GeocoderUnavailable, "failed to decode response")
	}

	c.observe(start, "ok")

	return places, nil
}

func (c *Client) observe(start time.Time, outcome string) {
	if c.metrics == nil {
		return
	}

	c.metrics.ProviderRequests.WithLabelValues(providerName, outcome).Inc()
	c.metrics.ProviderDuration.WithLabelValues(providerName).Observe(time.Since(start).Seconds())
}

// Nominatim wire types. Coordinates arrive as strings.

type place struct {
	PlaceID     int64        `json:"place_id"`
	Lat         string       `json:"lat"`
	Lon         string       `json:"lon"`
	DisplayName string       `json:"display_name"`
	Address     placeAddress `json:"address"`
}

type placeAddress struct {
	City         string `json:"city"`
	County       string `json:"county"`
	Town         string `json:"town"`
	CityDistrict string `json:"city_district"`
	District     string `json:"district"`
	Suburb       string `json:"suburb"`
}

// city prefers the municipality; counties cover the non-municipal rest of
// the island.
func (a placeAddress) city() string {
	if a.City != "" {
		return a.City
	}
	return a.County
}

func (a placeAddress) district() string {
	for _, candidate := range []string{a.CityDistrict, a.District, a.Suburb, a.Town} {
		if candidate != "" {
			return candidate
		}
	}
	return ""
}

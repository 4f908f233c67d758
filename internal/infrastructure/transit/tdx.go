package transit

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	jsoniter "github.com/json-iterator/go"
	"golang.org/x/sync/errgroup"

	"tranquiltaiwan/internal/domain"
	"tranquiltaiwan/internal/domain/entity"
	"tranquiltaiwan/internal/domain/service/scoring"
	"tranquiltaiwan/internal/domain/value"
	"tranquiltaiwan/internal/observability"
	"tranquiltaiwan/pkg/errcodes"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary //nolint:gochecknoglobals // skip

const providerName = "tdx"

// Client reads nearby transit stops from the TDX basic API. The http.Client
// is expected to carry the bearer-token round tripper fed by Authenticator.
type Client struct {
	baseURL    string
	httpClient *http.Client
	metrics    *observability.Metrics
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
	}
}

func (c *Client) WithMetrics(metrics *observability.Metrics) *Client {
	c.metrics = metrics
	return c
}

// StopsNear returns metro stations, YouBike docks and bus stops within the
// convenience radius, nearest first. The three datasets are fetched
// concurrently.
func (c *Client) StopsNear(ctx context.Context, loc value.Coordinate) ([]entity.TransitStop, error) {
	start := time.Now()

	var (
		metro []entity.TransitStop
		bike  []entity.TransitStop
		bus   []entity.TransitStop
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var stations []metroStation
		if err := c.nearBy(gctx, "/v2/Rail/Metro/Station/NearBy", loc, &stations); err != nil {
			return err
		}
		for _, s := range stations {
			metro = append(metro, stop("metro", s.StationName.ZhTw, loc, s.StationPosition))
		}
		return nil
	})

	g.Go(func() error {
		var stations []bikeStation
		if err := c.nearBy(gctx, "/v2/Bike/Station/NearBy", loc, &stations); err != nil {
			return err
		}
		for _, s := range stations {
			bike = append(bike, stop("youbike", s.StationName.ZhTw, loc, s.StationPosition))
		}
		return nil
	})

	g.Go(func() error {
		var stops []busStop
		if err := c.nearBy(gctx, "/v2/Bus/Stop/NearBy", loc, &stops); err != nil {
			return err
		}
		for _, s := range stops {
			bus = append(bus, stop("bus", s.StopName.ZhTw, loc, s.StopPosition))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		c.observe(start, "error")
		return nil, err
	}

	c.observe(start, "ok")

	stops := make([]entity.TransitStop, 0, len(metro)+len(bike)+len(bus))
	stops = append(stops, metro...)
	stops = append(stops, bike...)
	stops = append(stops, bus...)

	sort.Slice(stops, func(i, j int) bool {
		return stops[i].DistanceM < stops[j].DistanceM
	})

	return stops, nil
}

func (c *Client) nearBy(ctx context.Context, path string, loc value.Coordinate, out any) error {
	params := url.Values{
		"$spatialFilter": {fmt.Sprintf("nearby(%.6f,%.6f,%.0f)", loc.Lat, loc.Lon, scoring.ConvenienceRadiusM)},
		"$format":        {"JSON"},
		"$top":           {"30"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return domain.WrapError(err, errcodes.TransitUnavailable, "failed to create request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.WrapError(err, errcodes.TransitUnavailable, "tdx request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.NewError(errcodes.TransitUnavailable,
			fmt.Sprintf("tdx %s status %d: %s", path, resp.StatusCode, body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return domain.WrapError(err, errcodes.TransitUnavailable, "failed to decode response")
	}

	return nil
}

func (c *Client) observe(start time.Time, outcome string) {
	if c.metrics == nil {
		return
	}

	c.metrics.ProviderRequests.WithLabelValues(providerName, outcome).Inc()
	c.metrics.ProviderDuration.WithLabelValues(providerName).Observe(time.Since(start).Seconds())
}

func stop(kind, name string, loc value.Coordinate, pos position) entity.TransitStop {
	return entity.TransitStop{
		Kind:      kind,
		Name:      name,
		DistanceM: loc.DistanceM(value.Coordinate{Lat: pos.PositionLat, Lon: pos.PositionLon}),
	}
}

// TDX wire types, shared across the rail, bike and bus datasets.

type localizedName struct {
	ZhTw string `json:"Zh_tw"`
}

type position struct {
	PositionLat float64 `json:"PositionLat"`
	PositionLon float64 `json:"PositionLon"`
}

type metroStation struct {
	StationName     localizedName `json:"StationName"`
	StationPosition position      `json:"StationPosition"`
}

type bikeStation struct {
	StationName     localizedName `json:"StationName"`
	StationPosition position      `json:"StationPosition"`
}

type busStop struct {
	StopName     localizedName `json:"StopName"`
	StopPosition position      `json:"StopPosition"`
}

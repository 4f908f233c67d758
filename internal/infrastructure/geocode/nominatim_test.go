package geocode_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"git.appkode.ru/pub/go/failure"
	"github.com/stretchr/testify/require"

	"tranquiltaiwan/internal/domain"
	"tranquiltaiwan/internal/infrastructure/geocode"
	"tranquiltaiwan/pkg/errcodes"
)

const searchResponse = `[
	{
		"place_id": 1111,
		"lat": "25.0415",
		"lon": "121.5435",
		"display_name": "2號, 忠孝東路四段, 大安區, 台北市, 106, 台灣",
		"address": {
			"city": "台北市",
			"city_district": "大安區",
			"road": "忠孝東路四段"
		}
	}
]`

func TestClient_Geocode(t *testing.T) {
	rq := require.New(t)

	var gotQuery, gotAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		gotAgent = r.Header.Get("User-Agent")

		rq.Equal("/search", r.URL.Path)
		rq.Equal("jsonv2", r.URL.Query().Get("format"))
		rq.Equal("tw", r.URL.Query().Get("countrycodes"))
		rq.Equal("1", r.URL.Query().Get("addressdetails"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(searchResponse))
	}))
	defer srv.Close()

	client := geocode.NewClient(srv.URL, "tranquiltaiwan/test", srv.Client())

	addr, err := client.Geocode(context.Background(), "台北市大安區忠孝東路四段2號")
	rq.NoError(err)

	rq.Equal("台北市大安區忠孝東路四段2號", gotQuery)
	rq.Equal("tranquiltaiwan/test", gotAgent)

	rq.Equal("台北市", addr.City)
	rq.Equal("大安區", addr.District)
	rq.InDelta(25.0415, addr.Location.Lat, 1e-9)
	rq.InDelta(121.5435, addr.Location.Lon, 1e-9)
	rq.Contains(addr.DisplayName, "忠孝東路四段")
}

func TestClient_Geocode_CountyFallback(t *testing.T) {
	rq := require.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[
			{
				"place_id": 2,
				"lat": "24.9936",
				"lon": "121.3010",
				"display_name": "中壢區, 桃園市, 台灣",
				"address": {"county": "桃園市", "town": "中壢區"}
			}
		]`))
	}))
	defer srv.Close()

	client := geocode.NewClient(srv.URL, "tranquiltaiwan/test", srv.Client())

	addr, err := client.Geocode(context.Background(), "桃園市中壢區中大路300號")
	rq.NoError(err)
	rq.Equal("桃園市", addr.City)
	rq.Equal("中壢區", addr.District)
}

func TestClient_Geocode_NoResults(t *testing.T) {
	rq := require.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	client := geocode.NewClient(srv.URL, "tranquiltaiwan/test", srv.Client())

	_, err := client.Geocode(context.Background(), "不存在的地址12345")
	rq.Error(err)
	rq.True(failure.IsUnprocessableEntityError(err))
	rq.Equal(errcodes.AddressNotResolvable, failure.Code(err))
}

func TestClient_Geocode_UpstreamError(t *testing.T) {
	rq := require.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := geocode.NewClient(srv.URL, "tranquiltaiwan/test", srv.Client())

	_, err := client.Geocode(context.Background(), "台北市")
	rq.Error(err)
	rq.True(domain.IsAppError(err))

	code, ok := domain.GetCode(err)
	rq.True(ok)
	rq.Equal(errcodes.GeocoderUnavailable, code)
}

func TestClient_Suggest(t *testing.T) {
	rq := require.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rq.Equal("5", r.URL.Query().Get("limit"))
		rq.Empty(r.URL.Query().Get("addressdetails"))

		_, _ = w.Write([]byte(`[
			{"place_id": 1, "lat": "25.04", "lon": "121.54", "display_name": "忠孝東路四段, 大安區, 台北市"},
			{"place_id": 2, "lat": "25.05", "lon": "121.55", "display_name": "忠孝東路五段, 信義區, 台北市"},
			{"place_id": 3, "lat": "bad", "lon": "121.56", "display_name": "broken"}
		]`))
	}))
	defer srv.Close()

	client := geocode.NewClient(srv.URL, "tranquiltaiwan/test", srv.Client())

	suggestions, err := client.Suggest(context.Background(), "忠孝東路", 5)
	rq.NoError(err)

	// The entry with an unparsable coordinate is dropped.
	rq.Len(suggestions, 2)
	rq.Equal("忠孝東路四段, 大安區, 台北市", suggestions[0].Label)
	rq.InDelta(25.04, suggestions[0].Lat, 1e-9)
}

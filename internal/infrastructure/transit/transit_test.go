package transit_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"tranquiltaiwan/internal/domain"
	"tranquiltaiwan/internal/domain/value"
	"tranquiltaiwan/internal/infrastructure/transit"
	"tranquiltaiwan/pkg/errcodes"
	"tranquiltaiwan/pkg/httpx"
)

var origin = value.Coordinate{Lat: 25.0415, Lon: 121.5435}

func TestAuthenticator(t *testing.T) {
	rq := require.New(t)

	var tokenCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenCalls.Add(1)

		rq.NoError(r.ParseForm())
		rq.Equal("client_credentials", r.PostForm.Get("grant_type"))
		rq.Equal("id-1", r.PostForm.Get("client_id"))
		rq.Equal("secret-1", r.PostForm.Get("client_secret"))

		_, _ = w.Write([]byte(`{"access_token": "tok-abc", "expires_in": 86400, "token_type": "Bearer"}`))
	}))
	defer srv.Close()

	clock := clockwork.NewFakeClock()
	auth := transit.NewAuthenticator(srv.URL, "id-1", "secret-1", srv.Client()).WithClock(clock)

	rq.Empty(auth.BearerToken())

	rq.NoError(auth.Authenticate(context.Background()))
	rq.Equal("tok-abc", auth.BearerToken())
	rq.Equal(int32(1), tokenCalls.Load())

	// A second authenticate right after the first reuses the fresh token.
	rq.NoError(auth.Authenticate(context.Background()))
	rq.Equal(int32(1), tokenCalls.Load())

	// Past expiry the cached token is gone and authenticate refreshes.
	clock.Advance(25 * time.Hour)
	rq.Empty(auth.BearerToken())

	rq.NoError(auth.Authenticate(context.Background()))
	rq.Equal("tok-abc", auth.BearerToken())
	rq.Equal(int32(2), tokenCalls.Load())
}

func TestAuthenticator_MissingCredentials(t *testing.T) {
	rq := require.New(t)

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	auth := transit.NewAuthenticator(srv.URL, "", "", srv.Client())

	err := auth.Authenticate(context.Background())
	rq.Error(err)

	code, ok := domain.GetCode(err)
	rq.True(ok)
	rq.Equal(errcodes.TransitUnavailable, code)
	rq.Zero(calls.Load())
}

func TestAuthenticator_BadResponse(t *testing.T) {
	rq := require.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": "invalid_client"}`))
	}))
	defer srv.Close()

	auth := transit.NewAuthenticator(srv.URL, "id-1", "wrong", srv.Client())

	err := auth.Authenticate(context.Background())
	rq.Error(err)
	rq.True(domain.IsAppError(err))
}

func tdxHandler(rq *require.Assertions) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rq.Contains(r.URL.Query().Get("$spatialFilter"), "nearby(25.041500,121.543500,500)")

		switch r.URL.Path {
		case "/v2/Rail/Metro/Station/NearBy":
			_, _ = w.Write([]byte(`[
				{"StationName": {"Zh_tw": "忠孝復興"}, "StationPosition": {"PositionLat": 25.0418, "PositionLon": 121.5435}}
			]`))
		case "/v2/Bike/Station/NearBy":
			_, _ = w.Write([]byte(`[
				{"StationName": {"Zh_tw": "YouBike2.0_忠孝復興站"}, "StationPosition": {"PositionLat": 25.0416, "PositionLon": 121.5435}}
			]`))
		case "/v2/Bus/Stop/NearBy":
			_, _ = w.Write([]byte(`[
				{"StopName": {"Zh_tw": "頂好市場"}, "StopPosition": {"PositionLat": 25.0424, "PositionLon": 121.5435}},
				{"StopName": {"Zh_tw": "捷運忠孝復興站"}, "StopPosition": {"PositionLat": 25.0421, "PositionLon": 121.5435}}
			]`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

func TestClient_StopsNear(t *testing.T) {
	rq := require.New(t)

	srv := httptest.NewServer(tdxHandler(rq))
	defer srv.Close()

	client := transit.NewClient(srv.URL, srv.Client())

	stops, err := client.StopsNear(context.Background(), origin)
	rq.NoError(err)
	rq.Len(stops, 4)

	// Merged across datasets and sorted nearest first.
	rq.Equal("youbike", stops[0].Kind)
	rq.Equal("metro", stops[1].Kind)
	rq.Equal("忠孝復興", stops[1].Name)
	rq.Equal("bus", stops[2].Kind)
	rq.Equal("bus", stops[3].Kind)
}

func TestClient_StopsNear_PartialFailure(t *testing.T) {
	rq := require.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v2/Bus/Stop/NearBy" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	client := transit.NewClient(srv.URL, srv.Client())

	_, err := client.StopsNear(context.Background(), origin)
	rq.Error(err)

	code, ok := domain.GetCode(err)
	rq.True(ok)
	rq.Equal(errcodes.TransitUnavailable, code)
}

func TestClient_RefreshesRevokedToken(t *testing.T) {
	rq := require.New(t)

	var tokens atomic.Int32
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		n := tokens.Add(1)
		_, _ = fmt.Fprintf(w, `{"access_token": "tok-%d", "expires_in": 3600}`, n)
	}))
	defer tokenSrv.Close()

	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer tok-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer apiSrv.Close()

	clock := clockwork.NewFakeClock()
	auth := transit.NewAuthenticator(tokenSrv.URL, "id-1", "secret-1", tokenSrv.Client()).WithClock(clock)
	rq.NoError(auth.Authenticate(context.Background()))

	// The first token is revoked server-side a while after it was minted.
	clock.Advance(time.Minute)

	httpClient := &http.Client{
		Transport: httpx.NewAuthBearerRoundTripper(http.DefaultTransport, auth),
	}
	client := transit.NewClient(apiSrv.URL, httpClient)

	stops, err := client.StopsNear(context.Background(), origin)
	rq.NoError(err)
	rq.Empty(stops)

	// One refresh covers all three concurrent dataset requests.
	rq.Equal(int32(2), tokens.Load())
}

func TestClient_WithBearerRoundTripper(t *testing.T) {
	rq := require.New(t)

	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"access_token": "tok-xyz", "expires_in": 3600}`))
	}))
	defer tokenSrv.Close()

	var gotAuth string
	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer apiSrv.Close()

	auth := transit.NewAuthenticator(tokenSrv.URL, "id-1", "secret-1", tokenSrv.Client())
	httpClient := &http.Client{
		Transport: httpx.NewAuthBearerRoundTripper(http.DefaultTransport, auth),
	}

	client := transit.NewClient(apiSrv.URL, httpClient)

	stops, err := client.StopsNear(context.Background(), origin)
	rq.NoError(err)
	rq.Empty(stops)
	rq.Equal("Bearer tok-xyz", gotAuth)
}

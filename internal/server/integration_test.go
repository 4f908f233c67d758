package server_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"tranquiltaiwan/internal/domain/entity"
	"tranquiltaiwan/internal/server"
	"tranquiltaiwan/pkg/errcodes"
	"tranquiltaiwan/pkg/logx"
	"tranquiltaiwan/pkg/middlewarex"
	"tranquiltaiwan/pkg/rest"
	"tranquiltaiwan/pkg/tests"
)

// startAPI serves the routes behind the same middleware chain the
// application wires, over a real listener.
func startAPI(t *testing.T, score *stubScoreService, report *stubReportService, geocode *stubGeocodeService) tests.APIClient {
	t.Helper()

	masker := logx.NewSensitiveDataMasker()

	router := chi.NewRouter()
	router.Use(middlewarex.TraceID)
	router.Use(middlewarex.Logger)
	router.Use(middlewarex.Recovery)
	router.Use(middlewarex.UserID)
	router.Use(middlewarex.RequestLogging(masker, 2048))
	router.Use(middlewarex.ResponseLogging(masker, 2048))

	server.NewServer(
		server.NewScoreServer(score),
		server.NewReportServer(report),
		server.NewGeocodeServer(geocode),
	).RegisterRoutes(router)

	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)

	return tests.NewAPIClient(ts.URL, ts.Client())
}

func TestAPI_ScoreRoundTrip(t *testing.T) {
	rq := require.New(t)

	svc := &stubScoreService{addr: testAddress(), score: testScore()}
	client := startAPI(t, svc, &stubReportService{}, &stubGeocodeService{})

	var got rest.Score
	resp, err := client.Post(context.Background(), "/api/score", nil,
		rest.ScoreRequest{Address: "台北市大安區和平東路二段106號"}, &got, nil)
	rq.NoError(err)
	rq.Equal(http.StatusOK, resp.StatusCode)
	rq.NotEmpty(resp.Header.Get("X-Trace-Id"))
	rq.Equal(int64(42), got.AddressID)
	rq.InDelta(76.5, got.Total, 0.001)
	rq.Equal("台北市大安區和平東路二段106號", svc.gotAddress)
}

func TestAPI_TraceIDEchoedBack(t *testing.T) {
	rq := require.New(t)

	svc := &stubScoreService{addr: testAddress(), score: testScore()}
	client := startAPI(t, svc, &stubReportService{}, &stubGeocodeService{})

	headers := http.Header{}
	headers.Set("X-Trace-Id", "trace-abc")

	var got rest.Score
	resp, err := client.Get(context.Background(), "/api/score/42", headers, &got, nil)
	rq.NoError(err)
	rq.Equal(http.StatusOK, resp.StatusCode)
	rq.Equal("trace-abc", resp.Header.Get("X-Trace-Id"))
}

func TestAPI_ValidationErrorEnvelope(t *testing.T) {
	rq := require.New(t)

	client := startAPI(t, &stubScoreService{}, &stubReportService{}, &stubGeocodeService{})

	var apiErr rest.Error
	resp, err := client.PostJSON(context.Background(), "/api/score", nil, `{"address":"台北"}`, nil, &apiErr)
	rq.NoError(err)
	rq.Equal(http.StatusBadRequest, resp.StatusCode)
	rq.Equal(rest.ErrorCode(errcodes.ValidationError.String()), apiErr.Code)
	rq.NotEmpty(apiErr.SupportID)
}

func TestAPI_SuggestionsQueryEncoded(t *testing.T) {
	rq := require.New(t)

	geocode := &stubGeocodeService{suggestions: []entity.Suggestion{
		{Label: "和平東路二段, 大安區, 臺北市", Lat: 25.0262, Lon: 121.5435},
	}}
	client := startAPI(t, &stubScoreService{}, &stubReportService{}, geocode)

	query := url.Values{"q": {"和平東路"}}

	var got rest.SuggestionsResponse
	resp, err := client.Get(context.Background(), "/api/geocode/suggestions?"+query.Encode(), nil, &got, nil)
	rq.NoError(err)
	rq.Equal(http.StatusOK, resp.StatusCode)
	rq.Equal("和平東路", geocode.gotTerm)
	rq.Len(got.Suggestions, 1)
	rq.Equal("和平東路二段, 大安區, 臺北市", got.Suggestions[0].Label)
}

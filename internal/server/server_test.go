package server_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"git.appkode.ru/pub/go/failure"
	"github.com/go-chi/chi/v5"
	"github.com/rs/xid"
	"github.com/stretchr/testify/require"

	"tranquiltaiwan/internal/domain"
	"tranquiltaiwan/internal/domain/entity"
	"tranquiltaiwan/internal/domain/value"
	"tranquiltaiwan/internal/server"
	"tranquiltaiwan/pkg/errcodes"
	"tranquiltaiwan/pkg/rest"
)

type stubScoreService struct {
	addr      *entity.Address
	score     *entity.Score
	scoreErr  error
	taskID    string
	recalcErr error

	gotAddress string
	gotRefresh bool
	gotID      int64
}

func (s *stubScoreService) ScoreAddress(_ context.Context, raw string, refresh bool) (*entity.Address, *entity.Score, error) {
	s.gotAddress = raw
	s.gotRefresh = refresh
	if s.scoreErr != nil {
		return nil, nil, s.scoreErr
	}
	return s.addr, s.score, nil
}

func (s *stubScoreService) GetScore(_ context.Context, addressID int64) (*entity.Address, *entity.Score, error) {
	s.gotID = addressID
	if s.scoreErr != nil {
		return nil, nil, s.scoreErr
	}
	return s.addr, s.score, nil
}

func (s *stubScoreService) Recalculate(_ context.Context, addressID int64) (string, error) {
	s.gotID = addressID
	if s.recalcErr != nil {
		return "", s.recalcErr
	}
	return s.taskID, nil
}

type stubReportService struct {
	report *entity.Report
	err    error

	gotAddressID int64
	gotReportID  string
}

func (s *stubReportService) CreateReport(_ context.Context, addressID int64) (*entity.Report, error) {
	s.gotAddressID = addressID
	if s.err != nil {
		return nil, s.err
	}
	return s.report, nil
}

func (s *stubReportService) GetReport(_ context.Context, id string) (*entity.Report, error) {
	s.gotReportID = id
	if s.err != nil {
		return nil, s.err
	}
	return s.report, nil
}

type stubGeocodeService struct {
	suggestions []entity.Suggestion
	err         error

	gotTerm string
}

func (s *stubGeocodeService) Suggestions(_ context.Context, term string) ([]entity.Suggestion, error) {
	s.gotTerm = term
	if s.err != nil {
		return nil, s.err
	}
	return s.suggestions, nil
}

func testAddress() *entity.Address {
	return &entity.Address{
		ID:          42,
		Raw:         "台北市大安區和平東路二段106號",
		Normalized:  "台北市大安區和平東路二段106號",
		DisplayName: "和平東路二段106號, 大安區, 臺北市, 臺灣",
		City:        "臺北市",
		District:    "大安區",
		Location:    value.Coordinate{Lat: 25.0262, Lon: 121.5435},
	}
}

func testScore() *entity.Score {
	return &entity.Score{
		ID:        7,
		AddressID: 42,
		Total:     76.5,
		Breakdown: value.Breakdown{
			SubScores: value.SubScores{Noise: 80, Air: 70, Safety: 75, Convenience: 85, Zoning: 70},
			Factors: []value.Factor{
				{Concern: value.ConcernNoise, Kind: "primary", Name: "和平東路", DistanceM: 120, Delta: -8},
			},
		},
		ComputedAt: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

type routerFixture struct {
	score   *stubScoreService
	reports *stubReportService
	geocode *stubGeocodeService
	router  chi.Router
}

func newRouterFixture() *routerFixture {
	f := &routerFixture{
		score:   &stubScoreService{addr: testAddress(), score: testScore(), taskID: "task-1"},
		reports: &stubReportService{},
		geocode: &stubGeocodeService{},
	}
	f.reports.report = &entity.Report{
		ID:        xid.New().String(),
		AddressID: 42,
		Address:   *testAddress(),
		Score:     *testScore(),
		CreatedAt: time.Date(2025, 3, 1, 12, 30, 0, 0, time.UTC),
	}

	r := chi.NewRouter()
	server.NewServer(
		server.NewScoreServer(f.score),
		server.NewReportServer(f.reports),
		server.NewGeocodeServer(f.geocode),
	).RegisterRoutes(r)
	f.router = r

	return f
}

func (f *routerFixture) perform(method, target, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(method, target, reader))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestPostScore(t *testing.T) {
	rq := require.New(t)
	f := newRouterFixture()

	rec := f.perform(http.MethodPost, "/api/score", `{"address":"台北市大安區和平東路二段106號"}`)

	rq.Equal(http.StatusOK, rec.Code)
	rq.Equal("台北市大安區和平東路二段106號", f.score.gotAddress)
	rq.False(f.score.gotRefresh)

	score := decode[rest.Score](t, rec)
	rq.Equal(int64(42), score.AddressID)
	rq.InDelta(76.5, score.Total, 0.001)
	rq.InDelta(80, score.SubScores.Noise, 0.001)
	rq.Equal("臺北市", score.City)
	rq.Len(score.Factors, 1)
	rq.Equal("noise", score.Factors[0].Category)
}

func TestPostScore_RefreshForwarded(t *testing.T) {
	rq := require.New(t)
	f := newRouterFixture()

	rec := f.perform(http.MethodPost, "/api/score", `{"address":"台北市信義區市府路45號","refresh":true}`)

	rq.Equal(http.StatusOK, rec.Code)
	rq.True(f.score.gotRefresh)
}

func TestPostScore_InvalidJSON(t *testing.T) {
	rq := require.New(t)
	f := newRouterFixture()

	rec := f.perform(http.MethodPost, "/api/score", `{"address":`)

	rq.Equal(http.StatusBadRequest, rec.Code)
	rq.Equal(rest.ErrorCode("ValidationError"), decode[rest.Error](t, rec).Code)
}

func TestPostScore_TooShortAddress(t *testing.T) {
	rq := require.New(t)
	f := newRouterFixture()

	rec := f.perform(http.MethodPost, "/api/score", `{"address":"台北"}`)

	rq.Equal(http.StatusBadRequest, rec.Code)
}

func TestPostScore_GeocoderDownMapsTo503(t *testing.T) {
	rq := require.New(t)
	f := newRouterFixture()
	f.score.scoreErr = domain.NewError(errcodes.GeocoderUnavailable, "nominatim status 502")

	rec := f.perform(http.MethodPost, "/api/score", `{"address":"台北市大安區和平東路二段106號"}`)

	rq.Equal(http.StatusServiceUnavailable, rec.Code)
	rq.Equal(rest.ErrorCode("GeocoderUnavailable"), decode[rest.Error](t, rec).Code)
}

func TestPostScore_UpstreamRateLimitMapsTo429(t *testing.T) {
	rq := require.New(t)
	f := newRouterFixture()
	f.score.scoreErr = domain.NewError(errcodes.ProviderRateLimited, "nominatim status 429")

	rec := f.perform(http.MethodPost, "/api/score", `{"address":"台北市大安區和平東路二段106號"}`)

	rq.Equal(http.StatusTooManyRequests, rec.Code)
}

func TestPostScore_UnresolvableAddressMapsTo422(t *testing.T) {
	rq := require.New(t)
	f := newRouterFixture()
	f.score.scoreErr = failure.NewUnprocessableEntityError(
		"no geocoding results",
		failure.WithCode(errcodes.AddressNotResolvable),
	)

	rec := f.perform(http.MethodPost, "/api/score", `{"address":"火星奧林帕斯山一號"}`)

	rq.Equal(http.StatusUnprocessableEntity, rec.Code)
	rq.Equal(rest.ErrorCode("AddressNotResolvable"), decode[rest.Error](t, rec).Code)
}

func TestGetScore(t *testing.T) {
	rq := require.New(t)
	f := newRouterFixture()

	rec := f.perform(http.MethodGet, "/api/score/42", "")

	rq.Equal(http.StatusOK, rec.Code)
	rq.Equal(int64(42), f.score.gotID)
	rq.Equal("台北市大安區和平東路二段106號", decode[rest.Score](t, rec).NormalizedAddress)
}

func TestGetScore_BadID(t *testing.T) {
	rq := require.New(t)
	f := newRouterFixture()

	rec := f.perform(http.MethodGet, "/api/score/abc", "")

	rq.Equal(http.StatusBadRequest, rec.Code)
	rq.Equal(rest.ErrorCode("InvalidAddressID"), decode[rest.Error](t, rec).Code)
}

func TestGetScore_NotFound(t *testing.T) {
	rq := require.New(t)
	f := newRouterFixture()
	f.score.scoreErr = failure.NewNotFoundError(
		"address not found",
		failure.WithCode(errcodes.AddressNotFound),
	)

	rec := f.perform(http.MethodGet, "/api/score/999", "")

	rq.Equal(http.StatusNotFound, rec.Code)
	rq.Equal(rest.ErrorCode("AddressNotFound"), decode[rest.Error](t, rec).Code)
}

func TestPostScoreRecalculate(t *testing.T) {
	rq := require.New(t)
	f := newRouterFixture()

	rec := f.perform(http.MethodPost, "/api/score/recalculate", `{"addressId":42}`)

	rq.Equal(http.StatusAccepted, rec.Code)
	rq.Equal(int64(42), f.score.gotID)

	resp := decode[rest.RecalculateResponse](t, rec)
	rq.Equal(int64(42), resp.AddressID)
	rq.Equal("task-1", resp.TaskID)
}

func TestPostScoreRecalculate_DuplicateMapsTo409(t *testing.T) {
	rq := require.New(t)
	f := newRouterFixture()
	f.score.recalcErr = failure.NewConflictError(
		"recalculation already queued",
		failure.WithCode(errcodes.RecalcAlreadyQueued),
	)

	rec := f.perform(http.MethodPost, "/api/score/recalculate", `{"addressId":42}`)

	rq.Equal(http.StatusConflict, rec.Code)
	rq.Equal(rest.ErrorCode("RecalcAlreadyQueued"), decode[rest.Error](t, rec).Code)
}

func TestPostScoreRecalculate_MissingAddressID(t *testing.T) {
	rq := require.New(t)
	f := newRouterFixture()

	rec := f.perform(http.MethodPost, "/api/score/recalculate", `{}`)

	rq.Equal(http.StatusBadRequest, rec.Code)
}

func TestPostReport(t *testing.T) {
	rq := require.New(t)
	f := newRouterFixture()

	rec := f.perform(http.MethodPost, "/api/report", `{"addressId":42}`)

	rq.Equal(http.StatusCreated, rec.Code)
	rq.Equal(int64(42), f.reports.gotAddressID)

	report := decode[rest.Report](t, rec)
	rq.Equal(f.reports.report.ID, report.ID)
	rq.InDelta(76.5, report.Score.Total, 0.001)
}

func TestGetReport(t *testing.T) {
	rq := require.New(t)
	f := newRouterFixture()

	rec := f.perform(http.MethodGet, "/api/report/"+f.reports.report.ID, "")

	rq.Equal(http.StatusOK, rec.Code)
	rq.Equal(f.reports.report.ID, f.reports.gotReportID)
}

func TestGetReport_NotFound(t *testing.T) {
	rq := require.New(t)
	f := newRouterFixture()
	f.reports.err = failure.NewNotFoundError(
		"report not found",
		failure.WithCode(errcodes.ReportNotFound),
	)

	rec := f.perform(http.MethodGet, "/api/report/"+xid.New().String(), "")

	rq.Equal(http.StatusNotFound, rec.Code)
	rq.Equal(rest.ErrorCode("ReportNotFound"), decode[rest.Error](t, rec).Code)
}

func TestGetGeocodeSuggestions(t *testing.T) {
	rq := require.New(t)
	f := newRouterFixture()
	f.geocode.suggestions = []entity.Suggestion{
		{Label: "和平東路二段, 大安區, 臺北市", Lat: 25.0262, Lon: 121.5435},
		{Label: "和平東路一段, 大安區, 臺北市", Lat: 25.0266, Lon: 121.5289},
	}

	rec := f.perform(http.MethodGet, "/api/geocode/suggestions?q=和平東路", "")

	rq.Equal(http.StatusOK, rec.Code)
	rq.Equal("和平東路", f.geocode.gotTerm)

	resp := decode[rest.SuggestionsResponse](t, rec)
	rq.Len(resp.Suggestions, 2)
	rq.Equal("和平東路二段, 大安區, 臺北市", resp.Suggestions[0].Label)
}

func TestGetGeocodeSuggestions_EmptyTerm(t *testing.T) {
	rq := require.New(t)
	f := newRouterFixture()
	f.geocode.err = failure.NewInvalidArgumentError(
		"suggestion term is empty",
		failure.WithCode(errcodes.InvalidSuggestionTerm),
	)

	rec := f.perform(http.MethodGet, "/api/geocode/suggestions?q=", "")

	rq.Equal(http.StatusBadRequest, rec.Code)
	rq.Equal(rest.ErrorCode("InvalidSuggestionTerm"), decode[rest.Error](t, rec).Code)
}

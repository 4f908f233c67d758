package server

import (
	"context"
	"net/http"

	"git.appkode.ru/pub/go/failure"
	"github.com/go-chi/chi/v5"

	"tranquiltaiwan/internal/domain"
	"tranquiltaiwan/pkg/errcodes"
	"tranquiltaiwan/pkg/httpx/reply"
)

func (s Server) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Route("/score", func(r chi.Router) {
			r.Post("/", handler(s.postScore))
			r.Post("/recalculate", handler(s.postScoreRecalculate))
			r.Get("/{addressID}", handler(s.getScore))
		})
		r.Route("/report", func(r chi.Router) {
			r.Post("/", handler(s.postReport))
			r.Get("/{id}", handler(s.getReport))
		})
		r.Get("/geocode/suggestions", handler(s.getGeocodeSuggestions))
	})
}

func handler(f func(http.ResponseWriter, *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := f(w, r); err != nil {
			replyError(r.Context(), w, err)
		}
	}
}

// unavailableCodes are domain codes raised when an upstream data provider
// is down. They map to 503 instead of the generic 500.
var unavailableCodes = map[failure.ErrorCode]struct{}{ //nolint:gochecknoglobals
	errcodes.GeocoderUnavailable: {},
	errcodes.OverpassUnavailable: {},
	errcodes.AirDataUnavailable:  {},
	errcodes.TransitUnavailable:  {},
}

func replyError(ctx context.Context, w http.ResponseWriter, err error) {
	if code, ok := domain.GetCode(err); ok {
		if code == errcodes.ProviderRateLimited {
			reply.TooManyRequests(ctx, w, code, err)
			return
		}
		if _, unavailable := unavailableCodes[code]; unavailable {
			reply.ServiceUnavailable(ctx, w, code, err)
			return
		}
	}

	reply.Error(ctx, w, err)
}

package server

import (
	"context"
	"fmt"
	"net/http"

	"tranquiltaiwan/internal/domain/entity"
	"tranquiltaiwan/pkg/httpx/reply"
)

type geocodeService interface {
	Suggestions(ctx context.Context, term string) ([]entity.Suggestion, error)
}

type GeocodeServer struct {
	geocodeService geocodeService
}

func NewGeocodeServer(geocodeService geocodeService) GeocodeServer {
	return GeocodeServer{
		geocodeService: geocodeService,
	}
}

func (s GeocodeServer) getGeocodeSuggestions(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	suggestions, err := s.geocodeService.Suggestions(ctx, r.URL.Query().Get("q"))
	if err != nil {
		return fmt.Errorf("geocodeService.Suggestions: %w", err)
	}

	reply.JSON(ctx, w, http.StatusOK, newRESTSuggestions(suggestions))

	return nil
}

package server

import (
	"github.com/samber/lo"

	"tranquiltaiwan/internal/domain/entity"
	"tranquiltaiwan/internal/domain/value"
	"tranquiltaiwan/pkg/rest"
)

func newRESTScore(addr entity.Address, score entity.Score) rest.Score {
	return rest.Score{
		AddressID:         addr.ID,
		Address:           addr.DisplayName,
		NormalizedAddress: addr.Normalized,
		Lat:               addr.Location.Lat,
		Lon:               addr.Location.Lon,
		City:              addr.City,
		District:          addr.District,
		Total:             score.Total,
		SubScores: rest.SubScores{
			Noise:       score.Breakdown.SubScores.Noise,
			Air:         score.Breakdown.SubScores.Air,
			Safety:      score.Breakdown.SubScores.Safety,
			Convenience: score.Breakdown.SubScores.Convenience,
			Zoning:      score.Breakdown.SubScores.Zoning,
		},
		Factors: lo.Map(score.Breakdown.Factors, func(f value.Factor, _ int) rest.Factor {
			return rest.Factor{
				Category:  string(f.Concern),
				Kind:      f.Kind,
				Name:      f.Name,
				DistanceM: f.DistanceM,
				Delta:     f.Delta,
			}
		}),
		Degraded: lo.Map(score.Breakdown.Degraded, func(c value.Concern, _ int) string {
			return string(c)
		}),
		ComputedAt: score.ComputedAt,
	}
}

func newRESTReport(report entity.Report) rest.Report {
	return rest.Report{
		ID:        report.ID,
		CreatedAt: report.CreatedAt,
		Score:     newRESTScore(report.Address, report.Score),
	}
}

func newRESTSuggestions(suggestions []entity.Suggestion) rest.SuggestionsResponse {
	return rest.SuggestionsResponse{
		Suggestions: lo.Map(suggestions, func(s entity.Suggestion, _ int) rest.Suggestion {
			return rest.Suggestion{
				Label: s.Label,
				Lat:   s.Lat,
				Lon:   s.Lon,
			}
		}),
	}
}

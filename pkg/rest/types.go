// This file mirrors the public OpenAPI description of the service and should
// eventually be generated from it as types.gen.go.
package rest

import "time"

// ScoreRequest asks for a livability score of one street address.
type ScoreRequest struct {
	// Address is the raw street address as the user typed it.
	Address string `json:"address" validate:"required,min=4,max=200"`

	// Refresh forces recomputation even when a fresh score is stored.
	Refresh bool `json:"refresh,omitempty"`
}

// SubScores are the five 0-100 components of the composite score.
type SubScores struct {
	Noise       float64 `json:"noise"`
	Air         float64 `json:"air"`
	Safety      float64 `json:"safety"`
	Convenience float64 `json:"convenience"`
	Zoning      float64 `json:"zoning"`
}

// Factor is one contribution to a sub-score, kept for the report UI.
type Factor struct {
	Category  string  `json:"category"`
	Kind      string  `json:"kind"`
	Name      string  `json:"name,omitempty"`
	DistanceM float64 `json:"distanceM,omitempty"`
	Delta     float64 `json:"delta"`
}

// Score is the computed livability result for an address.
type Score struct {
	AddressID         int64     `json:"addressId"`
	Address           string    `json:"address"`
	NormalizedAddress string    `json:"normalizedAddress"`
	Lat               float64   `json:"lat"`
	Lon               float64   `json:"lon"`
	City              string    `json:"city,omitempty"`
	District          string    `json:"district,omitempty"`
	Total             float64   `json:"total"`
	SubScores         SubScores `json:"subScores"`
	Factors           []Factor  `json:"factors"`
	Degraded          []string  `json:"degraded,omitempty"`
	ComputedAt        time.Time `json:"computedAt"`
}

// RecalculateRequest queues a background refresh of a stored score.
type RecalculateRequest struct {
	AddressID int64 `json:"addressId" validate:"required,gt=0"`
}

// RecalculateResponse acknowledges the queued refresh.
type RecalculateResponse struct {
	AddressID int64  `json:"addressId"`
	TaskID    string `json:"taskId"`
}

// ReportRequest creates a shareable report for an already scored address.
type ReportRequest struct {
	AddressID int64 `json:"addressId" validate:"required,gt=0"`
}

// Report is a shareable snapshot of a score.
type Report struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	Score     Score     `json:"score"`
}

// Suggestion is one geocoder autocomplete candidate.
type Suggestion struct {
	Label string  `json:"label"`
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
}

// SuggestionsResponse lists autocomplete candidates for a partial address.
type SuggestionsResponse struct {
	Suggestions []Suggestion `json:"suggestions"`
}

// Error is the error envelope returned by every endpoint.
type Error struct {
	// Code is a stable machine-readable error code.
	Code ErrorCode `json:"code"`

	// Message is a human-readable description (surfaced in the UI).
	Message string `json:"message"`

	// SupportID correlates the response with server-side logs.
	SupportID string `json:"supportId,omitempty"`
}

// ErrorCode is a stable machine-readable error code.
type ErrorCode string

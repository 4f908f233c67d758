package entity

import (
	"time"

	"tranquiltaiwan/internal/domain/value"
)

// NoiseSource is a mapped feature that produces noise: arterial roads,
// railways, airfields, nightlife venues, temples, construction sites.
type NoiseSource struct {
	Kind      string  `json:"kind"`
	Name      string  `json:"name,omitempty"`
	DistanceM float64 `json:"distance_m"`
}

type SafetyAmenity struct {
	Kind      string  `json:"kind"`
	Name      string  `json:"name,omitempty"`
	DistanceM float64 `json:"distance_m"`
}

type ConvenienceAmenity struct {
	Kind      string  `json:"kind"`
	Name      string  `json:"name,omitempty"`
	DistanceM float64 `json:"distance_m"`
}

type ZoneHazard struct {
	Kind      string  `json:"kind"`
	Name      string  `json:"name,omitempty"`
	DistanceM float64 `json:"distance_m"`
}

type TransitStop struct {
	Kind      string  `json:"kind"`
	Name      string  `json:"name,omitempty"`
	DistanceM float64 `json:"distance_m"`
}

type AirQuality struct {
	AQI              int       `json:"aqi"`
	PM25             float64   `json:"pm25"`
	Station          string    `json:"station"`
	StationDistanceM float64   `json:"station_distance_m"`
	ObservedAt       time.Time `json:"observed_at"`
}

// Environment aggregates every signal collected around one coordinate.
// A provider failure leaves its slice empty (or Air nil) and adds the
// affected concern to Degraded; scoring substitutes a neutral sub-score.
type Environment struct {
	Location    value.Coordinate     `json:"location"`
	Noise       []NoiseSource        `json:"noise"`
	Safety      []SafetyAmenity      `json:"safety"`
	Convenience []ConvenienceAmenity `json:"convenience"`
	Zoning      []ZoneHazard         `json:"zoning"`
	Transit     []TransitStop        `json:"transit"`
	Air         *AirQuality          `json:"air,omitempty"`
	Degraded    []value.Concern      `json:"degraded,omitempty"`
}

// IsDegraded reports whether the given concern had a provider failure.
func (e Environment) IsDegraded(concern value.Concern) bool {
	for _, c := range e.Degraded {
		if c == concern {
			return true
		}
	}
	return false
}

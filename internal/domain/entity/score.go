package entity

import (
	"time"

	"tranquiltaiwan/internal/domain/value"
)

type Score struct {
	ID         int64           `json:"id"`
	AddressID  int64           `json:"address_id"`
	Total      float64         `json:"total"`
	Breakdown  value.Breakdown `json:"breakdown"`
	ComputedAt time.Time       `json:"computed_at"`
}

// Fresh reports whether the score is younger than ttl at the given moment.
func (s Score) Fresh(now time.Time, ttl time.Duration) bool {
	return now.Sub(s.ComputedAt) < ttl
}

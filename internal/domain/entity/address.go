package entity

import (
	"time"

	"tranquiltaiwan/internal/domain/value"
)

type Address struct {
	ID          int64            `json:"id"`
	Raw         string           `json:"raw"`
	Normalized  string           `json:"normalized"`
	DisplayName string           `json:"display_name"`
	City        string           `json:"city"`
	District    string           `json:"district"`
	Location    value.Coordinate `json:"location"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

package entity

import "time"

// Report is a shareable snapshot of a score. Address and Score are copied at
// creation time so the report stays stable after recalculations.
type Report struct {
	ID        string    `json:"id"`
	AddressID int64     `json:"address_id"`
	UserID    *int64    `json:"user_id,omitempty"`
	Address   Address   `json:"address"`
	Score     Score     `json:"score"`
	CreatedAt time.Time `json:"created_at"`
}

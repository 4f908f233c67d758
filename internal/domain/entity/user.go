package entity

import "time"

// User is auto-provisioned from the X-User-Id request header on first sight.
type User struct {
	ID         int64     `json:"id"`
	ExternalID string    `json:"external_id"`
	CreatedAt  time.Time `json:"created_at"`
}

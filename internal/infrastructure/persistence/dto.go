package persistence

import (
	"encoding/json"
	"time"

	"tranquiltaiwan/internal/domain/entity"
	"tranquiltaiwan/internal/domain/value"
)

type addressSchema struct {
	ID          int64     `db:"id"`
	Raw         string    `db:"raw"`
	Normalized  string    `db:"normalized"`
	DisplayName string    `db:"display_name"`
	City        string    `db:"city"`
	District    string    `db:"district"`
	Lat         float64   `db:"lat"`
	Lon         float64   `db:"lon"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (s *addressSchema) toDomain() *entity.Address {
	return &entity.Address{
		ID:          s.ID,
		Raw:         s.Raw,
		Normalized:  s.Normalized,
		DisplayName: s.DisplayName,
		City:        s.City,
		District:    s.District,
		Location:    value.Coordinate{Lat: s.Lat, Lon: s.Lon},
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

type scoreSchema struct {
	ID         int64     `db:"id"`
	AddressID  int64     `db:"address_id"`
	Total      float64   `db:"total"`
	Breakdown  []byte    `db:"breakdown"`
	ComputedAt time.Time `db:"computed_at"`
}

func (s *scoreSchema) toDomain() (*entity.Score, error) {
	breakdown, err := s.parseBreakdown()
	if err != nil {
		return nil, err
	}

	return &entity.Score{
		ID:         s.ID,
		AddressID:  s.AddressID,
		Total:      s.Total,
		Breakdown:  breakdown,
		ComputedAt: s.ComputedAt,
	}, nil
}

func (s *scoreSchema) parseBreakdown() (value.Breakdown, error) {
	var breakdown value.Breakdown
	if len(s.Breakdown) > 0 {
		if err := json.Unmarshal(s.Breakdown, &breakdown); err != nil {
			return breakdown, err
		}
	}
	return breakdown, nil
}

// reportSchema stores the address and score snapshots as JSONB so reports
// survive later recalculations untouched.
type reportSchema struct {
	ID        string    `db:"id"`
	AddressID int64     `db:"address_id"`
	UserID    *int64    `db:"user_id"`
	Address   []byte    `db:"address"`
	Score     []byte    `db:"score"`
	CreatedAt time.Time `db:"created_at"`
}

func (s *reportSchema) toDomain() (*entity.Report, error) {
	report := &entity.Report{
		ID:        s.ID,
		AddressID: s.AddressID,
		UserID:    s.UserID,
		CreatedAt: s.CreatedAt,
	}

	if err := json.Unmarshal(s.Address, &report.Address); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(s.Score, &report.Score); err != nil {
		return nil, err
	}

	return report, nil
}

type userSchema struct {
	ID         int64     `db:"id"`
	ExternalID string    `db:"external_id"`
	CreatedAt  time.Time `db:"created_at"`
}

func (s *userSchema) toDomain() *entity.User {
	return &entity.User{
		ID:         s.ID,
		ExternalID: s.ExternalID,
		CreatedAt:  s.CreatedAt,
	}
}

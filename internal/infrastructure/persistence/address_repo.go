package persistence

import (
	"context"
	"database/sql"
	"errors"

	"git.appkode.ru/pub/go/failure"
	"github.com/jmoiron/sqlx"

	"tranquiltaiwan/internal/domain"
	"tranquiltaiwan/internal/domain/entity"
	"tranquiltaiwan/pkg/errcodes"
)

type AddressRepository struct {
	db *sqlx.DB
}

func NewAddressRepository(db *sqlx.DB) *AddressRepository {
	return &AddressRepository{db: db}
}

// Create inserts the address and backfills the generated id and timestamps.
// The normalized form is unique; a concurrent insert of the same address
// resolves to the already stored row.
func (r *AddressRepository) Create(ctx context.Context, address *entity.Address) error {
	query := `
		INSERT INTO addresses (raw, normalized, display_name, city, district, lat, lon)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (normalized) DO UPDATE SET updated_at = NOW()
		RETURNING id, created_at, updated_at`

	var schema addressSchema
	err := r.db.GetContext(ctx, &schema, query,
		address.Raw,
		address.Normalized,
		address.DisplayName,
		address.City,
		address.District,
		address.Location.Lat,
		address.Location.Lon,
	)
	if err != nil {
		return domain.WrapError(err, errcodes.InternalServerError, "failed to insert address")
	}

	address.ID = schema.ID
	address.CreatedAt = schema.CreatedAt
	address.UpdatedAt = schema.UpdatedAt

	return nil
}

func (r *AddressRepository) GetByID(ctx context.Context, id int64) (*entity.Address, error) {
	query := `
		SELECT id, raw, normalized, display_name, city, district, lat, lon, created_at, updated_at
		FROM addresses
		WHERE id = $1`

	var schema addressSchema
	if err := r.db.GetContext(ctx, &schema, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, failure.NewNotFoundError("address not found", failure.WithCode(errcodes.AddressNotFound))
		}
		return nil, domain.WrapError(err, errcodes.InternalServerError, "failed to get address")
	}

	return schema.toDomain(), nil
}

func (r *AddressRepository) GetByNormalized(ctx context.Context, normalized string) (*entity.Address, error) {
	query := `
		SELECT id, raw, normalized, display_name, city, district, lat, lon, created_at, updated_at
		FROM addresses
		WHERE normalized = $1`

	var schema addressSchema
	if err := r.db.GetContext(ctx, &schema, query, normalized); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, failure.NewNotFoundError("address not found", failure.WithCode(errcodes.AddressNotFound))
		}
		return nil, domain.WrapError(err, errcodes.InternalServerError, "failed to get address")
	}

	return schema.toDomain(), nil
}

package persistence

import (
	"context"

	"github.com/jmoiron/sqlx"

	"tranquiltaiwan/internal/domain"
	"tranquiltaiwan/internal/domain/entity"
	"tranquiltaiwan/pkg/errcodes"
)

type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetOrCreate provisions a user for the external id on first sight. The
// no-op DO UPDATE makes RETURNING yield the row on conflict as well.
func (r *UserRepository) GetOrCreate(ctx context.Context, externalID string) (*entity.User, error) {
	query := `
		INSERT INTO users (external_id)
		VALUES ($1)
		ON CONFLICT (external_id) DO UPDATE SET external_id = EXCLUDED.external_id
		RETURNING id, external_id, created_at`

	var schema userSchema
	if err := r.db.GetContext(ctx, &schema, query, externalID); err != nil {
		return nil, domain.WrapError(err, errcodes.InternalServerError, "failed to get or create user")
	}

	return schema.toDomain(), nil
}

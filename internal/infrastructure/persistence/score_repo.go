package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"git.appkode.ru/pub/go/failure"
	"github.com/jmoiron/sqlx"

	"tranquiltaiwan/internal/domain"
	"tranquiltaiwan/internal/domain/entity"
	"tranquiltaiwan/pkg/errcodes"
	"tranquiltaiwan/pkg/lox"
)

type ScoreRepository struct {
	db *sqlx.DB
}

func NewScoreRepository(db *sqlx.DB) *ScoreRepository {
	return &ScoreRepository{db: db}
}

// Upsert stores the score, replacing any previous one for the address.
func (r *ScoreRepository) Upsert(ctx context.Context, score *entity.Score) error {
	breakdown, err := json.Marshal(score.Breakdown)
	if err != nil {
		return domain.WrapError(err, errcodes.InternalServerError, "failed to marshal breakdown")
	}

	query := `
		INSERT INTO livability_scores (address_id, total, breakdown, computed_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (address_id) DO UPDATE
		SET total = EXCLUDED.total,
		    breakdown = EXCLUDED.breakdown,
		    computed_at = EXCLUDED.computed_at
		RETURNING id`

	var id int64
	if err := r.db.GetContext(ctx, &id, query, score.AddressID, score.Total, breakdown, score.ComputedAt); err != nil {
		return domain.WrapError(err, errcodes.InternalServerError, "failed to upsert score")
	}

	score.ID = id

	return nil
}

func (r *ScoreRepository) GetByAddressID(ctx context.Context, addressID int64) (*entity.Score, error) {
	query := `
		SELECT id, address_id, total, breakdown, computed_at
		FROM livability_scores
		WHERE address_id = $1`

	var schema scoreSchema
	if err := r.db.GetContext(ctx, &schema, query, addressID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, failure.NewNotFoundError("score not found", failure.WithCode(errcodes.ScoreNotFound))
		}
		return nil, domain.WrapError(err, errcodes.InternalServerError, "failed to get score")
	}

	score, err := schema.toDomain()
	if err != nil {
		return nil, domain.WrapError(err, errcodes.InternalServerError, "failed to parse breakdown")
	}

	return score, nil
}

// ListStale returns the oldest scores computed before the cutoff, bounded by
// limit. Used by the refresh sweep.
func (r *ScoreRepository) ListStale(ctx context.Context, olderThan time.Time, limit int) ([]entity.Score, error) {
	query := `
		SELECT id, address_id, total, breakdown, computed_at
		FROM livability_scores
		WHERE computed_at < $1
		ORDER BY computed_at ASC
		LIMIT $2`

	var schemas []scoreSchema
	if err := r.db.SelectContext(ctx, &schemas, query, olderThan, limit); err != nil {
		return nil, domain.WrapError(err, errcodes.InternalServerError, "failed to list stale scores")
	}

	scores, err := lox.MapErr(schemas, func(s scoreSchema) (entity.Score, error) {
		score, err := s.toDomain()
		if err != nil {
			return entity.Score{}, err
		}
		return *score, nil
	})
	if err != nil {
		return nil, domain.WrapError(err, errcodes.InternalServerError, "failed to parse breakdown")
	}

	return scores, nil
}

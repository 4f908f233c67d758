package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"git.appkode.ru/pub/go/failure"
	"github.com/jmoiron/sqlx"

	"tranquiltaiwan/internal/domain"
	"tranquiltaiwan/internal/domain/entity"
	"tranquiltaiwan/pkg/errcodes"
)

type ReportRepository struct {
	db *sqlx.DB
}

func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

func (r *ReportRepository) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return domain.WrapError(err, errcodes.InternalServerError, "failed to begin transaction")
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return domain.WrapError(
				fmt.Errorf("%w; rollback: %v", err, rbErr),
				errcodes.InternalServerError,
				"transaction failed",
			)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return domain.WrapError(err, errcodes.InternalServerError, "failed to commit")
	}

	return nil
}

// Create stores the report with its address and score snapshots.
func (r *ReportRepository) Create(ctx context.Context, report *entity.Report) error {
	addressSnapshot, err := json.Marshal(report.Address)
	if err != nil {
		return domain.WrapError(err, errcodes.InternalServerError, "failed to marshal address snapshot")
	}

	scoreSnapshot, err := json.Marshal(report.Score)
	if err != nil {
		return domain.WrapError(err, errcodes.InternalServerError, "failed to marshal score snapshot")
	}

	return r.withTx(ctx, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO reports (id, address_id, user_id, address, score, created_at)
			VALUES (:id, :address_id, :user_id, :address, :score, :created_at)`

		params := map[string]any{
			"id":         report.ID,
			"address_id": report.AddressID,
			"user_id":    report.UserID,
			"address":    addressSnapshot,
			"score":      scoreSnapshot,
			"created_at": report.CreatedAt,
		}

		if _, err := tx.NamedExecContext(ctx, query, params); err != nil {
			return domain.WrapError(err, errcodes.InternalServerError, "failed to insert report")
		}

		return nil
	})
}

func (r *ReportRepository) GetByID(ctx context.Context, id string) (*entity.Report, error) {
	query := `
		SELECT id, address_id, user_id, address, score, created_at
		FROM reports
		WHERE id = $1`

	var schema reportSchema
	if err := r.db.GetContext(ctx, &schema, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, failure.NewNotFoundError("report not found", failure.WithCode(errcodes.ReportNotFound))
		}
		return nil, domain.WrapError(err, errcodes.InternalServerError, "failed to get report")
	}

	report, err := schema.toDomain()
	if err != nil {
		return nil, domain.WrapError(err, errcodes.InternalServerError, "failed to parse report snapshots")
	}

	return report, nil
}

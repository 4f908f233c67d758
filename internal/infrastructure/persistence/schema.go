package persistence

import (
	"context"

	"github.com/jmoiron/sqlx"

	"tranquiltaiwan/internal/domain"
	"tranquiltaiwan/pkg/errcodes"
)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS addresses (
	id           BIGSERIAL PRIMARY KEY,
	raw          TEXT NOT NULL,
	normalized   TEXT NOT NULL UNIQUE,
	display_name TEXT NOT NULL DEFAULT '',
	city         TEXT NOT NULL DEFAULT '',
	district     TEXT NOT NULL DEFAULT '',
	lat          DOUBLE PRECISION NOT NULL,
	lon          DOUBLE PRECISION NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS livability_scores (
	id          BIGSERIAL PRIMARY KEY,
	address_id  BIGINT NOT NULL UNIQUE REFERENCES addresses (id) ON DELETE CASCADE,
	total       DOUBLE PRECISION NOT NULL,
	breakdown   JSONB NOT NULL DEFAULT '{}',
	computed_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_livability_scores_computed_at ON livability_scores (computed_at);

CREATE TABLE IF NOT EXISTS users (
	id          BIGSERIAL PRIMARY KEY,
	external_id TEXT NOT NULL UNIQUE,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS reports (
	id         TEXT PRIMARY KEY,
	address_id BIGINT NOT NULL REFERENCES addresses (id) ON DELETE CASCADE,
	user_id    BIGINT REFERENCES users (id) ON DELETE SET NULL,
	address    JSONB NOT NULL,
	score      JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_reports_address_id ON reports (address_id);
`

// Bootstrap creates the tables on startup. The schema is small enough that
// CREATE IF NOT EXISTS keeps the service self-contained without a migration
// tool.
func Bootstrap(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, schemaDDL); err != nil {
		return domain.WrapError(err, errcodes.InternalServerError, "failed to bootstrap schema")
	}

	return nil
}

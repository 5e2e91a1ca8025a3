package ledger

import (
	"context"
	"fmt"
)

var sqliteSchema = []string{
	`PRAGMA foreign_keys = ON`,
	`CREATE TABLE IF NOT EXISTS canonical_products (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		name       TEXT NOT NULL,
		brand      TEXT,
		capacity   INTEGER,
		inverter   BOOLEAN NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_canonical_capacity ON canonical_products (capacity)`,
	`CREATE TABLE IF NOT EXISTS source_listings (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		source       TEXT NOT NULL,
		title        TEXT NOT NULL,
		capacity     INTEGER,
		inverter     BOOLEAN NOT NULL DEFAULT 0,
		canonical_id INTEGER REFERENCES canonical_products (id),
		created_at   TIMESTAMP NOT NULL,
		UNIQUE (source, title)
	)`,
	`CREATE TABLE IF NOT EXISTS pending_suggestions (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		listing_id   INTEGER NOT NULL UNIQUE REFERENCES source_listings (id),
		canonical_id INTEGER NOT NULL REFERENCES canonical_products (id),
		score        INTEGER NOT NULL CHECK (score BETWEEN 0 AND 100),
		created_at   TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS price_observations (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		listing_id  INTEGER NOT NULL REFERENCES source_listings (id),
		price       REAL NOT NULL CHECK (price >= 0),
		in_stock    BOOLEAN NOT NULL DEFAULT 1,
		observed_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_price_listing ON price_observations (listing_id, observed_at)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS canonical_products (
		id         BIGSERIAL PRIMARY KEY,
		name       TEXT NOT NULL,
		brand      TEXT,
		capacity   INTEGER,
		inverter   BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_canonical_capacity ON canonical_products (capacity)`,
	`CREATE TABLE IF NOT EXISTS source_listings (
		id           BIGSERIAL PRIMARY KEY,
		source       TEXT NOT NULL,
		title        TEXT NOT NULL,
		capacity     INTEGER,
		inverter     BOOLEAN NOT NULL DEFAULT FALSE,
		canonical_id BIGINT REFERENCES canonical_products (id),
		created_at   TIMESTAMPTZ NOT NULL,
		UNIQUE (source, title)
	)`,
	`CREATE TABLE IF NOT EXISTS pending_suggestions (
		id           BIGSERIAL PRIMARY KEY,
		listing_id   BIGINT NOT NULL UNIQUE REFERENCES source_listings (id),
		canonical_id BIGINT NOT NULL REFERENCES canonical_products (id),
		score        INTEGER NOT NULL CHECK (score BETWEEN 0 AND 100),
		created_at   TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS price_observations (
		id          BIGSERIAL PRIMARY KEY,
		listing_id  BIGINT NOT NULL REFERENCES source_listings (id),
		price       DOUBLE PRECISION NOT NULL CHECK (price >= 0),
		in_stock    BOOLEAN NOT NULL DEFAULT TRUE,
		observed_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_price_listing ON price_observations (listing_id, observed_at)`,
}

// Migrate creates missing tables. Statements are idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	stmts := sqliteSchema
	if s.db.DriverName() == DriverPostgres {
		stmts = postgresSchema
	}
	for _, q := range stmts {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	s.log.Debug().Str("driver", s.db.DriverName()).Int("statements", len(stmts)).Msg("schema ready")
	return nil
}

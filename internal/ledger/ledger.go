// Package ledger is the durable record of canonical products, source
// listings, pending suggestions and price observations.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrAlreadyLinked = errors.New("listing already linked")
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Store provides SQL backed persistence for the mapping ledger.
type Store struct {
	db  *sqlx.DB
	log zerolog.Logger
	now func() time.Time
}

// Open connects, applies the schema and returns a ready store.
func Open(ctx context.Context, driver, dsn string, logger zerolog.Logger) (*Store, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported ledger driver %q", driver)
	}
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		// one writer; also keeps a :memory: database alive across calls
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	s := New(db, logger)
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an open connection without touching the schema.
func New(db *sqlx.DB, logger zerolog.Logger) *Store {
	return &Store{
		db:  db,
		log: logger.With().Str("component", "ledger").Logger(),
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) DB() *sqlx.DB { return s.db }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// WithTx runs fn inside one transaction. Any error from fn or from commit
// discards every change fn made; the error is returned to the caller.
func (s *Store) WithTx(ctx context.Context, fn func(context.Context, *Tx) error) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(ctx, &Tx{tx: tx, now: s.now}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.log.Error().Err(rbErr).Msg("rollback failed")
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

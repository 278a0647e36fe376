// Package store persists computed lists in a relational database. The same
// schema runs on PostgreSQL (lib/pq) and SQLite (mattn/go-sqlite3).
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/internal/availability/ranker"
	"github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/internal/corpus"
	apperrors "github.com/Adithya-Monish-Kumar-K/Lexical-Availability-Platform/pkg/errors"
)

// Dialect names the SQL flavour of the connection.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite3"
)

var schemas = map[Dialect][]string{
	Postgres: {
		`CREATE TABLE IF NOT EXISTS idlv_runs (
			id            BIGSERIAL PRIMARY KEY,
			category      TEXT NOT NULL,
			resolution    INTEGER NOT NULL,
			normalization TEXT NOT NULL,
			max_features  INTEGER,
			samples       INTEGER NOT NULL,
			vocabulary    INTEGER NOT NULL,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idlv_runs_category_idx ON idlv_runs (category, created_at DESC)`,
		`CREATE TABLE IF NOT EXISTS idlv_entries (
			run_id BIGINT NOT NULL REFERENCES idlv_runs(id) ON DELETE CASCADE,
			rank   INTEGER NOT NULL,
			token  TEXT NOT NULL,
			score  DOUBLE PRECISION NOT NULL,
			PRIMARY KEY (run_id, rank)
		)`,
	},
	SQLite: {
		`CREATE TABLE IF NOT EXISTS idlv_runs (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			category      TEXT NOT NULL,
			resolution    INTEGER NOT NULL,
			normalization TEXT NOT NULL,
			max_features  INTEGER,
			samples       INTEGER NOT NULL,
			vocabulary    INTEGER NOT NULL,
			created_at    TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idlv_runs_category_idx ON idlv_runs (category, created_at DESC)`,
		`CREATE TABLE IF NOT EXISTS idlv_entries (
			run_id INTEGER NOT NULL REFERENCES idlv_runs(id) ON DELETE CASCADE,
			rank   INTEGER NOT NULL,
			token  TEXT NOT NULL,
			score  REAL NOT NULL,
			PRIMARY KEY (run_id, rank)
		)`,
	},
}

// Run is a persisted list with its metadata.
type Run struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	corpus.Listing
}

// Store reads and writes runs. It implements corpus.Sink.
type Store struct {
	db      *sql.DB
	dialect Dialect
	logger  *slog.Logger
	now     func() time.Time
}

func New(db *sql.DB, dialect Dialect) (*Store, error) {
	if _, ok := schemas[dialect]; !ok {
		return nil, fmt.Errorf("unsupported dialect %q", dialect)
	}
	return &Store{
		db:      db,
		dialect: dialect,
		logger:  slog.Default().With("component", "list-store", "dialect", string(dialect)),
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

// Migrate creates the tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schemas[s.dialect] {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("applying schema: %w", err)
		}
	}
	return nil
}

// Write stores a listing and all of its entries in one transaction.
func (s *Store) Write(ctx context.Context, listing corpus.Listing) error {
	_, err := s.Save(ctx, listing)
	return err
}

// Save is Write returning the new run ID.
func (s *Store) Save(ctx context.Context, listing corpus.Listing) (int64, error) {
	var runID int64
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var maxFeatures sql.NullInt64
		if listing.MaxFeatures != nil {
			maxFeatures = sql.NullInt64{Int64: int64(*listing.MaxFeatures), Valid: true}
		}
		err := tx.QueryRowContext(ctx,
			`INSERT INTO idlv_runs (category, resolution, normalization, max_features, samples, vocabulary, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
			listing.Category, listing.Resolution, listing.Normalization, maxFeatures,
			listing.Samples, listing.Vocabulary, s.now(),
		).Scan(&runID)
		if err != nil {
			return fmt.Errorf("inserting run: %w", err)
		}
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO idlv_entries (run_id, rank, token, score) VALUES ($1, $2, $3, $4)`)
		if err != nil {
			return fmt.Errorf("preparing entry insert: %w", err)
		}
		defer stmt.Close()
		for rank, e := range listing.List {
			if _, err := stmt.ExecContext(ctx, runID, rank+1, e.Token, e.Score); err != nil {
				return fmt.Errorf("inserting entry %q: %w", e.Token, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.logger.Info("list persisted",
		"category", listing.Category,
		"run_id", runID,
		"entries", len(listing.List),
	)
	return runID, nil
}

// Latest loads the most recent run of a category. It returns
// ErrCategoryNotFound when the category has never been stored.
func (s *Store) Latest(ctx context.Context, category string) (*Run, error) {
	run := &Run{}
	var maxFeatures sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, category, resolution, normalization, max_features, samples, vocabulary, created_at
		 FROM idlv_runs WHERE category = $1 ORDER BY created_at DESC, id DESC LIMIT 1`,
		category,
	).Scan(&run.ID, &run.Category, &run.Resolution, &run.Normalization, &maxFeatures,
		&run.Samples, &run.Vocabulary, &run.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("category %q: %w", category, apperrors.ErrCategoryNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest run: %w", err)
	}
	if maxFeatures.Valid {
		n := int(maxFeatures.Int64)
		run.MaxFeatures = &n
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT token, score FROM idlv_entries WHERE run_id = $1 ORDER BY rank`,
		run.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying entries: %w", err)
	}
	defer rows.Close()
	run.List = ranker.List{}
	for rows.Next() {
		var e ranker.Entry
		if err := rows.Scan(&e.Token, &e.Score); err != nil {
			return nil, fmt.Errorf("scanning entry row: %w", err)
		}
		run.List = append(run.List, e)
	}
	return run, rows.Err()
}

// Categories lists every category with at least one stored run.
func (s *Store) Categories(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT category FROM idlv_runs ORDER BY category`)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rolling back transaction after error %v: %w", rbErr, err)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

package permalink

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
)

// PostgresStore keeps permalinks in a PostgreSQL table
type PostgresStore struct {
	db      *sql.DB
	newCode func() string
}

// NewPostgresStore connects to dsn and creates the table if needed
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	store := &PostgresStore{db: db, newCode: NewCode}
	if err := store.createTables(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *PostgresStore) createTables(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS permalinks (
			code TEXT PRIMARY KEY,
			query TEXT NOT NULL UNIQUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create permalinks table: %w", err)
	}
	return nil
}

// Save inserts query, returning the existing row when the query is already saved
func (s *PostgresStore) Save(ctx context.Context, query string) (Permalink, error) {
	var p Permalink
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO permalinks (code, query) VALUES ($1, $2)
		ON CONFLICT (query)
		DO UPDATE SET query = EXCLUDED.query
		RETURNING code, query, created_at
	`, s.newCode(), query).Scan(&p.Code, &p.Query, &p.CreatedAt)
	if err != nil {
		return Permalink{}, fmt.Errorf("failed to save permalink: %w", err)
	}
	return p, nil
}

// Get resolves a code
func (s *PostgresStore) Get(ctx context.Context, code string) (Permalink, error) {
	var p Permalink
	err := s.db.QueryRowContext(ctx, `
		SELECT code, query, created_at FROM permalinks WHERE code = $1
	`, code).Scan(&p.Code, &p.Query, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Permalink{}, ErrNotFound
	}
	if err != nil {
		return Permalink{}, fmt.Errorf("failed to get permalink: %w", err)
	}
	return p, nil
}

// Close closes the database connection
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

var _ Store = (*PostgresStore)(nil)

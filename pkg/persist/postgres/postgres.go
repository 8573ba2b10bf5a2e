// Package postgres stores attribute columns in PostgreSQL.
//
// Each column is one row of attribute_columns keyed by name. The values are
// kept as a JSONB document in the same encoding as the JSON file sink, so
// undefined cells are null.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/matzehuels/vgadepth/pkg/persist"
)

// ErrColumnNotFound is returned by ReadColumn for an unknown name.
var ErrColumnNotFound = errors.New("postgres: column not found")

const schema = `
CREATE TABLE IF NOT EXISTS attribute_columns (
  name TEXT PRIMARY KEY,
  grid_cols INTEGER NOT NULL,
  grid_rows INTEGER NOT NULL,
  defined INTEGER NOT NULL,
  doc JSONB NOT NULL,
  written_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
);`

// Store is a column sink backed by PostgreSQL.
type Store struct {
	db *sql.DB

	schemaOnce sync.Once
	schemaErr  error
}

// Open connects to dsn and verifies the connection.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("pgx", strings.TrimSpace(dsn))
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return New(db), nil
}

// New wraps an open handle. The schema is created on first use.
func New(db *sql.DB) *Store { return &Store{db: db} }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// EnsureSchema creates the table if missing. It runs at most once.
func (s *Store) EnsureSchema(ctx context.Context) error {
	s.schemaOnce.Do(func() {
		_, s.schemaErr = s.db.ExecContext(ctx, schema)
	})
	return s.schemaErr
}

// WriteColumn upserts col by name.
func (s *Store) WriteColumn(ctx context.Context, col persist.Column) error {
	if err := s.EnsureSchema(ctx); err != nil {
		return err
	}
	doc, err := encode(col)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO attribute_columns (name, grid_cols, grid_rows, defined, doc)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (name)
DO UPDATE SET grid_cols=EXCLUDED.grid_cols,
  grid_rows=EXCLUDED.grid_rows,
  defined=EXCLUDED.defined,
  doc=EXCLUDED.doc,
  written_at=NOW()`,
		col.Name, col.Cols, col.Rows, col.Defined(), doc)
	if err != nil {
		return fmt.Errorf("upsert %q: %w", col.Name, err)
	}
	return nil
}

// ReadColumn loads a column by name.
func (s *Store) ReadColumn(ctx context.Context, name string) (persist.Column, error) {
	if err := s.EnsureSchema(ctx); err != nil {
		return persist.Column{}, err
	}
	var doc []byte
	err := s.db.QueryRowContext(ctx, `SELECT doc FROM attribute_columns WHERE name = $1`, name).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return persist.Column{}, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
	}
	if err != nil {
		return persist.Column{}, err
	}
	return decode(doc)
}

// ListColumns returns the stored column names in name order.
func (s *Store) ListColumns(ctx context.Context) ([]string, error) {
	if err := s.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM attribute_columns ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	names := make([]string, 0, 8)
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

func encode(col persist.Column) ([]byte, error) {
	if col.Name == "" || col.Cols <= 0 || col.Rows <= 0 || len(col.Values) != col.Cols*col.Rows {
		return nil, fmt.Errorf("postgres: malformed column %q", col.Name)
	}
	return json.Marshal(col)
}

func decode(doc []byte) (persist.Column, error) {
	var col persist.Column
	if err := json.Unmarshal(doc, &col); err != nil {
		return persist.Column{}, fmt.Errorf("decode column: %w", err)
	}
	return col, nil
}

var _ persist.Sink = (*Store)(nil)

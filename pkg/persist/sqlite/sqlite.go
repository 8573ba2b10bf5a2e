// Package sqlite stores attribute columns in a SQLite database.
//
// The schema is managed with embedded migrations. Each column is one row in
// attribute_columns plus one row per cell in attribute_values; undefined
// cells store NULL.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"math"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/matzehuels/vgadepth/pkg/attr"
	"github.com/matzehuels/vgadepth/pkg/grid"
	"github.com/matzehuels/vgadepth/pkg/persist"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var (
	// ErrColumnNotFound is returned by ReadColumn for an unknown name.
	ErrColumnNotFound = errors.New("sqlite: column not found")

	// ErrCorruptColumn is returned by ReadColumn when stored rows do not
	// fit the column's grid.
	ErrCorruptColumn = errors.New("sqlite: corrupt column")
)

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA temp_store=MEMORY",
	"PRAGMA foreign_keys=ON",
}

// Store is a column sink backed by SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies
// pending migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// A single connection keeps per-connection pragmas in effect.
	db.SetMaxOpenConns(1)
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}
	s := &Store{db: db}
	if err := s.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// DB exposes the underlying handle.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) newMigrate() (*migrate.Migrate, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	driver, err := migratesqlite.WithInstance(s.db, &migratesqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return m, nil
}

// MigrateUp runs all pending migrations.
func (s *Store) MigrateUp() error {
	m, err := s.newMigrate()
	if err != nil {
		return err
	}
	// m is not closed: closing it would close s.db.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// MigrateVersion returns the current schema version.
func (s *Store) MigrateVersion() (uint, bool, error) {
	m, err := s.newMigrate()
	if err != nil {
		return 0, false, err
	}
	v, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return v, dirty, err
}

// WriteColumn replaces the column named col.Name in one transaction.
func (s *Store) WriteColumn(ctx context.Context, col persist.Column) error {
	if col.Name == "" || len(col.Values) != col.Cols*col.Rows {
		return fmt.Errorf("sqlite: malformed column %q", col.Name)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM attribute_columns WHERE name = ?`, col.Name); err != nil {
		return fmt.Errorf("delete %q: %w", col.Name, err)
	}
	r := col.Region
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO attribute_columns (name, grid_cols, grid_rows, spacing, min_x, min_y, max_x, max_y, defined)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		col.Name, col.Cols, col.Rows, col.Spacing, r.Min.X, r.Min.Y, r.Max.X, r.Max.Y, col.Defined()); err != nil {
		return fmt.Errorf("insert %q: %w", col.Name, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO attribute_values (column_name, cell_col, cell_row, value) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, v := range col.Values {
		c := col.Cell(i)
		var value sql.NullFloat64
		if !math.IsNaN(v) {
			value = sql.NullFloat64{Float64: v, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, col.Name, c.Col, c.Row, value); err != nil {
			return fmt.Errorf("insert cell %s: %w", c, err)
		}
	}
	return tx.Commit()
}

// ReadColumn loads a column by name.
func (s *Store) ReadColumn(ctx context.Context, name string) (persist.Column, error) {
	col := persist.Column{Name: name}
	var r grid.Region
	err := s.db.QueryRowContext(ctx, `
		SELECT grid_cols, grid_rows, spacing, min_x, min_y, max_x, max_y
		FROM attribute_columns WHERE name = ?`, name).
		Scan(&col.Cols, &col.Rows, &col.Spacing, &r.Min.X, &r.Min.Y, &r.Max.X, &r.Max.Y)
	if errors.Is(err, sql.ErrNoRows) {
		return persist.Column{}, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
	}
	if err != nil {
		return persist.Column{}, err
	}
	col.Region = r
	if col.Cols < 1 || col.Rows < 1 || col.Cols > grid.MaxCells || col.Rows > grid.MaxCells ||
		int64(col.Cols)*int64(col.Rows) > grid.MaxCells {
		return persist.Column{}, fmt.Errorf("%w: %q has a %dx%d grid", ErrCorruptColumn, name, col.Cols, col.Rows)
	}
	col.Values = make([]float64, col.Cols*col.Rows)
	for i := range col.Values {
		col.Values[i] = attr.Undefined
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT cell_col, cell_row, value FROM attribute_values WHERE column_name = ?`, name)
	if err != nil {
		return persist.Column{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var c grid.Cell
		var v sql.NullFloat64
		if err := rows.Scan(&c.Col, &c.Row, &v); err != nil {
			return persist.Column{}, err
		}
		if c.Col < 0 || c.Col >= col.Cols || c.Row < 0 || c.Row >= col.Rows {
			return persist.Column{}, fmt.Errorf("%w: %q has cell %s outside its %dx%d grid",
				ErrCorruptColumn, name, c, col.Cols, col.Rows)
		}
		if v.Valid {
			col.Values[c.Row*col.Cols+c.Col] = v.Float64
		}
	}
	return col, rows.Err()
}

// ListColumns returns the stored column names in name order.
func (s *Store) ListColumns(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM attribute_columns ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

var _ persist.Sink = (*Store)(nil)

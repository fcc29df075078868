package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/eugenenazirov/box-estimator/internal/packing"
	"github.com/eugenenazirov/box-estimator/internal/storage/migrations"
)

// SQLiteCatalog reads the box catalog from a SQLite database.
type SQLiteCatalog struct {
	db   *sql.DB
	path string
}

// NewSQLiteCatalog opens (creating if needed) the database at path and applies
// pending migrations.
func NewSQLiteCatalog(path string) (*SQLiteCatalog, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("creating catalog directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	c := &SQLiteCatalog{db: db, path: path}
	if err := c.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return c, nil
}

// Close closes the database connection.
func (c *SQLiteCatalog) Close() error {
	return c.db.Close()
}

// Path returns the database file path.
func (c *SQLiteCatalog) Path() string {
	return c.path
}

// ListBoxes returns every box ordered ascending by id.
func (c *SQLiteCatalog) ListBoxes(ctx context.Context) ([]packing.Box, error) {
	rows, err := c.db.QueryContext(ctx,
		"SELECT id, width, height, length, max_weight FROM packaging ORDER BY id ASC")
	if err != nil {
		return nil, fmt.Errorf("querying boxes: %w", err)
	}
	defer rows.Close()

	boxes := []packing.Box{}
	for rows.Next() {
		var b packing.Box
		if err := rows.Scan(&b.ID, &b.Width, &b.Height, &b.Length, &b.MaxWeight); err != nil {
			return nil, fmt.Errorf("scanning box: %w", err)
		}
		boxes = append(boxes, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating boxes: %w", err)
	}

	return boxes, nil
}

// Seed inserts the given boxes only when the catalog is empty, so ids of an
// existing catalog never shift. Ids follow the same rules as
// NewMemoryCatalog: explicit ids are kept and the rest are numbered from 1 in
// seed order. It reports whether anything was inserted.
func (c *SQLiteCatalog) Seed(ctx context.Context, boxes []packing.Box) (bool, error) {
	seed, err := assignIDs(boxes)
	if err != nil {
		return false, err
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var count int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM packaging").Scan(&count); err != nil {
		return false, fmt.Errorf("counting boxes: %w", err)
	}
	if count > 0 || len(seed) == 0 {
		return false, nil
	}

	for _, b := range seed {
		if err := insertBox(ctx, tx, b); err != nil {
			return false, err
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing seed: %w", err)
	}
	return true, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertBox(ctx context.Context, db execer, b packing.Box) error {
	if _, err := db.ExecContext(ctx,
		"INSERT INTO packaging (id, width, height, length, max_weight) VALUES (?, ?, ?, ?, ?)",
		b.ID, b.Width, b.Height, b.Length, b.MaxWeight); err != nil {
		return fmt.Errorf("inserting box %d: %w", b.ID, err)
	}
	return nil
}

func (c *SQLiteCatalog) migrate(fsys embed.FS) error {
	_, err := c.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := c.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if name := entry.Name(); strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := c.db.Exec(string(content)); err != nil {
			return fmt.Errorf("applying migration %s: %w", name, err)
		}
		if _, err := c.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

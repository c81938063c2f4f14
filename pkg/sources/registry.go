package sources

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mattsolo1/grove-workitems/pkg/models"
)

// ErrNotFound is returned by Get and Remove for unknown names.
var ErrNotFound = errors.New("source not found")

// Registry persists sources added from the command line.
type Registry struct {
	db      *sql.DB
	dataDir string
}

// NewRegistry opens (creating if needed) the registry in dataDir.
func NewRegistry(dataDir string) (*Registry, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	dbPath := filepath.Join(dataDir, "sources.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	r := &Registry{
		db:      db,
		dataDir: dataDir,
	}

	if err := r.init(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize registry: %w", err)
	}

	return r, nil
}

// init creates the database schema
func (r *Registry) init() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sources (
		name TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		organization TEXT NOT NULL DEFAULT '',
		scheme TEXT NOT NULL DEFAULT '',
		instance TEXT NOT NULL DEFAULT '',
		collection TEXT NOT NULL DEFAULT '',
		port INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	`

	_, err := r.db.Exec(schema)
	return err
}

// Add registers a source, replacing one with the same name.
func (r *Registry) Add(c models.SourceConfig) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("validate source: %w", err)
	}

	query := `
	INSERT OR REPLACE INTO sources (name, type, organization, scheme, instance, collection, port, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	createdAt := c.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := r.db.Exec(query, c.Name, string(c.Type), c.Organization, c.Scheme, c.Instance, c.Collection, c.Port, createdAt)
	return err
}

// Get retrieves a source by name
func (r *Registry) Get(name string) (*models.SourceConfig, error) {
	query := `
	SELECT name, type, organization, scheme, instance, collection, port, created_at
	FROM sources WHERE name = ?
	`

	c, err := scanSource(r.db.QueryRow(query, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// List returns all registered sources in the order they were added.
func (r *Registry) List() ([]models.SourceConfig, error) {
	query := `
	SELECT name, type, organization, scheme, instance, collection, port, created_at
	FROM sources ORDER BY created_at ASC, name ASC
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.SourceConfig
	for rows.Next() {
		c, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// Remove deletes a source from the registry
func (r *Registry) Remove(name string) error {
	res, err := r.db.Exec("DELETE FROM sources WHERE name = ?", name)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return nil
}

// Close closes the registry database
func (r *Registry) Close() error {
	return r.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSource(s scanner) (*models.SourceConfig, error) {
	c := &models.SourceConfig{}
	var sourceType string
	err := s.Scan(
		&c.Name, &sourceType, &c.Organization, &c.Scheme,
		&c.Instance, &c.Collection, &c.Port, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.Type = models.SourceType(sourceType)
	return c, nil
}

// Package mysql implements a job store backed by MySQL.
package mysql

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/go-sql-driver/mysql"

	"github.com/tailored-agentic-units/quoteflow/orchestrate/fault"
	"github.com/tailored-agentic-units/quoteflow/orchestrate/job"
)

// Schema contains the MySQL schema for the job store.
//
//go:embed schema.sql
var Schema string

// MySQLStorage stores job snapshots as JSON blobs keyed by job id.
type MySQLStorage struct {
	db *sql.DB
}

type config struct {
	driver string
	dsn    string
	db     *sql.DB
}

// Option allows configuring a MySQLStorage.
type Option func(*config)

// WithDSN sets the storage MySQL data source name.
func WithDSN(dsn string) Option {
	return func(c *config) {
		c.dsn = dsn
	}
}

// WithDriver sets a custom MySQL driver for the storage.
//
// Default driver is "mysql".
// Value is ignored if WithDB is used.
func WithDriver(driver string) Option {
	return func(c *config) {
		c.driver = driver
	}
}

// WithDB sets a custom MySQL *sql.DB to the storage.
//
// If set, driver passed via WithDriver is ignored.
func WithDB(db *sql.DB) Option {
	return func(c *config) {
		c.db = db
	}
}

// New creates and returns a new MySQLStorage.
func New(opts ...Option) (*MySQLStorage, error) {
	cfg := &config{driver: "mysql"}
	for _, opt := range opts {
		opt(cfg)
	}
	var err error
	if cfg.db == nil {
		cfg.db, err = sql.Open(cfg.driver, cfg.dsn)
		if err != nil {
			return nil, err
		}
	}
	if err = cfg.db.Ping(); err != nil {
		return nil, err
	}
	return &MySQLStorage{db: cfg.db}, nil
}

func (s *MySQLStorage) Save(ctx context.Context, snap job.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal job %s: %w", snap.ID, err)
	}

	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO quoteflow_jobs (id, status, snapshot, created_at, updated_at)
VALUES (?, ?, ?, ?, ?) AS new
ON DUPLICATE KEY UPDATE
    status = new.status,
    snapshot = new.snapshot,
    updated_at = new.updated_at;`,
		snap.ID,
		string(snap.Status),
		data,
		snap.CreatedAt.UTC(),
		snap.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("save job %s: %w", snap.ID, err)
	}
	return nil
}

func (s *MySQLStorage) Load(ctx context.Context, id string) (job.Snapshot, error) {
	var data []byte
	err := s.db.QueryRowContext(
		ctx,
		`SELECT snapshot FROM quoteflow_jobs WHERE id = ?;`,
		id,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return job.Snapshot{}, fmt.Errorf("%w: %s", fault.ErrJobNotFound, id)
	}
	if err != nil {
		return job.Snapshot{}, fmt.Errorf("load job %s: %w", id, err)
	}

	var snap job.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return job.Snapshot{}, fmt.Errorf("unmarshal job %s: %w", id, err)
	}
	return snap, nil
}

func (s *MySQLStorage) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM quoteflow_jobs WHERE id = ?;`, id)
	if err != nil {
		return fmt.Errorf("delete job %s: %w", id, err)
	}
	return nil
}

func (s *MySQLStorage) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM quoteflow_jobs ORDER BY id;`)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("list jobs: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return ids, nil
}

// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
// Package memory provides the SQLite-backed project memory: recorded
// decisions, named code patterns and free-form context keys.
package memory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	aixerrors "github.com/tombee/aix/pkg/errors"
)

// SchemaVersion is written into exports and reported by Health.
const SchemaVersion = "1.1.0"

// timeLayout has a fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000Z"

// Limits bounds how many entries each table keeps. Oldest entries are
// evicted first once a limit is reached.
type Limits struct {
	MaxDecisions   int `json:"max_decisions"`
	MaxPatterns    int `json:"max_patterns"`
	MaxContextKeys int `json:"max_context_keys"`
}

// DefaultLimits returns the standard table limits.
func DefaultLimits() Limits {
	return Limits{
		MaxDecisions:   1000,
		MaxPatterns:    100,
		MaxContextKeys: 50,
	}
}

// Config contains store configuration.
type Config struct {
	// Path is the database file path. Its directory is created if needed.
	Path string

	// Limits overrides DefaultLimits when non-zero.
	Limits Limits

	// Metrics receives operation counts. Optional.
	Metrics *Metrics

	// Now overrides the clock in tests.
	Now func() time.Time
}

// Store is a project memory database.
type Store struct {
	db      *sql.DB
	path    string
	limits  Limits
	metrics *Metrics
	now     func() time.Time
}

// Open opens (creating if needed) the database at cfg.Path and applies
// the schema.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, unavailable(errors.New("database path is empty"), cfg.Path)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, unavailable(err, cfg.Path)
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, unavailable(fmt.Errorf("failed to open database: %w", err), cfg.Path)
	}

	// SQLite serializes writes, so only 1 connection for writes
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, unavailable(fmt.Errorf("failed to connect to database: %w", err), cfg.Path)
	}

	limits := DefaultLimits()
	if cfg.Limits.MaxDecisions > 0 {
		limits.MaxDecisions = cfg.Limits.MaxDecisions
	}
	if cfg.Limits.MaxPatterns > 0 {
		limits.MaxPatterns = cfg.Limits.MaxPatterns
	}
	if cfg.Limits.MaxContextKeys > 0 {
		limits.MaxContextKeys = cfg.Limits.MaxContextKeys
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	s := &Store{db: db, path: cfg.Path, limits: limits, metrics: cfg.Metrics, now: now}
	if err := s.configurePragmas(ctx); err != nil {
		db.Close()
		return nil, unavailable(err, cfg.Path)
	}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, unavailable(err, cfg.Path)
	}
	return s, nil
}

func (s *Store) configurePragmas(ctx context.Context) error {
	pragmas := []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := s.db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to execute %s: %w", pragma, err)
		}
	}
	return nil
}

func (s *Store) migrate(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS decisions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp TEXT NOT NULL,
			decision TEXT NOT NULL,
			rationale TEXT NOT NULL,
			context TEXT DEFAULT '',
			alternatives TEXT DEFAULT '',
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS patterns (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT UNIQUE NOT NULL,
			description TEXT NOT NULL,
			example TEXT DEFAULT '',
			when_to_use TEXT DEFAULT '',
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS context (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS purge_request (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			token TEXT NOT NULL,
			expires_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_decisions_timestamp ON decisions(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_patterns_updated ON patterns(updated_at)`,
		`CREATE INDEX IF NOT EXISTS idx_context_updated ON context(updated_at)`,
	}
	for _, migration := range migrations {
		if _, err := s.db.ExecContext(ctx, migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Limits returns the effective table limits.
func (s *Store) Limits() Limits { return s.limits }

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(timeLayout)
}

// track starts timing op; call the returned func with the operation's
// error when it finishes.
func (s *Store) track(op string) func(*error) {
	start := time.Now()
	return func(errp *error) {
		s.metrics.observe(op, time.Since(start), *errp)
	}
}

// queryError classifies a failed statement. Cancellation passes through
// unchanged so the caller's supervisor can report it.
func queryError(err error, path string) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return unavailable(err, path)
}

func unavailable(err error, path string) error {
	return aixerrors.New(aixerrors.CodeDatabaseUnavailable, "",
		aixerrors.WithCause(err),
		aixerrors.WithField("path", path),
	)
}

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
package memory

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"

	aixerrors "github.com/tombee/aix/pkg/errors"
)

// Import payload limits.
const (
	MaxImportBytes       = 10 * 1024 * 1024
	MaxImportDecisions   = 10000
	MaxImportPatterns    = 1000
	MaxImportContextKeys = 500
)

// Export is the portable JSON form of a memory database.
type Export struct {
	Version    string     `json:"version"`
	ExportedAt string     `json:"exported_at"`
	Project    string     `json:"project,omitempty"`
	Data       ExportData `json:"data"`
	Stats      *Stats     `json:"stats,omitempty"`
}

// ExportData holds the exported rows.
type ExportData struct {
	Decisions []Decision        `json:"decisions"`
	Patterns  []Pattern         `json:"patterns"`
	Context   map[string]string `json:"context"`
}

// ImportStats counts imported and skipped entries.
type ImportStats struct {
	Decisions int `json:"decisions"`
	Patterns  int `json:"patterns"`
	Context   int `json:"context"`
	Skipped   int `json:"skipped"`
}

// Export reads every row.
func (s *Store) Export(ctx context.Context, project string) (exp *Export, err error) {
	defer s.track("export")(&err)

	decisions, err := s.allDecisions(ctx)
	if err != nil {
		return nil, err
	}
	patterns, err := s.Patterns(ctx)
	if err != nil {
		return nil, err
	}
	kv, err := s.Context(ctx)
	if err != nil {
		return nil, err
	}
	st, err := s.Stats(ctx)
	if err != nil {
		return nil, err
	}

	return &Export{
		Version:    SchemaVersion,
		ExportedAt: s.timestamp(),
		Project:    project,
		Data:       ExportData{Decisions: decisions, Patterns: patterns, Context: kv},
		Stats:      &st,
	}, nil
}

func (s *Store) allDecisions(ctx context.Context) ([]Decision, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, timestamp, decision, rationale, context, alternatives, created_at
		FROM decisions ORDER BY timestamp ASC, id ASC`)
	if err != nil {
		return nil, queryError(err, s.path)
	}
	defer rows.Close()
	return scanDecisions(rows, s.path)
}

// DecodeExport parses and checks an export document read from r.
func DecodeExport(r io.Reader) (*Export, error) {
	raw, err := io.ReadAll(io.LimitReader(r, MaxImportBytes+1))
	if err != nil {
		return nil, invalidImport("could not read import data", err)
	}
	if len(raw) > MaxImportBytes {
		return nil, invalidImport(fmt.Sprintf("import data exceeds %d bytes", MaxImportBytes), nil)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	var exp Export
	if err := dec.Decode(&exp); err != nil {
		return nil, invalidImport("import data is not a valid export document", err)
	}
	if err := exp.check(); err != nil {
		return nil, err
	}
	return &exp, nil
}

func (e *Export) check() error {
	switch {
	case len(e.Data.Decisions) > MaxImportDecisions:
		return invalidImport(fmt.Sprintf("too many decisions (%d, maximum %d)", len(e.Data.Decisions), MaxImportDecisions), nil)
	case len(e.Data.Patterns) > MaxImportPatterns:
		return invalidImport(fmt.Sprintf("too many patterns (%d, maximum %d)", len(e.Data.Patterns), MaxImportPatterns), nil)
	case len(e.Data.Context) > MaxImportContextKeys:
		return invalidImport(fmt.Sprintf("too many context keys (%d, maximum %d)", len(e.Data.Context), MaxImportContextKeys), nil)
	}
	return nil
}

// Import loads exp. With replace set every table is cleared first,
// otherwise entries are merged. Invalid entries are skipped and counted.
// Table limits are enforced once the import finishes.
func (s *Store) Import(ctx context.Context, exp *Export, replace bool) (stats ImportStats, err error) {
	defer s.track("import")(&err)

	if err := exp.check(); err != nil {
		return stats, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return stats, queryError(err, s.path)
	}
	defer tx.Rollback()

	if replace {
		for _, table := range []string{"decisions", "patterns", "context"} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return stats, queryError(err, s.path)
			}
		}
	}

	now := s.timestamp()
	for _, d := range exp.Data.Decisions {
		decision := CleanInput(d.Decision, MaxStringLength)
		rationale := CleanInput(d.Rationale, MaxStringLength)
		if decision == "" || rationale == "" {
			stats.Skipped++
			continue
		}
		ts := d.Timestamp
		if ts == "" {
			ts = now
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO decisions (timestamp, decision, rationale, context, alternatives, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			ts, decision, rationale,
			CleanInput(d.Context, MaxStringLength),
			CleanInput(d.Alternatives, MaxStringLength),
			now,
		); err != nil {
			return stats, queryError(err, s.path)
		}
		stats.Decisions++
	}

	for _, p := range exp.Data.Patterns {
		description := CleanInput(p.Description, MaxStringLength)
		if !ValidKey(p.Name) || description == "" {
			stats.Skipped++
			continue
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO patterns (name, description, example, when_to_use, updated_at)
			VALUES (?, ?, ?, ?, ?)`,
			p.Name, description,
			CleanInput(p.Example, MaxStringLength),
			CleanInput(p.WhenToUse, MaxStringLength),
			now,
		); err != nil {
			return stats, queryError(err, s.path)
		}
		stats.Patterns++
	}

	for key, value := range exp.Data.Context {
		if !ValidKey(key) {
			stats.Skipped++
			continue
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO context (key, value, updated_at) VALUES (?, ?, ?)`,
			key, CleanInput(value, MaxStringLength), now,
		); err != nil {
			return stats, queryError(err, s.path)
		}
		stats.Context++
	}

	if err := s.trim(ctx, tx); err != nil {
		return stats, err
	}
	if err := tx.Commit(); err != nil {
		return stats, queryError(err, s.path)
	}
	return stats, nil
}

// trim evicts the oldest rows of every table above its limit.
func (s *Store) trim(ctx context.Context, tx *sql.Tx) error {
	stmts := []struct {
		query string
		limit int
	}{
		{`DELETE FROM decisions WHERE id NOT IN (
			SELECT id FROM decisions ORDER BY timestamp DESC, id DESC LIMIT ?)`, s.limits.MaxDecisions},
		{`DELETE FROM patterns WHERE name NOT IN (
			SELECT name FROM patterns ORDER BY updated_at DESC, name DESC LIMIT ?)`, s.limits.MaxPatterns},
		{`DELETE FROM context WHERE key NOT IN (
			SELECT key FROM context ORDER BY updated_at DESC, key DESC LIMIT ?)`, s.limits.MaxContextKeys},
	}
	for _, st := range stmts {
		if _, err := tx.ExecContext(ctx, st.query, st.limit); err != nil {
			return queryError(err, s.path)
		}
	}
	return nil
}

func invalidImport(msg string, cause error) error {
	opts := []aixerrors.Option{aixerrors.WithField("maxBytes", MaxImportBytes)}
	if cause != nil {
		opts = append(opts, aixerrors.WithCause(cause))
	}
	return aixerrors.New(aixerrors.CodeInvalidOption, "Invalid import: "+msg, opts...)
}

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
	"context"
	"database/sql"
	"fmt"
)

const (
	// DefaultSearchLimit is used when a search asks for no limit.
	DefaultSearchLimit = 20
	// MaxSearchLimit caps the rows a search may return.
	MaxSearchLimit = 100
)

// Decision is a recorded architectural or technical decision.
type Decision struct {
	ID           int64  `json:"id"`
	Timestamp    string `json:"timestamp"`
	Decision     string `json:"decision"`
	Rationale    string `json:"rationale"`
	Context      string `json:"context"`
	Alternatives string `json:"alternatives"`
	CreatedAt    string `json:"created_at,omitempty"`
}

// AddDecision stores a decision and returns its id. When the table is
// full the oldest tenth is evicted first.
func (s *Store) AddDecision(ctx context.Context, d Decision) (id int64, err error) {
	defer s.track("add_decision")(&err)

	d.Decision = CleanInput(d.Decision, MaxStringLength)
	d.Rationale = CleanInput(d.Rationale, MaxStringLength)
	if err := required("decision", d.Decision); err != nil {
		return 0, err
	}
	if err := required("rationale", d.Rationale); err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, queryError(err, s.path)
	}
	defer tx.Rollback()

	if err := s.evictDecisions(ctx, tx, 1); err != nil {
		return 0, err
	}

	now := s.timestamp()
	res, err := tx.ExecContext(ctx, `
		INSERT INTO decisions (timestamp, decision, rationale, context, alternatives, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		now, d.Decision, d.Rationale,
		CleanInput(d.Context, MaxStringLength),
		CleanInput(d.Alternatives, MaxStringLength),
		now,
	)
	if err != nil {
		return 0, queryError(err, s.path)
	}
	if err := tx.Commit(); err != nil {
		return 0, queryError(err, s.path)
	}
	return res.LastInsertId()
}

// evictDecisions makes room for incoming new rows.
func (s *Store) evictDecisions(ctx context.Context, tx *sql.Tx, incoming int) error {
	var count int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM decisions").Scan(&count); err != nil {
		return queryError(err, s.path)
	}
	if count+incoming <= s.limits.MaxDecisions {
		return nil
	}
	remove := max(1, s.limits.MaxDecisions/10, count+incoming-s.limits.MaxDecisions)
	_, err := tx.ExecContext(ctx, `
		DELETE FROM decisions WHERE id IN (
			SELECT id FROM decisions ORDER BY timestamp ASC, id ASC LIMIT ?
		)`, remove)
	if err != nil {
		return queryError(err, s.path)
	}
	return nil
}

// SearchDecisions returns decisions newest first. A non-empty keyword
// matches literally against decision, rationale and context.
func (s *Store) SearchDecisions(ctx context.Context, keyword string, limit int) (out []Decision, err error) {
	defer s.track("search_decisions")(&err)

	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	limit = min(limit, MaxSearchLimit)

	var rows *sql.Rows
	keyword = CleanInput(keyword, maxKeywordLength)
	if keyword != "" {
		pattern := "%" + EscapeLike(keyword) + "%"
		rows, err = s.db.QueryContext(ctx, `
			SELECT id, timestamp, decision, rationale, context, alternatives, created_at
			FROM decisions
			WHERE decision LIKE ? ESCAPE '\'
			   OR rationale LIKE ? ESCAPE '\'
			   OR context LIKE ? ESCAPE '\'
			ORDER BY timestamp DESC, id DESC LIMIT ?`,
			pattern, pattern, pattern, limit)
	} else {
		rows, err = s.db.QueryContext(ctx, `
			SELECT id, timestamp, decision, rationale, context, alternatives, created_at
			FROM decisions ORDER BY timestamp DESC, id DESC LIMIT ?`, limit)
	}
	if err != nil {
		return nil, queryError(err, s.path)
	}
	defer rows.Close()
	return scanDecisions(rows, s.path)
}

func scanDecisions(rows *sql.Rows, path string) ([]Decision, error) {
	out := []Decision{}
	for rows.Next() {
		var d Decision
		if err := rows.Scan(&d.ID, &d.Timestamp, &d.Decision, &d.Rationale, &d.Context, &d.Alternatives, &d.CreatedAt); err != nil {
			return nil, queryError(err, path)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, queryError(err, path)
	}
	return out, nil
}

// Pattern is a named, reusable code pattern.
type Pattern struct {
	ID          int64  `json:"id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Example     string `json:"example"`
	WhenToUse   string `json:"when_to_use"`
	UpdatedAt   string `json:"updated_at,omitempty"`
}

// UpsertPattern creates or replaces the pattern with p.Name. Creating a
// pattern in a full table evicts the least recently updated one.
func (s *Store) UpsertPattern(ctx context.Context, p Pattern) (err error) {
	defer s.track("upsert_pattern")(&err)

	if err := CheckKey("name", p.Name); err != nil {
		return err
	}
	p.Description = CleanInput(p.Description, MaxStringLength)
	if err := required("description", p.Description); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return queryError(err, s.path)
	}
	defer tx.Rollback()

	if err := s.evictForKey(ctx, tx, "patterns", "name", p.Name, s.limits.MaxPatterns); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO patterns (name, description, example, when_to_use, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			description = excluded.description,
			example = excluded.example,
			when_to_use = excluded.when_to_use,
			updated_at = excluded.updated_at`,
		p.Name, p.Description,
		CleanInput(p.Example, MaxStringLength),
		CleanInput(p.WhenToUse, MaxStringLength),
		s.timestamp(),
	)
	if err != nil {
		return queryError(err, s.path)
	}
	if err := tx.Commit(); err != nil {
		return queryError(err, s.path)
	}
	return nil
}

// Patterns returns every pattern ordered by name.
func (s *Store) Patterns(ctx context.Context) (out []Pattern, err error) {
	defer s.track("get_patterns")(&err)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, example, when_to_use, updated_at
		FROM patterns ORDER BY name`)
	if err != nil {
		return nil, queryError(err, s.path)
	}
	defer rows.Close()

	out = []Pattern{}
	for rows.Next() {
		var p Pattern
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Example, &p.WhenToUse, &p.UpdatedAt); err != nil {
			return nil, queryError(err, s.path)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, queryError(err, s.path)
	}
	return out, nil
}

// SetContext stores value under key. Adding a key to a full table evicts
// the least recently updated key.
func (s *Store) SetContext(ctx context.Context, key, value string) (err error) {
	defer s.track("set_context")(&err)

	if err := CheckKey("key", key); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return queryError(err, s.path)
	}
	defer tx.Rollback()

	if err := s.evictForKey(ctx, tx, "context", "key", key, s.limits.MaxContextKeys); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO context (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at`,
		key, CleanInput(value, MaxStringLength), s.timestamp(),
	)
	if err != nil {
		return queryError(err, s.path)
	}
	if err := tx.Commit(); err != nil {
		return queryError(err, s.path)
	}
	return nil
}

// Context returns every context key and value.
func (s *Store) Context(ctx context.Context) (out map[string]string, err error) {
	defer s.track("get_context")(&err)

	rows, err := s.db.QueryContext(ctx, "SELECT key, value FROM context ORDER BY key")
	if err != nil {
		return nil, queryError(err, s.path)
	}
	defer rows.Close()

	out = map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, queryError(err, s.path)
		}
		out[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, queryError(err, s.path)
	}
	return out, nil
}

// evictForKey removes the least recently updated row of table when key
// is new and the table is at limit. table and column are constants.
func (s *Store) evictForKey(ctx context.Context, tx *sql.Tx, table, column, key string, limit int) error {
	var exists int
	err := tx.QueryRowContext(ctx,
		fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s = ?", table, column), key).Scan(&exists)
	if err != nil {
		return queryError(err, s.path)
	}
	if exists > 0 {
		return nil
	}

	var count int
	if err := tx.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&count); err != nil {
		return queryError(err, s.path)
	}
	if count < limit {
		return nil
	}

	_, err = tx.ExecContext(ctx, fmt.Sprintf(`
		DELETE FROM %[1]s WHERE %[2]s IN (
			SELECT %[2]s FROM %[1]s ORDER BY updated_at ASC, %[2]s ASC LIMIT ?
		)`, table, column), count-limit+1)
	if err != nil {
		return queryError(err, s.path)
	}
	return nil
}

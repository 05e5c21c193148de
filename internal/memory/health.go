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
	"fmt"
	"math"
	"os"
)

// Health status values.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// capacityWarning is the usage percentage above which Health degrades.
const capacityWarning = 90.0

// Stats summarizes table sizes.
type Stats struct {
	Decisions   int    `json:"decisions"`
	Patterns    int    `json:"patterns"`
	ContextKeys int    `json:"context_keys"`
	DBSizeBytes int64  `json:"db_size_bytes"`
	Limits      Limits `json:"limits"`
}

// Stats returns the current table sizes.
func (s *Store) Stats(ctx context.Context) (st Stats, err error) {
	defer s.track("stats")(&err)

	st.Limits = s.limits
	counts := []struct {
		table string
		dst   *int
	}{
		{"decisions", &st.Decisions},
		{"patterns", &st.Patterns},
		{"context", &st.ContextKeys},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+c.table).Scan(c.dst); err != nil {
			return st, queryError(err, s.path)
		}
	}
	if info, statErr := os.Stat(s.path); statErr == nil {
		st.DBSizeBytes = info.Size()
	}
	return st, nil
}

// Health is the result of a database self-check.
type Health struct {
	Status  string         `json:"status"`
	Version string         `json:"version"`
	Checks  map[string]any `json:"checks"`
	DBPath  string         `json:"db_path"`
}

// Health checks connectivity, integrity, writability and capacity. It
// reports problems in the result rather than returning an error, except
// for cancellation.
func (s *Store) Health(ctx context.Context) (Health, error) {
	h := Health{Status: StatusHealthy, Version: SchemaVersion, Checks: map[string]any{}, DBPath: s.path}
	worsen := func(status string) {
		if status == StatusUnhealthy || h.Status == StatusHealthy {
			h.Status = status
		}
	}

	if err := s.db.PingContext(ctx); err != nil {
		if ctx.Err() != nil {
			return h, ctx.Err()
		}
		h.Checks["database_connection"] = "failed: " + err.Error()
		worsen(StatusUnhealthy)
	} else {
		h.Checks["database_connection"] = "ok"
	}

	var integrity string
	if err := s.db.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&integrity); err != nil {
		h.Checks["database_integrity"] = "failed: " + err.Error()
		worsen(StatusUnhealthy)
	} else {
		h.Checks["database_integrity"] = integrity
		if integrity != "ok" {
			worsen(StatusDegraded)
		}
	}

	if err := s.probeWrite(ctx); err != nil {
		h.Checks["write_capability"] = "failed: " + err.Error()
		worsen(StatusUnhealthy)
	} else {
		h.Checks["write_capability"] = "ok"
	}

	st, err := s.Stats(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return h, ctx.Err()
		}
		h.Checks["capacity"] = "failed: " + err.Error()
		worsen(StatusUnhealthy)
		return h, nil
	}
	decisions := percent(st.Decisions, st.Limits.MaxDecisions)
	patterns := percent(st.Patterns, st.Limits.MaxPatterns)
	capacity := map[string]any{
		"decisions_used_percent": decisions,
		"patterns_used_percent":  patterns,
	}
	if decisions > capacityWarning || patterns > capacityWarning {
		capacity["warning"] = "Approaching capacity limits"
		worsen(StatusDegraded)
	}
	h.Checks["capacity"] = capacity
	return h, nil
}

func (s *Store) probeWrite(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx,
		"INSERT OR REPLACE INTO context (key, value, updated_at) VALUES ('_health_check', 'test', ?)", s.timestamp()); err != nil {
		return err
	}
	return nil
}

func percent(n, limit int) float64 {
	if limit <= 0 {
		return 0
	}
	return math.Round(float64(n)/float64(limit)*1000) / 10
}

// String renders stats for terminal output.
func (st Stats) String() string {
	return fmt.Sprintf("decisions: %d/%d\npatterns: %d/%d\ncontext keys: %d/%d\ndatabase size: %d bytes",
		st.Decisions, st.Limits.MaxDecisions,
		st.Patterns, st.Limits.MaxPatterns,
		st.ContextKeys, st.Limits.MaxContextKeys,
		st.DBSizeBytes)
}

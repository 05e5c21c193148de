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
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	aixerrors "github.com/tombee/aix/pkg/errors"
)

// PurgeTokenTTL is how long a purge confirmation token stays valid.
const PurgeTokenTTL = 60 * time.Second

// purgeTokenPrefix starts every confirmation token.
const purgeTokenPrefix = "PURGE-"

// PurgeRequest is the first step of a purge: the token that must be
// passed back to ConfirmPurge before it expires.
type PurgeRequest struct {
	Token     string        `json:"token"`
	ExpiresIn time.Duration `json:"expires_in"`
}

// PurgeStats counts the rows a confirmed purge deleted.
type PurgeStats struct {
	Decisions   int `json:"decisions"`
	Patterns    int `json:"patterns"`
	ContextKeys int `json:"context_keys"`
}

// RequestPurge issues a new confirmation token, replacing any pending
// one. The token lives in the database so a separate process can
// confirm it.
func (s *Store) RequestPurge(ctx context.Context) (req PurgeRequest, err error) {
	defer s.track("purge_request")(&err)

	token := purgeTokenPrefix + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	expires := s.now().Add(PurgeTokenTTL).UTC().Format(timeLayout)
	if _, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO purge_request (id, token, expires_at) VALUES (1, ?, ?)`,
		token, expires,
	); err != nil {
		return req, queryError(err, s.path)
	}
	return PurgeRequest{Token: token, ExpiresIn: PurgeTokenTTL}, nil
}

// ConfirmPurge deletes every decision, pattern and context key when
// token matches the pending request. The request is consumed on
// success; a wrong token leaves it pending until it expires.
func (s *Store) ConfirmPurge(ctx context.Context, token string) (st PurgeStats, err error) {
	defer s.track("purge")(&err)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return st, queryError(err, s.path)
	}
	defer tx.Rollback()

	var pending, expiresAt string
	err = tx.QueryRowContext(ctx, `SELECT token, expires_at FROM purge_request WHERE id = 1`).Scan(&pending, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return st, noPendingPurge()
	}
	if err != nil {
		return st, queryError(err, s.path)
	}

	expires, perr := time.Parse(timeLayout, expiresAt)
	remaining := expires.Sub(s.now())
	if perr != nil || remaining <= 0 {
		if _, err := tx.ExecContext(ctx, `DELETE FROM purge_request`); err != nil {
			return st, queryError(err, s.path)
		}
		if err := tx.Commit(); err != nil {
			return st, queryError(err, s.path)
		}
		return st, noPendingPurge()
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(pending)) != 1 {
		return st, aixerrors.New(aixerrors.CodeInvalidOption, "Invalid purge confirmation token",
			aixerrors.WithField("expiresInSeconds", int(remaining.Seconds())),
			aixerrors.WithSuggestion("Pass the token printed by the purge request exactly as shown"))
	}

	counts := []struct {
		table string
		dst   *int
	}{
		{"decisions", &st.Decisions},
		{"patterns", &st.Patterns},
		{"context", &st.ContextKeys},
	}
	for _, c := range counts {
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+c.table).Scan(c.dst); err != nil {
			return st, queryError(err, s.path)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+c.table); err != nil {
			return st, queryError(err, s.path)
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM purge_request`); err != nil {
		return st, queryError(err, s.path)
	}
	if err := tx.Commit(); err != nil {
		return st, queryError(err, s.path)
	}

	// Reclaiming space is best effort; the rows are already gone.
	_, _ = s.db.ExecContext(ctx, "VACUUM")
	return st, nil
}

func noPendingPurge() error {
	return aixerrors.New(aixerrors.CodeInvalidOption, "No pending purge request or the token expired",
		aixerrors.WithSuggestion(fmt.Sprintf("Request a new purge token; tokens are valid for %d seconds", int(PurgeTokenTTL.Seconds()))))
}

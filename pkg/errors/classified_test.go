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

package errors_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	aixerrors "github.com/tombee/aix/pkg/errors"
)

func TestNew_UsesCatalogDefaults(t *testing.T) {
	before := time.Now()
	err := aixerrors.New(aixerrors.CodeAlreadyInitialized, "")

	assert.Equal(t, aixerrors.CodeAlreadyInitialized, err.Code())
	assert.Equal(t, "Project is already initialized", err.Message())
	assert.Equal(t, aixerrors.CategoryInitialization, err.Category())
	assert.Equal(t, "Re-run with --force to overwrite the existing files", err.Suggestion())
	assert.True(t, err.Recoverable())
	assert.False(t, err.Timestamp().Before(before))
	assert.Nil(t, err.Context())
	assert.NotEmpty(t, err.Stack())
}

func TestNew_Overrides(t *testing.T) {
	cause := errors.New("disk full")
	err := aixerrors.New(aixerrors.CodeWriteFailed, "could not write CLAUDE.md",
		aixerrors.WithCause(cause),
		aixerrors.WithSuggestion("free some space"),
		aixerrors.WithRecoverable(false),
		aixerrors.WithField("path", "/tmp/project/CLAUDE.md"),
	)

	assert.Equal(t, "could not write CLAUDE.md", err.Message())
	assert.Equal(t, "free some space", err.Suggestion())
	assert.False(t, err.Recoverable())
	assert.Same(t, cause, err.Cause())
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, map[string]any{"path": "/tmp/project/CLAUDE.md"}, err.Context())
	assert.Equal(t, "[AIX-FS-403] could not write CLAUDE.md: disk full", err.Error())
}

func TestNew_NonRecoverableCatalogEntry(t *testing.T) {
	err := aixerrors.New(aixerrors.CodeUnsupportedPlatform, "")
	assert.False(t, err.Recoverable())
	assert.False(t, err.IsRetryable())
}

func TestNew_CatalogFallback(t *testing.T) {
	err := aixerrors.New("AIX-ZZZ-999", "")

	assert.Equal(t, aixerrors.Code("AIX-ZZZ-999"), err.Code())
	assert.Equal(t, aixerrors.CategoryGeneral, err.Category())

	unknown, ok := aixerrors.Lookup(aixerrors.CodeUnknown)
	require.True(t, ok)
	assert.Equal(t, unknown.Suggestion, err.Suggestion())
	assert.Equal(t, unknown.Description, err.Message())
	assert.Equal(t, 1, err.ExitCode())
}

func TestContext_ReturnsCopy(t *testing.T) {
	err := aixerrors.New(aixerrors.CodeInvalidOption, "", aixerrors.WithField("option", "preset"))

	ctx := err.Context()
	ctx["option"] = "mutated"

	assert.Equal(t, "preset", err.Context()["option"])
}

func TestClassify(t *testing.T) {
	t.Run("nil", func(t *testing.T) {
		assert.Nil(t, aixerrors.Classify(nil))
	})

	t.Run("plain error is wrapped once", func(t *testing.T) {
		plain := errors.New("boom")
		ce := aixerrors.Classify(plain)

		require.NotNil(t, ce)
		assert.Equal(t, aixerrors.CodeUnexpected, ce.Code())
		assert.Equal(t, "boom", ce.Message())
		assert.Equal(t, "boom", ce.Context()["originalError"])
		assert.Same(t, plain, ce.Cause())
	})

	t.Run("classified error is returned as is", func(t *testing.T) {
		original := aixerrors.New(aixerrors.CodeHookFailed, "")
		wrapped := fmt.Errorf("running hooks: %w", original)

		assert.Same(t, original, aixerrors.Classify(wrapped))
		assert.Same(t, original, aixerrors.Classify(aixerrors.Classify(original)))
	})

	t.Run("user visible error keeps its wording", func(t *testing.T) {
		ce := aixerrors.Classify(fmt.Errorf("wrap: %w", visibleError{visible: true}))

		assert.Equal(t, aixerrors.CodeUnexpected, ce.Code())
		assert.Equal(t, "Friendly message", ce.Message())
		assert.Equal(t, "Try again later", ce.Suggestion())
		assert.Equal(t, "wrap: internal detail", ce.Context()["originalError"])
	})

	t.Run("hidden user visible error uses the raw message", func(t *testing.T) {
		ce := aixerrors.Classify(visibleError{})

		assert.Equal(t, "internal detail", ce.Message())
	})
}

type visibleError struct{ visible bool }

func (visibleError) Error() string         { return "internal detail" }
func (e visibleError) IsUserVisible() bool { return e.visible }
func (visibleError) UserMessage() string   { return "Friendly message" }
func (visibleError) Suggestion() string    { return "Try again later" }

func TestExitCodeFor(t *testing.T) {
	tests := []struct {
		code aixerrors.Code
		want int
	}{
		{aixerrors.CodeAlreadyInitialized, 64},
		{aixerrors.CodeInputTooLong, 65},
		{aixerrors.CodeConfigUnreadable, 66},
		{aixerrors.CodeWriteFailed, 74},
		{aixerrors.CodeRequestFailed, 75},
		{aixerrors.CodeServerFailed, 76},
		{aixerrors.CodeHookFailed, 77},
		{aixerrors.CodeAborted, 1},
		{aixerrors.CodeUnknown, 1},
		{"AIX-ZZZ-999", 1},
		{"AIX-INIT-999", 64},
		{"garbage", 1},
		{"", 1},
		{"AIX--", 1},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, aixerrors.ExitCodeFor(tt.code))
		})
	}
}

func TestCatalog_CategoryMatchesSegment(t *testing.T) {
	for _, code := range aixerrors.Codes() {
		entry, ok := aixerrors.Lookup(code)
		require.True(t, ok)
		assert.Equal(t, entry.Category.ExitCode(), aixerrors.ExitCodeFor(code), "code %s", code)
		assert.NotEmpty(t, entry.Description, "code %s", code)
		assert.NotEmpty(t, entry.Suggestion, "code %s", code)
	}
}

func TestFormat(t *testing.T) {
	t.Run("nil", func(t *testing.T) {
		assert.Equal(t, "", aixerrors.Format(nil, true))
	})

	cause := fmt.Errorf("open config: %w", errors.New("permission denied"))
	err := aixerrors.New(aixerrors.CodeConfigUnreadable, "Cannot read config.yaml", aixerrors.WithCause(cause))

	t.Run("terse", func(t *testing.T) {
		out := aixerrors.Format(err, false)
		lines := strings.Split(out, "\n")

		require.Len(t, lines, 3)
		assert.Equal(t, "Error [AIX-CONFIG-301]: Cannot read config.yaml", lines[0])
		assert.Equal(t, "  Suggestion: Check that the config file exists and is valid YAML", lines[1])
		assert.Equal(t, "  Docs: "+aixerrors.DocsBaseURL+"#aix-config-301", lines[2])
	})

	t.Run("verbose includes cause chain", func(t *testing.T) {
		out := aixerrors.Format(err, true)

		assert.Contains(t, out, "  Caused by: open config\n")
		assert.Contains(t, out, "  Caused by: permission denied\n")
		assert.True(t, strings.HasSuffix(out, "#aix-config-301"))
	})

	t.Run("no suggestion line when empty", func(t *testing.T) {
		e := aixerrors.New(aixerrors.CodeUnexpected, "x", aixerrors.WithSuggestion(""))
		assert.NotContains(t, aixerrors.Format(e, false), "Suggestion")
	})
}

func TestToJSON(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	path := filepath.Join(home, "projects", "demo", "CLAUDE.md")
	ce := aixerrors.New(aixerrors.CodeWriteFailed, "", aixerrors.WithField("path", path))

	t.Run("sanitized", func(t *testing.T) {
		rec := aixerrors.ToJSON(ce, true)
		require.NotNil(t, rec)

		assert.Equal(t, "AIX-FS-403", rec.Code)
		assert.Equal(t, "filesystem", rec.Category)
		assert.Equal(t, 74, rec.ExitCode)
		assert.True(t, rec.Recoverable)
		assert.NotEmpty(t, rec.Stack)
		assert.Equal(t, filepath.Join("~", "projects", "demo", "CLAUDE.md"), rec.Context["path"])

		_, parseErr := time.Parse(time.RFC3339Nano, rec.Timestamp)
		assert.NoError(t, parseErr)
	})

	t.Run("unsanitized keeps full fidelity", func(t *testing.T) {
		rec := aixerrors.ToJSON(ce, false)
		assert.Equal(t, path, rec.Context["path"])
	})

	t.Run("original context is never mutated", func(t *testing.T) {
		_ = aixerrors.ToJSON(ce, true)
		assert.Equal(t, path, ce.Context()["path"])
	})

	t.Run("marshal", func(t *testing.T) {
		data, err := json.Marshal(ce)
		require.NoError(t, err)

		var decoded map[string]any
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.Equal(t, "AIX-FS-403", decoded["code"])
		assert.Contains(t, decoded, "timestamp")
		assert.Contains(t, decoded, "recoverable")
	})
}

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

package reporter

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/aix/internal/log"
	"github.com/tombee/aix/internal/supervisor"
	aixerrors "github.com/tombee/aix/pkg/errors"
)

func newTestReporter(mode Mode, verbose, debug bool) (*Reporter, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	r := New(Options{Mode: mode, Verbose: verbose, Debug: debug, Out: &out, Err: &errOut, Operation: log.NewOperation()})
	return r, &out, &errOut
}

func failed(err *aixerrors.ClassifiedError) supervisor.Summary {
	return supervisor.Summary{Name: "init", State: supervisor.StateFailed, Err: err, OperationID: "op-123", Elapsed: 5 * time.Millisecond}
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m), "line %q", line)
		entries = append(entries, m)
	}
	return entries
}

func TestReport_HumanError(t *testing.T) {
	r, out, errOut := newTestReporter(ModeHuman, false, false)
	err := aixerrors.New(aixerrors.CodeUnknownPreset, `Unknown preset "x"`, aixerrors.WithCause(errors.New("lookup failed")))

	r.Report(failed(err), "")

	assert.Empty(t, out.String())
	text := errOut.String()
	assert.Contains(t, text, "Error [AIX-INIT-103]: Unknown preset \"x\"")
	assert.Contains(t, text, aixerrors.PrefixSuggestion)
	assert.Contains(t, text, "#aix-init-103")
	assert.NotContains(t, text, "Caused by", "causes only in verbose mode")
	assert.NotContains(t, text, "\x1b[", "no color when disabled")
}

func TestReport_HumanVerboseShowsCauses(t *testing.T) {
	r, _, errOut := newTestReporter(ModeHuman, true, false)
	err := aixerrors.New(aixerrors.CodeWriteFailed, "", aixerrors.WithCause(errors.New("disk full")))

	r.Report(failed(err), "")

	assert.Contains(t, errOut.String(), aixerrors.PrefixCause+"disk full")
}

func TestReport_HumanSuccess(t *testing.T) {
	r, out, errOut := newTestReporter(ModeHuman, false, false)

	r.Report(supervisor.Summary{Name: "presets", State: supervisor.StateCompleted}, "minimal\nfull")

	assert.Equal(t, "minimal\nfull\n", out.String())
	assert.Empty(t, errOut.String())
}

func TestReport_StructuredError(t *testing.T) {
	r, out, errOut := newTestReporter(ModeStructured, false, false)
	err := aixerrors.New(aixerrors.CodeAborted, `Operation "init" timed out after 1ms`,
		aixerrors.WithContext(map[string]any{"reason": "timeout", "timeoutMs": int64(1)}))

	r.Report(failed(err), "")

	assert.Empty(t, out.String())
	entries := decodeLines(t, errOut)
	require.Len(t, entries, 1)
	e := entries[0]

	assert.Equal(t, "error", e["level"])
	assert.Equal(t, `Operation "init" timed out after 1ms`, e["message"])
	assert.Equal(t, "op-123", e["operationId"])
	assert.Equal(t, "AIX-GEN-003", e["code"])
	assert.Equal(t, float64(1), e["exitCode"])
	assert.NotEmpty(t, e["timestamp"])
	ctx, ok := e["context"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "timeout", ctx["reason"])
	assert.NotContains(t, e, "stack")
	assert.NotContains(t, errOut.String(), "Error [", "no human text in structured mode")
}

func TestReport_StructuredSanitizesContext(t *testing.T) {
	t.Setenv("HOME", "/home/dev")
	r, _, errOut := newTestReporter(ModeStructured, false, false)
	err := aixerrors.New(aixerrors.CodePermissionDenied, "", aixerrors.WithField("path", "/home/dev/project/CLAUDE.md"))

	r.Report(failed(err), "")

	entries := decodeLines(t, errOut)
	require.Len(t, entries, 1)
	assert.Equal(t, "~/project/CLAUDE.md", entries[0]["context"].(map[string]any)["path"])
	assert.Equal(t, "/home/dev/project/CLAUDE.md", err.Context()["path"], "the error keeps the full path")
}

func TestReport_StructuredSuccess(t *testing.T) {
	r, out, errOut := newTestReporter(ModeStructured, false, false)

	r.Report(supervisor.Summary{Name: "presets", State: supervisor.StateCompleted, OperationID: "op-9", Elapsed: time.Millisecond}, "minimal")

	assert.Empty(t, out.String())
	entries := decodeLines(t, errOut)
	require.Len(t, entries, 1)
	assert.Equal(t, "info", entries[0]["level"])
	assert.Equal(t, "operation completed", entries[0]["message"])
	assert.Equal(t, "minimal", entries[0]["result"])
	assert.Equal(t, "op-9", entries[0]["operationId"])
}

func TestReport_StructuredEmbedsJSONResult(t *testing.T) {
	r, _, errOut := newTestReporter(ModeStructured, false, false)

	r.Report(supervisor.Summary{Name: "presets", State: supervisor.StateCompleted}, "{\n  \"count\": 2\n}")

	entries := decodeLines(t, errOut)
	require.Len(t, entries, 1)
	result, ok := entries[0]["result"].(map[string]any)
	require.True(t, ok, "result embedded as an object")
	assert.Equal(t, float64(2), result["count"])
}

func TestDebug_Gated(t *testing.T) {
	for _, mode := range []Mode{ModeHuman, ModeStructured} {
		r, _, errOut := newTestReporter(mode, false, false)
		r.Debug("hidden")
		assert.Empty(t, errOut.String(), "mode %s", mode)

		r, _, errOut = newTestReporter(mode, false, true)
		r.Debug("shown", "key", "value")
		assert.Contains(t, errOut.String(), "shown", "mode %s", mode)
	}
}

func TestLogger_CarriesOperationID(t *testing.T) {
	var errOut bytes.Buffer
	op := log.NewOperation()
	r := New(Options{Mode: ModeStructured, Err: &errOut, Operation: op})

	id := op.Start()
	r.Info("working")
	op.Clear()
	r.Warn("done")

	entries := decodeLines(t, &errOut)
	require.Len(t, entries, 2)
	assert.Equal(t, id, entries[0]["operationId"])
	assert.Equal(t, "info", entries[0]["level"])
	assert.NotContains(t, entries[1], "operationId")
	assert.Equal(t, "warn", entries[1]["level"])
}

func TestReportError_ClassifiesPlainErrors(t *testing.T) {
	r, _, errOut := newTestReporter(ModeHuman, false, false)

	r.ReportError(errors.New("boom"))
	r.ReportError(nil)

	assert.Equal(t, 1, strings.Count(errOut.String(), "Error ["))
	assert.Contains(t, errOut.String(), "AIX-GEN-002")
}

func TestNew_UnknownModeIsHuman(t *testing.T) {
	r := New(Options{Mode: "yaml"})
	assert.Equal(t, ModeHuman, r.Mode())
	assert.False(t, r.Structured())
}

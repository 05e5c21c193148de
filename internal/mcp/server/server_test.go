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
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/aix/internal/memory"
)

func newTestServer(t *testing.T, rateLimit int) (*Server, *memory.Metrics) {
	t.Helper()
	metrics := memory.NewMetrics()
	store, err := memory.Open(context.Background(), memory.Config{
		Path:    filepath.Join(t.TempDir(), "memory.db"),
		Metrics: metrics,
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	s, err := NewServer(ServerConfig{Version: "1.0.0", Project: "demo", Store: store, RateLimit: rateLimit, Metrics: metrics})
	require.NoError(t, err)
	return s, metrics
}

func request(name string, args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "content is %T", res.Content[0])
	return tc.Text
}

func TestNewServer_Defaults(t *testing.T) {
	s, _ := newTestServer(t, 0)
	assert.Equal(t, "aix-memory", s.name)
	assert.Equal(t, DefaultRateLimit, s.rateLimiter.PerMinute())

	_, err := NewServer(ServerConfig{})
	assert.Error(t, err, "store is required")
}

func TestTools_DecisionFlow(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestServer(t, 0)

	res, err := s.handleAddDecision(ctx, request(ToolAddDecision, map[string]any{
		"decision":  "Use SQLite",
		"rationale": "embedded",
	}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, "Decision recorded (id 1)", resultText(t, res))

	res, err = s.handleSearchDecisions(ctx, request(ToolSearchDecisions, map[string]any{"keyword": "sqlite"}))
	require.NoError(t, err)
	var decisions []memory.Decision
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &decisions))
	require.Len(t, decisions, 1)
	assert.Equal(t, "embedded", decisions[0].Rationale)

	res, err = s.handleSearchDecisions(ctx, request(ToolSearchDecisions, map[string]any{"keyword": "nothing"}))
	require.NoError(t, err)
	assert.Equal(t, "No decisions found.", resultText(t, res))
}

func TestTools_ContextAndPatterns(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestServer(t, 0)

	res, err := s.handleSetContext(ctx, request(ToolSetContext, map[string]any{"key": "lang", "value": "go"}))
	require.NoError(t, err)
	assert.False(t, res.IsError)

	res, err = s.handleGetContext(ctx, request(ToolGetContext, map[string]any{"key": "lang"}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"lang":"go"}`, resultText(t, res))

	res, err = s.handleGetContext(ctx, request(ToolGetContext, map[string]any{"key": "missing"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "AIX-MCP-602")

	res, err = s.handleUpsertPattern(ctx, request(ToolUpsertPattern, map[string]any{"name": "repo", "description": "data access"}))
	require.NoError(t, err)
	assert.False(t, res.IsError)

	res, err = s.handleGetPatterns(ctx, request(ToolGetPatterns, nil))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, res), `"name": "repo"`)
}

func TestTools_InvalidKey(t *testing.T) {
	s, _ := newTestServer(t, 0)

	res, err := s.handleSetContext(context.Background(), request(ToolSetContext, map[string]any{"key": "bad key", "value": "v"}))
	require.NoError(t, err, "tool failures are results, not protocol errors")
	assert.True(t, res.IsError)
	text := resultText(t, res)
	assert.Contains(t, text, "Error [AIX-VAL-203]")
	assert.Contains(t, text, "Request ID: ")
}

func TestTools_RateLimited(t *testing.T) {
	ctx := context.Background()
	s, metrics := newTestServer(t, 2)

	for range 2 {
		res, err := s.handleGetPatterns(ctx, request(ToolGetPatterns, nil))
		require.NoError(t, err)
		assert.False(t, res.IsError)
	}

	res, err := s.handleGetPatterns(ctx, request(ToolGetPatterns, nil))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "AIX-MCP-603")

	// Monitoring and administrative tools still answer.
	res, err = s.handleStats(ctx, request(ToolStats, nil))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	res, err = s.handleExport(ctx, request(ToolExport, nil))
	require.NoError(t, err)
	assert.False(t, res.IsError)

	var buf bytes.Buffer
	require.NoError(t, metrics.WriteText(&buf))
	assert.Contains(t, buf.String(), "aix_memory_rate_limited_total 1")
}

func TestTools_Health(t *testing.T) {
	s, _ := newTestServer(t, 0)

	res, err := s.handleHealth(context.Background(), request(ToolHealth, nil))
	require.NoError(t, err)

	var h memory.Health
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &h))
	assert.Equal(t, memory.StatusHealthy, h.Status)
	assert.Contains(t, h.Checks, "rate_limiter")
}

func TestTools_ExportImport(t *testing.T) {
	ctx := context.Background()
	src, _ := newTestServer(t, 0)
	_, err := src.handleAddDecision(ctx, request(ToolAddDecision, map[string]any{"decision": "Use SQLite", "rationale": "embedded"}))
	require.NoError(t, err)
	_, err = src.handleSetContext(ctx, request(ToolSetContext, map[string]any{"key": "lang", "value": "go"}))
	require.NoError(t, err)

	res, err := src.handleExport(ctx, request(ToolExport, nil))
	require.NoError(t, err)
	exported := resultText(t, res)
	var exp memory.Export
	require.NoError(t, json.Unmarshal([]byte(exported), &exp))
	assert.Equal(t, "demo", exp.Project)
	assert.Len(t, exp.Data.Decisions, 1)

	dst, _ := newTestServer(t, 0)
	_, err = dst.handleSetContext(ctx, request(ToolSetContext, map[string]any{"key": "editor", "value": "vim"}))
	require.NoError(t, err)

	res, err = dst.handleImport(ctx, request(ToolImport, map[string]any{"data": exported}))
	require.NoError(t, err)
	assert.Equal(t, "Imported 1 decisions, 0 patterns, 1 context keys (merge)", resultText(t, res))

	res, err = dst.handleGetContext(ctx, request(ToolGetContext, nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"editor":"vim","lang":"go"}`, resultText(t, res))

	res, err = dst.handleImport(ctx, request(ToolImport, map[string]any{"data": exported, "merge": false}))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, res), "(replace)")
	res, err = dst.handleGetContext(ctx, request(ToolGetContext, nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"lang":"go"}`, resultText(t, res))

	res, err = dst.handleImport(ctx, request(ToolImport, map[string]any{"data": "{not json"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "Invalid import")
}

func TestTools_PurgeNeedsToken(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestServer(t, 0)
	_, err := s.handleSetContext(ctx, request(ToolSetContext, map[string]any{"key": "lang", "value": "go"}))
	require.NoError(t, err)

	res, err := s.handlePurge(ctx, request(ToolPurge, map[string]any{"confirm": "PURGE-GUESS"}))
	require.NoError(t, err)
	assert.True(t, res.IsError, "no request pending")

	res, err = s.handlePurge(ctx, request(ToolPurge, nil))
	require.NoError(t, err)
	token := regexp.MustCompile(`PURGE-[0-9A-F]{32}`).FindString(resultText(t, res))
	require.NotEmpty(t, token)

	res, err = s.handleGetContext(ctx, request(ToolGetContext, map[string]any{"key": "lang"}))
	require.NoError(t, err)
	assert.False(t, res.IsError, "the first call deletes nothing")

	res, err = s.handlePurge(ctx, request(ToolPurge, map[string]any{"confirm": token}))
	require.NoError(t, err)
	assert.Equal(t, "Purged 0 decisions, 0 patterns, 1 context keys", resultText(t, res))

	res, err = s.handlePurge(ctx, request(ToolPurge, map[string]any{"confirm": token}))
	require.NoError(t, err)
	assert.True(t, res.IsError, "tokens are single use")
}

func TestCall_PlainErrorsBecomeToolFailures(t *testing.T) {
	s, _ := newTestServer(t, 0)

	res, err := s.call(context.Background(), request("memory_custom", nil), func() (string, error) {
		return "", errors.New("boom")
	})
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "Error [AIX-MCP-602]: Tool memory_custom failed")
}

func TestRun_StopsOnCancel(t *testing.T) {
	s, _ := newTestServer(t, 0)

	ctx, cancel := context.WithCancel(context.Background())
	pr, pw := io.Pipe()
	defer pw.Close()

	done := make(chan error, 1)
	go func() {
		var out bytes.Buffer
		done <- s.Run(ctx, pr, &out)
	}()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after cancellation")
	}
}

func TestRun_InitializeOverStdio(t *testing.T) {
	s, _ := newTestServer(t, 0)

	in := strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"test","version":"1"}}}` + "\n")
	var out syncBuffer

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Run(ctx, in, &out))

	assert.Contains(t, out.String(), `"serverInfo"`)
	assert.Contains(t, out.String(), `"aix-memory"`)
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(3)
	assert.Equal(t, 3, rl.Available())
	assert.True(t, rl.Allow())
	assert.True(t, rl.Allow())
	assert.True(t, rl.Allow())
	assert.False(t, rl.Allow())
	assert.Equal(t, 0, rl.Available())

	assert.Equal(t, DefaultRateLimit, NewRateLimiter(0).PerMinute())
}

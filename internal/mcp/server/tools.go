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
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/tombee/aix/internal/memory"
	aixerrors "github.com/tombee/aix/pkg/errors"
)

// Tool names.
const (
	ToolAddDecision     = "memory_add_decision"
	ToolSearchDecisions = "memory_search_decisions"
	ToolUpsertPattern   = "memory_upsert_pattern"
	ToolGetPatterns     = "memory_get_patterns"
	ToolSetContext      = "memory_set_context"
	ToolGetContext      = "memory_get_context"
	ToolStats           = "memory_stats"
	ToolHealth          = "memory_health"
	ToolExport          = "memory_export"
	ToolImport          = "memory_import"
	ToolPurge           = "memory_purge"
)

// rateLimitExempt lists the administrative and monitoring tools that do
// not draw from the per-minute budget.
var rateLimitExempt = map[string]bool{
	ToolStats:  true,
	ToolHealth: true,
	ToolExport: true,
	ToolImport: true,
	ToolPurge:  true,
}

// rateLimiterWarning is the utilization above which memory_health
// reports degraded.
const rateLimiterWarning = 0.8

// registerTools registers all memory tools with the MCP server
func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool(ToolAddDecision,
		mcp.WithDescription("Record an architectural or technical decision with its rationale."),
		mcp.WithString("decision", mcp.Required(), mcp.Description("The decision that was made")),
		mcp.WithString("rationale", mcp.Required(), mcp.Description("Why the decision was made")),
		mcp.WithString("context", mcp.Description("What prompted the decision")),
		mcp.WithString("alternatives", mcp.Description("Alternatives that were considered")),
	), s.handleAddDecision)

	s.mcpServer.AddTool(mcp.NewTool(ToolSearchDecisions,
		mcp.WithDescription("Retrieve past decisions, optionally filtered by keyword. Useful for understanding why things are the way they are."),
		mcp.WithString("keyword", mcp.Description("Matched literally against decision, rationale and context")),
		mcp.WithNumber("limit", mcp.Description("Maximum results (default 20, maximum 100)")),
	), s.handleSearchDecisions)

	s.mcpServer.AddTool(mcp.NewTool(ToolUpsertPattern,
		mcp.WithDescription("Create or update a named code pattern used in this project."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Pattern name: letters, digits, '_', '-' and '.'")),
		mcp.WithString("description", mcp.Required(), mcp.Description("What the pattern is")),
		mcp.WithString("example", mcp.Description("A short code example")),
		mcp.WithString("when_to_use", mcp.Description("When the pattern applies")),
	), s.handleUpsertPattern)

	s.mcpServer.AddTool(mcp.NewTool(ToolGetPatterns,
		mcp.WithDescription("List every stored code pattern."),
	), s.handleGetPatterns)

	s.mcpServer.AddTool(mcp.NewTool(ToolSetContext,
		mcp.WithDescription("Store a project context value under a key."),
		mcp.WithString("key", mcp.Required(), mcp.Description("Context key: letters, digits, '_', '-' and '.'")),
		mcp.WithString("value", mcp.Required(), mcp.Description("Context value")),
	), s.handleSetContext)

	s.mcpServer.AddTool(mcp.NewTool(ToolGetContext,
		mcp.WithDescription("Read project context. Returns every key unless one is given."),
		mcp.WithString("key", mcp.Description("Return only this key")),
	), s.handleGetContext)

	s.mcpServer.AddTool(mcp.NewTool(ToolStats,
		mcp.WithDescription("Report how many decisions, patterns and context keys are stored."),
	), s.handleStats)

	s.mcpServer.AddTool(mcp.NewTool(ToolHealth,
		mcp.WithDescription("Check database connectivity, integrity, capacity and rate limiting."),
	), s.handleHealth)

	s.mcpServer.AddTool(mcp.NewTool(ToolExport,
		mcp.WithDescription("Export all stored memory as JSON for backup or portability."),
	), s.handleExport)

	s.mcpServer.AddTool(mcp.NewTool(ToolImport,
		mcp.WithDescription("Import memory from a JSON document produced by memory_export."),
		mcp.WithString("data", mcp.Required(), mcp.Description("The exported JSON document")),
		mcp.WithBoolean("merge", mcp.Description("Merge with existing data (default true); false replaces everything")),
	), s.handleImport)

	s.mcpServer.AddTool(mcp.NewTool(ToolPurge,
		mcp.WithDescription("Delete ALL stored memory. The first call returns a token; a second call with that token confirms the deletion."),
		mcp.WithString("confirm", mcp.Description("Token from the first call. Omit to start a purge.")),
	), s.handlePurge)
}

func (s *Server) handleAddDecision(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.call(ctx, req, func() (string, error) {
		id, err := s.store.AddDecision(ctx, memory.Decision{
			Decision:     req.GetString("decision", ""),
			Rationale:    req.GetString("rationale", ""),
			Context:      req.GetString("context", ""),
			Alternatives: req.GetString("alternatives", ""),
		})
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Decision recorded (id %d)", id), nil
	})
}

func (s *Server) handleSearchDecisions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.call(ctx, req, func() (string, error) {
		decisions, err := s.store.SearchDecisions(ctx, req.GetString("keyword", ""), req.GetInt("limit", memory.DefaultSearchLimit))
		if err != nil {
			return "", err
		}
		if len(decisions) == 0 {
			return "No decisions found.", nil
		}
		return toJSON(decisions)
	})
}

func (s *Server) handleUpsertPattern(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.call(ctx, req, func() (string, error) {
		name := req.GetString("name", "")
		err := s.store.UpsertPattern(ctx, memory.Pattern{
			Name:        name,
			Description: req.GetString("description", ""),
			Example:     req.GetString("example", ""),
			WhenToUse:   req.GetString("when_to_use", ""),
		})
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Pattern %q saved", name), nil
	})
}

func (s *Server) handleGetPatterns(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.call(ctx, req, func() (string, error) {
		patterns, err := s.store.Patterns(ctx)
		if err != nil {
			return "", err
		}
		if len(patterns) == 0 {
			return "No patterns stored.", nil
		}
		return toJSON(patterns)
	})
}

func (s *Server) handleSetContext(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.call(ctx, req, func() (string, error) {
		key := req.GetString("key", "")
		if err := s.store.SetContext(ctx, key, req.GetString("value", "")); err != nil {
			return "", err
		}
		return fmt.Sprintf("Context %q set", key), nil
	})
}

func (s *Server) handleGetContext(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.call(ctx, req, func() (string, error) {
		key := req.GetString("key", "")
		if key != "" {
			if err := memory.CheckKey("key", key); err != nil {
				return "", err
			}
		}
		kv, err := s.store.Context(ctx)
		if err != nil {
			return "", err
		}
		if key == "" {
			return toJSON(kv)
		}
		value, ok := kv[key]
		if !ok {
			return "", aixerrors.New(aixerrors.CodeToolFailed,
				fmt.Sprintf("Context key %q is not set", key),
				aixerrors.WithField("key", key))
		}
		return toJSON(map[string]string{key: value})
	})
}

func (s *Server) handleStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.call(ctx, req, func() (string, error) {
		st, err := s.store.Stats(ctx)
		if err != nil {
			return "", err
		}
		return toJSON(st)
	})
}

func (s *Server) handleHealth(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.call(ctx, req, func() (string, error) {
		h, err := s.store.Health(ctx)
		if err != nil {
			return "", err
		}

		limiter := map[string]any{
			"max_per_minute": s.rateLimiter.PerMinute(),
			"available":      s.rateLimiter.Available(),
		}
		used := 1 - float64(s.rateLimiter.Available())/float64(s.rateLimiter.PerMinute())
		if used > rateLimiterWarning {
			limiter["warning"] = fmt.Sprintf("Rate limit %.0f%% utilized", used*100)
			if h.Status == memory.StatusHealthy {
				h.Status = memory.StatusDegraded
			}
		}
		h.Checks["rate_limiter"] = limiter
		return toJSON(h)
	})
}

func (s *Server) handleExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.call(ctx, req, func() (string, error) {
		exp, err := s.store.Export(ctx, s.project)
		if err != nil {
			return "", err
		}
		return toJSON(exp)
	})
}

func (s *Server) handleImport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.call(ctx, req, func() (string, error) {
		exp, err := memory.DecodeExport(strings.NewReader(req.GetString("data", "")))
		if err != nil {
			return "", err
		}
		merge := req.GetBool("merge", true)
		stats, err := s.store.Import(ctx, exp, !merge)
		if err != nil {
			return "", err
		}

		mode := "merge"
		if !merge {
			mode = "replace"
		}
		msg := fmt.Sprintf("Imported %d decisions, %d patterns, %d context keys (%s)",
			stats.Decisions, stats.Patterns, stats.Context, mode)
		if stats.Skipped > 0 {
			msg += fmt.Sprintf("; %d invalid entries skipped", stats.Skipped)
		}
		return msg, nil
	})
}

func (s *Server) handlePurge(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.call(ctx, req, func() (string, error) {
		token := req.GetString("confirm", "")
		if token == "" {
			pr, err := s.store.RequestPurge(ctx)
			if err != nil {
				return "", err
			}
			s.logger.Warn("memory purge requested")
			return fmt.Sprintf("This permanently deletes ALL decisions, patterns and context keys.\n"+
				"To confirm, call %s with confirm=%q within %d seconds.",
				ToolPurge, pr.Token, int(pr.ExpiresIn.Seconds())), nil
		}

		st, err := s.store.ConfirmPurge(ctx, token)
		if err != nil {
			return "", err
		}
		s.logger.Warn("memory purged",
			"decisions", st.Decisions, "patterns", st.Patterns, "contextKeys", st.ContextKeys)
		return fmt.Sprintf("Purged %d decisions, %d patterns, %d context keys",
			st.Decisions, st.Patterns, st.ContextKeys), nil
	})
}

func toJSON(v any) (string, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode result: %w", err)
	}
	return string(b), nil
}

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
// Package server implements an MCP server that exposes the project
// memory as tools over stdio.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/tombee/aix/internal/log"
	"github.com/tombee/aix/internal/memory"
	aixerrors "github.com/tombee/aix/pkg/errors"
)

// Store is the project memory the tools operate on.
type Store interface {
	AddDecision(ctx context.Context, d memory.Decision) (int64, error)
	SearchDecisions(ctx context.Context, keyword string, limit int) ([]memory.Decision, error)
	UpsertPattern(ctx context.Context, p memory.Pattern) error
	Patterns(ctx context.Context) ([]memory.Pattern, error)
	SetContext(ctx context.Context, key, value string) error
	Context(ctx context.Context) (map[string]string, error)
	Stats(ctx context.Context) (memory.Stats, error)
	Health(ctx context.Context) (memory.Health, error)
	Export(ctx context.Context, project string) (*memory.Export, error)
	Import(ctx context.Context, exp *memory.Export, replace bool) (memory.ImportStats, error)
	RequestPurge(ctx context.Context) (memory.PurgeRequest, error)
	ConfirmPurge(ctx context.Context, token string) (memory.PurgeStats, error)
}

// Server wraps the MCP server and provides the memory tools
type Server struct {
	mcpServer   *server.MCPServer
	name        string
	version     string
	project     string
	store       Store
	rateLimiter *RateLimiter
	metrics     *memory.Metrics
	logger      *slog.Logger
	calls       *log.ToolLogger
}

// ServerConfig configures the MCP server
type ServerConfig struct {
	// Name is the server name (default: "aix-memory")
	Name string

	// Version is the aix version
	Version string

	// Project labels exported memory. Optional.
	Project string

	// Store backs every tool. Required.
	Store Store

	// RateLimit is the maximum tool calls per minute (default: 100)
	RateLimit int

	// Metrics counts rate-limited calls. Optional.
	Metrics *memory.Metrics

	// Logger receives server and tool-call logs. It must not write to
	// stdout, which carries the protocol. Optional.
	Logger *slog.Logger
}

// DefaultRateLimit is the default number of tool calls allowed per minute.
const DefaultRateLimit = 100

// NewServer creates a new MCP server instance
func NewServer(config ServerConfig) (*Server, error) {
	if config.Store == nil {
		return nil, errors.New("memory store is required")
	}
	if config.Name == "" {
		config.Name = "aix-memory"
	}
	if config.Version == "" {
		config.Version = "dev"
	}
	if config.RateLimit <= 0 {
		config.RateLimit = DefaultRateLimit
	}
	logger := config.Logger
	if logger == nil {
		logger = log.Discard()
	}
	logger = log.WithComponent(logger, "mcp")

	s := &Server{
		mcpServer: server.NewMCPServer(config.Name, config.Version,
			server.WithToolCapabilities(false),
			server.WithRecovery(),
		),
		name:        config.Name,
		version:     config.Version,
		project:     config.Project,
		store:       config.Store,
		rateLimiter: NewRateLimiter(config.RateLimit),
		metrics:     config.Metrics,
		logger:      logger,
		calls:       log.NewToolLogger(logger),
	}

	s.registerTools()
	return s, nil
}

// Run serves the protocol on in/out until ctx is cancelled or the client
// closes the stream.
func (s *Server) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	s.logger.Info("starting MCP server", slog.String("version", s.version), slog.String("name", s.name))

	stdio := server.NewStdioServer(s.mcpServer)
	stdio.SetErrorLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelError))

	err := stdio.Listen(ctx, in, out)
	switch {
	case err == nil, errors.Is(err, io.EOF):
		s.logger.Info("MCP client disconnected")
		return nil
	case ctx.Err() != nil:
		s.logger.Info("shutting down MCP server")
		return ctx.Err()
	default:
		return aixerrors.New(aixerrors.CodeServerFailed, "", aixerrors.WithCause(err))
	}
}

// call wraps one tool invocation with rate limiting, logging and error
// rendering. fn returns the text result.
func (s *Server) call(ctx context.Context, req mcp.CallToolRequest, fn func() (string, error)) (*mcp.CallToolResult, error) {
	requestID := newRequestID()

	if !rateLimitExempt[req.Params.Name] && !s.rateLimiter.Allow() {
		s.metrics.RateLimited()
		ce := aixerrors.New(aixerrors.CodeRateLimited, "",
			aixerrors.WithField("limitPerMinute", s.rateLimiter.PerMinute()))
		s.logger.Warn("tool call rate limited", slog.String(log.ToolKey, req.Params.Name), slog.String("requestId", requestID))
		return errorResponse(ce, requestID), nil
	}

	var text string
	err := s.calls.Handle(ctx, log.ToolCall{Tool: req.Params.Name, RequestID: requestID}, func() error {
		var err error
		text, err = fn()
		return err
	})
	if err != nil {
		var ce *aixerrors.ClassifiedError
		if !errors.As(err, &ce) {
			ce = aixerrors.New(aixerrors.CodeToolFailed, fmt.Sprintf("Tool %s failed", req.Params.Name),
				aixerrors.WithCause(err))
		}
		return errorResponse(ce, requestID), nil
	}
	return textResponse(text), nil
}

// Helper function to create error response
func errorResponse(err *aixerrors.ClassifiedError, requestID string) *mcp.CallToolResult {
	return mcp.NewToolResultError(aixerrors.Format(err, false) + "\nRequest ID: " + requestID)
}

// Helper function to create success response
func textResponse(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(text),
		},
	}
}

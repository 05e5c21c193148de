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

package log

import (
	"context"
	"log/slog"
	"time"
)

// ToolCall describes an incoming MCP tool call for logging purposes.
type ToolCall struct {
	// Tool is the MCP tool name (e.g., "memory_add_decision").
	Tool string

	// RequestID is the protocol request id, when the client supplied one.
	RequestID string
}

// ToolLogger logs MCP tool calls as they arrive and complete.
type ToolLogger struct {
	logger *slog.Logger
}

// NewToolLogger creates a tool-call logger.
func NewToolLogger(logger *slog.Logger) *ToolLogger {
	if logger == nil {
		logger = Discard()
	}
	return &ToolLogger{logger: logger}
}

// Handle runs fn, logging the call at debug level on arrival and at info
// or error level on completion with its duration.
func (m *ToolLogger) Handle(ctx context.Context, call ToolCall, fn func() error) error {
	attrs := []any{ToolKey, call.Tool}
	if call.RequestID != "" {
		attrs = append(attrs, "requestId", call.RequestID)
	}

	m.logger.DebugContext(ctx, "tool call received", attrs...)

	start := time.Now()
	err := fn()
	attrs = append(attrs, Duration(time.Since(start)))

	if err != nil {
		attrs = append(attrs, Error(err))
		m.logger.ErrorContext(ctx, "tool call failed", attrs...)
		return err
	}

	m.logger.InfoContext(ctx, "tool call completed", attrs...)
	return nil
}

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

package errors

import (
	"errors"
	"fmt"
	"maps"
	"runtime"
	"strings"
	"time"
)

// ClassifiedError is the error type reported to users. It carries a
// stable catalog code, a category derived from the catalog, and
// diagnostic context captured at the raise site.
//
// Values are immutable once constructed; Context returns a copy.
type ClassifiedError struct {
	code        Code
	message     string
	category    Category
	timestamp   time.Time
	recoverable bool
	suggestion  string
	cause       error
	context     map[string]any
	stack       []uintptr
}

// Option customizes a ClassifiedError at construction.
type Option func(*ClassifiedError)

// WithCause attaches the lower-level error.
func WithCause(err error) Option {
	return func(e *ClassifiedError) { e.cause = err }
}

// WithSuggestion overrides the catalog suggestion.
func WithSuggestion(s string) Option {
	return func(e *ClassifiedError) { e.suggestion = s }
}

// WithRecoverable overrides the catalog recoverable flag.
func WithRecoverable(r bool) Option {
	return func(e *ClassifiedError) { e.recoverable = r }
}

// WithContext merges diagnostic key/value pairs into the error context.
func WithContext(ctx map[string]any) Option {
	return func(e *ClassifiedError) {
		if len(ctx) == 0 {
			return
		}
		if e.context == nil {
			e.context = make(map[string]any, len(ctx))
		}
		maps.Copy(e.context, ctx)
	}
}

// WithField adds a single diagnostic key/value pair.
func WithField(key string, value any) Option {
	return WithContext(map[string]any{key: value})
}

// New creates a ClassifiedError for code. An empty message selects the
// catalog description. Codes missing from the catalog keep the requested
// code but take the unknown-error category and suggestion.
func New(code Code, message string, opts ...Option) *ClassifiedError {
	entry := resolve(code)
	if message == "" {
		message = entry.Description
	}

	e := &ClassifiedError{
		code:        code,
		message:     message,
		category:    entry.Category,
		timestamp:   time.Now(),
		recoverable: entry.Recoverable,
		suggestion:  entry.Suggestion,
	}
	for _, opt := range opts {
		opt(e)
	}

	pcs := make([]uintptr, 32)
	n := runtime.Callers(2, pcs)
	e.stack = pcs[:n]

	return e
}

// Newf is New with a formatted message.
func Newf(code Code, format string, args ...any) *ClassifiedError {
	return New(code, fmt.Sprintf(format, args...))
}

// Classify returns err as a ClassifiedError. A ClassifiedError anywhere in
// the chain is returned as is; anything else is wrapped exactly once as
// CodeUnexpected with the original message preserved in context. A
// UserVisibleError keeps its own message and suggestion.
func Classify(err error) *ClassifiedError {
	if err == nil {
		return nil
	}
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce
	}
	opts := []Option{WithCause(err), WithField("originalError", err.Error())}
	msg := err.Error()
	var uv UserVisibleError
	if errors.As(err, &uv) && uv.IsUserVisible() {
		msg = uv.UserMessage()
		if s := uv.Suggestion(); s != "" {
			opts = append(opts, WithSuggestion(s))
		}
	}
	return New(CodeUnexpected, msg, opts...)
}

// Error implements the error interface.
func (e *ClassifiedError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.code, e.message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *ClassifiedError) Unwrap() error {
	return e.cause
}

// Is matches another ClassifiedError with the same code.
func (e *ClassifiedError) Is(target error) bool {
	t, ok := target.(*ClassifiedError)
	return ok && t.code == e.code
}

func (e *ClassifiedError) Code() Code           { return e.code }
func (e *ClassifiedError) Message() string      { return e.message }
func (e *ClassifiedError) Category() Category   { return e.category }
func (e *ClassifiedError) Timestamp() time.Time { return e.timestamp }
func (e *ClassifiedError) Recoverable() bool    { return e.recoverable }
func (e *ClassifiedError) Cause() error         { return e.cause }
func (e *ClassifiedError) ExitCode() int        { return ExitCodeFor(e.code) }
func (e *ClassifiedError) Suggestion() string   { return e.suggestion }
func (e *ClassifiedError) UserMessage() string  { return e.message }
func (e *ClassifiedError) IsUserVisible() bool  { return true }
func (e *ClassifiedError) ErrorType() string    { return string(e.category) }
func (e *ClassifiedError) IsRetryable() bool    { return e.recoverable }

// Context returns a copy of the diagnostic context, or nil when empty.
// Values are unsanitized; use ToJSON or sanitize.Context before display.
func (e *ClassifiedError) Context() map[string]any {
	if e.context == nil {
		return nil
	}
	return maps.Clone(e.context)
}

// Stack returns the construction-site stack trace.
func (e *ClassifiedError) Stack() string {
	if len(e.stack) == 0 {
		return ""
	}
	var b strings.Builder
	frames := runtime.CallersFrames(e.stack)
	for {
		f, more := frames.Next()
		fmt.Fprintf(&b, "%s\n\t%s:%d\n", f.Function, f.File, f.Line)
		if !more {
			break
		}
	}
	return b.String()
}

var (
	_ UserVisibleError = (*ClassifiedError)(nil)
	_ ErrorClassifier  = (*ClassifiedError)(nil)
)

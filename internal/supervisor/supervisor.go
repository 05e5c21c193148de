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

// Package supervisor runs one command handler under a deadline and an
// abort trigger and turns whatever happens into exactly one Outcome.
//
// Cancellation is cooperative. Handlers receive a context that is
// cancelled when the invocation's Token fires and should return promptly
// when it is; a handler that ignores it keeps running in the background
// after the supervisor has already reported TimedOut or Aborted.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/tombee/aix/internal/log"
	"github.com/tombee/aix/internal/validate"
	aixerrors "github.com/tombee/aix/pkg/errors"
)

// Handler is a supervised unit of work.
type Handler[T any] func(ctx context.Context, opts validate.Options) (T, error)

// Config describes one invocation.
type Config struct {
	// Name identifies the operation in errors, logs and spans.
	Name string

	// Timeout is the deadline measured from Start. Zero or negative
	// times out immediately unless NoDeadline is set.
	Timeout time.Duration

	// NoDeadline disables the deadline trigger, leaving the abort
	// trigger as the only cancellation source.
	NoDeadline bool

	// Operation receives the correlation id for the invocation's
	// lifetime. Optional.
	Operation *log.Operation

	// Logger receives debug lifecycle lines. Optional.
	Logger *slog.Logger

	// Tracer records one span per invocation. Optional.
	Tracer trace.Tracer
}

// Invocation is the supervision state of a single handler run.
type Invocation struct {
	name       string
	timeout    time.Duration
	noDeadline bool

	token   *Token
	op      *log.Operation
	id      string
	logger  *slog.Logger
	span    trace.Span
	ctx     context.Context
	started time.Time

	state atomic.Int32
	ran   atomic.Bool

	mu           sync.Mutex
	timer        *time.Timer
	stopParent   func() bool
	stopListener func() bool

	cleanup sync.Once
}

// Start creates the invocation's token, arms its deadline and links
// cancellation of parent to the token's abort trigger. The caller must
// call Cleanup.
func Start(parent context.Context, cfg Config) *Invocation {
	started := time.Now()

	var deadline time.Time
	if !cfg.NoDeadline {
		deadline = started.Add(cfg.Timeout)
	}

	inv := &Invocation{
		name:       cfg.Name,
		timeout:    cfg.Timeout,
		noDeadline: cfg.NoDeadline,
		token:      NewToken(parent, deadline),
		op:         cfg.Operation,
		started:    started,
	}
	inv.id = inv.op.Start()

	logger := cfg.Logger
	if logger == nil {
		logger = log.Discard()
	}
	inv.logger = logger.With(
		slog.String(log.OperationKey, inv.name),
		slog.String(log.OperationIDKey, inv.id),
	)

	tracer := cfg.Tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("")
	}
	ctx, span := tracer.Start(inv.token.Context(), "aix."+inv.name,
		trace.WithAttributes(
			attribute.String("aix.operation", inv.name),
			attribute.String("aix.operation_id", inv.id),
			attribute.Int64("aix.timeout_ms", inv.timeout.Milliseconds()),
		),
	)
	inv.span = span
	inv.ctx = log.WithOperationID(log.NewContext(withToken(ctx, inv.token), inv.logger), inv.id)

	if !cfg.NoDeadline {
		if cfg.Timeout <= 0 {
			inv.token.Signal(ReasonTimeout)
		} else {
			inv.timer = time.AfterFunc(cfg.Timeout, func() {
				inv.token.Signal(ReasonTimeout)
			})
		}
	}

	if parent.Err() != nil {
		inv.token.Abort()
	}
	inv.stopParent = context.AfterFunc(parent, func() {
		inv.token.Abort()
	})

	inv.logger.Debug("operation started", slog.Int64("timeoutMs", inv.timeout.Milliseconds()))
	return inv
}

// Token returns the invocation's merged cancellation token.
func (inv *Invocation) Token() *Token {
	return inv.token
}

// State returns the current lifecycle state.
func (inv *Invocation) State() State {
	return State(inv.state.Load())
}

// OperationID returns the correlation id assigned at Start.
func (inv *Invocation) OperationID() string {
	return inv.id
}

// Run invokes h once and waits for the first of: h returning, h
// panicking, or the token firing. Only the first result counts. Once h
// has returned a value or an error of its own, a later signal does not
// replace it; an error that merely reports the cancellation defers to
// the token's reason. Run may
// be called at most once per invocation; later calls report Aborted
// without invoking h or touching the token.
func Run[T any](inv *Invocation, h Handler[T], opts validate.Options) Outcome[T] {
	type settled struct {
		value T
		err   error
		state State
	}

	if !inv.ran.CompareAndSwap(false, true) {
		return Outcome[T]{
			Name:        inv.name,
			State:       StateAborted,
			Err:         inv.abortError(ReasonAborted),
			OperationID: inv.id,
			Elapsed:     time.Since(inv.started),
		}
	}

	result := make(chan settled, 1)
	var once sync.Once
	settle := func(s settled) {
		once.Do(func() { result <- s })
	}
	abort := func() {
		settle(settled{state: stateFor(inv.token.Reason())})
	}

	// Set as soon as h returns; from then on h's own result settles Run.
	var returned atomic.Bool

	// The listener is attached before the token is checked and before h
	// starts, so a signal can not land in between unobserved.
	inv.mu.Lock()
	inv.stopListener = context.AfterFunc(inv.token.Context(), func() {
		if !returned.Load() {
			abort()
		}
	})
	inv.mu.Unlock()

	if inv.token.Signaled() {
		abort()
	} else {
		inv.state.Store(int32(StateRunning))
		go func() {
			defer func() {
				if r := recover(); r != nil {
					settle(settled{err: panicError(inv.name, r), state: StateFailed})
				}
			}()

			v, err := h(inv.ctx, opts)
			returned.Store(true)
			handlerReturned(inv)
			switch {
			case err == nil:
				settle(settled{value: v, state: StateCompleted})
			case inv.token.Signaled() && cancelled(err):
				abort()
			default:
				settle(settled{err: err, state: StateFailed})
			}
		}()
	}

	s := <-result

	if s.state == StateTimedOut || s.state == StateAborted {
		// Record the manual trigger as fired. The first reason stays.
		inv.token.Abort()
	}
	inv.state.Store(int32(s.state))

	out := Outcome[T]{
		Name:        inv.name,
		State:       s.state,
		OperationID: inv.id,
		Elapsed:     time.Since(inv.started),
	}
	switch s.state {
	case StateCompleted:
		out.Value = s.value
	case StateTimedOut:
		out.Err = inv.abortError(ReasonTimeout)
	case StateAborted:
		out.Err = inv.abortError(ReasonAborted)
	default:
		out.Err = aixerrors.Classify(s.err)
	}

	inv.record(out.Summary())
	return out
}

// handlerReturned runs between a handler returning and its result being
// settled. Tests replace it to land a signal in that gap.
var handlerReturned = func(*Invocation) {}

// cancelled reports whether err is the handler giving up because its
// token fired, as opposed to a failure of its own.
func cancelled(err error) bool {
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, ErrTimedOut) ||
		errors.Is(err, ErrAborted)
}

func (inv *Invocation) abortError(r Reason) *aixerrors.ClassifiedError {
	ms := inv.timeout.Milliseconds()

	var msg string
	switch {
	case r == ReasonTimeout:
		msg = fmt.Sprintf("Operation %q timed out after %dms", inv.name, ms)
	case inv.noDeadline:
		msg = fmt.Sprintf("Operation %q was aborted before completing", inv.name)
	default:
		msg = fmt.Sprintf("Operation %q was aborted before completing (timeout %dms)", inv.name, ms)
	}

	ctx := map[string]any{
		"reason":    r.String(),
		"operation": inv.name,
	}
	if !inv.noDeadline {
		ctx["timeoutMs"] = ms
	}
	return aixerrors.New(aixerrors.CodeAborted, msg, aixerrors.WithContext(ctx))
}

func panicError(name string, r any) *aixerrors.ClassifiedError {
	opts := []aixerrors.Option{
		aixerrors.WithContext(map[string]any{
			"operation": name,
			"panic":     fmt.Sprint(r),
			"stack":     string(debug.Stack()),
		}),
	}
	if err, ok := r.(error); ok {
		opts = append(opts, aixerrors.WithCause(err))
	}
	return aixerrors.New(aixerrors.CodeUnexpected,
		fmt.Sprintf("Operation %q panicked: %v", name, r), opts...)
}

func (inv *Invocation) record(s Summary) {
	inv.span.SetAttributes(attribute.String("aix.state", s.State.String()))
	attrs := []any{slog.String("state", s.State.String()), log.Duration(s.Elapsed)}

	if s.Err != nil {
		inv.span.RecordError(s.Err)
		inv.span.SetStatus(codes.Error, string(s.Err.Code()))
		attrs = append(attrs, slog.String(log.CodeKey, string(s.Err.Code())))
	} else {
		inv.span.SetStatus(codes.Ok, "")
	}

	inv.logger.Debug("operation finished", attrs...)
}

// Cleanup releases everything Start acquired: it stops the cancellation
// listeners, then the deadline timer, then clears the correlation id.
// Only the first call has any effect.
func (inv *Invocation) Cleanup() {
	inv.cleanup.Do(func() {
		inv.mu.Lock()
		if inv.stopListener != nil {
			inv.stopListener()
		}
		if inv.stopParent != nil {
			inv.stopParent()
		}
		if inv.timer != nil {
			inv.timer.Stop()
		}
		inv.mu.Unlock()

		inv.token.release()
		inv.op.Clear()
		inv.span.End()
	})
}

// Supervise runs h under cfg and always cleans up before returning.
func Supervise[T any](ctx context.Context, h Handler[T], opts validate.Options, cfg Config) Outcome[T] {
	inv := Start(ctx, cfg)
	defer inv.Cleanup()
	return Run(inv, h, opts)
}

// WithDeadline wraps h so every call is supervised with timeout. The
// wrapped handler returns the Outcome's value or its classified error.
func WithDeadline[T any](h Handler[T], name string, timeout time.Duration) Handler[T] {
	return func(ctx context.Context, opts validate.Options) (T, error) {
		out := Supervise(ctx, h, opts, Config{Name: name, Timeout: timeout})
		if out.Err != nil {
			var zero T
			return zero, out.Err
		}
		return out.Value, nil
	}
}

// Cause reports why ctx was cancelled by a supervisor: ErrTimedOut,
// ErrAborted, or nil when ctx is not a supervised context or has not
// been signaled.
func Cause(ctx context.Context) error {
	err := context.Cause(ctx)
	if errors.Is(err, ErrTimedOut) || errors.Is(err, ErrAborted) {
		return err
	}
	return nil
}

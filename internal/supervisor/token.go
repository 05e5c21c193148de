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

package supervisor

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Reason records why a Token was signaled.
type Reason int

const (
	// ReasonNone means the token is still active.
	ReasonNone Reason = iota
	// ReasonTimeout means the deadline trigger fired.
	ReasonTimeout
	// ReasonAborted means the manual abort trigger fired.
	ReasonAborted
)

// String returns the lowercase reason name used in error context.
func (r Reason) String() string {
	switch r {
	case ReasonTimeout:
		return "timeout"
	case ReasonAborted:
		return "aborted"
	default:
		return "none"
	}
}

var (
	// ErrTimedOut is the context cause once a Token times out.
	ErrTimedOut = errors.New("operation timed out")
	// ErrAborted is the context cause once a Token is aborted.
	ErrAborted = errors.New("operation aborted")
)

func (r Reason) cause() error {
	if r == ReasonTimeout {
		return ErrTimedOut
	}
	return ErrAborted
}

// Token merges the deadline and manual abort triggers of one invocation.
// It moves from active to signaled once and never back; the first
// trigger's reason is the only one it ever reports.
type Token struct {
	ctx    context.Context
	cancel context.CancelCauseFunc

	deadline time.Time
	now      func() time.Time

	mu     sync.Mutex
	reason Reason
}

// NewToken returns an active token whose context inherits values, but not
// cancellation, from parent. A zero deadline means no deadline.
func NewToken(parent context.Context, deadline time.Time) *Token {
	ctx, cancel := context.WithCancelCause(context.WithoutCancel(parent))
	return &Token{
		ctx:      ctx,
		cancel:   cancel,
		deadline: deadline,
		now:      time.Now,
	}
}

// Signal moves the token to signaled with reason and reports whether this
// call did so. Later calls are no-ops. An abort that arrives once the
// deadline has already passed is recorded as a timeout, so a deadline and
// an abort landing together always resolve the same way.
func (t *Token) Signal(reason Reason) bool {
	if reason == ReasonNone {
		return false
	}

	t.mu.Lock()
	if t.reason != ReasonNone {
		t.mu.Unlock()
		return false
	}
	if reason == ReasonAborted && !t.deadline.IsZero() && !t.now().Before(t.deadline) {
		reason = ReasonTimeout
	}
	t.reason = reason
	t.mu.Unlock()

	t.cancel(reason.cause())
	return true
}

// Abort fires the manual trigger.
func (t *Token) Abort() bool {
	return t.Signal(ReasonAborted)
}

// Reason returns the recorded reason, ReasonNone while active.
func (t *Token) Reason() Reason {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.reason
}

// Signaled reports whether the token has fired.
func (t *Token) Signaled() bool {
	return t.Reason() != ReasonNone
}

// Done is closed once the token is signaled.
func (t *Token) Done() <-chan struct{} {
	return t.ctx.Done()
}

// Context returns the context handlers observe. It is cancelled with
// ErrTimedOut or ErrAborted as its cause when the token fires.
func (t *Token) Context() context.Context {
	return t.ctx
}

// Deadline returns the deadline, zero when there is none.
func (t *Token) Deadline() time.Time {
	return t.deadline
}

// release frees the context without recording a reason.
func (t *Token) release() {
	t.cancel(context.Canceled)
}

type tokenKey struct{}

func withToken(ctx context.Context, t *Token) context.Context {
	return context.WithValue(ctx, tokenKey{}, t)
}

// TokenFrom returns the Token of the supervised invocation running under
// ctx, or nil outside of one.
func TokenFrom(ctx context.Context) *Token {
	t, _ := ctx.Value(tokenKey{}).(*Token)
	return t
}

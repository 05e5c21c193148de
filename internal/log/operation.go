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
	"sync/atomic"

	"github.com/google/uuid"
)

// Operation holds the correlation id of the command invocation in
// flight. It is owned by the top-level invocation and passed to whatever
// needs to tag log lines; the zero value has no id. Methods are safe on a
// nil receiver.
type Operation struct {
	id atomic.Pointer[string]
}

// NewOperation returns an empty holder.
func NewOperation() *Operation {
	return &Operation{}
}

// Start assigns a fresh id and returns it.
func (o *Operation) Start() string {
	id := uuid.NewString()
	if o != nil {
		o.id.Store(&id)
	}
	return id
}

// ID returns the current id, or "" when no invocation is in flight.
func (o *Operation) ID() string {
	if o == nil {
		return ""
	}
	if p := o.id.Load(); p != nil {
		return *p
	}
	return ""
}

// Clear drops the current id. Clearing an empty holder is a no-op.
func (o *Operation) Clear() {
	if o != nil {
		o.id.Store(nil)
	}
}

type operationIDKey struct{}

// WithOperationID returns a context carrying the invocation's correlation id.
func WithOperationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, operationIDKey{}, id)
}

// OperationIDFromContext returns the correlation id stored in ctx, or "".
func OperationIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(operationIDKey{}).(string)
	return id
}

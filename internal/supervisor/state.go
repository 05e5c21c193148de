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
	"time"

	aixerrors "github.com/tombee/aix/pkg/errors"
)

// State is the lifecycle position of a supervised invocation.
type State int32

const (
	StatePending State = iota
	StateRunning
	StateCompleted
	StateTimedOut
	StateAborted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateTimedOut:
		return "timed_out"
	case StateAborted:
		return "aborted"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether s is one of the four end states.
func (s State) Terminal() bool {
	return s >= StateCompleted
}

func stateFor(r Reason) State {
	if r == ReasonTimeout {
		return StateTimedOut
	}
	return StateAborted
}

// Outcome is the single terminal result of a supervised invocation.
// Err is set for every state except StateCompleted.
type Outcome[T any] struct {
	Name        string
	State       State
	Value       T
	Err         *aixerrors.ClassifiedError
	OperationID string
	Elapsed     time.Duration
}

// Summary drops the typed value so outcomes of any handler can be
// reported the same way.
func (o Outcome[T]) Summary() Summary {
	return Summary{
		Name:        o.Name,
		State:       o.State,
		Err:         o.Err,
		OperationID: o.OperationID,
		Elapsed:     o.Elapsed,
	}
}

// Summary is an Outcome without its value.
type Summary struct {
	Name        string
	State       State
	Err         *aixerrors.ClassifiedError
	OperationID string
	Elapsed     time.Duration
}

// ExitCode returns the process exit status for the outcome.
func (s Summary) ExitCode() int {
	if s.Err == nil {
		return aixerrors.ExitSuccess
	}
	return s.Err.ExitCode()
}

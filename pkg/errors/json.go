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
	"encoding/json"
	"os"
	"time"

	"github.com/tombee/aix/internal/sanitize"
)

// Record is the machine-readable form of a ClassifiedError.
type Record struct {
	Code        string         `json:"code"`
	Category    string         `json:"category"`
	Message     string         `json:"message"`
	Suggestion  string         `json:"suggestion,omitempty"`
	Causes      []string       `json:"causes,omitempty"`
	Context     map[string]any `json:"context,omitempty"`
	Recoverable bool           `json:"recoverable"`
	Timestamp   string         `json:"timestamp"`
	ExitCode    int            `json:"exitCode"`
	Docs        string         `json:"docs"`
	Stack       string         `json:"stack,omitempty"`
}

// ToJSON converts err to a Record. When sanitized is true the context
// passes through sanitize.Context relative to the working directory;
// pass false only for trusted internal logging.
func ToJSON(err *ClassifiedError, sanitized bool) *Record {
	if err == nil {
		return nil
	}

	ctx := err.Context()
	if sanitized && ctx != nil {
		base, wdErr := os.Getwd()
		if wdErr != nil {
			base = ""
		}
		ctx = sanitize.Context(ctx, base)
	}

	return &Record{
		Code:        string(err.code),
		Category:    string(err.category),
		Message:     err.message,
		Suggestion:  err.suggestion,
		Causes:      causeChain(err),
		Context:     ctx,
		Recoverable: err.recoverable,
		Timestamp:   err.timestamp.UTC().Format(time.RFC3339Nano),
		ExitCode:    err.ExitCode(),
		Docs:        DocsURL(err.code),
		Stack:       err.Stack(),
	}
}

// MarshalJSON emits the sanitized record.
func (e *ClassifiedError) MarshalJSON() ([]byte, error) {
	return json.Marshal(ToJSON(e, true))
}

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

package errors_test

import (
	"errors"
	"strings"
	"testing"

	aixerrors "github.com/tombee/aix/pkg/errors"
)

func TestWrap(t *testing.T) {
	t.Run("wraps error with context", func(t *testing.T) {
		original := errors.New("original error")
		wrapped := aixerrors.Wrap(original, "additional context")

		if wrapped == nil {
			t.Fatal("Wrap should not return nil for non-nil error")
		}

		msg := wrapped.Error()
		if !strings.Contains(msg, "additional context") {
			t.Errorf("wrapped error should contain context, got: %s", msg)
		}
		if !strings.Contains(msg, "original error") {
			t.Errorf("wrapped error should contain original message, got: %s", msg)
		}
	})

	t.Run("returns nil for nil error", func(t *testing.T) {
		wrapped := aixerrors.Wrap(nil, "context")
		if wrapped != nil {
			t.Errorf("Wrap(nil, _) should return nil, got: %v", wrapped)
		}
	})

	t.Run("preserves error chain", func(t *testing.T) {
		original := errors.New("root cause")
		wrapped := aixerrors.Wrap(original, "context")

		if !errors.Is(wrapped, original) {
			t.Error("wrapped error should match original with errors.Is")
		}

		unwrapped := errors.Unwrap(wrapped)
		if unwrapped != original {
			t.Errorf("Unwrap should return original error, got: %v", unwrapped)
		}
	})
}

func TestWrapf(t *testing.T) {
	t.Run("wraps error with formatted context", func(t *testing.T) {
		original := errors.New("file not found")
		wrapped := aixerrors.Wrapf(original, "loading file %s", "/path/to/file")

		if wrapped == nil {
			t.Fatal("Wrapf should not return nil for non-nil error")
		}

		msg := wrapped.Error()
		if !strings.Contains(msg, "loading file /path/to/file") {
			t.Errorf("wrapped error should contain formatted context, got: %s", msg)
		}
		if !strings.Contains(msg, "file not found") {
			t.Errorf("wrapped error should contain original message, got: %s", msg)
		}
	})

	t.Run("returns nil for nil error", func(t *testing.T) {
		wrapped := aixerrors.Wrapf(nil, "loading file %s", "/path/to/file")
		if wrapped != nil {
			t.Errorf("Wrapf(nil, _, _) should return nil, got: %v", wrapped)
		}
	})

	t.Run("handles multiple format arguments", func(t *testing.T) {
		original := errors.New("connection failed")
		wrapped := aixerrors.Wrapf(original, "connecting to %s:%d", "localhost", 8080)

		msg := wrapped.Error()
		if !strings.Contains(msg, "connecting to localhost:8080") {
			t.Errorf("wrapped error should contain formatted context, got: %s", msg)
		}
	})

	t.Run("preserves error chain", func(t *testing.T) {
		original := errors.New("root cause")
		wrapped := aixerrors.Wrapf(original, "context: %s", "details")

		if !errors.Is(wrapped, original) {
			t.Error("wrapped error should match original with errors.Is")
		}
	})
}

func TestIs(t *testing.T) {
	t.Run("matches classified error by code", func(t *testing.T) {
		err := aixerrors.Wrap(aixerrors.New(aixerrors.CodeUnknownPreset, "preset \"x\" not found"), "init")
		target := aixerrors.New(aixerrors.CodeUnknownPreset, "")

		if !aixerrors.Is(err, target) {
			t.Error("Is should match a ClassifiedError with the same code")
		}
	})

	t.Run("does not match a different code", func(t *testing.T) {
		err := aixerrors.New(aixerrors.CodeUnknownPreset, "")
		target := aixerrors.New(aixerrors.CodeAlreadyInitialized, "")

		if aixerrors.Is(err, target) {
			t.Error("Is should not match a different code")
		}
	})
}

func TestAs(t *testing.T) {
	t.Run("finds classified error in chain", func(t *testing.T) {
		original := aixerrors.New(aixerrors.CodeHookFailed, "hook pre-commit failed")
		wrapped := aixerrors.Wrapf(original, "running %s", "pre-commit")

		var target *aixerrors.ClassifiedError
		if !aixerrors.As(wrapped, &target) {
			t.Fatal("As should find the ClassifiedError")
		}
		if target.Code() != aixerrors.CodeHookFailed {
			t.Errorf("expected code %s, got %s", aixerrors.CodeHookFailed, target.Code())
		}
	})

	t.Run("returns false for plain errors", func(t *testing.T) {
		var target *aixerrors.ClassifiedError
		if aixerrors.As(errors.New("plain"), &target) {
			t.Error("As should not match a plain error")
		}
	})
}

func TestUnwrap(t *testing.T) {
	original := errors.New("root")
	wrapped := aixerrors.Wrap(original, "context")

	if aixerrors.Unwrap(wrapped) != original {
		t.Error("Unwrap should return the wrapped error")
	}
	if aixerrors.Unwrap(original) != nil {
		t.Error("Unwrap of an unwrapped error should be nil")
	}
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want aixerrors.Code
	}{
		{name: "nil", err: nil, want: ""},
		{name: "plain", err: errors.New("plain"), want: ""},
		{name: "classified", err: aixerrors.New(aixerrors.CodeWriteFailed, ""), want: aixerrors.CodeWriteFailed},
		{
			name: "wrapped classified",
			err:  aixerrors.Wrap(aixerrors.New(aixerrors.CodeRequestFailed, ""), "checking for updates"),
			want: aixerrors.CodeRequestFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := aixerrors.CodeOf(tt.err); got != tt.want {
				t.Errorf("CodeOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExitCodeOf(t *testing.T) {
	if got := aixerrors.ExitCodeOf(nil); got != 0 {
		t.Errorf("ExitCodeOf(nil) = %d, want 0", got)
	}
	if got := aixerrors.ExitCodeOf(errors.New("plain")); got != 1 {
		t.Errorf("ExitCodeOf(plain) = %d, want 1", got)
	}
	if got := aixerrors.ExitCodeOf(aixerrors.New(aixerrors.CodeInputTooLong, "")); got != 65 {
		t.Errorf("ExitCodeOf(validation) = %d, want 65", got)
	}
}

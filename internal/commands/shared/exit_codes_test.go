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
package shared

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	aixerrors "github.com/tombee/aix/pkg/errors"
)

func TestHandleExitError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   int
		wantOutput bool
	}{
		{name: "nil", err: nil, wantCode: 0},
		{name: "reported exit error", err: &ExitError{Code: 64, Cause: aixerrors.New(aixerrors.CodeAlreadyInitialized, ""), Reported: true}, wantCode: 64},
		{name: "unreported exit error", err: NewExitError(aixerrors.New(aixerrors.CodeInputTooLong, "too long"), false), wantCode: 65, wantOutput: true},
		{name: "classified", err: aixerrors.New(aixerrors.CodeRequestFailed, ""), wantCode: 75, wantOutput: true},
		{name: "plain error", err: errors.New("boom"), wantCode: 1, wantOutput: true},
		{name: "wrapped exit error", err: fmt.Errorf("outer: %w", &ExitError{Code: 77, Reported: true}), wantCode: 77},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			code := HandleExitError(tt.err, &buf, false)
			assert.Equal(t, tt.wantCode, code)
			if tt.wantOutput {
				assert.Contains(t, buf.String(), "Error [AIX-")
			} else {
				assert.Empty(t, buf.String())
			}
		})
	}
}

func TestExitError_Message(t *testing.T) {
	assert.Equal(t, "exit status 3", (&ExitError{Code: 3}).Error())

	cause := errors.New("underlying")
	e := &ExitError{Code: 1, Cause: cause}
	assert.Equal(t, "underlying", e.Error())
	assert.ErrorIs(t, e, cause)
}

func TestUsageError(t *testing.T) {
	cmd := &cobra.Command{Use: "aix"}

	err := UsageError(cmd, errors.New("unknown flag: --nope"))
	require.Error(t, err)
	assert.Equal(t, aixerrors.CodeInvalidCommand, aixerrors.CodeOf(err))
	assert.Equal(t, 65, aixerrors.ExitCodeOf(err))
	assert.Contains(t, err.Error(), "Unknown flag: --nope")

	var ce *aixerrors.ClassifiedError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "aix", ce.Context()["command"])
	assert.Contains(t, ce.Suggestion(), "aix --help")

	assert.NoError(t, UsageError(cmd, nil))
}

func TestUsageError_KeepsClassifiedErrors(t *testing.T) {
	orig := aixerrors.New(aixerrors.CodeConfigInvalid, "bad")
	assert.Same(t, orig, UsageError(nil, orig))
}

func TestUsageError_SanitizesInput(t *testing.T) {
	err := UsageError(nil, errors.New("invalid argument \"\x1b[31mred\x1b[0m\""))
	assert.NotContains(t, err.Error(), "\x1b")
}

func TestClassifyCommandError(t *testing.T) {
	exitErr := &ExitError{Code: 64, Reported: true}
	assert.Same(t, exitErr, ClassifyCommandError(nil, exitErr))
	assert.Equal(t, aixerrors.CodeInvalidCommand, aixerrors.CodeOf(ClassifyCommandError(nil, errors.New("accepts 1 arg(s), received 2"))))
	assert.NoError(t, ClassifyCommandError(nil, nil))
}

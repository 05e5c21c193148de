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
	"errors"
	"fmt"
	"io"

	aixerrors "github.com/tombee/aix/pkg/errors"
)

// ExitError is an error that carries an exit code
type ExitError struct {
	Code  int
	Cause error

	// Reported is set once the failure has been rendered, so
	// HandleExitError does not print it a second time.
	Reported bool
}

func (e *ExitError) Error() string {
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

func (e *ExitError) Unwrap() error {
	return e.Cause
}

// NewExitError wraps err with the exit code of its error category.
func NewExitError(err error, reported bool) *ExitError {
	return &ExitError{
		Code:     aixerrors.ExitCodeOf(err),
		Cause:    err,
		Reported: reported,
	}
}

// HandleExitError renders err to w unless it was already reported and
// returns the process exit status for it. It never exits itself.
func HandleExitError(err error, w io.Writer, verbose bool) int {
	if err == nil {
		return aixerrors.ExitSuccess
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		if !exitErr.Reported && exitErr.Cause != nil {
			fmt.Fprintln(w, aixerrors.Format(aixerrors.Classify(exitErr.Cause), verbose))
		}
		return exitErr.Code
	}

	ce := aixerrors.Classify(err)
	fmt.Fprintln(w, aixerrors.Format(ce, verbose))
	return ce.ExitCode()
}

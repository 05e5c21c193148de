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
	"strings"

	"github.com/spf13/cobra"

	"github.com/tombee/aix/internal/sanitize"
	aixerrors "github.com/tombee/aix/pkg/errors"
)

// maxUsageMessage bounds echoed usage errors, which may quote user input.
const maxUsageMessage = 200

// UsageError converts a command-line parsing failure into an
// AIX-VAL-204 classified error. Errors that are already classified pass
// through unchanged.
func UsageError(cmd *cobra.Command, err error) error {
	if err == nil {
		return nil
	}
	var ce *aixerrors.ClassifiedError
	if errors.As(err, &ce) {
		return err
	}

	// The raw cobra error may echo unsanitized input, so it is not kept
	// as the cause.
	var opts []aixerrors.Option
	if cmd != nil {
		opts = append(opts,
			aixerrors.WithField("command", cmd.CommandPath()),
			aixerrors.WithSuggestion("Run '"+cmd.CommandPath()+" --help' for usage"),
		)
	}

	msg := strings.TrimSpace(sanitize.ForDisplay(err.Error(), maxUsageMessage))
	if msg != "" {
		msg = strings.ToUpper(msg[:1]) + msg[1:]
	}
	return aixerrors.New(aixerrors.CodeInvalidCommand, msg, opts...)
}

// ClassifyCommandError maps what cobra's Execute returned. ExitErrors
// from supervised commands pass through; anything else failed before a
// handler ran and is a usage error.
func ClassifyCommandError(cmd *cobra.Command, err error) error {
	if err == nil {
		return nil
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return err
	}
	return UsageError(cmd, err)
}

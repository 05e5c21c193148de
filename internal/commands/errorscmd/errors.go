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

// Package errorscmd implements "aix errors", which documents the error
// catalog.
package errorscmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tombee/aix/internal/commands/completion"
	"github.com/tombee/aix/internal/commands/shared"
	"github.com/tombee/aix/internal/sanitize"
	"github.com/tombee/aix/internal/validate"
	aixerrors "github.com/tombee/aix/pkg/errors"
)

// CodeInfo describes one catalog entry.
type CodeInfo struct {
	Code        string `json:"code"`
	Category    string `json:"category"`
	ExitCode    int    `json:"exit_code"`
	Description string `json:"description"`
	Suggestion  string `json:"suggestion,omitempty"`
	Recoverable bool   `json:"recoverable"`
	Docs        string `json:"docs"`
}

func infoFor(e aixerrors.Entry) CodeInfo {
	return CodeInfo{
		Code:        string(e.Code),
		Category:    string(e.Category),
		ExitCode:    e.Category.ExitCode(),
		Description: e.Description,
		Suggestion:  e.Suggestion,
		Recoverable: e.Recoverable,
		Docs:        aixerrors.DocsURL(e.Code),
	}
}

// NewCommand creates the errors command group.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "errors",
		Short: "Explain aix error codes",
		Long: `Every failure aix reports carries a code of the form AIX-<SEGMENT>-<NNN>.
The segment selects the process exit status, so scripts can branch on the
exit code alone.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List every error code",
		Args:  cobra.NoArgs,
		RunE:  shared.Supervised("errors list", runList),
	})
	cmd.AddCommand(&cobra.Command{
		Use:               "explain <code>",
		Short:             "Explain one error code",
		Example:           "  aix errors explain AIX-INIT-101",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completion.CompleteErrorCodes,
		RunE:              shared.Supervised("errors explain", runExplain),
	})

	return cmd
}

func runList(ctx context.Context, _ validate.Options) (string, error) {
	codes := aixerrors.Codes()
	infos := make([]CodeInfo, 0, len(codes))
	for _, c := range codes {
		e, _ := aixerrors.Lookup(c)
		infos = append(infos, infoFor(e))
	}

	if shared.GetJSON() {
		return shared.RenderJSON("errors list", infos)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%-16s %-15s %4s  %s\n", "CODE", "CATEGORY", "EXIT", "DESCRIPTION")
	for _, i := range infos {
		fmt.Fprintf(&sb, "%-16s %-15s %4d  %s\n", i.Code, i.Category, i.ExitCode, i.Description)
	}
	return sb.String(), nil
}

func runExplain(ctx context.Context, opts validate.Options) (string, error) {
	raw := opts.Arg(0)
	code := aixerrors.Code(strings.ToUpper(strings.TrimSpace(raw)))

	e, ok := aixerrors.Lookup(code)
	if !ok {
		return "", aixerrors.New(aixerrors.CodeInvalidOption,
			fmt.Sprintf("Unknown error code %q", sanitize.ForDisplay(raw, 40)),
			aixerrors.WithSuggestion("Run 'aix errors list' to see every code"))
	}
	info := infoFor(e)

	if shared.GetJSON() {
		return shared.RenderJSON("errors explain", info)
	}

	var sb strings.Builder
	sb.WriteString(aixerrors.Format(aixerrors.New(code, ""), false))
	sb.WriteString("\n\n")
	fmt.Fprintf(&sb, "%s %s\n", shared.RenderLabel("Category:   "), info.Category)
	fmt.Fprintf(&sb, "%s %d\n", shared.RenderLabel("Exit code:  "), info.ExitCode)
	fmt.Fprintf(&sb, "%s %t\n", shared.RenderLabel("Recoverable:"), info.Recoverable)
	return sb.String(), nil
}

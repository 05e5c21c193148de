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

// Package hookscmd implements "aix hooks", which lists and runs the
// project's hook scripts.
package hookscmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tombee/aix/internal/commands/completion"
	"github.com/tombee/aix/internal/commands/shared"
	"github.com/tombee/aix/internal/hooks"
	"github.com/tombee/aix/internal/log"
	"github.com/tombee/aix/internal/validate"
	aixerrors "github.com/tombee/aix/pkg/errors"
)

// NewCommand creates the hooks command group.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hooks",
		Short: "List and run project hook scripts",
		Long: fmt.Sprintf(`Hook scripts are executable files under %s/<event>/ in the project.
They run in name order with the project as working directory and receive
AIX_HOOK_EVENT and AIX_PROJECT_DIR in their environment.

Events: %s`, hooks.Dir, strings.Join(hooks.Events(), ", ")),
	}

	cmd.PersistentFlags().String("dir", ".", "Project directory")

	cmd.AddCommand(newListCommand())
	cmd.AddCommand(newRunCommand())

	return cmd
}

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:               "list [event]",
		Short:             "List hook scripts",
		Args:              cobra.MaximumNArgs(1),
		ValidArgsFunction: completion.CompleteHookEvents,
		RunE:              shared.Supervised("hooks list", runList),
	}
}

func newRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:               "run <event>",
		Short:             "Run the hook scripts for an event",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completion.CompleteHookEvents,
		RunE:              shared.Supervised("hooks run", runHooks),
	}
}

func runner(ctx context.Context, opts validate.Options) (*hooks.Runner, string, error) {
	dir, err := filepath.Abs(opts.String("dir"))
	if err != nil {
		return nil, "", aixerrors.New(aixerrors.CodePathNotFound, "", aixerrors.WithCause(err),
			aixerrors.WithField("path", opts.String("dir")))
	}
	return hooks.NewRunner(dir, log.FromContext(ctx)), dir, nil
}

func runList(ctx context.Context, opts validate.Options) (string, error) {
	r, dir, err := runner(ctx, opts)
	if err != nil {
		return "", err
	}

	events := hooks.Events()
	if e := opts.Arg(0); e != "" {
		events = []string{e}
	}

	var sb strings.Builder
	found := 0
	for _, event := range events {
		scripts, err := r.Discover(event)
		if err != nil {
			return "", err
		}
		if len(scripts) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "%s\n", shared.RenderLabel(event))
		for _, s := range scripts {
			rel, relErr := filepath.Rel(dir, s.Path)
			if relErr != nil {
				rel = s.Path
			}
			fmt.Fprintf(&sb, "  %s\n", filepath.ToSlash(rel))
			found++
		}
	}

	if found == 0 {
		return fmt.Sprintf("No hook scripts found under %s", hooks.Dir), nil
	}
	return sb.String(), nil
}

func runHooks(ctx context.Context, opts validate.Options) (string, error) {
	r, _, err := runner(ctx, opts)
	if err != nil {
		return "", err
	}

	event := opts.Arg(0)
	results, err := r.Run(ctx, event)
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return fmt.Sprintf("No %s hooks to run", event), nil
	}

	var sb strings.Builder
	for _, res := range results {
		fmt.Fprintf(&sb, "%s %s (%dms)\n", shared.SymbolOK, res.Script.Name, res.Duration.Milliseconds())
		if out := strings.TrimRight(res.Output, "\n"); out != "" && shared.GetVerbose() {
			for _, line := range strings.Split(out, "\n") {
				fmt.Fprintf(&sb, "    %s\n", line)
			}
			if res.Truncated {
				sb.WriteString("    (output truncated)\n")
			}
		}
	}
	return sb.String(), nil
}

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

// Package initcmd implements "aix init", which writes a preset's AI
// assistant configuration files into a project.
package initcmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/tombee/aix/internal/commands/completion"
	"github.com/tombee/aix/internal/commands/shared"
	"github.com/tombee/aix/internal/hooks"
	"github.com/tombee/aix/internal/log"
	"github.com/tombee/aix/internal/presets"
	"github.com/tombee/aix/internal/scaffold"
	"github.com/tombee/aix/internal/validate"
	aixerrors "github.com/tombee/aix/pkg/errors"
)

// Replaced in tests.
var (
	selectPreset  = promptPreset
	isInteractive = func() bool { return !shared.IsNonInteractive() }
)

// NewCommand creates the init command.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize AI assistant configuration for a project",
		Long: `Write the files of a preset into the project directory.

Without --preset, an interactive picker is shown on a terminal; otherwise
the configured default preset is used. Existing files are left alone
unless --force is given. Executable scripts in .aix/hooks/post-init run
after the files are written.`,
		Example: `  aix init --preset claude
  aix init --preset full --dir ./service --force
  aix init --dry-run`,
		Args: cobra.NoArgs,
		RunE: shared.Supervised("init", run),
	}

	cmd.Flags().String("preset", "", "Preset to apply (see 'aix presets')")
	cmd.Flags().String("dir", ".", "Project directory")
	cmd.Flags().Bool("force", false, "Overwrite existing files")
	cmd.Flags().Bool("dry-run", false, "Show what would be written without writing")

	_ = cmd.RegisterFlagCompletionFunc("preset", completion.CompletePresets)

	return cmd
}

func run(ctx context.Context, opts validate.Options) (string, error) {
	dir, err := filepath.Abs(opts.String("dir"))
	if err != nil {
		return "", aixerrors.New(aixerrors.CodePathNotFound, "", aixerrors.WithCause(err),
			aixerrors.WithField("path", opts.String("dir")))
	}

	name, err := choosePreset(ctx, opts.String("preset"))
	if err != nil {
		return "", err
	}

	files, err := presets.Render(name, presets.Data{
		ProjectName: filepath.Base(dir),
		Preset:      name,
		Date:        time.Now().Format(time.DateOnly),
	})
	if err != nil {
		return "", err
	}

	steps, err := scaffold.Plan(dir, files, opts.Bool("force"))
	if err != nil {
		return "", err
	}

	runner := hooks.NewRunner(dir, log.FromContext(ctx))

	if opts.Bool("dry-run") {
		return dryRun(dir, steps, runner)
	}

	result, err := scaffold.Apply(ctx, dir, steps)
	if err != nil {
		return "", err
	}

	ran, err := runner.Run(ctx, hooks.EventPostInit)
	if err != nil {
		return "", err
	}

	return summarize(name, result, ran), nil
}

func choosePreset(ctx context.Context, flag string) (string, error) {
	if flag != "" {
		// Get reports unknown names with the catalog's suggestion.
		if _, err := presets.Get(flag); err != nil {
			return "", err
		}
		return flag, nil
	}

	rt := shared.GetRuntime()
	if !isInteractive() || rt.Reporter.Structured() {
		return rt.Config.DefaultPreset, nil
	}
	return selectPreset(ctx, rt.Config.DefaultPreset)
}

func promptPreset(ctx context.Context, def string) (string, error) {
	list, err := presets.List()
	if err != nil {
		return "", err
	}

	options := make([]huh.Option[string], 0, len(list))
	for _, p := range list {
		options = append(options, huh.NewOption(fmt.Sprintf("%-8s %s", p.Name, p.Description), p.Name))
	}

	choice := def
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Preset").
				Description("Select the configuration to write").
				Options(options...).
				Value(&choice),
		),
	)

	if err := form.RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return "", aixerrors.New(aixerrors.CodeAborted, "Preset selection cancelled",
				aixerrors.WithField("reason", "abort"))
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", fmt.Errorf("preset selection failed: %w", err)
	}
	return choice, nil
}

func dryRun(dir string, steps []scaffold.Step, runner *hooks.Runner) (string, error) {
	out := shared.NewDryRunOutput()
	for _, s := range steps {
		action := shared.DryRunActionCreate
		if s.Action == scaffold.ActionOverwrite {
			action = shared.DryRunActionOverwrite
		}
		out.Add(action, s.Path)
	}

	scripts, err := runner.Discover(hooks.EventPostInit)
	if err != nil {
		return "", err
	}
	for _, s := range scripts {
		rel, relErr := filepath.Rel(dir, s.Path)
		if relErr != nil {
			rel = s.Path
		}
		out.AddWithReason(shared.DryRunActionRun, rel, "post-init hook")
	}

	return out.String(), nil
}

func summarize(preset string, result *scaffold.Result, ran []hooks.Result) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s Initialized %s with preset %q\n", shared.SymbolOK, result.Dir, preset)
	for _, s := range result.Written {
		fmt.Fprintf(&sb, "  %-9s %s\n", s.Action, s.Path)
	}
	for _, r := range ran {
		fmt.Fprintf(&sb, "  %-9s %s (%dms)\n", "hook", r.Script.Name, r.Duration.Milliseconds())
	}
	return sb.String()
}

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
package cli

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tombee/aix/internal/commands/completion"
	"github.com/tombee/aix/internal/commands/doctor"
	"github.com/tombee/aix/internal/commands/errorscmd"
	"github.com/tombee/aix/internal/commands/hookscmd"
	"github.com/tombee/aix/internal/commands/initcmd"
	"github.com/tombee/aix/internal/commands/memorycmd"
	"github.com/tombee/aix/internal/commands/presets"
	"github.com/tombee/aix/internal/commands/shared"
	versioncmd "github.com/tombee/aix/internal/commands/version"
	"github.com/tombee/aix/internal/config"
	"github.com/tombee/aix/internal/log"
	"github.com/tombee/aix/internal/reporter"
	"github.com/tombee/aix/internal/tracing"
	aixerrors "github.com/tombee/aix/pkg/errors"
)

// shutdownTimeout bounds the final span flush.
const shutdownTimeout = 5 * time.Second

// SetVersion sets the version information (called from main)
func SetVersion(v, c, b string) {
	shared.SetVersion(v, c, b)
}

// GetVersion returns version information
func GetVersion() (string, string, string) {
	return shared.GetVersion()
}

// NewRootCommand creates the root Cobra command for aix with every
// subcommand attached.
func NewRootCommand() *cobra.Command {
	cmd, _ := newRootCommand()
	return cmd
}

// session carries what the root command resolved during setup so that
// Execute can report late failures and flush spans afterwards.
type session struct {
	cfg      *config.Config
	provider *tracing.Provider
}

func newRootCommand() (*cobra.Command, *session) {
	s := &session{}

	cmd := &cobra.Command{
		Use:   "aix",
		Short: "aix - AI assistant project tooling",
		Long: `aix sets up and maintains the files AI coding assistants read in a
project: presets for CLAUDE.md and friends, hook scripts, and a
per-project memory database served over MCP.

Run 'aix init' to scaffold a project.
Run 'aix doctor' to see what is already configured.`,
		SilenceUsage:  true, // Don't show usage on errors
		SilenceErrors: true, // We handle errors ourselves for proper exit codes
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupRuntime(cmd, s)
		},
	}

	flags := shared.RegisterFlagPointers()
	cmd.PersistentFlags().BoolVarP(flags.Verbose, "verbose", "v", false, "Show error causes and extra detail")
	cmd.PersistentFlags().BoolVar(flags.JSON, "json", false, "Emit JSON results and structured log lines")
	cmd.PersistentFlags().BoolVar(flags.Debug, "debug", false, "Enable debug output (AIX_DEBUG)")
	cmd.PersistentFlags().BoolVar(flags.NoColor, "no-color", false, "Disable colored output (NO_COLOR)")
	cmd.PersistentFlags().StringVar(flags.Config, "config", "", "Path to config file (default: ~/.config/aix/config.yaml)")
	cmd.PersistentFlags().IntVar(flags.TimeoutMS, "timeout", 0, "Per-command timeout in milliseconds (AIX_TIMEOUT_MS)")

	cmd.SetFlagErrorFunc(shared.UsageError)

	cmd.AddCommand(
		initcmd.NewCommand(),
		presets.NewCommand(),
		doctor.NewCommand(),
		hookscmd.NewCommand(),
		memorycmd.NewCommand(),
		errorscmd.NewCommand(),
		versioncmd.NewVersionCommand(),
		completion.NewCommand(),
	)
	cmd.SetHelpCommand(NewHelpCommand(cmd))

	return cmd, s
}

// setupRuntime resolves configuration and installs the runtime every
// supervised command reads. Configuration failures are reported here
// since no handler will run.
func setupRuntime(cmd *cobra.Command, s *session) error {
	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()

	cfg, err := config.Load(shared.GetConfigPath())
	if err == nil {
		s.cfg = cfg
		err = applyFlagOverrides(cmd, cfg)
	}
	if err != nil {
		fallbackReporter(s.cfg, out, errOut).ReportError(err)
		return shared.NewExitError(err, true)
	}

	mode := modeFor(shared.GetJSON() || cfg.StructuredLogs)
	color := mode == reporter.ModeHuman && colorEnabled(cfg.NoColor, out)
	if !color {
		shared.DisableColor()
	}

	op := log.NewOperation()
	rep := reporter.New(reporter.Options{
		Mode:      mode,
		Verbose:   shared.GetVerbose(),
		Debug:     cfg.Debug,
		Color:     color,
		Out:       out,
		Err:       errOut,
		Operation: op,
	})

	version, _, _ := shared.GetVersion()
	provider, err := tracing.Setup(cmd.Context(), cfg.Trace, version, errOut)
	if err != nil {
		// Tracing is optional; the command still runs without spans.
		rep.Warn("tracing disabled", "error", err)
		provider, _ = tracing.Setup(cmd.Context(), config.TraceConfig{}, version, nil)
	}
	s.provider = provider

	rep.Debug("configuration loaded", "path", cfg.Path, "timeoutMs", cfg.TimeoutMS, "mode", string(mode))

	shared.SetRuntime(&shared.Runtime{
		Config:    cfg,
		Reporter:  rep,
		Operation: op,
		Tracer:    provider.Tracer(),
		Stdin:     cmd.InOrStdin(),
		Stdout:    out,
		Stderr:    errOut,
	})
	return nil
}

// applyFlagOverrides gives command-line flags the final say over file
// and environment values.
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) error {
	if f := cmd.Flags().Lookup("timeout"); f != nil && f.Changed {
		ms := shared.GetTimeoutMS()
		if ms <= 0 {
			return aixerrors.New(aixerrors.CodeInvalidOption, "Option --timeout must be a positive number of milliseconds",
				aixerrors.WithField("option", "timeout"), aixerrors.WithField("value", ms))
		}
		cfg.TimeoutMS = ms
	}
	if shared.GetDebug() {
		cfg.Debug = true
	}
	if shared.GetNoColor() {
		cfg.NoColor = true
	}
	return nil
}

// fallbackReporter renders failures that happen before a runtime exists.
// Structured mode follows the loaded configuration when there is one and
// the environment otherwise, so boundary errors honour it too.
func fallbackReporter(cfg *config.Config, out, errOut io.Writer) *reporter.Reporter {
	structured := shared.GetJSON()
	if cfg != nil {
		structured = structured || cfg.StructuredLogs
	} else if v, ok := config.StructuredLogsFromEnv(); ok {
		structured = structured || v
	}
	return reporter.New(reporter.Options{
		Mode:    modeFor(structured),
		Verbose: shared.GetVerbose(),
		Debug:   shared.GetDebug(),
		Out:     out,
		Err:     errOut,
	})
}

func modeFor(structured bool) reporter.Mode {
	if structured {
		return reporter.ModeStructured
	}
	return reporter.ModeHuman
}

func colorEnabled(noColor bool, w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return shared.ColorEnabled(noColor, f)
}

func shutdownTracing(p *tracing.Provider) {
	if p == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	_ = p.Shutdown(ctx)
}

// Execute runs the command tree with args and returns the process exit
// status. Failures not already rendered by a supervised command are
// classified and reported here.
func Execute(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) int {
	root, s := newRootCommand()
	root.SetArgs(args)
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	cmd, err := root.ExecuteContextC(ctx)
	shutdownTracing(s.provider)
	if err == nil {
		return aixerrors.ExitSuccess
	}

	err = shared.ClassifyCommandError(cmd, err)
	if !reported(err) {
		fallbackReporter(s.cfg, out, errOut).ReportError(err)
		err = shared.NewExitError(err, true)
	}
	return shared.HandleExitError(err, errOut, shared.GetVerbose())
}

func reported(err error) bool {
	var exitErr *shared.ExitError
	return errors.As(err, &exitErr) && exitErr.Reported
}

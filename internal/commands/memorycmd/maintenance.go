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

package memorycmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tombee/aix/internal/commands/shared"
	"github.com/tombee/aix/internal/memory"
	"github.com/tombee/aix/internal/sanitize"
	"github.com/tombee/aix/internal/validate"
	aixerrors "github.com/tombee/aix/pkg/errors"
)

func newStatsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show table sizes and limits",
		Args:  cobra.NoArgs,
		RunE:  shared.Supervised("memory stats", runStats),
	}
	cmd.Flags().Bool("prometheus", false, "Print metrics in Prometheus text format")
	return cmd
}

func runStats(ctx context.Context, opts validate.Options) (string, error) {
	metrics := memory.NewMetrics()
	store, err := openStore(ctx, opts, metrics)
	if err != nil {
		return "", err
	}
	defer store.Close()

	st, err := store.Stats(ctx)
	if err != nil {
		return "", err
	}

	switch {
	case opts.Bool("prometheus"):
		var buf bytes.Buffer
		if err := metrics.WriteText(&buf); err != nil {
			return "", fmt.Errorf("failed to encode metrics: %w", err)
		}
		if err := writeGauges(&buf, st); err != nil {
			return "", fmt.Errorf("failed to encode metrics: %w", err)
		}
		return buf.String(), nil
	case shared.GetJSON():
		return shared.RenderJSON("memory stats", st)
	default:
		return st.String(), nil
	}
}

// writeGauges appends the current table sizes, which only the database
// knows, to the process counters.
func writeGauges(w io.Writer, st memory.Stats) error {
	rows := []struct {
		table string
		count int
		limit int
	}{
		{"decisions", st.Decisions, st.Limits.MaxDecisions},
		{"patterns", st.Patterns, st.Limits.MaxPatterns},
		{"context", st.ContextKeys, st.Limits.MaxContextKeys},
	}
	if _, err := io.WriteString(w, "# HELP aix_memory_entries Entries stored per table.\n# TYPE aix_memory_entries gauge\n"); err != nil {
		return err
	}
	for _, r := range rows {
		if _, err := fmt.Fprintf(w, "aix_memory_entries{table=%q} %d\n", r.table, r.count); err != nil {
			return err
		}
	}
	if _, err := io.WriteString(w, "# HELP aix_memory_entries_limit Maximum entries kept per table.\n# TYPE aix_memory_entries_limit gauge\n"); err != nil {
		return err
	}
	for _, r := range rows {
		if _, err := fmt.Fprintf(w, "aix_memory_entries_limit{table=%q} %d\n", r.table, r.limit); err != nil {
			return err
		}
	}
	return nil
}

func newExportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the database as JSON",
		Args:  cobra.NoArgs,
		RunE:  shared.Supervised("memory export", runExport),
	}
	cmd.Flags().StringP("output", "o", "", "Write to a file instead of stdout")
	return cmd
}

func runExport(ctx context.Context, opts validate.Options) (string, error) {
	return withStore(ctx, opts, func(s *memory.Store) (string, error) {
		exp, err := s.Export(ctx, projectName())
		if err != nil {
			return "", err
		}
		data, err := json.MarshalIndent(exp, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to encode export: %w", err)
		}

		out := opts.String("output")
		if out == "" {
			return string(data), nil
		}
		if err := os.WriteFile(out, append(data, '\n'), 0o600); err != nil {
			return "", writeError(err, out)
		}
		return fmt.Sprintf("%s Exported %d decisions, %d patterns, %d context keys to %s",
			shared.SymbolOK, len(exp.Data.Decisions), len(exp.Data.Patterns), len(exp.Data.Context), out), nil
	})
}

func newImportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file|->",
		Short: "Import a JSON export",
		Long: `Import an export produced by "aix memory export". Entries are merged into
the database unless --replace is given, which clears every table first.
Use - to read from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: shared.Supervised("memory import", runImport),
	}
	cmd.Flags().Bool("replace", false, "Replace existing data instead of merging")
	return cmd
}

func runImport(ctx context.Context, opts validate.Options) (string, error) {
	exp, err := readExport(opts.Arg(0))
	if err != nil {
		return "", err
	}

	return withStore(ctx, opts, func(s *memory.Store) (string, error) {
		stats, err := s.Import(ctx, exp, opts.Bool("replace"))
		if err != nil {
			return "", err
		}
		if shared.GetJSON() {
			return shared.RenderJSON("memory import", stats)
		}
		msg := fmt.Sprintf("%s Imported %d decisions, %d patterns, %d context keys",
			shared.SymbolOK, stats.Decisions, stats.Patterns, stats.Context)
		if stats.Skipped > 0 {
			msg += fmt.Sprintf(" (%d invalid entries skipped)", stats.Skipped)
		}
		return msg, nil
	})
}

func readExport(name string) (*memory.Export, error) {
	if name == "-" {
		return memory.DecodeExport(shared.GetRuntime().Stdin)
	}
	f, err := os.Open(name)
	if err != nil {
		code := aixerrors.CodePathNotFound
		if errors.Is(err, fs.ErrPermission) {
			code = aixerrors.CodePermissionDenied
		}
		return nil, aixerrors.New(code, "", aixerrors.WithCause(err), aixerrors.WithField("path", name))
	}
	defer f.Close()
	return memory.DecodeExport(f)
}

func newHealthCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check database connectivity, integrity and capacity",
		Args:  cobra.NoArgs,
		RunE:  shared.Supervised("memory health", runHealth),
	}
}

func runHealth(ctx context.Context, opts validate.Options) (string, error) {
	return withStore(ctx, opts, func(s *memory.Store) (string, error) {
		h, err := s.Health(ctx)
		if err != nil {
			return "", err
		}
		if h.Status == memory.StatusUnhealthy {
			return "", aixerrors.New(aixerrors.CodeDatabaseUnavailable, "Memory database is unhealthy",
				aixerrors.WithContext(map[string]any{"path": h.DBPath, "checks": h.Checks}))
		}
		if shared.GetJSON() {
			return shared.RenderJSON("memory health", h)
		}
		return renderHealth(h), nil
	})
}

func renderHealth(h memory.Health) string {
	var sb strings.Builder
	status := shared.RenderOK(h.Status)
	if h.Status != memory.StatusHealthy {
		status = shared.RenderWarn(h.Status)
	}
	fmt.Fprintf(&sb, "%s (schema %s)\n", status, h.Version)
	fmt.Fprintf(&sb, "  %s %s\n", shared.RenderLabel("database:"), h.DBPath)

	names := make([]string, 0, len(h.Checks))
	for name := range h.Checks {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		fmt.Fprintf(&sb, "  %s %s\n", shared.RenderLabel(name+":"), describeCheck(h.Checks[name]))
	}
	return sb.String()
}

func describeCheck(v any) string {
	m, ok := v.(map[string]any)
	if !ok {
		return fmt.Sprint(v)
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, m[k]))
	}
	return strings.Join(parts, " ")
}

func newPurgeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete every decision, pattern and context key",
		Long: `Purging takes two steps. Without --confirm the command prints a token
that stays valid for 60 seconds. Run it again with --confirm <token> to
delete all stored memory.`,
		Args: cobra.NoArgs,
		RunE: shared.Supervised("memory purge", runPurge),
	}
	cmd.Flags().String("confirm", "", "Confirmation token from a previous purge request")
	return cmd
}

func runPurge(ctx context.Context, opts validate.Options) (string, error) {
	return withStore(ctx, opts, func(s *memory.Store) (string, error) {
		token := opts.String("confirm")
		if token == "" {
			req, err := s.RequestPurge(ctx)
			if err != nil {
				return "", err
			}
			if shared.GetJSON() {
				return shared.RenderJSON("memory purge", req)
			}
			return fmt.Sprintf("%s This deletes ALL decisions, patterns and context keys in %s.\n"+
				"To confirm within %d seconds, run:\n  aix memory purge --confirm %s",
				shared.SymbolWarn, s.Path(), int(req.ExpiresIn.Seconds()), req.Token), nil
		}

		st, err := s.ConfirmPurge(ctx, token)
		if err != nil {
			return "", err
		}
		if shared.GetJSON() {
			return shared.RenderJSON("memory purge", st)
		}
		return fmt.Sprintf("%s Purged %d decisions, %d patterns, %d context keys",
			shared.SymbolOK, st.Decisions, st.Patterns, st.ContextKeys), nil
	})
}

func notFound(key string) error {
	return aixerrors.New(aixerrors.CodeInvalidOption,
		fmt.Sprintf("Context key %q not found", sanitize.ForDisplay(key, 100)),
		aixerrors.WithSuggestion("Run 'aix memory context get' to list stored keys"))
}

func writeError(err error, path string) error {
	code := aixerrors.CodeWriteFailed
	switch {
	case errors.Is(err, fs.ErrPermission):
		code = aixerrors.CodePermissionDenied
	case errors.Is(err, fs.ErrNotExist):
		code = aixerrors.CodePathNotFound
	}
	return aixerrors.New(code, "", aixerrors.WithCause(err), aixerrors.WithField("path", path))
}

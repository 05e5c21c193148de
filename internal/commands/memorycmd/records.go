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
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tombee/aix/internal/commands/shared"
	"github.com/tombee/aix/internal/memory"
	"github.com/tombee/aix/internal/validate"
)

func newAddDecisionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "add-decision <decision>",
		Short:   "Record a technical decision",
		Example: `  aix memory add-decision "Use SQLite for local state" --rationale "Zero setup"`,
		Args:    cobra.ExactArgs(1),
		RunE:    shared.Supervised("memory add-decision", runAddDecision),
	}
	cmd.Flags().String("rationale", "", "Why the decision was made (required)")
	cmd.Flags().String("context", "", "What prompted the decision")
	cmd.Flags().String("alternatives", "", "Options that were considered")
	return cmd
}

func runAddDecision(ctx context.Context, opts validate.Options) (string, error) {
	return withStore(ctx, opts, func(s *memory.Store) (string, error) {
		id, err := s.AddDecision(ctx, memory.Decision{
			Decision:     opts.Arg(0),
			Rationale:    opts.String("rationale"),
			Context:      opts.String("context"),
			Alternatives: opts.String("alternatives"),
		})
		if err != nil {
			return "", err
		}
		if shared.GetJSON() {
			return shared.RenderJSON("memory add-decision", map[string]int64{"id": id})
		}
		return fmt.Sprintf("%s Recorded decision #%d", shared.SymbolOK, id), nil
	})
}

func newSearchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <keyword>",
		Short: "Search recorded decisions",
		Args:  cobra.ExactArgs(1),
		RunE:  shared.Supervised("memory search", runSearch),
	}
	cmd.Flags().Int("limit", 20, "Maximum results (1-100)")
	return cmd
}

func runSearch(ctx context.Context, opts validate.Options) (string, error) {
	return withStore(ctx, opts, func(s *memory.Store) (string, error) {
		found, err := s.SearchDecisions(ctx, opts.Arg(0), opts.Int("limit", 20))
		if err != nil {
			return "", err
		}
		if shared.GetJSON() {
			return shared.RenderJSON("memory search", found)
		}
		if len(found) == 0 {
			return fmt.Sprintf("No decisions match %q", opts.Arg(0)), nil
		}

		var sb strings.Builder
		for _, d := range found {
			fmt.Fprintf(&sb, "#%d  %s  %s\n", d.ID, d.Timestamp, d.Decision)
			writeField(&sb, "rationale", d.Rationale)
			writeField(&sb, "context", d.Context)
			writeField(&sb, "alternatives", d.Alternatives)
		}
		return sb.String(), nil
	})
}

func newPatternCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pattern <name>",
		Short: "Create or update a code pattern",
		Args:  cobra.ExactArgs(1),
		RunE:  shared.Supervised("memory pattern", runPattern),
	}
	cmd.Flags().String("description", "", "What the pattern is (required)")
	cmd.Flags().String("example", "", "Example code")
	cmd.Flags().String("when-to-use", "", "When the pattern applies")
	return cmd
}

func runPattern(ctx context.Context, opts validate.Options) (string, error) {
	return withStore(ctx, opts, func(s *memory.Store) (string, error) {
		err := s.UpsertPattern(ctx, memory.Pattern{
			Name:        opts.Arg(0),
			Description: opts.String("description"),
			Example:     opts.String("example"),
			WhenToUse:   opts.String("when-to-use"),
		})
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s Saved pattern %q", shared.SymbolOK, memory.CleanInput(opts.Arg(0), memory.MaxKeyLength)), nil
	})
}

func newPatternsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "patterns",
		Short: "List code patterns",
		Args:  cobra.NoArgs,
		RunE:  shared.Supervised("memory patterns", runPatterns),
	}
}

func runPatterns(ctx context.Context, opts validate.Options) (string, error) {
	return withStore(ctx, opts, func(s *memory.Store) (string, error) {
		patterns, err := s.Patterns(ctx)
		if err != nil {
			return "", err
		}
		if shared.GetJSON() {
			return shared.RenderJSON("memory patterns", patterns)
		}
		if len(patterns) == 0 {
			return "No patterns recorded", nil
		}

		var sb strings.Builder
		for _, p := range patterns {
			fmt.Fprintf(&sb, "%s\n", shared.RenderLabel(p.Name))
			writeField(&sb, "description", p.Description)
			writeField(&sb, "when to use", p.WhenToUse)
			if p.Example != "" {
				sb.WriteString("  example:\n")
				for _, line := range strings.Split(p.Example, "\n") {
					fmt.Fprintf(&sb, "    %s\n", line)
				}
			}
		}
		return sb.String(), nil
	})
}

func newContextCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "context",
		Short: "Store and read project context values",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a context value",
		Args:  cobra.ExactArgs(2),
		RunE:  shared.Supervised("memory context set", runContextSet),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "get [key]",
		Short: "Print one context value, or all of them",
		Args:  cobra.MaximumNArgs(1),
		RunE:  shared.Supervised("memory context get", runContextGet),
	})
	return cmd
}

func runContextSet(ctx context.Context, opts validate.Options) (string, error) {
	return withStore(ctx, opts, func(s *memory.Store) (string, error) {
		if err := s.SetContext(ctx, opts.Arg(0), opts.Arg(1)); err != nil {
			return "", err
		}
		return fmt.Sprintf("%s Set %s", shared.SymbolOK, opts.Arg(0)), nil
	})
}

func runContextGet(ctx context.Context, opts validate.Options) (string, error) {
	key := opts.Arg(0)
	if key != "" {
		if err := memory.CheckKey("key", key); err != nil {
			return "", err
		}
	}

	return withStore(ctx, opts, func(s *memory.Store) (string, error) {
		values, err := s.Context(ctx)
		if err != nil {
			return "", err
		}

		if key != "" {
			v, ok := values[key]
			if !ok {
				return "", notFound(key)
			}
			if shared.GetJSON() {
				return shared.RenderJSON("memory context get", map[string]string{key: v})
			}
			return v, nil
		}

		if shared.GetJSON() {
			return shared.RenderJSON("memory context get", values)
		}
		if len(values) == 0 {
			return "No context recorded", nil
		}
		keys := make([]string, 0, len(values))
		for k := range values {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		var sb strings.Builder
		for _, k := range keys {
			fmt.Fprintf(&sb, "%s=%s\n", k, values[k])
		}
		return sb.String(), nil
	})
}

func writeField(sb *strings.Builder, label, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(sb, "  %s: %s\n", label, value)
}

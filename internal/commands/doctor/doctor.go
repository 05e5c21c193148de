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
// Package doctor implements "aix doctor", a health report for the
// project: detected AI tool configuration, aix configuration and the
// memory database.
package doctor

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/tombee/aix/internal/commands/shared"
	"github.com/tombee/aix/internal/config"
	"github.com/tombee/aix/internal/hooks"
	"github.com/tombee/aix/internal/log"
	"github.com/tombee/aix/internal/memory"
	"github.com/tombee/aix/internal/validate"
	aixerrors "github.com/tombee/aix/pkg/errors"
)

// toolPatterns maps each assistant to the files that configure it.
var toolPatterns = []struct {
	Tool     string
	Patterns []string
}{
	{"Claude Code", []string{"CLAUDE.md", ".claude/**/*.{json,md}", ".mcp.json"}},
	{"Cursor", []string{".cursorrules", ".cursor/rules/**/*.mdc"}},
	{"GitHub Copilot", []string{".github/copilot-instructions.md", ".github/instructions/**/*.md"}},
	{"Windsurf", []string{".windsurfrules", ".windsurf/rules/**/*.md"}},
	{"Aider", []string{".aider.conf.yml", "CONVENTIONS.md"}},
	{"Codex", []string{"AGENTS.md"}},
}

// ToolConfig lists the files found for one assistant.
type ToolConfig struct {
	Tool  string   `json:"tool"`
	Files []string `json:"files"`
}

// MemoryStatus describes the memory database.
type MemoryStatus struct {
	Path    string         `json:"path"`
	Exists  bool           `json:"exists"`
	Status  string         `json:"status,omitempty"`
	Checks  map[string]any `json:"checks,omitempty"`
	Message string         `json:"message,omitempty"`
}

// Result contains all doctor check results
type Result struct {
	ProjectDir string `json:"project_dir"`

	ConfigPath   string `json:"config_path"`
	ConfigExists bool   `json:"config_exists"`
	ConfigValid  bool   `json:"config_valid"`
	ConfigError  string `json:"config_error,omitempty"`

	Tools []ToolConfig `json:"tools"`
	Hooks int          `json:"hooks"`

	Memory MemoryStatus `json:"memory"`

	Recommendations []string `json:"recommendations,omitempty"`
	OverallHealthy  bool     `json:"overall_healthy"`
}

// NewCommand creates the doctor command.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose the project's AI tooling setup",
		Long: `Doctor reports which AI assistants are configured in the project,
whether the aix configuration loads, and the health of the project
memory database. It does not create or modify anything.`,
		Args: cobra.NoArgs,
		RunE: shared.Supervised("doctor", run),
	}

	cmd.Flags().String("dir", ".", "Project directory")
	cmd.Flags().String("db", "", "Memory database path")

	return cmd
}

func run(ctx context.Context, opts validate.Options) (string, error) {
	dir, err := filepath.Abs(opts.String("dir"))
	if err != nil {
		return "", aixerrors.New(aixerrors.CodePathNotFound, "", aixerrors.WithCause(err),
			aixerrors.WithField("path", opts.String("dir")))
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return "", aixerrors.New(aixerrors.CodePathNotFound, fmt.Sprintf("Project directory not found: %s", dir),
			aixerrors.WithField("path", dir))
	}

	logger := log.FromContext(ctx)
	result := &Result{ProjectDir: dir}

	checkConfig(result)

	tools, err := detectTools(ctx, os.DirFS(dir))
	if err != nil {
		return "", err
	}
	result.Tools = tools
	logger.Debug("detected tool configs", "count", len(tools))

	result.Hooks = countHooks(dir, logger)

	if err := checkMemory(ctx, result, opts.String("db")); err != nil {
		return "", err
	}

	result.Recommendations = recommendations(result)
	result.OverallHealthy = result.ConfigValid && result.Memory.Status != memory.StatusUnhealthy

	if shared.GetJSON() {
		return shared.RenderJSON("doctor", result)
	}
	return renderText(result), nil
}

func checkConfig(result *Result) {
	path := shared.GetConfigPath()
	if path == "" {
		p, err := config.ConfigPath()
		if err != nil {
			result.ConfigError = err.Error()
			return
		}
		path = p
	}
	result.ConfigPath = path

	if _, err := os.Stat(path); err == nil {
		result.ConfigExists = true
	}

	if _, err := config.Load(shared.GetConfigPath()); err != nil {
		result.ConfigError = aixerrors.Classify(err).Message()
		return
	}
	result.ConfigValid = true
}

// detectTools globs every known pattern against the project tree.
func detectTools(ctx context.Context, fsys fs.FS) ([]ToolConfig, error) {
	var tools []ToolConfig
	for _, tp := range toolPatterns {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		seen := map[string]bool{}
		var files []string
		for _, pattern := range tp.Patterns {
			matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
			if err != nil {
				return nil, fmt.Errorf("glob %s: %w", pattern, err)
			}
			for _, m := range matches {
				if !seen[m] {
					seen[m] = true
					files = append(files, m)
				}
			}
		}
		if len(files) > 0 {
			sort.Strings(files)
			tools = append(tools, ToolConfig{Tool: tp.Tool, Files: files})
		}
	}
	return tools, nil
}

func countHooks(dir string, logger *slog.Logger) int {
	r := hooks.NewRunner(dir, nil)
	total := 0
	for _, event := range hooks.Events() {
		scripts, err := r.Discover(event)
		if err != nil {
			logger.Debug("hook discovery failed", "event", event, "error", err)
			continue
		}
		total += len(scripts)
	}
	return total
}

func checkMemory(ctx context.Context, result *Result, flagPath string) error {
	path := flagPath
	if path == "" {
		path = shared.GetRuntime().Config.Memory.Database
	}
	if path == "" {
		p, err := config.DefaultMemoryPath(result.ProjectDir)
		if err != nil {
			result.Memory.Message = err.Error()
			return nil
		}
		path = p
	}
	result.Memory.Path = path

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			result.Memory.Message = "not created yet"
			return nil
		}
		result.Memory.Status = memory.StatusUnhealthy
		result.Memory.Message = err.Error()
		return nil
	}
	result.Memory.Exists = true

	store, err := memory.Open(ctx, memory.Config{Path: path})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		result.Memory.Status = memory.StatusUnhealthy
		result.Memory.Message = aixerrors.Classify(err).Message()
		return nil
	}
	defer store.Close()

	h, err := store.Health(ctx)
	if err != nil {
		return err
	}
	result.Memory.Status = h.Status
	result.Memory.Checks = h.Checks
	return nil
}

func recommendations(r *Result) []string {
	var recs []string
	if r.ConfigError != "" {
		recs = append(recs, fmt.Sprintf("Fix the configuration file: %s", r.ConfigError))
	}
	if len(r.Tools) == 0 {
		recs = append(recs, "No AI assistant configuration found. Run 'aix init' to scaffold one")
	}
	switch r.Memory.Status {
	case memory.StatusUnhealthy:
		recs = append(recs, "Memory database is unhealthy. Export what you can with 'aix memory export' and recreate it")
	case memory.StatusDegraded:
		recs = append(recs, "Memory database is degraded. Check 'aix memory health' for details")
	}
	return recs
}

func renderText(r *Result) string {
	var b strings.Builder

	fmt.Fprintln(&b, "aix Health Check")
	fmt.Fprintln(&b, strings.Repeat("=", 50))
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, shared.RenderLabel("Configuration:"))
	fmt.Fprintf(&b, "  Path: %s\n", r.ConfigPath)
	switch {
	case r.ConfigError != "":
		fmt.Fprintf(&b, "  %s\n", shared.RenderStatus(false, "Invalid: "+r.ConfigError))
	case r.ConfigExists:
		fmt.Fprintf(&b, "  %s\n", shared.RenderStatus(true, "Valid"))
	default:
		fmt.Fprintf(&b, "  %s\n", shared.RenderStatus(true, "Not present (using defaults)"))
	}
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, shared.RenderLabel("AI Tools:"))
	if len(r.Tools) == 0 {
		fmt.Fprintln(&b, "  None detected")
	}
	for _, t := range r.Tools {
		fmt.Fprintf(&b, "  %s\n", shared.RenderStatus(true, t.Tool))
		for _, f := range t.Files {
			fmt.Fprintf(&b, "    %s\n", f)
		}
	}
	fmt.Fprintf(&b, "  Hook scripts: %d\n", r.Hooks)
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, shared.RenderLabel("Project Memory:"))
	fmt.Fprintf(&b, "  Path: %s\n", r.Memory.Path)
	if !r.Memory.Exists {
		fmt.Fprintf(&b, "  Status: %s\n", r.Memory.Message)
	} else {
		fmt.Fprintf(&b, "  %s\n", shared.RenderStatus(r.Memory.Status == memory.StatusHealthy, "Status: "+r.Memory.Status))
		if r.Memory.Message != "" {
			fmt.Fprintf(&b, "  %s\n", r.Memory.Message)
		}
	}
	fmt.Fprintln(&b)

	if len(r.Recommendations) > 0 {
		fmt.Fprintln(&b, "Recommendations:")
		for _, rec := range r.Recommendations {
			fmt.Fprintf(&b, "  - %s\n", rec)
		}
		fmt.Fprintln(&b)
	}

	if r.OverallHealthy {
		fmt.Fprint(&b, "Overall Status: Healthy")
	} else {
		fmt.Fprint(&b, "Overall Status: Issues Found")
	}
	return b.String()
}

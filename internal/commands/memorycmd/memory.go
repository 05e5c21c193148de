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

// Package memorycmd implements "aix memory", the command-line and MCP
// front ends to the project memory database.
package memorycmd

import (
	"context"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tombee/aix/internal/commands/shared"
	"github.com/tombee/aix/internal/config"
	"github.com/tombee/aix/internal/log"
	"github.com/tombee/aix/internal/mcp/server"
	"github.com/tombee/aix/internal/memory"
	"github.com/tombee/aix/internal/validate"
	aixerrors "github.com/tombee/aix/pkg/errors"
)

// NewCommand creates the memory command group.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memory",
		Short: "Record and query project memory",
		Long: `Project memory keeps decisions, code patterns and context for AI assistants
in a per-project SQLite database.

The database path comes from --db, memory.database in the config file,
AIX_MEMORY_DB, or defaults to ~/.claude/project-memories/<project>.db.
Table limits come from memory.max_decisions, memory.max_patterns and
memory.max_context_keys, or the matching AIX_MEMORY_MAX_* variables.`,
	}

	cmd.PersistentFlags().String("db", "", "Memory database path")

	cmd.AddCommand(
		newAddDecisionCommand(),
		newSearchCommand(),
		newPatternCommand(),
		newPatternsCommand(),
		newContextCommand(),
		newStatsCommand(),
		newExportCommand(),
		newImportCommand(),
		newHealthCommand(),
		newPurgeCommand(),
		newServeCommand(),
	)

	return cmd
}

// dbPath resolves the database location: flag, then configuration, then
// the per-project default derived from the working directory.
func dbPath(opts validate.Options) (string, error) {
	if p := opts.String("db"); p != "" {
		return p, nil
	}
	if p := shared.GetRuntime().Config.Memory.Database; p != "" {
		return p, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", aixerrors.New(aixerrors.CodePathNotFound, "Cannot determine the project directory",
			aixerrors.WithCause(err))
	}
	p, err := config.DefaultMemoryPath(wd)
	if err != nil {
		return "", aixerrors.New(aixerrors.CodeDatabaseUnavailable, "", aixerrors.WithCause(err))
	}
	return p, nil
}

func openStore(ctx context.Context, opts validate.Options, metrics *memory.Metrics) (*memory.Store, error) {
	path, err := dbPath(opts)
	if err != nil {
		return nil, err
	}
	log.FromContext(ctx).Debug("opening memory database", "path", path)
	mc := shared.GetRuntime().Config.Memory
	return memory.Open(ctx, memory.Config{
		Path:    path,
		Metrics: metrics,
		Limits: memory.Limits{
			MaxDecisions:   mc.MaxDecisions,
			MaxPatterns:    mc.MaxPatterns,
			MaxContextKeys: mc.MaxContextKeys,
		},
	})
}

// projectName labels exports with the working directory's base name.
func projectName() string {
	wd, err := os.Getwd()
	if err != nil {
		return ""
	}
	return filepath.Base(wd)
}

// withStore opens the database for the duration of fn.
func withStore(ctx context.Context, opts validate.Options, fn func(*memory.Store) (string, error)) (string, error) {
	store, err := openStore(ctx, opts, nil)
	if err != nil {
		return "", err
	}
	defer store.Close()
	return fn(store)
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve project memory to AI assistants over MCP (stdio)",
		Long: `Run an MCP server on stdin/stdout exposing the memory tools. The server
runs until its input closes or it is interrupted; the command timeout does
not apply.`,
		Args: cobra.NoArgs,
		RunE: shared.Supervised("memory serve", runServe, shared.WithoutDeadline()),
	}
}

func runServe(ctx context.Context, opts validate.Options) (string, error) {
	metrics := memory.NewMetrics()
	store, err := openStore(ctx, opts, metrics)
	if err != nil {
		return "", err
	}
	defer store.Close()

	rt := shared.GetRuntime()
	version, _, _ := shared.GetVersion()
	srv, err := server.NewServer(server.ServerConfig{
		Version:   version,
		Project:   projectName(),
		Store:     store,
		RateLimit: rt.Config.Memory.RateLimit,
		Metrics:   metrics,
		Logger:    log.FromContext(ctx),
	})
	if err != nil {
		return "", err
	}

	log.FromContext(ctx).Info("memory server listening on stdio", "db", store.Path())
	return "", srv.Run(ctx, rt.Stdin, rt.Stdout)
}

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
package doctor

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/aix/internal/commands/shared"
	"github.com/tombee/aix/internal/memory"
	"github.com/tombee/aix/internal/testing/clitest"
	aixerrors "github.com/tombee/aix/pkg/errors"
)

type envelope struct {
	Command string `json:"command"`
	Data    Result `json:"data"`
}

// project creates a project directory with the given files and an
// isolated XDG config location.
func project(t *testing.T, files ...string) string {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("AIX_TIMEOUT_MS", "")
	t.Setenv("AIX_TRACE_EXPORTER", "")

	dir := t.TempDir()
	for _, f := range files {
		path := filepath.Join(dir, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	}
	return dir
}

func runJSON(t *testing.T, args ...string) Result {
	t.Helper()
	env := clitest.New(t, clitest.Options{})
	*shared.RegisterFlagPointers().JSON = true

	require.NoError(t, env.Execute(NewCommand(), args...), "stderr: %s", env.Err.String())

	var out envelope
	require.NoError(t, json.Unmarshal(env.Out.Bytes(), &out))
	assert.Equal(t, "doctor", out.Command)
	return out.Data
}

func TestDoctor_DetectsTools(t *testing.T) {
	dir := project(t,
		"CLAUDE.md",
		".claude/settings.json",
		".cursor/rules/go.mdc",
		".cursor/rules/nested/style.mdc",
		".github/copilot-instructions.md",
		"README.md",
	)
	db := filepath.Join(t.TempDir(), "memory.db")

	r := runJSON(t, "--dir", dir, "--db", db)

	require.Len(t, r.Tools, 3)
	assert.Equal(t, "Claude Code", r.Tools[0].Tool)
	assert.Equal(t, []string{".claude/settings.json", "CLAUDE.md"}, r.Tools[0].Files)
	assert.Equal(t, "Cursor", r.Tools[1].Tool)
	assert.Equal(t, []string{".cursor/rules/go.mdc", ".cursor/rules/nested/style.mdc"}, r.Tools[1].Files)
	assert.Equal(t, "GitHub Copilot", r.Tools[2].Tool)

	assert.True(t, r.ConfigValid)
	assert.False(t, r.ConfigExists)
	assert.False(t, r.Memory.Exists)
	assert.Equal(t, "not created yet", r.Memory.Message)
	assert.True(t, r.OverallHealthy)
	assert.Empty(t, r.Recommendations)

	_, err := os.Stat(db)
	assert.True(t, os.IsNotExist(err), "doctor must not create the database")
}

func TestDoctor_NoToolsRecommendsInit(t *testing.T) {
	dir := project(t)

	r := runJSON(t, "--dir", dir, "--db", filepath.Join(t.TempDir(), "m.db"))

	assert.Empty(t, r.Tools)
	require.Len(t, r.Recommendations, 1)
	assert.Contains(t, r.Recommendations[0], "aix init")
	assert.True(t, r.OverallHealthy)
}

func TestDoctor_ExistingMemoryDatabase(t *testing.T) {
	dir := project(t, "AGENTS.md")
	db := filepath.Join(t.TempDir(), "memory.db")
	store, err := memory.Open(context.Background(), memory.Config{Path: db})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	r := runJSON(t, "--dir", dir, "--db", db)

	assert.True(t, r.Memory.Exists)
	assert.Equal(t, memory.StatusHealthy, r.Memory.Status)
	assert.Equal(t, "ok", r.Memory.Checks["database_integrity"])
	assert.True(t, r.OverallHealthy)
}

func TestDoctor_InvalidConfig(t *testing.T) {
	dir := project(t, "CLAUDE.md")
	cfg := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("timeout: 5\n"), 0o600))

	env := clitest.New(t, clitest.Options{})
	shared.SetConfigPathForTest(cfg)
	*shared.RegisterFlagPointers().JSON = true

	require.NoError(t, env.Execute(NewCommand(), "--dir", dir, "--db", filepath.Join(t.TempDir(), "m.db")))

	var out envelope
	require.NoError(t, json.Unmarshal(env.Out.Bytes(), &out))
	r := out.Data
	assert.Equal(t, cfg, r.ConfigPath)
	assert.True(t, r.ConfigExists)
	assert.False(t, r.ConfigValid)
	assert.NotEmpty(t, r.ConfigError)
	assert.False(t, r.OverallHealthy)
	require.NotEmpty(t, r.Recommendations)
	assert.Contains(t, r.Recommendations[0], "Fix the configuration file")
}

func TestDoctor_TextOutput(t *testing.T) {
	dir := project(t, ".cursorrules")
	env := clitest.New(t, clitest.Options{})

	require.NoError(t, env.Execute(NewCommand(), "--dir", dir, "--db", filepath.Join(t.TempDir(), "m.db")))

	out := env.Out.String()
	assert.Contains(t, out, "aix Health Check")
	assert.Contains(t, out, "Cursor")
	assert.Contains(t, out, ".cursorrules")
	assert.Contains(t, out, "Hook scripts: 0")
	assert.Contains(t, out, "not created yet")
	assert.Contains(t, out, "Overall Status: Healthy")
}

func TestDoctor_CountsHooks(t *testing.T) {
	dir := project(t)
	script := filepath.Join(dir, ".aix", "hooks", "post-init", "setup.sh")
	require.NoError(t, os.MkdirAll(filepath.Dir(script), 0o755))
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\n"), 0o755))

	r := runJSON(t, "--dir", dir, "--db", filepath.Join(t.TempDir(), "m.db"))

	assert.Equal(t, 1, r.Hooks)
}

func TestDoctor_MissingDirectory(t *testing.T) {
	project(t)
	env := clitest.New(t, clitest.Options{})

	err := env.Execute(NewCommand(), "--dir", filepath.Join(t.TempDir(), "absent"))

	require.Error(t, err)
	assert.Equal(t, 74, clitest.ExitCode(err))
	assert.Contains(t, env.Err.String(), string(aixerrors.CodePathNotFound))
}

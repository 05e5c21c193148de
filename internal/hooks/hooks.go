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
// Package hooks runs project hook scripts stored under
// .aix/hooks/<event>/.
package hooks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/tombee/aix/internal/log"
	"github.com/tombee/aix/internal/sanitize"
	aixerrors "github.com/tombee/aix/pkg/errors"
)

// Dir is the hook root relative to the project directory.
const Dir = ".aix/hooks"

// maxOutput bounds the script output kept in error context.
const maxOutput = 2000

// maxCaptured bounds the script output held in memory. Anything past it
// is read from the pipe and dropped.
const maxCaptured = 64 << 10

// waitDelay is how long a cancelled script gets to exit after being
// killed before its pipes are closed.
const waitDelay = 2 * time.Second

// Supported hook events.
const (
	EventPostInit     = "post-init"
	EventPreCommit    = "pre-commit"
	EventPostCommit   = "post-commit"
	EventSessionStart = "session-start"
)

var events = []string{EventPostInit, EventPreCommit, EventPostCommit, EventSessionStart}

// Events returns the supported hook events.
func Events() []string {
	return append([]string(nil), events...)
}

// ValidEvent reports whether event is supported.
func ValidEvent(event string) bool {
	for _, e := range events {
		if e == event {
			return true
		}
	}
	return false
}

// Script is one executable hook.
type Script struct {
	Event string
	Name  string
	Path  string
}

// Result is the outcome of one script run.
type Result struct {
	Script   Script
	Output   string
	Duration time.Duration

	// Truncated is set when the script wrote more than was kept.
	Truncated bool
}

// Runner discovers and executes hook scripts for a project.
type Runner struct {
	projectDir string
	logger     *slog.Logger
}

// NewRunner creates a Runner for projectDir.
func NewRunner(projectDir string, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = log.Discard()
	}
	return &Runner{projectDir: projectDir, logger: log.WithComponent(logger, "hooks")}
}

// Discover lists the executable scripts for event in name order. A
// missing event directory yields no scripts.
func (r *Runner) Discover(event string) ([]Script, error) {
	if !ValidEvent(event) {
		return nil, unknownEvent(event)
	}

	dir := filepath.Join(r.projectDir, filepath.FromSlash(Dir), event)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		code := aixerrors.CodePathNotFound
		if errors.Is(err, fs.ErrPermission) {
			code = aixerrors.CodePermissionDenied
		}
		return nil, aixerrors.New(code, "", aixerrors.WithCause(err), aixerrors.WithField("path", dir))
	}

	var scripts []Script
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		info, err := entry.Info()
		if err != nil || !executable(info) {
			continue
		}
		scripts = append(scripts, Script{
			Event: event,
			Name:  entry.Name(),
			Path:  filepath.Join(dir, entry.Name()),
		})
	}
	sort.Slice(scripts, func(i, j int) bool { return scripts[i].Name < scripts[j].Name })
	return scripts, nil
}

func executable(info fs.FileInfo) bool {
	if !info.Mode().IsRegular() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}

// Run executes every script for event in order and stops at the first
// failure. Cancelling ctx kills the running script.
func (r *Runner) Run(ctx context.Context, event string) ([]Result, error) {
	scripts, err := r.Discover(event)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(scripts))
	for _, s := range scripts {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := r.runScript(ctx, s)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

func (r *Runner) runScript(ctx context.Context, s Script) (Result, error) {
	cmd := exec.CommandContext(ctx, s.Path)
	cmd.Dir = r.projectDir
	cmd.Env = append(os.Environ(),
		"AIX_HOOK_EVENT="+s.Event,
		"AIX_PROJECT_DIR="+r.projectDir,
	)
	cmd.WaitDelay = waitDelay

	output := &cappedBuffer{limit: maxCaptured}
	cmd.Stdout = output
	cmd.Stderr = output

	r.logger.Debug("running hook", slog.String("event", s.Event), slog.String("script", s.Name))
	start := time.Now()
	err := cmd.Run()
	res := Result{
		Script:    s,
		Output:    strings.TrimSpace(output.String()),
		Duration:  time.Since(start),
		Truncated: output.truncated,
	}

	if err != nil {
		// A kill caused by cancellation is reported by the caller, not as
		// a hook failure.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return res, ctxErr
		}
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return res, aixerrors.New(aixerrors.CodeHookFailed,
			fmt.Sprintf("Hook %s/%s failed", s.Event, s.Name),
			aixerrors.WithCause(err),
			aixerrors.WithContext(map[string]any{
				"event":    s.Event,
				"script":   s.Name,
				"exitCode": exitCode,
				"output":   sanitize.ForDisplay(res.Output, maxOutput),
			}),
		)
	}

	r.logger.Debug("hook finished", slog.String("script", s.Name), log.Duration(res.Duration))
	return res, nil
}

// cappedBuffer keeps the first limit bytes written to it and discards
// the rest while still reporting full writes, so the child never blocks.
type cappedBuffer struct {
	buf       bytes.Buffer
	limit     int
	truncated bool
}

func (c *cappedBuffer) Write(p []byte) (int, error) {
	if room := c.limit - c.buf.Len(); room < len(p) {
		c.truncated = true
		if room > 0 {
			c.buf.Write(p[:room])
		}
		return len(p), nil
	}
	return c.buf.Write(p)
}

func (c *cappedBuffer) String() string {
	return c.buf.String()
}

func unknownEvent(event string) error {
	shown := sanitize.ForDisplay(event, 50)
	return aixerrors.New(aixerrors.CodeUnknownHookEvent,
		fmt.Sprintf("Unknown hook event %q", shown),
		aixerrors.WithContext(map[string]any{
			"event":     shown,
			"supported": strings.Join(events, ", "),
		}),
	)
}

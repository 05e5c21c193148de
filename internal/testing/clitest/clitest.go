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

// Package clitest runs aix subcommands against an isolated runtime so
// tests can inspect what the Reporter wrote.
package clitest

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/tombee/aix/internal/commands/shared"
	"github.com/tombee/aix/internal/config"
	"github.com/tombee/aix/internal/log"
	"github.com/tombee/aix/internal/reporter"
)

// Options configures the runtime installed by New.
type Options struct {
	Mode      reporter.Mode
	TimeoutMS int
	Stdin     string

	// Configure adjusts the configuration after defaults are applied.
	Configure func(*config.Config)
}

// Env is an installed test runtime and the buffers it writes to.
type Env struct {
	Runtime *shared.Runtime
	Out     *bytes.Buffer
	Err     *bytes.Buffer
}

// New installs a runtime for the duration of the test. Global flags and
// the runtime are reset during cleanup.
func New(t *testing.T, opts Options) *Env {
	t.Helper()

	var out, errOut bytes.Buffer
	rt := shared.DefaultRuntime(strings.NewReader(opts.Stdin), &out, &errOut)
	rt.Config = config.Default()
	if opts.TimeoutMS > 0 {
		rt.Config.TimeoutMS = opts.TimeoutMS
	}
	if opts.Configure != nil {
		opts.Configure(rt.Config)
	}
	rt.Operation = log.NewOperation()
	rt.Reporter = reporter.New(reporter.Options{
		Mode:      opts.Mode,
		Out:       &out,
		Err:       &errOut,
		Operation: rt.Operation,
	})

	shared.SetRuntime(rt)
	t.Cleanup(func() {
		shared.SetRuntime(nil)
		shared.ResetFlagsForTest()
	})

	return &Env{Runtime: rt, Out: &out, Err: &errOut}
}

// Run executes cmd with args under ctx.
func (e *Env) Run(ctx context.Context, cmd *cobra.Command, args ...string) error {
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	cmd.SetArgs(args)
	cmd.SetIn(e.Runtime.Stdin)
	cmd.SetOut(e.Out)
	cmd.SetErr(e.Err)
	return cmd.ExecuteContext(ctx)
}

// Execute is Run with a background context.
func (e *Env) Execute(cmd *cobra.Command, args ...string) error {
	return e.Run(context.Background(), cmd, args...)
}

// ExitCode returns the exit status err maps to.
func ExitCode(err error) int {
	var discard bytes.Buffer
	return shared.HandleExitError(err, &discard, false)
}

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
package shared

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/tombee/aix/internal/supervisor"
	"github.com/tombee/aix/internal/validate"
)

// HandlerFunc is the body of a supervised command. The returned string is
// the command's result: printed in human mode, carried as a field in
// structured mode.
type HandlerFunc func(ctx context.Context, opts validate.Options) (string, error)

type superviseOptions struct {
	noDeadline bool
}

// SuperviseOption adjusts how a command is supervised.
type SuperviseOption func(*superviseOptions)

// WithoutDeadline disables the configured timeout. Manual abort remains
// the only way the command is cancelled.
func WithoutDeadline() SuperviseOption {
	return func(o *superviseOptions) { o.noDeadline = true }
}

// Supervised adapts h into a cobra RunE. Flags and arguments are
// validated before h runs, h runs under the cancellation supervisor, and
// the outcome is rendered by the runtime's Reporter exactly once.
func Supervised(name string, h HandlerFunc, opts ...SuperviseOption) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		return RunSupervised(ctx, GetRuntime(), name, h, CollectFlags(cmd.Flags()), args, opts...)
	}
}

// RunSupervised is the pipeline behind Supervised, usable without cobra.
func RunSupervised(ctx context.Context, rt *Runtime, name string, h HandlerFunc, raw map[string]any, args []string, opts ...SuperviseOption) error {
	var o superviseOptions
	for _, opt := range opts {
		opt(&o)
	}

	validated, err := validate.Parse(raw, args, rt.Config.MaxInputLength)
	if err != nil {
		rt.Reporter.ReportError(err)
		return NewExitError(err, true)
	}

	out := supervisor.Supervise(ctx, supervisor.Handler[string](h), validated, supervisor.Config{
		Name:       name,
		Timeout:    rt.Config.Timeout(),
		NoDeadline: o.noDeadline,
		Operation:  rt.Operation,
		Logger:     rt.Reporter.Logger(),
		Tracer:     rt.Tracer,
	})

	summary := out.Summary()
	rt.Reporter.Report(summary, out.Value)
	if summary.Err != nil {
		return &ExitError{Code: summary.ExitCode(), Cause: summary.Err, Reported: true}
	}
	return nil
}

// CollectFlags returns the value of every flag in fs keyed by name. Bool
// flags are returned as bool, everything else in its string form.
func CollectFlags(fs *pflag.FlagSet) map[string]any {
	raw := make(map[string]any)
	fs.VisitAll(func(f *pflag.Flag) {
		if f.Name == "help" {
			return
		}
		if f.Value.Type() == "bool" {
			b, err := fs.GetBool(f.Name)
			if err == nil {
				raw[f.Name] = b
				return
			}
		}
		raw[f.Name] = f.Value.String()
	})
	return raw
}

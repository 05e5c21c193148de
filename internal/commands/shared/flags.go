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
	"io"
	"os"
	"sync"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/tombee/aix/internal/config"
	"github.com/tombee/aix/internal/log"
	"github.com/tombee/aix/internal/reporter"
)

// Global flag values - set by root command
var (
	verboseFlag bool
	jsonFlag    bool
	debugFlag   bool
	noColorFlag bool
	configFlag  string
	timeoutFlag int

	// Build-time version information
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

// GlobalFlags holds pointers to the persistent flag variables.
type GlobalFlags struct {
	Verbose   *bool
	JSON      *bool
	Debug     *bool
	NoColor   *bool
	Config    *string
	TimeoutMS *int
}

// RegisterFlagPointers returns pointers to flag variables for binding.
// Called by root command to register flags.
func RegisterFlagPointers() GlobalFlags {
	return GlobalFlags{
		Verbose:   &verboseFlag,
		JSON:      &jsonFlag,
		Debug:     &debugFlag,
		NoColor:   &noColorFlag,
		Config:    &configFlag,
		TimeoutMS: &timeoutFlag,
	}
}

// SetVersion sets the version information (called from main)
func SetVersion(v, c, b string) {
	version = v
	commit = c
	buildDate = b
}

// GetVerbose returns the verbose flag value
func GetVerbose() bool {
	return verboseFlag
}

// GetJSON returns the JSON output flag value
func GetJSON() bool {
	return jsonFlag
}

// GetDebug returns the debug flag value
func GetDebug() bool {
	return debugFlag
}

// GetNoColor returns the no-color flag value
func GetNoColor() bool {
	return noColorFlag
}

// GetConfigPath returns the config file path
func GetConfigPath() string {
	return configFlag
}

// GetTimeoutMS returns the --timeout value, 0 when unset
func GetTimeoutMS() int {
	return timeoutFlag
}

// GetVersion returns version information
func GetVersion() (string, string, string) {
	return version, commit, buildDate
}

// SetConfigPathForTest sets the config path for testing purposes
func SetConfigPathForTest(path string) {
	configFlag = path
}

// ResetFlagsForTest restores every global flag to its zero value.
func ResetFlagsForTest() {
	verboseFlag, jsonFlag, debugFlag, noColorFlag = false, false, false, false
	configFlag = ""
	timeoutFlag = 0
}

// Runtime is the per-process state built by the root command before any
// subcommand runs.
type Runtime struct {
	Config    *config.Config
	Reporter  *reporter.Reporter
	Operation *log.Operation
	Tracer    trace.Tracer

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

var (
	runtimeMu sync.RWMutex
	current   *Runtime
)

// SetRuntime installs rt for subsequent GetRuntime calls.
func SetRuntime(rt *Runtime) {
	runtimeMu.Lock()
	defer runtimeMu.Unlock()
	current = rt
}

// GetRuntime returns the installed runtime, or a default one writing
// human output to the standard streams when none was set.
func GetRuntime() *Runtime {
	runtimeMu.RLock()
	rt := current
	runtimeMu.RUnlock()
	if rt != nil {
		return rt
	}
	return DefaultRuntime(os.Stdin, os.Stdout, os.Stderr)
}

// DefaultRuntime builds a runtime from built-in defaults.
func DefaultRuntime(in io.Reader, out, errOut io.Writer) *Runtime {
	op := log.NewOperation()
	return &Runtime{
		Config:    config.Default(),
		Operation: op,
		Tracer:    noop.NewTracerProvider().Tracer("aix"),
		Reporter: reporter.New(reporter.Options{
			Mode:      reporter.ModeHuman,
			Out:       out,
			Err:       errOut,
			Operation: op,
		}),
		Stdin:  in,
		Stdout: out,
		Stderr: errOut,
	}
}

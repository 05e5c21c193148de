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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/aix/internal/config"
	"github.com/tombee/aix/internal/log"
	"github.com/tombee/aix/internal/reporter"
	"github.com/tombee/aix/internal/validate"
	aixerrors "github.com/tombee/aix/pkg/errors"
)

func testRuntime(t *testing.T, mode reporter.Mode, timeoutMS int) (*Runtime, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var out, errOut bytes.Buffer
	rt := DefaultRuntime(strings.NewReader(""), &out, &errOut)
	rt.Config = config.Default()
	rt.Config.TimeoutMS = timeoutMS
	rt.Operation = log.NewOperation()
	rt.Reporter = reporter.New(reporter.Options{Mode: mode, Out: &out, Err: &errOut, Operation: rt.Operation})
	return rt, &out, &errOut
}

func TestRunSupervised_Success(t *testing.T) {
	rt, out, errOut := testRuntime(t, reporter.ModeHuman, 5000)

	var gotName string
	err := RunSupervised(context.Background(), rt, "greet", func(ctx context.Context, opts validate.Options) (string, error) {
		gotName = opts.String("name")
		return "hello " + gotName, nil
	}, map[string]any{"name": "dev"}, nil)

	require.NoError(t, err)
	assert.Equal(t, "dev", gotName)
	assert.Equal(t, "hello dev\n", out.String())
	assert.Empty(t, errOut.String())
	assert.Empty(t, rt.Operation.ID(), "correlation id cleared after the run")
}

func TestRunSupervised_ValidationFailureSkipsHandler(t *testing.T) {
	rt, _, errOut := testRuntime(t, reporter.ModeHuman, 5000)
	rt.Config.MaxInputLength = 10

	called := false
	err := RunSupervised(context.Background(), rt, "init", func(context.Context, validate.Options) (string, error) {
		called = true
		return "", nil
	}, map[string]any{"preset": "this-is-a-very-long-value!"}, nil)

	assert.False(t, called)
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 65, exitErr.Code)
	assert.True(t, exitErr.Reported)
	assert.Contains(t, errOut.String(), "AIX-VAL-202")
	assert.Contains(t, errOut.String(), "--preset is too long (26 characters, maximum 10)")
}

func TestRunSupervised_Timeout(t *testing.T) {
	rt, _, errOut := testRuntime(t, reporter.ModeStructured, 1)

	err := RunSupervised(context.Background(), rt, "slow", func(ctx context.Context, _ validate.Options) (string, error) {
		select {
		case <-time.After(5 * time.Second):
			return "late", nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}, nil, nil)

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 1, exitErr.Code)

	lines := strings.Split(strings.TrimSpace(errOut.String()), "\n")
	require.Len(t, lines, 1, "exactly one structured line for the failure")
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "AIX-GEN-003", entry["code"])
	assert.Contains(t, entry["message"], "timed out after 1ms")
	assert.NotEmpty(t, entry["operationId"])
}

func TestRunSupervised_WithoutDeadline(t *testing.T) {
	rt, out, _ := testRuntime(t, reporter.ModeHuman, 1)

	err := RunSupervised(context.Background(), rt, "serve", func(ctx context.Context, _ validate.Options) (string, error) {
		time.Sleep(20 * time.Millisecond)
		return "served", ctx.Err()
	}, nil, nil, WithoutDeadline())

	require.NoError(t, err)
	assert.Equal(t, "served\n", out.String())
}

func TestRunSupervised_HandlerFailure(t *testing.T) {
	rt, _, errOut := testRuntime(t, reporter.ModeHuman, 5000)

	err := RunSupervised(context.Background(), rt, "init", func(context.Context, validate.Options) (string, error) {
		return "", aixerrors.New(aixerrors.CodeAlreadyInitialized, "CLAUDE.md already exists")
	}, nil, nil)

	assert.Equal(t, 64, HandleExitError(err, errOut, false))
	assert.Equal(t, 1, strings.Count(errOut.String(), "Error [AIX-INIT-101]"), "rendered once")
}

func TestRunSupervised_PlainErrorClassified(t *testing.T) {
	rt, _, errOut := testRuntime(t, reporter.ModeHuman, 5000)

	err := RunSupervised(context.Background(), rt, "doctor", func(context.Context, validate.Options) (string, error) {
		return "", errors.New("disk exploded")
	}, nil, nil)

	assert.Equal(t, 1, aixerrors.ExitCodeOf(err))
	assert.Contains(t, errOut.String(), "AIX-GEN-002")
}

func TestSupervised_CollectsFlagsAndArgs(t *testing.T) {
	rt, out, _ := testRuntime(t, reporter.ModeHuman, 5000)
	SetRuntime(rt)
	t.Cleanup(func() { SetRuntime(nil) })

	cmd := &cobra.Command{
		Use: "echo",
		RunE: Supervised("echo", func(_ context.Context, opts validate.Options) (string, error) {
			if opts.Bool("force") {
				return "forced " + opts.Arg(0) + " " + opts.String("preset"), nil
			}
			return "plain", nil
		}),
	}
	cmd.Flags().Bool("force", false, "")
	cmd.Flags().String("preset", "minimal", "")
	cmd.SetArgs([]string{"--force", "--preset", "full", "value"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "forced value full\n", out.String())
}

func TestCollectFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "x"}
	cmd.Flags().Bool("dry-run", false, "")
	cmd.Flags().Int("limit", 10, "")
	cmd.Flags().String("dir", ".", "")
	cmd.InitDefaultHelpFlag()

	raw := CollectFlags(cmd.Flags())
	assert.Equal(t, false, raw["dry-run"])
	assert.Equal(t, "10", raw["limit"])
	assert.Equal(t, ".", raw["dir"])
	assert.NotContains(t, raw, "help")
}

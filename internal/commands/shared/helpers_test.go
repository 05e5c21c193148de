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
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDryRunOutput(t *testing.T) {
	d := NewDryRunOutput()
	assert.Equal(t, "Dry run: No actions would be performed.", d.String())

	d.Add(DryRunActionCreate, "CLAUDE.md")
	d.AddWithReason(DryRunActionSkip, ".aix/config.yaml", "exists")
	d.Add(DryRunActionRun, ".aix/hooks/post-init/10-setup.sh")

	assert.Equal(t, 3, d.Len())
	want := "Dry run: The following actions would be performed:\n\n" +
		"CREATE: CLAUDE.md\n" +
		"SKIP: .aix/config.yaml (exists)\n" +
		"RUN: .aix/hooks/post-init/10-setup.sh\n" +
		"\nRun without --dry-run to execute."
	assert.Equal(t, want, d.String())
}

func TestIsNonInteractive(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "explicit flag", env: map[string]string{"AIX_NON_INTERACTIVE": "true"}},
		{name: "explicit numeric", env: map[string]string{"AIX_NON_INTERACTIVE": "1"}},
		{name: "CI", env: map[string]string{"CI": "true"}},
		{name: "GitHub Actions", env: map[string]string{"GITHUB_ACTIONS": "true"}},
		{name: "Jenkins", env: map[string]string{"JENKINS_HOME": "/var/jenkins"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, k := range []string{"AIX_NON_INTERACTIVE", "CI", "GITHUB_ACTIONS", "GITLAB_CI", "CIRCLECI", "JENKINS_HOME"} {
				t.Setenv(k, "")
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			assert.True(t, IsNonInteractive())
		})
	}
}

func TestColorEnabled(t *testing.T) {
	assert.False(t, ColorEnabled(true, os.Stdout), "--no-color always wins")
	assert.False(t, ColorEnabled(false, nil))

	f, err := os.CreateTemp(t.TempDir(), "out")
	require.NoError(t, err)
	defer f.Close()
	assert.False(t, ColorEnabled(false, f), "regular files are not terminals")
	assert.False(t, IsTerminal(f))
}

func TestRenderJSON(t *testing.T) {
	out, err := RenderJSON("presets", []string{"minimal", "full"})
	require.NoError(t, err)

	var got struct {
		Version string   `json:"@version"`
		Command string   `json:"command"`
		Success bool     `json:"success"`
		Data    []string `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "1.0", got.Version)
	assert.Equal(t, "presets", got.Command)
	assert.True(t, got.Success)
	assert.Equal(t, []string{"minimal", "full"}, got.Data)
}

func TestRenderHelpers_PlainWhenColorDisabled(t *testing.T) {
	DisableColor()
	assert.Equal(t, SymbolOK+" done", RenderOK("done"))
	assert.Equal(t, SymbolError+" failed", RenderError("failed"))
	assert.Equal(t, "[OK]", RenderStatus(true, "OK"))
}

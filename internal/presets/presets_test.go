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
package presets

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	aixerrors "github.com/tombee/aix/pkg/errors"
)

func TestList(t *testing.T) {
	list, err := List()
	require.NoError(t, err)

	names := make([]string, len(list))
	for i, p := range list {
		names[i] = p.Name
		assert.NotEmpty(t, p.Description, p.Name)
	}
	assert.Equal(t, []string{"minimal", "claude", "cursor", "copilot", "full"}, names)
	assert.Equal(t, names, Names())
}

func TestGet_Unknown(t *testing.T) {
	_, err := Get("nope\x1b[31m")
	require.Error(t, err)
	assert.Equal(t, aixerrors.CodeUnknownPreset, aixerrors.CodeOf(err))
	assert.Equal(t, 64, aixerrors.ExitCodeOf(err))
	assert.NotContains(t, err.Error(), "\x1b")
	assert.Contains(t, err.Error(), `Unknown preset "nope"`)
}

func TestExists(t *testing.T) {
	assert.True(t, Exists("minimal"))
	assert.False(t, Exists("../minimal"))
	assert.False(t, Exists(""))
}

func TestRender_Minimal(t *testing.T) {
	files, err := Render("minimal", Data{ProjectName: "demo"})
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "CLAUDE.md", files[0].Path)
	assert.True(t, strings.HasPrefix(string(files[0].Content), "# demo\n"))
}

func TestRender_FullIncludesEveryPreset(t *testing.T) {
	files, err := Render("full", Data{ProjectName: "demo", Date: "2025-01-02"})
	require.NoError(t, err)

	byPath := map[string]string{}
	for _, f := range files {
		_, dup := byPath[f.Path]
		assert.False(t, dup, "path %s rendered twice", f.Path)
		byPath[f.Path] = string(f.Content)
	}

	for _, p := range []string{"CLAUDE.md", ".claude/settings.json", ".mcp.json", ".cursor/rules/project.mdc", ".github/copilot-instructions.md", ".aix/config.yaml"} {
		assert.Contains(t, byPath, p)
	}
	assert.Contains(t, byPath["CLAUDE.md"], "Working agreement", "later include wins")
	assert.Contains(t, byPath[".aix/config.yaml"], "created: 2025-01-02")
	assert.Contains(t, byPath[".aix/config.yaml"], "preset: full")
}

func TestRenderFile_Errors(t *testing.T) {
	_, err := renderFile("x", File{Path: "a.md", Template: "{{.Missing}}"}, Data{})
	assert.Equal(t, aixerrors.CodeTemplateRender, aixerrors.CodeOf(err))

	_, err = renderFile("x", File{Path: "a.md", Template: "{{"}, Data{})
	assert.Equal(t, aixerrors.CodeTemplateRender, aixerrors.CodeOf(err))
}

func TestValidPath(t *testing.T) {
	for _, p := range []string{"CLAUDE.md", ".claude/settings.json", "a/b/c.txt"} {
		assert.True(t, validPath(p), p)
	}
	for _, p := range []string{"", "/etc/passwd", "../x", "a/../../x", "a\\b", ".", "a//b"} {
		assert.False(t, validPath(p), p)
	}
}

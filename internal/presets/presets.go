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
// Package presets holds the embedded project presets rendered by
// "aix init".
package presets

import (
	"bytes"
	"embed"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/tombee/aix/internal/sanitize"
	aixerrors "github.com/tombee/aix/pkg/errors"
)

// Embed preset definitions into the binary for offline availability
//
//go:embed defs/*.yaml
var embeddedFS embed.FS

// maxNameDisplay bounds how much of an unknown preset name is echoed.
const maxNameDisplay = 50

// File is one file a preset writes, relative to the project directory.
type File struct {
	Path     string `yaml:"path"`
	Template string `yaml:"template"`
}

// Preset is an embedded preset definition.
type Preset struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Order       int      `yaml:"order"`
	Include     []string `yaml:"include"`
	Files       []File   `yaml:"files"`
}

// Data is the template input for every preset file.
type Data struct {
	ProjectName string
	Preset      string
	Date        string
}

// RenderedFile is a preset file ready to be written.
type RenderedFile struct {
	Path    string
	Content []byte
}

var load = sync.OnceValues(func() (map[string]*Preset, error) {
	entries, err := embeddedFS.ReadDir("defs")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded presets: %w", err)
	}

	presets := make(map[string]*Preset, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		content, err := embeddedFS.ReadFile("defs/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read preset %s: %w", entry.Name(), err)
		}
		var p Preset
		if err := yaml.Unmarshal(content, &p); err != nil {
			return nil, fmt.Errorf("failed to parse preset %s: %w", entry.Name(), err)
		}
		if p.Name == "" {
			p.Name = strings.TrimSuffix(entry.Name(), ".yaml")
		}
		for _, f := range p.Files {
			if !validPath(f.Path) {
				return nil, fmt.Errorf("preset %s: invalid file path %q", p.Name, f.Path)
			}
		}
		presets[p.Name] = &p
	}
	return presets, nil
})

func validPath(p string) bool {
	if p == "" || path.IsAbs(p) || strings.Contains(p, "\\") {
		return false
	}
	clean := path.Clean(p)
	return clean == p && clean != "." && !strings.HasPrefix(clean, "../") && clean != ".."
}

// List returns all presets ordered for display.
func List() ([]Preset, error) {
	all, err := load()
	if err != nil {
		return nil, err
	}
	out := make([]Preset, 0, len(all))
	for _, p := range all {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// Names returns the preset names in display order.
func Names() []string {
	list, err := List()
	if err != nil {
		return nil
	}
	names := make([]string, len(list))
	for i, p := range list {
		names[i] = p.Name
	}
	return names
}

// Get returns the preset called name. Unknown names produce an
// AIX-INIT-103 error that echoes the name only in sanitized form.
func Get(name string) (*Preset, error) {
	all, err := load()
	if err != nil {
		return nil, err
	}
	p, ok := all[name]
	if !ok {
		shown := sanitize.ForDisplay(name, maxNameDisplay)
		return nil, aixerrors.New(aixerrors.CodeUnknownPreset,
			fmt.Sprintf("Unknown preset %q", shown),
			aixerrors.WithContext(map[string]any{
				"preset":    shown,
				"available": strings.Join(Names(), ", "),
			}),
		)
	}
	return p, nil
}

// Exists checks if a preset with the given name exists
func Exists(name string) bool {
	_, err := Get(name)
	return err == nil
}

// Render resolves the preset's includes and renders every file. When two
// presets write the same path, the later one wins.
func Render(name string, data Data) ([]RenderedFile, error) {
	files, err := resolve(name, map[string]bool{})
	if err != nil {
		return nil, err
	}
	if data.Preset == "" {
		data.Preset = name
	}

	rendered := make([]RenderedFile, 0, len(files))
	index := make(map[string]int, len(files))
	for _, f := range files {
		content, err := renderFile(name, f, data)
		if err != nil {
			return nil, err
		}
		if i, ok := index[f.Path]; ok {
			rendered[i].Content = content
			continue
		}
		index[f.Path] = len(rendered)
		rendered = append(rendered, RenderedFile{Path: f.Path, Content: content})
	}
	return rendered, nil
}

func resolve(name string, seen map[string]bool) ([]File, error) {
	p, err := Get(name)
	if err != nil {
		return nil, err
	}
	if seen[name] {
		return nil, aixerrors.New(aixerrors.CodeTemplateRender,
			fmt.Sprintf("Preset %q includes itself", name),
			aixerrors.WithField("preset", name))
	}
	seen[name] = true
	defer delete(seen, name)

	var files []File
	for _, inc := range p.Include {
		sub, err := resolve(inc, seen)
		if err != nil {
			return nil, err
		}
		files = append(files, sub...)
	}
	return append(files, p.Files...), nil
}

func renderFile(preset string, f File, data Data) ([]byte, error) {
	tmpl, err := template.New(f.Path).Option("missingkey=error").Parse(f.Template)
	if err != nil {
		return nil, templateError(preset, f.Path, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, templateError(preset, f.Path, err)
	}
	return buf.Bytes(), nil
}

func templateError(preset, file string, err error) error {
	return aixerrors.New(aixerrors.CodeTemplateRender, "",
		aixerrors.WithCause(err),
		aixerrors.WithContext(map[string]any{"preset": preset, "file": file}),
	)
}

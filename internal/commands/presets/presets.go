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

// Package presets implements "aix presets".
package presets

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tombee/aix/internal/commands/shared"
	"github.com/tombee/aix/internal/presets"
	"github.com/tombee/aix/internal/validate"
)

// Summary is the listing entry for one preset.
type Summary struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Include     []string `json:"include,omitempty"`
	Files       []string `json:"files"`
}

// NewCommand creates the presets command.
func NewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List available presets",
		Long:  `List the presets "aix init --preset" accepts and the files each one writes.`,
		Args:  cobra.NoArgs,
		RunE:  shared.Supervised("presets", run),
	}
}

func run(ctx context.Context, _ validate.Options) (string, error) {
	list, err := presets.List()
	if err != nil {
		return "", err
	}

	summaries := make([]Summary, 0, len(list))
	for _, p := range list {
		files, err := presets.Render(p.Name, presets.Data{ProjectName: "example", Preset: p.Name})
		if err != nil {
			return "", err
		}
		s := Summary{Name: p.Name, Description: p.Description, Include: p.Include}
		for _, f := range files {
			s.Files = append(s.Files, f.Path)
		}
		summaries = append(summaries, s)
	}

	if shared.GetJSON() {
		return shared.RenderJSON("presets", summaries)
	}

	def := shared.GetRuntime().Config.DefaultPreset
	var sb strings.Builder
	for _, s := range summaries {
		marker := " "
		if s.Name == def {
			marker = "*"
		}
		fmt.Fprintf(&sb, "%s %-8s %s\n", marker, s.Name, s.Description)
		fmt.Fprintf(&sb, "    %s\n", strings.Join(s.Files, ", "))
	}
	sb.WriteString("\n* default preset\n")
	return sb.String(), nil
}

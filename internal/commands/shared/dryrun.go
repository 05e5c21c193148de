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
	"fmt"
	"path/filepath"
	"strings"
)

// DryRunAction represents the type of action that would be performed.
type DryRunAction string

const (
	// DryRunActionCreate indicates a file would be created.
	DryRunActionCreate DryRunAction = "CREATE"
	// DryRunActionOverwrite indicates an existing file would be replaced.
	DryRunActionOverwrite DryRunAction = "OVERWRITE"
	// DryRunActionSkip indicates a file would be left alone.
	DryRunActionSkip DryRunAction = "SKIP"
	// DryRunActionRun indicates a hook script would be executed.
	DryRunActionRun DryRunAction = "RUN"
)

// DryRunOutput collects the actions a command would perform.
type DryRunOutput struct {
	actions []string
}

// NewDryRunOutput creates a new dry-run output formatter.
func NewDryRunOutput() *DryRunOutput {
	return &DryRunOutput{}
}

// Add records one action. Paths should already be relative to the
// project directory.
func (d *DryRunOutput) Add(action DryRunAction, path string) {
	d.actions = append(d.actions, fmt.Sprintf("%s: %s", action, filepath.ToSlash(path)))
}

// AddWithReason records one action with a short explanation.
func (d *DryRunOutput) AddWithReason(action DryRunAction, path, reason string) {
	d.actions = append(d.actions, fmt.Sprintf("%s: %s (%s)", action, filepath.ToSlash(path), reason))
}

// Len returns the number of recorded actions.
func (d *DryRunOutput) Len() int {
	return len(d.actions)
}

// String returns the formatted dry-run output.
// Format:
//
//	Dry run: The following actions would be performed:
//
//	CREATE: CLAUDE.md
//	SKIP: .aix/config.yaml (exists)
//
//	Run without --dry-run to execute.
func (d *DryRunOutput) String() string {
	if len(d.actions) == 0 {
		return "Dry run: No actions would be performed."
	}

	var sb strings.Builder
	sb.WriteString("Dry run: The following actions would be performed:\n\n")
	for _, action := range d.actions {
		sb.WriteString(action)
		sb.WriteString("\n")
	}
	sb.WriteString("\nRun without --dry-run to execute.")
	return sb.String()
}

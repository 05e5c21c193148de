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

package completion

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tombee/aix/internal/hooks"
	"github.com/tombee/aix/internal/presets"
	aixerrors "github.com/tombee/aix/pkg/errors"
)

// SafeCompletionWrapper runs fn, turning a panic or nil result into an
// empty completion list.
func SafeCompletionWrapper(fn func() ([]string, cobra.ShellCompDirective)) (results []string, directive cobra.ShellCompDirective) {
	results = []string{}
	directive = cobra.ShellCompDirectiveNoFileComp

	defer func() {
		if r := recover(); r != nil {
			results = []string{}
			directive = cobra.ShellCompDirectiveNoFileComp
		}
	}()

	results, directive = fn()
	if results == nil {
		return []string{}, cobra.ShellCompDirectiveNoFileComp
	}
	return results, directive
}

// CompletePresets provides completion for --preset flag values.
func CompletePresets(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return SafeCompletionWrapper(func() ([]string, cobra.ShellCompDirective) {
		list, err := presets.List()
		if err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		var out []string
		for _, p := range list {
			if strings.HasPrefix(p.Name, toComplete) {
				out = append(out, fmt.Sprintf("%s\t%s", p.Name, p.Description))
			}
		}
		return out, cobra.ShellCompDirectiveNoFileComp
	})
}

// CompleteHookEvents provides completion for the event argument of the
// hooks subcommands. Only the first argument is completed.
func CompleteHookEvents(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return SafeCompletionWrapper(func() ([]string, cobra.ShellCompDirective) {
		if len(args) > 0 {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		var out []string
		for _, e := range hooks.Events() {
			if strings.HasPrefix(e, toComplete) {
				out = append(out, e)
			}
		}
		return out, cobra.ShellCompDirectiveNoFileComp
	})
}

// CompleteErrorCodes provides completion for "aix errors explain".
func CompleteErrorCodes(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return SafeCompletionWrapper(func() ([]string, cobra.ShellCompDirective) {
		if len(args) > 0 {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		prefix := strings.ToUpper(toComplete)
		var out []string
		for _, c := range aixerrors.Codes() {
			if !strings.HasPrefix(string(c), prefix) {
				continue
			}
			e, _ := aixerrors.Lookup(c)
			out = append(out, fmt.Sprintf("%s\t%s", c, e.Description))
		}
		return out, cobra.ShellCompDirectiveNoFileComp
	})
}

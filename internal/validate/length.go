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

package validate

import (
	"fmt"
	"slices"
	"unicode/utf8"

	"github.com/tombee/aix/internal/sanitize"
	aixerrors "github.com/tombee/aix/pkg/errors"
)

const (
	// DefaultMaxInputLength is used when no bound is configured.
	DefaultMaxInputLength = 1000

	// HardMaxInputLength caps any configured bound so the check cannot
	// be disabled through configuration.
	HardMaxInputLength = 100000

	// previewLength is the size of the value preview in length errors.
	previewLength = 30
)

// ClampMaxLength returns n bounded to (0, HardMaxInputLength]. Zero or
// negative values select DefaultMaxInputLength.
func ClampMaxLength(n int) int {
	if n <= 0 {
		return DefaultMaxInputLength
	}
	if n > HardMaxInputLength {
		return HardMaxInputLength
	}
	return n
}

// ValidateInputLengths fails with CodeInputTooLong for the first string
// option (in key order) longer than maxLength characters. maxLength is
// clamped with ClampMaxLength first.
func ValidateInputLengths(opts map[string]any, maxLength int) error {
	limit := ClampMaxLength(maxLength)

	keys := make([]string, 0, len(opts))
	for k := range opts {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, k := range keys {
		s, ok := opts[k].(string)
		if !ok {
			continue
		}
		n := utf8.RuneCountInString(s)
		if n <= limit {
			continue
		}
		return aixerrors.New(aixerrors.CodeInputTooLong,
			fmt.Sprintf("Option --%s is too long (%d characters, maximum %d)", k, n, limit),
			aixerrors.WithContext(map[string]any{
				"option":    k,
				"length":    n,
				"maxLength": limit,
				"preview":   sanitize.ForDisplay(s, previewLength),
			}),
		)
	}
	return nil
}

// ArgKey is the option key used for positional argument i.
func ArgKey(i int) string {
	return fmt.Sprintf("arg%d", i+1)
}

// Parse normalizes raw option values, bounds every string option and
// positional argument, and returns the immutable Options.
func Parse(raw map[string]any, args []string, maxLength int) (Options, error) {
	values := NormalizeOptionTypes(raw)

	checked := make(map[string]any, len(values)+len(args))
	for k, v := range values {
		checked[k] = v
	}
	for i, a := range args {
		checked[ArgKey(i)] = a
	}

	if err := ValidateInputLengths(checked, maxLength); err != nil {
		return Options{}, err
	}
	return NewOptions(values, args), nil
}

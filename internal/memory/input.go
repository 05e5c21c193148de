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
package memory

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/tombee/aix/internal/sanitize"
	aixerrors "github.com/tombee/aix/pkg/errors"
)

const (
	// MaxStringLength caps every stored text value.
	MaxStringLength = 10000

	// MaxKeyLength caps context keys and pattern names.
	MaxKeyLength = 100

	// maxKeywordLength caps search keywords.
	maxKeywordLength = 100

	truncatedMarker = "... [truncated]"
)

var keyPattern = regexp.MustCompile(`^[\w.-]+$`)

// CleanInput truncates s to maxLength runes (appending a marker), removes
// NUL bytes and trims surrounding whitespace.
func CleanInput(s string, maxLength int) string {
	if maxLength <= 0 {
		maxLength = MaxStringLength
	}
	if utf8.RuneCountInString(s) > maxLength {
		s = string([]rune(s)[:maxLength]) + truncatedMarker
	}
	s = strings.ReplaceAll(s, "\x00", "")
	return strings.TrimSpace(s)
}

// ValidKey reports whether key may be used as a context key or pattern
// name: letters, digits, '_', '-' and '.', at most MaxKeyLength long.
func ValidKey(key string) bool {
	return key != "" && len(key) <= MaxKeyLength && keyPattern.MatchString(key)
}

// CheckKey returns an AIX-VAL-203 error when key is not valid. field
// names the argument in the message.
func CheckKey(field, key string) error {
	if ValidKey(key) {
		return nil
	}
	shown := sanitize.ForDisplay(key, 30)
	return aixerrors.New(aixerrors.CodeInvalidKey,
		fmt.Sprintf("Invalid %s %q", field, shown),
		aixerrors.WithContext(map[string]any{field: shown, "maxLength": MaxKeyLength}),
	)
}

// EscapeLike escapes LIKE wildcards so s matches literally when used
// with ESCAPE '\'. Backslashes are escaped first.
func EscapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	return strings.ReplaceAll(s, `_`, `\_`)
}

func required(field, value string) error {
	if value != "" {
		return nil
	}
	return aixerrors.New(aixerrors.CodeInvalidOption,
		fmt.Sprintf("%s is required", field),
		aixerrors.WithField("field", field),
	)
}

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

// Package sanitize scrubs untrusted values before they reach a terminal
// or a log line.
package sanitize

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/x/ansi"
)

// DefaultMaxDisplayLength is the ForDisplay cap when none is given.
const DefaultMaxDisplayLength = 50

// Ellipsis is appended to truncated values.
const Ellipsis = "..."

// ForDisplay makes v safe to echo: escape sequences (CSI, OSC, DCS, ...)
// and control characters are removed, and the result is capped at
// maxLength runes plus Ellipsis. Non-string values are formatted with
// fmt first. ForDisplay never panics.
func ForDisplay(v any, maxLength int) string {
	if maxLength <= 0 {
		maxLength = DefaultMaxDisplayLength
	}

	s := stringify(v)
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}

	s = ansi.Strip(s)
	s = stripControl(s)

	if utf8.RuneCountInString(s) > maxLength {
		runes := []rune(s)
		s = string(runes[:maxLength]) + Ellipsis
	}
	return s
}

func stringify(v any) (s string) {
	defer func() {
		if r := recover(); r != nil {
			s = fmt.Sprintf("%T", v)
		}
	}()

	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case fmt.Stringer:
		return t.String()
	case error:
		return t.Error()
	default:
		return fmt.Sprint(v)
	}
}

// stripControl drops C0 controls, DEL, and C1 controls.
func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f || (r >= 0x80 && r <= 0x9f) {
			return -1
		}
		return r
	}, s)
}

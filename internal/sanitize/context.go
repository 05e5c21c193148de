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

package sanitize

import (
	"os"
	"path/filepath"
	"strings"
)

// HomeMarker replaces the user's home directory in displayed values.
const HomeMarker = "~"

// maxParentLevels bounds how far a relative rewrite may climb. Paths
// that would need more "../" segments are left absolute.
const maxParentLevels = 3

// Context returns a sanitized copy of a diagnostic context. String
// values have the home directory replaced by HomeMarker, and remaining
// absolute paths are rewritten relative to basePath. Nested maps are
// processed recursively; all other values pass through. The input map
// is not modified.
func Context(ctx map[string]any, basePath string) map[string]any {
	if ctx == nil {
		return nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	return contextWithHome(ctx, basePath, home)
}

func contextWithHome(ctx map[string]any, basePath, home string) map[string]any {
	out := make(map[string]any, len(ctx))
	for k, v := range ctx {
		switch t := v.(type) {
		case string:
			out[k] = Path(t, basePath, home)
		case map[string]any:
			out[k] = contextWithHome(t, basePath, home)
		default:
			out[k] = v
		}
	}
	return out
}

// Path scrubs a single string value the way Context does.
func Path(value, basePath, home string) string {
	if home != "" && home != string(filepath.Separator) {
		value = replaceHome(value, home)
	}

	if strings.HasPrefix(value, HomeMarker) || !filepath.IsAbs(value) || basePath == "" {
		return value
	}

	rel, err := filepath.Rel(basePath, value)
	if err != nil {
		return value
	}
	if parentLevels(rel) > maxParentLevels {
		return value
	}
	return rel
}

// replaceHome swaps home for HomeMarker only where it forms a whole path
// prefix, so /home/dev does not match inside /home/developer or
// /srv/home/dev.
func replaceHome(value, home string) string {
	var b strings.Builder
	pos := 0
	for {
		i := strings.Index(value[pos:], home)
		if i < 0 {
			b.WriteString(value[pos:])
			return b.String()
		}
		start, end := pos+i, pos+i+len(home)
		b.WriteString(value[pos:start])
		leading := start == 0 || !isPathByte(value[start-1])
		trailing := end == len(value) || value[end] == '/' || value[end] == filepath.Separator || !isPathByte(value[end])
		if leading && trailing {
			b.WriteString(HomeMarker)
		} else {
			b.WriteString(home)
		}
		pos = end
	}
}

func isPathByte(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	}
	return c == '.' || c == '_' || c == '-' || c == '/' || c == filepath.Separator
}

func parentLevels(rel string) int {
	n := 0
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if part != ".." {
			break
		}
		n++
	}
	return n
}

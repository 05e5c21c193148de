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

package config

import (
	"os"
	"path/filepath"
	"regexp"
)

// ConfigDir returns the XDG config directory for aix without creating it.
// On Unix and macOS: ~/.config/aix
// Respects XDG_CONFIG_HOME environment variable
func ConfigDir() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		// ~/.config on macOS too, rather than Library/Application Support
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "aix"), nil
}

// ConfigPath returns the full path to the default config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

var unsafeNameChars = regexp.MustCompile(`[^\w-]`)

// DefaultMemoryPath returns ~/.claude/project-memories/<project>.db, where
// project is the base name of projectDir with anything other than word
// characters and dashes replaced by underscores.
func DefaultMemoryPath(projectDir string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	name := unsafeNameChars.ReplaceAllString(filepath.Base(projectDir), "_")
	return filepath.Join(home, ".claude", "project-memories", name+".db"), nil
}

// expandHome turns a leading "~/" into the user's home directory.
func expandHome(path string) (string, error) {
	if len(path) < 2 || path[:2] != "~/" {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, path[2:]), nil
}

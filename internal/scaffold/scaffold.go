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
// Package scaffold writes rendered preset files into a project directory.
package scaffold

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/tombee/aix/internal/presets"
	aixerrors "github.com/tombee/aix/pkg/errors"
)

// Action is what Apply does with one file.
type Action string

const (
	ActionCreate    Action = "create"
	ActionOverwrite Action = "overwrite"
)

// Step is one planned file write.
type Step struct {
	Action Action
	Path   string // relative to the project directory
	File   presets.RenderedFile
}

// Result reports what Apply wrote.
type Result struct {
	Dir     string
	Written []Step
}

// Plan checks the project directory and decides, per file, whether it
// would be created or overwritten. Existing files without force produce
// AIX-INIT-101 listing every conflicting path.
func Plan(dir string, files []presets.RenderedFile, force bool) ([]Step, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fsError(err, dir)
	}
	if !info.IsDir() {
		return nil, aixerrors.New(aixerrors.CodePathNotFound,
			fmt.Sprintf("%s is not a directory", filepath.Base(dir)),
			aixerrors.WithField("path", dir))
	}

	steps := make([]Step, 0, len(files))
	var conflicts []string
	for _, f := range files {
		target := filepath.Join(dir, filepath.FromSlash(f.Path))
		step := Step{Action: ActionCreate, Path: f.Path, File: f}

		_, err := os.Lstat(target)
		switch {
		case err == nil:
			if !force {
				conflicts = append(conflicts, f.Path)
			}
			step.Action = ActionOverwrite
		case !errors.Is(err, fs.ErrNotExist):
			return nil, fsError(err, target)
		}
		steps = append(steps, step)
	}

	if len(conflicts) > 0 {
		sort.Strings(conflicts)
		return nil, aixerrors.New(aixerrors.CodeAlreadyInitialized,
			fmt.Sprintf("%s already exists", conflicts[0]),
			aixerrors.WithContext(map[string]any{
				"files": conflicts,
				"dir":   dir,
			}),
		)
	}
	return steps, nil
}

// Apply writes the planned steps. Cancellation is checked before each
// file; files already written stay in place.
func Apply(ctx context.Context, dir string, steps []Step) (*Result, error) {
	res := &Result{Dir: dir}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		target := filepath.Join(dir, filepath.FromSlash(step.Path))
		if err := writeFile(target, step.File.Content); err != nil {
			return res, err
		}
		res.Written = append(res.Written, step)
	}
	return res, nil
}

// writeFile writes content through a temp file and rename so a failed
// write never leaves a truncated target.
func writeFile(target string, content []byte) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fsError(err, filepath.Dir(target))
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".aix-*.tmp")
	if err != nil {
		return fsError(err, target)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return fsError(err, target)
	}
	if err := tmp.Close(); err != nil {
		return fsError(err, target)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fsError(err, target)
	}
	if err := os.Rename(tmpName, target); err != nil {
		return fsError(err, target)
	}
	return nil
}

func fsError(err error, path string) error {
	code := aixerrors.CodeWriteFailed
	switch {
	case errors.Is(err, fs.ErrPermission):
		code = aixerrors.CodePermissionDenied
	case errors.Is(err, fs.ErrNotExist):
		code = aixerrors.CodePathNotFound
	}
	return aixerrors.New(code, "", aixerrors.WithCause(err), aixerrors.WithField("path", path))
}

// Copyright (C) 2025 Dyne.org foundation
// designed, written and maintained by Denis Roio <jaromil@dyne.org>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package workspace confines file operations to a single root directory.
// Every caller-supplied path is normalized, symlink-resolved and checked
// for containment before it touches the filesystem, and the check is
// repeated by each operation right before it acts. A small window between
// resolution and the actual syscall remains where platform primitives give
// us nothing better than resolve-then-act; operations are kept narrow so a
// swapped symlink in that window can at most affect a single entry.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	apperrors "workbox/internal/errors"
	"workbox/internal/paths"
)

const maxPathLength = 4096

// Limits bounds the size of workspace operations.
type Limits struct {
	MaxFileSizeBytes    int64
	MaxDirectoryEntries int
}

const (
	defaultMaxFileSizeBytes    int64 = 10 * 1024 * 1024
	defaultMaxDirectoryEntries       = 2000
)

// DefaultLimits returns the default resource limits.
func DefaultLimits() Limits {
	return Limits{
		MaxFileSizeBytes:    defaultMaxFileSizeBytes,
		MaxDirectoryEntries: defaultMaxDirectoryEntries,
	}
}

func normalizeLimits(l Limits) Limits {
	if l.MaxFileSizeBytes <= 0 {
		l.MaxFileSizeBytes = defaultMaxFileSizeBytes
	}
	if l.MaxDirectoryEntries <= 0 {
		l.MaxDirectoryEntries = defaultMaxDirectoryEntries
	}
	return l
}

// Workspace is a sandboxed directory tree. The root is resolved once at
// construction and immutable for the lifetime of the process.
type Workspace struct {
	root   string
	limits Limits
}

// New creates the workspace directory if absent and resolves its real
// path. The resolved root is the containment boundary for all operations.
func New(dir string, limits Limits) (*Workspace, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, apperrors.New(apperrors.CodeWorkspace, "workspace directory cannot be empty")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeWorkspace, "invalid workspace directory", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeWorkspace, "failed to create workspace directory", err)
	}
	root, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeWorkspace, "failed to resolve workspace directory", err)
	}
	return &Workspace{root: root, limits: normalizeLimits(limits)}, nil
}

// Root returns the resolved workspace root.
func (w *Workspace) Root() string {
	return w.root
}

// Limits returns the configured operation limits.
func (w *Workspace) Limits() Limits {
	return w.limits
}

// Resolve normalizes a caller-supplied relative path into an absolute
// path guaranteed to lie inside the workspace root. Symlinks are resolved
// for every existing component; a nonexistent suffix is re-appended
// literally so write/mkdir targets resolve without failing. Escapes are
// reported as ErrPathEscape, never silently re-rooted.
func (w *Workspace) Resolve(requested string) (string, error) {
	if err := paths.ValidatePathString(requested, maxPathLength); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPath, err)
	}
	if err := paths.EnsureRelative(requested); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPath, err)
	}

	// Lexical pass first: collapse dot segments and check containment
	// before asking the filesystem anything.
	joined := filepath.Clean(filepath.Join(w.root, filepath.Clean(requested)))
	if !paths.HasPathPrefix(joined, w.root) {
		return "", wrapPath(ErrPathEscape, requested)
	}

	resolved, err := w.resolveSymlinks(joined, requested)
	if err != nil {
		return "", err
	}
	if !paths.HasPathPrefix(resolved, w.root) {
		return "", wrapPath(ErrPathEscape, requested)
	}
	return resolved, nil
}

// resolveSymlinks resolves the deepest existing ancestor of path and
// re-appends the nonexistent remainder. Intermediate symlinks are
// followed, so a link planted mid-path cannot smuggle a component past
// the containment check.
func (w *Workspace) resolveSymlinks(path, requested string) (string, error) {
	existing := path
	var suffix []string
	for {
		_, err := os.Lstat(existing)
		if err == nil {
			break
		}
		if !os.IsNotExist(err) {
			return "", hostError(err, requested)
		}
		parent := filepath.Dir(existing)
		if parent == existing {
			break
		}
		suffix = append([]string{filepath.Base(existing)}, suffix...)
		existing = parent
	}

	resolved, err := filepath.EvalSymlinks(existing)
	if err != nil {
		return "", hostError(err, requested)
	}
	if !paths.HasPathPrefix(resolved, w.root) {
		return "", wrapPath(ErrPathEscape, requested)
	}
	if len(suffix) == 0 {
		return resolved, nil
	}
	return filepath.Join(append([]string{resolved}, suffix...)...), nil
}

// Rel converts a resolved path back to its workspace-relative form for
// display. Error messages and results never show the absolute root.
func (w *Workspace) Rel(resolved string) string {
	rel, err := filepath.Rel(w.root, resolved)
	if err != nil {
		return filepath.Base(resolved)
	}
	return rel
}

func wrapPath(sentinel error, rel string) error {
	return fmt.Errorf("%w: %s", sentinel, filepath.ToSlash(filepath.Clean(rel)))
}

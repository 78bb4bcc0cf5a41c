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

package workspace

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"
	"unicode/utf8"
)

// Entry is a read-only snapshot of one file or directory.
type Entry struct {
	Name    string      `json:"name"`
	Path    string      `json:"path"`
	Size    int64       `json:"size"`
	IsDir   bool        `json:"is_dir"`
	Mode    fs.FileMode `json:"-"`
	ModTime time.Time   `json:"modified"`
}

// Read returns the full contents of a text file.
func (w *Workspace) Read(requested string) (string, error) {
	p, err := w.Resolve(requested)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(p)
	if err != nil {
		return "", hostError(err, requested)
	}
	if info.IsDir() {
		return "", wrapPath(ErrIsDirectory, requested)
	}
	if info.Size() > w.limits.MaxFileSizeBytes {
		return "", wrapPath(ErrTooLarge, requested)
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return "", hostError(err, requested)
	}
	if !isText(data) {
		return "", wrapPath(ErrDecode, requested)
	}
	return string(data), nil
}

// Write replaces the contents of a file, creating parent directories as
// needed. The content lands in a temporary sibling first and is renamed
// into place, so concurrent readers observe either the old or the new
// contents, never a partial write.
func (w *Workspace) Write(requested, content string) (int, error) {
	if err := w.checkText(content, requested); err != nil {
		return 0, err
	}
	p, err := w.Resolve(requested)
	if err != nil {
		return 0, err
	}
	if info, err := os.Stat(p); err == nil && info.IsDir() {
		return 0, wrapPath(ErrIsDirectory, requested)
	}
	dir := filepath.Dir(p)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, hostError(err, requested)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(p)+".tmp-*")
	if err != nil {
		return 0, hostError(err, requested)
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return 0, hostError(err, requested)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return 0, hostError(err, requested)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return 0, hostError(err, requested)
	}

	// Re-check containment right before the rename makes the write
	// visible; a symlink swapped in since Resolve fails here.
	target, err := w.Resolve(requested)
	if err != nil {
		os.Remove(tmpName)
		return 0, err
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return 0, hostError(err, requested)
	}
	return len(content), nil
}

// Append adds content to an existing file. It deliberately does not
// create missing files; Write is the creation path. Ordering between
// concurrent appends is whatever the host filesystem provides.
func (w *Workspace) Append(requested, content string) (int, error) {
	if err := w.checkText(content, requested); err != nil {
		return 0, err
	}
	p, err := w.Resolve(requested)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(p)
	if err != nil {
		return 0, hostError(err, requested)
	}
	if info.IsDir() {
		return 0, wrapPath(ErrIsDirectory, requested)
	}
	if info.Size()+int64(len(content)) > w.limits.MaxFileSizeBytes {
		return 0, wrapPath(ErrTooLarge, requested)
	}

	f, err := os.OpenFile(p, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return 0, hostError(err, requested)
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		return 0, hostError(err, requested)
	}
	return len(content), nil
}

// Delete removes a single file. Directories are refused, recursion is
// out of scope for this primitive.
func (w *Workspace) Delete(requested string) error {
	p, err := w.Resolve(requested)
	if err != nil {
		return err
	}
	info, err := os.Lstat(p)
	if err != nil {
		return hostError(err, requested)
	}
	if info.IsDir() {
		return wrapPath(ErrIsDirectory, requested)
	}
	if err := os.Remove(p); err != nil {
		return hostError(err, requested)
	}
	return nil
}

// List returns the immediate children of a directory, directories first,
// names ascending within each group. An empty requested path lists the
// workspace root.
func (w *Workspace) List(requested string) ([]Entry, error) {
	if requested == "" {
		requested = "."
	}
	p, err := w.Resolve(requested)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(p)
	if err != nil {
		return nil, hostError(err, requested)
	}
	if !info.IsDir() {
		return nil, wrapPath(ErrNotDirectory, requested)
	}

	dirents, err := os.ReadDir(p)
	if err != nil {
		return nil, hostError(err, requested)
	}
	if len(dirents) > w.limits.MaxDirectoryEntries {
		return nil, wrapPath(ErrTooLarge, requested)
	}

	entries := make([]Entry, 0, len(dirents))
	for _, d := range dirents {
		fi, err := d.Info()
		if err != nil {
			// Entry vanished between ReadDir and Info.
			continue
		}
		entries = append(entries, w.entryFromInfo(filepath.Join(p, d.Name()), fi))
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].IsDir != entries[j].IsDir {
			return entries[i].IsDir
		}
		return entries[i].Name < entries[j].Name
	})
	return entries, nil
}

// Mkdir creates a directory including missing parents. Creating an
// existing directory succeeds; a file in the way is an error.
func (w *Workspace) Mkdir(requested string) error {
	p, err := w.Resolve(requested)
	if err != nil {
		return err
	}
	if info, err := os.Stat(p); err == nil {
		if info.IsDir() {
			return nil
		}
		return wrapPath(ErrExistsAsFile, requested)
	}
	if err := os.MkdirAll(p, 0o755); err != nil {
		return hostError(err, requested)
	}
	return nil
}

// Move renames a file. Both paths are validated before anything happens;
// an occupied destination is refused unless overwrite is set. Without
// overwrite the rename itself is no-replace where the platform supports
// it, closing the race between the existence check and the rename.
func (w *Workspace) Move(source, destination string, overwrite bool) error {
	src, err := w.Resolve(source)
	if err != nil {
		return err
	}
	dst, err := w.Resolve(destination)
	if err != nil {
		return err
	}

	info, err := os.Lstat(src)
	if err != nil {
		return hostError(err, source)
	}
	if info.IsDir() {
		return wrapPath(ErrIsDirectory, source)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return hostError(err, destination)
	}

	if overwrite {
		if err := os.Rename(src, dst); err != nil {
			return hostError(err, destination)
		}
		return nil
	}
	if err := renameNoReplace(src, dst); err != nil {
		return hostError(err, destination)
	}
	return nil
}

// Stat returns metadata for a file or directory without reading it.
func (w *Workspace) Stat(requested string) (Entry, error) {
	p, err := w.Resolve(requested)
	if err != nil {
		return Entry{}, err
	}
	info, err := os.Stat(p)
	if err != nil {
		return Entry{}, hostError(err, requested)
	}
	return w.entryFromInfo(p, info), nil
}

func (w *Workspace) entryFromInfo(resolved string, info fs.FileInfo) Entry {
	return Entry{
		Name:    info.Name(),
		Path:    filepath.ToSlash(w.Rel(resolved)),
		Size:    info.Size(),
		IsDir:   info.IsDir(),
		Mode:    info.Mode(),
		ModTime: info.ModTime(),
	}
}

func (w *Workspace) checkText(content, requested string) error {
	if int64(len(content)) > w.limits.MaxFileSizeBytes {
		return wrapPath(ErrTooLarge, requested)
	}
	if !isText([]byte(content)) {
		return wrapPath(ErrDecode, requested)
	}
	return nil
}

// isText reports whether data looks like valid text content. The text
// contract is UTF-8 without null bytes and with a low share of control
// characters in the sampled prefix.
func isText(data []byte) bool {
	if len(data) == 0 {
		return true
	}
	if !utf8.Valid(data) {
		return false
	}

	const sampleSize = 8192
	limit := len(data)
	if limit > sampleSize {
		limit = sampleSize
	}

	var nonPrintable int
	for _, b := range data[:limit] {
		switch b {
		case '\n', '\r', '\t':
			continue
		}
		if b == 0 {
			return false
		}
		if b < 0x20 || b == 0x7f {
			nonPrintable++
		}
	}
	return nonPrintable*20 < limit
}

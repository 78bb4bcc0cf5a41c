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
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	apperrors "workbox/internal/errors"
)

func newTestWorkspace(t *testing.T) *Workspace {
	t.Helper()
	ws, err := New(filepath.Join(t.TempDir(), "workspace"), DefaultLimits())
	if err != nil {
		t.Fatalf("failed to create workspace: %v", err)
	}
	return ws
}

func TestNewCreatesMissingRoot(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b", "workspace")
	ws, err := New(dir, DefaultLimits())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	info, err := os.Stat(ws.Root())
	if err != nil || !info.IsDir() {
		t.Fatalf("expected root directory to exist, err=%v", err)
	}
}

func TestNewRejectsEmptyDirWithCodedError(t *testing.T) {
	_, err := New("  ", DefaultLimits())
	if err == nil {
		t.Fatal("expected error for blank workspace directory")
	}
	var coded *apperrors.Error
	if !errors.As(err, &coded) || coded.Code != apperrors.CodeWorkspace {
		t.Fatalf("expected workspace-coded error, got: %v", err)
	}
}

func TestResolveRejectsAbsolutePaths(t *testing.T) {
	ws := newTestWorkspace(t)
	for _, p := range []string{"/etc/passwd", `C:\Windows\system32`, "/"} {
		_, err := ws.Resolve(p)
		if !errors.Is(err, ErrInvalidPath) {
			t.Fatalf("expected ErrInvalidPath for %q, got: %v", p, err)
		}
	}
}

func TestResolveRejectsEmptyAndNullByte(t *testing.T) {
	ws := newTestWorkspace(t)
	for _, p := range []string{"", "  ", "bad\x00path"} {
		_, err := ws.Resolve(p)
		if !errors.Is(err, ErrInvalidPath) {
			t.Fatalf("expected ErrInvalidPath for %q, got: %v", p, err)
		}
	}
}

func TestResolveRejectsDotDotEscape(t *testing.T) {
	ws := newTestWorkspace(t)
	escapes := []string{
		"..",
		"../../etc/passwd",
		"a/../../..",
		"sub/../../outside.txt",
		"./../sibling",
	}
	for _, p := range escapes {
		_, err := ws.Resolve(p)
		if !errors.Is(err, ErrPathEscape) {
			t.Fatalf("expected ErrPathEscape for %q, got: %v", p, err)
		}
	}
}

func TestResolveAllowsInteriorDotDot(t *testing.T) {
	ws := newTestWorkspace(t)
	resolved, err := ws.Resolve("a/b/../c.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := filepath.Join(ws.Root(), "a", "c.txt")
	if resolved != want {
		t.Fatalf("expected %s, got %s", want, resolved)
	}
}

func TestResolveNonexistentSuffix(t *testing.T) {
	ws := newTestWorkspace(t)
	resolved, err := ws.Resolve("new/deep/dir/file.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := filepath.Join(ws.Root(), "new", "deep", "dir", "file.txt")
	if resolved != want {
		t.Fatalf("expected %s, got %s", want, resolved)
	}
}

func TestResolveSymlinkEscape(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink creation requires privileges on windows")
	}
	ws := newTestWorkspace(t)
	outside := t.TempDir()
	if err := os.WriteFile(filepath.Join(outside, "secret.txt"), []byte("secret"), 0o644); err != nil {
		t.Fatalf("failed to create outside file: %v", err)
	}
	if err := os.Symlink(outside, filepath.Join(ws.Root(), "link")); err != nil {
		t.Fatalf("failed to create symlink: %v", err)
	}

	// Through the link, both the link itself and paths below it.
	for _, p := range []string{"link", "link/secret.txt", "link/missing.txt"} {
		_, err := ws.Resolve(p)
		if !errors.Is(err, ErrPathEscape) {
			t.Fatalf("expected ErrPathEscape for %q, got: %v", p, err)
		}
	}
}

func TestResolveSymlinkFileEscape(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink creation requires privileges on windows")
	}
	ws := newTestWorkspace(t)
	outside := filepath.Join(t.TempDir(), "target.txt")
	if err := os.WriteFile(outside, []byte("x"), 0o644); err != nil {
		t.Fatalf("failed to create outside file: %v", err)
	}
	if err := os.Symlink(outside, filepath.Join(ws.Root(), "alias.txt")); err != nil {
		t.Fatalf("failed to create symlink: %v", err)
	}
	_, err := ws.Resolve("alias.txt")
	if !errors.Is(err, ErrPathEscape) {
		t.Fatalf("expected ErrPathEscape, got: %v", err)
	}
}

func TestResolveSymlinkWithinWorkspace(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink creation requires privileges on windows")
	}
	ws := newTestWorkspace(t)
	if err := os.MkdirAll(filepath.Join(ws.Root(), "real"), 0o755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	if err := os.Symlink(filepath.Join(ws.Root(), "real"), filepath.Join(ws.Root(), "alias")); err != nil {
		t.Fatalf("failed to create symlink: %v", err)
	}
	resolved, err := ws.Resolve("alias/file.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := filepath.Join(ws.Root(), "real", "file.txt")
	if resolved != want {
		t.Fatalf("expected %s, got %s", want, resolved)
	}
}

func TestEscapeErrorIsNeverNotFound(t *testing.T) {
	ws := newTestWorkspace(t)
	_, err := ws.Resolve("../../does/not/exist")
	if !errors.Is(err, ErrPathEscape) {
		t.Fatalf("expected ErrPathEscape, got: %v", err)
	}
	if errors.Is(err, ErrNotFound) {
		t.Fatal("escape must not be reported as not-found")
	}
	if KindOf(err) != KindPathEscape {
		t.Fatalf("expected path_escape kind, got %s", KindOf(err))
	}
}

func TestErrorMessagesOmitRoot(t *testing.T) {
	ws := newTestWorkspace(t)
	_, err := ws.Read("missing-subdir/missing.txt")
	if err == nil {
		t.Fatal("expected error")
	}
	if msg := err.Error(); strings.Contains(msg, ws.Root()) {
		t.Fatalf("error message leaks workspace root: %q", msg)
	}
}

func TestKindOfTaxonomy(t *testing.T) {
	cases := map[error]Kind{
		ErrInvalidPath:       KindInvalidPath,
		ErrPathEscape:        KindPathEscape,
		ErrNotFound:          KindNotFound,
		ErrIsDirectory:       KindIsDirectory,
		ErrNotDirectory:      KindNotDirectory,
		ErrExistsAsFile:      KindExistsAsFile,
		ErrDestinationExists: KindDestinationExists,
		ErrDecode:            KindDecodeError,
		ErrTooLarge:          KindTooLarge,
		ErrPermission:        KindPermissionDenied,
	}
	for err, want := range cases {
		if got := KindOf(err); got != want {
			t.Fatalf("KindOf(%v): expected %s, got %s", err, want, got)
		}
	}
	if KindOf(nil) != KindNone {
		t.Fatal("KindOf(nil) must be empty")
	}
}

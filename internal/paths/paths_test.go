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

package paths

import (
	"path/filepath"
	"testing"
)

func TestValidatePathStringRejectsNullByte(t *testing.T) {
	if err := ValidatePathString("bad\x00path", 0); err == nil {
		t.Fatal("expected error for null byte path")
	}
}

func TestValidatePathStringRejectsEmpty(t *testing.T) {
	if err := ValidatePathString("   ", 0); err == nil {
		t.Fatal("expected error for blank path")
	}
}

func TestValidatePathStringRejectsOverlong(t *testing.T) {
	long := make([]byte, 100)
	for i := range long {
		long[i] = 'a'
	}
	if err := ValidatePathString(string(long), 10); err == nil {
		t.Fatal("expected error for overlong path")
	}
}

func TestEnsureRelative(t *testing.T) {
	for _, p := range []string{"/etc/passwd", `C:\Windows`, `\\server\share`, "/", `\relative-to-root`} {
		if err := EnsureRelative(p); err == nil {
			t.Fatalf("expected %q to be rejected as absolute", p)
		}
	}
	for _, p := range []string{"a.txt", "sub/dir/file", "..", "./x"} {
		if err := EnsureRelative(p); err != nil {
			t.Fatalf("expected %q to be accepted, got: %v", p, err)
		}
	}
}

func TestHasPathPrefix(t *testing.T) {
	base := filepath.Join(string(filepath.Separator), "work")
	if !HasPathPrefix(base, base) {
		t.Fatal("base must be within itself")
	}
	if !HasPathPrefix(filepath.Join(base, "a", "b"), base) {
		t.Fatal("descendant must be within base")
	}
	if HasPathPrefix(base+"-evil", base) {
		t.Fatal("sibling with shared string prefix must not match")
	}
	if HasPathPrefix(filepath.Dir(base), base) {
		t.Fatal("parent must not be within base")
	}
}

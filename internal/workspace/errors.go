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
	"io/fs"
	"syscall"
)

// Sentinel errors for workspace operations. Callers match with errors.Is;
// the string form never contains paths outside the workspace-relative form.
var (
	// ErrInvalidPath indicates a path string that is empty, contains null
	// bytes, or has an absolute prefix.
	ErrInvalidPath = errors.New("invalid path")

	// ErrPathEscape indicates a path that resolves outside the workspace
	// root. It is never downgraded to ErrNotFound.
	ErrPathEscape = errors.New("path escapes workspace")

	// ErrNotFound indicates a missing file or directory.
	ErrNotFound = errors.New("no such file or directory in workspace")

	// ErrIsDirectory indicates a file operation aimed at a directory.
	ErrIsDirectory = errors.New("target is a directory")

	// ErrNotDirectory indicates a directory operation aimed at a file.
	ErrNotDirectory = errors.New("target is not a directory")

	// ErrExistsAsFile indicates a directory target already taken by a file.
	ErrExistsAsFile = errors.New("target already exists as a file")

	// ErrDestinationExists indicates a move destination that is occupied.
	ErrDestinationExists = errors.New("destination already exists")

	// ErrPermission indicates the host filesystem denied the operation.
	ErrPermission = errors.New("permission denied")

	// ErrDecode indicates file content that is not valid text.
	ErrDecode = errors.New("content is not valid text")

	// ErrTooLarge indicates content beyond the configured size limit.
	ErrTooLarge = errors.New("content exceeds size limit")
)

// Kind names one class of operation failure in the result envelope.
type Kind string

const (
	KindNone              Kind = ""
	KindInvalidPath       Kind = "invalid_path"
	KindPathEscape        Kind = "path_escape"
	KindNotFound          Kind = "not_found"
	KindIsDirectory       Kind = "is_a_directory"
	KindNotDirectory      Kind = "not_a_directory"
	KindExistsAsFile      Kind = "already_exists_as_file"
	KindDestinationExists Kind = "destination_exists"
	KindPermissionDenied  Kind = "permission_denied"
	KindDecodeError       Kind = "decode_error"
	KindTooLarge          Kind = "too_large"
)

// KindOf maps an operation error to its failure kind. Unrecognized host
// errors fall into the permission class so nothing raw leaks upward.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrInvalidPath):
		return KindInvalidPath
	case errors.Is(err, ErrPathEscape):
		return KindPathEscape
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrIsDirectory):
		return KindIsDirectory
	case errors.Is(err, ErrNotDirectory):
		return KindNotDirectory
	case errors.Is(err, ErrExistsAsFile):
		return KindExistsAsFile
	case errors.Is(err, ErrDestinationExists):
		return KindDestinationExists
	case errors.Is(err, ErrDecode):
		return KindDecodeError
	case errors.Is(err, ErrTooLarge):
		return KindTooLarge
	default:
		return KindPermissionDenied
	}
}

// hostError translates a raw filesystem error into the taxonomy without
// exposing the absolute path the host reported.
func hostError(err error, rel string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, fs.ErrNotExist):
		return wrapPath(ErrNotFound, rel)
	case errors.Is(err, fs.ErrPermission):
		return wrapPath(ErrPermission, rel)
	case errors.Is(err, fs.ErrExist):
		return wrapPath(ErrDestinationExists, rel)
	case errors.Is(err, syscall.ENOTDIR):
		// Traversal through a regular file ("a.txt/sub"). Nothing exists
		// at that path, so it reports as not found.
		return wrapPath(ErrNotFound, rel)
	default:
		return wrapPath(ErrPermission, rel)
	}
}

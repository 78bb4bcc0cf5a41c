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

package tools

// Typed argument shapes for the built-in tools. The JSON schema each
// tool advertises is generated from these structs; fields without
// omitempty are required.

type ReadFileArgs struct {
	Path string `json:"path" jsonschema:"description=Workspace-relative path of the file to read"`
}

type WriteFileArgs struct {
	Path    string `json:"path" jsonschema:"description=Workspace-relative path of the file to create or overwrite"`
	Content string `json:"content" jsonschema:"description=Full text content to write"`
}

type AppendFileArgs struct {
	Path    string `json:"path" jsonschema:"description=Workspace-relative path of an existing file"`
	Content string `json:"content" jsonschema:"description=Text content to append"`
}

type DeleteFileArgs struct {
	Path string `json:"path" jsonschema:"description=Workspace-relative path of the file to delete"`
}

type ListDirectoryArgs struct {
	Path string `json:"path,omitempty" jsonschema:"description=Workspace-relative directory to list (default: workspace root)"`
}

type CreateDirectoryArgs struct {
	Path string `json:"path" jsonschema:"description=Workspace-relative path of the directory to create"`
}

type MoveFileArgs struct {
	Source      string `json:"source" jsonschema:"description=Workspace-relative path of the file to move"`
	Destination string `json:"destination" jsonschema:"description=Workspace-relative destination path"`
	Overwrite   bool   `json:"overwrite,omitempty" jsonschema:"description=Replace the destination if it already exists (default: false)"`
}

type GetFileInfoArgs struct {
	Path string `json:"path" jsonschema:"description=Workspace-relative path to inspect"`
}

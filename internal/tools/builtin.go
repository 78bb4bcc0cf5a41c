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

import (
	"context"
	"fmt"
	"strings"
	"time"

	"workbox/internal/workspace"
)

// registerBuiltInTools registers the workspace tool set on the registry.
func registerBuiltInTools(r *Registry, ws *workspace.Workspace) {
	register := func(tool Tool) {
		if err := r.RegisterTool(tool); err != nil {
			panic(err)
		}
	}

	register(&ToolDefinition{
		NameValue:        "read_file",
		DescriptionValue: "Read the full contents of a text file in the workspace",
		ParametersValue:  mustSchemaParametersFor[ReadFileArgs](),
		ExecuteFunc:      readFile(ws),
		ValidateFunc:     RequireStringArg("path", "missing or invalid 'path' parameter"),
	})

	register(&ToolDefinition{
		NameValue:        "write_file",
		DescriptionValue: "Create or overwrite a text file in the workspace (creates parent directories)",
		ParametersValue:  mustSchemaParametersFor[WriteFileArgs](),
		ExecuteFunc:      writeFile(ws),
		ValidateFunc: ChainValidation(
			RequireStringArg("path", "missing or invalid 'path' parameter"),
			RequireContentArg("content", "missing or invalid 'content' parameter"),
		),
	})

	register(&ToolDefinition{
		NameValue:        "append_file",
		DescriptionValue: "Append text to an existing file (fails if the file does not exist; use write_file to create it)",
		ParametersValue:  mustSchemaParametersFor[AppendFileArgs](),
		ExecuteFunc:      appendFile(ws),
		ValidateFunc: ChainValidation(
			RequireStringArg("path", "missing or invalid 'path' parameter"),
			RequireContentArg("content", "missing or invalid 'content' parameter"),
		),
	})

	register(&ToolDefinition{
		NameValue:        "delete_file",
		DescriptionValue: "Delete a single file (directories are refused)",
		ParametersValue:  mustSchemaParametersFor[DeleteFileArgs](),
		ExecuteFunc:      deleteFile(ws),
		ValidateFunc:     RequireStringArg("path", "missing or invalid 'path' parameter"),
	})

	register(&ToolDefinition{
		NameValue:        "list_directory",
		DescriptionValue: "List the immediate children of a workspace directory, directories first",
		ParametersValue:  mustSchemaParametersFor[ListDirectoryArgs](),
		ExecuteFunc:      listDirectory(ws),
		ValidateFunc:     AllowStringArg("path", "invalid 'path' parameter"),
	})

	register(&ToolDefinition{
		NameValue:        "create_directory",
		DescriptionValue: "Create a directory including missing parents (succeeds if it already exists)",
		ParametersValue:  mustSchemaParametersFor[CreateDirectoryArgs](),
		ExecuteFunc:      createDirectory(ws),
		ValidateFunc:     RequireStringArg("path", "missing or invalid 'path' parameter"),
	})

	register(&ToolDefinition{
		NameValue:        "move_file",
		DescriptionValue: "Move or rename a file; refuses an existing destination unless 'overwrite' is set",
		ParametersValue:  mustSchemaParametersFor[MoveFileArgs](),
		ExecuteFunc:      moveFile(ws),
		ValidateFunc: ChainValidation(
			RequireStringArg("source", "missing or invalid 'source' parameter"),
			RequireStringArg("destination", "missing or invalid 'destination' parameter"),
			AllowBoolArg("overwrite", "invalid 'overwrite' parameter"),
		),
	})

	register(&ToolDefinition{
		NameValue:        "get_file_info",
		DescriptionValue: "Get metadata for a file or directory without reading its contents",
		ParametersValue:  mustSchemaParametersFor[GetFileInfoArgs](),
		ExecuteFunc:      getFileInfo(ws),
		ValidateFunc:     RequireStringArg("path", "missing or invalid 'path' parameter"),
	})

	register(&ToolDefinition{
		NameValue:        "health_check",
		DescriptionValue: "Check that the workspace tool server is up",
		ParametersValue: map[string]interface{}{
			"type":       "object",
			"properties": map[string]interface{}{},
		},
		ExecuteFunc: healthCheck(r),
	})

	register(&ToolDefinition{
		NameValue:        "get_current_datetime",
		DescriptionValue: "Get the current date and time in ISO 8601 format",
		ParametersValue: map[string]interface{}{
			"type":       "object",
			"properties": map[string]interface{}{},
		},
		ExecuteFunc: getCurrentDatetime,
	})
}

// Tool implementations. Each executor receives validated arguments; the
// workspace re-resolves and re-checks every path before acting.

func readFile(ws *workspace.Workspace) ExecutorFunc {
	return func(ctx context.Context, args map[string]interface{}) (string, error) {
		if err := ensureContext(ctx); err != nil {
			return "", err
		}
		path, err := extractPathArg(args)
		if err != nil {
			return "", err
		}
		return ws.Read(path)
	}
}

func writeFile(ws *workspace.Workspace) ExecutorFunc {
	return func(ctx context.Context, args map[string]interface{}) (string, error) {
		if err := ensureContext(ctx); err != nil {
			return "", err
		}
		path, err := extractPathArg(args)
		if err != nil {
			return "", err
		}
		content, _ := args["content"].(string)
		n, err := ws.Write(path, content)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Successfully wrote %d bytes to %s", n, path), nil
	}
}

func appendFile(ws *workspace.Workspace) ExecutorFunc {
	return func(ctx context.Context, args map[string]interface{}) (string, error) {
		if err := ensureContext(ctx); err != nil {
			return "", err
		}
		path, err := extractPathArg(args)
		if err != nil {
			return "", err
		}
		content, _ := args["content"].(string)
		n, err := ws.Append(path, content)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Appended %d bytes to %s", n, path), nil
	}
}

func deleteFile(ws *workspace.Workspace) ExecutorFunc {
	return func(ctx context.Context, args map[string]interface{}) (string, error) {
		if err := ensureContext(ctx); err != nil {
			return "", err
		}
		path, err := extractPathArg(args)
		if err != nil {
			return "", err
		}
		if err := ws.Delete(path); err != nil {
			return "", err
		}
		return fmt.Sprintf("Deleted %s", path), nil
	}
}

func listDirectory(ws *workspace.Workspace) ExecutorFunc {
	return func(ctx context.Context, args map[string]interface{}) (string, error) {
		if err := ensureContext(ctx); err != nil {
			return "", err
		}
		path, _ := args["path"].(string)
		entries, err := ws.List(path)
		if err != nil {
			return "", err
		}
		if len(entries) == 0 {
			return "Directory is empty", nil
		}

		var result strings.Builder
		for _, e := range entries {
			formatEntry(&result, e)
		}
		return result.String(), nil
	}
}

func createDirectory(ws *workspace.Workspace) ExecutorFunc {
	return func(ctx context.Context, args map[string]interface{}) (string, error) {
		if err := ensureContext(ctx); err != nil {
			return "", err
		}
		path, err := extractPathArg(args)
		if err != nil {
			return "", err
		}
		if err := ws.Mkdir(path); err != nil {
			return "", err
		}
		return fmt.Sprintf("Directory %s ready", path), nil
	}
}

func moveFile(ws *workspace.Workspace) ExecutorFunc {
	return func(ctx context.Context, args map[string]interface{}) (string, error) {
		if err := ensureContext(ctx); err != nil {
			return "", err
		}
		source, _ := args["source"].(string)
		destination, _ := args["destination"].(string)
		overwrite, _ := args["overwrite"].(bool)
		if err := ws.Move(source, destination, overwrite); err != nil {
			return "", err
		}
		return fmt.Sprintf("Moved %s to %s", source, destination), nil
	}
}

func getFileInfo(ws *workspace.Workspace) ExecutorFunc {
	return func(ctx context.Context, args map[string]interface{}) (string, error) {
		if err := ensureContext(ctx); err != nil {
			return "", err
		}
		path, err := extractPathArg(args)
		if err != nil {
			return "", err
		}
		entry, err := ws.Stat(path)
		if err != nil {
			return "", err
		}
		kind := "file"
		if entry.IsDir {
			kind = "directory"
		}
		var result strings.Builder
		fmt.Fprintf(&result, "name: %s\n", entry.Name)
		fmt.Fprintf(&result, "path: %s\n", entry.Path)
		fmt.Fprintf(&result, "type: %s\n", kind)
		fmt.Fprintf(&result, "size: %d bytes\n", entry.Size)
		fmt.Fprintf(&result, "modified: %s\n", entry.ModTime.Format("2006-01-02 15:04:05"))
		fmt.Fprintf(&result, "permissions: %s\n", entry.Mode.Perm().String())
		return result.String(), nil
	}
}

func healthCheck(r *Registry) ExecutorFunc {
	return func(ctx context.Context, args map[string]interface{}) (string, error) {
		if err := ensureContext(ctx); err != nil {
			return "", err
		}
		return fmt.Sprintf("ok: %d tools registered, workspace ready", len(r.GetToolNames())), nil
	}
}

func getCurrentDatetime(ctx context.Context, args map[string]interface{}) (string, error) {
	if err := ensureContext(ctx); err != nil {
		return "", err
	}
	return time.Now().Format(time.RFC3339), nil
}

func ensureContext(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

// extractPathArg accepts a variety of shapes for the path argument and normalizes to string.
func extractPathArg(args map[string]interface{}) (string, error) {
	if args == nil {
		return "", fmt.Errorf("missing or invalid 'path' parameter")
	}

	if path, ok := getStringLike(args["path"]); ok {
		return path, nil
	}

	// Common alternate keys the model sometimes emits.
	if path, ok := getStringLike(args["file"]); ok {
		return path, nil
	}
	if path, ok := getStringLike(args["filepath"]); ok {
		return path, nil
	}

	return "", fmt.Errorf("missing or invalid 'path' parameter")
}

func getStringLike(val interface{}) (string, bool) {
	switch v := val.(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return "", false
		}
		return v, true
	case map[string]interface{}:
		if nested, ok := getStringLike(v["path"]); ok {
			return nested, true
		}
	}
	return "", false
}

// formatEntry formats a single directory entry for output.
func formatEntry(result *strings.Builder, e workspace.Entry) {
	typeStr := "-"
	if e.IsDir {
		typeStr = "d"
	}
	fmt.Fprintf(result, "%s %s %8s %s %s\n",
		typeStr,
		e.Mode.Perm().String(),
		formatSize(e.Size),
		e.ModTime.Format("2006-01-02 15:04:05"),
		e.Name)
}

// formatSize converts bytes to human-readable format.
func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%dB", bytes)
	}

	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	sizes := []string{"KB", "MB", "GB", "TB"}
	return fmt.Sprintf("%.1f%s", float64(bytes)/float64(div), sizes[exp])
}

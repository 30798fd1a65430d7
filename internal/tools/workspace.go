package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// maxWriteBytes caps write_file payloads so a runaway model cannot fill
// the disk in one call.
const maxWriteBytes = 256 * 1024

// resolveWorkspacePath joins a user-supplied relative path against the
// team workspace root and rejects traversal outside it.
func resolveWorkspacePath(ctx context.Context, rel string) (string, error) {
	root := WorkspaceFromCtx(ctx)
	if root == "" {
		return "", fmt.Errorf("no workspace configured for this agent")
	}
	if rel == "" {
		rel = "."
	}
	abs := filepath.Join(root, filepath.Clean("/"+rel))
	if abs != root && !strings.HasPrefix(abs, root+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes the workspace: %s", rel)
	}
	return abs, nil
}

// ReadFileTool reads a file from the team workspace.
type ReadFileTool struct{}

func (t *ReadFileTool) Name() string        { return "read_file" }
func (t *ReadFileTool) Description() string { return "Read a file from the team workspace." }
func (t *ReadFileTool) Parameters() map[string]any {
	return objectSchema(map[string]any{
		"path": prop("string", "Workspace-relative file path"),
	}, "path")
}
func (t *ReadFileTool) Execute(ctx context.Context, args map[string]any) *Result {
	path, err := resolveWorkspacePath(ctx, argString(args, "path"))
	if err != nil {
		return ErrorResult(err.Error())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ErrorResult(fmt.Sprintf("read %s: %v", argString(args, "path"), err))
	}
	return NewResult(string(data))
}

// WriteFileTool writes a file into the team workspace.
type WriteFileTool struct{}

func (t *WriteFileTool) Name() string        { return "write_file" }
func (t *WriteFileTool) Description() string { return "Write a file into the team workspace, creating parent directories as needed." }
func (t *WriteFileTool) Parameters() map[string]any {
	return objectSchema(map[string]any{
		"path":    prop("string", "Workspace-relative file path"),
		"content": prop("string", "File content"),
	}, "path", "content")
}
func (t *WriteFileTool) Execute(ctx context.Context, args map[string]any) *Result {
	content := argString(args, "content")
	if len(content) > maxWriteBytes {
		return ErrorResult(fmt.Sprintf("content too large: %d bytes (max %d)", len(content), maxWriteBytes))
	}
	path, err := resolveWorkspacePath(ctx, argString(args, "path"))
	if err != nil {
		return ErrorResult(err.Error())
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return ErrorResult(fmt.Sprintf("create directory: %v", err))
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return ErrorResult(fmt.Sprintf("write %s: %v", argString(args, "path"), err))
	}
	return NewResult(fmt.Sprintf("wrote %d bytes to %s", len(content), argString(args, "path")))
}

// ListFilesTool lists a workspace directory.
type ListFilesTool struct{}

func (t *ListFilesTool) Name() string        { return "list_files" }
func (t *ListFilesTool) Description() string { return "List files in a team workspace directory." }
func (t *ListFilesTool) Parameters() map[string]any {
	return objectSchema(map[string]any{
		"path": prop("string", "Workspace-relative directory (default: workspace root)"),
	})
}
func (t *ListFilesTool) Execute(ctx context.Context, args map[string]any) *Result {
	path, err := resolveWorkspacePath(ctx, argString(args, "path"))
	if err != nil {
		return ErrorResult(err.Error())
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return ErrorResult(fmt.Sprintf("list %s: %v", argString(args, "path"), err))
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	sort.Strings(names)
	if len(names) == 0 {
		return NewResult("(empty directory)")
	}
	return NewResult(strings.Join(names, "\n"))
}

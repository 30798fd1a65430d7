package tools

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func workspaceCtx(t *testing.T) context.Context {
	t.Helper()
	return WithCallContext(context.Background(), CallContext{Workspace: t.TempDir()})
}

func TestWriteThenReadFile(t *testing.T) {
	ctx := workspaceCtx(t)
	write := &WriteFileTool{}
	read := &ReadFileTool{}

	res := write.Execute(ctx, map[string]any{"path": "notes/plan.md", "content": "step one"})
	if res.IsError {
		t.Fatalf("write failed: %s", res.Text)
	}
	res = read.Execute(ctx, map[string]any{"path": "notes/plan.md"})
	if res.IsError || res.Text != "step one" {
		t.Errorf("read = %+v, want written content", res)
	}

	res = (&ListFilesTool{}).Execute(ctx, map[string]any{"path": "notes"})
	if res.IsError || !strings.Contains(res.Text, "plan.md") {
		t.Errorf("list = %+v, want plan.md", res)
	}
}

func TestPathTraversalStaysInsideWorkspace(t *testing.T) {
	root := t.TempDir()
	ctx := WithCallContext(context.Background(), CallContext{Workspace: root})

	// Leading ".." segments are stripped; the write lands inside the
	// workspace, never above it.
	res := (&WriteFileTool{}).Execute(ctx, map[string]any{"path": "../../escape.txt", "content": "x"})
	if res.IsError {
		t.Fatalf("write failed: %s", res.Text)
	}
	if _, err := os.Stat(filepath.Join(root, "escape.txt")); err != nil {
		t.Errorf("contained file missing inside workspace: %v", err)
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(root), "escape.txt")); err == nil {
		t.Error("traversal escaped the workspace root")
	}
}

func TestOversizedWriteRejected(t *testing.T) {
	ctx := workspaceCtx(t)
	big := strings.Repeat("x", maxWriteBytes+1)
	res := (&WriteFileTool{}).Execute(ctx, map[string]any{"path": "big.txt", "content": big})
	if !res.IsError || !strings.Contains(res.Text, "too large") {
		t.Errorf("oversized write = %+v, want too-large error text", res)
	}
}

func TestNoWorkspaceConfigured(t *testing.T) {
	res := (&ReadFileTool{}).Execute(context.Background(), map[string]any{"path": "x"})
	if !res.IsError {
		t.Error("read without workspace did not fail")
	}
}

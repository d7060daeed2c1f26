package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/loopsmith/loopsmith/internal/safety"
	"github.com/loopsmith/loopsmith/internal/tool"
)

const maxWriteFileSize = 1 << 20 // 1MB

// WriteFileTool implements the write_file tool: create-or-overwrite with
// parent directory creation, gated by write-safety (sandbox then
// protected-overwrite).
type WriteFileTool struct {
	policy *safety.Policy
}

func NewWriteFileTool(policy *safety.Policy) *WriteFileTool {
	return &WriteFileTool{policy: policy}
}

func (t *WriteFileTool) Name() string { return "write_file" }
func (t *WriteFileTool) Description() string {
	return "Write content to a file, creating it (and any parent directories) or overwriting it."
}

func (t *WriteFileTool) InputSchema() json.RawMessage {
	return tool.BuildSchema(
		tool.SchemaParam{Name: "path", Type: "string", Description: "file path, relative to the project root or absolute", Required: true},
		tool.SchemaParam{Name: "content", Type: "string", Description: "content to write, verbatim", Required: true},
	)
}

func (t *WriteFileTool) Init(_ context.Context) error { return nil }
func (t *WriteFileTool) Close() error                 { return nil }

type writeFileArgs struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

func (t *WriteFileTool) Execute(_ context.Context, args json.RawMessage) (tool.ToolResult, error) {
	var a writeFileArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return tool.Err("failed to parse arguments: %v", err), nil
	}
	if strings.TrimSpace(a.Path) == "" {
		return tool.Err("path must not be empty"), nil
	}
	if len(a.Content) > maxWriteFileSize {
		return tool.Err("content too large (%d bytes), limit is %d bytes", len(a.Content), maxWriteFileSize), nil
	}

	resolved, denied, msg := t.policy.WriteSafety(a.Path)
	if denied {
		return tool.Err("%s", msg), nil
	}

	if err := os.MkdirAll(filepath.Dir(resolved), 0755); err != nil {
		return tool.Err("failed to create parent directory: %v", err), nil
	}
	if err := os.WriteFile(resolved, []byte(a.Content), 0644); err != nil {
		return tool.Err("failed to write file: %v", err), nil
	}

	lineCount := len(splitLines(a.Content))
	return tool.Ok(fmt.Sprintf("Wrote %s (%d bytes, %d lines)", resolved, len(a.Content), lineCount)), nil
}

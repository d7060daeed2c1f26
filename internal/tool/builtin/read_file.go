package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/loopsmith/loopsmith/internal/safety"
	"github.com/loopsmith/loopsmith/internal/tool"
)

const maxReadFileSize = 1 << 20 // 1MB

// ReadFileTool implements the read_file tool: numbered-line file display
// with an optional 1-indexed inclusive line range, gated by
// safety.Policy's read confirmation.
type ReadFileTool struct {
	policy *safety.Policy
}

func NewReadFileTool(policy *safety.Policy) *ReadFileTool {
	return &ReadFileTool{policy: policy}
}

func (t *ReadFileTool) Name() string { return "read_file" }
func (t *ReadFileTool) Description() string {
	return "Read a text file, optionally restricted to a 1-indexed inclusive line range, returned with line numbers."
}

func (t *ReadFileTool) InputSchema() json.RawMessage {
	return tool.BuildSchema(
		tool.SchemaParam{Name: "path", Type: "string", Description: "file path, relative to the project root or absolute", Required: true},
		tool.SchemaParam{Name: "start_line", Type: "integer", Description: "first line to show, 1-indexed inclusive (default 1)"},
		tool.SchemaParam{Name: "end_line", Type: "integer", Description: "last line to show, 1-indexed inclusive (default last line)"},
	)
}

func (t *ReadFileTool) Init(_ context.Context) error { return nil }
func (t *ReadFileTool) Close() error                 { return nil }

type readFileArgs struct {
	Path      string `json:"path"`
	StartLine *int   `json:"start_line,omitempty"`
	EndLine   *int   `json:"end_line,omitempty"`
}

func (t *ReadFileTool) Execute(_ context.Context, args json.RawMessage) (tool.ToolResult, error) {
	var a readFileArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return tool.Err("failed to parse arguments: %v", err), nil
	}
	if strings.TrimSpace(a.Path) == "" {
		return tool.Err("path must not be empty"), nil
	}

	resolved, denied, msg := t.policy.ReadSafety(a.Path)
	if denied {
		return tool.Err("%s", msg), nil
	}

	f, err := os.Open(resolved)
	if err != nil {
		return tool.Err("file does not exist: %s", resolved), nil
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return tool.Err("failed to stat file: %v", err), nil
	}
	if info.IsDir() {
		return tool.Err("%s is a directory; use list_dir instead", resolved), nil
	}
	if info.Size() > maxReadFileSize {
		return tool.Err("file too large (%d bytes), limit is %d bytes", info.Size(), maxReadFileSize), nil
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return tool.Err("failed to read file: %v", err), nil
	}

	lines := splitLines(string(data))
	total := len(lines)

	start, end := 1, total
	if a.StartLine != nil {
		start = *a.StartLine
	}
	if a.EndLine != nil {
		end = *a.EndLine
	}
	if start < 1 {
		start = 1
	}
	if end > total {
		end = total
	}
	if total == 0 {
		start, end = 0, 0
	} else if start > total {
		start = total
	}

	var sb strings.Builder
	if start > end {
		sb.WriteString(fmt.Sprintf("File: %s (%d lines total, showing none)\n", resolved, total))
	} else {
		sb.WriteString(fmt.Sprintf("File: %s (%d lines total, showing %d-%d)\n", resolved, total, start, end))
		for i := start; i <= end; i++ {
			sb.WriteString(fmt.Sprintf("%d: %s\n", i, strings.TrimRight(lines[i-1], "\n")))
		}
	}

	return tool.Ok(sb.String()), nil
}

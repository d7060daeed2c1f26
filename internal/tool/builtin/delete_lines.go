package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/loopsmith/loopsmith/internal/safety"
	"github.com/loopsmith/loopsmith/internal/tool"
)

// DeleteLinesTool implements the delete_lines tool: removes a 1-indexed
// inclusive line range, clamping end_line to the file length. Follows the
// same conventions as insert_lines and edit_file.
type DeleteLinesTool struct {
	policy *safety.Policy
}

func NewDeleteLinesTool(policy *safety.Policy) *DeleteLinesTool {
	return &DeleteLinesTool{policy: policy}
}

func (t *DeleteLinesTool) Name() string { return "delete_lines" }
func (t *DeleteLinesTool) Description() string {
	return "Delete a 1-indexed inclusive line range from a file."
}

func (t *DeleteLinesTool) InputSchema() json.RawMessage {
	return tool.BuildSchema(
		tool.SchemaParam{Name: "path", Type: "string", Description: "file path, relative to the project root or absolute", Required: true},
		tool.SchemaParam{Name: "start_line", Type: "integer", Description: "first line to delete, 1-indexed inclusive", Required: true},
		tool.SchemaParam{Name: "end_line", Type: "integer", Description: "last line to delete, 1-indexed inclusive", Required: true},
	)
}

func (t *DeleteLinesTool) Init(_ context.Context) error { return nil }
func (t *DeleteLinesTool) Close() error                 { return nil }

type deleteLinesArgs struct {
	Path      string `json:"path"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
}

func (t *DeleteLinesTool) Execute(_ context.Context, args json.RawMessage) (tool.ToolResult, error) {
	var a deleteLinesArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return tool.Err("failed to parse arguments: %v", err), nil
	}
	if strings.TrimSpace(a.Path) == "" {
		return tool.Err("path must not be empty"), nil
	}

	resolved, denied, msg := t.policy.EditSafety(a.Path)
	if denied {
		return tool.Err("%s", msg), nil
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return tool.Err("file does not exist: %s", resolved), nil
	}
	lines := splitLines(string(data))
	total := len(lines)

	if a.StartLine < 1 {
		return tool.Err("start_line must be >= 1"), nil
	}
	if a.EndLine < a.StartLine {
		return tool.Err("end_line (%d) must be >= start_line (%d)", a.EndLine, a.StartLine), nil
	}
	if a.StartLine > total {
		return tool.Err("start_line %d exceeds file length %d", a.StartLine, total), nil
	}
	end := a.EndLine
	if end > total {
		end = total
	}

	var out []string
	out = append(out, lines[:a.StartLine-1]...)
	out = append(out, lines[end:]...)

	if err := os.WriteFile(resolved, []byte(joinLines(out)), 0644); err != nil {
		return tool.Err("failed to write file: %v", err), nil
	}

	deleted := end - a.StartLine + 1
	return tool.Ok(fmt.Sprintf("Deleted %d line(s) from %s (new total %d lines)", deleted, resolved, len(out))), nil
}

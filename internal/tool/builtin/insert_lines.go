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

// InsertLinesTool implements the insert_lines tool: line=0 prepends,
// line=-1 appends, 1<=line<=N+1 inserts before that line. Follows the same
// sandboxing and line-splitting conventions as read_file and edit_file.
type InsertLinesTool struct {
	policy *safety.Policy
}

func NewInsertLinesTool(policy *safety.Policy) *InsertLinesTool {
	return &InsertLinesTool{policy: policy}
}

func (t *InsertLinesTool) Name() string { return "insert_lines" }
func (t *InsertLinesTool) Description() string {
	return "Insert content as new lines at a position: line=0 prepends, line=-1 appends, otherwise inserts before that 1-indexed line."
}

func (t *InsertLinesTool) InputSchema() json.RawMessage {
	return tool.BuildSchema(
		tool.SchemaParam{Name: "path", Type: "string", Description: "file path, relative to the project root or absolute", Required: true},
		tool.SchemaParam{Name: "line", Type: "integer", Description: "0 to prepend, -1 to append, or a 1-indexed line to insert before", Required: true},
		tool.SchemaParam{Name: "content", Type: "string", Description: "text to insert", Required: true},
	)
}

func (t *InsertLinesTool) Init(_ context.Context) error { return nil }
func (t *InsertLinesTool) Close() error                 { return nil }

type insertLinesArgs struct {
	Path    string `json:"path"`
	Line    int    `json:"line"`
	Content string `json:"content"`
}

func (t *InsertLinesTool) Execute(_ context.Context, args json.RawMessage) (tool.ToolResult, error) {
	var a insertLinesArgs
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

	var at int
	switch {
	case a.Line == 0:
		at = 0
	case a.Line == -1:
		at = total
	case a.Line >= 1 && a.Line <= total+1:
		at = a.Line - 1
	default:
		return tool.Err("line %d is out of range; valid values are 0, -1, or 1..%d", a.Line, total+1), nil
	}

	inserted := splitLines(a.Content)
	var out []string
	out = append(out, lines[:at]...)
	out = append(out, inserted...)
	out = append(out, lines[at:]...)

	if err := os.WriteFile(resolved, []byte(joinLines(out)), 0644); err != nil {
		return tool.Err("failed to write file: %v", err), nil
	}

	return tool.Ok(fmt.Sprintf("Inserted %d line(s) into %s (new total %d lines)", len(inserted), resolved, len(out))), nil
}

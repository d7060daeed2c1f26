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

const maxEditFileSize = 5 << 20 // 5MB

// EditFileTool implements the edit_file tool (§4.4) in two mutually
// exclusive modes: unique-match search-and-replace (old_text/new_text), or
// 1-indexed inclusive line-range replacement (start_line/end_line).
type EditFileTool struct {
	policy *safety.Policy
}

func NewEditFileTool(policy *safety.Policy) *EditFileTool {
	return &EditFileTool{policy: policy}
}

func (t *EditFileTool) Name() string { return "edit_file" }
func (t *EditFileTool) Description() string {
	return "Edit a file either by replacing the unique occurrence of old_text, or by replacing a 1-indexed inclusive line range."
}

func (t *EditFileTool) InputSchema() json.RawMessage {
	return tool.BuildSchema(
		tool.SchemaParam{Name: "path", Type: "string", Description: "file path, relative to the project root or absolute", Required: true},
		tool.SchemaParam{Name: "new_text", Type: "string", Description: "replacement text (empty string deletes, in line-range mode)", Required: true},
		tool.SchemaParam{Name: "old_text", Type: "string", Description: "exact text to find and replace; must occur exactly once"},
		tool.SchemaParam{Name: "start_line", Type: "integer", Description: "first line of the range to replace, 1-indexed inclusive"},
		tool.SchemaParam{Name: "end_line", Type: "integer", Description: "last line of the range to replace, 1-indexed inclusive"},
	)
}

func (t *EditFileTool) Init(_ context.Context) error { return nil }
func (t *EditFileTool) Close() error                 { return nil }

type editFileArgs struct {
	Path      string `json:"path"`
	NewText   string `json:"new_text"`
	OldText   string `json:"old_text,omitempty"`
	StartLine int    `json:"start_line,omitempty"`
	EndLine   int    `json:"end_line,omitempty"`
}

func (t *EditFileTool) Execute(_ context.Context, args json.RawMessage) (tool.ToolResult, error) {
	var a editFileArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return tool.Err("failed to parse arguments: %v", err), nil
	}
	if strings.TrimSpace(a.Path) == "" {
		return tool.Err("path must not be empty"), nil
	}

	useLineRange := a.OldText == ""
	if useLineRange && a.StartLine == 0 && a.EndLine == 0 {
		return tool.Err("either old_text or (start_line, end_line) must be provided"), nil
	}

	resolved, denied, msg := t.policy.EditSafety(a.Path)
	if denied {
		return tool.Err("%s", msg), nil
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return tool.Err("file does not exist: %s", resolved), nil
	}
	if len(data) > maxEditFileSize {
		return tool.Err("file too large (%d bytes), limit is %d bytes", len(data), maxEditFileSize), nil
	}
	content := string(data)

	var newContent string
	if useLineRange {
		newContent, err = replaceLineRange(content, a.StartLine, a.EndLine, a.NewText)
	} else {
		newContent, err = replaceUnique(content, a.OldText, a.NewText)
	}
	if err != nil {
		return tool.Err("%s", err.Error()), nil
	}

	if err := os.WriteFile(resolved, []byte(newContent), 0644); err != nil {
		return tool.Err("failed to write file: %v", err), nil
	}

	oldLines := len(splitLines(content))
	newLines := len(splitLines(newContent))
	delta := newLines - oldLines
	sign := "+"
	if delta < 0 {
		sign = ""
	} else if delta == 0 {
		sign = "±"
	}
	return tool.Ok(fmt.Sprintf("Edited %s (%s%d lines)", resolved, sign, delta)), nil
}

// replaceUnique replaces the unique occurrence of oldText with newText.
// Zero matches or two-or-more matches are errors; the latter states the
// count (§4.4).
func replaceUnique(content, oldText, newText string) (string, error) {
	count := strings.Count(content, oldText)
	switch count {
	case 0:
		return "", fmt.Errorf("old_text not found in %s", "file")
	case 1:
		idx := strings.Index(content, oldText)
		return content[:idx] + newText + content[idx+len(oldText):], nil
	default:
		return "", fmt.Errorf("old_text occurs %d times; it must be unique", count)
	}
}

// replaceLineRange replaces the 1-indexed inclusive [start, end] line range
// with newText; an empty newText deletes the range.
func replaceLineRange(content string, start, end int, newText string) (string, error) {
	lines := splitLines(content)
	total := len(lines)

	if start < 1 {
		return "", fmt.Errorf("start_line must be >= 1")
	}
	if end < start {
		return "", fmt.Errorf("end_line (%d) must be >= start_line (%d)", end, start)
	}
	if start > total {
		return "", fmt.Errorf("start_line %d exceeds file length %d", start, total)
	}
	if end > total {
		end = total
	}

	var out []string
	out = append(out, lines[:start-1]...)
	if newText != "" {
		out = append(out, splitLines(newText)...)
	}
	out = append(out, lines[end:]...)
	return joinLines(out), nil
}

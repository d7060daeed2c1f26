package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/loopsmith/loopsmith/internal/safety"
	"github.com/loopsmith/loopsmith/internal/tool"
)

// listDirIgnoredNames are entry names skipped unless show_hidden is set,
// in addition to any dot-prefixed name.
var listDirIgnoredNames = map[string]bool{
	"node_modules": true,
	".git":         true,
	"dist":         true,
}

// ListDirTool implements the list_dir tool: directories-first,
// lexicographically sorted listing with human-readable file sizes.
type ListDirTool struct {
	policy *safety.Policy
}

func NewListDirTool(policy *safety.Policy) *ListDirTool {
	return &ListDirTool{policy: policy}
}

func (t *ListDirTool) Name() string { return "list_dir" }
func (t *ListDirTool) Description() string {
	return "List the files and subdirectories of a directory, directories first, with human-readable sizes."
}

func (t *ListDirTool) InputSchema() json.RawMessage {
	return tool.BuildSchema(
		tool.SchemaParam{Name: "path", Type: "string", Description: "directory path, relative to the project root or absolute", Required: true},
		tool.SchemaParam{Name: "show_hidden", Type: "boolean", Description: "include dot-prefixed and normally-ignored entries (default false)"},
	)
}

func (t *ListDirTool) Init(_ context.Context) error { return nil }
func (t *ListDirTool) Close() error                 { return nil }

type listDirArgs struct {
	Path       string `json:"path"`
	ShowHidden bool   `json:"show_hidden"`
}

func (t *ListDirTool) Execute(_ context.Context, args json.RawMessage) (tool.ToolResult, error) {
	var a listDirArgs
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

	entries, err := os.ReadDir(resolved)
	if err != nil {
		return tool.Err("directory does not exist: %s", resolved), nil
	}

	var kept []os.DirEntry
	for _, e := range entries {
		name := e.Name()
		if !a.ShowHidden {
			if strings.HasPrefix(name, ".") || listDirIgnoredNames[name] {
				continue
			}
		}
		kept = append(kept, e)
	}

	sort.Slice(kept, func(i, j int) bool {
		di, dj := kept[i].IsDir(), kept[j].IsDir()
		if di != dj {
			return di
		}
		return kept[i].Name() < kept[j].Name()
	})

	if len(kept) == 0 {
		return tool.Ok("(empty directory)"), nil
	}

	var sb strings.Builder
	for _, e := range kept {
		if e.IsDir() {
			sb.WriteString(e.Name() + "/\n")
			continue
		}
		size := int64(0)
		if info, err := e.Info(); err == nil {
			size = info.Size()
		}
		sb.WriteString(fmt.Sprintf("%s (%s)\n", e.Name(), humanSize(size)))
	}
	return tool.Ok(sb.String()), nil
}

// humanSize renders a byte count as B, or KB/MB with one decimal place
// above 1 KB (§4.4).
func humanSize(size int64) string {
	const kb = 1024
	const mb = kb * 1024
	switch {
	case size >= mb:
		return fmt.Sprintf("%.1f MB", float64(size)/float64(mb))
	case size >= kb:
		return fmt.Sprintf("%.1f KB", float64(size)/float64(kb))
	default:
		return fmt.Sprintf("%d B", size)
	}
}

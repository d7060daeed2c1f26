package builtin

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/loopsmith/loopsmith/internal/safety"
	"github.com/loopsmith/loopsmith/internal/tool"
)

const (
	grepMaxFileSize = 1 << 20 // 1MB
	grepMaxMatches  = 50
)

// grepSkipDirs are directory names skipped during the recursive walk, in
// addition to any dot-prefixed directory (§4.4).
var grepSkipDirs = map[string]bool{
	"node_modules": true,
	".git":         true,
	"dist":         true,
	".next":        true,
	"__pycache__":  true,
	".venv":        true,
	"venv":         true,
	".agent":       true,
}

// grepBinaryExtensions are file extensions skipped as presumed binary.
var grepBinaryExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".bmp": true, ".ico": true,
	".woff": true, ".woff2": true, ".ttf": true, ".eot": true,
	".zip": true, ".tar": true, ".gz": true, ".bz2": true,
	".pdf": true, ".doc": true, ".docx": true,
	".exe": true, ".dll": true, ".so": true, ".dylib": true,
}

// GrepSearchTool implements the grep_search tool: a recursive, line-by-line
// regex/literal search with a fixed ignore set and a 50-match cap.
type GrepSearchTool struct {
	policy *safety.Policy
}

func NewGrepSearchTool(policy *safety.Policy) *GrepSearchTool {
	return &GrepSearchTool{policy: policy}
}

func (t *GrepSearchTool) Name() string { return "grep_search" }
func (t *GrepSearchTool) Description() string {
	return "Recursively search file contents for a pattern, returning up to 50 matches as <path>:<line>: <text>."
}

func (t *GrepSearchTool) InputSchema() json.RawMessage {
	return tool.BuildSchema(
		tool.SchemaParam{Name: "pattern", Type: "string", Description: "search pattern", Required: true},
		tool.SchemaParam{Name: "path", Type: "string", Description: "directory to search (default: project root)"},
		tool.SchemaParam{Name: "is_regex", Type: "boolean", Description: "treat pattern as a regular expression (default: literal)"},
		tool.SchemaParam{Name: "case_insensitive", Type: "boolean", Description: "case-insensitive match (default: case-sensitive)"},
	)
}

func (t *GrepSearchTool) Init(_ context.Context) error { return nil }
func (t *GrepSearchTool) Close() error                 { return nil }

type grepSearchArgs struct {
	Pattern         string `json:"pattern"`
	Path            string `json:"path,omitempty"`
	IsRegex         bool   `json:"is_regex,omitempty"`
	CaseInsensitive bool   `json:"case_insensitive,omitempty"`
}

func (t *GrepSearchTool) Execute(ctx context.Context, args json.RawMessage) (tool.ToolResult, error) {
	var a grepSearchArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return tool.Err("failed to parse arguments: %v", err), nil
	}
	if strings.TrimSpace(a.Pattern) == "" {
		return tool.Err("pattern must not be empty"), nil
	}

	searchPath := a.Path
	if searchPath == "" {
		searchPath = "."
	}
	resolved, denied, msg := t.policy.ReadSafety(searchPath)
	if denied {
		return tool.Err("%s", msg), nil
	}

	rePattern := a.Pattern
	if !a.IsRegex {
		rePattern = regexp.QuoteMeta(rePattern)
	}
	if a.CaseInsensitive {
		rePattern = "(?i)" + rePattern
	}
	re, err := regexp.Compile(rePattern)
	if err != nil {
		return tool.Err("invalid pattern: %v", err), nil
	}

	if _, err := os.Stat(resolved); err != nil {
		return tool.Err("search path does not exist: %s", resolved), nil
	}

	var matches []string
	capped := false

	_ = filepath.WalkDir(resolved, func(path string, d os.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err != nil {
			return nil
		}
		if d.IsDir() {
			name := d.Name()
			if name != "." && (strings.HasPrefix(name, ".") || grepSkipDirs[name]) {
				return filepath.SkipDir
			}
			return nil
		}
		if grepBinaryExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		found, fileCapped := grepFile(path, re, grepMaxMatches-len(matches))
		rel, relErr := filepath.Rel(resolved, path)
		if relErr != nil {
			rel = path
		}
		for _, m := range found {
			matches = append(matches, fmt.Sprintf("%s:%d: %s", rel, m.line, m.text))
			if len(matches) >= grepMaxMatches {
				capped = true
				return fmt.Errorf("limit reached")
			}
		}
		if fileCapped {
			capped = true
		}
		return nil
	})

	if len(matches) == 0 {
		return tool.Ok("No matches found"), nil
	}

	var sb strings.Builder
	for _, m := range matches {
		sb.WriteString(m + "\n")
	}
	if capped {
		sb.WriteString(fmt.Sprintf("50+ matches (capped at %d)\n", grepMaxMatches))
	}
	return tool.Ok(sb.String()), nil
}

type grepLineMatch struct {
	line int
	text string
}

// grepFile scans a single file line-by-line for re, returning at most limit
// matches. Binary files (by content sniff) and files over the size cap are
// silently skipped, matching the directory-level skip policy.
func grepFile(path string, re *regexp.Regexp, limit int) (matches []grepLineMatch, capped bool) {
	if limit <= 0 {
		return nil, true
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, false
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.Size() > grepMaxFileSize {
		return nil, false
	}

	sample := make([]byte, 512)
	n, _ := f.Read(sample)
	if looksBinary(sample[:n]) {
		return nil, false
	}
	if _, err := f.Seek(0, 0); err != nil {
		return nil, false
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1<<20), 1<<20)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if !re.MatchString(line) {
			continue
		}
		matches = append(matches, grepLineMatch{line: lineNum, text: strings.TrimSpace(line)})
		if len(matches) >= limit {
			return matches, true
		}
	}
	return matches, false
}

func looksBinary(data []byte) bool {
	if bytes.IndexByte(data, 0) >= 0 {
		return true
	}
	if utf8.Valid(data) {
		return false
	}
	nonPrintable := 0
	for _, b := range data {
		if b < 0x08 || (b >= 0x0E && b < 0x20 && b != 0x1B) {
			nonPrintable++
		}
	}
	return len(data) > 0 && nonPrintable*10 > len(data)
}

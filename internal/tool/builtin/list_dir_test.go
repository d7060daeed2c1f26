package builtin

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/loopsmith/loopsmith/internal/safety"
)

func TestListDirTool_DirectoriesFirstSorted(t *testing.T) {
	dir := t.TempDir()
	os.Mkdir(filepath.Join(dir, "zdir"), 0755)
	os.Mkdir(filepath.Join(dir, "adir"), 0755)
	writeTestFile(t, dir, "bfile.txt", "x")
	writeTestFile(t, dir, "afile.txt", "x")

	lt := NewListDirTool(safety.NewPolicy(dir, safety.DenyAll))
	args, _ := json.Marshal(map[string]any{"path": "."})
	result, _ := lt.Execute(context.Background(), args)
	if result.IsError {
		t.Fatalf("unexpected error: %s", result.Output)
	}

	lines := strings.Split(strings.TrimSpace(result.Output), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 entries, got %d: %v", len(lines), lines)
	}
	if lines[0] != "adir/" || lines[1] != "zdir/" {
		t.Fatalf("expected directories first and sorted, got %v", lines[:2])
	}
	if !strings.HasPrefix(lines[2], "afile.txt") || !strings.HasPrefix(lines[3], "bfile.txt") {
		t.Fatalf("expected files sorted after directories, got %v", lines[2:])
	}
}

func TestListDirTool_HiddenAndIgnoredSkippedByDefault(t *testing.T) {
	dir := t.TempDir()
	os.Mkdir(filepath.Join(dir, "node_modules"), 0755)
	os.Mkdir(filepath.Join(dir, ".git"), 0755)
	writeTestFile(t, dir, ".env", "secret")
	writeTestFile(t, dir, "visible.txt", "x")

	lt := NewListDirTool(safety.NewPolicy(dir, safety.DenyAll))
	args, _ := json.Marshal(map[string]any{"path": "."})
	result, _ := lt.Execute(context.Background(), args)
	if result.IsError {
		t.Fatalf("unexpected error: %s", result.Output)
	}
	if strings.Contains(result.Output, "node_modules") || strings.Contains(result.Output, ".git") || strings.Contains(result.Output, ".env") {
		t.Fatalf("expected hidden/ignored entries to be skipped, got %q", result.Output)
	}
	if !strings.Contains(result.Output, "visible.txt") {
		t.Fatal("expected visible.txt to be listed")
	}
}

func TestListDirTool_ShowHiddenIncludesThem(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, ".env", "secret")

	lt := NewListDirTool(safety.NewPolicy(dir, safety.DenyAll))
	args, _ := json.Marshal(map[string]any{"path": ".", "show_hidden": true})
	result, _ := lt.Execute(context.Background(), args)
	if result.IsError {
		t.Fatalf("unexpected error: %s", result.Output)
	}
	if !strings.Contains(result.Output, ".env") {
		t.Fatal("expected .env to be listed when show_hidden is true")
	}
}

func TestListDirTool_EmptyDirectory(t *testing.T) {
	dir := t.TempDir()
	lt := NewListDirTool(safety.NewPolicy(dir, safety.DenyAll))
	args, _ := json.Marshal(map[string]any{"path": "."})
	result, _ := lt.Execute(context.Background(), args)
	if result.IsError {
		t.Fatalf("unexpected error: %s", result.Output)
	}
	if result.Output != "(empty directory)" {
		t.Fatalf("expected empty directory message, got %q", result.Output)
	}
}

func TestListDirTool_MissingDirectoryIsError(t *testing.T) {
	dir := t.TempDir()
	lt := NewListDirTool(safety.NewPolicy(dir, safety.DenyAll))
	args, _ := json.Marshal(map[string]any{"path": "nope"})
	result, _ := lt.Execute(context.Background(), args)
	if !result.IsError {
		t.Fatal("expected a missing directory to be an error")
	}
}

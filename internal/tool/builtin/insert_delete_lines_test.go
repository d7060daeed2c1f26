package builtin

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/loopsmith/loopsmith/internal/safety"
)

func TestInsertLinesTool_PrependAppendAndMiddle(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "a.txt", "b\n")
	policy := safety.NewPolicy(dir, safety.DenyAll)
	it := NewInsertLinesTool(policy)

	args, _ := json.Marshal(map[string]any{"path": "a.txt", "line": 0, "content": "a\n"})
	if result, _ := it.Execute(context.Background(), args); result.IsError {
		t.Fatalf("prepend failed: %s", result.Output)
	}
	args, _ = json.Marshal(map[string]any{"path": "a.txt", "line": -1, "content": "c\n"})
	if result, _ := it.Execute(context.Background(), args); result.IsError {
		t.Fatalf("append failed: %s", result.Output)
	}

	data, _ := os.ReadFile(filepath.Join(dir, "a.txt"))
	if string(data) != "a\nb\nc\n" {
		t.Fatalf("unexpected content: %q", data)
	}
}

func TestInsertLinesTool_OutOfRangeIsError(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "a.txt", "one\n")
	it := NewInsertLinesTool(safety.NewPolicy(dir, safety.DenyAll))

	args, _ := json.Marshal(map[string]any{"path": "a.txt", "line": 5, "content": "x\n"})
	result, _ := it.Execute(context.Background(), args)
	if !result.IsError {
		t.Fatal("expected an out-of-range line to be an error")
	}
}

func TestDeleteLinesTool_InvalidRangeIsError(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "a.txt", "one\ntwo\n")
	dt := NewDeleteLinesTool(safety.NewPolicy(dir, safety.DenyAll))

	args, _ := json.Marshal(map[string]any{"path": "a.txt", "start_line": 0, "end_line": 1})
	if result, _ := dt.Execute(context.Background(), args); !result.IsError {
		t.Fatal("expected start_line < 1 to be an error")
	}

	args, _ = json.Marshal(map[string]any{"path": "a.txt", "start_line": 5, "end_line": 6})
	if result, _ := dt.Execute(context.Background(), args); !result.IsError {
		t.Fatal("expected start_line beyond file length to be an error")
	}
}

func TestDeleteLinesTool_EndClampedToFileLength(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "a.txt", "one\ntwo\nthree\n")
	dt := NewDeleteLinesTool(safety.NewPolicy(dir, safety.DenyAll))

	args, _ := json.Marshal(map[string]any{"path": "a.txt", "start_line": 2, "end_line": 99})
	result, _ := dt.Execute(context.Background(), args)
	if result.IsError {
		t.Fatalf("unexpected error: %s", result.Output)
	}
	data, _ := os.ReadFile(filepath.Join(dir, "a.txt"))
	if string(data) != "one\n" {
		t.Fatalf("unexpected content: %q", data)
	}
}

// TestDeleteThenInsertRestoresFile exercises §8's restore property:
// delete_lines followed by insert_lines at the same position with the
// deleted content restores the original file.
func TestDeleteThenInsertRestoresFile(t *testing.T) {
	dir := t.TempDir()
	original := "one\ntwo\nthree\nfour\n"
	writeTestFile(t, dir, "a.txt", original)
	policy := safety.NewPolicy(dir, safety.DenyAll)
	dt := NewDeleteLinesTool(policy)
	it := NewInsertLinesTool(policy)

	delArgs, _ := json.Marshal(map[string]any{"path": "a.txt", "start_line": 2, "end_line": 3})
	if result, _ := dt.Execute(context.Background(), delArgs); result.IsError {
		t.Fatalf("delete failed: %s", result.Output)
	}

	insArgs, _ := json.Marshal(map[string]any{"path": "a.txt", "line": 2, "content": "two\nthree\n"})
	if result, _ := it.Execute(context.Background(), insArgs); result.IsError {
		t.Fatalf("insert failed: %s", result.Output)
	}

	data, _ := os.ReadFile(filepath.Join(dir, "a.txt"))
	if string(data) != original {
		t.Fatalf("restore mismatch: got %q, want %q", data, original)
	}
}

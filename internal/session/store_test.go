package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/loopsmith/loopsmith/internal/provider"
)

func sampleTranscript() []provider.Message {
	return []provider.Message{
		provider.NewUserMessage("list the files here"),
		provider.NewAssistantMessage("calling list_dir", []provider.ToolCall{
			{ID: "1", Name: "list_dir", Args: json.RawMessage(`{"path":"."}`)},
		}),
		provider.NewToolResultBatch([]provider.ToolResult{
			{ToolCallID: "1", Name: "list_dir", Output: "a.go\nb.go"},
		}),
		provider.NewAssistantMessage("Found a.go and b.go.", nil),
	}
}

func TestSaveThenLoad_RoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	original := sampleTranscript()

	if err := Save(path, original); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded) != len(original) {
		t.Fatalf("got %d messages, want %d", len(loaded), len(original))
	}
	if loaded[0].Text != original[0].Text {
		t.Errorf("message 0 text = %q, want %q", loaded[0].Text, original[0].Text)
	}
	if loaded[1].ToolCalls[0].Name != "list_dir" {
		t.Errorf("message 1 lost its tool call: %+v", loaded[1])
	}
	if loaded[2].Results[0].Output != "a.go\nb.go" {
		t.Errorf("message 2 lost its tool result: %+v", loaded[2])
	}
}

func TestSave_CreatesParentDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "session.json")
	if err := Save(path, sampleTranscript()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := Load(path); err != nil {
		t.Fatalf("Load after nested Save: %v", err)
	}
}

func TestLoad_MissingFileIsError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.json"))
	if err == nil {
		t.Fatal("expected an error loading a missing file")
	}
}

func TestLoad_MalformedJSONIsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{not valid json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error loading malformed JSON")
	}
}

func TestSaveThenLoad_EmptyTranscript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.json")
	if err := Save(path, nil); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded) != 0 {
		t.Errorf("expected an empty transcript, got %d messages", len(loaded))
	}
}

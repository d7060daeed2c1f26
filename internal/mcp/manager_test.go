package mcp

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/loopsmith/loopsmith/internal/tool"
)

func TestNewManager_CreatesEmptyState(t *testing.T) {
	m := NewManager("mcp.json")
	if m == nil {
		t.Fatal("NewManager returned nil")
	}
	if m.configPath != "mcp.json" {
		t.Errorf("configPath = %q", m.configPath)
	}
}

func TestConnectAll_MissingConfig(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "nonexistent.json"))
	n, errs := m.ConnectAll(context.Background())
	if n != 0 {
		t.Errorf("expected 0 connected, got %d", n)
	}
	if len(errs) == 0 {
		t.Error("expected errors for missing config, got none")
	}
}

func TestConnectAll_InvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mcp.json")
	if err := os.WriteFile(path, []byte(`{not valid json`), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	m := NewManager(path)
	n, errs := m.ConnectAll(context.Background())
	if n != 0 {
		t.Errorf("expected 0 connected, got %d", n)
	}
	if len(errs) == 0 {
		t.Error("expected errors for invalid config")
	}
}

func TestConnectAll_EmptyConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mcp.json")
	if err := os.WriteFile(path, []byte(`{"mcpServers":{}}`), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	m := NewManager(path)
	n, errs := m.ConnectAll(context.Background())
	if n != 0 {
		t.Errorf("expected 0 connected for empty config, got %d", n)
	}
	if len(errs) != 0 {
		t.Errorf("expected no errors for empty config, got %v", errs)
	}
}

func TestCloseAll_Idempotent(t *testing.T) {
	m := NewManager("mcp.json")
	// Multiple CloseAll calls must not panic.
	m.CloseAll()
	m.CloseAll()
	m.CloseAll()
}

func TestRegisterTools_EmptyManager(t *testing.T) {
	m := NewManager("mcp.json")
	registry := tool.NewRegistry()
	// Registering tools when no servers are connected must not error.
	if err := m.RegisterTools(context.Background(), registry); err != nil {
		t.Errorf("RegisterTools on empty manager: %v", err)
	}
	if len(registry.List()) != 0 {
		t.Errorf("expected no tools, got %d", len(registry.List()))
	}
}

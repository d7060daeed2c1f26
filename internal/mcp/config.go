package mcp

import (
	"encoding/json"
	"fmt"
	"os"
)

// ServerConfig describes how to reach one external MCP server. Name is not a
// JSON field — it is filled in from the server's key in the mcpServers map
// when the config file is loaded, so every config created directly by a test
// or by NewManager must set it explicitly.
type ServerConfig struct {
	Name      string
	Transport string   `json:"transport"` // "stdio" | "sse"
	Command   string   `json:"command,omitempty"`
	Args      []string `json:"args,omitempty"`
	URL       string   `json:"url,omitempty"`
	Env       []string `json:"env,omitempty"`
}

// ToolInfo is the metadata an MCP server reports for one of its tools.
type ToolInfo struct {
	Name        string
	Description string
	InputSchema json.RawMessage
}

// mcpServerFile is the shape of mcp.json on disk.
type mcpServerFile struct {
	Servers map[string]ServerConfig `json:"mcpServers"`
}

// LoadConfig reads mcp.json at path and returns its servers keyed by name.
func LoadConfig(path string) (map[string]ServerConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("mcp: read %s: %w", path, err)
	}

	var file mcpServerFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("mcp: parse %s: %w", path, err)
	}
	if file.Servers == nil {
		return map[string]ServerConfig{}, nil
	}

	named := make(map[string]ServerConfig, len(file.Servers))
	for name, cfg := range file.Servers {
		cfg.Name = name
		named[name] = cfg
	}
	return named, nil
}

package tool

import (
	"context"
	"encoding/json"
	"fmt"
)

// Tool is the unified interface for all tools.
// Both native built-in tools and MCP tool adapters implement this interface.
type Tool interface {
	// Name returns the tool identifier (LLM uses this name to invoke the tool).
	Name() string

	// Description returns a natural-language description for LLM prompt injection.
	Description() string

	// InputSchema returns a standard JSON Schema defining the tool's parameters.
	// Compatible with MCP protocol and OpenAI Function Calling.
	InputSchema() json.RawMessage

	// Execute runs the tool with JSON-encoded arguments.
	Execute(ctx context.Context, args json.RawMessage) (ToolResult, error)

	// Init initializes tool resources (e.g. MCP client connections).
	// Native tools may return nil.
	Init(ctx context.Context) error

	// Close releases tool resources.
	Close() error
}

// ToolResult is the tagged (output, isError) result every executor returns.
// No exception crosses the dispatch boundary (§9): domain failures and
// environmental failures alike are reported this way, never as a Go error
// from Execute beyond truly unexpected panics, which Registry.Execute
// itself recovers from.
type ToolResult struct {
	Output  string `json:"output"`
	IsError bool   `json:"is_error,omitempty"`
}

// Err builds an error-tagged ToolResult from a formatted message.
func Err(format string, args ...any) ToolResult {
	return ToolResult{Output: fmt.Sprintf(format, args...), IsError: true}
}

// Ok builds a success-tagged ToolResult.
func Ok(output string) ToolResult {
	return ToolResult{Output: output}
}

// SchemaParam describes a single parameter for the SchemaBuilder helper.
type SchemaParam struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"` // "string", "integer", "boolean", "number"
	Description string   `json:"description"`
	Required    bool     `json:"-"`
	Enum        []string `json:"enum,omitempty"`
}

// BuildSchema generates a standard JSON Schema object from a list of SchemaParams.
// This helper lets native tools avoid hand-writing JSON strings.
//
// Output example:
//
//	{"type":"object","properties":{"command":{"type":"string","description":"要执行的命令"}},"required":["command"]}
func BuildSchema(params ...SchemaParam) json.RawMessage {
	properties := make(map[string]any)
	var required []string

	for _, p := range params {
		prop := map[string]any{
			"type":        p.Type,
			"description": p.Description,
		}
		if len(p.Enum) > 0 {
			prop["enum"] = p.Enum
		}
		properties[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}

	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}

	data, _ := json.Marshal(schema)
	return data
}

package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/loopsmith/loopsmith/internal/tool"
)

// callTimeout caps a single MCP tool invocation so a hung server process
// cannot consume the agent's whole turn budget.
const callTimeout = 60 * time.Second

// ToolAdapter exposes one tool from a connected MCP server through the
// tool.Tool interface, so the agent's Registry cannot tell it apart from a
// built-in tool.
//
// Its name is mcp_<server>__<tool>, so two servers whose tools share a name
// still register under different names. Neither half is checked for a
// double underscore of its own, so a server or tool name that contains one
// can produce the same combined name as another pair.
type ToolAdapter struct {
	serverName string
	info       ToolInfo
	client     *Client
}

// NewMCPToolAdapter wraps one tool of client's server for the registry.
func NewMCPToolAdapter(serverName string, info ToolInfo, client *Client) *ToolAdapter {
	return &ToolAdapter{serverName: serverName, info: info, client: client}
}

func (a *ToolAdapter) Name() string {
	return fmt.Sprintf("mcp_%s__%s", a.serverName, a.info.Name)
}

func (a *ToolAdapter) Description() string {
	return a.info.Description
}

func (a *ToolAdapter) InputSchema() json.RawMessage {
	if len(a.info.InputSchema) == 0 {
		return tool.BuildSchema()
	}
	return a.info.InputSchema
}

// Execute unmarshals args and forwards the call to the MCP server over the
// shared client connection. Both transport failures and server-reported tool
// errors come back as an error-tagged ToolResult rather than a Go error, so
// the agent can react to either without special-casing MCP tools.
func (a *ToolAdapter) Execute(ctx context.Context, args json.RawMessage) (tool.ToolResult, error) {
	var params map[string]any
	if len(args) > 0 && string(args) != "null" {
		if err := json.Unmarshal(args, &params); err != nil {
			return tool.Err("mcp adapter: parse args for %q: %v", a.Name(), err), nil
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	text, err := a.client.CallTool(callCtx, a.info.Name, params)
	if err != nil {
		return tool.Err("%v", err), nil
	}
	return tool.Ok(text), nil
}

// Init is a no-op: the Manager owns connection lifecycle for all adapters.
func (a *ToolAdapter) Init(_ context.Context) error { return nil }

// Close is a no-op: adapters share the Manager's connection and do not own it.
func (a *ToolAdapter) Close() error { return nil }

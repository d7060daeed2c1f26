package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	sdk_client "github.com/mark3labs/mcp-go/client"
	sdk_mcp "github.com/mark3labs/mcp-go/mcp"
)

// Client is a connection to one external MCP server, reachable over whatever
// transport its ServerConfig names. Safe for concurrent use.
type Client struct {
	cfg ServerConfig

	mu   sync.RWMutex
	conn sdk_client.MCPClient
}

// NewClient builds a Client for cfg. Connect must be called before the
// client can list or call tools.
func NewClient(cfg ServerConfig) *Client {
	return &Client{cfg: cfg}
}

// Connect dials the server's transport and runs the MCP initialize handshake.
func (c *Client) Connect(ctx context.Context) error {
	conn, err := c.dial(ctx)
	if err != nil {
		return err
	}

	if _, err := conn.Initialize(ctx, sdk_mcp.InitializeRequest{
		Params: sdk_mcp.InitializeParams{
			ProtocolVersion: sdk_mcp.LATEST_PROTOCOL_VERSION,
			ClientInfo: sdk_mcp.Implementation{
				Name:    "loopsmith",
				Version: "0.1.0",
			},
		},
	}); err != nil {
		_ = conn.Close()
		return fmt.Errorf("mcp: initialize %q: %w", c.cfg.Name, err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	return nil
}

// dial opens the transport named by c.cfg.Transport without performing the
// handshake.
func (c *Client) dial(ctx context.Context) (sdk_client.MCPClient, error) {
	switch c.cfg.Transport {
	case "stdio":
		conn, err := sdk_client.NewStdioMCPClient(c.cfg.Command, c.cfg.Env, c.cfg.Args...)
		if err != nil {
			return nil, fmt.Errorf("mcp: launch %q: %w", c.cfg.Name, err)
		}
		return conn, nil

	case "sse":
		conn, err := sdk_client.NewSSEMCPClient(c.cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("mcp: dial %q: %w", c.cfg.Name, err)
		}
		if err := conn.Start(ctx); err != nil {
			return nil, fmt.Errorf("mcp: start %q: %w", c.cfg.Name, err)
		}
		return conn, nil

	default:
		return nil, fmt.Errorf("mcp: unknown transport %q for server %q", c.cfg.Transport, c.cfg.Name)
	}
}

func (c *Client) connection() (sdk_client.MCPClient, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.conn == nil {
		return nil, fmt.Errorf("mcp: %q is not connected", c.cfg.Name)
	}
	return c.conn, nil
}

// ListTools returns the tool metadata the server advertises.
func (c *Client) ListTools(ctx context.Context) ([]ToolInfo, error) {
	conn, err := c.connection()
	if err != nil {
		return nil, err
	}

	resp, err := conn.ListTools(ctx, sdk_mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("mcp: list tools on %q: %w", c.cfg.Name, err)
	}

	out := make([]ToolInfo, 0, len(resp.Tools))
	for _, t := range resp.Tools {
		schema, err := json.Marshal(t.InputSchema)
		if err != nil {
			schema = json.RawMessage("{}")
		}
		out = append(out, ToolInfo{Name: t.Name, Description: t.Description, InputSchema: schema})
	}
	return out, nil
}

// CallTool invokes a tool by name and returns its concatenated text content.
// A server-reported tool error comes back as a Go error, same as a transport
// failure, so callers need not distinguish the two.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	conn, err := c.connection()
	if err != nil {
		return "", err
	}

	req := sdk_mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	resp, err := conn.CallTool(ctx, req)
	if err != nil {
		return "", fmt.Errorf("mcp: call %q on %q: %w", name, c.cfg.Name, err)
	}

	var parts []string
	for _, content := range resp.Content {
		if tc, ok := content.(sdk_mcp.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	text := strings.Join(parts, "\n")
	if resp.IsError {
		return "", fmt.Errorf("mcp: %q reported an error: %s", name, text)
	}
	return text, nil
}

// Close releases the connection. Safe to call on a client that never
// connected.
func (c *Client) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	return conn.Close()
}

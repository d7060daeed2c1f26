package mcp

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/loopsmith/loopsmith/internal/tool"
)

// Manager owns the lifecycle of all configured MCP server connections and is
// the single source of truth for which of their tools are registered in a
// tool.Registry.
//
// State changes are guarded by mu; connecting to a server and listing its
// tools are both network I/O and are always done outside the lock, so a
// slow or hung server can't block CloseAll. Servers are connected and
// listed one after another, so a hung server does delay the ones after it.
type Manager struct {
	configPath string

	mu          sync.Mutex
	configs     map[string]ServerConfig
	clients     map[string]*Client
	serverTools map[string][]string // server name -> registered tool names
}

// NewManager creates a Manager for the given mcp.json path. No connections
// are established until ConnectAll runs.
func NewManager(configPath string) *Manager {
	return &Manager{
		configPath:  configPath,
		configs:     make(map[string]ServerConfig),
		clients:     make(map[string]*Client),
		serverTools: make(map[string][]string),
	}
}

// ConnectAll loads configPath and connects to every server it names.
// A failure on one server does not stop the others; it is reported in the
// returned error slice. Returns the count of servers that connected.
func (m *Manager) ConnectAll(ctx context.Context) (int, []error) {
	configs, err := LoadConfig(m.configPath)
	if err != nil {
		return 0, []error{fmt.Errorf("mcp: load config: %w", err)}
	}

	type connected struct {
		name string
		cfg  ServerConfig
		cli  *Client
		err  error
	}
	results := make([]connected, 0, len(configs))
	for name, cfg := range configs {
		cli := NewClient(cfg)
		if err := cli.Connect(ctx); err != nil {
			results = append(results, connected{name: name, err: err})
			log.Printf("[MCP] connect failed: %s: %v", name, err)
			continue
		}
		results = append(results, connected{name: name, cfg: cfg, cli: cli})
		log.Printf("[MCP] connected: %s (%s)", name, cfg.Transport)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	n := 0
	for _, r := range results {
		if r.err != nil {
			errs = append(errs, fmt.Errorf("server %q: %w", r.name, r.err))
			continue
		}
		m.clients[r.name] = r.cli
		m.configs[r.name] = r.cfg
		n++
	}
	return n, errs
}

// RegisterTools lists the tools of every connected server and registers a
// ToolAdapter for each in registry.
func (m *Manager) RegisterTools(ctx context.Context, registry *tool.Registry) error {
	m.mu.Lock()
	clients := make(map[string]*Client, len(m.clients))
	for name, cli := range m.clients {
		clients[name] = cli
	}
	m.mu.Unlock()

	type listed struct {
		name  string
		tools []ToolInfo
		err   error
	}
	results := make([]listed, 0, len(clients))
	for name, cli := range clients {
		tools, err := cli.ListTools(ctx)
		results = append(results, listed{name: name, tools: tools, err: err})
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range results {
		if r.err != nil {
			return fmt.Errorf("mcp: list tools for %q: %w", r.name, r.err)
		}
		names := make([]string, 0, len(r.tools))
		for _, ti := range r.tools {
			adapter := NewMCPToolAdapter(r.name, ti, m.clients[r.name])
			registry.Register(adapter)
			names = append(names, adapter.Name())
		}
		m.serverTools[r.name] = names
		log.Printf("[MCP] registered %d tool(s) from %q", len(r.tools), r.name)
	}
	return nil
}

// CloseAll terminates every active server connection. Safe to call more
// than once.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	clients := make(map[string]*Client, len(m.clients))
	for name, cli := range m.clients {
		clients[name] = cli
		delete(m.clients, name)
	}
	m.mu.Unlock()

	for name, cli := range clients {
		if err := cli.Close(); err != nil {
			log.Printf("[MCP] close error for %q: %v", name, err)
		}
	}
}

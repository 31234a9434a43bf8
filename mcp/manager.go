package mcp

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"parley/config"
	"parley/model"
)

// Manager starts MCP servers from config, aggregates their tools under
// namespaced names ("server.tool"), and executes tool calls. It
// satisfies the turn loop's tool executor contract.
type Manager struct {
	servers map[string]*ServerConn
	mu      sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{servers: make(map[string]*ServerConn)}
}

// StartAll connects every configured server. Individual failures are
// collected but do not prevent other servers from starting.
func (m *Manager) StartAll(ctx context.Context, configs []config.MCPServerConfig) []error {
	var errs []error
	for _, sc := range configs {
		if err := m.Start(ctx, sc); err != nil {
			errs = append(errs, fmt.Errorf("mcp server %s: %w", sc.Name, err))
		}
	}
	return errs
}

// Start connects to one server, initializes the MCP session, and caches
// its tool list.
func (m *Manager) Start(ctx context.Context, sc config.MCPServerConfig) error {
	m.mu.Lock()
	if existing := m.servers[sc.Name]; existing != nil && existing.Running {
		m.mu.Unlock()
		return fmt.Errorf("server %s already running", sc.Name)
	}
	m.mu.Unlock()

	var (
		mcpClient *client.Client
		cmd       *exec.Cmd
		err       error
	)
	remote := sc.Transport == "sse" || sc.Transport == "http"
	if remote {
		mcpClient, err = newRemoteClient(ctx, sc)
	} else {
		mcpClient, cmd, err = newStdioClient(sc)
	}
	if err != nil {
		return err
	}

	initReq := mcptypes.InitializeRequest{
		Params: mcptypes.InitializeParams{
			ProtocolVersion: "2025-06-18",
			Capabilities:    mcptypes.ClientCapabilities{},
			ClientInfo: mcptypes.Implementation{
				Name:    "Parley",
				Version: "1.0.0",
			},
		},
	}
	if _, err := mcpClient.Initialize(ctx, initReq); err != nil {
		return fmt.Errorf("failed to initialize server %s: %w", sc.Name, err)
	}

	toolsResult, err := mcpClient.ListTools(ctx, mcptypes.ListToolsRequest{})
	if err != nil {
		return fmt.Errorf("failed to list tools for %s: %w", sc.Name, err)
	}

	if config.DebugLog != nil {
		config.DebugLog.Printf("[MCP] Connected to %s (%d tools)", sc.Name, len(toolsResult.Tools))
	}

	m.mu.Lock()
	m.servers[sc.Name] = &ServerConn{
		Name:    sc.Name,
		Process: cmd,
		Client:  mcpClient,
		Tools:   toolsResult.Tools,
		Remote:  remote,
		URL:     sc.URL,
		Running: true,
	}
	m.mu.Unlock()

	return nil
}

// Tools returns all advertised tools across running servers, with names
// namespaced as "server.tool" so calls route back unambiguously.
func (m *Manager) Tools() []mcptypes.Tool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var all []mcptypes.Tool
	for name, conn := range m.servers {
		if !conn.Running {
			continue
		}
		for _, tool := range conn.Tools {
			namespaced := tool
			namespaced.Name = name + "." + tool.Name
			all = append(all, namespaced)
		}
	}
	return all
}

// Resolves reports whether a namespaced tool name routes to a running
// server.
func (m *Manager) Resolves(name string) bool {
	serverName, toolName := splitToolName(name)

	m.mu.RLock()
	defer m.mu.RUnlock()

	conn, ok := m.servers[serverName]
	if !ok || !conn.Running {
		return false
	}
	for _, tool := range conn.Tools {
		if tool.Name == toolName {
			return true
		}
	}
	return false
}

// Execute runs a tool call against its server and flattens the result
// content into a single string.
func (m *Manager) Execute(ctx context.Context, call model.ToolCall) (string, error) {
	serverName, toolName := splitToolName(call.Name)

	m.mu.RLock()
	conn, ok := m.servers[serverName]
	m.mu.RUnlock()
	if !ok || !conn.Running {
		return "", fmt.Errorf("no running server for tool %q", call.Name)
	}

	result, err := conn.Client.CallTool(ctx, mcptypes.CallToolRequest{
		Params: mcptypes.CallToolParams{
			Name:      toolName,
			Arguments: call.ParseArguments(),
		},
	})
	if err != nil {
		return "", fmt.Errorf("tool %s failed: %w", call.Name, err)
	}

	text := flattenContent(result.Content)
	if result.IsError {
		return "", fmt.Errorf("tool %s returned an error: %s", call.Name, text)
	}
	return text, nil
}

// Stop shuts down one server, killing the child process for stdio
// servers if the client does not close within a second.
func (m *Manager) Stop(ctx context.Context, name string) error {
	m.mu.Lock()
	conn, ok := m.servers[name]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("server %s not found", name)
	}
	conn.Running = false
	delete(m.servers, name)
	m.mu.Unlock()

	closed := false
	if conn.Client != nil {
		closeCtx, cancel := context.WithTimeout(ctx, 1*time.Second)
		defer cancel()

		done := make(chan error, 1)
		go func() {
			done <- conn.Client.Close()
		}()

		select {
		case err := <-done:
			closed = err == nil
		case <-closeCtx.Done():
		}
	}

	if !closed && !conn.Remote && conn.Process != nil && conn.Process.Process != nil {
		if err := conn.Process.Process.Kill(); err != nil && config.DebugLog != nil {
			config.DebugLog.Printf("[MCP] Error killing %s: %v", name, err)
		}
	}

	return nil
}

// Shutdown stops all servers in parallel.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	names := make([]string, 0, len(m.servers))
	for name := range m.servers {
		names = append(names, name)
	}
	m.mu.Unlock()

	var wg sync.WaitGroup
	errChan := make(chan error, len(names))
	for _, name := range names {
		wg.Add(1)
		go func(n string) {
			defer wg.Done()
			if err := m.Stop(ctx, n); err != nil {
				errChan <- err
			}
		}(name)
	}
	wg.Wait()
	close(errChan)

	var errs []error
	for err := range errChan {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}
	return nil
}

func splitToolName(namespaced string) (server, tool string) {
	idx := strings.Index(namespaced, ".")
	if idx == -1 {
		return "", namespaced
	}
	return namespaced[:idx], namespaced[idx+1:]
}

func flattenContent(content []mcptypes.Content) string {
	var parts []string
	for _, c := range content {
		if tc, ok := c.(mcptypes.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}

func newStdioClient(sc config.MCPServerConfig) (*client.Client, *exec.Cmd, error) {
	env := os.Environ()
	for k, v := range sc.Env {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}

	var captured *exec.Cmd
	cmdFunc := func(ctx context.Context, command string, env []string, args []string) (*exec.Cmd, error) {
		cmd := exec.CommandContext(ctx, command, args...)
		cmd.Env = env
		captured = cmd
		return cmd, nil
	}

	mcpClient, err := client.NewStdioMCPClientWithOptions(
		sc.Command,
		env,
		sc.Args,
		transport.WithCommandFunc(cmdFunc),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start server %s: %w", sc.Name, err)
	}

	return mcpClient, captured, nil
}

func newRemoteClient(ctx context.Context, sc config.MCPServerConfig) (*client.Client, error) {
	var (
		mcpClient *client.Client
		err       error
	)

	switch sc.Transport {
	case "http":
		var opts []transport.StreamableHTTPCOption
		if len(sc.Headers) > 0 {
			opts = append(opts, transport.WithHTTPHeaders(sc.Headers))
		}
		mcpClient, err = client.NewStreamableHttpClient(sc.URL, opts...)
	default: // sse
		var opts []transport.ClientOption
		if len(sc.Headers) > 0 {
			opts = append(opts, transport.WithHeaders(sc.Headers))
		}
		mcpClient, err = client.NewSSEMCPClient(sc.URL, opts...)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", sc.Name, err)
	}

	// Remote transports must be started before Initialize/ListTools.
	if err := mcpClient.GetTransport().Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start transport for %s: %w", sc.Name, err)
	}

	return mcpClient, nil
}

// Package mcp connects to MCP servers and exposes their tools to the
// chat-turn loop.
package mcp

import (
	"os/exec"

	"github.com/mark3labs/mcp-go/client"
	mcptypes "github.com/mark3labs/mcp-go/mcp"
)

// ServerConn tracks one connected MCP server and its advertised tools.
type ServerConn struct {
	Name    string
	Process *exec.Cmd // nil for remote servers
	Client  *client.Client
	Tools   []mcptypes.Tool
	Remote  bool
	URL     string
	Running bool
}

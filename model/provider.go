package model

import (
	"context"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
)

// Provider abstracts LLM provider implementations (OpenAI, Anthropic, Ollama)
// using provider-agnostic types from parley's model layer.
//
// This interface is defined in the model package (not provider package) to
// avoid import cycles: provider implementations can import model, and model
// can use the Provider interface without importing the provider package.
type Provider interface {
	// StreamChat opens a streaming request and returns its event stream.
	// The caller must drain Events() and call Close() on the returned
	// stream regardless of outcome.
	StreamChat(ctx context.Context, req ChatRequest) (*Stream, error)

	// ListModels returns available models for this provider.
	ListModels(ctx context.Context) ([]ModelInfo, error)

	// GetModel returns the currently selected model name.
	GetModel() string

	// SetModel changes the active model.
	SetModel(model string)

	// Ping checks if the provider is reachable.
	Ping(ctx context.Context) error
}

// ChatRequest is one turn's worth of input: the ordered message history plus
// the tools the model may call.
type ChatRequest struct {
	Messages []Message
	Tools    []mcptypes.Tool
}

// ModelInfo describes one selectable model.
type ModelInfo struct {
	Name     string // display name
	Size     int64  // bytes, 0 when the provider does not report size
	Provider string // provider ID: "openai", "anthropic", "ollama"
}

package model

import (
	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"parley/approval"
	"parley/config"
	"parley/storage"
)

// ToolSource exposes the tools available to a turn. Implemented by the
// MCP manager; defined here so the model layer does not depend on it.
type ToolSource interface {
	Tools() []mcptypes.Tool
}

// Model holds the core application data and business logic state.
type Model struct {
	// Core dependencies
	Config      *config.Config
	Provider    Provider            // active provider
	Providers   map[string]Provider // by provider ID
	ChatStore   *storage.ChatStore
	SearchIndex *storage.SearchIndex
	Approvals   approval.Store
	Tools       ToolSource

	// Application data
	Messages    []Message
	CurrentChat *storage.Chat

	// Runtime state (not UI)
	Streaming          bool
	ChatDirty          bool
	NeedsInitialRender bool
	Quitting           bool

	// Application metadata
	Version string
}

// NewModel creates a new Model. A nil provider is allowed (offline
// mode); chats can still be browsed and exported.
func NewModel(cfg *config.Config, providers map[string]Provider, chatStore *storage.ChatStore, searchIndex *storage.SearchIndex, approvals approval.Store, tools ToolSource, lastChat *storage.Chat, version string) *Model {
	active := providers[cfg.DefaultProvider]

	var messages []Message
	if lastChat != nil {
		if lastChat.Provider != "" && providers[lastChat.Provider] != nil {
			active = providers[lastChat.Provider]
		}
		if active != nil && lastChat.Model != "" {
			active.SetModel(lastChat.Model)
		}
		messages = FromStoredMessages(lastChat.Messages)
	}

	return &Model{
		Config:             cfg,
		Provider:           active,
		Providers:          providers,
		ChatStore:          chatStore,
		SearchIndex:        searchIndex,
		Approvals:          approvals,
		Tools:              tools,
		Messages:           messages,
		CurrentChat:        lastChat,
		NeedsInitialRender: len(messages) > 0,
		Version:            version,
	}
}

// ProviderID returns the ID of the active provider, or "" when offline.
func (m *Model) ProviderID() string {
	for id, p := range m.Providers {
		if p == m.Provider {
			return id
		}
	}
	return ""
}

// AvailableTools returns the tools for the next turn, nil when no tool
// source is wired.
func (m *Model) AvailableTools() []mcptypes.Tool {
	if m.Tools == nil {
		return nil
	}
	return m.Tools.Tools()
}

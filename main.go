package main

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"parley/approval"
	"parley/config"
	"parley/mcp"
	"parley/model"
	"parley/provider"
	"parley/storage"
	"parley/turn"
	"parley/ui"
)

const Version = "v0.1.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fatal("Failed to load configuration", err)
	}

	dataDir := cfg.DataDir()
	config.InitDebugLog(dataDir)

	creds := config.NewCredentialStore(config.SecurityMethod(cfg.Security.Method), cfg.Security.SSHKeyPath)
	if err := creds.Load(dataDir); err != nil {
		// Not fatal: API keys can still come from environment variables.
		fmt.Fprintf(os.Stderr, "Warning: could not load credentials: %v\n", err)
	}

	providers := buildProviders(cfg, creds)

	chatStore, err := storage.NewChatStore(dataDir)
	if err != nil {
		fatal("Failed to open chat store", err)
	}
	searchIndex := storage.NewSearchIndex(chatStore)

	approvals, err := approval.NewSQLiteStore(dataDir)
	if err != nil {
		fatal("Failed to open approval store", err)
	}
	defer approvals.Close()

	mcpManager := mcp.NewManager()
	if len(cfg.MCPServers) > 0 {
		startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
		for _, err := range mcpManager.StartAll(startCtx, cfg.MCPServers) {
			fmt.Fprintf(os.Stderr, "Warning: MCP server failed to start: %v\n", err)
		}
		cancelStart()
	}

	dataModel := model.NewModel(cfg, providers, chatStore, searchIndex, approvals, mcpManager, loadLastChat(chatStore), Version)
	orch := turn.New(dataModel.Provider, mcpManager, approvals)

	app := ui.NewAppView(dataModel, orch)
	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := mcpManager.Shutdown(shutdownCtx); err != nil && config.DebugLog != nil {
		config.DebugLog.Printf("[MAIN] MCP shutdown: %v", err)
	}
}

// buildProviders constructs one provider per configured backend. A backend
// that fails to construct is skipped so the rest remain usable.
func buildProviders(cfg *config.Config, creds *config.CredentialStore) map[string]model.Provider {
	providers := make(map[string]model.Provider)

	if key := apiKeyFor(creds, "openai", "OPENAI_API_KEY"); key != "" {
		p, err := provider.NewProvider(provider.Config{
			Type:    provider.ProviderTypeOpenAI,
			BaseURL: cfg.OpenAI.BaseURL,
			Model:   cfg.OpenAI.DefaultModel,
			APIKey:  key,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: openai provider unavailable: %v\n", err)
		} else {
			providers["openai"] = p
		}
	}

	if key := apiKeyFor(creds, "anthropic", "ANTHROPIC_API_KEY"); key != "" {
		p, err := provider.NewProvider(provider.Config{
			Type:   provider.ProviderTypeAnthropic,
			Model:  cfg.Anthropic.DefaultModel,
			APIKey: key,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: anthropic provider unavailable: %v\n", err)
		} else {
			providers["anthropic"] = p
		}
	}

	if cfg.Ollama.Host != "" {
		p, err := provider.NewProvider(provider.Config{
			Type:    provider.ProviderTypeOllama,
			BaseURL: cfg.Ollama.Host,
			Model:   cfg.Ollama.DefaultModel,
		})
		if err == nil {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			err = p.Ping(pingCtx)
			cancel()
		}
		if err != nil {
			if config.DebugLog != nil {
				config.DebugLog.Printf("[MAIN] ollama unavailable at %s: %v", cfg.Ollama.Host, err)
			}
		} else {
			providers["ollama"] = p
		}
	}

	return providers
}

func apiKeyFor(creds *config.CredentialStore, providerID, envVar string) string {
	if key := creds.Get(providerID); key != "" {
		return key
	}
	return os.Getenv(envVar)
}

// loadLastChat restores the chat that was open when the app last exited.
// Any failure just means starting with a fresh chat.
func loadLastChat(store *storage.ChatStore) *storage.Chat {
	id, err := store.LoadCurrentChatID()
	if err != nil || id == "" {
		return nil
	}
	chat, err := store.Load(id)
	if err != nil {
		if config.DebugLog != nil {
			config.DebugLog.Printf("[MAIN] could not restore chat %s: %v", id, err)
		}
		return nil
	}
	return chat
}

func fatal(msg string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	os.Exit(1)
}

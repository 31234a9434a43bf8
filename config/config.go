package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// SystemConfig is the small bootstrap file under ~/.config/parley that
// points at the data directory. Everything else lives in the data dir.
type SystemConfig struct {
	DataDirectory string `toml:"data_directory"`
}

type OpenAIConfig struct {
	BaseURL      string `toml:"base_url,omitempty"`
	DefaultModel string `toml:"default_model"`
}

type AnthropicConfig struct {
	DefaultModel string `toml:"default_model"`
}

type OllamaConfig struct {
	Host         string `toml:"host"`
	DefaultModel string `toml:"default_model"`
}

// MCPServerConfig describes one MCP server the client should connect to.
// Stdio servers set Command/Args/Env; remote servers set URL (and
// Transport "sse" or "http").
type MCPServerConfig struct {
	Name      string            `toml:"name"`
	Transport string            `toml:"transport"` // stdio, sse, http
	Command   string            `toml:"command,omitempty"`
	Args      []string          `toml:"args,omitempty"`
	Env       map[string]string `toml:"env,omitempty"`
	URL       string            `toml:"url,omitempty"`
	Headers   map[string]string `toml:"headers,omitempty"`
}

type SecurityConfig struct {
	Method     string `toml:"method"` // plaintext or ssh_key
	SSHKeyPath string `toml:"ssh_key_path,omitempty"`
}

type UserConfig struct {
	DefaultProvider     string            `toml:"default_provider"`
	DefaultSystemPrompt string            `toml:"default_system_prompt,omitempty"`
	OpenAI              OpenAIConfig      `toml:"openai"`
	Anthropic           AnthropicConfig   `toml:"anthropic"`
	Ollama              OllamaConfig      `toml:"ollama"`
	Security            SecurityConfig    `toml:"security"`
	MCPServers          []MCPServerConfig `toml:"mcp_servers"`
}

// Config is the merged runtime view of system config, user config, and
// environment overrides.
type Config struct {
	DataDirectory       string
	DefaultProvider     string
	DefaultSystemPrompt string
	OpenAI              OpenAIConfig
	Anthropic           AnthropicConfig
	Ollama              OllamaConfig
	Security            SecurityConfig
	MCPServers          []MCPServerConfig
}

var Debug = false
var DebugLog *log.Logger

func (c *Config) DataDir() string {
	return ExpandPath(c.DataDirectory)
}

// DefaultModelFor returns the configured default model for a provider name.
func (c *Config) DefaultModelFor(provider string) string {
	switch provider {
	case "openai":
		return c.OpenAI.DefaultModel
	case "anthropic":
		return c.Anthropic.DefaultModel
	case "ollama":
		return c.Ollama.DefaultModel
	}
	return ""
}

func (c *Config) applyEnvOverrides() {
	if dataDir := os.Getenv("PARLEY_DATA_DIR"); dataDir != "" {
		c.DataDirectory = dataDir
	}
	if provider := os.Getenv("PARLEY_PROVIDER"); provider != "" {
		c.DefaultProvider = provider
	}
	if model := os.Getenv("PARLEY_MODEL"); model != "" {
		switch c.DefaultProvider {
		case "anthropic":
			c.Anthropic.DefaultModel = model
		case "ollama":
			c.Ollama.DefaultModel = model
		default:
			c.OpenAI.DefaultModel = model
		}
	}
	if host := os.Getenv("PARLEY_OLLAMA_HOST"); host != "" {
		c.Ollama.Host = host
	}
}

func CheckDebug() bool {
	debug := os.Getenv("PARLEY_DEBUG")
	return debug == "true" || debug == "1"
}

func InitDebugLog(dataDir string) {
	if !CheckDebug() {
		return
	}

	Debug = true
	logPath := filepath.Join(dataDir, "debug.log")

	// 0600: debug output can include message content
	f, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not open debug log at %s: %v\n", logPath, err)
		return
	}

	DebugLog = log.New(f, "", log.Ldate|log.Ltime|log.Lmicroseconds|log.Lshortfile)
	DebugLog.Printf("=== Debug logging started (PARLEY_DEBUG=%s) ===", os.Getenv("PARLEY_DEBUG"))
}

func Load() (*Config, error) {
	systemCfg, err := LoadSystemConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load system config: %w", err)
	}

	cfg := &Config{DataDirectory: systemCfg.DataDirectory}
	cfg.applyEnvOverrides()

	dataDir := cfg.DataDir()
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	userCfg, err := LoadUserConfig(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	}
	cfg.DefaultProvider = userCfg.DefaultProvider
	cfg.DefaultSystemPrompt = userCfg.DefaultSystemPrompt
	cfg.OpenAI = userCfg.OpenAI
	cfg.Anthropic = userCfg.Anthropic
	cfg.Ollama = userCfg.Ollama
	cfg.Security = userCfg.Security
	cfg.MCPServers = userCfg.MCPServers

	// Env overrides win over the user config file too.
	cfg.applyEnvOverrides()

	return cfg, nil
}

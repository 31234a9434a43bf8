package config

func DefaultSystemConfig() *SystemConfig {
	return &SystemConfig{
		DataDirectory: "~/.local/share/parley",
	}
}

func DefaultUserConfig() *UserConfig {
	return &UserConfig{
		DefaultProvider: "openai",
		OpenAI: OpenAIConfig{
			DefaultModel: "gpt-4o-mini",
		},
		Anthropic: AnthropicConfig{
			DefaultModel: "claude-sonnet-4-20250514",
		},
		Ollama: OllamaConfig{
			Host:         "http://localhost:11434",
			DefaultModel: "llama3.1:latest",
		},
		Security: SecurityConfig{
			Method: "plaintext",
		},
	}
}

func GenerateSystemConfigTemplate() string {
	return `# Parley System Configuration
# Location: ~/.config/parley/settings.toml
# This file uses TOML format: https://toml.io

# Directory where chats, credentials, and user config are stored
data_directory = "~/.local/share/parley"
`
}

func GenerateUserConfigTemplate() string {
	return `# Parley User Configuration
# Location: <data_directory>/config.toml
# This file uses TOML format: https://toml.io

# Provider used for new chats: openai, anthropic, or ollama
default_provider = "openai"

# Default system prompt for new chats (optional)
default_system_prompt = ""

[openai]
default_model = "gpt-4o-mini"

[anthropic]
default_model = "claude-sonnet-4-20250514"

[ollama]
host = "http://localhost:11434"
default_model = "llama3.1:latest"

[security]
# How API keys are stored: "plaintext" (credentials.toml, 0600) or
# "ssh_key" (credentials.enc, AES-GCM keyed off an SSH key signature)
method = "plaintext"
# ssh_key_path = "~/.ssh/id_ed25519"

# MCP servers providing tools. Stdio servers run a local command;
# remote servers connect over SSE or streamable HTTP.
#
# [[mcp_servers]]
# name = "filesystem"
# transport = "stdio"
# command = "npx"
# args = ["-y", "@modelcontextprotocol/server-filesystem", "/home"]
#
# [[mcp_servers]]
# name = "search"
# transport = "sse"
# url = "https://example.com/mcp/sse"
`
}

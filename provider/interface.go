// Package provider implements model.Provider for the supported LLM
// backends (OpenAI, Anthropic, Ollama).
//
// Each implementation converts parley's provider-agnostic message types
// to its wire format, opens a streaming request, and emits tagged
// model.StreamEvent values on a model.Stream. The Provider interface
// itself lives in the model package to avoid import cycles; this
// package implements it.
package provider

// ProviderType identifies the provider implementation.
type ProviderType string

const (
	ProviderTypeOpenAI    ProviderType = "openai"
	ProviderTypeAnthropic ProviderType = "anthropic"
	ProviderTypeOllama    ProviderType = "ollama"
)

// Config holds provider-specific configuration.
type Config struct {
	Type    ProviderType
	BaseURL string
	Model   string
	APIKey  string // unused for Ollama
}

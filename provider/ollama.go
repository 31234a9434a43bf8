package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/ollama/ollama/api"

	"parley/mcp"
	"parley/model"
)

// OllamaProvider implements model.Provider against a local or remote
// Ollama server.
type OllamaProvider struct {
	client  *api.Client
	model   string
	baseURL string
}

// NewOllamaProvider creates a new Ollama provider instance.
//
// Parameters:
//   - baseURL: The Ollama server URL (default: "http://localhost:11434")
//   - model: The model name to use (default: "llama3.1:latest")
func NewOllamaProvider(baseURL, model string) (*OllamaProvider, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "llama3.1:latest"
	}

	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Ollama URL: %w", err)
	}

	return &OllamaProvider{
		client:  api.NewClient(parsedURL, http.DefaultClient),
		model:   model,
		baseURL: baseURL,
	}, nil
}

// StreamChat implements model.Provider.StreamChat. Ollama streams whole
// message fragments; content and thinking fragments become delta events
// and tool calls are collected for the completion.
func (p *OllamaProvider) StreamChat(ctx context.Context, req model.ChatRequest) (*model.Stream, error) {
	chatReq := &api.ChatRequest{
		Model:    p.model,
		Messages: toOllamaMessages(req.Messages),
		Stream:   func(b bool) *bool { return &b }(true),
	}
	if len(req.Tools) > 0 {
		chatReq.Tools = mcp.ToOllamaTools(req.Tools)
	}

	streamCtx, cancel := context.WithCancel(ctx)
	s := model.NewStream(cancel)

	go func() {
		defer s.Finish()

		assistant := model.Message{Role: model.RoleAssistant}
		var usage *model.Usage

		err := p.client.Chat(streamCtx, chatReq, func(resp api.ChatResponse) error {
			if resp.Message.Content != "" {
				assistant.Content += resp.Message.Content
				s.Push(model.StreamEvent{Kind: model.EventContentDelta, Delta: resp.Message.Content})
			}
			if resp.Message.Thinking != "" {
				assistant.Reasoning += resp.Message.Thinking
				s.Push(model.StreamEvent{Kind: model.EventReasoningDelta, Delta: resp.Message.Thinking})
			}

			if len(resp.Message.ToolCalls) > 0 {
				calls := fromOllamaToolCalls(resp.Message.ToolCalls)
				assistant.ToolCalls = append(assistant.ToolCalls, calls...)
				s.Push(model.StreamEvent{Kind: model.EventToolCalls, ToolCalls: calls})
			}

			if resp.Done {
				usage = &model.Usage{
					PromptTokens:     resp.Metrics.PromptEvalCount,
					CompletionTokens: resp.Metrics.EvalCount,
				}
			}
			return nil
		})

		if err != nil {
			s.Push(model.StreamEvent{
				Kind: model.EventError,
				Err:  fmt.Errorf("Ollama streaming error: %w", err),
			})
			return
		}

		s.Push(model.StreamEvent{
			Kind:       model.EventCompletion,
			Completion: &model.Completion{Message: assistant, Usage: usage},
		})
	}()

	return s, nil
}

// toOllamaMessages converts the history to Ollama's message format.
// Ollama accepts tool-role messages directly; remote-approval echoes and
// responses serialize as structured text.
func toOllamaMessages(messages []model.Message) []api.Message {
	result := make([]api.Message, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case model.RoleApprovalRequest:
			result = append(result, api.Message{
				Role:    model.RoleAssistant,
				Content: marshalApproval(msg),
			})
		case model.RoleApprovalResponse:
			result = append(result, api.Message{
				Role:    model.RoleUser,
				Content: marshalApproval(msg),
			})
		default:
			result = append(result, api.Message{
				Role:      msg.Role,
				Content:   msg.Text(),
				ToolCalls: toOllamaToolCalls(msg.ToolCalls),
			})
		}
	}
	return result
}

// toOllamaToolCalls converts assistant tool calls back to Ollama's format so
// a reconstructed history carries the calls that produced each tool result.
func toOllamaToolCalls(calls []model.ToolCall) []api.ToolCall {
	if len(calls) == 0 {
		return nil
	}
	result := make([]api.ToolCall, len(calls))
	for i, call := range calls {
		result[i] = api.ToolCall{
			Function: api.ToolCallFunction{
				Name:      call.Name,
				Arguments: call.ParseArguments(),
			},
		}
	}
	return result
}

// fromOllamaToolCalls converts Ollama tool calls to the provider-agnostic
// form. Ollama delivers arguments pre-parsed and issues no call IDs, so
// arguments are re-serialized and IDs generated.
func fromOllamaToolCalls(calls []api.ToolCall) []model.ToolCall {
	if len(calls) == 0 {
		return nil
	}
	result := make([]model.ToolCall, len(calls))
	for i, call := range calls {
		result[i] = model.ToolCall{
			ID:        uuid.NewString(),
			Name:      call.Function.Name,
			Arguments: serializeArguments(call.Function.Arguments),
		}
	}
	return result
}

// ListModels implements model.Provider.ListModels.
func (p *OllamaProvider) ListModels(ctx context.Context) ([]model.ModelInfo, error) {
	resp, err := p.client.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}

	models := make([]model.ModelInfo, len(resp.Models))
	for i, m := range resp.Models {
		models[i] = model.ModelInfo{
			Name:     m.Name,
			Size:     m.Size,
			Provider: "ollama",
		}
	}
	return models, nil
}

// GetModel implements model.Provider.GetModel.
func (p *OllamaProvider) GetModel() string {
	return p.model
}

// SetModel implements model.Provider.SetModel.
func (p *OllamaProvider) SetModel(model string) {
	p.model = model
}

// Ping implements model.Provider.Ping with a short timeout.
func (p *OllamaProvider) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := p.client.List(ctx); err != nil {
		return fmt.Errorf("Ollama ping failed: %w", err)
	}
	return nil
}

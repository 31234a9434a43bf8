package provider

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"parley/mcp"
	"parley/model"
)

// AnthropicProvider implements model.Provider using Anthropic's official API.
type AnthropicProvider struct {
	client  *anthropic.Client
	model   anthropic.Model
	baseURL string
}

// NewAnthropicProvider creates a new Anthropic provider instance.
//
// Parameters:
//   - baseURL: Anthropic API base URL (default: "https://api.anthropic.com")
//   - apiKey: Anthropic API key (required)
//   - model: Initial model to use (default: claude-sonnet-4-5)
func NewAnthropicProvider(baseURL, apiKey, model string) (*AnthropicProvider, error) {
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}
	if apiKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required")
	}

	var anthropicModel anthropic.Model
	if model == "" {
		anthropicModel = anthropic.ModelClaudeSonnet4_5_20250929
	} else {
		anthropicModel = anthropic.Model(model)
	}

	client := anthropic.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
	)

	return &AnthropicProvider{
		client:  &client,
		model:   anthropicModel,
		baseURL: baseURL,
	}, nil
}

// StreamChat implements model.Provider.StreamChat. Text deltas stream as
// content events; thinking deltas stream as reasoning events; tool_use
// blocks are extracted from the accumulated message at completion.
func (p *AnthropicProvider) StreamChat(ctx context.Context, req model.ChatRequest) (*model.Stream, error) {
	messages, systemBlocks := toAnthropicMessages(req.Messages)

	params := anthropic.MessageNewParams{
		Model:     p.model,
		Messages:  messages,
		MaxTokens: 4096, // required by the API
	}
	if len(systemBlocks) > 0 {
		params.System = systemBlocks
	}
	if len(req.Tools) > 0 {
		params.Tools = mcp.ToAnthropicTools(req.Tools)
	}

	streamCtx, cancel := context.WithCancel(ctx)
	s := model.NewStream(cancel)

	go func() {
		defer s.Finish()

		stream := p.client.Messages.NewStreaming(streamCtx, params)
		msg := anthropic.Message{}

		for stream.Next() {
			event := stream.Current()
			if err := msg.Accumulate(event); err != nil {
				s.Push(model.StreamEvent{
					Kind: model.EventError,
					Err:  fmt.Errorf("error accumulating message: %w", err),
				})
				return
			}

			if deltaEvent, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent); ok {
				switch delta := deltaEvent.Delta.AsAny().(type) {
				case anthropic.TextDelta:
					s.Push(model.StreamEvent{Kind: model.EventContentDelta, Delta: delta.Text})
				case anthropic.ThinkingDelta:
					s.Push(model.StreamEvent{Kind: model.EventReasoningDelta, Delta: delta.Thinking})
				}
			}
		}

		if err := stream.Err(); err != nil {
			s.Push(model.StreamEvent{
				Kind: model.EventError,
				Err:  fmt.Errorf("Anthropic streaming error: %w", err),
			})
			return
		}

		s.Push(model.StreamEvent{
			Kind:       model.EventCompletion,
			Completion: completionFromAnthropicMessage(&msg),
		})
	}()

	return s, nil
}

func completionFromAnthropicMessage(msg *anthropic.Message) *model.Completion {
	assistant := model.Message{Role: model.RoleAssistant}

	for _, block := range msg.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			assistant.Content += variant.Text
		case anthropic.ThinkingBlock:
			assistant.Reasoning += variant.Thinking
		case anthropic.ToolUseBlock:
			assistant.ToolCalls = append(assistant.ToolCalls, model.ToolCall{
				ID:        variant.ID,
				Name:      variant.Name,
				Arguments: string(variant.Input),
			})
		}
	}

	var usage *model.Usage
	if msg.Usage.InputTokens > 0 || msg.Usage.OutputTokens > 0 {
		usage = &model.Usage{
			PromptTokens:     int(msg.Usage.InputTokens),
			CompletionTokens: int(msg.Usage.OutputTokens),
		}
	}

	return &model.Completion{Message: assistant, Usage: usage}
}

// toAnthropicMessages converts the history to Anthropic's format. System
// messages go to the separate system parameter; tool results become
// tool_result blocks in user messages; remote-approval echoes and
// responses serialize as structured text in the roles the API accepts.
func toAnthropicMessages(messages []model.Message) ([]anthropic.MessageParam, []anthropic.TextBlockParam) {
	var systemBlocks []anthropic.TextBlockParam
	result := make([]anthropic.MessageParam, 0, len(messages))

	for _, msg := range messages {
		switch msg.Role {
		case model.RoleSystem:
			systemBlocks = append(systemBlocks, anthropic.TextBlockParam{Text: msg.Content})

		case model.RoleUser:
			result = append(result, anthropic.NewUserMessage(toAnthropicBlocks(msg)...))

		case model.RoleAssistant:
			result = append(result, anthropic.NewAssistantMessage(toAnthropicAssistantBlocks(msg)...))

		case model.RoleTool:
			result = append(result, anthropic.NewUserMessage(
				anthropic.ContentBlockParamUnion{
					OfToolResult: &anthropic.ToolResultBlockParam{
						ToolUseID: msg.ToolCallID,
						Content: []anthropic.ToolResultBlockParamContentUnion{
							{OfText: &anthropic.TextBlockParam{Text: msg.Content}},
						},
					},
				},
			))

		case model.RoleApprovalRequest:
			result = append(result, anthropic.NewAssistantMessage(
				anthropic.NewTextBlock(marshalApproval(msg)),
			))

		case model.RoleApprovalResponse:
			result = append(result, anthropic.NewUserMessage(
				anthropic.NewTextBlock(marshalApproval(msg)),
			))

		default:
			result = append(result, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}

	return result, systemBlocks
}

func toAnthropicBlocks(msg model.Message) []anthropic.ContentBlockParamUnion {
	if len(msg.Parts) == 0 {
		return []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(msg.Content)}
	}

	blocks := make([]anthropic.ContentBlockParamUnion, 0, len(msg.Parts))
	for _, part := range msg.Parts {
		switch {
		case part.ImageURL != "":
			blocks = append(blocks, anthropic.ContentBlockParamUnion{
				OfImage: &anthropic.ImageBlockParam{
					Source: anthropic.ImageBlockParamSourceUnion{
						OfURL: &anthropic.URLImageSourceParam{URL: part.ImageURL},
					},
				},
			})
		default:
			blocks = append(blocks, anthropic.NewTextBlock(part.Text))
		}
	}
	return blocks
}

func toAnthropicAssistantBlocks(msg model.Message) []anthropic.ContentBlockParamUnion {
	var blocks []anthropic.ContentBlockParamUnion
	if msg.Content != "" {
		blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
	}
	for _, tc := range msg.ToolCalls {
		blocks = append(blocks, anthropic.ContentBlockParamUnion{
			OfToolUse: &anthropic.ToolUseBlockParam{
				ID:    tc.ID,
				Name:  tc.Name,
				Input: tc.ParseArguments(),
			},
		})
	}
	if len(blocks) == 0 {
		blocks = append(blocks, anthropic.NewTextBlock(""))
	}
	return blocks
}

// ListModels implements model.Provider.ListModels. Anthropic has no
// models list API, so a curated list is returned.
func (p *AnthropicProvider) ListModels(ctx context.Context) ([]model.ModelInfo, error) {
	models := []anthropic.Model{
		anthropic.ModelClaudeSonnet4_5_20250929,
		anthropic.ModelClaude3_5Haiku20241022,
		anthropic.ModelClaude_3_Opus_20240229,
		anthropic.ModelClaude_3_Haiku_20240307,
	}

	result := make([]model.ModelInfo, 0, len(models))
	for _, m := range models {
		result = append(result, model.ModelInfo{
			Name:     string(m),
			Size:     0,
			Provider: "anthropic",
		})
	}
	return result, nil
}

// GetModel implements model.Provider.GetModel.
func (p *AnthropicProvider) GetModel() string {
	return string(p.model)
}

// SetModel implements model.Provider.SetModel.
func (p *AnthropicProvider) SetModel(model string) {
	p.model = anthropic.Model(model)
}

// Ping implements model.Provider.Ping with a minimal request, since the
// API has no health endpoint.
func (p *AnthropicProvider) Ping(ctx context.Context) error {
	_, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     p.model,
		MaxTokens: 1,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock("ping")),
		},
	})
	if err != nil {
		return fmt.Errorf("Anthropic ping failed: %w", err)
	}
	return nil
}

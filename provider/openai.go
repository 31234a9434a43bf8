package provider

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"parley/mcp"
	"parley/model"
)

// OpenAIProvider implements model.Provider using OpenAI's official API.
type OpenAIProvider struct {
	client  openai.Client
	model   string
	baseURL string
}

// NewOpenAIProvider creates a new OpenAI provider instance.
//
// Parameters:
//   - baseURL: OpenAI API base URL (default: "https://api.openai.com/v1")
//   - apiKey: OpenAI API key (required)
//   - model: Initial model to use (default: "gpt-4o-mini")
func NewOpenAIProvider(baseURL, apiKey, model string) (*OpenAIProvider, error) {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	if model == "" {
		model = "gpt-4o-mini"
	}

	client := openai.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
	)

	return &OpenAIProvider{
		client:  client,
		model:   model,
		baseURL: baseURL,
	}, nil
}

// StreamChat implements model.Provider.StreamChat. The producer
// goroutine accumulates chunks, pushes deltas and finished tool calls as
// they arrive, and ends the stream with a completion or error event.
func (p *OpenAIProvider) StreamChat(ctx context.Context, req model.ChatRequest) (*model.Stream, error) {
	params := openai.ChatCompletionNewParams{
		Messages: toOpenAIMessages(req.Messages),
		Model:    openai.ChatModel(p.model),
	}
	if len(req.Tools) > 0 {
		params.Tools = mcp.ToOpenAITools(req.Tools)
	}

	streamCtx, cancel := context.WithCancel(ctx)
	s := model.NewStream(cancel)

	go func() {
		defer s.Finish()

		stream := p.client.Chat.Completions.NewStreaming(streamCtx, params)
		acc := openai.ChatCompletionAccumulator{}

		for stream.Next() {
			chunk := stream.Current()
			acc.AddChunk(chunk)

			// Progress event only; authoritative calls (with IDs) come
			// from the accumulated message at completion.
			if tool, ok := acc.JustFinishedToolCall(); ok {
				s.Push(model.StreamEvent{
					Kind: model.EventToolCalls,
					ToolCalls: []model.ToolCall{{
						Name:      tool.Name,
						Arguments: tool.Arguments,
					}},
				})
			}

			if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
				s.Push(model.StreamEvent{
					Kind:  model.EventContentDelta,
					Delta: chunk.Choices[0].Delta.Content,
				})
			}
		}

		if err := stream.Err(); err != nil {
			s.Push(model.StreamEvent{
				Kind: model.EventError,
				Err:  fmt.Errorf("OpenAI streaming error: %w", err),
			})
			return
		}

		s.Push(model.StreamEvent{
			Kind:       model.EventCompletion,
			Completion: completionFromAccumulator(&acc),
		})
	}()

	return s, nil
}

// completionFromAccumulator builds the terminal completion payload from
// the fully accumulated response.
func completionFromAccumulator(acc *openai.ChatCompletionAccumulator) *model.Completion {
	msg := model.Message{Role: model.RoleAssistant}

	if len(acc.Choices) > 0 {
		accumulated := acc.Choices[0].Message
		msg.Content = accumulated.Content
		for _, tc := range accumulated.ToolCalls {
			msg.ToolCalls = append(msg.ToolCalls, model.ToolCall{
				ID:        toolCallID(tc.ID),
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			})
		}
	}

	var usage *model.Usage
	if acc.Usage.TotalTokens > 0 {
		usage = &model.Usage{
			PromptTokens:     int(acc.Usage.PromptTokens),
			CompletionTokens: int(acc.Usage.CompletionTokens),
		}
	}

	return &model.Completion{Message: msg, Usage: usage}
}

// toolCallID returns the provider-issued ID, or generates one so tool
// results can always be keyed to their call.
func toolCallID(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}

// toOpenAIMessages converts the provider-agnostic history to OpenAI
// chat-completions params, preserving order. Remote-approval echoes and
// responses become structured text in the roles the API accepts.
func toOpenAIMessages(messages []model.Message) []openai.ChatCompletionMessageParamUnion {
	result := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))

	for _, msg := range messages {
		switch msg.Role {
		case model.RoleSystem:
			result = append(result, openai.SystemMessage(msg.Content))

		case model.RoleUser:
			if len(msg.Parts) > 0 {
				result = append(result, openai.UserMessage(toOpenAIContentParts(msg.Parts)))
			} else {
				result = append(result, openai.UserMessage(msg.Content))
			}

		case model.RoleAssistant:
			result = append(result, toOpenAIAssistantMessage(msg))

		case model.RoleTool:
			result = append(result, openai.ToolMessage(msg.Content, msg.ToolCallID))

		case model.RoleApprovalRequest:
			result = append(result, toOpenAIAssistantMessage(model.Message{
				Role:    model.RoleAssistant,
				Content: marshalApproval(msg),
			}))

		case model.RoleApprovalResponse:
			result = append(result, openai.UserMessage(marshalApproval(msg)))

		default:
			result = append(result, openai.UserMessage(msg.Content))
		}
	}

	return result
}

func toOpenAIAssistantMessage(msg model.Message) openai.ChatCompletionMessageParamUnion {
	if len(msg.ToolCalls) == 0 {
		return openai.AssistantMessage(msg.Content)
	}

	toolCalls := make([]openai.ChatCompletionMessageToolCallUnionParam, len(msg.ToolCalls))
	for i, tc := range msg.ToolCalls {
		toolCalls[i] = openai.ChatCompletionMessageToolCallUnionParam{
			OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
				ID: tc.ID,
				Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			},
		}
	}

	assistant := openai.ChatCompletionAssistantMessageParam{ToolCalls: toolCalls}
	if msg.Content != "" {
		assistant.Content.OfString = openai.String(msg.Content)
	}

	return openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant}
}

func toOpenAIContentParts(parts []model.ContentPart) []openai.ChatCompletionContentPartUnionParam {
	result := make([]openai.ChatCompletionContentPartUnionParam, 0, len(parts))
	for _, part := range parts {
		switch {
		case part.ImageURL != "":
			result = append(result, openai.ImageContentPart(
				openai.ChatCompletionContentPartImageImageURLParam{URL: part.ImageURL},
			))
		default:
			result = append(result, openai.TextContentPart(part.Text))
		}
	}
	return result
}

// ListModels implements model.Provider.ListModels.
func (p *OpenAIProvider) ListModels(ctx context.Context) ([]model.ModelInfo, error) {
	modelsPage, err := p.client.Models.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list OpenAI models: %w", err)
	}

	result := make([]model.ModelInfo, 0, len(modelsPage.Data))
	for _, m := range modelsPage.Data {
		result = append(result, model.ModelInfo{
			Name:     m.ID,
			Size:     0, // not reported by the API
			Provider: "openai",
		})
	}
	return result, nil
}

// GetModel implements model.Provider.GetModel.
func (p *OpenAIProvider) GetModel() string {
	return p.model
}

// SetModel implements model.Provider.SetModel.
func (p *OpenAIProvider) SetModel(model string) {
	p.model = model
}

// Ping implements model.Provider.Ping by attempting to list models.
func (p *OpenAIProvider) Ping(ctx context.Context) error {
	if _, err := p.client.Models.List(ctx); err != nil {
		return fmt.Errorf("OpenAI ping failed: %w", err)
	}
	return nil
}

// Package testutil provides scripted provider fakes for orchestrator and UI
// tests.
package testutil

import (
	"context"
	"fmt"

	"parley/model"
)

// ScriptedProvider implements model.Provider by replaying a prepared event
// script per StreamChat call. Each call consumes the next script; requests
// are recorded for assertions.
type ScriptedProvider struct {
	Scripts  [][]model.StreamEvent
	Requests []model.ChatRequest

	// StreamErr, when set, makes StreamChat fail immediately.
	StreamErr error

	currentModel string
}

// NewScriptedProvider creates a provider that replays the given scripts in
// order.
func NewScriptedProvider(scripts ...[]model.StreamEvent) *ScriptedProvider {
	return &ScriptedProvider{
		Scripts:      scripts,
		currentModel: "scripted-model",
	}
}

// StreamChat implements model.Provider.StreamChat.
func (p *ScriptedProvider) StreamChat(ctx context.Context, req model.ChatRequest) (*model.Stream, error) {
	p.Requests = append(p.Requests, req)

	if p.StreamErr != nil {
		return nil, p.StreamErr
	}
	if len(p.Scripts) == 0 {
		return nil, fmt.Errorf("scripted provider exhausted after %d requests", len(p.Requests))
	}

	script := p.Scripts[0]
	p.Scripts = p.Scripts[1:]

	stream := model.NewStream(nil)
	go func() {
		defer stream.Finish()
		for _, ev := range script {
			select {
			case <-ctx.Done():
				stream.Push(model.StreamEvent{Kind: model.EventError, Err: ctx.Err()})
				return
			default:
			}
			stream.Push(ev)
		}
	}()

	return stream, nil
}

// ListModels implements model.Provider.ListModels.
func (p *ScriptedProvider) ListModels(ctx context.Context) ([]model.ModelInfo, error) {
	return []model.ModelInfo{
		{Name: "scripted-model", Provider: "scripted"},
	}, nil
}

// GetModel implements model.Provider.GetModel.
func (p *ScriptedProvider) GetModel() string {
	return p.currentModel
}

// SetModel implements model.Provider.SetModel.
func (p *ScriptedProvider) SetModel(m string) {
	p.currentModel = m
}

// Ping implements model.Provider.Ping.
func (p *ScriptedProvider) Ping(ctx context.Context) error {
	return nil
}

// ContentEvents splits text into per-rune content deltas, approximating a
// real stream.
func ContentEvents(text string) []model.StreamEvent {
	events := make([]model.StreamEvent, 0, len(text))
	for _, r := range text {
		events = append(events, model.StreamEvent{Kind: model.EventContentDelta, Delta: string(r)})
	}
	return events
}

// CompletionEvent builds the terminal event for an assistant message.
func CompletionEvent(msg model.Message) model.StreamEvent {
	return model.StreamEvent{Kind: model.EventCompletion, Completion: &model.Completion{Message: msg}}
}

// TextScript is a full script for a plain text answer.
func TextScript(text string) []model.StreamEvent {
	events := ContentEvents(text)
	return append(events, CompletionEvent(model.Message{Role: model.RoleAssistant, Content: text}))
}

// ToolCallScript is a full script for a turn that emits tool calls with
// optional leading text.
func ToolCallScript(text string, calls ...model.ToolCall) []model.StreamEvent {
	events := ContentEvents(text)
	events = append(events, model.StreamEvent{Kind: model.EventToolCalls, ToolCalls: calls})
	return append(events, CompletionEvent(model.Message{
		Role:      model.RoleAssistant,
		Content:   text,
		ToolCalls: calls,
	}))
}

// EmptyScript is a completion with neither content nor tool calls.
func EmptyScript() []model.StreamEvent {
	return []model.StreamEvent{CompletionEvent(model.Message{Role: model.RoleAssistant})}
}

// ErrorScript is a stream that fails mid-flight.
func ErrorScript(err error) []model.StreamEvent {
	return []model.StreamEvent{{Kind: model.EventError, Err: err}}
}

package ui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"parley/approval"
	"parley/config"
	"parley/model"
	"parley/turn"
)

const turnTimeout = 300 * time.Second

// collectorSink gathers stream progress for typewriter replay. The
// orchestrator invokes it sequentially from the turn goroutine, so no
// locking is needed.
type collectorSink struct {
	chunks    []string
	reasoning []string
	tools     []toolActivity
}

func (c *collectorSink) Content(delta string) {
	c.chunks = append(c.chunks, delta)
}

func (c *collectorSink) Reasoning(delta string) {
	c.reasoning = append(c.reasoning, delta)
}

func (c *collectorSink) ToolStarted(call model.ToolCall) {}

func (c *collectorSink) ToolFinished(call model.ToolCall, result model.Message) {
	c.tools = append(c.tools, toolActivity{Call: call, Result: result})
}

func (c *collectorSink) reasoningText() string {
	var s string
	for _, r := range c.reasoning {
		s += r
	}
	return s
}

// runTurnCmd streams one model turn for the given history.
func (a *AppView) runTurnCmd(history []model.Message, tools []mcptypes.Tool) tea.Cmd {
	orch := a.orchestrator
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), turnTimeout)
		defer cancel()

		sink := &collectorSink{}
		orch.SetSink(sink)

		if config.DebugLog != nil {
			config.DebugLog.Printf("[UI] starting turn with %d messages, %d tools", len(history), len(tools))
		}

		res := orch.RunTurn(ctx, history, tools)
		return turnResultMsg{
			Result:    res,
			Chunks:    sink.chunks,
			Reasoning: sink.reasoningText(),
			Tools:     sink.tools,
		}
	}
}

// resumeTurnCmd resumes a paused turn after the user decided.
func (a *AppView) resumeTurnCmd(paused *turn.PausedState, d approval.Decision) tea.Cmd {
	orch := a.orchestrator
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), turnTimeout)
		defer cancel()

		sink := &collectorSink{}
		orch.SetSink(sink)

		res := orch.Resume(ctx, paused, d)
		return turnResultMsg{
			Result:    res,
			Chunks:    sink.chunks,
			Reasoning: sink.reasoningText(),
			Tools:     sink.tools,
		}
	}
}

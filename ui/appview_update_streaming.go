package ui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"parley/config"
	"parley/model"
	"parley/turn"
)

// Typewriter pacing. The first chunk fires almost immediately so the
// loading notice is replaced without a visible stall.
const (
	typewriterTick  = 30 * time.Millisecond
	typewriterDelay = 300 * time.Millisecond
)

func (a AppView) handleTurnResult(msg turnResultMsg) (tea.Model, tea.Cmd) {
	if !a.dataModel.Streaming {
		// The user cancelled while the command goroutine was finishing;
		// drop the result, cancelStreaming already cleaned the transcript.
		return a, nil
	}

	if config.DebugLog != nil {
		config.DebugLog.Printf("[UI] turn finished: status=%s chunks=%d tools=%d",
			msg.Result.Status, len(msg.Chunks), len(msg.Tools))
	}

	// Remove the "Waiting for response..." notice.
	if n := len(a.dataModel.Messages); n > 0 && a.dataModel.Messages[n-1].Role == "system" {
		a.dataModel.Messages = a.dataModel.Messages[:n-1]
	}
	a.executingTool = ""

	if len(msg.Chunks) == 0 {
		return a.applyTurnResult(msg)
	}

	// Replay the collected chunks through the typewriter before acting
	// on the result so the response appears to stream in.
	a.chunks = msg.Chunks
	a.chunkIndex = 0
	a.currentResp.Reset()
	a.pendingResult = &msg

	a.dataModel.Messages = append(a.dataModel.Messages, Message{
		Role:      "assistant",
		Streaming: true,
		Timestamp: time.Now(),
	})
	a.updateViewportContent(true)

	return a, tea.Tick(typewriterDelay, func(time.Time) tea.Msg {
		return displayChunkTickMsg{}
	})
}

func (a AppView) handleChunkTick() (tea.Model, tea.Cmd) {
	if a.pendingResult == nil {
		return a, nil
	}

	if !a.dataModel.Streaming {
		// Cancelled mid-replay.
		a.chunks = nil
		a.chunkIndex = 0
		a.pendingResult = nil
		return a, nil
	}

	if a.chunkIndex < len(a.chunks) {
		a.currentResp.WriteString(a.chunks[a.chunkIndex])
		a.chunkIndex++
		a.updateStreamingMessage(a.currentResp.String())
		a.updateViewportContent(true)

		delay := typewriterTick
		if a.chunkIndex == 1 {
			delay = time.Millisecond
		}
		return a, tea.Tick(delay, func(time.Time) tea.Msg {
			return displayChunkTickMsg{}
		})
	}

	// Replay complete; drop the placeholder streaming message and let
	// applyTurnResult append the real transcript entries.
	result := *a.pendingResult
	a.pendingResult = nil
	a.chunks = nil
	a.chunkIndex = 0
	a.currentResp.Reset()

	if n := len(a.dataModel.Messages); n > 0 && a.dataModel.Messages[n-1].Streaming {
		a.dataModel.Messages = a.dataModel.Messages[:n-1]
	}

	return a.applyTurnResult(result)
}

// applyTurnResult moves the transcript and state machine forward once a
// turn's output has been fully displayed.
func (a AppView) applyTurnResult(msg turnResultMsg) (tea.Model, tea.Cmd) {
	res := msg.Result

	switch res.Status {
	case turn.StatusCompletedNoTools:
		a.dataModel.Streaming = false
		a.toolTurns = 0

		assistant := res.Assistant
		assistant.Reasoning = msg.Reasoning
		assistant.Rendered = assistant.Text()
		assistant.Timestamp = time.Now()
		a.dataModel.AppendMessages(assistant)
		idx := len(a.dataModel.Messages) - 1
		a.updateViewportContent(true)

		return a, tea.Batch(
			a.renderMarkdownAsync(idx, assistant.Text()),
			a.dataModel.AutoSaveChat(),
		)

	case turn.StatusCompletedWithTools:
		a.appendToolRound(res.Assistant, res.Results, msg.Reasoning)

		a.toolTurns++
		if a.toolTurns >= maxToolTurns {
			a.dataModel.Streaming = false
			a.appendSystemNotice(fmt.Sprintf("Stopped after %d consecutive tool rounds.", a.toolTurns))
			a.toolTurns = 0
			a.updateViewportContent(true)
			return a, a.dataModel.AutoSaveChat()
		}

		// Feed the results back for the follow-up turn.
		a.appendSystemNotice("Waiting for response...")
		a.updateViewportContent(true)
		return a, tea.Batch(
			a.runTurnCmd(res.NextHistory, a.dataModel.AvailableTools()),
			a.loadingSpinner.Tick,
		)

	case turn.StatusPaused:
		a.pausedTurn = res.Paused
		a.updateViewportContent(true)
		return a, nil

	case turn.StatusCancelled:
		a.dataModel.Streaming = false
		a.toolTurns = 0
		a.appendSystemNotice("Request cancelled")
		a.updateViewportContent(true)
		return a, nil

	default: // turn.StatusError
		a.dataModel.Streaming = false
		a.toolTurns = 0
		a.dataModel.AppendMessages(assistantErrorMessage(res.Err))
		a.updateViewportContent(true)
		return a, nil
	}
}

// assistantErrorMessage renders a failed turn as an assistant-role message
// so the error sits inline in the conversation rather than as a notice.
func assistantErrorMessage(err error) model.Message {
	text := fmt.Sprintf("Error: %v", err)
	return model.Message{
		Role:      model.RoleAssistant,
		Content:   text,
		Rendered:  text,
		Timestamp: time.Now(),
	}
}

// appendToolRound records one assistant-plus-tool-results exchange in
// the transcript so it survives into the next API history build.
func (a AppView) appendToolRound(assistant model.Message, results []model.Message, reasoning string) {
	assistant.Reasoning = reasoning
	assistant.Rendered = assistant.Text()
	assistant.Timestamp = time.Now()
	a.dataModel.AppendMessages(assistant)

	for _, r := range results {
		r.Timestamp = time.Now()
		a.dataModel.AppendMessages(r)
	}
}

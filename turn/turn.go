// Package turn implements the chat-turn orchestrator: the state machine that
// streams one model response, classifies the tool calls it produced, gates
// local execution behind the approval policy, and reconstructs the message
// history for the next turn.
//
// One Orchestrator serves one conversation view. A single turn is in flight
// at a time; all progress is driven by the caller's event loop. Pausing for
// a user decision snapshots the turn into a PausedState which Resume picks
// up after the decision.
package turn

import (
	"context"
	"errors"

	"parley/model"
)

// Status is the terminal disposition of one turn.
type Status int

const (
	// StatusCompletedNoTools means the model answered with content only.
	// The turn loop terminates.
	StatusCompletedNoTools Status = iota
	// StatusCompletedWithTools means every tool call was resolved without
	// pausing; the caller issues the next turn with Result.NextHistory.
	StatusCompletedWithTools
	// StatusPaused means a tool call or remote approval request awaits a
	// user decision; Result.Paused holds the snapshot.
	StatusPaused
	// StatusCancelled means the cooperative cancellation flag stopped the
	// turn. Not an error; no error message is displayed.
	StatusCancelled
	// StatusError means the stream failed or empty completions exceeded the
	// retry cap. Result.Err holds the cause.
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusCompletedNoTools:
		return "completed_no_tools"
	case StatusCompletedWithTools:
		return "completed_with_tools"
	case StatusPaused:
		return "paused"
	case StatusCancelled:
		return "cancelled"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// EmptyRetryLimit is the number of consecutive empty completions (no text,
// no tool calls) tolerated before the turn fails, counting the first empty
// attempt: at most 3 provider calls total before ErrEmptyCompletion. The
// counter resets on any productive turn.
const EmptyRetryLimit = 3

var (
	// ErrEmptyCompletion is returned after EmptyRetryLimit consecutive
	// empty completions.
	ErrEmptyCompletion = errors.New("model returned no content or tool calls")

	// ErrNoCompletion is returned when a stream ends without a terminal
	// completion event.
	ErrNoCompletion = errors.New("stream ended without a completion")
)

// ToolExecutor runs locally resolved tool calls. The orchestrator never
// executes anything itself; it only decides when execution is allowed.
type ToolExecutor interface {
	// Resolves reports whether the tool name can be executed locally.
	Resolves(name string) bool

	// Execute runs the call and returns its serialized result.
	Execute(ctx context.Context, call model.ToolCall) (string, error)
}

// Sink receives incremental progress while a turn runs. All methods are
// invoked sequentially from the turn goroutine; a nil sink is allowed.
type Sink interface {
	Content(delta string)
	Reasoning(delta string)
	ToolStarted(call model.ToolCall)
	ToolFinished(call model.ToolCall, result model.Message)
}

// PausedState is the snapshot taken when a turn halts for a user decision.
// It exists only while the prompt is on screen and is discarded on resume or
// cancellation.
//
// When Approvals is non-empty the pause came from the remote approval
// protocol and its head awaits the decision; Pending then holds any local
// tool calls from the same completion, processed after the approvals settle.
// Otherwise the head of Pending awaits the decision.
type PausedState struct {
	Prior     []model.Message // history before the assistant turn
	Assistant model.Message   // the paused assistant message, tool_calls intact
	Results   []model.Message // responses accumulated so far, resolution order
	Pending   []model.ToolCall
	Approvals []model.ApprovalRequest
	// Resolved carries server-side outputs for calls in Pending, keyed by
	// call ID, so resuming never re-executes them.
	Resolved map[string]string
}

// Remote reports whether the pause came from the remote approval protocol.
func (p *PausedState) Remote() bool {
	return len(p.Approvals) > 0
}

// Head returns the tool name awaiting the decision.
func (p *PausedState) Head() string {
	if p.Remote() {
		return p.Approvals[0].ToolName
	}
	if len(p.Pending) > 0 {
		return p.Pending[0].Name
	}
	return ""
}

// Result is the outcome of RunTurn or Resume.
type Result struct {
	Status    Status
	Assistant model.Message
	Results   []model.Message
	Paused    *PausedState
	// NextHistory is the reconstructed API-facing message list for the next
	// turn: prior history + assistant message + responses in resolution
	// order. Set only when Status is StatusCompletedWithTools.
	NextHistory []model.Message
	Err         error
}

package turn

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"parley/approval"
	"parley/model"
)

// Orchestrator coordinates one conversation's turns against a provider, a
// tool executor, and the approval policy store.
type Orchestrator struct {
	provider model.Provider
	tools    ToolExecutor
	policy   approval.Store
	sink     Sink

	cancelled    atomic.Bool
	emptyRetries int
}

// New creates an orchestrator. tools may be nil when no tool servers are
// configured; policy must not be nil.
func New(provider model.Provider, tools ToolExecutor, policy approval.Store) *Orchestrator {
	return &Orchestrator{
		provider: provider,
		tools:    tools,
		policy:   policy,
	}
}

// SetSink installs the progress sink. Pass nil to silence progress.
func (o *Orchestrator) SetSink(s Sink) {
	o.sink = s
}

// SetProvider swaps the active provider. Must not be called while a turn
// is in flight.
func (o *Orchestrator) SetProvider(p model.Provider) {
	o.provider = p
}

// Cancel requests cooperative cancellation. It does not interrupt an
// in-flight network read; the flag is polled before and after each tool
// execution and before each new turn.
func (o *Orchestrator) Cancel() {
	o.cancelled.Store(true)
}

// ResetCancel clears the cancellation flag. Called before a new user turn.
func (o *Orchestrator) ResetCancel() {
	o.cancelled.Store(false)
}

// CancelRequested reports the cancellation flag.
func (o *Orchestrator) CancelRequested() bool {
	return o.cancelled.Load()
}

// RunTurn streams one model response for the given history and resolves its
// tool calls. It blocks until the turn reaches a terminal status and must be
// called from a single goroutine per conversation.
func (o *Orchestrator) RunTurn(ctx context.Context, history []model.Message, tools []mcptypes.Tool) Result {
	if o.CancelRequested() {
		return Result{Status: StatusCancelled}
	}

	for {
		stream, err := o.provider.StreamChat(ctx, model.ChatRequest{
			Messages: history,
			Tools:    tools,
		})
		if err != nil {
			return o.streamFailure(ctx, err)
		}

		completion, err := o.drain(stream)
		if err != nil {
			return o.streamFailure(ctx, err)
		}

		assistant := completion.Message
		assistant.Role = model.RoleAssistant
		if assistant.Timestamp.IsZero() {
			assistant.Timestamp = time.Now()
		}

		productive := strings.TrimSpace(assistant.Text()) != "" ||
			len(assistant.ToolCalls) > 0 ||
			len(completion.ApprovalRequests) > 0

		if !productive {
			o.emptyRetries++
			if o.emptyRetries >= EmptyRetryLimit {
				o.emptyRetries = 0
				return Result{Status: StatusError, Err: ErrEmptyCompletion}
			}
			continue
		}
		o.emptyRetries = 0

		if len(completion.ApprovalRequests) > 0 {
			return o.processApprovals(ctx, history, assistant, nil, completion.ApprovalRequests, assistant.ToolCalls, completion.ResolvedOutputs)
		}

		if len(assistant.ToolCalls) == 0 {
			return Result{Status: StatusCompletedNoTools, Assistant: assistant}
		}

		return o.processCalls(ctx, history, assistant, completion.ResolvedOutputs, assistant.ToolCalls, nil)
	}
}

// Resume continues a paused turn after the user's decision on the head
// pending item. Remaining items are processed in original order; a second
// pause re-enters the same state shape.
func (o *Orchestrator) Resume(ctx context.Context, paused *PausedState, d approval.Decision) Result {
	if paused.Remote() {
		return o.resumeRemote(ctx, paused, d)
	}

	call := paused.Pending[0]
	if err := o.policy.Apply(call.Name, d); err != nil {
		return Result{Status: StatusError, Err: fmt.Errorf("failed to record approval decision: %w", err)}
	}

	results := paused.Results
	if !d.Approved() {
		denied := model.NewDeniedToolResult(call)
		results = append(results, denied)
		o.toolFinished(call, denied)
	} else {
		res, stopped := o.executeOne(ctx, call)
		if stopped {
			return Result{Status: StatusCancelled}
		}
		results = append(results, res)
	}

	return o.processCalls(ctx, paused.Prior, paused.Assistant, paused.Resolved, paused.Pending[1:], results)
}

// processCalls walks pending tool calls in order, skipping server-resolved
// ones, erroring unresolvable ones, executing auto-approved ones, and
// pausing on the first call that requires a prompt.
func (o *Orchestrator) processCalls(ctx context.Context, prior []model.Message, assistant model.Message, resolved map[string]string, pending []model.ToolCall, results []model.Message) Result {
	for i, call := range pending {
		if out, ok := resolved[call.ID]; ok {
			res := model.NewToolResult(call, out)
			results = append(results, res)
			o.toolFinished(call, res)
			continue
		}

		if o.tools == nil || !o.tools.Resolves(call.Name) {
			res := model.NewToolError(call, fmt.Errorf("tool %q is not available", call.Name))
			results = append(results, res)
			o.toolFinished(call, res)
			continue
		}

		policy, err := o.policy.PolicyFor(call.Name)
		if err != nil {
			// A broken policy store must never auto-execute; fall back to
			// prompting.
			policy = approval.PolicyPrompt
		}

		if !policy.AutoApproves() {
			return Result{
				Status:    StatusPaused,
				Assistant: assistant,
				Results:   results,
				Paused: &PausedState{
					Prior:     prior,
					Assistant: assistant,
					Results:   results,
					Pending:   pending[i:],
					Resolved:  resolved,
				},
			}
		}

		res, stopped := o.executeOne(ctx, call)
		if stopped {
			return Result{Status: StatusCancelled}
		}
		results = append(results, res)
	}

	return o.completedWithTools(prior, assistant, results)
}

// processApprovals handles the remote approval protocol: each server-issued
// approval request is either auto-approved per policy or pauses the turn.
// Decided requests become an echo/response message pair in request order.
// A completion may carry local tool calls alongside approval requests; those
// are processed once every approval is decided.
func (o *Orchestrator) processApprovals(ctx context.Context, prior []model.Message, assistant model.Message, results []model.Message, requests []model.ApprovalRequest, pending []model.ToolCall, resolved map[string]string) Result {
	for i, req := range requests {
		policy, err := o.policy.PolicyFor(req.ToolName)
		if err != nil {
			policy = approval.PolicyPrompt
		}

		if !policy.AutoApproves() {
			return Result{
				Status:    StatusPaused,
				Assistant: assistant,
				Results:   results,
				Paused: &PausedState{
					Prior:     prior,
					Assistant: assistant,
					Results:   results,
					Approvals: requests[i:],
					Pending:   pending,
					Resolved:  resolved,
				},
			}
		}

		results = append(results, approvalPair(req, true)...)
	}

	if len(pending) > 0 {
		return o.processCalls(ctx, prior, assistant, resolved, pending, results)
	}
	return o.completedWithTools(prior, assistant, results)
}

// resumeRemote applies the user's decision to the head approval request and
// continues with the remaining ones.
func (o *Orchestrator) resumeRemote(ctx context.Context, paused *PausedState, d approval.Decision) Result {
	req := paused.Approvals[0]
	if err := o.policy.Apply(req.ToolName, d); err != nil {
		return Result{Status: StatusError, Err: fmt.Errorf("failed to record approval decision: %w", err)}
	}

	results := append(paused.Results, approvalPair(req, d.Approved())...)
	return o.processApprovals(ctx, paused.Prior, paused.Assistant, results, paused.Approvals[1:], paused.Pending, paused.Resolved)
}

// approvalPair builds the order-sensitive resumption payload for one remote
// approval: the original request echoed back, immediately followed by the
// decision. The upstream API requires the echo to precede the response and
// rejects responses for requests it has not seen re-serialized.
func approvalPair(req model.ApprovalRequest, approved bool) []model.Message {
	now := time.Now()
	return []model.Message{
		{
			Role: model.RoleApprovalRequest,
			Approval: &model.Approval{
				RequestID:   req.ID,
				ToolName:    req.ToolName,
				Arguments:   req.Arguments,
				ServerLabel: req.ServerLabel,
			},
			Timestamp: now,
		},
		{
			Role: model.RoleApprovalResponse,
			Approval: &model.Approval{
				RequestID: req.ID,
				Approved:  &approved,
			},
			Timestamp: now,
		},
	}
}

// executeOne runs a single tool call with the cancellation flag polled
// immediately before and after execution. stopped is true when the flag was
// set; the result is discarded then and no further state transitions happen.
func (o *Orchestrator) executeOne(ctx context.Context, call model.ToolCall) (res model.Message, stopped bool) {
	if o.CancelRequested() {
		return model.Message{}, true
	}

	if o.sink != nil {
		o.sink.ToolStarted(call)
	}

	out, err := o.tools.Execute(ctx, call)
	if err != nil {
		res = model.NewToolError(call, err)
	} else {
		res = model.NewToolResult(call, out)
	}

	if o.CancelRequested() {
		return model.Message{}, true
	}

	o.toolFinished(call, res)
	return res, false
}

func (o *Orchestrator) toolFinished(call model.ToolCall, res model.Message) {
	if o.sink != nil {
		o.sink.ToolFinished(call, res)
	}
}

// completedWithTools reconstructs the API-facing message list for the next
// turn: prior history + the assistant message with its original tool_calls +
// all responses in the order they were resolved.
func (o *Orchestrator) completedWithTools(prior []model.Message, assistant model.Message, results []model.Message) Result {
	next := make([]model.Message, 0, len(prior)+1+len(results))
	next = append(next, prior...)
	next = append(next, assistant)
	next = append(next, results...)

	return Result{
		Status:      StatusCompletedWithTools,
		Assistant:   assistant,
		Results:     results,
		NextHistory: next,
	}
}

// drain consumes a provider stream until its terminal event, forwarding
// deltas to the sink. The stream is always closed before returning so
// repeated turns never stack producer goroutines.
func (o *Orchestrator) drain(stream *model.Stream) (*model.Completion, error) {
	defer stream.Close()

	var content strings.Builder
	var reasoning strings.Builder
	var calls []model.ToolCall

	for ev := range stream.Events() {
		switch ev.Kind {
		case model.EventContentDelta:
			content.WriteString(ev.Delta)
			if o.sink != nil {
				o.sink.Content(ev.Delta)
			}
		case model.EventReasoningDelta:
			reasoning.WriteString(ev.Delta)
			if o.sink != nil {
				o.sink.Reasoning(ev.Delta)
			}
		case model.EventToolCalls:
			calls = append(calls, ev.ToolCalls...)
		case model.EventError:
			return nil, ev.Err
		case model.EventCompletion:
			c := *ev.Completion
			// Backfill from the accumulated deltas when the provider's
			// final message omits them.
			if c.Message.Content == "" && len(c.Message.Parts) == 0 {
				c.Message.Content = content.String()
			}
			if c.Message.Reasoning == "" {
				c.Message.Reasoning = reasoning.String()
			}
			if len(c.Message.ToolCalls) == 0 {
				c.Message.ToolCalls = calls
			}
			return &c, nil
		}
	}

	return nil, ErrNoCompletion
}

// streamFailure classifies a stream error: cancellation is distinguished
// from real errors and suppresses error display.
func (o *Orchestrator) streamFailure(ctx context.Context, err error) Result {
	if o.CancelRequested() || ctx.Err() != nil {
		return Result{Status: StatusCancelled}
	}
	return Result{Status: StatusError, Err: err}
}

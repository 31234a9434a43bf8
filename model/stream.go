package model

import "sync"

// StreamEventKind tags the variants of StreamEvent.
type StreamEventKind int

const (
	// EventContentDelta carries an incremental piece of assistant text.
	EventContentDelta StreamEventKind = iota
	// EventReasoningDelta carries an incremental piece of model reasoning.
	EventReasoningDelta
	// EventToolCalls carries tool calls as they finish streaming.
	EventToolCalls
	// EventCompletion is the terminal success event.
	EventCompletion
	// EventError is the terminal failure event.
	EventError
)

// StreamEvent is the tagged union emitted by a provider stream. Exactly the
// fields for its Kind are set.
type StreamEvent struct {
	Kind       StreamEventKind
	Delta      string
	ToolCalls  []ToolCall
	Completion *Completion
	Err        error
}

// Completion is the payload of the terminal EventCompletion event.
type Completion struct {
	// Message is the fully accumulated assistant message, including any
	// tool calls it emitted.
	Message Message
	Usage   *Usage
	// ResolvedOutputs holds outputs for tool calls the server already
	// executed, keyed by call ID. Calls present here are never executed
	// locally.
	ResolvedOutputs map[string]string
	// ApprovalRequests are server-issued approval requests for remote tools.
	ApprovalRequests []ApprovalRequest
}

// Stream is the subscription object for one streaming chat request. The
// provider goroutine pushes events and finishes; the consumer drains
// Events() and must call Close() when done (on completion, error, or
// cancellation) so repeated turns never leak a producer goroutine.
type Stream struct {
	events chan StreamEvent
	cancel func()
	once   sync.Once
}

// NewStream creates a stream whose Close cancels the producing request.
func NewStream(cancel func()) *Stream {
	return &Stream{
		events: make(chan StreamEvent, 16),
		cancel: cancel,
	}
}

// Events returns the event channel. It is closed after the terminal event.
func (s *Stream) Events() <-chan StreamEvent {
	return s.events
}

// Push delivers an event to the consumer. Provider use only.
func (s *Stream) Push(ev StreamEvent) {
	s.events <- ev
}

// Finish closes the event channel. Provider use only, after the terminal
// event has been pushed.
func (s *Stream) Finish() {
	close(s.events)
}

// Close releases the stream. Safe to call more than once.
func (s *Stream) Close() {
	s.once.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
	})
}

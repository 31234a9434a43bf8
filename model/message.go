package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Message roles as sent to providers.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
	RoleSystem    = "system"

	// Remote-approval protocol roles. These never come from the user; they are
	// synthesized when resuming a turn that paused on a server-issued approval
	// request. Providers translate them to their wire format.
	RoleApprovalRequest  = "approval_request"
	RoleApprovalResponse = "approval_response"
)

// ContentPart is one element of a multipart message body. Exactly one of
// Text or ImageURL is set.
type ContentPart struct {
	Text     string `json:"text,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

// Usage carries token accounting reported by the provider on completion.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// ToolCall is a model-requested invocation of a named function. Immutable
// once emitted by the model; Arguments stays in its serialized form until
// execution time.
type ToolCall struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Arguments   string `json:"arguments"`
	ServerLabel string `json:"server_label,omitempty"` // set for remote MCP tools
}

// ParseArguments decodes the serialized arguments into a map. Malformed
// arguments yield an empty map so a bad model emission never crashes the
// tool layer.
func (tc ToolCall) ParseArguments() map[string]any {
	var args map[string]any
	if err := json.Unmarshal([]byte(tc.Arguments), &args); err != nil {
		return map[string]any{}
	}
	return args
}

// ApprovalRequest is a server-issued request to approve a remote tool
// invocation before the server runs it.
type ApprovalRequest struct {
	ID          string `json:"id"`
	ToolName    string `json:"tool_name"`
	Arguments   string `json:"arguments"`
	ServerLabel string `json:"server_label"`
}

// Approval carries the remote-approval echo/response payload on a Message.
// An echo message (RoleApprovalRequest) has Approved == nil; a response
// message (RoleApprovalResponse) references the request by ID and sets it.
type Approval struct {
	RequestID   string `json:"request_id"`
	ToolName    string `json:"tool_name,omitempty"`
	Arguments   string `json:"arguments,omitempty"`
	ServerLabel string `json:"server_label,omitempty"`
	Approved    *bool  `json:"approved,omitempty"`
}

// Message represents a chat message in the conversation.
type Message struct {
	Role    string
	Content string
	// Parts holds ordered multipart content (text interleaved with images).
	// Empty for plain-text messages; Content is authoritative then.
	Parts      []ContentPart
	ToolCalls  []ToolCall
	ToolCallID string // set on tool-role messages, keys the result to its call
	Approval   *Approval
	Reasoning  string
	Usage      *Usage
	Rendered   string // cached markdown rendering, UI only
	Streaming  bool   // transient: message is the in-flight placeholder
	Timestamp  time.Time
}

// Text returns the flat text of the message, flattening multipart content.
func (m Message) Text() string {
	if len(m.Parts) == 0 {
		return m.Content
	}
	var out string
	for _, p := range m.Parts {
		out += p.Text
	}
	return out
}

// toolResultPayload is the JSON body of a tool-role message.
type toolResultPayload struct {
	Result string `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// NewToolResult wraps a successful tool execution into a tool-role message
// keyed by the originating call ID.
func NewToolResult(call ToolCall, result string) Message {
	body, _ := json.Marshal(toolResultPayload{Result: result})
	return Message{
		Role:       RoleTool,
		Content:    string(body),
		ToolCallID: call.ID,
		Timestamp:  time.Now(),
	}
}

// NewToolError wraps a tool execution failure into a tool-role message. The
// loop continues after tool errors; the model sees the error payload and can
// react to it.
func NewToolError(call ToolCall, err error) Message {
	body, _ := json.Marshal(toolResultPayload{Error: err.Error()})
	return Message{
		Role:       RoleTool,
		Content:    string(body),
		ToolCallID: call.ID,
		Timestamp:  time.Now(),
	}
}

// NewDeniedToolResult records a user denial as a tool error payload so the
// model knows the call was refused rather than failed.
func NewDeniedToolResult(call ToolCall) Message {
	return NewToolError(call, fmt.Errorf("user denied permission to run tool %q", call.Name))
}

package provider

import (
	"encoding/json"

	"parley/model"
)

// approvalRequestWire is the serialized echo of a server-issued approval
// request, re-sent when resuming a paused remote-approval turn. The
// hosted API requires the echo immediately followed by its response, in
// the original request order.
type approvalRequestWire struct {
	Type        string `json:"type"`
	ID          string `json:"id"`
	ToolName    string `json:"tool_name"`
	Arguments   string `json:"arguments"`
	ServerLabel string `json:"server_label"`
}

// approvalResponseWire is the serialized user decision for one approval
// request.
type approvalResponseWire struct {
	Type              string `json:"type"`
	ApprovalRequestID string `json:"approval_request_id"`
	Approve           bool   `json:"approve"`
}

// marshalApproval serializes a remote-approval message for providers
// that carry the protocol as structured text. Returns "" for messages
// without approval payloads.
func marshalApproval(msg model.Message) string {
	if msg.Approval == nil {
		return ""
	}

	switch msg.Role {
	case model.RoleApprovalRequest:
		body, _ := json.Marshal(approvalRequestWire{
			Type:        "mcp_approval_request",
			ID:          msg.Approval.RequestID,
			ToolName:    msg.Approval.ToolName,
			Arguments:   msg.Approval.Arguments,
			ServerLabel: msg.Approval.ServerLabel,
		})
		return string(body)

	case model.RoleApprovalResponse:
		approve := msg.Approval.Approved != nil && *msg.Approval.Approved
		body, _ := json.Marshal(approvalResponseWire{
			Type:              "mcp_approval_response",
			ApprovalRequestID: msg.Approval.RequestID,
			Approve:           approve,
		})
		return string(body)
	}

	return ""
}

// serializeArguments renders a tool-call argument map back to JSON for
// providers that deliver arguments pre-parsed.
func serializeArguments(args map[string]any) string {
	if len(args) == 0 {
		return "{}"
	}
	body, err := json.Marshal(args)
	if err != nil {
		return "{}"
	}
	return string(body)
}

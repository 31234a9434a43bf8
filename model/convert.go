package model

import "parley/storage"

// ToStoredMessages converts in-memory messages to their persisted form.
// Approval request/response echoes are transient turn artifacts and are
// not persisted.
func ToStoredMessages(messages []Message) []storage.Message {
	stored := make([]storage.Message, 0, len(messages))
	for _, msg := range messages {
		if msg.Role == RoleApprovalRequest || msg.Role == RoleApprovalResponse {
			continue
		}
		sm := storage.Message{
			Role:       msg.Role,
			Content:    msg.Text(),
			ToolCallID: msg.ToolCallID,
			Reasoning:  msg.Reasoning,
			Rendered:   msg.Rendered,
			Timestamp:  msg.Timestamp,
		}
		for _, tc := range msg.ToolCalls {
			sm.ToolCalls = append(sm.ToolCalls, storage.ToolCall{
				ID:          tc.ID,
				Name:        tc.Name,
				Arguments:   tc.Arguments,
				ServerLabel: tc.ServerLabel,
			})
		}
		stored = append(stored, sm)
	}
	return stored
}

// FromStoredMessages converts persisted messages back to the in-memory form.
func FromStoredMessages(stored []storage.Message) []Message {
	messages := make([]Message, 0, len(stored))
	for _, sm := range stored {
		msg := Message{
			Role:       sm.Role,
			Content:    sm.Content,
			ToolCallID: sm.ToolCallID,
			Reasoning:  sm.Reasoning,
			Rendered:   sm.Rendered,
			Timestamp:  sm.Timestamp,
		}
		for _, tc := range sm.ToolCalls {
			msg.ToolCalls = append(msg.ToolCalls, ToolCall{
				ID:          tc.ID,
				Name:        tc.Name,
				Arguments:   tc.Arguments,
				ServerLabel: tc.ServerLabel,
			})
		}
		messages = append(messages, msg)
	}
	return messages
}

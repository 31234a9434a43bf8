package model

// BuildSystemPrompt returns the system prompt for the current chat, falling
// back to the configured default.
func (m *Model) BuildSystemPrompt() string {
	if m.CurrentChat != nil && m.CurrentChat.SystemPrompt != "" {
		return m.CurrentChat.SystemPrompt
	}
	return m.Config.DefaultSystemPrompt
}

// BuildAPIHistory converts the conversation into the provider-facing message
// list for a new turn. Display-only system notices are dropped; tool results
// and approval echoes are kept so providers that resume server-side state see
// the full exchange in order.
func (m *Model) BuildAPIHistory() []Message {
	var messages []Message

	if prompt := m.BuildSystemPrompt(); prompt != "" {
		messages = append(messages, Message{
			Role:    RoleSystem,
			Content: prompt,
		})
	}

	for _, msg := range m.Messages {
		switch msg.Role {
		case RoleUser, RoleAssistant, RoleTool, RoleApprovalRequest, RoleApprovalResponse:
			messages = append(messages, msg)
		}
	}

	return messages
}

// AppendMessages adds messages to the transcript and marks the chat dirty.
func (m *Model) AppendMessages(msgs ...Message) {
	m.Messages = append(m.Messages, msgs...)
	m.ChatDirty = true
}

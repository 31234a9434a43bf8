package model

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"parley/config"
	"parley/storage"
)

// FetchChatList retrieves the list of saved chats.
func (m *Model) FetchChatList() tea.Cmd {
	if m.ChatStore == nil {
		return nil
	}
	store := m.ChatStore
	return func() tea.Msg {
		chats, err := store.List()
		return ChatsListMsg{
			Chats: chats,
			Err:   err,
		}
	}
}

// LoadChat loads a chat by ID.
func (m *Model) LoadChat(chatID string) tea.Cmd {
	if m.ChatStore == nil {
		return nil
	}

	// Already loaded, just close the chat manager
	if m.CurrentChat != nil && m.CurrentChat.ID == chatID {
		return func() tea.Msg {
			return ChatLoadedMsg{
				Chat: m.CurrentChat,
				Err:  nil,
			}
		}
	}

	store := m.ChatStore
	return func() tea.Msg {
		chat, err := store.Load(chatID)
		if err != nil {
			return ChatLoadedMsg{Chat: nil, Err: err}
		}
		return ChatLoadedMsg{
			Chat: chat,
			Err:  nil,
		}
	}
}

// ApplyLoadedChat replaces the in-memory conversation with a loaded chat
// and switches the active provider/model to match it.
func (m *Model) ApplyLoadedChat(chat *storage.Chat) {
	m.CurrentChat = chat
	m.Messages = FromStoredMessages(chat.Messages)
	m.ChatDirty = false
	m.NeedsInitialRender = len(m.Messages) > 0

	if chat.Provider != "" {
		if p, ok := m.Providers[chat.Provider]; ok {
			m.Provider = p
		}
	}
	if m.Provider != nil && chat.Model != "" {
		m.Provider.SetModel(chat.Model)
	}
}

// SaveCurrentChat saves the current chat to storage.
func (m *Model) SaveCurrentChat() tea.Cmd {
	if m.ChatStore == nil || m.CurrentChat == nil {
		return nil
	}

	m.CurrentChat.Messages = ToStoredMessages(m.Messages)
	m.CurrentChat.UpdatedAt = time.Now()
	if m.Provider != nil {
		m.CurrentChat.Model = m.Provider.GetModel()
		m.CurrentChat.Provider = m.ProviderID()
	}

	chat := m.CurrentChat
	store := m.ChatStore

	return func() tea.Msg {
		err := store.Save(chat)
		if err == nil {
			store.SaveCurrentChatID(chat.ID)
		}
		return ChatSavedMsg{Err: err}
	}
}

// AutoSaveChat saves the current chat, creating one with a generated
// title when none exists yet.
func (m *Model) AutoSaveChat() tea.Cmd {
	if m.ChatStore == nil {
		return nil
	}

	if m.CurrentChat == nil {
		m.CurrentChat = &storage.Chat{
			ID:        "", // Let Save() generate UUID
			Title:     storage.GenerateChatTitle(m.firstUserMessage()),
			Model:     m.Config.DefaultModelFor(m.Config.DefaultProvider),
			Provider:  m.Config.DefaultProvider,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}
	} else if m.CurrentChat.Title == "New Chat" && len(m.Messages) > 0 {
		if first := m.firstUserMessage(); first != "" {
			m.CurrentChat.Title = storage.GenerateChatTitle(first)
		}
	}

	return m.SaveCurrentChat()
}

func (m *Model) firstUserMessage() string {
	for _, msg := range m.Messages {
		if msg.Role == RoleUser {
			return msg.Text()
		}
	}
	return ""
}

// RenameChatCmd renames a chat and refreshes the chat list.
func (m *Model) RenameChatCmd(chatID, newTitle string) tea.Cmd {
	return func() tea.Msg {
		if m.ChatStore == nil {
			return ChatRenamedMsg{Err: fmt.Errorf("chat storage not initialized")}
		}

		if err := m.ChatStore.Rename(chatID, newTitle); err != nil {
			return ChatRenamedMsg{Err: err}
		}

		chats, err := m.ChatStore.List()
		if err != nil {
			return ChatRenamedMsg{Err: err}
		}

		return ChatsListMsg{Chats: chats, Err: nil}
	}
}

// DeleteChatCmd deletes a chat and refreshes the chat list.
func (m *Model) DeleteChatCmd(chatID string) tea.Cmd {
	return func() tea.Msg {
		if m.ChatStore == nil {
			return ChatDeletedMsg{ChatID: chatID, Err: fmt.Errorf("chat storage not initialized")}
		}
		if err := m.ChatStore.Delete(chatID); err != nil {
			return ChatDeletedMsg{ChatID: chatID, Err: err}
		}
		return ChatDeletedMsg{ChatID: chatID}
	}
}

// ExportChatCmd exports a chat to a JSON file.
func (m *Model) ExportChatCmd(chatID, exportPath string) tea.Cmd {
	return func() tea.Msg {
		if m.ChatStore == nil {
			return ChatExportedMsg{Err: fmt.Errorf("chat storage not initialized")}
		}

		expanded := config.ExpandPath(exportPath)
		if err := m.ChatStore.ExportToJSON(chatID, expanded); err != nil {
			return ChatExportedMsg{Err: err}
		}
		return ChatExportedMsg{Path: expanded}
	}
}

// SearchChatsCmd searches all stored chats for the query string.
func (m *Model) SearchChatsCmd(query string) tea.Cmd {
	if m.SearchIndex == nil {
		return nil
	}
	index := m.SearchIndex
	return func() tea.Msg {
		results, err := index.SearchAll(query)
		return SearchResultsMsg{Results: results, Err: err}
	}
}

// NewChat resets the conversation. The current chat (if any) was already
// auto-saved by the caller.
func (m *Model) NewChat() {
	m.CurrentChat = nil
	m.Messages = nil
	m.ChatDirty = false
	m.NeedsInitialRender = false
}

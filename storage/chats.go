// Package storage persists chat transcripts as one JSON file per chat under
// <data_dir>/chats/, keyed by an opaque UUID.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ToolCall is the persisted form of a model-requested tool invocation.
type ToolCall struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Arguments   string `json:"arguments"`
	ServerLabel string `json:"server_label,omitempty"`
}

// Message is the persisted form of a chat message.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Reasoning  string     `json:"reasoning,omitempty"`
	Rendered   string     `json:"rendered,omitempty"` // cached markdown rendering
	Timestamp  time.Time  `json:"timestamp"`
}

// Chat is a stored conversation transcript.
type Chat struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Model        string    `json:"model"`
	Provider     string    `json:"provider"`
	SystemPrompt string    `json:"system_prompt,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Messages     []Message `json:"messages"`
}

// ChatMetadata is a lightweight version of Chat for listing.
type ChatMetadata struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Model        string    `json:"model"`
	Provider     string    `json:"provider"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
}

// ChatStore handles chat persistence.
type ChatStore struct {
	chatsDir string
}

// NewChatStore creates the chats directory if needed and returns the store.
func NewChatStore(dataDir string) (*ChatStore, error) {
	chatsDir := filepath.Join(dataDir, "chats")

	// 0700 - transcripts are user-only
	if err := os.MkdirAll(chatsDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create chats directory: %w", err)
	}

	return &ChatStore{chatsDir: chatsDir}, nil
}

// Save writes a chat to disk, generating an ID on first save.
func (s *ChatStore) Save(chat *Chat) error {
	if chat.ID == "" {
		chat.ID = uuid.New().String()
	}

	chat.UpdatedAt = time.Now()
	if chat.CreatedAt.IsZero() {
		chat.CreatedAt = chat.UpdatedAt
	}

	path := filepath.Join(s.chatsDir, chat.ID+".json")

	data, err := json.MarshalIndent(chat, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal chat: %w", err)
	}

	// 0600 - chat files contain sensitive conversation history
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write chat file: %w", err)
	}

	return nil
}

// Load reads a chat from disk.
func (s *ChatStore) Load(id string) (*Chat, error) {
	path := filepath.Join(s.chatsDir, id+".json")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read chat file: %w", err)
	}

	var chat Chat
	if err := json.Unmarshal(data, &chat); err != nil {
		return nil, fmt.Errorf("failed to unmarshal chat: %w", err)
	}

	return &chat, nil
}

// List returns metadata for all chats, sorted by update time (newest first).
func (s *ChatStore) List() ([]ChatMetadata, error) {
	entries, err := os.ReadDir(s.chatsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read chats directory: %w", err)
	}

	var chats []ChatMetadata

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(s.chatsDir, entry.Name()))
		if err != nil {
			continue // skip corrupted files
		}

		var chat Chat
		if err := json.Unmarshal(data, &chat); err != nil {
			continue // skip corrupted files
		}

		chats = append(chats, ChatMetadata{
			ID:           chat.ID,
			Title:        chat.Title,
			Model:        chat.Model,
			Provider:     chat.Provider,
			CreatedAt:    chat.CreatedAt,
			UpdatedAt:    chat.UpdatedAt,
			MessageCount: len(chat.Messages),
		})
	}

	sort.Slice(chats, func(i, j int) bool {
		return chats[i].UpdatedAt.After(chats[j].UpdatedAt)
	})

	return chats, nil
}

// Delete removes a chat from disk.
func (s *ChatStore) Delete(id string) error {
	if err := os.Remove(filepath.Join(s.chatsDir, id+".json")); err != nil {
		return fmt.Errorf("failed to delete chat file: %w", err)
	}
	return nil
}

// Rename updates the title of a chat.
func (s *ChatStore) Rename(id string, newTitle string) error {
	chat, err := s.Load(id)
	if err != nil {
		return fmt.Errorf("failed to load chat: %w", err)
	}

	chat.Title = newTitle

	if err := s.Save(chat); err != nil {
		return fmt.Errorf("failed to save renamed chat: %w", err)
	}

	return nil
}

// SaveCurrentChatID saves the ID of the active chat.
func (s *ChatStore) SaveCurrentChatID(id string) error {
	path := filepath.Join(filepath.Dir(s.chatsDir), "current_chat.id")
	return os.WriteFile(path, []byte(id), 0600)
}

// LoadCurrentChatID loads the ID of the last active chat.
func (s *ChatStore) LoadCurrentChatID() (string, error) {
	path := filepath.Join(filepath.Dir(s.chatsDir), "current_chat.id")
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// ExportToJSON exports a chat to a JSON file at the specified path.
func (s *ChatStore) ExportToJSON(id string, exportPath string) error {
	chat, err := s.Load(id)
	if err != nil {
		return fmt.Errorf("failed to load chat: %w", err)
	}

	data, err := json.MarshalIndent(chat, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal chat: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(exportPath), 0700); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(exportPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

// GenerateChatTitle derives a title from the first user message.
func GenerateChatTitle(firstMessage string) string {
	if firstMessage == "" {
		return fmt.Sprintf("Chat %s", time.Now().Format("Jan 2, 3:04 PM"))
	}

	title := firstMessage
	if len(title) > 40 {
		title = title[:40] + "..."
	}

	title = strings.ReplaceAll(title, "\n", " ")
	title = strings.ReplaceAll(title, "\r", " ")
	title = strings.TrimSpace(title)

	if title == "" {
		return fmt.Sprintf("Chat %s", time.Now().Format("Jan 2, 3:04 PM"))
	}

	return title
}

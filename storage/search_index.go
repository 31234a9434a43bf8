package storage

import (
	"strings"
	"time"
)

// MessageMatch is a search hit across stored chats.
type MessageMatch struct {
	ChatID       string
	ChatTitle    string
	MessageIndex int
	Role         string
	Preview      string
	Timestamp    time.Time
}

// SearchIndex performs substring search over every stored chat. Transcripts
// are small enough that a linear scan beats maintaining an index on disk.
type SearchIndex struct {
	store *ChatStore
}

// NewSearchIndex creates a search index over the given store.
func NewSearchIndex(store *ChatStore) *SearchIndex {
	return &SearchIndex{store: store}
}

// SearchAll returns matches across all chats, newest chats first.
func (si *SearchIndex) SearchAll(query string) ([]MessageMatch, error) {
	if query == "" {
		return []MessageMatch{}, nil
	}

	metas, err := si.store.List()
	if err != nil {
		return nil, err
	}

	queryLower := strings.ToLower(query)
	var matches []MessageMatch

	for _, meta := range metas {
		chat, err := si.store.Load(meta.ID)
		if err != nil {
			continue
		}

		for i, msg := range chat.Messages {
			if msg.Role == "system" || msg.Role == "tool" {
				continue
			}

			if !strings.Contains(strings.ToLower(msg.Content), queryLower) {
				continue
			}

			preview := msg.Content
			if len(preview) > 100 {
				preview = preview[:100] + "..."
			}

			matches = append(matches, MessageMatch{
				ChatID:       chat.ID,
				ChatTitle:    chat.Title,
				MessageIndex: i,
				Role:         msg.Role,
				Preview:      preview,
				Timestamp:    msg.Timestamp,
			})
		}
	}

	return matches, nil
}

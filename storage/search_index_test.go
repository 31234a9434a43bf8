package storage

import (
	"strings"
	"testing"
	"time"
)

func seedSearchChats(t *testing.T, store *ChatStore) (weatherID, codeID string) {
	t.Helper()

	weather := &Chat{
		Title: "Weather talk",
		Messages: []Message{
			{Role: "user", Content: "What's the weather in Berlin?", Timestamp: time.Now()},
			{Role: "assistant", Content: "Berlin is sunny today.", Timestamp: time.Now()},
			{Role: "tool", Content: `{"result":"berlin sunny"}`, Timestamp: time.Now()},
		},
	}
	code := &Chat{
		Title: "Code review",
		Messages: []Message{
			{Role: "user", Content: "Review this Go function please", Timestamp: time.Now()},
			{Role: "system", Content: "Waiting for response... weather", Timestamp: time.Now()},
		},
	}
	if err := store.Save(weather); err != nil {
		t.Fatal(err)
	}
	if err := store.Save(code); err != nil {
		t.Fatal(err)
	}
	return weather.ID, code.ID
}

func TestSearchAllFindsMatchesAcrossChats(t *testing.T) {
	store := newTestStore(t)
	weatherID, _ := seedSearchChats(t, store)

	index := NewSearchIndex(store)
	matches, err := index.SearchAll("WEATHER")
	if err != nil {
		t.Fatal(err)
	}

	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d: %+v", len(matches), matches)
	}
	m := matches[0]
	if m.ChatID != weatherID {
		t.Errorf("match in wrong chat: got %s, want %s", m.ChatID, weatherID)
	}
	if m.MessageIndex != 0 || m.Role != "user" {
		t.Errorf("unexpected match position: index=%d role=%s", m.MessageIndex, m.Role)
	}
	if !strings.Contains(m.Preview, "Berlin") {
		t.Errorf("preview missing matched text: %q", m.Preview)
	}
}

func TestSearchAllSkipsToolAndSystemMessages(t *testing.T) {
	store := newTestStore(t)
	seedSearchChats(t, store)

	index := NewSearchIndex(store)

	// "berlin sunny" only appears in a tool result.
	matches, err := index.SearchAll("berlin sunny")
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 0 {
		t.Errorf("tool messages should not match, got %+v", matches)
	}

	// "Waiting for response" only appears in a system notice.
	matches, err = index.SearchAll("Waiting for response")
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 0 {
		t.Errorf("system messages should not match, got %+v", matches)
	}
}

func TestSearchAllEmptyQuery(t *testing.T) {
	store := newTestStore(t)
	seedSearchChats(t, store)

	index := NewSearchIndex(store)
	matches, err := index.SearchAll("")
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 0 {
		t.Errorf("empty query should return no matches, got %d", len(matches))
	}
}

func TestSearchAllTruncatesLongPreviews(t *testing.T) {
	store := newTestStore(t)

	long := strings.Repeat("needle and haystack ", 20)
	chat := &Chat{
		Title: "Long",
		Messages: []Message{
			{Role: "user", Content: long, Timestamp: time.Now()},
		},
	}
	if err := store.Save(chat); err != nil {
		t.Fatal(err)
	}

	index := NewSearchIndex(store)
	matches, err := index.SearchAll("needle")
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	if !strings.HasSuffix(matches[0].Preview, "...") {
		t.Errorf("long preview not truncated: %q", matches[0].Preview)
	}
	if len(matches[0].Preview) > 103 {
		t.Errorf("preview too long: %d chars", len(matches[0].Preview))
	}
}

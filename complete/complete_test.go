package complete

import (
	"fmt"
	"testing"
)

func TestSuggestEmptyInput(t *testing.T) {
	s := NewSuggester(DefaultCommands)
	if got := s.Suggest(""); got != nil {
		t.Errorf("empty input suggested %v", got)
	}
	if got := s.Suggest("   "); got != nil {
		t.Errorf("whitespace input suggested %v", got)
	}
}

func TestSlashListsAllCommands(t *testing.T) {
	s := NewSuggester(DefaultCommands)
	got := s.Suggest("/")
	if len(got) == 0 {
		t.Fatal("no suggestions for bare slash")
	}
	for _, sug := range got {
		if sug.Kind != KindCommand {
			t.Errorf("bare slash returned non-command %q", sug.Text)
		}
	}
}

func TestCommandFuzzyMatch(t *testing.T) {
	s := NewSuggester(DefaultCommands)

	tests := []struct {
		input string
		want  string
	}{
		{"/ne", "/new"},
		{"/md", "/model"},
		{"/exp", "/export"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := s.Suggest(tt.input)
			if len(got) == 0 {
				t.Fatalf("no suggestions for %q", tt.input)
			}
			found := false
			for _, sug := range got {
				if sug.Text == tt.want {
					found = true
				}
			}
			if !found {
				t.Errorf("%q not suggested for %q, got %v", tt.want, tt.input, got)
			}
		})
	}
}

func TestHistorySuggestions(t *testing.T) {
	s := NewSuggester(DefaultCommands)
	s.AddPrompt("weather in Paris")
	s.AddPrompt("weather in Tokyo")
	s.AddPrompt("tell me a joke")

	got := s.Suggest("weather")
	if len(got) != 2 {
		t.Fatalf("suggestions = %v, want 2 weather prompts", got)
	}
	for _, sug := range got {
		if sug.Kind != KindHistory {
			t.Errorf("history suggestion has kind %v", sug.Kind)
		}
	}
	// Ties rank the most recent prompt first.
	if got[0].Text != "weather in Tokyo" {
		t.Errorf("first suggestion = %q, want most recent", got[0].Text)
	}
}

func TestHistoryTiesOrderedByRecency(t *testing.T) {
	s := NewSuggester(DefaultCommands)
	// All four score identically for "weather in", so only recency
	// decides the order.
	s.AddPrompt("weather in Paris")
	s.AddPrompt("weather in Tokyo")
	s.AddPrompt("weather in Lagos")
	s.AddPrompt("weather in Oslo")

	got := s.Suggest("weather in")
	want := []string{"weather in Oslo", "weather in Lagos", "weather in Tokyo", "weather in Paris"}
	if len(got) != len(want) {
		t.Fatalf("suggestions = %v, want %d", got, len(want))
	}
	for i, text := range want {
		if got[i].Text != text {
			t.Errorf("suggestion[%d] = %q, want %q", i, got[i].Text, text)
		}
	}
}

func TestExactHistoryMatchIsSuppressed(t *testing.T) {
	s := NewSuggester(DefaultCommands)
	s.AddPrompt("hello world")

	for _, sug := range s.Suggest("hello world") {
		if sug.Text == "hello world" {
			t.Error("input suggested verbatim")
		}
	}
}

func TestAddPromptDeduplicates(t *testing.T) {
	s := NewSuggester(DefaultCommands)
	s.AddPrompt("same prompt")
	s.AddPrompt("other prompt")
	s.AddPrompt("same prompt")

	if len(s.history) != 2 {
		t.Fatalf("history = %v", s.history)
	}
	if s.history[len(s.history)-1] != "same prompt" {
		t.Errorf("re-added prompt not moved to the end: %v", s.history)
	}
}

func TestAddPromptIgnoresCommandsAndEmpties(t *testing.T) {
	s := NewSuggester(DefaultCommands)
	s.AddPrompt("/new")
	s.AddPrompt("")
	s.AddPrompt("  ")
	if len(s.history) != 0 {
		t.Errorf("history = %v, want empty", s.history)
	}
}

func TestHistoryBounded(t *testing.T) {
	s := NewSuggester(DefaultCommands)
	for i := 0; i < maxHistoryDepth+50; i++ {
		s.AddPrompt(fmt.Sprintf("prompt %d", i))
	}
	if len(s.history) != maxHistoryDepth {
		t.Errorf("history length = %d, want %d", len(s.history), maxHistoryDepth)
	}
}

func TestSuggestionCap(t *testing.T) {
	s := NewSuggester(nil)
	for i := 0; i < maxSuggestions*2; i++ {
		s.AddPrompt(fmt.Sprintf("query variant %d", i))
	}
	if got := s.Suggest("query"); len(got) > maxSuggestions {
		t.Errorf("suggestions = %d, want at most %d", len(got), maxSuggestions)
	}
}

func TestCommonPrefix(t *testing.T) {
	tests := []struct {
		name string
		in   []Suggestion
		want string
	}{
		{"empty", nil, ""},
		{"single", []Suggestion{{Text: "/new"}}, "/new"},
		{"shared", []Suggestion{{Text: "/rename"}, {Text: "/render"}}, "/ren"},
		{"disjoint", []Suggestion{{Text: "abc"}, {Text: "xyz"}}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CommonPrefix(tt.in); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

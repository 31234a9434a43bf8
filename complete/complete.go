// Package complete suggests input completions from slash commands and
// previously sent prompts.
package complete

import (
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"
)

// SuggestionKind tells the UI where a suggestion came from so it can
// style commands and history entries differently.
type SuggestionKind int

const (
	KindCommand SuggestionKind = iota
	KindHistory
)

// Suggestion is a single autocomplete candidate.
type Suggestion struct {
	Text string
	Kind SuggestionKind
}

// Command is a slash command the suggester knows about.
type Command struct {
	Name        string // includes the leading slash, e.g. "/new"
	Description string
}

// DefaultCommands are the built-in slash commands.
var DefaultCommands = []Command{
	{Name: "/new", Description: "start a new chat"},
	{Name: "/chats", Description: "open the chat manager"},
	{Name: "/model", Description: "switch model"},
	{Name: "/rename", Description: "rename the current chat"},
	{Name: "/export", Description: "export the current chat to JSON"},
	{Name: "/yolo", Description: "toggle auto-approval of all tools"},
	{Name: "/help", Description: "show keybindings"},
	{Name: "/quit", Description: "exit"},
}

const (
	maxSuggestions  = 8
	maxHistoryDepth = 200
)

// Suggester ranks completions for the input line. Not safe for
// concurrent use; the UI event loop is the only caller.
type Suggester struct {
	commands []Command
	history  []string // most recent last
}

// NewSuggester returns a Suggester seeded with the given commands.
// Pass DefaultCommands for the standard set.
func NewSuggester(commands []Command) *Suggester {
	return &Suggester{commands: commands}
}

// AddPrompt records a sent user prompt as a future history suggestion.
// Duplicates are moved to the front of the ranking rather than stored twice.
func (s *Suggester) AddPrompt(prompt string) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" || strings.HasPrefix(prompt, "/") {
		return
	}
	for i, existing := range s.history {
		if existing == prompt {
			s.history = append(s.history[:i], s.history[i+1:]...)
			break
		}
	}
	s.history = append(s.history, prompt)
	if len(s.history) > maxHistoryDepth {
		s.history = s.history[len(s.history)-maxHistoryDepth:]
	}
}

// SeedHistory loads prompts from persisted chats, oldest first.
func (s *Suggester) SeedHistory(prompts []string) {
	for _, p := range prompts {
		s.AddPrompt(p)
	}
}

// Suggest returns ranked completions for the current input. A leading
// slash restricts candidates to commands; anything else matches against
// prompt history. Empty input yields nothing.
func (s *Suggester) Suggest(input string) []Suggestion {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil
	}

	if strings.HasPrefix(input, "/") {
		return s.suggestCommands(input)
	}
	return s.suggestHistory(input)
}

func (s *Suggester) suggestCommands(input string) []Suggestion {
	targets := make([]string, len(s.commands))
	for i, c := range s.commands {
		targets[i] = c.Name
	}

	// "/" alone lists everything.
	if input == "/" {
		out := make([]Suggestion, 0, len(s.commands))
		for _, c := range s.commands {
			out = append(out, Suggestion{Text: c.Name, Kind: KindCommand})
		}
		return capSuggestions(out)
	}

	matches := fuzzy.Find(input, targets)
	out := make([]Suggestion, 0, len(matches))
	for _, m := range matches {
		out = append(out, Suggestion{Text: s.commands[m.Index].Name, Kind: KindCommand})
	}
	return capSuggestions(out)
}

func (s *Suggester) suggestHistory(input string) []Suggestion {
	// Match against history newest first so ties rank recent prompts higher.
	targets := make([]string, len(s.history))
	for i := range s.history {
		targets[i] = s.history[len(s.history)-1-i]
	}

	// fuzzy.Find's own sort is not stable across equal scores, so sort
	// here: score descending, recency (lower index) breaking ties.
	matches := fuzzy.FindNoSort(input, targets)
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	out := make([]Suggestion, 0, len(matches))
	for _, m := range matches {
		if targets[m.Index] == input {
			continue
		}
		out = append(out, Suggestion{Text: targets[m.Index], Kind: KindHistory})
	}
	return capSuggestions(out)
}

func capSuggestions(s []Suggestion) []Suggestion {
	if len(s) > maxSuggestions {
		return s[:maxSuggestions]
	}
	return s
}

// CommonPrefix returns the longest prefix shared by all suggestion
// texts, used for Tab completion when several candidates remain.
func CommonPrefix(suggestions []Suggestion) string {
	if len(suggestions) == 0 {
		return ""
	}
	prefix := suggestions[0].Text
	for _, s := range suggestions[1:] {
		for !strings.HasPrefix(s.Text, prefix) {
			prefix = prefix[:len(prefix)-1]
			if prefix == "" {
				return ""
			}
		}
	}
	return prefix
}

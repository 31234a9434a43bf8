package ui

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	markdown "github.com/MichaelMure/go-term-markdown"
	tea "github.com/charmbracelet/bubbletea"
	gomarkdown "github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/parser"

	"parley/config"
	"parley/model"
)

// Pre-compiled regex patterns for better performance
var (
	inlineCodeRegex = regexp.MustCompile(`(?s)\x1b\[44;3m(.*?)\x1b\[0m`)
	mdLinkRegex     = regexp.MustCompile(`\[([^\]]+)\]\((https?://[^\)]+)\)`)
	urlRegex        = regexp.MustCompile(`(https?://[^\s]+)`)
)

func (a *AppView) updateViewportContent(gotoBottom bool) {
	if len(a.dataModel.Messages) == 0 {
		a.viewport.SetContent("No messages yet. Start chatting!")
		return
	}

	var content strings.Builder

	for i, msg := range a.dataModel.Messages {
		highlightPrefix := ""
		if i == a.highlightedMessageIdx && a.highlightFlashCount%2 == 1 {
			highlightPrefix = HighlightStyle.Render(">>> ")
		}

		content.WriteString(a.formatTranscriptMessage(msg, highlightPrefix))
	}

	a.viewport.SetContent(content.String())
	if gotoBottom {
		a.viewport.GotoBottom()
	}

	if a.highlightedMessageIdx >= 0 && !gotoBottom {
		a.scrollToMessage(a.highlightedMessageIdx)
	}
}

// formatTranscriptMessage renders one message for the viewport.
func (a *AppView) formatTranscriptMessage(msg Message, highlightPrefix string) string {
	timestamp := DimStyle.Render(msg.Timestamp.Format("[15:04]"))

	switch msg.Role {
	case "user":
		return formatUserMessage(highlightPrefix, timestamp, UserStyle.Render("You"), displayText(msg))

	case "assistant":
		var b strings.Builder
		if msg.Reasoning != "" {
			b.WriteString(fmt.Sprintf("%s%s %s\n%s\n\n",
				highlightPrefix, timestamp, DimStyle.Render("Thinking"),
				ReasoningStyle.Render(msg.Reasoning)))
			highlightPrefix = ""
		}
		body := displayText(msg)
		if body != "" || len(msg.ToolCalls) == 0 {
			b.WriteString(fmt.Sprintf("%s%s %s\n%s\n\n",
				highlightPrefix, timestamp, AssistantStyle.Render("Assistant"), body))
		}
		for _, call := range msg.ToolCalls {
			b.WriteString(DimStyle.Render(fmt.Sprintf("  🔧 %s %s", call.Name, truncateArgs(call.Arguments, 60))))
			b.WriteString("\n")
		}
		if len(msg.ToolCalls) > 0 {
			b.WriteString("\n")
		}
		return b.String()

	case "tool":
		return DimStyle.Render(fmt.Sprintf("  ↳ %s", toolResultSummary(msg.Content))) + "\n\n"

	case model.RoleApprovalRequest:
		name := ""
		if msg.Approval != nil {
			name = msg.Approval.ToolName
		}
		return DimStyle.Render(fmt.Sprintf("  🔒 remote approval requested: %s", name)) + "\n\n"

	case model.RoleApprovalResponse:
		verdict := "denied"
		if msg.Approval != nil && msg.Approval.Approved != nil && *msg.Approval.Approved {
			verdict = "approved"
		}
		return DimStyle.Render("  🔒 remote approval "+verdict) + "\n\n"

	default: // system notices
		rendered := displayText(msg)
		if msg.Content == "Waiting for response..." {
			rendered = fmt.Sprintf("%s %s", a.loadingSpinner.View(), msg.Content)
		}
		return fmt.Sprintf("%s%s %s\n%s\n\n", highlightPrefix, timestamp, DimStyle.Render("System"), rendered)
	}
}

// updateStreamingMessage refreshes the in-flight assistant placeholder with
// the text replayed so far.
func (a *AppView) updateStreamingMessage(partial string) {
	n := len(a.dataModel.Messages)
	if n == 0 || !a.dataModel.Messages[n-1].Streaming {
		return
	}

	var content strings.Builder
	for _, msg := range a.dataModel.Messages[:n-1] {
		content.WriteString(a.formatTranscriptMessage(msg, ""))
	}

	timestamp := DimStyle.Render(time.Now().Format("[15:04]"))
	role := AssistantStyle.Render("Assistant")

	// Spinner until the first chunk lands, then text with a cursor
	streamContent := a.loadingSpinner.View()
	if partial != "" {
		streamContent = partial + "▋"
	}

	content.WriteString(fmt.Sprintf("%s %s\n%s\n\n", timestamp, role, streamContent))

	a.viewport.SetContent(content.String())
	a.viewport.GotoBottom()
}

// scrollToMessage positions the viewport roughly at the given message. Line
// offsets are estimated from the formatted content above it.
func (a *AppView) scrollToMessage(idx int) {
	if idx <= 0 || idx >= len(a.dataModel.Messages) {
		return
	}
	var above strings.Builder
	for _, msg := range a.dataModel.Messages[:idx] {
		above.WriteString(a.formatTranscriptMessage(msg, ""))
	}
	line := strings.Count(above.String(), "\n")
	a.viewport.SetYOffset(line)
}

// displayText prefers the cached markdown rendering over raw content.
func displayText(msg Message) string {
	if msg.Rendered != "" {
		return msg.Rendered
	}
	return msg.Text()
}

// toolResultSummary flattens a tool result payload to a one-line preview.
func toolResultSummary(content string) string {
	var payload struct {
		Result string `json:"result"`
		Error  string `json:"error"`
	}
	summary := content
	if err := json.Unmarshal([]byte(content), &payload); err == nil {
		if payload.Error != "" {
			summary = "error: " + payload.Error
		} else {
			summary = payload.Result
		}
	}
	summary = strings.ReplaceAll(summary, "\n", " ")
	if len(summary) > 120 {
		summary = summary[:120] + "…"
	}
	return summary
}

func truncateArgs(args string, max int) string {
	args = strings.ReplaceAll(args, "\n", " ")
	if args == "{}" || args == "" {
		return ""
	}
	if len(args) > max {
		return args[:max] + "…"
	}
	return args
}

func formatUserMessage(highlightPrefix, timestamp, role, content string) string {
	greenBold := "\x1b[32;1m"
	reset := "\x1b[0m"
	bar := greenBold + "┃" + reset

	lines := strings.Split(content, "\n")

	var result strings.Builder
	result.WriteString(fmt.Sprintf("%s%s %s %s\n", highlightPrefix, bar, timestamp, role))

	for _, line := range lines {
		result.WriteString(fmt.Sprintf("%s %s\n", bar, line))
	}

	result.WriteString("\n")

	return result.String()
}

func postProcessMarkdown(rendered string, width int) string {
	// 1. Fix inline code: Blue background → Red text
	rendered = fixInlineCode(rendered)

	// 2. Color plain URLs red (autolink disabled keeps URLs plain)
	rendered = fixMarkdownLinks(rendered)

	// 3. Frame code blocks with horizontal rules
	rendered = frameCodeBlocks(rendered, width)

	return rendered
}

func preprocessLinks(content string) string {
	// Strip markdown link syntax [text](url) so all links appear as plain
	// URLs the terminal emulator can detect
	return mdLinkRegex.ReplaceAllString(content, "$2")
}

func fixInlineCode(s string) string {
	// Replace: \x1b[44;3m...text...\x1b[0m (Blue BG + Italic)
	// With:    \x1b[31m...text...\x1b[0m (Red text)
	return inlineCodeRegex.ReplaceAllString(s, "\x1b[31m$1\x1b[0m")
}

func fixMarkdownLinks(s string) string {
	redColor := "\x1b[31m"
	reset := "\x1b[0m"

	lines := strings.Split(s, "\n")

	for i, line := range lines {
		// Skip code blocks (they have ┃ prefix from the renderer)
		if !strings.Contains(line, "┃") {
			lines[i] = urlRegex.ReplaceAllString(line, redColor+"$1"+reset)
		}
	}

	return strings.Join(lines, "\n")
}

func frameCodeBlocks(s string, width int) string {
	lines := strings.Split(s, "\n")
	var result []string
	var codeBlockLines []string
	inCodeBlock := false

	darkGray := "\x1b[90m"
	reset := "\x1b[0m"

	for _, line := range lines {
		// Code block lines carry the renderer's ┃ prefix
		if strings.Contains(line, "┃") {
			if !inCodeBlock {
				inCodeBlock = true
				codeBlockLines = []string{}
				result = append(result, "") // top margin, outside border

				// Top border with [code] label centered
				label := "[code]"
				lineLen := width - 4
				leftLen := (lineLen - len(label)) / 2
				if leftLen < 0 {
					leftLen = 0
				}
				rightLen := lineLen - len(label) - leftLen
				if rightLen < 0 {
					rightLen = 0
				}
				border := darkGray + strings.Repeat("━", leftLen) + reset + label + darkGray + strings.Repeat("━", rightLen) + reset

				result = append(result, border)
				result = append(result, "") // top padding, inside border
			}

			codeBlockLines = append(codeBlockLines, stripCodeBlockPrefix(line))

		} else {
			if inCodeBlock {
				result = append(result, codeBlockLines...)
				result = append(result, "")
				border := darkGray + strings.Repeat("━", width-4) + reset
				result = append(result, border)
				result = append(result, "")

				codeBlockLines = nil
				inCodeBlock = false
			}
			result = append(result, line)
		}
	}

	// Code block at end of content
	if inCodeBlock && len(codeBlockLines) > 0 {
		result = append(result, codeBlockLines...)
		result = append(result, "")
		border := darkGray + strings.Repeat("━", width-4) + reset
		result = append(result, border)
		result = append(result, "")
	}

	return strings.Join(result, "\n")
}

func stripCodeBlockPrefix(line string) string {
	idx := strings.Index(line, "┃")
	if idx >= 0 {
		after := idx + len("┃")
		if after < len(line) && line[after] == ' ' {
			after++
		}
		if after < len(line) {
			return line[after:]
		}
		return ""
	}
	return line
}

func (a AppView) renderMarkdownAsync(messageIndex int, content string) tea.Cmd {
	width := a.width
	return func() tea.Msg {
		if config.DebugLog != nil {
			config.DebugLog.Printf("[UI] rendering markdown for message %d: %d chars", messageIndex, len(content))
		}
		startTime := time.Now()

		content = preprocessLinks(content)

		// Disable the autolink extension so plain URLs stay plain text and
		// the terminal emulator handles URL detection
		defaultExt := markdown.Extensions()
		customExt := defaultExt &^ parser.Autolink
		p := parser.NewWithExtensions(customExt)
		r := markdown.NewRenderer(width-4, 0)
		doc := p.Parse([]byte(content))
		rendered := gomarkdown.Render(doc, r)

		processed := postProcessMarkdown(string(rendered), width)

		if config.DebugLog != nil {
			config.DebugLog.Printf("[UI] markdown rendered in %v", time.Since(startTime))
		}

		return markdownRenderedMsg{
			MessageIndex: messageIndex,
			Rendered:     processed,
		}
	}
}

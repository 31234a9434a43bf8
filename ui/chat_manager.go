package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	"parley/storage"
)

func (a AppView) renderChatManager(currentChatID string) string {
	modalWidth := a.width - 10
	if modalWidth > 110 {
		modalWidth = 110
	}
	modalHeight := a.height - 6

	if a.confirmDelete != nil {
		warning := lipgloss.NewStyle().Foreground(dangerColor).Render("This action cannot be undone.")
		msg := fmt.Sprintf("Delete \"%s\"?\n\n%s", a.confirmDelete.Title, warning)
		var lines []string
		centered := lipgloss.NewStyle().Width(60).Align(lipgloss.Center)
		for _, line := range strings.Split(msg, "\n") {
			lines = append(lines, centered.Render(line))
		}
		return RenderThreeSectionModal(
			"⚠ Delete Chat",
			lines,
			FormatFooter("y", "Delete", "n", "Cancel"),
			ModalTypeWarning,
			60,
			a.width, a.height,
		)
	}

	if a.chatExportMode {
		return a.renderExportPrompt()
	}

	titleSection := lipgloss.NewStyle().
		Bold(true).
		Align(lipgloss.Center).
		Width(modalWidth).
		Render("Chat Manager")

	// Header: show filter input or count
	var header string
	if a.chatFilterMode {
		header = a.chatFilterInput.View()
	} else {
		displayList := a.getChatList()
		if len(a.chatList) == len(displayList) {
			header = fmt.Sprintf("%d chats", len(a.chatList))
		} else {
			header = fmt.Sprintf("%d of %d chats", len(displayList), len(a.chatList))
		}
	}

	headerSection := lipgloss.NewStyle().
		Foreground(dimColor).
		Align(lipgloss.Center).
		Width(modalWidth).
		BorderTop(true).
		BorderBottom(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(dimColor).
		Render(header)

	displayList := a.getChatList()

	var chatLines []string
	maxLines := modalHeight - 8 // Reserve space for title, borders, header, footer

	if len(displayList) == 0 {
		emptyMsg := "No chats yet. Start chatting to create one!"
		if a.chatFilterMode {
			emptyMsg = "No matches found"
		}
		chatLines = append(chatLines, lipgloss.NewStyle().
			Foreground(dimColor).
			Italic(true).
			Align(lipgloss.Center).
			Width(modalWidth).
			Render(emptyMsg))
	} else {
		startIdx := 0
		endIdx := len(displayList)

		// Scroll if needed
		if len(displayList) > maxLines {
			if a.selectedChatIdx < maxLines/2 {
				endIdx = maxLines
			} else if a.selectedChatIdx >= len(displayList)-maxLines/2 {
				startIdx = len(displayList) - maxLines
			} else {
				startIdx = a.selectedChatIdx - maxLines/2
				endIdx = startIdx + maxLines
			}
		}

		for i := startIdx; i < endIdx && i < len(displayList); i++ {
			chatLines = append(chatLines, a.renderChatLine(displayList[i], i, currentChatID, modalWidth))
		}
	}

	emptyLine := strings.Repeat(" ", modalWidth)
	chatLines = append([]string{emptyLine}, chatLines...)
	chatLines = append(chatLines, emptyLine)

	var footerText string
	if a.chatRenameMode {
		footerText = FormatFooter("Enter", "Save", "Esc", "Cancel")
	} else if a.chatFilterMode {
		footerText = FormatFooter("Type", "to filter", "Alt+J/K", "Navigate", "Enter", "Load", "Esc", "Cancel")
	} else {
		footerText = FormatFooter("/", "Filter", "j/k", "Navigate", "Enter", "Load", "n", "New", "r", "Rename", "x", "Export", "d", "Delete", "Esc", "Exit")
	}
	footerSection := lipgloss.NewStyle().
		Align(lipgloss.Center).
		Width(modalWidth).
		BorderTop(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(dimColor).
		Render(footerText)

	sections := []string{titleSection, headerSection}
	sections = append(sections, chatLines...)
	sections = append(sections, footerSection)

	content := strings.Join(sections, "\n")

	return lipgloss.NewStyle().
		Width(a.width).
		Height(a.height).
		Align(lipgloss.Center, lipgloss.Center).
		Render(content)
}

func (a AppView) renderChatLine(chat storage.ChatMetadata, i int, currentChatID string, modalWidth int) string {
	indicator := "  "
	if i == a.selectedChatIdx {
		indicator = "▶ "
	}

	title := chat.Title
	maxTitleWidth := modalWidth - 40 // Reserve space for metadata + padding

	var titleDisplay string
	if a.chatRenameMode && i == a.selectedChatIdx {
		titleDisplay = lipgloss.NewStyle().
			Foreground(accentColor).
			Bold(true).
			Render(a.chatRenameInput.View())
	} else {
		if len(title) > maxTitleWidth {
			title = title[:maxTitleWidth-3] + "..."
		}
		titleDisplay = title
	}

	hasCurrentMarker := chat.ID == currentChatID && !a.chatRenameMode

	msgCount := fmt.Sprintf("%d msgs", chat.MessageCount)
	if chat.MessageCount == 1 {
		msgCount = "1 msg"
	}

	// Model column, base name only
	model := chat.Model
	if idx := strings.IndexByte(model, ':'); idx >= 0 {
		model = model[:idx]
	}
	if len(model) > 12 {
		model = model[:12]
	}

	timeAgo := formatTimeAgo(chat.UpdatedAt)

	titleStyled := titleDisplay
	if i == a.selectedChatIdx {
		titleStyled = lipgloss.NewStyle().Foreground(successColor).Bold(true).Render(titleDisplay)
	} else if chat.ID == currentChatID {
		titleStyled = lipgloss.NewStyle().Foreground(accentColor).Bold(true).Render(titleDisplay)
	}

	leftSide := indicator + titleStyled
	rightSide := fmt.Sprintf("%s  %12s  %8s", msgCount, model, timeAgo)

	// Spacing uses visual width, not the ANSI-styled string length
	leftVisualWidth := len(indicator) + len(titleDisplay)
	if a.chatRenameMode && i == a.selectedChatIdx {
		leftVisualWidth = len(indicator) + len(a.chatRenameInput.Value()) + 2
	}
	spacing := modalWidth - 4 - leftVisualWidth - len(rightSide)
	if hasCurrentMarker {
		spacing -= 10 // " (current)"
	}
	if spacing < 2 {
		spacing = 2
	}

	if hasCurrentMarker {
		markerColor := accentColor
		if i == a.selectedChatIdx {
			markerColor = successColor
		}
		leftSide += " " + lipgloss.NewStyle().Foreground(markerColor).Render("(current)")
	}

	rightStyled := rightSide
	if i == a.selectedChatIdx {
		rightStyled = lipgloss.NewStyle().Foreground(successColor).Bold(true).Render(rightSide)
	} else if chat.ID == currentChatID {
		rightStyled = lipgloss.NewStyle().Foreground(accentColor).Bold(true).Render(rightSide)
	}

	line := fmt.Sprintf("  %s%s%s  ", leftSide, strings.Repeat(" ", spacing), rightStyled)
	return lipgloss.NewStyle().Width(modalWidth).Render(line)
}

func (a AppView) renderExportPrompt() string {
	if a.chatExportDone != "" {
		return RenderAcknowledgeModal(
			"✅ Chat Exported",
			"Saved to "+a.chatExportDone,
			ModalTypeInfo,
			a.width, a.height,
		)
	}

	modalWidth := 70
	leftStyle := lipgloss.NewStyle().Width(modalWidth).Align(lipgloss.Left)

	lines := []string{
		leftStyle.Render("Export chat to JSON file:"),
		strings.Repeat(" ", modalWidth),
		leftStyle.Render("  " + a.chatExportInput.View()),
	}

	return RenderThreeSectionModal(
		"📤 Export Chat",
		lines,
		FormatFooter("Enter", "Export", "Esc", "Cancel"),
		ModalTypeInfo,
		modalWidth,
		a.width, a.height,
	)
}

func (a AppView) handleChatManagerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Delete confirmation takes over all keys
	if a.confirmDelete != nil {
		switch msg.String() {
		case "y", "Y", "enter":
			chatID := a.confirmDelete.ID
			a.confirmDelete = nil
			return a, a.dataModel.DeleteChatCmd(chatID)
		default:
			a.confirmDelete = nil
			return a, nil
		}
	}

	if a.chatExportMode {
		return a.handleExportKey(msg)
	}

	if a.chatRenameMode {
		return a.handleRenameKey(msg)
	}

	if a.chatFilterMode {
		return a.handleChatFilterKey(msg)
	}

	displayList := a.getChatList()

	switch msg.String() {
	case "esc":
		a.showChatManager = false
		a.filteredChatList = nil
		return a, nil

	case "j", "down":
		if a.selectedChatIdx < len(displayList)-1 {
			a.selectedChatIdx++
		}
		return a, nil

	case "k", "up":
		if a.selectedChatIdx > 0 {
			a.selectedChatIdx--
		}
		return a, nil

	case "enter":
		if a.selectedChatIdx < len(displayList) {
			return a, a.dataModel.LoadChat(displayList[a.selectedChatIdx].ID)
		}
		return a, nil

	case "/":
		a.chatFilterMode = true
		a.chatFilterInput = textinput.New()
		a.chatFilterInput.Prompt = "Filter: "
		a.chatFilterInput.CharLimit = 64
		a.chatFilterInput.Focus()
		a.filteredChatList = nil
		return a, nil

	case "n":
		a.showChatManager = false
		return a.startNewChat()

	case "r":
		if a.selectedChatIdx < len(displayList) {
			a.chatRenameMode = true
			a.chatRenameInput = textinput.New()
			a.chatRenameInput.CharLimit = 100
			a.chatRenameInput.SetValue(displayList[a.selectedChatIdx].Title)
			a.chatRenameInput.CursorEnd()
			a.chatRenameInput.Focus()
		}
		return a, nil

	case "x":
		if a.selectedChatIdx < len(displayList) {
			a.chatExportMode = true
			a.chatExportDone = ""
			a.chatExportInput = textinput.New()
			a.chatExportInput.CharLimit = 200
			a.chatExportInput.SetValue(defaultExportPath(displayList[a.selectedChatIdx].Title))
			a.chatExportInput.CursorEnd()
			a.chatExportInput.Focus()
		}
		return a, nil

	case "d":
		if a.selectedChatIdx < len(displayList) {
			chat := displayList[a.selectedChatIdx]
			a.confirmDelete = &chat
		}
		return a, nil
	}

	return a, nil
}

func (a AppView) handleChatFilterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.chatFilterMode = false
		a.chatFilterInput.Blur()
		a.filteredChatList = nil
		a.selectedChatIdx = 0
		return a, nil

	case "enter":
		displayList := a.getChatList()
		if a.selectedChatIdx < len(displayList) {
			a.chatFilterMode = false
			a.chatFilterInput.Blur()
			a.filteredChatList = nil
			return a, a.dataModel.LoadChat(displayList[a.selectedChatIdx].ID)
		}
		return a, nil

	case "alt+j":
		if a.selectedChatIdx < len(a.getChatList())-1 {
			a.selectedChatIdx++
		}
		return a, nil

	case "alt+k":
		if a.selectedChatIdx > 0 {
			a.selectedChatIdx--
		}
		return a, nil
	}

	var cmd tea.Cmd
	a.chatFilterInput, cmd = a.chatFilterInput.Update(msg)
	a.filteredChatList = filterChats(a.chatList, a.chatFilterInput.Value())
	a.selectedChatIdx = 0
	return a, cmd
}

func (a AppView) handleRenameKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.chatRenameMode = false
		a.chatRenameInput.Blur()
		return a, nil

	case "enter":
		newTitle := strings.TrimSpace(a.chatRenameInput.Value())
		a.chatRenameMode = false
		a.chatRenameInput.Blur()
		displayList := a.getChatList()
		if newTitle == "" || a.selectedChatIdx >= len(displayList) {
			return a, nil
		}
		chat := displayList[a.selectedChatIdx]
		if a.dataModel.CurrentChat != nil && a.dataModel.CurrentChat.ID == chat.ID {
			a.dataModel.CurrentChat.Title = newTitle
		}
		return a, a.dataModel.RenameChatCmd(chat.ID, newTitle)
	}

	var cmd tea.Cmd
	a.chatRenameInput, cmd = a.chatRenameInput.Update(msg)
	return a, cmd
}

func (a AppView) handleExportKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Success screen: any key dismisses
	if a.chatExportDone != "" {
		a.chatExportMode = false
		a.chatExportDone = ""
		return a, nil
	}

	switch msg.String() {
	case "esc":
		a.chatExportMode = false
		a.chatExportInput.Blur()
		return a, nil

	case "enter":
		path := strings.TrimSpace(a.chatExportInput.Value())
		displayList := a.getChatList()
		if path == "" || a.selectedChatIdx >= len(displayList) {
			return a, nil
		}
		return a, a.dataModel.ExportChatCmd(displayList[a.selectedChatIdx].ID, path)
	}

	var cmd tea.Cmd
	a.chatExportInput, cmd = a.chatExportInput.Update(msg)
	return a, cmd
}

// filterChats fuzzy-matches chat titles against the query, preserving
// rank order from the matcher.
func filterChats(chats []storage.ChatMetadata, query string) []storage.ChatMetadata {
	if query == "" {
		return nil
	}
	titles := make([]string, len(chats))
	for i, c := range chats {
		titles[i] = c.Title
	}
	matches := fuzzy.Find(query, titles)
	filtered := make([]storage.ChatMetadata, 0, len(matches))
	for _, m := range matches {
		filtered = append(filtered, chats[m.Index])
	}
	return filtered
}

func defaultExportPath(title string) string {
	slug := strings.ToLower(strings.TrimSpace(title))
	slug = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r == ' ', r == '-', r == '_':
			return '-'
		}
		return -1
	}, slug)
	if slug == "" {
		slug = "chat"
	}
	if len(slug) > 40 {
		slug = slug[:40]
	}
	return "~/" + slug + ".json"
}

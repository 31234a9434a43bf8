package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"parley/config"
	appmodel "parley/model"
)

func (a AppView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		cmd  tea.Cmd
		cmds []tea.Cmd
	)

	// Update spinner FIRST to handle TickMsg before anything else
	if a.dataModel.Streaming && len(a.dataModel.Messages) > 0 && a.dataModel.Messages[len(a.dataModel.Messages)-1].Role == "system" {
		a.loadingSpinner, cmd = a.loadingSpinner.Update(msg)
		cmds = append(cmds, cmd)
		a.updateViewportContent(true)
	}

	if a.executingTool != "" {
		a.toolExecutionSpinner, cmd = a.toolExecutionSpinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height

		// Title (1 line), separator (1), textarea (3), status bar (1)
		a.viewport.Width = a.width
		a.viewport.Height = a.height - 6
		a.textarea.SetWidth(a.width)

		a.ready = true
		a.updateViewportContent(true)

		if a.dataModel.NeedsInitialRender {
			a.dataModel.NeedsInitialRender = false
			var renderCmds []tea.Cmd
			for i := len(a.dataModel.Messages) - 1; i >= 0; i-- {
				m := a.dataModel.Messages[i]
				if m.Role != "assistant" && m.Role != "user" {
					continue
				}
				// Skip if already rendered (cached from disk)
				if m.Rendered != "" && m.Rendered != m.Content {
					continue
				}
				renderCmds = append(renderCmds, a.renderMarkdownAsync(i, m.Text()))
			}
			return a, tea.Batch(renderCmds...)
		}

		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)

	case turnResultMsg:
		return a.handleTurnResult(msg)

	case displayChunkTickMsg:
		return a.handleChunkTick()

	case flashTickMsg:
		if a.highlightFlashCount > 0 && a.highlightFlashCount < 6 {
			a.highlightFlashCount++
			a.updateViewportContent(false)
			return a, tea.Tick(300*time.Millisecond, func(time.Time) tea.Msg {
				return flashTickMsg{}
			})
		}
		a.highlightedMessageIdx = -1
		a.highlightFlashCount = 0
		a.updateViewportContent(false)
		return a, nil

	case markdownRenderedMsg:
		if msg.MessageIndex >= 0 && msg.MessageIndex < len(a.dataModel.Messages) {
			a.dataModel.Messages[msg.MessageIndex].Rendered = msg.Rendered
			a.updateViewportContent(a.highlightedMessageIdx < 0)
		}
		return a, nil

	case modelsListMsg:
		if msg.Err != nil {
			if config.DebugLog != nil {
				config.DebugLog.Printf("[UI] error fetching models: %v", msg.Err)
			}
			return a, nil
		}
		a.modelList = msg.Models
		return a, nil

	case chatsListMsg:
		if msg.Err != nil {
			if config.DebugLog != nil {
				config.DebugLog.Printf("[UI] error fetching chats: %v", msg.Err)
			}
			return a, nil
		}
		a.chatList = msg.Chats
		a.selectedChatIdx = 0
		if a.showChatManager && a.dataModel.CurrentChat != nil {
			for i, chat := range msg.Chats {
				if chat.ID == a.dataModel.CurrentChat.ID {
					a.selectedChatIdx = i
					break
				}
			}
		}
		return a, nil

	case chatLoadedMsg:
		if msg.Err != nil {
			a.showInfoModal = true
			a.infoModalTitle = "Failed to Load Chat"
			a.infoModalMsg = msg.Err.Error()
			return a, nil
		}
		a.dataModel.ApplyLoadedChat(msg.Chat)
		a.orchestrator.SetProvider(a.dataModel.Provider)
		a.showChatManager = false
		if a.dataModel.ChatStore != nil {
			a.dataModel.ChatStore.SaveCurrentChatID(msg.Chat.ID)
		}
		a.suggester.SeedHistory(userPrompts(a.dataModel.Messages))
		a.updateViewportContent(true)

		if a.pendingScrollToMessageIdx >= 0 && a.pendingScrollToMessageIdx < len(a.dataModel.Messages) {
			a.highlightedMessageIdx = a.pendingScrollToMessageIdx
			a.highlightFlashCount = 1
			a.pendingScrollToMessageIdx = -1
			a.updateViewportContent(false)
			return a, tea.Tick(300*time.Millisecond, func(time.Time) tea.Msg {
				return flashTickMsg{}
			})
		}
		return a, nil

	case chatSavedMsg:
		if msg.Err != nil && config.DebugLog != nil {
			config.DebugLog.Printf("[UI] chat save failed: %v", msg.Err)
		}
		if msg.Err == nil {
			a.dataModel.ChatDirty = false
		}
		return a, nil

	case chatRenamedMsg:
		if msg.Err != nil {
			a.showInfoModal = true
			a.infoModalTitle = "Rename Failed"
			a.infoModalMsg = msg.Err.Error()
		}
		return a, nil

	case chatDeletedMsg:
		if msg.Err != nil {
			a.showInfoModal = true
			a.infoModalTitle = "Delete Failed"
			a.infoModalMsg = msg.Err.Error()
			return a, nil
		}
		if a.dataModel.CurrentChat != nil && a.dataModel.CurrentChat.ID == msg.ChatID {
			a.dataModel.NewChat()
			a.updateViewportContent(true)
		}
		return a, a.dataModel.FetchChatList()

	case chatExportedMsg:
		if msg.Err != nil {
			a.showInfoModal = true
			a.infoModalTitle = "Export Failed"
			a.infoModalMsg = msg.Err.Error()
			return a, nil
		}
		if a.showChatManager {
			a.chatExportDone = msg.Path
			return a, nil
		}
		a.showInfoModal = true
		a.infoModalTitle = "✅ Chat Exported"
		a.infoModalMsg = "Saved to " + msg.Path
		return a, nil

	case searchResultsMsg:
		if msg.Err == nil {
			a.searchResults = msg.Results
			a.selectedSearch = 0
			a.searchScrollIdx = 0
		}
		return a, nil

	}

	// Forward remaining messages to components
	a.textarea, cmd = a.textarea.Update(msg)
	cmds = append(cmds, cmd)
	a.viewport, cmd = a.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return a, tea.Batch(cmds...)
}

func (a AppView) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Always-global quit
	if msg.String() == "alt+q" {
		return a, a.quit()
	}

	// Modal toggle shortcuts
	switch msg.String() {
	case "alt+h":
		a.showHelp = !a.showHelp
		return a, nil

	case "alt+n":
		if !a.dataModel.Streaming {
			return a.startNewChat()
		}
		return a, nil

	case "alt+s":
		wasOpen := a.showChatManager
		a.closeAllModals()
		a.showChatManager = !wasOpen
		if a.showChatManager {
			return a, a.dataModel.FetchChatList()
		}
		return a, nil

	case "alt+m":
		wasOpen := a.showModelSelector
		a.closeAllModals()
		a.showModelSelector = !wasOpen
		if a.showModelSelector && a.dataModel.Provider != nil {
			current := a.dataModel.Provider.GetModel()
			for i, m := range a.modelList {
				if m.Name == current {
					a.selectedModelIdx = i
					break
				}
			}
		}
		return a, nil

	case "alt+f":
		wasOpen := a.showSearch
		a.closeAllModals()
		a.showSearch = !wasOpen
		if a.showSearch {
			a.searchInput.Focus()
			a.searchInput.SetValue("")
			a.searchResults = nil
			a.selectedSearch = 0
			return a, nil
		}
		return a, nil

	case "alt+a":
		wasOpen := a.showAbout
		a.closeAllModals()
		a.showAbout = !wasOpen
		return a, nil
	}

	// Modal-specific handling, order matches View layering
	if a.showInfoModal {
		a.showInfoModal = false
		a.infoModalTitle = ""
		a.infoModalMsg = ""
		return a, nil
	}

	if a.pausedTurn != nil {
		return a.handleApprovalKey(msg)
	}

	if a.showHelp {
		if msg.String() == "esc" {
			a.showHelp = false
		}
		return a, nil
	}

	if a.showModelSelector {
		return a.handleModelSelectorKey(msg)
	}

	if a.showChatManager {
		return a.handleChatManagerKey(msg)
	}

	if a.showSearch {
		return a.handleSearchKey(msg)
	}

	if a.showAbout {
		if msg.String() == "esc" || msg.String() == "enter" {
			a.showAbout = false
		}
		return a, nil
	}

	// Tab accepts the autocomplete suggestion
	if msg.String() == "tab" && !a.dataModel.Streaming {
		return a.acceptSuggestion()
	}

	if msg.String() == "up" && len(a.suggestions) > 0 {
		if a.selectedSuggestion > 0 {
			a.selectedSuggestion--
		}
		return a, nil
	}
	if msg.String() == "down" && len(a.suggestions) > 0 {
		if a.selectedSuggestion < len(a.suggestions)-1 {
			a.selectedSuggestion++
		}
		return a, nil
	}

	// Esc cancels a streaming turn
	if msg.String() == "esc" {
		if a.dataModel.Streaming {
			return a.cancelStreaming()
		}
		if len(a.suggestions) > 0 {
			a.suggestions = nil
			a.suppressSuggestions = true
			return a, nil
		}
		return a, nil
	}

	// Enter sends; Alt+Enter inserts a newline via the textarea keymap
	if msg.Type == tea.KeyEnter && !msg.Alt && !a.dataModel.Streaming {
		if len(a.suggestions) > 0 && strings.HasPrefix(a.textarea.Value(), "/") {
			// Enter on a command suggestion accepts it first
			a.textarea.SetValue(a.suggestions[a.selectedSuggestion].Text)
			a.suggestions = nil
		}
		if a.textarea.Value() != "" {
			return a.sendMessage()
		}
		return a, nil
	}

	switch msg.String() {
	case "alt+y":
		// Copy last assistant message
		for i := len(a.dataModel.Messages) - 1; i >= 0; i-- {
			if a.dataModel.Messages[i].Role == "assistant" {
				clipboard.WriteAll(a.dataModel.Messages[i].Text())
				return a, nil
			}
		}
		return a, nil

	case "alt+c":
		// Copy whole transcript
		var allText strings.Builder
		for _, m := range a.dataModel.Messages {
			role := m.Role
			switch role {
			case "user":
				role = "You"
			case "assistant":
				role = "Assistant"
			}
			allText.WriteString(fmt.Sprintf("[%s] %s:\n%s\n\n",
				m.Timestamp.Format("15:04"),
				role,
				m.Text()))
		}
		clipboard.WriteAll(allText.String())
		return a, nil

	case "alt+j", "alt+down":
		a.viewport.HalfPageDown()
		return a, nil

	case "alt+k", "alt+up":
		a.viewport.HalfPageUp()
		return a, nil

	case "pgdown":
		a.viewport.PageDown()
		return a, nil

	case "pgup":
		a.viewport.PageUp()
		return a, nil

	case "alt+g":
		a.viewport.GotoTop()
		return a, nil

	case "alt+G":
		a.viewport.GotoBottom()
		return a, nil
	}

	// Default: let the textarea process the key, then refresh suggestions
	var cmd tea.Cmd
	a.textarea, cmd = a.textarea.Update(msg)
	a.refreshSuggestions()
	return a, cmd
}

func (a AppView) sendMessage() (tea.Model, tea.Cmd) {
	input := strings.TrimSpace(a.textarea.Value())
	a.textarea.Reset()
	a.suggestions = nil
	a.suppressSuggestions = false

	if input == "" {
		return a, nil
	}

	if strings.HasPrefix(input, "/") {
		return a.runSlashCommand(input)
	}

	if ok, reason := a.dataModel.CanSendMessage(); !ok {
		a.appendSystemNotice(reason)
		a.updateViewportContent(true)
		return a, nil
	}

	a.suggester.AddPrompt(input)

	a.dataModel.AppendMessages(Message{
		Role:      "user",
		Content:   input,
		Rendered:  input, // plain text until the async render lands
		Timestamp: time.Now(),
	})
	userIdx := len(a.dataModel.Messages) - 1

	a.loadingSpinner = spinner.New()
	a.loadingSpinner.Spinner = spinner.Dot
	a.loadingSpinner.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))

	a.appendSystemNotice("Waiting for response...")
	a.dataModel.Streaming = true
	a.toolTurns = 0
	a.orchestrator.ResetCancel()
	a.updateViewportContent(true)

	if config.DebugLog != nil {
		config.DebugLog.Printf("[UI] sending message: %d chars", len(input))
	}

	return a, tea.Batch(
		a.renderMarkdownAsync(userIdx, input),
		a.runTurnCmd(a.dataModel.BuildAPIHistory(), a.dataModel.AvailableTools()),
		a.loadingSpinner.Tick,
	)
}

func (a AppView) runSlashCommand(input string) (tea.Model, tea.Cmd) {
	fields := strings.Fields(input)
	cmd, rest := fields[0], strings.TrimSpace(strings.TrimPrefix(input, fields[0]))

	switch cmd {
	case "/new":
		return a.startNewChat()

	case "/chats":
		a.closeAllModals()
		a.showChatManager = true
		return a, a.dataModel.FetchChatList()

	case "/model":
		a.closeAllModals()
		a.showModelSelector = true
		return a, nil

	case "/rename":
		if rest == "" {
			a.appendSystemNotice("Usage: /rename <new title>")
			a.updateViewportContent(true)
			return a, nil
		}
		if a.dataModel.CurrentChat == nil {
			a.appendSystemNotice("No chat to rename yet.")
			a.updateViewportContent(true)
			return a, nil
		}
		a.dataModel.CurrentChat.Title = rest
		return a, a.dataModel.RenameChatCmd(a.dataModel.CurrentChat.ID, rest)

	case "/export":
		if a.dataModel.CurrentChat == nil {
			a.appendSystemNotice("No chat to export yet.")
			a.updateViewportContent(true)
			return a, nil
		}
		path := rest
		if path == "" {
			path = fmt.Sprintf("~/parley-export-%s.json", time.Now().Format("20060102-150405"))
		}
		return a, a.dataModel.ExportChatCmd(a.dataModel.CurrentChat.ID, path)

	case "/yolo":
		enabled, err := a.dataModel.Approvals.Yolo()
		if err == nil {
			err = a.dataModel.Approvals.SetYolo(!enabled)
		}
		if err != nil {
			a.appendSystemNotice(fmt.Sprintf("Failed to toggle auto-approve: %v", err))
		} else if !enabled {
			a.appendSystemNotice("Auto-approve enabled: all tool calls run without prompting. Any per-tool decision turns it off.")
		} else {
			a.appendSystemNotice("Auto-approve disabled.")
		}
		a.updateViewportContent(true)
		return a, nil

	case "/help":
		a.showHelp = true
		return a, nil

	case "/quit":
		return a, a.quit()

	default:
		a.appendSystemNotice(fmt.Sprintf("Unknown command %q. Try /help.", cmd))
		a.updateViewportContent(true)
		return a, nil
	}
}

func (a AppView) startNewChat() (tea.Model, tea.Cmd) {
	a.closeAllModals()
	var cmds []tea.Cmd
	if a.dataModel.ChatDirty {
		if cmd := a.dataModel.AutoSaveChat(); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	a.dataModel.NewChat()
	a.dataModel.SwitchToDefaultProvider()
	a.orchestrator.SetProvider(a.dataModel.Provider)
	a.textarea.Reset()
	a.suggestions = nil
	a.updateViewportContent(true)
	return a, tea.Batch(cmds...)
}

func (a AppView) cancelStreaming() (tea.Model, tea.Cmd) {
	a.orchestrator.Cancel()
	a.dataModel.Streaming = false
	a.executingTool = ""

	partial := a.currentResp.String()

	if n := len(a.dataModel.Messages); n > 0 && a.dataModel.Messages[n-1].Role == "system" {
		a.dataModel.Messages = a.dataModel.Messages[:n-1]
	}

	if partial != "" {
		a.dataModel.AppendMessages(Message{
			Role:      "assistant",
			Content:   partial + "\n\n(cancelled)",
			Rendered:  partial + "\n\n(cancelled)",
			Timestamp: time.Now(),
		})
	} else {
		a.appendSystemNotice("Request cancelled")
	}

	a.chunks = nil
	a.chunkIndex = 0
	a.pendingResult = nil
	a.currentResp.Reset()

	a.updateViewportContent(true)
	return a, nil
}

func (a *AppView) quit() tea.Cmd {
	a.dataModel.Quitting = true
	var cmds []tea.Cmd
	if a.dataModel.ChatDirty {
		if cmd := a.dataModel.AutoSaveChat(); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	cmds = append(cmds, tea.Quit)
	return tea.Sequence(cmds...)
}

func (a *AppView) appendSystemNotice(text string) {
	a.dataModel.Messages = append(a.dataModel.Messages, Message{
		Role:      "system",
		Content:   text,
		Rendered:  text,
		Timestamp: time.Now(),
	})
}

func userPrompts(messages []Message) []string {
	var prompts []string
	for _, m := range messages {
		if m.Role == appmodel.RoleUser {
			prompts = append(prompts, m.Text())
		}
	}
	return prompts
}

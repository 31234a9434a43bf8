package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"parley/complete"
	appmodel "parley/model"
	"parley/storage"
	"parley/turn"
)

// maxToolTurns caps chained completed-with-tools turns triggered by a single
// user message.
const maxToolTurns = 8

type AppView struct {
	// Core data model and turn state machine
	dataModel    *appmodel.Model
	orchestrator *turn.Orchestrator

	// UI components
	viewport viewport.Model
	textarea textarea.Model

	// Window state
	width  int
	height int
	ready  bool

	// Streaming UI state
	currentResp *strings.Builder // pointer to avoid copy panic
	showHelp    bool

	// Typewriter effect
	chunks     []string
	chunkIndex int

	// Deferred turn result: applied once the typewriter finishes
	pendingResult *turnResultMsg
	toolTurns     int

	loadingSpinner spinner.Model

	// Approval prompt state
	pausedTurn *turn.PausedState

	// Tool execution indicator
	executingTool        string
	toolExecutionSpinner spinner.Model

	// Model selector
	showModelSelector bool
	modelList         []appmodel.ModelInfo
	selectedModelIdx  int
	modelFilterMode   bool
	modelFilterInput  textinput.Model
	filteredModelList []appmodel.ModelInfo

	// Chat manager
	showChatManager  bool
	chatList         []storage.ChatMetadata
	selectedChatIdx  int
	chatRenameMode   bool
	chatRenameInput  textinput.Model
	chatFilterMode   bool
	chatFilterInput  textinput.Model
	filteredChatList []storage.ChatMetadata
	chatExportMode   bool
	chatExportInput  textinput.Model
	chatExportDone   string // export path on success
	confirmDelete    *storage.ChatMetadata

	// Global message search
	showSearch      bool
	searchInput     textinput.Model
	searchResults   []storage.MessageMatch
	selectedSearch  int
	searchScrollIdx int

	highlightedMessageIdx     int
	highlightFlashCount       int
	pendingScrollToMessageIdx int

	// Prompt autocomplete
	suggester           *complete.Suggester
	suggestions         []complete.Suggestion
	selectedSuggestion  int
	suppressSuggestions bool

	// Info modal (simple notifications/errors)
	showInfoModal  bool
	infoModalTitle string
	infoModalMsg   string

	showAbout bool
}

func NewAppView(m *appmodel.Model, orch *turn.Orchestrator) AppView {
	ta := textarea.New()
	ta.Placeholder = "Type a message, or / for commands..."
	ta.Focus()
	ta.CharLimit = 0
	ta.ShowLineNumbers = false
	ta.SetHeight(3)
	ta.SetWidth(80)

	// Alt+Enter inserts a newline; bare Enter sends.
	ta.KeyMap.InsertNewline = key.NewBinding(key.WithKeys("alt+enter"))

	ta.SetPromptFunc(2, func(lineIdx int) string {
		if lineIdx == 0 {
			return "> "
		}
		return "| "
	})

	vp := viewport.New(0, 0)

	chatFilterInput := textinput.New()
	chatFilterInput.Prompt = "Filter: "
	chatFilterInput.CharLimit = 64

	modelFilterInput := textinput.New()
	modelFilterInput.Prompt = "Filter: "
	modelFilterInput.CharLimit = 64

	searchInput := textinput.New()
	searchInput.Prompt = "Search all: "
	searchInput.CharLimit = 100

	toolSpinner := spinner.New()
	toolSpinner.Spinner = spinner.MiniDot
	toolSpinner.Style = lipgloss.NewStyle().Foreground(warningColor)

	suggester := complete.NewSuggester(complete.DefaultCommands)
	for _, msg := range m.Messages {
		if msg.Role == appmodel.RoleUser {
			suggester.AddPrompt(msg.Text())
		}
	}

	return AppView{
		dataModel:                 m,
		orchestrator:              orch,
		textarea:                  ta,
		viewport:                  vp,
		currentResp:               &strings.Builder{},
		toolExecutionSpinner:      toolSpinner,
		chatFilterInput:           chatFilterInput,
		modelFilterInput:          modelFilterInput,
		searchInput:               searchInput,
		suggester:                 suggester,
		highlightedMessageIdx:     -1,
		pendingScrollToMessageIdx: -1,
	}
}

func (a AppView) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		a.dataModel.FetchAllModels(),
	)
}

func (a AppView) View() string {
	if !a.ready {
		return "Loading Parley..."
	}

	// Modal layers, top priority first.
	if a.showInfoModal {
		return RenderAcknowledgeModal(a.infoModalTitle, a.infoModalMsg, ModalTypeInfo, a.width, a.height)
	}

	if a.pausedTurn != nil {
		return a.renderApprovalModal()
	}

	if a.showHelp {
		return renderHelpModal(a.width, a.height)
	}

	if a.showModelSelector {
		current := ""
		if a.dataModel.Provider != nil {
			current = a.dataModel.Provider.GetModel()
		}
		return renderModelSelector(a.modelList, a.selectedModelIdx, current, a.modelFilterMode, a.modelFilterInput, a.filteredModelList, a.width, a.height)
	}

	if a.showChatManager {
		currentChatID := ""
		if a.dataModel.CurrentChat != nil {
			currentChatID = a.dataModel.CurrentChat.ID
		}
		return a.renderChatManager(currentChatID)
	}

	if a.showSearch {
		return renderMessageSearch(a.searchInput, a.searchResults, a.selectedSearch, a.searchScrollIdx, a.width, a.height)
	}

	if a.showAbout {
		return renderAboutModal(a.width, a.height, a.dataModel.Version)
	}

	// Title bar: "Parley - model - chat | status"
	title := AssistantStyle.Render("Parley")
	if a.dataModel.Provider != nil {
		title += TitleStyle.Render(fmt.Sprintf(" - %s", a.dataModel.Provider.GetModel()))
	}
	chatTitle := "New Chat"
	if a.dataModel.CurrentChat != nil && a.dataModel.CurrentChat.Title != "" {
		chatTitle = a.dataModel.CurrentChat.Title
	}
	title += UserStyle.Render(fmt.Sprintf(" - %s", chatTitle))

	if yolo, _ := a.dataModel.Approvals.Yolo(); yolo {
		title += SelectedStyle.Render(" | YOLO")
	}

	if a.executingTool != "" {
		title += TitleStyle.Render(fmt.Sprintf(" | tool: %s %s", a.executingTool, a.toolExecutionSpinner.View()))
	}

	separator := ""

	inputView := a.textarea.View()
	if dropdown := a.renderSuggestions(); dropdown != "" {
		inputView = dropdown + "\n" + inputView
	}

	descStyle := lipgloss.NewStyle().Foreground(successColor).Bold(true)
	statusBar := fmt.Sprintf("Alt+Q %s  Alt+S %s  Alt+M %s  Alt+F %s  Alt+N %s  Enter %s  Tab %s  Alt+Y %s",
		descStyle.Render("Quit"),
		descStyle.Render("Chats"),
		descStyle.Render("Models"),
		descStyle.Render("Search"),
		descStyle.Render("New"),
		descStyle.Render("Send"),
		descStyle.Render("Complete"),
		descStyle.Render("Copy"),
	)
	statusBar = StatusStyle.Render(statusBar)

	return lipgloss.JoinVertical(
		lipgloss.Left,
		title,
		separator,
		a.viewport.View(),
		inputView,
		statusBar,
	)
}

func (a AppView) getChatList() []storage.ChatMetadata {
	if a.chatFilterMode && len(a.filteredChatList) > 0 {
		return a.filteredChatList
	}
	return a.chatList
}

func (a AppView) getModelList() []appmodel.ModelInfo {
	if a.modelFilterMode && len(a.filteredModelList) > 0 {
		return a.filteredModelList
	}
	return a.modelList
}

func (a *AppView) closeAllModals() {
	a.showInfoModal = false
	a.showHelp = false
	a.showChatManager = false
	a.showModelSelector = false
	a.showSearch = false
	a.showAbout = false

	a.chatRenameMode = false
	a.chatExportMode = false
	a.chatFilterMode = false
	a.chatExportDone = ""
	a.confirmDelete = nil

	a.modelFilterMode = false

	if a.chatRenameInput.Focused() {
		a.chatRenameInput.Blur()
	}
	if a.chatExportInput.Focused() {
		a.chatExportInput.Blur()
	}
	if a.chatFilterInput.Focused() {
		a.chatFilterInput.Blur()
	}
	if a.modelFilterInput.Focused() {
		a.modelFilterInput.Blur()
	}
	if a.searchInput.Focused() {
		a.searchInput.Blur()
	}
}

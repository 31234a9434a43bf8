package ui

import (
	"parley/model"
	"parley/turn"
)

// Message type alias so rendering helpers stay terse.
type Message = model.Message

type displayChunkTickMsg = model.DisplayChunkTickMsg
type markdownRenderedMsg = model.MarkdownRenderedMsg
type modelsListMsg = model.ModelsListMsg
type chatsListMsg = model.ChatsListMsg
type chatLoadedMsg = model.ChatLoadedMsg
type chatSavedMsg = model.ChatSavedMsg
type chatRenamedMsg = model.ChatRenamedMsg
type chatDeletedMsg = model.ChatDeletedMsg
type chatExportedMsg = model.ChatExportedMsg
type searchResultsMsg = model.SearchResultsMsg
type flashTickMsg = model.FlashTickMsg

// turnResultMsg carries the turn outcome plus everything the sink
// collected while the turn ran, for typewriter replay.
type turnResultMsg struct {
	Result    turn.Result
	Chunks    []string
	Reasoning string
	Tools     []toolActivity
}

// toolActivity records one resolved tool call for transcript display.
type toolActivity struct {
	Call   model.ToolCall
	Result model.Message
}

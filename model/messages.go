package model

import (
	"parley/storage"
)

type DisplayChunkTickMsg struct{}

type MarkdownRenderedMsg struct {
	MessageIndex int
	Rendered     string
}

type ModelsListMsg struct {
	Models []ModelInfo
	Err    error
}

type ChatsListMsg struct {
	Chats []storage.ChatMetadata
	Err   error
}

type ChatLoadedMsg struct {
	Chat *storage.Chat
	Err  error
}

type ChatSavedMsg struct {
	Err error
}

type ChatRenamedMsg struct {
	Err error
}

type ChatDeletedMsg struct {
	ChatID string
	Err    error
}

type ChatExportedMsg struct {
	Path string
	Err  error
}

type SearchResultsMsg struct {
	Results []storage.MessageMatch
	Err     error
}

type FlashTickMsg struct{}

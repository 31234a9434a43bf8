package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const asciiArt = `
 ____   __   ____  __    ____  _  _
(  _ \ / _\ (  _ \(  )  (  __)( \/ )
 ) __//    \ )   // (_/\ ) _)  )  /
(__)  \_/\_/(__\_)\____/(____)(__/ `

var features = []string{
	"• Chat with OpenAI, Anthropic, and Ollama models",
	"• Run local MCP tools with per-tool approval",
	"• Persistent chat history with full-text search",
	"• Prompt and command autocompletion",
}

func renderAboutModal(width, height int, version string) string {
	var sb strings.Builder

	asciiStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10")).
		Bold(true).
		Align(lipgloss.Center)

	sb.WriteString(asciiStyle.Render(asciiArt))
	sb.WriteString("\n\n\n")

	featureStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("7"))

	for _, feature := range features {
		sb.WriteString(featureStyle.Render(feature))
		sb.WriteString("\n")
	}

	sb.WriteString("\n\n")

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("7"))

	sb.WriteString(labelStyle.Render("Version: "))
	sb.WriteString(valueStyle.Render(version))
	sb.WriteString("\n\n\n")

	sb.WriteString(featureStyle.Render("Press Esc or Enter to close"))
	sb.WriteString("\n")

	content := sb.String()

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("8")).
		Padding(1, 2)

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, boxStyle.Render(content))
}

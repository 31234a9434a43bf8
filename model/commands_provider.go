package model

import (
	"context"
	"sort"

	tea "github.com/charmbracelet/bubbletea"

	"parley/config"
)

// AggregateAllModels fetches and merges model lists from every configured
// provider. A provider that fails to respond is skipped so the others can
// still be shown.
func (m *Model) AggregateAllModels(ctx context.Context) ([]ModelInfo, error) {
	var all []ModelInfo
	for providerID, p := range m.Providers {
		models, err := p.ListModels(ctx)
		if err != nil {
			if config.Debug && config.DebugLog != nil {
				config.DebugLog.Printf("[Model] failed to fetch models from %s: %v", providerID, err)
			}
			continue
		}
		for i := range models {
			if models[i].Provider == "" {
				models[i].Provider = providerID
			}
		}
		all = append(all, models...)
	}

	sort.Slice(all, func(i, j int) bool {
		return all[i].Name < all[j].Name
	})

	return all, nil
}

// FetchAllModels returns a command that lists models from all providers.
func (m *Model) FetchAllModels() tea.Cmd {
	return func() tea.Msg {
		models, err := m.AggregateAllModels(context.Background())
		return ModelsListMsg{Models: models, Err: err}
	}
}

// SwitchModel points the current chat at a different model, switching the
// active provider when the model belongs to another one.
func (m *Model) SwitchModel(info ModelInfo) {
	if m.CurrentChat != nil {
		m.CurrentChat.Model = info.Name
		m.CurrentChat.Provider = info.Provider
		m.ChatDirty = true
	}

	provider, ok := m.Providers[info.Provider]
	if !ok {
		if config.Debug && config.DebugLog != nil {
			config.DebugLog.Printf("[Model] provider %q not available for model %q", info.Provider, info.Name)
		}
		if m.Provider != nil {
			m.Provider.SetModel(info.Name)
		}
		return
	}

	m.Provider = provider
	provider.SetModel(info.Name)

	if config.Debug && config.DebugLog != nil {
		config.DebugLog.Printf("[Model] switched to model %q (provider %s)", info.Name, info.Provider)
	}
}

// SwitchToDefaultProvider resets the active provider and model to the
// configured defaults. Used when starting a fresh chat.
func (m *Model) SwitchToDefaultProvider() {
	provider, ok := m.Providers[m.Config.DefaultProvider]
	if !ok {
		if m.Provider != nil {
			m.Provider.SetModel(m.Config.DefaultModelFor(m.Config.DefaultProvider))
		}
		return
	}

	m.Provider = provider
	provider.SetModel(m.Config.DefaultModelFor(m.Config.DefaultProvider))
}

// CanSendMessage reports whether the active provider can take a message.
func (m *Model) CanSendMessage() (bool, string) {
	if m.Provider == nil {
		return false, "No provider configured. Add an API key or start Ollama, then restart."
	}
	return true, ""
}

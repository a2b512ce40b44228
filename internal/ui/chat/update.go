// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case submitMsg:
		return m, m.submitLine(msg.text)

	case streamEventMsg:
		return m.handleStreamEvent(msg)

	case configReloadedMsg:
		m.reload(msg.cfg)
		return m, waitForReload(m.reloads)

	case spinner.TickMsg:
		if !m.session.Generating() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.session.Partial() == "" {
			m.refresh(false)
		}
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case m.session.Generating() && key.Matches(msg, m.keys.Stop):
		m.stop()
		return m, nil

	case key.Matches(msg, m.keys.Quit):
		m.host.HideWindow()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Submit):
		text := m.input.Value()
		if strings.TrimSpace(text) == "" {
			return m, nil
		}
		// a message typed while generating stays in the box
		if !isCommand(text) && m.session.Generating() {
			return m, nil
		}
		m.input.Reset()
		return m, m.submitLine(text)

	case key.Matches(msg, m.keys.New):
		return m, m.runCommand("/new")

	case key.Matches(msg, m.keys.Clear):
		return m, m.runCommand("/clear")

	case key.Matches(msg, m.keys.Copy):
		return m, m.runCommand("/copy")

	case key.Matches(msg, m.keys.Complete):
		m.complete()
		return m, nil

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.ViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.ViewDown()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submitLine routes a line to the command registry or the session.
func (m *Model) submitLine(text string) tea.Cmd {
	if isCommand(text) {
		return m.runCommand(strings.TrimSpace(text))
	}
	return m.send(text)
}

func isCommand(text string) bool {
	return strings.HasPrefix(strings.TrimSpace(text), "/")
}

func (m Model) handleStreamEvent(msg streamEventMsg) (tea.Model, tea.Cmd) {
	if msg.gen != m.gen {
		return m, nil
	}
	if msg.closed {
		m.session.Stop()
		m.gen = nil
		m.renderer.Reset()
		m.finish()
		m.refresh(false)
		return m, nil
	}

	res := m.session.Handle(msg.gen, msg.ev)
	if !res.Applied {
		return m, nil
	}
	if !res.Done {
		m.refresh(false)
		return m, waitForEvent(msg.gen)
	}

	m.gen = nil
	if res.Err != nil {
		m.err = res.Err
		m.interrupted = res.Message == nil && m.session.Partial() != ""
	}
	m.renderer.Reset()
	m.finish()
	m.refresh(false)
	return m, nil
}

// complete completes the command line in the input box. Several
// candidates extend the line to their common prefix and are listed.
func (m *Model) complete() {
	models := m.session.Settings().Models()
	ids := make([]string, 0, len(models))
	for _, d := range models {
		ids = append(ids, d.Value)
	}

	cands := m.registry.Complete(m.input.Value(), ids)
	switch len(cands) {
	case 0:
		return
	case 1:
		m.input.SetValue(cands[0] + " ")
	default:
		sort.Strings(cands)
		m.input.SetValue(commonPrefix(cands))
		m.output = strings.Join(cands, "  ")
		m.refresh(true)
	}
}

func commonPrefix(values []string) string {
	prefix := values[0]
	for _, v := range values[1:] {
		for !strings.HasPrefix(v, prefix) {
			prefix = prefix[:len(prefix)-1]
		}
	}
	return prefix
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/rigchat/internal/cloud"
	"github.com/jeranaias/rigchat/internal/config"
	"github.com/jeranaias/rigchat/internal/session"
)

// =============================================================================
// MESSAGES
// =============================================================================

// submitMsg submits a line as if typed and sent.
type submitMsg struct {
	text string
}

// streamEventMsg carries one event of a generation. closed is set when
// the channel closed without a terminal event (the stream was cancelled).
type streamEventMsg struct {
	gen    *session.Generation
	ev     cloud.Event
	closed bool
}

// configReloadedMsg carries a config file that changed on disk.
type configReloadedMsg struct {
	cfg *config.Config
}

// =============================================================================
// COMMAND CREATORS
// =============================================================================

// waitForEvent reads the next event of gen.
func waitForEvent(gen *session.Generation) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-gen.Events()
		if !ok {
			return streamEventMsg{gen: gen, closed: true}
		}
		return streamEventMsg{gen: gen, ev: ev}
	}
}

// waitForReload reads the next reloaded config. It returns nil once the
// channel is closed, which ends the loop.
func waitForReload(reloads <-chan *config.Config) tea.Cmd {
	if reloads == nil {
		return nil
	}
	return func() tea.Msg {
		cfg, ok := <-reloads
		if !ok {
			return nil
		}
		return configReloadedMsg{cfg: cfg}
	}
}

func submit(text string) tea.Cmd {
	return func() tea.Msg { return submitMsg{text: text} }
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/rigchat/internal/cloud"
	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/ui/components"
	"github.com/jeranaias/rigchat/internal/util"
)

const emptyHint = "No messages yet. Ask anything, or type /help for commands."

// View renders the screen.
func (m Model) View() string {
	conv := m.session.Conversation()
	settings := m.session.Settings()

	m.header.Title = conv.DisplayTitle()
	m.header.Messages = len(conv.Messages)

	current := settings.CurrentModel()
	m.status.Model = current.Label
	if m.status.Model == "" {
		m.status.Model = current.Value
	}
	m.status.Search = settings.SearchActive()
	m.status.Spinner = m.spinner.View()
	switch {
	case m.session.Generating():
		m.status.Status = components.StatusGenerating
	case m.err != nil:
		m.status.Status = components.StatusError
	default:
		m.status.Status = components.StatusReady
	}

	inputStyle := m.theme.InputActive
	if m.session.Generating() {
		inputStyle = m.theme.Input
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.header.View(),
		m.viewport.View(),
		m.noticeLine(),
		inputStyle.Width(max(m.width-2, 1)).Render(m.input.View()),
		m.status.View(),
	)
}

// noticeLine shows the last error with a hint.
func (m Model) noticeLine() string {
	if m.err == nil {
		return ""
	}
	text := "Error: " + m.err.Error()
	if hint := errorHint(m.err); hint != "" {
		text += " " + hint
	}
	return m.theme.Error.Render(util.TruncateWidth(util.SingleLine(text), max(m.width, 1)))
}

// errorHint suggests a fix for key errors.
func errorHint(err error) string {
	var apiErr *cloud.APIError
	switch {
	case errors.Is(err, cloud.ErrNotConfigured):
		return "Set your key with /set apiKey <key>."
	case errors.As(err, &apiErr) && apiErr.IsAuth():
		return "The API key was rejected; update it with /set apiKey <key>."
	}
	return ""
}

// renderTranscript renders the conversation, the reply in progress and
// the last command output.
func (m *Model) renderTranscript() string {
	conv := m.session.Conversation()
	partial := m.session.Partial()
	generating := m.session.Generating()

	var parts []string
	if len(conv.Messages) == 0 && !generating && !m.interrupted {
		parts = append(parts, m.theme.Empty.Render(emptyHint))
	}
	for i, msg := range conv.Messages {
		parts = append(parts, m.renderMessage(conv.ID, i, msg))
	}

	switch {
	case generating && partial == "":
		parts = append(parts, m.label(model.RoleAssistant, time.Time{})+"\n"+m.spinner.View()+" Thinking...")
	case generating:
		parts = append(parts, m.label(model.RoleAssistant, time.Time{})+"\n"+m.renderer.RenderStreaming(partial))
	case m.interrupted:
		parts = append(parts, m.label(model.RoleAssistant, time.Time{})+"\n"+
			m.renderer.Render(partial)+"\n"+m.theme.Hint.Render("(incomplete reply, not saved)"))
	}

	if m.output != "" {
		parts = append(parts, m.theme.Notice.Render(m.output))
	}
	return strings.Join(parts, "\n\n")
}

func (m *Model) renderMessage(convID string, i int, msg model.Message) string {
	key := fmt.Sprintf("%s/%d/%d", convID, i, len(msg.Content))
	if out, ok := m.cache[key]; ok {
		return out
	}

	var body string
	if msg.Role == model.RoleAssistant {
		body = m.renderer.Render(msg.Content)
	} else {
		body = m.theme.Body.Width(m.renderer.Width()).Render(msg.Content)
	}
	out := m.label(msg.Role, msg.Timestamp) + "\n" + body
	m.cache[key] = out
	return out
}

func (m *Model) label(role model.Role, ts time.Time) string {
	out := m.theme.RoleLabel(string(role)).Render(role.DisplayName())
	if !ts.IsZero() {
		out += " " + m.theme.Timestamp.Render(ts.Local().Format("15:04"))
	}
	return out
}

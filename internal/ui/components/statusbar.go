// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/rigchat/internal/ui/styles"
	"github.com/jeranaias/rigchat/internal/util"
)

// =============================================================================
// STATUS BAR COMPONENT
// =============================================================================

// Status is the chat status shown in the bar.
type Status int

const (
	StatusReady Status = iota
	StatusGenerating
	StatusError
)

// String returns the display text for the status.
func (s Status) String() string {
	switch s {
	case StatusGenerating:
		return "Generating..."
	case StatusError:
		return "Error"
	default:
		return "Ready"
	}
}

// StatusBar is the bottom bar: model badge, search badge, status and key
// hints.
type StatusBar struct {
	Model  string
	Search bool
	Status Status

	// Spinner is shown before the status while generating.
	Spinner string

	Width int
	theme *styles.Theme
}

// NewStatusBar creates a status bar.
func NewStatusBar(theme *styles.Theme) *StatusBar {
	return &StatusBar{Width: 80, theme: theme}
}

// hints per status, widest first.
var statusHints = map[Status][]string{
	StatusReady:      {"enter send  alt+enter newline  ctrl+n new  ctrl+k clear  ctrl+y copy  esc quit", "enter send  esc quit"},
	StatusGenerating: {"esc stop", "esc stop"},
	StatusError:      {"enter send  esc quit", "esc quit"},
}

// View renders the status bar, dropping hints and shortening the model
// name to fit the width.
func (s *StatusBar) View() string {
	model := util.TruncateWidth(s.Model, 24)
	left := []string{s.theme.ModelBadge.Render(model)}
	if s.Search {
		left = append(left, s.theme.SearchBadge.Render("search"))
	}

	status := s.Status.String()
	if s.Status == StatusGenerating && s.Spinner != "" {
		status = s.Spinner + " " + status
	}
	statusStyle := s.theme.Hint
	if s.Status == StatusError {
		statusStyle = s.theme.Error
	}
	left = append(left, statusStyle.Render(status))

	line := strings.Join(left, " ")
	for _, hint := range statusHints[s.Status] {
		rendered := s.theme.Hint.Render(hint)
		gap := s.Width - 2 - lipgloss.Width(line) - lipgloss.Width(rendered)
		if gap >= 2 {
			line += strings.Repeat(" ", gap) + rendered
			break
		}
	}
	return s.theme.StatusBar.Width(s.Width).MaxWidth(s.Width).Render(line)
}

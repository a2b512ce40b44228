// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds the styles of the chat screen.
type Theme struct {
	IsDark       bool
	ColorProfile termenv.Profile

	Header      lipgloss.Style
	HeaderTitle lipgloss.Style

	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	SystemLabel    lipgloss.Style
	Timestamp      lipgloss.Style
	Body           lipgloss.Style

	Input       lipgloss.Style
	InputActive lipgloss.Style

	StatusBar   lipgloss.Style
	ModelBadge  lipgloss.Style
	SearchBadge lipgloss.Style
	Hint        lipgloss.Style

	Error  lipgloss.Style
	Notice lipgloss.Style
	Empty  lipgloss.Style
}

// NewTheme builds a theme for a theme setting: "light", "dark", or
// "auto" (follow the terminal background).
func NewTheme(setting string) *Theme {
	isDark := termenv.HasDarkBackground()
	switch setting {
	case "light":
		isDark = false
	case "dark":
		isDark = true
	}
	lipgloss.SetHasDarkBackground(isDark)

	t := &Theme{IsDark: isDark, ColorProfile: termenv.ColorProfile()}
	t.initStyles()
	return t
}

func (t *Theme) initStyles() {
	t.Header = lipgloss.NewStyle().
		Background(SurfaceDim).
		Padding(0, 1)
	t.HeaderTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Purple)

	t.UserLabel = lipgloss.NewStyle().Bold(true).Foreground(Cyan)
	t.AssistantLabel = lipgloss.NewStyle().Bold(true).Foreground(Purple)
	t.SystemLabel = lipgloss.NewStyle().Bold(true).Foreground(Amber)
	t.Timestamp = lipgloss.NewStyle().Foreground(TextMuted)
	t.Body = lipgloss.NewStyle().Foreground(TextPrimary)

	t.Input = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 1)
	t.InputActive = t.Input.BorderForeground(Cyan)

	t.StatusBar = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Background(SurfaceDim).
		Padding(0, 1)
	t.ModelBadge = lipgloss.NewStyle().
		Foreground(TextInverse).
		Background(Cyan).
		Padding(0, 1)
	t.SearchBadge = lipgloss.NewStyle().
		Foreground(TextInverse).
		Background(Emerald).
		Padding(0, 1)
	t.Hint = lipgloss.NewStyle().Foreground(TextMuted)

	t.Error = lipgloss.NewStyle().Foreground(Rose)
	t.Notice = lipgloss.NewStyle().Foreground(Emerald)
	t.Empty = lipgloss.NewStyle().Foreground(TextMuted).Italic(true)
}

// RoleLabel returns the label style for a role name.
func (t *Theme) RoleLabel(role string) lipgloss.Style {
	switch role {
	case "user":
		return t.UserLabel
	case "system":
		return t.SystemLabel
	default:
		return t.AssistantLabel
	}
}

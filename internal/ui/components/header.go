// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/rigchat/internal/ui/styles"
	"github.com/jeranaias/rigchat/internal/util"
)

// =============================================================================
// HEADER COMPONENT
// =============================================================================

// Header is the title bar: app name, conversation title and message count.
type Header struct {
	Title    string
	Messages int
	Width    int
	theme    *styles.Theme
}

// NewHeader creates a header.
func NewHeader(theme *styles.Theme) *Header {
	return &Header{Width: 80, theme: theme}
}

// View renders the header.
func (h *Header) View() string {
	brand := h.theme.HeaderTitle.Render("rigchat")
	count := h.theme.Hint.Render(fmt.Sprintf("%d msgs", h.Messages))

	// Padding(0,1) on the container plus two separating spaces.
	room := h.Width - 2 - lipgloss.Width(brand) - lipgloss.Width(count) - 2
	title := ""
	if room > 3 {
		title = util.PadWidth(util.TruncateWidth(util.SingleLine(h.Title), room), room)
	}
	line := brand + " " + title + " " + count
	return h.theme.Header.Width(h.Width).MaxWidth(h.Width).Render(line)
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"

	"github.com/jeranaias/rigchat/internal/ui/styles"
)

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "Ready", StatusReady.String())
	assert.Equal(t, "Generating...", StatusGenerating.String())
	assert.Equal(t, "Error", StatusError.String())
}

func TestStatusBar_View(t *testing.T) {
	sb := NewStatusBar(styles.NewTheme("dark"))
	sb.Model = "Qwen3-Max"
	sb.Search = true
	sb.Width = 120

	out := sb.View()
	assert.Contains(t, out, "Qwen3-Max")
	assert.Contains(t, out, "search")
	assert.Contains(t, out, "Ready")
	assert.Contains(t, out, "ctrl+n new")
	assert.LessOrEqual(t, lipgloss.Width(out), 120)
}

func TestStatusBar_NarrowDropsHints(t *testing.T) {
	sb := NewStatusBar(styles.NewTheme("dark"))
	sb.Model = "qwen3-max"
	sb.Width = 40

	out := sb.View()
	assert.NotContains(t, out, "ctrl+n")
	assert.LessOrEqual(t, lipgloss.Width(out), 40)
}

func TestStatusBar_Generating(t *testing.T) {
	sb := NewStatusBar(styles.NewTheme("light"))
	sb.Model = "m"
	sb.Status = StatusGenerating
	sb.Spinner = "*"
	sb.Width = 80

	out := sb.View()
	assert.Contains(t, out, "* Generating...")
	assert.Contains(t, out, "esc stop")
}

func TestHeader_View(t *testing.T) {
	h := NewHeader(styles.NewTheme("light"))
	h.Title = "A rather long conversation title that will not fit"
	h.Messages = 4
	h.Width = 40

	out := h.View()
	assert.Contains(t, out, "rigchat")
	assert.Contains(t, out, "4 msgs")
	assert.Contains(t, out, "...")
	assert.LessOrEqual(t, lipgloss.Width(out), 40)
}

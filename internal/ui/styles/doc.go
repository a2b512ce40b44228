// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the colors and lipgloss styles of the chat
// screen. Colors are lipgloss.AdaptiveColor values so one palette serves
// light and dark terminals; NewTheme pins the background when the user
// picked a theme explicitly.
package styles

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides the header and status bar of the chat
// screen. Both render to a fixed width and adapt their layout to it.
package components

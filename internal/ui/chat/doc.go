// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the full-screen chat interface.
//
// The Model owns a session.Session for the conversation on screen. A
// submitted line is either a slash command, run through the commands
// registry, or a user message, which starts a generation. Stream events
// reach Update one at a time through waitForEvent, so the session is only
// ever touched from the Bubble Tea loop.
//
//	m, err := chat.New(chat.Options{Store: mgr, Host: h, Settings: s})
//	if err != nil {
//		return err
//	}
//	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
package chat

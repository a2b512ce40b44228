// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the rigchat command line.
//
// Usage:
//
//	rigchat                    open the chat (full screen on a terminal)
//	rigchat chat --plain       line-mode chat
//	rigchat chat --ask "..."   open the chat and send a question
//	rigchat ask "..."          print one reply and exit
//	rigchat config ...         show and change settings
//	rigchat history ...        list, export and import conversations
//	rigchat models [--remote]  list models
//
// Every command opens the same App: the config file, the logger and the
// conversation store.
package cli

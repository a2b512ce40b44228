// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package commands provides the slash commands shared by the full-screen
// chat and the line REPL.
//
// Handlers never touch a terminal. They read and change the store through
// an Env and return a Result telling the caller what to redraw: a new
// current conversation, new settings, or a request to quit.
//
// # Key Types
//
//   - Registry: the built-in commands, lookup by name or alias
//   - ParseResult: a parsed command line
//   - Env: what a handler may read and change
//   - Result: what the caller must apply afterwards
//
// # Usage
//
//	reg := commands.NewRegistry()
//	if commands.IsCommand(input) {
//	    res, err := reg.Execute(env, input)
//	    ...
//	}
//
//	reg.Complete("/mo") // ["/model", "/models"]
package commands

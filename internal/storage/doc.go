// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists settings and conversation history.
//
// Persistence goes through a small key-value port (Store) with three
// backends: SQLite (default), Badger and an in-memory map for tests. The
// Manager layers the chat data model on top of three logical keys:
//
//   - ai_chat_config: the Settings JSON document
//   - ai_chat_conversations: a JSON array of conversations
//   - ai_chat_current: the id of the selected conversation
//
// The key names and value shapes match the history files other clients of
// this store produce, so exports and imports are interchangeable.
//
// # Usage
//
//	store, err := storage.Open(storage.Config{Backend: "sqlite", Path: dbPath})
//	mgr := storage.NewManager(store, logger)
//	conv, err := mgr.Current()
package storage

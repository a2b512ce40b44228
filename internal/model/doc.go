// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
//
// # Key Types
//
//   - Conversation: an ordered message log with a title and timestamps
//   - Message: one utterance with role, content and timestamp
//   - Role: system, user or assistant
//   - ModelDescriptor: a selectable model and whether it supports web search
//
// Timestamps serialize as Unix milliseconds so exported history stays
// compatible with files produced by other clients of the same store.
//
// # Usage
//
//	conv := model.NewConversation()
//	conv.AddMessage(model.NewMessage(model.RoleUser, "Hello!"))
//	fmt.Println(conv.Title) // "Hello!"
package model

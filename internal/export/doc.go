// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes conversations out of the store and reads them back.
//
// The history bundle is a JSON array of conversations, the same document
// the store keeps under its conversations key. ReadJSON rejects any other
// top-level shape with ErrInvalidFormat.
//
// Single conversations can also be rendered for reading:
//
//   - Markdown: role headings and the raw message text
//   - HTML: goldmark rendering with chroma-highlighted code blocks
//
// # Usage
//
//	path, err := export.WriteHistoryFile(".", convs)
//	convs, err := export.ReadHistoryFile(path)
//
//	exp, _ := export.ForFormat("html", nil)
//	path, err := export.ExportToFile(conv, exp, nil)
package export

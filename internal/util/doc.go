// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util holds small helpers shared by rigchat packages.
//
// # Key Functions
//
//   - AtomicWriteFile: crash-safe file writes (temp file, fsync, rename)
//   - TruncateRunes / TruncateWidth: UTF-8 and column aware truncation
//   - PadWidth: column aware right padding for list output
//
// # Usage
//
//	title := util.TruncateWidth(conv.Title, 32)
//	err := util.AtomicWriteFile(path, data, 0600)
package util

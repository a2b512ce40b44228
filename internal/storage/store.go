// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"errors"
	"fmt"
	"log/slog"
)

// Logical keys.
const (
	KeyConfig        = "ai_chat_config"
	KeyConversations = "ai_chat_conversations"
	KeyCurrent       = "ai_chat_current"
)

var (
	// ErrClosed is returned by a store after Close.
	ErrClosed = errors.New("store is closed")

	// ErrNotFound is returned when a conversation id is unknown.
	ErrNotFound = errors.New("conversation not found")
)

// Store is a string key-value store. Implementations are safe for
// concurrent use.
type Store interface {
	// Get returns the value for key; ok is false if the key is absent.
	Get(key string) (value string, ok bool, err error)

	// Set stores value under key, replacing any previous value.
	Set(key, value string) error

	// Remove deletes key. Removing an absent key is not an error.
	Remove(key string) error

	// Close releases the store.
	Close() error
}

// Backend names.
const (
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
	BackendMemory = "memory"
)

// Config selects and configures a backend.
type Config struct {
	Backend string

	// Path is the SQLite file or the Badger directory.
	Path string

	// Logger receives backend diagnostics. Nil disables them.
	Logger *slog.Logger
}

// Open opens the configured backend.
func Open(cfg Config) (Store, error) {
	switch cfg.Backend {
	case BackendSQLite, "":
		return OpenSQLite(cfg.Path)
	case BackendBadger:
		return OpenBadger(BadgerConfig{Path: cfg.Path, SyncWrites: true, Logger: cfg.Logger})
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

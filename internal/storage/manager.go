// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/jeranaias/rigchat/internal/config"
	"github.com/jeranaias/rigchat/internal/model"
)

// Manager stores settings and conversations in a Store. Every mutation
// is written through before the method returns. It is safe for concurrent
// use; reads return copies.
type Manager struct {
	store  Store
	logger *slog.Logger
	mu     sync.Mutex
}

// NewManager wraps store. A nil logger means slog.Default().
func NewManager(store Store, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{store: store, logger: logger}
}

// Close closes the underlying store.
func (m *Manager) Close() error {
	return m.store.Close()
}

// =============================================================================
// SETTINGS
// =============================================================================

// Settings returns the stored settings. Missing or unreadable settings
// yield the defaults; missing fields are filled from the defaults.
func (m *Manager) Settings() (config.Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	raw, ok, err := m.store.Get(KeyConfig)
	if err != nil {
		return config.Settings{}, err
	}
	if !ok {
		return config.DefaultSettings(), nil
	}

	s := config.DefaultSettings()
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		m.logger.Warn("stored settings are corrupt, using defaults", "error", err)
		return config.DefaultSettings(), nil
	}
	s.FillDefaults()
	return s, nil
}

// SaveSettings validates and stores s.
func (m *Manager) SaveSettings(s config.Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.Set(KeyConfig, string(data))
}

// =============================================================================
// CONVERSATION LIST
// =============================================================================

// Conversations returns every stored conversation in stored order. When
// nothing usable is stored the result is a single fresh conversation,
// which is not persisted until it is saved.
func (m *Manager) Conversations() ([]*model.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadLocked()
}

func (m *Manager) loadLocked() ([]*model.Conversation, error) {
	raw, ok, err := m.store.Get(KeyConversations)
	if err != nil {
		return nil, err
	}
	if ok {
		var convs []*model.Conversation
		if err := json.Unmarshal([]byte(raw), &convs); err != nil {
			m.logger.Warn("stored conversations are corrupt, starting fresh", "error", err)
		} else if len(convs) > 0 {
			return compact(convs), nil
		}
	}
	return []*model.Conversation{model.NewConversation()}, nil
}

// compact drops null entries that a hand-edited store may contain.
func compact(convs []*model.Conversation) []*model.Conversation {
	out := convs[:0]
	for _, c := range convs {
		if c != nil {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return []*model.Conversation{model.NewConversation()}
	}
	return out
}

// SaveConversations replaces the stored list.
func (m *Manager) SaveConversations(convs []*model.Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveLocked(convs)
}

func (m *Manager) saveLocked(convs []*model.Conversation) error {
	if convs == nil {
		convs = []*model.Conversation{}
	}
	data, err := json.Marshal(convs)
	if err != nil {
		return fmt.Errorf("failed to encode conversations: %w", err)
	}
	return m.store.Set(KeyConversations, string(data))
}

// Visible returns the conversations to list: most recently updated first,
// empty conversations hidden unless currentID names them.
func Visible(convs []*model.Conversation, currentID string) []*model.Conversation {
	out := make([]*model.Conversation, 0, len(convs))
	for _, c := range convs {
		if !c.IsEmpty() || c.ID == currentID {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

// =============================================================================
// CURRENT CONVERSATION
// =============================================================================

// CurrentID returns the selected conversation id, or "" if none.
func (m *Manager) CurrentID() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, _, err := m.store.Get(KeyCurrent)
	return id, err
}

// SetCurrentID selects a conversation.
func (m *Manager) SetCurrentID(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.Set(KeyCurrent, id)
}

// Current returns the selected conversation. If the selection is missing
// or stale a new conversation is created and selected.
func (m *Manager) Current() (*model.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, _, err := m.store.Get(KeyCurrent)
	if err != nil {
		return nil, err
	}
	convs, err := m.loadLocked()
	if err != nil {
		return nil, err
	}
	if id != "" {
		if c := find(convs, id); c != nil {
			return c.Clone(), nil
		}
	}
	return m.newLocked(convs)
}

// Conversation returns a copy of the conversation with id.
func (m *Manager) Conversation(id string) (*model.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	convs, err := m.loadLocked()
	if err != nil {
		return nil, err
	}
	c := find(convs, id)
	if c == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return c.Clone(), nil
}

// NewConversation creates a conversation at the head of the list and
// selects it.
func (m *Manager) NewConversation() (*model.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	convs, err := m.loadLocked()
	if err != nil {
		return nil, err
	}
	return m.newLocked(convs)
}

func (m *Manager) newLocked(convs []*model.Conversation) (*model.Conversation, error) {
	conv := model.NewConversation()
	convs = append([]*model.Conversation{conv}, convs...)
	if err := m.saveLocked(convs); err != nil {
		return nil, err
	}
	if err := m.store.Set(KeyCurrent, conv.ID); err != nil {
		return nil, err
	}
	m.logger.Debug("conversation created", "id", conv.ID)
	return conv.Clone(), nil
}

// =============================================================================
// MUTATIONS
// =============================================================================

// Save stores conv, replacing the stored conversation with the same id or
// adding it at the head of the list.
func (m *Manager) Save(conv *model.Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	convs, err := m.loadLocked()
	if err != nil {
		return err
	}
	cp := conv.Clone()
	for i, c := range convs {
		if c.ID == conv.ID {
			convs[i] = cp
			return m.saveLocked(convs)
		}
	}
	return m.saveLocked(append([]*model.Conversation{cp}, convs...))
}

// AddMessage appends msg to the conversation with id and returns the
// updated conversation.
func (m *Manager) AddMessage(id string, msg model.Message) (*model.Conversation, error) {
	return m.update(id, func(c *model.Conversation) error {
		c.AddMessage(msg)
		return nil
	})
}

// UpdateLastMessage replaces the content of the last message of id.
func (m *Manager) UpdateLastMessage(id, content string) (*model.Conversation, error) {
	return m.update(id, func(c *model.Conversation) error {
		if !c.UpdateLastMessage(content) {
			return fmt.Errorf("conversation %s has no messages", id)
		}
		return nil
	})
}

// ClearMessages empties the conversation with id and resets its title.
func (m *Manager) ClearMessages(id string) (*model.Conversation, error) {
	return m.update(id, func(c *model.Conversation) error {
		c.ClearMessages()
		return nil
	})
}

func (m *Manager) update(id string, fn func(*model.Conversation) error) (*model.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	convs, err := m.loadLocked()
	if err != nil {
		return nil, err
	}
	c := find(convs, id)
	if c == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err := fn(c); err != nil {
		return nil, err
	}
	if err := m.saveLocked(convs); err != nil {
		return nil, err
	}
	return c.Clone(), nil
}

// Delete removes the conversation with id. At least one conversation
// always remains; deleting the last one leaves a fresh empty one. If the
// deleted conversation was selected, the head of the list is selected.
// The returned id is the selection after the delete.
func (m *Manager) Delete(id string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	convs, err := m.loadLocked()
	if err != nil {
		return "", err
	}
	idx := -1
	for i, c := range convs {
		if c.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return "", fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	convs = append(convs[:idx], convs[idx+1:]...)
	if len(convs) == 0 {
		convs = []*model.Conversation{model.NewConversation()}
	}
	if err := m.saveLocked(convs); err != nil {
		return "", err
	}

	current, _, err := m.store.Get(KeyCurrent)
	if err != nil {
		return "", err
	}
	if current == id || find(convs, current) == nil {
		current = convs[0].ID
		if err := m.store.Set(KeyCurrent, current); err != nil {
			return "", err
		}
	}
	m.logger.Debug("conversation deleted", "id", id, "current", current)
	return current, nil
}

// Import replaces the stored conversations and selects the first one.
// An empty import leaves one fresh conversation.
func (m *Manager) Import(convs []*model.Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	convs = compact(convs)
	if len(convs) == 0 {
		convs = []*model.Conversation{model.NewConversation()}
	}
	if err := m.saveLocked(convs); err != nil {
		return err
	}
	m.logger.Info("conversations imported", "count", len(convs))
	return m.store.Set(KeyCurrent, convs[0].ID)
}

// ClearAll removes settings, conversations and the selection.
func (m *Manager) ClearAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, key := range []string{KeyConfig, KeyConversations, KeyCurrent} {
		if err := m.store.Remove(key); err != nil {
			return err
		}
	}
	m.logger.Info("all local data cleared")
	return nil
}

func find(convs []*model.Conversation, id string) *model.Conversation {
	for _, c := range convs {
		if c.ID == id {
			return c
		}
	}
	return nil
}

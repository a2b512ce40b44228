// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/rigchat/internal/config"
	"github.com/jeranaias/rigchat/internal/model"
)

func newTestManager(t *testing.T) (*Manager, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	return NewManager(store, nil), store
}

// =============================================================================
// SETTINGS TESTS
// =============================================================================

func TestSettings_DefaultsWhenAbsent(t *testing.T) {
	m, _ := newTestManager(t)

	s, err := m.Settings()
	require.NoError(t, err)
	assert.Equal(t, config.DefaultSettings(), s)
}

func TestSettings_CorruptFallsBackToDefaults(t *testing.T) {
	m, store := newTestManager(t)
	require.NoError(t, store.Set(KeyConfig, "{broken"))

	s, err := m.Settings()
	require.NoError(t, err)
	assert.Equal(t, config.DefaultSettings(), s)
}

func TestSettings_PartialDocumentKeepsDefaults(t *testing.T) {
	m, store := newTestManager(t)
	require.NoError(t, store.Set(KeyConfig, `{"apiKey":"sk-x","temperature":0}`))

	s, err := m.Settings()
	require.NoError(t, err)
	assert.Equal(t, "sk-x", s.APIKey)
	assert.Zero(t, s.Temperature)
	assert.Equal(t, 2000, s.MaxTokens)
	assert.Equal(t, model.DefaultModelID, s.Model)
}

func TestSaveSettings_RoundTripAndValidation(t *testing.T) {
	m, _ := newTestManager(t)

	s := config.DefaultSettings()
	s.APIKey = "sk-1"
	s.Temperature = 1.5
	require.NoError(t, m.SaveSettings(s))

	got, err := m.Settings()
	require.NoError(t, err)
	assert.Equal(t, s, got)

	s.MaxTokens = -1
	assert.Error(t, m.SaveSettings(s))
	got, _ = m.Settings()
	assert.Equal(t, 2000, got.MaxTokens)
}

// =============================================================================
// CONVERSATION TESTS
// =============================================================================

func TestConversations_FreshWhenAbsentOrCorrupt(t *testing.T) {
	m, store := newTestManager(t)

	convs, err := m.Conversations()
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.True(t, convs[0].IsEmpty())
	assert.Equal(t, model.SentinelTitle, convs[0].Title)

	require.NoError(t, store.Set(KeyConversations, `{"not":"an array"}`))
	convs, err = m.Conversations()
	require.NoError(t, err)
	assert.Len(t, convs, 1)
}

func TestCurrent_CreatesAndSelects(t *testing.T) {
	m, _ := newTestManager(t)

	conv, err := m.Current()
	require.NoError(t, err)

	id, err := m.CurrentID()
	require.NoError(t, err)
	assert.Equal(t, conv.ID, id)

	again, err := m.Current()
	require.NoError(t, err)
	assert.Equal(t, conv.ID, again.ID)
}

func TestAddMessage_PersistsAndDerivesTitle(t *testing.T) {
	m, _ := newTestManager(t)
	conv, err := m.NewConversation()
	require.NoError(t, err)

	_, err = m.AddMessage(conv.ID, model.NewMessage(model.RoleUser, "What is the capital of France, roughly?"))
	require.NoError(t, err)

	stored, err := m.Conversation(conv.ID)
	require.NoError(t, err)
	require.Len(t, stored.Messages, 1)
	assert.Equal(t, "What is the capital ...", stored.Title)
	assert.False(t, stored.UpdatedAt.Before(stored.CreatedAt))
}

func TestUpdateLastMessage(t *testing.T) {
	m, _ := newTestManager(t)
	conv, _ := m.NewConversation()

	_, err := m.UpdateLastMessage(conv.ID, "x")
	assert.Error(t, err)

	m.AddMessage(conv.ID, model.NewMessage(model.RoleAssistant, "par"))
	updated, err := m.UpdateLastMessage(conv.ID, "partial")
	require.NoError(t, err)
	assert.Equal(t, "partial", updated.Messages[0].Content)
}

func TestClearMessages_ResetsTitle(t *testing.T) {
	m, _ := newTestManager(t)
	conv, _ := m.NewConversation()
	m.AddMessage(conv.ID, model.NewMessage(model.RoleUser, "hello"))

	cleared, err := m.ClearMessages(conv.ID)
	require.NoError(t, err)
	assert.True(t, cleared.IsEmpty())
	assert.Equal(t, model.SentinelTitle, cleared.Title)
}

func TestUnknownConversation(t *testing.T) {
	m, _ := newTestManager(t)

	_, err := m.Conversation("nope")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.AddMessage("nope", model.NewMessage(model.RoleUser, "x"))
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.Delete("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSave_UpsertsByID(t *testing.T) {
	m, _ := newTestManager(t)
	a, _ := m.NewConversation()

	a.AddMessage(model.NewMessage(model.RoleUser, "edited"))
	require.NoError(t, m.Save(a))

	b := model.NewConversation()
	require.NoError(t, m.Save(b))

	convs, err := m.Conversations()
	require.NoError(t, err)
	require.Len(t, convs, 2)
	assert.Equal(t, b.ID, convs[0].ID)
	assert.Equal(t, "edited", convs[1].Title)
}

// =============================================================================
// DELETE TESTS
// =============================================================================

func TestDelete_KeepsAtLeastOne(t *testing.T) {
	m, _ := newTestManager(t)
	only, _ := m.NewConversation()

	current, err := m.Delete(only.ID)
	require.NoError(t, err)

	convs, err := m.Conversations()
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.NotEqual(t, only.ID, convs[0].ID)
	assert.Equal(t, convs[0].ID, current)
}

func TestDelete_CurrentMovesToHead(t *testing.T) {
	m, _ := newTestManager(t)
	older, _ := m.NewConversation()
	newer, _ := m.NewConversation()
	require.NoError(t, m.SetCurrentID(newer.ID))

	current, err := m.Delete(newer.ID)
	require.NoError(t, err)
	assert.Equal(t, older.ID, current)

	id, _ := m.CurrentID()
	assert.Equal(t, older.ID, id)
}

func TestDelete_OtherKeepsSelection(t *testing.T) {
	m, _ := newTestManager(t)
	older, _ := m.NewConversation()
	newer, _ := m.NewConversation()

	current, err := m.Delete(older.ID)
	require.NoError(t, err)
	assert.Equal(t, newer.ID, current)
}

// =============================================================================
// LIST / IMPORT / CLEAR TESTS
// =============================================================================

func TestVisible_SortsAndHidesEmpty(t *testing.T) {
	base := time.UnixMilli(1_000_000)
	mk := func(id string, updated time.Duration, msgs int) *model.Conversation {
		c := &model.Conversation{ID: id, Title: id, CreatedAt: base, UpdatedAt: base.Add(updated)}
		for i := 0; i < msgs; i++ {
			c.Messages = append(c.Messages, model.Message{Role: model.RoleUser, Content: "x"})
		}
		return c
	}
	convs := []*model.Conversation{
		mk("old", time.Minute, 1),
		mk("empty", 3*time.Minute, 0),
		mk("new", 2*time.Minute, 2),
		mk("current-empty", 0, 0),
	}

	got := Visible(convs, "current-empty")
	ids := make([]string, len(got))
	for i, c := range got {
		ids[i] = c.ID
	}
	assert.Equal(t, []string{"new", "old", "current-empty"}, ids)
}

func TestImport_ReplacesAndSelectsFirst(t *testing.T) {
	m, _ := newTestManager(t)
	m.NewConversation()

	a := model.NewConversation()
	b := model.NewConversation()
	require.NoError(t, m.Import([]*model.Conversation{a, nil, b}))

	convs, err := m.Conversations()
	require.NoError(t, err)
	require.Len(t, convs, 2)
	id, _ := m.CurrentID()
	assert.Equal(t, a.ID, id)
}

func TestClearAll(t *testing.T) {
	m, store := newTestManager(t)
	s := config.DefaultSettings()
	s.APIKey = "sk"
	require.NoError(t, m.SaveSettings(s))
	m.NewConversation()

	require.NoError(t, m.ClearAll())

	for _, key := range []string{KeyConfig, KeyConversations, KeyCurrent} {
		_, ok, err := store.Get(key)
		require.NoError(t, err)
		assert.False(t, ok, key)
	}
}

// =============================================================================
// SEARCH TESTS
// =============================================================================

func TestSearch(t *testing.T) {
	m, _ := newTestManager(t)
	a, _ := m.NewConversation()
	m.AddMessage(a.ID, model.NewMessage(model.RoleUser, "Tell me about GOLANG channels"))
	b, _ := m.NewConversation()
	m.AddMessage(b.ID, model.NewMessage(model.RoleUser, "ｆｕｌｌｗｉｄｔｈ text"))
	m.NewConversation()

	results, err := m.Search("golang")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, a.ID, results[0].Conversation.ID)
	assert.Contains(t, results[0].Snippet, "GOLANG")

	results, err = m.Search("fullwidth")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, b.ID, results[0].Conversation.ID)

	results, err = m.Search("   ")
	require.NoError(t, err)
	assert.Empty(t, results)
}

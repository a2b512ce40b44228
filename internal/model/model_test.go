// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// withClock pins now() to a sequence of instants for the duration of a test.
func withClock(t *testing.T, times ...time.Time) {
	t.Helper()
	i := 0
	orig := now
	now = func() time.Time {
		ts := times[i]
		if i < len(times)-1 {
			i++
		}
		return ts
	}
	t.Cleanup(func() { now = orig })
}

// =============================================================================
// TITLE DERIVATION TESTS
// =============================================================================

func TestAddMessage_DerivesTitleFromFirstUserMessage(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"short", "Hello", "Hello"},
		{"exactly twenty", "abcdefghijklmnopqrst", "abcdefghijklmnopqrst"},
		{"twenty one", "abcdefghijklmnopqrstu", "abcdefghijklmnopqrst..."},
		{"cjk counted by code point", strings.Repeat("你", 25), strings.Repeat("你", 20) + "..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conv := NewConversation()
			conv.AddMessage(NewMessage(RoleUser, tt.content))
			assert.Equal(t, tt.want, conv.Title)
		})
	}
}

func TestAddMessage_TitleSetOnce(t *testing.T) {
	conv := NewConversation()
	conv.AddMessage(NewMessage(RoleUser, "first"))
	conv.AddMessage(NewMessage(RoleAssistant, "reply"))
	conv.AddMessage(NewMessage(RoleUser, "second"))

	assert.Equal(t, "first", conv.Title)
}

func TestAddMessage_AssistantDoesNotSetTitle(t *testing.T) {
	conv := NewConversation()
	conv.AddMessage(NewMessage(RoleAssistant, "hi there"))

	assert.Equal(t, SentinelTitle, conv.Title)
	assert.Equal(t, "New conversation", conv.DisplayTitle())
}

func TestClearMessages_ResetsTitle(t *testing.T) {
	conv := NewConversation()
	conv.AddMessage(NewMessage(RoleUser, "hello"))
	conv.ClearMessages()

	assert.True(t, conv.IsEmpty())
	assert.Equal(t, SentinelTitle, conv.Title)

	conv.AddMessage(NewMessage(RoleUser, "again"))
	assert.Equal(t, "again", conv.Title)
}

// =============================================================================
// TIMESTAMP TESTS
// =============================================================================

func TestTouch_NeverBeforeCreatedAt(t *testing.T) {
	created := time.UnixMilli(2_000_000)
	withClock(t, created, created.Add(-time.Hour))

	conv := NewConversation()
	conv.AddMessage(Message{Role: RoleUser, Content: "x", Timestamp: created})

	assert.Equal(t, created, conv.UpdatedAt)
}

func TestAddMessage_StampsTimestamp(t *testing.T) {
	ts := time.UnixMilli(5_000)
	withClock(t, ts)

	conv := NewConversation()
	conv.AddMessage(Message{Role: RoleUser, Content: "x"})

	last, ok := conv.LastMessage()
	require.True(t, ok)
	assert.Equal(t, ts, last.Timestamp)
}

func TestUpdateLastMessage(t *testing.T) {
	conv := NewConversation()
	assert.False(t, conv.UpdateLastMessage("nothing"))

	conv.AddMessage(NewMessage(RoleAssistant, "part"))
	assert.True(t, conv.UpdateLastMessage("partial answer"))

	last, _ := conv.LastMessage()
	assert.Equal(t, "partial answer", last.Content)
}

func TestLastAssistantMessage(t *testing.T) {
	conv := NewConversation()
	_, ok := conv.LastAssistantMessage()
	assert.False(t, ok)

	conv.AddMessage(NewMessage(RoleUser, "q"))
	conv.AddMessage(NewMessage(RoleAssistant, "a1"))
	conv.AddMessage(NewMessage(RoleUser, "q2"))

	msg, ok := conv.LastAssistantMessage()
	require.True(t, ok)
	assert.Equal(t, "a1", msg.Content)
}

func TestClone_IsIndependent(t *testing.T) {
	conv := NewConversation()
	conv.AddMessage(NewMessage(RoleUser, "q"))

	cp := conv.Clone()
	cp.Messages[0].Content = "changed"

	assert.Equal(t, "q", conv.Messages[0].Content)
}

// =============================================================================
// SERIALIZATION TESTS
// =============================================================================

func TestConversationJSON_UsesMillisecondTimestamps(t *testing.T) {
	conv := &Conversation{
		ID:        "c1",
		Title:     "Hello",
		Messages:  []Message{{Role: RoleUser, Content: "Hello", Timestamp: time.UnixMilli(1700000000123)}},
		CreatedAt: time.UnixMilli(1700000000000),
		UpdatedAt: time.UnixMilli(1700000000123),
	}

	data, err := json.Marshal(conv)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, float64(1700000000000), raw["createdAt"])
	assert.Equal(t, float64(1700000000123), raw["updatedAt"])

	var back Conversation
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, conv.ID, back.ID)
	assert.Equal(t, conv.Messages[0].Timestamp.UnixMilli(), back.Messages[0].Timestamp.UnixMilli())
}

func TestConversationJSON_LiveValuesRoundTripExactly(t *testing.T) {
	conv := NewConversation()
	conv.AddMessage(NewMessage(RoleUser, "hello"))
	conv.AddMessage(Message{Role: RoleAssistant, Content: "hi"})

	data, err := json.Marshal(conv)
	require.NoError(t, err)

	var back Conversation
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, *conv, back)
}

func TestConversationJSON_RepairsUpdatedAt(t *testing.T) {
	data := `{"id":"c","title":"","messages":null,"createdAt":2000,"updatedAt":1000}`

	var conv Conversation
	require.NoError(t, json.Unmarshal([]byte(data), &conv))

	assert.Equal(t, conv.CreatedAt, conv.UpdatedAt)
	assert.Equal(t, SentinelTitle, conv.Title)
	assert.NotNil(t, conv.Messages)
}

func TestMessageJSON_RejectsUnknownRole(t *testing.T) {
	var msg Message
	err := json.Unmarshal([]byte(`{"role":"tool","content":"x"}`), &msg)
	assert.Error(t, err)
}

// =============================================================================
// MODEL DESCRIPTOR TESTS
// =============================================================================

func TestSupportsSearch(t *testing.T) {
	custom := []ModelDescriptor{
		{Value: "qwen3-plain", SupportsSearch: false},
		{Value: "my-model", SupportsSearch: true},
	}
	tests := []struct {
		model string
		want  bool
	}{
		{"qwen3-plain", false}, // descriptor wins over heuristic
		{"my-model", true},
		{"qwen3-max", true},
		{"qwen-plus-latest", true},
		{"qwen-turbo", false},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			assert.Equal(t, tt.want, SupportsSearch(tt.model, custom))
		})
	}
}

func TestModelDescriptor_DisplayName(t *testing.T) {
	assert.Equal(t, "Qwen3-Max", DefaultModels()[0].DisplayName())
	assert.Equal(t, "raw-id", ModelDescriptor{Value: "raw-id"}.DisplayName())
}

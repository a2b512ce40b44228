// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/rigchat/internal/util"
)

// SentinelTitle marks a conversation whose title has not been derived yet.
// The value matches what other clients of the same store write.
const SentinelTitle = "新对话"

// TitleRunes is how many code points of the first user message become the title.
const TitleRunes = 20

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation is an ordered message log with a title.
// UpdatedAt is never earlier than CreatedAt.
type Conversation struct {
	ID        string
	Title     string
	Messages  []Message
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewConversation creates an empty conversation with a fresh ID.
func NewConversation() *Conversation {
	t := stamp()
	return &Conversation{
		ID:        uuid.NewString(),
		Title:     SentinelTitle,
		Messages:  []Message{},
		CreatedAt: t,
		UpdatedAt: t,
	}
}

// HasDefaultTitle reports whether the title is still the sentinel.
func (c *Conversation) HasDefaultTitle() bool {
	return c.Title == SentinelTitle || c.Title == ""
}

// DisplayTitle returns the title, rendering the sentinel as "New conversation".
func (c *Conversation) DisplayTitle() string {
	if c.HasDefaultTitle() {
		return "New conversation"
	}
	return c.Title
}

// =============================================================================
// MESSAGE MANAGEMENT
// =============================================================================

// AddMessage appends msg, stamping it if it has no timestamp. The first
// user message appended while the title is the sentinel becomes the title.
func (c *Conversation) AddMessage(msg Message) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = stamp()
	}
	c.Messages = append(c.Messages, msg)
	if msg.Role == RoleUser && c.HasDefaultTitle() {
		c.Title = DeriveTitle(msg.Content)
	}
	c.Touch()
}

// UpdateLastMessage replaces the content of the last message.
// It returns false when the log is empty.
func (c *Conversation) UpdateLastMessage(content string) bool {
	if len(c.Messages) == 0 {
		return false
	}
	c.Messages[len(c.Messages)-1].Content = content
	c.Touch()
	return true
}

// ClearMessages empties the log and resets the title to the sentinel.
func (c *Conversation) ClearMessages() {
	c.Messages = []Message{}
	c.Title = SentinelTitle
	c.Touch()
}

// Touch moves UpdatedAt to now, never before CreatedAt.
func (c *Conversation) Touch() {
	t := stamp()
	if t.Before(c.CreatedAt) {
		t = c.CreatedAt
	}
	c.UpdatedAt = t
}

// LastMessage returns the most recent message.
func (c *Conversation) LastMessage() (Message, bool) {
	if len(c.Messages) == 0 {
		return Message{}, false
	}
	return c.Messages[len(c.Messages)-1], true
}

// LastAssistantMessage returns the most recent assistant message.
func (c *Conversation) LastAssistantMessage() (Message, bool) {
	for i := len(c.Messages) - 1; i >= 0; i-- {
		if c.Messages[i].Role == RoleAssistant {
			return c.Messages[i], true
		}
	}
	return Message{}, false
}

// IsEmpty returns true if there are no messages.
func (c *Conversation) IsEmpty() bool {
	return len(c.Messages) == 0
}

// Clone returns a deep copy.
func (c *Conversation) Clone() *Conversation {
	cp := *c
	cp.Messages = make([]Message, len(c.Messages))
	copy(cp.Messages, c.Messages)
	return &cp
}

// DeriveTitle builds a title from the first user message.
func DeriveTitle(content string) string {
	title := util.TruncateRunes(strings.TrimSpace(content), TitleRunes)
	if title == "" {
		return SentinelTitle
	}
	return title
}

// =============================================================================
// SERIALIZATION
// =============================================================================

type conversationJSON struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt int64     `json:"createdAt"`
	UpdatedAt int64     `json:"updatedAt"`
}

// MarshalJSON writes the stored form with millisecond timestamps.
func (c Conversation) MarshalJSON() ([]byte, error) {
	msgs := c.Messages
	if msgs == nil {
		msgs = []Message{}
	}
	return json.Marshal(conversationJSON{
		ID:        c.ID,
		Title:     c.Title,
		Messages:  msgs,
		CreatedAt: toMillis(c.CreatedAt),
		UpdatedAt: toMillis(c.UpdatedAt),
	})
}

// UnmarshalJSON reads the stored form. A record with an updatedAt before
// createdAt is repaired rather than rejected.
func (c *Conversation) UnmarshalJSON(data []byte) error {
	var raw conversationJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	c.ID = raw.ID
	c.Title = raw.Title
	c.Messages = raw.Messages
	if c.Messages == nil {
		c.Messages = []Message{}
	}
	c.CreatedAt = fromMillis(raw.CreatedAt)
	c.UpdatedAt = fromMillis(raw.UpdatedAt)
	if c.UpdatedAt.Before(c.CreatedAt) {
		c.UpdatedAt = c.CreatedAt
	}
	if c.Title == "" {
		c.Title = SentinelTitle
	}
	return nil
}

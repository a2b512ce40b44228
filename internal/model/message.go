// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jeranaias/rigchat/internal/util"
)

// now is swapped in tests that need deterministic timestamps.
var now = time.Now

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	case RoleSystem:
		return "System"
	default:
		return string(r)
	}
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message is a single entry in a conversation log.
type Message struct {
	Role      Role
	Content   string
	Timestamp time.Time
}

// NewMessage creates a message stamped with the current time.
func NewMessage(role Role, content string) Message {
	return Message{Role: role, Content: content, Timestamp: stamp()}
}

// Preview returns the content on one line, truncated to maxRunes.
func (m Message) Preview(maxRunes int) string {
	return util.TruncateRunes(util.SingleLine(m.Content), maxRunes)
}

type messageJSON struct {
	Role      Role   `json:"role"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

// MarshalJSON writes the timestamp as Unix milliseconds.
func (m Message) MarshalJSON() ([]byte, error) {
	return json.Marshal(messageJSON{
		Role:      m.Role,
		Content:   m.Content,
		Timestamp: toMillis(m.Timestamp),
	})
}

// UnmarshalJSON reads the millisecond timestamp form.
func (m *Message) UnmarshalJSON(data []byte) error {
	var raw messageJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if !raw.Role.Valid() {
		return fmt.Errorf("unknown message role %q", raw.Role)
	}
	m.Role = raw.Role
	m.Content = raw.Content
	m.Timestamp = fromMillis(raw.Timestamp)
	return nil
}

// stamp returns the current time at the millisecond precision it is stored
// with, so live values equal their persisted copies.
func stamp() time.Time {
	return time.UnixMilli(now().UnixMilli())
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

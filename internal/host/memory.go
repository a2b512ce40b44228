// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package host

import "sync"

// Memory is an in-process host with a private clipboard. Opened URLs are
// recorded instead of launched.
type Memory struct {
	mu        sync.Mutex
	clip      string
	question  string
	visible   bool
	OpenedURL []string
}

// NewMemory creates a memory host.
func NewMemory(question string) *Memory {
	return &Memory{question: question, visible: true}
}

func (m *Memory) ReadClipboard() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clip, nil
}

func (m *Memory) WriteClipboard(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clip = text
	return nil
}

func (m *Memory) OpenURL(rawURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.OpenedURL = append(m.OpenedURL, rawURL)
	return nil
}

func (m *Memory) ShowWindow() {
	m.mu.Lock()
	m.visible = true
	m.mu.Unlock()
}

func (m *Memory) HideWindow() {
	m.mu.Lock()
	m.visible = false
	m.mu.Unlock()
}

// Visible reports the last Show/Hide call.
func (m *Memory) Visible() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.visible
}

func (m *Memory) InitialQuestion() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	q := m.question
	m.question = ""
	return q
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package host abstracts the environment the chat runs in: the system
// clipboard, the browser, window visibility and the question the chat
// was opened with.
package host

import (
	"errors"
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
	"strings"
	"sync"

	"github.com/atotto/clipboard"
)

// ErrClipboardUnavailable is returned when no clipboard is reachable.
var ErrClipboardUnavailable = errors.New("clipboard is not available")

// Host is the environment the chat runs in.
type Host interface {
	ReadClipboard() (string, error)
	WriteClipboard(text string) error

	// OpenURL opens an http or https URL in the user's browser.
	OpenURL(rawURL string) error

	ShowWindow()
	HideWindow()

	// InitialQuestion returns the question to send on entry, or "".
	// It is returned once; later calls return "".
	InitialQuestion() string
}

// =============================================================================
// LOCAL HOST
// =============================================================================

// Local is the host for a terminal session.
type Local struct {
	mu       sync.Mutex
	question string
	visible  bool

	// start launches a command; replaced in tests.
	start func(name string, args ...string) error
}

// NewLocal creates a local host that will hand out question once.
func NewLocal(question string) *Local {
	return &Local{
		question: strings.TrimSpace(question),
		visible:  true,
		start: func(name string, args ...string) error {
			return exec.Command(name, args...).Start()
		},
	}
}

// ReadClipboard returns the clipboard text.
func (l *Local) ReadClipboard() (string, error) {
	if clipboard.Unsupported {
		return "", ErrClipboardUnavailable
	}
	return clipboard.ReadAll()
}

// WriteClipboard replaces the clipboard text.
func (l *Local) WriteClipboard(text string) error {
	if clipboard.Unsupported {
		return ErrClipboardUnavailable
	}
	return clipboard.WriteAll(text)
}

// OpenURL opens rawURL with the platform opener.
func (l *Local) OpenURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("refusing to open %q: only http and https are allowed", rawURL)
	}

	switch runtime.GOOS {
	case "windows":
		return l.start("rundll32", "url.dll,FileProtocolHandler", u.String())
	case "darwin":
		return l.start("open", u.String())
	default:
		return l.start("xdg-open", u.String())
	}
}

// ShowWindow marks the window visible. A terminal has no window to raise.
func (l *Local) ShowWindow() {
	l.mu.Lock()
	l.visible = true
	l.mu.Unlock()
}

// HideWindow marks the window hidden.
func (l *Local) HideWindow() {
	l.mu.Lock()
	l.visible = false
	l.mu.Unlock()
}

// Visible reports the last Show/Hide call.
func (l *Local) Visible() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.visible
}

// InitialQuestion returns the startup question once.
func (l *Local) InitialQuestion() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	q := l.question
	l.question = ""
	return q
}

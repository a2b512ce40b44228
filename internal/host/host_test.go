// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package host

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ Host = (*Local)(nil)
	_ Host = (*Memory)(nil)
)

func TestLocal_InitialQuestionOnce(t *testing.T) {
	l := NewLocal("  what is SSE?  ")
	assert.Equal(t, "what is SSE?", l.InitialQuestion())
	assert.Empty(t, l.InitialQuestion())
}

func TestLocal_OpenURL(t *testing.T) {
	l := NewLocal("")
	var got []string
	l.start = func(name string, args ...string) error {
		got = append([]string{name}, args...)
		return nil
	}

	require.NoError(t, l.OpenURL("https://example.com/a?b=c"))
	require.NotEmpty(t, got)
	assert.Equal(t, "https://example.com/a?b=c", got[len(got)-1])
	if runtime.GOOS == "linux" {
		assert.Equal(t, "xdg-open", got[0])
	}
}

func TestLocal_OpenURLRejectsOtherSchemes(t *testing.T) {
	l := NewLocal("")
	l.start = func(string, ...string) error {
		t.Fatal("opener must not run")
		return nil
	}
	assert.Error(t, l.OpenURL("file:///etc/passwd"))
	assert.Error(t, l.OpenURL("javascript:alert(1)"))
}

func TestLocal_Visibility(t *testing.T) {
	l := NewLocal("")
	assert.True(t, l.Visible())
	l.HideWindow()
	assert.False(t, l.Visible())
	l.ShowWindow()
	assert.True(t, l.Visible())
}

func TestMemory(t *testing.T) {
	m := NewMemory("hi")
	require.NoError(t, m.WriteClipboard("copied"))
	text, err := m.ReadClipboard()
	require.NoError(t, err)
	assert.Equal(t, "copied", text)

	require.NoError(t, m.OpenURL("https://x"))
	assert.Equal(t, []string{"https://x"}, m.OpenedURL)

	assert.Equal(t, "hi", m.InitialQuestion())
	assert.Empty(t, m.InitialQuestion())
}

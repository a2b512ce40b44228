// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveTheme(t *testing.T) {
	assert.Equal(t, ThemeLight, ResolveTheme("light"))
	assert.Equal(t, ThemeDark, ResolveTheme("dark"))
	assert.Equal(t, ThemePlain, ResolveTheme("notty"))
	assert.Contains(t, []string{ThemeLight, ThemeDark}, ResolveTheme("auto"))
	assert.Contains(t, []string{ThemeLight, ThemeDark}, ResolveTheme(""))
}

func TestRender_PlainStyle(t *testing.T) {
	r := New(Options{Theme: ThemePlain, Width: 60})

	out := r.Render("# Title\n\nSome plain text.")
	assert.Contains(t, out, "# Title")
	assert.Contains(t, out, "Some plain text.")
}

func TestRender_BlankPassesThrough(t *testing.T) {
	r := New(Options{Theme: ThemePlain})
	assert.Equal(t, "", r.Render(""))
	assert.Equal(t, "  ", r.Render("  "))
}

func TestRenderStreaming_ThrottledAppendsTail(t *testing.T) {
	r := New(Options{Theme: ThemePlain, FPS: 1})

	first := r.RenderStreaming("Hello")
	assert.Contains(t, first, "Hello")

	// Within the same second the limiter has no token left.
	second := r.RenderStreaming("Hello world")
	assert.Equal(t, first+" world", second)
}

func TestRenderStreaming_UnrelatedSourceRerenders(t *testing.T) {
	r := New(Options{Theme: ThemePlain, FPS: 1})

	r.RenderStreaming("alpha")
	out := r.RenderStreaming("beta")
	assert.Contains(t, out, "beta")
	assert.NotContains(t, out, "alpha")
}

func TestRenderStreaming_UnlimitedAlwaysRenders(t *testing.T) {
	r := New(Options{Theme: ThemePlain})

	r.RenderStreaming("alpha")
	out := r.RenderStreaming("alpha beta")
	assert.Contains(t, out, "alpha beta")
}

func TestSetWidth(t *testing.T) {
	r := New(Options{Theme: ThemePlain})
	assert.Equal(t, DefaultWidth, r.Width())
	r.SetWidth(40)
	assert.Equal(t, 40, r.Width())
	r.SetWidth(0)
	assert.Equal(t, 40, r.Width())
}

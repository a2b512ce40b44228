// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package render turns assistant Markdown into terminal output.
//
// Full renders go through glamour. While a reply is streaming, re-renders
// are rate limited: between allowed frames the previous output is reused
// and only the raw tail since that frame is appended, so fast streams do
// not re-parse the whole reply for every fragment.
package render

import (
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
	"golang.org/x/time/rate"
)

// Style names accepted by Options.Theme.
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
	ThemeAuto  = "auto"
	ThemePlain = "notty"
)

// DefaultWidth is used when no width is known.
const DefaultWidth = 80

// Options configures a Renderer.
type Options struct {
	// Width wraps output; 0 means DefaultWidth.
	Width int

	// Theme is light, dark, auto or notty.
	Theme string

	// FPS caps streaming re-renders per second; 0 disables the cap.
	FPS int
}

// Renderer renders Markdown. It is safe for concurrent use.
type Renderer struct {
	mu      sync.Mutex
	opts    Options
	style   string
	term    *glamour.TermRenderer
	limiter *rate.Limiter

	// streaming frame cache
	lastSource string
	lastOutput string
}

// New creates a renderer. If glamour cannot be initialized, Render
// returns its input unchanged.
func New(opts Options) *Renderer {
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	r := &Renderer{opts: opts, style: ResolveTheme(opts.Theme)}
	if opts.FPS > 0 {
		r.limiter = rate.NewLimiter(rate.Every(time.Second/time.Duration(opts.FPS)), 1)
	}
	r.build()
	return r
}

// ResolveTheme maps a theme setting to a glamour style name. "auto" and
// unknown names follow the terminal background.
func ResolveTheme(theme string) string {
	switch theme {
	case ThemeLight, ThemeDark, ThemePlain:
		return theme
	}
	if termenv.HasDarkBackground() {
		return ThemeDark
	}
	return ThemeLight
}

func (r *Renderer) build() {
	term, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(r.style),
		glamour.WithWordWrap(r.opts.Width),
	)
	if err != nil {
		term = nil
	}
	r.term = term
	r.lastSource, r.lastOutput = "", ""
}

// Width returns the wrap width.
func (r *Renderer) Width() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.opts.Width
}

// SetWidth changes the wrap width. It is a no-op for the current width.
func (r *Renderer) SetWidth(width int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if width <= 0 || width == r.opts.Width {
		return
	}
	r.opts.Width = width
	r.build()
}

// SetTheme changes the style.
func (r *Renderer) SetTheme(theme string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	style := ResolveTheme(theme)
	if style == r.style {
		return
	}
	r.opts.Theme = theme
	r.style = style
	r.build()
}

// Render renders md completely.
func (r *Renderer) Render(md string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.renderLocked(md)
}

func (r *Renderer) renderLocked(md string) string {
	if r.term == nil || strings.TrimSpace(md) == "" {
		return md
	}
	out, err := r.term.Render(md)
	if err != nil {
		return md
	}
	return strings.Trim(out, "\n")
}

// RenderStreaming renders a reply that is still growing. When the limiter
// denies a frame and md extends the last rendered source, the cached
// output plus the raw new tail is returned.
func (r *Renderer) RenderStreaming(md string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	allowed := r.limiter == nil || r.limiter.Allow()
	if !allowed && r.lastSource != "" && strings.HasPrefix(md, r.lastSource) {
		return r.lastOutput + md[len(r.lastSource):]
	}
	r.lastSource = md
	r.lastOutput = r.renderLocked(md)
	return r.lastOutput
}

// Reset drops the streaming cache. Call it when a reply ends.
func (r *Renderer) Reset() {
	r.mu.Lock()
	r.lastSource, r.lastOutput = "", ""
	r.mu.Unlock()
}

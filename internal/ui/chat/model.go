// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/rigchat/internal/cloud"
	"github.com/jeranaias/rigchat/internal/commands"
	"github.com/jeranaias/rigchat/internal/config"
	"github.com/jeranaias/rigchat/internal/host"
	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/render"
	"github.com/jeranaias/rigchat/internal/session"
	"github.com/jeranaias/rigchat/internal/storage"
	"github.com/jeranaias/rigchat/internal/ui/components"
	"github.com/jeranaias/rigchat/internal/ui/styles"
)

// Layout.
const (
	headerHeight = 1
	noticeHeight = 1
	statusHeight = 1
	inputLines   = 3

	// border and padding of the input box
	inputChrome = 2
)

// =============================================================================
// OPTIONS
// =============================================================================

// Options configures a chat Model.
type Options struct {
	// Store is required.
	Store *storage.Manager

	// Host defaults to the local desktop.
	Host host.Host

	// Config defaults to config.Default().
	Config *config.Config

	// Settings are the effective settings: stored settings with the
	// config overrides applied.
	Settings config.Settings

	// Connect builds a client for settings. Defaults to a client for
	// Config.API.
	Connect func(*config.Config, config.Settings) *cloud.Client

	// Reloads delivers config files changed on disk. Optional.
	Reloads <-chan *config.Config

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// ExportDir receives /export output. Default: current directory.
	ExportDir string
}

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat screen.
type Model struct {
	store     *storage.Manager
	host      host.Host
	cfg       *config.Config
	connect   func(*config.Config, config.Settings) *cloud.Client
	reloads   <-chan *config.Config
	logger    *slog.Logger
	exportDir string
	ctx       context.Context

	// Conversation
	session *session.Session
	gen     *session.Generation

	// interrupted is set when the last reply was stopped or failed, so
	// its uncommitted partial text is still worth showing.
	interrupted bool

	// pending settings wait for the running generation to finish.
	pending *config.Settings

	registry *commands.Registry
	renderer *render.Renderer
	theme    *styles.Theme
	keys     KeyMap

	// UI Components
	header   *components.Header
	status   *components.StatusBar
	viewport viewport.Model
	input    textarea.Model
	spinner  spinner.Model

	width  int
	height int

	// output is the last command output, err the last error.
	output string
	err    error

	// rendered assistant messages, keyed by conversation, index and length
	cache map[string]string
}

// New creates a chat model on the store's current conversation.
func New(opts Options) (Model, error) {
	if opts.Store == nil {
		return Model{}, errors.New("chat: store is required")
	}
	if opts.Host == nil {
		opts.Host = host.NewLocal("")
	}
	if opts.Config == nil {
		opts.Config = config.Default()
	}
	if opts.Connect == nil {
		opts.Connect = defaultConnect
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	conv, err := opts.Store.Current()
	if err != nil {
		return Model{}, fmt.Errorf("failed to load conversation: %w", err)
	}

	settings := opts.Settings
	settings.FillDefaults()

	ta := textarea.New()
	ta.Placeholder = "Ask anything, or type /help"
	ta.ShowLineNumbers = false
	ta.Prompt = ""
	ta.CharLimit = 0
	ta.KeyMap.InsertNewline.SetKeys("alt+enter", "ctrl+j")
	ta.SetHeight(inputLines)
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 10,
	}

	theme := styles.NewTheme(settings.Theme)
	m := Model{
		store:     opts.Store,
		host:      opts.Host,
		cfg:       opts.Config,
		connect:   opts.Connect,
		reloads:   opts.Reloads,
		logger:    opts.Logger,
		exportDir: opts.ExportDir,
		ctx:       context.Background(),
		registry:  commands.NewRegistry(),
		renderer: render.New(render.Options{
			Width: opts.Config.UI.WordWrap,
			Theme: settings.Theme,
			FPS:   opts.Config.UI.RenderFPS,
		}),
		theme:    theme,
		keys:     DefaultKeyMap(),
		header:   components.NewHeader(theme),
		status:   components.NewStatusBar(theme),
		viewport: viewport.New(render.DefaultWidth, 10),
		input:    ta,
		spinner:  sp,
		cache:    make(map[string]string),
	}
	m.session = m.newSession(conv, settings)
	m.resize(render.DefaultWidth, 24)
	return m, nil
}

func defaultConnect(cfg *config.Config, s config.Settings) *cloud.Client {
	timeout, _ := cfg.APITimeout()
	return cloud.New(cloud.Config{BaseURL: cfg.API.BaseURL, APIKey: s.APIKey, Timeout: timeout})
}

func (m *Model) newSession(conv *model.Conversation, settings config.Settings) *session.Session {
	return session.New(session.Config{
		Conversation: conv,
		Client:       m.connect(m.cfg, settings),
		Store:        m.store,
		Settings:     settings,
		Logger:       m.logger,
	})
}

// Init shows the window and submits the host's initial question, if any.
func (m Model) Init() tea.Cmd {
	m.host.ShowWindow()
	cmds := []tea.Cmd{textarea.Blink}
	if q := m.host.InitialQuestion(); q != "" {
		cmds = append(cmds, submit(q))
	}
	if m.reloads != nil {
		cmds = append(cmds, waitForReload(m.reloads))
	}
	return tea.Batch(cmds...)
}

// Conversation returns a copy of the conversation on screen.
func (m Model) Conversation() *model.Conversation {
	return m.session.Conversation()
}

// Settings returns the effective settings.
func (m Model) Settings() config.Settings {
	return m.session.Settings()
}

// Generating reports whether a reply is being generated.
func (m Model) Generating() bool {
	return m.session.Generating()
}

// Err returns the error on screen, if any.
func (m Model) Err() error {
	return m.err
}

// =============================================================================
// STATE CHANGES
// =============================================================================

// send starts a generation for text.
func (m *Model) send(text string) tea.Cmd {
	m.output = ""
	gen, err := m.session.Send(m.ctx, text)
	if err != nil {
		if !errors.Is(err, session.ErrEmptyMessage) {
			m.err = err
		}
		m.refresh(true)
		return nil
	}
	m.gen = gen
	m.err = nil
	m.interrupted = false
	m.renderer.Reset()
	m.refresh(true)
	return tea.Batch(waitForEvent(gen), m.spinner.Tick)
}

// stop cancels the running generation. Its partial text stays on screen
// but is not saved.
func (m *Model) stop() {
	m.session.Stop()
	m.gen = nil
	m.interrupted = m.session.Partial() != ""
	m.output = "Stopped."
	m.renderer.Reset()
	m.finish()
	m.refresh(false)
}

// finish applies settings that arrived while generating.
func (m *Model) finish() {
	if m.pending == nil {
		return
	}
	s := *m.pending
	m.pending = nil
	m.applySettings(s)
}

// runCommand executes a slash command line.
func (m *Model) runCommand(line string) tea.Cmd {
	env := &commands.Env{
		Ctx:       m.ctx,
		Store:     m.store,
		Host:      m.host,
		Current:   m.session.Conversation(),
		Settings:  m.session.Settings(),
		Busy:      m.session.Generating(),
		ExportDir: m.exportDir,
		Connect: func(s config.Settings) *cloud.Client {
			return m.connect(m.cfg, s)
		},
	}

	res, err := m.registry.Execute(env, line)
	m.output = ""
	if err != nil {
		m.err = err
		m.refresh(false)
		return nil
	}
	m.err = nil
	m.output = res.Output

	switch res.Action {
	case commands.ActionQuit:
		m.host.HideWindow()
		return tea.Quit
	case commands.ActionSwitch:
		m.switchTo(res.Conversation)
	case commands.ActionSettings:
		m.applySettings(res.Settings)
	}
	m.refresh(true)
	return nil
}

// switchTo replaces the conversation on screen, stopping any generation.
func (m *Model) switchTo(conv *model.Conversation) {
	if m.session.Generating() {
		m.session.Stop()
	}
	m.gen = nil
	m.interrupted = false
	m.renderer.Reset()
	m.session = m.newSession(conv, m.session.Settings())
	m.cache = make(map[string]string)
}

// applySettings rebuilds the session for new settings. While generating
// the change is deferred until the reply ends.
func (m *Model) applySettings(s config.Settings) {
	if m.session.Generating() {
		m.pending = &s
		return
	}
	old := m.session.Settings()
	m.session = m.newSession(m.session.Conversation(), s)
	m.interrupted = false

	if s.Theme != old.Theme {
		m.theme = styles.NewTheme(s.Theme)
		m.header = components.NewHeader(m.theme)
		m.status = components.NewStatusBar(m.theme)
		m.renderer.SetTheme(s.Theme)
		m.cache = make(map[string]string)
		m.resize(m.width, m.height)
	}
}

// reload applies a config file changed on disk.
func (m *Model) reload(cfg *config.Config) {
	m.cfg = cfg
	stored, err := m.store.Settings()
	if err != nil {
		m.logger.Warn("failed to reload settings", "error", err)
		return
	}
	m.applySettings(cfg.Overlay(stored))
	m.output = "Configuration reloaded."
	m.refresh(false)
}

// resize lays the screen out for a terminal size.
func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	m.header.Width = width
	m.status.Width = width
	m.input.SetWidth(max(width-inputChrome-2, 10))

	m.viewport.Width = width
	m.viewport.Height = max(height-headerHeight-noticeHeight-statusHeight-inputLines-inputChrome, 1)

	wrap := m.cfg.UI.WordWrap
	if wrap <= 0 || wrap > width-2 {
		wrap = width - 2
	}
	wrap = max(wrap, 20)
	if wrap != m.renderer.Width() {
		m.renderer.SetWidth(wrap)
		m.cache = make(map[string]string)
	}
	m.refresh(false)
}

// refresh re-renders the transcript. The view follows new content when
// it was already at the bottom or force is set.
func (m *Model) refresh(force bool) {
	follow := force || m.viewport.AtBottom()
	m.viewport.SetContent(m.renderTranscript())
	if follow {
		m.viewport.GotoBottom()
	}
}

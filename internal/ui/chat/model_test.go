// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/rigchat/internal/cloud"
	"github.com/jeranaias/rigchat/internal/config"
	"github.com/jeranaias/rigchat/internal/host"
	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/storage"
)

func frame(content string) string {
	data, _ := json.Marshal(map[string]any{
		"choices": []any{map[string]any{"delta": map[string]any{"content": content}}},
	})
	return "data: " + string(data) + "\n\n"
}

func sseServer(t *testing.T, hold bool, writes ...string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, s := range writes {
			io.WriteString(w, s)
			flusher.Flush()
		}
		if hold {
			<-r.Context().Done()
		}
	}))
	t.Cleanup(server.Close)
	return server
}

type fixture struct {
	m    Model
	mgr  *storage.Manager
	host *host.Memory
}

func newFixture(t *testing.T, baseURL, question string, mutate func(*config.Settings)) fixture {
	t.Helper()
	mgr := storage.NewManager(storage.NewMemoryStore(), nil)
	settings := config.DefaultSettings()
	settings.APIKey = "sk-test"
	settings.Theme = config.ThemeDark
	if mutate != nil {
		mutate(&settings)
	}
	h := host.NewMemory(question)

	m, err := New(Options{
		Store:    mgr,
		Host:     h,
		Settings: settings,
		Connect: func(_ *config.Config, s config.Settings) *cloud.Client {
			return cloud.New(cloud.Config{BaseURL: baseURL, APIKey: s.APIKey})
		},
		ExportDir: t.TempDir(),
	})
	require.NoError(t, err)
	return fixture{m: m, mgr: mgr, host: h}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

// runCmd runs cmd, giving up after a while on commands that block.
func runCmd(cmd tea.Cmd) tea.Msg {
	out := make(chan tea.Msg, 1)
	go func() { out <- cmd() }()
	select {
	case msg := <-out:
		return msg
	case <-time.After(2 * time.Second):
		return nil
	}
}

// pump runs cmd and feeds back submissions and stream events until
// nothing more follows. Other messages are dropped.
func pump(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		switch msg := runCmd(c).(type) {
		case tea.BatchMsg:
			queue = append(queue, msg...)
		case submitMsg, streamEventMsg:
			var next tea.Cmd
			m, next = update(t, m, msg)
			queue = append(queue, next)
		}
	}
	return m
}

func typeAndSend(t *testing.T, m Model, text string) (Model, tea.Cmd) {
	t.Helper()
	m.input.SetValue(text)
	return update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
}

func TestSendCommitsReply(t *testing.T) {
	server := sseServer(t, false, frame("Hel"), frame("lo"), "data: [DONE]\n\n")
	f := newFixture(t, server.URL, "", nil)

	m, cmd := typeAndSend(t, f.m, "hi there")
	assert.True(t, m.Generating())
	assert.Empty(t, m.input.Value())

	m = pump(t, m, cmd)
	assert.False(t, m.Generating())
	require.NoError(t, m.Err())

	conv := m.Conversation()
	require.Len(t, conv.Messages, 2)
	assert.Equal(t, model.RoleUser, conv.Messages[0].Role)
	assert.Equal(t, "hi there", conv.Messages[0].Content)
	assert.Equal(t, "Hello", conv.Messages[1].Content)

	stored, err := f.mgr.Conversation(conv.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Messages, 2)
	assert.Contains(t, m.View(), "hi there")
}

func TestBlankInputIgnored(t *testing.T) {
	f := newFixture(t, "http://127.0.0.1:1", "", nil)
	m, cmd := typeAndSend(t, f.m, "   ")
	assert.Nil(t, cmd)
	assert.False(t, m.Generating())
	assert.Empty(t, m.Conversation().Messages)
}

func TestMissingKeyShowsHint(t *testing.T) {
	f := newFixture(t, "http://127.0.0.1:1", "", func(s *config.Settings) { s.APIKey = "" })

	m, cmd := typeAndSend(t, f.m, "hello")
	assert.Nil(t, cmd)
	assert.ErrorIs(t, m.Err(), cloud.ErrNotConfigured)
	assert.Empty(t, m.Conversation().Messages)
	assert.Contains(t, m.View(), "/set apiKey")
}

func TestAuthErrorKeepsUserMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"error":{"message":"invalid api key"}}`)
	}))
	t.Cleanup(server.Close)
	f := newFixture(t, server.URL, "", nil)

	m, cmd := typeAndSend(t, f.m, "hello")
	m = pump(t, m, cmd)

	var apiErr *cloud.APIError
	require.ErrorAs(t, m.Err(), &apiErr)
	assert.True(t, apiErr.IsAuth())
	assert.Len(t, m.Conversation().Messages, 1)
	assert.Contains(t, errorHint(m.Err()), "rejected")
}

func TestEscStopsGeneration(t *testing.T) {
	server := sseServer(t, true, frame("partial"))
	f := newFixture(t, server.URL, "", nil)

	m, cmd := typeAndSend(t, f.m, "hello")
	require.True(t, m.Generating())

	// deliver the first chunk only
	batch, ok := runCmd(cmd).(tea.BatchMsg)
	require.True(t, ok)
	ev := runCmd(batch[0])
	m, next := update(t, m, ev)
	require.NotNil(t, next)

	m, quit := update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Nil(t, quit)
	assert.False(t, m.Generating())
	assert.True(t, f.host.Visible())

	// the cancelled stream's close is ignored
	m = pump(t, m, next)
	assert.Len(t, m.Conversation().Messages, 1)
	assert.True(t, m.interrupted)
	assert.Contains(t, m.renderTranscript(), "incomplete reply")
}

func TestEscIdleHidesAndQuits(t *testing.T) {
	f := newFixture(t, "http://127.0.0.1:1", "", nil)
	_, cmd := update(t, f.m, tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
	assert.False(t, f.host.Visible())
}

func TestInitialQuestionIsSent(t *testing.T) {
	server := sseServer(t, false, frame("Answer"), "data: [DONE]\n\n")
	f := newFixture(t, server.URL, "  what is go?  ", nil)

	m := pump(t, f.m, f.m.Init())
	conv := m.Conversation()
	require.Len(t, conv.Messages, 2)
	assert.Equal(t, "what is go?", conv.Messages[0].Content)
	assert.Equal(t, "Answer", conv.Messages[1].Content)
	assert.Empty(t, f.host.InitialQuestion())
}

func TestSlashNewSwitchesConversation(t *testing.T) {
	server := sseServer(t, false, frame("ok"), "data: [DONE]\n\n")
	f := newFixture(t, server.URL, "", nil)

	m, cmd := typeAndSend(t, f.m, "first")
	m = pump(t, m, cmd)
	before := m.Conversation().ID

	m, cmd = typeAndSend(t, m, "/new")
	assert.Nil(t, cmd)
	assert.NotEqual(t, before, m.Conversation().ID)
	assert.Empty(t, m.Conversation().Messages)
	assert.Equal(t, "Started a new conversation.", m.output)

	current, err := f.mgr.CurrentID()
	require.NoError(t, err)
	assert.Equal(t, m.Conversation().ID, current)
}

func TestCommandErrorShown(t *testing.T) {
	f := newFixture(t, "http://127.0.0.1:1", "", nil)
	m, _ := typeAndSend(t, f.m, "/nosuchcommand")
	require.Error(t, m.Err())
	assert.Contains(t, m.View(), "Error:")
}

func TestCopyShortcut(t *testing.T) {
	server := sseServer(t, false, frame("copy me"), "data: [DONE]\n\n")
	f := newFixture(t, server.URL, "", nil)

	m, cmd := typeAndSend(t, f.m, "hello")
	m = pump(t, m, cmd)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlY})
	require.NoError(t, m.Err())
	clip, err := f.host.ReadClipboard()
	require.NoError(t, err)
	assert.Equal(t, "copy me", clip)
}

func TestSettingsCommandRebuildsSession(t *testing.T) {
	f := newFixture(t, "http://127.0.0.1:1", "", nil)
	m, _ := typeAndSend(t, f.m, "/web off")
	require.NoError(t, m.Err())
	assert.False(t, m.Settings().EnableSearch)

	stored, err := f.mgr.Settings()
	require.NoError(t, err)
	assert.False(t, stored.EnableSearch)
}

func TestTabCompletion(t *testing.T) {
	f := newFixture(t, "http://127.0.0.1:1", "", nil)
	m := f.m

	m.input.SetValue("/hel")
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, "/help ", m.input.Value())

	m.input.SetValue("/s")
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, "/s", m.input.Value())
	assert.Contains(t, m.output, "/search")
	assert.Contains(t, m.output, "/switch")
}

func TestConfigReload(t *testing.T) {
	f := newFixture(t, "http://127.0.0.1:1", "", nil)

	cfg := config.Default()
	cfg.API.Model = "qwen-plus"
	m, _ := update(t, f.m, configReloadedMsg{cfg: cfg})
	assert.Equal(t, "qwen-plus", m.Settings().Model)
	assert.Equal(t, "Configuration reloaded.", m.output)
}

func TestWindowResize(t *testing.T) {
	f := newFixture(t, "http://127.0.0.1:1", "", nil)
	m, _ := update(t, f.m, tea.WindowSizeMsg{Width: 100, Height: 40})
	assert.Equal(t, 100, m.viewport.Width)
	assert.Equal(t, 40-headerHeight-noticeHeight-statusHeight-inputLines-inputChrome, m.viewport.Height)
	assert.Equal(t, 98, m.renderer.Width())
}

func TestCommonPrefix(t *testing.T) {
	assert.Equal(t, "/s", commonPrefix([]string{"/search", "/set", "/switch"}))
	assert.Equal(t, "/model", commonPrefix([]string{"/model", "/models"}))
}

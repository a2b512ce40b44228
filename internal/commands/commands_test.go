// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/rigchat/internal/cloud"
	"github.com/jeranaias/rigchat/internal/config"
	"github.com/jeranaias/rigchat/internal/export"
	"github.com/jeranaias/rigchat/internal/host"
	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/storage"
)

type fixture struct {
	reg  *Registry
	env  *Env
	mgr  *storage.Manager
	clip *host.Memory
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mgr := storage.NewManager(storage.NewMemoryStore(), nil)
	current, err := mgr.Current()
	require.NoError(t, err)
	settings, err := mgr.Settings()
	require.NoError(t, err)

	clip := host.NewMemory("")
	return &fixture{
		reg:  NewRegistry(),
		mgr:  mgr,
		clip: clip,
		env: &Env{
			Ctx:       context.Background(),
			Store:     mgr,
			Host:      clip,
			Current:   current,
			Settings:  settings,
			ExportDir: t.TempDir(),
		},
	}
}

// run executes input and applies the result to the env like a caller
// would.
func (f *fixture) run(t *testing.T, input string) Result {
	t.Helper()
	res, err := f.reg.Execute(f.env, input)
	require.NoError(t, err, input)
	switch res.Action {
	case ActionSwitch:
		f.env.Current = res.Conversation
	case ActionSettings:
		f.env.Settings = res.Settings
	}
	return res
}

// addChat stores a conversation with one exchange and returns it.
func (f *fixture) addChat(t *testing.T, question, answer string) *model.Conversation {
	t.Helper()
	conv, err := f.mgr.NewConversation()
	require.NoError(t, err)
	_, err = f.mgr.AddMessage(conv.ID, model.NewMessage(model.RoleUser, question))
	require.NoError(t, err)
	conv, err = f.mgr.AddMessage(conv.ID, model.NewMessage(model.RoleAssistant, answer))
	require.NoError(t, err)
	return conv
}

// =============================================================================
// PARSER TESTS
// =============================================================================

func TestParse(t *testing.T) {
	reg := NewRegistry()

	_, ok := reg.Parse("hello /not a command")
	assert.False(t, ok)

	p, ok := reg.Parse(`  /SET systemPrompt "be brief, please"  `)
	require.True(t, ok)
	assert.Equal(t, "/set", p.Name)
	require.NotNil(t, p.Command)
	assert.Equal(t, []string{"systemPrompt", "be brief, please"}, p.Args)
	assert.Equal(t, `systemPrompt "be brief, please"`, p.RawArgs)

	p, ok = reg.Parse("/h")
	require.True(t, ok)
	assert.Equal(t, "/help", p.Command.Name)

	p, ok = reg.Parse("/nope")
	require.True(t, ok)
	assert.Nil(t, p.Command)
}

func TestSplitArgs(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"a b  c", []string{"a", "b", "c"}},
		{`"a b" c`, []string{"a b", "c"}},
		{`'it''s'`, []string{"its"}},
		{`"say \"hi\""`, []string{`say "hi"`}},
		{`""`, []string{""}},
		{"中文 参数", []string{"中文", "参数"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, splitArgs(tt.in), tt.in)
	}
}

func TestValidateArgs(t *testing.T) {
	reg := NewRegistry()

	err := ValidateArgs(reg.Get("/switch"), nil)
	var argErr *ArgError
	require.ErrorAs(t, err, &argErr)
	assert.Equal(t, "conversation", argErr.Arg)

	err = ValidateArgs(reg.Get("/export"), []string{"pdf"})
	require.ErrorAs(t, err, &argErr)
	assert.Contains(t, err.Error(), "got: pdf")

	assert.NoError(t, ValidateArgs(reg.Get("/export"), []string{"HTML"}))
}

func TestExecute_Errors(t *testing.T) {
	f := newFixture(t)

	_, err := f.reg.Execute(f.env, "hello")
	assert.Error(t, err)

	_, err = f.reg.Execute(f.env, "/bogus")
	assert.ErrorContains(t, err, "unknown command")

	f.env.Busy = true
	_, err = f.reg.Execute(f.env, "/new")
	assert.ErrorIs(t, err, ErrBusy)

	res, err := f.reg.Execute(f.env, "/settings")
	require.NoError(t, err)
	assert.Contains(t, res.Output, "model")
}

// =============================================================================
// CONVERSATION COMMAND TESTS
// =============================================================================

func TestHelp(t *testing.T) {
	f := newFixture(t)

	res := f.run(t, "/help")
	assert.Contains(t, res.Output, "Conversation")
	assert.Contains(t, res.Output, "/switch <n|id>")

	res = f.run(t, "/help model")
	assert.Contains(t, res.Output, "/model [id]")
	assert.Contains(t, res.Output, "aliases: /m")
}

func TestQuit(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, ActionQuit, f.run(t, "/q").Action)
}

func TestNewAndClear(t *testing.T) {
	f := newFixture(t)
	conv := f.addChat(t, "first question", "answer")
	f.env.Current = conv

	res := f.run(t, "/clear")
	assert.Equal(t, ActionSwitch, res.Action)
	assert.Equal(t, conv.ID, f.env.Current.ID)
	assert.Empty(t, f.env.Current.Messages)
	assert.True(t, f.env.Current.HasDefaultTitle())

	res = f.run(t, "/new")
	assert.Equal(t, ActionSwitch, res.Action)
	assert.NotEqual(t, conv.ID, f.env.Current.ID)
	id, err := f.mgr.CurrentID()
	require.NoError(t, err)
	assert.Equal(t, f.env.Current.ID, id)
}

func TestCopy(t *testing.T) {
	f := newFixture(t)

	_, err := f.reg.Execute(f.env, "/copy")
	assert.Error(t, err)

	f.env.Current = f.addChat(t, "q", "the answer")
	res := f.run(t, "/copy")
	assert.Contains(t, res.Output, "10 characters")
	text, _ := f.clip.ReadClipboard()
	assert.Equal(t, "the answer", text)
}

func TestExport(t *testing.T) {
	f := newFixture(t)
	f.env.Current = f.addChat(t, "q", "a")

	res := f.run(t, "/export")
	assert.Contains(t, res.Output, ".md")

	res = f.run(t, "/export html")
	assert.Contains(t, res.Output, ".html")

	res = f.run(t, "/export json")
	path := strings.TrimSpace(res.Output[strings.LastIndex(res.Output, " "):])
	convs, err := export.ReadHistoryFile(path)
	require.NoError(t, err)
	assert.NotEmpty(t, convs)
}

// =============================================================================
// HISTORY COMMAND TESTS
// =============================================================================

func TestListSwitchDelete(t *testing.T) {
	f := newFixture(t)
	older := f.addChat(t, "older chat", "a")
	time.Sleep(5 * time.Millisecond)
	newer := f.addChat(t, "newer chat", "b")
	f.env.Current = newer

	res := f.run(t, "/list")
	lines := strings.Split(res.Output, "\n")
	require.GreaterOrEqual(t, len(lines), 2)
	assert.Contains(t, lines[0], "newer chat")
	assert.True(t, strings.HasPrefix(lines[0], "*"))
	assert.Contains(t, lines[1], "older chat")

	res = f.run(t, "/switch 2")
	assert.Equal(t, ActionSwitch, res.Action)
	assert.Equal(t, older.ID, f.env.Current.ID)

	res = f.run(t, "/delete "+newer.ID[:8])
	assert.Equal(t, ActionNone, res.Action)
	_, err := f.mgr.Conversation(newer.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	res = f.run(t, "/delete")
	assert.Equal(t, ActionSwitch, res.Action)
	assert.NotEqual(t, older.ID, f.env.Current.ID)
}

func TestResolve(t *testing.T) {
	convs := []*model.Conversation{{ID: "abc1"}, {ID: "abc2"}, {ID: "xyz"}}

	c, err := Resolve(convs, "3")
	require.NoError(t, err)
	assert.Equal(t, "xyz", c.ID)

	c, err = Resolve(convs, "x")
	require.NoError(t, err)
	assert.Equal(t, "xyz", c.ID)

	_, err = Resolve(convs, "abc")
	assert.ErrorContains(t, err, "ambiguous")

	_, err = Resolve(convs, "0")
	assert.Error(t, err)

	_, err = Resolve(convs, "nope")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSearch(t *testing.T) {
	f := newFixture(t)
	f.addChat(t, "Tell me about Goroutines", "They are cheap threads.")
	f.addChat(t, "unrelated", "nothing")

	res := f.run(t, "/search goroutines")
	assert.Contains(t, res.Output, "Tell me about Goroutines")
	assert.NotContains(t, res.Output, "unrelated")

	res = f.run(t, "/search zebra")
	assert.Equal(t, "No matches.", res.Output)
}

func TestImport(t *testing.T) {
	f := newFixture(t)
	src := []*model.Conversation{
		{ID: "imp-1", Title: "imported", CreatedAt: time.UnixMilli(1), UpdatedAt: time.UnixMilli(2),
			Messages: []model.Message{{Role: model.RoleUser, Content: "hi", Timestamp: time.UnixMilli(1)}}},
	}
	path, err := export.WriteHistoryFile(t.TempDir(), src)
	require.NoError(t, err)

	res := f.run(t, "/import "+path)
	assert.Equal(t, ActionSwitch, res.Action)
	assert.Equal(t, "imp-1", f.env.Current.ID)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"id":"x"}`), 0600))
	_, err = f.reg.Execute(f.env, "/import "+bad)
	assert.ErrorIs(t, err, export.ErrInvalidFormat)
}

// =============================================================================
// MODEL AND SETTINGS COMMAND TESTS
// =============================================================================

func TestModel(t *testing.T) {
	f := newFixture(t)

	res := f.run(t, "/model")
	assert.Contains(t, res.Output, "Qwen3-Max")

	_, err := f.reg.Execute(f.env, "/model unknown-model")
	assert.ErrorContains(t, err, "unknown model")

	f.env.Settings.AddModel(model.ModelDescriptor{Value: "qwen-plus", Label: "Qwen Plus"})
	res = f.run(t, "/model qwen-plus")
	assert.Equal(t, ActionSettings, res.Action)
	assert.Equal(t, "qwen-plus", f.env.Settings.Model)

	stored, err := f.mgr.Settings()
	require.NoError(t, err)
	assert.Equal(t, "qwen-plus", stored.Model)
}

func TestWebToggle(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.env.Settings.EnableSearch)

	f.run(t, "/web")
	assert.False(t, f.env.Settings.EnableSearch)

	res := f.run(t, "/web on")
	assert.True(t, f.env.Settings.EnableSearch)
	assert.Equal(t, "Web search: on", res.Output)
}

func TestSystem(t *testing.T) {
	f := newFixture(t)

	res := f.run(t, "/system")
	assert.Contains(t, res.Output, config.DefaultSystemPrompt)

	f.run(t, "/system You are terse.")
	assert.Equal(t, "You are terse.", f.env.Settings.SystemPrompt)

	f.run(t, "/system none")
	assert.Empty(t, f.env.Settings.SystemPrompt)

	f.run(t, "/system default")
	assert.Equal(t, config.DefaultSystemPrompt, f.env.Settings.SystemPrompt)
}

func TestSet(t *testing.T) {
	f := newFixture(t)

	res := f.run(t, "/set temperature 1.2")
	assert.Equal(t, "temperature = 1.2", res.Output)
	assert.InDelta(t, 1.2, f.env.Settings.Temperature, 1e-9)

	_, err := f.reg.Execute(f.env, "/set temperature 3")
	assert.Error(t, err)
	assert.InDelta(t, 1.2, f.env.Settings.Temperature, 1e-9)

	_, err = f.reg.Execute(f.env, "/set colour red")
	assert.ErrorContains(t, err, "unknown setting")

	res = f.run(t, "/set apiKey sk-1234567890abcd")
	assert.NotContains(t, res.Output, "1234567890")
}

func TestValidate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":{"message":"Invalid API key"}}`))
			return
		}
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"hi"}}]}`))
	}))
	defer server.Close()

	f := newFixture(t)
	f.env.Connect = func(s config.Settings) *cloud.Client {
		return cloud.New(cloud.Config{BaseURL: server.URL, APIKey: s.APIKey})
	}

	f.env.Settings.APIKey = "bad"
	_, err := f.reg.Execute(f.env, "/validate")
	assert.ErrorContains(t, err, "Invalid API key")

	f.env.Settings.APIKey = "good"
	res := f.run(t, "/validate")
	assert.Equal(t, "API key is valid.", res.Output)
}

// =============================================================================
// COMPLETION TESTS
// =============================================================================

func TestComplete(t *testing.T) {
	reg := NewRegistry()

	assert.Equal(t, []string{"/model", "/models"}, reg.Complete("/mo", nil))
	assert.Nil(t, reg.Complete("plain text", nil))
	assert.Equal(t, []string{"/export html"}, reg.Complete("/export h", nil))
	assert.Equal(t, []string{"/model qwen-plus", "/model qwen3-max"}, reg.Complete("/model q", []string{"qwen3-max", "qwen-plus"}))
	assert.Equal(t, []string{"/set temperature"}, reg.Complete("/set temp", nil))
	assert.Nil(t, reg.Complete("/set temperature 1", nil))
}

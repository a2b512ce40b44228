// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/jeranaias/rigchat/internal/cloud"
	"github.com/jeranaias/rigchat/internal/config"
	"github.com/jeranaias/rigchat/internal/export"
	"github.com/jeranaias/rigchat/internal/host"
	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/storage"
	"github.com/jeranaias/rigchat/internal/util"
)

// =============================================================================
// HANDLER ENVIRONMENT
// =============================================================================

// Env is what a handler may read and change.
type Env struct {
	Ctx   context.Context
	Store *storage.Manager
	Host  host.Host

	// Current is the conversation on screen.
	Current *model.Conversation

	// Settings are the effective settings.
	Settings config.Settings

	// Busy is true while a reply is being generated.
	Busy bool

	// ExportDir receives exported files. Default: current directory.
	ExportDir string

	// Connect builds a client for settings. Required by /validate and
	// /models remote.
	Connect func(config.Settings) *cloud.Client
}

func (e *Env) context() context.Context {
	if e.Ctx == nil {
		return context.Background()
	}
	return e.Ctx
}

// Action tells the caller what changed.
type Action int

const (
	ActionNone Action = iota

	// ActionQuit ends the chat.
	ActionQuit

	// ActionSwitch replaces the current conversation with
	// Result.Conversation.
	ActionSwitch

	// ActionSettings replaces the settings with Result.Settings.
	ActionSettings
)

// Result is the outcome of a command.
type Result struct {
	Output       string
	Action       Action
	Conversation *model.Conversation
	Settings     config.Settings
}

// =============================================================================
// CONVERSATION HANDLERS
// =============================================================================

func handleQuit(env *Env, p ParseResult) (Result, error) {
	return Result{Action: ActionQuit}, nil
}

func handleNew(env *Env, p ParseResult) (Result, error) {
	conv, err := env.Store.NewConversation()
	if err != nil {
		return Result{}, err
	}
	return Result{Output: "Started a new conversation.", Action: ActionSwitch, Conversation: conv}, nil
}

func handleClear(env *Env, p ParseResult) (Result, error) {
	conv, err := env.Store.ClearMessages(env.Current.ID)
	if err != nil {
		return Result{}, err
	}
	return Result{Output: "Conversation cleared.", Action: ActionSwitch, Conversation: conv}, nil
}

func handleCopy(env *Env, p ParseResult) (Result, error) {
	msg, ok := env.Current.LastAssistantMessage()
	if !ok {
		return Result{}, errors.New("no reply to copy yet")
	}
	if env.Host == nil {
		return Result{}, host.ErrClipboardUnavailable
	}
	if err := env.Host.WriteClipboard(msg.Content); err != nil {
		return Result{}, fmt.Errorf("copy failed: %w", err)
	}
	return Result{Output: fmt.Sprintf("Copied %d characters.", len([]rune(msg.Content)))}, nil
}

func handleExport(env *Env, p ParseResult) (Result, error) {
	format := "md"
	if len(p.Args) > 0 {
		format = strings.ToLower(p.Args[0])
	}

	if format == "json" {
		convs, err := env.Store.Conversations()
		if err != nil {
			return Result{}, err
		}
		path, err := export.WriteHistoryFile(env.ExportDir, convs)
		if err != nil {
			return Result{}, err
		}
		return Result{Output: fmt.Sprintf("Exported %d conversations to %s", len(convs), path)}, nil
	}

	exp, err := export.ForFormat(format, nil)
	if err != nil {
		return Result{}, err
	}
	opts := export.DefaultOptions()
	if env.ExportDir != "" {
		opts.OutputDir = env.ExportDir
	}
	if env.Settings.Theme == config.ThemeDark {
		opts.Theme = "dark"
	}
	path, err := export.ExportToFile(env.Current, exp, opts)
	if err != nil {
		return Result{}, err
	}
	return Result{Output: "Exported to " + path}, nil
}

// =============================================================================
// HISTORY HANDLERS
// =============================================================================

// visible returns the listed conversations in display order.
func visible(env *Env) ([]*model.Conversation, error) {
	convs, err := env.Store.Conversations()
	if err != nil {
		return nil, err
	}
	return storage.Visible(convs, env.Current.ID), nil
}

// FormatList renders conversations as numbered lines. The current one is
// marked with "*".
func FormatList(convs []*model.Conversation, currentID string, titleWidth int) string {
	if len(convs) == 0 {
		return "No conversations."
	}
	var sb strings.Builder
	for i, c := range convs {
		marker := " "
		if c.ID == currentID {
			marker = "*"
		}
		title := util.PadWidth(util.TruncateWidth(c.DisplayTitle(), titleWidth), titleWidth)
		fmt.Fprintf(&sb, "%s %2d. %s  %3d msgs  %s\n", marker, i+1, title, len(c.Messages), humanize.Time(c.UpdatedAt))
	}
	return strings.TrimRight(sb.String(), "\n")
}

// Resolve finds a conversation by 1-based list number or by id or unique
// id prefix.
func Resolve(convs []*model.Conversation, ref string) (*model.Conversation, error) {
	ref = strings.TrimSpace(ref)
	if n, err := strconv.Atoi(ref); err == nil {
		if n < 1 || n > len(convs) {
			return nil, fmt.Errorf("no conversation number %d", n)
		}
		return convs[n-1], nil
	}

	var match *model.Conversation
	for _, c := range convs {
		if c.ID == ref {
			return c, nil
		}
		if strings.HasPrefix(c.ID, ref) {
			if match != nil {
				return nil, fmt.Errorf("ambiguous conversation id: %s", ref)
			}
			match = c
		}
	}
	if match == nil || ref == "" {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, ref)
	}
	return match, nil
}

func handleList(env *Env, p ParseResult) (Result, error) {
	convs, err := visible(env)
	if err != nil {
		return Result{}, err
	}
	return Result{Output: FormatList(convs, env.Current.ID, 32)}, nil
}

func handleSwitch(env *Env, p ParseResult) (Result, error) {
	convs, err := visible(env)
	if err != nil {
		return Result{}, err
	}
	target, err := Resolve(convs, p.Args[0])
	if err != nil {
		return Result{}, err
	}
	if err := env.Store.SetCurrentID(target.ID); err != nil {
		return Result{}, err
	}
	return Result{
		Output:       "Switched to: " + target.DisplayTitle(),
		Action:       ActionSwitch,
		Conversation: target.Clone(),
	}, nil
}

func handleDelete(env *Env, p ParseResult) (Result, error) {
	target := env.Current
	if len(p.Args) > 0 {
		convs, err := visible(env)
		if err != nil {
			return Result{}, err
		}
		if target, err = Resolve(convs, p.Args[0]); err != nil {
			return Result{}, err
		}
	}

	currentID, err := env.Store.Delete(target.ID)
	if err != nil {
		return Result{}, err
	}
	out := "Deleted: " + target.DisplayTitle()
	if currentID == env.Current.ID {
		return Result{Output: out}, nil
	}
	conv, err := env.Store.Conversation(currentID)
	if err != nil {
		return Result{}, err
	}
	return Result{Output: out, Action: ActionSwitch, Conversation: conv}, nil
}

func handleSearch(env *Env, p ParseResult) (Result, error) {
	results, err := env.Store.Search(p.RawArgs)
	if err != nil {
		return Result{}, err
	}
	if len(results) == 0 {
		return Result{Output: "No matches."}, nil
	}

	convs, err := visible(env)
	if err != nil {
		return Result{}, err
	}
	index := make(map[string]int, len(convs))
	for i, c := range convs {
		index[c.ID] = i + 1
	}

	var sb strings.Builder
	for _, r := range results {
		n := "  "
		if i, ok := index[r.Conversation.ID]; ok {
			n = fmt.Sprintf("%2d", i)
		}
		fmt.Fprintf(&sb, "%s. %s\n    %s\n", n, util.TruncateWidth(r.Conversation.DisplayTitle(), 40), r.Snippet)
	}
	return Result{Output: strings.TrimRight(sb.String(), "\n")}, nil
}

func handleImport(env *Env, p ParseResult) (Result, error) {
	convs, err := export.ReadHistoryFile(p.RawArgs)
	if err != nil {
		return Result{}, err
	}
	if err := env.Store.Import(convs); err != nil {
		return Result{}, err
	}
	current, err := env.Store.Current()
	if err != nil {
		return Result{}, err
	}
	return Result{
		Output:       fmt.Sprintf("Imported %d conversations.", len(convs)),
		Action:       ActionSwitch,
		Conversation: current,
	}, nil
}

// =============================================================================
// MODEL AND SETTINGS HANDLERS
// =============================================================================

// saveSettings validates and persists s.
func saveSettings(env *Env, s config.Settings, out string) (Result, error) {
	if err := env.Store.SaveSettings(s); err != nil {
		return Result{}, err
	}
	return Result{Output: out, Action: ActionSettings, Settings: s}, nil
}

// FormatModels renders the configured models, marking the current one.
func FormatModels(s config.Settings) string {
	var sb strings.Builder
	for _, d := range s.Models() {
		marker := " "
		if d.Value == s.Model {
			marker = "*"
		}
		search := ""
		if model.SupportsSearch(d.Value, s.Models()) {
			search = "  [search]"
		}
		fmt.Fprintf(&sb, "%s %-20s %s%s\n", marker, d.Value, d.DisplayName(), search)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func handleModel(env *Env, p ParseResult) (Result, error) {
	s := env.Settings
	if len(p.Args) == 0 {
		return Result{Output: "Model: " + s.CurrentModel().DisplayName() + "\n" + FormatModels(s)}, nil
	}

	id := p.Args[0]
	d, ok := model.FindModel(s.Models(), id)
	if !ok {
		return Result{}, fmt.Errorf("unknown model %q; add it with: rigchat config models add %s", id, id)
	}
	s.Model = d.Value
	return saveSettings(env, s, "Model: "+d.DisplayName())
}

func handleModels(env *Env, p ParseResult) (Result, error) {
	if len(p.Args) == 0 {
		return Result{Output: FormatModels(env.Settings)}, nil
	}
	if env.Connect == nil {
		return Result{}, errors.New("no endpoint configured")
	}
	ids, err := env.Connect(env.Settings).ListRemoteModels(env.context())
	if err != nil {
		return Result{}, err
	}
	if len(ids) == 0 {
		return Result{Output: "The endpoint reported no models."}, nil
	}
	return Result{Output: strings.Join(ids, "\n")}, nil
}

func handleWeb(env *Env, p ParseResult) (Result, error) {
	s := env.Settings
	if len(p.Args) == 0 {
		s.EnableSearch = !s.EnableSearch
	} else {
		s.EnableSearch = strings.EqualFold(p.Args[0], "on")
	}

	state := "off"
	if s.EnableSearch {
		state = "on"
		if !s.SearchActive() {
			state += " (not supported by " + s.CurrentModel().DisplayName() + ")"
		}
	}
	return saveSettings(env, s, "Web search: "+state)
}

func handleSystem(env *Env, p ParseResult) (Result, error) {
	s := env.Settings
	switch strings.ToLower(p.RawArgs) {
	case "":
		prompt := s.SystemPrompt
		if prompt == "" {
			prompt = "(none)"
		}
		return Result{Output: "System prompt: " + prompt}, nil
	case "default":
		s.SystemPrompt = config.DefaultSystemPrompt
	case "none":
		s.SystemPrompt = ""
	default:
		s.SystemPrompt = p.RawArgs
	}
	return saveSettings(env, s, "System prompt updated.")
}

func handleSet(env *Env, p ParseResult) (Result, error) {
	s := env.Settings
	key := p.Args[0]
	value := strings.TrimSpace(strings.TrimPrefix(p.RawArgs, key))
	value = strings.Trim(value, `"'`)
	if err := s.Set(key, value); err != nil {
		return Result{}, err
	}
	shown, _ := s.Get(key)
	return saveSettings(env, s, fmt.Sprintf("%s = %s", key, shown))
}

// FormatSettings renders every setting, with the key masked.
func FormatSettings(s config.Settings) string {
	var sb strings.Builder
	for _, key := range config.SettingKeys {
		v, _ := s.Get(key)
		fmt.Fprintf(&sb, "%-14s %s\n", key, util.SingleLine(v))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func handleSettings(env *Env, p ParseResult) (Result, error) {
	return Result{Output: FormatSettings(env.Settings)}, nil
}

func handleValidate(env *Env, p ParseResult) (Result, error) {
	if env.Connect == nil {
		return Result{}, errors.New("no endpoint configured")
	}
	if err := env.Connect(env.Settings).ValidateKey(env.context(), env.Settings.Model); err != nil {
		return Result{}, err
	}
	return Result{Output: "API key is valid."}, nil
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/jeranaias/rigchat/internal/cloud"
	"github.com/jeranaias/rigchat/internal/commands"
	"github.com/jeranaias/rigchat/internal/config"
	"github.com/jeranaias/rigchat/internal/host"
	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/session"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// prompter reads one line of input. io.EOF or liner.ErrPromptAborted end
// the REPL.
type prompter interface {
	Prompt(prompt string) (string, error)
}

// linePrompter provides line editing, history and tab completion of
// slash commands.
type linePrompter struct {
	line        *liner.State
	historyFile string
	logger      *slog.Logger
}

func newLinePrompter(logger *slog.Logger, settings config.Settings) *linePrompter {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	registry := commands.NewRegistry()
	models := modelIDs(settings.Models())
	line.SetCompleter(func(input string) []string {
		return registry.Complete(input, models)
	})

	historyFile := ""
	if dir, err := config.ConfigDir(); err == nil {
		historyFile = filepath.Join(dir, "chat_history")
	}
	p := &linePrompter{line: line, historyFile: historyFile, logger: logger}
	p.loadHistory()
	return p
}

func (p *linePrompter) loadHistory() {
	if p.historyFile == "" {
		return
	}
	if f, err := os.Open(p.historyFile); err == nil {
		p.line.ReadHistory(f)
		f.Close()
	}
}

// Prompt reads a line and records it in the history.
func (p *linePrompter) Prompt(prompt string) (string, error) {
	input, err := p.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		p.line.AppendHistory(input)
	}
	return input, nil
}

// Close saves the history and restores the terminal.
func (p *linePrompter) Close() {
	defer p.line.Close()
	if p.historyFile == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(p.historyFile), 0700); err != nil {
		return
	}
	f, err := os.OpenFile(p.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		p.logger.Warn("failed to save input history", "error", err)
		return
	}
	defer f.Close()
	p.line.WriteHistory(f)
}

func modelIDs(models []model.ModelDescriptor) []string {
	ids := make([]string, len(models))
	for i, d := range models {
		ids[i] = d.Value
	}
	return ids
}

// =============================================================================
// REPL
// =============================================================================

// repl is the line-mode chat.
type repl struct {
	app      *App
	host     host.Host
	in       prompter
	out      io.Writer
	registry *commands.Registry
	sess     *session.Session
}

func newREPL(app *App, h host.Host, in prompter, out io.Writer) *repl {
	return &repl{
		app:      app,
		host:     h,
		in:       in,
		out:      out,
		registry: commands.NewRegistry(),
	}
}

func (r *repl) newSession(conv *model.Conversation, settings config.Settings) {
	r.sess = session.New(session.Config{
		Conversation: conv,
		Client:       r.app.Connect(settings),
		Store:        r.app.Store,
		Settings:     settings,
		Logger:       r.app.Logger,
	})
}

// run reads lines until /quit, EOF or Ctrl+C at the prompt.
func (r *repl) run(ctx context.Context) error {
	conv, err := r.app.Store.Current()
	if err != nil {
		return err
	}
	settings, err := r.app.Settings()
	if err != nil {
		return err
	}
	r.newSession(conv, settings)

	fmt.Fprintf(r.out, "%s %s\n", TitleStyle.Render("rigchat"),
		DimStyle.Render(settings.CurrentModel().DisplayName()+"  /help for commands, /quit to leave"))
	if !settings.HasAPIKey() {
		fmt.Fprintln(r.out, WarningStyle.Render("No API key set. Use /set apiKey <key>."))
	}

	if q := r.host.InitialQuestion(); q != "" {
		fmt.Fprintln(r.out, PromptStyle.Render("> ")+q)
		r.send(ctx, q)
	}

	for {
		input, err := r.in.Prompt("> ")
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
				fmt.Fprintln(r.out)
				return nil
			}
			return err
		}

		input = strings.TrimSpace(input)
		switch {
		case input == "":
			continue
		case strings.HasPrefix(input, "/"):
			if r.command(ctx, input) {
				return nil
			}
		default:
			r.send(ctx, input)
		}
	}
}

// send streams one reply. Ctrl+C stops the reply, not the REPL.
func (r *repl) send(ctx context.Context, text string) {
	genCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	wrote := false
	_, err := r.sess.Run(genCtx, text, func(chunk string) {
		wrote = true
		io.WriteString(r.out, chunk)
	})
	if wrote {
		fmt.Fprintln(r.out)
	}

	switch {
	case err == nil:
	case errors.Is(err, cloud.ErrAborted):
		fmt.Fprintln(r.out, DimStyle.Render("[stopped]"))
	default:
		DisplayError(r.out, err)
	}
}

// command runs a slash command and reports whether the REPL should end.
func (r *repl) command(ctx context.Context, line string) bool {
	env := &commands.Env{
		Ctx:       ctx,
		Store:     r.app.Store,
		Host:      r.host,
		Current:   r.sess.Conversation(),
		Settings:  r.sess.Settings(),
		ExportDir: cwd(),
		Connect:   r.app.Connect,
	}
	res, err := r.registry.Execute(env, line)
	if err != nil {
		DisplayError(r.out, err)
		return false
	}
	if res.Output != "" {
		fmt.Fprintln(r.out, res.Output)
	}

	switch res.Action {
	case commands.ActionQuit:
		return true
	case commands.ActionSwitch:
		r.newSession(res.Conversation, r.sess.Settings())
		r.printTranscript()
	case commands.ActionSettings:
		r.newSession(r.sess.Conversation(), res.Settings)
	}
	return false
}

// printTranscript shows the conversation switched to.
func (r *repl) printTranscript() {
	for _, msg := range r.sess.Conversation().Messages {
		fmt.Fprintf(r.out, "%s\n%s\n\n", LabelStyle.Render(msg.Role.DisplayName()), msg.Content)
	}
}

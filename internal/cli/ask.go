// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/rigchat/internal/render"
	"github.com/jeranaias/rigchat/internal/session"
)

type askFlags struct {
	raw bool
	cur bool
}

func newAskCommand(flags *globalFlags) *cobra.Command {
	var af askFlags
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask one question and print the reply",
		Long: `Ask one question and print the reply.

The question starts a new conversation unless --continue is given. On a
terminal the reply is rendered as Markdown once complete; otherwise it is
streamed as it arrives.`,
		Example: `  rigchat ask "What does context.Cause return?"
  echo "summarise this" | rigchat ask --raw -`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.Join(args, " ")
			if question == "-" {
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return err
				}
				question = string(b)
			}
			return withApp(flags, func(app *App) error {
				return runAsk(cmd.Context(), app, cmd.OutOrStdout(), question, af)
			})
		},
	}
	cmd.Flags().BoolVar(&af.raw, "raw", false, "stream plain text even on a terminal")
	cmd.Flags().BoolVarP(&af.cur, "continue", "c", false, "ask in the current conversation")
	return cmd
}

func runAsk(ctx context.Context, app *App, out io.Writer, question string, af askFlags) error {
	settings, err := app.Settings()
	if err != nil {
		return err
	}

	conv, err := app.Store.Current()
	if err != nil {
		return err
	}
	if !af.cur && !conv.IsEmpty() {
		if conv, err = app.Store.NewConversation(); err != nil {
			return err
		}
	}

	sess := session.New(session.Config{
		Conversation: conv,
		Client:       app.Connect(settings),
		Store:        app.Store,
		Settings:     settings,
		Logger:       app.Logger,
	})

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	pretty := !af.raw && isTerminal(out)
	var onChunk func(string)
	if !pretty {
		onChunk = func(chunk string) { io.WriteString(out, chunk) }
	}

	msg, err := sess.Run(ctx, question, onChunk)
	if err != nil {
		if !pretty && sess.Partial() != "" {
			fmt.Fprintln(out)
		}
		return err
	}
	if msg == nil {
		return nil
	}
	if pretty {
		r := render.New(render.Options{Width: GetTerminalWidth(), Theme: settings.Theme})
		fmt.Fprintln(out, r.Render(msg.Content))
		return nil
	}
	fmt.Fprintln(out)
	return nil
}

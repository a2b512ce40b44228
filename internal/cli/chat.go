// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/jeranaias/rigchat/internal/host"
	"github.com/jeranaias/rigchat/internal/ui/chat"
)

type chatFlags struct {
	plain bool
	ask   string
}

func newChatCommand(flags *globalFlags) *cobra.Command {
	var cf chatFlags
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Open the chat",
		Long: `Open the chat on the current conversation.

The full-screen interface is used on a terminal; --plain, ui.plain or a
redirected stdin/stdout selects the line-mode REPL instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, flags, cf)
		},
	}
	cmd.Flags().BoolVar(&cf.plain, "plain", false, "use the line-mode REPL")
	cmd.Flags().StringVar(&cf.ask, "ask", "", "send this question on entry")
	return cmd
}

func runChat(cmd *cobra.Command, flags *globalFlags, cf chatFlags) error {
	return withApp(flags, func(app *App) error {
		settings, err := app.Settings()
		if err != nil {
			return err
		}
		h := host.NewLocal(cf.ask)

		if cf.plain || app.Config.UI.Plain || !IsTTY() || !IsStdoutTTY() {
			in := newLinePrompter(app.Logger, settings)
			defer in.Close()
			r := newREPL(app, h, in, cmd.OutOrStdout())
			return r.run(cmd.Context())
		}

		reloads, stop := app.watchConfig()
		defer stop()

		m, err := chat.New(chat.Options{
			Store:     app.Store,
			Host:      h,
			Config:    app.Config,
			Settings:  settings,
			Connect:   app.connectWith,
			Reloads:   reloads,
			Logger:    app.Logger,
			ExportDir: cwd(),
		})
		if err != nil {
			return err
		}
		app.Logger.Info("chat started", "model", settings.Model)
		_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
		return err
	})
}

func cwd() string {
	dir, err := os.Getwd()
	if err != nil {
		return "."
	}
	return dir
}

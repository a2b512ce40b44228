// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "rigchat",
		Short: "Chat with a hosted language model from the terminal",
		Long: `rigchat streams replies from an OpenAI-compatible chat endpoint
(DashScope by default) and keeps your conversations locally.

Run without arguments to open the chat. Type /help inside it for commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, flags, chatFlags{})
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "config file (default ~/.rigchat/config.toml)")
	pf.StringVar(&flags.backend, "store", "", "storage backend: sqlite, badger or memory")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn or error")

	root.AddCommand(
		newChatCommand(flags),
		newAskCommand(flags),
		newConfigCommand(flags),
		newHistoryCommand(flags),
		newModelsCommand(flags),
		newVersionCommand(),
	)
	return root
}

// Execute runs the command line and returns the exit code.
func Execute() int {
	root := NewRootCommand()
	if err := root.Execute(); err != nil {
		DisplayError(root.ErrOrStderr(), err)
		return ExitCode(err)
	}
	return ExitSuccess
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "rigchat %s (commit %s, built %s, %s/%s)\n",
				Version, GitCommit, BuildDate, runtime.GOOS, runtime.GOARCH)
		},
	}
}

// withApp opens the App for the duration of fn.
func withApp(flags *globalFlags, fn func(*App) error) error {
	app, err := openApp(flags)
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(app)
}

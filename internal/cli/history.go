// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/rigchat/internal/commands"
	"github.com/jeranaias/rigchat/internal/export"
	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/storage"
	"github.com/jeranaias/rigchat/internal/util"
)

const listTitleWidth = 40

func newHistoryCommand(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "history",
		Aliases: []string{"hist"},
		Short:   "Manage saved conversations",
		Long: `Manage saved conversations.

A conversation is referred to by its number in "history list" or by its
id (a unique prefix is enough).`,
	}
	cmd.AddCommand(
		newHistoryListCommand(flags),
		newHistoryShowCommand(flags),
		newHistoryUseCommand(flags),
		newHistoryDeleteCommand(flags),
		newHistoryClearCommand(flags),
		newHistorySearchCommand(flags),
		newHistoryExportCommand(flags),
		newHistoryImportCommand(flags),
		newHistoryClearAllCommand(flags),
	)
	return cmd
}

// visible returns the listed conversations and the current id.
func visible(app *App) ([]*model.Conversation, string, error) {
	convs, err := app.Store.Conversations()
	if err != nil {
		return nil, "", err
	}
	cur, err := app.Store.CurrentID()
	if err != nil {
		return nil, "", err
	}
	return storage.Visible(convs, cur), cur, nil
}

// resolveRef finds a conversation by list number or id; "" means the
// current one.
func resolveRef(app *App, ref string) (*model.Conversation, error) {
	if ref == "" {
		return app.Store.Current()
	}
	convs, _, err := visible(app)
	if err != nil {
		return nil, err
	}
	return commands.Resolve(convs, ref)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func optionalArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func newHistoryListCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List conversations, most recent first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(flags, func(app *App) error {
				convs, cur, err := visible(app)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), commands.FormatList(convs, cur, listTitleWidth))
				return nil
			})
		},
	}
}

func newHistoryShowCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show [n|id]",
		Short: "Print a conversation as Markdown",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(flags, func(app *App) error {
				conv, err := resolveRef(app, optionalArg(args))
				if err != nil {
					return err
				}
				opts := export.DefaultOptions()
				opts.IncludeMetadata = false
				data, err := export.NewMarkdownExporter(opts).Export(conv)
				if err != nil {
					return err
				}
				cmd.OutOrStdout().Write(data)
				return nil
			})
		},
	}
}

func newHistoryUseCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "use <n|id>",
		Aliases: []string{"switch"},
		Short:   "Make a conversation current",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(flags, func(app *App) error {
				conv, err := resolveRef(app, args[0])
				if err != nil {
					return err
				}
				if err := app.Store.SetCurrentID(conv.ID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Switched to %s\n", conv.DisplayTitle())
				return nil
			})
		},
	}
}

func newHistoryDeleteCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <n|id>",
		Aliases: []string{"rm"},
		Short:   "Delete a conversation",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(flags, func(app *App) error {
				conv, err := resolveRef(app, args[0])
				if err != nil {
					return err
				}
				if _, err := app.Store.Delete(conv.ID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", conv.DisplayTitle())
				return nil
			})
		},
	}
}

func newHistoryClearCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "clear [n|id]",
		Short: "Remove every message of a conversation",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(flags, func(app *App) error {
				conv, err := resolveRef(app, optionalArg(args))
				if err != nil {
					return err
				}
				if _, err := app.Store.ClearMessages(conv.ID); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Conversation cleared.")
				return nil
			})
		},
	}
}

func newHistorySearchCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "search <text>",
		Short: "Find conversations by title or content",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(flags, func(app *App) error {
				results, err := app.Store.Search(strings.Join(args, " "))
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(results) == 0 {
					fmt.Fprintln(out, "No matches.")
					return nil
				}
				for _, r := range results {
					fmt.Fprintf(out, "%s  %s\n    %s\n",
						DimStyle.Render(shortID(r.Conversation.ID)),
						util.TruncateWidth(r.Conversation.DisplayTitle(), listTitleWidth),
						r.Snippet)
				}
				return nil
			})
		},
	}
}

func newHistoryExportCommand(flags *globalFlags) *cobra.Command {
	var format, dir string
	cmd := &cobra.Command{
		Use:   "export [n|id]",
		Short: "Export conversations",
		Long: `Export conversations.

--format json writes every conversation to an importable history file.
md and html write one conversation (default: the current one).`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if dir == "" {
				dir = cwd()
			}
			return withApp(flags, func(app *App) error {
				out := cmd.OutOrStdout()
				if strings.EqualFold(format, "json") {
					convs, err := app.Store.Conversations()
					if err != nil {
						return err
					}
					path, err := export.WriteHistoryFile(dir, convs)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Exported %d conversations to %s\n", len(convs), path)
					return nil
				}

				conv, err := resolveRef(app, optionalArg(args))
				if err != nil {
					return err
				}
				opts := export.DefaultOptions()
				opts.OutputDir = dir
				settings, err := app.Settings()
				if err == nil && settings.Theme == "dark" {
					opts.Theme = "dark"
				}
				exp, err := export.ForFormat(format, opts)
				if err != nil {
					return err
				}
				path, err := export.ExportToFile(conv, exp, opts)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Exported to %s\n", path)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "json, md or html")
	cmd.Flags().StringVarP(&dir, "output", "o", "", "output directory (default: current directory)")
	return cmd
}

func newHistoryImportCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace all conversations with a history file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(flags, func(app *App) error {
				convs, err := export.ReadHistoryFile(args[0])
				if err != nil {
					return err
				}
				if err := app.Store.Import(convs); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d conversations.\n", len(convs))
				return nil
			})
		},
	}
}

func newHistoryClearAllCommand(flags *globalFlags) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear-all",
		Short: "Delete all conversations and settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return ErrConfirmationRequired
			}
			return withApp(flags, func(app *App) error {
				if err := app.Store.ClearAll(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "All data cleared.")
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm")
	return cmd
}

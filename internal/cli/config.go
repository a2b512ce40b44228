// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/rigchat/internal/cloud"
	"github.com/jeranaias/rigchat/internal/commands"
	"github.com/jeranaias/rigchat/internal/config"
	"github.com/jeranaias/rigchat/internal/model"
)

func newConfigCommand(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show and change configuration",
		Long: `Show and change configuration.

Keys with a dot (log.level, api.base_url, ui.render_fps, ...) live in the
config file. Plain keys (apiKey, model, enableSearch, temperature,
maxTokens, systemPrompt, theme) are chat settings kept in the store.`,
	}
	cmd.AddCommand(
		newConfigShowCommand(flags),
		newConfigGetCommand(flags),
		newConfigSetCommand(flags),
		newConfigSetKeyCommand(flags),
		newConfigValidateCommand(flags),
		newConfigPathCommand(flags),
		newConfigModelsCommand(flags),
	)
	return cmd
}

func isFileKey(key string) bool {
	return strings.Contains(key, ".")
}

func newConfigShowCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(flags, func(app *App) error {
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, TitleStyle.Render("Config file"))
				fmt.Fprintf(out, "%s%s\n", LabelStyle.Render("path"), app.ConfigPath)
				for _, key := range config.Keys() {
					v, err := app.Config.Get(key)
					if err != nil {
						return err
					}
					if key == "api.key" {
						v = config.MaskKey(fmt.Sprint(v))
					}
					fmt.Fprintf(out, "%s%v\n", LabelStyle.Render(key), v)
				}

				settings, err := app.Settings()
				if err != nil {
					return err
				}
				fmt.Fprintln(out)
				fmt.Fprintln(out, TitleStyle.Render("Chat settings"))
				fmt.Fprintln(out, commands.FormatSettings(settings))
				return nil
			})
		},
	}
}

func newConfigGetCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print one value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(flags, func(app *App) error {
				key := args[0]
				if isFileKey(key) {
					v, err := app.Config.Get(key)
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), v)
					return nil
				}
				settings, err := app.Settings()
				if err != nil {
					return err
				}
				v, err := settings.Get(key)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), v)
				return nil
			})
		},
	}
}

func newConfigSetCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change one value",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], strings.Join(args[1:], " ")
			return withApp(flags, func(app *App) error {
				if isFileKey(key) {
					cfg, err := app.rawConfig()
					if err != nil {
						return err
					}
					if err := cfg.Set(key, value); err != nil {
						return err
					}
					if err := cfg.Validate(); err != nil {
						return err
					}
					if err := config.SaveTOML(cfg, app.ConfigPath); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", key, value)
					return nil
				}

				settings, err := app.Store.Settings()
				if err != nil {
					return err
				}
				if err := settings.Set(key, value); err != nil {
					return err
				}
				if err := app.Store.SaveSettings(settings); err != nil {
					return err
				}
				shown, _ := settings.Get(key)
				fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", key, shown)
				return nil
			})
		},
	}
}

func newConfigSetKeyCommand(flags *globalFlags) *cobra.Command {
	var stdin bool
	cmd := &cobra.Command{
		Use:   "set-key",
		Short: "Set the API key without echoing it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var key string
			var err error
			if stdin {
				key, err = readLine(cmd.InOrStdin())
			} else {
				fmt.Fprint(cmd.ErrOrStderr(), "API key: ")
				key, err = readSecret("read the API key")
				fmt.Fprintln(cmd.ErrOrStderr())
			}
			if err != nil {
				return err
			}
			key = strings.TrimSpace(key)
			if key == "" {
				return fmt.Errorf("empty API key")
			}

			return withApp(flags, func(app *App) error {
				settings, err := app.Store.Settings()
				if err != nil {
					return err
				}
				settings.APIKey = key
				if err := app.Store.SaveSettings(settings); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "API key saved (%s).\n", config.MaskKey(key))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&stdin, "stdin", false, "read the key from stdin")
	return cmd
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return line, nil
}

func newConfigValidateCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the API key against the endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(flags, func(app *App) error {
				settings, err := app.Settings()
				if err != nil {
					return err
				}
				client := app.Connect(settings)
				if !client.IsConfigured() {
					return cloud.MissingKeyError()
				}
				if err := client.ValidateKey(cmd.Context(), settings.Model); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render("[OK]")+" API key is valid.")
				return nil
			})
		},
	}
}

func newConfigPathCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := flags.configPath
			if path == "" {
				p, err := config.ConfigPath()
				if err != nil {
					return err
				}
				path = p
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}

func newConfigModelsCommand(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "Manage the selectable models",
	}

	var label string
	var search bool
	add := &cobra.Command{
		Use:   "add <id>",
		Short: "Add or replace a custom model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(flags, func(app *App) error {
				settings, err := app.Store.Settings()
				if err != nil {
					return err
				}
				settings.AddModel(model.ModelDescriptor{Value: args[0], Label: label, SupportsSearch: search})
				if err := app.Store.SaveSettings(settings); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %s.\n", args[0])
				return nil
			})
		},
	}
	add.Flags().StringVar(&label, "label", "", "display name")
	add.Flags().BoolVar(&search, "search", false, "the model supports web search")

	remove := &cobra.Command{
		Use:     "remove <id>",
		Aliases: []string{"rm"},
		Short:   "Remove a custom model",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(flags, func(app *App) error {
				settings, err := app.Store.Settings()
				if err != nil {
					return err
				}
				if !settings.RemoveModel(args[0]) {
					return fmt.Errorf("no model %q", args[0])
				}
				if err := app.Store.SaveSettings(settings); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s.\n", args[0])
				return nil
			})
		},
	}

	cmd.AddCommand(add, remove)
	return cmd
}

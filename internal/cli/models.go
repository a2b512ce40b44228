// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jeranaias/rigchat/internal/commands"
)

func newModelsCommand(flags *globalFlags) *cobra.Command {
	var remote bool
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List the selectable models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(flags, func(app *App) error {
				settings, err := app.Settings()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if !remote {
					fmt.Fprintln(out, commands.FormatModels(settings))
					return nil
				}
				ids, err := app.Connect(settings).ListRemoteModels(cmd.Context())
				if err != nil {
					return err
				}
				for _, id := range ids {
					fmt.Fprintln(out, id)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&remote, "remote", false, "ask the endpoint instead")
	return cmd
}

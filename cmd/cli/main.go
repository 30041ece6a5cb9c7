// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/foundriesio/apps-upgrader/cli/api"
	"github.com/foundriesio/apps-upgrader/cli/config"
	"github.com/foundriesio/apps-upgrader/cli/subcommands/apps"
	"github.com/foundriesio/apps-upgrader/cli/subcommands/login"
	"github.com/foundriesio/apps-upgrader/context"
)

var rootCmd = &cobra.Command{
	Use:   "appsctl",
	Short: "A command line interface to the appliance apps service",
	Long: `appsctl inspects the apps installed on an appliance and previews what
an unattended upgrade run would do.

Configuration is stored in $HOME/.config/appsctl.yaml`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config logic for login command
		if skipsApi(cmd) {
			return nil
		}

		configPath, err := cmd.Flags().GetString("config")
		if err != nil {
			return fmt.Errorf("failed to get config flag: %w", err)
		}
		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		contextName, err := cmd.Flags().GetString("context")
		if err != nil {
			return fmt.Errorf("failed to get context flag: %w", err)
		}

		appctx, err := cfg.GetContext(contextName)
		if err != nil {
			return fmt.Errorf("failed to get current context: %w", err)
		}

		client, err := api.Connect(cmd.Context(), *appctx)
		if err != nil {
			return err
		}

		ctx := api.CtxWithApi(cmd.Context(), client)
		cmd.SetContext(ctx)

		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if skipsApi(cmd) {
			return nil
		}
		return api.CtxGetApi(cmd.Context()).Close()
	},
}

func skipsApi(cmd *cobra.Command) bool {
	return cmd.Name() == "login" || cmd.Name() == "help"
}

func init() {
	rootCmd.PersistentFlags().StringP("context", "c", "", "Specify the context to use from the configuration file")
	rootCmd.PersistentFlags().StringP("config", "f", "", "Specify the configuration file to use")

	rootCmd.AddCommand(login.LoginCmd)
	rootCmd.AddCommand(apps.AppsCmd)
}

func main() {
	log, err := context.InitLogger("warning", "text")
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	if err := rootCmd.ExecuteContext(context.CtxWithLog(context.Background(), log)); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

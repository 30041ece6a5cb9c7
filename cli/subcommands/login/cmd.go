// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package login

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/foundriesio/apps-upgrader/cli/api"
	"github.com/foundriesio/apps-upgrader/cli/config"
	"github.com/foundriesio/apps-upgrader/context"
)

var LoginCmd = &cobra.Command{
	Use:   "login <context-name> <appliance-url>",
	Short: "Configure authentication for an appliance",
	Long: `Save an appliance URL and API key as a named context.

The configuration is written to ~/.config/appsctl.yaml. Use --check to
authenticate once before saving.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		token, _ := cmd.Flags().GetString("token")
		binding, _ := cmd.Flags().GetString("binding")
		verifyTLS, _ := cmd.Flags().GetBool("verify-tls")
		check, _ := cmd.Flags().GetBool("check")
		setDefault, _ := cmd.Flags().GetBool("set-default")
		configPath, _ := cmd.Flags().GetString("config")

		appCtx := config.Context{
			URL:       args[1],
			Token:     token,
			Binding:   binding,
			VerifyTLS: verifyTLS,
		}
		if check {
			client, err := api.Connect(cmd.Context(), appCtx)
			if err != nil {
				return err
			}
			if err := client.Close(); err != nil {
				context.CtxGetLog(cmd.Context()).Warn("failed to close API client", "error", err)
			}
		}
		return login(cmd.OutOrStdout(), args[0], appCtx, configPath, setDefault)
	},
}

func init() {
	LoginCmd.Flags().String("token", "", "API key for authentication")
	LoginCmd.Flags().String("binding", "rpc", "Remote API flavor: rpc or rest")
	LoginCmd.Flags().Bool("verify-tls", false, "Verify the appliance's TLS certificate")
	LoginCmd.Flags().Bool("check", false, "Authenticate before saving the context")
	LoginCmd.Flags().Bool("set-default", true, "Set this context as the default")
	LoginCmd.Flags().String("config", "", "Specify the configuration file to use")
	cobra.CheckErr(LoginCmd.MarkFlagRequired("token"))
}

func login(out io.Writer, contextName string, appCtx config.Context, configPath string, setDefault bool) error {
	if appCtx.Token == "" {
		return fmt.Errorf("--token is required")
	}
	if b := appCtx.ApiBinding(); b != "rpc" && b != "rest" {
		return fmt.Errorf("unknown binding %q, expected rpc or rest", b)
	}

	// Load existing config or create new one
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg = &config.Config{}
		} else {
			return fmt.Errorf("failed to load config: %w", err)
		}
	}

	cfg.Upsert(contextName, appCtx, setDefault)
	if err := config.SaveConfig(configPath, cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Fprintf(out, "Successfully configured context '%s'\n", contextName)
	fmt.Fprintf(out, "  Appliance URL: %s (%s)\n", appCtx.URL, appCtx.ApiBinding())
	if cfg.ActiveContext == contextName {
		fmt.Fprintf(out, "  Set as default context\n")
	}

	return nil
}

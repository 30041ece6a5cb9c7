// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package apps

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	models "github.com/foundriesio/apps-upgrader/apps"
	"github.com/foundriesio/apps-upgrader/cli/api"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List installed apps",
	Long:  `List the apps installed on the appliance and whether an upgrade is available`,
	RunE: func(cmd *cobra.Command, args []string) error {
		upgradable, _ := cmd.Flags().GetBool("upgradable")
		list, err := api.CtxGetApi(cmd.Context()).ListApps(cmd.Context())
		if err != nil {
			return err
		}
		if upgradable {
			list = models.Upgradable(list)
		}
		renderList(cmd.OutOrStdout(), list)
		return nil
	},
}

func init() {
	listCmd.Flags().Bool("upgradable", false, "Only show apps with an upgrade available")
	AppsCmd.AddCommand(listCmd)
}

func renderList(w io.Writer, list []models.App) {
	if len(list) == 0 {
		fmt.Fprintln(w, "No apps found")
		return
	}
	rows := make([][]string, 0, len(list))
	for _, app := range list {
		rows = append(rows, []string{app.Name, app.State, app.Version, strconv.FormatBool(app.UpgradeAvailable)})
	}
	fmt.Fprintln(w, newTable([]string{"NAME", "STATE", "VERSION", "UPGRADE"}, rows, nil))
}

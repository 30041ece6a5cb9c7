// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package apps

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	models "github.com/foundriesio/apps-upgrader/apps"
	"github.com/foundriesio/apps-upgrader/cli/api"
	"github.com/foundriesio/apps-upgrader/policy"
)

const decisionUpgrade = "upgrade"

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show what an upgrade run would do",
	Long: `Apply the upgrade policy to the apps that have an upgrade available and
show which ones would be upgraded. Nothing is changed on the appliance.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		exclude, _ := cmd.Flags().GetStringSlice("exclude")
		include, _ := cmd.Flags().GetStringSlice("include")
		onlyRunning, _ := cmd.Flags().GetBool("only-running")
		p, err := policy.New(exclude, include, onlyRunning)
		if err != nil {
			return err
		}

		list, err := api.CtxGetApi(cmd.Context()).ListApps(cmd.Context())
		if err != nil {
			return err
		}
		renderPlan(cmd.OutOrStdout(), list, p)
		return nil
	},
}

func init() {
	planCmd.Flags().StringSlice("exclude", nil, "Apps to never upgrade")
	planCmd.Flags().StringSlice("include", nil, "Only upgrade these apps")
	planCmd.Flags().Bool("only-running", false, "Only upgrade running apps")
	AppsCmd.AddCommand(planCmd)
}

type planRow struct {
	App      string
	State    string
	Decision string
}

func plan(list []models.App, p policy.Policy) []planRow {
	var rows []planRow
	for _, app := range models.Upgradable(list) {
		d := policy.ShouldUpgrade(app, p)
		row := planRow{App: app.Name, State: app.State, Decision: decisionUpgrade}
		if d.Skipped() {
			row.Decision = "skip: " + string(d.Reason)
		}
		if row.App == "" {
			row.App = "<" + app.Id + ">"
		}
		rows = append(rows, row)
	}
	return rows
}

func renderPlan(w io.Writer, list []models.App, p policy.Policy) {
	rows := plan(list, p)
	if len(rows) == 0 {
		fmt.Fprintln(w, "No apps have an upgrade available")
		return
	}
	cells := make([][]string, 0, len(rows))
	upgrades := 0
	for _, r := range rows {
		cells = append(cells, []string{r.App, r.State, r.Decision})
		if r.Decision == decisionUpgrade {
			upgrades++
		}
	}
	t := newTable([]string{"APP", "STATE", "DECISION"}, cells, func(row []string) lipgloss.Style {
		if row[2] == decisionUpgrade {
			return goodStyle
		}
		return dimStyle
	})
	fmt.Fprintln(w, t)
	fmt.Fprintf(w, "%d of %d apps would be upgraded\n", upgrades, len(rows))
}

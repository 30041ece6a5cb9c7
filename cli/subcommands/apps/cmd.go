// Copyright (c) Qualcomm Technologies, Inc. and/or its subsidiaries.
// SPDX-License-Identifier: BSD-3-Clause-Clear

package apps

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

var AppsCmd = &cobra.Command{
	Use:   "apps",
	Short: "Inspect installed apps",
	Long:  `Commands for inspecting the apps installed on the appliance`,
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	goodStyle   = cellStyle.Foreground(lipgloss.Color("#22c55e"))
	dimStyle    = cellStyle.Foreground(lipgloss.Color("#6b7280"))
)

// newTable returns a table whose rows are styled by styleRow. styleRow may be
// nil.
func newTable(headers []string, rows [][]string, styleRow func(row []string) lipgloss.Style) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if styleRow != nil && row >= 0 && row < len(rows) {
				return styleRow(rows[row])
			}
			return cellStyle
		})
}

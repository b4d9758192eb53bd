// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"clusterharness/internal/testset"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered test sets",
	Long:  "Lists every registered test set with its tests and declared cluster requirements",
	RunE: func(cmd *cobra.Command, args []string) error {
		tw := table.NewWriter()
		tw.SetOutputMirror(os.Stdout)
		tw.AppendHeader(table.Row{"Test Set", "Test", "Requirements"})
		for _, reg := range testset.All() {
			reqs := "invalid"
			if sets, err := reg.New().Requirements(); err == nil {
				reqs = ""
				for i, s := range sets {
					if i > 0 {
						reqs += "\n"
					}
					reqs += s.String()
				}
			}
			for i, t := range reg.Tests {
				if i == 0 {
					tw.AppendRow(table.Row{reg.Name, t.Name, reqs})
				} else {
					tw.AppendRow(table.Row{"", t.Name, ""})
				}
			}
		}
		tw.SetStyle(table.StyleLight)
		tw.Render()
		return nil
	},
}

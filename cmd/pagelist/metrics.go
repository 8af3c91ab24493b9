// Pagelist - Page List Journal and Ordered List Materialization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pagelist

package main

import (
	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/tomtom215/pagelist/internal/metrics"
)

// renderMetrics prints this process's metrics whose names start with one of
// prefixes.
func renderMetrics(cmd *cobra.Command, prefixes ...string) error {
	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Metric", "Labels", "Value"})
	for _, prefix := range prefixes {
		samples, err := metrics.Snapshot(prefix)
		if err != nil {
			return err
		}
		for _, s := range samples {
			t.AppendRow(table.Row{s.Name, s.Labels, humanize.Ftoa(s.Value)})
		}
	}
	t.Render()
	return nil
}

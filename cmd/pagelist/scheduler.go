// Pagelist - Page List Journal and Ordered List Materialization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pagelist

package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/tomtom215/pagelist/internal/queue"
)

func newRunCmd(a *app) *cobra.Command {
	var showMetrics bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one scheduler pass",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sched, _, err := a.scheduler()
			if err != nil {
				return err
			}
			res, err := sched.Run(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "discovered %d lists, processed %d pages, reconciled %d, changed %d\n",
				res.Discovered, len(res.Processed), res.Reconciled, res.Changed)
			if res.TimedOut {
				fmt.Fprintln(out, "stopped at the loop timeout")
			}
			fmt.Fprintf(out, "next run %s\n", humanize.Time(res.NextWake))
			if showMetrics {
				return renderMetrics(cmd, "pagelist_scheduler_", "pagelist_reconciliations_", "pagelist_queue_")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&showMetrics, "metrics", false, "Print the scheduler metrics of this pass")
	return cmd
}

func newProcessCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "process PATH",
		Short: "Reconcile one page against every list now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sched, _, err := a.scheduler()
			if err != nil {
				return err
			}
			changed, err := sched.ProcessPage(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d lists changed\n", changed)
			return nil
		},
	}
}

func newResetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Mark every list for a full re-sweep on the next run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sched, _, err := a.scheduler()
			if err != nil {
				return err
			}
			n, err := sched.ResetAll(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "reset %d lists\n", n)
			return nil
		},
	}
}

func newRequeueCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "requeue",
		Short: "Queue every page of the site for review",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sched, _, err := a.scheduler()
			if err != nil {
				return err
			}
			n, err := sched.RequeueAll(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "queued %d pages\n", n)
			return nil
		},
	}
}

func newQueueCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Show work queue items in processing order, including leased and deferred ones",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, q, err := a.scheduler()
			if err != nil {
				return err
			}
			items, err := q.Pending(cmd.Context(), queue.Filter{Limit: limit, Busy: true})
			if err != nil {
				return err
			}
			total, err := q.Len(cmd.Context())
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Priority", "Not before", "URI", "Lease"})
			now := time.Now().UnixMicro()
			for _, it := range items {
				lease := ""
				if it.LeaseExpiry > now {
					lease = it.LeaseHolder + " until " + humanize.Time(time.UnixMicro(it.LeaseExpiry))
				}
				t.AppendRow(table.Row{it.Priority, humanize.Time(time.UnixMicro(it.NotBefore)), it.URI, lease})
			}
			t.AppendFooter(table.Row{"", "", fmt.Sprintf("%d of %d items", len(items), total), ""})
			t.Render()
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum items shown (0 for all)")
	return cmd
}

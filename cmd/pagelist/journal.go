// Pagelist - Page List Journal and Ordered List Materialization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pagelist

package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/tomtom215/pagelist/internal/journal"
	"github.com/tomtom215/pagelist/internal/lists"
	"github.com/tomtom215/pagelist/internal/logging"
	"github.com/tomtom215/pagelist/internal/relay"
)

func newJournalCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Inspect and append to the page journal",
	}
	cmd.AddCommand(newJournalAppendCmd(a))
	cmd.AddCommand(newJournalStatusCmd(a))
	return cmd
}

func newJournalAppendCmd(a *app) *cobra.Command {
	var (
		priority int
		delay    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "append URI...",
		Short: "Journal page keys without touching the store",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if priority < 0 || priority > 255 {
				return fmt.Errorf("priority %d out of range 0-255", priority)
			}
			j, err := a.openJournal()
			if err != nil {
				return err
			}
			ksd := time.Now().Add(delay).UnixMicro()
			for _, uri := range args {
				e := journal.Entry{URI: uri, Priority: uint8(priority), KeyStartDate: ksd}
				if err := j.AppendStrict(cmd.Context(), e); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "journaled %d entries\n", len(args))
			return nil
		},
	}
	cmd.Flags().IntVar(&priority, "priority", int(lists.PriorityImport), "Priority (0-255, lower is sooner)")
	cmd.Flags().DurationVar(&delay, "delay", 0, "Delay processing by this long")
	return cmd
}

func newJournalStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the journal hour files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			j, err := a.openJournal()
			if err != nil {
				return err
			}
			hours, err := j.Stats(cmd.Context())
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Hour", "Size", "Pending", "Modified"})
			total := 0
			for _, h := range hours {
				total += h.Pending
				t.AppendRow(table.Row{
					fmt.Sprintf("%02d", h.Hour),
					humanize.Bytes(uint64(h.Size)),
					h.Pending,
					humanize.Time(h.ModTime),
				})
			}
			t.AppendFooter(table.Row{"", "", total, ""})
			t.Render()
			fmt.Fprintf(cmd.OutOrStdout(), "journal dir: %s\n", j.Dir())
			return nil
		},
	}
}

func newDrainCmd(a *app) *cobra.Command {
	var showMetrics bool
	cmd := &cobra.Command{
		Use:   "drain",
		Short: "Relay the journal to the coordinator once",
		Long:  "Relay the journal to the coordinator once. A session that fails part way leaves the " +
			"unacknowledged entries journaled and exits 0; only an unreachable coordinator is an error.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			j, err := a.openJournal()
			if err != nil {
				return err
			}
			t, err := relay.DialNATS(relay.NATSConfig{
				URL:           coordinatorURL(a.cfg.Coordinator),
				SubjectPrefix: a.cfg.Coordinator.SubjectPrefix,
				ClientName:    "pagelist-drain",
			})
			if err != nil {
				return err
			}
			defer func() { _ = t.Close() }()

			res, err := relay.Cycle(cmd.Context(), t, j, sessionConfig(a.cfg.Relay))
			if errors.Is(err, relay.ErrNotReady) {
				return fmt.Errorf("coordinator at %s: %w", coordinatorURL(a.cfg.Coordinator), err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "session %s: sent %d, acked %d, malformed %d",
				res.Name, res.Sent, res.Acked, res.Malformed)
			switch {
			case err != nil:
				// Unacknowledged entries stay in the journal for the next drain.
				logging.Warn().Err(err).Str("session", res.Name).Msg("Drain session failed")
				fmt.Fprintf(cmd.OutOrStdout(), ", failed: %v", err)
			case res.Stopped:
				fmt.Fprintf(cmd.OutOrStdout(), ", stopped: %s", res.Reason)
			}
			fmt.Fprintln(cmd.OutOrStdout())
			if showMetrics {
				return renderMetrics(cmd, "pagelist_relay_", "pagelist_journal_")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&showMetrics, "metrics", false, "Print the relay and journal metrics of this session")
	return cmd
}

// Pagelist - Page List Journal and Ordered List Materialization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pagelist

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomtom215/pagelist/internal/lists"
)

// schedulerContext builds the context of a CLI write. A negative priority
// keeps the created/updated default.
func schedulerContext(priority int, delay string) (*lists.SchedulerContext, error) {
	sc := lists.NewSchedulerContext(lists.PriorityUpdated)
	if priority >= 0 {
		if priority > 255 {
			return nil, fmt.Errorf("priority %d out of range 0-255", priority)
		}
		sc.OverridePriority(uint8(priority))
	}
	if delay != "" {
		d, err := time.ParseDuration(delay)
		if err != nil {
			return nil, err
		}
		sc.OverrideStartDateOffset(d)
	}
	return sc, nil
}

func pageFlags(cmd *cobra.Command, in *lists.PageInput, priority *int, delay *string) {
	cmd.Flags().StringVar(&in.Title, "title", "", "Page title")
	cmd.Flags().StringVar(&in.Type, "type", "", "Page type path or taxonomy name")
	cmd.Flags().BoolVar(&in.Public, "public", false, "Link the page to the public content type")
	cmd.Flags().IntVar(priority, "priority", -1, "Raise journal urgency to at most this priority (0-255, lower is sooner); never lowers it")
	cmd.Flags().StringVar(delay, "delay", "", "Delay processing, e.g. 10m or 2h")
}

func newPageCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "page",
		Short: "Manage pages",
	}

	var (
		in       lists.PageInput
		priority int
		delay    string
	)
	put := &cobra.Command{
		Use:   "put PATH",
		Short: "Store a page and journal the change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := schedulerContext(priority, delay)
			if err != nil {
				return err
			}
			w, err := a.pageWriter()
			if err != nil {
				return err
			}
			in.Path = args[0]
			p, err := w.Put(cmd.Context(), sc, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "stored %s\n", a.site.Key(p.Path))
			return nil
		},
	}
	pageFlags(put, &in, &priority, &delay)
	cmd.AddCommand(put)
	return cmd
}

func newListCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Manage list pages",
	}

	var (
		in       lists.ListInput
		priority int
		delay    string
	)
	put := &cobra.Command{
		Use:   "put PATH",
		Short: "Store a list page; the next scheduler run sweeps it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := schedulerContext(priority, delay)
			if err != nil {
				return err
			}
			w, err := a.pageWriter()
			if err != nil {
				return err
			}
			in.Path = args[0]
			def, err := w.PutList(cmd.Context(), sc, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "stored list %s selector=%s\n", def.Key, def.Selector)
			return nil
		},
	}
	pageFlags(put, &in.PageInput, &priority, &delay)
	put.Flags().StringVar(&in.Selector, "selector", "all", "Candidate selector: all, children[=PATH], descendants[=PATH], public, type=PATH, hand-picked=P1,P2")
	put.Flags().StringVar(&in.Check, "check", "true", "Check script deciding membership")
	put.Flags().StringVar(&in.Key, "key", "", "Sort key script (default: the page path)")
	put.Flags().IntVar(&in.PageSize, "page-size", 0, "Entries per page (default: paging.default_page_size)")
	put.Flags().StringVar(&in.ListName, "name", "", "List name, used for the page-<name> query parameter")
	cmd.AddCommand(put)
	return cmd
}

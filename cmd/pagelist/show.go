// Pagelist - Page List Journal and Ordered List Materialization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pagelist

package main

import (
	"fmt"
	"net/url"

	"github.com/goccy/go-json"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/tomtom215/pagelist/internal/lists"
	"github.com/tomtom215/pagelist/internal/paging"
	"github.com/tomtom215/pagelist/internal/store"
)

type showEntry struct {
	Position int    `json:"position"`
	SortKey  string `json:"sort_key"`
	Page     string `json:"page"`
}

type showOutput struct {
	List          string        `json:"list"`
	NumberOfItems int           `json:"number_of_items"`
	Page          int           `json:"page"`
	TotalPages    int           `json:"total_pages"`
	Entries       []showEntry   `json:"entries"`
	Navigation    []paging.Link `json:"navigation,omitempty"`
}

func newShowCmd(a *app) *cobra.Command {
	var (
		query    string
		format   string
		maxItems int
	)
	cmd := &cobra.Command{
		Use:   "show PATH",
		Short: "Print one page of a list",
		Long:  "Print one page of a list. --page takes the same value as the page-<name> query parameter, e.g. p2,s20 or o41.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			path := store.CleanPath(args[0])
			isList, err := st.HasLink(ctx, lists.LinkListType, path, lists.ListTypePath)
			if err != nil {
				return err
			}
			if !isList {
				return fmt.Errorf("%s is not a list", a.site.Key(path))
			}
			def, err := lists.LoadList(ctx, st, a.site, path)
			if err != nil {
				return err
			}

			size := def.PageSize
			if size <= 0 {
				size = a.cfg.Paging.DefaultPageSize
			}
			p := paging.New(def.Name, def.NumberOfItems, size)
			p.ParseQuery(url.Values{p.ParamName(): {query}})
			p.SetMaximumItems(maxItems)
			if p.PageSize() > a.cfg.Paging.MaxPageSize {
				p.SetPageSize(a.cfg.Paging.MaxPageSize)
			}
			entries, err := paging.Window(ctx, st, def.Path, p)
			if err != nil {
				return err
			}

			out := showOutput{
				List:          def.Key,
				NumberOfItems: p.NumberOfItems(),
				Page:          p.CurrentPage(),
				TotalPages:    p.TotalPages(),
				Navigation:    p.Navigation(2),
			}
			for i, e := range entries {
				out.Entries = append(out.Entries, showEntry{Position: p.Offset() + i, SortKey: e.SortKey, Page: e.Page})
			}

			switch format {
			case "json":
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			case "table":
				renderWindow(cmd, out, a.site)
				return nil
			default:
				return fmt.Errorf("invalid format: %s (valid values: table, json)", format)
			}
		},
	}
	cmd.Flags().StringVar(&query, "page", "", "Paging value such as p2, p2,s20 or o41")
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table or json")
	cmd.Flags().IntVar(&maxItems, "max-items", 0, "Show at most this many list entries in total (0 means no cap)")
	return cmd
}

func renderWindow(cmd *cobra.Command, out showOutput, site store.Site) {
	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	t.SetTitle(fmt.Sprintf("%s: page %d of %d, %d items", out.List, out.Page, out.TotalPages, out.NumberOfItems))
	t.AppendHeader(table.Row{"#", "Sort key", "Page"})
	for _, e := range out.Entries {
		page := e.Page
		if rel, ok := site.Path(e.Page); ok {
			page = rel
		}
		t.AppendRow(table.Row{e.Position, e.SortKey, page})
	}
	t.Render()
}

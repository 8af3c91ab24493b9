// Pagelist - Page List Journal and Ordered List Materialization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pagelist

package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/pagelist/internal/lists"
	"github.com/tomtom215/pagelist/internal/logging"
	"github.com/tomtom215/pagelist/internal/paging"
	"github.com/tomtom215/pagelist/internal/store"
)

// WindowItem is one list entry in a window.
type WindowItem struct {
	Position int    `json:"position"`
	SortKey  string `json:"sort_key"`
	Page     string `json:"page"`
	Path     string `json:"path,omitempty"`
}

// WindowResponse is the body of GET /lists/*.
type WindowResponse struct {
	List          string        `json:"list"`
	Name          string        `json:"name,omitempty"`
	Param         string        `json:"param"`
	NumberOfItems int           `json:"number_of_items"`
	LastUpdated   int64         `json:"last_updated"`
	Page          int           `json:"page"`
	PageSize      int           `json:"page_size"`
	TotalPages    int           `json:"total_pages"`
	Offset        int           `json:"offset"`
	Items         []WindowItem  `json:"items"`
	Navigation    []paging.Link `json:"navigation"`
}

const navigationWindow = 2

// MaxItemsParam caps the number of list entries a window may reach.
const MaxItemsParam = "max"

// ListWindow serves one page of a materialized list.
func (s *Server) ListWindow(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	ctx := r.Context()
	path := store.CleanPath(chi.URLParam(r, "*"))

	def, err := s.loadList(r, path)
	switch {
	case errors.Is(err, store.ErrNotFound):
		respondError(w, http.StatusNotFound, CodeNotFound, "no such page", nil)
		return
	case errors.Is(err, ErrNotAList):
		respondError(w, http.StatusNotFound, CodeNotFound, "page is not a list", nil)
		return
	case err != nil:
		respondError(w, http.StatusInternalServerError, CodeStore, "failed to load list", err)
		return
	}

	size := def.PageSize
	if size <= 0 {
		size = s.cfg.DefaultPageSize
	}
	p := paging.New(def.Name, def.NumberOfItems, size)
	p.ParseQuery(r.URL.Query())
	if v := r.URL.Query().Get(MaxItemsParam); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, CodeInvalid, "max must be a non-negative integer", nil)
			return
		}
		p.SetMaximumItems(n)
	}
	if s.cfg.MaxPageSize > 0 && p.PageSize() > s.cfg.MaxPageSize {
		p.SetPageSize(s.cfg.MaxPageSize)
	}

	entries, err := paging.Window(ctx, s.store, def.Path, p)
	if err != nil {
		if errors.Is(err, paging.ErrInvalidArgument) {
			respondError(w, http.StatusBadRequest, CodeInvalid, err.Error(), nil)
			return
		}
		respondError(w, http.StatusInternalServerError, CodeStore, "failed to read list", err)
		return
	}

	items := make([]WindowItem, len(entries))
	for i, e := range entries {
		rel, _ := s.site.Path(e.Page)
		items[i] = WindowItem{Position: p.Offset() + i, SortKey: e.SortKey, Page: e.Page, Path: rel}
	}

	logging.Ctx(ctx).Debug().Str("list", def.Path).Int("offset", p.Offset()).Int("items", len(items)).
		Msg("Served list window")

	respondData(w, http.StatusOK, WindowResponse{
		List:          def.Path,
		Name:          def.Name,
		Param:         p.ParamName(),
		NumberOfItems: p.NumberOfItems(),
		LastUpdated:   def.LastUpdated,
		Page:          p.CurrentPage(),
		PageSize:      p.PageSize(),
		TotalPages:    p.TotalPages(),
		Offset:        p.Offset(),
		Items:         items,
		Navigation:    p.Navigation(navigationWindow),
	}, started)
}

func (s *Server) loadList(r *http.Request, path string) (lists.ListDefinition, error) {
	ctx := r.Context()
	ok, err := s.store.Exists(ctx, path)
	if err != nil {
		return lists.ListDefinition{}, err
	}
	if !ok {
		return lists.ListDefinition{}, store.ErrNotFound
	}
	isList, err := s.store.HasLink(ctx, lists.LinkListType, path, lists.ListTypePath)
	if err != nil {
		return lists.ListDefinition{}, err
	}
	if !isList {
		return lists.ListDefinition{}, ErrNotAList
	}
	return lists.LoadList(ctx, s.store, s.site, path)
}

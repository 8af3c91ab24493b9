// Pagelist - Page List Journal and Ordered List Materialization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pagelist

package lists

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tomtom215/pagelist/internal/journal"
	"github.com/tomtom215/pagelist/internal/store"
)

// Journal records page changes for later relay.
type Journal interface {
	Append(ctx context.Context, e journal.Entry)
}

// PageInput describes a page write.
type PageInput struct {
	Path  string
	Title string

	// Type is a type path or a name under types/taxonomy/. Empty leaves the
	// current type.
	Type string

	// Public links the page to the public content type.
	Public bool
}

// ListInput describes a list page write.
type ListInput struct {
	PageInput

	Selector string
	Check    string
	Key      string
	PageSize int
	ListName string
}

// PageWriter stores pages and journals every change. New pages are journaled
// at created priority and modified pages at updated priority, unless the
// scheduler context overrides it.
type PageWriter struct {
	store   PageStore
	site    store.Site
	journal Journal
	now     func() time.Time
}

// NewPageWriter creates a page writer.
func NewPageWriter(st PageStore, site store.Site, j Journal) *PageWriter {
	return &PageWriter{store: st, site: site, journal: j, now: time.Now}
}

// Put stores the page and appends a journal entry for it.
func (w *PageWriter) Put(ctx context.Context, sc *SchedulerContext, in PageInput) (store.Page, error) {
	path := store.CleanPath(in.Path)
	existed, err := w.store.Exists(ctx, path)
	if err != nil {
		return store.Page{}, err
	}

	p, err := w.store.PutPage(ctx, store.Page{Path: path, Title: in.Title, Modified: w.now().UnixMicro()})
	if err != nil {
		return store.Page{}, err
	}
	if in.Type != "" {
		t := store.CleanPath(in.Type)
		if !strings.HasPrefix(t, "types/") {
			t = TypeRoot + t
		}
		if err := w.store.SetUniqueLink(ctx, LinkPageType, path, t); err != nil {
			return p, fmt.Errorf("set page type: %w", err)
		}
	}
	if in.Public {
		if err := w.store.Link(ctx, LinkContentType, path, PublicTypePath); err != nil {
			return p, fmt.Errorf("set public: %w", err)
		}
	}

	priority := PriorityUpdated
	if !existed {
		priority = PriorityCreated
	}
	if sc != nil {
		priority = minPriority(priority, sc.Priority())
	}
	var offset time.Duration
	if sc != nil {
		offset = sc.StartDateOffset()
	}
	w.journal.Append(ctx, journal.Entry{
		URI:          w.site.Key(path),
		Priority:     priority,
		KeyStartDate: w.now().Add(offset).UnixMicro(),
	})
	return p, nil
}

// PutList stores a list page. The list is marked never evaluated so the
// next scheduler run sweeps its selector.
func (w *PageWriter) PutList(ctx context.Context, sc *SchedulerContext, in ListInput) (ListDefinition, error) {
	if _, err := w.Put(ctx, sc, in.PageInput); err != nil {
		return ListDefinition{}, err
	}
	path := store.CleanPath(in.Path)
	if err := w.store.Link(ctx, LinkListType, path, ListTypePath); err != nil {
		return ListDefinition{}, fmt.Errorf("link list type: %w", err)
	}

	fields := map[string]string{
		FieldSelector:      in.Selector,
		FieldTestScript:    in.Check,
		FieldItemKeyScript: in.Key,
		FieldName:          in.ListName,
	}
	if in.PageSize > 0 {
		fields[FieldPageSize] = strconv.Itoa(in.PageSize)
	}
	var errs []error
	for name, value := range fields {
		errs = append(errs, w.store.SetField(ctx, store.Revision, path, name, value))
	}
	errs = append(errs, w.store.SetField(ctx, store.Branch, path, FieldLastUpdated, "0"))
	if err := errors.Join(errs...); err != nil {
		return ListDefinition{}, fmt.Errorf("write list fields: %w", err)
	}
	return LoadList(ctx, w.store, w.site, path)
}

// minPriority returns the more urgent of a and b.
func minPriority(a, b uint8) uint8 {
	if b < a {
		return b
	}
	return a
}

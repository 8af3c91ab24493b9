// Pagelist - Page List Journal and Ordered List Materialization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pagelist

package lists

import (
	"context"
	"fmt"
	"strconv"

	"github.com/tomtom215/pagelist/internal/store"
)

// Field names on list pages.
const (
	FieldSelector      = "list::selector"
	FieldTestScript    = "list::test_script"
	FieldItemKeyScript = "list::item_key_script"
	FieldLastUpdated   = "list::last_updated"
	FieldNumberOfItems = "list::number_of_items"
	FieldPageSize      = "list::page_size"
	FieldName          = "list::name"

	// BackRefPrefix + list key names the member page's back-reference field.
	BackRefPrefix = "list::key::"
)

// Link names.
const (
	LinkListType    = "list::type"
	LinkList        = "list::link"
	LinkPageType    = "page::type"
	LinkContentType = "content::page_type"
)

// Taxonomy paths.
const (
	TypeRoot       = "types/taxonomy/"
	ListTypePath   = "types/taxonomy/system/list"
	PublicTypePath = "types/taxonomy/system/content-types/page/public"
)

// DefaultPageSize applies when a list has no page size.
const DefaultPageSize = 20

// PageStore is the page storage the list engine needs.
type PageStore interface {
	GetPage(ctx context.Context, path string) (store.Page, error)
	PutPage(ctx context.Context, p store.Page) (store.Page, error)
	Exists(ctx context.Context, path string) (bool, error)
	AllPages(ctx context.Context) ([]string, error)
	Children(ctx context.Context, path string) ([]string, error)
	Descendants(ctx context.Context, path string) ([]string, error)

	Link(ctx context.Context, name, src, dst string) error
	SetUniqueLink(ctx context.Context, name, src, dst string) error
	Links(ctx context.Context, name, src string) ([]string, error)
	LinkedTo(ctx context.Context, name, dst string) ([]string, error)

	Field(ctx context.Context, scope store.Scope, path, name string) (string, bool, error)
	SetField(ctx context.Context, scope store.Scope, path, name, value string) error

	ApplyMembership(ctx context.Context, m store.Membership) error
	IndexEntryExists(ctx context.Context, list, sortKey string) (bool, error)
	CountIndex(ctx context.Context, list string) (int, error)
}

// ListDefinition is a page acting as a named list.
type ListDefinition struct {
	Path string
	Key  string

	Selector    Selector
	CheckScript string
	KeyScript   string

	// LastUpdated is a microsecond timestamp; 0 means never evaluated.
	LastUpdated   int64
	NumberOfItems int
	PageSize      int
	Name          string
}

// BackRef returns the field that records a member's sort key.
func (l ListDefinition) BackRef() string {
	return BackRefPrefix + l.Key
}

// New reports whether the list has never been evaluated.
func (l ListDefinition) New() bool {
	return l.LastUpdated == 0
}

// LoadList reads a list definition.
func LoadList(ctx context.Context, st PageStore, site store.Site, path string) (ListDefinition, error) {
	path = store.CleanPath(path)
	def := ListDefinition{Path: path, Key: site.Key(path), PageSize: DefaultPageSize}

	rev := func(name string) (string, error) {
		v, _, err := st.Field(ctx, store.Revision, path, name)
		return v, err
	}
	branchInt := func(name string) (int64, error) {
		v, ok, err := st.Field(ctx, store.Branch, path, name)
		if err != nil || !ok {
			return 0, err
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("list %s field %s: %w", path, name, err)
		}
		return n, nil
	}

	selector, err := rev(FieldSelector)
	if err != nil {
		return def, err
	}
	def.Selector = ParseSelector(selector, path)

	if def.CheckScript, err = rev(FieldTestScript); err != nil {
		return def, err
	}
	if def.KeyScript, err = rev(FieldItemKeyScript); err != nil {
		return def, err
	}
	if def.Name, err = rev(FieldName); err != nil {
		return def, err
	}
	size, err := rev(FieldPageSize)
	if err != nil {
		return def, err
	}
	if n, perr := strconv.Atoi(size); perr == nil && n > 0 {
		def.PageSize = n
	}

	if def.LastUpdated, err = branchInt(FieldLastUpdated); err != nil {
		return def, err
	}
	count, err := branchInt(FieldNumberOfItems)
	if err != nil {
		return def, err
	}
	def.NumberOfItems = int(count)
	return def, nil
}

// LoadLists reads every list of the site.
func LoadLists(ctx context.Context, st PageStore, site store.Site) ([]ListDefinition, error) {
	paths, err := st.LinkedTo(ctx, LinkListType, ListTypePath)
	if err != nil {
		return nil, fmt.Errorf("list lists: %w", err)
	}
	out := make([]ListDefinition, 0, len(paths))
	for _, p := range paths {
		def, err := LoadList(ctx, st, site, p)
		if err != nil {
			return nil, err
		}
		out = append(out, def)
	}
	return out, nil
}

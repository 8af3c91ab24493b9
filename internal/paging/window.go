// Pagelist - Page List Journal and Ordered List Materialization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pagelist

// Package paging serves windows of a list's ordered index and computes the
// navigation state around them.
package paging

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/pagelist/internal/store"
)

// MaxCount caps window sizes and page sizes.
const MaxCount = 10000

// ErrInvalidArgument is returned for a start offset below 1 or a
// non-positive count.
var ErrInvalidArgument = errors.New("invalid argument")

// Index is the ordered index reader.
type Index interface {
	ScanIndex(ctx context.Context, list string, fn func(store.IndexEntry) bool) error
}

// ReadWindow returns up to count entries of list starting at the 1-based
// start offset, in sort key order. count is clamped to MaxCount. A start
// past the end yields an empty result.
func ReadWindow(ctx context.Context, idx Index, list string, start, count int) ([]store.IndexEntry, error) {
	if start < 1 {
		return nil, fmt.Errorf("%w: start offset %d < 1", ErrInvalidArgument, start)
	}
	if count <= 0 {
		return nil, fmt.Errorf("%w: count %d <= 0", ErrInvalidArgument, count)
	}
	if count > MaxCount {
		count = MaxCount
	}

	out := make([]store.IndexEntry, 0, min(count, 64))
	skip := start - 1
	err := idx.ScanIndex(ctx, list, func(e store.IndexEntry) bool {
		if skip > 0 {
			skip--
			return true
		}
		out = append(out, e)
		return len(out) < count
	})
	if err != nil {
		return nil, err
	}
	windowReadsTotal.Inc()
	return out, nil
}

// Window reads the entries selected by p. Entries past the maximum item
// count are never returned.
func Window(ctx context.Context, idx Index, list string, p *Paging) ([]store.IndexEntry, error) {
	start, count := p.Offset(), p.PageSize()
	if p.maximumItems > 0 {
		last := p.NumberOfItems()
		if start > last {
			return []store.IndexEntry{}, nil
		}
		if start+count-1 > last {
			count = last - start + 1
		}
	}
	return ReadWindow(ctx, idx, list, start, count)
}

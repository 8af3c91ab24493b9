// Pagelist - Page List Journal and Ordered List Materialization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pagelist

package paging

// LinkKind tags a navigation link.
type LinkKind string

const (
	LinkFirst    LinkKind = "first"
	LinkPrevious LinkKind = "previous"
	LinkEllipsis LinkKind = "ellipsis"
	LinkPage     LinkKind = "page"
	LinkCurrent  LinkKind = "current"
	LinkNext     LinkKind = "next"
	LinkLast     LinkKind = "last"
)

// Link is one navigation element. Ellipsis links have no page or query.
type Link struct {
	Kind  LinkKind `json:"kind"`
	Page  int      `json:"page,omitempty"`
	Query string   `json:"query,omitempty"`
}

// Navigation returns the links around the current page: first and previous
// (unless on page 1), a window of 2k+1 pages with ellipses where pages are
// skipped, then next and last (unless on the last page).
func (p *Paging) Navigation(k int) []Link {
	total := p.TotalPages()
	if total <= 1 {
		return nil
	}
	if k < 0 {
		k = 0
	}
	cur := p.CurrentPage()
	if cur > total {
		cur = total
	}

	link := func(kind LinkKind, n int) Link {
		return Link{Kind: kind, Page: n, Query: p.QueryFor(n)}
	}

	var out []Link
	if cur > 1 {
		out = append(out, link(LinkFirst, 1), link(LinkPrevious, cur-1))
	}

	lo, hi := max(1, cur-k), min(total, cur+k)
	if lo > 2 {
		out = append(out, Link{Kind: LinkEllipsis})
	}
	for n := lo; n <= hi; n++ {
		if n == cur {
			out = append(out, link(LinkCurrent, n))
			continue
		}
		out = append(out, link(LinkPage, n))
	}
	if hi < total-1 {
		out = append(out, Link{Kind: LinkEllipsis})
	}

	if cur < total {
		out = append(out, link(LinkNext, cur+1), link(LinkLast, total))
	}
	return out
}

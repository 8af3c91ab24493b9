// Pagelist - Page List Journal and Ordered List Materialization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pagelist

package paging

import (
	"net/url"
	"strconv"
	"strings"
)

// ParamBase is the query parameter of an unnamed list.
const ParamBase = "page"

// Paging is the request-scoped paging state of one list.
type Paging struct {
	name string

	page           int
	pageSize       int
	explicitSize   bool
	explicitOffset int

	numberOfItems int
	maximumItems  int
}

// New creates paging state for a list named name (may be empty) holding
// numberOfItems entries, with defaultPageSize entries per page.
func New(name string, numberOfItems, defaultPageSize int) *Paging {
	if defaultPageSize <= 0 {
		defaultPageSize = 1
	}
	if defaultPageSize > MaxCount {
		defaultPageSize = MaxCount
	}
	return &Paging{
		name:          name,
		page:          1,
		pageSize:      defaultPageSize,
		numberOfItems: numberOfItems,
	}
}

// SetMaximumItems clamps the item count; 0 removes the clamp.
func (p *Paging) SetMaximumItems(n int) {
	if n < 0 {
		n = 0
	}
	p.maximumItems = n
}

// SetPage selects a 1-based page number.
func (p *Paging) SetPage(n int) {
	if n >= 1 {
		p.page = n
	}
}

// SetPageSize overrides the page size, capped at MaxCount.
func (p *Paging) SetPageSize(n int) {
	if n < 1 {
		return
	}
	if n > MaxCount {
		n = MaxCount
	}
	p.pageSize = n
	p.explicitSize = true
}

// SetOffset sets an explicit 1-based start offset, which wins over the page
// number.
func (p *Paging) SetOffset(n int) {
	if n >= 1 {
		p.explicitOffset = n
	}
}

// ParamName returns "page" or "page-<name>".
func (p *Paging) ParamName() string {
	if p.name == "" {
		return ParamBase
	}
	return ParamBase + "-" + p.name
}

// PageSize returns the entries per page.
func (p *Paging) PageSize() int {
	return p.pageSize
}

// NumberOfItems returns the item count after the maximum clamp.
func (p *Paging) NumberOfItems() int {
	n := p.numberOfItems
	if p.maximumItems > 0 && n > p.maximumItems {
		n = p.maximumItems
	}
	if n < 0 {
		n = 0
	}
	return n
}

// Offset returns the 1-based start offset.
func (p *Paging) Offset() int {
	if p.explicitOffset > 0 {
		return p.explicitOffset
	}
	return (p.page-1)*p.pageSize + 1
}

// CurrentPage returns the page holding the start offset.
func (p *Paging) CurrentPage() int {
	if p.explicitOffset > 0 {
		return (p.explicitOffset-1)/p.pageSize + 1
	}
	return p.page
}

// TotalPages returns the number of pages, counting from the explicit offset
// when one is set.
func (p *Paging) TotalPages() int {
	start := 1
	if p.explicitOffset > 0 {
		start = p.explicitOffset
	}
	total := (p.NumberOfItems() - start + p.pageSize) / p.pageSize
	if total < 0 {
		return 0
	}
	return total
}

// ParseQuery reads the list's parameter from values.
func (p *Paging) ParseQuery(values url.Values) {
	if v := values.Get(p.ParamName()); v != "" {
		p.ParseValue(v)
	}
}

// ParseValue applies a parameter value such as "p3,s20" or "o41". The first
// occurrence of each component wins; invalid and unknown components are
// ignored.
func (p *Paging) ParseValue(v string) {
	var seenPage, seenOffset, seenSize bool
	for _, comp := range strings.Split(v, ",") {
		comp = strings.TrimSpace(comp)
		if len(comp) < 2 {
			continue
		}
		n, err := strconv.Atoi(comp[1:])
		if err != nil || n < 1 {
			continue
		}
		switch comp[0] {
		case 'p':
			if !seenPage {
				seenPage = true
				p.SetPage(n)
			}
		case 'o':
			if !seenOffset {
				seenOffset = true
				p.SetOffset(n)
			}
		case 's':
			if !seenSize {
				seenSize = true
				p.SetPageSize(n)
			}
		}
	}
}

// QueryValue encodes the current state as a parameter value.
func (p *Paging) QueryValue() string {
	return p.valueFor(p.CurrentPage(), p.explicitOffset)
}

func (p *Paging) valueFor(page, offset int) string {
	var parts []string
	if offset > 0 {
		parts = append(parts, "o"+strconv.Itoa(offset))
	} else {
		parts = append(parts, "p"+strconv.Itoa(page))
	}
	if p.explicitSize {
		parts = append(parts, "s"+strconv.Itoa(p.pageSize))
	}
	return strings.Join(parts, ",")
}

// QueryFor returns the "name=value" fragment selecting page n.
func (p *Paging) QueryFor(n int) string {
	return p.ParamName() + "=" + p.valueFor(n, 0)
}

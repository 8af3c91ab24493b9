// Pagelist - Page List Journal and Ordered List Materialization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pagelist

package lists

import (
	"context"
	"strings"

	"github.com/tomtom215/pagelist/internal/logging"
	"github.com/tomtom215/pagelist/internal/store"
)

// SelectorKind enumerates the selector variants.
type SelectorKind int

const (
	SelectAll SelectorKind = iota
	SelectChildren
	SelectDescendants
	SelectPublic
	SelectType
	SelectHandPicked
)

// Selector names the candidate pages of a list.
type Selector struct {
	Kind SelectorKind

	// Path is the parent for children/descendants and the type path for type.
	Path string

	// Paths holds hand-picked pages.
	Paths []string
}

// ParseSelector parses selector text. Children and descendants default to the
// list page itself. Unknown selectors fall back to all with a warning.
func ParseSelector(text, listPath string) Selector {
	text = strings.TrimSpace(text)
	name, arg, hasArg := strings.Cut(text, "=")
	name = strings.TrimSpace(name)
	if !hasArg {
		arg = ""
	}

	switch name {
	case "", "all":
		return Selector{Kind: SelectAll}
	case "children", "descendants":
		kind := SelectChildren
		if name == "descendants" {
			kind = SelectDescendants
		}
		path := store.CleanPath(strings.TrimSpace(arg))
		if !hasArg || path == "" {
			path = store.CleanPath(listPath)
		}
		return Selector{Kind: kind, Path: path}
	case "public":
		return Selector{Kind: SelectPublic, Path: PublicTypePath}
	case "type":
		t := store.CleanPath(strings.TrimSpace(arg))
		if t == "" {
			break
		}
		if !strings.HasPrefix(t, "types/") {
			t = TypeRoot + t
		}
		return Selector{Kind: SelectType, Path: t}
	case "hand-picked":
		var paths []string
		for _, line := range strings.Split(arg, "\n") {
			if p := store.CleanPath(strings.TrimSpace(line)); p != "" {
				paths = append(paths, p)
			}
		}
		return Selector{Kind: SelectHandPicked, Paths: paths}
	}

	logging.Warn().Str("selector", text).Str("list", listPath).Msg("Unsupported list selector, using all")
	return Selector{Kind: SelectAll}
}

// String renders the selector in its text form.
func (s Selector) String() string {
	switch s.Kind {
	case SelectChildren:
		return "children=" + s.Path
	case SelectDescendants:
		return "descendants=" + s.Path
	case SelectPublic:
		return "public"
	case SelectType:
		return "type=" + s.Path
	case SelectHandPicked:
		return "hand-picked=" + strings.Join(s.Paths, "\n")
	default:
		return "all"
	}
}

// Candidates returns the page paths the selector names.
func (s Selector) Candidates(ctx context.Context, st PageStore) ([]string, error) {
	switch s.Kind {
	case SelectChildren:
		return st.Children(ctx, s.Path)
	case SelectDescendants:
		return st.Descendants(ctx, s.Path)
	case SelectPublic:
		return st.LinkedTo(ctx, LinkContentType, s.Path)
	case SelectType:
		return st.LinkedTo(ctx, LinkPageType, s.Path)
	case SelectHandPicked:
		out := make([]string, 0, len(s.Paths))
		for _, p := range s.Paths {
			ok, err := st.Exists(ctx, p)
			if err != nil {
				return nil, err
			}
			if ok {
				out = append(out, p)
			}
		}
		return out, nil
	default:
		return st.AllPages(ctx)
	}
}

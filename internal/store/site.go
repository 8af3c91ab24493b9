// Pagelist - Page List Journal and Ordered List Materialization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pagelist

package store

import "strings"

// Site maps site-relative paths to full page keys and back.
type Site struct {
	// Root is the site URL, e.g. "https://example.com/".
	Root string
}

func (s Site) root() string {
	return strings.TrimSuffix(s.Root, "/") + "/"
}

// Key returns the full page key of path.
func (s Site) Key(path string) string {
	return s.root() + CleanPath(path)
}

// Path returns the site-relative path of key. ok is false when key belongs
// to another site.
func (s Site) Path(key string) (path string, ok bool) {
	root := s.root()
	if !strings.HasPrefix(key, root) {
		if key+"/" == root {
			return "", true
		}
		return "", false
	}
	return CleanPath(key[len(root):]), true
}

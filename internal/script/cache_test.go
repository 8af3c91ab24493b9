// Pagelist - Page List Journal and Ordered List Materialization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pagelist

package script

import "testing"

func TestCacheReusesCompiledPrograms(t *testing.T) {
	t.Parallel()

	c := NewCache()
	a := c.Get("list", "true", "path")
	b := c.Get("list", "true", "path")
	if a != b {
		t.Error("same source should hit the cache")
	}

	changed := c.Get("list", "false", "path")
	if changed == a {
		t.Error("changed source should recompile")
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestCacheSafeDefaults(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		check, key   string
		wantIncluded bool
		wantKey      string
	}{
		{"valid", "has_prefix(path, 'blog/')", "title", true, "Entry"},
		{"malformed check", "path ==", "title", false, "Entry"},
		{"empty check", "", "title", false, "Entry"},
		{"malformed key", "true", "title +", true, Placeholder},
		{"empty key uses path", "true", "", true, "blog/2024/01/entry"},
		{"runtime failure", "segment(path)", "depth(path, 1)", false, Placeholder},
		{"non-boolean check", "title", "title", false, "Entry"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			compiled := NewCache().Get("list", tt.check, tt.key)
			included, key := compiled.Evaluate(testEnv())
			if included != tt.wantIncluded || key != tt.wantKey {
				t.Errorf("Evaluate() = (%v, %q), want (%v, %q)", included, key, tt.wantIncluded, tt.wantKey)
			}
		})
	}
}

func TestCacheInvalidateAndReset(t *testing.T) {
	t.Parallel()

	c := NewCache()
	first := c.Get("a", "true", "path")
	c.Get("b", "true", "path")

	c.Invalidate("a")
	if c.Len() != 1 {
		t.Errorf("Len() after Invalidate = %d, want 1", c.Len())
	}
	if c.Get("a", "true", "path") == first {
		t.Error("invalidated entry should be rebuilt")
	}

	c.Reset()
	if c.Len() != 0 {
		t.Errorf("Len() after Reset = %d, want 0", c.Len())
	}
}

func TestSourceHashSeparatesFields(t *testing.T) {
	t.Parallel()
	if SourceHash("ab", "c") == SourceHash("a", "bc") {
		t.Error("hash must separate check and key sources")
	}
}

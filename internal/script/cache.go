// Pagelist - Page List Journal and Ordered List Materialization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pagelist

package script

import (
	"errors"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/tomtom215/pagelist/internal/logging"
)

// Placeholder is the sort key produced when a key script is broken.
const Placeholder = "~"

var (
	defaultCheck = MustCompile("false")
	defaultKey   = MustCompile("'" + Placeholder + "'")
	pathKey      = MustCompile(VarPath)
)

// Compiled holds the two programs of one list.
type Compiled struct {
	Hash  uint64
	Check *Program
	Key   *Program

	// CheckErr and KeyErr record why a default was substituted.
	CheckErr error
	KeyErr   error
}

// Evaluate runs both programs. Runtime failures fall back to excluded and
// the placeholder key.
func (c *Compiled) Evaluate(env Env) (included bool, key string) {
	included, err := c.Check.Bool(env)
	if err != nil {
		logging.Debug().Err(err).Str("list", env.List).Str("path", env.Path).Msg("Check script failed, page excluded")
		included = false
	}
	key, err = c.Key.String(env)
	if err != nil {
		logging.Debug().Err(err).Str("list", env.List).Str("path", env.Path).Msg("Key script failed, using placeholder")
		key = Placeholder
	}
	return included, key
}

// Cache maps list keys to compiled programs. Entries are recompiled when the
// hash of the source text changes.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*Compiled
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]*Compiled)}
}

// SourceHash hashes a check/key source pair.
func SourceHash(checkSrc, keySrc string) uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(checkSrc)
	_, _ = d.Write([]byte{0})
	_, _ = d.WriteString(keySrc)
	return d.Sum64()
}

// Get returns the compiled programs for list, compiling them if the cached
// ones were built from different source.
func (c *Cache) Get(list, checkSrc, keySrc string) *Compiled {
	h := SourceHash(checkSrc, keySrc)

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[list]; ok && e.Hash == h {
		return e
	}

	e := &Compiled{Hash: h}
	e.Check, e.CheckErr = Compile(checkSrc)
	if e.CheckErr != nil {
		if !errors.Is(e.CheckErr, ErrEmptyScript) {
			scriptCompileFailures.WithLabelValues("check").Inc()
			logging.Warn().Err(e.CheckErr).Str("list", list).Msg("Invalid check script, list admits no pages")
		}
		e.Check = defaultCheck
	}

	e.Key, e.KeyErr = Compile(keySrc)
	switch {
	case errors.Is(e.KeyErr, ErrEmptyScript):
		e.Key, e.KeyErr = pathKey, nil
	case e.KeyErr != nil:
		scriptCompileFailures.WithLabelValues("key").Inc()
		logging.Warn().Err(e.KeyErr).Str("list", list).Msg("Invalid key script, using placeholder key")
		e.Key = defaultKey
	}

	c.entries[list] = e
	return e
}

// Invalidate drops the entry for list.
func (c *Cache) Invalidate(list string) {
	c.mu.Lock()
	delete(c.entries, list)
	c.mu.Unlock()
}

// Reset drops every entry.
func (c *Cache) Reset() {
	c.mu.Lock()
	c.entries = make(map[string]*Compiled)
	c.mu.Unlock()
}

// Len returns the number of cached lists.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

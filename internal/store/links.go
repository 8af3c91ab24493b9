// Pagelist - Page List Journal and Ordered List Materialization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pagelist

package store

import (
	"context"
	"errors"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

func linkKey(name, src, dst string) []byte {
	return []byte(prefixLink + name + sep + CleanPath(src) + sep + CleanPath(dst))
}

func revLinkKey(name, src, dst string) []byte {
	return []byte(prefixRevLink + name + sep + CleanPath(dst) + sep + CleanPath(src))
}

func setLink(txn *badger.Txn, name, src, dst string) error {
	if err := txn.Set(linkKey(name, src, dst), nil); err != nil {
		return err
	}
	return txn.Set(revLinkKey(name, src, dst), nil)
}

func deleteLink(txn *badger.Txn, name, src, dst string) error {
	if err := txn.Delete(linkKey(name, src, dst)); err != nil {
		return err
	}
	return txn.Delete(revLinkKey(name, src, dst))
}

// Link creates the named link src -> dst. Linking twice is a no-op.
func (s *Store) Link(_ context.Context, name, src, dst string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	for _, p := range []string{name, src, dst} {
		if err := validPath(p); err != nil {
			return err
		}
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return setLink(txn, name, src, dst)
	})
}

// Unlink removes the named link src -> dst.
func (s *Store) Unlink(_ context.Context, name, src, dst string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return deleteLink(txn, name, src, dst)
	})
}

// SetUniqueLink replaces every name link from src with src -> dst.
func (s *Store) SetUniqueLink(ctx context.Context, name, src, dst string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		prefix := []byte(prefixLink + name + sep + CleanPath(src) + sep)
		var old []string
		if err := scanKeys(ctx, txn, prefix, func(key []byte) bool {
			old = append(old, string(key[len(prefix):]))
			return true
		}); err != nil {
			return err
		}
		for _, d := range old {
			if err := deleteLink(txn, name, src, d); err != nil {
				return err
			}
		}
		return setLink(txn, name, src, dst)
	})
}

// Links returns the destinations of name links from src.
func (s *Store) Links(ctx context.Context, name, src string) ([]string, error) {
	return s.linkScan(ctx, prefixLink+name+sep+CleanPath(src)+sep)
}

// LinkedTo returns the sources of name links pointing at dst.
func (s *Store) LinkedTo(ctx context.Context, name, dst string) ([]string, error) {
	return s.linkScan(ctx, prefixRevLink+name+sep+CleanPath(dst)+sep)
}

// HasLink reports whether the link src -> dst exists.
func (s *Store) HasLink(_ context.Context, name, src, dst string) (bool, error) {
	if err := s.checkOpen(); err != nil {
		return false, err
	}
	var found bool
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(linkKey(name, src, dst))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		found = err == nil
		return err
	})
	return found, err
}

func (s *Store) linkScan(ctx context.Context, prefix string) ([]string, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	var out []string
	err := s.db.View(func(txn *badger.Txn) error {
		return scanKeys(ctx, txn, []byte(prefix), func(key []byte) bool {
			out = append(out, strings.TrimPrefix(string(key), prefix))
			return true
		})
	})
	return out, err
}

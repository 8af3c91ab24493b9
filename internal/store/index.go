// Pagelist - Page List Journal and Ordered List Materialization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pagelist

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// maxConflictRetries bounds the retries of a membership update that lost a
// commit race.
const maxConflictRetries = 5

// IndexEntry is one ordered index row.
type IndexEntry struct {
	SortKey string `json:"sort_key"`
	Page    string `json:"page"`
}

// Membership describes the index change for one (list, page) pair.
type Membership struct {
	// List is the path of the list page.
	List string

	// Page is the path of the member page.
	Page string

	// PageKey is the value stored in the index (the full page key).
	PageKey string

	// BackRef is the branch field on Page that remembers its sort key.
	BackRef string

	// LinkName is the unordered list -> page link kept alongside the index.
	LinkName string

	// OldKey is the sort key the caller last saw, "" when none. The
	// recorded back-reference wins when the two differ.
	OldKey string

	// NewKey is the freshly computed sort key. Ignored when !Included.
	NewKey string

	Included bool
}

func indexKey(list, sortKey string) []byte {
	return []byte(prefixIndex + CleanPath(list) + sep + sortKey)
}

func indexPrefix(list string) []byte {
	return []byte(prefixIndex + CleanPath(list) + sep)
}

// IndexEntryExists reports whether list has an entry at sortKey.
func (s *Store) IndexEntryExists(_ context.Context, list, sortKey string) (bool, error) {
	if err := s.checkOpen(); err != nil {
		return false, err
	}
	var found bool
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(indexKey(list, sortKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		found = err == nil
		return err
	})
	return found, err
}

// ApplyMembership updates the index, the back-reference and the link in a
// single transaction, so readers never observe a page under two keys. The
// back-reference is re-read inside the transaction; a concurrent change to
// it makes the commit conflict and the transaction is retried.
func (s *Store) ApplyMembership(_ context.Context, m Membership) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	var err error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		err = s.db.Update(func(txn *badger.Txn) error {
			return applyMembership(txn, m)
		})
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}

func applyMembership(txn *badger.Txn, m Membership) error {
	oldKey, _, err := getField(txn, Branch, m.Page, m.BackRef)
	if err != nil {
		return err
	}
	if oldKey != "" && (!m.Included || oldKey != m.NewKey) {
		if err := txn.Delete(indexKey(m.List, oldKey)); err != nil {
			return fmt.Errorf("delete index entry: %w", err)
		}
	}

	if !m.Included {
		if err := txn.Delete(fieldKey(Branch, m.Page, m.BackRef)); err != nil {
			return fmt.Errorf("delete back-reference: %w", err)
		}
		if m.LinkName != "" {
			return deleteLink(txn, m.LinkName, m.List, m.Page)
		}
		return nil
	}

	if err := txn.Set(indexKey(m.List, m.NewKey), []byte(m.PageKey)); err != nil {
		return fmt.Errorf("set index entry: %w", err)
	}
	if err := txn.Set(fieldKey(Branch, m.Page, m.BackRef), []byte(m.NewKey)); err != nil {
		return fmt.Errorf("set back-reference: %w", err)
	}
	if m.LinkName != "" {
		return setLink(txn, m.LinkName, m.List, m.Page)
	}
	return nil
}

// ScanIndex visits the list's entries in sort key order starting at the
// smallest key. fn returns false to stop.
func (s *Store) ScanIndex(ctx context.Context, list string, fn func(IndexEntry) bool) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	prefix := indexPrefix(list)
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			val, err := item.ValueCopy(nil)
			if err != nil {
				return fmt.Errorf("read index entry: %w", err)
			}
			if !fn(IndexEntry{SortKey: string(item.Key()[len(prefix):]), Page: string(val)}) {
				return nil
			}
		}
		return nil
	})
}

// CountIndex counts the list's entries with a key-only scan.
func (s *Store) CountIndex(ctx context.Context, list string) (int, error) {
	if err := s.checkOpen(); err != nil {
		return 0, err
	}
	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		return scanKeys(ctx, txn, indexPrefix(list), func([]byte) bool {
			n++
			return true
		})
	})
	return n, err
}

// DropIndex deletes every entry of list.
func (s *Store) DropIndex(_ context.Context, list string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	return s.db.DropPrefix(indexPrefix(list))
}

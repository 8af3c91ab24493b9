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

// Scope selects where a field lives.
type Scope int

const (
	// Branch fields hold derived state: list counters and back-references.
	Branch Scope = iota
	// Revision fields hold authored content: scripts and selectors.
	Revision
)

func fieldKey(scope Scope, path, name string) []byte {
	prefix := prefixBranch
	if scope == Revision {
		prefix = prefixRevision
	}
	return []byte(prefix + CleanPath(path) + sep + name)
}

// Field returns a field value. ok is false when the field is unset.
func (s *Store) Field(_ context.Context, scope Scope, path, name string) (value string, ok bool, err error) {
	if err := s.checkOpen(); err != nil {
		return "", false, err
	}
	err = s.db.View(func(txn *badger.Txn) error {
		value, ok, err = getField(txn, scope, path, name)
		return err
	})
	return value, ok, err
}

// SetField writes a field value.
func (s *Store) SetField(_ context.Context, scope Scope, path, name, value string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if err := validPath(path); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(fieldKey(scope, path, name), []byte(value))
	})
}

// DeleteField removes a field. Missing fields are not an error.
func (s *Store) DeleteField(_ context.Context, scope Scope, path, name string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(fieldKey(scope, path, name))
	})
}

// Fields returns every field of a page in one scope.
func (s *Store) Fields(ctx context.Context, scope Scope, path string) (map[string]string, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	prefix := fieldKey(scope, path, "")
	out := make(map[string]string)
	err := s.db.View(func(txn *badger.Txn) error {
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
				return fmt.Errorf("read field: %w", err)
			}
			out[string(item.Key()[len(prefix):])] = string(val)
		}
		return nil
	})
	return out, err
}

func getField(txn *badger.Txn, scope Scope, path, name string) (string, bool, error) {
	item, err := txn.Get(fieldKey(scope, path, name))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get field %s: %w", name, err)
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return "", false, fmt.Errorf("read field %s: %w", name, err)
	}
	return string(val), true, nil
}

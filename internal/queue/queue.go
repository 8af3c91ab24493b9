// Pagelist - Page List Journal and Ordered List Materialization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pagelist

// Package queue is the durable list-processing queue owned by the
// coordinator. Items are ordered by (priority, not-before) and claimed with
// an expiring lease before being worked.
//
// Claims are check-and-set inside one BadgerDB transaction. Badger's
// optimistic conflict detection aborts the second of two concurrent claims
// on the same item, so at most one holder works an item at a time for every
// scheduler sharing the database handle.
package queue

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/pagelist/internal/logging"
)

const (
	prefixItem = "q/"
	prefixURI  = "qu/"

	maxConflictRetries = 5
)

// Errors
var (
	// ErrEmptyURI is returned when enqueueing an item without a URI.
	ErrEmptyURI = fmt.Errorf("queue item uri cannot be empty")
)

// Item is one pending page reconciliation.
type Item struct {
	URI       string `json:"uri"`
	Priority  uint8  `json:"priority"`
	NotBefore int64  `json:"not_before"`

	EnqueuedAt  int64  `json:"enqueued_at"`
	LeaseExpiry int64  `json:"lease_expiry,omitempty"`
	LeaseHolder string `json:"lease_holder,omitempty"`
}

func (it Item) key() []byte {
	nb := it.NotBefore
	if nb < 0 {
		nb = 0
	}
	return []byte(fmt.Sprintf("%s%03d/%020d/%s", prefixItem, it.Priority, nb, it.URI))
}

// leased reports whether a lease is live at now (microseconds).
func (it Item) leased(now int64) bool {
	return it.LeaseExpiry > now
}

// Filter selects eligible items.
type Filter struct {
	// MinPriority is inclusive.
	MinPriority uint8

	// MaxPriority is exclusive. Zero means no upper bound.
	MaxPriority int

	// Limit caps the result. Zero means unlimited.
	Limit int

	// Busy also selects leased items and items whose not-before time has
	// not come yet.
	Busy bool
}

// Queue is the durable queue.
type Queue struct {
	db  *badger.DB
	now func() time.Time
}

// New creates a queue on an open database.
func New(db *badger.DB) *Queue {
	return &Queue{db: db, now: time.Now}
}

// SetClock replaces the wall clock.
func (q *Queue) SetClock(now func() time.Time) {
	q.now = now
}

// update runs fn in a read-write transaction, retrying on conflicts.
func (q *Queue) update(fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		err = q.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}

// Enqueue adds or replaces the item for it.URI. A re-enqueue of the same URI
// replaces the older entry; the more urgent of the two priorities is kept and
// the newer not-before time wins.
func (q *Queue) Enqueue(_ context.Context, it Item) error {
	if it.URI == "" {
		return ErrEmptyURI
	}
	it.EnqueuedAt = q.now().UnixMicro()
	it.LeaseExpiry, it.LeaseHolder = 0, ""

	err := q.update(func(txn *badger.Txn) error {
		item := it
		old, oldKey, found, err := lookupURI(txn, item.URI)
		if err != nil {
			return err
		}
		if found {
			if old.Priority < item.Priority {
				item.Priority = old.Priority
			}
			if err := txn.Delete(oldKey); err != nil {
				return fmt.Errorf("delete replaced item: %w", err)
			}
		}

		data, err := json.Marshal(&item)
		if err != nil {
			return fmt.Errorf("marshal item: %w", err)
		}
		key := item.key()
		if err := txn.Set(key, data); err != nil {
			return fmt.Errorf("set item: %w", err)
		}
		return txn.Set([]byte(prefixURI+item.URI), key)
	})
	if err != nil {
		return err
	}
	queueEnqueuedTotal.Inc()
	return nil
}

func lookupURI(txn *badger.Txn, uri string) (Item, []byte, bool, error) {
	ref, err := txn.Get([]byte(prefixURI + uri))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return Item{}, nil, false, nil
		}
		return Item{}, nil, false, fmt.Errorf("get uri index: %w", err)
	}
	key, err := ref.ValueCopy(nil)
	if err != nil {
		return Item{}, nil, false, fmt.Errorf("read uri index: %w", err)
	}
	it, found, err := getItem(txn, key)
	return it, key, found, err
}

func getItem(txn *badger.Txn, key []byte) (Item, bool, error) {
	raw, err := txn.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return Item{}, false, nil
		}
		return Item{}, false, fmt.Errorf("get item: %w", err)
	}
	var it Item
	if err := raw.Value(func(val []byte) error { return json.Unmarshal(val, &it) }); err != nil {
		return Item{}, false, fmt.Errorf("unmarshal item: %w", err)
	}
	return it, true, nil
}

// scan visits every item in (priority, not-before) order. fn returns false
// to stop.
func (q *Queue) scan(ctx context.Context, fn func(Item) bool) error {
	return q.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixItem)
		iter := txn.NewIterator(opts)
		defer iter.Close()

		for iter.Seek(opts.Prefix); iter.ValidForPrefix(opts.Prefix); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var it Item
			err := iter.Item().Value(func(val []byte) error { return json.Unmarshal(val, &it) })
			if err != nil {
				logging.Warn().Err(err).Str("key", string(iter.Item().Key())).Msg("Skipping undecodable queue item")
				continue
			}
			if !fn(it) {
				return nil
			}
		}
		return nil
	})
}

// Pending returns eligible items matching f in (priority, not-before) order.
// With f.Busy it returns every matching item.
// An item is eligible when its not-before time has passed and it holds no
// live lease.
func (q *Queue) Pending(ctx context.Context, f Filter) ([]Item, error) {
	now := q.now().UnixMicro()
	var out []Item
	err := q.scan(ctx, func(it Item) bool {
		if f.MaxPriority > 0 && int(it.Priority) >= f.MaxPriority {
			return false
		}
		if it.Priority < f.MinPriority {
			return true
		}
		if !f.Busy && (it.NotBefore > now || it.leased(now)) {
			return true
		}
		out = append(out, it)
		return f.Limit <= 0 || len(out) < f.Limit
	})
	return out, err
}

// Claim leases it to holder for grace. It returns false when the item is
// gone, was replaced, or is leased by another holder.
func (q *Queue) Claim(_ context.Context, it Item, holder string, grace time.Duration) (bool, error) {
	now := q.now()
	var claimed bool
	err := q.db.Update(func(txn *badger.Txn) error {
		key := it.key()
		cur, found, err := getItem(txn, key)
		if err != nil || !found {
			return err
		}
		if cur.leased(now.UnixMicro()) && cur.LeaseHolder != holder {
			logging.Trace().Str("uri", it.URI).Str("lease_holder", cur.LeaseHolder).Msg("Queue item has active lease, skipping")
			return nil
		}
		cur.LeaseHolder = holder
		cur.LeaseExpiry = now.Add(grace).UnixMicro()
		data, err := json.Marshal(&cur)
		if err != nil {
			return fmt.Errorf("marshal item: %w", err)
		}
		if err := txn.Set(key, data); err != nil {
			return fmt.Errorf("set item: %w", err)
		}
		claimed = true
		return nil
	})
	if errors.Is(err, badger.ErrConflict) {
		queueClaimConflictsTotal.Inc()
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return claimed, nil
}

// Release clears the lease on it so it can be claimed again immediately.
func (q *Queue) Release(_ context.Context, it Item) error {
	return q.update(func(txn *badger.Txn) error {
		key := it.key()
		cur, found, err := getItem(txn, key)
		if err != nil || !found {
			return err
		}
		cur.LeaseExpiry, cur.LeaseHolder = 0, ""
		data, err := json.Marshal(&cur)
		if err != nil {
			return fmt.Errorf("marshal item: %w", err)
		}
		return txn.Set(key, data)
	})
}

// Remove deletes it. The URI index is only dropped when it still points at
// this item, so a newer re-enqueue survives.
func (q *Queue) Remove(_ context.Context, it Item) error {
	return q.update(func(txn *badger.Txn) error {
		key := it.key()
		if err := txn.Delete(key); err != nil {
			return fmt.Errorf("delete item: %w", err)
		}
		ref, err := txn.Get([]byte(prefixURI + it.URI))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get uri index: %w", err)
		}
		cur, err := ref.ValueCopy(nil)
		if err != nil {
			return fmt.Errorf("read uri index: %w", err)
		}
		if string(cur) == string(key) {
			return txn.Delete([]byte(prefixURI + it.URI))
		}
		return nil
	})
}

// NextEligible returns the earliest time (microseconds) at which any queued
// item becomes eligible. ok is false when the queue is empty.
func (q *Queue) NextEligible(ctx context.Context) (at int64, ok bool, err error) {
	now := q.now().UnixMicro()
	at = math.MaxInt64
	err = q.scan(ctx, func(it Item) bool {
		t := it.NotBefore
		if it.leased(now) && it.LeaseExpiry > t {
			t = it.LeaseExpiry
		}
		if t < at {
			at = t
		}
		ok = true
		return true
	})
	if !ok {
		at = 0
	}
	return at, ok, err
}

// Len returns the number of queued items.
func (q *Queue) Len(ctx context.Context) (int, error) {
	n := 0
	err := q.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefixItem)
		iter := txn.NewIterator(opts)
		defer iter.Close()
		for iter.Seek(opts.Prefix); iter.ValidForPrefix(opts.Prefix); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	if err == nil {
		queueDepth.Set(float64(n))
	}
	return n, err
}

// Get returns the queued item for uri.
func (q *Queue) Get(_ context.Context, uri string) (Item, bool, error) {
	var (
		it    Item
		found bool
	)
	err := q.db.View(func(txn *badger.Txn) error {
		var err error
		it, _, found, err = lookupURI(txn, strings.TrimSpace(uri))
		return err
	})
	return it, found, err
}

// Pagelist - Page List Journal and Ordered List Materialization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pagelist

package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
)

func newTestQueue(t *testing.T) (*Queue, *time.Time) {
	t.Helper()
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		t.Fatalf("open badger: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	q := New(db)
	q.SetClock(func() time.Time { return now })
	return q, &now
}

func us(t time.Time) int64 { return t.UnixMicro() }

func TestEnqueueRejectsEmptyURI(t *testing.T) {
	t.Parallel()
	q, _ := newTestQueue(t)
	if err := q.Enqueue(context.Background(), Item{}); !errors.Is(err, ErrEmptyURI) {
		t.Errorf("Enqueue() error = %v", err)
	}
}

func TestPendingOrdersByPriorityThenTime(t *testing.T) {
	t.Parallel()
	q, now := newTestQueue(t)
	ctx := context.Background()
	past := us(now.Add(-time.Minute))

	for _, it := range []Item{
		{URI: "https://example.com/slow", Priority: 200, NotBefore: past},
		{URI: "https://example.com/import", Priority: 20, NotBefore: past},
		{URI: "https://example.com/update", Priority: 50, NotBefore: past},
		{URI: "https://example.com/import-older", Priority: 20, NotBefore: past - 10},
		{URI: "https://example.com/future", Priority: 10, NotBefore: us(now.Add(time.Hour))},
	} {
		if err := q.Enqueue(ctx, it); err != nil {
			t.Fatal(err)
		}
	}

	fast, err := q.Pending(ctx, Filter{MaxPriority: 200})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"https://example.com/import-older", "https://example.com/import", "https://example.com/update"}
	if len(fast) != len(want) {
		t.Fatalf("fast pass = %+v", fast)
	}
	for i, w := range want {
		if fast[i].URI != w {
			t.Errorf("fast[%d] = %s, want %s", i, fast[i].URI, w)
		}
	}

	slow, _ := q.Pending(ctx, Filter{MinPriority: 200})
	if len(slow) != 1 || slow[0].URI != "https://example.com/slow" {
		t.Errorf("slow pass = %+v", slow)
	}

	all, _ := q.Pending(ctx, Filter{Busy: true})
	if len(all) != 5 || all[0].URI != "https://example.com/future" {
		t.Errorf("busy listing = %+v, want all five starting with the future item", all)
	}

	limited, _ := q.Pending(ctx, Filter{Limit: 2})
	if len(limited) != 2 {
		t.Errorf("limited = %d, want 2", len(limited))
	}
}

func TestEnqueueReplacesSameURI(t *testing.T) {
	t.Parallel()
	q, now := newTestQueue(t)
	ctx := context.Background()
	uri := "https://example.com/blog/a"

	_ = q.Enqueue(ctx, Item{URI: uri, Priority: 10, NotBefore: us(*now) - 100})
	_ = q.Enqueue(ctx, Item{URI: uri, Priority: 50, NotBefore: us(*now) - 50})

	if n, _ := q.Len(ctx); n != 1 {
		t.Fatalf("Len() = %d, want 1", n)
	}
	it, found, err := q.Get(ctx, uri)
	if err != nil || !found {
		t.Fatalf("Get() = %v, %v", found, err)
	}
	if it.Priority != 10 || it.NotBefore != us(*now)-50 {
		t.Errorf("item = %+v, want priority 10 and newer not-before", it)
	}
}

func TestClaimExcludesOtherHolders(t *testing.T) {
	t.Parallel()
	q, now := newTestQueue(t)
	ctx := context.Background()
	_ = q.Enqueue(ctx, Item{URI: "https://example.com/a", Priority: 10})
	items, _ := q.Pending(ctx, Filter{})

	ok, err := q.Claim(ctx, items[0], "worker-1", time.Minute)
	if err != nil || !ok {
		t.Fatalf("first Claim() = %v, %v", ok, err)
	}
	if ok, _ := q.Claim(ctx, items[0], "worker-2", time.Minute); ok {
		t.Error("second holder must not claim a leased item")
	}
	if ok, _ := q.Claim(ctx, items[0], "worker-1", time.Minute); !ok {
		t.Error("holder should be able to extend its lease")
	}
	if pending, _ := q.Pending(ctx, Filter{}); len(pending) != 0 {
		t.Errorf("leased item still pending: %+v", pending)
	}

	busy, _ := q.Pending(ctx, Filter{Busy: true})
	if len(busy) != 1 || busy[0].LeaseHolder != "worker-1" {
		t.Errorf("busy listing = %+v, want the worker-1 lease", busy)
	}

	// Lease expiry makes the item eligible again.
	*now = now.Add(2 * time.Minute)
	if ok, _ := q.Claim(ctx, items[0], "worker-2", time.Minute); !ok {
		t.Error("expired lease should be claimable")
	}

	if err := q.Release(ctx, items[0]); err != nil {
		t.Fatal(err)
	}
	if pending, _ := q.Pending(ctx, Filter{}); len(pending) != 1 {
		t.Error("released item should be pending")
	}
}

func TestConcurrentClaimsSingleWinner(t *testing.T) {
	t.Parallel()
	q, _ := newTestQueue(t)
	ctx := context.Background()
	_ = q.Enqueue(ctx, Item{URI: "https://example.com/a", Priority: 10})
	items, _ := q.Pending(ctx, Filter{})

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ok, err := q.Claim(ctx, items[0], "worker-"+string(rune('a'+i)), time.Minute)
			if err != nil {
				t.Errorf("Claim() error = %v", err)
			}
			if ok {
				wins.Add(1)
			}
		}(i)
	}
	wg.Wait()
	if wins.Load() != 1 {
		t.Errorf("winners = %d, want 1", wins.Load())
	}
}

func TestRemoveKeepsNewerEnqueue(t *testing.T) {
	t.Parallel()
	q, now := newTestQueue(t)
	ctx := context.Background()
	uri := "https://example.com/a"

	_ = q.Enqueue(ctx, Item{URI: uri, Priority: 20, NotBefore: us(*now) - 10})
	claimed, _ := q.Pending(ctx, Filter{})
	_, _ = q.Claim(ctx, claimed[0], "w", time.Minute)

	// The page changes again while the first item is being worked.
	_ = q.Enqueue(ctx, Item{URI: uri, Priority: 20, NotBefore: us(*now) - 5})

	if err := q.Remove(ctx, claimed[0]); err != nil {
		t.Fatal(err)
	}
	it, found, _ := q.Get(ctx, uri)
	if !found || it.NotBefore != us(*now)-5 {
		t.Errorf("newer item lost: %+v found=%v", it, found)
	}

	if err := q.Remove(ctx, it); err != nil {
		t.Fatal(err)
	}
	if _, found, _ := q.Get(ctx, uri); found {
		t.Error("uri index should be gone")
	}
	if n, _ := q.Len(ctx); n != 0 {
		t.Errorf("Len() = %d, want 0", n)
	}
}

func TestNextEligible(t *testing.T) {
	t.Parallel()
	q, now := newTestQueue(t)
	ctx := context.Background()

	if _, ok, _ := q.NextEligible(ctx); ok {
		t.Error("empty queue should report no next time")
	}

	later := us(now.Add(3 * time.Minute))
	_ = q.Enqueue(ctx, Item{URI: "https://example.com/b", Priority: 200, NotBefore: later})
	_ = q.Enqueue(ctx, Item{URI: "https://example.com/a", Priority: 10, NotBefore: us(now.Add(10 * time.Minute))})

	at, ok, err := q.NextEligible(ctx)
	if err != nil || !ok || at != later {
		t.Errorf("NextEligible() = %d, %v, %v; want %d", at, ok, err, later)
	}
}

// Pagelist - Page List Journal and Ordered List Materialization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pagelist

package lists

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/tomtom215/pagelist/internal/queue"
)

func TestRunDiscoversNewTypeList(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		f.page(t, fmt.Sprintf("blog/2024/0%d/entry", i), fmt.Sprintf("Entry %d", i), "blog-entries")
	}
	f.page(t, "about", "About", "")
	f.list(t, "lists/blog", "type=blog-entries", "true", "path")

	res, err := f.sched.Run(ctx)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Discovered != 1 {
		t.Errorf("Discovered = %d, want 1", res.Discovered)
	}
	def := f.reload(t, "lists/blog")
	if def.NumberOfItems != 3 {
		t.Errorf("number_of_items = %d, want 3", def.NumberOfItems)
	}
	if def.LastUpdated == 0 {
		t.Error("last_updated should be set")
	}

	again, err := f.sched.Run(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if again.Discovered != 0 {
		t.Error("evaluated list must not be swept twice")
	}
}

func TestRunStampsEmptyList(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.list(t, "lists/empty", "type=nothing", "true", "")

	if _, err := f.sched.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if def := f.reload(t, "lists/empty"); def.LastUpdated == 0 || def.NumberOfItems != 0 {
		t.Errorf("list = %+v", def)
	}
}

func TestRunPriorityOrdering(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	f.list(t, "lists/all", "all", "true", "")
	if _, err := f.sched.Run(ctx); err != nil {
		t.Fatal(err)
	}

	notBefore := time.Now().Add(-time.Minute).UnixMicro()
	for _, p := range []uint8{200, 20, 50} {
		path := fmt.Sprintf("p%d", p)
		if _, err := f.st.PutPage(ctx, pageAt(path)); err != nil {
			t.Fatal(err)
		}
		if err := f.q.Enqueue(ctx, queue.Item{URI: f.site.Key(path), Priority: p, NotBefore: notBefore}); err != nil {
			t.Fatal(err)
		}
	}

	first, err := f.sched.Run(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"https://example.com/p20", "https://example.com/p50"}
	if fmt.Sprint(first.Processed) != fmt.Sprint(want) {
		t.Errorf("fast pass processed %v, want %v", first.Processed, want)
	}
	if !first.DidWork() || first.NextWake.After(time.Now()) {
		t.Errorf("a run that did work should recommend an immediate wake, got %v", first.NextWake)
	}

	second, err := f.sched.Run(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if fmt.Sprint(second.Processed) != "[https://example.com/p200]" {
		t.Errorf("slow pass processed %v", second.Processed)
	}
	if n, _ := f.q.Len(ctx); n != 0 {
		t.Errorf("queue length = %d, want 0", n)
	}
	if def := f.reload(t, "lists/all"); def.NumberOfItems != 4 {
		t.Errorf("number_of_items = %d, want 4", def.NumberOfItems)
	}
}

func TestRunLoopTimeout(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	f.list(t, "lists/all", "all", "true", "")
	sched := NewScheduler(f.eval, f.q, SchedulerConfig{LoopTimeout: time.Nanosecond, Holder: "test"})
	if _, err := sched.Run(ctx); err != nil {
		t.Fatal(err)
	}

	_ = f.q.Enqueue(ctx, queue.Item{URI: f.site.Key("lists/all"), Priority: 10})
	res, err := sched.Run(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !res.TimedOut || len(res.Processed) != 0 {
		t.Errorf("result = %+v, want timed out with nothing processed", res)
	}
	if n, _ := f.q.Len(ctx); n != 1 {
		t.Errorf("queue length = %d, want 1", n)
	}
}

func TestRunHonorsCancellation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.list(t, "lists/all", "all", "true", "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := f.sched.Run(ctx)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !res.Canceled {
		t.Error("run should report cancellation")
	}
	if def := f.reload(t, "lists/all"); def.LastUpdated != 0 {
		t.Error("canceled sweep must leave the list unstamped")
	}
}

func TestNextWake(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return start }
	f.sched.SetClock(clock)
	f.q.SetClock(clock)

	res, err := f.sched.Run(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !res.NextWake.Equal(start.Add(5 * time.Minute)) {
		t.Errorf("idle wake = %v, want start+5m", res.NextWake)
	}

	soon := start.Add(time.Minute)
	_ = f.q.Enqueue(ctx, queue.Item{URI: f.site.Key("x"), Priority: 10, NotBefore: soon.UnixMicro()})
	res, _ = f.sched.Run(ctx)
	if !res.NextWake.Equal(soon) {
		t.Errorf("wake = %v, want %v", res.NextWake, soon)
	}

	_ = f.q.Enqueue(ctx, queue.Item{URI: f.site.Key("x"), Priority: 10, NotBefore: start.Add(time.Hour).UnixMicro()})
	res, _ = f.sched.Run(ctx)
	if !res.NextWake.Equal(start.Add(5 * time.Minute)) {
		t.Errorf("wake = %v, want clamp to start+5m", res.NextWake)
	}
}

func TestProcessPage(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	f.page(t, "blog/a", "A", "")
	f.list(t, "lists/one", "all", "has_prefix(path, 'blog/')", "")
	f.list(t, "lists/two", "all", "has_prefix(path, 'news/')", "")

	changed, err := f.sched.ProcessPage(ctx, "/blog/a")
	if err != nil {
		t.Fatal(err)
	}
	if changed != 1 {
		t.Errorf("changed = %d, want 1", changed)
	}
}

func TestResetAllAndRequeueAll(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	f.page(t, "blog/a", "A", "")
	f.list(t, "lists/all", "all", "true", "")
	if _, err := f.sched.Run(ctx); err != nil {
		t.Fatal(err)
	}

	n, err := f.sched.ResetAll(ctx)
	if err != nil || n != 1 {
		t.Fatalf("ResetAll() = %d, %v", n, err)
	}
	if !f.reload(t, "lists/all").New() {
		t.Error("list should be marked never evaluated")
	}
	if f.eval.Cache().Len() != 0 {
		t.Error("script cache should be empty")
	}

	queued, err := f.sched.RequeueAll(ctx)
	if err != nil || queued != 2 {
		t.Fatalf("RequeueAll() = %d, %v", queued, err)
	}
	it, found, _ := f.q.Get(ctx, f.site.Key("blog/a"))
	if !found || it.Priority != PriorityReview {
		t.Errorf("queued item = %+v found=%v", it, found)
	}
}

// Pagelist - Page List Journal and Ordered List Materialization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pagelist

package journal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"
)

// newTestStore returns a store whose clock reads the given hour.
func newTestStore(t *testing.T, hour int) *Store {
	t.Helper()
	s, err := Open(Config{Dir: t.TempDir(), UID: -1, GID: -1})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	now := time.Date(2024, 1, 1, hour, 30, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return now })
	return s
}

func TestOpenRequiresDir(t *testing.T) {
	t.Parallel()
	if _, err := Open(Config{}); err == nil {
		t.Fatal("expected error for empty dir")
	}
}

func TestAppendWritesHourFile(t *testing.T) {
	t.Parallel()
	s := newTestStore(t, 7)
	ctx := context.Background()

	s.Append(ctx, Entry{URI: "https://example.com/a", Priority: 10, KeyStartDate: 1})
	s.Append(ctx, Entry{URI: "https://example.com/b", Priority: 20, KeyStartDate: 2})

	data, err := os.ReadFile(s.Path(7))
	if err != nil {
		t.Fatalf("read journal: %v", err)
	}
	want := "priority=10;key_start_date=1;uri=https://example.com/a\n" +
		"priority=20;key_start_date=2;uri=https://example.com/b\n"
	if string(data) != want {
		t.Errorf("journal = %q, want %q", data, want)
	}
}

func TestAppendStrictRejectsEmptyURI(t *testing.T) {
	t.Parallel()
	s := newTestStore(t, 0)
	if err := s.AppendStrict(context.Background(), Entry{}); !errors.Is(err, ErrMalformedEntry) {
		t.Errorf("AppendStrict() error = %v", err)
	}
}

func TestConcurrentAppendsNeverInterleave(t *testing.T) {
	t.Parallel()
	s := newTestStore(t, 3)
	ctx := context.Background()

	const writers, perWriter = 8, 25
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				uri := fmt.Sprintf("https://example.com/w%d/%d", w, i)
				if err := s.AppendStrict(ctx, Entry{URI: uri, Priority: 10, KeyStartDate: int64(i)}); err != nil {
					t.Errorf("AppendStrict() error = %v", err)
				}
			}
		}(w)
	}
	wg.Wait()

	records, err := s.Pending(ctx)
	if err != nil {
		t.Fatalf("Pending() error = %v", err)
	}
	if len(records) != writers*perWriter {
		t.Errorf("pending = %d, want %d", len(records), writers*perWriter)
	}
}

func TestDrainTombstonesPreserveOffsets(t *testing.T) {
	t.Parallel()
	s := newTestStore(t, 5)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		s.Append(ctx, Entry{URI: fmt.Sprintf("https://example.com/%d", i), Priority: 10, KeyStartDate: int64(i)})
	}
	before, _ := os.ReadFile(s.Path(5))

	var seen []Record
	stats, err := s.Drain(ctx, func(_ context.Context, rec Record) error {
		seen = append(seen, rec)
		if rec.URI == "https://example.com/1" {
			return ErrStopDrain
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Drain() error = %v", err)
	}
	if !stats.Stopped || stats.Relayed != 1 {
		t.Errorf("stats = %+v, want stopped with 1 relayed", stats)
	}

	after, _ := os.ReadFile(s.Path(5))
	if len(after) != len(before) {
		t.Fatalf("file size changed: %d -> %d", len(before), len(after))
	}
	first := seen[0]
	if !bytes.Equal(after[:first.Length], bytes.Repeat([]byte{'\n'}, first.Length)) {
		t.Errorf("first entry not tombstoned: %q", after[:first.Length])
	}
	if !bytes.Equal(after[first.Length:], before[first.Length:]) {
		t.Error("bytes after the tombstone changed")
	}

	// The next cycle resumes at the untouched entry.
	var uris []string
	if _, err := s.Drain(ctx, func(_ context.Context, rec Record) error {
		uris = append(uris, rec.URI)
		return nil
	}); err != nil {
		t.Fatalf("Drain() error = %v", err)
	}
	if len(uris) != 2 || uris[0] != "https://example.com/1" {
		t.Errorf("second drain = %v", uris)
	}
}

func TestDrainErrorLeavesEntry(t *testing.T) {
	t.Parallel()
	s := newTestStore(t, 5)
	ctx := context.Background()
	s.Append(ctx, Entry{URI: "https://example.com/a", Priority: 1, KeyStartDate: 1})

	boom := errors.New("transport down")
	if _, err := s.Drain(ctx, func(context.Context, Record) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("Drain() error = %v, want %v", err, boom)
	}
	records, _ := s.Pending(ctx)
	if len(records) != 1 {
		t.Errorf("pending = %d, want 1", len(records))
	}
}

func TestDrainDiscardsMalformedLines(t *testing.T) {
	t.Parallel()
	s := newTestStore(t, 12)
	ctx := context.Background()

	content := "garbage line\npriority=10;key_start_date=1;uri=https://example.com/ok\nuri=only\n"
	if err := os.WriteFile(s.Path(2), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	var relayed int
	stats, err := s.Drain(ctx, func(context.Context, Record) error { relayed++; return nil })
	if err != nil {
		t.Fatalf("Drain() error = %v", err)
	}
	if relayed != 1 || stats.Malformed != 2 {
		t.Errorf("relayed = %d malformed = %d, want 1 and 2", relayed, stats.Malformed)
	}
	if _, err := os.Stat(s.Path(2)); !os.IsNotExist(err) {
		t.Error("cold file should be removed once fully drained")
	}
}

func TestDrainKeepsHotHourFiles(t *testing.T) {
	t.Parallel()
	s := newTestStore(t, 10)
	ctx := context.Background()

	line := []byte("priority=10;key_start_date=1;uri=https://example.com/x\n")
	for _, hour := range []int{9, 10, 4} {
		if err := os.WriteFile(s.Path(hour), line, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	stats, err := s.Drain(ctx, func(context.Context, Record) error { return nil })
	if err != nil {
		t.Fatalf("Drain() error = %v", err)
	}
	if stats.Relayed != 3 || stats.FilesRemoved != 1 {
		t.Errorf("stats = %+v, want 3 relayed and 1 removed", stats)
	}
	for _, hour := range []int{9, 10} {
		if _, err := os.Stat(s.Path(hour)); err != nil {
			t.Errorf("hot hour %d removed: %v", hour, err)
		}
	}
	if _, err := os.Stat(s.Path(4)); !os.IsNotExist(err) {
		t.Error("cold hour 4 should be removed")
	}
}

func TestDrainVisitsOldestHourFirst(t *testing.T) {
	t.Parallel()
	s := newTestStore(t, 22)
	ctx := context.Background()

	for _, hour := range []int{22, 0, 23, 21} {
		line := fmt.Sprintf("priority=10;key_start_date=1;uri=https://example.com/%d\n", hour)
		if err := os.WriteFile(s.Path(hour), []byte(line), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	var order []int
	if _, err := s.Drain(ctx, func(_ context.Context, rec Record) error {
		order = append(order, rec.Hour)
		return nil
	}); err != nil {
		t.Fatalf("Drain() error = %v", err)
	}
	want := []int{23, 0, 21, 22}
	if fmt.Sprint(order) != fmt.Sprint(want) {
		t.Errorf("order = %v, want %v", order, want)
	}
}

func TestDrainLeavesPartialTrailingLine(t *testing.T) {
	t.Parallel()
	s := newTestStore(t, 15)
	ctx := context.Background()

	content := "priority=10;key_start_date=1;uri=https://example.com/done\npriority=10;key_st"
	if err := os.WriteFile(s.Path(1), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	stats, err := s.Drain(ctx, func(context.Context, Record) error { return nil })
	if err != nil {
		t.Fatalf("Drain() error = %v", err)
	}
	if stats.Relayed != 1 || stats.FilesRemoved != 0 {
		t.Errorf("stats = %+v", stats)
	}
	if _, err := os.Stat(s.Path(1)); err != nil {
		t.Error("file with a partial line must not be removed")
	}
}

func TestDrainHonorsCancellation(t *testing.T) {
	t.Parallel()
	s := newTestStore(t, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Drain(ctx, func(context.Context, Record) error { return nil }); !errors.Is(err, context.Canceled) {
		t.Errorf("Drain() error = %v, want context.Canceled", err)
	}
}

func TestStats(t *testing.T) {
	t.Parallel()
	s := newTestStore(t, 8)
	ctx := context.Background()
	s.Append(ctx, Entry{URI: "https://example.com/a", Priority: 1, KeyStartDate: 1})
	s.Append(ctx, Entry{URI: "https://example.com/b", Priority: 1, KeyStartDate: 2})

	status, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if len(status) != 1 || status[0].Hour != 8 || status[0].Pending != 2 {
		t.Errorf("Stats() = %+v", status)
	}
}

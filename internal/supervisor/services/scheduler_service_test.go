// Pagelist - Page List Journal and Ordered List Materialization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pagelist

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/tomtom215/pagelist/internal/lists"
)

type fakeRunner struct {
	runs  atomic.Int32
	err   error
	delay time.Duration
}

func (f *fakeRunner) Run(ctx context.Context) (lists.RunResult, error) {
	f.runs.Add(1)
	if f.err != nil {
		return lists.RunResult{}, f.err
	}
	return lists.RunResult{NextWake: time.Now().Add(f.delay)}, nil
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func serveInBackground(t *testing.T, svc interface{ Serve(context.Context) error }) (cancel func(), done <-chan error) {
	t.Helper()
	ctx, cancelFn := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()
	t.Cleanup(cancelFn)
	return cancelFn, errCh
}

func TestSchedulerServiceSleepsUntilWake(t *testing.T) {
	runner := &fakeRunner{delay: time.Hour}
	svc := NewSchedulerService(runner, nil, SchedulerServiceConfig{PingRate: 100, PingBurst: 10})
	cancel, done := serveInBackground(t, svc)

	waitFor(t, "first run", func() bool { return runner.runs.Load() == 1 })
	time.Sleep(50 * time.Millisecond)
	if got := runner.runs.Load(); got != 1 {
		t.Fatalf("runs before wake = %d, want 1", got)
	}

	_ = svc.Wake("test")
	waitFor(t, "woken run", func() bool { return runner.runs.Load() == 2 })

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Serve() error = %v, want context.Canceled", err)
	}
}

func TestSchedulerServiceRerunsWhenWakeTimeReached(t *testing.T) {
	runner := &fakeRunner{delay: 10 * time.Millisecond}
	svc := NewSchedulerService(runner, nil, SchedulerServiceConfig{})
	serveInBackground(t, svc)
	waitFor(t, "timer runs", func() bool { return runner.runs.Load() >= 3 })
}

func TestSchedulerServiceBacksOffAfterError(t *testing.T) {
	runner := &fakeRunner{err: errors.New("store closed")}
	svc := NewSchedulerService(runner, nil, SchedulerServiceConfig{ErrorBackoff: 10 * time.Millisecond})
	serveInBackground(t, svc)
	waitFor(t, "retries", func() bool { return runner.runs.Load() >= 3 })
}

func TestSchedulerServiceRemoteWakeups(t *testing.T) {
	pubsub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	t.Cleanup(func() { _ = pubsub.Close() })

	runner := &fakeRunner{delay: time.Hour}
	source := func(ctx context.Context) (<-chan *message.Message, error) {
		return pubsub.Subscribe(ctx, "wake")
	}
	svc := NewSchedulerService(runner, source, SchedulerServiceConfig{PingRate: 100, PingBurst: 10})
	serveInBackground(t, svc)
	waitFor(t, "first run", func() bool { return runner.runs.Load() == 1 })

	if err := pubsub.Publish("wake", message.NewMessage(watermill.NewUUID(), []byte("relay"))); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	waitFor(t, "remote wake run", func() bool { return runner.runs.Load() == 2 })

	// A closed subscription leaves the timer and local wakeups working.
	_ = pubsub.Close()
	time.Sleep(20 * time.Millisecond)
	_ = svc.Wake("http")
	waitFor(t, "local wake after close", func() bool { return runner.runs.Load() >= 3 })
}

func TestSchedulerServiceWakeNeverBlocks(t *testing.T) {
	svc := NewSchedulerService(&fakeRunner{}, nil, SchedulerServiceConfig{})
	for i := 0; i < 100; i++ {
		if err := svc.Wake("burst"); err != nil {
			t.Fatalf("Wake() error = %v", err)
		}
	}
	if len(svc.local) != 1 {
		t.Errorf("pending wakeups = %d, want 1", len(svc.local))
	}
}

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

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/pagelist/internal/journal"
	"github.com/tomtom215/pagelist/internal/relay"
)

// ackingDialer returns a dialer whose coordinator end acks every WORK.
func ackingDialer(t *testing.T) (Dialer, *atomic.Int32) {
	t.Helper()
	var pings atomic.Int32
	return func(ctx context.Context) (relay.Transport, error) {
		client, server := relay.Pipe()
		go func() {
			for {
				m, err := server.Receive(ctx)
				if err != nil {
					return
				}
				switch m.Command {
				case relay.CmdRegister:
					_ = server.Send(ctx, relay.NewMessage(relay.CmdReady))
				case relay.CmdWork:
					_ = server.Send(ctx, relay.NewMessage(relay.CmdWorkAck,
						relay.ParamMessageID, m.Get(relay.ParamMessageID)))
				case relay.CmdPing:
					pings.Add(1)
				}
			}
		}()
		return client, nil
	}, &pings
}

func newJournal(t *testing.T, uris ...string) *journal.Store {
	t.Helper()
	j, err := journal.Open(journal.Config{Dir: t.TempDir(), UID: -1, GID: -1})
	if err != nil {
		t.Fatalf("journal.Open() error = %v", err)
	}
	for _, uri := range uris {
		if err := j.AppendStrict(context.Background(), journal.Entry{URI: uri, Priority: 20, KeyStartDate: 100}); err != nil {
			t.Fatalf("AppendStrict(%s) error = %v", uri, err)
		}
	}
	return j
}

func TestRelayServiceCycle(t *testing.T) {
	j := newJournal(t, "https://example.com/a", "https://example.com/b")
	dial, pings := ackingDialer(t)
	svc := NewRelayService(dial, j, RelayServiceConfig{Session: relay.Config{
		ReadyTimeout:      time.Second,
		AckTimeout:        time.Second,
		UnregisterTimeout: time.Second,
	}})

	res, err := svc.Cycle(context.Background())
	if err != nil {
		t.Fatalf("Cycle() error = %v", err)
	}
	if res.Acked != 2 {
		t.Errorf("Acked = %d, want 2", res.Acked)
	}
	pending, err := j.Pending(context.Background())
	if err != nil {
		t.Fatalf("Pending() error = %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("pending after relay = %d, want 0", len(pending))
	}
	waitFor(t, "PING", func() bool { return pings.Load() == 1 })
	if svc.BreakerState() != "closed" {
		t.Errorf("breaker = %s, want closed", svc.BreakerState())
	}
}

func TestRelayServiceBreakerOpens(t *testing.T) {
	var dials atomic.Int32
	dial := func(context.Context) (relay.Transport, error) {
		dials.Add(1)
		return nil, errors.New("connection refused")
	}
	svc := NewRelayService(dial, newJournal(t), RelayServiceConfig{
		BreakerFailures: 2,
		BreakerTimeout:  time.Hour,
	})

	for i := 0; i < 2; i++ {
		if _, err := svc.Cycle(context.Background()); err == nil {
			t.Fatalf("cycle %d: expected dial error", i)
		}
	}
	_, err := svc.Cycle(context.Background())
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("Cycle() error = %v, want ErrOpenState", err)
	}
	if dials.Load() != 2 {
		t.Errorf("dials = %d, want 2", dials.Load())
	}
	if svc.BreakerState() != "open" {
		t.Errorf("breaker = %s, want open", svc.BreakerState())
	}
}

func TestRelayServiceServeCyclesImmediately(t *testing.T) {
	var dials atomic.Int32
	dial := func(context.Context) (relay.Transport, error) {
		dials.Add(1)
		return nil, errors.New("down")
	}
	svc := NewRelayService(dial, newJournal(t), RelayServiceConfig{Interval: time.Hour})
	cancel, done := serveInBackground(t, svc)

	waitFor(t, "first cycle", func() bool { return dials.Load() == 1 })
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Serve() error = %v, want context.Canceled", err)
	}
}

// Pagelist - Page List Journal and Ordered List Materialization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pagelist

package relay

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/pagelist/internal/journal"
)

// stubCoordinator answers a session over the server end of a pipe.
type stubCoordinator struct {
	tr     *PipeTransport
	onWork func(n int, m Message) *Message

	mu       sync.Mutex
	received []Message
	done     chan struct{}
}

func startStub(t *testing.T, tr *PipeTransport, onWork func(n int, m Message) *Message) *stubCoordinator {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	c := &stubCoordinator{tr: tr, onWork: onWork, done: make(chan struct{})}
	go func() {
		defer close(c.done)
		works := 0
		for {
			m, err := tr.Receive(ctx)
			if err != nil {
				return
			}
			c.mu.Lock()
			c.received = append(c.received, m)
			c.mu.Unlock()

			switch m.Command {
			case CmdRegister:
				_ = tr.Send(ctx, NewMessage(CmdReady))
			case CmdWork:
				works++
				if reply := c.onWork(works, m); reply != nil {
					_ = tr.Send(ctx, *reply)
				}
			case CmdUnregister:
				return
			}
		}
	}()
	return c
}

func (c *stubCoordinator) wait(t *testing.T) []Message {
	t.Helper()
	select {
	case <-c.done:
	case <-time.After(5 * time.Second):
		t.Fatal("stub coordinator did not see UNREGISTER")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Message(nil), c.received...)
}

func ack(m Message) *Message {
	r := NewMessage(CmdWorkAck, ParamMessageID, m.Get(ParamMessageID))
	return &r
}

func ackAll(_ int, m Message) *Message { return ack(m) }

func newTestJournal(t *testing.T) *journal.Store {
	t.Helper()
	j, err := journal.Open(journal.Config{Dir: t.TempDir(), UID: -1, GID: -1})
	if err != nil {
		t.Fatalf("journal.Open() error = %v", err)
	}
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	j.SetClock(func() time.Time { return now })
	return j
}

func appendEntries(t *testing.T, j *journal.Store, uris ...string) {
	t.Helper()
	for _, uri := range uris {
		if err := j.AppendStrict(context.Background(), journal.Entry{URI: uri, Priority: 20, KeyStartDate: 100}); err != nil {
			t.Fatalf("AppendStrict(%s) error = %v", uri, err)
		}
	}
}

func pendingURIs(t *testing.T, j *journal.Store) []string {
	t.Helper()
	recs, err := j.Pending(context.Background())
	if err != nil {
		t.Fatalf("Pending() error = %v", err)
	}
	var out []string
	for _, r := range recs {
		out = append(out, r.URI)
	}
	return out
}

func workURIs(msgs []Message) []string {
	var out []string
	for _, m := range msgs {
		if m.Command == CmdWork {
			out = append(out, m.Get(ParamURI))
		}
	}
	return out
}

func commands(msgs []Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Command
	}
	return out
}

func testConfig() Config {
	return Config{ReadyTimeout: time.Second, AckTimeout: time.Second, UnregisterTimeout: time.Second}
}

func TestHandleMessage(t *testing.T) {
	t.Parallel()

	s := NewSession(nil, nil, testConfig())
	if !strings.HasPrefix(s.Name(), SessionPrefix) {
		t.Fatalf("Name() = %q, want prefix %q", s.Name(), SessionPrefix)
	}

	out := s.HandleMessage(NewMessage(CmdHelp))
	if out.Reply == nil || out.Reply.Command != CmdCommands {
		t.Fatalf("HELP reply = %+v, want COMMANDS", out.Reply)
	}
	if got := out.Reply.Get(ParamList); !strings.Contains(got, CmdWorkAck) {
		t.Errorf("COMMANDS list = %q, missing WORK_ACK", got)
	}

	out = s.HandleMessage(NewMessage("BOGUS"))
	if out.Reply == nil || out.Reply.Command != CmdUnrecognized || out.Reply.Get(ParamCommand) != "BOGUS" {
		t.Fatalf("unknown command reply = %+v", out.Reply)
	}
	if s.State() != StateRegistering {
		t.Fatalf("State() = %v after unknown command", s.State())
	}

	if out = s.HandleMessage(NewMessage(CmdReady)); !out.Ready || s.State() != StateReady {
		t.Fatalf("READY outcome = %+v, state %v", out, s.State())
	}

	msg := s.workMessage(journal.Record{Entry: journal.Entry{URI: "https://example.com/a", Priority: 20}})
	if s.State() != StateAwaitingAck || s.Pending() != msg.Get(ParamMessageID) {
		t.Fatalf("after WORK state = %v pending = %q", s.State(), s.Pending())
	}
	if msg.Get(ParamCache) != "no" || msg.Get(ParamPriority) != "20" {
		t.Errorf("WORK params = %v", msg.Params)
	}

	if out = s.HandleMessage(NewMessage(CmdWorkAck, ParamMessageID, msg.Get(ParamMessageID))); !out.Acked {
		t.Fatalf("matching ack outcome = %+v", out)
	}
	if s.State() != StateReady || s.Pending() != "" {
		t.Fatalf("after ack state = %v pending = %q", s.State(), s.Pending())
	}

	out = s.HandleMessage(NewMessage(CmdStop))
	if !out.Stop || s.State() != StateDone {
		t.Fatalf("STOP outcome = %+v, state %v", out, s.State())
	}
	if out = s.HandleMessage(NewMessage(CmdReady)); !out.Stop {
		t.Error("messages after Done must keep the session stopped")
	}
}

func TestHandleMessageAckMismatch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		setup func(s *Session)
	}{
		{"no work in flight", func(s *Session) { s.HandleMessage(NewMessage(CmdReady)) }},
		{"wrong id", func(s *Session) {
			s.HandleMessage(NewMessage(CmdReady))
			s.workMessage(journal.Record{Entry: journal.Entry{URI: "u"}})
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSession(nil, nil, testConfig())
			tt.setup(s)
			out := s.HandleMessage(NewMessage(CmdWorkAck, ParamMessageID, "no-such-id"))
			if !errors.Is(out.Err, ErrAckMismatch) {
				t.Fatalf("Err = %v, want ErrAckMismatch", out.Err)
			}
			if s.State() != StateDone {
				t.Errorf("State() = %v, want done", s.State())
			}
		})
	}
}

func TestHandleMessageStops(t *testing.T) {
	t.Parallel()
	for _, cmd := range []string{CmdStop, CmdShuttingDown, CmdWorkFailed, CmdUnrecognized} {
		t.Run(cmd, func(t *testing.T) {
			s := NewSession(nil, nil, testConfig())
			s.HandleMessage(NewMessage(CmdReady))
			if out := s.HandleMessage(NewMessage(cmd)); !out.Stop || out.Err != nil {
				t.Fatalf("outcome = %+v, want clean stop", out)
			}
		})
	}
}

func TestMessageIDsAreUnique(t *testing.T) {
	t.Parallel()
	seen := make(map[string]bool)
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				id := nextMessageID()
				mu.Lock()
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if len(seen) != 800 {
		t.Errorf("unique ids = %d, want 800", len(seen))
	}
}

func TestRunRelaysEntry(t *testing.T) {
	t.Parallel()
	j := newTestJournal(t)
	const uri = "https://example.com/blog/2024/01/entry"
	appendEntries(t, j, uri)

	client, server := Pipe()
	stub := startStub(t, server, ackAll)

	res, err := Cycle(context.Background(), client, j, testConfig())
	if err != nil {
		t.Fatalf("Cycle() error = %v", err)
	}
	if res.Sent != 1 || res.Acked != 1 || !res.DidWork() {
		t.Fatalf("result = %+v", res)
	}

	msgs := stub.wait(t)
	want := []string{CmdRegister, CmdCommands, CmdWork, CmdUnregister}
	if got := commands(msgs); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("commands = %v, want %v", got, want)
	}
	work := msgs[2]
	if work.Get(ParamURI) != uri || work.Get(ParamPriority) != "20" || work.Get(ParamKeyStartDate) != "100" {
		t.Errorf("WORK params = %v", work.Params)
	}
	if work.Get(ParamService) != res.Name {
		t.Errorf("WORK service = %q, want %q", work.Get(ParamService), res.Name)
	}
	if got := pendingURIs(t, j); len(got) != 0 {
		t.Errorf("pending after ack = %v", got)
	}
}

func TestRunAtLeastOnceAfterStop(t *testing.T) {
	t.Parallel()
	j := newTestJournal(t)
	var all []string
	for i := 0; i < 5; i++ {
		all = append(all, fmt.Sprintf("https://example.com/p%d", i))
	}
	appendEntries(t, j, all...)

	const k = 2
	client, server := Pipe()
	stub := startStub(t, server, func(n int, m Message) *Message {
		if n <= k {
			return ack(m)
		}
		stop := NewMessage(CmdStop)
		return &stop
	})
	res, err := NewSession(client, j, testConfig()).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Acked != k || !res.Stopped {
		t.Fatalf("result = %+v, want %d acked and stopped", res, k)
	}
	stub.wait(t)

	remaining := pendingURIs(t, j)
	if strings.Join(remaining, ",") != strings.Join(all[k:], ",") {
		t.Fatalf("remaining = %v, want %v", remaining, all[k:])
	}

	client2, server2 := Pipe()
	stub2 := startStub(t, server2, ackAll)
	res, err = NewSession(client2, j, testConfig()).Run(context.Background())
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if got := workURIs(stub2.wait(t)); strings.Join(got, ",") != strings.Join(all[k:], ",") {
		t.Errorf("second session relayed %v, want %v", got, all[k:])
	}
	if res.Acked != len(all)-k {
		t.Errorf("second Acked = %d", res.Acked)
	}
	if got := pendingURIs(t, j); len(got) != 0 {
		t.Errorf("pending after second session = %v", got)
	}
}

func TestRunAckTimeoutKeepsEntry(t *testing.T) {
	t.Parallel()
	j := newTestJournal(t)
	appendEntries(t, j, "https://example.com/slow")

	client, server := Pipe()
	stub := startStub(t, server, func(int, Message) *Message { return nil })
	cfg := testConfig()
	cfg.AckTimeout = 50 * time.Millisecond

	res, err := NewSession(client, j, cfg).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !res.Stopped || res.Acked != 0 || res.Reason != "ack timeout" {
		t.Fatalf("result = %+v", res)
	}
	if got := commands(stub.wait(t)); got[len(got)-1] != CmdUnregister {
		t.Errorf("last command = %s, want UNREGISTER", got[len(got)-1])
	}
	if got := pendingURIs(t, j); len(got) != 1 {
		t.Errorf("pending = %v, want the unacknowledged entry", got)
	}
}

func TestRunAckMismatchIsHardError(t *testing.T) {
	t.Parallel()
	j := newTestJournal(t)
	appendEntries(t, j, "https://example.com/a", "https://example.com/b")

	client, server := Pipe()
	stub := startStub(t, server, func(int, Message) *Message {
		r := NewMessage(CmdWorkAck, ParamMessageID, "999999999")
		return &r
	})
	res, err := NewSession(client, j, testConfig()).Run(context.Background())
	if !errors.Is(err, ErrAckMismatch) {
		t.Fatalf("Run() error = %v, want ErrAckMismatch", err)
	}
	if res.Sent != 1 || res.Acked != 0 {
		t.Errorf("result = %+v", res)
	}
	stub.wait(t)
	if got := pendingURIs(t, j); len(got) != 2 {
		t.Errorf("pending = %v, want both entries", got)
	}
}

func TestRunStopBeforeReady(t *testing.T) {
	t.Parallel()
	j := newTestJournal(t)
	appendEntries(t, j, "https://example.com/a")

	client, server := Pipe()
	go func() {
		ctx := context.Background()
		if _, err := server.Receive(ctx); err != nil {
			return
		}
		_ = server.Send(ctx, NewMessage(CmdShuttingDown))
	}()

	res, err := NewSession(client, j, testConfig()).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !res.Stopped || res.Sent != 0 {
		t.Errorf("result = %+v", res)
	}
	if got := pendingURIs(t, j); len(got) != 1 {
		t.Errorf("pending = %v", got)
	}
}

func TestRunReadyTimeout(t *testing.T) {
	t.Parallel()
	client, _ := Pipe()
	cfg := testConfig()
	cfg.ReadyTimeout = 20 * time.Millisecond
	_, err := NewSession(client, newTestJournal(t), cfg).Run(context.Background())
	if !errors.Is(err, ErrNotReady) {
		t.Fatalf("Run() error = %v, want ErrNotReady", err)
	}
}

func TestMessageCodec(t *testing.T) {
	t.Parallel()
	data, err := Encode(NewMessage(CmdWork, ParamURI, "https://example.com/a", ParamMessageID, "7"))
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	m, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if m.Command != CmdWork || m.Get(ParamURI) != "https://example.com/a" || m.Get(ParamMessageID) != "7" {
		t.Errorf("decoded = %+v", m)
	}
	if _, err := Decode([]byte(`{"params":{}}`)); err == nil {
		t.Error("Decode() accepted a message without command")
	}
	if _, err := Decode([]byte(`not json`)); err == nil {
		t.Error("Decode() accepted garbage")
	}
}

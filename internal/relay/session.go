// Pagelist - Page List Journal and Ordered List Materialization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pagelist

package relay

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/pagelist/internal/journal"
	"github.com/tomtom215/pagelist/internal/logging"
)

// SessionPrefix prefixes every session name.
const SessionPrefix = "journal_"

var (
	// ErrAckMismatch is returned when an acknowledgement names a message id
	// that is not the one in flight.
	ErrAckMismatch = errors.New("relay: acknowledgement for unknown message")

	// ErrNotReady is returned when the coordinator never confirmed the
	// registration.
	ErrNotReady = errors.New("relay: coordinator did not confirm registration")
)

// messageIDs is shared by every session in the process so ids never repeat.
var messageIDs atomic.Uint64

func nextMessageID() string {
	return strconv.FormatUint(messageIDs.Add(1), 10)
}

// State is the session state.
type State int

const (
	StateRegistering State = iota
	StateReady
	StateAwaitingAck
	StateDone
)

func (s State) String() string {
	switch s {
	case StateRegistering:
		return "registering"
	case StateReady:
		return "ready"
	case StateAwaitingAck:
		return "awaiting_ack"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// Drainer is the journal surface a session consumes.
type Drainer interface {
	Drain(ctx context.Context, fn journal.DrainFunc) (journal.DrainStats, error)
}

// Config holds session timeouts.
type Config struct {
	// ReadyTimeout bounds the wait for READY after REGISTER.
	ReadyTimeout time.Duration
	// AckTimeout bounds the wait for each WORK_ACK.
	AckTimeout time.Duration
	// UnregisterTimeout bounds the final UNREGISTER send.
	UnregisterTimeout time.Duration
}

// DefaultConfig returns the production timeouts.
func DefaultConfig() Config {
	return Config{
		ReadyTimeout:      60 * time.Second,
		AckTimeout:        60 * time.Second,
		UnregisterTimeout: 5 * time.Second,
	}
}

// Outcome is what the caller must do after HandleMessage.
type Outcome struct {
	// Reply is sent back to the coordinator when non-nil.
	Reply *Message
	// Ready reports that registration was confirmed.
	Ready bool
	// Acked reports that the in-flight WORK was acknowledged.
	Acked bool
	// Stop ends the session without error.
	Stop bool
	// Err ends the session with a hard error.
	Err error
}

// Result summarizes one session.
type Result struct {
	Name      string
	Sent      int
	Acked     int
	Malformed int
	Stopped   bool
	Reason    string
}

// DidWork reports whether any entry was handed off.
func (r Result) DidWork() bool {
	return r.Acked > 0
}

// Session is one drain cycle against the coordinator.
type Session struct {
	name      string
	transport Transport
	journal   Drainer
	cfg       Config

	state   State
	pending string
	reason  string
}

// NewSession builds a session with a fresh unique name.
func NewSession(t Transport, j Drainer, cfg Config) *Session {
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = DefaultConfig().ReadyTimeout
	}
	if cfg.AckTimeout <= 0 {
		cfg.AckTimeout = DefaultConfig().AckTimeout
	}
	if cfg.UnregisterTimeout <= 0 {
		cfg.UnregisterTimeout = DefaultConfig().UnregisterTimeout
	}
	return &Session{
		name:      SessionPrefix + uuid.NewString(),
		transport: t,
		journal:   j,
		cfg:       cfg,
		state:     StateRegistering,
	}
}

// Name returns the session name.
func (s *Session) Name() string { return s.name }

// State returns the current state.
func (s *Session) State() State { return s.state }

// Pending returns the id of the in-flight WORK, or "".
func (s *Session) Pending() string { return s.pending }

// HandleMessage advances the state machine by one inbound message.
func (s *Session) HandleMessage(m Message) Outcome {
	if s.state == StateDone {
		return Outcome{Stop: true}
	}

	switch m.Command {
	case CmdReady:
		if s.state == StateRegistering {
			s.state = StateReady
			return Outcome{Ready: true}
		}
		return Outcome{}

	case CmdHelp:
		reply := s.commandsMessage()
		return Outcome{Reply: &reply}

	case CmdWorkAck:
		id := m.Get(ParamMessageID)
		if s.state != StateAwaitingAck || id != s.pending {
			s.finish("ack mismatch")
			return Outcome{Err: fmt.Errorf("%w: got %q, in flight %q", ErrAckMismatch, id, s.pending)}
		}
		s.pending = ""
		s.state = StateReady
		return Outcome{Acked: true}

	case CmdWorkFailed:
		s.finish("work failed: " + m.Get(ParamReason))
		return Outcome{Stop: true}

	case CmdStop:
		s.finish("stop requested")
		return Outcome{Stop: true}

	case CmdShuttingDown:
		s.finish("coordinator shutting down")
		return Outcome{Stop: true}

	case CmdUnrecognized:
		s.finish("coordinator rejected " + m.Get(ParamCommand))
		return Outcome{Stop: true}

	default:
		reply := NewMessage(CmdUnrecognized, ParamService, s.name, ParamCommand, m.Command)
		return Outcome{Reply: &reply}
	}
}

func (s *Session) finish(reason string) {
	s.state = StateDone
	s.pending = ""
	if s.reason == "" {
		s.reason = reason
	}
}

func (s *Session) commandsMessage() Message {
	return NewMessage(CmdCommands, ParamService, s.name, ParamList, strings.Join(AcceptedCommands, ","))
}

// workMessage builds the WORK message for one record and marks it in flight.
func (s *Session) workMessage(rec journal.Record) Message {
	id := nextMessageID()
	s.pending = id
	s.state = StateAwaitingAck
	return NewMessage(CmdWork,
		ParamService, s.name,
		ParamURI, rec.URI,
		ParamPriority, strconv.Itoa(int(rec.Priority)),
		ParamKeyStartDate, strconv.FormatInt(rec.KeyStartDate, 10),
		ParamMessageID, id,
		ParamCache, "no",
	)
}

// Run performs one full cycle: register, wait for READY, declare commands,
// drain the journal one acknowledged entry at a time, and unregister.
// UNREGISTER is always attempted, even after errors or cancellation.
func (s *Session) Run(ctx context.Context) (res Result, err error) {
	ctx = logging.ContextWithNewCorrelationID(ctx)
	log := logging.Ctx(ctx).With().Str("session", s.name).Logger()
	start := time.Now()

	res = Result{Name: s.name}
	defer func() {
		s.unregister(ctx)
		res.Reason = s.reason
		relayDuration.Observe(time.Since(start).Seconds())
	}()

	if err := s.transport.Send(ctx, NewMessage(CmdRegister, ParamService, s.name)); err != nil {
		relaySessionsTotal.WithLabelValues("error").Inc()
		return res, fmt.Errorf("send REGISTER: %w", err)
	}

	ready, err := s.awaitReady(ctx)
	if err != nil {
		relaySessionsTotal.WithLabelValues("error").Inc()
		return res, err
	}
	if !ready {
		res.Stopped = true
		relaySessionsTotal.WithLabelValues("stopped").Inc()
		return res, nil
	}

	if err := s.transport.Send(ctx, s.commandsMessage()); err != nil {
		relaySessionsTotal.WithLabelValues("error").Inc()
		return res, fmt.Errorf("send COMMANDS: %w", err)
	}

	stats, err := s.journal.Drain(ctx, func(ctx context.Context, rec journal.Record) error {
		return s.relay(ctx, rec, &res)
	})
	res.Malformed = stats.Malformed
	res.Stopped = stats.Stopped
	if err != nil {
		relaySessionsTotal.WithLabelValues("error").Inc()
		return res, err
	}

	outcome := "completed"
	if res.Stopped {
		outcome = "stopped"
	}
	relaySessionsTotal.WithLabelValues(outcome).Inc()
	log.Debug().Int("sent", res.Sent).Int("acked", res.Acked).Bool("stopped", res.Stopped).
		Dur("duration", time.Since(start)).Msg("Relay session finished")
	return res, nil
}

// awaitReady consumes messages until READY or a stop. ready is false when
// the coordinator ended the session first.
func (s *Session) awaitReady(ctx context.Context) (ready bool, err error) {
	waitCtx, cancel := context.WithTimeout(ctx, s.cfg.ReadyTimeout)
	defer cancel()

	for {
		m, err := s.transport.Receive(waitCtx)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				s.finish("ready timeout")
				return false, ErrNotReady
			}
			return false, fmt.Errorf("wait for READY: %w", err)
		}
		out := s.HandleMessage(m)
		if out.Reply != nil {
			if err := s.transport.Send(ctx, *out.Reply); err != nil {
				return false, fmt.Errorf("send %s: %w", out.Reply.Command, err)
			}
		}
		switch {
		case out.Err != nil:
			return false, out.Err
		case out.Stop:
			return false, nil
		case out.Ready:
			return true, nil
		}
	}
}

// relay hands one record off and blocks until it is acknowledged. A nil
// return lets the journal tombstone the entry.
func (s *Session) relay(ctx context.Context, rec journal.Record, res *Result) error {
	if s.state == StateDone {
		return journal.ErrStopDrain
	}
	msg := s.workMessage(rec)
	if err := s.transport.Send(ctx, msg); err != nil {
		return fmt.Errorf("send WORK %s: %w", rec.URI, err)
	}
	res.Sent++
	relayWorkSentTotal.Inc()

	ackCtx, cancel := context.WithTimeout(ctx, s.cfg.AckTimeout)
	defer cancel()

	for {
		m, err := s.transport.Receive(ackCtx)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				relayAckTimeoutsTotal.Inc()
				logging.Ctx(ctx).Warn().Str("session", s.name).Str("uri", rec.URI).
					Str("message_id", msg.Get(ParamMessageID)).Msg("Timed out waiting for acknowledgement")
				s.finish("ack timeout")
				return journal.ErrStopDrain
			}
			return fmt.Errorf("wait for WORK_ACK: %w", err)
		}

		out := s.HandleMessage(m)
		if out.Reply != nil {
			if err := s.transport.Send(ctx, *out.Reply); err != nil {
				return fmt.Errorf("send %s: %w", out.Reply.Command, err)
			}
		}
		switch {
		case out.Err != nil:
			logging.Ctx(ctx).Error().Err(out.Err).Str("session", s.name).Msg("Relay session aborted")
			return out.Err
		case out.Stop:
			return journal.ErrStopDrain
		case out.Acked:
			res.Acked++
			relayWorkAckedTotal.Inc()
			return nil
		}
	}
}

func (s *Session) unregister(ctx context.Context) {
	s.state = StateDone
	uctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.UnregisterTimeout)
	defer cancel()
	if err := s.transport.Send(uctx, NewMessage(CmdUnregister, ParamService, s.name)); err != nil {
		logging.Ctx(ctx).Debug().Err(err).Str("session", s.name).Msg("UNREGISTER not delivered")
	}
}

// Ping tells the coordinator new work is queued.
func Ping(ctx context.Context, t Transport, service string) error {
	if err := t.Send(ctx, NewMessage(CmdPing, ParamService, service)); err != nil {
		return fmt.Errorf("send PING: %w", err)
	}
	relayPingsTotal.Inc()
	return nil
}

// Cycle runs one session and pings the coordinator when it handed off work.
func Cycle(ctx context.Context, t Transport, j Drainer, cfg Config) (Result, error) {
	s := NewSession(t, j, cfg)
	res, err := s.Run(ctx)
	if err != nil {
		return res, err
	}
	if res.DidWork() {
		if perr := Ping(ctx, t, s.Name()); perr != nil {
			logging.Ctx(ctx).Warn().Err(perr).Str("session", s.Name()).Msg("Failed to ping coordinator")
		}
	}
	return res, nil
}

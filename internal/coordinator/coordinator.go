// Pagelist - Page List Journal and Ordered List Materialization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pagelist

// Package coordinator is the receiving side of the relay protocol. It
// accepts WORK messages from relay sessions, enqueues them into the durable
// queue, acknowledges them, and turns PING messages into scheduler wakeups.
//
// A WORK_ACK is only sent after the enqueue transaction committed, so a
// relay never tombstones an entry the queue does not hold.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/nats-io/nats.go"

	"github.com/tomtom215/pagelist/internal/logging"
	"github.com/tomtom215/pagelist/internal/queue"
	"github.com/tomtom215/pagelist/internal/relay"
)

// DefaultWakeTopic carries scheduler wakeups.
const DefaultWakeTopic = "pagelist.wake"

// ErrInvalidWork is the cause reported for a malformed WORK message.
var ErrInvalidWork = errors.New("invalid work message")

// Enqueuer is the queue surface the coordinator writes to.
type Enqueuer interface {
	Enqueue(ctx context.Context, it queue.Item) error
}

// Config holds coordinator settings.
type Config struct {
	SubjectPrefix string
	WakeTopic     string
}

// SessionInfo describes one registered relay session.
type SessionInfo struct {
	Name       string
	Reply      string
	Registered time.Time
	Commands   []string
	Enqueued   int
}

// Coordinator routes relay messages.
type Coordinator struct {
	nc        *nats.Conn
	subject   string
	queue     Enqueuer
	wake      *gochannel.GoChannel
	wakeTopic string
	now       func() time.Time

	broadcast      message.Publisher
	broadcastTopic string

	mu       sync.Mutex
	sub      *nats.Subscription
	sessions map[string]*SessionInfo
	closed   bool
}

// New builds a coordinator. nc may be nil when messages are fed through
// Handle directly.
func New(nc *nats.Conn, q Enqueuer, cfg Config) *Coordinator {
	topic := cfg.WakeTopic
	if topic == "" {
		topic = DefaultWakeTopic
	}
	logger := watermill.NewSlogLogger(logging.NewSlogLogger())
	return &Coordinator{
		nc:        nc,
		subject:   relay.CoordinatorSubject(cfg.SubjectPrefix),
		queue:     q,
		wake:      gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 16}, logger),
		wakeTopic: topic,
		now:       time.Now,
		sessions:  make(map[string]*SessionInfo),
	}
}

// Subject returns the subject the coordinator listens on.
func (c *Coordinator) Subject() string {
	return c.subject
}

// Start subscribes to the coordinator subject.
func (c *Coordinator) Start() error {
	if c.nc == nil {
		return fmt.Errorf("coordinator has no NATS connection")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fmt.Errorf("coordinator is closed")
	}
	if c.sub != nil {
		return nil
	}
	sub, err := c.nc.Subscribe(c.subject, c.handleNATS)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", c.subject, err)
	}
	if err := c.nc.Flush(); err != nil {
		_ = sub.Unsubscribe()
		return fmt.Errorf("flush subscription: %w", err)
	}
	c.sub = sub
	logging.Info().Str("subject", c.subject).Msg("Coordinator listening")
	return nil
}

// Wakeups subscribes to scheduler wakeups. Each message must be acked.
func (c *Coordinator) Wakeups(ctx context.Context) (<-chan *message.Message, error) {
	return c.wake.Subscribe(ctx, c.wakeTopic)
}

// BroadcastWakeups also publishes every wakeup to pub on topic, for
// schedulers running in other processes. Call before Start. pub is closed
// by Shutdown.
func (c *Coordinator) BroadcastWakeups(pub message.Publisher, topic string) {
	c.broadcast = pub
	c.broadcastTopic = topic
}

// Wake publishes a scheduler wakeup.
func (c *Coordinator) Wake(source string) error {
	msg := message.NewMessage(watermill.NewUUID(), []byte(source))
	if err := c.wake.Publish(c.wakeTopic, msg); err != nil {
		return fmt.Errorf("publish wakeup: %w", err)
	}
	coordinatorWakeupsTotal.Inc()
	if c.broadcast != nil {
		out := message.NewMessage(watermill.NewUUID(), []byte(source))
		if err := c.broadcast.Publish(c.broadcastTopic, out); err != nil {
			logging.Warn().Err(err).Str("topic", c.broadcastTopic).Msg("Wakeup broadcast failed")
		}
	}
	return nil
}

// Sessions lists registered sessions by name.
func (c *Coordinator) Sessions() []SessionInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]SessionInfo, 0, len(c.sessions))
	for _, s := range c.sessions {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (c *Coordinator) handleNATS(msg *nats.Msg) {
	m, err := relay.Decode(msg.Data)
	if err != nil {
		logging.Warn().Err(err).Str("subject", msg.Subject).Msg("Dropping undecodable relay message")
		return
	}
	reply := c.Handle(context.Background(), m, msg.Reply)
	if reply == nil || msg.Reply == "" {
		return
	}
	data, err := relay.Encode(*reply)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to encode coordinator reply")
		return
	}
	if err := c.nc.Publish(msg.Reply, data); err != nil {
		logging.Error().Err(err).Str("command", reply.Command).Msg("Failed to publish coordinator reply")
	}
}

// Handle processes one inbound message and returns the reply, if any.
// replyTo is the sender's reply subject, recorded at registration.
func (c *Coordinator) Handle(ctx context.Context, m relay.Message, replyTo string) *relay.Message {
	coordinatorMessagesTotal.WithLabelValues(commandLabel(m.Command)).Inc()
	service := m.Get(relay.ParamService)

	switch m.Command {
	case relay.CmdRegister:
		if service == "" {
			return reply(relay.NewMessage(relay.CmdStop, relay.ParamReason, "missing service"))
		}
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return reply(relay.NewMessage(relay.CmdShuttingDown))
		}
		c.sessions[service] = &SessionInfo{Name: service, Reply: replyTo, Registered: c.now()}
		coordinatorSessions.Set(float64(len(c.sessions)))
		c.mu.Unlock()
		logging.Debug().Str("session", service).Msg("Relay session registered")
		return reply(relay.NewMessage(relay.CmdReady, relay.ParamService, service))

	case relay.CmdCommands:
		c.mu.Lock()
		if s, ok := c.sessions[service]; ok {
			s.Commands = splitList(m.Get(relay.ParamList))
		}
		c.mu.Unlock()
		return nil

	case relay.CmdWork:
		return c.handleWork(ctx, service, m)

	case relay.CmdUnregister:
		c.mu.Lock()
		delete(c.sessions, service)
		coordinatorSessions.Set(float64(len(c.sessions)))
		c.mu.Unlock()
		logging.Debug().Str("session", service).Msg("Relay session unregistered")
		return nil

	case relay.CmdPing:
		if err := c.Wake(service); err != nil {
			logging.Warn().Err(err).Str("session", service).Msg("Failed to wake scheduler")
		}
		return nil

	case relay.CmdUnrecognized:
		logging.Warn().Str("session", service).Str("command", m.Get(relay.ParamCommand)).
			Msg("Relay session rejected a coordinator command")
		return nil

	default:
		return reply(relay.NewMessage(relay.CmdUnrecognized, relay.ParamCommand, m.Command))
	}
}

func (c *Coordinator) handleWork(ctx context.Context, service string, m relay.Message) *relay.Message {
	id := m.Get(relay.ParamMessageID)

	c.mu.Lock()
	_, registered := c.sessions[service]
	closed := c.closed
	c.mu.Unlock()
	if closed {
		coordinatorWorkTotal.WithLabelValues("rejected").Inc()
		return reply(relay.NewMessage(relay.CmdShuttingDown))
	}
	if !registered {
		coordinatorWorkTotal.WithLabelValues("rejected").Inc()
		return reply(relay.NewMessage(relay.CmdWorkFailed,
			relay.ParamMessageID, id, relay.ParamReason, "session not registered"))
	}

	it, err := parseWork(m)
	if err != nil {
		coordinatorWorkTotal.WithLabelValues("invalid").Inc()
		logging.Warn().Err(err).Str("session", service).Msg("Rejecting WORK")
		return reply(relay.NewMessage(relay.CmdWorkFailed,
			relay.ParamMessageID, id, relay.ParamReason, err.Error()))
	}
	if err := c.queue.Enqueue(ctx, it); err != nil {
		coordinatorWorkTotal.WithLabelValues("error").Inc()
		logging.Error().Err(err).Str("uri", it.URI).Msg("Failed to enqueue WORK")
		return reply(relay.NewMessage(relay.CmdWorkFailed,
			relay.ParamMessageID, id, relay.ParamReason, "enqueue failed"))
	}

	c.mu.Lock()
	if s, ok := c.sessions[service]; ok {
		s.Enqueued++
	}
	c.mu.Unlock()
	coordinatorWorkTotal.WithLabelValues("enqueued").Inc()
	return reply(relay.NewMessage(relay.CmdWorkAck, relay.ParamMessageID, id))
}

func parseWork(m relay.Message) (queue.Item, error) {
	uri := m.Get(relay.ParamURI)
	if uri == "" {
		return queue.Item{}, fmt.Errorf("%w: missing uri", ErrInvalidWork)
	}
	if m.Get(relay.ParamMessageID) == "" {
		return queue.Item{}, fmt.Errorf("%w: missing message_id", ErrInvalidWork)
	}
	p, err := strconv.ParseUint(m.Get(relay.ParamPriority), 10, 8)
	if err != nil {
		return queue.Item{}, fmt.Errorf("%w: priority: %w", ErrInvalidWork, err)
	}
	ksd, err := strconv.ParseInt(m.Get(relay.ParamKeyStartDate), 10, 64)
	if err != nil {
		return queue.Item{}, fmt.Errorf("%w: key_start_date: %w", ErrInvalidWork, err)
	}
	return queue.Item{URI: uri, Priority: uint8(p), NotBefore: ksd}, nil
}

// Shutdown tells every registered session the coordinator is going away,
// stops accepting messages and closes the wakeup channel.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	sub := c.sub
	var inboxes []string
	for _, s := range c.sessions {
		if s.Reply != "" {
			inboxes = append(inboxes, s.Reply)
		}
	}
	c.sessions = make(map[string]*SessionInfo)
	coordinatorSessions.Set(0)
	c.mu.Unlock()

	var errs []error
	if c.nc != nil && len(inboxes) > 0 {
		data, err := relay.Encode(relay.NewMessage(relay.CmdShuttingDown))
		if err == nil {
			for _, inbox := range inboxes {
				if perr := c.nc.Publish(inbox, data); perr != nil {
					errs = append(errs, perr)
				}
			}
			if ferr := c.nc.FlushTimeout(flushTimeout(ctx)); ferr != nil {
				errs = append(errs, ferr)
			}
		}
	}
	if sub != nil {
		if err := sub.Drain(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
			errs = append(errs, err)
		}
	}
	if err := c.wake.Close(); err != nil {
		errs = append(errs, err)
	}
	if c.broadcast != nil {
		if err := c.broadcast.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func reply(m relay.Message) *relay.Message {
	return &m
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// commandLabel bounds metric cardinality to known commands.
func commandLabel(cmd string) string {
	switch cmd {
	case relay.CmdRegister, relay.CmdCommands, relay.CmdWork, relay.CmdUnregister,
		relay.CmdPing, relay.CmdUnrecognized:
		return cmd
	default:
		return "other"
	}
}

func flushTimeout(ctx context.Context) time.Duration {
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d > 0 {
			return d
		}
	}
	return time.Second
}

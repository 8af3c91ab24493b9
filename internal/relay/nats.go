// Pagelist - Page List Journal and Ordered List Materialization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pagelist

package relay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// DefaultSubjectPrefix prefixes the coordinator subject.
const DefaultSubjectPrefix = "pagelist"

// CoordinatorSubject returns the subject the coordinator listens on.
func CoordinatorSubject(prefix string) string {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return prefix + ".coordinator"
}

// NATSConfig holds connection settings.
type NATSConfig struct {
	URL           string
	SubjectPrefix string
	ClientName    string
	ConnectWait   time.Duration
}

// NATSTransport publishes session messages to the coordinator subject with
// a private inbox as reply subject, and receives replies on that inbox.
type NATSTransport struct {
	nc      *nats.Conn
	sub     *nats.Subscription
	subject string
	inbox   string
	owned   bool

	mu     sync.Mutex
	closed bool
}

// DialNATS connects to the broker and opens a transport that owns the
// connection.
func DialNATS(cfg NATSConfig) (*NATSTransport, error) {
	wait := cfg.ConnectWait
	if wait <= 0 {
		wait = 5 * time.Second
	}
	nc, err := nats.Connect(cfg.URL,
		nats.Name(cfg.ClientName),
		nats.Timeout(wait),
		nats.MaxReconnects(10),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	t, err := NewNATSTransport(nc, cfg.SubjectPrefix)
	if err != nil {
		nc.Close()
		return nil, err
	}
	t.owned = true
	return t, nil
}

// NewNATSTransport opens a transport on an existing connection.
func NewNATSTransport(nc *nats.Conn, prefix string) (*NATSTransport, error) {
	inbox := nc.NewInbox()
	sub, err := nc.SubscribeSync(inbox)
	if err != nil {
		return nil, fmt.Errorf("subscribe reply inbox: %w", err)
	}
	return &NATSTransport{
		nc:      nc,
		sub:     sub,
		subject: CoordinatorSubject(prefix),
		inbox:   inbox,
	}, nil
}

// Inbox returns the reply subject of this transport.
func (t *NATSTransport) Inbox() string {
	return t.inbox
}

// Send publishes m to the coordinator.
func (t *NATSTransport) Send(_ context.Context, m Message) error {
	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return ErrTransportClosed
	}
	data, err := Encode(m)
	if err != nil {
		return err
	}
	if err := t.nc.PublishMsg(&nats.Msg{Subject: t.subject, Reply: t.inbox, Data: data}); err != nil {
		return fmt.Errorf("publish %s: %w", m.Command, err)
	}
	return nil
}

// Receive waits for the next reply.
func (t *NATSTransport) Receive(ctx context.Context) (Message, error) {
	msg, err := t.sub.NextMsgWithContext(ctx)
	if err != nil {
		if errors.Is(err, nats.ErrBadSubscription) || errors.Is(err, nats.ErrConnectionClosed) {
			return Message{}, ErrTransportClosed
		}
		return Message{}, err
	}
	return Decode(msg.Data)
}

// Close drops the inbox subscription and, when owned, the connection.
func (t *NATSTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()

	err := t.sub.Unsubscribe()
	if t.owned {
		if ferr := t.nc.FlushTimeout(time.Second); ferr != nil && err == nil {
			err = ferr
		}
		t.nc.Close()
	}
	if errors.Is(err, nats.ErrConnectionClosed) {
		return nil
	}
	return err
}

// Pagelist - Page List Journal and Ordered List Materialization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pagelist

package relay

import (
	"context"
	"errors"
	"sync"
)

// ErrTransportClosed is returned by a closed transport.
var ErrTransportClosed = errors.New("relay transport closed")

// Transport carries messages between a session and the coordinator.
type Transport interface {
	Send(ctx context.Context, m Message) error
	Receive(ctx context.Context) (Message, error)
	Close() error
}

// PipeTransport is one end of an in-memory transport pair.
type PipeTransport struct {
	send   chan<- Message
	recv   <-chan Message
	closed chan struct{}
	once   *sync.Once
}

// Pipe returns two connected in-memory transports. Closing either end
// closes both.
func Pipe() (client, server *PipeTransport) {
	a := make(chan Message, 64)
	b := make(chan Message, 64)
	closed := make(chan struct{})
	once := &sync.Once{}
	client = &PipeTransport{send: a, recv: b, closed: closed, once: once}
	server = &PipeTransport{send: b, recv: a, closed: closed, once: once}
	return client, server
}

// Send queues m for the peer.
func (p *PipeTransport) Send(ctx context.Context, m Message) error {
	select {
	case <-p.closed:
		return ErrTransportClosed
	default:
	}
	select {
	case p.send <- m:
		return nil
	case <-p.closed:
		return ErrTransportClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Receive waits for the next message from the peer. Messages queued before
// Close are still delivered.
func (p *PipeTransport) Receive(ctx context.Context) (Message, error) {
	select {
	case m := <-p.recv:
		return m, nil
	default:
	}
	select {
	case m := <-p.recv:
		return m, nil
	case <-p.closed:
		return Message{}, ErrTransportClosed
	case <-ctx.Done():
		return Message{}, ctx.Err()
	}
}

// Close closes both ends.
func (p *PipeTransport) Close() error {
	p.once.Do(func() { close(p.closed) })
	return nil
}

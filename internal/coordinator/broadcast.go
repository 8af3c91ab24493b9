// Pagelist - Page List Journal and Ordered List Materialization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pagelist

package coordinator

import (
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/nats-io/nats.go"

	"github.com/tomtom215/pagelist/internal/logging"
	"github.com/tomtom215/pagelist/internal/relay"
)

// BroadcastConfig configures the NATS wakeup publisher and subscriber.
// Broadcast wakeups travel over core NATS; a scheduler that is not
// connected when a wakeup is sent misses it and falls back to its timer.
type BroadcastConfig struct {
	URL           string
	Name          string
	ReconnectWait time.Duration
	CloseTimeout  time.Duration
}

// WakeSubject is the subject broadcast wakeups are published on.
func WakeSubject(prefix string) string {
	if prefix == "" {
		prefix = relay.DefaultSubjectPrefix
	}
	return prefix + ".wake"
}

func (cfg BroadcastConfig) natsOptions(logger watermill.LoggerAdapter) []nats.Option {
	wait := cfg.ReconnectWait
	if wait <= 0 {
		wait = time.Second
	}
	return []nats.Option{
		nats.Name(cfg.Name),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(wait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Error("Wakeup broadcast disconnected", err, nil)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("Wakeup broadcast reconnected", watermill.LogFields{"url": nc.ConnectedUrl()})
		}),
	}
}

// NewWakePublisher returns a publisher for broadcast wakeups.
func NewWakePublisher(cfg BroadcastConfig) (message.Publisher, error) {
	logger := watermill.NewSlogLogger(logging.NewSlogLogger())
	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         cfg.URL,
		NatsOptions: cfg.natsOptions(logger),
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream:   wmNats.JetStreamConfig{Disabled: true},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create wakeup publisher: %w", err)
	}
	return pub, nil
}

// NewWakeSubscriber returns a subscriber for broadcast wakeups. Every
// subscriber receives every wakeup.
func NewWakeSubscriber(cfg BroadcastConfig) (message.Subscriber, error) {
	closeTimeout := cfg.CloseTimeout
	if closeTimeout <= 0 {
		closeTimeout = 10 * time.Second
	}
	logger := watermill.NewSlogLogger(logging.NewSlogLogger())
	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:              cfg.URL,
		SubscribersCount: 1,
		AckWaitTimeout:   30 * time.Second,
		CloseTimeout:     closeTimeout,
		NatsOptions:      cfg.natsOptions(logger),
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream:        wmNats.JetStreamConfig{Disabled: true},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create wakeup subscriber: %w", err)
	}
	return sub, nil
}

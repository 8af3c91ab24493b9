// Pagelist - Page List Journal and Ordered List Materialization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pagelist

package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/pagelist/internal/logging"
	"github.com/tomtom215/pagelist/internal/metrics"
	"github.com/tomtom215/pagelist/internal/relay"
)

// Dialer opens a transport for one relay session.
type Dialer func(ctx context.Context) (relay.Transport, error)

// RelayServiceConfig tunes the relay loop.
type RelayServiceConfig struct {
	// Interval between relay cycles. Default: 1m
	Interval time.Duration

	Session relay.Config

	// BreakerFailures is the number of consecutive failed cycles that opens
	// the breaker. Default: 3
	BreakerFailures uint32
	// BreakerTimeout is how long the breaker stays open. Default: 5m
	BreakerTimeout time.Duration
	// BreakerMaxRequests is the number of trial cycles while half-open.
	// Default: 1
	BreakerMaxRequests uint32
}

// RelayService drains the journal to the coordinator on an interval.
type RelayService struct {
	dial    Dialer
	journal relay.Drainer
	cfg     RelayServiceConfig
	breaker *gobreaker.CircuitBreaker[relay.Result]
	name    string
}

// NewRelayService creates the service.
func NewRelayService(dial Dialer, j relay.Drainer, cfg RelayServiceConfig) *RelayService {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.Session == (relay.Config{}) {
		cfg.Session = relay.DefaultConfig()
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = 3
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = 5 * time.Minute
	}
	if cfg.BreakerMaxRequests == 0 {
		cfg.BreakerMaxRequests = 1
	}

	s := &RelayService{dial: dial, journal: j, cfg: cfg, name: "journal-relay"}
	s.breaker = gobreaker.NewCircuitBreaker[relay.Result](gobreaker.Settings{
		Name:        s.name,
		MaxRequests: cfg.BreakerMaxRequests,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.RecordBreakerTransition(name, from.String(), to.String())
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("Relay circuit breaker changed state")
		},
	})
	metrics.CircuitBreakerState.WithLabelValues(s.name).Set(metrics.BreakerStateValue("closed"))
	return s
}

// Serve implements suture.Service. The first cycle runs immediately.
func (s *RelayService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	for {
		_, _ = s.Cycle(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Cycle runs one relay session through the circuit breaker.
func (s *RelayService) Cycle(ctx context.Context) (relay.Result, error) {
	res, err := s.breaker.Execute(func() (relay.Result, error) {
		t, err := s.dial(ctx)
		if err != nil {
			return relay.Result{}, fmt.Errorf("dial coordinator: %w", err)
		}
		defer func() { _ = t.Close() }()
		return relay.Cycle(ctx, t, s.journal, s.cfg.Session)
	})

	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.RecordBreakerRequest(s.name, "rejected")
		logging.Debug().Err(err).Msg("Relay cycle skipped")
	case err != nil:
		metrics.RecordBreakerRequest(s.name, "failure")
		if ctx.Err() == nil {
			logging.Warn().Err(err).Msg("Relay cycle failed")
		}
	default:
		metrics.RecordBreakerRequest(s.name, "success")
		if res.Sent > 0 || res.Stopped {
			logging.Info().Str("session", res.Name).Int("sent", res.Sent).Int("acked", res.Acked).
				Int("malformed", res.Malformed).Bool("stopped", res.Stopped).Str("reason", res.Reason).
				Msg("Relay cycle finished")
		}
	}
	return res, err
}

// BreakerState returns the breaker state name.
func (s *RelayService) BreakerState() string {
	return s.breaker.State().String()
}

// String implements fmt.Stringer for suture logs.
func (s *RelayService) String() string {
	return s.name
}

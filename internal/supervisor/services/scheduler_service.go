// Pagelist - Page List Journal and Ordered List Materialization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pagelist

package services

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"golang.org/x/time/rate"

	"github.com/tomtom215/pagelist/internal/lists"
	"github.com/tomtom215/pagelist/internal/logging"
)

// SchedulerRunner is one scheduling pass. Satisfied by *lists.Scheduler.
type SchedulerRunner interface {
	Run(ctx context.Context) (lists.RunResult, error)
}

// WakeSource subscribes to remote wakeups, such as the coordinator's
// watermill topic.
type WakeSource func(ctx context.Context) (<-chan *message.Message, error)

// SchedulerServiceConfig tunes the scheduler loop.
type SchedulerServiceConfig struct {
	// PingRate is the sustained number of wakeup-triggered runs per second.
	PingRate float64
	// PingBurst is the number of wakeups run back to back before PingRate
	// applies.
	PingBurst int
	// ErrorBackoff is the wait after a failed run. Default: 30s
	ErrorBackoff time.Duration
}

// SchedulerService runs the list scheduler until canceled. It sleeps until
// the run's recommended wake time or the next wakeup, whichever comes first.
// Wakeups arriving while one is pending collapse into a single run.
type SchedulerService struct {
	runner  SchedulerRunner
	wakeups WakeSource
	limiter *rate.Limiter
	local   chan string
	backoff time.Duration
	now     func() time.Time
	runs    atomic.Int64
	name    string
}

// NewSchedulerService creates the service. wakeups may be nil.
func NewSchedulerService(runner SchedulerRunner, wakeups WakeSource, cfg SchedulerServiceConfig) *SchedulerService {
	if cfg.PingRate <= 0 {
		cfg.PingRate = 1
	}
	if cfg.PingBurst <= 0 {
		cfg.PingBurst = 1
	}
	if cfg.ErrorBackoff <= 0 {
		cfg.ErrorBackoff = 30 * time.Second
	}
	return &SchedulerService{
		runner:  runner,
		wakeups: wakeups,
		limiter: rate.NewLimiter(rate.Limit(cfg.PingRate), cfg.PingBurst),
		local:   make(chan string, 1),
		backoff: cfg.ErrorBackoff,
		now:     time.Now,
		name:    "list-scheduler",
	}
}

// Wake requests a run. It never blocks; a wakeup already pending absorbs it.
func (s *SchedulerService) Wake(source string) error {
	select {
	case s.local <- source:
	default:
	}
	return nil
}

// Runs returns the number of completed scheduler runs.
func (s *SchedulerService) Runs() int64 {
	return s.runs.Load()
}

// Serve implements suture.Service.
func (s *SchedulerService) Serve(ctx context.Context) error {
	var remote <-chan *message.Message
	if s.wakeups != nil {
		ch, err := s.wakeups(ctx)
		if err != nil {
			return fmt.Errorf("subscribe to wakeups: %w", err)
		}
		remote = ch
	}

	for {
		delay := s.runOnce(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		timer := time.NewTimer(delay)
		var source string
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			continue
		case msg, ok := <-remote:
			timer.Stop()
			if !ok {
				logging.Warn().Msg("Wakeup subscription closed, relying on wake timer")
				remote = nil
				continue
			}
			msg.Ack()
			source = string(msg.Payload)
		case source = <-s.local:
			timer.Stop()
		}

		if err := s.limiter.Wait(ctx); err != nil {
			return ctx.Err()
		}
		remote = s.coalesce(remote)
		logging.Debug().Str("source", source).Msg("Scheduler woken")
	}
}

// coalesce consumes wakeups that queued up while the limiter held the run.
func (s *SchedulerService) coalesce(remote <-chan *message.Message) <-chan *message.Message {
	for {
		select {
		case msg, ok := <-remote:
			if !ok {
				return nil
			}
			msg.Ack()
		case <-s.local:
		default:
			return remote
		}
	}
}

// runOnce performs one pass and returns how long to sleep.
func (s *SchedulerService) runOnce(ctx context.Context) time.Duration {
	res, err := s.runner.Run(ctx)
	s.runs.Add(1)
	if err != nil {
		if ctx.Err() == nil {
			logging.Error().Err(err).Dur("backoff", s.backoff).Msg("Scheduler run failed")
		}
		return s.backoff
	}
	if res.NextWake.IsZero() {
		return s.backoff
	}
	delay := res.NextWake.Sub(s.now())
	if delay < 0 {
		return 0
	}
	return delay
}

// String implements fmt.Stringer for suture logs.
func (s *SchedulerService) String() string {
	return s.name
}

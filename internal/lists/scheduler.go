// Pagelist - Page List Journal and Ordered List Materialization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pagelist

package lists

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/pagelist/internal/logging"
	"github.com/tomtom215/pagelist/internal/queue"
	"github.com/tomtom215/pagelist/internal/store"
)

// WorkQueue is the durable queue the scheduler pulls from.
type WorkQueue interface {
	Enqueue(ctx context.Context, it queue.Item) error
	Pending(ctx context.Context, f queue.Filter) ([]queue.Item, error)
	Claim(ctx context.Context, it queue.Item, holder string, grace time.Duration) (bool, error)
	Release(ctx context.Context, it queue.Item) error
	Remove(ctx context.Context, it queue.Item) error
	NextEligible(ctx context.Context) (at int64, ok bool, err error)
}

// SchedulerConfig tunes one scheduler.
type SchedulerConfig struct {
	// LoopTimeout bounds the incremental phase of a run.
	LoopTimeout time.Duration

	// MaxWakeDelay caps the recommended wake time, measured from run start.
	MaxWakeDelay time.Duration

	// ClaimGrace is the lease taken on each queue item.
	ClaimGrace time.Duration

	// Holder identifies this scheduler in queue leases.
	Holder string
}

// DefaultSchedulerConfig returns the defaults.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		LoopTimeout:  60 * time.Second,
		MaxWakeDelay: 5 * time.Minute,
		ClaimGrace:   5 * time.Minute,
	}
}

// RunResult summarizes one scheduler run.
type RunResult struct {
	// Discovered is the number of new lists swept.
	Discovered int

	// Processed holds the URIs of queue items fully processed, in order.
	Processed []string

	// Reconciled counts (list, page) pairs evaluated; Changed those that
	// modified the index.
	Reconciled int
	Changed    int

	TimedOut bool
	Canceled bool

	// NextWake is the recommended time of the next run.
	NextWake time.Time
}

// DidWork reports whether the run changed anything or consumed the queue.
func (r RunResult) DidWork() bool {
	return r.Discovered > 0 || len(r.Processed) > 0 || r.Changed > 0
}

// Scheduler runs list processing passes for one site.
type Scheduler struct {
	eval  *Evaluator
	queue WorkQueue
	cfg   SchedulerConfig
	now   func() time.Time
}

// NewScheduler creates a scheduler. Zero config fields take defaults.
func NewScheduler(eval *Evaluator, q WorkQueue, cfg SchedulerConfig) *Scheduler {
	def := DefaultSchedulerConfig()
	if cfg.LoopTimeout <= 0 {
		cfg.LoopTimeout = def.LoopTimeout
	}
	if cfg.MaxWakeDelay <= 0 {
		cfg.MaxWakeDelay = def.MaxWakeDelay
	}
	if cfg.ClaimGrace <= 0 {
		cfg.ClaimGrace = def.ClaimGrace
	}
	if cfg.Holder == "" {
		cfg.Holder = "scheduler-" + uuid.NewString()
	}
	return &Scheduler{eval: eval, queue: q, cfg: cfg, now: time.Now}
}

// SetClock replaces the wall clock of the scheduler and its evaluator.
func (s *Scheduler) SetClock(now func() time.Time) {
	s.now = now
	s.eval.SetClock(now)
}

// Evaluator returns the scheduler's evaluator.
func (s *Scheduler) Evaluator() *Evaluator {
	return s.eval
}

// Run performs one scheduling pass: sweep never-evaluated lists, then work
// the queue (fast pass, and the slow pass only when the fast pass found
// nothing), then compute the next wake time. Cancellation and the loop
// timeout are checked between (list, page) pairs. Only setup failures are
// returned as errors.
func (s *Scheduler) Run(ctx context.Context) (RunResult, error) {
	start := s.now()
	ctx = logging.ContextWithNewCorrelationID(ctx)
	ctx = logging.ContextWithSite(ctx, s.eval.site.Root)
	sc := NewSchedulerContext(PriorityUpdated)

	var res RunResult
	defer func() {
		schedulerRunDuration.Observe(time.Since(start).Seconds())
		schedulerRunsTotal.WithLabelValues(runOutcome(res)).Inc()
	}()

	lists, err := s.eval.Lists(ctx)
	if err != nil {
		if ctx.Err() != nil {
			res.Canceled = true
			return res, nil
		}
		return res, fmt.Errorf("load lists: %w", err)
	}

	for _, list := range lists {
		if !list.New() {
			continue
		}
		if ctx.Err() != nil {
			res.Canceled = true
			break
		}
		pages, changed, err := s.eval.Sweep(ctx, sc, list)
		res.Reconciled += pages
		res.Changed += changed
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				res.Canceled = true
				break
			}
			logging.Ctx(ctx).Error().Err(err).Str("list", list.Key).Msg("New list sweep failed")
			continue
		}
		res.Discovered++
		logging.Ctx(ctx).Info().Str("list", list.Key).Int("pages", pages).Int("changed", changed).Msg("New list evaluated")
	}

	if !res.Canceled {
		deadline := s.now().Add(s.cfg.LoopTimeout)
		worked, err := s.pass(ctx, sc, lists, queue.Filter{MaxPriority: int(SlowThreshold)}, deadline, &res)
		if err != nil {
			return res, err
		}
		if !worked && !res.Canceled && !res.TimedOut {
			if _, err := s.pass(ctx, sc, lists, queue.Filter{MinPriority: SlowThreshold}, deadline, &res); err != nil {
				return res, err
			}
		}
	}

	res.NextWake = s.nextWake(ctx, start, res)
	logging.Ctx(ctx).Debug().
		Int("discovered", res.Discovered).
		Int("processed", len(res.Processed)).
		Int("changed", res.Changed).
		Bool("timed_out", res.TimedOut).
		Time("next_wake", res.NextWake).
		Msg("Scheduler run finished")
	return res, nil
}

// pass works eligible queue items matching f. worked is true when at least
// one item was fully processed.
func (s *Scheduler) pass(ctx context.Context, sc *SchedulerContext, lists []ListDefinition, f queue.Filter, deadline time.Time, res *RunResult) (worked bool, err error) {
	items, err := s.queue.Pending(ctx, f)
	if err != nil {
		if ctx.Err() != nil {
			res.Canceled = true
			return false, nil
		}
		return false, fmt.Errorf("read queue: %w", err)
	}

	for _, it := range items {
		if s.stop(ctx, deadline, res) {
			return worked, nil
		}

		path, ok := s.eval.site.Path(it.URI)
		if !ok {
			logging.Ctx(ctx).Warn().Str("uri", it.URI).Msg("Queue item belongs to another site, dropping")
			if err := s.queue.Remove(ctx, it); err != nil {
				logging.Ctx(ctx).Error().Err(err).Str("uri", it.URI).Msg("Failed to drop queue item")
			}
			continue
		}

		claimed, err := s.queue.Claim(ctx, it, s.cfg.Holder, s.cfg.ClaimGrace)
		if err != nil {
			logging.Ctx(ctx).Error().Err(err).Str("uri", it.URI).Msg("Failed to claim queue item")
			continue
		}
		if !claimed {
			continue
		}

		if s.workItem(ctx, sc, lists, path, deadline, res) {
			if err := s.queue.Remove(ctx, it); err != nil {
				logging.Ctx(ctx).Error().Err(err).Str("uri", it.URI).Msg("Failed to remove processed queue item")
			}
			res.Processed = append(res.Processed, it.URI)
			schedulerItemsTotal.Inc()
			worked = true
			continue
		}

		// Interrupted between lists: hand the item back for the next run.
		if err := s.queue.Release(context.WithoutCancel(ctx), it); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("uri", it.URI).Msg("Failed to release queue item")
		}
		return worked, nil
	}
	return worked, nil
}

// workItem reconciles path against every list. It returns false when
// stopped before the last list.
func (s *Scheduler) workItem(ctx context.Context, sc *SchedulerContext, lists []ListDefinition, path string, deadline time.Time, res *RunResult) bool {
	for i, list := range lists {
		if i > 0 && s.stop(ctx, deadline, res) {
			return false
		}
		if list.Path == path {
			s.eval.cache.Invalidate(list.Key)
		}
		if s.eval.Reconcile(ctx, sc, list, path) {
			res.Changed++
		}
		res.Reconciled++
	}
	return true
}

func (s *Scheduler) stop(ctx context.Context, deadline time.Time, res *RunResult) bool {
	if ctx.Err() != nil {
		res.Canceled = true
		return true
	}
	if s.now().After(deadline) {
		res.TimedOut = true
		return true
	}
	return false
}

// nextWake returns the earliest eligible queue time clamped to
// start+MaxWakeDelay, or now when this run did work or that time has passed.
func (s *Scheduler) nextWake(ctx context.Context, start time.Time, res RunResult) time.Time {
	now := s.now()
	wake := start.Add(s.cfg.MaxWakeDelay)
	at, ok, err := s.queue.NextEligible(context.WithoutCancel(ctx))
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("Failed to read next eligible queue time")
	} else if ok {
		if t := time.UnixMicro(at); t.Before(wake) {
			wake = t
		}
	}
	if res.DidWork() || res.TimedOut || !wake.After(now) {
		return now
	}
	return wake
}

func runOutcome(res RunResult) string {
	switch {
	case res.Canceled:
		return "canceled"
	case res.TimedOut:
		return "timeout"
	case res.DidWork():
		return "worked"
	default:
		return "idle"
	}
}

// ProcessPage reconciles path against every list immediately, bypassing the
// queue. It returns the number of lists whose index changed.
func (s *Scheduler) ProcessPage(ctx context.Context, path string) (int, error) {
	sc := NewSchedulerContext(PriorityUpdated)
	restore := sc.OverridePriority(PriorityNow)
	defer restore()

	lists, err := s.eval.Lists(ctx)
	if err != nil {
		return 0, fmt.Errorf("load lists: %w", err)
	}
	changed := 0
	for _, list := range lists {
		if err := ctx.Err(); err != nil {
			return changed, err
		}
		if list.Path == store.CleanPath(path) {
			s.eval.cache.Invalidate(list.Key)
		}
		if s.eval.Reconcile(ctx, sc, list, path) {
			changed++
		}
	}
	return changed, nil
}

// ResetAll drops the compiled script cache and marks every list as never
// evaluated, so the next run sweeps them all again.
func (s *Scheduler) ResetAll(ctx context.Context) (int, error) {
	s.eval.cache.Reset()
	lists, err := s.eval.Lists(ctx)
	if err != nil {
		return 0, fmt.Errorf("load lists: %w", err)
	}
	for _, list := range lists {
		if err := s.eval.store.SetField(ctx, store.Branch, list.Path, FieldLastUpdated, "0"); err != nil {
			return 0, fmt.Errorf("reset %s: %w", list.Key, err)
		}
	}
	logging.Ctx(ctx).Info().Int("lists", len(lists)).Msg("All lists reset")
	return len(lists), nil
}

// RequeueAll enqueues every page of the site at review priority.
func (s *Scheduler) RequeueAll(ctx context.Context) (int, error) {
	sc := NewSchedulerContext(PriorityReview)
	pages, err := s.eval.store.AllPages(ctx)
	if err != nil {
		return 0, fmt.Errorf("list pages: %w", err)
	}
	notBefore := sc.KeyStartDate(s.now())
	for i, p := range pages {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		it := queue.Item{URI: s.eval.site.Key(p), Priority: sc.Priority(), NotBefore: notBefore}
		if err := s.queue.Enqueue(ctx, it); err != nil {
			return i, fmt.Errorf("enqueue %s: %w", p, err)
		}
	}
	return len(pages), nil
}

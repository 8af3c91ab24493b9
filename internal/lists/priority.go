// Pagelist - Page List Journal and Ordered List Materialization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pagelist

package lists

import (
	"sync"
	"time"
)

// Priority classes. Lower numbers are more urgent.
const (
	PriorityNow     uint8 = 0
	PriorityCreated uint8 = 10
	PriorityReset   uint8 = 15
	PriorityImport  uint8 = 20
	PriorityUpdated uint8 = 50
	PrioritySlow    uint8 = 200
	PriorityReview  uint8 = 235

	// SlowThreshold splits the fast and slow scheduler passes.
	SlowThreshold = PrioritySlow
)

// SchedulerContext carries the priority and start date offset applied to
// work queued by one call chain. Overrides are scoped: each returns a func
// restoring the previous value.
//
//	restore := sc.OverridePriority(lists.PriorityNow)
//	defer restore()
type SchedulerContext struct {
	mu              sync.Mutex
	priority        uint8
	startDateOffset time.Duration
}

// NewSchedulerContext starts at priority p with no offset.
func NewSchedulerContext(p uint8) *SchedulerContext {
	return &SchedulerContext{priority: p}
}

// Priority returns the current priority.
func (c *SchedulerContext) Priority() uint8 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.priority
}

// StartDateOffset returns the current not-before offset.
func (c *SchedulerContext) StartDateOffset() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.startDateOffset
}

// OverridePriority sets p until the returned func is called.
func (c *SchedulerContext) OverridePriority(p uint8) (restore func()) {
	c.mu.Lock()
	prev := c.priority
	c.priority = p
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		c.priority = prev
		c.mu.Unlock()
	}
}

// OverrideStartDateOffset sets d until the returned func is called.
func (c *SchedulerContext) OverrideStartDateOffset(d time.Duration) (restore func()) {
	c.mu.Lock()
	prev := c.startDateOffset
	c.startDateOffset = d
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		c.startDateOffset = prev
		c.mu.Unlock()
	}
}

// KeyStartDate returns now plus the offset in microseconds.
func (c *SchedulerContext) KeyStartDate(now time.Time) int64 {
	return now.Add(c.StartDateOffset()).UnixMicro()
}

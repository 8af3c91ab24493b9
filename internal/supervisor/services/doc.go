// Pagelist - Page List Journal and Ordered List Materialization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pagelist

/*
Package services provides suture.Service wrappers for pagelist components.

Each wrapper translates a component's lifecycle (a run loop, Start and
Shutdown, a listener) into suture's Serve(ctx) pattern and names itself
through fmt.Stringer for supervisor logs.

# Available Services

SchedulerService runs the list scheduler, sleeping until the recommended
next wake time unless a wakeup arrives first. Wakeups come from the
in-process coordinator's watermill topic, a remote coordinator's NATS
broadcast, or Wake, and are coalesced by a golang.org/x/time/rate limiter.

RelayService drains the local journal to the coordinator on an interval.
Every cycle runs through a sony/gobreaker circuit breaker so an unreachable
coordinator is not redialed on every tick.

CoordinatorService starts the NATS work coordinator and shuts it down,
telling open relay sessions SHUTTING_DOWN, when the tree stops.

StoreGCService runs Badger value log GC on an interval and publishes the
store size gauges.

HTTPServerService binds the API address and serves *http.Server on it, with
graceful shutdown.
*/
package services

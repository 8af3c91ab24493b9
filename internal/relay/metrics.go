// Pagelist - Page List Journal and Ordered List Materialization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pagelist

package relay

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	relaySessionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pagelist_relay_sessions_total",
		Help: "Total number of relay sessions by outcome",
	}, []string{"outcome"})

	relayWorkSentTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pagelist_relay_work_sent_total",
		Help: "Total number of WORK messages sent",
	})

	relayWorkAckedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pagelist_relay_work_acked_total",
		Help: "Total number of WORK messages acknowledged",
	})

	relayAckTimeoutsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pagelist_relay_ack_timeouts_total",
		Help: "Total number of acknowledgement timeouts",
	})

	relayPingsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pagelist_relay_pings_total",
		Help: "Total number of PING messages sent",
	})

	// relayDuration measures full session latency.
	relayDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pagelist_relay_session_duration_seconds",
		Help:    "Relay session duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
	})
)

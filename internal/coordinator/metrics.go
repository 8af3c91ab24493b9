// Pagelist - Page List Journal and Ordered List Materialization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pagelist

package coordinator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	coordinatorMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pagelist_coordinator_messages_total",
		Help: "Total number of inbound relay messages by command",
	}, []string{"command"})

	coordinatorWorkTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pagelist_coordinator_work_total",
		Help: "Total number of WORK messages by result",
	}, []string{"result"})

	coordinatorSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pagelist_coordinator_sessions",
		Help: "Current number of registered relay sessions",
	})

	coordinatorWakeupsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pagelist_coordinator_wakeups_total",
		Help: "Total number of scheduler wakeups published",
	})
)

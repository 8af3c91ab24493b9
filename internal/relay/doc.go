// Pagelist - Page List Journal and Ordered List Materialization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pagelist

// Package relay drains the local journal into the remote coordinator.
//
// One Session performs one drain cycle over a Transport:
//
//	REGISTER ──► READY ──► COMMANDS
//	WORK(id=1) ──► WORK_ACK(id=1)   tombstone entry 1
//	WORK(id=2) ──► WORK_ACK(id=2)   tombstone entry 2
//	...
//	UNREGISTER
//
// An entry is only tombstoned after its acknowledgement arrives, so a
// session that stops early (timeout, WORK_FAILED, STOP, SHUTTING_DOWN)
// leaves the remaining entries in place for the next cycle. Delivery is
// at-least-once; reprocessing an entry is harmless because reconciliation is
// idempotent.
//
// The state machine lives in Session.HandleMessage and can be driven with
// synthetic messages, without any transport.
package relay

// Pagelist - Page List Journal and Ordered List Materialization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pagelist

// Package logging provides the zerolog-based structured logger shared by every
// pagelist component.
//
// Journal appends, relay sessions, reconciliations and scheduler passes all log
// through the same global logger so that one drain cycle or one scheduling pass
// can be followed end to end with a single correlation id.
//
// # Quick Start
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//
//	logging.Info().Str("uri", uri).Msg("Journal entry appended")
//	logging.Error().Err(err).Str("list", listKey).Msg("Reconciliation failed")
//
//	ctx = logging.ContextWithNewCorrelationID(ctx)
//	logging.Ctx(ctx).Info().Msg("Relay session started")
//
// # Configuration
//
//	LOG_LEVEL   - trace, debug, info, warn, error (default: info)
//	LOG_FORMAT  - json, console (default: json)
//	LOG_CALLER  - include caller file:line (default: false)
//
// Always terminate log chains with .Msg() or .Send(); an unterminated event is
// never written.
//
// # Suture integration
//
// The supervisor tree expects an *slog.Logger. NewSlogLogger returns one backed
// by the global zerolog logger so supervisor events land in the same stream.
package logging

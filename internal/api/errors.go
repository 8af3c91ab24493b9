// Pagelist - Page List Journal and Ordered List Materialization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pagelist

package api

import "errors"

// Common API errors
var (
	// ErrNotAList indicates the requested page exists but is not a list
	ErrNotAList = errors.New("page is not a list")

	// ErrNoWaker indicates pings are not wired in this process
	ErrNoWaker = errors.New("scheduler wakeups are not available")
)

// Error codes returned in APIError.Code.
const (
	CodeNotFound    = "NOT_FOUND"
	CodeInvalid     = "VALIDATION_ERROR"
	CodeStore       = "STORE_ERROR"
	CodeUnavailable = "UNAVAILABLE"
	CodeRateLimited = "RATE_LIMITED"
)

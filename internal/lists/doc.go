// Pagelist - Page List Journal and Ordered List Materialization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pagelist

// Package lists keeps ordered page lists up to date.
//
// A list is a page linked to the list taxonomy type. It carries a selector
// naming its candidate pages, a check script deciding membership and a key
// script computing each member's sort key. The Evaluator reconciles one
// (list, page) pair against the ordered index; the Scheduler decides which
// pairs to reconcile next from the durable queue.
//
// Sort keys stored in the index are the key script result followed by "#"
// and the page key, so two pages computing the same script result still get
// distinct index entries.
package lists

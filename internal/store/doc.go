// Pagelist - Page List Journal and Ordered List Materialization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pagelist

// Package store is the BadgerDB-backed page store: pages, their branch and
// revision scoped fields, named links between pages, and the per-list ordered
// index that the paging layer reads.
//
// # Key layout
//
//	p/<path>                         page record (JSON)
//	f/b/<path>\x00<field>            branch-scoped field
//	f/r/<path>\x00<field>            revision-scoped field
//	l/<name>\x00<src>\x00<dst>       link
//	lr/<name>\x00<dst>\x00<src>      reverse link
//	oi/<list>\x00<sort key>          ordered index entry -> page key
//
// Paths are site-relative without leading or trailing slashes. Ordered index
// entries sort by the raw bytes of the sort key.
//
// The same database also hosts the list-processing queue (package queue),
// which shares it through DB.
package store

// Pagelist - Page List Journal and Ordered List Materialization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pagelist

// Package script compiles and runs the small expressions that decide list
// membership and sort keys.
//
// Expressions are evaluated with govaluate. Every program sees the same fixed
// set of variables (see Env) and helper functions:
//
//	has_prefix(s, p)   has_suffix(s, p)   lower(s)   upper(s)
//	segment(path, n)   depth(path)        parent(path)
//	pad(v, width)      date(us[, layout])
//
// A list's check script must produce a boolean; its key script produces the
// sort key. Examples:
//
//	has_prefix(path, 'blog/') && depth(path) == 4
//	date(created) + '/' + title
//
// Broken scripts never fail a run: Cache substitutes a safe default program
// and logs the problem.
package script

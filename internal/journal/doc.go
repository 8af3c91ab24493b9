// Pagelist - Page List Journal and Ordered List Materialization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pagelist

// Package journal implements the local, crash-durable append-only journal of
// "page changed" notifications.
//
// # File layout
//
// The journal is partitioned by hour of day into at most 24 files named
// journal-HH.msg. Each entry is one text line:
//
//	priority=20;key_start_date=1704067200000000;uri=https://example.com/blog/2024/01/entry
//
// Fields may appear in any order and unknown fields are ignored. A line missing
// any of the three required fields is treated as garbage and consumed.
//
// # Concurrency
//
// Appenders and the drain cycle share an exclusive advisory lock (flock) on the
// file itself. Appenders hold it for the seek-and-write; the drain holds it only
// long enough to learn the file size. Bytes below that size never change except
// through tombstoning, so the snapshot can be parsed without the lock.
//
// # Tombstones
//
// A consumed entry is overwritten in place with newline bytes over exactly its
// original span. Offsets of later entries never move, so other readers that
// hold the file open stay consistent. A file is unlinked once every entry in it
// is consumed, unless its hour is one of the two hot hours (current and
// previous) that an appender may still be writing to.
//
// # Usage
//
//	store, err := journal.Open(journal.Config{Dir: "/var/lib/pagelist/journal"})
//	store.Append(ctx, journal.Entry{URI: uri, Priority: 10, KeyStartDate: time.Now().UnixMicro()})
//
//	stats, err := store.Drain(ctx, func(ctx context.Context, rec journal.Record) error {
//	    return relay(ctx, rec.Entry) // nil tombstones the entry
//	})
package journal

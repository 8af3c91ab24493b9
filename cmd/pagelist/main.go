// Pagelist - Page List Journal and Ordered List Materialization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pagelist

// Command pagelist maintains ordered page lists for a site.
//
// Page writes append to an hour-partitioned journal on the writing host. A
// relay drains that journal over NATS to the work coordinator, which queues
// each page in the Badger-backed work queue. The list scheduler works the
// queue, re-evaluating every list's check and sort key scripts against the
// changed pages and keeping each list's ordered index current. The HTTP
// server reads paged windows out of those indexes.
//
// # Commands
//
//	pagelist serve                 run coordinator, relay, scheduler and HTTP under suture
//	pagelist page put PATH         store a page and journal it
//	pagelist list put PATH         store a list page
//	pagelist journal append URI    journal a page key directly
//	pagelist journal status        show the hour files
//	pagelist drain                 relay the journal to the coordinator once
//	pagelist run                   one scheduler pass
//	pagelist process PATH          reconcile one page against every list now
//	pagelist reset                 mark every list for a full re-sweep
//	pagelist requeue               queue every page for review
//	pagelist queue                 show pending queue items
//	pagelist show PATH             print a window of a list
//
// # Configuration
//
// Configuration is loaded via koanf v2 (highest priority wins):
//   - Environment variables (PAGELIST_SECTION_FIELD, plus the short aliases
//     such as SITE_ROOT and NATS_URL)
//   - Config file (--config, $CONFIG_PATH, ./pagelist.yaml or the XDG config dir)
//   - Built-in defaults
//
// # Signal Handling
//
// serve shuts down on SIGINT and SIGTERM: relay sessions are told
// SHUTTING_DOWN, in-flight HTTP requests drain, and the store is closed.
package main

import (
	"os"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

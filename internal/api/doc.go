// Pagelist - Page List Journal and Ordered List Materialization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pagelist

/*
Package api provides the read-only HTTP query surface for materialized lists.

Routes:

	GET  /lists/{path...}   one window of a list with navigation links
	POST /ping              wake the scheduler
	GET  /healthz           store health
	GET  /metrics           Prometheus metrics (when enabled)

The list window honors the paging query parameter of the list, for example
/lists/blog/index?page-blog=p2,s10 selects the second page of ten items.
An unnamed list uses the plain "page" parameter.

Middleware stack, outermost first: request id and correlation logging, real
IP, panic recovery, CORS (go-chi/cors), rate limiting (go-chi/httprate) and
Prometheus request metrics.
*/
package api

// Pagelist - Page List Journal and Ordered List Materialization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pagelist

/*
Package supervisor runs the long-lived pagelist services under a suture v4
supervisor tree.

The tree has three layers (see Layer), each its own supervisor, so a failure
in one layer restarts only that layer's services:

  - LayerData: store value log GC and the list scheduler
  - LayerMessaging: the work coordinator and the journal relay
  - LayerAPI: the HTTP list window server

Supervisor events are logged through sutureslog onto the zerolog-backed slog
logger, and restarts are counted in pagelist_service_restarts_total.

The service wrappers themselves live in the services subpackage.
*/
package supervisor

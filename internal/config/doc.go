// Pagelist - Page List Journal and Ordered List Materialization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pagelist

// Package config loads pagelist configuration with Koanf v2.
//
// Sources are layered, later ones win:
//
//  1. Built-in defaults (see defaultConfig)
//  2. Optional YAML file: $CONFIG_PATH, ./pagelist.yaml, or
//     $XDG_CONFIG_HOME/pagelist/config.yaml
//  3. Environment variables, mapped explicitly (see envMappings)
//
// Example file:
//
//	site:
//	  root: https://example.com/
//	journal:
//	  dir: /var/lib/pagelist/journal
//	coordinator:
//	  url: nats://broker:4222
//	  embedded_server: false
//	http:
//	  port: 8787
//
// Default data directories live under the XDG data home, so a
// non-root user gets a working setup with no configuration at all.
//
// Load validates the result with go-playground/validator struct tags plus a
// few cross-field checks.
package config

// Pagelist - Page List Journal and Ordered List Materialization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pagelist

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// AppName names the XDG subdirectories.
const AppName = "pagelist"

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// DataDir returns the default data directory.
func DataDir() string {
	xdg.Reload()
	dataHome := xdg.DataHome
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(os.TempDir(), AppName)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, AppName)
}

// DefaultConfigPaths lists config files searched in order.
func DefaultConfigPaths() []string {
	return []string{
		"pagelist.yaml",
		"pagelist.yml",
		filepath.Join(xdg.ConfigHome, AppName, "config.yaml"),
		"/etc/pagelist/config.yaml",
	}
}

// defaultConfig returns the built-in defaults.
func defaultConfig() *Config {
	data := DataDir()
	return &Config{
		Site: SiteConfig{
			Root: "http://localhost/",
		},
		Journal: JournalConfig{
			Dir:      filepath.Join(data, "journal"),
			FileMode: "0644",
			UID:      -1,
			GID:      -1,
		},
		Relay: RelayConfig{
			Enabled:            true,
			Interval:           time.Minute,
			ReadyTimeout:       60 * time.Second,
			AckTimeout:         60 * time.Second,
			BreakerFailures:    5,
			BreakerTimeout:     30 * time.Second,
			BreakerMaxRequests: 1,
		},
		Coordinator: CoordinatorConfig{
			Enabled:        true,
			URL:            "nats://127.0.0.1:4222",
			SubjectPrefix:  "pagelist",
			EmbeddedServer: true,
			Host:           "127.0.0.1",
			Port:           4222,
		},
		Store: StoreConfig{
			Path:       filepath.Join(data, "store"),
			SyncWrites: true,
			GCInterval: 10 * time.Minute,
			GCRatio:    0.5,
		},
		Scheduler: SchedulerConfig{
			LoopTimeout:  60 * time.Second,
			MaxWakeDelay: 5 * time.Minute,
			ClaimGrace:   5 * time.Minute,
			PingRate:     1,
			PingBurst:    1,
		},
		Paging: PagingConfig{
			DefaultPageSize: 20,
			MaxPageSize:     1000,
		},
		HTTP: HTTPConfig{
			Enabled:         true,
			Host:            "127.0.0.1",
			Port:            8787,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Default returns validated defaults without reading files or env.
func Default() *Config {
	return defaultConfig()
}

// Load reads configuration from defaults, the optional file and env vars.
// path, when non-empty, names the file explicitly and must exist.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path == "" {
		path = findConfigFile()
	} else if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, p := range DefaultConfigPaths() {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// sliceConfigPaths are parsed from comma-separated env values.
var sliceConfigPaths = []string{
	"http.cors_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variables to koanf paths. Variables not
// listed here fall through to the PAGELIST_ prefix rule in envTransformFunc.
var envMappings = map[string]string{
	"site_root": "site.root",

	"journal_dir":       "journal.dir",
	"journal_file_mode": "journal.file_mode",
	"journal_uid":       "journal.uid",
	"journal_gid":       "journal.gid",

	"relay_enabled":       "relay.enabled",
	"relay_interval":      "relay.interval",
	"relay_ready_timeout": "relay.ready_timeout",
	"relay_ack_timeout":   "relay.ack_timeout",

	"nats_url":            "coordinator.url",
	"nats_subject_prefix": "coordinator.subject_prefix",
	"nats_embedded":       "coordinator.embedded_server",
	"nats_host":           "coordinator.host",
	"nats_port":           "coordinator.port",
	"coordinator_enabled": "coordinator.enabled",
	"nats_broadcast_wake": "coordinator.broadcast_wakeups",

	"store_path":        "store.path",
	"store_sync_writes": "store.sync_writes",
	"store_gc_interval": "store.gc_interval",

	"scheduler_loop_timeout":   "scheduler.loop_timeout",
	"scheduler_max_wake_delay": "scheduler.max_wake_delay",
	"scheduler_claim_grace":    "scheduler.claim_grace",
	"scheduler_remote_wakeups": "scheduler.remote_wakeups",

	"paging_default_page_size": "paging.default_page_size",
	"paging_max_page_size":     "paging.max_page_size",

	"http_enabled":      "http.enabled",
	"http_host":         "http.host",
	"http_port":         "http.port",
	"rate_limit_reqs":   "http.rate_limit_requests",
	"rate_limit_window": "http.rate_limit_window",
	"cors_origins":      "http.cors_origins",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	"metrics_enabled": "metrics.enabled",
	"metrics_path":    "metrics.path",
}

// envTransformFunc maps an environment variable name to a koanf path.
//
// Examples:
//   - SITE_ROOT -> site.root
//   - NATS_URL -> coordinator.url
//   - PAGELIST_SCHEDULER_PING_RATE -> scheduler.ping_rate
//
// Unknown variables map to "" and are ignored.
func envTransformFunc(key string) string {
	key = strings.ToLower(key)
	if path, ok := envMappings[key]; ok {
		return path
	}
	if rest, ok := strings.CutPrefix(key, "pagelist_"); ok {
		section, field, found := strings.Cut(rest, "_")
		if found {
			return section + "." + field
		}
	}
	return ""
}

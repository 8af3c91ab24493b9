// Pagelist - Page List Journal and Ordered List Materialization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pagelist

package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"
)

// Config is the full pagelist configuration.
type Config struct {
	Site        SiteConfig        `koanf:"site"`
	Journal     JournalConfig     `koanf:"journal"`
	Relay       RelayConfig       `koanf:"relay"`
	Coordinator CoordinatorConfig `koanf:"coordinator"`
	Store       StoreConfig       `koanf:"store"`
	Scheduler   SchedulerConfig   `koanf:"scheduler"`
	Paging      PagingConfig      `koanf:"paging"`
	HTTP        HTTPConfig        `koanf:"http"`
	Logging     LoggingConfig     `koanf:"logging"`
	Metrics     MetricsConfig     `koanf:"metrics"`
}

// SiteConfig identifies the site whose pages are managed.
type SiteConfig struct {
	// Root is the site URL every page key starts with.
	Root string `koanf:"root" validate:"required,url"`
}

// JournalConfig configures the local journal directory.
type JournalConfig struct {
	Dir string `koanf:"dir" validate:"required"`
	// FileMode is an octal permission string applied after each append.
	FileMode string `koanf:"file_mode" validate:"omitempty,octalmode"`
	// UID and GID are applied with chown when UID >= 0.
	UID int `koanf:"uid" validate:"gte=-1"`
	GID int `koanf:"gid" validate:"gte=-1"`
}

// Mode parses FileMode. An empty string yields zero (no chmod).
func (j JournalConfig) Mode() os.FileMode {
	if j.FileMode == "" {
		return 0
	}
	v, err := strconv.ParseUint(j.FileMode, 8, 32)
	if err != nil {
		return 0
	}
	return os.FileMode(v)
}

// RelayConfig configures the journal relay.
type RelayConfig struct {
	Enabled      bool          `koanf:"enabled"`
	Interval     time.Duration `koanf:"interval" validate:"gt=0"`
	ReadyTimeout time.Duration `koanf:"ready_timeout" validate:"gt=0"`
	AckTimeout   time.Duration `koanf:"ack_timeout" validate:"gt=0"`

	// Circuit breaker around relay sessions.
	BreakerFailures    uint32        `koanf:"breaker_failures" validate:"gte=1"`
	BreakerTimeout     time.Duration `koanf:"breaker_timeout" validate:"gt=0"`
	BreakerMaxRequests uint32        `koanf:"breaker_max_requests" validate:"gte=1"`
}

// CoordinatorConfig configures the broker connection and the coordinator.
type CoordinatorConfig struct {
	Enabled        bool   `koanf:"enabled"`
	URL            string `koanf:"url" validate:"omitempty,url"`
	SubjectPrefix  string `koanf:"subject_prefix" validate:"required"`
	EmbeddedServer bool   `koanf:"embedded_server"`
	Host           string `koanf:"host" validate:"omitempty,hostname|ip"`
	Port           int    `koanf:"port" validate:"gte=-1,lte=65535"`
	// BroadcastWakeups publishes scheduler wakeups on <subject_prefix>.wake
	// for schedulers in other processes.
	BroadcastWakeups bool `koanf:"broadcast_wakeups"`
}

// StoreConfig configures the badger database.
type StoreConfig struct {
	Path       string        `koanf:"path" validate:"required"`
	SyncWrites bool          `koanf:"sync_writes"`
	GCInterval time.Duration `koanf:"gc_interval" validate:"gte=0"`
	GCRatio    float64       `koanf:"gc_ratio" validate:"gt=0,lt=1"`
}

// SchedulerConfig configures list processing.
type SchedulerConfig struct {
	LoopTimeout  time.Duration `koanf:"loop_timeout" validate:"gt=0"`
	MaxWakeDelay time.Duration `koanf:"max_wake_delay" validate:"gt=0"`
	ClaimGrace   time.Duration `koanf:"claim_grace" validate:"gt=0"`
	// PingRate limits how often pings trigger an extra run, per second.
	PingRate  float64 `koanf:"ping_rate" validate:"gt=0"`
	PingBurst int     `koanf:"ping_burst" validate:"gte=1"`
	// RemoteWakeups subscribes to a remote coordinator's broadcast wakeups
	// when this process does not run the coordinator.
	RemoteWakeups bool `koanf:"remote_wakeups"`
}

// PagingConfig configures the query layer.
type PagingConfig struct {
	DefaultPageSize int `koanf:"default_page_size" validate:"gte=1"`
	MaxPageSize     int `koanf:"max_page_size" validate:"gte=1,lte=10000"`
}

// HTTPConfig configures the HTTP query surface.
type HTTPConfig struct {
	Enabled         bool          `koanf:"enabled"`
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"gte=1,lte=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gt=0"`
	RateLimitReqs   int           `koanf:"rate_limit_requests" validate:"gte=0"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window" validate:"gt=0"`
	CORSOrigins     []string      `koanf:"cors_origins"`
}

// Addr returns host:port.
func (h HTTPConfig) Addr() string {
	return net.JoinHostPort(h.Host, strconv.Itoa(h.Port))
}

// LoggingConfig configures zerolog.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error fatal disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path" validate:"startswith=/"`
}

// String summarizes the config for startup logs.
func (c *Config) String() string {
	return fmt.Sprintf("site=%s journal=%s store=%s coordinator=%s", c.Site.Root, c.Journal.Dir, c.Store.Path, c.Coordinator.URL)
}

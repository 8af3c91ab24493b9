// Pagelist - Page List Journal and Ordered List Materialization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pagelist

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// isolate points every config source at an empty temp directory.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv(ConfigPathEnvVar, "")
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	dir := isolate(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if want := filepath.Join(dir, "data", AppName, "journal"); cfg.Journal.Dir != want {
		t.Errorf("Journal.Dir = %q, want %q", cfg.Journal.Dir, want)
	}
	if cfg.Journal.Mode() != 0o644 {
		t.Errorf("Journal.Mode() = %o, want 644", cfg.Journal.Mode())
	}
	if cfg.Relay.AckTimeout != 60*time.Second {
		t.Errorf("Relay.AckTimeout = %s", cfg.Relay.AckTimeout)
	}
	if cfg.Scheduler.LoopTimeout != 60*time.Second || cfg.Scheduler.MaxWakeDelay != 5*time.Minute {
		t.Errorf("Scheduler = %+v", cfg.Scheduler)
	}
	if cfg.HTTP.Addr() != "127.0.0.1:8787" {
		t.Errorf("HTTP.Addr() = %q", cfg.HTTP.Addr())
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.yaml")
	yaml := `
site:
  root: https://example.com/
journal:
  dir: /srv/journal
  file_mode: "0600"
scheduler:
  loop_timeout: 30s
http:
  port: 9000
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("HTTP_PORT", "9100")
	t.Setenv("NATS_URL", "nats://broker:4222")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("PAGELIST_SCHEDULER_PING_RATE", "2.5")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	tests := []struct {
		name string
		got  interface{}
		want interface{}
	}{
		{"site root from file", cfg.Site.Root, "https://example.com/"},
		{"journal dir from file", cfg.Journal.Dir, "/srv/journal"},
		{"journal mode from file", cfg.Journal.Mode(), os.FileMode(0o600)},
		{"loop timeout from file", cfg.Scheduler.LoopTimeout, 30 * time.Second},
		{"port from env beats file", cfg.HTTP.Port, 9100},
		{"nats url from env", cfg.Coordinator.URL, "nats://broker:4222"},
		{"ping rate from prefixed env", cfg.Scheduler.PingRate, 2.5},
		{"cors origins split", strings.Join(cfg.HTTP.CORSOrigins, "|"), "https://a.example|https://b.example"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	isolate(t)
	if _, err := Load("/nonexistent/pagelist.yaml"); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level must be one of"},
		{"missing site root", func(c *Config) { c.Site.Root = "" }, "site.root is required"},
		{"bad file mode", func(c *Config) { c.Journal.FileMode = "rw-r--r--" }, "octal file mode"},
		{"wildcard subject", func(c *Config) { c.Coordinator.SubjectPrefix = "a.>" }, "wildcards"},
		{"external broker without url", func(c *Config) {
			c.Coordinator.EmbeddedServer = false
			c.Coordinator.URL = ""
		}, "coordinator.url is required"},
		{"page size over max", func(c *Config) { c.Paging.DefaultPageSize = 5000 }, "exceeds"},
		{"wake delay under loop timeout", func(c *Config) { c.Scheduler.MaxWakeDelay = time.Second }, "max_wake_delay"},
		{"zero ack timeout", func(c *Config) { c.Relay.AckTimeout = 0 }, "relay.acktimeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestEnvTransformFunc(t *testing.T) {
	t.Parallel()
	tests := map[string]string{
		"SITE_ROOT":                   "site.root",
		"LOG_LEVEL":                   "logging.level",
		"NATS_EMBEDDED":               "coordinator.embedded_server",
		"PAGELIST_STORE_GC_RATIO":     "store.gc_ratio",
		"PAGELIST_NOUNDERSCORE":       "",
		"HOME":                        "",
		"PATH":                        "",
		"PAGELIST_HTTP_WRITE_TIMEOUT": "http.write_timeout",
	}
	for in, want := range tests {
		if got := envTransformFunc(in); got != want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", in, got, want)
		}
	}
}

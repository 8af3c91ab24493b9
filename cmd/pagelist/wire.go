// Pagelist - Page List Journal and Ordered List Materialization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pagelist

package main

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/tomtom215/pagelist/internal/api"
	"github.com/tomtom215/pagelist/internal/config"
	"github.com/tomtom215/pagelist/internal/coordinator"
	"github.com/tomtom215/pagelist/internal/journal"
	"github.com/tomtom215/pagelist/internal/lists"
	"github.com/tomtom215/pagelist/internal/logging"
	"github.com/tomtom215/pagelist/internal/queue"
	"github.com/tomtom215/pagelist/internal/relay"
	"github.com/tomtom215/pagelist/internal/script"
	"github.com/tomtom215/pagelist/internal/store"
	"github.com/tomtom215/pagelist/internal/supervisor/services"
)

// app holds the loaded configuration and the components opened by the
// running command. Components are opened on first use.
type app struct {
	cfgPath  string
	logLevel string

	cfg  *config.Config
	site store.Site

	store   *store.Store
	journal *journal.Store
}

func (a *app) load() error {
	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
		Service:   "pagelist",
		Version:   version,
	})
	a.cfg = cfg
	a.site = store.Site{Root: cfg.Site.Root}
	return nil
}

func (a *app) openStore() (*store.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	st, err := store.Open(storeConfig(a.cfg.Store))
	if err != nil {
		return nil, fmt.Errorf("open page store %s: %w", a.cfg.Store.Path, err)
	}
	a.store = st
	return st, nil
}

func (a *app) openJournal() (*journal.Store, error) {
	if a.journal != nil {
		return a.journal, nil
	}
	j, err := journal.Open(journalConfig(a.cfg.Journal))
	if err != nil {
		return nil, err
	}
	a.journal = j
	return j, nil
}

// scheduler opens the store and builds a scheduler over the shared queue.
func (a *app) scheduler() (*lists.Scheduler, *queue.Queue, error) {
	st, err := a.openStore()
	if err != nil {
		return nil, nil, err
	}
	q := queue.New(st.DB())
	eval := lists.NewEvaluator(st, a.site, script.NewCache())
	return lists.NewScheduler(eval, q, schedulerConfig(a.cfg.Scheduler)), q, nil
}

// pageWriter opens the store and journal for page writes.
func (a *app) pageWriter() (*lists.PageWriter, error) {
	st, err := a.openStore()
	if err != nil {
		return nil, err
	}
	j, err := a.openJournal()
	if err != nil {
		return nil, err
	}
	return lists.NewPageWriter(st, a.site, j), nil
}

func (a *app) close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing page store")
		}
		a.store = nil
	}
}

func journalConfig(c config.JournalConfig) journal.Config {
	return journal.Config{Dir: c.Dir, FileMode: c.Mode(), UID: c.UID, GID: c.GID}
}

func storeConfig(c config.StoreConfig) store.Config {
	sc := store.DefaultConfig(c.Path)
	sc.SyncWrites = c.SyncWrites
	if c.GCRatio > 0 {
		sc.GCRatio = c.GCRatio
	}
	return sc
}

func sessionConfig(c config.RelayConfig) relay.Config {
	sc := relay.DefaultConfig()
	sc.ReadyTimeout = c.ReadyTimeout
	sc.AckTimeout = c.AckTimeout
	return sc
}

func relayServiceConfig(c config.RelayConfig) services.RelayServiceConfig {
	return services.RelayServiceConfig{
		Interval:           c.Interval,
		Session:            sessionConfig(c),
		BreakerFailures:    c.BreakerFailures,
		BreakerTimeout:     c.BreakerTimeout,
		BreakerMaxRequests: c.BreakerMaxRequests,
	}
}

func schedulerConfig(c config.SchedulerConfig) lists.SchedulerConfig {
	return lists.SchedulerConfig{
		LoopTimeout:  c.LoopTimeout,
		MaxWakeDelay: c.MaxWakeDelay,
		ClaimGrace:   c.ClaimGrace,
	}
}

func schedulerServiceConfig(c config.SchedulerConfig) services.SchedulerServiceConfig {
	return services.SchedulerServiceConfig{PingRate: c.PingRate, PingBurst: c.PingBurst}
}

func embeddedServerConfig(c config.CoordinatorConfig) coordinator.ServerConfig {
	sc := coordinator.DefaultServerConfig()
	if c.Host != "" {
		sc.Host = c.Host
	}
	if c.Port != 0 {
		sc.Port = c.Port
	}
	sc.NoLog = true
	return sc
}

// coordinatorURL is the broker address relays dial.
func coordinatorURL(c config.CoordinatorConfig) string {
	if c.URL != "" {
		return c.URL
	}
	host := c.Host
	if host == "" {
		host = "127.0.0.1"
	}
	return "nats://" + net.JoinHostPort(host, strconv.Itoa(c.Port))
}

func broadcastConfig(url, name string) coordinator.BroadcastConfig {
	return coordinator.BroadcastConfig{URL: url, Name: name, CloseTimeout: shutdownTimeout}
}

func apiConfig(cfg *config.Config) api.Config {
	mw := api.DefaultChiMiddlewareConfig()
	mw.CORSAllowedOrigins = cfg.HTTP.CORSOrigins
	mw.RateLimitRequests = cfg.HTTP.RateLimitReqs
	mw.RateLimitWindow = cfg.HTTP.RateLimitWindow
	return api.Config{
		Middleware:      mw,
		DefaultPageSize: cfg.Paging.DefaultPageSize,
		MaxPageSize:     cfg.Paging.MaxPageSize,
		MetricsEnabled:  cfg.Metrics.Enabled,
		MetricsPath:     cfg.Metrics.Path,
	}
}

// broker is the NATS side of serve: an optional embedded server and the
// connection the coordinator and the local relay share.
type broker struct {
	embedded *coordinator.EmbeddedServer
	conn     *nats.Conn
	url      string
}

func connectBroker(c config.CoordinatorConfig) (*broker, error) {
	b := &broker{}
	url := coordinatorURL(c)
	if c.EmbeddedServer {
		srv, err := coordinator.NewEmbeddedServer(embeddedServerConfig(c))
		if err != nil {
			return nil, err
		}
		b.embedded = srv
		url = srv.ClientURL()
	}
	nc, err := nats.Connect(url,
		nats.Name("pagelist-coordinator"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		b.close(context.Background())
		return nil, fmt.Errorf("connect to NATS %s: %w", url, err)
	}
	b.conn = nc
	b.url = url
	return b, nil
}

func (b *broker) close(ctx context.Context) {
	if b.conn != nil {
		b.conn.Close()
	}
	if b.embedded != nil {
		if err := b.embedded.Shutdown(ctx); err != nil {
			logging.Warn().Err(err).Msg("Embedded NATS server shutdown incomplete")
		}
	}
}

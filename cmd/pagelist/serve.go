// Pagelist - Page List Journal and Ordered List Materialization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pagelist

package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/spf13/cobra"

	"github.com/tomtom215/pagelist/internal/api"
	"github.com/tomtom215/pagelist/internal/coordinator"
	"github.com/tomtom215/pagelist/internal/logging"
	"github.com/tomtom215/pagelist/internal/metrics"
	"github.com/tomtom215/pagelist/internal/relay"
	"github.com/tomtom215/pagelist/internal/supervisor"
	"github.com/tomtom215/pagelist/internal/supervisor/services"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the coordinator, relay, scheduler and HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
}

//nolint:gocyclo // sequential wiring of optional components
func (a *app) serve(ctx context.Context) error {
	cfg := a.cfg
	started := time.Now()
	metrics.SetAppInfo(version)
	logging.Info().Str("version", version).Str("config", cfg.String()).Msg("Starting pagelist")

	sched, q, err := a.scheduler()
	if err != nil {
		return err
	}
	st := a.store
	j, err := a.openJournal()
	if err != nil {
		return err
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  shutdownTimeout,
	})

	tree.Add(supervisor.LayerData, services.NewStoreGCService(st, cfg.Store.GCInterval))

	var (
		waker      api.Waker
		wakeSource services.WakeSource
	)
	if cfg.Coordinator.Enabled {
		b, err := connectBroker(cfg.Coordinator)
		if err != nil {
			return err
		}
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			b.close(closeCtx)
		}()

		coord := coordinator.New(b.conn, q, coordinator.Config{SubjectPrefix: cfg.Coordinator.SubjectPrefix})
		if cfg.Coordinator.BroadcastWakeups {
			pub, err := coordinator.NewWakePublisher(broadcastConfig(b.url, "pagelist-wake-publisher"))
			if err != nil {
				return err
			}
			coord.BroadcastWakeups(pub, coordinator.WakeSubject(cfg.Coordinator.SubjectPrefix))
		}
		// Subscribe before the relay's first REGISTER; the service's Start is
		// then a no-op.
		if err := coord.Start(); err != nil {
			_ = coord.Shutdown(context.Background())
			return err
		}
		tree.Add(supervisor.LayerMessaging, services.NewCoordinatorService(coord, shutdownTimeout))
		waker = coord
		wakeSource = coord.Wakeups

		if cfg.Relay.Enabled {
			prefix := cfg.Coordinator.SubjectPrefix
			dial := func(context.Context) (relay.Transport, error) {
				return relay.NewNATSTransport(b.conn, prefix)
			}
			tree.Add(supervisor.LayerMessaging, services.NewRelayService(dial, j, relayServiceConfig(cfg.Relay)))
		}
		logging.Info().Str("subject", coord.Subject()).Bool("embedded", b.embedded != nil).Msg("Coordinator enabled")
	} else if cfg.Relay.Enabled {
		// Relay only: this host writes pages, another host coordinates.
		natsCfg := relay.NATSConfig{
			URL:           coordinatorURL(cfg.Coordinator),
			SubjectPrefix: cfg.Coordinator.SubjectPrefix,
			ClientName:    "pagelist-relay",
		}
		dial := func(context.Context) (relay.Transport, error) {
			return relay.DialNATS(natsCfg)
		}
		tree.Add(supervisor.LayerMessaging, services.NewRelayService(dial, j, relayServiceConfig(cfg.Relay)))
		logging.Info().Str("url", natsCfg.URL).Msg("Relaying to remote coordinator")
	}

	if !cfg.Coordinator.Enabled && cfg.Scheduler.RemoteWakeups {
		sub, err := coordinator.NewWakeSubscriber(broadcastConfig(coordinatorURL(cfg.Coordinator), "pagelist-scheduler"))
		if err != nil {
			return err
		}
		defer func() {
			if err := sub.Close(); err != nil {
				logging.Warn().Err(err).Msg("Wakeup subscriber close failed")
			}
		}()
		topic := coordinator.WakeSubject(cfg.Coordinator.SubjectPrefix)
		wakeSource = func(ctx context.Context) (<-chan *message.Message, error) {
			return sub.Subscribe(ctx, topic)
		}
		logging.Info().Str("topic", topic).Msg("Listening for remote wakeups")
	}

	schedSvc := services.NewSchedulerService(sched, wakeSource, schedulerServiceConfig(cfg.Scheduler))
	tree.Add(supervisor.LayerData, schedSvc)
	if waker == nil {
		waker = schedSvc
	}

	if cfg.HTTP.Enabled {
		srv := api.NewServer(st, a.site, waker, apiConfig(cfg))
		httpServer := srv.NewHTTPServer(cfg.HTTP.Addr(), cfg.HTTP.ReadTimeout, cfg.HTTP.WriteTimeout)
		tree.Add(supervisor.LayerAPI, services.NewHTTPServerService(httpServer, cfg.HTTP.Addr(), shutdownTimeout))
		logging.Info().Str("addr", cfg.HTTP.Addr()).Msg("HTTP server enabled")
	}

	go reportUptime(ctx, started)

	errCh := tree.ServeBackground(ctx)
	<-ctx.Done()
	logging.Info().Msg("Shutdown signal received")

	if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor shutdown error")
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
	}

	logging.Info().Dur("uptime", time.Since(started)).Msg("pagelist stopped")
	return nil
}

func reportUptime(ctx context.Context, started time.Time) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		metrics.UpdateUptime(started)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

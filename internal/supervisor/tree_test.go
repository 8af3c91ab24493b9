// Pagelist - Page List Journal and Ordered List Materialization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pagelist

package supervisor

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/pagelist/internal/metrics"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestNewTreeDefaults(t *testing.T) {
	tree := NewTree(testLogger(), TreeConfig{})
	if tree.Root() == nil {
		t.Fatal("root supervisor is nil")
	}
	if tree.config != DefaultTreeConfig() {
		t.Errorf("config = %+v, want %+v", tree.config, DefaultTreeConfig())
	}
	if len(tree.layers) != len(Layers) {
		t.Errorf("layers = %d, want %d", len(tree.layers), len(Layers))
	}
}

func TestTreeAddUnknownLayerPanics(t *testing.T) {
	tree := NewTree(testLogger(), TreeConfig{})
	defer func() {
		if recover() == nil {
			t.Error("Add with an unknown layer did not panic")
		}
	}()
	tree.Add(Layer("cache-layer"), newMockService("x", 0))
}

func TestTreeLayers(t *testing.T) {
	for _, layer := range Layers {
		t.Run(string(layer), func(t *testing.T) {
			tree := NewTree(testLogger(), TreeConfig{ShutdownTimeout: time.Second})
			svc := newMockService(string(layer)+"-service", 0)
			tree.Add(layer, svc)

			ctx, cancel := context.WithCancel(context.Background())
			errCh := tree.ServeBackground(ctx)

			deadline := time.Now().Add(time.Second)
			for svc.startCount.Load() == 0 && time.Now().Before(deadline) {
				time.Sleep(5 * time.Millisecond)
			}
			cancel()

			select {
			case err := <-errCh:
				if err != nil && !errors.Is(err, context.Canceled) {
					t.Errorf("unexpected error: %v", err)
				}
			case <-time.After(2 * time.Second):
				t.Fatal("tree did not shut down in time")
			}
			if svc.startCount.Load() < 1 {
				t.Error("service was not started")
			}
		})
	}
}

func TestTreeRestartsFailingService(t *testing.T) {
	tree := NewTree(testLogger(), TreeConfig{
		FailureThreshold: 10,
		FailureBackoff:   10 * time.Millisecond,
		ShutdownTimeout:  time.Second,
	})

	failing := newMockService("restart-test-failing", 2)
	stable := newMockService("restart-test-stable", 0)
	tree.Add(LayerMessaging, failing)
	tree.Add(LayerAPI, stable)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for failing.startCount.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-errCh

	if got := failing.startCount.Load(); got < 3 {
		t.Errorf("failing service starts = %d, want >= 3", got)
	}
	if stable.startCount.Load() != 1 {
		t.Errorf("stable service starts = %d, want 1", stable.startCount.Load())
	}
	if got := testutil.ToFloat64(metrics.ServiceRestarts.WithLabelValues("restart-test-failing")); got < 2 {
		t.Errorf("restart counter = %v, want >= 2", got)
	}
}

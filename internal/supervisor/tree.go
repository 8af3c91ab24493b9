// Pagelist - Page List Journal and Ordered List Materialization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pagelist

package supervisor

import (
	"context"
	"log/slog"
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"

	"github.com/tomtom215/pagelist/internal/metrics"
)

// Layer names a child supervisor. Each layer restarts its services
// independently of the others.
type Layer string

const (
	// LayerData holds store GC and the list scheduler.
	LayerData Layer = "data-layer"
	// LayerMessaging holds the coordinator and the journal relay.
	LayerMessaging Layer = "messaging-layer"
	// LayerAPI holds the HTTP server.
	LayerAPI Layer = "api-layer"
)

// Layers lists every layer in start order.
var Layers = []Layer{LayerData, LayerMessaging, LayerAPI}

// TreeConfig holds restart policy shared by every supervisor in the tree.
// Zero fields take the DefaultTreeConfig value.
type TreeConfig struct {
	// FailureThreshold failures within the decay window trigger backoff.
	FailureThreshold float64
	// FailureDecay is the failure half-life in seconds.
	FailureDecay    float64
	FailureBackoff  time.Duration
	ShutdownTimeout time.Duration
}

// DefaultTreeConfig returns suture's defaults.
func DefaultTreeConfig() TreeConfig {
	return TreeConfig{
		FailureThreshold: 5,
		FailureDecay:     30,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	}
}

func (c TreeConfig) withDefaults() TreeConfig {
	def := DefaultTreeConfig()
	if c.FailureThreshold == 0 {
		c.FailureThreshold = def.FailureThreshold
	}
	if c.FailureDecay == 0 {
		c.FailureDecay = def.FailureDecay
	}
	if c.FailureBackoff == 0 {
		c.FailureBackoff = def.FailureBackoff
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = def.ShutdownTimeout
	}
	return c
}

func (c TreeConfig) spec(hook suture.EventHook) suture.Spec {
	return suture.Spec{
		EventHook:        hook,
		FailureThreshold: c.FailureThreshold,
		FailureDecay:     c.FailureDecay,
		FailureBackoff:   c.FailureBackoff,
		Timeout:          c.ShutdownTimeout,
	}
}

// Tree is the serve-mode supervisor: a root named "pagelist" with one
// child supervisor per Layer.
type Tree struct {
	root   *suture.Supervisor
	layers map[Layer]*suture.Supervisor
	config TreeConfig
}

// NewTree builds the tree. Supervisor events are logged to logger and
// restarts are counted in pagelist_service_restarts_total.
func NewTree(logger *slog.Logger, config TreeConfig) *Tree {
	config = config.withDefaults()
	handler := &sutureslog.Handler{Logger: logger}

	t := &Tree{
		root:   suture.New("pagelist", config.spec(countRestarts(handler.MustHook()))),
		layers: make(map[Layer]*suture.Supervisor, len(Layers)),
		config: config,
	}
	// Children inherit the root's hook when added.
	for _, l := range Layers {
		sup := suture.New(string(l), config.spec(nil))
		t.root.Add(sup)
		t.layers[l] = sup
	}
	return t
}

func countRestarts(next suture.EventHook) suture.EventHook {
	return func(e suture.Event) {
		var name string
		switch ev := e.(type) {
		case suture.EventServiceTerminate:
			if ev.Restarting {
				name = ev.ServiceName
			}
		case suture.EventServicePanic:
			if ev.Restarting {
				name = ev.ServiceName
			}
		}
		if name != "" {
			metrics.ServiceRestarts.WithLabelValues(name).Inc()
		}
		next(e)
	}
}

// Add runs svc under layer. It panics on an unknown layer.
func (t *Tree) Add(layer Layer, svc suture.Service) suture.ServiceToken {
	sup, ok := t.layers[layer]
	if !ok {
		panic("supervisor: unknown layer " + string(layer))
	}
	return sup.Add(svc)
}

// Root returns the root supervisor.
func (t *Tree) Root() *suture.Supervisor {
	return t.root
}

// Serve runs the tree until ctx is canceled.
func (t *Tree) Serve(ctx context.Context) error {
	return t.root.Serve(ctx)
}

// ServeBackground runs the tree in a goroutine. The channel receives the
// result once the tree stops.
func (t *Tree) ServeBackground(ctx context.Context) <-chan error {
	return t.root.ServeBackground(ctx)
}

// UnstoppedServiceReport lists services that missed the shutdown timeout.
func (t *Tree) UnstoppedServiceReport() ([]suture.UnstoppedService, error) {
	return t.root.UnstoppedServiceReport()
}

// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Command a2anode wires together the Task Manager, Event Queue, Checkpoint
// Store, Worker Adapter, and Message Dispatcher into a running A2A node,
// served over HTTP/2 cleartext with graceful shutdown on SIGINT/SIGTERM.
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/lestrrat-go/jwx/v3/jwk"

	"github.com/a2a-node/agentcore"
	"github.com/a2a-node/agentcore/checkpoint"
	"github.com/a2a-node/agentcore/client"
	"github.com/a2a-node/agentcore/config"
	"github.com/a2a-node/agentcore/event"
	"github.com/a2a-node/agentcore/orchestrator"
	"github.com/a2a-node/agentcore/server"
	"github.com/a2a-node/agentcore/task"
	"github.com/a2a-node/agentcore/worker"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	if err := config.LoadEnvFiles(); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	checkpointBackend, err := newCheckpointBackend(cfg)
	if err != nil {
		return err
	}
	checkpointStore := checkpoint.NewStore(checkpointBackend)

	taskStore := task.NewStore()
	events := event.NewManager(event.WithCapacity(cfg.QueueCapacityPerTask))
	synchronizer := checkpoint.NewSynchronizer(checkpointStore, taskStore, cfg.CheckpointInterval)
	publisher := checkpoint.FanoutPublisher{Sinks: []interface {
		Publish(taskID string, ev a2a.Event)
	}{events, synchronizer}}

	tasks := task.NewManager(taskStore, task.WithPublisher(publisher), task.WithCheckpointer(checkpointStore))

	registry := orchestrator.NewRegistry()
	for _, p := range cfg.Peers {
		registry.Register(orchestrator.Peer{BaseURL: p.BaseURL})
	}

	adapter := worker.NewAdapter(defaultWorker(cfg, registry), tasks, checkpointStore)

	push := server.NewPushConfigStore()
	dispatcher := server.NewDispatcher(tasks, events, adapter, push)

	srv := server.NewServer(dispatcher, agentCard(cfg))
	if len(cfg.AuthSchemes) > 0 && cfg.AuthJWKSURL != "" {
		keySet, err := jwk.Fetch(context.Background(), cfg.AuthJWKSURL)
		if err != nil {
			slog.Warn("failed to fetch JWKS, starting without bearer auth", "error", err)
		} else {
			srv.Auth = server.BearerAuthMiddleware(keySet)
		}
	}

	h := h2c.NewHandler(srv.Handler(), &http2.Server{})
	httpServer := &http.Server{Handler: h}

	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	slog.Info("a2a node listening", "addr", l.Addr().String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func newCheckpointBackend(cfg *config.Config) (checkpoint.Backend, error) {
	switch cfg.CheckpointBackend {
	case "sqlite":
		return checkpoint.OpenGormBackend(cfg.CheckpointDSN)
	default:
		return checkpoint.NewMemoryBackend(), nil
	}
}

func agentCard(cfg *config.Config) a2a.AgentCard {
	return a2a.AgentCard{
		Name:        "a2a-node",
		Version:     "0.1.0",
		Description: "A configurable A2A protocol runtime node.",
		Endpoints:   []string{"http://" + net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))},
		Capabilities: a2a.AgentCapabilities{
			Streaming:              true,
			PushNotifications:      false,
			StateTransitionHistory: true,
			SynchronousCompletion:  false,
		},
		AuthenticationSchemes: cfg.AuthSchemes,
	}
}

// defaultWorker chooses this node's Worker: an orchestrator.Coordinator
// when peers are configured (this node fans out to them), otherwise an echo
// worker useful for smoke-testing the protocol surface with no external
// dependencies.
func defaultWorker(cfg *config.Config, registry *orchestrator.Registry) worker.Worker {
	if len(cfg.Peers) == 0 {
		return &echoWorker{}
	}
	return orchestrator.NewCoordinator(registry, &orchestrator.SinglePeerPlanner{}, orchestrator.ConcatSynthesizer{}, newPeerClient)
}

func newPeerClient(baseURL string) *client.Client {
	return client.New(baseURL)
}

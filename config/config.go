// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads this node's runtime configuration from environment
// variables, with .env file support, grounded on kadirpekel-hector's
// config/env.go LoadEnvFiles pattern (the process environment takes
// precedence over .env.local, which takes precedence over .env).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Default runtime tunables, overridable via environment variables in Load.
const (
	DefaultHost                 = "0.0.0.0"
	DefaultPort                 = 8080
	DefaultMaxConcurrentTasks   = 100
	DefaultQueueCapacityPerTask = 1024
	DefaultCheckpointInterval   = 1000 * time.Millisecond
	DefaultConnectTimeout       = 3 * time.Second
	DefaultTotalTimeout         = 30 * time.Second
	DefaultStreamIdleTimeout    = 60 * time.Second
	DefaultCancelGracePeriod    = 5 * time.Second
	DefaultPeerPoolSize         = 16
	DefaultActiveRetention      = 7 * 24 * time.Hour
	DefaultCompletedRetention   = 30 * 24 * time.Hour
	DefaultFailedRetention      = 3 * 24 * time.Hour
)

// Peer is one statically configured remote agent, keyed by base URL.
type Peer struct {
	Name    string
	BaseURL string
}

// Config is this node's fully resolved runtime configuration.
type Config struct {
	Host string
	Port int

	WorkerMaxConcurrentTasks int
	QueueCapacityPerTask     int

	CheckpointBackend  string // "memory" or "sqlite"
	CheckpointDSN       string
	CheckpointInterval time.Duration

	Peers []Peer

	ConnectTimeout    time.Duration
	TotalTimeout      time.Duration
	StreamIdleTimeout time.Duration
	CancelGrace       time.Duration
	PeerPoolSize      int

	AuthSchemes    []string
	AuthJWKSURL    string
	AuthTokenSource string

	ActiveRetention    time.Duration
	CompletedRetention time.Duration
	FailedRetention    time.Duration
}

// LoadEnvFiles loads .env.local then .env into the process environment,
// each only filling variables not already set. Missing files are not an
// error.
func LoadEnvFiles() error {
	for _, file := range []string{".env.local", ".env"} {
		if err := godotenv.Load(file); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load %s: %w", file, err)
		}
	}
	return nil
}

// Load resolves Config from the process environment, applying the defaults
// above for anything unset.
func Load() (*Config, error) {
	c := &Config{
		Host:                     getEnv("A2A_HOST", DefaultHost),
		Port:                     getEnvInt("A2A_PORT", DefaultPort),
		WorkerMaxConcurrentTasks: getEnvInt("A2A_WORKER_MAX_CONCURRENT_TASKS", DefaultMaxConcurrentTasks),
		QueueCapacityPerTask:     getEnvInt("A2A_QUEUE_CAPACITY_PER_TASK", DefaultQueueCapacityPerTask),
		CheckpointBackend:        getEnv("A2A_CHECKPOINT_BACKEND", "memory"),
		CheckpointDSN:            getEnv("A2A_CHECKPOINT_DSN", "a2a-checkpoints.db"),
		CheckpointInterval:       getEnvDuration("A2A_CHECKPOINT_INTERVAL_MS", DefaultCheckpointInterval),
		ConnectTimeout:           getEnvDuration("A2A_PEER_CONNECT_TIMEOUT_MS", DefaultConnectTimeout),
		TotalTimeout:             getEnvDuration("A2A_PEER_TOTAL_TIMEOUT_MS", DefaultTotalTimeout),
		StreamIdleTimeout:        getEnvDuration("A2A_PEER_STREAM_IDLE_TIMEOUT_MS", DefaultStreamIdleTimeout),
		CancelGrace:              getEnvDuration("A2A_CANCEL_GRACE_MS", DefaultCancelGracePeriod),
		PeerPoolSize:             getEnvInt("A2A_PEER_POOL_SIZE", DefaultPeerPoolSize),
		AuthSchemes:              splitCSV(getEnv("A2A_AUTH_SCHEMES", "")),
		AuthJWKSURL:              getEnv("A2A_AUTH_JWKS_URL", ""),
		AuthTokenSource:          getEnv("A2A_AUTH_TOKEN_SOURCE", ""),
		ActiveRetention:          getEnvDuration("A2A_RETENTION_ACTIVE_MS", DefaultActiveRetention),
		CompletedRetention:       getEnvDuration("A2A_RETENTION_COMPLETED_MS", DefaultCompletedRetention),
		FailedRetention:          getEnvDuration("A2A_RETENTION_FAILED_MS", DefaultFailedRetention),
		Peers:                    parsePeers(getEnv("A2A_PEERS", "")),
	}
	if c.Port <= 0 || c.Port > 65535 {
		return nil, fmt.Errorf("config: invalid port %d", c.Port)
	}
	return c, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// getEnvDuration reads key as milliseconds, matching this node's
// "_interval_ms"-suffixed configuration naming convention.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	ms, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return time.Duration(ms) * time.Millisecond
}

func splitCSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parsePeers parses "name=url,name=url" into []Peer.
func parsePeers(v string) []Peer {
	if v == "" {
		return nil
	}
	var peers []Peer
	for _, entry := range strings.Split(v, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, url, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		peers = append(peers, Peer{Name: name, BaseURL: url})
	}
	return peers
}

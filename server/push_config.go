// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package server implements the Message Dispatcher (C7) and the HTTP
// wiring around it: a method-per-handler dispatcher plus a chi-routed
// agent-card/health/metrics/RPC endpoint layout.
package server

import (
	"sync"

	"github.com/a2a-node/agentcore"
)

// PushNotificationConfig is the reserved push-notification configuration
// payload. Delivery semantics are intentionally left undefined, so only
// CRUD is implemented here.
type PushNotificationConfig struct {
	TaskID string         `json:"task_id"`
	URL    string         `json:"url"`
	Token  string         `json:"token,omitempty"`
	Extra  map[string]any `json:"extra,omitempty"`
}

// PushConfigStore is a keyed CRUD store for per-task push-notification
// configuration.
type PushConfigStore struct {
	mu      sync.RWMutex
	configs map[string]PushNotificationConfig
}

func NewPushConfigStore() *PushConfigStore {
	return &PushConfigStore{configs: make(map[string]PushNotificationConfig)}
}

func (s *PushConfigStore) Set(cfg PushNotificationConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configs[cfg.TaskID] = cfg
}

func (s *PushConfigStore) Get(taskID string) (PushNotificationConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.configs[taskID]
	if !ok {
		return PushNotificationConfig{}, a2a.NewTaskNotFound(taskID)
	}
	return cfg, nil
}

func (s *PushConfigStore) List() []PushNotificationConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]PushNotificationConfig, 0, len(s.configs))
	for _, cfg := range s.configs {
		out = append(out, cfg)
	}
	return out
}

func (s *PushConfigStore) Delete(taskID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.configs, taskID)
}

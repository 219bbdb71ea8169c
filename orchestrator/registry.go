// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package orchestrator implements the Orchestrator Coordinator (C10): a
// Worker that plans a multi-step request, routes each step to a peer agent
// via the Peer Client (C9), executes steps in dependency order with bounded
// parallelism, and aggregates peer outputs in plan order.
package orchestrator

import (
	"sort"
	"sync"

	"github.com/a2a-node/agentcore"
)

// Peer is a known remote agent: its base URL and its last-fetched
// AgentCard. Skill tags drive capability-based routing: a plan step names a
// capability rather than a fixed peer.
type Peer struct {
	BaseURL string
	Card    a2a.AgentCard
}

type peerStats struct {
	inFlight  int
	errors    int
	successes int
}

// Registry tracks known peers and their live load/error stats for routing
// tie-breaks: fewer in-flight, lower recent error rate, deterministic hash
// of step-id.
type Registry struct {
	mu    sync.Mutex
	peers map[string]Peer
	stats map[string]*peerStats
}

func NewRegistry() *Registry {
	return &Registry{peers: make(map[string]Peer), stats: make(map[string]*peerStats)}
}

// Register records or updates a peer's AgentCard.
func (r *Registry) Register(p Peer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.peers[p.BaseURL] = p
	if _, ok := r.stats[p.BaseURL]; !ok {
		r.stats[p.BaseURL] = &peerStats{}
	}
}

// FindBySkill returns every registered peer advertising a skill whose Name
// or a Tag matches skill, ordered deterministically by base URL so ties are
// broken the same way across runs.
func (r *Registry) FindBySkill(skill string) []Peer {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matches []Peer
	for _, p := range r.peers {
		if peerHasSkill(p.Card, skill) {
			matches = append(matches, p)
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].BaseURL < matches[j].BaseURL })
	return matches
}

func peerHasSkill(card a2a.AgentCard, skill string) bool {
	for _, s := range card.Skills {
		if s.Name == skill {
			return true
		}
		for _, tag := range s.Tags {
			if tag == skill {
				return true
			}
		}
	}
	return false
}

func (r *Registry) statsFor(baseURL string) *peerStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.stats[baseURL]
	if !ok {
		s = &peerStats{}
		r.stats[baseURL] = s
	}
	return s
}

func (r *Registry) markDispatched(baseURL string) {
	r.statsFor(baseURL).inFlight++
}

func (r *Registry) markDone(baseURL string, failed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.stats[baseURL]
	if s == nil {
		return
	}
	if s.inFlight > 0 {
		s.inFlight--
	}
	if failed {
		s.errors++
	} else {
		s.successes++
	}
}

func (r *Registry) errorRate(baseURL string) float64 {
	s := r.statsFor(baseURL)
	total := s.errors + s.successes
	if total == 0 {
		return 0
	}
	return float64(s.errors) / float64(total)
}

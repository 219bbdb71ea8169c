// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package client implements the Peer Client (C9): outbound JSON-RPC to
// remote agents, agent-card discovery with caching, SSE stream consumption
// with auto-resubscribe, and cancellation.
package client

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	jsonv2 "github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"

	"github.com/a2a-node/agentcore"
)

// DefaultCardTTL bounds how long a cached AgentCard is trusted before a
// revalidating GET.
const DefaultCardTTL = 5 * time.Minute

type cachedCard struct {
	card      *a2a.AgentCard
	etag      string
	expiresAt time.Time
}

// CardResolver fetches and caches AgentCards with an ETag/TTL cache shape.
type CardResolver struct {
	hc *http.Client

	mu    sync.Mutex
	cache map[string]cachedCard
}

func NewCardResolver(hc *http.Client) *CardResolver {
	if hc == nil {
		hc = &http.Client{}
	}
	return &CardResolver{hc: hc, cache: make(map[string]cachedCard)}
}

// FetchAgentCard implements fetch_agent_card(base_url): a GET to
// /.well-known/agent.json, served from cache within TTL, revalidated with
// If-None-Match otherwise.
func (r *CardResolver) FetchAgentCard(ctx context.Context, baseURL string) (*a2a.AgentCard, error) {
	baseURL = strings.TrimRight(baseURL, "/")

	r.mu.Lock()
	entry, ok := r.cache[baseURL]
	r.mu.Unlock()
	if ok && time.Now().Before(entry.expiresAt) {
		return entry.card, nil
	}

	targetURL := baseURL + a2a.AgentCardWellKnownPath
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, http.NoBody)
	if err != nil {
		return nil, err
	}
	if ok && entry.etag != "" {
		req.Header.Set("If-None-Match", entry.etag)
	}

	resp, err := r.hc.Do(req)
	if err != nil {
		return nil, &a2a.PeerError{Kind: a2a.PeerErrorUnreachable, Detail: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified && ok {
		entry.expiresAt = time.Now().Add(DefaultCardTTL)
		r.mu.Lock()
		r.cache[baseURL] = entry
		r.mu.Unlock()
		return entry.card, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &a2a.PeerError{Kind: a2a.PeerErrorProtocol, HTTPStatus: resp.StatusCode, Detail: fmt.Sprintf("fetch agent card from %s", targetURL)}
	}

	var card a2a.AgentCard
	dec := jsontext.NewDecoder(resp.Body)
	if err := jsonv2.UnmarshalDecode(dec, &card, jsonv2.DefaultOptionsV2()); err != nil {
		return nil, fmt.Errorf("decode agent card: %w", err)
	}

	r.mu.Lock()
	r.cache[baseURL] = cachedCard{card: &card, etag: resp.Header.Get("ETag"), expiresAt: time.Now().Add(DefaultCardTTL)}
	r.mu.Unlock()
	return &card, nil
}

// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/a2a-node/agentcore"
	"github.com/a2a-node/agentcore/transport"
)

// Server wires the Dispatcher onto an HTTP mux via chi: POST / for
// JSON-RPC, GET /.well-known/agent.json, GET /health, and GET /metrics.
type Server struct {
	Dispatcher *Dispatcher
	Card       a2a.AgentCard
	Auth       func(http.Handler) http.Handler // nil disables auth entirely
	startedAt  time.Time
}

func NewServer(d *Dispatcher, card a2a.AgentCard) *Server {
	return &Server{Dispatcher: d, Card: card, startedAt: time.Now()}
}

// Handler builds the chi router. Public endpoints (agent card, health,
// metrics) bypass Auth; everything else is wrapped by it when set.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Get(a2a.AgentCardWellKnownPath, s.handleAgentCard)
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	rpc := http.HandlerFunc(s.handleRPC)
	ext := http.HandlerFunc(s.handleExtendedCard)
	if s.Auth != nil {
		r.Method(http.MethodPost, a2a.DefaultRPCURL, s.Auth(rpc))
		r.Method(http.MethodGet, a2a.ExtendedAgentCardPath, s.Auth(ext))
	} else {
		r.Post(a2a.DefaultRPCURL, s.handleRPC)
		r.Get(a2a.ExtendedAgentCardPath, s.handleExtendedCard)
	}
	return r
}

func (s *Server) handleAgentCard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Card)
}

func (s *Server) handleExtendedCard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Card)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         status,
		"tasks_active":   s.Dispatcher.Tasks.Store().ActiveCount(),
		"uptime_seconds": int(time.Since(s.startedAt).Seconds()),
	})
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeRPCError(w, nil, a2a.NewInvalidParams("failed to read request body"))
		return
	}

	req, err := a2a.DecodeRequest(body)
	if err != nil {
		writeRPCError(w, nil, &parseErr{err})
		return
	}
	if err := a2a.ValidateEnvelope(req); err != nil {
		writeRPCError(w, req.ID, err)
		return
	}

	ctx := r.Context()
	switch req.Method {
	case a2a.MethodMessageSend:
		var msg a2a.Message
		if err := json.Unmarshal(req.Params, &msg); err != nil {
			writeRPCError(w, req.ID, a2a.NewInvalidParams(err.Error()))
			return
		}
		t, err := s.Dispatcher.HandleMessageSend(ctx, &msg)
		if err != nil {
			writeRPCError(w, req.ID, err)
			return
		}
		writeRPCResult(w, req.ID, t)

	case a2a.MethodMessageStream:
		var msg a2a.Message
		if err := json.Unmarshal(req.Params, &msg); err != nil {
			writeRPCError(w, req.ID, a2a.NewInvalidParams(err.Error()))
			return
		}
		sub, err := s.Dispatcher.HandleMessageStream(ctx, &msg)
		if err != nil {
			writeRPCError(w, req.ID, err)
			return
		}
		_ = transport.WriteStream(w, r, transport.ChanSource{Events: sub.Events, Cancel: sub.Close})

	case a2a.MethodTasksGet:
		var p struct {
			TaskID string `json:"task_id"`
		}
		if err := json.Unmarshal(req.Params, &p); err != nil {
			writeRPCError(w, req.ID, a2a.NewInvalidParams(err.Error()))
			return
		}
		t, err := s.Dispatcher.HandleTasksGet(ctx, p.TaskID)
		if err != nil {
			writeRPCError(w, req.ID, err)
			return
		}
		writeRPCResult(w, req.ID, t)

	case a2a.MethodTasksCancel:
		var p struct {
			TaskID string `json:"task_id"`
		}
		if err := json.Unmarshal(req.Params, &p); err != nil {
			writeRPCError(w, req.ID, a2a.NewInvalidParams(err.Error()))
			return
		}
		t, err := s.Dispatcher.HandleTasksCancel(ctx, p.TaskID)
		if err != nil {
			writeRPCError(w, req.ID, err)
			return
		}
		writeRPCResult(w, req.ID, t)

	case a2a.MethodTasksResubscribe:
		var p struct {
			TaskID      string  `json:"task_id"`
			LastEventID *uint64 `json:"last_event_id,omitempty"`
		}
		if err := json.Unmarshal(req.Params, &p); err != nil {
			writeRPCError(w, req.ID, a2a.NewInvalidParams(err.Error()))
			return
		}
		last := uint64(0)
		if p.LastEventID != nil {
			last = *p.LastEventID
		} else if hdr, ok := transport.LastEventID(r); ok {
			last = hdr
		}
		sub, catchUp, err := s.Dispatcher.HandleTasksResubscribe(ctx, p.TaskID, last)
		if err != nil {
			writeRPCError(w, req.ID, err)
			return
		}
		var prelude []a2a.EventEnvelope
		if !catchUp {
			if t, err := s.Dispatcher.HandleTasksGet(ctx, p.TaskID); err == nil {
				w.Header().Set("X-Catch-Up", "false")
				prelude = append(prelude, a2a.EventEnvelope{Event: &a2a.TaskSnapshotEvent{Task: t}})
			}
		}
		_ = transport.WriteStream(w, r, transport.ChanSource{Events: sub.Events, Cancel: sub.Close}, prelude...)

	case a2a.MethodPushConfigSet:
		var cfg PushNotificationConfig
		if err := json.Unmarshal(req.Params, &cfg); err != nil {
			writeRPCError(w, req.ID, a2a.NewInvalidParams(err.Error()))
			return
		}
		if err := s.Dispatcher.HandlePushConfigSet(ctx, cfg); err != nil {
			writeRPCError(w, req.ID, err)
			return
		}
		writeRPCResult(w, req.ID, nil)

	case a2a.MethodPushConfigGet:
		var p struct {
			TaskID string `json:"task_id"`
		}
		if err := json.Unmarshal(req.Params, &p); err != nil {
			writeRPCError(w, req.ID, a2a.NewInvalidParams(err.Error()))
			return
		}
		cfg, err := s.Dispatcher.HandlePushConfigGet(ctx, p.TaskID)
		if err != nil {
			writeRPCError(w, req.ID, err)
			return
		}
		writeRPCResult(w, req.ID, cfg)

	case a2a.MethodPushConfigList:
		writeRPCResult(w, req.ID, s.Dispatcher.HandlePushConfigList(ctx))

	case a2a.MethodPushConfigDelete:
		var p struct {
			TaskID string `json:"task_id"`
		}
		if err := json.Unmarshal(req.Params, &p); err != nil {
			writeRPCError(w, req.ID, a2a.NewInvalidParams(err.Error()))
			return
		}
		s.Dispatcher.HandlePushConfigDelete(ctx, p.TaskID)
		writeRPCResult(w, req.ID, nil)

	default:
		writeRPCError(w, req.ID, a2a.NewUnsupportedCapability(req.Method))
	}
}

type parseErr struct{ err error }

func (e *parseErr) Error() string { return e.err.Error() }
func (e *parseErr) Code() int     { return a2a.CodeParseError }

func writeRPCResult(w http.ResponseWriter, id any, result any) {
	writeJSON(w, http.StatusOK, a2a.NewResultResponse(id, result))
}

func writeRPCError(w http.ResponseWriter, id any, err error) {
	writeJSON(w, http.StatusOK, a2a.NewErrorResponse(id, err))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

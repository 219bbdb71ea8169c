// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package worker defines the Worker capability set and the Worker Adapter
// (C5) that bridges an opaque Worker to the task/event model. The core
// never depends on a Worker's internals; it only sees WorkerItems.
package worker

import (
	"context"

	"github.com/a2a-node/agentcore"
)

// Worker is the narrow interface any reasoning graph, tool loop, or
// fixed-rule engine plugs into as this node's internal Worker boundary.
type Worker interface {
	// Start begins work on a fresh or rehydrated task. resumedState is the
	// opaque bytes last returned by Snapshot, or nil for a brand-new task.
	Start(ctx context.Context, taskID string, initial *a2a.Message, resumedState []byte) (<-chan Item, error)

	// Resume supplies a new user message to a task waiting in
	// input-required or auth-required.
	Resume(ctx context.Context, taskID string, newMessage *a2a.Message) (<-chan Item, error)

	// Cancel requests cooperative cancellation of taskID's in-flight turn.
	Cancel(ctx context.Context, taskID string)

	// Snapshot returns an opaque blob capturing the worker's conversational
	// state for taskID, persisted by the Adapter via the Checkpoint Store.
	Snapshot(ctx context.Context, taskID string) ([]byte, error)
}

// ItemKind discriminates WorkerItem variants.
type ItemKind string

const (
	ItemThinking        ItemKind = "thinking"
	ItemToolInvocation  ItemKind = "tool_invocation"
	ItemToolResult      ItemKind = "tool_result"
	ItemPartialArtifact ItemKind = "partial_artifact"
	ItemNeedsInput      ItemKind = "needs_input"
	ItemNeedsAuth       ItemKind = "needs_auth"
	ItemFinal           ItemKind = "final"
	ItemError           ItemKind = "error"
)

// Item is the tagged union a Worker emits; exactly the fields relevant to
// Kind are populated. Item never crosses the wire, so it carries none of
// Part's JSON-marshaling concerns.
type Item struct {
	Kind ItemKind

	// thinking / tool_invocation / tool_result
	Text string
	Name string

	// partial_artifact
	ArtifactID string
	Part       a2a.Part
	IsLast     bool

	// needs_input
	Prompt string

	// needs_auth
	AuthScheme string

	// final
	Parts []a2a.Part

	// error
	ErrorKind a2a.WorkerErrorKind
	Detail    string
}

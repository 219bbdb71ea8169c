// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package a2a contains the canonical protocol types for the Agent-to-Agent
// (A2A) core runtime: parts, messages, artifacts, tasks, events, agent
// cards, and the JSON-RPC envelope and error taxonomy used to carry them
// over the wire.
package a2a

// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"context"

	"github.com/a2a-node/agentcore"
)

// Step is one unit of delegated work in a Plan. It is never serialized on
// the wire; it exists only inside this node's process.
type Step struct {
	StepID      string
	Description string
	DependsOn   []string
	TargetSkill string
	Required    bool
}

// Plan is an ordered list of Steps produced by the embedded reasoning
// brain. Aggregation reads StepOutputs in this order, never completion
// order.
type Plan struct {
	Steps []Step
}

// StepOutcome records a step's terminal parts or failure, keyed by StepID.
// Suspended means the peer task entered input-required or auth-required
// instead of reaching a terminal state; Failed is false in that case.
type StepOutcome struct {
	StepID    string
	Parts     []a2a.Part
	Failed    bool
	Detail    string
	Suspended bool
}

// Planner is the opaque reasoning brain's planning call: input is the
// initial user message and the set of skills advertised by known peers;
// output is an ordered Plan. The coordinator treats this as a black box:
// planning is performed by the embedded reasoning brain.
type Planner interface {
	Plan(ctx context.Context, initial *a2a.Message, availableSkills []string) (*Plan, error)
}

// Synthesizer is the opaque reasoning brain's aggregation call: input is
// every step's outcome in plan order; output is the final answer's parts.
type Synthesizer interface {
	Synthesize(ctx context.Context, initial *a2a.Message, outcomes []StepOutcome) ([]a2a.Part, error)
}

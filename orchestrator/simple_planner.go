// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"context"

	"github.com/google/uuid"

	"github.com/a2a-node/agentcore"
)

// SinglePeerPlanner is a minimal Planner that routes the whole request to
// one peer advertising the given skill, with no decomposition. It is the
// planner this node falls back to when no reasoning-brain Planner is
// configured, and a useful baseline for tests.
type SinglePeerPlanner struct {
	Skill string
}

func (p *SinglePeerPlanner) Plan(ctx context.Context, initial *a2a.Message, availableSkills []string) (*Plan, error) {
	return &Plan{Steps: []Step{{
		StepID:      uuid.NewString(),
		Description: textOf(initial),
		TargetSkill: p.Skill,
		Required:    true,
	}}}, nil
}

// ConcatSynthesizer concatenates every step's text parts in plan order,
// wrapping the result as a single TextPart. It is a placeholder for a real
// reasoning-brain Synthesizer; synthesis itself is treated as opaque.
type ConcatSynthesizer struct{}

func (ConcatSynthesizer) Synthesize(ctx context.Context, initial *a2a.Message, outcomes []StepOutcome) ([]a2a.Part, error) {
	var text string
	for i, o := range outcomes {
		if i > 0 {
			text += "\n"
		}
		for _, p := range o.Parts {
			if tp, ok := p.(*a2a.TextPart); ok {
				text += tp.Text
			}
		}
	}
	return []a2a.Part{&a2a.TextPart{Text: text}}, nil
}

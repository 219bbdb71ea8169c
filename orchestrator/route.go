// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import "hash/fnv"

// Route selects the peer to dispatch step to: among peers advertising
// step.TargetSkill, prefer fewer in-flight tasks, then lower recent error
// rate, then a deterministic hash of the step-id so repeated runs over an
// unchanged peer set pick the same peer.
func (r *Registry) Route(step Step) (Peer, bool) {
	candidates := r.FindBySkill(step.TargetSkill)
	if len(candidates) == 0 {
		return Peer{}, false
	}
	if len(candidates) == 1 {
		return candidates[0], true
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if betterCandidate(r, step.StepID, c, best) {
			best = c
		}
	}
	return best, true
}

// betterCandidate reports whether c should be preferred over best, applying
// the three tie-break rules in order.
func betterCandidate(r *Registry, stepID string, c, best Peer) bool {
	cInFlight, bestInFlight := r.statsFor(c.BaseURL).inFlight, r.statsFor(best.BaseURL).inFlight
	if cInFlight != bestInFlight {
		return cInFlight < bestInFlight
	}
	cErr, bestErr := r.errorRate(c.BaseURL), r.errorRate(best.BaseURL)
	if cErr != bestErr {
		return cErr < bestErr
	}
	return stepHash(stepID, c.BaseURL) < stepHash(stepID, best.BaseURL)
}

func stepHash(stepID, baseURL string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(stepID))
	h.Write([]byte{0})
	h.Write([]byte(baseURL))
	return h.Sum64()
}

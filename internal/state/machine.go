// Package state owns the submission lifecycle: the closed transition table,
// failure sidecar bookkeeping, and retry routing. All state writes in the
// pipeline go through Apply so an illegal transition can never be persisted.
package state

import (
	"fmt"
	"time"

	"codearena.app/arbiter/internal/model"
)

// transitions is the closed table of legal state changes.
var transitions = map[model.SubmissionState][]model.SubmissionState{
	model.StateSubmitted:       {model.StateResearched, model.StateResearchFailed},
	model.StateResearched:      {model.StateScored, model.StateScoringFailed},
	model.StateScored:          {model.StateCommunityVoting},
	model.StateCommunityVoting: {model.StateCompleted, model.StateScoringFailed},
	model.StateCompleted:       {model.StatePublished},
	model.StatePublished:       {},

	// Sidecars transition back only to states that can originate the
	// failed work; RetryTarget picks the concrete one from FailedFrom.
	model.StateResearchFailed: {model.StateSubmitted},
	model.StateScoringFailed:  {model.StateResearched, model.StateCommunityVoting},
}

// CanTransition reports whether from → to appears in the transition table.
func CanTransition(from, to model.SubmissionState) bool {
	for _, t := range transitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// Apply validates and performs a transition on the record. Entering a
// sidecar state records the originating state and the failure reason;
// leaving one clears both. The record is modified in place; persisting it
// is the caller's job (atomically, alongside whatever produced the change).
func Apply(rec *model.StateRecord, to model.SubmissionState, failureReason string) error {
	if !CanTransition(rec.State, to) {
		return fmt.Errorf("illegal transition %s → %s", rec.State, to)
	}

	if to.Failed() {
		from := rec.State
		rec.FailedFrom = &from
		rec.FailureReason = &failureReason
	} else {
		rec.FailedFrom = nil
		rec.FailureReason = nil
	}

	rec.State = to
	rec.UpdatedAt = time.Now().UTC()
	return nil
}

// RetryTarget returns the state a parked submission re-enters on retry.
// Only failure sidecar states are retryable.
func RetryTarget(rec *model.StateRecord) (model.SubmissionState, error) {
	if !rec.State.Failed() {
		return "", fmt.Errorf("state %s is not retryable", rec.State)
	}
	if rec.FailedFrom == nil {
		// Legacy rows without an origin: fall back to the only legal target.
		if rec.State == model.StateResearchFailed {
			return model.StateSubmitted, nil
		}
		return model.StateResearched, nil
	}
	return *rec.FailedFrom, nil
}

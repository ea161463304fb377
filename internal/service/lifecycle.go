package service

import (
	"context"
	"fmt"

	"codearena.app/arbiter/internal/model"
	"codearena.app/arbiter/internal/state"
	"codearena.app/arbiter/internal/store"
)

// Lifecycle performs the operator-driven transitions between pipeline
// phases: opening community voting once Round 1 scores are in, and
// publishing once Round 2 completes. Pipeline-owned transitions stay in
// the Evaluator.
type Lifecycle struct {
	states store.StateStore
}

func NewLifecycle(states store.StateStore) *Lifecycle {
	return &Lifecycle{states: states}
}

// advanceTargets is the closed set of states an operator may advance into.
// Everything else is either pipeline-owned or reached through retry.
var advanceTargets = map[model.SubmissionState]bool{
	model.StateCommunityVoting: true,
	model.StatePublished:       true,
}

// Advance moves a submission into an operator-driven state. The transition
// table still applies, so advancing out of the wrong state fails.
func (l *Lifecycle) Advance(ctx context.Context, submissionID int64, to model.SubmissionState) error {
	if !advanceTargets[to] {
		return fmt.Errorf("state %s cannot be entered by an operator", to)
	}

	rec, err := l.states.Get(ctx, submissionID)
	if err != nil {
		return fmt.Errorf("loading state: %w", err)
	}
	if err := state.Apply(rec, to, ""); err != nil {
		return err
	}
	return l.states.Upsert(ctx, rec)
}

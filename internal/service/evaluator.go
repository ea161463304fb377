// Package service orchestrates the evaluation pipeline: analysis, context
// curation, research, scoring and the state transitions between them. Every
// state write lands in the same transaction as the record that justified it.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"codearena.app/arbiter/common/logger"
	"codearena.app/arbiter/internal/analyzer"
	"codearena.app/arbiter/internal/curator"
	"codearena.app/arbiter/internal/model"
	"codearena.app/arbiter/internal/research"
	"codearena.app/arbiter/internal/scoring"
	"codearena.app/arbiter/internal/state"
	"codearena.app/arbiter/internal/store"
)

// ErrTerminalFailure wraps pipeline errors that must park the submission in
// a failure state instead of being requeued. The worker acks these.
var ErrTerminalFailure = errors.New("terminal pipeline failure")

type Evaluator struct {
	stores   *store.Stores
	tx       TxRunner
	analyzer *analyzer.Analyzer
	curator  *curator.Curator
	research *research.Service
	judge    *scoring.Judge
}

func NewEvaluator(stores *store.Stores, tx TxRunner, an *analyzer.Analyzer, cu *curator.Curator, re *research.Service, judge *scoring.Judge) *Evaluator {
	return &Evaluator{
		stores:   stores,
		tx:       tx,
		analyzer: an,
		curator:  cu,
		research: re,
		judge:    judge,
	}
}

// EvaluateRound1 runs a submission from intake through its Round 1 score.
// A submission parked in researched resumes at scoring; this is the retry
// path for scoring failures that originated there.
func (e *Evaluator) EvaluateRound1(ctx context.Context, submissionID int64) error {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		SubmissionID: logger.Ptr(submissionID),
		Round:        logger.Ptr(1),
	})

	sub, err := e.stores.Submissions().GetByID(ctx, submissionID)
	if err != nil {
		return fmt.Errorf("loading submission: %w", err)
	}

	rec, err := e.loadOrInitState(ctx, submissionID)
	if err != nil {
		return err
	}

	switch rec.State {
	case model.StateSubmitted:
		doc, err := e.researchPhase(ctx, *sub, rec)
		if err != nil {
			return err
		}
		return e.scorePhase(ctx, *sub, rec, doc, 1, nil)
	case model.StateResearched:
		doc, err := e.stores.Research().LatestBySubmission(ctx, submissionID)
		if err != nil {
			return fmt.Errorf("loading research for scoring: %w", err)
		}
		return e.scorePhase(ctx, *sub, rec, doc, 1, nil)
	default:
		// Already past Round 1 or parked; acking the duplicate is the
		// idempotent move.
		slog.WarnContext(ctx, "round 1 evaluation skipped", "state", rec.State)
		return nil
	}
}

// EvaluateRound2 re-scores a submission in community voting and folds the
// community bonus into its final score.
func (e *Evaluator) EvaluateRound2(ctx context.Context, submissionID int64, communityScore float64) error {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		SubmissionID: logger.Ptr(submissionID),
		Round:        logger.Ptr(2),
	})

	sub, err := e.stores.Submissions().GetByID(ctx, submissionID)
	if err != nil {
		return fmt.Errorf("loading submission: %w", err)
	}

	rec, err := e.stores.States().Get(ctx, submissionID)
	if err != nil {
		return fmt.Errorf("loading state: %w", err)
	}
	if rec.State != model.StateCommunityVoting {
		slog.WarnContext(ctx, "round 2 evaluation skipped", "state", rec.State)
		return nil
	}

	doc, err := e.stores.Research().LatestBySubmission(ctx, submissionID)
	if err != nil {
		return fmt.Errorf("loading research: %w", err)
	}

	return e.scorePhase(ctx, *sub, rec, doc, 2, &communityScore)
}

// RefreshResearch forces a fresh research call against the latest digest.
// The state machine is untouched; only a new research version appears.
func (e *Evaluator) RefreshResearch(ctx context.Context, submissionID int64) error {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		SubmissionID: logger.Ptr(submissionID),
		Stage:        logger.Ptr("refresh_research"),
	})

	sub, err := e.stores.Submissions().GetByID(ctx, submissionID)
	if err != nil {
		return fmt.Errorf("loading submission: %w", err)
	}
	analysis, err := e.stores.Analyses().LatestBySubmission(ctx, submissionID)
	if err != nil {
		return fmt.Errorf("loading analysis: %w", err)
	}
	digest, err := e.stores.Digests().LatestBySubmission(ctx, submissionID)
	if err != nil {
		return fmt.Errorf("loading digest: %w", err)
	}

	doc, err := e.research.Research(ctx, *sub, analysis, digest, true)
	if err != nil {
		if errors.Is(err, research.ErrResearchFailed) {
			return fmt.Errorf("%w: %v", ErrTerminalFailure, err)
		}
		return err
	}

	return e.stores.Research().Create(ctx, doc)
}

// researchPhase takes a submitted entry through analysis, curation and
// research, leaving it in the researched state. Terminal failures park it
// in researched_failed inside the same call.
func (e *Evaluator) researchPhase(ctx context.Context, sub model.Submission, rec *model.StateRecord) (*model.ResearchDocument, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Stage: logger.Ptr("research")})

	analysis, err := e.analyzer.Analyze(ctx, sub)
	if err != nil {
		if errors.Is(err, analyzer.ErrInvalidRepositoryURL) {
			return nil, e.park(ctx, rec, model.StateResearchFailed, err)
		}
		return nil, err
	}
	if err := e.stores.Analyses().Create(ctx, analysis); err != nil {
		return nil, fmt.Errorf("persisting analysis: %w", err)
	}

	digest, err := e.curator.Curate(ctx, analysis)
	if err != nil {
		if errors.Is(err, curator.ErrEmptyDigest) {
			return nil, e.park(ctx, rec, model.StateResearchFailed, err)
		}
		return nil, err
	}
	if err := e.stores.Digests().Create(ctx, digest); err != nil {
		return nil, fmt.Errorf("persisting digest: %w", err)
	}

	doc, err := e.research.Research(ctx, sub, analysis, digest, false)
	if err != nil {
		if errors.Is(err, research.ErrResearchFailed) {
			return nil, e.park(ctx, rec, model.StateResearchFailed, err)
		}
		return nil, err
	}

	if err := e.tx.WithTx(ctx, func(stores StoreProvider) error {
		if err := stores.Research().Create(ctx, doc); err != nil {
			return err
		}
		if err := state.Apply(rec, model.StateResearched, ""); err != nil {
			return err
		}
		return stores.States().Upsert(ctx, rec)
	}); err != nil {
		return nil, fmt.Errorf("committing research: %w", err)
	}

	return doc, nil
}

// scorePhase judges a researched submission and appends the round's score
// record, transitioning the state in the same transaction. A single
// submission is a batch of one for normalization purposes; cohort
// normalization goes through ScoreBatch.
func (e *Evaluator) scorePhase(ctx context.Context, sub model.Submission, rec *model.StateRecord, doc *model.ResearchDocument, round int, communityScore *float64) error {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Stage: logger.Ptr("scoring")})

	perPersona, err := e.judge.Score(ctx, sub, doc)
	if err != nil {
		return err
	}

	normalized := scoring.Normalize([]float64{scoring.RoundTotal(perPersona)})
	record := scoring.BuildRecord(sub.ID, round, perPersona, normalized[0], communityScore)

	target := model.StateScored
	if round == 2 {
		target = model.StateCompleted
	}

	if err := e.tx.WithTx(ctx, func(stores StoreProvider) error {
		if err := stores.Scores().Append(ctx, &record); err != nil {
			return err
		}
		if err := state.Apply(rec, target, ""); err != nil {
			return err
		}
		return stores.States().Upsert(ctx, rec)
	}); err != nil {
		return fmt.Errorf("committing scores: %w", err)
	}

	slog.InfoContext(ctx, "submission scored",
		"round", round,
		"round_total", record.RoundTotal,
		"final_score", record.FinalScore)
	return nil
}

// ScoreBatch scores a cohort together so normalization sees the whole
// round. Judging happens per submission before any record is written; a
// judge failure anywhere aborts the batch untouched.
func (e *Evaluator) ScoreBatch(ctx context.Context, round int, submissionIDs []int64, communityScores map[int64]float64) error {
	type judged struct {
		sub        model.Submission
		rec        *model.StateRecord
		perPersona map[model.Persona]model.PersonaScore
	}

	expect := model.StateResearched
	target := model.StateScored
	if round == 2 {
		expect = model.StateCommunityVoting
		target = model.StateCompleted
	}

	batch := make([]judged, 0, len(submissionIDs))
	totals := make([]float64, 0, len(submissionIDs))

	for _, id := range submissionIDs {
		sub, err := e.stores.Submissions().GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("submission %d: %w", id, err)
		}
		rec, err := e.stores.States().Get(ctx, id)
		if err != nil {
			return fmt.Errorf("submission %d state: %w", id, err)
		}
		if rec.State != expect {
			return fmt.Errorf("submission %d in state %s, want %s", id, rec.State, expect)
		}
		doc, err := e.stores.Research().LatestBySubmission(ctx, id)
		if err != nil {
			return fmt.Errorf("submission %d research: %w", id, err)
		}
		perPersona, err := e.judge.Score(ctx, *sub, doc)
		if err != nil {
			return fmt.Errorf("judging submission %d: %w", id, err)
		}
		batch = append(batch, judged{sub: *sub, rec: rec, perPersona: perPersona})
		totals = append(totals, scoring.RoundTotal(perPersona))
	}

	normalized := scoring.Normalize(totals)

	for i, j := range batch {
		var communityScore *float64
		if round == 2 {
			if score, ok := communityScores[j.sub.ID]; ok {
				communityScore = &score
			} else {
				zero := 0.0
				communityScore = &zero
			}
		}
		record := scoring.BuildRecord(j.sub.ID, round, j.perPersona, normalized[i], communityScore)

		if err := e.tx.WithTx(ctx, func(stores StoreProvider) error {
			if err := stores.Scores().Append(ctx, &record); err != nil {
				return err
			}
			if err := state.Apply(j.rec, target, ""); err != nil {
				return err
			}
			return stores.States().Upsert(ctx, j.rec)
		}); err != nil {
			return fmt.Errorf("committing submission %d: %w", j.sub.ID, err)
		}
	}

	slog.InfoContext(ctx, "batch scored", "round", round, "size", len(batch))
	return nil
}

// ParkFailure moves a submission into the failure sidecar matching where
// its work stalled. The worker calls this when a task exhausts its retries.
func (e *Evaluator) ParkFailure(ctx context.Context, submissionID int64, reason string) error {
	rec, err := e.stores.States().Get(ctx, submissionID)
	if err != nil {
		return fmt.Errorf("loading state: %w", err)
	}
	if rec.State.Failed() {
		return nil
	}

	var target model.SubmissionState
	switch rec.State {
	case model.StateSubmitted:
		target = model.StateResearchFailed
	case model.StateResearched, model.StateCommunityVoting:
		target = model.StateScoringFailed
	default:
		// Past the failing stages already; nothing to park.
		return nil
	}

	if err := state.Apply(rec, target, reason); err != nil {
		return err
	}
	return e.stores.States().Upsert(ctx, rec)
}

func (e *Evaluator) loadOrInitState(ctx context.Context, submissionID int64) (*model.StateRecord, error) {
	rec, err := e.stores.States().Get(ctx, submissionID)
	if errors.Is(err, store.ErrNotFound) {
		rec = &model.StateRecord{
			SubmissionID: submissionID,
			State:        model.StateSubmitted,
			UpdatedAt:    time.Now().UTC(),
		}
		if err := e.stores.States().Upsert(ctx, rec); err != nil {
			return nil, fmt.Errorf("initializing state: %w", err)
		}
		return rec, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading state: %w", err)
	}
	return rec, nil
}

// park writes a failure sidecar transition and returns ErrTerminalFailure
// so the caller acks instead of retrying.
func (e *Evaluator) park(ctx context.Context, rec *model.StateRecord, target model.SubmissionState, cause error) error {
	if err := state.Apply(rec, target, cause.Error()); err != nil {
		return fmt.Errorf("parking failure: %w", err)
	}
	if err := e.stores.States().Upsert(ctx, rec); err != nil {
		return fmt.Errorf("persisting failure state: %w", err)
	}
	slog.WarnContext(ctx, "submission parked in failure state",
		"state", target, "reason", cause.Error())
	return fmt.Errorf("%w: %v", ErrTerminalFailure, cause)
}

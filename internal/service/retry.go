package service

import (
	"context"
	"fmt"
	"log/slog"

	"codearena.app/arbiter/common/logger"
	"codearena.app/arbiter/internal/model"
	"codearena.app/arbiter/internal/queue"
	"codearena.app/arbiter/internal/state"
	"codearena.app/arbiter/internal/store"
)

// RetryService re-enters parked submissions into the pipeline: the state
// rolls back to the origin recorded at failure time, then a matching task
// is enqueued.
type RetryService struct {
	stores   *store.Stores
	producer queue.Producer
}

func NewRetryService(stores *store.Stores, producer queue.Producer) *RetryService {
	return &RetryService{stores: stores, producer: producer}
}

// Retry rolls a failed submission back and re-enqueues its work.
// communityScore is required when the retry re-enters community voting.
func (s *RetryService) Retry(ctx context.Context, submissionID int64, communityScore *float64) error {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		SubmissionID: logger.Ptr(submissionID),
		Component:    "arbiter.retry",
	})

	rec, err := s.stores.States().Get(ctx, submissionID)
	if err != nil {
		return fmt.Errorf("loading state: %w", err)
	}

	target, err := state.RetryTarget(rec)
	if err != nil {
		return err
	}

	task := queue.Task{SubmissionID: submissionID}
	switch target {
	case model.StateSubmitted, model.StateResearched:
		task.TaskType = queue.TaskTypeEvaluateRound1
	case model.StateCommunityVoting:
		if communityScore == nil {
			return fmt.Errorf("retry into %s requires a community score", target)
		}
		task.TaskType = queue.TaskTypeEvaluateRound2
		task.CommunityScore = communityScore
	default:
		return fmt.Errorf("no task for retry target %s", target)
	}

	if err := state.Apply(rec, target, ""); err != nil {
		return err
	}
	if err := s.stores.States().Upsert(ctx, rec); err != nil {
		return fmt.Errorf("persisting retry state: %w", err)
	}

	if err := s.producer.Enqueue(ctx, task); err != nil {
		return fmt.Errorf("enqueueing retry: %w", err)
	}

	slog.InfoContext(ctx, "submission retry enqueued", "target_state", target, "task_type", task.TaskType)
	return nil
}

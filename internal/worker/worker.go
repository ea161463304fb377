// Package worker consumes evaluation tasks from the Redis stream and drives
// the pipeline. Retryable failures are requeued with an attempt counter;
// exhausted or terminal failures ack the message and park the submission.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"codearena.app/arbiter/common/logger"
	"codearena.app/arbiter/internal/queue"
	"codearena.app/arbiter/internal/service"
)

// Pipeline is the set of Evaluator operations the worker dispatches to.
type Pipeline interface {
	EvaluateRound1(ctx context.Context, submissionID int64) error
	EvaluateRound2(ctx context.Context, submissionID int64, communityScore float64) error
	RefreshResearch(ctx context.Context, submissionID int64) error
	ScoreBatch(ctx context.Context, round int, submissionIDs []int64, communityScores map[int64]float64) error
	ParkFailure(ctx context.Context, submissionID int64, reason string) error
}

type Config struct {
	MaxAttempts int
	PoolSize    int
}

type Worker struct {
	consumer *queue.RedisConsumer
	pipeline Pipeline
	cfg      Config

	stopCh    chan struct{}
	stoppedCh chan struct{}
}

func New(consumer *queue.RedisConsumer, pipeline Pipeline, cfg Config) *Worker {
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = 1
	}
	return &Worker{
		consumer:  consumer,
		pipeline:  pipeline,
		cfg:       cfg,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

// Run starts the consumer pool and blocks until Stop or context cancel.
// Each goroutine reads from the shared consumer group, so Redis spreads
// tasks across the pool.
func (w *Worker) Run(ctx context.Context) error {
	defer close(w.stoppedCh)

	slog.InfoContext(ctx, "worker started", "pool_size", w.cfg.PoolSize)

	var wg sync.WaitGroup
	for i := 0; i < w.cfg.PoolSize; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.runLoop(ctx)
		}()
	}
	wg.Wait()
	return ctx.Err()
}

func (w *Worker) runLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		default:
			if err := w.processOneBatch(ctx); err != nil {
				slog.ErrorContext(ctx, "batch processing error", "error", err)
				// Brief backoff on error
				time.Sleep(time.Second)
			}
		}
	}
}

func (w *Worker) Stop() {
	close(w.stopCh)
	<-w.stoppedCh
}

func (w *Worker) processOneBatch(ctx context.Context) error {
	messages, err := w.consumer.Read(ctx)
	if err != nil {
		return fmt.Errorf("reading from stream: %w", err)
	}

	for _, msg := range messages {
		if err := w.processMessageSafe(ctx, msg); err != nil {
			slog.ErrorContext(ctx, "message processing failed",
				"error", err,
				"message_id", msg.ID,
				"submission_id", msg.SubmissionID)
			w.handleFailedMessage(ctx, msg, err)
		}
	}

	return nil
}

func (w *Worker) processMessageSafe(ctx context.Context, msg queue.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "panic recovered in message processing",
				"panic", r,
				"message_id", msg.ID,
				"submission_id", msg.SubmissionID)
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return w.ProcessMessage(ctx, msg)
}

// ProcessMessage dispatches one task. Exported so it can be reused by the
// reclaimer.
func (w *Worker) ProcessMessage(ctx context.Context, msg queue.Message) error {
	span := logger.StartSpanFromTraceID(ctx, msg.TraceID, "worker.process_task")
	defer span.End()
	ctx = logger.WithLogFields(span.Context(), logger.LogFields{
		SubmissionID: logger.Ptr(msg.SubmissionID),
		MessageID:    &msg.ID,
	})

	slog.InfoContext(ctx, "processing task",
		"task_type", msg.TaskType,
		"attempt", msg.Attempt)

	var err error
	switch msg.TaskType {
	case queue.TaskTypeEvaluateRound1:
		err = w.pipeline.EvaluateRound1(ctx, msg.SubmissionID)
	case queue.TaskTypeEvaluateRound2:
		err = w.pipeline.EvaluateRound2(ctx, msg.SubmissionID, *msg.CommunityScore)
	case queue.TaskTypeRefreshResearch:
		err = w.pipeline.RefreshResearch(ctx, msg.SubmissionID)
	case queue.TaskTypeScoreBatch:
		err = w.pipeline.ScoreBatch(ctx, msg.Round, msg.SubmissionIDs, msg.CommunityScores)
	default:
		// Parser guarantees a known type; treat anything else as a no-op.
		err = nil
	}

	if errors.Is(err, service.ErrTerminalFailure) {
		// The submission is already parked; retrying the message would
		// only repeat the same failure.
		span.RecordError(err)
		slog.WarnContext(ctx, "task failed terminally", "error", err)
		return w.consumer.Ack(ctx, msg)
	}
	if err != nil {
		span.RecordError(err)
		return err
	}

	if err := w.consumer.Ack(ctx, msg); err != nil {
		// Message will be reclaimed, and reprocessing is state-guarded.
		slog.WarnContext(ctx, "failed to ACK message",
			"error", err,
			"message_id", msg.ID)
	}
	return nil
}

func (w *Worker) handleFailedMessage(ctx context.Context, msg queue.Message, err error) {
	if msg.Attempt >= w.cfg.MaxAttempts {
		slog.ErrorContext(ctx, "max attempts reached, sending to DLQ",
			"message_id", msg.ID,
			"submission_id", msg.SubmissionID,
			"attempts", msg.Attempt)
		// Batch tasks carry no single submission to park; the DLQ entry
		// is the record of the failed cohort.
		if msg.SubmissionID != 0 {
			if parkErr := w.pipeline.ParkFailure(ctx, msg.SubmissionID, err.Error()); parkErr != nil {
				slog.ErrorContext(ctx, "failed to park submission", "error", parkErr)
			}
		}
		if dlqErr := w.consumer.SendDLQ(ctx, msg, err.Error()); dlqErr != nil {
			slog.ErrorContext(ctx, "failed to send to DLQ", "error", dlqErr)
		}
		return
	}

	slog.WarnContext(ctx, "requeuing failed message",
		"message_id", msg.ID,
		"submission_id", msg.SubmissionID,
		"attempt", msg.Attempt)
	if requeueErr := w.consumer.Requeue(ctx, msg, err.Error()); requeueErr != nil {
		slog.ErrorContext(ctx, "failed to requeue message", "error", requeueErr)
	}
}

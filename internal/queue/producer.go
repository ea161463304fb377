package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
)

type Producer interface {
	Enqueue(ctx context.Context, task Task) error
	Close() error
}

type redisProducer struct {
	client *redis.Client
	stream string
	logger *slog.Logger
}

func NewRedisProducer(client *redis.Client, stream string, logger *slog.Logger) Producer {
	if logger == nil {
		logger = slog.Default()
	}
	return &redisProducer{
		client: client,
		stream: stream,
		logger: logger,
	}
}

func (p *redisProducer) Enqueue(ctx context.Context, task Task) error {
	attempt := task.Attempt
	if attempt <= 0 {
		attempt = 1
	}

	fields := map[string]any{
		"task_type": string(task.TaskType),
		"attempt":   attempt,
	}

	if task.TaskType == TaskTypeScoreBatch {
		fields["submission_ids"] = joinIDs(task.SubmissionIDs)
		fields["round"] = task.Round
		if task.CommunityScores != nil {
			fields["community_scores"] = encodeScores(task.CommunityScores)
		}
	} else {
		fields["submission_id"] = task.SubmissionID
		if task.CommunityScore != nil {
			fields["community_score"] = *task.CommunityScore
		}
	}

	if task.TraceID != nil && *task.TraceID != "" {
		fields["trace_id"] = *task.TraceID
	}

	if err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: fields,
	}).Err(); err != nil {
		return fmt.Errorf("enqueue task: %w", err)
	}

	if task.TaskType == TaskTypeScoreBatch {
		p.logger.InfoContext(ctx, "enqueued batch scoring task",
			"round", task.Round,
			"batch_size", len(task.SubmissionIDs),
			"attempt", attempt)
	} else {
		p.logger.InfoContext(ctx, "enqueued evaluation task",
			"task_type", task.TaskType,
			"submission_id", task.SubmissionID,
			"attempt", attempt)
	}
	return nil
}

func (p *redisProducer) Close() error {
	return p.client.Close()
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

// encodeScores renders the score map as JSON with string keys, the only map
// shape a Redis stream field can carry.
func encodeScores(scores map[int64]float64) string {
	keyed := make(map[string]float64, len(scores))
	for id, score := range scores {
		keyed[strconv.FormatInt(id, 10)] = score
	}
	data, _ := json.Marshal(keyed)
	return string(data)
}

package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"codearena.app/arbiter/core/db"
	"codearena.app/arbiter/internal/model"
)

type stateStore struct {
	q db.Querier
}

func (s *stateStore) Get(ctx context.Context, submissionID int64) (*model.StateRecord, error) {
	row := s.q.QueryRow(ctx, `
		SELECT submission_id, state, failure_reason, failed_from, updated_at
		FROM submission_states WHERE submission_id = $1`, submissionID)

	var record model.StateRecord
	err := row.Scan(&record.SubmissionID, &record.State, &record.FailureReason,
		&record.FailedFrom, &record.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *stateStore) Upsert(ctx context.Context, record *model.StateRecord) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO submission_states (submission_id, state, failure_reason, failed_from, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (submission_id) DO UPDATE
		SET state = EXCLUDED.state,
		    failure_reason = EXCLUDED.failure_reason,
		    failed_from = EXCLUDED.failed_from,
		    updated_at = EXCLUDED.updated_at`,
		record.SubmissionID, record.State, record.FailureReason,
		record.FailedFrom, record.UpdatedAt)
	return err
}

func (s *stateStore) ListByState(ctx context.Context, state model.SubmissionState, limit int) ([]model.StateRecord, error) {
	rows, err := s.q.Query(ctx, `
		SELECT submission_id, state, failure_reason, failed_from, updated_at
		FROM submission_states
		WHERE state = $1 ORDER BY updated_at ASC LIMIT $2`, state, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []model.StateRecord
	for rows.Next() {
		var record model.StateRecord
		if err := rows.Scan(&record.SubmissionID, &record.State, &record.FailureReason,
			&record.FailedFrom, &record.UpdatedAt); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

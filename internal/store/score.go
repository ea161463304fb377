package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"codearena.app/arbiter/core/db"
	"codearena.app/arbiter/internal/model"
)

type scoreStore struct {
	q db.Querier
}

func (s *scoreStore) Append(ctx context.Context, record *model.ScoreRecord) error {
	perPersona, err := json.Marshal(record.PerPersona)
	if err != nil {
		return fmt.Errorf("encoding persona scores: %w", err)
	}
	_, err = s.q.Exec(ctx, `
		INSERT INTO score_records (id, submission_id, round, per_persona, round_total, community_bonus, final_score, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		record.ID, record.SubmissionID, record.Round, perPersona,
		record.RoundTotal, record.CommunityBonus, record.FinalScore, record.CreatedAt)
	return err
}

func (s *scoreStore) GetByRound(ctx context.Context, submissionID int64, round int) (*model.ScoreRecord, error) {
	row := s.q.QueryRow(ctx, `
		SELECT id, submission_id, round, per_persona, round_total, community_bonus, final_score, created_at
		FROM score_records
		WHERE submission_id = $1 AND round = $2 ORDER BY created_at DESC, id DESC LIMIT 1`,
		submissionID, round)
	return scanScoreRecord(row)
}

func (s *scoreStore) ListBySubmission(ctx context.Context, submissionID int64) ([]model.ScoreRecord, error) {
	rows, err := s.q.Query(ctx, `
		SELECT id, submission_id, round, per_persona, round_total, community_bonus, final_score, created_at
		FROM score_records
		WHERE submission_id = $1 ORDER BY round ASC, created_at ASC`, submissionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []model.ScoreRecord
	for rows.Next() {
		record, err := scanScoreRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	return records, rows.Err()
}

func scanScoreRecord(row pgx.Row) (*model.ScoreRecord, error) {
	var record model.ScoreRecord
	var perPersona []byte
	err := row.Scan(&record.ID, &record.SubmissionID, &record.Round, &perPersona,
		&record.RoundTotal, &record.CommunityBonus, &record.FinalScore, &record.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(perPersona, &record.PerPersona); err != nil {
		return nil, fmt.Errorf("decoding persona scores: %w", err)
	}
	return &record, nil
}

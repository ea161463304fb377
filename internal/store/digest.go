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

type digestStore struct {
	q db.Querier
}

func (s *digestStore) Create(ctx context.Context, digest *model.RepositoryDigest) error {
	plan, err := json.Marshal(digest.Plan)
	if err != nil {
		return fmt.Errorf("encoding budget plan: %w", err)
	}
	_, err = s.q.Exec(ctx, `
		INSERT INTO repository_digests (submission_id, analysis_id, plan, content, token_count, truncated, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		digest.SubmissionID, digest.AnalysisID, plan, digest.Content,
		digest.TokenCount, digest.Truncated, digest.CreatedAt)
	return err
}

func (s *digestStore) LatestBySubmission(ctx context.Context, submissionID int64) (*model.RepositoryDigest, error) {
	row := s.q.QueryRow(ctx, `
		SELECT submission_id, analysis_id, plan, content, token_count, truncated, created_at
		FROM repository_digests
		WHERE submission_id = $1 ORDER BY created_at DESC LIMIT 1`, submissionID)

	var digest model.RepositoryDigest
	var plan []byte
	err := row.Scan(&digest.SubmissionID, &digest.AnalysisID, &plan, &digest.Content,
		&digest.TokenCount, &digest.Truncated, &digest.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(plan, &digest.Plan); err != nil {
		return nil, fmt.Errorf("decoding budget plan: %w", err)
	}
	return &digest, nil
}

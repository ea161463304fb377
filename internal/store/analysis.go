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

type analysisStore struct {
	q db.Querier
}

// Analysis rows keep only lookup identifiers as columns; the document
// itself is stored as one JSONB blob.
func (s *analysisStore) Create(ctx context.Context, analysis *model.RepositoryAnalysis) error {
	body, err := json.Marshal(analysis)
	if err != nil {
		return fmt.Errorf("encoding analysis: %w", err)
	}
	_, err = s.q.Exec(ctx, `
		INSERT INTO repository_analyses (id, submission_id, body, analyzed_at)
		VALUES ($1, $2, $3, $4)`,
		analysis.ID, analysis.SubmissionID, body, analysis.AnalyzedAt)
	return err
}

func (s *analysisStore) GetByID(ctx context.Context, id int64) (*model.RepositoryAnalysis, error) {
	row := s.q.QueryRow(ctx, `SELECT body FROM repository_analyses WHERE id = $1`, id)
	return scanAnalysis(row)
}

func (s *analysisStore) LatestBySubmission(ctx context.Context, submissionID int64) (*model.RepositoryAnalysis, error) {
	row := s.q.QueryRow(ctx, `
		SELECT body FROM repository_analyses
		WHERE submission_id = $1 ORDER BY analyzed_at DESC, id DESC LIMIT 1`, submissionID)
	return scanAnalysis(row)
}

func scanAnalysis(row pgx.Row) (*model.RepositoryAnalysis, error) {
	var body []byte
	err := row.Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var analysis model.RepositoryAnalysis
	if err := json.Unmarshal(body, &analysis); err != nil {
		return nil, fmt.Errorf("decoding analysis: %w", err)
	}
	return &analysis, nil
}

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

type researchStore struct {
	q db.Querier
}

func (s *researchStore) Create(ctx context.Context, doc *model.ResearchDocument) error {
	record, err := json.Marshal(doc.Record)
	if err != nil {
		return fmt.Errorf("encoding research record: %w", err)
	}
	_, err = s.q.Exec(ctx, `
		INSERT INTO research_documents (id, submission_id, cache_key, record, model, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		doc.ID, doc.SubmissionID, doc.CacheKey, record, doc.Model, doc.CreatedAt)
	return err
}

func (s *researchStore) LatestBySubmission(ctx context.Context, submissionID int64) (*model.ResearchDocument, error) {
	row := s.q.QueryRow(ctx, `
		SELECT id, submission_id, cache_key, record, model, created_at
		FROM research_documents
		WHERE submission_id = $1 ORDER BY created_at DESC, id DESC LIMIT 1`, submissionID)

	var doc model.ResearchDocument
	var record []byte
	err := row.Scan(&doc.ID, &doc.SubmissionID, &doc.CacheKey, &record, &doc.Model, &doc.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(record, &doc.Record); err != nil {
		return nil, fmt.Errorf("decoding research record: %w", err)
	}
	return &doc, nil
}

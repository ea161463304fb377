package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"codearena.app/arbiter/core/db"
	"codearena.app/arbiter/internal/model"
)

type submissionStore struct {
	q db.Querier
}

func (s *submissionStore) GetByID(ctx context.Context, id int64) (*model.Submission, error) {
	row := s.q.QueryRow(ctx, `
		SELECT id, project_name, team_name, description, tech_stack, repository_url, submitted_at
		FROM submissions WHERE id = $1`, id)

	var sub model.Submission
	err := row.Scan(&sub.ID, &sub.ProjectName, &sub.TeamName, &sub.Description,
		&sub.TechStack, &sub.RepositoryURL, &sub.SubmittedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (s *submissionStore) Create(ctx context.Context, sub *model.Submission) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO submissions (id, project_name, team_name, description, tech_stack, repository_url, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		sub.ID, sub.ProjectName, sub.TeamName, sub.Description,
		sub.TechStack, sub.RepositoryURL, sub.SubmittedAt)
	return err
}

func (s *submissionStore) List(ctx context.Context, limit, offset int) ([]model.Submission, error) {
	rows, err := s.q.Query(ctx, `
		SELECT id, project_name, team_name, description, tech_stack, repository_url, submitted_at
		FROM submissions ORDER BY submitted_at DESC, id DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []model.Submission
	for rows.Next() {
		var sub model.Submission
		if err := rows.Scan(&sub.ID, &sub.ProjectName, &sub.TeamName, &sub.Description,
			&sub.TechStack, &sub.RepositoryURL, &sub.SubmittedAt); err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// Package store is the persistence layer. Stores accept a db.Querier, so
// the same implementations run against the pool or inside a transaction.
package store

import (
	"context"
	"errors"

	"codearena.app/arbiter/internal/model"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// SubmissionStore defines the contract for submission data access. The
// pipeline treats submissions as read-only input owned by the intake
// system; Create exists for intake and tooling.
type SubmissionStore interface {
	GetByID(ctx context.Context, id int64) (*model.Submission, error)
	Create(ctx context.Context, sub *model.Submission) error
	List(ctx context.Context, limit, offset int) ([]model.Submission, error)
}

// AnalysisStore defines the contract for repository analysis data access.
// Analyses are versioned: every run inserts a new row.
type AnalysisStore interface {
	Create(ctx context.Context, analysis *model.RepositoryAnalysis) error
	GetByID(ctx context.Context, id int64) (*model.RepositoryAnalysis, error)
	LatestBySubmission(ctx context.Context, submissionID int64) (*model.RepositoryAnalysis, error)
}

// DigestStore defines the contract for repository digest data access.
type DigestStore interface {
	Create(ctx context.Context, digest *model.RepositoryDigest) error
	LatestBySubmission(ctx context.Context, submissionID int64) (*model.RepositoryDigest, error)
}

// ResearchStore defines the contract for research document data access.
// Documents are versioned alongside the cache: a force refresh inserts a
// new row rather than updating the old one.
type ResearchStore interface {
	Create(ctx context.Context, doc *model.ResearchDocument) error
	LatestBySubmission(ctx context.Context, submissionID int64) (*model.ResearchDocument, error)
}

// ScoreStore defines the contract for score record data access. Records
// are append-only; there is no update or delete.
type ScoreStore interface {
	Append(ctx context.Context, record *model.ScoreRecord) error
	GetByRound(ctx context.Context, submissionID int64, round int) (*model.ScoreRecord, error)
	ListBySubmission(ctx context.Context, submissionID int64) ([]model.ScoreRecord, error)
}

// StateStore defines the contract for submission state data access.
type StateStore interface {
	Get(ctx context.Context, submissionID int64) (*model.StateRecord, error)
	Upsert(ctx context.Context, record *model.StateRecord) error
	ListByState(ctx context.Context, state model.SubmissionState, limit int) ([]model.StateRecord, error)
}

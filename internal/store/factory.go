package store

import (
	"codearena.app/arbiter/core/db"
)

// Stores bundles every store over one Querier. Build a second Stores over a
// pgx.Tx to make a group of writes atomic.
type Stores struct {
	q db.Querier
}

func NewStores(q db.Querier) *Stores {
	return &Stores{q: q}
}

func (s *Stores) Submissions() SubmissionStore {
	return &submissionStore{q: s.q}
}

func (s *Stores) Analyses() AnalysisStore {
	return &analysisStore{q: s.q}
}

func (s *Stores) Digests() DigestStore {
	return &digestStore{q: s.q}
}

func (s *Stores) Research() ResearchStore {
	return &researchStore{q: s.q}
}

func (s *Stores) Scores() ScoreStore {
	return &scoreStore{q: s.q}
}

func (s *Stores) States() StateStore {
	return &stateStore{q: s.q}
}

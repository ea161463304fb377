package model

import "time"

// RelevanceTier classifies how likely a repository file is to matter for
// evaluation. Tiers order high > medium-high > medium > low.
type RelevanceTier string

const (
	TierHigh       RelevanceTier = "high"
	TierMediumHigh RelevanceTier = "medium-high"
	TierMedium     RelevanceTier = "medium"
	TierLow        RelevanceTier = "low"
)

// Rank returns the tier's position for ordering, highest first.
func (t RelevanceTier) Rank() int {
	switch t {
	case TierHigh:
		return 0
	case TierMediumHigh:
		return 1
	case TierMedium:
		return 2
	default:
		return 3
	}
}

// RedFlag is a structural anomaly detected in a submitted repository.
// Red flags annotate the analysis for evaluator context; they never reject
// a submission on their own.
type RedFlag string

const (
	RedFlagStale                 RedFlag = "stale"
	RedFlagDependencyBloat       RedFlag = "dependency-bloat"
	RedFlagBoilerplateHeavy      RedFlag = "boilerplate-heavy"
	RedFlagMinimalImplementation RedFlag = "minimal-implementation"
	RedFlagBulkUploadPattern     RedFlag = "bulk-upload-pattern"
)

// ManifestEntry is one file in the repository tree with its relevance label.
// Tree listings carry no per-blob sizes, so entries are path and tier only;
// repository volume comes from the project statistics.
type ManifestEntry struct {
	Path string        `json:"path"`
	Tier RelevanceTier `json:"tier"`
}

// LanguageStats aggregates per-language file counts and estimated lines.
type LanguageStats struct {
	Files int   `json:"files"`
	Lines int64 `json:"lines"`
}

// CommitTimelineSummary condenses the repository's commit history into the
// signals the red-flag detectors and research prompt need.
type CommitTimelineSummary struct {
	CommitCount     int        `json:"commit_count"`
	AuthorCount     int        `json:"author_count"`
	FirstCommitAt   *time.Time `json:"first_commit_at,omitempty"`
	LastCommitAt    *time.Time `json:"last_commit_at,omitempty"`
	CommitsInWindow int        `json:"commits_in_window"` // commits inside the competition window
}

// RepositoryAnalysis is the Repository Analyzer's output. Analyses are
// never mutated in place: recomputation writes a new version with a fresh
// AnalyzedAt timestamp.
type RepositoryAnalysis struct {
	ID                int64                    `json:"id"`
	SubmissionID      int64                    `json:"submission_id"`
	ProjectPath       string                   `json:"project_path"`
	DefaultRef        string                   `json:"default_ref"`
	FileManifest      []ManifestEntry          `json:"file_manifest"`
	LanguageBreakdown map[string]LanguageStats `json:"language_breakdown"`
	CommitTimeline    CommitTimelineSummary    `json:"commit_timeline"`
	RedFlags          []RedFlag                `json:"red_flags"`
	RepoCreatedAt     *time.Time               `json:"repo_created_at,omitempty"`
	RepoUpdatedAt     *time.Time               `json:"repo_updated_at,omitempty"`
	License           string                   `json:"license,omitempty"`
	RepoSizeBytes     int64                    `json:"repo_size_bytes"`
	ContributorCount  int                      `json:"contributor_count"`
	AnalyzedAt        time.Time                `json:"analyzed_at"`
}

// HasRedFlag reports whether the analysis carries the given flag.
func (a *RepositoryAnalysis) HasRedFlag(flag RedFlag) bool {
	for _, f := range a.RedFlags {
		if f == flag {
			return true
		}
	}
	return false
}

// SourceFileCount counts manifest entries in the high and medium-high tiers.
func (a *RepositoryAnalysis) SourceFileCount() int {
	n := 0
	for _, e := range a.FileManifest {
		if e.Tier == TierHigh || e.Tier == TierMediumHigh {
			n++
		}
	}
	return n
}

package model

import "time"

// SizeTier buckets repositories by file count and source volume. The tier
// determines the digest's token ceiling via a monotonic step function.
type SizeTier string

const (
	SizeTierSmall     SizeTier = "small"
	SizeTierMedium    SizeTier = "medium"
	SizeTierLarge     SizeTier = "large"
	SizeTierVeryLarge SizeTier = "very_large"
)

// MaxTokens returns the context budget ceiling for the tier.
func (t SizeTier) MaxTokens() int {
	switch t {
	case SizeTierSmall:
		return 64_000
	case SizeTierMedium:
		return 90_000
	case SizeTierLarge:
		return 130_000
	default:
		return 170_000
	}
}

// PlanSource records which stage produced the budget plan. The agentic
// refinement stage is best-effort; a failed refinement yields the default
// plan as a first-class result, not an error.
type PlanSource string

const (
	PlanSourceDefault PlanSource = "default"
	PlanSourceRefined PlanSource = "refined"
)

// ContextBudgetPlan bounds what the Context Curator may include in a digest.
type ContextBudgetPlan struct {
	SizeTier        SizeTier   `json:"size_tier"`
	MaxTokens       int        `json:"max_tokens"`
	IncludePatterns []string   `json:"include_patterns,omitempty"`
	ExcludePatterns []string   `json:"exclude_patterns,omitempty"`
	MaxFileBytes    int64      `json:"max_file_bytes"`
	Rationale       string     `json:"rationale,omitempty"`
	Source          PlanSource `json:"source"`
}

// RepositoryDigest is the curated repository text destined for the research
// prompt, with its measured token count. Truncated is set when any eligible
// file was skipped purely for budget reasons.
type RepositoryDigest struct {
	SubmissionID int64     `json:"submission_id"`
	AnalysisID   int64     `json:"analysis_id"`
	Plan         ContextBudgetPlan `json:"plan"`
	Content      string    `json:"content"`
	TokenCount   int       `json:"token_count"`
	Truncated    bool      `json:"truncated"`
	CreatedAt    time.Time `json:"created_at"`
}

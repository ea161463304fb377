package model

import "time"

// SubmissionState tracks a submission's progress through the pipeline.
type SubmissionState string

const (
	StateSubmitted       SubmissionState = "submitted"
	StateResearched      SubmissionState = "researched"
	StateScored          SubmissionState = "scored"
	StateCommunityVoting SubmissionState = "community_voting"
	StateCompleted       SubmissionState = "completed"
	StatePublished       SubmissionState = "published"

	// Failure sidecar states. Both retain the failure reason and permit a
	// retry back into the state that originated the failed work.
	StateResearchFailed SubmissionState = "researched_failed"
	StateScoringFailed  SubmissionState = "scoring_failed"
)

// Failed reports whether the state is a failure sidecar.
func (s SubmissionState) Failed() bool {
	return s == StateResearchFailed || s == StateScoringFailed
}

// StateRecord is the persisted current state of a submission, with the
// retained failure reason when parked in a sidecar state.
type StateRecord struct {
	SubmissionID  int64            `json:"submission_id"`
	State         SubmissionState  `json:"state"`
	FailureReason *string          `json:"failure_reason,omitempty"`
	FailedFrom    *SubmissionState `json:"failed_from,omitempty"` // originating state a retry re-enters
	UpdatedAt     time.Time        `json:"updated_at"`
}

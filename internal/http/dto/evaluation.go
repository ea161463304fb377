package dto

import "time"

type Round2Request struct {
	CommunityScore float64 `json:"community_score" binding:"required,gte=0,lte=100"`
}

type RetryRequest struct {
	CommunityScore *float64 `json:"community_score,omitempty" binding:"omitempty,gte=0,lte=100"`
}

type AdvanceRequest struct {
	To string `json:"to" binding:"required"`
}

type EnqueueResponse struct {
	SubmissionID int64  `json:"submission_id"`
	TaskType     string `json:"task_type"`
	TraceID      string `json:"trace_id,omitempty"`
}

type StateResponse struct {
	SubmissionID  int64     `json:"submission_id"`
	State         string    `json:"state"`
	FailureReason *string   `json:"failure_reason,omitempty"`
	FailedFrom    *string   `json:"failed_from,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}

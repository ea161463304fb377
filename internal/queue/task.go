package queue

// TaskType selects the worker routine a message is dispatched to.
type TaskType string

const (
	TaskTypeEvaluateRound1  TaskType = "evaluate_round1"
	TaskTypeEvaluateRound2  TaskType = "evaluate_round2"
	TaskTypeRefreshResearch TaskType = "refresh_research"
	TaskTypeScoreBatch      TaskType = "score_batch"
)

// Task is an evaluation job to enqueue.
type Task struct {
	TaskType     TaskType
	SubmissionID int64
	TraceID      *string
	Attempt      int

	// CommunityScore in [0, 100] accompanies Round 2 evaluations.
	CommunityScore *float64

	// Batch scoring fields. SubmissionIDs is the cohort scored and
	// normalized together; CommunityScores maps submission IDs to their
	// community vote scores for a Round 2 batch.
	SubmissionIDs   []int64
	Round           int
	CommunityScores map[int64]float64
}

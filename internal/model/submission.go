package model

import "time"

// Submission is the intake system's record of a competition entry. This
// subsystem treats it as read-only input; it is never created or mutated
// here.
type Submission struct {
	ID            int64     `json:"id"`
	ProjectName   string    `json:"project_name"`
	TeamName      string    `json:"team_name,omitempty"`
	Description   string    `json:"description"`
	TechStack     string    `json:"tech_stack,omitempty"`
	RepositoryURL string    `json:"repository_url"`
	SubmittedAt   time.Time `json:"submitted_at"`
}

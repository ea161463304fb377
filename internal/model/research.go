package model

import "time"

// ResearchRecord is the fixed schema the research service must return.
// The jsonschema tags drive the tool-call schema sent to the model, so the
// wire contract and this struct cannot drift apart.
type ResearchRecord struct {
	TechnicalImplementation TechnicalImplementation `json:"technical_implementation" jsonschema:"required"`
	MarketAnalysis          MarketAnalysis          `json:"market_analysis" jsonschema:"required"`
	InnovationRating        InnovationRating        `json:"innovation_rating" jsonschema:"required"`
	OverallAssessment       OverallAssessment       `json:"overall_assessment" jsonschema:"required"`
}

type TechnicalImplementation struct {
	Score    float64  `json:"score" jsonschema:"required,minimum=0,maximum=10"`
	Analysis string   `json:"analysis" jsonschema:"required"`
	RedFlags []string `json:"red_flags"`
}

type MarketAnalysis struct {
	Competitors     []string `json:"competitors"`
	MarketSize      string   `json:"market_size"`
	Differentiation string   `json:"differentiation"`
}

type InnovationRating struct {
	Score          float64  `json:"score" jsonschema:"required,minimum=0,maximum=10"`
	NoveltyFactors []string `json:"novelty_factors"`
	TechUsage      string   `json:"tech_usage"`
}

type OverallAssessment struct {
	Score          float64  `json:"score" jsonschema:"required,minimum=0,maximum=10"`
	Strengths      []string `json:"strengths"`
	Weaknesses     []string `json:"weaknesses"`
	Recommendation string   `json:"recommendation"`
}

// ResearchDocument is a versioned, persisted research result.
type ResearchDocument struct {
	ID           int64          `json:"id"`
	SubmissionID int64          `json:"submission_id"`
	CacheKey     string         `json:"cache_key"`
	Record       ResearchRecord `json:"record"`
	Model        string         `json:"model,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

package research

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"codearena.app/arbiter/common/id"
	"codearena.app/arbiter/common/llm"
	"codearena.app/arbiter/common/logger"
	"codearena.app/arbiter/internal/model"
)

// Synthesizer performs the single research call per submission and parses
// its fixed-schema result. One malformed response earns exactly one retry
// with a corrective nudge; a second failure is ErrResearchFailed.
type Synthesizer struct {
	client  llm.AgentClient
	timeout time.Duration
}

func NewSynthesizer(client llm.AgentClient, timeout time.Duration) *Synthesizer {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Synthesizer{client: client, timeout: timeout}
}

func (s *Synthesizer) Synthesize(ctx context.Context, sub model.Submission, analysis *model.RepositoryAnalysis, digest *model.RepositoryDigest) (*model.ResearchDocument, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		SubmissionID: logger.Ptr(sub.ID),
		Component:    "arbiter.research",
	})

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	tool := llm.Tool{
		Name:        "submit_research",
		Description: "Submit the completed research report for this submission.",
		Parameters:  llm.GenerateSchemaFrom(model.ResearchRecord{}),
	}

	messages := []llm.Message{
		{Role: "system", Content: researchSystemPrompt},
		{Role: "user", Content: buildResearchPrompt(sub, analysis, digest)},
	}

	record, err := s.attempt(ctx, messages, tool)
	if err != nil {
		slog.WarnContext(ctx, "research response unusable, retrying once", "error", err)
		messages = append(messages,
			llm.Message{Role: "assistant", Content: "I could not produce a valid report."},
			llm.Message{Role: "user", Content: "Your previous response was not a valid submit_research call. Call submit_research exactly once with arguments matching the schema. Return only the tool call, no prose."},
		)
		record, err = s.attempt(ctx, messages, tool)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrResearchFailed, err)
		}
	}

	if err := validateRecord(record); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResearchFailed, err)
	}

	slog.InfoContext(ctx, "research synthesized",
		"technical_score", record.TechnicalImplementation.Score,
		"innovation_score", record.InnovationRating.Score,
		"overall_score", record.OverallAssessment.Score)

	return &model.ResearchDocument{
		ID:           id.New(),
		SubmissionID: sub.ID,
		Record:       record,
		Model:        s.client.Model(),
		CreatedAt:    time.Now().UTC(),
	}, nil
}

func (s *Synthesizer) attempt(ctx context.Context, messages []llm.Message, tool llm.Tool) (model.ResearchRecord, error) {
	args, _, err := llm.RequestStructured(ctx, s.client, llm.AgentRequest{
		Messages:  messages,
		Tools:     []llm.Tool{tool},
		MaxTokens: 8192,
	}, tool.Name)
	if err != nil {
		return model.ResearchRecord{}, err
	}
	return llm.ParseToolArguments[model.ResearchRecord](args)
}

func validateRecord(r model.ResearchRecord) error {
	for name, score := range map[string]float64{
		"technical_implementation": r.TechnicalImplementation.Score,
		"innovation_rating":        r.InnovationRating.Score,
		"overall_assessment":       r.OverallAssessment.Score,
	} {
		if score < 0 || score > 10 {
			return fmt.Errorf("%s score %.2f out of range", name, score)
		}
	}
	if r.TechnicalImplementation.Analysis == "" {
		return fmt.Errorf("technical analysis is empty")
	}
	return nil
}

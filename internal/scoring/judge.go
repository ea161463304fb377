// Package scoring turns research documents into score records: four fixed
// evaluator personas each score four criteria, weighted totals are averaged
// per round, and a batch normalization pulls round means toward the target
// before records are appended.
package scoring

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"codearena.app/arbiter/common/llm"
	"codearena.app/arbiter/common/logger"
	"codearena.app/arbiter/internal/model"
)

// personaProfiles gives each persona its judging voice. Weights live in the
// model package; this table only shapes the elicitation prompt.
var personaProfiles = map[model.Persona]string{
	model.PersonaInvestor:  "a venture investor deciding whether this project could return a fund. You care most about market potential and defensible innovation.",
	model.PersonaEngineer:  "a staff engineer reviewing the implementation. You care most about technical execution and whether the product actually works.",
	model.PersonaEconomist: "an economist assessing real-world viability. You care most about market fit and whether users would adopt this.",
	model.PersonaCommunity: "a longtime community member judging what excites builders. You care most about novelty and the experience of using it.",
}

// rawScoreParams is the schema of the submit_scores tool.
type rawScoreParams struct {
	Innovation         criterionScore `json:"innovation" jsonschema:"required"`
	TechnicalExecution criterionScore `json:"technical_execution" jsonschema:"required"`
	MarketPotential    criterionScore `json:"market_potential" jsonschema:"required"`
	UserExperience     criterionScore `json:"user_experience" jsonschema:"required"`
}

type criterionScore struct {
	Score    float64 `json:"score" jsonschema:"required,minimum=0,maximum=10"`
	Evidence string  `json:"evidence" jsonschema:"required,description=One or two sentences citing the research that justifies the score"`
}

// Judge elicits raw criterion scores from the model, one call per persona.
type Judge struct {
	client  llm.AgentClient
	timeout time.Duration
}

func NewJudge(client llm.AgentClient, timeout time.Duration) *Judge {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Judge{client: client, timeout: timeout}
}

// Score runs all four personas against the research document and returns
// raw scores with evidence. Weighting and normalization happen later in the
// pure math engine; the judge never sees weights.
func (j *Judge) Score(ctx context.Context, sub model.Submission, doc *model.ResearchDocument) (map[model.Persona]model.PersonaScore, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		SubmissionID: logger.Ptr(sub.ID),
		Component:    "arbiter.scoring",
	})

	scores := make(map[model.Persona]model.PersonaScore, len(model.AllPersonas))
	for _, persona := range model.AllPersonas {
		raw, evidence, err := j.scorePersona(ctx, persona, sub, doc)
		if err != nil {
			return nil, fmt.Errorf("persona %s: %w", persona, err)
		}
		scores[persona] = model.PersonaScore{
			Raw:           raw,
			Evidence:      evidence,
			WeightedTotal: WeightedTotal(persona, raw),
		}
	}
	return scores, nil
}

func (j *Judge) scorePersona(ctx context.Context, persona model.Persona, sub model.Submission, doc *model.ResearchDocument) (map[model.Criterion]float64, map[model.Criterion]string, error) {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	tool := llm.Tool{
		Name:        "submit_scores",
		Description: "Submit your scores for all four criteria.",
		Parameters:  llm.GenerateSchemaFrom(rawScoreParams{}),
	}

	args, _, err := llm.RequestStructured(ctx, j.client, llm.AgentRequest{
		Messages: []llm.Message{
			{Role: "system", Content: buildJudgeSystemPrompt(persona)},
			{Role: "user", Content: buildJudgePrompt(sub, doc)},
		},
		Tools:     []llm.Tool{tool},
		MaxTokens: 4096,
	}, tool.Name)
	if err != nil {
		return nil, nil, err
	}

	params, err := llm.ParseToolArguments[rawScoreParams](args)
	if err != nil {
		return nil, nil, err
	}

	raw := map[model.Criterion]float64{
		model.CriterionInnovation:         params.Innovation.Score,
		model.CriterionTechnicalExecution: params.TechnicalExecution.Score,
		model.CriterionMarketPotential:    params.MarketPotential.Score,
		model.CriterionUserExperience:     params.UserExperience.Score,
	}
	for criterion, score := range raw {
		if score < 0 || score > 10 {
			return nil, nil, fmt.Errorf("criterion %s score %.2f out of range", criterion, score)
		}
	}

	evidence := map[model.Criterion]string{
		model.CriterionInnovation:         params.Innovation.Evidence,
		model.CriterionTechnicalExecution: params.TechnicalExecution.Evidence,
		model.CriterionMarketPotential:    params.MarketPotential.Evidence,
		model.CriterionUserExperience:     params.UserExperience.Evidence,
	}

	slog.InfoContext(ctx, "persona scored", "persona", persona,
		"innovation", params.Innovation.Score,
		"technical_execution", params.TechnicalExecution.Score,
		"market_potential", params.MarketPotential.Score,
		"user_experience", params.UserExperience.Score)

	return raw, evidence, nil
}

func buildJudgeSystemPrompt(persona model.Persona) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are %s\n\n", personaProfiles[persona])
	sb.WriteString(`Score the submission on four criteria, each 0-10:
- innovation: novelty of the idea and of its technical approach.
- technical_execution: quality and completeness of the implementation.
- market_potential: size and reachability of the market.
- user_experience: how usable and polished the product is.

Base every score on the research report provided; cite it in your evidence.
Do not inflate scores out of politeness. Call submit_scores exactly once.`)
	return sb.String()
}

func buildJudgePrompt(sub model.Submission, doc *model.ResearchDocument) string {
	var sb strings.Builder
	r := doc.Record

	fmt.Fprintf(&sb, "# %s by %s\n\n%s\n", sub.ProjectName, sub.TeamName, sub.Description)

	sb.WriteString("\n# Research Report\n\n## Technical Implementation\n\n")
	fmt.Fprintf(&sb, "Score: %.1f/10\n\n%s\n", r.TechnicalImplementation.Score, r.TechnicalImplementation.Analysis)
	for _, f := range r.TechnicalImplementation.RedFlags {
		fmt.Fprintf(&sb, "- red flag: %s\n", f)
	}

	sb.WriteString("\n## Market Analysis\n\n")
	if len(r.MarketAnalysis.Competitors) > 0 {
		fmt.Fprintf(&sb, "Competitors: %s\n", strings.Join(r.MarketAnalysis.Competitors, ", "))
	}
	if r.MarketAnalysis.MarketSize != "" {
		fmt.Fprintf(&sb, "Market size: %s\n", r.MarketAnalysis.MarketSize)
	}
	if r.MarketAnalysis.Differentiation != "" {
		fmt.Fprintf(&sb, "Differentiation: %s\n", r.MarketAnalysis.Differentiation)
	}

	sb.WriteString("\n## Innovation\n\n")
	fmt.Fprintf(&sb, "Score: %.1f/10\n", r.InnovationRating.Score)
	for _, f := range r.InnovationRating.NoveltyFactors {
		fmt.Fprintf(&sb, "- %s\n", f)
	}
	if r.InnovationRating.TechUsage != "" {
		fmt.Fprintf(&sb, "\n%s\n", r.InnovationRating.TechUsage)
	}

	sb.WriteString("\n## Overall Assessment\n\n")
	fmt.Fprintf(&sb, "Score: %.1f/10\n", r.OverallAssessment.Score)
	for _, s := range r.OverallAssessment.Strengths {
		fmt.Fprintf(&sb, "+ %s\n", s)
	}
	for _, w := range r.OverallAssessment.Weaknesses {
		fmt.Fprintf(&sb, "- %s\n", w)
	}
	if r.OverallAssessment.Recommendation != "" {
		fmt.Fprintf(&sb, "\n%s\n", r.OverallAssessment.Recommendation)
	}

	return sb.String()
}

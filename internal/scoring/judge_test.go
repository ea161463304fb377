package scoring_test

import (
	"context"
	"encoding/json"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"codearena.app/arbiter/common/llm"
	"codearena.app/arbiter/internal/model"
	"codearena.app/arbiter/internal/scoring"
)

var _ = Describe("Judge", func() {
	var (
		ctx    context.Context
		client *mockAgentClient
		judge  *scoring.Judge
		sub    model.Submission
		doc    *model.ResearchDocument
	)

	scoresJSON := func(innovation, technical, market, ux float64) string {
		args := map[string]any{
			"innovation":          map[string]any{"score": innovation, "evidence": "novel approach"},
			"technical_execution": map[string]any{"score": technical, "evidence": "clean architecture"},
			"market_potential":    map[string]any{"score": market, "evidence": "crowded market"},
			"user_experience":     map[string]any{"score": ux, "evidence": "rough edges"},
		}
		raw, err := json.Marshal(args)
		Expect(err).NotTo(HaveOccurred())
		return string(raw)
	}

	BeforeEach(func() {
		ctx = context.Background()
		client = &mockAgentClient{}
		judge = scoring.NewJudge(client, 0)
		sub = model.Submission{ID: 7, ProjectName: "ledgerly", Description: "expense tracking"}
		doc = &model.ResearchDocument{
			SubmissionID: 7,
			Record: model.ResearchRecord{
				TechnicalImplementation: model.TechnicalImplementation{Score: 7, Analysis: "solid"},
				InnovationRating:        model.InnovationRating{Score: 6},
				OverallAssessment:       model.OverallAssessment{Score: 6.5},
			},
		}
	})

	It("elicits scores from all four personas", func() {
		client.chatFn = func(_ context.Context, req llm.AgentRequest) (*llm.AgentResponse, error) {
			return &llm.AgentResponse{
				ToolCalls: []llm.ToolCall{{Name: "submit_scores", Arguments: scoresJSON(8, 7, 6, 5)}},
			}, nil
		}

		scores, err := judge.Score(ctx, sub, doc)
		Expect(err).NotTo(HaveOccurred())
		Expect(scores).To(HaveLen(len(model.AllPersonas)))
		for _, persona := range model.AllPersonas {
			ps := scores[persona]
			Expect(ps.Raw[model.CriterionInnovation]).To(Equal(8.0))
			Expect(ps.Evidence[model.CriterionMarketPotential]).To(Equal("crowded market"))
			Expect(ps.WeightedTotal).To(BeNumerically("~", scoring.WeightedTotal(persona, ps.Raw), 1e-9))
		}
	})

	It("rejects out-of-range criterion scores", func() {
		client.chatFn = func(_ context.Context, req llm.AgentRequest) (*llm.AgentResponse, error) {
			return &llm.AgentResponse{
				ToolCalls: []llm.ToolCall{{Name: "submit_scores", Arguments: scoresJSON(11, 7, 6, 5)}},
			}, nil
		}

		_, err := judge.Score(ctx, sub, doc)
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("out of range"))
	})

	It("propagates transport errors with the persona name", func() {
		client.chatFn = func(_ context.Context, req llm.AgentRequest) (*llm.AgentResponse, error) {
			return nil, fmt.Errorf("rate limited")
		}

		_, err := judge.Score(ctx, sub, doc)
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("rate limited"))
	})

	It("fails when the model answers without the tool call", func() {
		client.chatFn = func(_ context.Context, req llm.AgentRequest) (*llm.AgentResponse, error) {
			return &llm.AgentResponse{Content: "I think it deserves an 8."}, nil
		}

		_, err := judge.Score(ctx, sub, doc)
		Expect(err).To(MatchError(llm.ErrNoToolCall))
	})
})

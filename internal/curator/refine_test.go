package curator_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"codearena.app/arbiter/common/llm"
	"codearena.app/arbiter/internal/curator"
	"codearena.app/arbiter/internal/model"
)

var _ = Describe("Refiner", func() {
	var (
		ctx      context.Context
		analysis *model.RepositoryAnalysis
		plan     model.ContextBudgetPlan
	)

	BeforeEach(func() {
		ctx = context.Background()
		analysis = &model.RepositoryAnalysis{
			SubmissionID: 42,
			FileManifest: []model.ManifestEntry{
				{Path: "src/a.ts", Tier: model.TierHigh},
				{Path: "docs/guide.md", Tier: model.TierMedium},
			},
		}
		plan = curator.DefaultPlan(analysis)
	})

	planCall := func(args string) *llm.AgentResponse {
		return &llm.AgentResponse{
			ToolCalls: []llm.ToolCall{{ID: "t1", Name: "submit_budget_plan", Arguments: args}},
		}
	}

	It("merges refined patterns and marks the plan refined", func() {
		client := &mockAgentClient{chatFn: func(ctx context.Context, req llm.AgentRequest) (*llm.AgentResponse, error) {
			Expect(req.Tools).To(HaveLen(1))
			Expect(req.Tools[0].Name).To(Equal("submit_budget_plan"))
			return planCall(`{
				"include_patterns": ["src/*"],
				"exclude_patterns": ["docs/*", "node_modules/*"],
				"rationale": "focus on application source"
			}`), nil
		}}

		refined := curator.NewRefiner(client, 0).Refine(ctx, analysis, plan)

		Expect(refined.Source).To(Equal(model.PlanSourceRefined))
		Expect(refined.IncludePatterns).To(Equal([]string{"src/*"}))
		Expect(refined.ExcludePatterns).To(ContainElement("docs/*"))
		Expect(refined.Rationale).To(Equal("focus on application source"))

		// node_modules/* was already in the heuristic set; the merge must
		// not duplicate it.
		count := 0
		for _, p := range refined.ExcludePatterns {
			if p == "node_modules/*" {
				count++
			}
		}
		Expect(count).To(Equal(1))

		// The token ceiling stays tier-determined.
		Expect(refined.SizeTier).To(Equal(plan.SizeTier))
		Expect(refined.MaxTokens).To(Equal(plan.MaxTokens))
		Expect(refined.MaxFileBytes).To(Equal(plan.MaxFileBytes))
	})

	It("falls back to the heuristic plan on transport failure", func() {
		client := &mockAgentClient{chatFn: func(ctx context.Context, req llm.AgentRequest) (*llm.AgentResponse, error) {
			return nil, errors.New("connection reset")
		}}

		refined := curator.NewRefiner(client, 0).Refine(ctx, analysis, plan)
		Expect(refined).To(Equal(plan))
		Expect(refined.Source).To(Equal(model.PlanSourceDefault))
	})

	It("falls back when the model answers in prose", func() {
		client := &mockAgentClient{chatFn: func(ctx context.Context, req llm.AgentRequest) (*llm.AgentResponse, error) {
			return &llm.AgentResponse{Content: "I would exclude the docs directory."}, nil
		}}

		refined := curator.NewRefiner(client, 0).Refine(ctx, analysis, plan)
		Expect(refined).To(Equal(plan))
	})

	It("falls back on malformed tool arguments", func() {
		client := &mockAgentClient{chatFn: func(ctx context.Context, req llm.AgentRequest) (*llm.AgentResponse, error) {
			return planCall(`{"exclude_patterns": not-json`), nil
		}}

		refined := curator.NewRefiner(client, 0).Refine(ctx, analysis, plan)
		Expect(refined).To(Equal(plan))
	})

	It("falls back when a returned glob is invalid", func() {
		client := &mockAgentClient{chatFn: func(ctx context.Context, req llm.AgentRequest) (*llm.AgentResponse, error) {
			return planCall(`{"exclude_patterns": ["[broken"], "rationale": "x"}`), nil
		}}

		refined := curator.NewRefiner(client, 0).Refine(ctx, analysis, plan)
		Expect(refined).To(Equal(plan))
	})

	It("is a no-op without a client", func() {
		var r *curator.Refiner
		Expect(r.Refine(ctx, analysis, plan)).To(Equal(plan))
	})
})

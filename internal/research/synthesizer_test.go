package research_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"codearena.app/arbiter/common/llm"
	"codearena.app/arbiter/internal/model"
	"codearena.app/arbiter/internal/research"
)

var _ = Describe("Synthesizer", func() {
	var (
		ctx      context.Context
		sub      model.Submission
		analysis *model.RepositoryAnalysis
		digest   *model.RepositoryDigest
	)

	BeforeEach(func() {
		ctx = context.Background()
		sub = model.Submission{
			ID:            42,
			ProjectName:   "chain-ledger",
			Description:   "On-chain settlement ledger",
			TechStack:     "TypeScript, Solidity",
			RepositoryURL: "https://gitlab.com/team/chain-ledger",
		}
		analysis = &model.RepositoryAnalysis{
			SubmissionID: 42,
			FileManifest: []model.ManifestEntry{{Path: "src/ledger.ts", Tier: model.TierHigh}},
			LanguageBreakdown: map[string]model.LanguageStats{
				"TypeScript": {Files: 1, Lines: 200},
			},
		}
		digest = &model.RepositoryDigest{
			SubmissionID: 42,
			Content:      "## src/ledger.ts\n\n```\nexport class Ledger {}\n```\n",
			TokenCount:   20,
		}
	})

	It("returns a parsed document on the first valid response", func() {
		calls := 0
		client := &mockAgentClient{chatFn: func(ctx context.Context, req llm.AgentRequest) (*llm.AgentResponse, error) {
			calls++
			Expect(req.Tools).To(HaveLen(1))
			Expect(req.Tools[0].Name).To(Equal("submit_research"))
			return researchCall(validResearchArgs), nil
		}}

		doc, err := research.NewSynthesizer(client, time.Minute).Synthesize(ctx, sub, analysis, digest)
		Expect(err).NotTo(HaveOccurred())
		Expect(calls).To(Equal(1))
		Expect(doc.ID).NotTo(BeZero())
		Expect(doc.SubmissionID).To(Equal(int64(42)))
		Expect(doc.Model).To(Equal("mock-researcher"))
		Expect(doc.Record.TechnicalImplementation.Score).To(Equal(7.5))
		Expect(doc.Record.OverallAssessment.Recommendation).To(Equal("advance"))
	})

	It("feeds the digest and repository stats into the prompt", func() {
		client := &mockAgentClient{chatFn: func(ctx context.Context, req llm.AgentRequest) (*llm.AgentResponse, error) {
			Expect(req.Messages[1].Content).To(ContainSubstring("chain-ledger"))
			Expect(req.Messages[1].Content).To(ContainSubstring("export class Ledger"))
			return researchCall(validResearchArgs), nil
		}}

		_, err := research.NewSynthesizer(client, time.Minute).Synthesize(ctx, sub, analysis, digest)
		Expect(err).NotTo(HaveOccurred())
	})

	It("instructs the model to pair every positive claim with a counter-risk", func() {
		client := &mockAgentClient{chatFn: func(ctx context.Context, req llm.AgentRequest) (*llm.AgentResponse, error) {
			Expect(req.Messages[0].Role).To(Equal("system"))
			Expect(req.Messages[0].Content).To(ContainSubstring("every positive claim must be defended with a concrete,\nevidence-referencing counter-risk"))
			return researchCall(validResearchArgs), nil
		}}

		_, err := research.NewSynthesizer(client, time.Minute).Synthesize(ctx, sub, analysis, digest)
		Expect(err).NotTo(HaveOccurred())
	})

	It("retries once with a corrective nudge after a prose answer", func() {
		calls := 0
		client := &mockAgentClient{chatFn: func(ctx context.Context, req llm.AgentRequest) (*llm.AgentResponse, error) {
			calls++
			if calls == 1 {
				return &llm.AgentResponse{Content: "Here is my report: ..."}, nil
			}
			last := req.Messages[len(req.Messages)-1]
			Expect(last.Role).To(Equal("user"))
			Expect(last.Content).To(ContainSubstring("Call submit_research exactly once"))
			return researchCall(validResearchArgs), nil
		}}

		doc, err := research.NewSynthesizer(client, time.Minute).Synthesize(ctx, sub, analysis, digest)
		Expect(err).NotTo(HaveOccurred())
		Expect(calls).To(Equal(2))
		Expect(doc.Record.InnovationRating.Score).To(Equal(6.0))
	})

	It("gives up after the second malformed response", func() {
		calls := 0
		client := &mockAgentClient{chatFn: func(ctx context.Context, req llm.AgentRequest) (*llm.AgentResponse, error) {
			calls++
			return researchCall(`{"technical_implementation": broken`), nil
		}}

		_, err := research.NewSynthesizer(client, time.Minute).Synthesize(ctx, sub, analysis, digest)
		Expect(err).To(MatchError(research.ErrResearchFailed))
		Expect(calls).To(Equal(2))
	})

	It("rejects out-of-range scores even when the JSON parses", func() {
		client := &mockAgentClient{chatFn: func(ctx context.Context, req llm.AgentRequest) (*llm.AgentResponse, error) {
			return researchCall(`{
				"technical_implementation": {"score": 11, "analysis": "x"},
				"market_analysis": {},
				"innovation_rating": {"score": 5},
				"overall_assessment": {"score": 5}
			}`), nil
		}}

		_, err := research.NewSynthesizer(client, time.Minute).Synthesize(ctx, sub, analysis, digest)
		Expect(err).To(MatchError(research.ErrResearchFailed))
	})

	It("retries a transport failure once, then fails terminally", func() {
		calls := 0
		client := &mockAgentClient{chatFn: func(ctx context.Context, req llm.AgentRequest) (*llm.AgentResponse, error) {
			calls++
			return nil, errors.New("upstream 529")
		}}

		_, err := research.NewSynthesizer(client, time.Minute).Synthesize(ctx, sub, analysis, digest)
		Expect(err).To(MatchError(research.ErrResearchFailed))
		Expect(calls).To(Equal(2))
	})
})

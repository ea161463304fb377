package research_test

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"codearena.app/arbiter/common/llm"
	"codearena.app/arbiter/internal/cache"
	"codearena.app/arbiter/internal/model"
	"codearena.app/arbiter/internal/research"
)

var _ = Describe("Service", func() {
	var (
		ctx      context.Context
		clock    *cache.ManualClock
		store    *cache.MemoryStore
		calls    atomic.Int64
		client   *mockAgentClient
		svc      *research.Service
		sub      model.Submission
		analysis *model.RepositoryAnalysis
		digest   *model.RepositoryDigest
	)

	BeforeEach(func() {
		ctx = context.Background()
		clock = cache.NewManualClock(time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC))
		store = cache.NewMemoryStore(clock)
		calls.Store(0)
		client = &mockAgentClient{chatFn: func(ctx context.Context, req llm.AgentRequest) (*llm.AgentResponse, error) {
			calls.Add(1)
			return researchCall(validResearchArgs), nil
		}}
		svc = research.NewService(research.NewSynthesizer(client, time.Minute), store, 24*time.Hour)

		sub = model.Submission{
			ID:            42,
			ProjectName:   "chain-ledger",
			Description:   "On-chain settlement ledger",
			TechStack:     "TypeScript",
			RepositoryURL: "https://gitlab.com/team/chain-ledger",
		}
		analysis = &model.RepositoryAnalysis{SubmissionID: 42}
		digest = &model.RepositoryDigest{SubmissionID: 42, Content: "## src/ledger.ts\n"}
	})

	It("serves repeat requests from the cache", func() {
		first, err := svc.Research(ctx, sub, analysis, digest, false)
		Expect(err).NotTo(HaveOccurred())

		clock.Advance(time.Hour)

		second, err := svc.Research(ctx, sub, analysis, digest, false)
		Expect(err).NotTo(HaveOccurred())
		Expect(calls.Load()).To(Equal(int64(1)))
		Expect(second.ID).To(Equal(first.ID))
		Expect(second.CacheKey).To(Equal(first.CacheKey))
	})

	It("re-researches after the TTL lapses", func() {
		first, err := svc.Research(ctx, sub, analysis, digest, false)
		Expect(err).NotTo(HaveOccurred())

		clock.Advance(24*time.Hour + time.Second)

		second, err := svc.Research(ctx, sub, analysis, digest, false)
		Expect(err).NotTo(HaveOccurred())
		Expect(calls.Load()).To(Equal(int64(2)))
		Expect(second.ID).NotTo(Equal(first.ID))
	})

	It("bypasses a fresh cache entry on force refresh", func() {
		first, err := svc.Research(ctx, sub, analysis, digest, false)
		Expect(err).NotTo(HaveOccurred())

		second, err := svc.Research(ctx, sub, analysis, digest, true)
		Expect(err).NotTo(HaveOccurred())
		Expect(calls.Load()).To(Equal(int64(2)))
		Expect(second.ID).NotTo(Equal(first.ID))
	})

	It("keys the cache by submission content", func() {
		_, err := svc.Research(ctx, sub, analysis, digest, false)
		Expect(err).NotTo(HaveOccurred())

		edited := sub
		edited.Description = "Re-pitched as a payments rail"
		_, err = svc.Research(ctx, edited, analysis, digest, false)
		Expect(err).NotTo(HaveOccurred())
		Expect(calls.Load()).To(Equal(int64(2)))

		changedDigest := &model.RepositoryDigest{SubmissionID: 42, Content: "## src/rail.ts\n"}
		_, err = svc.Research(ctx, sub, analysis, changedDigest, false)
		Expect(err).NotTo(HaveOccurred())
		Expect(calls.Load()).To(Equal(int64(3)))
	})

	It("coalesces concurrent requests into one model call", func() {
		release := make(chan struct{})
		client.chatFn = func(ctx context.Context, req llm.AgentRequest) (*llm.AgentResponse, error) {
			calls.Add(1)
			<-release
			return researchCall(validResearchArgs), nil
		}

		var wg sync.WaitGroup
		docs := make([]*model.ResearchDocument, 8)
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				defer GinkgoRecover()
				doc, err := svc.Research(ctx, sub, analysis, digest, false)
				Expect(err).NotTo(HaveOccurred())
				docs[i] = doc
			}(i)
		}

		Eventually(calls.Load).Should(Equal(int64(1)))
		close(release)
		wg.Wait()

		Expect(calls.Load()).To(Equal(int64(1)))
		for _, doc := range docs {
			Expect(doc.ID).To(Equal(docs[0].ID))
		}
	})

	It("still returns the document when the cache write fails", func() {
		failing := &failingStore{inner: store}
		svc = research.NewService(research.NewSynthesizer(client, time.Minute), failing, 24*time.Hour)

		doc, err := svc.Research(ctx, sub, analysis, digest, false)
		Expect(err).NotTo(HaveOccurred())
		Expect(doc.Record.OverallAssessment.Score).To(Equal(7.0))
	})
})

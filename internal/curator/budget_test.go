package curator_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"codearena.app/arbiter/internal/curator"
	"codearena.app/arbiter/internal/model"
)

var _ = Describe("SelectSizeTier", func() {
	DescribeTable("buckets repositories by file count and size",
		func(files int, bytes int64, want model.SizeTier) {
			Expect(curator.SelectSizeTier(files, bytes)).To(Equal(want))
		},
		Entry("tiny repo", 12, int64(200_000), model.SizeTierSmall),
		Entry("just under small limits", 99, int64(2<<20-1), model.SizeTierSmall),
		Entry("file count promotes to medium", 100, int64(200_000), model.SizeTierMedium),
		Entry("byte count promotes to medium", 12, int64(2<<20), model.SizeTierMedium),
		Entry("medium repo", 500, int64(10<<20), model.SizeTierMedium),
		Entry("large repo", 2000, int64(32<<20), model.SizeTierLarge),
		Entry("file count promotes to very large", 2500, int64(1<<20), model.SizeTierVeryLarge),
		Entry("byte count promotes to very large", 300, int64(64<<20), model.SizeTierVeryLarge),
	)

	It("maps tiers to a monotonic token ceiling", func() {
		Expect(model.SizeTierSmall.MaxTokens()).To(Equal(64_000))
		Expect(model.SizeTierMedium.MaxTokens()).To(Equal(90_000))
		Expect(model.SizeTierLarge.MaxTokens()).To(Equal(130_000))
		Expect(model.SizeTierVeryLarge.MaxTokens()).To(Equal(170_000))
	})
})

var _ = Describe("DefaultPlan", func() {
	analysisOf := func(files int, size int64) *model.RepositoryAnalysis {
		manifest := make([]model.ManifestEntry, files)
		for i := range manifest {
			manifest[i] = model.ManifestEntry{Path: "src/a.ts", Tier: model.TierHigh}
		}
		return &model.RepositoryAnalysis{FileManifest: manifest, RepoSizeBytes: size}
	}

	It("derives the budget from the size tier", func() {
		plan := curator.DefaultPlan(analysisOf(40, 500_000))
		Expect(plan.SizeTier).To(Equal(model.SizeTierSmall))
		Expect(plan.MaxTokens).To(Equal(64_000))
		Expect(plan.MaxFileBytes).To(BeNumerically(">", 0))
		Expect(plan.Source).To(Equal(model.PlanSourceDefault))
		Expect(plan.ExcludePatterns).To(ContainElement("node_modules/*"))
		Expect(plan.IncludePatterns).To(BeEmpty())
	})

	It("is deterministic for identical analyses", func() {
		a := analysisOf(1200, 20<<20)
		Expect(curator.DefaultPlan(a)).To(Equal(curator.DefaultPlan(a)))
	})

	It("shrinks the per-file cutoff as repositories grow", func() {
		small := curator.DefaultPlan(analysisOf(40, 500_000))
		veryLarge := curator.DefaultPlan(analysisOf(9000, 500<<20))
		Expect(veryLarge.MaxFileBytes).To(BeNumerically("<", small.MaxFileBytes))
	})
})

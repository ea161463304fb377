package analyzer_test

import (
	"context"
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"codearena.app/arbiter/internal/analyzer"
	"codearena.app/arbiter/internal/model"
)

var _ = Describe("Analyzer", func() {
	var (
		ctx    context.Context
		client *mockRepoClient
		an     *analyzer.Analyzer
		sub    model.Submission
	)

	submittedAt := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	BeforeEach(func() {
		ctx = context.Background()
		client = &mockRepoClient{}
		an = analyzer.New(client, "gitlab.com")
		sub = model.Submission{
			ID:            42,
			ProjectName:   "chain-ledger",
			RepositoryURL: "https://gitlab.com/team/chain-ledger",
			SubmittedAt:   submittedAt,
		}
	})

	It("rejects an invalid repository URL before any host call", func() {
		sub.RepositoryURL = "http://gitlab.com/team/chain-ledger"
		_, err := an.Analyze(ctx, sub)
		Expect(err).To(MatchError(analyzer.ErrInvalidRepositoryURL))
	})

	It("propagates repository unavailability", func() {
		client.projectFn = func(ctx context.Context, projectPath string) (*analyzer.ProjectInfo, error) {
			return nil, fmt.Errorf("%w: 404", analyzer.ErrRepositoryUnavailable)
		}
		_, err := an.Analyze(ctx, sub)
		Expect(err).To(MatchError(analyzer.ErrRepositoryUnavailable))
	})

	Context("with an actively developed repository", func() {
		BeforeEach(func() {
			created := submittedAt.Add(-20 * 24 * time.Hour)
			client.projectFn = func(ctx context.Context, projectPath string) (*analyzer.ProjectInfo, error) {
				Expect(projectPath).To(Equal("team/chain-ledger"))
				return &analyzer.ProjectInfo{
					ID:             7,
					DefaultBranch:  "develop",
					CreatedAt:      &created,
					License:        "MIT",
					RepositorySize: 2 << 20,
				}, nil
			}
			client.treeFn = func(ctx context.Context, projectPath, ref string) ([]analyzer.TreeEntry, error) {
				Expect(ref).To(Equal("develop"))
				entries := []analyzer.TreeEntry{
					{Path: "README.md"},
					{Path: "package.json"},
					{Path: "package-lock.json"},
					{Path: "src/ledger.test.ts"},
				}
				for i := 0; i < 46; i++ {
					entries = append(entries, analyzer.TreeEntry{Path: fmt.Sprintf("src/module%d.ts", i)})
				}
				return entries, nil
			}
			client.commitsFn = func(ctx context.Context, projectPath, ref string) ([]analyzer.CommitInfo, error) {
				commits := make([]analyzer.CommitInfo, 0, 30)
				for i := 0; i < 30; i++ {
					author := "alice"
					if i%3 == 0 {
						author = "bob"
					}
					commits = append(commits, analyzer.CommitInfo{
						ID:         fmt.Sprintf("c%d", i),
						AuthorName: author,
						CreatedAt:  submittedAt.Add(-time.Duration(i*12) * time.Hour),
					})
				}
				return commits, nil
			}
			client.contributorCountFn = func(ctx context.Context, projectPath string) (int, error) {
				return 2, nil
			}
		})

		It("builds a tiered manifest and carries project metadata through", func() {
			analysis, err := an.Analyze(ctx, sub)
			Expect(err).NotTo(HaveOccurred())

			Expect(analysis.SubmissionID).To(Equal(int64(42)))
			Expect(analysis.ProjectPath).To(Equal("team/chain-ledger"))
			Expect(analysis.DefaultRef).To(Equal("develop"))
			Expect(analysis.FileManifest).To(HaveLen(50))
			Expect(analysis.SourceFileCount()).To(Equal(46))
			Expect(analysis.License).To(Equal("MIT"))
			Expect(analysis.ContributorCount).To(Equal(2))
			Expect(analysis.ID).NotTo(BeZero())

			tiers := make(map[string]model.RelevanceTier)
			for _, e := range analysis.FileManifest {
				tiers[e.Path] = e.Tier
			}
			Expect(tiers["src/module0.ts"]).To(Equal(model.TierHigh))
			Expect(tiers["src/ledger.test.ts"]).To(Equal(model.TierMedium))
			Expect(tiers["README.md"]).To(Equal(model.TierMedium))
			Expect(tiers["package-lock.json"]).To(Equal(model.TierLow))
		})

		It("summarizes the commit timeline", func() {
			analysis, err := an.Analyze(ctx, sub)
			Expect(err).NotTo(HaveOccurred())

			Expect(analysis.CommitTimeline.CommitCount).To(Equal(30))
			Expect(analysis.CommitTimeline.AuthorCount).To(Equal(2))
			Expect(analysis.CommitTimeline.CommitsInWindow).To(Equal(30))
			Expect(analysis.CommitTimeline.FirstCommitAt).NotTo(BeNil())
			Expect(analysis.CommitTimeline.LastCommitAt.Sub(*analysis.CommitTimeline.FirstCommitAt)).
				To(Equal(29 * 12 * time.Hour))
		})

		It("raises no red flags", func() {
			analysis, err := an.Analyze(ctx, sub)
			Expect(err).NotTo(HaveOccurred())
			Expect(analysis.RedFlags).To(BeEmpty())
		})

		It("aggregates the language breakdown", func() {
			analysis, err := an.Analyze(ctx, sub)
			Expect(err).NotTo(HaveOccurred())

			Expect(analysis.LanguageBreakdown).To(HaveKey("TypeScript"))
			Expect(analysis.LanguageBreakdown["TypeScript"].Files).To(Equal(47))
		})

		It("falls back to main when the project has no default branch", func() {
			client.projectFn = func(ctx context.Context, projectPath string) (*analyzer.ProjectInfo, error) {
				return &analyzer.ProjectInfo{ID: 7}, nil
			}
			client.treeFn = func(ctx context.Context, projectPath, ref string) ([]analyzer.TreeEntry, error) {
				Expect(ref).To(Equal("main"))
				return []analyzer.TreeEntry{{Path: "src/a.ts"}}, nil
			}

			analysis, err := an.Analyze(ctx, sub)
			Expect(err).NotTo(HaveOccurred())
			Expect(analysis.DefaultRef).To(Equal("main"))
		})
	})

	Context("with a bulk-uploaded dependency dump", func() {
		BeforeEach(func() {
			created := submittedAt.Add(-60 * 24 * time.Hour)
			uploadAt := submittedAt.Add(-40 * 24 * time.Hour)
			client.projectFn = func(ctx context.Context, projectPath string) (*analyzer.ProjectInfo, error) {
				return &analyzer.ProjectInfo{ID: 9, DefaultBranch: "main", CreatedAt: &created}, nil
			}
			client.treeFn = func(ctx context.Context, projectPath, ref string) ([]analyzer.TreeEntry, error) {
				entries := []analyzer.TreeEntry{
					{Path: "index.js"},
					{Path: "README.md"},
				}
				for i := 0; i < 4998; i++ {
					entries = append(entries, analyzer.TreeEntry{Path: fmt.Sprintf("node_modules/dep%d/index.js", i)})
				}
				return entries, nil
			}
			client.commitsFn = func(ctx context.Context, projectPath, ref string) ([]analyzer.CommitInfo, error) {
				return []analyzer.CommitInfo{
					{ID: "c1", AuthorName: "alice", CreatedAt: uploadAt},
					{ID: "c2", AuthorName: "alice", CreatedAt: uploadAt.Add(5 * time.Minute)},
				}, nil
			}
			client.contributorCountFn = func(ctx context.Context, projectPath string) (int, error) {
				return 1, nil
			}
		})

		It("flags bloat, staleness, minimal source and the bulk upload", func() {
			analysis, err := an.Analyze(ctx, sub)
			Expect(err).NotTo(HaveOccurred())

			Expect(analysis.HasRedFlag(model.RedFlagDependencyBloat)).To(BeTrue())
			Expect(analysis.HasRedFlag(model.RedFlagStale)).To(BeTrue())
			Expect(analysis.HasRedFlag(model.RedFlagMinimalImplementation)).To(BeTrue())
			Expect(analysis.HasRedFlag(model.RedFlagBulkUploadPattern)).To(BeTrue())
		})
	})
})

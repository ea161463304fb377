package curator_test

import (
	"context"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"codearena.app/arbiter/internal/curator"
	"codearena.app/arbiter/internal/model"
)

var _ = Describe("Curator", func() {
	var (
		ctx      context.Context
		client   *fakeRepoClient
		analysis *model.RepositoryAnalysis
	)

	newAnalysis := func(entries ...model.ManifestEntry) *model.RepositoryAnalysis {
		return &model.RepositoryAnalysis{
			ID:            101,
			SubmissionID:  42,
			ProjectPath:   "team/chain-ledger",
			DefaultRef:    "main",
			FileManifest:  entries,
			RepoSizeBytes: 300 << 10,
		}
	}

	BeforeEach(func() {
		ctx = context.Background()
		client = &fakeRepoClient{
			files: map[string]string{
				"src/ledger.ts":     "export class Ledger {}\n",
				"src/wallet.ts":     "export class Wallet {}\n",
				"README.md":         "# Chain Ledger\n",
				"package-lock.json": "{}\n",
			},
			fail: map[string]bool{},
		}
		analysis = newAnalysis(
			model.ManifestEntry{Path: "package-lock.json", Tier: model.TierLow},
			model.ManifestEntry{Path: "README.md", Tier: model.TierMedium},
			model.ManifestEntry{Path: "src/wallet.ts", Tier: model.TierHigh},
			model.ManifestEntry{Path: "src/ledger.ts", Tier: model.TierHigh},
		)
	})

	It("admits files in relevance order and measures the digest", func() {
		c := curator.New(client, charCounter{}, nil)
		digest, err := c.Curate(ctx, analysis)
		Expect(err).NotTo(HaveOccurred())

		Expect(digest.SubmissionID).To(Equal(int64(42)))
		Expect(digest.AnalysisID).To(Equal(int64(101)))
		Expect(digest.Plan.Source).To(Equal(model.PlanSourceDefault))
		Expect(digest.Truncated).To(BeFalse())
		Expect(digest.TokenCount).To(BeNumerically(">", 0))
		Expect(digest.TokenCount).To(BeNumerically("<=", digest.Plan.MaxTokens))

		Expect(digest.Content).To(ContainSubstring("## src/ledger.ts"))
		Expect(digest.Content).To(ContainSubstring("## src/wallet.ts"))
		Expect(digest.Content).To(ContainSubstring("## README.md"))
		Expect(strings.Index(digest.Content, "## src/ledger.ts")).
			To(BeNumerically("<", strings.Index(digest.Content, "## README.md")))
	})

	It("excludes lockfiles and summarizes what was skipped", func() {
		c := curator.New(client, charCounter{}, nil)
		digest, err := c.Curate(ctx, analysis)
		Expect(err).NotTo(HaveOccurred())

		Expect(digest.Content).NotTo(ContainSubstring("## package-lock.json"))
		Expect(digest.Content).To(ContainSubstring("## Omitted"))
		Expect(digest.Content).To(ContainSubstring("1 files excluded (1 .json)"))
	})

	It("collapses omitted directories with an extension breakdown", func() {
		analysis = newAnalysis(
			model.ManifestEntry{Path: "src/ledger.ts", Tier: model.TierHigh},
			model.ManifestEntry{Path: "assets/logo.png", Tier: model.TierLow},
			model.ManifestEntry{Path: "assets/icon.png", Tier: model.TierLow},
			model.ManifestEntry{Path: "assets/font.woff", Tier: model.TierLow},
		)

		c := curator.New(client, charCounter{}, nil)
		digest, err := c.Curate(ctx, analysis)
		Expect(err).NotTo(HaveOccurred())

		Expect(digest.Content).NotTo(ContainSubstring("logo.png"))
		Expect(digest.Content).To(ContainSubstring("- assets/: 3 files excluded (2 .png, 1 .woff)"))
	})

	It("skips an unreadable file without sinking the digest", func() {
		client.fail["src/wallet.ts"] = true

		c := curator.New(client, charCounter{}, nil)
		digest, err := c.Curate(ctx, analysis)
		Expect(err).NotTo(HaveOccurred())
		Expect(digest.Content).NotTo(ContainSubstring("## src/wallet.ts"))
		Expect(digest.Content).To(ContainSubstring("## src/ledger.ts"))
	})

	It("skips binary blobs", func() {
		client.files["src/wallet.ts"] = "MZ\x00\x00binary"

		c := curator.New(client, charCounter{}, nil)
		digest, err := c.Curate(ctx, analysis)
		Expect(err).NotTo(HaveOccurred())
		Expect(digest.Content).NotTo(ContainSubstring("## src/wallet.ts"))
	})

	It("truncates at the token budget and records it", func() {
		// Three files of 100 KiB each at ~4 chars per token overflow the
		// small tier's 64k budget on the third file.
		big := strings.Repeat("x", 100<<10) + "\n"
		client.files = map[string]string{
			"src/a.ts": big,
			"src/b.ts": big,
			"src/c.ts": big,
		}
		analysis = newAnalysis(
			model.ManifestEntry{Path: "src/a.ts", Tier: model.TierHigh},
			model.ManifestEntry{Path: "src/b.ts", Tier: model.TierHigh},
			model.ManifestEntry{Path: "src/c.ts", Tier: model.TierHigh},
		)

		c := curator.New(client, charCounter{}, nil)
		digest, err := c.Curate(ctx, analysis)
		Expect(err).NotTo(HaveOccurred())

		Expect(digest.Truncated).To(BeTrue())
		Expect(digest.TokenCount).To(BeNumerically("<=", digest.Plan.MaxTokens))
		Expect(digest.Content).To(ContainSubstring("## src/a.ts"))
		Expect(digest.Content).To(ContainSubstring("## src/b.ts"))
		Expect(digest.Content).NotTo(ContainSubstring("## src/c.ts"))
	})

	It("fails with ErrEmptyDigest when nothing is eligible", func() {
		analysis = newAnalysis(
			model.ManifestEntry{Path: "package-lock.json", Tier: model.TierLow},
			model.ManifestEntry{Path: "vendor/lib/index.js", Tier: model.TierLow},
		)

		c := curator.New(client, charCounter{}, nil)
		_, err := c.Curate(ctx, analysis)
		Expect(err).To(MatchError(curator.ErrEmptyDigest))
	})
})

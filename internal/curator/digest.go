// Package curator assembles the token-bounded repository digest fed to the
// research model. Planning is two-stage: a deterministic heuristic plan,
// then a best-effort agentic refinement that can only narrow it. Digest
// assembly walks the manifest by relevance tier and admits files until the
// plan's token budget would be exceeded.
package curator

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strings"
	"time"

	"codearena.app/arbiter/common/logger"
	"codearena.app/arbiter/internal/analyzer"
	"codearena.app/arbiter/internal/model"
)

// digestOverheadTokens reserves room for the digest's own markdown framing
// so header lines never push the total past the budget.
const digestOverheadTokens = 256

type Curator struct {
	client  analyzer.RepoClient
	counter TokenCounter
	refiner *Refiner
}

// New builds a Curator. refiner may be nil, in which case every digest uses
// the heuristic plan.
func New(client analyzer.RepoClient, counter TokenCounter, refiner *Refiner) *Curator {
	return &Curator{client: client, counter: counter, refiner: refiner}
}

// Curate plans a budget and assembles the digest for an analyzed repository.
// Returns ErrEmptyDigest when no file could be admitted.
func (c *Curator) Curate(ctx context.Context, analysis *model.RepositoryAnalysis) (*model.RepositoryDigest, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		SubmissionID: logger.Ptr(analysis.SubmissionID),
		Component:    "arbiter.curator",
	})

	plan := DefaultPlan(analysis)
	if c.refiner != nil {
		plan = c.refiner.Refine(ctx, analysis, plan)
	}

	digest, err := c.assemble(ctx, analysis, plan)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "digest assembled",
		"plan_source", plan.Source,
		"size_tier", plan.SizeTier,
		"token_count", digest.TokenCount,
		"truncated", digest.Truncated)

	return digest, nil
}

func (c *Curator) assemble(ctx context.Context, analysis *model.RepositoryAnalysis, plan model.ContextBudgetPlan) (*model.RepositoryDigest, error) {
	ordered := orderManifest(analysis.FileManifest)

	var sb strings.Builder
	fmt.Fprintf(&sb, "# Repository Digest\n\nFiles: %d, tier: %s\n", len(analysis.FileManifest), plan.SizeTier)

	budget := plan.MaxTokens - digestOverheadTokens
	used := 0
	admitted := 0
	truncated := false
	skipped := make(map[string]map[string]int)

	for _, entry := range ordered {
		if excluded(entry.Path, plan.ExcludePatterns) {
			noteSkip(skipped, entry.Path)
			continue
		}
		if len(plan.IncludePatterns) > 0 && entry.Tier == model.TierLow && !included(entry.Path, plan.IncludePatterns) {
			noteSkip(skipped, entry.Path)
			continue
		}

		raw, err := c.client.RawFile(ctx, analysis.ProjectPath, analysis.DefaultRef, entry.Path)
		if err != nil {
			// A single unreadable blob must not sink the digest.
			slog.WarnContext(ctx, "skipping unreadable file", "path", entry.Path, "error", err)
			continue
		}
		if int64(len(raw)) > plan.MaxFileBytes || looksBinary(string(raw)) {
			noteSkip(skipped, entry.Path)
			continue
		}

		section := renderFile(entry.Path, string(raw))
		cost, err := c.counter.Count(section)
		if err != nil {
			return nil, fmt.Errorf("counting tokens for %s: %w", entry.Path, err)
		}

		if used+cost > budget {
			truncated = true
			break
		}

		sb.WriteString(section)
		used += cost
		admitted++
	}

	if admitted == 0 {
		return nil, ErrEmptyDigest
	}

	writeSkippedSummary(&sb, skipped)

	content := sb.String()
	total, err := c.counter.Count(content)
	if err != nil {
		return nil, fmt.Errorf("counting digest tokens: %w", err)
	}
	if total > plan.MaxTokens {
		// Should not happen given the overhead reserve; guard the invariant
		// rather than ship an oversized digest.
		return nil, fmt.Errorf("digest of %d tokens exceeds budget %d", total, plan.MaxTokens)
	}

	return &model.RepositoryDigest{
		SubmissionID: analysis.SubmissionID,
		AnalysisID:   analysis.ID,
		Plan:         plan,
		Content:      content,
		TokenCount:   total,
		Truncated:    truncated,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// orderManifest sorts by tier rank then path, so the walk is deterministic
// and the most relevant files are admitted first.
func orderManifest(manifest []model.ManifestEntry) []model.ManifestEntry {
	ordered := make([]model.ManifestEntry, len(manifest))
	copy(ordered, manifest)
	sort.SliceStable(ordered, func(i, j int) bool {
		ri, rj := ordered[i].Tier.Rank(), ordered[j].Tier.Rank()
		if ri != rj {
			return ri < rj
		}
		return ordered[i].Path < ordered[j].Path
	})
	return ordered
}

func renderFile(filePath, content string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "\n## %s\n\n```\n", filePath)
	sb.WriteString(content)
	if !strings.HasSuffix(content, "\n") {
		sb.WriteString("\n")
	}
	sb.WriteString("```\n")
	return sb.String()
}

// noteSkip records a skipped file under its directory and extension so the
// summary can report both.
func noteSkip(skipped map[string]map[string]int, filePath string) {
	dir := path.Dir(filePath)
	ext := path.Ext(filePath)
	if ext == "" {
		ext = "(no extension)"
	}
	if skipped[dir] == nil {
		skipped[dir] = make(map[string]int)
	}
	skipped[dir][ext]++
}

// writeSkippedSummary collapses skipped files into one line per directory,
// with per-extension counts, so the research model still sees the
// repository's shape without hundreds of asset filenames.
func writeSkippedSummary(sb *strings.Builder, skipped map[string]map[string]int) {
	if len(skipped) == 0 {
		return
	}
	dirs := make([]string, 0, len(skipped))
	for d := range skipped {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)

	sb.WriteString("\n## Omitted\n\n")
	for _, d := range dirs {
		total := 0
		for _, n := range skipped[d] {
			total += n
		}
		fmt.Fprintf(sb, "- %s/: %d files excluded (%s)\n", d, total, extSummary(skipped[d]))
	}
}

// extSummary renders extension counts ordered by frequency, ties by name.
func extSummary(exts map[string]int) string {
	names := make([]string, 0, len(exts))
	for ext := range exts {
		names = append(names, ext)
	}
	sort.Slice(names, func(i, j int) bool {
		if exts[names[i]] != exts[names[j]] {
			return exts[names[i]] > exts[names[j]]
		}
		return names[i] < names[j]
	})

	parts := make([]string, len(names))
	for i, ext := range names {
		parts[i] = fmt.Sprintf("%d %s", exts[ext], ext)
	}
	return strings.Join(parts, ", ")
}

// excluded matches a pattern list against the full path and the base name.
// Directory-prefix patterns like "vendor/*" also match nested paths.
func excluded(filePath string, patterns []string) bool {
	base := path.Base(filePath)
	for _, p := range patterns {
		if ok, _ := path.Match(p, filePath); ok {
			return true
		}
		if ok, _ := path.Match(p, base); ok {
			return true
		}
		if dir, found := strings.CutSuffix(p, "/*"); found {
			if strings.HasPrefix(filePath, dir+"/") || strings.Contains(filePath, "/"+dir+"/") {
				return true
			}
		}
	}
	return false
}

func included(filePath string, patterns []string) bool {
	base := path.Base(filePath)
	for _, p := range patterns {
		if ok, _ := path.Match(p, filePath); ok {
			return true
		}
		if ok, _ := path.Match(p, base); ok {
			return true
		}
	}
	return false
}

// looksBinary sniffs for NUL bytes in the leading window, the same check
// git uses to distinguish text from binary blobs.
func looksBinary(content string) bool {
	window := content
	if len(window) > 8000 {
		window = window[:8000]
	}
	return strings.ContainsRune(window, '\x00')
}

package curator

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strings"
	"time"

	"codearena.app/arbiter/common/llm"
	"codearena.app/arbiter/internal/model"
)

const refineSystemPrompt = `You curate source repositories for a downstream evaluation model.
Given a repository manifest summary, a language histogram and structural red flags,
refine which files belong in a bounded code digest.

Rules:
- Prefer original application logic over configuration, tests and assets.
- Exclude anything generated, vendored, or binary.
- Patterns are glob-style, matched against the full path and the base name.
- Keep the pattern lists short; broad globs beat long enumerations.

Call submit_budget_plan exactly once with your refined plan.`

// refinePlanParams is the schema of the submit_budget_plan tool.
type refinePlanParams struct {
	IncludePatterns []string `json:"include_patterns" jsonschema:"description=Glob patterns for files that must be included"`
	ExcludePatterns []string `json:"exclude_patterns" jsonschema:"required,description=Glob patterns for files to exclude from the digest"`
	Rationale       string   `json:"rationale" jsonschema:"required,description=One short paragraph explaining the refinement"`
}

// Refiner runs the best-effort Stage 2 of budget planning. Any failure
// (transport, timeout, missing tool call, unparsable or invalid patterns)
// falls back to the Stage 1 plan. The pipeline never blocks on this call,
// so Refine returns a plan in every case and no error.
type Refiner struct {
	client  llm.AgentClient
	timeout time.Duration
}

func NewRefiner(client llm.AgentClient, timeout time.Duration) *Refiner {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Refiner{client: client, timeout: timeout}
}

// Refine attempts to improve the default plan's pattern set. The returned
// plan's Source field records which branch produced it.
func (r *Refiner) Refine(ctx context.Context, analysis *model.RepositoryAnalysis, plan model.ContextBudgetPlan) model.ContextBudgetPlan {
	if r == nil || r.client == nil {
		return plan
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	tool := llm.Tool{
		Name:        "submit_budget_plan",
		Description: "Submit the refined include/exclude pattern set for the repository digest.",
		Parameters:  llm.GenerateSchemaFrom(refinePlanParams{}),
	}

	args, _, err := llm.RequestStructured(ctx, r.client, llm.AgentRequest{
		Messages: []llm.Message{
			{Role: "system", Content: refineSystemPrompt},
			{Role: "user", Content: buildRefineContext(analysis, plan)},
		},
		Tools:     []llm.Tool{tool},
		MaxTokens: 4096,
	}, tool.Name)
	if err != nil {
		slog.WarnContext(ctx, "context refinement failed, using heuristic plan", "error", err)
		return plan
	}

	params, err := llm.ParseToolArguments[refinePlanParams](args)
	if err != nil {
		slog.WarnContext(ctx, "context refinement unparsable, using heuristic plan", "error", err)
		return plan
	}

	if err := validatePatterns(append(params.IncludePatterns, params.ExcludePatterns...)); err != nil {
		slog.WarnContext(ctx, "context refinement returned invalid patterns, using heuristic plan", "error", err)
		return plan
	}

	// The token ceiling and per-file cutoff stay tier-determined; the
	// refinement only narrows what is eligible.
	refined := plan
	refined.IncludePatterns = params.IncludePatterns
	refined.ExcludePatterns = mergePatterns(plan.ExcludePatterns, params.ExcludePatterns)
	refined.Rationale = params.Rationale
	refined.Source = model.PlanSourceRefined

	slog.InfoContext(ctx, "budget plan refined",
		"include_patterns", len(refined.IncludePatterns),
		"exclude_patterns", len(refined.ExcludePatterns))

	return refined
}

// buildRefineContext condenses the manifest for the refinement prompt:
// per-directory file counts and tier mix instead of thousands of paths.
func buildRefineContext(analysis *model.RepositoryAnalysis, plan model.ContextBudgetPlan) string {
	var sb strings.Builder

	sb.WriteString("# Repository Summary\n\n")
	fmt.Fprintf(&sb, "Files: %d; size tier: %s; token budget: %d\n\n", len(analysis.FileManifest), plan.SizeTier, plan.MaxTokens)

	if len(analysis.RedFlags) > 0 {
		sb.WriteString("Red flags: ")
		for i, f := range analysis.RedFlags {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(string(f))
		}
		sb.WriteString("\n\n")
	}

	sb.WriteString("# Languages\n\n")
	langs := make([]string, 0, len(analysis.LanguageBreakdown))
	for lang := range analysis.LanguageBreakdown {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	for _, lang := range langs {
		stats := analysis.LanguageBreakdown[lang]
		fmt.Fprintf(&sb, "- %s: %d files (~%d lines)\n", lang, stats.Files, stats.Lines)
	}
	sb.WriteString("\n# Directories\n\n")

	type dirStats struct {
		files int
		tiers map[model.RelevanceTier]int
	}
	dirs := make(map[string]*dirStats)
	for _, e := range analysis.FileManifest {
		dir := path.Dir(e.Path)
		ds, ok := dirs[dir]
		if !ok {
			ds = &dirStats{tiers: make(map[model.RelevanceTier]int)}
			dirs[dir] = ds
		}
		ds.files++
		ds.tiers[e.Tier]++
	}

	dirNames := make([]string, 0, len(dirs))
	for d := range dirs {
		dirNames = append(dirNames, d)
	}
	sort.Strings(dirNames)
	for _, d := range dirNames {
		ds := dirs[d]
		fmt.Fprintf(&sb, "- %s/: %d files (high=%d medium-high=%d medium=%d low=%d)\n",
			d, ds.files,
			ds.tiers[model.TierHigh], ds.tiers[model.TierMediumHigh],
			ds.tiers[model.TierMedium], ds.tiers[model.TierLow])
	}

	sb.WriteString("\n# Current Exclude Patterns\n\n")
	for _, p := range plan.ExcludePatterns {
		fmt.Fprintf(&sb, "- %s\n", p)
	}

	return sb.String()
}

func validatePatterns(patterns []string) error {
	for _, p := range patterns {
		if _, err := path.Match(p, "probe"); err != nil {
			return fmt.Errorf("pattern %q: %w", p, err)
		}
	}
	return nil
}

func mergePatterns(base, extra []string) []string {
	seen := make(map[string]bool, len(base)+len(extra))
	merged := make([]string, 0, len(base)+len(extra))
	for _, p := range append(append([]string{}, base...), extra...) {
		if seen[p] {
			continue
		}
		seen[p] = true
		merged = append(merged, p)
	}
	return merged
}

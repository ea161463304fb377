package curator

import (
	"fmt"

	"codearena.app/arbiter/internal/model"
)

// Size-tier thresholds. A repository must be under both the file-count and
// byte thresholds to stay in a tier; either breach promotes it.
const (
	smallMaxFiles  = 100
	mediumMaxFiles = 750
	largeMaxFiles  = 2500

	smallMaxBytes  = 2 << 20  // 2 MiB
	mediumMaxBytes = 16 << 20 // 16 MiB
	largeMaxBytes  = 64 << 20 // 64 MiB
)

// Per-file byte cutoffs shrink as repositories grow: a very large
// repository cannot afford single files eating the budget.
var maxFileBytesByTier = map[model.SizeTier]int64{
	model.SizeTierSmall:     128 << 10,
	model.SizeTierMedium:    96 << 10,
	model.SizeTierLarge:     64 << 10,
	model.SizeTierVeryLarge: 48 << 10,
}

// defaultExcludes are the conservative Stage 1 exclude globs. Patterns use
// path.Match syntax matched against both the full path and the base name.
var defaultExcludes = []string{
	"*.min.js",
	"*.min.css",
	"*.lock",
	"*.sum",
	"package-lock.json",
	"yarn.lock",
	"pnpm-lock.yaml",
	"node_modules/*",
	"vendor/*",
	"dist/*",
	"build/*",
	"target/*",
	"*.png", "*.jpg", "*.jpeg", "*.gif", "*.svg", "*.ico", "*.webp",
	"*.mp4", "*.mp3", "*.wav", "*.pdf", "*.zip", "*.wasm",
	"*.woff", "*.woff2", "*.ttf", "*.map",
}

// SelectSizeTier buckets a repository by file count and reported size.
func SelectSizeTier(fileCount int, totalBytes int64) model.SizeTier {
	switch {
	case fileCount < smallMaxFiles && totalBytes < smallMaxBytes:
		return model.SizeTierSmall
	case fileCount < mediumMaxFiles && totalBytes < mediumMaxBytes:
		return model.SizeTierMedium
	case fileCount < largeMaxFiles && totalBytes < largeMaxBytes:
		return model.SizeTierLarge
	default:
		return model.SizeTierVeryLarge
	}
}

// DefaultPlan derives the Stage 1 heuristic budget plan from an analysis.
// It is fully deterministic: the same analysis always yields the same plan.
func DefaultPlan(analysis *model.RepositoryAnalysis) model.ContextBudgetPlan {
	tier := SelectSizeTier(len(analysis.FileManifest), analysis.RepoSizeBytes)

	excludes := make([]string, len(defaultExcludes))
	copy(excludes, defaultExcludes)

	return model.ContextBudgetPlan{
		SizeTier:        tier,
		MaxTokens:       tier.MaxTokens(),
		ExcludePatterns: excludes,
		MaxFileBytes:    maxFileBytesByTier[tier],
		Rationale:       fmt.Sprintf("heuristic plan: %d files → %s tier", len(analysis.FileManifest), tier),
		Source:          model.PlanSourceDefault,
	}
}

package analyzer

import (
	"strings"
	"time"

	"codearena.app/arbiter/internal/model"
)

// Red-flag thresholds. Each detector is independently evaluable and
// non-fatal: flags annotate the analysis, they never reject a submission.
const (
	// staleCreationLead: repository created this long before submission
	// with no activity inside the competition window → stale.
	staleCreationLead = 30 * 24 * time.Hour

	// competitionWindow: activity lookback measured from submission time.
	competitionWindow = 30 * 24 * time.Hour

	// bloatRatio: non-source files per source file beyond which the
	// repository is flagged dependency-bloat.
	bloatRatio = 3.0

	// minimalSourceFloor: fewer source files than this → minimal-implementation.
	minimalSourceFloor = 5

	// bulkCommitCeiling / bulkFileFloor: a repository with this few
	// commits but at least this many files looks like a bulk upload.
	bulkCommitCeiling = 3
	bulkFileFloor     = 20

	// bulkSpanCeiling: an entire history landed inside this span with a
	// non-trivial file count is inconsistent with iterative development.
	bulkSpanCeiling = time.Hour
)

// DetectRedFlags runs all detectors over the assembled analysis inputs.
func DetectRedFlags(manifest []model.ManifestEntry, timeline model.CommitTimelineSummary, repoCreatedAt *time.Time, submittedAt time.Time) []model.RedFlag {
	var flags []model.RedFlag

	if isStale(timeline, repoCreatedAt, submittedAt) {
		flags = append(flags, model.RedFlagStale)
	}
	if isDependencyBloated(manifest) {
		flags = append(flags, model.RedFlagDependencyBloat)
	}
	if isBoilerplateHeavy(manifest) {
		flags = append(flags, model.RedFlagBoilerplateHeavy)
	}
	if isMinimal(manifest) {
		flags = append(flags, model.RedFlagMinimalImplementation)
	}
	if isBulkUpload(manifest, timeline) {
		flags = append(flags, model.RedFlagBulkUploadPattern)
	}

	return flags
}

func isStale(timeline model.CommitTimelineSummary, repoCreatedAt *time.Time, submittedAt time.Time) bool {
	if repoCreatedAt == nil {
		return false
	}
	if submittedAt.Sub(*repoCreatedAt) <= staleCreationLead {
		return false
	}
	return timeline.CommitsInWindow == 0
}

func isDependencyBloated(manifest []model.ManifestEntry) bool {
	source, nonSource := 0, 0
	for _, e := range manifest {
		switch e.Tier {
		case model.TierHigh, model.TierMediumHigh:
			source++
		case model.TierLow:
			nonSource++
		}
	}
	if source == 0 {
		return nonSource > 0
	}
	return float64(nonSource)/float64(source) > bloatRatio
}

func isBoilerplateHeavy(manifest []model.ManifestEntry) bool {
	generated, original := 0, 0
	for _, e := range manifest {
		if isGeneratedPath(e.Path) {
			generated++
		} else if e.Tier == model.TierHigh || e.Tier == model.TierMediumHigh {
			original++
		}
	}
	return generated > original
}

func isMinimal(manifest []model.ManifestEntry) bool {
	source := 0
	for _, e := range manifest {
		if e.Tier == model.TierHigh || e.Tier == model.TierMediumHigh {
			source++
		}
	}
	return source < minimalSourceFloor
}

func isBulkUpload(manifest []model.ManifestEntry, timeline model.CommitTimelineSummary) bool {
	if len(manifest) < bulkFileFloor {
		return false
	}
	if timeline.CommitCount > 0 && timeline.CommitCount <= bulkCommitCeiling {
		return true
	}
	if timeline.FirstCommitAt != nil && timeline.LastCommitAt != nil &&
		timeline.CommitCount > 0 &&
		timeline.LastCommitAt.Sub(*timeline.FirstCommitAt) < bulkSpanCeiling {
		return true
	}
	return false
}

// isGeneratedPath recognizes scaffolded or generated files by well-known
// markers in the path.
func isGeneratedPath(p string) bool {
	lower := strings.ToLower(p)
	return strings.Contains(lower, ".generated.") ||
		strings.Contains(lower, "_generated") ||
		strings.Contains(lower, "/generated/") ||
		strings.Contains(lower, "/migrations/") ||
		strings.Contains(lower, "/scaffold") ||
		strings.HasSuffix(lower, ".pb.go") ||
		strings.HasSuffix(lower, ".g.dart") ||
		strings.HasSuffix(lower, ".d.ts")
}

// Package analyzer turns a submitted repository URL into a
// RepositoryAnalysis: a relevance-tiered file manifest, a language
// breakdown, a condensed commit timeline, and structural red flags.
// It performs no writes; each run produces a fresh analysis version.
package analyzer

import (
	"context"
	"log/slog"
	"time"

	"codearena.app/arbiter/common/id"
	"codearena.app/arbiter/common/logger"
	"codearena.app/arbiter/internal/model"
)

// estBytesPerLine converts blob volume to an estimated line count for the
// language histogram. Exact line counts would need every blob fetched.
const estBytesPerLine = 40

type Analyzer struct {
	client RepoClient
	host   string
}

func New(client RepoClient, acceptedHost string) *Analyzer {
	return &Analyzer{client: client, host: acceptedHost}
}

// Analyze fetches repository metadata and produces a new analysis version.
// Fails with ErrInvalidRepositoryURL (never retried) or
// ErrRepositoryUnavailable (retryable).
func (a *Analyzer) Analyze(ctx context.Context, sub model.Submission) (*model.RepositoryAnalysis, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Component: "arbiter.analyzer",
	})

	projectPath, err := ParseRepositoryURL(sub.RepositoryURL, a.host)
	if err != nil {
		return nil, err
	}

	project, err := a.client.Project(ctx, projectPath)
	if err != nil {
		return nil, err
	}

	ref := project.DefaultBranch
	if ref == "" {
		ref = "main"
	}

	tree, err := a.client.Tree(ctx, projectPath, ref)
	if err != nil {
		return nil, err
	}

	commits, err := a.client.Commits(ctx, projectPath, ref)
	if err != nil {
		return nil, err
	}

	contributors, err := a.client.ContributorCount(ctx, projectPath)
	if err != nil {
		return nil, err
	}

	manifest := make([]model.ManifestEntry, 0, len(tree))
	for _, entry := range tree {
		manifest = append(manifest, model.ManifestEntry{
			Path: entry.Path,
			Tier: ClassifyPath(entry.Path),
		})
	}

	timeline := summarizeCommits(commits, sub.SubmittedAt)

	analysis := &model.RepositoryAnalysis{
		ID:                id.New(),
		SubmissionID:      sub.ID,
		ProjectPath:       projectPath,
		DefaultRef:        ref,
		FileManifest:      manifest,
		LanguageBreakdown: languageBreakdown(manifest, project.RepositorySize),
		CommitTimeline:    timeline,
		RedFlags:          DetectRedFlags(manifest, timeline, project.CreatedAt, sub.SubmittedAt),
		RepoCreatedAt:     project.CreatedAt,
		RepoUpdatedAt:     project.LastActivityAt,
		License:           project.License,
		RepoSizeBytes:     project.RepositorySize,
		ContributorCount:  contributors,
		AnalyzedAt:        time.Now().UTC(),
	}

	slog.InfoContext(ctx, "repository analyzed",
		"project_path", projectPath,
		"files", len(manifest),
		"commits", timeline.CommitCount,
		"red_flags", analysis.RedFlags)

	return analysis, nil
}

// summarizeCommits condenses the commit list into timeline signals. The
// competition window is the lookback from submission time.
func summarizeCommits(commits []CommitInfo, submittedAt time.Time) model.CommitTimelineSummary {
	summary := model.CommitTimelineSummary{CommitCount: len(commits)}
	if len(commits) == 0 {
		return summary
	}

	authors := make(map[string]struct{})
	windowStart := submittedAt.Add(-competitionWindow)

	first, last := commits[0].CreatedAt, commits[0].CreatedAt
	for _, c := range commits {
		authors[c.AuthorName] = struct{}{}
		if c.CreatedAt.Before(first) {
			first = c.CreatedAt
		}
		if c.CreatedAt.After(last) {
			last = c.CreatedAt
		}
		if c.CreatedAt.After(windowStart) && !c.CreatedAt.After(submittedAt) {
			summary.CommitsInWindow++
		}
	}

	summary.AuthorCount = len(authors)
	summary.FirstCommitAt = &first
	summary.LastCommitAt = &last
	return summary
}

// languageBreakdown counts files per language and estimates lines by
// spreading the repository's blob volume across files. GitLab's tree
// listing carries no per-blob sizes, so lines are an estimate, clearly
// bounded by the repository's reported size.
func languageBreakdown(manifest []model.ManifestEntry, repoSize int64) map[string]model.LanguageStats {
	breakdown := make(map[string]model.LanguageStats)

	var avgBytes int64
	if len(manifest) > 0 && repoSize > 0 {
		avgBytes = repoSize / int64(len(manifest))
	}

	for _, e := range manifest {
		lang := Language(e.Path)
		if lang == "" {
			continue
		}
		stats := breakdown[lang]
		stats.Files++
		stats.Lines += avgBytes / estBytesPerLine
		breakdown[lang] = stats
	}

	return breakdown
}

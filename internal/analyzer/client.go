package analyzer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	gitlab "gitlab.com/gitlab-org/api/client-go"
	"golang.org/x/time/rate"
)

// ProjectInfo is the subset of repository metadata the analyzer needs.
type ProjectInfo struct {
	ID             int64
	DefaultBranch  string
	CreatedAt      *time.Time
	LastActivityAt *time.Time
	License        string
	RepositorySize int64 // bytes, from project statistics
}

// TreeEntry is one blob in the repository tree. GitLab's tree listing does
// not expose blob sizes; sizes are measured when content is fetched.
type TreeEntry struct {
	Path string
}

// CommitInfo is one commit in the project's history.
type CommitInfo struct {
	ID         string
	AuthorName string
	CreatedAt  time.Time
}

// RepoClient is the read-only repository metadata surface consumed by the
// analyzer and the curator. Implemented by gitlabClient in production and
// by fakes in tests.
type RepoClient interface {
	Project(ctx context.Context, projectPath string) (*ProjectInfo, error)
	Tree(ctx context.Context, projectPath, ref string) ([]TreeEntry, error)
	Commits(ctx context.Context, projectPath, ref string) ([]CommitInfo, error)
	ContributorCount(ctx context.Context, projectPath string) (int, error)
	RawFile(ctx context.Context, projectPath, ref, filePath string) ([]byte, error)
}

type ClientConfig struct {
	BaseURL        string // e.g. "https://gitlab.com"
	Token          string
	RequestsPerSec float64
	RequestBurst   int
	Timeout        time.Duration
}

type gitlabClient struct {
	gl      *gitlab.Client
	limiter *rate.Limiter
	timeout time.Duration
}

// NewGitLabClient builds the production RepoClient with client-side rate
// limiting, so a large analysis batch cannot trip the host's limits.
func NewGitLabClient(cfg ClientConfig) (RepoClient, error) {
	if cfg.RequestsPerSec <= 0 {
		cfg.RequestsPerSec = 5
	}
	if cfg.RequestBurst <= 0 {
		cfg.RequestBurst = 10
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	gl, err := gitlab.NewClient(cfg.Token, gitlab.WithBaseURL(cfg.BaseURL+"/api/v4"))
	if err != nil {
		return nil, fmt.Errorf("creating gitlab client: %w", err)
	}

	return &gitlabClient{
		gl:      gl,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), cfg.RequestBurst),
		timeout: cfg.Timeout,
	}, nil
}

func (c *gitlabClient) wait(ctx context.Context) (context.Context, context.CancelFunc, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	return ctx, cancel, nil
}

func (c *gitlabClient) Project(ctx context.Context, projectPath string) (*ProjectInfo, error) {
	ctx, cancel, err := c.wait(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	project, resp, err := c.gl.Projects.GetProject(projectPath, &gitlab.GetProjectOptions{
		Statistics: gitlab.Ptr(true),
		License:    gitlab.Ptr(true),
	}, gitlab.WithContext(ctx))
	if err != nil {
		return nil, mapError(resp, err)
	}

	info := &ProjectInfo{
		ID:            project.ID,
		DefaultBranch: project.DefaultBranch,
		CreatedAt:     project.CreatedAt,
		LastActivityAt: project.LastActivityAt,
	}
	if project.License != nil {
		info.License = project.License.Name
	}
	if project.Statistics != nil {
		info.RepositorySize = project.Statistics.RepositorySize
	}
	return info, nil
}

func (c *gitlabClient) Tree(ctx context.Context, projectPath, ref string) ([]TreeEntry, error) {
	opts := &gitlab.ListTreeOptions{
		Recursive: gitlab.Ptr(true),
		Ref:       gitlab.Ptr(ref),
		ListOptions: gitlab.ListOptions{
			Page:    1,
			PerPage: 100,
		},
	}

	var entries []TreeEntry
	for {
		waitCtx, cancel, err := c.wait(ctx)
		if err != nil {
			return nil, err
		}

		nodes, resp, err := c.gl.Repositories.ListTree(projectPath, opts, gitlab.WithContext(waitCtx))
		cancel()
		if err != nil {
			return nil, mapError(resp, err)
		}

		for _, n := range nodes {
			if n.Type != "blob" {
				continue
			}
			entries = append(entries, TreeEntry{Path: n.Path})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return entries, nil
}

func (c *gitlabClient) Commits(ctx context.Context, projectPath, ref string) ([]CommitInfo, error) {
	ctx, cancel, err := c.wait(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	commits, resp, err := c.gl.Commits.ListCommits(projectPath, &gitlab.ListCommitsOptions{
		RefName: gitlab.Ptr(ref),
		ListOptions: gitlab.ListOptions{
			Page:    1,
			PerPage: 100,
		},
	}, gitlab.WithContext(ctx))
	if err != nil {
		return nil, mapError(resp, err)
	}

	result := make([]CommitInfo, 0, len(commits))
	for _, commit := range commits {
		info := CommitInfo{
			ID:         commit.ID,
			AuthorName: commit.AuthorName,
		}
		if commit.CreatedAt != nil {
			info.CreatedAt = *commit.CreatedAt
		}
		result = append(result, info)
	}
	return result, nil
}

func (c *gitlabClient) ContributorCount(ctx context.Context, projectPath string) (int, error) {
	ctx, cancel, err := c.wait(ctx)
	if err != nil {
		return 0, err
	}
	defer cancel()

	contributors, resp, err := c.gl.Repositories.Contributors(projectPath, &gitlab.ListContributorsOptions{
		ListOptions: gitlab.ListOptions{Page: 1, PerPage: 100},
	}, gitlab.WithContext(ctx))
	if err != nil {
		return 0, mapError(resp, err)
	}
	return len(contributors), nil
}

func (c *gitlabClient) RawFile(ctx context.Context, projectPath, ref, filePath string) ([]byte, error) {
	ctx, cancel, err := c.wait(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	content, resp, err := c.gl.RepositoryFiles.GetRawFile(projectPath, filePath, &gitlab.GetRawFileOptions{
		Ref: gitlab.Ptr(ref),
	}, gitlab.WithContext(ctx))
	if err != nil {
		return nil, mapError(resp, err)
	}
	return content, nil
}

// mapError folds host errors into the analyzer's taxonomy: 404/403 and
// transport failures are ErrRepositoryUnavailable.
func mapError(resp *gitlab.Response, err error) error {
	if resp != nil {
		switch resp.StatusCode {
		case http.StatusNotFound, http.StatusForbidden, http.StatusUnauthorized:
			return fmt.Errorf("%w: %v", ErrRepositoryUnavailable, err)
		case http.StatusTooManyRequests:
			return fmt.Errorf("rate limited: %w", err)
		}
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrRepositoryUnavailable, err)
	}
	return fmt.Errorf("%w: %v", ErrRepositoryUnavailable, err)
}

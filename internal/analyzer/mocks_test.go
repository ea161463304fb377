package analyzer_test

import (
	"context"
	"errors"

	"codearena.app/arbiter/internal/analyzer"
)

// mockRepoClient implements analyzer.RepoClient with overridable function
// fields. Unset calls fail loudly so a test never silently exercises a path
// it did not stub.
type mockRepoClient struct {
	projectFn          func(ctx context.Context, projectPath string) (*analyzer.ProjectInfo, error)
	treeFn             func(ctx context.Context, projectPath, ref string) ([]analyzer.TreeEntry, error)
	commitsFn          func(ctx context.Context, projectPath, ref string) ([]analyzer.CommitInfo, error)
	contributorCountFn func(ctx context.Context, projectPath string) (int, error)
	rawFileFn          func(ctx context.Context, projectPath, ref, filePath string) ([]byte, error)
}

var errNotStubbed = errors.New("mock call not stubbed")

func (m *mockRepoClient) Project(ctx context.Context, projectPath string) (*analyzer.ProjectInfo, error) {
	if m.projectFn == nil {
		return nil, errNotStubbed
	}
	return m.projectFn(ctx, projectPath)
}

func (m *mockRepoClient) Tree(ctx context.Context, projectPath, ref string) ([]analyzer.TreeEntry, error) {
	if m.treeFn == nil {
		return nil, errNotStubbed
	}
	return m.treeFn(ctx, projectPath, ref)
}

func (m *mockRepoClient) Commits(ctx context.Context, projectPath, ref string) ([]analyzer.CommitInfo, error) {
	if m.commitsFn == nil {
		return nil, errNotStubbed
	}
	return m.commitsFn(ctx, projectPath, ref)
}

func (m *mockRepoClient) ContributorCount(ctx context.Context, projectPath string) (int, error) {
	if m.contributorCountFn == nil {
		return 0, errNotStubbed
	}
	return m.contributorCountFn(ctx, projectPath)
}

func (m *mockRepoClient) RawFile(ctx context.Context, projectPath, ref, filePath string) ([]byte, error) {
	if m.rawFileFn == nil {
		return nil, errNotStubbed
	}
	return m.rawFileFn(ctx, projectPath, ref, filePath)
}

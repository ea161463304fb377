package curator_test

import (
	"context"
	"errors"
	"fmt"

	"codearena.app/arbiter/common/llm"
	"codearena.app/arbiter/internal/analyzer"
)

// fakeRepoClient serves file contents from an in-memory map; only RawFile is
// exercised by the curator.
type fakeRepoClient struct {
	files map[string]string
	fail  map[string]bool
}

func (f *fakeRepoClient) Project(ctx context.Context, projectPath string) (*analyzer.ProjectInfo, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeRepoClient) Tree(ctx context.Context, projectPath, ref string) ([]analyzer.TreeEntry, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeRepoClient) Commits(ctx context.Context, projectPath, ref string) ([]analyzer.CommitInfo, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeRepoClient) ContributorCount(ctx context.Context, projectPath string) (int, error) {
	return 0, errors.New("not implemented")
}

func (f *fakeRepoClient) RawFile(ctx context.Context, projectPath, ref, filePath string) ([]byte, error) {
	if f.fail[filePath] {
		return nil, fmt.Errorf("fetching %s: boom", filePath)
	}
	content, ok := f.files[filePath]
	if !ok {
		return nil, fmt.Errorf("no such file %s", filePath)
	}
	return []byte(content), nil
}

// charCounter approximates one token per four characters, which is enough to
// exercise budget arithmetic deterministically.
type charCounter struct{}

func (charCounter) Count(text string) (int, error) {
	return len(text) / 4, nil
}

type mockAgentClient struct {
	chatFn func(ctx context.Context, req llm.AgentRequest) (*llm.AgentResponse, error)
}

func (m *mockAgentClient) ChatWithTools(ctx context.Context, req llm.AgentRequest) (*llm.AgentResponse, error) {
	if m.chatFn != nil {
		return m.chatFn(ctx, req)
	}
	return &llm.AgentResponse{}, nil
}

func (m *mockAgentClient) Model() string { return "mock-curator" }

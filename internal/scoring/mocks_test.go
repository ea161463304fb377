package scoring_test

import (
	"context"

	"codearena.app/arbiter/common/llm"
)

type mockAgentClient struct {
	chatFn func(ctx context.Context, req llm.AgentRequest) (*llm.AgentResponse, error)
}

func (m *mockAgentClient) ChatWithTools(ctx context.Context, req llm.AgentRequest) (*llm.AgentResponse, error) {
	if m.chatFn != nil {
		return m.chatFn(ctx, req)
	}
	return &llm.AgentResponse{}, nil
}

func (m *mockAgentClient) Model() string { return "mock-judge" }

package research_test

import (
	"context"
	"errors"
	"time"

	"codearena.app/arbiter/common/llm"
	"codearena.app/arbiter/internal/cache"
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

func (m *mockAgentClient) Model() string { return "mock-researcher" }

const validResearchArgs = `{
	"technical_implementation": {"score": 7.5, "analysis": "Solid contract layer with tests.", "red_flags": []},
	"market_analysis": {"competitors": ["acme"], "market_size": "niche", "differentiation": "on-chain settlement"},
	"innovation_rating": {"score": 6.0, "novelty_factors": ["settlement model"], "tech_usage": "standard stack"},
	"overall_assessment": {"score": 7.0, "strengths": ["focus"], "weaknesses": ["docs"], "recommendation": "advance"}
}`

func researchCall(args string) *llm.AgentResponse {
	return &llm.AgentResponse{
		ToolCalls: []llm.ToolCall{{ID: "t1", Name: "submit_research", Arguments: args}},
	}
}

// failingStore reads through to its inner store but rejects writes.
type failingStore struct {
	inner *cache.MemoryStore
}

func (f *failingStore) Get(ctx context.Context, key string) ([]byte, error) {
	return f.inner.Get(ctx, key)
}

func (f *failingStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return errors.New("redis down")
}

func (f *failingStore) Delete(ctx context.Context, key string) error {
	return f.inner.Delete(ctx, key)
}

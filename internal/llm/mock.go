package llm

import "context"

// MockProvider permite tests sin llamar a un LLM real.
type MockProvider struct {
	Response  string
	Err       error
	LastTurns []Turn
}

func (m *MockProvider) Reply(ctx context.Context, turns []Turn) (string, error) {
	m.LastTurns = turns
	return m.Response, m.Err
}

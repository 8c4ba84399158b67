package engine

import (
	"context"
	"sync"
)

// MockEngine records calls and returns canned results. Used by gateway tests
// to assert which engine calls a request did (or did not) trigger.
type MockEngine struct {
	mu    sync.Mutex
	Calls []string

	AddResult     bool
	RemoveResult  bool
	EnforceResult bool
	Policies      [][]string
	Err           error
}

func (m *MockEngine) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, call)
}

// CallCount returns how many engine calls were made in total.
func (m *MockEngine) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

func (m *MockEngine) AddPolicy(ctx context.Context, sub, obj, act string) (bool, error) {
	m.record("AddPolicy")
	return m.AddResult, m.Err
}

func (m *MockEngine) AddPolicies(ctx context.Context, rules [][]string) (int, error) {
	m.record("AddPolicies")
	if m.Err != nil {
		return 0, m.Err
	}
	return len(rules), nil
}

func (m *MockEngine) RemovePolicy(ctx context.Context, sub, obj, act string) (bool, error) {
	m.record("RemovePolicy")
	return m.RemoveResult, m.Err
}

func (m *MockEngine) GetFilteredPolicy(ctx context.Context, filter Filter) ([][]string, error) {
	m.record("GetFilteredPolicy")
	return m.Policies, m.Err
}

func (m *MockEngine) RemoveFilteredPolicy(ctx context.Context, filter Filter) (int, error) {
	m.record("RemoveFilteredPolicy")
	if m.Err != nil {
		return 0, m.Err
	}
	return len(m.Policies), nil
}

func (m *MockEngine) Enforce(ctx context.Context, sub, obj, act string) (bool, error) {
	m.record("Enforce")
	return m.EnforceResult, m.Err
}

func (m *MockEngine) GetAllPolicies(ctx context.Context) ([][]string, error) {
	m.record("GetAllPolicies")
	return m.Policies, m.Err
}

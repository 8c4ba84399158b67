package engine

import "context"

// Engine is the decision engine the gateway delegates to. It owns rule
// storage, deduplication and the allow/deny evaluation algorithm, and must
// guarantee atomicity of each individual call against concurrent callers.
type Engine interface {
	// AddPolicy inserts one rule. Returns false if an identical rule
	// already existed.
	AddPolicy(ctx context.Context, sub, obj, act string) (bool, error)
	// AddPolicies inserts a batch of rules and returns how many were new.
	AddPolicies(ctx context.Context, rules [][]string) (int, error)
	// RemovePolicy deletes one rule. Returns false if no matching rule
	// existed.
	RemovePolicy(ctx context.Context, sub, obj, act string) (bool, error)
	// GetFilteredPolicy returns the rules matching a partial filter.
	GetFilteredPolicy(ctx context.Context, filter Filter) ([][]string, error)
	// RemoveFilteredPolicy deletes the rules matching a partial filter and
	// returns how many were removed.
	RemoveFilteredPolicy(ctx context.Context, filter Filter) (int, error)
	// Enforce evaluates one (sub, obj, act) query. Read-only.
	Enforce(ctx context.Context, sub, obj, act string) (bool, error)
	// GetAllPolicies returns every stored rule.
	GetAllPolicies(ctx context.Context) ([][]string, error)
}

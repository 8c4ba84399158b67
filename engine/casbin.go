package engine

import (
	"context"
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"
)

// defaultModel is the classic three-slot ACL model. Matching semantics are
// casbin's contract, not the gateway's.
const defaultModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && r.obj == p.obj && r.act == p.act
`

// CasbinEngine implements Engine on top of a synced casbin enforcer. The
// enforcer's lock is what makes each call atomic against concurrent callers.
type CasbinEngine struct {
	enforcer *casbin.SyncedEnforcer
}

// NewCasbinEngine builds an engine from a model file and an optional CSV
// policy adapter. Both paths may be empty: no model path means the built-in
// ACL model, no policy path means rules live in memory only.
func NewCasbinEngine(modelPath, policyPath string) (*CasbinEngine, error) {
	var params []interface{}

	if modelPath != "" {
		params = append(params, modelPath)
	} else {
		m, err := model.NewModelFromString(defaultModel)
		if err != nil {
			return nil, fmt.Errorf("parse policy model: %w", err)
		}
		params = append(params, m)
	}

	if policyPath != "" {
		params = append(params, fileadapter.NewAdapter(policyPath))
	}

	enforcer, err := casbin.NewSyncedEnforcer(params...)
	if err != nil {
		return nil, fmt.Errorf("initialize enforcer: %w", err)
	}

	return &CasbinEngine{enforcer: enforcer}, nil
}

func (e *CasbinEngine) AddPolicy(ctx context.Context, sub, obj, act string) (bool, error) {
	return e.addRule([]string{sub, obj, act})
}

func (e *CasbinEngine) AddPolicies(ctx context.Context, rules [][]string) (int, error) {
	// rule-by-rule rather than the enforcer's all-or-nothing batch call, so
	// duplicates inside an otherwise fresh batch still report a count
	added := 0
	for _, rule := range rules {
		ok, err := e.addRule(rule)
		if err != nil {
			return added, err
		}
		if ok {
			added++
		}
	}
	return added, nil
}

// addRule inserts one rule and reports whether it was new. The enforcer's
// own add call answers "is the rule present afterwards", not "was it newly
// inserted", so newness has to be established up front with HasPolicy.
func (e *CasbinEngine) addRule(rule []string) (bool, error) {
	params := toInterfaces(rule)

	has, err := e.enforcer.HasPolicy(params...)
	if err != nil {
		return false, err
	}
	if has {
		return false, nil
	}

	if _, err := e.enforcer.AddPolicy(params...); err != nil {
		return false, err
	}
	return true, nil
}

func (e *CasbinEngine) RemovePolicy(ctx context.Context, sub, obj, act string) (bool, error) {
	return e.enforcer.RemovePolicy(sub, obj, act)
}

func (e *CasbinEngine) GetFilteredPolicy(ctx context.Context, filter Filter) ([][]string, error) {
	fieldIndex, values := filter.Positional()
	return e.enforcer.GetFilteredPolicy(fieldIndex, values...)
}

func (e *CasbinEngine) RemoveFilteredPolicy(ctx context.Context, filter Filter) (int, error) {
	fieldIndex, values := filter.Positional()

	matched, err := e.enforcer.GetFilteredPolicy(fieldIndex, values...)
	if err != nil {
		return 0, err
	}
	if len(matched) == 0 {
		return 0, nil
	}

	removed, err := e.enforcer.RemoveFilteredPolicy(fieldIndex, values...)
	if err != nil {
		return 0, err
	}
	if !removed {
		return 0, nil
	}
	return len(matched), nil
}

func (e *CasbinEngine) Enforce(ctx context.Context, sub, obj, act string) (bool, error) {
	return e.enforcer.Enforce(sub, obj, act)
}

func (e *CasbinEngine) GetAllPolicies(ctx context.Context) ([][]string, error) {
	return e.enforcer.GetPolicy()
}

func toInterfaces(rule []string) []interface{} {
	out := make([]interface{}, len(rule))
	for i, v := range rule {
		out[i] = v
	}
	return out
}

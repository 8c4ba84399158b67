package models

import "fmt"

// PolicyTuple is one (subject, object, action) rule or enforcement query.
// The gateway never stores these; they are request/response payloads only.
type PolicyTuple struct {
	Sub string `json:"sub" binding:"required"`
	Obj string `json:"obj" binding:"required"`
	Act string `json:"act" binding:"required"`
}

// Validate checks that all three fields are present and non-empty.
func (t PolicyTuple) Validate() error {
	if t.Sub == "" {
		return fmt.Errorf("missing sub")
	}
	if t.Obj == "" {
		return fmt.Errorf("missing obj")
	}
	if t.Act == "" {
		return fmt.Errorf("missing act")
	}
	return nil
}

// Rule returns the tuple as a casbin-style policy row.
func (t PolicyTuple) Rule() []string {
	return []string{t.Sub, t.Obj, t.Act}
}

// TupleFromRule converts a policy row back into a tuple. Rows shorter than
// three values leave the remaining fields empty.
func TupleFromRule(rule []string) PolicyTuple {
	var t PolicyTuple
	if len(rule) > 0 {
		t.Sub = rule[0]
	}
	if len(rule) > 1 {
		t.Obj = rule[1]
	}
	if len(rule) > 2 {
		t.Act = rule[2]
	}
	return t
}

// FilterInput is the body shape of filtered deletes. Pointer fields keep the
// present-but-empty case distinguishable from absent: an explicit empty
// string still counts as a supplied filter value.
type FilterInput struct {
	FieldIndex *int    `json:"fieldIndex"`
	Sub        *string `json:"sub"`
	Obj        *string `json:"obj"`
	Act        *string `json:"act"`
}

// Values returns the supplied field values in canonical sub/obj/act order.
func (f FilterInput) Values() []string {
	values := make([]string, 0, 3)
	for _, field := range []*string{f.Sub, f.Obj, f.Act} {
		if field != nil {
			values = append(values, *field)
		}
	}
	return values
}

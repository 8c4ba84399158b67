package engine

// Tuple slot positions. The set of fields is closed: a policy tuple is
// always (sub, obj, act).
const (
	FieldSub = 0
	FieldObj = 1
	FieldAct = 2

	numFields = 3
)

// Filter is a partial policy match with named tuple fields. It is produced
// by Translate and consumed by the engine's filtered calls; both the query
// transport (GET /policy) and the body transport (DELETE /filtered_policy)
// normalize into this one structure.
type Filter struct {
	Sub, Obj, Act *string
}

// Translate maps positional filter values onto named tuple fields: values[i]
// applies to slot fieldIndex+i. Values that would land past the last slot
// are dropped rather than rejected; supplying more values than remaining
// slots is a caller error that degrades gracefully. Translate performs no
// validation of value content and no engine call.
func Translate(fieldIndex int, values []string) Filter {
	var f Filter
	for i := range values {
		v := values[i]
		switch fieldIndex + i {
		case FieldSub:
			f.Sub = &v
		case FieldObj:
			f.Obj = &v
		case FieldAct:
			f.Act = &v
		}
	}
	return f
}

// IsEmpty reports whether no field resolved at all. An empty filter is a
// caller error: it would match everything.
func (f Filter) IsEmpty() bool {
	return f.Sub == nil && f.Obj == nil && f.Act == nil
}

// Positional converts the named fields back to the (fieldIndex, values)
// form the enforcer consumes. The range starts at the first named slot and
// ends at the last; interior gaps become empty strings, which the enforcer
// treats as match-anything.
func (f Filter) Positional() (int, []string) {
	fields := [numFields]*string{f.Sub, f.Obj, f.Act}

	first, last := -1, -1
	for i, field := range fields {
		if field == nil {
			continue
		}
		if first == -1 {
			first = i
		}
		last = i
	}
	if first == -1 {
		return 0, nil
	}

	values := make([]string, 0, last-first+1)
	for i := first; i <= last; i++ {
		if fields[i] != nil {
			values = append(values, *fields[i])
		} else {
			values = append(values, "")
		}
	}
	return first, values
}

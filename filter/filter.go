// Package filter evaluates a MongoDB-style predicate tree against a
// document's metadata mapping.
package filter

import "strings"

// Match reports whether metadata satisfies the predicate tree pred. A nil
// or empty predicate always matches.
func Match(pred map[string]any, metadata map[string]any) bool {
	if len(pred) == 0 {
		return true
	}
	for key, val := range pred {
		switch key {
		case "$or":
			list, ok := val.([]map[string]any)
			if !ok {
				list, ok = toPredList(val)
				if !ok {
					return false
				}
			}
			if !matchAny(list, metadata) {
				return false
			}
		case "$and":
			list, ok := val.([]map[string]any)
			if !ok {
				list, ok = toPredList(val)
				if !ok {
					return false
				}
			}
			if !matchAll(list, metadata) {
				return false
			}
		case "$not":
			sub, ok := val.(map[string]any)
			if !ok {
				return false
			}
			if Match(sub, metadata) {
				return false
			}
		default:
			if !matchField(key, val, metadata) {
				return false
			}
		}
	}
	return true
}

func toPredList(val any) ([]map[string]any, bool) {
	raw, ok := val.([]any)
	if !ok {
		return nil, false
	}
	out := make([]map[string]any, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, false
		}
		out = append(out, m)
	}
	return out, true
}

func matchAny(preds []map[string]any, metadata map[string]any) bool {
	for _, p := range preds {
		if Match(p, metadata) {
			return true
		}
	}
	return false
}

func matchAll(preds []map[string]any, metadata map[string]any) bool {
	for _, p := range preds {
		if !Match(p, metadata) {
			return false
		}
	}
	return true
}

// matchField evaluates a single field key against metadata. val is either
// a scalar (equality/membership) or an operator dict ({$gt: 5, ...}).
func matchField(field string, val any, metadata map[string]any) bool {
	actual := navigate(field, metadata)

	ops, ok := val.(map[string]any)
	if !ok {
		return equalityOrMembership(actual, val)
	}
	for op, target := range ops {
		if !applyOp(op, actual, target) {
			return false
		}
	}
	return true
}

// navigate resolves a dotted path against nested maps, returning nil when
// any segment of the path is absent.
func navigate(path string, metadata map[string]any) any {
	segments := strings.Split(path, ".")
	var current any = metadata
	for _, seg := range segments {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		v, present := m[seg]
		if !present {
			return nil
		}
		current = v
	}
	return current
}

// equalityOrMembership implements the "scalar vs list" rule: if actual is
// a list and val is scalar, match if val is a member; otherwise compare
// for equality.
func equalityOrMembership(actual, val any) bool {
	if list, ok := actual.([]any); ok {
		for _, item := range list {
			if compareEqual(item, val) {
				return true
			}
		}
		return false
	}
	return compareEqual(actual, val)
}

func applyOp(op string, actual, target any) bool {
	switch op {
	case "$eq":
		return compareEqual(actual, target)
	case "$ne":
		return !compareEqual(actual, target)
	case "$gt":
		return compareOrdered(actual, target, func(c int) bool { return c > 0 })
	case "$gte":
		return compareOrdered(actual, target, func(c int) bool { return c >= 0 })
	case "$lt":
		return compareOrdered(actual, target, func(c int) bool { return c < 0 })
	case "$lte":
		return compareOrdered(actual, target, func(c int) bool { return c <= 0 })
	case "$in":
		return inMembership(actual, target)
	case "$nin":
		return !inMembership(actual, target)
	default:
		// Unknown operators are treated as a pass (true).
		return true
	}
}

func inMembership(actual, target any) bool {
	list, ok := target.([]any)
	if !ok {
		return compareEqual(actual, target)
	}
	for _, item := range list {
		if compareEqual(actual, item) {
			return true
		}
	}
	return false
}

// compareEqual compares two values for equality, treating numeric types
// uniformly (float64 vs int) since decoded JSON/config values commonly
// mix representations.
func compareEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	af, aIsNum := asFloat(a)
	bf, bIsNum := asFloat(b)
	if aIsNum && bIsNum {
		return af == bf
	}
	return a == b
}

// compareOrdered compares a and b, applying judge to the resulting sign.
// null never compares true for ordering operators, and a type mismatch
// (neither numeric nor comparable strings) returns false.
func compareOrdered(a, b any, judge func(int) bool) bool {
	if a == nil || b == nil {
		return false
	}
	if af, aOk := asFloat(a); aOk {
		if bf, bOk := asFloat(b); bOk {
			return judge(cmpFloat(af, bf))
		}
		return false
	}
	as, aOk := a.(string)
	bs, bOk := b.(string)
	if aOk && bOk {
		return judge(strings.Compare(as, bs))
	}
	return false
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

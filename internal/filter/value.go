package filter

// ValueCondition matches a scalar transaction field. Every set constraint
// must hold; the zero value matches anything.
type ValueCondition struct {
	// Is requires exact equality with the field value.
	Is any
	// In requires the field value to equal one of the listed values.
	In []any
	// Numeric bounds, applied only to numeric fields.
	GT  *float64
	GTE *float64
	LT  *float64
	LTE *float64
}

// Check reports whether the field value satisfies the condition.
// A nil condition is vacuously true.
func (c *ValueCondition) Check(v any) bool {
	if c == nil {
		return true
	}
	if c.Is != nil && !equalValues(v, c.Is) {
		return false
	}
	if c.In != nil {
		found := false
		for _, want := range c.In {
			if equalValues(v, want) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if c.GT != nil || c.GTE != nil || c.LT != nil || c.LTE != nil {
		n, ok := asFloat(v)
		if !ok {
			return false
		}
		if c.GT != nil && !(n > *c.GT) {
			return false
		}
		if c.GTE != nil && !(n >= *c.GTE) {
			return false
		}
		if c.LT != nil && !(n < *c.LT) {
			return false
		}
		if c.LTE != nil && !(n <= *c.LTE) {
			return false
		}
	}
	return true
}

// StringCondition matches a string field: exact value, or any of a set.
type StringCondition struct {
	Is string
	In []string
}

// Check reports whether s satisfies the condition. A nil condition is
// vacuously true.
func (c *StringCondition) Check(s string) bool {
	if c == nil {
		return true
	}
	if c.Is != "" && s != c.Is {
		return false
	}
	if c.In != nil {
		for _, want := range c.In {
			if s == want {
				return true
			}
		}
		return false
	}
	return true
}

// equalValues compares two values with numeric types normalized, so a
// float64 field matches an int condition value.
func equalValues(a, b any) bool {
	if fa, ok := asFloat(a); ok {
		if fb, ok := asFloat(b); ok {
			return fa == fb
		}
		return false
	}
	return a == b
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

package filter

import (
	"fmt"
	"time"
)

// MaxConditions is the maximum number of conditions per expression.
const MaxConditions = 32

// Expression is a conjunction of exact-match conditions.
type Expression struct {
	must []Condition
}

// NewExpression validates and creates a filter Expression.
func NewExpression(must ...Condition) (Expression, error) {
	if len(must) > MaxConditions {
		return Expression{}, fmt.Errorf("too many conditions (max %d)", MaxConditions)
	}
	out := make([]Condition, len(must))
	copy(out, must)
	return Expression{must: out}, nil
}

// Must returns the conditions.
func (e Expression) Must() []Condition {
	out := make([]Condition, len(e.must))
	copy(out, e.must)
	return out
}

// IsEmpty reports whether the expression has no conditions.
func (e Expression) IsEmpty() bool { return len(e.must) == 0 }

// With returns a copy of e with c prepended.
func (e Expression) With(c Condition) (Expression, error) {
	return NewExpression(append([]Condition{c}, e.must...)...)
}

// Condition is a single exact-match clause.
type Condition struct {
	key   string
	value any
}

// NewMatch creates an exact match condition. The value must be a string,
// bool, number or time.Time.
func NewMatch(key string, value any) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("filter key is required")
	}
	switch v := value.(type) {
	case string:
		if v == "" {
			return Condition{}, fmt.Errorf("match value is required for key %q", key)
		}
	case bool, int, int32, int64, uint, uint32, uint64, float32, float64, time.Time:
	case nil:
		return Condition{}, fmt.Errorf("match value is required for key %q", key)
	default:
		return Condition{}, fmt.Errorf("unsupported match value %T for key %q", value, key)
	}
	return Condition{key: key, value: value}, nil
}

// Key returns the field name.
func (c Condition) Key() string { return c.key }

// Value returns the value to match.
func (c Condition) Value() any { return c.value }

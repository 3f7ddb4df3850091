// Package filter defines the structured filter expression attached to source
// requests. Predicates are backend-interpreted: the aggregator serializes them
// onto the wire and never evaluates them client-side.
package filter

import (
	"encoding/json"
	"fmt"
)

// MaxConditionsPerGroup is the maximum number of conditions per filter group.
const MaxConditionsPerGroup = 32

// Op is a comparison operator understood by backend sources.
type Op string

// Supported operators.
const (
	OpEq  Op = "eq"
	OpNe  Op = "ne"
	OpIn  Op = "in"
	OpGt  Op = "gt"
	OpGte Op = "gte"
	OpLt  Op = "lt"
	OpLte Op = "lte"
)

var validOps = map[Op]struct{}{
	OpEq: {}, OpNe: {}, OpIn: {}, OpGt: {}, OpGte: {}, OpLt: {}, OpLte: {},
}

// Condition is a single key/operator/value predicate leaf.
type Condition struct {
	key   string
	op    Op
	value any
}

// NewCondition validates and creates a predicate leaf.
func NewCondition(key string, op Op, value any) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("filter key is required")
	}
	if _, ok := validOps[op]; !ok {
		return Condition{}, fmt.Errorf("unknown filter operator %q for key %q", op, key)
	}
	if value == nil {
		return Condition{}, fmt.Errorf("filter value is required for key %q", key)
	}
	return Condition{key: key, op: op, value: value}, nil
}

// Key returns the metadata field name.
func (c Condition) Key() string { return c.key }

// Operator returns the comparison operator.
func (c Condition) Operator() Op { return c.op }

// Value returns the comparison value.
func (c Condition) Value() any { return c.value }

// MarshalJSON serializes the condition for the source wire contract.
func (c Condition) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Key   string `json:"key"`
		Op    Op     `json:"op"`
		Value any    `json:"value"`
	}{Key: c.key, Op: c.op, Value: c.value})
}

// Expression is a predicate tree with must/should/must_not boolean semantics.
type Expression struct {
	must    []Condition
	should  []Condition
	mustNot []Condition
}

// NewExpression validates and creates a filter Expression.
func NewExpression(must, should, mustNot []Condition) (Expression, error) {
	if len(must) > MaxConditionsPerGroup {
		return Expression{}, fmt.Errorf("too many must conditions (max %d)", MaxConditionsPerGroup)
	}
	if len(should) > MaxConditionsPerGroup {
		return Expression{}, fmt.Errorf("too many should conditions (max %d)", MaxConditionsPerGroup)
	}
	if len(mustNot) > MaxConditionsPerGroup {
		return Expression{}, fmt.Errorf("too many must_not conditions (max %d)", MaxConditionsPerGroup)
	}
	return Expression{must: must, should: should, mustNot: mustNot}, nil
}

// Must returns the must conditions.
func (e Expression) Must() []Condition { return e.must }

// Should returns the should conditions.
func (e Expression) Should() []Condition { return e.should }

// MustNot returns the must-not conditions.
func (e Expression) MustNot() []Condition { return e.mustNot }

// IsEmpty reports whether the expression has no conditions.
func (e Expression) IsEmpty() bool {
	return len(e.must) == 0 && len(e.should) == 0 && len(e.mustNot) == 0
}

// MarshalJSON serializes the expression for the source wire contract.
// Empty groups are omitted.
func (e Expression) MarshalJSON() ([]byte, error) {
	out := make(map[string][]Condition, 3)
	if len(e.must) > 0 {
		out["must"] = e.must
	}
	if len(e.should) > 0 {
		out["should"] = e.should
	}
	if len(e.mustNot) > 0 {
		out["must_not"] = e.mustNot
	}
	return json.Marshal(out)
}

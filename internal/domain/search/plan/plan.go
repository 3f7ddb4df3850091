// Package plan holds the query plan: the ordered subquery sequence one input
// query expands into.
package plan

import "strings"

// Plan is an ordered, non-empty sequence of subqueries. A plan never has zero
// subqueries: decomposition output that yields nothing falls back to the
// original query.
type Plan struct {
	subqueries []string
	decomposed bool
}

// Single creates the identity plan: one subquery equal to the input query.
func Single(query string) Plan {
	return Plan{subqueries: []string{query}}
}

// Decomposed creates a plan from decomposition output. Blank subqueries are
// dropped; if nothing usable remains the plan falls back to the original
// query and reports itself as not decomposed.
func Decomposed(query string, subqueries []string) Plan {
	kept := make([]string, 0, len(subqueries))
	for _, sq := range subqueries {
		if trimmed := strings.TrimSpace(sq); trimmed != "" {
			kept = append(kept, trimmed)
		}
	}
	if len(kept) == 0 {
		return Single(query)
	}
	return Plan{subqueries: kept, decomposed: true}
}

// Subqueries returns the ordered subqueries.
func (p Plan) Subqueries() []string { return p.subqueries }

// Len returns the number of subqueries.
func (p Plan) Len() int { return len(p.subqueries) }

// IsDecomposed reports whether the plan came from successful decomposition.
func (p Plan) IsDecomposed() bool { return p.decomposed }

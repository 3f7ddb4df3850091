package plan

import "testing"

func TestSingle(t *testing.T) {
	p := Single("what changed in v2")
	if p.Len() != 1 || p.Subqueries()[0] != "what changed in v2" {
		t.Fatalf("identity plan = %v", p.Subqueries())
	}
	if p.IsDecomposed() {
		t.Fatal("identity plan must not report decomposition")
	}
}

func TestDecomposed(t *testing.T) {
	p := Decomposed("q", []string{" first ", "", "second", "   "})
	if p.Len() != 2 {
		t.Fatalf("Len = %d, want 2 after dropping blanks", p.Len())
	}
	if got := p.Subqueries(); got[0] != "first" || got[1] != "second" {
		t.Fatalf("subqueries = %v", got)
	}
	if !p.IsDecomposed() {
		t.Fatal("plan with usable subqueries must report decomposition")
	}
}

func TestDecomposed_FallsBackToQuery(t *testing.T) {
	p := Decomposed("original", []string{"", "   "})
	if p.Len() != 1 || p.Subqueries()[0] != "original" {
		t.Fatalf("fallback plan = %v, want the original query", p.Subqueries())
	}
	if p.IsDecomposed() {
		t.Fatal("fallback plan must not report decomposition")
	}
}

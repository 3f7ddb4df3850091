package source

import (
	"testing"

	"github.com/kailas-cloud/retrievex/internal/domain/search/filter"
)

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func TestSet_EffectiveValues(t *testing.T) {
	set := NewSet(map[string]Config{
		"KB":      NewConfig(intPtr(5), floatPtr(0.9), filter.Expression{}),
		"TICKETS": NewConfig(nil, nil, filter.Expression{}),
	}, 10, 0.5)

	if got := set.MaxDocuments("KB"); got != 5 {
		t.Fatalf("MaxDocuments(KB) = %d, want 5", got)
	}
	if got := set.MinConfidence("KB"); got != 0.9 {
		t.Fatalf("MinConfidence(KB) = %v, want 0.9", got)
	}
	if got := set.MaxDocuments("TICKETS"); got != 10 {
		t.Fatalf("MaxDocuments(TICKETS) = %d, want default 10", got)
	}
	if got := set.MinConfidence("UNKNOWN"); got != 0.5 {
		t.Fatalf("MinConfidence(UNKNOWN) = %v, want default 0.5", got)
	}
}

func TestSet_Names(t *testing.T) {
	set := NewSet(map[string]Config{
		"ZULU":  {},
		"ALPHA": {},
		"MIKE":  {},
	}, 10, 0)

	names := set.Names()
	want := []string{"ALPHA", "MIKE", "ZULU"}
	if len(names) != len(want) {
		t.Fatalf("Names = %v", names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("Names = %v, want sorted %v", names, want)
		}
	}
}

func TestSelector(t *testing.T) {
	if !All().IsAll() {
		t.Fatal("All selector must report IsAll")
	}
	if !Names().IsAll() {
		t.Fatal("empty name list must mean all sources")
	}
	sel := Names("KB", "TICKETS")
	if sel.IsAll() {
		t.Fatal("explicit selection must not report IsAll")
	}
	if got := sel.List(); len(got) != 2 || got[0] != "KB" {
		t.Fatalf("List = %v", got)
	}
}

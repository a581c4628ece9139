package stages

import "testing"

func TestApplyScopeFiltersIncludeAndExclude(t *testing.T) {
	hosts := []string{"api.example.com", "admin.example.com", "www.example.com"}
	out, err := applyScope(hosts, `^(api|admin)\.`, `^admin\.`)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0] != "api.example.com" {
		t.Fatalf("applyScope = %v, want [api.example.com]", out)
	}
}

func TestApplyScopeNoFiltersPassesThrough(t *testing.T) {
	hosts := []string{"a.example.com", "b.example.com"}
	out, err := applyScope(hosts, "", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 {
		t.Fatalf("applyScope = %v, want all hosts passed through", out)
	}
}

func TestUnionSortedDedupesAndLowercases(t *testing.T) {
	got := unionSorted([]string{"B.example.com", "a.example.com"}, []string{"a.example.com"})
	want := []string{"a.example.com", "b.example.com"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("unionSorted = %v, want %v", got, want)
	}
}

func TestDedupeSortedPreservesCase(t *testing.T) {
	got := dedupeSorted([]string{"https://A.example.com/X"}, []string{"https://A.example.com/X"})
	if len(got) != 1 || got[0] != "https://A.example.com/X" {
		t.Fatalf("dedupeSorted = %v", got)
	}
}

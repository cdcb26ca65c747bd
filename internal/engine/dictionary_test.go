package engine

import (
	"strconv"
	"testing"
)

func TestBuildDictionary(t *testing.T) {
	// 1. Setup
	values := []Value{"Germany", "France", nil, "Germany", 42, "Spain"}

	// 2. Run
	dict, ids := BuildDictionary(values)

	// 3. Assertions
	// Dictionary is in first-seen order; null and non-string values get -1.
	wantDict := []string{"Germany", "France", "Spain"}
	if len(dict) != len(wantDict) {
		t.Fatalf("Expected %d unique values, got %d (%v)", len(wantDict), len(dict), dict)
	}
	for i := range wantDict {
		if dict[i] != wantDict[i] {
			t.Errorf("dict[%d]: expected %s, got %s", i, wantDict[i], dict[i])
		}
	}
	wantIDs := []int32{0, 1, -1, 0, -1, 2}
	for i := range wantIDs {
		if ids[i] != wantIDs[i] {
			t.Errorf("ids[%d]: expected %d, got %d", i, wantIDs[i], ids[i])
		}
	}
}

func TestBuildDictionaryParallel(t *testing.T) {
	// Large enough to take the chunked path. Every row must map back to its
	// own string through the merged dictionary.
	n := parallelDictMin * 3
	values := make([]Value, n)
	for i := range values {
		if i%97 == 0 {
			continue
		}
		values[i] = "k" + strconv.Itoa(i%1000)
	}

	dict, ids := BuildDictionary(values)

	if len(dict) != 1000 {
		t.Fatalf("Expected 1000 unique values, got %d", len(dict))
	}
	seen := make(map[string]bool, len(dict))
	for _, s := range dict {
		if seen[s] {
			t.Fatalf("Duplicate dictionary entry %q", s)
		}
		seen[s] = true
	}
	for i, v := range values {
		if v == nil {
			if ids[i] != -1 {
				t.Fatalf("Row %d: expected -1 for null, got %d", i, ids[i])
			}
			continue
		}
		if dict[ids[i]] != v.(string) {
			t.Fatalf("Row %d: expected %s, got %s", i, v, dict[ids[i]])
		}
	}
}

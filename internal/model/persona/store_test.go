package persona

import "testing"

func TestResolveFallsBackToDefault(t *testing.T) {
	store := NewMemoryStore(Seed())

	got := Resolve(store, "missing")
	if got.ID != DefaultID {
		t.Fatalf("expected default persona, got %s", got.ID)
	}

	custom := NewMemoryStore([]Persona{{ID: "echo", Name: "Echo"}})
	if got := Resolve(custom, "echo"); got.Name != "Echo" {
		t.Fatalf("expected Echo, got %s", got.Name)
	}
	if got := Resolve(nil, ""); got.Name != "Swift" {
		t.Fatalf("expected Swift from nil store, got %s", got.Name)
	}
}

func TestWithFactsLeavesSeedUntouched(t *testing.T) {
	seed := Seed()[0]
	before := len(seed.Facts)

	got := seed.WithFacts("model fact")
	if got.Facts[0] != "model fact" || len(got.Facts) != before+1 {
		t.Fatalf("unexpected facts %v", got.Facts)
	}
	if len(seed.Facts) != before {
		t.Fatalf("seed facts mutated: %v", seed.Facts)
	}
}

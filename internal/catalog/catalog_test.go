package catalog

import "testing"

func intPtr(n int) *int { return &n }

func testCards() []Card {
	return []Card{
		{Code: "01001a", Name: "Spider-Man", TypeCode: "hero", FactionName: "Hero", PackCode: "core"},
		{Code: "01001b", Name: "Spider-Man", TypeCode: "hero", FactionName: "Hero", PackCode: "core"},
		{Code: "27001a", Name: "Ant-Man", TypeCode: "hero", FactionName: "Hero", PackCode: "ant"},
		{Code: "27001b", Name: "Ant-Man", TypeCode: "hero", FactionName: "Hero", PackCode: "ant"},
		{Code: "01045", Name: "Lockjaw", TypeCode: "ally", FactionName: "Leadership", Cost: intPtr(4), DeckLimit: 1},
		{Code: "01072", Name: "Emergency", TypeCode: "event", FactionName: "Basic", DeckLimit: 3},
		{Code: "01005", Name: "Spider-Tracer", TypeCode: "upgrade", FactionName: "Hero", DeckLimit: 3},
	}
}

func TestRepeatLimit(t *testing.T) {
	idx := New(testCards())

	if got := idx.RepeatLimit("01072"); got != 3 {
		t.Errorf("RepeatLimit(01072) = %d, want 3", got)
	}
	if got := idx.RepeatLimit("01045"); got != 1 {
		t.Errorf("RepeatLimit(01045) = %d, want 1", got)
	}
	// Unknown cards default to 1.
	if got := idx.RepeatLimit("99999"); got != 1 {
		t.Errorf("RepeatLimit(unknown) = %d, want 1", got)
	}
}

func TestSignature(t *testing.T) {
	idx := New(testCards())

	if !idx["01005"].Signature() {
		t.Error("hero-faction card should be signature")
	}
	if idx["01072"].Signature() {
		t.Error("basic card should not be signature")
	}
}

func TestHeroMergeMap(t *testing.T) {
	idx := New(testCards())

	counts := map[string]int{
		"27001a": 120,
		"27001b": 30,
		"01001a": 500,
		// 01001b has no decks: its group has a single in-deck code, no merge.
	}

	merge := idx.HeroMergeMap(counts)

	if got := merge["27001b"]; got != "27001a" {
		t.Errorf("27001b should merge into 27001a, got %q", got)
	}
	if _, ok := merge["27001a"]; ok {
		t.Error("primary code must not be remapped")
	}
	if _, ok := merge["01001b"]; ok {
		t.Error("codes with zero decks must not appear in the merge map")
	}
}

func TestHeroMergeMapTieBreak(t *testing.T) {
	idx := New(testCards())

	counts := map[string]int{"27001a": 50, "27001b": 50}
	merge := idx.HeroMergeMap(counts)

	if got := merge["27001b"]; got != "27001a" {
		t.Errorf("tie should pick the lower code as primary, got merge[27001b]=%q", got)
	}
}

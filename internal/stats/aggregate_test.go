package stats

import (
	"math"
	"testing"
)

func limitOf(limits map[string]int) func(string) int {
	return func(code string) int {
		if l, ok := limits[code]; ok {
			return l
		}
		return 1
	}
}

// Fresh deck with X and Y, year-old deck with only X. Weighted total is
// 1 + exp(-1) ≈ 1.368, so X sits at 100% and Y at ≈73.1%.
func TestAggregateWeightedFrequency(t *testing.T) {
	records := []WeightedRecord{
		{Weight: Weight(0), Slots: map[string]int{"X": 1, "Y": 1}},
		{Weight: Weight(365), Slots: map[string]int{"X": 1}},
	}

	out := Aggregate(records, nil)

	if math.Abs(out.WeightedCount-1.368) > 1e-3 {
		t.Errorf("WeightedCount = %v, want ≈1.368", out.WeightedCount)
	}
	if got := out.Frequency["X"]; math.Abs(got-100) > 1e-9 {
		t.Errorf("freq(X) = %v, want 100", got)
	}
	if got := out.Frequency["Y"]; math.Abs(got-73.1) > 0.05 {
		t.Errorf("freq(Y) = %v, want ≈73.1", got)
	}
}

func TestAggregateRetentionThreshold(t *testing.T) {
	// "rare" appears in 1 of 25 equal-weight decks: 4%, below threshold.
	var records []WeightedRecord
	for i := 0; i < 25; i++ {
		slots := map[string]int{"common": 1}
		if i == 0 {
			slots["rare"] = 1
		}
		records = append(records, WeightedRecord{Weight: 1, Slots: slots})
	}

	out := Aggregate(records, nil)

	if _, ok := out.Frequency["rare"]; ok {
		t.Error("card below retention threshold must be absent, not zero")
	}
	for code, rate := range out.Frequency {
		if rate < RetentionThreshold {
			t.Errorf("retained %s at %v, below threshold", code, rate)
		}
	}
}

func TestAggregateEmptyBucket(t *testing.T) {
	out := Aggregate(nil, nil)

	if out.WeightedCount != 0 || len(out.Frequency) != 0 || len(out.Pairs) != 0 || len(out.CopyRates) != 0 {
		t.Errorf("empty bucket should produce empty tables: %+v", out)
	}
}

func TestAggregatePairsCanonicalAndSparse(t *testing.T) {
	records := []WeightedRecord{
		{Weight: 1, Slots: map[string]int{"B": 1, "A": 1}},
		{Weight: 1, Slots: map[string]int{"A": 1, "C": 1}},
	}

	out := Aggregate(records, nil)

	if _, ok := out.Pairs[PairKey{A: "A", B: "B"}]; !ok {
		t.Error("pair (A,B) missing under canonical key")
	}
	if _, ok := out.Pairs[PairKey{A: "B", B: "A"}]; ok {
		t.Error("pair stored under non-canonical ordering")
	}
	// B and C never co-occur: no entry, sparse by construction.
	if _, ok := out.Pairs[PairKey{A: "B", B: "C"}]; ok {
		t.Error("non-co-occurring pair should have no entry")
	}
	if got := out.Pairs[PairKey{A: "A", B: "B"}]; math.Abs(got-50) > 1e-9 {
		t.Errorf("pair rate = %v, want 50", got)
	}
}

func TestAggregatePairsOnlyRetained(t *testing.T) {
	// "rare" co-occurs with "common" but falls below retention.
	var records []WeightedRecord
	for i := 0; i < 25; i++ {
		slots := map[string]int{"common": 1, "staple": 1}
		if i == 0 {
			slots["rare"] = 1
		}
		records = append(records, WeightedRecord{Weight: 1, Slots: slots})
	}

	out := Aggregate(records, nil)

	for key := range out.Pairs {
		if key.A == "rare" || key.B == "rare" {
			t.Errorf("pair %v references a non-retained card", key)
		}
	}
}

func TestAggregateCopyRates(t *testing.T) {
	records := []WeightedRecord{
		{Weight: 1, Slots: map[string]int{"W": 3, "single": 1}},
		{Weight: 1, Slots: map[string]int{"W": 2}},
		{Weight: 1, Slots: map[string]int{"W": 1}},
		{Weight: 1, Slots: map[string]int{"W": 1}},
	}
	limits := limitOf(map[string]int{"W": 3, "single": 1})

	out := Aggregate(records, limits)

	cr, ok := out.CopyRates["W"]
	if !ok {
		t.Fatal("expected copy rates for W")
	}
	if math.Abs(cr.TwoGivenOne-50) > 1e-9 {
		t.Errorf("P(2+|1+) = %v, want 50", cr.TwoGivenOne)
	}
	if !cr.ThirdDefined || math.Abs(cr.ThreeGivenTwo-50) > 1e-9 {
		t.Errorf("P(3|2+) = %v (defined=%v), want 50", cr.ThreeGivenTwo, cr.ThirdDefined)
	}
	// Repeat limit 1: no copy-rate entry at all.
	if _, ok := out.CopyRates["single"]; ok {
		t.Error("copy rates must not exist for repeat-limit-1 cards")
	}
}

func TestAggregateCopyRatesUndefinedDenominator(t *testing.T) {
	// Nobody ever ran two copies: P(3|2+) has an empty denominator and is
	// omitted, never coerced to zero.
	records := []WeightedRecord{
		{Weight: 1, Slots: map[string]int{"W": 1}},
		{Weight: 1, Slots: map[string]int{"W": 1}},
	}
	out := Aggregate(records, limitOf(map[string]int{"W": 3}))

	cr, ok := out.CopyRates["W"]
	if !ok {
		t.Fatal("expected copy rates for W")
	}
	if cr.TwoGivenOne != 0 {
		t.Errorf("P(2+|1+) = %v, want 0", cr.TwoGivenOne)
	}
	if cr.ThirdDefined {
		t.Error("P(3|2+) must be undefined when no record has 2+ copies")
	}
}

func TestMakePairKey(t *testing.T) {
	if got := MakePairKey("02010", "01001"); got != (PairKey{A: "01001", B: "02010"}) {
		t.Errorf("MakePairKey not canonical: %+v", got)
	}
	if MakePairKey("a", "b") != MakePairKey("b", "a") {
		t.Error("MakePairKey must be order-insensitive")
	}
}

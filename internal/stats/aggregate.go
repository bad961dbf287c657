package stats

import "sort"

// RetentionThreshold is the minimum weighted inclusion rate (0–100) a card
// must reach to be retained in a bucket's frequency table. Cards below it
// are absent from every output table, not stored as zero.
const RetentionThreshold = 5.0

// WeightedRecord is one deck after filtering: its recency weight and the
// card slots that survive signature stripping (code -> copy count).
type WeightedRecord struct {
	Weight float64
	Slots  map[string]int
}

// PairKey is the canonical storage key for an unordered card pair: A is
// always the lexically smaller code. Every consumer must canonicalize
// before lookup; the pair is stored exactly once.
type PairKey struct {
	A, B string
}

// MakePairKey canonicalizes two codes into a PairKey.
func MakePairKey(a, b string) PairKey {
	if b < a {
		a, b = b, a
	}
	return PairKey{A: a, B: b}
}

// CopyRate holds conditional repeat-inclusion probabilities for a card, on
// a 0–100 scale. ThirdDefined is false when no record held two or more
// copies, in which case ThreeGivenTwo carries no information.
type CopyRate struct {
	TwoGivenOne  float64
	ThreeGivenTwo float64
	ThirdDefined bool
}

// BucketStats is the aggregation output for one bucket: weighted frequency,
// pair co-occurrence, and copy rates, all on a 0–100 scale.
type BucketStats struct {
	RecordCount   int
	WeightedCount float64
	Frequency     map[string]float64
	Pairs         map[PairKey]float64
	CopyRates     map[string]CopyRate
}

// Aggregate computes a bucket's statistics from its weighted records.
// repeatLimit reports a card's maximum multiplicity; copy rates are only
// produced for cards that can legally repeat.
//
// A bucket with zero weighted records yields empty tables: rates that would
// divide by zero are defined as zero and zero is below retention.
func Aggregate(records []WeightedRecord, repeatLimit func(code string) int) BucketStats {
	out := BucketStats{
		RecordCount: len(records),
		Frequency:   make(map[string]float64),
		Pairs:       make(map[PairKey]float64),
		CopyRates:   make(map[string]CopyRate),
	}

	var total float64
	for _, r := range records {
		total += r.Weight
	}
	out.WeightedCount = total
	if total <= 0 {
		return out
	}

	// Weighted inclusion and copy-count mass per card.
	oneCopy := make(map[string]float64)
	twoCopy := make(map[string]float64)
	threeCopy := make(map[string]float64)
	for _, r := range records {
		for code, count := range r.Slots {
			if count <= 0 {
				continue
			}
			oneCopy[code] += r.Weight
			if count >= 2 {
				twoCopy[code] += r.Weight
			}
			if count >= 3 {
				threeCopy[code] += r.Weight
			}
		}
	}

	for code, mass := range oneCopy {
		rate := 100 * mass / total
		if rate >= RetentionThreshold {
			out.Frequency[code] = rate
		}
	}

	// Pairs only among retained cards, and only for pairs that actually
	// co-occur: sparse by construction.
	for _, r := range records {
		var retained []string
		for code, count := range r.Slots {
			if count <= 0 {
				continue
			}
			if _, ok := out.Frequency[code]; ok {
				retained = append(retained, code)
			}
		}
		sort.Strings(retained)
		for i := 0; i < len(retained); i++ {
			for j := i + 1; j < len(retained); j++ {
				out.Pairs[PairKey{A: retained[i], B: retained[j]}] += r.Weight
			}
		}
	}
	for key, mass := range out.Pairs {
		out.Pairs[key] = 100 * mass / total
	}

	// Copy rates for retained, repeatable cards. Empty denominators mean
	// "no data": the entry (or its second probability) is omitted.
	for code := range out.Frequency {
		if repeatLimit != nil && repeatLimit(code) <= 1 {
			continue
		}
		w1 := oneCopy[code]
		if w1 <= 0 {
			continue
		}
		w2 := twoCopy[code]
		cr := CopyRate{TwoGivenOne: 100 * w2 / w1}
		if w2 > 0 {
			cr.ThreeGivenTwo = 100 * threeCopy[code] / w2
			cr.ThirdDefined = true
		}
		out.CopyRates[code] = cr
	}

	return out
}

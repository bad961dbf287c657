// Package recommend ranks candidate cards against a partial selection
// using a packaged snapshot. Scoring is a pure function of its inputs:
// no state survives a call, and concurrent calls against the same
// snapshot are safe because nothing is mutated.
package recommend

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/deckrec/deckrec/internal/snapshot"
)

var (
	// ErrBucketNotFound is returned when the requested bucket key is not in
	// the snapshot. The caller must present a valid bucket; the call is
	// never retried.
	ErrBucketNotFound = errors.New("bucket not found")

	// ErrNoData is returned when the bucket exists but its frequency table
	// is empty, so there is nothing to rank.
	ErrNoData = errors.New("no data for bucket")
)

// Tuning constants for sparse-pair handling. The coverage threshold and
// blend weights come straight from the corpus analysis; they are exposed
// through Options rather than re-derived.
const (
	DefaultTopN          = 10
	CoverageThreshold    = 0.5
	BlendFrequencyWeight = 0.7
	BlendSynergyWeight   = 0.3
)

// Options tunes a Recommend call. Zero values take the defaults above.
type Options struct {
	TopN              int
	CoverageThreshold float64
	BlendFrequency    float64
	BlendSynergy      float64
}

func (o Options) withDefaults() Options {
	if o.TopN <= 0 {
		o.TopN = DefaultTopN
	}
	if o.CoverageThreshold <= 0 {
		o.CoverageThreshold = CoverageThreshold
	}
	if o.BlendFrequency == 0 && o.BlendSynergy == 0 {
		o.BlendFrequency = BlendFrequencyWeight
		o.BlendSynergy = BlendSynergyWeight
	}
	return o
}

// Recommendation is one ranked candidate. Score is normalized so the top
// entry reads 100; RawScore preserves the pre-normalization value.
type Recommendation struct {
	ItemID        string  `json:"item_id"`
	Name          string  `json:"name"`
	Score         int     `json:"score"`
	RawScore      float64 `json:"raw_score"`
	BaseFrequency float64 `json:"base_frequency"`
	Reason        string  `json:"reason"`
	CopySlot      int     `json:"copy_slot"`
}

// PairSignal classifies a pair lookup between a candidate and a selected
// card. The distinction between Pruned and Unknown is deliberate and
// changes ranking: a pair that existed but ranked too low to survive
// packaging suppresses the candidate, while a selected card that is not in
// the bucket's pool at all contributes nothing either way.
type PairSignal int

const (
	// SignalUnknown: the selected card is absent from the bucket's
	// frequency table entirely — no signal, no anti-signal.
	SignalUnknown PairSignal = iota
	// SignalPruned: both cards are in the pool but the pair entry is
	// missing, meaning packaging truncated a low rate. Counts as zero.
	SignalPruned
	// SignalRate: a stored co-occurrence rate.
	SignalRate
)

// pairSignal resolves the three-way outcome of looking up (selected,
// candidate) in a bucket.
func pairSignal(b *snapshot.Bucket, selected, candidate string) (float64, PairSignal) {
	if rate, ok := b.PairRate(selected, candidate); ok {
		return rate, SignalRate
	}
	if _, ok := b.Frequency[selected]; ok {
		return 0, SignalPruned
	}
	return 0, SignalUnknown
}

// Recommend ranks candidates from the bucket's frequency table against the
// current selection. Selection order is preserved only in its multiplicity;
// duplicates of one card count once for co-occurrence and advance its copy
// slot. Exclusions and cards already at their repeat limit are skipped.
func Recommend(s *snapshot.Snapshot, bucket string, selection, exclusions []string, opts Options) ([]Recommendation, error) {
	opts = opts.withDefaults()

	b, ok := s.Buckets[bucket]
	if !ok {
		return nil, fmt.Errorf("bucket %q: %w", bucket, ErrBucketNotFound)
	}
	if len(b.Frequency) == 0 {
		return nil, fmt.Errorf("bucket %q: %w", bucket, ErrNoData)
	}

	held := make(map[string]int)
	var unique []string
	for _, id := range selection {
		if held[id] == 0 {
			unique = append(unique, id)
		}
		held[id]++
	}
	excluded := make(map[string]bool, len(exclusions))
	for _, id := range exclusions {
		excluded[id] = true
	}

	var ranked []Recommendation
	for id, base := range b.Frequency {
		if excluded[id] {
			continue
		}
		copies := held[id]
		if copies >= s.RepeatLimit(id) {
			continue
		}

		var rec Recommendation
		if copies > 0 {
			rec = scoreNextCopy(b, id, base, copies)
		} else {
			rec = scoreFirstCopy(b, id, base, unique, opts)
		}
		rec.ItemID = id
		rec.Name = s.ItemName(id)
		rec.BaseFrequency = base
		rec.CopySlot = copies + 1
		ranked = append(ranked, rec)
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].RawScore != ranked[j].RawScore {
			return ranked[i].RawScore > ranked[j].RawScore
		}
		if ranked[i].BaseFrequency != ranked[j].BaseFrequency {
			return ranked[i].BaseFrequency > ranked[j].BaseFrequency
		}
		return ranked[i].ItemID < ranked[j].ItemID
	})
	if len(ranked) > opts.TopN {
		ranked = ranked[:opts.TopN]
	}

	// Normalize so the top entry displays as 100. A zero maximum means
	// every retained candidate scored zero; they all display as 0.
	if len(ranked) > 0 && ranked[0].RawScore > 0 {
		max := ranked[0].RawScore
		for i := range ranked {
			ranked[i].Score = int(math.Round(ranked[i].RawScore / max * 100))
		}
	}
	return ranked, nil
}

// scoreFirstCopy scores the first copy of a card not yet in the selection:
// pair-rate average against the selection, blended toward base frequency
// when too few selected cards carry any signal.
func scoreFirstCopy(b *snapshot.Bucket, id string, base float64, unique []string, opts Options) Recommendation {
	others := 0
	signals := 0
	var sum float64
	for _, sel := range unique {
		if sel == id {
			continue
		}
		others++
		rate, kind := pairSignal(b, sel, id)
		if kind == SignalUnknown {
			continue
		}
		signals++
		sum += rate
	}

	if others == 0 {
		return Recommendation{
			RawScore: base,
			Reason:   fmt.Sprintf("included in %.1f%% of decks", base),
		}
	}
	if signals == 0 {
		return Recommendation{
			RawScore: base,
			Reason:   fmt.Sprintf("no overlap data for current picks; included in %.1f%% of decks", base),
		}
	}

	mean := sum / float64(signals)
	coverage := float64(signals) / float64(others)
	if coverage >= opts.CoverageThreshold {
		return Recommendation{
			RawScore: mean,
			Reason:   fmt.Sprintf("pairs with %d of %d current picks", signals, others),
		}
	}
	return Recommendation{
		RawScore: opts.BlendFrequency*base + opts.BlendSynergy*mean,
		Reason: fmt.Sprintf("sparse overlap (%d of %d picks); blended with %.1f%% base rate",
			signals, others, base),
	}
}

// scoreNextCopy scores the second or third copy of a card already held.
// The third-copy score never dips below the second-copy rate: committing
// deeper is never recommended less than the step that got us here.
func scoreNextCopy(b *snapshot.Bucket, id string, base float64, copies int) Recommendation {
	rates, ok := b.CopyRates[id]
	if !ok || len(rates) == 0 {
		return Recommendation{
			RawScore: base,
			Reason:   fmt.Sprintf("no repeat data; included in %.1f%% of decks", base),
		}
	}

	twoGivenOne := rates[0]
	if copies == 1 {
		return Recommendation{
			RawScore: twoGivenOne,
			Reason:   fmt.Sprintf("%.1f%% of decks running it add a 2nd copy", twoGivenOne),
		}
	}

	score := twoGivenOne
	if len(rates) > 1 && rates[1] > score {
		score = rates[1]
	}
	return Recommendation{
		RawScore: score,
		Reason:   fmt.Sprintf("%.1f%% repeat rate at this commitment", score),
	}
}

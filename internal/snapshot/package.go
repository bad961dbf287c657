package snapshot

import (
	"math"
	"sort"
)

// Limits bounds the Packager's truncation.
type Limits struct {
	TopItems int // cards kept per bucket, by frequency rate
	TopPairs int // pair partners kept per card, by pair rate
}

// DefaultLimits returns the standard packaging bounds.
func DefaultLimits() Limits {
	return Limits{TopItems: DefaultTopItems, TopPairs: DefaultTopPairs}
}

func round1(x float64) float64 { return math.Round(x*10) / 10 }
func round2(x float64) float64 { return math.Round(x*100) / 100 }

// Pack truncates and rounds every bucket in place: top items per bucket by
// frequency, then top pair partners per card, with all rates rounded to
// one decimal. The two truncations are separate passes; the invariant that
// no pair references a dropped card is restored by dropping the pair, never
// by re-adding the card. Packing an already-packed snapshot is a no-op.
func Pack(s *Snapshot, lim Limits) {
	if lim.TopItems <= 0 {
		lim.TopItems = DefaultTopItems
	}
	if lim.TopPairs <= 0 {
		lim.TopPairs = DefaultTopPairs
	}
	for _, b := range s.Buckets {
		packBucket(b, lim)
	}
}

func packBucket(b *Bucket, lim Limits) {
	b.WeightedRecordCount = round2(b.WeightedRecordCount)

	// Pass 1: keep the top items by frequency rate. Ties break on code so
	// the cut is deterministic.
	type entry struct {
		code string
		rate float64
	}
	items := make([]entry, 0, len(b.Frequency))
	for code, rate := range b.Frequency {
		items = append(items, entry{code, rate})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].rate != items[j].rate {
			return items[i].rate > items[j].rate
		}
		return items[i].code < items[j].code
	})
	if len(items) > lim.TopItems {
		items = items[:lim.TopItems]
	}
	freq := make(map[string]float64, len(items))
	for _, e := range items {
		freq[e.code] = round1(e.rate)
	}
	b.Frequency = freq

	// Pass 2: per-card directional top-K over the surviving pairs. A
	// card's "top partners" list is directional even though storage is
	// canonical, so the cut runs once in each direction and keeps the
	// union.
	partners := make(map[string][]entry)
	for key, rate := range b.Pairs {
		x, y, ok := SplitPairKey(key)
		if !ok {
			continue
		}
		if _, okX := freq[x]; !okX {
			continue
		}
		if _, okY := freq[y]; !okY {
			continue
		}
		partners[x] = append(partners[x], entry{y, rate})
		partners[y] = append(partners[y], entry{x, rate})
	}
	kept := make(map[string]float64)
	for code, list := range partners {
		sort.Slice(list, func(i, j int) bool {
			if list[i].rate != list[j].rate {
				return list[i].rate > list[j].rate
			}
			return list[i].code < list[j].code
		})
		if len(list) > lim.TopPairs {
			list = list[:lim.TopPairs]
		}
		for _, e := range list {
			kept[PairKey(code, e.code)] = round1(e.rate)
		}
	}
	b.Pairs = kept

	// Copy rates only for cards that made the frequency cut.
	if b.CopyRates != nil {
		rates := make(map[string][]float64)
		for code, rs := range b.CopyRates {
			if _, ok := freq[code]; !ok {
				continue
			}
			rounded := make([]float64, len(rs))
			for i, r := range rs {
				rounded[i] = round1(r)
			}
			rates[code] = rounded
		}
		if len(rates) == 0 {
			rates = nil
		}
		b.CopyRates = rates
	}
}

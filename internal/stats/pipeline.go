package stats

import (
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/deckrec/deckrec/internal/catalog"
)

// Aspects are the recognized bucket subkeys. A deck whose metadata names
// one of these lands in the hero/aspect bucket in addition to the
// hero-wide bucket.
var Aspects = []string{"aggression", "justice", "leadership", "protection"}

// DefaultMinCards is the minimum total card count for a record to enter
// aggregation. Smaller records are abandoned drafts, not decks.
const DefaultMinCards = 40

// Record is one historical deck as the pipeline consumes it.
type Record struct {
	HeroCode string
	HeroName string
	Created  time.Time
	Meta     string // raw JSON metadata; aspect is parsed from it
	Slots    map[string]int
}

// CardTotal is the record's total card count across all slots.
func (r Record) CardTotal() int {
	n := 0
	for _, c := range r.Slots {
		n += c
	}
	return n
}

// ParseAspect extracts a recognized aspect from a record's raw metadata.
// Returns "" when the metadata is missing, malformed, or names no known
// aspect — such records still count toward the hero-wide bucket.
func ParseAspect(meta string) string {
	if meta == "" {
		return ""
	}
	var m struct {
		Aspect string `json:"aspect"`
	}
	if err := json.Unmarshal([]byte(meta), &m); err != nil {
		return ""
	}
	aspect := strings.ToLower(m.Aspect)
	for _, a := range Aspects {
		if aspect == a {
			return aspect
		}
	}
	return ""
}

// BucketKey joins a hero code and optional aspect into a bucket key.
func BucketKey(heroCode, aspect string) string {
	if aspect == "" {
		return heroCode
	}
	return heroCode + "/" + aspect
}

// BucketResult is one aggregated bucket plus its provenance.
type BucketResult struct {
	Key        string
	HeroCode   string
	HeroName   string
	Aspect     string // "" for the hero-wide bucket
	MostRecent time.Time
	Stats      BucketStats
}

// Pipeline runs the full offline aggregation: filter, hero merge, recency
// weighting, and per-bucket aggregation. Buckets are independent, so hero
// groups are processed concurrently, one worker per group.
type Pipeline struct {
	Catalog  catalog.Catalog
	MinCards int // default DefaultMinCards
	Workers  int // default runtime.NumCPU()
	Log      zerolog.Logger
}

// Run aggregates the corpus into per-bucket statistics keyed by bucket key.
// The input may be a partially fetched corpus; whatever is present is
// aggregated.
func (p *Pipeline) Run(records []Record) map[string]*BucketResult {
	minCards := p.MinCards
	if minCards <= 0 {
		minCards = DefaultMinCards
	}
	workers := p.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	// Filter out records that are not usable decks.
	var noHero, tooSmall int
	kept := records[:0:0]
	for _, r := range records {
		switch {
		case r.HeroCode == "":
			noHero++
		case r.CardTotal() < minCards:
			tooSmall++
		default:
			kept = append(kept, r)
		}
	}
	p.Log.Info().
		Int("total", len(records)).
		Int("kept", len(kept)).
		Int("no_hero", noHero).
		Int("too_small", tooSmall).
		Msg("filtered corpus")

	// Remap alternate hero forms onto their primary code before any
	// weighting. Merging already-computed rates instead would bias merged
	// buckets toward whichever form had fewer records.
	counts := make(map[string]int)
	for _, r := range kept {
		counts[r.HeroCode]++
	}
	merge := p.Catalog.HeroMergeMap(counts)
	for alt, primary := range merge {
		p.Log.Debug().Str("alt", alt).Str("primary", primary).Msg("merging hero variant")
	}

	groups := make(map[string][]Record)
	for _, r := range kept {
		code := r.HeroCode
		if primary, ok := merge[code]; ok {
			code = primary
		}
		groups[code] = append(groups[code], r)
	}

	heroCodes := make([]string, 0, len(groups))
	for code := range groups {
		heroCodes = append(heroCodes, code)
	}
	sort.Strings(heroCodes)

	out := make(map[string]*BucketResult)
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, workers)

	for _, code := range heroCodes {
		wg.Add(1)
		sem <- struct{}{}
		go func(code string, group []Record) {
			defer wg.Done()
			defer func() { <-sem }()

			results := p.aggregateHero(code, group)

			mu.Lock()
			for _, b := range results {
				out[b.Key] = b
			}
			mu.Unlock()
		}(code, groups[code])
	}
	wg.Wait()

	p.Log.Info().Int("heroes", len(groups)).Int("buckets", len(out)).Msg("aggregation complete")
	return out
}

// aggregateHero weights one merged hero group and aggregates its hero-wide
// and per-aspect buckets. The decay reference is the group's most recent
// record, so re-running on an unchanged corpus is deterministic.
func (p *Pipeline) aggregateHero(code string, group []Record) []*BucketResult {
	heroName := group[0].HeroName

	var mostRecent time.Time
	for _, r := range group {
		if r.Created.After(mostRecent) {
			mostRecent = r.Created
		}
	}

	type bucket struct {
		records    []WeightedRecord
		mostRecent time.Time
	}
	buckets := map[string]*bucket{"": {}}

	for _, r := range group {
		w := WeightAt(r.Created, mostRecent)

		// Signature cards are implicit for the hero and must not look
		// like deliberate picks.
		slots := make(map[string]int, len(r.Slots))
		for card, count := range r.Slots {
			if c, ok := p.Catalog[card]; ok && c.Signature() {
				continue
			}
			slots[card] = count
		}

		keys := []string{""}
		if aspect := ParseAspect(r.Meta); aspect != "" {
			keys = append(keys, aspect)
		}
		for _, k := range keys {
			b, ok := buckets[k]
			if !ok {
				b = &bucket{}
				buckets[k] = b
			}
			b.records = append(b.records, WeightedRecord{Weight: w, Slots: slots})
			if r.Created.After(b.mostRecent) {
				b.mostRecent = r.Created
			}
		}
	}

	var results []*BucketResult
	for aspect, b := range buckets {
		if len(b.records) == 0 {
			continue
		}
		results = append(results, &BucketResult{
			Key:        BucketKey(code, aspect),
			HeroCode:   code,
			HeroName:   heroName,
			Aspect:     aspect,
			MostRecent: b.mostRecent,
			Stats:      Aggregate(b.records, p.Catalog.RepeatLimit),
		})
	}
	return results
}

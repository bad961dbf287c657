// Package snapshot defines the static artifact the scorer consumes: the
// packaged card catalog plus per-bucket frequency, pair, and copy-rate
// tables. A snapshot is written once by the build pipeline and read
// wholesale at scoring time; it is never mutated after load.
package snapshot

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/deckrec/deckrec/internal/catalog"
	"github.com/deckrec/deckrec/internal/stats"
)

// Default packaging limits. They keep the snapshot under the byte budget
// by bounding cards per bucket and pair partners per card.
const (
	DefaultTopItems = 75
	DefaultTopPairs = 50
)

// Item is a catalog entry as stored in the snapshot.
type Item struct {
	Name        string `json:"name" validate:"required"`
	Category    string `json:"category"`
	Cost        *int   `json:"cost,omitempty"`
	RepeatLimit int    `json:"repeat_limit" validate:"gte=0"`
	Signature   bool   `json:"signature,omitempty"`
}

// Bucket holds one bucket's packaged tables. All rates are percentages in
// [0,100] rounded to one decimal. Pairs are keyed "A|B" with A < B.
type Bucket struct {
	HeroCode            string               `json:"hero_code" validate:"required"`
	HeroName            string               `json:"hero_name"`
	Aspect              string               `json:"aspect,omitempty"`
	RecordCount         int                  `json:"record_count" validate:"gte=0"`
	WeightedRecordCount float64              `json:"weighted_record_count" validate:"gte=0"`
	MostRecent          string               `json:"most_recent,omitempty"`
	Frequency           map[string]float64   `json:"frequency" validate:"dive,gte=0,lte=100"`
	Pairs               map[string]float64   `json:"pairs" validate:"dive,gte=0,lte=100"`
	CopyRates           map[string][]float64 `json:"copy_rates,omitempty" validate:"dive,max=2,dive,gte=0,lte=100"`
}

// Snapshot is the full packaged document.
type Snapshot struct {
	GeneratedAt  string             `json:"generated_at,omitempty"`
	HalfLifeDays float64            `json:"half_life_days"`
	Catalog      map[string]Item    `json:"catalog" validate:"required,dive"`
	Buckets      map[string]*Bucket `json:"buckets" validate:"dive"`
}

// PairKey canonicalizes two card codes into the "A|B" storage key, smaller
// code first. Each unordered pair is stored exactly once; every lookup
// must go through this.
func PairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "|" + b
}

// SplitPairKey returns the two codes of a canonical pair key.
func SplitPairKey(key string) (string, string, bool) {
	a, b, ok := strings.Cut(key, "|")
	return a, b, ok
}

// PairRate looks up the co-occurrence rate for two codes in either order.
func (b *Bucket) PairRate(x, y string) (float64, bool) {
	rate, ok := b.Pairs[PairKey(x, y)]
	return rate, ok
}

// ItemName returns the display name for a code, falling back to the code.
func (s *Snapshot) ItemName(code string) string {
	if it, ok := s.Catalog[code]; ok && it.Name != "" {
		return it.Name
	}
	return code
}

// RepeatLimit returns the repeat limit for a code, defaulting to 1.
func (s *Snapshot) RepeatLimit(code string) int {
	if it, ok := s.Catalog[code]; ok && it.RepeatLimit > 0 {
		return it.RepeatLimit
	}
	return 1
}

// BucketKeys returns all bucket keys in sorted order.
func (s *Snapshot) BucketKeys() []string {
	keys := make([]string, 0, len(s.Buckets))
	for k := range s.Buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Build assembles an unpackaged snapshot from pipeline output and the card
// catalog. Call Pack on the result before saving.
func Build(cards catalog.Catalog, buckets map[string]*stats.BucketResult, generatedAt string) *Snapshot {
	s := &Snapshot{
		GeneratedAt:  generatedAt,
		HalfLifeDays: stats.HalfLifeDays,
		Catalog:      make(map[string]Item, len(cards)),
		Buckets:      make(map[string]*Bucket, len(buckets)),
	}

	for code, c := range cards {
		s.Catalog[code] = Item{
			Name:        c.Name,
			Category:    strings.ToLower(c.FactionName),
			Cost:        c.Cost,
			RepeatLimit: c.DeckLimit,
			Signature:   c.Signature(),
		}
	}

	for key, b := range buckets {
		out := &Bucket{
			HeroCode:            b.HeroCode,
			HeroName:            b.HeroName,
			Aspect:              b.Aspect,
			RecordCount:         b.Stats.RecordCount,
			WeightedRecordCount: b.Stats.WeightedCount,
			Frequency:           make(map[string]float64, len(b.Stats.Frequency)),
			Pairs:               make(map[string]float64, len(b.Stats.Pairs)),
		}
		if !b.MostRecent.IsZero() {
			out.MostRecent = b.MostRecent.Format("2006-01-02")
		}
		for code, rate := range b.Stats.Frequency {
			out.Frequency[code] = rate
		}
		for pk, rate := range b.Stats.Pairs {
			out.Pairs[PairKey(pk.A, pk.B)] = rate
		}
		if len(b.Stats.CopyRates) > 0 {
			out.CopyRates = make(map[string][]float64, len(b.Stats.CopyRates))
			for code, cr := range b.Stats.CopyRates {
				rates := []float64{cr.TwoGivenOne}
				if cr.ThirdDefined {
					rates = append(rates, cr.ThreeGivenTwo)
				}
				out.CopyRates[code] = rates
			}
		}
		s.Buckets[key] = out
	}
	return s
}

var validate = validator.New()

// Validate checks the snapshot's structural invariants. A snapshot that
// fails validation is unusable; the scorer has no partial-data fallback.
func (s *Snapshot) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("snapshot structure: %w", err)
	}
	for key, b := range s.Buckets {
		for pair := range b.Pairs {
			a, c, ok := SplitPairKey(pair)
			if !ok || a >= c {
				return fmt.Errorf("bucket %s: pair key %q not canonical", key, pair)
			}
			if _, ok := b.Frequency[a]; !ok {
				return fmt.Errorf("bucket %s: pair %q references dropped card %s", key, pair, a)
			}
			if _, ok := b.Frequency[c]; !ok {
				return fmt.Errorf("bucket %s: pair %q references dropped card %s", key, pair, c)
			}
		}
	}
	return nil
}

// Save writes the snapshot as compact JSON.
func Save(s *Snapshot, path string) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// Load reads and validates a snapshot file. Any structural problem is
// fatal for the caller.
func Load(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

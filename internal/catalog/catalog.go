package catalog

import (
	"sort"
	"strings"
)

// Card is one entry in the card catalog. Codes are zero-padded strings
// ("01045") and sort lexically in release order.
type Card struct {
	Code        string
	Name        string
	TypeCode    string
	FactionName string
	Cost        *int
	PackCode    string
	PackName    string
	CardSetName string
	DeckLimit   int
	ImageSrc    string
}

// Signature reports whether the card is implicitly part of a hero's deck
// (hero-faction cards ship with the hero and are never chosen). Signature
// cards are stripped from records before aggregation and never scored.
func (c Card) Signature() bool {
	return strings.EqualFold(c.FactionName, "Hero")
}

// Catalog indexes cards by code.
type Catalog map[string]Card

// New builds a Catalog from a card list. Later entries win on duplicate
// codes, which matters only for malformed inputs.
func New(cards []Card) Catalog {
	idx := make(Catalog, len(cards))
	for _, c := range cards {
		idx[c.Code] = c
	}
	return idx
}

// RepeatLimit returns the deck limit for a code, defaulting to 1 when the
// card is unknown or carries no limit.
func (idx Catalog) RepeatLimit(code string) int {
	if c, ok := idx[code]; ok && c.DeckLimit > 0 {
		return c.DeckLimit
	}
	return 1
}

// Name returns the display name for a code, falling back to the code itself.
func (idx Catalog) Name(code string) string {
	if c, ok := idx[code]; ok && c.Name != "" {
		return c.Name
	}
	return code
}

// HeroMergeMap maps alternate hero card codes to the primary code for the
// same character. Some heroes have multiple hero cards (alternate forms in
// the same pack); their decks must be pooled under one code before any
// weighting happens, otherwise each form's bucket is computed from a
// fragment of the corpus.
//
// Hero cards are grouped by (name, pack); within a group the code with the
// most decks is primary and every other code maps to it. Codes with no
// decks are left out.
func (idx Catalog) HeroMergeMap(deckCounts map[string]int) map[string]string {
	type identity struct {
		name string
		pack string
	}

	groups := make(map[identity][]string)
	for code, c := range idx {
		if !strings.EqualFold(c.TypeCode, "hero") {
			continue
		}
		key := identity{name: c.Name, pack: c.PackCode}
		groups[key] = append(groups[key], code)
	}

	merge := make(map[string]string)
	for _, codes := range groups {
		var inDecks []string
		for _, code := range codes {
			if deckCounts[code] > 0 {
				inDecks = append(inDecks, code)
			}
		}
		if len(inDecks) <= 1 {
			continue
		}
		// Primary = most decks; ties break on the lower code so the map is
		// deterministic across runs.
		sort.Slice(inDecks, func(i, j int) bool {
			if deckCounts[inDecks[i]] != deckCounts[inDecks[j]] {
				return deckCounts[inDecks[i]] > deckCounts[inDecks[j]]
			}
			return inDecks[i] < inDecks[j]
		})
		primary := inDecks[0]
		for _, code := range inDecks[1:] {
			merge[code] = primary
		}
	}
	return merge
}

// Package fetch retrieves the card list and public decklists from a
// MarvelCDB-compatible API into the local archive. Retrieval is day by
// day with a checkpoint per completed day, so an interrupted run resumes
// where it left off and a partially fetched archive is still a valid
// (smaller) corpus.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/deckrec/deckrec/internal/catalog"
	"github.com/deckrec/deckrec/internal/store"
)

const (
	DefaultBaseURL   = "https://marvelcdb.com"
	DefaultUserAgent = "deckrec/1.0"
	// DefaultStartDate is the earliest day with public decklists.
	DefaultStartDate = "2019-11-01"
)

// retryDelay is the pause before the single retry; shortened in tests.
var retryDelay = 3 * time.Second

// Client talks to the decklist API with rate limiting and one retry on
// transient failures.
type Client struct {
	baseURL string
	ua      string
	http    *http.Client
	limiter *rate.Limiter
	log     zerolog.Logger
}

// NewClient creates a Client. rps bounds outgoing requests per second;
// zero or negative means one request per second.
func NewClient(baseURL, userAgent string, rps float64, log zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	if rps <= 0 {
		rps = 1
	}
	return &Client{
		baseURL: baseURL,
		ua:      userAgent,
		http:    &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		log:     log,
	}
}

func retryable(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// get fetches a URL, retrying once after a short delay on rate limiting,
// server errors, or network failures.
func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			c.log.Warn().Str("url", url).Err(lastErr).Msg("retrying")
			select {
			case <-time.After(retryDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("User-Agent", c.ua)

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("http %d", resp.StatusCode)
			if retryable(resp.StatusCode) {
				continue
			}
			return nil, lastErr
		}
		return body, nil
	}
	return nil, lastErr
}

type cardJSON struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	TypeCode    string `json:"type_code"`
	FactionName string `json:"faction_name"`
	Cost        *int   `json:"cost"`
	PackCode    string `json:"pack_code"`
	PackName    string `json:"pack_name"`
	CardSetName string `json:"card_set_name"`
	DeckLimit   int    `json:"deck_limit"`
	ImageSrc    string `json:"imagesrc"`
}

// Cards fetches the full card list.
func (c *Client) Cards(ctx context.Context) ([]catalog.Card, error) {
	body, err := c.get(ctx, c.baseURL+"/api/public/cards/")
	if err != nil {
		return nil, fmt.Errorf("fetch cards: %w", err)
	}

	var raw []cardJSON
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode cards: %w", err)
	}

	cards := make([]catalog.Card, 0, len(raw))
	for _, r := range raw {
		if r.Code == "" {
			continue
		}
		cards = append(cards, catalog.Card{
			Code:        r.Code,
			Name:        r.Name,
			TypeCode:    r.TypeCode,
			FactionName: r.FactionName,
			Cost:        r.Cost,
			PackCode:    r.PackCode,
			PackName:    r.PackName,
			CardSetName: r.CardSetName,
			DeckLimit:   r.DeckLimit,
			ImageSrc:    r.ImageSrc,
		})
	}
	return cards, nil
}

type deckJSON struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	DateCreation string          `json:"date_creation"`
	UserID       *int64          `json:"user_id"`
	HeroCode     string          `json:"hero_code"`
	HeroName     string          `json:"hero_name"`
	Slots        map[string]int  `json:"slots"`
	Tags         json.RawMessage `json:"tags"`
	Meta         string          `json:"meta"`
	Version      string          `json:"version"`
}

// DecklistsByDate fetches all public decklists published on one day.
func (c *Client) DecklistsByDate(ctx context.Context, day string) ([]store.Deck, error) {
	body, err := c.get(ctx, c.baseURL+"/api/public/decklists/by_date/"+day)
	if err != nil {
		return nil, fmt.Errorf("fetch decklists %s: %w", day, err)
	}

	var raw []deckJSON
	if err := json.Unmarshal(body, &raw); err != nil {
		// Days with no decklists return a non-array payload.
		return nil, nil
	}

	decks := make([]store.Deck, 0, len(raw))
	for _, r := range raw {
		created, err := parseDate(r.DateCreation)
		if err != nil {
			c.log.Warn().Int64("deck", r.ID).Str("date", r.DateCreation).Msg("unparseable date, skipping deck")
			continue
		}
		decks = append(decks, store.Deck{
			ID:           r.ID,
			Name:         r.Name,
			HeroCode:     r.HeroCode,
			HeroName:     r.HeroName,
			DateCreation: created,
			UserID:       r.UserID,
			Slots:        r.Slots,
			Meta:         r.Meta,
			Tags:         string(r.Tags),
			Version:      r.Version,
		})
	}
	return decks, nil
}

// parseDate accepts RFC 3339 with either "Z" or a numeric offset, and a
// bare date as a fallback.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

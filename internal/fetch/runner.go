package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/deckrec/deckrec/internal/store"
)

// Runner drives a full archive refresh: the card list, then every day of
// decklists from the start date to today, skipping checkpointed days.
type Runner struct {
	DB     *store.DB
	Client *Client
	Start  string // YYYY-MM-DD, default DefaultStartDate
	End    string // YYYY-MM-DD, default today
	Log    zerolog.Logger
}

// Summary reports what one run accomplished.
type Summary struct {
	DaysFetched int
	DaysSkipped int
	NewDecks    int
}

// FetchCards refreshes the archived card list.
func (r *Runner) FetchCards(ctx context.Context) (int, error) {
	cards, err := r.Client.Cards(ctx)
	if err != nil {
		return 0, err
	}
	if err := r.DB.ReplaceCards(cards); err != nil {
		return 0, fmt.Errorf("store cards: %w", err)
	}
	r.Log.Info().Int("cards", len(cards)).Msg("card list refreshed")
	return len(cards), nil
}

// FetchDecks walks the date range one day at a time. A day that fails even
// after retry is checkpointed as skipped (so a later run retries it) and
// the walk continues. Cancellation stops cleanly; everything checkpointed
// so far stays fetched.
func (r *Runner) FetchDecks(ctx context.Context) (Summary, error) {
	var sum Summary

	startStr := r.Start
	if startStr == "" {
		startStr = DefaultStartDate
	}
	start, err := time.Parse("2006-01-02", startStr)
	if err != nil {
		return sum, fmt.Errorf("parse start date %q: %w", startStr, err)
	}

	endStr := r.End
	if endStr == "" {
		endStr = time.Now().UTC().Format("2006-01-02")
	}
	today, err := time.Parse("2006-01-02", endStr)
	if err != nil {
		return sum, fmt.Errorf("parse end date %q: %w", endStr, err)
	}
	totalDays := int(today.Sub(start).Hours()/24) + 1
	r.Log.Info().Str("from", startStr).Str("to", today.Format("2006-01-02")).
		Int("days", totalDays).Msg("fetching decklists")

	for day := start; !day.After(today); day = day.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			r.Log.Info().Int("fetched", sum.DaysFetched).Int("decks", sum.NewDecks).
				Msg("interrupted; progress saved, re-run to resume")
			return sum, err
		}

		dayStr := day.Format("2006-01-02")
		done, err := r.DB.DayFetched(dayStr)
		if err != nil {
			return sum, err
		}
		if done {
			continue
		}

		decks, err := r.Client.DecklistsByDate(ctx, dayStr)
		if err != nil {
			if ctx.Err() != nil {
				return sum, ctx.Err()
			}
			r.Log.Warn().Str("day", dayStr).Err(err).Msg("skipping day")
			if err := r.DB.SaveDay(dayStr, nil, true); err != nil {
				return sum, err
			}
			sum.DaysSkipped++
			continue
		}

		if err := r.DB.SaveDay(dayStr, decks, false); err != nil {
			return sum, err
		}
		sum.DaysFetched++
		sum.NewDecks += len(decks)

		if sum.DaysFetched%30 == 0 {
			r.Log.Info().Str("day", dayStr).Int("days", sum.DaysFetched).
				Int("decks", sum.NewDecks).Msg("progress")
		}
	}

	r.Log.Info().Int("days", sum.DaysFetched).Int("skipped", sum.DaysSkipped).
		Int("decks", sum.NewDecks).Msg("decklist fetch complete")
	return sum, nil
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/deckrec/deckrec/internal/fetch"
	"github.com/deckrec/deckrec/internal/store"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download the card list and decklist archive",
	Long:  "Fetch refreshes the local archive: the full card list, then one day of public decklists at a time from the start date forward. Days already archived are skipped, so an interrupted run resumes where it left off.",
	RunE:  runFetch,
}

var (
	fetchCardsOnly bool
	fetchDecksOnly bool
	fetchStart     string
	fetchEnd       string
)

func init() {
	fetchCmd.Flags().BoolVar(&fetchCardsOnly, "cards-only", false, "refresh the card list only")
	fetchCmd.Flags().BoolVar(&fetchDecksOnly, "decks-only", false, "fetch decklists only, skip the card list")
	fetchCmd.Flags().StringVar(&fetchStart, "start", "", "first day to fetch (YYYY-MM-DD, overrides config)")
	fetchCmd.Flags().StringVar(&fetchEnd, "end", "", "last day to fetch (YYYY-MM-DD, default today)")
}

// openArchive resolves the configured archive path and opens it.
func openArchive() (*store.DB, error) {
	path := cfg.Archive.Path
	if path == "" {
		var err error
		path, err = store.DefaultPath()
		if err != nil {
			return nil, fmt.Errorf("resolve archive path: %w", err)
		}
	}
	db, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	return db, nil
}

func runFetch(cmd *cobra.Command, args []string) error {
	if fetchCardsOnly && fetchDecksOnly {
		return fmt.Errorf("--cards-only and --decks-only are mutually exclusive")
	}

	db, err := openArchive()
	if err != nil {
		return err
	}
	defer db.Close()

	start := cfg.Fetch.StartDate
	if fetchStart != "" {
		start = fetchStart
	}

	client := fetch.NewClient(cfg.Fetch.BaseURL, cfg.Fetch.UserAgent, cfg.Fetch.RequestsPerSecond, log)
	runner := &fetch.Runner{
		DB:     db,
		Client: client,
		Start:  start,
		End:    fetchEnd,
		Log:    log,
	}

	ctx := cmd.Context()

	if !fetchDecksOnly {
		if _, err := runner.FetchCards(ctx); err != nil {
			return fmt.Errorf("fetch cards: %w", err)
		}
	}
	if fetchCardsOnly {
		return nil
	}

	sum, err := runner.FetchDecks(ctx)
	if err != nil {
		return fmt.Errorf("fetch decks: %w", err)
	}
	log.Info().
		Int("days_fetched", sum.DaysFetched).
		Int("days_skipped", sum.DaysSkipped).
		Int("new_decks", sum.NewDecks).
		Msg("fetch complete")
	return nil
}

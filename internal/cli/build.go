package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/deckrec/deckrec/internal/catalog"
	"github.com/deckrec/deckrec/internal/snapshot"
	"github.com/deckrec/deckrec/internal/stats"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Aggregate the archive into a packaged snapshot",
	Long:  "Build runs the offline pipeline over the archived decklists: filtering, hero merging, recency weighting, and per-bucket aggregation, then packages the result into the snapshot file the server scores from.",
	RunE:  runBuild,
}

var buildOut string

func init() {
	buildCmd.Flags().StringVarP(&buildOut, "out", "o", "", "snapshot output path (overrides config)")
}

func runBuild(cmd *cobra.Command, args []string) error {
	db, err := openArchive()
	if err != nil {
		return err
	}
	defer db.Close()

	cards, err := db.AllCards()
	if err != nil {
		return fmt.Errorf("load cards: %w", err)
	}
	if len(cards) == 0 {
		return fmt.Errorf("archive has no cards; run fetch first")
	}
	decks, err := db.AllDecks()
	if err != nil {
		return fmt.Errorf("load decks: %w", err)
	}
	if len(decks) == 0 {
		return fmt.Errorf("archive has no decks; run fetch first")
	}
	log.Info().Int("cards", len(cards)).Int("decks", len(decks)).Msg("archive loaded")

	records := make([]stats.Record, len(decks))
	for i, d := range decks {
		records[i] = d.Record()
	}

	pipeline := &stats.Pipeline{
		Catalog:  catalog.New(cards),
		MinCards: cfg.Build.MinCards,
		Workers:  cfg.Build.Workers,
		Log:      log,
	}
	buckets := pipeline.Run(records)

	snap := snapshot.Build(pipeline.Catalog, buckets, time.Now().UTC().Format(time.RFC3339))
	snapshot.Pack(snap, snapshot.Limits{
		TopItems: cfg.Build.TopItems,
		TopPairs: cfg.Build.TopPairs,
	})
	if err := snap.Validate(); err != nil {
		return fmt.Errorf("packaged snapshot failed validation: %w", err)
	}

	out := cfg.Snapshot.Path
	if buildOut != "" {
		out = buildOut
	}
	if err := snapshot.Save(snap, out); err != nil {
		return err
	}
	log.Info().
		Int("buckets", len(snap.Buckets)).
		Int("catalog", len(snap.Catalog)).
		Str("path", out).
		Msg("snapshot written")
	return nil
}

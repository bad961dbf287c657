package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/deckrec/deckrec/internal/recommend"
	"github.com/deckrec/deckrec/internal/snapshot"
)

var recommendCmd = &cobra.Command{
	Use:   "recommend <bucket>",
	Short: "Rank card suggestions for a bucket from the command line",
	Long:  "Recommend scores candidate cards against the current selection using the packaged snapshot. The bucket is a hero code, optionally narrowed with an aspect, e.g. 01001a or 01001a/justice.",
	Args:  cobra.ExactArgs(1),
	RunE:  runRecommend,
}

var (
	recommendSnapshot string
	recommendHave     []string
	recommendExclude  []string
	recommendTop      int
)

func init() {
	recommendCmd.Flags().StringVar(&recommendSnapshot, "snapshot", "", "snapshot file (overrides config)")
	recommendCmd.Flags().StringSliceVar(&recommendHave, "have", nil, "card codes already in the deck (repeat for multiple copies)")
	recommendCmd.Flags().StringSliceVar(&recommendExclude, "exclude", nil, "card codes to never suggest")
	recommendCmd.Flags().IntVar(&recommendTop, "top", 0, "number of suggestions (default 10)")
}

func loadSnapshotFlag(override string) (*snapshot.Snapshot, error) {
	path := cfg.Snapshot.Path
	if override != "" {
		path = override
	}
	snap, err := snapshot.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return snap, nil
}

func runRecommend(cmd *cobra.Command, args []string) error {
	snap, err := loadSnapshotFlag(recommendSnapshot)
	if err != nil {
		return err
	}

	recs, err := recommend.Recommend(snap, args[0], recommendHave, recommendExclude,
		recommend.Options{TopN: recommendTop})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SCORE\tCODE\tCOPY\tNAME\tWHY")
	for _, r := range recs {
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\n", r.Score, r.ItemID, r.CopySlot, r.Name, r.Reason)
	}
	return w.Flush()
}

var bucketsCmd = &cobra.Command{
	Use:   "buckets",
	Short: "List the buckets available in the snapshot",
	RunE:  runBuckets,
}

var bucketsSnapshot string

func init() {
	bucketsCmd.Flags().StringVar(&bucketsSnapshot, "snapshot", "", "snapshot file (overrides config)")
}

func runBuckets(cmd *cobra.Command, args []string) error {
	snap, err := loadSnapshotFlag(bucketsSnapshot)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "BUCKET\tHERO\tDECKS\tWEIGHTED\tLATEST")
	for _, key := range snap.BucketKeys() {
		b := snap.Buckets[key]
		fmt.Fprintf(w, "%s\t%s\t%d\t%.2f\t%s\n",
			key, b.HeroName, b.RecordCount, b.WeightedRecordCount, b.MostRecent)
	}
	return w.Flush()
}

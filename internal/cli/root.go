package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/deckrec/deckrec/internal/config"
	"github.com/deckrec/deckrec/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:           "deckrec",
	Short:         "Deck recommendation engine for Marvel Champions",
	Long:          "Deckrec archives public decklists, aggregates them into decay-weighted card statistics, and serves ranked card recommendations from the packaged snapshot.",
	SilenceUsage:  true,
	SilenceErrors: false,
}

var (
	configPath string

	cfg config.Config
	log zerolog.Logger
)

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: deckrec.yaml in working directory)")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		log = logging.New(cfg.Log.Level, cfg.Log.JSON)
		return nil
	}

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(recommendCmd)
	rootCmd.AddCommand(bucketsCmd)
}

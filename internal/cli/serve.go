package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/deckrec/deckrec/internal/server"
	"github.com/deckrec/deckrec/internal/snapshot"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the recommendation API server",
	RunE:  runServe,
}

var serveSnapshot string

func init() {
	serveCmd.Flags().StringVar(&serveSnapshot, "snapshot", "", "snapshot file to serve (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	path := cfg.Snapshot.Path
	if serveSnapshot != "" {
		path = serveSnapshot
	}

	snap, err := snapshot.Load(path)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	log.Info().
		Str("path", path).
		Str("generated_at", snap.GeneratedAt).
		Int("buckets", len(snap.Buckets)).
		Msg("snapshot loaded")

	srv := server.New(snap, VersionString(), log)
	addr := cfg.ListenAddr()

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      srv,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info().Str("addr", addr).Msg("deckrec serving")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server error")
			os.Exit(1)
		}
	}()

	<-done
	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(ctx)
}

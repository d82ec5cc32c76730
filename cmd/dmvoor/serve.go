package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lab271/dmvoor/pkg/api"
	"github.com/lab271/dmvoor/pkg/config"
	"github.com/lab271/dmvoor/pkg/corpus"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	Long: `Start the dmvoor API server: run listings from the corpus index and
raw dataset files from the configured output roots.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if cfg.Server == nil {
		return fmt.Errorf("server section is required in config")
	}

	if cfg.Corpus == nil || !cfg.Corpus.Enabled {
		return fmt.Errorf("corpus must be enabled to serve the run index")
	}

	// Set up context with signal handling.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	store := corpus.NewStore(log, cfg.Corpus)
	if err := store.Start(ctx); err != nil {
		return fmt.Errorf("starting corpus store: %w", err)
	}

	defer func() {
		if err := store.Stop(); err != nil {
			log.WithError(err).Warn("Failed to stop corpus store")
		}
	}()

	srv := api.NewServer(log, cfg.Server, store)

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("starting api server: %w", err)
	}

	// Wait for shutdown signal.
	sig := <-sigCh
	log.WithField("signal", sig).Info("Shutting down API server")
	cancel()

	if err := srv.Stop(); err != nil {
		return fmt.Errorf("stopping api server: %w", err)
	}

	return nil
}

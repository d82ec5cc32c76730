package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/lab271/dmvoor/pkg/config"
	"github.com/lab271/dmvoor/pkg/corpus"
	"github.com/lab271/dmvoor/pkg/export"
	"github.com/lab271/dmvoor/pkg/fsutil"
	"github.com/lab271/dmvoor/pkg/generator"
	"github.com/lab271/dmvoor/pkg/sysinfo"
	"github.com/lab271/dmvoor/pkg/upload"
)

var (
	generateWorkload string
	generateSeed     int64
	generateDays     int
	generateQueries  int
	generateOutput   string
	generateFormat   string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a synthetic Query Store dataset",
	Long: `Generate the sys.query_store_* tables for the configured workload
scenario and write them to the output directory.`,
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)
	generateCmd.Flags().StringVar(&generateWorkload, "workload", "",
		"Workload scenario (overrides config)")
	generateCmd.Flags().Int64Var(&generateSeed, "seed", 0,
		"Random seed (overrides config)")
	generateCmd.Flags().IntVar(&generateDays, "days", 0,
		"Generation window length in days (overrides config)")
	generateCmd.Flags().IntVar(&generateQueries, "queries", 0,
		"Number of unique query texts (overrides config)")
	generateCmd.Flags().StringVar(&generateOutput, "output", "",
		"Output directory (overrides config)")
	generateCmd.Flags().StringVar(&generateFormat, "format", "",
		"Export format: text, csv, or both (overrides config)")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	// Load configuration.
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Merge CLI overrides into config (CLI wins on conflict).
	applyGenerateOverrides(cmd, cfg)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	// Parse output owner configuration.
	owner, err := fsutil.ParseOwner(cfg.Generator.OutputOwner)
	if err != nil {
		return fmt.Errorf("parsing output_owner: %w", err)
	}

	// Setup context with signal handling.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.WithField("signal", sig).Info("Received shutdown signal")
		cancel()
	}()

	// Create S3 uploader if configured.
	var uploader upload.Uploader

	if cfg.Upload != nil && cfg.Upload.Enabled {
		uploader = upload.NewS3Uploader(log, cfg.Upload)

		// Fail fast: verify S3 is reachable and writable before generating.
		if err := uploader.Preflight(ctx); err != nil {
			return fmt.Errorf("S3 upload preflight check failed: %w", err)
		}

		log.Info("S3 upload preflight check passed")
	}

	gen, err := generator.New(log, &cfg.Generator)
	if err != nil {
		return fmt.Errorf("creating generator: %w", err)
	}

	started := time.Now()

	ds, err := gen.Run()
	if err != nil {
		return fmt.Errorf("generating dataset: %w", err)
	}

	result, err := export.New(log, cfg, owner).Export(ds)
	if err != nil {
		return fmt.Errorf("exporting dataset: %w", err)
	}

	elapsed := time.Since(started)

	host := sysinfo.Collect(log)

	summary, err := export.NewSummary(gen, cfg, result, elapsed, host)
	if err != nil {
		return fmt.Errorf("building summary: %w", err)
	}

	if cfg.Export.Summary {
		if err := export.WriteSummary(result.OutputDir, summary, owner); err != nil {
			return fmt.Errorf("writing summary: %w", err)
		}
	}

	// Record the run in the corpus index if configured.
	if cfg.Corpus != nil && cfg.Corpus.Enabled {
		if err := recordRun(ctx, cfg, summary, result.OutputDir); err != nil {
			log.WithError(err).Warn("Failed to record run in corpus index")
		}
	}

	// Upload the output directory if configured.
	if uploader != nil {
		log.WithField("dir", result.OutputDir).Info("Uploading dataset")

		if err := uploader.UploadDir(ctx, result.OutputDir, summary.RunID); err != nil {
			return fmt.Errorf("uploading dataset: %w", err)
		}
	}

	log.WithFields(logrus.Fields{
		"run_id":   summary.RunID,
		"workload": summary.Workload,
		"seed":     summary.Seed,
		"files":    len(result.Files),
		"size":     summary.OutputSize,
		"duration": elapsed.Round(time.Millisecond).String(),
	}).Info("Generation completed")

	return nil
}

// applyGenerateOverrides copies explicitly set flags into the config.
func applyGenerateOverrides(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()

	if flags.Changed("workload") {
		cfg.Generator.Workload = generateWorkload
	}

	if flags.Changed("seed") {
		cfg.Generator.Seed = generateSeed
	}

	if flags.Changed("days") {
		cfg.Generator.Days = generateDays
		// An explicit date window in the config would shadow the flag.
		cfg.Generator.StartDate = ""
		cfg.Generator.EndDate = ""
	}

	if flags.Changed("queries") {
		cfg.Generator.NumUniqueQueries = generateQueries
	}

	if flags.Changed("output") {
		cfg.Generator.OutputDir = generateOutput
	}

	if flags.Changed("format") {
		cfg.Export.Format = generateFormat
	}
}

// recordRun upserts the run into the corpus index.
func recordRun(
	ctx context.Context,
	cfg *config.Config,
	summary *export.Summary,
	outputDir string,
) error {
	store := corpus.NewStore(log, cfg.Corpus)

	if err := store.Start(ctx); err != nil {
		return fmt.Errorf("starting corpus store: %w", err)
	}

	defer func() {
		if err := store.Stop(); err != nil {
			log.WithError(err).Warn("Failed to stop corpus store")
		}
	}()

	run, err := corpus.RunFromSummary(summary, outputDir)
	if err != nil {
		return fmt.Errorf("building run record: %w", err)
	}

	if err := store.RecordRun(ctx, run); err != nil {
		return fmt.Errorf("recording run: %w", err)
	}

	log.WithField("run_id", run.RunID).Info("Run recorded in corpus index")

	return nil
}

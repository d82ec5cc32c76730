package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/docker/go-units"
	"github.com/spf13/cobra"

	"github.com/lab271/dmvoor/pkg/config"
	"github.com/lab271/dmvoor/pkg/corpus"
)

var (
	runsListLimit   int
	runsRescanRoots []string
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect the corpus run index",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List indexed runs, newest first",
	RunE:  runRunsList,
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Print one indexed run as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsShow,
}

var runsRescanCmd = &cobra.Command{
	Use:   "rescan",
	Short: "Rebuild the index from generation summaries on disk",
	Long: `Walk the output roots for generation_summary.json files and upsert
every run found into the corpus index.`,
	RunE: runRunsRescan,
}

var runsDeleteCmd = &cobra.Command{
	Use:   "delete <run-id>",
	Short: "Remove a run from the index (files on disk are kept)",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsDelete,
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsRescanCmd)
	runsCmd.AddCommand(runsDeleteCmd)

	runsListCmd.Flags().IntVar(&runsListLimit, "limit", 50,
		"Max runs to list")
	runsRescanCmd.Flags().StringSliceVar(&runsRescanRoots, "root", nil,
		"Directory to scan (comma-separated or repeated flag, default: configured roots)")
}

// openCorpusStore loads the config and connects to the corpus index.
// The caller must Stop the returned store.
func openCorpusStore(ctx context.Context) (corpus.Store, *config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	if cfg.Corpus == nil || !cfg.Corpus.Enabled {
		return nil, nil, fmt.Errorf("corpus is not configured or not enabled in config")
	}

	store := corpus.NewStore(log, cfg.Corpus)
	if err := store.Start(ctx); err != nil {
		return nil, nil, fmt.Errorf("starting corpus store: %w", err)
	}

	return store, cfg, nil
}

func closeCorpusStore(store corpus.Store) {
	if err := store.Stop(); err != nil {
		log.WithError(err).Warn("Failed to stop corpus store")
	}
}

func runRunsList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	store, _, err := openCorpusStore(ctx)
	if err != nil {
		return err
	}
	defer closeCorpusStore(store)

	runs, err := store.ListRuns(ctx, runsListLimit)
	if err != nil {
		return fmt.Errorf("listing runs: %w", err)
	}

	if len(runs) == 0 {
		fmt.Println("no runs indexed")

		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)

	fmt.Fprintln(w, "RUN ID\tWORKLOAD\tSEED\tDAYS\tQUERIES\tSIZE\tGENERATED")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%s\t%s\n",
			run.RunID,
			run.Workload,
			run.Seed,
			run.Days,
			run.QueryCount,
			units.HumanSize(float64(run.SizeBytes)),
			run.GeneratedAt.UTC().Format(time.RFC3339),
		)
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("writing table: %w", err)
	}

	return nil
}

func runRunsShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	store, _, err := openCorpusStore(ctx)
	if err != nil {
		return err
	}
	defer closeCorpusStore(store)

	run, err := store.GetRun(ctx, args[0])
	if err != nil {
		if errors.Is(err, corpus.ErrRunNotFound) {
			return fmt.Errorf("run %q is not in the index", args[0])
		}

		return fmt.Errorf("getting run: %w", err)
	}

	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding run: %w", err)
	}

	fmt.Println(string(data))

	return nil
}

func runRunsRescan(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	store, cfg, err := openCorpusStore(ctx)
	if err != nil {
		return err
	}
	defer closeCorpusStore(store)

	roots := runsRescanRoots
	if len(roots) == 0 {
		roots = rescanRootsFromConfig(cfg)
	}

	log.WithField("roots", roots).Info("Rescanning output roots")

	result, err := store.Rescan(ctx, roots)
	if err != nil {
		return fmt.Errorf("rescanning: %w", err)
	}

	fmt.Printf("candidates: %d\nindexed:    %d\nfailed:     %d\n",
		result.Candidates, result.Indexed, result.Failed)

	return nil
}

func runRunsDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	store, _, err := openCorpusStore(ctx)
	if err != nil {
		return err
	}
	defer closeCorpusStore(store)

	if err := store.DeleteRun(ctx, args[0]); err != nil {
		if errors.Is(err, corpus.ErrRunNotFound) {
			return fmt.Errorf("run %q is not in the index", args[0])
		}

		return fmt.Errorf("deleting run: %w", err)
	}

	log.WithField("run_id", args[0]).Info("Run removed from index")

	return nil
}

// rescanRootsFromConfig picks the scan roots: the server file roots when
// set, the generator output directory otherwise.
func rescanRootsFromConfig(cfg *config.Config) []string {
	if cfg.Server != nil && len(cfg.Server.Roots) > 0 {
		return cfg.Server.Roots
	}

	return []string{cfg.Generator.OutputDir}
}

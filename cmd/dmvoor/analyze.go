package main

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/lab271/dmvoor/pkg/analyze"
)

var (
	analyzeInput     string
	analyzeOutput    string
	analyzeFormat    string
	analyzeMaxRows   int
	analyzeDelimiter string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a Query Store export directory",
	Long: `Read sys.query_store_* export files and derive a statistical profile
of the workload. The report includes class profiles shaped like the
generator's overrides, so it can seed a config that reproduces the
measured workload.`,
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVar(&analyzeInput, "input", "",
		"Directory containing the export files to analyze")
	analyzeCmd.Flags().StringVar(&analyzeOutput, "output", "",
		"Report file path (default: stdout)")
	analyzeCmd.Flags().StringVar(&analyzeFormat, "format", analyze.ReportYAML,
		"Report format: yaml or json")
	analyzeCmd.Flags().IntVar(&analyzeMaxRows, "max-rows", 0,
		"Max rows to read per file (0: default cap, negative: unlimited)")
	analyzeCmd.Flags().StringVar(&analyzeDelimiter, "delimiter", "",
		"Field delimiter (default: detect per file)")

	_ = analyzeCmd.MarkFlagRequired("input")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	parser := analyze.NewParser(log, analyze.ParserOptions{
		Delimiter: analyzeDelimiter,
		MaxRows:   analyzeMaxRows,
	})

	log.WithField("input", analyzeInput).Info("Analyzing export directory")

	data, err := parser.Parse(analyzeInput)
	if err != nil {
		return fmt.Errorf("parsing exports: %w", err)
	}

	report := analyze.Analyze(data)

	var w io.Writer = os.Stdout

	if analyzeOutput != "" {
		f, err := os.Create(analyzeOutput)
		if err != nil {
			return fmt.Errorf("creating report file: %w", err)
		}

		defer func() {
			if err := f.Close(); err != nil {
				log.WithError(err).Warn("Failed to close report file")
			}
		}()

		w = f
	}

	if err := analyze.WriteReport(w, report, analyzeFormat); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}

	counts := data.Counts()

	log.WithFields(logrus.Fields{
		"queries":       counts.Queries,
		"plans":         counts.Plans,
		"runtime_stats": counts.RuntimeStats,
	}).Info("Analysis completed")

	return nil
}

package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/lab271/dmvoor/pkg/workload"
)

var workloadsFormat string

var workloadsCmd = &cobra.Command{
	Use:   "workloads",
	Short: "List the built-in workload scenarios",
	RunE:  runWorkloads,
}

func init() {
	rootCmd.AddCommand(workloadsCmd)
	workloadsCmd.Flags().StringVar(&workloadsFormat, "format", "table",
		"Output format: table or yaml")
}

func runWorkloads(cmd *cobra.Command, args []string) error {
	catalog := workload.Catalog()

	switch workloadsFormat {
	case "table":
		return printWorkloadsTable(catalog)
	case "yaml":
		data, err := yaml.Marshal(catalog)
		if err != nil {
			return fmt.Errorf("encoding catalog: %w", err)
		}

		fmt.Print(string(data))

		return nil
	default:
		return fmt.Errorf("unsupported format %q (use \"table\" or \"yaml\")", workloadsFormat)
	}
}

func printWorkloadsTable(catalog []workload.Scenario) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)

	fmt.Fprintln(w, "ID\tNAME\tMIX\tCPU\tIO\tMEMORY")

	for _, scenario := range catalog {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%.2f\t%.2f\n",
			scenario.ID,
			scenario.Name,
			formatMix(scenario.Mix),
			scenario.CPUPressure,
			scenario.IOPressure,
			scenario.MemoryPressure,
		)
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("writing table: %w", err)
	}

	return nil
}

// formatMix renders a scenario mix as "OLTP 70% / OLAP 20% / Problematic 10%".
func formatMix(mix []workload.Share) string {
	parts := make([]string, 0, len(mix))
	for _, share := range mix {
		parts = append(parts, fmt.Sprintf("%s %.0f%%", share.Class, share.Weight*100))
	}

	return strings.Join(parts, " / ")
}

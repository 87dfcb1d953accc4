package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Mad4Viz/Hockey-Fixtures-and-Results-2024-2025/internal/pivot"
	"github.com/Mad4Viz/Hockey-Fixtures-and-Results-2024-2025/internal/sink"
)

func newPivotCmd() *cobra.Command {
	var input, output string

	cmd := &cobra.Command{
		Use:   "pivot --input fixtures.csv [--output pivoted.csv]",
		Short: "Reshape a fixtures CSV into one row per team per match with a result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				output = strings.TrimSuffix(input, filepath.Ext(input)) + "_pivoted.csv"
			}
			return runPivot(input, output)
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "Fixtures CSV written by the fixtures command (required)")
	cmd.Flags().StringVar(&output, "output", "", "Destination CSV (default: <input>_pivoted.csv)")
	cmd.MarkFlagRequired("input")
	return cmd
}

func runPivot(input, output string) error {
	in, err := os.Open(input)
	if err != nil {
		return fmt.Errorf("failed to open input: %w", err)
	}
	defer in.Close()

	records, err := sink.ReadFixtures(in)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", input, err)
	}
	log.Printf("✓ Read %d fixtures from %s", len(records), input)

	rows := pivot.Pivot(records)

	out, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	if err := pivot.WriteCSV(out, rows); err != nil {
		out.Close()
		return fmt.Errorf("failed to write %s: %w", output, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", output, err)
	}

	log.Printf("✓ Wrote %d rows to %s", len(rows), output)
	counts := pivot.Counts(rows)
	results := make([]string, 0, len(counts))
	for result := range counts {
		results = append(results, string(result))
	}
	slices.Sort(results)
	for _, result := range results {
		log.Printf("  %s: %d", result, counts[pivot.Result(result)])
	}
	return nil
}

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/Mad4Viz/Hockey-Fixtures-and-Results-2024-2025/internal/paginator"
)

// printSummary renders the end-of-run totals.
func printSummary(title string, seasons []paginator.SeasonSummary, path string, elapsed time.Duration) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle(title)
	t.AppendHeader(table.Row{"Season", "Pages", "Failed", "Records", "Duplicates", "Elapsed"})

	var pages, failures, records, duplicates int
	for _, s := range seasons {
		if s.Skipped {
			t.AppendRow(table.Row{s.Season, "-", "-", "-", "-", "skipped"})
			continue
		}
		t.AppendRow(table.Row{s.Season, s.Pages, s.Failures, s.Records, s.Duplicates, s.Elapsed.Round(time.Second)})
		pages += s.Pages
		failures += s.Failures
		records += s.Records
		duplicates += s.Duplicates
	}

	t.AppendFooter(table.Row{"Total", pages, failures, records, duplicates, elapsed.Round(time.Second)})
	t.SetStyle(table.StyleRounded)
	t.Render()

	fmt.Printf("Output: %s\n", path)
}

// Package stats renders a simulation's final per-component statistics to
// stdout and, optionally, persists them to a SQL sink for later analysis
// across runs.
package stats

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/sarchlab/sinuca-go/link"
)

// Print renders stats as a two-column table to stdout, in the order the
// engine collected them (component registration order).
func Print(stats []link.Stat) {
	t := table.NewWriter()
	t.SetTitle("Statistics")
	t.AppendHeader(table.Row{"Name", "Value"})
	for _, s := range stats {
		t.AppendRow(table.Row{s.Name, s.Value})
	}
	fmt.Println(t.Render())
}

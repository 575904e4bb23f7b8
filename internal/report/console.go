package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// Print writes t as an aligned table
func Print(w io.Writer, t Table) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(t.Header, "\t"))
	for _, rec := range t.Records {
		cells := make([]string, len(rec))
		for i, c := range rec {
			if c == "" {
				c = "-"
			}
			cells[i] = c
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

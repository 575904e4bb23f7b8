// Package report renders run results: delimited files, spreadsheets, a
// console table and the email summary.
package report

import (
	"fmt"
	"strconv"
	"time"

	"github.com/ibeckermayer/xengage/internal/config"
	"github.com/ibeckermayer/xengage/internal/engagement"
	"github.com/ibeckermayer/xengage/internal/types"
)

// Commenter table header
var CommentersHeader = []string{"Username", "Position", "Observed_at"}

// Table is a header plus data rows, all rendered as strings
type Table struct {
	Header  []string   `json:"header"`
	Records [][]string `json:"records"`
}

// MatrixTable renders an engagement matrix with its bit-exact header
func MatrixTable(m *engagement.Matrix) Table {
	return Table{Header: m.Header(), Records: m.Records()}
}

// CommentersTable renders one row per distinct identity, in first-seen
// order, keeping the first item's position and timestamp.
func CommentersTable(items []types.FeedItem) Table {
	seen := types.NewIdentitySet()
	t := Table{Header: CommentersHeader, Records: [][]string{}}
	for _, it := range items {
		if !seen.Add(it.Identity) {
			continue
		}
		observed := ""
		if !it.ObservedAt.IsZero() {
			observed = it.ObservedAt.UTC().Format(time.RFC3339)
		}
		t.Records = append(t.Records, []string{string(it.Identity), strconv.Itoa(it.Position), observed})
	}
	return t
}

// Write persists t to path in the given format
func Write(path, format string, t Table) error {
	switch format {
	case config.FormatCSV, "":
		return WriteCSV(path, t)
	case config.FormatXLSX:
		return WriteXLSX(path, t)
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}

// Package engagement builds the subject x target matrix of TRUE/FALSE
// interaction results.
package engagement

import (
	"fmt"
	"strconv"

	"github.com/ibeckermayer/xengage/internal/types"
)

// Literal tokens of the tabular output
const (
	HeaderSubject    = "Username"
	HeaderFalseCount = "False_count"
	True             = "TRUE"
	False            = "FALSE"
)

// Cell is one subject/target pair
type Cell struct {
	Target  types.Identity `json:"target"`
	Engaged bool           `json:"engaged"`
	// Self marks the pair where subject and target are the same account.
	// It is never queried and does not count as a miss.
	Self bool `json:"self,omitempty"`
}

// Row holds one subject's results, one cell per matrix target in column order
type Row struct {
	Subject    types.Identity
	cells      []Cell
	falseCount int
}

// NewRow finalizes a row, deriving its False_count from cells
func NewRow(subject types.Identity, cells []Cell) Row {
	r := Row{Subject: subject, cells: cells}
	for _, c := range cells {
		if !c.Self && !c.Engaged {
			r.falseCount++
		}
	}
	return r
}

// Cells returns a copy of the row's cells
func (r Row) Cells() []Cell {
	out := make([]Cell, len(r.cells))
	copy(out, r.cells)
	return out
}

// Value returns the result for target. applicable is false for the self
// pair and for targets outside the matrix.
func (r Row) Value(target types.Identity) (engaged, applicable bool) {
	for _, c := range r.cells {
		if c.Target == target {
			return c.Engaged, !c.Self
		}
	}
	return false, false
}

// FalseCount is the number of targets the subject did not engage with
func (r Row) FalseCount() int {
	return r.falseCount
}

// Matrix is the finished engagement table
type Matrix struct {
	targets []types.Identity
	rows    []Row
}

// NewMatrix assembles rows under the given target columns. Every row must
// carry exactly one cell per target, in column order.
func NewMatrix(targets []types.Identity, rows []Row) (*Matrix, error) {
	for _, r := range rows {
		if len(r.cells) != len(targets) {
			return nil, fmt.Errorf("row %s has %d cells, want %d", r.Subject, len(r.cells), len(targets))
		}
		for i, c := range r.cells {
			if c.Target != targets[i] {
				return nil, fmt.Errorf("row %s column %d is %s, want %s", r.Subject, i, c.Target, targets[i])
			}
		}
	}
	return &Matrix{targets: targets, rows: rows}, nil
}

// Targets returns the column order
func (m *Matrix) Targets() []types.Identity {
	out := make([]types.Identity, len(m.targets))
	copy(out, m.targets)
	return out
}

// Rows returns the rows in output order
func (m *Matrix) Rows() []Row {
	out := make([]Row, len(m.rows))
	copy(out, m.rows)
	return out
}

// Len is the number of rows
func (m *Matrix) Len() int {
	return len(m.rows)
}

// Header returns [Username, <target_1>, ..., <target_n>, False_count]
func (m *Matrix) Header() []string {
	h := make([]string, 0, len(m.targets)+2)
	h = append(h, HeaderSubject)
	for _, t := range m.targets {
		h = append(h, string(t))
	}
	return append(h, HeaderFalseCount)
}

// Records renders every row with TRUE/FALSE cells. The self pair renders as
// an empty cell.
func (m *Matrix) Records() [][]string {
	out := make([][]string, 0, len(m.rows))
	for _, r := range m.rows {
		rec := make([]string, 0, len(r.cells)+2)
		rec = append(rec, string(r.Subject))
		for _, c := range r.cells {
			rec = append(rec, FormatCell(c))
		}
		rec = append(rec, strconv.Itoa(r.falseCount))
		out = append(out, rec)
	}
	return out
}

// FormatCell renders a cell as TRUE, FALSE or "" for the self pair
func FormatCell(c Cell) string {
	switch {
	case c.Self:
		return ""
	case c.Engaged:
		return True
	default:
		return False
	}
}

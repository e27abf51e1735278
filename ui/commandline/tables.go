// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package commandline

import (
	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
)

var (
	normalStyle       = lipgloss.NewStyle().Padding(0, 1)
	rightAlignedStyle = lipgloss.NewStyle().Align(lipgloss.Right).Padding(0, 1)
	statsStyle        = lipgloss.NewStyle().PaddingLeft(8)
	tableBorderColor  = "#705090"

	headerRowStyle = lipgloss.NewStyle().Reverse(true).
			Padding(0, 2, 0, 2).Align(lipgloss.Center)
	oddRowStyle = lipgloss.NewStyle().Faint(false).
			PaddingLeft(1).PaddingRight(1)
	evenRowStyle = lipgloss.NewStyle().Faint(true).
			PaddingLeft(1).PaddingRight(1)
	redRowStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "9", Dark: "9"}).
			Bold(true).
			PaddingLeft(1).PaddingRight(1)
)

// NewTable returns a two columns (name, value) table with rounded borders, the names right-aligned.
func NewTable() *lgtable.Table {
	return lgtable.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color(tableBorderColor))).
		StyleFunc(func(row, col int) lipgloss.Style {
			if col == 0 {
				return rightAlignedStyle
			}
			return normalStyle
		})
}

// TableWithReds is a table with alternating row styles, where selected rows are highlighted in red.
type TableWithReds struct {
	Table *lgtable.Table
	Count int
	Reds  map[int]bool
}

// Row appends a row, highlighted if isRed.
func (t *TableWithReds) Row(isRed bool, row ...string) {
	if isRed {
		t.Reds[t.Count] = true
	}
	t.Table.Row(row...)
	t.Count++
}

// String renders the table.
func (t *TableWithReds) String() string {
	return t.Table.String()
}

// NewTableWithReds creates a table with the given headers. The alignments are per column; the last one is
// used for the remaining columns.
func NewTableWithReds(headers []string, alignments ...lipgloss.Position) *TableWithReds {
	t := &TableWithReds{
		Reds: make(map[int]bool),
	}
	t.Table = lgtable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("99"))).
		StyleFunc(func(row, col int) (s lipgloss.Style) {
			if row < 0 {
				return headerRowStyle
			}
			switch {
			case t.Reds[row]:
				s = redRowStyle
			case row%2 == 0:
				s = oddRowStyle
			default:
				s = evenRowStyle
			}
			alignment := lipgloss.Left
			if col < len(alignments) {
				alignment = alignments[col]
			} else if len(alignments) > 0 {
				alignment = alignments[len(alignments)-1]
			}
			return s.Align(alignment)
		})
	if len(headers) > 0 {
		t.Table.Headers(headers...)
	}
	return t
}

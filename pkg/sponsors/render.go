package sponsors

import (
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
)

// RenderInfo renders the given columns of row as a headerless pipe table,
// one (column, value) pair per line. Every column must be present in row.
func RenderInfo(row Row, columns []string) (string, error) {
	pairs := make([][2]string, 0, len(columns))
	for _, col := range columns {
		value, ok := row[col]
		if !ok {
			return "", &ColumnError{Column: col}
		}
		pairs = append(pairs, [2]string{col, value})
	}
	return pipeTable(pairs), nil
}

// pipeTable lays out two-column rows as a headerless markdown pipe table:
// an alignment line followed by the rows. Columns holding only numbers are
// right aligned, the rest left aligned.
func pipeTable(rows [][2]string) string {
	var widths [2]int
	numeric := [2]bool{len(rows) > 0, len(rows) > 0}
	for _, r := range rows {
		for i, cell := range r {
			if w := runewidth.StringWidth(cell); w > widths[i] {
				widths[i] = w
			}
			if !isNumber(cell) {
				numeric[i] = false
			}
		}
	}

	var b strings.Builder
	b.WriteString("|")
	for i, w := range widths {
		if numeric[i] {
			b.WriteString(strings.Repeat("-", w+1))
			b.WriteString(":")
		} else {
			b.WriteString(":")
			b.WriteString(strings.Repeat("-", w+1))
		}
		b.WriteString("|")
	}

	for _, r := range rows {
		b.WriteString("\n|")
		for i, cell := range r {
			b.WriteString(" ")
			if numeric[i] {
				b.WriteString(runewidth.FillLeft(cell, widths[i]))
			} else {
				b.WriteString(runewidth.FillRight(cell, widths[i]))
			}
			b.WriteString(" |")
		}
	}
	return b.String()
}

func isNumber(s string) bool {
	_, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return err == nil
}

package sponsors

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Row maps column names to cell values.
type Row map[string]string

// Table is the sponsor sheet: a header and the rows beneath it, in sheet order.
type Table struct {
	Columns []string
	Rows    []Row
}

// NewTable builds a table from raw records. The first record is the header;
// short records are padded with empty cells and blank records are skipped.
func NewTable(records [][]string) *Table {
	if len(records) == 0 {
		return &Table{}
	}

	columns := make([]string, len(records[0]))
	for i, name := range records[0] {
		columns[i] = strings.TrimSpace(name)
	}

	t := &Table{Columns: columns}
	for _, record := range records[1:] {
		if isBlank(record) {
			continue
		}
		row := make(Row, len(columns))
		for i, col := range columns {
			if col == "" {
				continue
			}
			if i < len(record) {
				row[col] = record[i]
			} else {
				row[col] = ""
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// HasColumn reports whether the header contains name.
func (t *Table) HasColumn(name string) bool {
	for _, col := range t.Columns {
		if col == name {
			return true
		}
	}
	return false
}

// Filter returns the rows whose column equals value exactly.
func (t *Table) Filter(column, value string) ([]Row, error) {
	if !t.HasColumn(column) {
		return nil, fmt.Errorf("column %q not found in sponsor table", column)
	}

	var matches []Row
	for _, row := range t.Rows {
		if row[column] == value {
			matches = append(matches, row)
		}
	}
	return matches, nil
}

// PickOne returns the single row of t whose column equals name. A nil
// table, a missing column or no match yield a LookupError; several matches
// yield an AmbiguityError.
func PickOne(t *Table, name, column string) (Row, error) {
	if t == nil {
		return nil, &LookupError{Sponsor: name, Cause: fmt.Errorf("no sponsor table")}
	}

	matches, err := t.Filter(column, name)
	if err != nil {
		return nil, &LookupError{Sponsor: name, Cause: err}
	}

	switch len(matches) {
	case 0:
		return nil, &LookupError{Sponsor: name}
	case 1:
		return matches[0], nil
	default:
		return nil, &AmbiguityError{Sponsor: name, Rows: matches}
	}
}

func rowsJSON(rows []Row) string {
	data, err := json.Marshal(rows)
	if err != nil {
		return fmt.Sprintf("%v", rows)
	}
	return string(data)
}

func isBlank(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

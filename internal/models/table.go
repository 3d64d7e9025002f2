package models

import (
	"fmt"
	"strconv"
	"time"
)

// Table is a named tabular result. Column names are the compatibility contract
// with exporters and API consumers.
type Table struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// Valuer is implemented by every row type.
type Valuer interface {
	Values() []any
}

// NewTable builds a table from typed rows.
func NewTable[R Valuer](name string, columns []string, rows []R) Table {
	t := Table{
		Name:    name,
		Columns: columns,
		Rows:    make([][]any, 0, len(rows)),
	}

	for _, r := range rows {
		t.Rows = append(t.Rows, r.Values())
	}

	return t
}

// Len returns the number of rows.
func (t Table) Len() int {
	return len(t.Rows)
}

// Head returns a copy of the table limited to the first n rows.
func (t Table) Head(n int) Table {
	if n < 0 || n >= len(t.Rows) {
		return t
	}

	return Table{Name: t.Name, Columns: t.Columns, Rows: t.Rows[:n]}
}

// Column returns the index of the named column, or -1.
func (t Table) Column(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}

	return -1
}

// Strings renders every cell as text.
func (t Table) Strings() [][]string {
	out := make([][]string, 0, len(t.Rows))

	for _, row := range t.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = FormatCell(v)
		}

		out = append(out, cells)
	}

	return out
}

// FormatCell renders one cell value as text.
func FormatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		if x {
			return "True"
		}

		return "False"
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case time.Time:
		return x.UTC().Format(DateTimeLayout)
	default:
		return fmt.Sprint(x)
	}
}

// Package formatter renders and re-aligns Markdown tables using display
// width, so CJK and emoji cells line up.
package formatter

import (
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"

	"tgforge/internal/models"
	"tgforge/pkg/metadata"
)

// FormatMarkdown re-aligns every table in content and re-signs it, keeping
// the validation flag and run fields of an existing metadata block.
func FormatMarkdown(content string) (string, error) {
	meta, cleanContent := metadata.Extract(content)

	isValid := false
	if meta != nil {
		isValid = meta.Validation
	}

	return metadata.Sign(AlignTables(cleanContent), isValid, meta), nil
}

// AlignTables re-aligns the tables of content and leaves other lines alone.
func AlignTables(content string) string {
	lines := strings.Split(content, "\n")

	var (
		formattedLines []string
		tableBuffer    []string
	)

	for _, line := range lines {
		trimmedLine := strings.TrimSpace(line)

		// a table row starts and ends with a pipe
		if strings.HasPrefix(trimmedLine, "|") && strings.HasSuffix(trimmedLine, "|") {
			tableBuffer = append(tableBuffer, line)

			continue
		}

		if len(tableBuffer) > 0 {
			formattedLines = append(formattedLines, processTable(tableBuffer)...)
			tableBuffer = nil
		}

		formattedLines = append(formattedLines, line)
	}

	if len(tableBuffer) > 0 {
		formattedLines = append(formattedLines, processTable(tableBuffer)...)
	}

	return strings.Join(formattedLines, "\n")
}

// RenderTable writes t as a titled Markdown table, limited to the first
// limit rows when limit is positive.
func RenderTable(t models.Table, limit int) string {
	shown := t
	if limit > 0 {
		shown = t.Head(limit)
	}

	table := make([][]string, 0, shown.Len()+2)
	table = append(table, escapeRow(shown.Columns))
	table = append(table, make([]string, len(shown.Columns)))

	for _, row := range shown.Strings() {
		table = append(table, escapeRow(row))
	}

	var sb strings.Builder

	sb.WriteString("## " + t.Name + "\n\n")

	if len(t.Columns) == 0 {
		sb.WriteString("_No columns._\n")

		return sb.String()
	}

	sb.WriteString(strings.Join(renderRows(table, 1), "\n"))
	sb.WriteString("\n")

	if shown.Len() < t.Len() {
		sb.WriteString("\n_Showing " + strconv.Itoa(shown.Len()) + " of " + strconv.Itoa(t.Len()) + " rows._\n")
	}

	return sb.String()
}

// Escape makes a cell safe inside a table row.
func Escape(cell string) string {
	cell = strings.ReplaceAll(cell, "\r\n", " ")
	cell = strings.ReplaceAll(cell, "\n", " ")

	return strings.ReplaceAll(cell, "|", `\|`)
}

func escapeRow(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = Escape(c)
	}

	return out
}

func processTable(rows []string) []string {
	// header and separator are required
	if len(rows) < 2 {
		return rows
	}

	table := make([][]string, 0, len(rows))

	for _, row := range rows {
		table = append(table, SplitRow(row))
	}

	separatorRowIdx := -1
	if IsSeparator(table[1]) {
		separatorRowIdx = 1
	}

	return renderRows(table, separatorRowIdx)
}

// SplitRow splits a table line into trimmed cells, honoring escaped pipes.
func SplitRow(row string) []string {
	row = strings.TrimSpace(row)
	row = strings.TrimPrefix(row, "|")
	row = strings.TrimSuffix(row, "|")

	var (
		cells []string
		cur   strings.Builder
	)

	for i := 0; i < len(row); i++ {
		switch {
		case row[i] == '\\' && i+1 < len(row) && row[i+1] == '|':
			cur.WriteString(`\|`)
			i++
		case row[i] == '|':
			cells = append(cells, strings.TrimSpace(cur.String()))
			cur.Reset()
		default:
			cur.WriteByte(row[i])
		}
	}

	return append(cells, strings.TrimSpace(cur.String()))
}

// IsSeparator reports whether cells form a header separator row.
func IsSeparator(cells []string) bool {
	if len(cells) == 0 {
		return false
	}

	for _, cell := range cells {
		trim := strings.ReplaceAll(cell, "-", "")
		trim = strings.ReplaceAll(trim, ":", "")
		trim = strings.ReplaceAll(trim, " ", "")

		if trim != "" || !strings.Contains(cell, "-") {
			return false
		}
	}

	return true
}

func renderRows(table [][]string, separatorRowIdx int) []string {
	colCount := 0
	for _, row := range table {
		colCount = max(colCount, len(row))
	}

	colWidths := make([]int, colCount)

	for rIdx, row := range table {
		if rIdx == separatorRowIdx {
			continue
		}

		for i := 0; i < len(row) && i < colCount; i++ {
			colWidths[i] = max(colWidths[i], runewidth.StringWidth(row[i]))
		}
	}

	for i := range colWidths {
		colWidths[i] = max(colWidths[i], 3)
	}

	result := make([]string, 0, len(table))

	for i, row := range table {
		var sb strings.Builder

		sb.WriteString("|")

		for j := range colCount {
			sb.WriteString(" ")

			if i == separatorRowIdx {
				sb.WriteString(strings.Repeat("-", colWidths[j]))
			} else {
				content := ""
				if j < len(row) {
					content = row[j]
				}

				sb.WriteString(content)

				if padding := colWidths[j] - runewidth.StringWidth(content); padding > 0 {
					sb.WriteString(strings.Repeat(" ", padding))
				}
			}

			sb.WriteString(" |")
		}

		result = append(result, sb.String())
	}

	return result
}

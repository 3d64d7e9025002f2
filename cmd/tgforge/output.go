package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"tgforge/internal/lookup"
	"tgforge/internal/models"
	"tgforge/internal/pipeline"
	"tgforge/pkg/utils"
)

const maxCellWidth = 48

// previewColumns narrows wide tables to the columns worth reading in a
// terminal.
var previewColumns = map[string][]string{
	pipeline.TableMessages:     {"Channel", "Message ID", "Message DateTime (UTC)", "Text", "Views", "Replies"},
	pipeline.TableForwards:     {"Channel", "Forward Datetime (UTC)", "Origin Username", "Text", "Views"},
	pipeline.TableParticipants: {"Group", "User ID", "Username", "First Name", "Status", "Is Bot"},
	lookup.TableUsers:          {"User ID", "Username", "First Name", "Last Name", "Status", "Is Bot"},
}

// newTable returns a light-style table that keeps header and footer case.
func newTable(title string) table.Writer {
	style := table.StyleLight
	style.Format.Header = text.FormatDefault
	style.Format.Footer = text.FormatDefault

	tw := table.NewWriter()
	tw.SetStyle(style)
	tw.SetTitle(title)

	return tw
}

type printer struct {
	w io.Writer
}

func statusColor(status string) func(format string, a ...any) string {
	switch status {
	case string(models.StatusExhausted), string(models.StatusDateBoundary), pipeline.OutcomeOK:
		return color.GreenString
	case string(models.StatusCancelled), string(models.StatusSkipped), pipeline.OutcomePartial:
		return color.YellowString
	default:
		return color.RedString
	}
}

// reports prints one line per source and the run summary.
func (p printer) reports(res *pipeline.Result) {
	tw := newTable(fmt.Sprintf("Run %s (%s)", res.RunID, res.Kind))
	tw.AppendHeader(table.Row{"Source", "Status", "Pages", "Items", "Error"})

	for _, rep := range res.Reports {
		status := string(rep.Status)
		tw.AppendRow(table.Row{
			rep.Name,
			statusColor(status)("%s", status),
			humanize.Comma(int64(rep.Pages)),
			humanize.Comma(int64(rep.Items)),
			utils.TruncateString(rep.Error, maxCellWidth),
		})
	}

	outcome := res.Outcome()
	tw.AppendFooter(table.Row{
		"Outcome",
		statusColor(outcome)("%s", outcome),
		"",
		humanize.Comma(int64(res.RowCount())) + " rows",
		res.Finished.Sub(res.Started).Round(time.Millisecond).String(),
	})

	fmt.Fprintln(p.w, tw.Render())
	fmt.Fprintf(p.w, "📊 %s\n", res.Stats)
}

// preview prints the first limit rows of t.
func (p printer) preview(t models.Table, limit int) {
	if limit <= 0 {
		return
	}

	cols := previewIndexes(t)

	tw := newTable(t.Name)

	header := make(table.Row, 0, len(cols))
	for _, i := range cols {
		header = append(header, t.Columns[i])
	}

	tw.AppendHeader(header)

	for _, row := range t.Rows[:min(limit, t.Len())] {
		out := make(table.Row, 0, len(cols))
		for _, i := range cols {
			cell := ""
			if i < len(row) {
				cell = utils.TruncateString(utils.NormalizeWhitespace(models.FormatCell(row[i])), maxCellWidth)
			}

			out = append(out, cell)
		}

		tw.AppendRow(out)
	}

	if t.Len() > limit {
		tw.AppendFooter(table.Row{fmt.Sprintf("%s of %s rows", humanize.Comma(int64(limit)), humanize.Comma(int64(t.Len())))})
	}

	fmt.Fprintln(p.w, tw.Render())
}

func previewIndexes(t models.Table) []int {
	var idx []int

	if want, ok := previewColumns[t.Name]; ok {
		for _, name := range want {
			if i := slices.Index(t.Columns, name); i >= 0 {
				idx = append(idx, i)
			}
		}
	}

	if len(idx) == 0 {
		for i := range t.Columns {
			idx = append(idx, i)
		}
	}

	return idx
}

// lookup prints every table of a lookup and its failures.
func (p printer) lookup(res *lookup.Result, limit int) {
	for _, t := range res.Tables {
		if t.Name == lookup.TableErrors {
			continue
		}

		p.preview(t, limit)
	}

	for _, e := range res.Errors {
		fmt.Fprintln(p.w, color.RedString("✗ %s: %s", e.Input, e.Error))
	}
}

// files lists exported files with their size.
func (p printer) files(paths []string) {
	for _, path := range paths {
		size := ""
		if info, err := os.Stat(path); err == nil {
			size = humanize.Bytes(uint64(info.Size()))
		}

		fmt.Fprintf(p.w, "💾 %s %s\n", filepath.Clean(path), color.HiBlackString(size))
	}
}

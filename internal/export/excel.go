package export

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"tgforge/internal/models"
)

// MaxSheetName is the longest sheet name Excel accepts.
const MaxSheetName = 31

var sheetReplacer = strings.NewReplacer(
	"[", "", "]", "", ":", "", "*", "", "?", "", "/", "", `\`, "",
)

// SheetName makes a table name usable as a unique sheet name.
func SheetName(name string, used map[string]bool) string {
	base := strings.TrimSpace(sheetReplacer.Replace(name))
	if base == "" {
		base = "Sheet"
	}

	base = truncateRunes(base, MaxSheetName)
	candidate := base

	for n := 2; used[strings.ToLower(candidate)]; n++ {
		suffix := " (" + strconv.Itoa(n) + ")"
		candidate = truncateRunes(base, MaxSheetName-len(suffix)) + suffix
	}

	used[strings.ToLower(candidate)] = true

	return candidate
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}

	return string(r[:n])
}

// WriteExcel writes one workbook with a sheet per table.
func WriteExcel(w io.Writer, tables []models.Table) error {
	f := excelize.NewFile()
	defer f.Close()

	used := make(map[string]bool)

	for i, t := range tables {
		sheet := SheetName(t.Name, used)

		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
				return fmt.Errorf("naming sheet %q: %w", sheet, err)
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("adding sheet %q: %w", sheet, err)
		}

		if err := writeSheet(f, sheet, t); err != nil {
			return err
		}
	}

	return f.Write(w)
}

func writeSheet(f *excelize.File, sheet string, t models.Table) error {
	header := make([]any, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c
	}

	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("writing header of %q: %w", sheet, err)
	}

	for i, row := range t.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}

		values := row
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("writing row %d of %q: %w", i+1, sheet, err)
		}
	}

	return nil
}

// ReadSheet loads a sheet back as text rows, header first.
func ReadSheet(r io.Reader, sheet string) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return f.GetRows(sheet)
}

// Sheets lists the sheet names of a workbook.
func Sheets(r io.Reader) ([]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return f.GetSheetList(), nil
}


package export

import (
	"encoding/csv"
	"encoding/json"
	"io"

	"tgforge/internal/formatter"
	"tgforge/internal/models"
	"tgforge/pkg/metadata"
)

// WriteCSV writes t with a header row.
func WriteCSV(w io.Writer, t models.Table) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(t.Columns); err != nil {
		return err
	}

	if err := cw.WriteAll(t.Strings()); err != nil {
		return err
	}

	return cw.Error()
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}

// WriteMarkdown writes t as a display-width aligned table followed by a
// signed metadata block.
func WriteMarkdown(w io.Writer, t models.Table, rowLimit int, runID, kind string) error {
	doc := metadata.SignWith(formatter.RenderTable(t, rowLimit), metadata.Metadata{
		RunID:      runID,
		Kind:       kind,
		Validation: true,
	})

	_, err := io.WriteString(w, doc+"\n")

	return err
}

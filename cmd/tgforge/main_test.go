package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tgforge/internal/config"
	"tgforge/internal/crawler"
	"tgforge/internal/lookup"
	"tgforge/internal/models"
	"tgforge/internal/pipeline"
	"tgforge/internal/validator"
	"tgforge/pkg/metadata"
)

const unaligned = `# Report

| Name | Count |
|---|---|
| alpha | 1 |
| a much longer name | 22 |
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer

	root := newRootCmd()
	root.SetArgs(append([]string{"--env-file", ""}, args...))
	root.SetOut(&out)
	root.SetErr(&out)

	err := root.Execute()

	return out.String(), err
}

func TestFormatCommand_WriteThenVerify(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "report.md", unaligned)
	writeFile(t, dir, "notes.txt", "ignored")

	hidden := filepath.Join(dir, ".cache")
	require.NoError(t, os.Mkdir(hidden, 0o755))
	writeFile(t, hidden, "skip.md", unaligned)

	out, err := execute(t, "format", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Would format & sign")
	assert.Contains(t, out, "Scanned: 1 | Changed: 1")

	content, _ := os.ReadFile(path)
	assert.Equal(t, unaligned, string(content))

	out, err = execute(t, "format", "--write", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Formatted & Signed")

	content, _ = os.ReadFile(path)
	ok, err := metadata.Verify(string(content))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, string(content), "| a much longer name | 22    |")

	out, err = execute(t, "format", "--write", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Changed: 0")

	out, err = execute(t, "format", "--verify", path)
	require.NoError(t, err)
	assert.Contains(t, out, "✅ "+path)

	require.NoError(t, os.WriteFile(path, append(content, []byte("tampered\n")...), 0o644))

	_, err = execute(t, "format", "--verify", path)
	assert.ErrorIs(t, err, ErrVerifyFailed)
}

func TestFormatFile_ReportsInvalidTables(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bad.md", "| a | b |\n|---|---|\n| 1 |\n")

	var out bytes.Buffer

	changed, err := formatFile(path, true, validator.NewMarkdownValidator(config.Default()), &out)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Contains(t, out.String(), "Validation Errors")

	content, _ := os.ReadFile(path)
	meta, _ := metadata.Extract(string(content))
	require.NotNil(t, meta)
	assert.False(t, meta.Validation)
}

func TestFetchFlags_Request(t *testing.T) {
	cmd := newFetchCmd(&app{}, pipeline.KindMessages)
	require.NoError(t, cmd.ParseFlags([]string{"-s", "b,@A", "--since", "2024-03-01", "--comments=false"}))

	f := &fetchFlags{}
	require.NoError(t, cmd.Flags().Set("until", "2024-03-31"))

	f.sources, _ = cmd.Flags().GetStringSlice("sources")
	f.since, _ = cmd.Flags().GetString("since")
	f.until, _ = cmd.Flags().GetString("until")

	req, err := f.request(cmd, pipeline.KindMessages, []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, req.Sources)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), req.Since)
	assert.Equal(t, time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC), req.Until)
	require.NotNil(t, req.IncludeComments)
	assert.False(t, *req.IncludeComments)

	_, err = (&fetchFlags{since: "2024-04-01", until: "2024-03-01"}).request(cmd, pipeline.KindMessages, []string{"a"})
	assert.ErrorIs(t, err, validator.ErrInvertedRange)

	_, err = (&fetchFlags{}).request(cmd, pipeline.KindMessages, nil)
	assert.ErrorIs(t, err, validator.ErrNoSources)
}

func TestFetchCommands_Flags(t *testing.T) {
	root := newRootCmd()

	msgs, _, err := root.Find([]string{"messages"})
	require.NoError(t, err)
	assert.NotNil(t, msgs.Flags().Lookup("comments"))
	assert.Nil(t, msgs.Flags().Lookup("method"))

	parts, _, err := root.Find([]string{"participants"})
	require.NoError(t, err)
	assert.NotNil(t, parts.Flags().Lookup("method"))
}

func TestFetch_RequiresCredentials(t *testing.T) {
	_, err := execute(t, "messages", "durov")
	assert.ErrorIs(t, err, config.ErrInvalidAPIID)
}

func TestPrinter_Reports(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	res := &pipeline.Result{
		RunID:    "r1",
		Kind:     pipeline.KindMessages,
		Started:  start,
		Finished: start.Add(1500 * time.Millisecond),
		Reports: []models.SourceReport{
			{Name: "News", Status: models.StatusExhausted, Pages: 3, Items: 1234},
			{Name: "ghost", Status: models.StatusNotFound, Error: "source not found"},
		},
		Tables: []models.Table{{Name: pipeline.TableMessages, Columns: []string{"Channel"}, Rows: [][]any{{"News"}}}},
		Stats:  crawler.LedgerStats{TotalSources: 2},
	}

	var buf bytes.Buffer
	printer{w: &buf}.reports(res)

	out := buf.String()
	assert.Contains(t, out, "Run r1 (messages)")
	assert.Contains(t, out, "1,234")
	assert.Contains(t, out, "not_found")
	assert.Contains(t, strings.ToLower(out), "partial")
	assert.Contains(t, out, "1.5s")
}

func TestStatusColor(t *testing.T) {
	prev := color.NoColor
	color.NoColor = false
	t.Cleanup(func() { color.NoColor = prev })

	paint := func(fn func(string, ...any) string) string { return fn("%s", "x") }

	tests := []struct {
		want   func(string, ...any) string
		status string
	}{
		{color.GreenString, string(models.StatusExhausted)},
		{color.GreenString, string(models.StatusDateBoundary)},
		{color.GreenString, pipeline.OutcomeOK},
		{color.YellowString, string(models.StatusCancelled)},
		{color.YellowString, pipeline.OutcomeCancelled},
		{color.YellowString, string(models.StatusSkipped)},
		{color.YellowString, pipeline.OutcomePartial},
		{color.RedString, string(models.StatusNotFound)},
		{color.RedString, pipeline.OutcomeFailed},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			assert.Equal(t, paint(tt.want), paint(statusColor(tt.status)))
		})
	}
}

func TestPrinter_Preview(t *testing.T) {
	tbl := models.Table{
		Name:    pipeline.TableMessages,
		Columns: models.MessageColumns,
	}

	for i := range 3 {
		row := make([]any, len(models.MessageColumns))
		row[0] = "News"
		row[2] = i + 1
		row[7] = "line one\nline two " + strings.Repeat("x", 80)
		tbl.Rows = append(tbl.Rows, row)
	}

	var buf bytes.Buffer
	printer{w: &buf}.preview(tbl, 2)

	out := buf.String()
	assert.Contains(t, out, "Message ID")
	assert.NotContains(t, out, "Subscribers")
	assert.Contains(t, out, "line one line two")
	assert.Contains(t, out, "2 of 3 rows")
}

func TestPrinter_Lookup(t *testing.T) {
	res := &lookup.Result{
		Tables: []models.Table{
			models.NewTable(lookup.TableUsers, models.UserColumns, []models.UserRow{{User: models.User{ID: 42, Username: "alice"}}}),
			models.NewTable(lookup.TableErrors, models.LookupErrorColumns, []models.LookupError{{Input: "@ghost", Error: "Not found"}}),
		},
		Errors: []models.LookupError{{Input: "@ghost", Error: "Not found"}},
	}

	var buf bytes.Buffer
	printer{w: &buf}.lookup(res, 5)

	out := buf.String()
	assert.Contains(t, out, "@alice")
	assert.Contains(t, out, "@ghost: Not found")
	assert.Equal(t, 1, strings.Count(out, "@ghost"))
}

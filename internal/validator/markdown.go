// Package validator checks user input before any network activity and the
// structure of exported Markdown documents.
package validator

import (
	"fmt"
	"io"
	"strings"

	"tgforge/internal/config"
	"tgforge/internal/formatter"
	"tgforge/pkg/metadata"
)

// ValidationError represents a validation error with context.
type ValidationError struct {
	Field   string
	Value   string
	Message string
	Line    int
	Column  int
}

// ValidationResult contains validation results.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []string
	Stats    ValidationStats
	IsValid  bool
}

// ValidationStats contains validation statistics.
type ValidationStats struct {
	Tables      int
	TotalRows   int
	ValidRows   int
	InvalidRows int
}

// MarkdownValidator validates the tables of exported documents.
type MarkdownValidator struct {
	rowLimit int
}

// NewMarkdownValidator creates a validator using the configured row limit.
func NewMarkdownValidator(cfg *config.Config) *MarkdownValidator {
	return &MarkdownValidator{rowLimit: cfg.Output.MarkdownRowLimit}
}

type tableState struct {
	columns int
	rows    int
	line    int
}

// ValidateMarkdown checks that every table has a header, a separator row and
// the same number of cells on every row.
func (v *MarkdownValidator) ValidateMarkdown(markdown string) *ValidationResult {
	result := &ValidationResult{
		IsValid:  true,
		Errors:   []ValidationError{},
		Warnings: []string{},
	}

	_, clean := metadata.Extract(markdown)
	lines := strings.Split(clean, "\n")

	var table *tableState

	closeTable := func() {
		if table == nil {
			return
		}

		if v.rowLimit > 0 && table.rows > v.rowLimit {
			result.Warnings = append(result.Warnings, fmt.Sprintf(
				"table at line %d has %d rows, more than the configured limit of %d",
				table.line, table.rows, v.rowLimit))
		}

		table = nil
	}

	for lineNum, line := range lines {
		trimmed := strings.TrimSpace(line)

		if !strings.HasPrefix(trimmed, "|") || !strings.HasSuffix(trimmed, "|") {
			closeTable()

			continue
		}

		cells := formatter.SplitRow(trimmed)

		switch {
		case table == nil:
			table = &tableState{columns: len(cells), line: lineNum + 1}
			result.Stats.Tables++

			if lineNum+1 >= len(lines) || !formatter.IsSeparator(formatter.SplitRow(lines[lineNum+1])) {
				result.IsValid = false
				result.Errors = append(result.Errors, ValidationError{
					Line:    lineNum + 1,
					Column:  1,
					Field:   "separator",
					Message: "table header is not followed by a separator row",
				})
			}
		case table.rows == 0 && formatter.IsSeparator(cells):
			if len(cells) != table.columns {
				result.IsValid = false
				result.Errors = append(result.Errors, ValidationError{
					Line:    lineNum + 1,
					Field:   "separator",
					Message: fmt.Sprintf("separator has %d cells, header has %d", len(cells), table.columns),
				})
			}
		default:
			table.rows++
			result.Stats.TotalRows++

			if len(cells) != table.columns {
				result.IsValid = false
				result.Stats.InvalidRows++
				result.Errors = append(result.Errors, ValidationError{
					Line:    lineNum + 1,
					Column:  min(len(cells), table.columns) + 1,
					Value:   truncate(trimmed, 50),
					Message: fmt.Sprintf("expected %d columns, got %d", table.columns, len(cells)),
				})

				continue
			}

			result.Stats.ValidRows++
		}
	}

	closeTable()

	if result.Stats.Tables == 0 {
		result.Warnings = append(result.Warnings, "no tables found")
	}

	return result
}

// ValidateIntegrity checks the integrity of the markdown content using the metadata block.
func (v *MarkdownValidator) ValidateIntegrity(content string) *ValidationResult {
	result := &ValidationResult{IsValid: true}

	valid, err := metadata.Verify(content)
	if !valid {
		result.IsValid = false
		result.Errors = append(result.Errors, ValidationError{
			Message: fmt.Sprintf("integrity check failed: %v", err),
		})
	}

	return result
}

// truncate truncates string to max length.
func truncate(s string, maxLen int) string {
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}

	return s
}

// String returns string representation of validation result.
func (r *ValidationResult) String() string {
	status := "✅ VALID"
	if !r.IsValid {
		status = "❌ INVALID"
	}

	return fmt.Sprintf(
		"%s | Tables: %d | Rows: %d | Valid: %d | Invalid: %d | Warnings: %d",
		status,
		r.Stats.Tables,
		r.Stats.TotalRows,
		r.Stats.ValidRows,
		r.Stats.InvalidRows,
		len(r.Warnings),
	)
}

// PrintErrors prints validation errors in readable format.
func (r *ValidationResult) PrintErrors(w io.Writer) {
	if len(r.Errors) == 0 {
		return
	}

	fmt.Fprintln(w, "❌ Validation Errors:")

	for _, err := range r.Errors {
		if err.Line == 0 {
			fmt.Fprintf(w, "  %s\n", err.Message)

			continue
		}

		fmt.Fprintf(w, "  Line %d, Col %d", err.Line, err.Column)

		if err.Field != "" {
			fmt.Fprintf(w, " [%s]", err.Field)
		}

		fmt.Fprintf(w, ": %s\n", err.Message)

		if err.Value != "" {
			fmt.Fprintf(w, "    Found: %q\n", err.Value)
		}
	}
}

// PrintWarnings prints validation warnings.
func (r *ValidationResult) PrintWarnings(w io.Writer) {
	if len(r.Warnings) == 0 {
		return
	}

	fmt.Fprintln(w, "⚠️  Validation Warnings:")

	for _, warn := range r.Warnings {
		fmt.Fprintf(w, "  %s\n", warn)
	}
}

package validator

import (
	"bytes"
	"strings"
	"testing"

	"tgforge/internal/config"
	"tgforge/pkg/metadata"
)

func newTestValidator(t *testing.T, rowLimit int) *MarkdownValidator {
	t.Helper()

	cfg := config.Default()
	cfg.Output.MarkdownRowLimit = rowLimit

	return NewMarkdownValidator(cfg)
}

func TestValidateMarkdown_ValidTable(t *testing.T) {
	v := newTestValidator(t, 100)

	md := `## Messages

| Channel | Message ID |
| ------- | ---------- |
| News    | 1          |
| News    | 2          |
`

	result := v.ValidateMarkdown(md)
	if !result.IsValid {
		t.Fatalf("expected valid, got errors: %+v", result.Errors)
	}

	if result.Stats.Tables != 1 || result.Stats.TotalRows != 2 || result.Stats.ValidRows != 2 {
		t.Errorf("unexpected stats: %+v", result.Stats)
	}
}

func TestValidateMarkdown_MissingSeparator(t *testing.T) {
	v := newTestValidator(t, 100)

	result := v.ValidateMarkdown("| A | B |\n| 1 | 2 |\n")
	if result.IsValid {
		t.Fatal("expected invalid without separator row")
	}

	if result.Errors[0].Field != "separator" {
		t.Errorf("expected separator error, got %+v", result.Errors[0])
	}
}

func TestValidateMarkdown_ColumnMismatch(t *testing.T) {
	v := newTestValidator(t, 100)

	md := "| A | B |\n| --- | --- |\n| 1 | 2 |\n| 3 |\n"

	result := v.ValidateMarkdown(md)
	if result.IsValid {
		t.Fatal("expected invalid for short row")
	}

	if result.Stats.InvalidRows != 1 || result.Stats.ValidRows != 1 {
		t.Errorf("unexpected stats: %+v", result.Stats)
	}

	if result.Errors[0].Line != 4 {
		t.Errorf("expected error on line 4, got %d", result.Errors[0].Line)
	}
}

func TestValidateMarkdown_EscapedPipes(t *testing.T) {
	v := newTestValidator(t, 100)

	result := v.ValidateMarkdown("| Text | N |\n| --- | --- |\n| a \\| b | 1 |\n")
	if !result.IsValid {
		t.Fatalf("escaped pipe should not split cells: %+v", result.Errors)
	}
}

func TestValidateMarkdown_RowLimitWarning(t *testing.T) {
	v := newTestValidator(t, 1)

	result := v.ValidateMarkdown("| A |\n| --- |\n| 1 |\n| 2 |\n")
	if !result.IsValid {
		t.Fatal("row limit should only warn")
	}

	if len(result.Warnings) != 1 || !strings.Contains(result.Warnings[0], "limit of 1") {
		t.Errorf("unexpected warnings: %v", result.Warnings)
	}
}

func TestValidateMarkdown_MultipleTablesAndMetadata(t *testing.T) {
	v := newTestValidator(t, 100)

	md := metadata.Sign("## One\n\n| A |\n| --- |\n| 1 |\n\n## Two\n\n| B | C |\n| --- | --- |\n| 2 | 3 |", true, nil)

	result := v.ValidateMarkdown(md)
	if !result.IsValid {
		t.Fatalf("expected valid, got %+v", result.Errors)
	}

	if result.Stats.Tables != 2 {
		t.Errorf("expected 2 tables, got %d", result.Stats.Tables)
	}
}

func TestValidateMarkdown_NoTables(t *testing.T) {
	result := newTestValidator(t, 100).ValidateMarkdown("just text")

	if !result.IsValid || len(result.Warnings) != 1 {
		t.Errorf("expected valid with one warning, got %+v", result)
	}
}

func TestValidateIntegrity(t *testing.T) {
	v := newTestValidator(t, 100)

	signed := metadata.Sign("| A |\n| --- |\n| 1 |", true, nil)
	if r := v.ValidateIntegrity(signed); !r.IsValid {
		t.Errorf("expected signed content to verify: %+v", r.Errors)
	}

	tampered := strings.Replace(signed, "| 1 |", "| 2 |", 1)
	if r := v.ValidateIntegrity(tampered); r.IsValid {
		t.Error("expected tampered content to fail")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("abcdef", 3); got != "abc..." {
		t.Errorf("truncate() = %q", got)
	}

	if got := truncate("ab", 3); got != "ab" {
		t.Errorf("truncate() = %q", got)
	}
}

func TestValidationResult_String(t *testing.T) {
	result := &ValidationResult{
		IsValid: true,
		Stats:   ValidationStats{Tables: 1, TotalRows: 10, ValidRows: 10},
	}

	str := result.String()
	if !strings.Contains(str, "VALID") || !strings.Contains(str, "10") {
		t.Errorf("unexpected string: %s", str)
	}

	result.IsValid = false
	if !strings.Contains(result.String(), "INVALID") {
		t.Error("Expected 'INVALID' in string representation")
	}
}

func TestValidationResult_Print(t *testing.T) {
	result := &ValidationResult{
		Errors:   []ValidationError{{Line: 3, Column: 2, Field: "separator", Message: "bad", Value: "| x |"}},
		Warnings: []string{"careful"},
	}

	var buf bytes.Buffer

	result.PrintErrors(&buf)
	result.PrintWarnings(&buf)

	out := buf.String()
	for _, want := range []string{"Line 3, Col 2 [separator]: bad", `Found: "| x |"`, "careful"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

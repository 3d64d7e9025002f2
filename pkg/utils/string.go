// Package utils provides string helpers shared by the exporters and the CLI.
package utils

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// TruncateString truncates str to maxLength runes, appending "..." when cut.
func TruncateString(str string, maxLength int) string {
	if maxLength < 0 || utf8.RuneCountInString(str) <= maxLength {
		return str
	}

	return string([]rune(str)[:maxLength]) + "..."
}

// NormalizeWhitespace replaces runs of whitespace with a single space.
func NormalizeWhitespace(str string) string {
	return strings.Join(strings.Fields(str), " ")
}

var (
	linkPrefix = regexp.MustCompile(`^.*t\.me/`)
	disallowed = regexp.MustCompile(`[^a-zA-Z0-9_\-]`)
)

// CleanColumnName turns a source name into a chart series label. A t.me link
// prefix is removed and each character outside [a-zA-Z0-9_-] becomes "_".
func CleanColumnName(name string) string {
	return disallowed.ReplaceAllString(linkPrefix.ReplaceAllString(name, ""), "_")
}

// SplitList splits comma or newline separated values, trimming blanks.
func SplitList(values ...string) []string {
	var out []string

	for _, v := range values {
		for _, part := range strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == '\n' || r == '\r' }) {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}

	return out
}

package validator

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"tgforge/pkg/utils"
)

// Input errors.
var (
	ErrNoSources     = errors.New("no sources given")
	ErrInvalidSource = errors.New("source name contains whitespace")
	ErrInvalidDate   = errors.New("invalid date, expected YYYY-MM-DD")
	ErrInvertedRange = errors.New("start date is after end date")
	ErrNoIdentifiers = errors.New("no identifiers given")
)

// DateLayout is the accepted date input format.
const DateLayout = time.DateOnly

// ParseDate parses an optional YYYY-MM-DD date. An empty string yields the
// zero time.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}

	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}

	return t, nil
}

// DateRange parses and checks an optional inclusive date range.
func DateRange(since, until string) (time.Time, time.Time, error) {
	start, err := ParseDate(since)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("start date: %w", err)
	}

	end, err := ParseDate(until)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("end date: %w", err)
	}

	if !start.IsZero() && !end.IsZero() && start.After(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %s > %s", ErrInvertedRange, since, until)
	}

	return start, end, nil
}

// Sources splits comma or newline separated names and checks each one.
// Duplicates are dropped, keeping the first occurrence.
func Sources(raw ...string) ([]string, error) {
	names := utils.SplitList(raw...)
	if len(names) == 0 {
		return nil, ErrNoSources
	}

	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))

	for _, n := range names {
		if strings.ContainsAny(n, " \t") {
			return nil, fmt.Errorf("%w: %q", ErrInvalidSource, n)
		}

		key := strings.ToLower(strings.TrimPrefix(n, "@"))
		if _, ok := seen[key]; ok {
			continue
		}

		seen[key] = struct{}{}
		out = append(out, n)
	}

	return out, nil
}

// Identifiers splits user identifiers the same way as Sources.
func Identifiers(raw ...string) ([]string, error) {
	ids := utils.SplitList(raw...)
	if len(ids) == 0 {
		return nil, ErrNoIdentifiers
	}

	return ids, nil
}

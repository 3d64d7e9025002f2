// Package analytics folds normalized rows into deduplicated collections and
// aggregate tables.
package analytics

import (
	"cmp"
	"slices"
	"time"
)

// Groupable is a row that may belong to a grouped post.
type Groupable interface {
	Timed
	GroupKey() (string, bool)
}

// Timed is a row with an owning source and a timestamp.
type Timed interface {
	SourceName() string
	SortTime() time.Time
}

// Dedupe keeps the first row per group key, never collapses rows without one,
// and returns the result sorted by source then timestamp. It is idempotent.
func Dedupe[T Groupable](rows []T) []T {
	seen := make(map[string]struct{})
	out := make([]T, 0, len(rows))

	for _, r := range rows {
		key, ok := r.GroupKey()
		if ok {
			if _, dup := seen[key]; dup {
				continue
			}

			seen[key] = struct{}{}
		}

		out = append(out, r)
	}

	SortBySource(out)

	return out
}

// SortBySource orders rows by source name then timestamp, keeping the input
// order of equal rows.
func SortBySource[T Timed](rows []T) {
	slices.SortStableFunc(rows, func(a, b T) int {
		if c := cmp.Compare(a.SourceName(), b.SourceName()); c != 0 {
			return c
		}

		return a.SortTime().Compare(b.SortTime())
	})
}

package analytics

import (
	"slices"
	"time"

	"tgforge/internal/models"
)

// VolumeSpec parameterizes one volume table.
type VolumeSpec struct {
	Start     time.Time
	End       time.Time
	Name      string
	Sources   []string
	Period    Period
	WeekStart time.Weekday
}

// Aggregate counts rows per (period, source) and pivots them into one row per
// period with one column per source. Every period between the bounds is
// present, zero filled. Missing bounds default to the earliest and latest row.
// Rows without a timestamp are skipped. Extra source names in spec.Sources get
// a column even without rows.
func Aggregate[T Timed](rows []T, spec VolumeSpec) models.Table {
	b := Bucketer{Period: spec.Period, WeekStart: spec.WeekStart}

	counts := make(map[time.Time]map[string]int)
	names := make(map[string]struct{})

	for _, s := range spec.Sources {
		names[s] = struct{}{}
	}

	var lo, hi time.Time

	for _, r := range rows {
		ts := r.SortTime()
		if ts.IsZero() {
			continue
		}

		p := b.Start(ts)
		if counts[p] == nil {
			counts[p] = make(map[string]int)
		}

		counts[p][r.SourceName()]++
		names[r.SourceName()] = struct{}{}

		if lo.IsZero() || p.Before(lo) {
			lo = p
		}

		if hi.IsZero() || p.After(hi) {
			hi = p
		}
	}

	if !spec.Start.IsZero() {
		lo = b.Start(spec.Start)
	}

	if !spec.End.IsZero() {
		hi = b.Start(spec.End)
	}

	sources := make([]string, 0, len(names))
	for n := range names {
		sources = append(sources, n)
	}

	slices.Sort(sources)

	table := models.Table{
		Name:    spec.Name,
		Columns: append([]string{b.Header()}, sources...),
		Rows:    [][]any{},
	}

	if lo.IsZero() || hi.IsZero() {
		return table
	}

	for p := lo; !p.After(hi); p = b.Next(p) {
		row := make([]any, 0, len(sources)+1)
		row = append(row, b.Label(p))

		for _, s := range sources {
			row = append(row, counts[p][s])
		}

		table.Rows = append(table.Rows, row)
	}

	return table
}

// VolumeTables builds the daily, weekly and monthly tables for rows.
func VolumeTables[T Timed](rows []T, start, end time.Time, weekStart time.Weekday, sources []string) []models.Table {
	specs := []VolumeSpec{
		{Name: "Daily Volume", Period: Day},
		{Name: "Weekly Volume", Period: Week},
		{Name: "Monthly Volume", Period: Month},
	}

	tables := make([]models.Table, 0, len(specs))

	for _, s := range specs {
		s.Start, s.End, s.WeekStart, s.Sources = start, end, weekStart, sources
		tables = append(tables, Aggregate(rows, s))
	}

	return tables
}

package analytics

import (
	"cmp"
	"slices"

	"tgforge/internal/models"
	"tgforge/internal/normalizer"
)

// Count is one value and how often it occurred.
type Count struct {
	Value string
	N     int
	first int
}

// TopN counts values and returns the n most frequent, ties broken by first
// occurrence.
func TopN(values []string, n int) []Count {
	idx := make(map[string]int)

	var counts []Count

	for _, v := range values {
		if i, ok := idx[v]; ok {
			counts[i].N++

			continue
		}

		idx[v] = len(counts)
		counts = append(counts, Count{Value: v, N: 1, first: len(counts)})
	}

	slices.SortStableFunc(counts, func(a, b Count) int {
		if c := cmp.Compare(b.N, a.N); c != 0 {
			return c
		}

		return cmp.Compare(a.first, b.first)
	})

	if n > 0 && len(counts) > n {
		counts = counts[:n]
	}

	return counts
}

func countTable(name, header string, counts []Count) models.Table {
	t := models.Table{Name: name, Columns: []string{header, "Count"}, Rows: make([][]any, 0, len(counts))}
	for _, c := range counts {
		t.Rows = append(t.Rows, []any{c.Value, c.N})
	}

	return t
}

// TopHashtags counts hashtags across rows.
func TopHashtags(rows []models.MessageRow, n int) models.Table {
	var tags []string
	for _, r := range rows {
		tags = append(tags, r.Hashtags...)
	}

	return countTable("Top Hashtags", "Hashtag", TopN(tags, n))
}

// TopURLs counts normalized links across rows.
func TopURLs(rows []models.MessageRow, tr *normalizer.Transformer, n int) models.Table {
	var urls []string

	for _, r := range rows {
		for _, u := range r.URLs {
			urls = append(urls, tr.NormalizeURL(u))
		}
	}

	return countTable("Top URLs", "URL", TopN(urls, n))
}

// TopDomains counts link hosts across rows, skipping links without one.
func TopDomains(rows []models.MessageRow, tr *normalizer.Transformer, n int) models.Table {
	var domains []string

	for _, r := range rows {
		for _, u := range r.URLs {
			if d := tr.Domain(u); d != "" {
				domains = append(domains, d)
			}
		}
	}

	return countTable("Top Domains", "Domain", TopN(domains, n))
}

// OriginPair is one forwarded item: where it came from and where it was posted.
type OriginPair struct {
	Origin  string
	Channel string
}

// MessageOrigins returns the forward origins of message rows, dropping
// forwards whose origin is unknown.
func MessageOrigins(rows []models.MessageRow) []OriginPair {
	var pairs []OriginPair

	for _, r := range rows {
		if !r.IsForward || r.OriginUsername == models.Unknown || r.OriginUsername == models.NotAvailable {
			continue
		}

		pairs = append(pairs, OriginPair{Origin: r.OriginUsername, Channel: r.Channel})
	}

	return pairs
}

// ForwardOrigins returns the origins of every forward row, unknown included.
func ForwardOrigins(rows []models.ForwardRow) []OriginPair {
	pairs := make([]OriginPair, 0, len(rows))
	for _, r := range rows {
		pairs = append(pairs, OriginPair{Origin: r.OriginUsername, Channel: r.Channel})
	}

	return pairs
}

// ForwardCounts pivots origins against channels with a "Total Forwards"
// column, most forwarded origin first.
func ForwardCounts(pairs []OriginPair) models.Table {
	perOrigin := make(map[string]map[string]int)
	channelSet := make(map[string]struct{})

	for _, p := range pairs {
		if perOrigin[p.Origin] == nil {
			perOrigin[p.Origin] = make(map[string]int)
		}

		perOrigin[p.Origin][p.Channel]++
		channelSet[p.Channel] = struct{}{}
	}

	channels := make([]string, 0, len(channelSet))
	for c := range channelSet {
		channels = append(channels, c)
	}

	slices.Sort(channels)

	type originTotal struct {
		origin string
		total  int
	}

	origins := make([]originTotal, 0, len(perOrigin))

	for o, byChannel := range perOrigin {
		total := 0
		for _, n := range byChannel {
			total += n
		}

		origins = append(origins, originTotal{origin: o, total: total})
	}

	slices.SortFunc(origins, func(a, b originTotal) int {
		if c := cmp.Compare(b.total, a.total); c != 0 {
			return c
		}

		return cmp.Compare(a.origin, b.origin)
	})

	columns := append([]string{"Origin Username"}, channels...)
	columns = append(columns, "Total Forwards")

	t := models.Table{Name: "Forward Counts", Columns: columns, Rows: make([][]any, 0, len(origins))}

	for _, o := range origins {
		row := make([]any, 0, len(columns))
		row = append(row, o.origin)

		for _, c := range channels {
			row = append(row, perOrigin[o.origin][c])
		}

		t.Rows = append(t.Rows, append(row, o.total))
	}

	return t
}

// TopViewed returns the n most viewed rows. Rows without a view count are
// left out.
func TopViewed(rows []models.MessageRow, n int) models.Table {
	viewed := make([]models.MessageRow, 0, len(rows))

	for _, r := range rows {
		if r.Views != nil {
			viewed = append(viewed, r)
		}
	}

	slices.SortStableFunc(viewed, func(a, b models.MessageRow) int {
		return cmp.Compare(*b.Views, *a.Views)
	})

	if n > 0 && len(viewed) > n {
		viewed = viewed[:n]
	}

	return models.NewTable("Top Viewed Posts", models.MessageColumns, viewed)
}

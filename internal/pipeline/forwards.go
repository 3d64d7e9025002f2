package pipeline

import (
	"context"

	"tgforge/internal/analytics"
	"tgforge/internal/models"
	"tgforge/internal/normalizer"
)

func (r *run) forwards(ctx context.Context) {
	var fetched []fetchedSource

	r.eachSource(ctx, func(ctx context.Context, src models.Source, rep *models.SourceReport) {
		out := r.pag.History(ctx, r.p.client, src, r.bounds, r.cancel)
		applyOutcome(r, rep, out)

		forwarded := make([]models.RawItem, 0, len(out.Items))

		for _, item := range out.Items {
			if item.Forward != nil {
				forwarded = append(forwarded, item)
			}
		}

		fetched = append(fetched, fetchedSource{meta: normalizer.SourceMeta{Source: src}, items: forwarded})
		r.log.Info("Collected forwards", "source", src.DisplayName(), "forwards", len(forwarded), "messages", len(out.Items))
	})

	r.p.setState(StateNormalizing)

	var rows []models.ForwardRow

	for _, fs := range fetched {
		for _, item := range fs.items {
			row, err := r.p.processor.Forward(item, fs.meta)
			if err != nil {
				r.log.Warn("Skipping item", "source", fs.meta.Source.Key, "id", item.ID, "error", err)

				continue
			}

			rows = append(rows, row)
		}
	}

	r.p.setState(StateDeduplicating)
	rows = analytics.Dedupe(rows)

	r.p.setState(StateAggregating)

	r.result.Forwards = rows
	r.result.Tables = append(r.result.Tables,
		models.NewTable(TableForwards, models.ForwardColumns, rows),
		analytics.ForwardCounts(analytics.ForwardOrigins(rows)),
	)
}

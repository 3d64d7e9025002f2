package pipeline

import (
	"context"

	"tgforge/internal/analytics"
	"tgforge/internal/crawler"
	"tgforge/internal/models"
	"tgforge/internal/normalizer"
)

// fetchedSource holds the transient raw items of one source until they are
// normalized.
type fetchedSource struct {
	replies map[int][]models.RawItem
	meta    normalizer.SourceMeta
	items   []models.RawItem
}

func (r *run) messages(ctx context.Context) {
	var fetched []fetchedSource

	r.eachSource(ctx, func(ctx context.Context, src models.Source, rep *models.SourceReport) {
		meta := normalizer.SourceMeta{Source: src}
		if info := r.describe(ctx, src); info != nil {
			meta.Subscribers = info.ParticipantsCount
		}

		out := r.pag.History(ctx, r.p.client, src, r.bounds, r.cancel)
		applyOutcome(r, rep, out)

		fs := fetchedSource{meta: meta, items: out.Items}
		if r.includeComments() && out.Stop != crawler.StopCancelled {
			fs.replies = r.replies(ctx, src, out.Items, rep)
		}

		fetched = append(fetched, fs)
		r.log.Info("Collected messages", "source", src.DisplayName(), "count", len(out.Items), "status", rep.Status)
	})

	r.p.setState(StateNormalizing)

	var rows []models.MessageRow

	for _, fs := range fetched {
		for _, item := range fs.items {
			row, err := r.p.processor.Message(item, fs.meta)
			if err != nil {
				r.log.Warn("Skipping item", "source", fs.meta.Source.Key, "id", item.ID, "error", err)

				continue
			}

			rows = append(rows, row)

			for _, reply := range fs.replies[item.ID] {
				replyRow, err := r.p.processor.Reply(reply, item, fs.meta)
				if err != nil {
					r.log.Warn("Skipping reply", "source", fs.meta.Source.Key, "parent", item.ID, "error", err)

					continue
				}

				rows = append(rows, replyRow)
			}
		}
	}

	r.p.setState(StateDeduplicating)
	rows = analytics.Dedupe(rows)

	r.p.setState(StateAggregating)

	cfg := r.p.cfg.Analytics
	tr := r.p.processor.Transformer()

	r.result.Messages = rows
	r.result.Tables = append(r.result.Tables,
		models.NewTable(TableMessages, models.MessageColumns, rows),
		analytics.TopHashtags(rows, cfg.TopN),
		analytics.TopURLs(rows, tr, cfg.TopN),
		analytics.TopDomains(rows, tr, cfg.TopN),
		analytics.ForwardCounts(analytics.MessageOrigins(rows)),
	)
	r.result.Tables = append(r.result.Tables,
		analytics.VolumeTables(rows, r.bounds.Since, r.bounds.Until, cfg.WeekStartDay(), r.sourceNames())...)
	r.result.Tables = append(r.result.Tables, analytics.TopViewed(rows, cfg.TopN))
}

// replies fetches the comment threads of items that have any. A failing
// thread is logged and skipped.
func (r *run) replies(ctx context.Context, src models.Source, items []models.RawItem, rep *models.SourceReport) map[int][]models.RawItem {
	threads := make(map[int][]models.RawItem)
	limit := r.p.cfg.Fetch.ReplyLimit

	if limit == 0 {
		return threads
	}

	for _, item := range items {
		if item.Replies == nil || *item.Replies == 0 {
			continue
		}

		if r.cancel.Cancelled() || ctx.Err() != nil {
			rep.Status = models.StatusCancelled
			r.log.Info("Canceled by user", "source", src.DisplayName())

			break
		}

		parentID := item.ID

		replies, err := crawler.Call(ctx, r.retrier, src.Key, "replies", func(ctx context.Context) ([]models.RawItem, error) {
			return r.p.client.Replies(ctx, src, parentID, limit)
		})
		if err != nil {
			r.log.Warn("Error fetching replies", "source", src.Key, "message_id", parentID, "error", err)

			continue
		}

		threads[parentID] = replies
		rep.Items += len(replies)
	}

	return threads
}

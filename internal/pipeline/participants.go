package pipeline

import (
	"context"

	"tgforge/internal/analytics"
	"tgforge/internal/config"
	"tgforge/internal/models"
)

type memberSet struct {
	reported *int
	group    string
	users    []models.User
}

func (r *run) participants(ctx context.Context) {
	var sets []memberSet

	method := r.participantMethod()

	r.eachSource(ctx, func(ctx context.Context, src models.Source, rep *models.SourceReport) {
		set := memberSet{group: src.DisplayName()}
		if info := r.describe(ctx, src); info != nil {
			set.reported = info.ParticipantsCount
		}

		if method == config.ParticipantMethodMessages {
			out := r.pag.History(ctx, r.p.client, src, r.bounds, r.cancel)
			applyOutcome(r, rep, out)
			set.users = senders(out.Items)
		} else {
			out := r.pag.Members(ctx, r.p.client, src, r.p.cfg.Fetch.MemberPageSize, r.cancel)
			applyOutcome(r, rep, out)
			set.users = uniqueUsers(out.Items)
		}

		sets = append(sets, set)
		r.log.Info("Collected participants", "source", src.DisplayName(), "count", len(set.users), "method", method)
	})

	r.p.setState(StateNormalizing)

	var (
		rows   []models.ParticipantRow
		groups []string
		counts []analytics.GroupCount
	)

	for _, set := range sets {
		groups = append(groups, set.group)
		counts = append(counts, analytics.GroupCount{Group: set.group, Reported: set.reported, Collected: len(set.users)})

		for _, u := range set.users {
			rows = append(rows, models.ParticipantRow{Group: set.group, User: u})
		}
	}

	r.p.setState(StateDeduplicating)
	r.p.setState(StateAggregating)

	aggregated, multi := analytics.ParticipantTables(rows, groups)

	r.result.Participants = rows
	r.result.Tables = append(r.result.Tables,
		models.NewTable(TableParticipants, models.ParticipantColumns, rows),
		aggregated,
		multi,
		analytics.CountsTable(counts),
	)
}

// senders collects the distinct authors of items, in first-seen order.
func senders(items []models.RawItem) []models.User {
	var users []models.User

	for _, item := range items {
		if item.Sender != nil {
			users = append(users, *item.Sender)
		}
	}

	return uniqueUsers(users)
}

func uniqueUsers(users []models.User) []models.User {
	seen := make(map[int64]struct{}, len(users))
	out := make([]models.User, 0, len(users))

	for _, u := range users {
		if _, ok := seen[u.ID]; ok {
			continue
		}

		seen[u.ID] = struct{}{}
		out = append(out, u)
	}

	return out
}


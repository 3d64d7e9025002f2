package analytics

import (
	"cmp"
	"slices"
	"strings"

	"tgforge/internal/models"
)

// GroupCount compares the member count a group reports with what was collected.
type GroupCount struct {
	Reported  *int
	Group     string
	Collected int
}

// Values renders the row for the counts table.
func (g GroupCount) Values() []any {
	var reported any = models.NotAvailable
	if g.Reported != nil {
		reported = *g.Reported
	}

	return []any{g.Group, reported, g.Collected}
}

// ParticipantTables aggregates raw participant rows by user. Groups lists the
// group names in run order; each becomes a 0/1 membership column.
//
// It returns the aggregated table and the subset of users seen in at least
// two groups.
func ParticipantTables(rows []models.ParticipantRow, groups []string) (models.Table, models.Table) {
	type entry struct {
		user   models.User
		groups map[string]bool
	}

	byUser := make(map[int64]*entry)

	for _, r := range rows {
		e, ok := byUser[r.User.ID]
		if !ok {
			e = &entry{user: r.User, groups: make(map[string]bool)}
			byUser[r.User.ID] = e
		}

		e.groups[r.Group] = true
	}

	ids := make([]int64, 0, len(byUser))
	for id := range byUser {
		ids = append(ids, id)
	}

	slices.SortFunc(ids, cmp.Compare[int64])

	columns := []string{"User ID", "Username", "First Name", "Last Name", "Status"}
	columns = append(columns, groups...)
	columns = append(columns, "Group Count", "Groups")

	aggregated := models.Table{Name: "Aggregated Participants", Columns: columns, Rows: make([][]any, 0, len(ids))}
	multi := models.Table{
		Name:    "Multi-Chat Participants",
		Columns: []string{"User ID", "Username", "Group Count", "Groups"},
		Rows:    [][]any{},
	}

	for _, id := range ids {
		e := byUser[id]
		u := e.user

		username := u.Username
		if username == "" {
			username = models.NoUsername
		}

		row := []any{u.ID, username, u.FirstName, u.LastName, u.Status}

		var member []string

		for _, g := range groups {
			flag := 0
			if e.groups[g] {
				flag = 1
				member = append(member, g)
			}

			row = append(row, flag)
		}

		joined := strings.Join(member, ", ")
		row = append(row, len(member), joined)
		aggregated.Rows = append(aggregated.Rows, row)

		if len(member) >= 2 {
			multi.Rows = append(multi.Rows, []any{u.ID, username, len(member), joined})
		}
	}

	return aggregated, multi
}

// CountsTable renders reported versus collected member counts.
func CountsTable(counts []GroupCount) models.Table {
	return models.NewTable("Participant Counts", []string{"Group", "Reported", "Collected"}, counts)
}

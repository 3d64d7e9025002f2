package pipeline

import (
	"time"

	"tgforge/internal/crawler"
	"tgforge/internal/models"
)

// Run outcomes.
const (
	OutcomeOK        = "ok"
	OutcomePartial   = "partial"
	OutcomeCancelled = "cancelled"
	OutcomeFailed    = "failed"
)

// Table names shared by the runs.
const (
	TableMessages     = "Messages"
	TableForwards     = "Forwards"
	TableParticipants = "Participants"
)

// Result is the outcome of one run: per-source reports and the result tables.
// The typed rows back the tables and are not serialized.
type Result struct {
	Started      time.Time               `json:"started"`
	Finished     time.Time               `json:"finished"`
	RunID        string                  `json:"runId"`
	Kind         Kind                    `json:"kind"`
	Request      Request                 `json:"request"`
	Reports      []models.SourceReport   `json:"reports"`
	Tables       []models.Table          `json:"tables"`
	Messages     []models.MessageRow     `json:"-"`
	Forwards     []models.ForwardRow     `json:"-"`
	Participants []models.ParticipantRow `json:"-"`
	Stats        crawler.LedgerStats     `json:"stats"`
	Cancelled    bool                    `json:"cancelled"`
}

// Table returns the named table.
func (r *Result) Table(name string) (models.Table, bool) {
	for _, t := range r.Tables {
		if t.Name == name {
			return t, true
		}
	}

	return models.Table{}, false
}

// TableNames lists the tables in result order.
func (r *Result) TableNames() []string {
	names := make([]string, 0, len(r.Tables))
	for _, t := range r.Tables {
		names = append(names, t.Name)
	}

	return names
}

// RowCount returns the number of rows in the primary table.
func (r *Result) RowCount() int {
	if len(r.Tables) == 0 {
		return 0
	}

	return r.Tables[0].Len()
}

// Outcome summarizes the run for metrics and status lines.
func (r *Result) Outcome() string {
	failed := 0

	for _, rep := range r.Reports {
		if rep.Failed() {
			failed++
		}
	}

	switch {
	case r.Cancelled:
		return OutcomeCancelled
	case len(r.Reports) > 0 && failed == len(r.Reports):
		return OutcomeFailed
	case failed > 0:
		return OutcomePartial
	default:
		return OutcomeOK
	}
}

// Failures returns the reports of sources that ended with an error.
func (r *Result) Failures() []models.SourceReport {
	var out []models.SourceReport

	for _, rep := range r.Reports {
		if rep.Failed() {
			out = append(out, rep)
		}
	}

	return out
}

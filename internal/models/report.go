package models

import "time"

// SourceStatus is the terminal state of one source within a run.
type SourceStatus string

// Source statuses.
const (
	StatusExhausted    SourceStatus = "exhausted"
	StatusDateBoundary SourceStatus = "date_boundary_reached"
	StatusCancelled    SourceStatus = "cancelled"
	StatusFailed       SourceStatus = "failed"
	StatusNotFound     SourceStatus = "not_found"
	StatusSkipped      SourceStatus = "skipped"
)

// SourceReport summarizes the fetch of one source.
type SourceReport struct {
	Started  time.Time    `json:"started"`
	Finished time.Time    `json:"finished"`
	Key      string       `json:"key"`
	Name     string       `json:"name"`
	Status   SourceStatus `json:"status"`
	Error    string       `json:"error,omitempty"`
	Pages    int          `json:"pages"`
	Items    int          `json:"items"`
}

// Failed reports whether the source ended with an error.
func (r SourceReport) Failed() bool {
	return r.Status == StatusFailed || r.Status == StatusNotFound
}

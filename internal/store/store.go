// Package store keeps run records for the API server.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tgforge/internal/config"
	"tgforge/internal/pipeline"
)

// ErrNotFound is returned for unknown or expired run ids.
var ErrNotFound = errors.New("run not found")

// Status is the lifecycle position of a stored run.
type Status string

// Run statuses.
const (
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusError   Status = "error"
)

// Record is one run as seen by API clients.
type Record struct {
	Submitted time.Time        `json:"submitted"`
	Finished  time.Time        `json:"finished,omitzero"`
	Result    *pipeline.Result `json:"result,omitempty"`
	ID        string           `json:"id"`
	Kind      pipeline.Kind    `json:"kind"`
	Status    Status           `json:"status"`
	Outcome   string           `json:"outcome,omitempty"`
	Error     string           `json:"error,omitempty"`
	Request   pipeline.Request `json:"request"`
}

// Complete stores a finished result on the record.
func (r *Record) Complete(res *pipeline.Result, err error) {
	r.Finished = time.Now().UTC()

	if err != nil {
		r.Status = StatusError
		r.Error = err.Error()

		return
	}

	r.Status = StatusDone
	r.Result = res
	r.Outcome = res.Outcome()
}

// Store persists run records.
type Store interface {
	Save(ctx context.Context, rec *Record) error
	Get(ctx context.Context, id string) (*Record, error)
	List(ctx context.Context) ([]*Record, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

// Open returns the store selected by the server configuration.
func Open(ctx context.Context, cfg config.ServerConfig) (Store, error) {
	switch cfg.Store {
	case "redis":
		return NewRedis(ctx, cfg.RedisURL, cfg.ResultTTL())
	case "memory", "":
		return NewMemory(cfg.ResultTTL()), nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrInvalidStore, cfg.Store)
	}
}

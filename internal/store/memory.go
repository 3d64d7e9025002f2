package store

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"
)

type entry struct {
	expires time.Time
	rec     Record
}

// Memory is a process-local store. Records expire ttl after their last save;
// a zero ttl keeps them forever.
type Memory struct {
	now     func() time.Time
	records map[string]entry
	ttl     time.Duration
	mu      sync.RWMutex
}

// NewMemory creates an empty in-memory store.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		now:     time.Now,
		records: make(map[string]entry),
		ttl:     ttl,
	}
}

// Save stores a copy of rec.
func (m *Memory) Save(_ context.Context, rec *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := entry{rec: *rec}
	if m.ttl > 0 {
		e.expires = m.now().Add(m.ttl)
	}

	m.records[rec.ID] = e

	return nil
}

// Get returns a copy of the record with the given id.
func (m *Memory) Get(_ context.Context, id string) (*Record, error) {
	m.mu.RLock()
	e, ok := m.records[id]
	m.mu.RUnlock()

	if !ok || m.expired(e) {
		return nil, ErrNotFound
	}

	rec := e.rec

	return &rec, nil
}

// List returns every live record, newest first. Expired records are dropped.
func (m *Memory) List(_ context.Context) ([]*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*Record, 0, len(m.records))

	for id, e := range m.records {
		if m.expired(e) {
			delete(m.records, id)

			continue
		}

		rec := e.rec
		out = append(out, &rec)
	}

	sortNewest(out)

	return out, nil
}

// Delete removes a record.
func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[id]; !ok {
		return ErrNotFound
	}

	delete(m.records, id)

	return nil
}

// Close is a no-op.
func (m *Memory) Close() error {
	return nil
}

func (m *Memory) expired(e entry) bool {
	return !e.expires.IsZero() && !m.now().Before(e.expires)
}

func sortNewest(recs []*Record) {
	slices.SortFunc(recs, func(a, b *Record) int {
		if c := b.Submitted.Compare(a.Submitted); c != 0 {
			return c
		}

		return cmp.Compare(a.ID, b.ID)
	})
}

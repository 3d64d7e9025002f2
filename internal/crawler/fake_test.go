package crawler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"tgforge/internal/config"
	"tgforge/internal/logger"
	"tgforge/internal/models"
)

// MockSource serves canned history pages, newest first, for each source key.
type MockSource struct {
	items    map[string][]models.RawItem
	members  map[string][]models.User
	failures map[string][]error
	calls    []string
	mu       sync.Mutex
}

func NewMockSource() *MockSource {
	return &MockSource{
		items:    make(map[string][]models.RawItem),
		members:  make(map[string][]models.User),
		failures: make(map[string][]error),
	}
}

// AddItems registers items for a source; they are served sorted by id descending.
func (m *MockSource) AddItems(key string, items ...models.RawItem) {
	m.items[key] = append(m.items[key], items...)
	sort.Slice(m.items[key], func(i, j int) bool {
		return m.items[key][i].ID > m.items[key][j].ID
	})
}

// FailNext queues errors returned by the next calls for key, in order.
func (m *MockSource) FailNext(key string, errs ...error) {
	m.failures[key] = append(m.failures[key], errs...)
}

func (m *MockSource) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]string(nil), m.calls...)
}

func (m *MockSource) record(call, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, call+":"+key)

	if queued := m.failures[key]; len(queued) > 0 {
		m.failures[key] = queued[1:]

		return queued[0]
	}

	return nil
}

func (m *MockSource) Resolve(_ context.Context, name string) (models.Source, error) {
	if err := m.record("resolve", name); err != nil {
		return models.Source{}, err
	}

	if _, ok := m.items[name]; !ok {
		if _, ok := m.members[name]; !ok {
			return models.Source{}, fmt.Errorf("%w: %s", ErrSourceNotFound, name)
		}
	}

	return models.Source{Key: name, Title: "Title " + name, Username: name, ID: int64(len(name))}, nil
}

func (m *MockSource) History(_ context.Context, src models.Source, cursor, limit int) ([]models.RawItem, error) {
	if err := m.record("history", src.Key); err != nil {
		return nil, err
	}

	var page []models.RawItem

	for _, item := range m.items[src.Key] {
		if cursor != 0 && item.ID >= cursor {
			continue
		}

		page = append(page, item)
		if len(page) == limit {
			break
		}
	}

	return page, nil
}

func (m *MockSource) Members(_ context.Context, src models.Source, offset, limit int) ([]models.User, error) {
	if err := m.record("members", src.Key); err != nil {
		return nil, err
	}

	all := m.members[src.Key]
	if offset >= len(all) {
		return nil, nil
	}

	end := min(offset+limit, len(all))

	return all[offset:end], nil
}

func item(id int, date string) models.RawItem {
	return models.RawItem{ID: id, Date: mustDate(date), Text: fmt.Sprintf("item %d", id)}
}

func mustDate(s string) time.Time {
	t, err := time.Parse(time.DateTime, s)
	if err != nil {
		panic(err)
	}

	return t
}

type recordingSleeper struct {
	waits []time.Duration
}

func (r *recordingSleeper) Sleep(_ context.Context, d time.Duration) error {
	r.waits = append(r.waits, d)

	return nil
}

func testPaginator(pageSize int) (*Paginator, *recordingSleeper) {
	return testPaginatorWith(pageSize, NewLimiter(0))
}

func testPaginatorWith(pageSize int, limiter Waiter) (*Paginator, *recordingSleeper) {
	policy := config.Default().Retry
	sleeper := &recordingSleeper{}
	retrier := NewRetrier(&policy, NewLedger(), logger.Discard()).WithSleep(sleeper.Sleep)

	return NewPaginator("messages", pageSize, retrier, limiter, logger.Discard()), sleeper
}

// pacer wraps a waiter and records, for each wait, how many page requests
// the source had already served and when the wait returned.
type pacer struct {
	next  Waiter
	src   *MockSource
	calls []int
	times []time.Time
}

func (p *pacer) Wait(ctx context.Context) error {
	p.calls = append(p.calls, len(p.src.Calls()))

	if err := p.next.Wait(ctx); err != nil {
		return err
	}

	p.times = append(p.times, time.Now())

	return nil
}

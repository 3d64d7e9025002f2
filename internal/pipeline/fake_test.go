package pipeline

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"tgforge/internal/config"
	"tgforge/internal/crawler"
	"tgforge/internal/logger"
	"tgforge/internal/models"
)

// fakeClient serves canned pages for each source key.
type fakeClient struct {
	items     map[string][]models.RawItem
	replies   map[string]map[int][]models.RawItem
	members   map[string][]models.User
	info      map[string]models.ChannelInfo
	failures  map[string][]error
	onHistory func(key string, cursor int)
	calls     []string
	mu        sync.Mutex
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		items:    make(map[string][]models.RawItem),
		replies:  make(map[string]map[int][]models.RawItem),
		members:  make(map[string][]models.User),
		info:     make(map[string]models.ChannelInfo),
		failures: make(map[string][]error),
	}
}

func (f *fakeClient) addItems(key string, items ...models.RawItem) {
	f.items[key] = append(f.items[key], items...)
	sort.Slice(f.items[key], func(i, j int) bool {
		return f.items[key][i].ID > f.items[key][j].ID
	})
}

func (f *fakeClient) addReplies(key string, parent int, items ...models.RawItem) {
	if f.replies[key] == nil {
		f.replies[key] = make(map[int][]models.RawItem)
	}

	f.replies[key][parent] = append(f.replies[key][parent], items...)
}

// failNext queues errors returned by the next paging calls for key.
func (f *fakeClient) failNext(key string, errs ...error) {
	f.failures[key] = append(f.failures[key], errs...)
}

func (f *fakeClient) record(call, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, call+":"+key)

	if queued := f.failures[key]; len(queued) > 0 && call != "resolve" && call != "describe" {
		f.failures[key] = queued[1:]

		return queued[0]
	}

	return nil
}

func (f *fakeClient) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.calls...)
}

func (f *fakeClient) Resolve(_ context.Context, name string) (models.Source, error) {
	_ = f.record("resolve", name)

	_, hasItems := f.items[name]
	_, hasMembers := f.members[name]

	if !hasItems && !hasMembers {
		return models.Source{}, fmt.Errorf("%w: %s", crawler.ErrSourceNotFound, name)
	}

	return models.Source{Key: name, Title: "Title " + name, Username: name, ID: int64(len(name)), Kind: models.SourceChannel}, nil
}

func (f *fakeClient) History(_ context.Context, src models.Source, cursor, limit int) ([]models.RawItem, error) {
	if f.onHistory != nil {
		f.onHistory(src.Key, cursor)
	}

	if err := f.record("history", src.Key); err != nil {
		return nil, err
	}

	var page []models.RawItem

	for _, item := range f.items[src.Key] {
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

func (f *fakeClient) Replies(_ context.Context, src models.Source, parentID, limit int) ([]models.RawItem, error) {
	if err := f.record("replies", src.Key); err != nil {
		return nil, err
	}

	replies := f.replies[src.Key][parentID]
	if len(replies) > limit {
		replies = replies[:limit]
	}

	return replies, nil
}

func (f *fakeClient) Members(_ context.Context, src models.Source, offset, limit int) ([]models.User, error) {
	if err := f.record("members", src.Key); err != nil {
		return nil, err
	}

	all := f.members[src.Key]
	if offset >= len(all) {
		return nil, nil
	}

	end := min(offset+limit, len(all))

	return all[offset:end], nil
}

func (f *fakeClient) Describe(_ context.Context, src models.Source) (models.ChannelInfo, error) {
	_ = f.record("describe", src.Key)

	info, ok := f.info[src.Key]
	if !ok {
		return models.ChannelInfo{}, &crawler.TransportError{Op: "describe", Err: fmt.Errorf("no info for %s", src.Key)}
	}

	return info, nil
}

// msg builds a raw item posted at "YYYY-MM-DD HH:MM:SS" UTC.
func msg(id int, at string) models.RawItem {
	ts, err := time.ParseInLocation(models.DateTimeLayout, at, time.UTC)
	if err != nil {
		panic(err)
	}

	return models.RawItem{ID: id, Date: ts, Text: fmt.Sprintf("message %d", id)}
}

func date(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}

	return t
}

func intPtr(v int) *int { return &v }

type sleepRecorder struct {
	waits []time.Duration
	mu    sync.Mutex
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.waits = append(s.waits, d)

	return nil
}

func testConfig(pageSize int) *config.Config {
	cfg := config.Default()
	cfg.Fetch.PageSize = pageSize
	cfg.Fetch.PageDelayMs = 0

	return cfg
}

func testPipeline(client crawler.Client, pageSize int, opts ...Option) (*Pipeline, *sleepRecorder) {
	rec := &sleepRecorder{}
	opts = append([]Option{WithSleep(rec.sleep), WithLimiter(crawler.NewLimiter(0))}, opts...)

	return New(client, testConfig(pageSize), logger.Discard(), opts...), rec
}

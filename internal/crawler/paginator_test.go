package crawler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tgforge/internal/models"
)

func ids(items []models.RawItem) []int {
	out := make([]int, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}

	return out
}

func fiveDays(m *MockSource) {
	m.AddItems("chan",
		item(1, "2024-03-01 08:00:00"),
		item(2, "2024-03-02 09:00:00"),
		item(3, "2024-03-03 10:00:00"),
		item(4, "2024-03-04 11:00:00"),
		item(5, "2024-03-05 12:00:00"),
	)
}

func TestPaginator_ExhaustsOnEmptyPage(t *testing.T) {
	src := NewMockSource()
	fiveDays(src)

	p, _ := testPaginator(2)
	out := p.History(context.Background(), src, models.Source{Key: "chan"}, Bounds{}, nil)

	require.NoError(t, out.Err)
	assert.Equal(t, StopExhausted, out.Stop)
	assert.Equal(t, []int{5, 4, 3, 2, 1}, ids(out.Items))
	// three full or partial pages plus the terminating empty one
	assert.Equal(t, 4, out.Pages)
}

func TestPaginator_LowerBoundStopsScanning(t *testing.T) {
	src := NewMockSource()
	fiveDays(src)

	bounds, err := NewBounds(mustDate("2024-03-03 23:00:00"), time.Time{})
	require.NoError(t, err)

	p, _ := testPaginator(2)
	out := p.History(context.Background(), src, models.Source{Key: "chan"}, bounds, nil)

	assert.Equal(t, StopDateBoundary, out.Stop)
	assert.Equal(t, []int{5, 4, 3}, ids(out.Items))
	// the page holding item 2 is the last one requested
	assert.Equal(t, 2, out.Pages)
	assert.Len(t, src.Calls(), 2)
}

func TestPaginator_UpperBoundFiltersButDoesNotStop(t *testing.T) {
	src := NewMockSource()
	fiveDays(src)

	bounds, err := NewBounds(time.Time{}, mustDate("2024-03-02 00:00:00"))
	require.NoError(t, err)

	p, _ := testPaginator(2)
	out := p.History(context.Background(), src, models.Source{Key: "chan"}, bounds, nil)

	assert.Equal(t, StopExhausted, out.Stop)
	assert.Equal(t, []int{2, 1}, ids(out.Items))
	// items newer than the upper bound are skipped, paging continues to the end
	assert.Equal(t, 4, out.Pages)
}

func TestPaginator_UndatedItemsExcludedWhenBounded(t *testing.T) {
	src := NewMockSource()
	src.AddItems("chan", item(3, "2024-03-03 10:00:00"), models.RawItem{ID: 2}, item(1, "2024-03-01 10:00:00"))

	p, _ := testPaginator(10)

	unbounded := p.History(context.Background(), src, models.Source{Key: "chan"}, Bounds{}, nil)
	assert.Equal(t, []int{3, 2, 1}, ids(unbounded.Items))

	bounds, _ := NewBounds(mustDate("2024-03-01 00:00:00"), time.Time{})
	bounded := p.History(context.Background(), src, models.Source{Key: "chan"}, bounds, nil)
	assert.Equal(t, []int{3, 1}, ids(bounded.Items))
}

func TestPaginator_CancelObservedOncePerPage(t *testing.T) {
	src := NewMockSource()
	fiveDays(src)

	cancel := NewCancelToken()
	p, _ := testPaginator(2)

	wrapped := &cancelAfterFirstPage{MockSource: src, token: cancel}
	out := p.History(context.Background(), wrapped, models.Source{Key: "chan"}, Bounds{}, cancel)

	assert.Equal(t, StopCancelled, out.Stop)
	assert.NoError(t, out.Err)
	assert.Equal(t, []int{5, 4}, ids(out.Items))
	assert.Equal(t, 1, out.Pages)
}

type cancelAfterFirstPage struct {
	*MockSource
	token *CancelToken
}

func (c *cancelAfterFirstPage) History(ctx context.Context, src models.Source, cursor, limit int) ([]models.RawItem, error) {
	page, err := c.MockSource.History(ctx, src, cursor, limit)
	c.token.Cancel()

	return page, err
}

func TestPaginator_RetriesRateLimit(t *testing.T) {
	src := NewMockSource()
	fiveDays(src)
	src.FailNext("chan", &RateLimitError{Wait: 3 * time.Second}, &RateLimitError{Wait: 2 * time.Second})

	p, sleeper := testPaginator(10)
	out := p.History(context.Background(), src, models.Source{Key: "chan"}, Bounds{}, nil)

	require.NoError(t, out.Err)
	assert.Len(t, out.Items, 5)
	assert.Equal(t, []time.Duration{4 * time.Second, 3 * time.Second}, sleeper.waits)

	stats := p.Retrier().Ledger().Stats()
	assert.Equal(t, 2, stats.RateLimited)
}

func TestPaginator_RateLimitCeiling(t *testing.T) {
	src := NewMockSource()
	fiveDays(src)

	for range 5 {
		src.FailNext("chan", &RateLimitError{Wait: time.Second})
	}

	p, sleeper := testPaginator(10)
	out := p.History(context.Background(), src, models.Source{Key: "chan"}, Bounds{}, nil)

	assert.Equal(t, StopFailed, out.Stop)
	assert.ErrorIs(t, out.Err, ErrRetriesExhausted)
	assert.Empty(t, out.Items)
	assert.Len(t, sleeper.waits, 4)
}

func TestPaginator_TransportErrorKeepsCollected(t *testing.T) {
	src := NewMockSource()
	fiveDays(src)

	p, _ := testPaginator(2)
	failing := &failOnSecondPage{MockSource: src}
	out := p.History(context.Background(), failing, models.Source{Key: "chan"}, Bounds{}, nil)

	assert.Equal(t, StopFailed, out.Stop)
	var te *TransportError
	assert.True(t, errors.As(out.Err, &te))
	assert.Equal(t, []int{5, 4}, ids(out.Items))
	assert.Equal(t, "transport", Reason(out.Err))
}

type failOnSecondPage struct {
	*MockSource
	calls int
}

func (f *failOnSecondPage) History(ctx context.Context, src models.Source, cursor, limit int) ([]models.RawItem, error) {
	f.calls++
	if f.calls == 2 {
		return nil, &TransportError{Op: "history", Err: errors.New("connection reset")}
	}

	return f.MockSource.History(ctx, src, cursor, limit)
}

func TestPaginator_StopsWhenCursorDoesNotMove(t *testing.T) {
	p, _ := testPaginator(2)
	out := p.History(context.Background(), stuckSource{}, models.Source{Key: "stuck"}, Bounds{}, nil)

	assert.Equal(t, StopExhausted, out.Stop)
	assert.Equal(t, 2, out.Pages)
}

type stuckSource struct{ *MockSource }

func (stuckSource) History(context.Context, models.Source, int, int) ([]models.RawItem, error) {
	return []models.RawItem{item(9, "2024-03-05 00:00:00")}, nil
}

func TestPaginator_Resolve(t *testing.T) {
	src := NewMockSource()
	fiveDays(src)

	p, _ := testPaginator(2)

	got, err := p.Resolve(context.Background(), src, "chan")
	require.NoError(t, err)
	assert.Equal(t, "Title chan", got.DisplayName())

	_, err = p.Resolve(context.Background(), src, "missing")
	assert.ErrorIs(t, err, ErrSourceNotFound)
	assert.Equal(t, "not_found", Reason(err))
}

func TestPaginator_Members(t *testing.T) {
	src := NewMockSource()
	for i := 1; i <= 5; i++ {
		src.members["group"] = append(src.members["group"], models.User{ID: int64(i)})
	}

	p, _ := testPaginator(2)
	out := p.Members(context.Background(), src, models.Source{Key: "group"}, 2, nil)

	assert.Equal(t, StopExhausted, out.Stop)
	assert.Len(t, out.Items, 5)
	assert.Equal(t, 4, out.Pages)
}

func TestPaginator_ContextCancelledIsPartial(t *testing.T) {
	src := NewMockSource()
	fiveDays(src)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p, _ := testPaginator(2)
	out := p.History(ctx, src, models.Source{Key: "chan"}, Bounds{}, nil)

	assert.Equal(t, StopCancelled, out.Stop)
	assert.NoError(t, out.Err)
}

func TestPaginator_WaitsBeforeEveryPage(t *testing.T) {
	src := NewMockSource()
	fiveDays(src)

	w := &pacer{next: NewLimiter(0), src: src}
	p, _ := testPaginatorWith(2, w)
	out := p.History(context.Background(), src, models.Source{Key: "chan"}, Bounds{}, nil)

	require.NoError(t, out.Err)
	assert.Equal(t, 4, out.Pages)
	// one wait per page, each taken before that page was requested
	assert.Equal(t, []int{0, 1, 2, 3}, w.calls)
}

func TestPaginator_PageDelaySpacesRequests(t *testing.T) {
	const delay = 30 * time.Millisecond

	src := NewMockSource()
	fiveDays(src)

	w := &pacer{next: NewLimiter(delay), src: src}
	p, _ := testPaginatorWith(2, w)

	start := time.Now()
	out := p.History(context.Background(), src, models.Source{Key: "chan"}, Bounds{}, nil)
	elapsed := time.Since(start)

	require.NoError(t, out.Err)
	require.Len(t, w.times, out.Pages)

	// the first page goes out at once, every later one waits a full delay
	assert.GreaterOrEqual(t, elapsed, time.Duration(out.Pages-1)*delay-5*time.Millisecond)

	for i := 1; i < len(w.times); i++ {
		assert.GreaterOrEqual(t, w.times[i].Sub(w.times[i-1]), delay-5*time.Millisecond, "gap before page %d", i+1)
	}
}

func TestPaginator_WaitErrorIsPartial(t *testing.T) {
	src := NewMockSource()
	fiveDays(src)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// a long delay with the context cancelled while the second page waits
	limiter := NewLimiter(time.Hour)
	w := &pacer{next: limiter, src: src}
	p, _ := testPaginatorWith(2, w)

	time.AfterFunc(20*time.Millisecond, cancel)

	out := p.History(ctx, src, models.Source{Key: "chan"}, Bounds{}, nil)

	assert.Equal(t, StopCancelled, out.Stop)
	assert.NoError(t, out.Err)
	assert.Equal(t, []int{5, 4}, ids(out.Items))
	assert.Equal(t, 1, out.Pages)
}

func TestBounds(t *testing.T) {
	_, err := NewBounds(mustDate("2024-03-05 00:00:00"), mustDate("2024-03-01 00:00:00"))
	assert.ErrorIs(t, err, ErrInvalidRange)

	b, err := NewBounds(mustDate("2024-03-01 18:00:00"), mustDate("2024-03-03 01:00:00"))
	require.NoError(t, err)

	assert.True(t, b.Contains(mustDate("2024-03-01 00:00:01")))
	assert.True(t, b.Contains(mustDate("2024-03-03 23:59:59")))
	assert.False(t, b.Contains(mustDate("2024-02-29 23:59:59")))
	assert.False(t, b.Contains(mustDate("2024-03-04 00:00:00")))
	assert.Equal(t, "2024-03-01 to 2024-03-03", b.String())
	assert.False(t, Bounds{}.IsSet())
}

func TestCancelToken(t *testing.T) {
	var nilToken *CancelToken
	assert.False(t, nilToken.Cancelled())
	nilToken.Cancel()

	tok := NewCancelToken()
	assert.False(t, tok.Cancelled())
	tok.Cancel()
	assert.True(t, tok.Cancelled())
	tok.Reset()
	assert.False(t, tok.Cancelled())
}

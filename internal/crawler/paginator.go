package crawler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"tgforge/internal/logger"
	"tgforge/internal/metrics"
	"tgforge/internal/models"
)

// ErrInvalidRange is returned when the lower date bound is after the upper one.
var ErrInvalidRange = errors.New("start date is after end date")

// StopReason tells why paging of one source ended.
type StopReason string

// Stop reasons.
const (
	StopExhausted    StopReason = "exhausted"
	StopDateBoundary StopReason = "date_boundary_reached"
	StopCancelled    StopReason = "cancelled"
	StopFailed       StopReason = "failed"
)

// Bounds is an inclusive calendar date range. Either end may be zero.
//
// Since stops paging at the first older item. Until only filters, because
// pages arrive newest first and newer items merely need skipping.
type Bounds struct {
	Since time.Time
	Until time.Time
}

// NewBounds truncates both ends to their UTC date.
func NewBounds(since, until time.Time) (Bounds, error) {
	b := Bounds{Since: day(since), Until: day(until)}
	if !b.Since.IsZero() && !b.Until.IsZero() && b.Since.After(b.Until) {
		return Bounds{}, fmt.Errorf("%w: %s > %s", ErrInvalidRange,
			b.Since.Format(time.DateOnly), b.Until.Format(time.DateOnly))
	}

	return b, nil
}

// IsSet reports whether any bound is configured.
func (b Bounds) IsSet() bool {
	return !b.Since.IsZero() || !b.Until.IsZero()
}

// Contains reports whether t's date lies within the bounds.
func (b Bounds) Contains(t time.Time) bool {
	d := day(t)
	if !b.Since.IsZero() && d.Before(b.Since) {
		return false
	}

	return b.Until.IsZero() || !d.After(b.Until)
}

// String formats the range the way progress lines show it.
func (b Bounds) String() string {
	format := func(t time.Time, open string) string {
		if t.IsZero() {
			return open
		}

		return t.Format(time.DateOnly)
	}

	return format(b.Since, "the beginning") + " to " + format(b.Until, "now")
}

// classify decides whether an item is kept and whether paging must stop.
func (b Bounds) classify(item models.RawItem) (keep, stop bool) {
	if !b.IsSet() {
		return true, false
	}

	if !item.HasDate() {
		return false, false
	}

	d := day(item.Date)
	if !b.Since.IsZero() && d.Before(b.Since) {
		return false, true
	}

	if !b.Until.IsZero() && d.After(b.Until) {
		return false, false
	}

	return true, false
}

func day(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}

	t = t.UTC()

	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Outcome is what paging one source produced. Items collected before a
// failure are kept.
type Outcome[T any] struct {
	Err   error
	Stop  StopReason
	Items []T
	Pages int
}

// Waiter paces page requests. *rate.Limiter satisfies it.
type Waiter interface {
	Wait(ctx context.Context) error
}

// NewLimiter returns a limiter allowing one page request per delay.
func NewLimiter(delay time.Duration) *rate.Limiter {
	if delay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}

	return rate.NewLimiter(rate.Every(delay), 1)
}

// Paginator drives page requests for one source at a time.
type Paginator struct {
	retrier  *Retrier
	limiter  Waiter
	log      *logger.Logger
	kind     string
	pageSize int
}

// NewPaginator creates a paginator. The limiter is waited on before every
// page request and is shared by every source of a run, so the inter-page
// delay also applies across sources.
func NewPaginator(kind string, pageSize int, retrier *Retrier, limiter Waiter, log *logger.Logger) *Paginator {
	if limiter == nil {
		limiter = NewLimiter(0)
	}

	return &Paginator{
		retrier:  retrier,
		limiter:  limiter,
		log:      log,
		kind:     kind,
		pageSize: pageSize,
	}
}

// Retrier returns the retrier used for every request.
func (p *Paginator) Retrier() *Retrier {
	return p.retrier
}

// Resolve resolves a source name, retrying on rate limits.
func (p *Paginator) Resolve(ctx context.Context, r Resolver, name string) (models.Source, error) {
	return Call(ctx, p.retrier, name, "resolve", func(ctx context.Context) (models.Source, error) {
		return r.Resolve(ctx, name)
	})
}

// History pages src newest first until an empty page, the lower date bound,
// cancellation, or an error.
func (p *Paginator) History(ctx context.Context, ps PageSource, src models.Source, bounds Bounds, cancel *CancelToken) Outcome[models.RawItem] {
	p.log.Info(fmt.Sprintf("Processing %s from %s", p.kind, bounds), "source", src.DisplayName())

	return walk(ctx, p, src, cancel, pager[models.RawItem]{
		op: "history",
		fetch: func(ctx context.Context, cursor int) ([]models.RawItem, error) {
			return ps.History(ctx, src, cursor, p.pageSize)
		},
		advance: func(cursor int, page []models.RawItem) (int, bool) {
			last := page[len(page)-1].ID
			if last <= 0 || (cursor != 0 && last >= cursor) {
				return 0, false
			}

			return last, true
		},
		accept: bounds.classify,
	})
}

// Members pages the member list of src by offset.
func (p *Paginator) Members(ctx context.Context, ms MemberSource, src models.Source, pageSize int, cancel *CancelToken) Outcome[models.User] {
	if pageSize <= 0 {
		pageSize = p.pageSize
	}

	return walk(ctx, p, src, cancel, pager[models.User]{
		op: "members",
		fetch: func(ctx context.Context, offset int) ([]models.User, error) {
			return ms.Members(ctx, src, offset, pageSize)
		},
		advance: func(offset int, page []models.User) (int, bool) {
			return offset + len(page), true
		},
		accept: func(models.User) (bool, bool) { return true, false },
	})
}

type pager[T any] struct {
	fetch   func(ctx context.Context, cursor int) ([]T, error)
	advance func(cursor int, page []T) (int, bool)
	accept  func(item T) (keep, stop bool)
	op      string
}

func walk[T any](ctx context.Context, p *Paginator, src models.Source, cancel *CancelToken, pg pager[T]) Outcome[T] {
	log := p.log.With("source", src.DisplayName())
	out := Outcome[T]{Stop: StopExhausted}
	cursor := 0

	for {
		if cancel.Cancelled() {
			log.Info("Canceled by user", "collected", len(out.Items))
			out.Stop = StopCancelled

			return out
		}

		if err := p.limiter.Wait(ctx); err != nil {
			return fail(log, out, err)
		}

		page, err := Call(ctx, p.retrier, src.Key, pg.op, func(ctx context.Context) ([]T, error) {
			return pg.fetch(ctx, cursor)
		})
		if err != nil {
			return fail(log, out, err)
		}

		out.Pages++

		if len(page) == 0 {
			log.Debug("Empty page, source exhausted", "pages", out.Pages)

			return out
		}

		kept := 0

		for _, item := range page {
			keep, stop := pg.accept(item)
			if stop {
				metrics.RecordPage(p.kind, kept)
				log.Info(fmt.Sprintf("Reached %s older than the start date", p.kind), "collected", len(out.Items))
				out.Stop = StopDateBoundary

				return out
			}

			if keep {
				out.Items = append(out.Items, item)
				kept++
			}
		}

		metrics.RecordPage(p.kind, kept)
		log.Debug("Page fetched", "page", out.Pages, "cursor", cursor, "size", len(page), "kept", kept)

		next, ok := pg.advance(cursor, page)
		if !ok {
			log.Warn("Cursor did not move backward, stopping", "cursor", cursor)

			return out
		}

		cursor = next
	}
}

func fail[T any](log *logger.Logger, out Outcome[T], err error) Outcome[T] {
	if errors.Is(err, context.Canceled) {
		log.Info("Context canceled, keeping collected items", "collected", len(out.Items))
		out.Stop = StopCancelled

		return out
	}

	log.Error("Fetch failed, keeping collected items", "error", err, "collected", len(out.Items))
	out.Stop = StopFailed
	out.Err = err

	return out
}

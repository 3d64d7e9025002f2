// Package pipeline runs the bounded fetch, normalize, dedupe and aggregate
// flow over a list of sources.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"tgforge/internal/config"
	"tgforge/internal/crawler"
	"tgforge/internal/logger"
	"tgforge/internal/metrics"
	"tgforge/internal/models"
	"tgforge/internal/normalizer"
)

// Request errors.
var (
	ErrNoSources   = errors.New("at least one source is required")
	ErrUnknownKind = errors.New("unknown run kind")
	ErrBusy        = errors.New("a run is already in progress")
)

// Kind selects which fetch flow a run executes.
type Kind string

// Run kinds.
const (
	KindMessages     Kind = "messages"
	KindForwards     Kind = "forwards"
	KindParticipants Kind = "participants"
)

// ParseKind resolves a kind name.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindMessages, KindForwards, KindParticipants:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// State is the pipeline's position in a run.
type State string

// States.
const (
	StateIdle          State = "idle"
	StateFetching      State = "fetching"
	StateNormalizing   State = "normalizing"
	StateDeduplicating State = "deduplicating"
	StateAggregating   State = "aggregating"
	StateDone          State = "done"
)

// Request describes one run.
type Request struct {
	Since             time.Time `json:"since"`
	Until             time.Time `json:"until"`
	IncludeComments   *bool     `json:"includeComments,omitempty"`
	Kind              Kind      `json:"kind"`
	ParticipantMethod string    `json:"participantMethod,omitempty"`
	Sources           []string  `json:"sources"`
}

// Pipeline holds the collaborators and state of fetch runs. Runs are
// sequential: a pipeline executes at most one at a time.
type Pipeline struct {
	client    crawler.Client
	cfg       *config.Config
	log       *logger.Logger
	processor *normalizer.Processor
	limiter   *rate.Limiter
	sleep     crawler.SleepFunc
	tracer    trace.Tracer
	onState   func(State)
	state     State
	mu        sync.Mutex
	running   sync.Mutex
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithSleep replaces the rate-limit sleep, for tests.
func WithSleep(sleep crawler.SleepFunc) Option {
	return func(p *Pipeline) { p.sleep = sleep }
}

// WithLimiter replaces the inter-page limiter.
func WithLimiter(l *rate.Limiter) Option {
	return func(p *Pipeline) { p.limiter = l }
}

// WithStateHook registers a callback invoked on every state change.
func WithStateHook(fn func(State)) Option {
	return func(p *Pipeline) { p.onState = fn }
}

// New creates a pipeline bound to a platform client.
func New(client crawler.Client, cfg *config.Config, log *logger.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		client:    client,
		cfg:       cfg,
		log:       log,
		processor: normalizer.NewProcessor(),
		limiter:   crawler.NewLimiter(cfg.Fetch.PageDelay()),
		sleep:     crawler.Sleep,
		tracer:    otel.Tracer("tgforge/pipeline"),
		state:     StateIdle,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// State returns the current state.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.state
}

func (p *Pipeline) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()

	if p.onState != nil {
		p.onState(s)
	}
}

// Validate checks a request before any network activity.
func (p *Pipeline) Validate(req Request) (crawler.Bounds, error) {
	if _, err := ParseKind(string(req.Kind)); err != nil {
		return crawler.Bounds{}, err
	}

	if len(req.Sources) == 0 {
		return crawler.Bounds{}, ErrNoSources
	}

	if m := req.ParticipantMethod; m != "" && m != config.ParticipantMethodDefault && m != config.ParticipantMethodMessages {
		return crawler.Bounds{}, fmt.Errorf("%w: %q", config.ErrInvalidParticipantMethod, m)
	}

	return crawler.NewBounds(req.Since, req.Until)
}

// Run executes one run under a fresh run id. Per-source failures are
// reported in the result; the error is only non-nil for invalid requests or
// when another run is active. Setting cancel stops the current source after
// its current page and skips the rest, yielding a partial result.
func (p *Pipeline) Run(ctx context.Context, req Request, cancel *crawler.CancelToken) (*Result, error) {
	return p.RunWithID(ctx, uuid.NewString(), req, cancel)
}

// RunWithID is Run with a caller supplied run id.
func (p *Pipeline) RunWithID(ctx context.Context, id string, req Request, cancel *crawler.CancelToken) (*Result, error) {
	bounds, err := p.Validate(req)
	if err != nil {
		return nil, err
	}

	if !p.running.TryLock() {
		return nil, ErrBusy
	}
	defer p.running.Unlock()

	return p.execute(ctx, req, bounds, cancel, id), nil
}

func (p *Pipeline) execute(ctx context.Context, req Request, bounds crawler.Bounds, cancel *crawler.CancelToken, id string) *Result {
	start := time.Now()

	metrics.ActiveRuns.Inc()
	defer metrics.ActiveRuns.Dec()

	ctx, span := p.tracer.Start(ctx, "pipeline.run", trace.WithAttributes(
		attribute.String("run.id", id),
		attribute.String("run.kind", string(req.Kind)),
		attribute.Int("run.sources", len(req.Sources)),
	))
	defer span.End()

	log := p.log.With("run_id", id, "kind", string(req.Kind))
	ledger := crawler.NewLedger()
	retrier := crawler.NewRetrier(&p.cfg.Retry, ledger, log).WithSleep(p.sleep)

	r := &run{
		p:       p,
		req:     req,
		bounds:  bounds,
		cancel:  cancel,
		log:     log,
		retrier: retrier,
		pag:     crawler.NewPaginator(string(req.Kind), p.cfg.Fetch.PageSize, retrier, p.limiter, log),
		result: &Result{
			RunID:   id,
			Kind:    req.Kind,
			Request: req,
			Started: start,
		},
	}

	log.Info("🚀 Run started", "sources", len(req.Sources), "range", bounds.String())

	switch req.Kind {
	case KindMessages:
		r.messages(ctx)
	case KindForwards:
		r.forwards(ctx)
	case KindParticipants:
		r.participants(ctx)
	}

	p.setState(StateDone)

	res := r.result
	res.Finished = time.Now()
	res.Cancelled = cancel.Cancelled() || ctx.Err() != nil
	res.Stats = ledger.Stats()

	outcome := res.Outcome()
	metrics.RecordRun(string(req.Kind), outcome, res.Finished.Sub(start).Seconds())
	span.SetAttributes(attribute.String("run.outcome", outcome))

	if outcome == OutcomeFailed {
		span.SetStatus(codes.Error, "every source failed")
	}

	ledger.LogSummary(log)
	log.Info("🏁 Run finished", "outcome", outcome, "rows", res.RowCount(), "elapsed", res.Finished.Sub(start).Round(time.Millisecond))

	p.setState(StateIdle)

	return res
}

// run is the per-run state of one execution.
type run struct {
	p       *Pipeline
	cancel  *crawler.CancelToken
	log     *logger.Logger
	retrier *crawler.Retrier
	pag     *crawler.Paginator
	result  *Result
	req     Request
	bounds  crawler.Bounds
}

// eachSource resolves and fetches sources one after another. Sources not yet
// started when cancellation is observed are skipped.
func (r *run) eachSource(ctx context.Context, fetch func(ctx context.Context, src models.Source, rep *models.SourceReport)) {
	r.p.setState(StateFetching)

	for _, name := range r.req.Sources {
		rep := models.SourceReport{Key: name, Name: name, Started: time.Now()}

		if r.cancel.Cancelled() || ctx.Err() != nil {
			rep.Status = models.StatusSkipped
			rep.Finished = rep.Started
			r.result.Reports = append(r.result.Reports, rep)

			continue
		}

		sctx, span := r.p.tracer.Start(ctx, "pipeline.source", trace.WithAttributes(attribute.String("source", name)))

		src, err := r.pag.Resolve(sctx, r.p.client, name)
		if err != nil {
			r.failSource(&rep, err)
		} else {
			rep.Name = src.DisplayName()
			fetch(sctx, src, &rep)
		}

		rep.Finished = time.Now()

		if rep.Failed() {
			span.RecordError(errors.New(rep.Error))
			span.SetStatus(codes.Error, rep.Error)
		}

		span.SetAttributes(
			attribute.String("source.status", string(rep.Status)),
			attribute.Int("source.items", rep.Items),
			attribute.Int("source.pages", rep.Pages),
		)
		span.End()

		r.result.Reports = append(r.result.Reports, rep)
	}
}

func (r *run) failSource(rep *models.SourceReport, err error) {
	reason := crawler.Reason(err)
	rep.Error = err.Error()

	switch reason {
	case "not_found":
		rep.Status = models.StatusNotFound
		r.log.Warn(fmt.Sprintf("Channel '%s' does not exist. Skipping.", rep.Key), "source", rep.Key)
	case "context":
		rep.Status = models.StatusCancelled
		rep.Error = ""

		return
	default:
		rep.Status = models.StatusFailed
		r.log.Error("Source failed", "source", rep.Key, "error", err)
	}

	metrics.RecordSourceError(string(r.req.Kind), reason)
}

// applyOutcome copies paging results into a report.
func applyOutcome[T any](r *run, rep *models.SourceReport, out crawler.Outcome[T]) {
	rep.Pages = out.Pages
	rep.Items = len(out.Items)

	switch out.Stop {
	case crawler.StopDateBoundary:
		rep.Status = models.StatusDateBoundary
	case crawler.StopCancelled:
		rep.Status = models.StatusCancelled
	case crawler.StopFailed:
		r.failSource(rep, out.Err)
	default:
		rep.Status = models.StatusExhausted
	}
}

func (r *run) includeComments() bool {
	if r.req.IncludeComments != nil {
		return *r.req.IncludeComments
	}

	return r.p.cfg.Fetch.IncludeComments
}

func (r *run) participantMethod() string {
	if r.req.ParticipantMethod != "" {
		return r.req.ParticipantMethod
	}

	return r.p.cfg.Fetch.ParticipantMethod
}

// describe fetches channel metadata, returning nil on failure.
func (r *run) describe(ctx context.Context, src models.Source) *models.ChannelInfo {
	info, err := crawler.Call(ctx, r.retrier, src.Key, "describe", func(ctx context.Context) (models.ChannelInfo, error) {
		return r.p.client.Describe(ctx, src)
	})
	if err != nil {
		r.log.Warn("Could not fetch channel info", "source", src.Key, "error", err)

		return nil
	}

	return &info
}

// sourceNames lists the display names of every resolved source.
func (r *run) sourceNames() []string {
	var names []string

	for _, rep := range r.result.Reports {
		switch rep.Status {
		case models.StatusExhausted, models.StatusDateBoundary, models.StatusCancelled:
			if rep.Pages > 0 {
				names = append(names, rep.Name)
			}
		}
	}

	return names
}

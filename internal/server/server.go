// Package server exposes fetch runs and lookups over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tgforge/internal/config"
	"tgforge/internal/crawler"
	"tgforge/internal/export"
	"tgforge/internal/logger"
	"tgforge/internal/lookup"
	"tgforge/internal/pipeline"
	"tgforge/internal/store"
)

// ErrRunNotActive is returned when cancelling a run that already finished.
var ErrRunNotActive = errors.New("run is not active")

const shutdownTimeout = 10 * time.Second

// Server is the HTTP API. It runs at most one fetch run at a time.
type Server struct {
	echo     *echo.Echo
	pipeline *pipeline.Pipeline
	lookups  *lookup.Service
	store    store.Store
	exporter *export.Exporter
	cfg      *config.Config
	log      *logger.Logger

	// runs outlive the request that started them
	runCtx  context.Context
	stopRun context.CancelFunc
	wg      sync.WaitGroup

	mu     sync.Mutex
	active string
	cancel *crawler.CancelToken
}

// Option configures a Server.
type Option func(*Server)

// WithExporter writes every finished run to the output directory.
func WithExporter(e *export.Exporter) Option {
	return func(s *Server) { s.exporter = e }
}

// New creates a server and registers its routes.
func New(cfg *config.Config, p *pipeline.Pipeline, lookups *lookup.Service, st store.Store, log *logger.Logger, opts ...Option) *Server {
	ctx, stop := context.WithCancel(context.Background())

	s := &Server{
		echo:     echo.New(),
		pipeline: p,
		lookups:  lookups,
		store:    st,
		cfg:      cfg,
		log:      log,
		runCtx:   ctx,
		stopRun:  stop,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.RequestID())
	s.echo.Use(requestLogger(log))

	s.routes()

	return s
}

func (s *Server) routes() {
	s.echo.GET("/health", s.health)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := s.echo.Group("/api/v1")
	api.POST("/runs", s.startRun)
	api.GET("/runs", s.listRuns)
	api.GET("/runs/:id", s.getRun)
	api.POST("/runs/:id/cancel", s.cancelRun)
	api.GET("/runs/:id/tables/:table", s.getTable)
	api.POST("/lookup/users", s.lookupUsers)
	api.POST("/lookup/channels", s.lookupChannels)
	api.GET("/subscriptions", s.subscriptions)
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves on the configured address until ctx is done, then shuts down
// gracefully. An active run is cancelled and awaited so its partial result is
// stored.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.log.Info("🌐 API server listening", "addr", s.cfg.Server.Addr, "store", s.cfg.Server.Store)

		if err := s.echo.Start(s.cfg.Server.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}

		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("Shutting down API server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := s.echo.Shutdown(shutdownCtx)
	s.Close()

	return err
}

// Close cancels an active run and waits for it to be stored.
func (s *Server) Close() {
	s.mu.Lock()
	s.cancel.Cancel()
	s.mu.Unlock()

	s.stopRun()
	s.wg.Wait()
}

// Active returns the id of the running run, if any.
func (s *Server) Active() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.active
}

// Wait blocks until no run is active.
func (s *Server) Wait() {
	s.wg.Wait()
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":     "healthy",
		"active_run": s.Active(),
		"state":      string(s.pipeline.State()),
	})
}

// begin claims the single run slot.
func (s *Server) begin() (string, *crawler.CancelToken, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active != "" {
		return s.active, nil, false
	}

	s.active = uuid.NewString()
	s.cancel = crawler.NewCancelToken()
	s.wg.Add(1)

	return s.active, s.cancel, true
}

func (s *Server) end() {
	s.mu.Lock()
	s.active = ""
	s.cancel = nil
	s.mu.Unlock()

	s.wg.Done()
}

func (s *Server) execute(rec *store.Record, cancel *crawler.CancelToken) {
	defer s.end()

	log := s.log.With("run_id", rec.ID)

	res, err := s.pipeline.RunWithID(s.runCtx, rec.ID, rec.Request, cancel)
	rec.Complete(res, err)

	if err == nil && s.exporter != nil {
		if _, xerr := s.exporter.Export(context.Background(), export.FromResult(res)); xerr != nil {
			log.Error("Export failed", "error", xerr)
		}
	}

	if err := s.store.Save(context.Background(), rec); err != nil {
		log.Error("Failed to store run result", "error", err)
	}
}

func errorJSON(c echo.Context, status int, err error) error {
	return c.JSON(status, map[string]string{"error": err.Error()})
}

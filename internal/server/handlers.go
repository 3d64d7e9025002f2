package server

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"tgforge/internal/export"
	"tgforge/internal/lookup"
	"tgforge/internal/models"
	"tgforge/internal/pipeline"
	"tgforge/internal/store"
	"tgforge/internal/validator"
)

// Table download formats.
const (
	formatJSON = "json"
	formatCSV  = "csv"
	formatMD   = "md"
)

type runRequest struct {
	IncludeComments   *bool    `json:"include_comments"`
	Kind              string   `json:"kind"`
	Since             string   `json:"since"`
	Until             string   `json:"until"`
	ParticipantMethod string   `json:"participant_method"`
	Sources           []string `json:"sources"`
}

func (r runRequest) build() (pipeline.Request, error) {
	kind, err := pipeline.ParseKind(r.Kind)
	if err != nil {
		return pipeline.Request{}, err
	}

	sources, err := validator.Sources(r.Sources...)
	if err != nil {
		return pipeline.Request{}, err
	}

	since, until, err := validator.DateRange(r.Since, r.Until)
	if err != nil {
		return pipeline.Request{}, err
	}

	return pipeline.Request{
		Kind:              kind,
		Sources:           sources,
		Since:             since,
		Until:             until,
		IncludeComments:   r.IncludeComments,
		ParticipantMethod: r.ParticipantMethod,
	}, nil
}

// startRun validates the request and runs it in the background.
// (POST /api/v1/runs)
func (s *Server) startRun(c echo.Context) error {
	var body runRequest
	if err := c.Bind(&body); err != nil {
		return errorJSON(c, http.StatusBadRequest, errors.New("invalid request body"))
	}

	req, err := body.build()
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err)
	}

	if _, err := s.pipeline.Validate(req); err != nil {
		return errorJSON(c, http.StatusBadRequest, err)
	}

	id, cancel, ok := s.begin()
	if !ok {
		return c.JSON(http.StatusConflict, map[string]string{
			"error":      pipeline.ErrBusy.Error(),
			"active_run": id,
		})
	}

	rec := &store.Record{
		ID:        id,
		Kind:      req.Kind,
		Status:    store.StatusRunning,
		Submitted: time.Now().UTC(),
		Request:   req,
	}

	if err := s.store.Save(c.Request().Context(), rec); err != nil {
		s.end()

		return errorJSON(c, http.StatusInternalServerError, err)
	}

	s.log.Info("Run accepted", "run_id", id, "kind", req.Kind, "sources", len(req.Sources))

	go s.execute(rec, cancel)

	c.Response().Header().Set(echo.HeaderLocation, "/api/v1/runs/"+id)

	return c.JSON(http.StatusAccepted, map[string]string{
		"id":     id,
		"status": string(store.StatusRunning),
	})
}

// listRuns returns stored runs without their tables.
// (GET /api/v1/runs)
func (s *Server) listRuns(c echo.Context) error {
	recs, err := s.store.List(c.Request().Context())
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, err)
	}

	for _, rec := range recs {
		rec.Result = nil
	}

	return c.JSON(http.StatusOK, map[string]any{"runs": recs})
}

// (GET /api/v1/runs/:id)
func (s *Server) getRun(c echo.Context) error {
	rec, status, err := s.record(c)
	if err != nil {
		return errorJSON(c, status, err)
	}

	return c.JSON(http.StatusOK, rec)
}

// cancelRun sets the cancel token of the active run. The run stops after its
// current page and stores a partial result.
// (POST /api/v1/runs/:id/cancel)
func (s *Server) cancelRun(c echo.Context) error {
	id := c.Param("id")

	s.mu.Lock()
	if s.active == id {
		s.cancel.Cancel()
		s.mu.Unlock()
		s.log.Info("Run cancellation requested", "run_id", id)

		return c.JSON(http.StatusAccepted, map[string]string{"id": id, "status": "cancelling"})
	}
	s.mu.Unlock()

	if _, status, err := s.record(c); err != nil {
		return errorJSON(c, status, err)
	}

	return errorJSON(c, http.StatusConflict, ErrRunNotActive)
}

// getTable downloads one result table as JSON, CSV or Markdown.
// (GET /api/v1/runs/:id/tables/:table?format=json|csv|md)
func (s *Server) getTable(c echo.Context) error {
	rec, status, err := s.record(c)
	if err != nil {
		return errorJSON(c, status, err)
	}

	if rec.Result == nil {
		return errorJSON(c, http.StatusConflict, fmt.Errorf("run %s has no result yet", rec.ID))
	}

	name, _ := url.PathUnescape(c.Param("table"))

	t, ok := findTable(rec.Result.Tables, name)
	if !ok {
		return errorJSON(c, http.StatusNotFound, fmt.Errorf("table %q not found", name))
	}

	format := strings.ToLower(c.QueryParam("format"))
	if format == "" {
		format = formatJSON
	}

	switch format {
	case formatJSON:
		return c.JSON(http.StatusOK, t)
	case formatCSV:
		attach(c, "text/csv; charset=utf-8", export.Slug(t.Name)+".csv")

		return export.WriteCSV(c.Response(), t)
	case formatMD:
		attach(c, "text/markdown; charset=utf-8", export.Slug(t.Name)+".md")

		return export.WriteMarkdown(c.Response(), t, s.cfg.Output.MarkdownRowLimit, rec.ID, string(rec.Kind))
	default:
		return errorJSON(c, http.StatusBadRequest, fmt.Errorf("unknown format %q", format))
	}
}

func attach(c echo.Context, contentType, filename string) {
	h := c.Response().Header()
	h.Set(echo.HeaderContentType, contentType)
	h.Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	c.Response().WriteHeader(http.StatusOK)
}

// findTable matches a table by name, ignoring case, or by its file slug.
func findTable(tables []models.Table, name string) (models.Table, bool) {
	for _, t := range tables {
		if strings.EqualFold(t.Name, name) || export.Slug(t.Name) == strings.ToLower(name) {
			return t, true
		}
	}

	return models.Table{}, false
}

// record loads the run named by the id path parameter. On failure it returns
// the HTTP status matching the error.
func (s *Server) record(c echo.Context) (*store.Record, int, error) {
	rec, err := s.store.Get(c.Request().Context(), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		return nil, http.StatusNotFound, err
	}

	if err != nil {
		return nil, http.StatusInternalServerError, err
	}

	return rec, http.StatusOK, nil
}

type usersRequest struct {
	Identifiers []string `json:"identifiers"`
}

// (POST /api/v1/lookup/users)
func (s *Server) lookupUsers(c echo.Context) error {
	var body usersRequest
	if err := c.Bind(&body); err != nil {
		return errorJSON(c, http.StatusBadRequest, errors.New("invalid request body"))
	}

	ids, err := validator.Identifiers(body.Identifiers...)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err)
	}

	res, err := s.lookups.Users(c.Request().Context(), ids, nil)

	return lookupResponse(c, res, err)
}

type channelsRequest struct {
	Channels []string `json:"channels"`
}

// (POST /api/v1/lookup/channels)
func (s *Server) lookupChannels(c echo.Context) error {
	var body channelsRequest
	if err := c.Bind(&body); err != nil {
		return errorJSON(c, http.StatusBadRequest, errors.New("invalid request body"))
	}

	names, err := validator.Sources(body.Channels...)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err)
	}

	res, err := s.lookups.Channels(c.Request().Context(), names, nil)

	return lookupResponse(c, res, err)
}

// (GET /api/v1/subscriptions)
func (s *Server) subscriptions(c echo.Context) error {
	res, err := s.lookups.Subscriptions(c.Request().Context())

	return lookupResponse(c, res, err)
}

func lookupResponse(c echo.Context, res *lookup.Result, err error) error {
	switch {
	case errors.Is(err, lookup.ErrNoIdentifiers):
		return errorJSON(c, http.StatusBadRequest, err)
	case err != nil:
		return errorJSON(c, http.StatusBadGateway, err)
	default:
		return c.JSON(http.StatusOK, res)
	}
}

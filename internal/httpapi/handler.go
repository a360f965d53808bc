package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"frigate_config/confgen/internal/camera"
	"frigate_config/confgen/internal/generator"
	"frigate_config/confgen/internal/metrics"
	"frigate_config/confgen/internal/reachability"
	"frigate_config/confgen/internal/sqlcgen"
)

const (
	maxCSVBytes     = 4 << 20
	defaultRunLimit = 20
	maxRunLimit     = 200
)

// RunQueries is the read side of run history.
type RunQueries interface {
	GetGenerationRun(ctx context.Context, id string) (sqlcgen.GenerationRun, error)
	ListGenerationRuns(ctx context.Context, limit int32) ([]sqlcgen.GenerationRun, error)
	ListCameraObservations(ctx context.Context, runID string) ([]sqlcgen.CameraObservation, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// ProberFactory builds the prober for a ?probe= override.
type ProberFactory func(method string) (reachability.Prober, error)

type Options struct {
	Pinger    Pinger
	Runs      RunQueries
	Generator *generator.Generator
	Probers   ProberFactory
	Metrics   *metrics.Metrics
	Timeout   time.Duration
}

type Handler struct {
	log     zerolog.Logger
	pinger  Pinger
	queries RunQueries
	gen     *generator.Generator
	probers ProberFactory
	metrics *metrics.Metrics
	timeout time.Duration
}

func NewHandler(log zerolog.Logger, opts Options) *Handler {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Handler{
		log:     log,
		pinger:  opts.Pinger,
		queries: opts.Runs,
		gen:     opts.Generator,
		probers: opts.Probers,
		metrics: opts.Metrics,
		timeout: timeout,
	}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(h.timeout))
	r.Use(h.accessLog)

	// Health
	r.Get("/healthz", h.handleHealthz)
	r.Get("/readyz", h.handleReadyZ)
	r.Handle("/metrics", h.metrics.Handler())

	// API
	r.Route("/api", func(r chi.Router) {
		r.Route("/v1", func(r chi.Router) {
			r.Post("/config", h.handleGenerateConfig)

			r.Route("/runs", func(r chi.Router) {
				r.Get("/", h.handleListRuns)
				r.Get("/{id}", h.handleGetRun)
			})
		})
	})

	return r
}

func (h *Handler) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		h.metrics.ObserveHTTPRequest(r.Method, route, ww.Status(), time.Since(start))

		h.log.Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Msg("http_request")
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, msg string, details map[string]any) {
	resp := map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": msg,
		},
	}
	if details != nil {
		resp["error"].(map[string]any)["details"] = details
	}
	h.writeJSON(w, status, resp)
}

func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// handleReadyZ reports ready without a database; run history is optional.
func (h *Handler) handleReadyZ(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if h.gen == nil {
		h.writeError(w, http.StatusServiceUnavailable, "not_ready", "generator not configured", nil)
		return
	}

	if h.pinger == nil {
		h.writeJSON(w, http.StatusOK, map[string]any{"ready": true, "db": "disabled"})
		return
	}

	if err := h.pinger.Ping(ctx); err != nil {
		h.writeError(w, http.StatusServiceUnavailable, "db_unavailable", "database not ready", map[string]any{"error": err.Error()})
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"ready": true, "db": "ok"})
}

func (h *Handler) handleGenerateConfig(w http.ResponseWriter, r *http.Request) {
	if h.gen == nil {
		h.writeError(w, http.StatusServiceUnavailable, "not_ready", "generator not configured", nil)
		return
	}

	gen := h.gen.WithSource("http")
	if method := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("probe"))); method != "" {
		if h.probers == nil {
			h.writeError(w, http.StatusBadRequest, "invalid_probe", "probe override not supported", nil)
			return
		}
		p, err := h.probers(method)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid_probe", "unknown probe method", map[string]any{"probe": method})
			return
		}
		gen = gen.WithProber(method, p)
	}

	records, warnings, err := camera.ReadCSV(http.MaxBytesReader(w, r.Body, maxCSVBytes))
	if err != nil {
		h.writeGenerateError(w, err)
		return
	}
	for _, warn := range warnings {
		h.log.Warn().
			Str("request_id", middleware.GetReqID(r.Context())).
			Int("row", warn.Row).
			Strs("columns", warn.Columns).
			Str("address", warn.Address).
			Msg("skipping camera row")
	}

	res, err := gen.Generate(r.Context(), records)
	if err != nil {
		h.writeGenerateError(w, err)
		return
	}

	if res.RunID != "" {
		w.Header().Set("X-Run-Id", res.RunID)
	}
	w.Header().Set("X-Cameras-Online", strconv.Itoa(res.Summary.Online))
	w.Header().Set("X-Cameras-Offline", strconv.Itoa(res.Summary.Offline))
	w.Header().Set("X-Rows-Skipped", strconv.Itoa(len(warnings)))
	w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Document)
}

func (h *Handler) writeGenerateError(w http.ResponseWriter, err error) {
	var mce *camera.MissingColumnsError
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &mce):
		h.writeError(w, http.StatusBadRequest, "missing_columns", mce.Error(), map[string]any{"columns": mce.Columns})
	case errors.Is(err, camera.ErrNoCameras):
		h.writeError(w, http.StatusUnprocessableEntity, "no_cameras", err.Error(), nil)
	case errors.As(err, &tooLarge):
		h.writeError(w, http.StatusRequestEntityTooLarge, "too_large", "csv body too large", map[string]any{"limit": tooLarge.Limit})
	default:
		h.log.Error().Err(err).Msg("generate config failed")
		h.writeError(w, http.StatusInternalServerError, "generate_failed", "failed to generate config", nil)
	}
}

type run struct {
	ID           string         `json:"id"`
	Status       string         `json:"status"`
	Source       *string        `json:"source,omitempty"`
	Stats        map[string]any `json:"stats,omitempty"`
	StartedAt    time.Time      `json:"started_at"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
	LastError    *string        `json:"last_error,omitempty"`
	Observations []observation  `json:"observations,omitempty"`
}

type observation struct {
	CameraID    string    `json:"camera_id"`
	DisplayName string    `json:"display_name"`
	Address     string    `json:"address"`
	Reachable   bool      `json:"reachable"`
	Position    int32     `json:"position"`
	ObservedAt  time.Time `json:"observed_at"`
}

func toRun(r sqlcgen.GenerationRun) run {
	return run{
		ID:          r.ID,
		Status:      r.Status,
		Source:      r.Source,
		Stats:       r.Stats,
		StartedAt:   r.StartedAt,
		CompletedAt: r.CompletedAt,
		LastError:   r.LastError,
	}
}

func (h *Handler) ensureQueries(w http.ResponseWriter) bool {
	if h.queries == nil {
		h.writeError(w, http.StatusServiceUnavailable, "db_unavailable", "database not configured", nil)
		return false
	}
	return true
}

func isInvalidUUID(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "22P02"
	}
	return false
}

func (h *Handler) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			h.writeError(w, http.StatusBadRequest, "validation_failed", "limit must be a positive integer", map[string]any{"limit": raw})
			return
		}
		limit = min(n, maxRunLimit)
	}

	if !h.ensureQueries(w) {
		return
	}

	rows, err := h.queries.ListGenerationRuns(r.Context(), int32(limit))
	if err != nil {
		h.log.Error().Err(err).Msg("list generation runs failed")
		h.writeError(w, http.StatusInternalServerError, "db_error", "failed to list runs", nil)
		return
	}

	resp := make([]run, 0, len(rows))
	for _, row := range rows {
		resp = append(resp, toRun(row))
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.ensureQueries(w) {
		return
	}

	row, err := h.queries.GetGenerationRun(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			h.writeError(w, http.StatusNotFound, "not_found", "run not found", map[string]any{"id": id})
		case isInvalidUUID(err):
			h.writeError(w, http.StatusBadRequest, "invalid_id", "run id is not a valid uuid", map[string]any{"id": id})
		default:
			h.log.Error().Err(err).Str("id", id).Msg("get generation run failed")
			h.writeError(w, http.StatusInternalServerError, "db_error", "failed to fetch run", nil)
		}
		return
	}

	obs, err := h.queries.ListCameraObservations(r.Context(), id)
	if err != nil {
		h.log.Error().Err(err).Str("id", id).Msg("list camera observations failed")
		h.writeError(w, http.StatusInternalServerError, "db_error", "failed to fetch observations", nil)
		return
	}

	resp := toRun(row)
	for _, o := range obs {
		resp.Observations = append(resp.Observations, observation{
			CameraID:    o.CameraID,
			DisplayName: o.DisplayName,
			Address:     o.Address,
			Reachable:   o.Reachable,
			Position:    o.Position,
			ObservedAt:  o.ObservedAt,
		})
	}
	h.writeJSON(w, http.StatusOK, resp)
}

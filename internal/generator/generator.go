package generator

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"frigate_config/confgen/internal/camera"
	"frigate_config/confgen/internal/frigate"
	"frigate_config/confgen/internal/metrics"
	"frigate_config/confgen/internal/reachability"
	"frigate_config/confgen/internal/sqlcgen"
)

// Store is the run-history subset of the DB the generator needs.
//
// *sqlcgen.Queries satisfies this.
type Store interface {
	InsertGenerationRun(ctx context.Context, arg sqlcgen.InsertGenerationRunParams) (sqlcgen.GenerationRun, error)
	UpdateGenerationRun(ctx context.Context, arg sqlcgen.UpdateGenerationRunParams) (sqlcgen.GenerationRun, error)
	InsertCameraObservation(ctx context.Context, arg sqlcgen.InsertCameraObservationParams) error
}

type Options struct {
	Method  string
	Workers int
	Source  string
	OnProbe func(rec camera.Record, reachable bool)
}

type Generator struct {
	log     zerolog.Logger
	prober  reachability.Prober
	store   Store
	metrics *metrics.Metrics
	opts    Options
}

// New returns a Generator. store and m may be nil.
func New(log zerolog.Logger, prober reachability.Prober, store Store, m *metrics.Metrics, opts Options) *Generator {
	if opts.Method == "" {
		opts.Method = reachability.MethodICMP
	}
	return &Generator{
		log:     log,
		prober:  prober,
		store:   store,
		metrics: m,
		opts:    opts,
	}
}

// WithProber returns a copy of g that probes with p.
func (g *Generator) WithProber(method string, p reachability.Prober) *Generator {
	cp := *g
	cp.prober = p
	cp.opts.Method = method
	return &cp
}

// WithSource returns a copy of g that records runs under source.
func (g *Generator) WithSource(source string) *Generator {
	cp := *g
	cp.opts.Source = source
	return &cp
}

type Result struct {
	RunID     string
	Partition reachability.Partition
	Entries   []frigate.Entry
	Document  []byte
	Summary   Summary
}

// Generate probes, derives and renders one complete document.
func (g *Generator) Generate(ctx context.Context, records []camera.Record) (Result, error) {
	if len(records) == 0 {
		return Result{}, camera.ErrNoCameras
	}

	start := time.Now()
	runID := g.startRun(ctx, len(records))
	log := g.log.With().Str("run_id", runID).Str("probe", g.opts.Method).Logger()
	log.Info().Int("cameras", len(records)).Msg("generation run started")

	p := reachability.New(log, g.prober, reachability.Options{
		Method:   g.opts.Method,
		Workers:  g.opts.Workers,
		OnResult: g.opts.OnProbe,
	}, g.metrics)
	part := p.Partition(ctx, records)

	entries := frigate.Derive(part.Reachable, part.Unreachable)
	for _, e := range entries {
		if e.Deduplicated() {
			log.Warn().
				Str("camera", e.Record.DisplayName).
				Str("sanitized", e.Sanitized).
				Str("camera_id", e.BaseID).
				Msg("duplicate camera name detected; using suffixed id")
		}
	}

	doc := frigate.Render(entries, len(part.Reachable))
	summary := Summarize(part, entries)

	if err := frigate.Verify(doc, entries); err != nil {
		log.Error().Err(err).Msg("rendered config failed verification")
		g.finishRun(ctx, runID, "failed", summary.Stats(), err)
		g.metrics.ObserveGenerationRun("failed", summary.Online, summary.Offline, time.Since(start))
		return Result{}, err
	}

	g.recordObservations(ctx, runID, entries, len(part.Reachable))
	g.finishRun(ctx, runID, "succeeded", summary.Stats(), nil)
	g.metrics.ObserveGenerationRun("succeeded", summary.Online, summary.Offline, time.Since(start))

	log.Info().
		Int("online", summary.Online).
		Int("offline", summary.Offline).
		Int("streams", summary.Streams).
		Dur("elapsed", time.Since(start)).
		Msg("generation run completed")

	return Result{
		RunID:     runID,
		Partition: part,
		Entries:   entries,
		Document:  doc,
		Summary:   summary,
	}, nil
}

// Fail records a run that never reached Generate, e.g. because the sink
// could not be written. It is a no-op without a store.
func (g *Generator) Fail(ctx context.Context, runID string, err error) {
	if runID == "" || err == nil {
		return
	}
	g.finishRun(ctx, runID, "failed", nil, err)
}

func (g *Generator) startRun(ctx context.Context, cameras int) string {
	if g.store == nil {
		return ""
	}
	var source *string
	if g.opts.Source != "" {
		s := g.opts.Source
		source = &s
	}
	run, err := g.store.InsertGenerationRun(ctx, sqlcgen.InsertGenerationRunParams{
		Status: "running",
		Source: source,
		Stats: map[string]any{
			"stage":   "probing",
			"cameras": cameras,
			"probe":   g.opts.Method,
		},
	})
	if err != nil {
		g.log.Warn().Err(err).Msg("failed to record generation run start")
		return ""
	}
	return run.ID
}

func (g *Generator) recordObservations(ctx context.Context, runID string, entries []frigate.Entry, reachableCount int) {
	if g.store == nil || runID == "" {
		return
	}
	for i, e := range entries {
		if err := g.store.InsertCameraObservation(ctx, sqlcgen.InsertCameraObservationParams{
			RunID:       runID,
			CameraID:    e.BaseID,
			DisplayName: e.Record.DisplayName,
			Address:     e.Record.Address,
			Reachable:   i < reachableCount,
			Position:    int32(i),
		}); err != nil {
			g.log.Warn().Err(err).Str("run_id", runID).Str("camera_id", e.BaseID).Msg("failed to record camera observation")
			return
		}
	}
}

func (g *Generator) finishRun(ctx context.Context, runID, status string, stats map[string]any, runErr error) {
	if g.store == nil || runID == "" {
		return
	}
	if stats == nil {
		stats = map[string]any{}
	}
	stats["stage"] = status

	// Still record the outcome when the caller's context is already gone.
	if ctx == nil || ctx.Err() != nil {
		bg, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		ctx = bg
	}

	completedAt := time.Now()
	var lastErr *string
	if runErr != nil {
		msg := runErr.Error()
		lastErr = &msg
	}
	if _, err := g.store.UpdateGenerationRun(ctx, sqlcgen.UpdateGenerationRunParams{
		ID:          runID,
		Status:      status,
		Stats:       stats,
		CompletedAt: &completedAt,
		LastError:   lastErr,
	}); err != nil {
		g.log.Error().Err(err).Str("run_id", runID).Msg("failed to mark generation run " + status)
	}
}

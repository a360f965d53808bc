package reachability

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"frigate_config/confgen/internal/camera"
	"frigate_config/confgen/internal/metrics"
)

// Partition splits records by probe result. Each slice keeps input order.
type Partition struct {
	Reachable   []camera.Record
	Unreachable []camera.Record
}

// Ordered returns reachable records followed by unreachable ones.
func (p Partition) Ordered() []camera.Record {
	out := make([]camera.Record, 0, len(p.Reachable)+len(p.Unreachable))
	out = append(out, p.Reachable...)
	return append(out, p.Unreachable...)
}

func (p Partition) Total() int {
	return len(p.Reachable) + len(p.Unreachable)
}

// Split builds a Partition from per-record results; results[i] belongs to records[i].
func Split(records []camera.Record, results []bool) Partition {
	var out Partition
	for i, rec := range records {
		if i < len(results) && results[i] {
			out.Reachable = append(out.Reachable, rec)
		} else {
			out.Unreachable = append(out.Unreachable, rec)
		}
	}
	return out
}

type Options struct {
	Method  string // metrics label only
	Workers int
	// OnResult is called once per record as probes finish. Calls are
	// serialized but arrive in completion order when Workers > 1.
	OnResult func(rec camera.Record, reachable bool)
}

type Partitioner struct {
	log      zerolog.Logger
	prober   Prober
	method   string
	workers  int
	onResult func(rec camera.Record, reachable bool)
	metrics  *metrics.Metrics
}

func New(log zerolog.Logger, prober Prober, opts Options, m *metrics.Metrics) *Partitioner {
	workers := opts.Workers
	if workers <= 0 {
		workers = 16
	}
	method := opts.Method
	if method == "" {
		method = "custom"
	}
	return &Partitioner{
		log:      log,
		prober:   prober,
		method:   method,
		workers:  workers,
		onResult: opts.OnResult,
		metrics:  m,
	}
}

// Partition probes every record exactly once. Probes may run concurrently,
// but the result depends only on the probe outcomes, never on timing.
func (p *Partitioner) Partition(ctx context.Context, records []camera.Record) Partition {
	results := make([]bool, len(records))

	var (
		g  errgroup.Group
		mu sync.Mutex
	)
	g.SetLimit(p.workers)

	for i, rec := range records {
		i, rec := i, rec
		g.Go(func() error {
			start := time.Now()
			ok := p.prober.Probe(ctx, rec.Address)
			results[i] = ok
			p.metrics.ObserveProbe(p.method, ok, time.Since(start))

			p.log.Debug().
				Str("camera", rec.DisplayName).
				Str("address", rec.Address).
				Bool("reachable", ok).
				Dur("elapsed", time.Since(start)).
				Msg("camera probed")

			if p.onResult != nil {
				mu.Lock()
				p.onResult(rec, ok)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	out := Split(records, results)
	p.log.Info().
		Int("online", len(out.Reachable)).
		Int("offline", len(out.Unreachable)).
		Msg("reachability check complete")
	return out
}

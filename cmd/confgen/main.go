package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"frigate_config/confgen/internal/camera"
	"frigate_config/confgen/internal/config"
	"frigate_config/confgen/internal/db"
	"frigate_config/confgen/internal/frigate"
	"frigate_config/confgen/internal/generator"
	"frigate_config/confgen/internal/httpapi"
	"frigate_config/confgen/internal/logging"
	"frigate_config/confgen/internal/metrics"
	"frigate_config/confgen/internal/reachability"
)

// command describes a CLI subcommand.
type command struct {
	name  string
	short string
	usage string
	long  string
	run   func(c *cli, args []string) error
}

var commands = []command{
	{
		name:  "generate",
		short: "Probe cameras and write a Frigate config",
		usage: "confgen generate [flags]",
		long: `Read the camera list CSV, probe every camera, and write the go2rtc and
Frigate camera config. Reachable cameras come first; offline cameras are
placed at the bottom under an "# OFFLINE CAMERAS" marker.

Running confgen with no arguments is the same as "confgen generate".

Flags:
  -config path            YAML config file (env CONFGEN_CONFIG)
  -input path             camera list CSV (env CONFGEN_CSV, default cameralist.csv)
  -output path            config file to write (env CONFGEN_OUTPUT, default config.yaml)
  -stdout                 write the config to stdout instead of -output
  -probe method           icmp, tcp, snmp or none (env CONFGEN_PROBE, default icmp)
  -preset name            fast, normal or thorough (env CONFGEN_PRESET)
  -timeout duration       per-camera probe timeout (default 3s)
  -workers n              concurrent probes (default 16)
  -log-level level        trace, debug, info, warn, error (env LOG_LEVEL)
  -database-url url       record run history in Postgres (env DATABASE_URL)
  -metrics-textfile path  write Prometheus metrics after the run
`,
		run: runGenerate,
	},
	{
		name:  "serve",
		short: "Serve config generation over HTTP",
		usage: "confgen serve [flags]",
		long: `Start an HTTP server. POST a camera list CSV to /api/v1/config and the
generated config is returned. Add ?probe=tcp (or icmp, snmp, none) to
override the probe method for one request.

Also serves /healthz, /readyz, /metrics and, when a database is configured,
/api/v1/runs and /api/v1/runs/{id}.

Flags:
  -config path            YAML config file (env CONFGEN_CONFIG)
  -addr address           listen address (env HTTP_ADDR, default :8081)
  -probe method           default probe method (env CONFGEN_PROBE)
  -preset name            fast, normal or thorough (env CONFGEN_PRESET)
  -timeout duration       per-camera probe timeout
  -workers n              concurrent probes
  -log-level level        log level (env LOG_LEVEL)
  -database-url url       record run history in Postgres (env DATABASE_URL)
`,
		run: runServe,
	},
}

type cli struct {
	stdout io.Writer
	stderr io.Writer
	getenv func(string) string
}

func main() {
	c := &cli{stdout: os.Stdout, stderr: os.Stderr, getenv: os.Getenv}
	if err := c.dispatch(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "confgen: %v\n", err)
		os.Exit(1)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, "confgen: Frigate camera config generator\n\n")
	fmt.Fprintf(w, "Usage:\n  confgen <command> [flags]\n\n")
	fmt.Fprintf(w, "Commands:\n")
	for _, cmd := range commands {
		fmt.Fprintf(w, "  %-10s %s\n", cmd.name, cmd.short)
	}
	fmt.Fprintf(w, "\nRun 'confgen help <command>' for details on a specific command.\n")
}

func printCommandHelp(w io.Writer, name string) {
	for _, cmd := range commands {
		if cmd.name == name {
			fmt.Fprintf(w, "Usage: %s\n\n%s", cmd.usage, cmd.long)
			return
		}
	}
	fmt.Fprintf(w, "confgen: unknown command %q\n\nRun 'confgen help' for usage.\n", name)
}

func (c *cli) dispatch(args []string) error {
	if len(args) == 0 {
		return runGenerate(c, nil)
	}
	if args[0] == "--help" || args[0] == "-h" {
		printUsage(c.stdout)
		return nil
	}
	if args[0] == "help" {
		if len(args) >= 2 {
			printCommandHelp(c.stdout, args[1])
		} else {
			printUsage(c.stdout)
		}
		return nil
	}
	for _, cmd := range commands {
		if cmd.name == args[0] {
			return cmd.run(c, args[1:])
		}
	}
	return fmt.Errorf("unknown command %q\n\nRun 'confgen help' for usage.", args[0])
}

// flags holds command-line overrides. Only flags the user actually set are
// applied, so file and env values survive unset flags.
type flags struct {
	fs *flag.FlagSet

	configPath      string
	input           string
	output          string
	stdout          bool
	probe           string
	preset          string
	timeout         time.Duration
	workers         int
	logLevel        string
	databaseURL     string
	metricsTextfile string
	addr            string
}

func newFlags(name string, stderr io.Writer) *flags {
	f := &flags{fs: flag.NewFlagSet(name, flag.ContinueOnError)}
	f.fs.SetOutput(stderr)
	f.fs.StringVar(&f.configPath, "config", "", "YAML config file")
	f.fs.StringVar(&f.probe, "probe", "", "probe method")
	f.fs.StringVar(&f.preset, "preset", "", "probe preset")
	f.fs.DurationVar(&f.timeout, "timeout", 0, "per-camera probe timeout")
	f.fs.IntVar(&f.workers, "workers", 0, "concurrent probes")
	f.fs.StringVar(&f.logLevel, "log-level", "", "log level")
	f.fs.StringVar(&f.databaseURL, "database-url", "", "Postgres URL for run history")
	switch name {
	case "generate":
		f.fs.StringVar(&f.input, "input", "", "camera list CSV")
		f.fs.StringVar(&f.output, "output", "", "config file to write")
		f.fs.BoolVar(&f.stdout, "stdout", false, "write the config to stdout")
		f.fs.StringVar(&f.metricsTextfile, "metrics-textfile", "", "write Prometheus metrics here")
	case "serve":
		f.fs.StringVar(&f.addr, "addr", "", "listen address")
	}
	return f
}

func (f *flags) config(getenv func(string) string) (config.Config, error) {
	path := f.configPath
	if path == "" {
		path = getenv("CONFGEN_CONFIG")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	cfg.ApplyEnv(getenv)

	f.fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "input":
			cfg.Input = f.input
		case "output":
			cfg.Output = f.output
		case "probe":
			cfg.Probe.Method = f.probe
		case "preset":
			cfg.Probe.Preset = f.preset
		case "timeout":
			cfg.Probe.Timeout = config.Duration(f.timeout)
		case "workers":
			cfg.Probe.Workers = f.workers
		case "log-level":
			cfg.Log.Level = f.logLevel
		case "database-url":
			cfg.DatabaseURL = f.databaseURL
		case "metrics-textfile":
			cfg.MetricsTextfile = f.metricsTextfile
		case "addr":
			cfg.HTTP.Addr = f.addr
		}
	})

	if err := config.Validate(&cfg); err != nil {
		return cfg, err
	}
	config.Normalize(&cfg)
	return cfg, nil
}

// openStore connects run history when a database URL is configured. The
// returned pool is nil otherwise.
func openStore(ctx context.Context, log zerolog.Logger, databaseURL string) (*db.Pool, error) {
	if databaseURL == "" {
		return nil, nil
	}
	pool, err := db.Open(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	log.Info().Msg("run history enabled")
	return pool, nil
}

// ---------------------------------------------------------------------------
// generate
// ---------------------------------------------------------------------------

func runGenerate(c *cli, args []string) error {
	f := newFlags("generate", c.stderr)
	if err := f.fs.Parse(args); err != nil {
		return fmt.Errorf("usage: confgen generate [flags]")
	}
	cfg, err := f.config(c.getenv)
	if err != nil {
		return err
	}

	log := logging.New(cfg.Log.Level, c.stderr)

	// Progress shares stdout with the document only when the document goes elsewhere.
	progress := c.stdout
	if f.stdout {
		progress = c.stderr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	records, warnings, err := camera.ReadFile(cfg.Input)
	for _, w := range warnings {
		log.Warn().Int("row", w.Row).Strs("columns", w.Columns).Str("address", w.Address).Msg("skipping camera row")
		fmt.Fprintf(progress, "Warning: %s\n", w)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", cfg.Input, err)
	}

	pool, err := openStore(ctx, log, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	prober, err := reachability.NewProber(log, cfg.ProberConfig())
	if err != nil {
		return err
	}

	m := metrics.New()
	var store generator.Store
	if q := pool.Queries(); q != nil {
		store = q
	}

	fmt.Fprintf(progress, "Checking camera connectivity...\n")
	gen := generator.New(log, prober, store, m, generator.Options{
		Method:  cfg.Probe.Method,
		Workers: cfg.Tuning().Workers,
		Source:  cfg.Input,
		OnProbe: func(rec camera.Record, reachable bool) {
			state := "Offline"
			if reachable {
				state = "Online"
			}
			fmt.Fprintf(progress, "  %s (%s) - %s\n", rec.DisplayName, rec.Address, state)
		},
	})

	res, err := gen.Generate(ctx, records)
	if err != nil {
		return err
	}

	if f.stdout {
		err = frigate.Write(c.stdout, res.Entries, len(res.Partition.Reachable))
	} else {
		err = frigate.WriteFile(cfg.Output, res.Document)
	}
	if err != nil {
		gen.Fail(ctx, res.RunID, err)
		return err
	}

	if !f.stdout {
		fmt.Fprintf(progress, "\nConfig file generated: %s\n", cfg.Output)
	}
	res.Summary.Print(progress)

	if err := m.WriteTextfile(cfg.MetricsTextfile); err != nil {
		log.Warn().Err(err).Str("path", cfg.MetricsTextfile).Msg("failed to write metrics textfile")
	}
	return nil
}

// ---------------------------------------------------------------------------
// serve
// ---------------------------------------------------------------------------

func runServe(c *cli, args []string) error {
	f := newFlags("serve", c.stderr)
	if err := f.fs.Parse(args); err != nil {
		return fmt.Errorf("usage: confgen serve [flags]")
	}
	cfg, err := f.config(c.getenv)
	if err != nil {
		return err
	}

	logger := logging.New(cfg.Log.Level, c.stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := openStore(ctx, logger, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	probers := func(method string) (reachability.Prober, error) {
		pc := cfg.ProberConfig()
		pc.Method = method
		return reachability.NewProber(logger, pc)
	}
	prober, err := probers(cfg.Probe.Method)
	if err != nil {
		return err
	}

	m := metrics.New()
	opts := httpapi.Options{Probers: probers, Metrics: m}
	var store generator.Store
	if q := pool.Queries(); q != nil {
		store = q
		opts.Runs = q
		opts.Pinger = pool
	}
	opts.Generator = generator.New(logger, prober, store, m, generator.Options{
		Method:  cfg.Probe.Method,
		Workers: cfg.Tuning().Workers,
	})

	h := httpapi.NewHandler(logger, opts)
	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           h.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.HTTP.Addr).Msg("confgen listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	logger.Info().Msg("shutdown complete")
	return nil
}

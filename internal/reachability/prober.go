package reachability

import (
	"context"
	"fmt"
	"net"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"frigate_config/confgen/internal/snmp"
)

const (
	MethodICMP = "icmp"
	MethodTCP  = "tcp"
	MethodSNMP = "snmp"
	MethodNone = "none"
)

// DefaultTimeout bounds a single probe.
const DefaultTimeout = 3 * time.Second

// Prober answers whether a camera address responds. Implementations own
// their timeout and report any failure as false rather than an error.
type Prober interface {
	Probe(ctx context.Context, address string) bool
}

// ProberFunc adapts a plain function to Prober.
type ProberFunc func(ctx context.Context, address string) bool

func (f ProberFunc) Probe(ctx context.Context, address string) bool {
	return f(ctx, address)
}

// ProberConfig selects and tunes a Prober.
type ProberConfig struct {
	Method  string
	Timeout time.Duration
	TCPPort int
	SNMP    snmp.Config
}

// NewProber builds the Prober named by cfg.Method.
func NewProber(log zerolog.Logger, cfg ProberConfig) (Prober, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Method)) {
	case MethodICMP, "":
		p := NewICMPProber(timeout)
		if !p.Available() {
			log.Warn().Msg("ping binary not found; every camera will be reported offline")
		}
		return p, nil
	case MethodTCP:
		return &TCPProber{Port: cfg.TCPPort, Timeout: timeout}, nil
	case MethodSNMP:
		sc := cfg.SNMP
		if sc.Timeout <= 0 {
			sc.Timeout = timeout
		}
		return &SNMPProber{log: log, client: snmp.NewClient(sc)}, nil
	case MethodNone:
		return StaticProber(true), nil
	default:
		return nil, fmt.Errorf("unknown probe method %q", cfg.Method)
	}
}

// ICMPProber shells out to the system ping binary, one echo per probe.
type ICMPProber struct {
	path    string
	goos    string
	timeout time.Duration
	run     func(ctx context.Context, name string, args ...string) error
}

func NewICMPProber(timeout time.Duration) *ICMPProber {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	path, err := exec.LookPath("ping")
	if err != nil {
		path = ""
	}
	return &ICMPProber{path: path, goos: runtime.GOOS, timeout: timeout, run: runQuiet}
}

func (p *ICMPProber) Available() bool {
	return p != nil && p.path != ""
}

func (p *ICMPProber) Probe(ctx context.Context, address string) bool {
	if !p.Available() {
		return false
	}
	// ping enforces its own wait; the extra second covers process startup.
	pingCtx, cancel := context.WithTimeout(ctx, p.timeout+time.Second)
	defer cancel()
	return p.run(pingCtx, p.path, pingArgs(p.goos, p.timeout, address)...) == nil
}

func pingArgs(goos string, timeout time.Duration, address string) []string {
	if goos == "windows" {
		return []string{"-n", "1", "-w", strconv.FormatInt(timeout.Milliseconds(), 10), address}
	}
	secs := int((timeout + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return []string{"-c", "1", "-W", strconv.Itoa(secs), address}
}

func runQuiet(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = nil
	cmd.Stderr = nil
	return cmd.Run()
}

// TCPProber treats a completed TCP handshake on Port (RTSP by default) as reachable.
type TCPProber struct {
	Port    int
	Timeout time.Duration
}

func (p *TCPProber) Probe(ctx context.Context, address string) bool {
	port := p.Port
	if port <= 0 {
		port = 554
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(address, strconv.Itoa(port)))
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// SNMPProber treats an answered system-group GET as reachable.
type SNMPProber struct {
	log    zerolog.Logger
	client *snmp.Client
}

func (p *SNMPProber) Probe(ctx context.Context, address string) bool {
	info, err := p.client.GetSystem(ctx, snmp.Target{Address: address})
	if err != nil {
		return false
	}
	ev := p.log.Debug().Str("address", address)
	if info.SysName != nil {
		ev = ev.Str("sys_name", *info.SysName)
	}
	if info.UptimeTicks != nil {
		ev = ev.Uint32("uptime_ticks", *info.UptimeTicks)
	}
	ev.Msg("snmp probe answered")
	return true
}

// StaticProber reports the same result for every address.
type StaticProber bool

func (s StaticProber) Probe(context.Context, string) bool {
	return bool(s)
}

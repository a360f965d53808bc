package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"frigate_config/confgen/internal/reachability"
	"frigate_config/confgen/internal/snmp"
)

// ErrInvalid wraps every Validate failure.
var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	Input           string      `yaml:"input"`
	Output          string      `yaml:"output"`
	Log             LogConfig   `yaml:"log"`
	Probe           ProbeConfig `yaml:"probe"`
	HTTP            HTTPConfig  `yaml:"http"`
	DatabaseURL     string      `yaml:"database_url"`
	MetricsTextfile string      `yaml:"metrics_textfile"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type ProbeConfig struct {
	Method  string     `yaml:"method"`
	Timeout Duration   `yaml:"timeout"`
	Workers int        `yaml:"workers"`
	Preset  string     `yaml:"preset"`
	TCPPort int        `yaml:"tcp_port"`
	SNMP    SNMPConfig `yaml:"snmp"`
}

type SNMPConfig struct {
	Community string `yaml:"community"`
	Version   string `yaml:"version"`
	Port      uint16 `yaml:"port"`
	Retries   int    `yaml:"retries"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// Duration accepts Go duration strings ("3s") or bare seconds in YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: duration must be a scalar", node.Line)
	}
	raw := strings.TrimSpace(node.Value)
	if secs, err := strconv.ParseFloat(raw, 64); err == nil {
		*d = Duration(time.Duration(secs * float64(time.Second)))
		return nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

func Defaults() Config {
	return Config{
		Input:  "cameralist.csv",
		Output: "config.yaml",
		Log:    LogConfig{Level: "info"},
		Probe: ProbeConfig{
			Method:  reachability.MethodICMP,
			Timeout: Duration(reachability.DefaultTimeout),
			Workers: 16,
			Preset:  reachability.PresetNormal,
			TCPPort: 554,
			SNMP: SNMPConfig{
				Community: "public",
				Version:   "2c",
				Port:      161,
				Retries:   1,
			},
		},
		HTTP: HTTPConfig{Addr: ":8081"},
	}
}

// Load reads path over Defaults. An empty path returns Defaults.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("unmarshal %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides cfg from the process environment.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&c.Input, "CONFGEN_CSV")
	set(&c.Output, "CONFGEN_OUTPUT")
	set(&c.Probe.Method, "CONFGEN_PROBE")
	set(&c.Probe.Preset, "CONFGEN_PRESET")
	set(&c.Log.Level, "LOG_LEVEL")
	set(&c.DatabaseURL, "DATABASE_URL")
	set(&c.HTTP.Addr, "HTTP_ADDR")
	set(&c.MetricsTextfile, "CONFGEN_METRICS_TEXTFILE")
}

// Tuning returns the probe timeout and worker count after the preset.
func (c Config) Tuning() reachability.Tuning {
	return reachability.ApplyPreset(reachability.Tuning{
		Timeout: c.Probe.Timeout.Std(),
		Workers: c.Probe.Workers,
	}, c.Probe.Preset)
}

// ProberConfig maps the probe section onto reachability.
func (c Config) ProberConfig() reachability.ProberConfig {
	t := c.Tuning()
	return reachability.ProberConfig{
		Method:  c.Probe.Method,
		Timeout: t.Timeout,
		TCPPort: c.Probe.TCPPort,
		SNMP: snmp.Config{
			Community: c.Probe.SNMP.Community,
			Version:   c.Probe.SNMP.Version,
			Port:      c.Probe.SNMP.Port,
			Timeout:   t.Timeout,
			Retries:   c.Probe.SNMP.Retries,
		},
	}
}

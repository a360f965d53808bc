package config

import (
	"fmt"
	"strings"

	"frigate_config/confgen/internal/reachability"
)

// Validate checks configuration correctness. It does not mutate cfg.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: nil config", ErrInvalid)
	}

	if strings.TrimSpace(cfg.Input) == "" {
		return fmt.Errorf("%w: input path is required", ErrInvalid)
	}
	if strings.TrimSpace(cfg.Output) == "" {
		return fmt.Errorf("%w: output path is required", ErrInvalid)
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Probe.Method)) {
	case reachability.MethodICMP, reachability.MethodTCP, reachability.MethodSNMP, reachability.MethodNone:
	default:
		return fmt.Errorf("%w: unknown probe method %q", ErrInvalid, cfg.Probe.Method)
	}

	if cfg.Probe.Timeout.Std() <= 0 {
		return fmt.Errorf("%w: probe timeout must be positive", ErrInvalid)
	}
	if cfg.Probe.Workers <= 0 {
		return fmt.Errorf("%w: probe workers must be positive, got %d", ErrInvalid, cfg.Probe.Workers)
	}
	if cfg.Probe.Preset != "" && !reachability.IsPreset(cfg.Probe.Preset) {
		return fmt.Errorf("%w: unknown probe preset %q", ErrInvalid, cfg.Probe.Preset)
	}
	if cfg.Probe.TCPPort < 1 || cfg.Probe.TCPPort > 65535 {
		return fmt.Errorf("%w: tcp_port out of range: %d", ErrInvalid, cfg.Probe.TCPPort)
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Probe.SNMP.Version)) {
	case "", "1", "v1", "2c", "v2c":
	default:
		return fmt.Errorf("%w: unsupported snmp version %q", ErrInvalid, cfg.Probe.SNMP.Version)
	}

	return nil
}

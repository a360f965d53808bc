package config

import (
	"strings"

	"frigate_config/confgen/internal/reachability"
)

// Normalize canonicalizes enum-like fields so logs and metric labels carry
// one spelling per value. Call it after Validate.
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	cfg.Probe.Method = strings.ToLower(strings.TrimSpace(cfg.Probe.Method))
	if cfg.Probe.Preset != "" {
		cfg.Probe.Preset = reachability.CanonicalizePreset(cfg.Probe.Preset)
	}
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))

	// "v2c" and "2c" mean the same thing to the SNMP client.
	v := strings.ToLower(strings.TrimSpace(cfg.Probe.SNMP.Version))
	cfg.Probe.SNMP.Version = strings.TrimPrefix(v, "v")
}

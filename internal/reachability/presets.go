package reachability

import (
	"strings"
	"time"
)

const (
	PresetFast     = "fast"
	PresetNormal   = "normal"
	PresetThorough = "thorough"
)

// Tuning holds the probe knobs a preset may clamp.
type Tuning struct {
	Timeout time.Duration
	Workers int
}

// CanonicalizePreset maps free-form input to a known preset, defaulting to normal.
func CanonicalizePreset(value string) string {
	s := strings.ToLower(strings.TrimSpace(value))
	switch s {
	case PresetFast, PresetNormal, PresetThorough:
		return s
	default:
		return PresetNormal
	}
}

// IsPreset reports whether value names a preset exactly (after trimming and case folding).
func IsPreset(value string) bool {
	s := strings.ToLower(strings.TrimSpace(value))
	return s == PresetFast || s == PresetNormal || s == PresetThorough
}

func minDuration(a, b time.Duration) time.Duration {
	if a <= 0 {
		return b
	}
	if b <= 0 {
		return a
	}
	if a < b {
		return a
	}
	return b
}

func maxDuration(a, b time.Duration) time.Duration {
	if a <= 0 {
		return b
	}
	if b <= 0 {
		return a
	}
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a <= 0 {
		return b
	}
	if b <= 0 {
		return a
	}
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a <= 0 {
		return b
	}
	if b <= 0 {
		return a
	}
	if a > b {
		return a
	}
	return b
}

// ApplyPreset clamps t for the named preset. Unknown presets behave like normal.
func ApplyPreset(t Tuning, preset string) Tuning {
	switch CanonicalizePreset(preset) {
	case PresetFast:
		t.Timeout = minDuration(t.Timeout, time.Second)
		t.Workers = maxInt(t.Workers, 64)
	case PresetThorough:
		t.Timeout = maxDuration(t.Timeout, 5*time.Second)
		t.Workers = minInt(t.Workers, 4)
	default:
		// normal: preserve configured values
	}
	return t
}

package naming

import (
	"strconv"
	"strings"
)

// Fallback is used when a display name sanitizes to nothing usable.
const Fallback = "Camera"

// Sanitize maps an arbitrary display name to an identifier Frigate accepts
// (^[A-Za-z0-9][A-Za-z0-9_-]*$). It never fails and is idempotent.
func Sanitize(name string) string {
	// Unicode whitespace runs become a single space before separators are mapped.
	name = strings.Join(strings.Fields(name), " ")

	var b strings.Builder
	b.Grow(len(name))
	lastUnderscore := false
	for _, r := range name {
		if !isIdentRune(r) {
			r = '_'
		}
		if r == '_' {
			if lastUnderscore {
				continue
			}
			lastUnderscore = true
		} else {
			lastUnderscore = false
		}
		b.WriteRune(r)
	}

	out := strings.Trim(b.String(), "_")
	if out == "" {
		return Fallback
	}
	if !isAlnum(rune(out[0])) {
		return Fallback + "_" + out
	}
	return out
}

// IsIdentifier reports whether value is already a legal identifier.
func IsIdentifier(value string) bool {
	if value == "" || !isAlnum(rune(value[0])) {
		return false
	}
	for _, r := range value {
		if !isIdentRune(r) {
			return false
		}
	}
	return true
}

func isAlnum(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
	case r >= 'A' && r <= 'Z':
	case r >= '0' && r <= '9':
	default:
		return false
	}
	return true
}

func isIdentRune(r rune) bool {
	return isAlnum(r) || r == '-' || r == '_'
}

// Registry hands out unique identifiers for one derivation run.
//
// Every claimed identifier also reserves identifier+companion, so a claimed
// name can never collide with another camera's companion stream.
type Registry struct {
	used      map[string]struct{}
	companion string
}

func NewRegistry(companion string) *Registry {
	return &Registry{used: make(map[string]struct{}), companion: companion}
}

// Claim returns candidate if it is free, otherwise the first free
// candidate_N with N >= 2. The result is reserved before returning.
func (r *Registry) Claim(candidate string) string {
	id := candidate
	for n := 2; !r.free(id); n++ {
		id = candidate + "_" + strconv.Itoa(n)
	}
	r.used[id] = struct{}{}
	if r.companion != "" {
		r.used[id+r.companion] = struct{}{}
	}
	return id
}

// Taken reports whether id has already been reserved.
func (r *Registry) Taken(id string) bool {
	_, ok := r.used[id]
	return ok
}

func (r *Registry) free(id string) bool {
	if _, ok := r.used[id]; ok {
		return false
	}
	if r.companion == "" {
		return true
	}
	_, ok := r.used[id+r.companion]
	return !ok
}

// Package frigate derives go2rtc stream and Frigate camera entries from
// camera records and renders them as a Frigate config document.
package frigate

import (
	"fmt"

	"frigate_config/confgen/internal/camera"
	"frigate_config/confgen/internal/naming"
)

// Literal tokens consumed by Frigate and go2rtc. Do not change them.
const (
	SubSuffix          = "_Sub"
	SourcePort         = 554
	MainSourcePath     = "s0"
	SubSourcePath      = "s1"
	RestreamAuthority  = "127.0.0.1:8554"
	RoleRecord         = "record"
	RoleDetect         = "detect"
	RecordOutputPreset = "preset-record-generic-audio-aac"
	FallbackAudioCodec = "aac"
)

// StreamTargets is the ordered go2rtc source list for one stream.
type StreamTargets struct {
	Source   string // camera RTSP URL, credentials included
	Fallback string // ffmpeg re-encode of the same stream
}

func (s StreamTargets) List() []string {
	return []string{s.Source, s.Fallback}
}

type Input struct {
	Path  string
	Roles []string
}

// Device is the Frigate camera block. It only references streams by
// identifier through the local restream and never carries credentials.
type Device struct {
	Inputs       []Input
	OutputRecord string
}

// Entry is everything generated for one camera record.
type Entry struct {
	Record camera.Record
	BaseID string
	SubID  string
	Main   StreamTargets
	Sub    StreamTargets
	Device Device
	// Sanitized is the identifier before duplicate suffixing.
	Sanitized string
}

// Deduplicated reports whether BaseID had to be suffixed to stay unique.
func (e Entry) Deduplicated() bool {
	return e.BaseID != e.Sanitized
}

// Derive builds one Entry per record, reachable records first. Identifier
// suffixes depend on that order, so the loop is strictly sequential.
func Derive(reachable, unreachable []camera.Record) []Entry {
	reg := naming.NewRegistry(SubSuffix)
	out := make([]Entry, 0, len(reachable)+len(unreachable))

	for _, group := range [][]camera.Record{reachable, unreachable} {
		for _, rec := range group {
			candidate := naming.Sanitize(rec.DisplayName)
			out = append(out, newEntry(rec, candidate, reg.Claim(candidate)))
		}
	}
	return out
}

func newEntry(rec camera.Record, sanitized, baseID string) Entry {
	subID := baseID + SubSuffix
	return Entry{
		Record:    rec,
		BaseID:    baseID,
		SubID:     subID,
		Sanitized: sanitized,
		Main: StreamTargets{
			Source:   sourceURL(rec, MainSourcePath),
			Fallback: fallback(baseID),
		},
		Sub: StreamTargets{
			Source:   sourceURL(rec, SubSourcePath),
			Fallback: fallback(subID),
		},
		Device: Device{
			Inputs: []Input{
				{Path: restreamPath(baseID), Roles: []string{RoleRecord}},
				{Path: restreamPath(subID), Roles: []string{RoleDetect}},
			},
			OutputRecord: RecordOutputPreset,
		},
	}
}

func sourceURL(rec camera.Record, path string) string {
	return fmt.Sprintf("rtsp://%s:%s@%s:%d/%s", rec.Username, rec.Password, rec.Address, SourcePort, path)
}

func fallback(id string) string {
	return "ffmpeg:" + id + "#audio=" + FallbackAudioCodec
}

func restreamPath(id string) string {
	return "rtsp://" + RestreamAuthority + "/" + id
}

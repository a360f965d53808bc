package generator

import (
	"fmt"
	"io"

	"frigate_config/confgen/internal/camera"
	"frigate_config/confgen/internal/frigate"
	"frigate_config/confgen/internal/reachability"
)

type Rename struct {
	From string
	To   string
}

// Summary is the human-facing account of a run.
type Summary struct {
	Total          int
	Online         int
	Offline        int
	Streams        int
	MainStreams    int
	SubStreams     int
	Renamed        []Rename
	OfflineCameras []camera.Record
}

func Summarize(p reachability.Partition, entries []frigate.Entry) Summary {
	s := Summary{
		Total:          p.Total(),
		Online:         len(p.Reachable),
		Offline:        len(p.Unreachable),
		MainStreams:    len(entries),
		SubStreams:     len(entries),
		Streams:        2 * len(entries),
		OfflineCameras: p.Unreachable,
	}
	for _, e := range entries {
		if e.Record.DisplayName != e.BaseID {
			s.Renamed = append(s.Renamed, Rename{From: e.Record.DisplayName, To: e.BaseID})
		}
	}
	return s
}

// Stats is the run-history form of the summary.
func (s Summary) Stats() map[string]any {
	return map[string]any{
		"cameras": s.Total,
		"online":  s.Online,
		"offline": s.Offline,
		"streams": s.Streams,
		"renamed": len(s.Renamed),
	}
}

func (s Summary) Print(w io.Writer) {
	fmt.Fprintf(w, "Summary:\n")
	fmt.Fprintf(w, "- %d cameras total\n", s.Total)
	fmt.Fprintf(w, "- %d cameras online\n", s.Online)
	fmt.Fprintf(w, "- %d cameras offline\n", s.Offline)
	fmt.Fprintf(w, "- %d streams created\n", s.Streams)
	fmt.Fprintf(w, "- Main streams: %d\n", s.MainStreams)
	fmt.Fprintf(w, "- Sub streams: %d\n", s.SubStreams)

	if len(s.Renamed) > 0 {
		fmt.Fprintf(w, "\nCamera names sanitized for URL compatibility:\n")
		for _, r := range s.Renamed {
			fmt.Fprintf(w, "  - '%s' -> '%s'\n", r.From, r.To)
		}
	}

	if len(s.OfflineCameras) > 0 {
		fmt.Fprintf(w, "\nOffline cameras (placed at bottom of config):\n")
		for _, c := range s.OfflineCameras {
			fmt.Fprintf(w, "  - %s (%s)\n", c.DisplayName, c.Address)
		}
	}
}

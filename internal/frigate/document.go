package frigate

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Comment lines downstream tooling keys on. Keep them verbatim.
const (
	StreamsBanner = "#        MAIN FEED STREAMS"
	CamerasBanner = "#        FFMPEG STREAMS"
	EntryLabel    = "#Camera ID"
	OfflineMarker = "# OFFLINE CAMERAS"
	streamsIndent = "    "
	camerasIndent = "  "
)

// Render produces the document. Entries at index >= reachableCount are
// preceded, once per section, by the offline marker.
func Render(entries []Entry, reachableCount int) []byte {
	var b strings.Builder

	b.WriteString(StreamsBanner + "\n\n")
	b.WriteString("go2rtc:\n")
	b.WriteString("  streams:\n")
	for i, e := range entries {
		if i == reachableCount {
			b.WriteString(streamsIndent + OfflineMarker + "\n")
		}
		b.WriteString(streamsIndent + EntryLabel + "\n")
		writeStream(&b, e.BaseID, e.Main)
		writeStream(&b, e.SubID, e.Sub)
	}

	b.WriteString("\n" + CamerasBanner + "\n\n")
	b.WriteString("cameras:\n")
	for i, e := range entries {
		if i == reachableCount {
			b.WriteString(camerasIndent + OfflineMarker + "\n")
		}
		b.WriteString(camerasIndent + EntryLabel + "\n")
		writeDevice(&b, e.BaseID, e.Device)
	}

	return []byte(b.String())
}

// Write renders entries to w. A failed write is returned wrapped; the caller
// owns cleanup of anything partially written.
func Write(w io.Writer, entries []Entry, reachableCount int) error {
	if _, err := w.Write(Render(entries, reachableCount)); err != nil {
		return fmt.Errorf("write frigate config: %w", err)
	}
	return nil
}

func writeStream(b *strings.Builder, id string, targets StreamTargets) {
	fmt.Fprintf(b, "%s%s:\n", streamsIndent, scalar(id))
	for _, item := range targets.List() {
		fmt.Fprintf(b, "%s  - %s\n", streamsIndent, scalar(item))
	}
}

func writeDevice(b *strings.Builder, id string, d Device) {
	fmt.Fprintf(b, "  %s:\n", scalar(id))
	b.WriteString("    ffmpeg:\n")
	b.WriteString("      inputs:\n")
	for _, in := range d.Inputs {
		fmt.Fprintf(b, "        - path: %s\n", scalar(in.Path))
		b.WriteString("          roles:\n")
		for _, role := range in.Roles {
			fmt.Fprintf(b, "            - %s\n", scalar(role))
		}
	}
	b.WriteString("      output_args:\n")
	fmt.Fprintf(b, "        record: %s\n", scalar(d.OutputRecord))
}

// scalar renders s as a single-line YAML scalar, plain whenever the YAML
// emitter considers that unambiguous.
func scalar(s string) string {
	out, err := yaml.Marshal(s)
	if err == nil {
		v := strings.TrimSuffix(string(out), "\n")
		if !strings.Contains(v, "\n") {
			return v
		}
	}
	return strconv.Quote(s)
}

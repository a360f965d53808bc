package frigate

import (
	"errors"
	"fmt"
	"slices"

	"gopkg.in/yaml.v3"
)

// ErrDocumentMismatch means a rendered document does not parse back to the
// entries it was rendered from.
var ErrDocumentMismatch = errors.New("frigate config does not match derived entries")

type parsedInput struct {
	Path  string   `yaml:"path"`
	Roles []string `yaml:"roles"`
}

type parsedCamera struct {
	FFmpeg struct {
		Inputs     []parsedInput `yaml:"inputs"`
		OutputArgs struct {
			Record string `yaml:"record"`
		} `yaml:"output_args"`
	} `yaml:"ffmpeg"`
}

type parsedDocument struct {
	Go2RTC struct {
		Streams map[string][]string `yaml:"streams"`
	} `yaml:"go2rtc"`
	Cameras map[string]parsedCamera `yaml:"cameras"`
}

// Verify parses doc and checks it against entries: every stream, camera and
// cross-reference must be present with nothing left over.
func Verify(doc []byte, entries []Entry) error {
	var parsed parsedDocument
	if err := yaml.Unmarshal(doc, &parsed); err != nil {
		return fmt.Errorf("%w: %v", ErrDocumentMismatch, err)
	}

	var problems []error
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Errorf(format, args...))
	}

	if got, want := len(parsed.Go2RTC.Streams), 2*len(entries); got != want {
		add("expected %d streams, found %d", want, got)
	}
	if got, want := len(parsed.Cameras), len(entries); got != want {
		add("expected %d cameras, found %d", want, got)
	}

	for _, e := range entries {
		if got := parsed.Go2RTC.Streams[e.BaseID]; !slices.Equal(got, e.Main.List()) {
			add("stream %s: expected %v, found %v", e.BaseID, e.Main.List(), got)
		}
		if got := parsed.Go2RTC.Streams[e.SubID]; !slices.Equal(got, e.Sub.List()) {
			add("stream %s: expected %v, found %v", e.SubID, e.Sub.List(), got)
		}

		cam, ok := parsed.Cameras[e.BaseID]
		if !ok {
			add("camera %s missing", e.BaseID)
			continue
		}
		if len(cam.FFmpeg.Inputs) != len(e.Device.Inputs) {
			add("camera %s: expected %d inputs, found %d", e.BaseID, len(e.Device.Inputs), len(cam.FFmpeg.Inputs))
		} else {
			for i, in := range e.Device.Inputs {
				got := cam.FFmpeg.Inputs[i]
				if got.Path != in.Path || !slices.Equal(got.Roles, in.Roles) {
					add("camera %s input %d: expected %s %v, found %s %v", e.BaseID, i, in.Path, in.Roles, got.Path, got.Roles)
				}
			}
		}
		if cam.FFmpeg.OutputArgs.Record != e.Device.OutputRecord {
			add("camera %s: expected record output %q, found %q", e.BaseID, e.Device.OutputRecord, cam.FFmpeg.OutputArgs.Record)
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %w", ErrDocumentMismatch, errors.Join(problems...))
	}
	return nil
}

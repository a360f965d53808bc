package sqlcgen

import "time"

type GenerationRun struct {
	ID          string
	Status      string
	Source      *string
	Stats       map[string]any
	StartedAt   time.Time
	CompletedAt *time.Time
	LastError   *string
}

type CameraObservation struct {
	RunID       string
	CameraID    string
	DisplayName string
	Address     string
	Reachable   bool
	Position    int32
	ObservedAt  time.Time
}

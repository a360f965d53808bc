package sqlcgen

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX matches the minimal interface needed from pgxpool.Pool or pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgx.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}

const insertGenerationRun = `-- name: InsertGenerationRun :one
INSERT INTO generation_runs (status, source, stats)
VALUES ($1, $2, COALESCE($3, '{}'::jsonb))
RETURNING id, status, source, stats, started_at, completed_at, last_error
`

type InsertGenerationRunParams struct {
	Status string
	Source *string
	Stats  map[string]any
}

func (q *Queries) InsertGenerationRun(ctx context.Context, arg InsertGenerationRunParams) (GenerationRun, error) {
	row := q.db.QueryRow(ctx, insertGenerationRun, arg.Status, arg.Source, arg.Stats)
	var i GenerationRun
	err := row.Scan(
		&i.ID,
		&i.Status,
		&i.Source,
		&i.Stats,
		&i.StartedAt,
		&i.CompletedAt,
		&i.LastError,
	)
	return i, err
}

const updateGenerationRun = `-- name: UpdateGenerationRun :one
UPDATE generation_runs
SET status = $2,
    stats = COALESCE($3, stats),
    completed_at = $4,
    last_error = $5
WHERE id = $1
RETURNING id, status, source, stats, started_at, completed_at, last_error
`

type UpdateGenerationRunParams struct {
	ID          string
	Status      string
	Stats       map[string]any
	CompletedAt *time.Time
	LastError   *string
}

func (q *Queries) UpdateGenerationRun(ctx context.Context, arg UpdateGenerationRunParams) (GenerationRun, error) {
	row := q.db.QueryRow(ctx, updateGenerationRun, arg.ID, arg.Status, arg.Stats, arg.CompletedAt, arg.LastError)
	var i GenerationRun
	err := row.Scan(
		&i.ID,
		&i.Status,
		&i.Source,
		&i.Stats,
		&i.StartedAt,
		&i.CompletedAt,
		&i.LastError,
	)
	return i, err
}

const getGenerationRun = `-- name: GetGenerationRun :one
SELECT id, status, source, stats, started_at, completed_at, last_error
FROM generation_runs
WHERE id = $1
`

func (q *Queries) GetGenerationRun(ctx context.Context, id string) (GenerationRun, error) {
	row := q.db.QueryRow(ctx, getGenerationRun, id)
	var i GenerationRun
	err := row.Scan(
		&i.ID,
		&i.Status,
		&i.Source,
		&i.Stats,
		&i.StartedAt,
		&i.CompletedAt,
		&i.LastError,
	)
	return i, err
}

const listGenerationRuns = `-- name: ListGenerationRuns :many
SELECT id, status, source, stats, started_at, completed_at, last_error
FROM generation_runs
ORDER BY started_at DESC
LIMIT $1
`

func (q *Queries) ListGenerationRuns(ctx context.Context, limit int32) ([]GenerationRun, error) {
	rows, err := q.db.Query(ctx, listGenerationRuns, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []GenerationRun
	for rows.Next() {
		var i GenerationRun
		if err := rows.Scan(
			&i.ID,
			&i.Status,
			&i.Source,
			&i.Stats,
			&i.StartedAt,
			&i.CompletedAt,
			&i.LastError,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const insertCameraObservation = `-- name: InsertCameraObservation :exec
INSERT INTO camera_observations (run_id, camera_id, display_name, address, reachable, position)
VALUES ($1::uuid, $2, $3, $4, $5, $6)
`

type InsertCameraObservationParams struct {
	RunID       string
	CameraID    string
	DisplayName string
	Address     string
	Reachable   bool
	Position    int32
}

func (q *Queries) InsertCameraObservation(ctx context.Context, arg InsertCameraObservationParams) error {
	_, err := q.db.Exec(ctx, insertCameraObservation, arg.RunID, arg.CameraID, arg.DisplayName, arg.Address, arg.Reachable, arg.Position)
	return err
}

const listCameraObservations = `-- name: ListCameraObservations :many
SELECT run_id, camera_id, display_name, address, reachable, position, observed_at
FROM camera_observations
WHERE run_id = $1::uuid
ORDER BY position ASC
`

func (q *Queries) ListCameraObservations(ctx context.Context, runID string) ([]CameraObservation, error) {
	rows, err := q.db.Query(ctx, listCameraObservations, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []CameraObservation
	for rows.Next() {
		var i CameraObservation
		if err := rows.Scan(
			&i.RunID,
			&i.CameraID,
			&i.DisplayName,
			&i.Address,
			&i.Reachable,
			&i.Position,
			&i.ObservedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

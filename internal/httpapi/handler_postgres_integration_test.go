package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"frigate_config/confgen/internal/db"
	"frigate_config/confgen/internal/generator"
)

func requireTestDatabaseURL(t *testing.T) string {
	t.Helper()
	dsn := strings.TrimSpace(os.Getenv("TEST_DATABASE_URL"))
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping Postgres integration test")
	}
	return dsn
}

func mustDeriveDatabaseURL(t *testing.T, baseURL, dbName string) string {
	t.Helper()

	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		t.Skipf("TEST_DATABASE_URL must be a URL-style DSN (e.g. postgres://...); got %q", baseURL)
	}

	u.Path = "/" + dbName
	return u.String()
}

func newTestDatabaseName() string {
	return fmt.Sprintf("confgen_test_%d", time.Now().UnixNano())
}

func createDatabase(ctx context.Context, adminURL, dbName string) error {
	adminConn, err := pgx.Connect(ctx, adminURL)
	if err != nil {
		return err
	}
	defer adminConn.Close(ctx)

	_, err = adminConn.Exec(ctx, "CREATE DATABASE "+dbName)
	return err
}

func dropDatabase(ctx context.Context, adminURL, dbName string) error {
	adminConn, err := pgx.Connect(ctx, adminURL)
	if err != nil {
		return err
	}
	defer adminConn.Close(ctx)

	if _, err := adminConn.Exec(ctx, "DROP DATABASE "+dbName+" WITH (FORCE)"); err == nil {
		return nil
	}
	_, err = adminConn.Exec(ctx, "DROP DATABASE "+dbName)
	return err
}

func TestHandler_Postgres_RunHistory(t *testing.T) {
	adminURL := requireTestDatabaseURL(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	dbName := newTestDatabaseName()
	testDBURL := mustDeriveDatabaseURL(t, adminURL, dbName)

	if err := createDatabase(ctx, adminURL, dbName); err != nil {
		t.Fatalf("create database: %v", err)
	}
	t.Cleanup(func() {
		_ = dropDatabase(context.Background(), adminURL, dbName)
	})

	pool, err := db.Open(ctx, testDBURL)
	if err != nil {
		t.Fatalf("open db pool: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := pool.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	// Applying twice must be harmless.
	if err := pool.Migrate(ctx); err != nil {
		t.Fatalf("migrate again: %v", err)
	}

	q := pool.Queries()
	gen := generator.New(zerolog.Nop(), offlineAt("192.168.1.11"), q, nil, generator.Options{Workers: 2})
	h := NewHandler(zerolog.Nop(), Options{Pinger: pool, Runs: q, Generator: gen})
	router := h.Router()

	rrReady := httptest.NewRecorder()
	router.ServeHTTP(rrReady, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rrReady.Code != http.StatusOK {
		t.Fatalf("readyz expected 200, got %d: %s", rrReady.Code, rrReady.Body.String())
	}

	rrGen := httptest.NewRecorder()
	router.ServeHTTP(rrGen, httptest.NewRequest(http.MethodPost, "/api/v1/config", strings.NewReader(cameraCSV)))
	if rrGen.Code != http.StatusOK {
		t.Fatalf("generate expected 200, got %d: %s", rrGen.Code, rrGen.Body.String())
	}
	runID := rrGen.Header().Get("X-Run-Id")
	if runID == "" {
		t.Fatalf("expected X-Run-Id header to be set")
	}

	rrRun := httptest.NewRecorder()
	router.ServeHTTP(rrRun, httptest.NewRequest(http.MethodGet, "/api/v1/runs/"+runID, nil))
	if rrRun.Code != http.StatusOK {
		t.Fatalf("get run expected 200, got %d: %s", rrRun.Code, rrRun.Body.String())
	}

	var got run
	if err := json.NewDecoder(rrRun.Body).Decode(&got); err != nil {
		t.Fatalf("decode run: %v", err)
	}
	if got.Status != "succeeded" || got.CompletedAt == nil || got.Source == nil || *got.Source != "http" {
		t.Fatalf("unexpected run: %+v", got)
	}
	if got.Stats["online"] != float64(2) || got.Stats["offline"] != float64(1) {
		t.Fatalf("unexpected stats: %v", got.Stats)
	}
	if len(got.Observations) != 3 {
		t.Fatalf("expected 3 observations, got %+v", got.Observations)
	}
	last := got.Observations[2]
	if last.CameraID != "Front_Door_2" || last.Reachable || last.Position != 2 {
		t.Fatalf("unexpected last observation: %+v", last)
	}

	rrList := httptest.NewRecorder()
	router.ServeHTTP(rrList, httptest.NewRequest(http.MethodGet, "/api/v1/runs?limit=1", nil))
	if rrList.Code != http.StatusOK {
		t.Fatalf("list runs expected 200, got %d", rrList.Code)
	}
	var runs []run
	if err := json.NewDecoder(rrList.Body).Decode(&runs); err != nil {
		t.Fatalf("decode runs: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != runID {
		t.Fatalf("unexpected runs list: %+v", runs)
	}

	rrMissing := httptest.NewRecorder()
	router.ServeHTTP(rrMissing, httptest.NewRequest(http.MethodGet, "/api/v1/runs/not-a-uuid", nil))
	if rrMissing.Code != http.StatusBadRequest {
		t.Fatalf("invalid id expected 400, got %d: %s", rrMissing.Code, rrMissing.Body.String())
	}
}

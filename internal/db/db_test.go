// Package db provides integration tests for SurrealDB operations.
package db

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/raphaelgruber/vecsync-go/internal/models"
	vsync "github.com/raphaelgruber/vecsync-go/internal/sync"
)

var testDB *Client
var testContainer testcontainers.Container

// TestMain sets up and tears down the SurrealDB container for all tests.
func TestMain(m *testing.M) {
	// Disable ryuk (cleanup container) as it can cause issues in some environments
	os.Setenv("TESTCONTAINERS_RYUK_DISABLED", "true")

	ctx := context.Background()

	var err error
	testContainer, err = testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "surrealdb/surrealdb:v3.0.0-beta.1",
			ExposedPorts: []string{"8000/tcp"},
			Cmd:          []string{"start", "--log", "info", "--user", "root", "--pass", "root"},
			WaitingFor:   wait.ForLog("Started web server").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		log.Fatalf("Failed to start SurrealDB container: %v", err)
	}

	host, err := testContainer.Host(ctx)
	if err != nil {
		log.Fatalf("Failed to get container host: %v", err)
	}
	// Workaround: testcontainers may return "null" as host in some environments
	if host == "" || host == "null" {
		host = "localhost"
	}
	mappedPort, err := testContainer.MappedPort(ctx, "8000")
	if err != nil {
		log.Fatalf("Failed to get mapped port: %v", err)
	}

	testDB, err = NewClient(ctx, Config{
		URL:       fmt.Sprintf("ws://%s:%s/rpc", host, mappedPort.Port()),
		Namespace: "test",
		Database:  "test",
		Username:  "root",
		Password:  "root",
		AuthLevel: "root",
	}, nil)
	if err != nil {
		log.Fatalf("Failed to connect to test database: %v", err)
	}

	if err := testDB.InitSchema(ctx); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}

	code := m.Run()

	_ = testDB.Close(ctx)
	_ = testContainer.Terminate(ctx)

	os.Exit(code)
}

func wipe(t *testing.T) {
	t.Helper()
	if err := testDB.WipeData(context.Background()); err != nil {
		t.Fatalf("WipeData failed: %v", err)
	}
}

func newTestJob(status models.JobStatus) *models.SyncJob {
	now := time.Now()
	return &models.SyncJob{
		Status:       status,
		Mode:         models.ModeDirect,
		CollectionID: "handbook",
		Items:        []string{"a.md", "b.md", "c.md"},
		Total:        3,
		StartedAt:    now,
		LastUpdate:   now,
	}
}

// =============================================================================
// JOB TESTS
// =============================================================================

func TestJobCreateAndGet(t *testing.T) {
	wipe(t)
	ctx := context.Background()
	jobs := NewJobs(testDB)

	if job, err := jobs.Get(ctx); err != nil || job != nil {
		t.Fatalf("expected no job, got %v (err %v)", job, err)
	}

	if err := jobs.Create(ctx, newTestJob(models.JobRunning)); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	job, err := jobs.Get(ctx)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if job == nil {
		t.Fatal("expected a job")
	}
	if job.Status != models.JobRunning {
		t.Errorf("expected status running, got %q", job.Status)
	}
	if job.Total != 3 || len(job.Items) != 3 {
		t.Errorf("expected 3 items, got total=%d items=%d", job.Total, len(job.Items))
	}
	if job.CollectionID != "handbook" {
		t.Errorf("expected collection handbook, got %q", job.CollectionID)
	}
}

func TestJobCreateConflictWhileActive(t *testing.T) {
	wipe(t)
	ctx := context.Background()
	jobs := NewJobs(testDB)

	if err := jobs.Create(ctx, newTestJob(models.JobRunning)); err != nil {
		t.Fatalf("first Create failed: %v", err)
	}

	err := jobs.Create(ctx, newTestJob(models.JobRunning))
	if !errors.Is(err, vsync.ErrJobConflict) {
		t.Fatalf("expected ErrJobConflict, got %v", err)
	}

	// the active job is untouched
	job, err := jobs.Get(ctx)
	if err != nil || job == nil {
		t.Fatalf("Get failed: %v", err)
	}
	if job.Status != models.JobRunning {
		t.Errorf("active job mutated: status %q", job.Status)
	}
}

func TestJobReplaceAfterTerminal(t *testing.T) {
	wipe(t)
	ctx := context.Background()
	jobs := NewJobs(testDB)

	if err := jobs.Create(ctx, newTestJob(models.JobCompleted)); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := jobs.Create(ctx, newTestJob(models.JobRunning)); err != nil {
		t.Fatalf("replacing a terminal job failed: %v", err)
	}

	job, err := jobs.Get(ctx)
	if err != nil || job == nil {
		t.Fatalf("Get failed: %v", err)
	}
	if job.Status != models.JobRunning {
		t.Errorf("expected running, got %q", job.Status)
	}

	// the finished job was archived
	history, err := jobs.History(ctx, 10)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(history))
	}
	if history[0].Status != models.JobCompleted {
		t.Errorf("expected archived status completed, got %q", history[0].Status)
	}
}

func TestJobUpdate(t *testing.T) {
	wipe(t)
	ctx := context.Background()
	jobs := NewJobs(testDB)

	if err := jobs.Create(ctx, newTestJob(models.JobRunning)); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	processed, errs, percent := 2, 1, 67
	job, err := jobs.Update(ctx, vsync.JobPatch{
		Processed: &processed,
		Errors:    &errs,
		Percent:   &percent,
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if job.Processed != 2 || job.Errors != 1 || job.Percent != 67 {
		t.Errorf("patch not applied: %+v", job)
	}
	// untouched fields survive the merge
	if job.Total != 3 || job.Status != models.JobRunning {
		t.Errorf("merge clobbered fields: %+v", job)
	}

	status := models.JobFailed
	msg := "store api unavailable"
	job, err = jobs.Update(ctx, vsync.JobPatch{Status: &status, ErrorMessage: &msg})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if job.Status != models.JobFailed {
		t.Errorf("expected failed, got %q", job.Status)
	}
	if job.ErrorMessage == nil || *job.ErrorMessage != msg {
		t.Errorf("expected error message %q, got %v", msg, job.ErrorMessage)
	}
}

func TestJobUpdateWithoutJob(t *testing.T) {
	wipe(t)
	ctx := context.Background()
	jobs := NewJobs(testDB)

	flag := true
	_, err := jobs.Update(ctx, vsync.JobPatch{CancelRequested: &flag})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// =============================================================================
// RECORD TESTS
// =============================================================================

func TestRecordLifecycle(t *testing.T) {
	wipe(t)
	ctx := context.Background()
	records := NewRecords(testDB)

	id, err := records.Insert(ctx, &models.TrainingRecord{
		CollectionID: "handbook",
		ItemID:       "docs/a.md",
		Status:       models.RecordAdding,
	})
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if id == "" {
		t.Fatal("expected non-empty record id")
	}

	rec, err := records.GetByItem(ctx, "handbook", "docs/a.md")
	if err != nil {
		t.Fatalf("GetByItem failed: %v", err)
	}
	if rec == nil || rec.Status != models.RecordAdding {
		t.Fatalf("unexpected record: %+v", rec)
	}

	store, file, hash := "vs_1", "file_1", "abc123"
	synced := models.RecordSynced
	now := time.Now()
	err = records.Update(ctx, id, vsync.RecordPatch{
		RemoteStoreID: &store,
		RemoteFileID:  &file,
		ContentHash:   &hash,
		Status:        &synced,
		LastSynced:    &now,
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	rec, err = records.GetByItem(ctx, "handbook", "docs/a.md")
	if err != nil {
		t.Fatalf("GetByItem failed: %v", err)
	}
	if rec.RemoteFileID != "file_1" || rec.ContentHash != "abc123" || !rec.Synced() {
		t.Errorf("patch not applied: %+v", rec)
	}

	if err := records.Delete(ctx, id); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	rec, err = records.GetByItem(ctx, "handbook", "docs/a.md")
	if err != nil {
		t.Fatalf("GetByItem failed: %v", err)
	}
	if rec != nil {
		t.Errorf("expected record gone, got %+v", rec)
	}
}

func TestRecordErrorRoundTrip(t *testing.T) {
	wipe(t)
	ctx := context.Background()
	records := NewRecords(testDB)

	id, err := records.Insert(ctx, &models.TrainingRecord{
		CollectionID: "handbook",
		ItemID:       "docs/b.md",
		Status:       models.RecordAdding,
	})
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	status := models.RecordError
	code, msg := "server_error", "upstream 503"
	if err := records.Update(ctx, id, vsync.RecordPatch{Status: &status, ErrorCode: &code, ErrorMessage: &msg}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	errored, err := records.ListErrored(ctx, "handbook", 0)
	if err != nil {
		t.Fatalf("ListErrored failed: %v", err)
	}
	if len(errored) != 1 {
		t.Fatalf("expected 1 errored record, got %d", len(errored))
	}
	if errored[0].ErrorCode == nil || *errored[0].ErrorCode != "server_error" {
		t.Errorf("unexpected error code: %v", errored[0].ErrorCode)
	}

	// a successful sync clears the error fields
	synced := models.RecordSynced
	now := time.Now()
	if err := records.Update(ctx, id, vsync.RecordPatch{Status: &synced, ClearError: true, LastSynced: &now}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	rec, err := records.GetByItem(ctx, "handbook", "docs/b.md")
	if err != nil {
		t.Fatalf("GetByItem failed: %v", err)
	}
	if rec.ErrorCode != nil || rec.ErrorMessage != nil {
		t.Errorf("error fields not cleared: %+v", rec)
	}

	errored, err = records.ListErrored(ctx, "handbook", 0)
	if err != nil {
		t.Fatalf("ListErrored failed: %v", err)
	}
	if len(errored) != 0 {
		t.Errorf("expected no errored records, got %d", len(errored))
	}
}

func TestRecordListByCollection(t *testing.T) {
	wipe(t)
	ctx := context.Background()
	records := NewRecords(testDB)

	for _, item := range []string{"docs/c.md", "docs/a.md", "docs/b.md"} {
		if _, err := records.Insert(ctx, &models.TrainingRecord{
			CollectionID: "handbook",
			ItemID:       item,
			Status:       models.RecordSynced,
		}); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}
	if _, err := records.Insert(ctx, &models.TrainingRecord{
		CollectionID: "other",
		ItemID:       "docs/x.md",
		Status:       models.RecordSynced,
	}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	recs, err := records.ListByCollection(ctx, "handbook", 0)
	if err != nil {
		t.Fatalf("ListByCollection failed: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("expected 3 records, got %d", len(recs))
	}
	if recs[0].ItemID != "docs/a.md" || recs[2].ItemID != "docs/c.md" {
		t.Errorf("unexpected order: %q, %q, %q", recs[0].ItemID, recs[1].ItemID, recs[2].ItemID)
	}
}

func TestRecordLastSyncedAt(t *testing.T) {
	wipe(t)
	ctx := context.Background()
	records := NewRecords(testDB)

	ts, err := records.LastSyncedAt(ctx, "handbook")
	if err != nil {
		t.Fatalf("LastSyncedAt failed: %v", err)
	}
	if !ts.IsZero() {
		t.Errorf("expected zero time, got %v", ts)
	}

	id, err := records.Insert(ctx, &models.TrainingRecord{
		CollectionID: "handbook",
		ItemID:       "docs/a.md",
		Status:       models.RecordAdding,
	})
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	synced := models.RecordSynced
	when := time.Now()
	if err := records.Update(ctx, id, vsync.RecordPatch{Status: &synced, LastSynced: &when}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	ts, err = records.LastSyncedAt(ctx, "handbook")
	if err != nil {
		t.Fatalf("LastSyncedAt failed: %v", err)
	}
	if ts.IsZero() {
		t.Error("expected a non-zero last synced time")
	}
}

// Job persistence: the single sync_job:current row plus the history table.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/surrealdb/surrealdb.go"

	"github.com/raphaelgruber/vecsync-go/internal/models"
	vsync "github.com/raphaelgruber/vecsync-go/internal/sync"
)

// Jobs implements the sync.JobStore contract on top of SurrealDB. The job
// lives in the fixed record sync_job:current so the single-slot invariant
// is a property of the storage layout, not of the query logic.
type Jobs struct {
	c *Client
}

var _ vsync.JobStore = (*Jobs)(nil)

// NewJobs returns the job store backed by the given client.
func NewJobs(c *Client) *Jobs {
	return &Jobs{c: c}
}

// Get returns the current job, or nil when none was ever created.
func (j *Jobs) Get(ctx context.Context) (*models.SyncJob, error) {
	results, err := surrealdb.Query[[]models.SyncJob](ctx, j.c.db, `
		SELECT * FROM sync_job:current
	`, nil)
	if err != nil {
		return nil, fmt.Errorf("get job: %w", wrapQueryError(err))
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, nil
	}
	return &(*results)[0].Result[0], nil
}

// Create installs a fresh job at sync_job:current. The status check and
// the overwrite run in one transaction: a concurrent create against a
// still-active row loses with an error wrapping sync.ErrJobConflict. A
// finished previous job is archived into sync_job_history first.
func (j *Jobs) Create(ctx context.Context, job *models.SyncJob) error {
	if err := j.archiveFinished(ctx); err != nil {
		return err
	}

	_, err := surrealdb.Query[any](ctx, j.c.db, `
		BEGIN TRANSACTION;
		LET $current = SELECT * FROM ONLY sync_job:current;
		IF $current != NONE AND $current.status IN ["scheduled", "running"] {
			THROW "`+activeJobMarker+`";
		};
		UPSERT sync_job:current CONTENT $job;
		COMMIT TRANSACTION;
	`, map[string]any{
		"job": map[string]any{
			"status":           job.Status,
			"mode":             job.Mode,
			"collection_id":    job.CollectionID,
			"items":            job.Items,
			"total":            job.Total,
			"processed":        job.Processed,
			"errors":           job.Errors,
			"percent":          job.Percent,
			"cancel_requested": job.CancelRequested,
			"started_at":       job.StartedAt,
			"last_update":      job.LastUpdate,
		},
	})
	if err != nil {
		return fmt.Errorf("create job: %w", wrapQueryError(err))
	}
	return nil
}

// archiveFinished copies a terminal sync_job:current row into the history
// table before it gets overwritten.
func (j *Jobs) archiveFinished(ctx context.Context) error {
	current, err := j.Get(ctx)
	if err != nil {
		return err
	}
	if current == nil || !current.Status.Terminal() {
		return nil
	}

	_, err = surrealdb.Query[any](ctx, j.c.db, `
		CREATE type::record("sync_job_history", $id) CONTENT {
			status: $status,
			mode: $mode,
			collection_id: $collection_id,
			total: $total,
			processed: $processed,
			errors: $errors,
			error_message: $error_message,
			started_at: $started_at,
			finished_at: $finished_at
		}
	`, map[string]any{
		"id":            uuid.NewString(),
		"status":        current.Status,
		"mode":          current.Mode,
		"collection_id": current.CollectionID,
		"total":         current.Total,
		"processed":     current.Processed,
		"errors":        current.Errors,
		"error_message": current.ErrorMessage,
		"started_at":    current.StartedAt,
		"finished_at":   current.LastUpdate,
	})
	if err != nil {
		return fmt.Errorf("archive job: %w", wrapQueryError(err))
	}
	return nil
}

// Update merges the patch into sync_job:current and returns the result.
func (j *Jobs) Update(ctx context.Context, patch vsync.JobPatch) (*models.SyncJob, error) {
	merge := map[string]any{"last_update": time.Now()}
	if patch.Status != nil {
		merge["status"] = *patch.Status
	}
	if patch.Processed != nil {
		merge["processed"] = *patch.Processed
	}
	if patch.Errors != nil {
		merge["errors"] = *patch.Errors
	}
	if patch.Percent != nil {
		merge["percent"] = *patch.Percent
	}
	if patch.CancelRequested != nil {
		merge["cancel_requested"] = *patch.CancelRequested
	}
	if patch.ErrorMessage != nil {
		merge["error_message"] = *patch.ErrorMessage
	}

	results, err := surrealdb.Query[[]models.SyncJob](ctx, j.c.db, `
		UPDATE sync_job:current MERGE $patch RETURN AFTER
	`, map[string]any{"patch": merge})
	if err != nil {
		return nil, fmt.Errorf("update job: %w", wrapQueryError(err))
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("update job: %w", ErrNotFound)
	}
	return &(*results)[0].Result[0], nil
}

// History returns finished jobs, most recently finished first.
func (j *Jobs) History(ctx context.Context, limit int) ([]models.JobHistoryEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	results, err := surrealdb.Query[[]models.JobHistoryEntry](ctx, j.c.db, `
		SELECT * FROM sync_job_history ORDER BY finished_at DESC LIMIT $limit
	`, map[string]any{"limit": limit})
	if err != nil {
		return nil, fmt.Errorf("job history: %w", wrapQueryError(err))
	}
	if results == nil || len(*results) == 0 {
		return []models.JobHistoryEntry{}, nil
	}
	return (*results)[0].Result, nil
}

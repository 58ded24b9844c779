package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/raphaelgruber/vecsync-go/internal/models"
)

const (
	// DefaultBatchSize is the number of items processed per orchestrator tick.
	DefaultBatchSize = 10
	// DefaultTickDelay is the cron re-invocation delay between batches.
	DefaultTickDelay = 60 * time.Second
)

// SelectorMode names the strategies for resolving a job's item set.
type SelectorMode string

const (
	// SelectAll targets every published item matching the collection filter.
	SelectAll SelectorMode = "all"
	// SelectIDs targets an explicit id list.
	SelectIDs SelectorMode = "ids"
	// SelectRetry re-targets only items whose record is in error state.
	SelectRetry SelectorMode = "retry"
)

// Selector describes which items a job should cover.
type Selector struct {
	Mode SelectorMode
	IDs  []string // only for SelectIDs
}

// Orchestrator enforces the single-active-job invariant and drives batch
// progress. All state lives in the JobStore; the orchestrator itself only
// holds the one-shot in-memory cancel trigger, so a restarted process
// resumes from persisted state alone.
type Orchestrator struct {
	jobs        JobStore
	records     RecordStore
	source      ContentSource
	remote      Remote
	collections Collections
	sched       Scheduler
	metrics     ItemMetrics
	logger      *slog.Logger

	batchSize int
	tickDelay time.Duration

	cancel atomic.Bool
}

// Options configures optional orchestrator behavior.
type Options struct {
	BatchSize int
	TickDelay time.Duration
	Metrics   ItemMetrics
	Logger    *slog.Logger
}

// New creates an orchestrator. sched may be nil when cron mode is unused.
func New(jobs JobStore, records RecordStore, source ContentSource, remote Remote, collections Collections, sched Scheduler, opts Options) *Orchestrator {
	o := &Orchestrator{
		jobs:        jobs,
		records:     records,
		source:      source,
		remote:      remote,
		collections: collections,
		sched:       sched,
		metrics:     opts.Metrics,
		logger:      opts.Logger,
		batchSize:   opts.BatchSize,
		tickDelay:   opts.TickDelay,
	}
	if o.batchSize <= 0 {
		o.batchSize = DefaultBatchSize
	}
	if o.tickDelay <= 0 {
		o.tickDelay = DefaultTickDelay
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// StartJob resolves the selector into a concrete item sequence and installs
// a fresh job. Fails with ErrJobAlreadyActive while another job is active
// and ErrNoItemsFound when the selector resolves to nothing.
func (o *Orchestrator) StartJob(ctx context.Context, sel Selector, mode models.JobMode, collectionID string) (*models.SyncJob, error) {
	col, err := o.collections.Get(collectionID)
	if err != nil {
		return nil, fmt.Errorf("resolve collection %q: %w", collectionID, err)
	}

	current, err := o.jobs.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("load current job: %w", err)
	}
	if current != nil && current.Status.Active() {
		return nil, ErrJobAlreadyActive
	}

	items, err := o.resolveItems(ctx, sel, col)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrNoItemsFound
	}

	status := models.JobRunning
	if mode == models.ModeCron {
		status = models.JobScheduled
	}
	now := time.Now()
	job := &models.SyncJob{
		Status:       status,
		Mode:         mode,
		CollectionID: col.ID,
		Items:        items,
		Total:        len(items),
		StartedAt:    now,
		LastUpdate:   now,
	}

	// The status check above is advisory; the store's compare-and-swap
	// create is what actually closes the read-then-write race.
	if err := o.jobs.Create(ctx, job); err != nil {
		if errors.Is(err, ErrJobConflict) {
			return nil, ErrJobAlreadyActive
		}
		return nil, fmt.Errorf("create job: %w", err)
	}
	o.cancel.Store(false)

	o.logger.Info("sync job started",
		"collection", col.ID, "mode", mode, "selector", sel.Mode, "items", len(items))
	return job, nil
}

func (o *Orchestrator) resolveItems(ctx context.Context, sel Selector, col *models.Collection) ([]string, error) {
	switch sel.Mode {
	case SelectIDs:
		return sel.IDs, nil
	case SelectRetry:
		errored, err := o.records.ListErrored(ctx, col.ID, 0)
		if err != nil {
			return nil, fmt.Errorf("list errored records: %w", err)
		}
		ids := make([]string, 0, len(errored))
		for _, rec := range errored {
			ids = append(ids, rec.ItemID)
		}
		return ids, nil
	default:
		ids, err := o.source.ListPublishedItems(ctx, col.ItemFilter)
		if err != nil {
			return nil, fmt.Errorf("list published items: %w", err)
		}
		return ids, nil
	}
}

// BatchResult reports the outcome of one ProcessNextBatch call.
type BatchResult struct {
	Job       *models.SyncJob
	Processed int // items processed in this batch
	Errors    int // item failures in this batch
}

// ProcessNextBatch processes up to batchSize unprocessed items. It is the
// idempotent re-entry point: safe to call on every scheduler tick, a no-op
// for terminal jobs, and it finalizes cancellation before touching any item.
func (o *Orchestrator) ProcessNextBatch(ctx context.Context) (*BatchResult, error) {
	job, err := o.jobs.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("load current job: %w", err)
	}
	if job == nil {
		return nil, ErrNoJob
	}

	if o.cancelRequested(job) && !job.Status.Terminal() {
		job, err = o.finalizeCanceled(ctx)
		return &BatchResult{Job: job}, err
	}

	switch job.Status {
	case models.JobScheduled:
		// claim the tick
		job, err = o.jobs.Update(ctx, JobPatch{Status: statusPtr(models.JobRunning)})
		if err != nil {
			return nil, fmt.Errorf("claim scheduled job: %w", err)
		}
	case models.JobRunning:
	default:
		// terminal or idle: report as-is
		return &BatchResult{Job: job}, nil
	}

	remaining := job.Remaining()
	if len(remaining) == 0 {
		job, err = o.finalize(ctx, models.JobCompleted, nil)
		return &BatchResult{Job: job}, err
	}
	batch := remaining
	if len(batch) > o.batchSize {
		batch = batch[:o.batchSize]
	}

	col, err := o.collections.Get(job.CollectionID)
	if err != nil {
		job, ferr := o.finalize(ctx, models.JobFailed, err)
		if ferr != nil {
			return nil, ferr
		}
		return &BatchResult{Job: job}, nil
	}

	// No item can sync without the store; a failure here is job-fatal.
	storeID, err := o.remote.EnsureVectorStore(ctx, col.Store())
	if err != nil {
		o.logger.Error("vector store resolution failed", "collection", col.ID, "error", err)
		job, ferr := o.finalize(ctx, models.JobFailed, err)
		if ferr != nil {
			return nil, ferr
		}
		return &BatchResult{Job: job}, nil
	}

	result := &BatchResult{}
	processed, errCount := job.Processed, job.Errors
	for _, itemID := range batch {
		// fine-grained cancellation between items
		if o.cancelRequested(job) {
			if _, err := o.persistProgress(ctx, job, processed, errCount); err != nil {
				return nil, err
			}
			job, err = o.finalizeCanceled(ctx)
			result.Job = job
			return result, err
		}

		outcome, err := o.syncItem(ctx, col, storeID, itemID)
		processed++
		result.Processed++
		o.recordItem(outcome, err)
		if err != nil {
			errCount++
			result.Errors++
			o.logger.Warn("item sync failed", "collection", col.ID, "item", itemID, "error", err)
		} else {
			o.logger.Debug("item synced", "collection", col.ID, "item", itemID, "outcome", outcome)
		}
	}

	job, err = o.persistProgress(ctx, job, processed, errCount)
	if err != nil {
		return nil, err
	}

	if processed >= job.Total {
		job, err = o.finalize(ctx, models.JobCompleted, nil)
		result.Job = job
		return result, err
	}

	if job.Mode == models.ModeCron {
		// loop back to scheduled and ask for the next tick
		job, err = o.jobs.Update(ctx, JobPatch{Status: statusPtr(models.JobScheduled)})
		if err != nil {
			return nil, fmt.Errorf("reschedule job: %w", err)
		}
		if o.sched != nil {
			o.sched.ScheduleOnce(o.tickDelay, o.tick)
		}
	}
	result.Job = job
	return result, nil
}

// tick is the scheduler callback for cron mode.
func (o *Orchestrator) tick() {
	if _, err := o.ProcessNextBatch(context.Background()); err != nil && !errors.Is(err, ErrNoJob) {
		o.logger.Error("scheduled batch failed", "error", err)
	}
}

// Run drives the job to a terminal state synchronously (direct mode). The
// onBatch hook, if set, observes every batch result.
func (o *Orchestrator) Run(ctx context.Context, onBatch func(*BatchResult)) (*models.SyncJob, error) {
	for {
		res, err := o.ProcessNextBatch(ctx)
		if err != nil {
			return nil, err
		}
		if onBatch != nil {
			onBatch(res)
		}
		if res.Job.Status.Terminal() {
			return res.Job, nil
		}
	}
}

// CancelAll requests cooperative cancellation: the in-memory flag stops an
// in-flight loop between items, the persisted cancel_requested covers a
// continuation after restart, and any pending scheduled tick is cleared.
func (o *Orchestrator) CancelAll(ctx context.Context) error {
	o.cancel.Store(true)
	if o.sched != nil {
		o.sched.ClearScheduled()
	}

	job, err := o.jobs.Get(ctx)
	if err != nil {
		return fmt.Errorf("load current job: %w", err)
	}
	if job == nil || job.Status.Terminal() {
		return nil
	}
	if _, err := o.jobs.Update(ctx, JobPatch{CancelRequested: boolPtr(true)}); err != nil {
		return fmt.Errorf("persist cancel request: %w", err)
	}
	o.logger.Info("sync cancellation requested")
	return nil
}

// Status returns the current job.
func (o *Orchestrator) Status(ctx context.Context) (*models.SyncJob, error) {
	job, err := o.jobs.Get(ctx)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, ErrNoJob
	}
	return job, nil
}

// recordItem forwards one item outcome to the metrics sink, if any.
func (o *Orchestrator) recordItem(outcome string, err error) {
	if o.metrics == nil {
		return
	}
	switch {
	case err != nil:
		o.metrics.RecordItem(false, false)
	case outcome == OutcomeSkippedSame || outcome == OutcomeSkippedEmpty:
		o.metrics.RecordItem(false, true)
	default:
		o.metrics.RecordItem(true, false)
	}
}

func (o *Orchestrator) cancelRequested(job *models.SyncJob) bool {
	return o.cancel.Load() || job.CancelRequested
}

func (o *Orchestrator) persistProgress(ctx context.Context, job *models.SyncJob, processed, errCount int) (*models.SyncJob, error) {
	percent := models.Progress(processed, job.Total)
	updated, err := o.jobs.Update(ctx, JobPatch{
		Processed: &processed,
		Errors:    &errCount,
		Percent:   &percent,
	})
	if err != nil {
		return nil, fmt.Errorf("persist progress: %w", err)
	}
	return updated, nil
}

// finalizeCanceled moves the job to canceled and consumes the one-shot
// in-memory trigger.
func (o *Orchestrator) finalizeCanceled(ctx context.Context) (*models.SyncJob, error) {
	defer o.cancel.Store(false)
	if o.sched != nil {
		o.sched.ClearScheduled()
	}
	job, err := o.jobs.Update(ctx, JobPatch{
		Status:          statusPtr(models.JobCanceled),
		CancelRequested: boolPtr(true),
	})
	if err != nil {
		return nil, fmt.Errorf("finalize canceled: %w", err)
	}
	o.logger.Info("sync job canceled", "processed", job.Processed, "total", job.Total)
	return job, nil
}

func (o *Orchestrator) finalize(ctx context.Context, status models.JobStatus, cause error) (*models.SyncJob, error) {
	patch := JobPatch{Status: &status}
	if status == models.JobCompleted {
		hundred := 100
		patch.Percent = &hundred
	}
	if cause != nil {
		msg := cause.Error()
		patch.ErrorMessage = &msg
	}
	job, err := o.jobs.Update(ctx, patch)
	if err != nil {
		return nil, fmt.Errorf("finalize %s: %w", status, err)
	}
	if status == models.JobFailed {
		o.logger.Error("sync job failed", "error", cause)
	} else {
		o.logger.Info("sync job finished", "status", status, "processed", job.Processed, "errors", job.Errors)
	}
	return job, nil
}

func statusPtr(s models.JobStatus) *models.JobStatus { return &s }
func boolPtr(b bool) *bool                           { return &b }

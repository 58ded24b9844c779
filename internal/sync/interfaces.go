// Package sync drives the batch synchronization of content items into a
// remote vector store: the single-job orchestrator, the per-item
// convergence routine and the collaborator contracts they run against.
package sync

import (
	"context"
	"errors"
	"time"

	"github.com/raphaelgruber/vecsync-go/internal/models"
)

// Errors returned to StartJob/ProcessNextBatch callers. These are never
// persisted as job state.
var (
	// ErrJobAlreadyActive is returned when StartJob runs while another job
	// holds the single active slot.
	ErrJobAlreadyActive = errors.New("a sync job is already active")

	// ErrJobConflict is the JobStore.Create contract error: implementations
	// wrap it when the compare-and-swap create loses to an active row.
	ErrJobConflict = errors.New("active job exists")

	// ErrNoItemsFound is returned when the item selector resolves to an
	// empty set.
	ErrNoItemsFound = errors.New("no items matched the selector")

	// ErrNoJob is returned by batch/status operations when no job was ever
	// started.
	ErrNoJob = errors.New("no sync job exists")

	// ErrInvalidItem marks a content item that is missing or unpublished.
	ErrInvalidItem = errors.New("item missing or unpublished")
)

// Item is one content item as served by the content source.
type Item struct {
	ID        string
	Title     string
	Body      string
	URL       string
	Published bool
}

// ContentSource serves the content items to be synced. Implementations live
// outside this package (filesystem corpus, CMS adapter).
type ContentSource interface {
	// ListPublishedItems returns the ids of all published items matching
	// the collection's item-type filter, in stable order.
	ListPublishedItems(ctx context.Context, itemFilter string) ([]string, error)
	// GetItem fetches one item. Returns nil when the item does not exist.
	GetItem(ctx context.Context, itemID string) (*Item, error)
}

// JobPatch is a partial update of the sync job; nil fields are left
// untouched. Stores always stamp last_update.
type JobPatch struct {
	Status          *models.JobStatus
	Processed       *int
	Errors          *int
	Percent         *int
	CancelRequested *bool
	ErrorMessage    *string
}

// JobStore persists the single sync job row.
type JobStore interface {
	// Get returns the current job, or nil when none was ever created.
	Get(ctx context.Context) (*models.SyncJob, error)
	// Create installs a fresh job. It must fail with an error wrapping
	// ErrJobConflict when the current row is still active; the check and
	// the write happen atomically.
	Create(ctx context.Context, job *models.SyncJob) error
	// Update merges the patch into the current job and returns the result.
	Update(ctx context.Context, patch JobPatch) (*models.SyncJob, error)
}

// RecordPatch is a partial update of a training record; nil fields are left
// untouched.
type RecordPatch struct {
	RemoteStoreID *string
	RemoteFileID  *string
	ContentHash   *string
	Status        *models.RecordStatus
	ErrorCode     *string
	ErrorMessage  *string
	ClearError    bool
	LastSynced    *time.Time
}

// RecordStore persists per-item training records.
type RecordStore interface {
	// GetByItem returns the record for (collection, item), nil if absent.
	GetByItem(ctx context.Context, collectionID, itemID string) (*models.TrainingRecord, error)
	Insert(ctx context.Context, rec *models.TrainingRecord) (string, error)
	Update(ctx context.Context, id string, patch RecordPatch) error
	Delete(ctx context.Context, id string) error
	// ListErrored returns records currently in error state for the
	// collection, oldest first, capped at limit.
	ListErrored(ctx context.Context, collectionID string, limit int) ([]models.TrainingRecord, error)
}

// Remote is the provider surface the syncer needs: vector-store resolution
// and file artifact lifecycle.
type Remote interface {
	EnsureVectorStore(ctx context.Context, name string) (string, error)
	UploadFile(ctx context.Context, filename string, content []byte) (string, error)
	AttachFile(ctx context.Context, storeID, fileID string) error
	DetachFile(ctx context.Context, storeID, fileID string) error
	DeleteFile(ctx context.Context, fileID string) error
}

// ItemMetrics receives one observation per processed item. Implementations
// must be safe for concurrent use.
type ItemMetrics interface {
	RecordItem(synced, skipped bool)
}

// Collections resolves a collection id to its configuration.
type Collections interface {
	Get(collectionID string) (*models.Collection, error)
}

// Scheduler triggers the next cron-mode batch. The orchestrator never
// self-invokes; it asks the scheduler for one future tick and otherwise
// just stays in a non-terminal state.
type Scheduler interface {
	ScheduleOnce(delay time.Duration, fn func())
	ClearScheduled()
}

package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// RecordStatus tracks one item's sync state against one collection.
type RecordStatus string

const (
	RecordAdding   RecordStatus = "adding"
	RecordUpdating RecordStatus = "updating"
	RecordSynced   RecordStatus = "synced"
	RecordError    RecordStatus = "error"
)

// TrainingRecord is the local bookkeeping row for one (collection, item)
// pair. Remote artifact ids stay empty until the corresponding upload
// succeeded; on failure the previous RemoteFileID is preserved so cleanup
// can be retried.
type TrainingRecord struct {
	ID            surrealmodels.RecordID `json:"id"`
	CollectionID  string                 `json:"collection_id"`
	ItemID        string                 `json:"item_id"`
	RemoteStoreID string                 `json:"remote_store_id"`
	RemoteFileID  string                 `json:"remote_file_id"`
	ContentHash   string                 `json:"content_hash"`
	Status        RecordStatus           `json:"status"`
	ErrorCode     *string                `json:"error_code,omitempty"`
	ErrorMessage  *string                `json:"error_message,omitempty"`
	LastSynced    time.Time              `json:"last_synced"`
}

// Synced reports whether the record holds a successfully converged artifact.
func (r *TrainingRecord) Synced() bool {
	return r.Status == RecordSynced
}

// Training record persistence.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/surrealdb/surrealdb.go"

	"github.com/raphaelgruber/vecsync-go/internal/models"
	vsync "github.com/raphaelgruber/vecsync-go/internal/sync"
)

// Records implements the sync.RecordStore contract on top of SurrealDB.
type Records struct {
	c *Client
}

var _ vsync.RecordStore = (*Records)(nil)

// NewRecords returns the record store backed by the given client.
func NewRecords(c *Client) *Records {
	return &Records{c: c}
}

// GetByItem returns the record for (collection, item), nil if absent.
func (r *Records) GetByItem(ctx context.Context, collectionID, itemID string) (*models.TrainingRecord, error) {
	results, err := surrealdb.Query[[]models.TrainingRecord](ctx, r.c.db, `
		SELECT * FROM training_record
		WHERE collection_id = $collection AND item_id = $item
		LIMIT 1
	`, map[string]any{"collection": collectionID, "item": itemID})
	if err != nil {
		return nil, fmt.Errorf("get record: %w", wrapQueryError(err))
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, nil
	}
	return &(*results)[0].Result[0], nil
}

// Insert creates a new record and returns its id.
func (r *Records) Insert(ctx context.Context, rec *models.TrainingRecord) (string, error) {
	results, err := surrealdb.Query[[]models.TrainingRecord](ctx, r.c.db, `
		CREATE training_record CONTENT {
			collection_id: $collection,
			item_id: $item,
			remote_store_id: $store,
			remote_file_id: $file,
			content_hash: $hash,
			status: $status
		} RETURN AFTER
	`, map[string]any{
		"collection": rec.CollectionID,
		"item":       rec.ItemID,
		"store":      rec.RemoteStoreID,
		"file":       rec.RemoteFileID,
		"hash":       rec.ContentHash,
		"status":     rec.Status,
	})
	if err != nil {
		return "", fmt.Errorf("insert record: %w", wrapQueryError(err))
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return "", fmt.Errorf("insert record: empty result")
	}
	return models.RecordIDString((*results)[0].Result[0].ID)
}

// Update merges the patch into the record.
func (r *Records) Update(ctx context.Context, id string, patch vsync.RecordPatch) error {
	merge := map[string]any{}
	if patch.RemoteStoreID != nil {
		merge["remote_store_id"] = *patch.RemoteStoreID
	}
	if patch.RemoteFileID != nil {
		merge["remote_file_id"] = *patch.RemoteFileID
	}
	if patch.ContentHash != nil {
		merge["content_hash"] = *patch.ContentHash
	}
	if patch.Status != nil {
		merge["status"] = *patch.Status
	}
	if patch.ErrorCode != nil {
		merge["error_code"] = *patch.ErrorCode
	}
	if patch.ErrorMessage != nil {
		merge["error_message"] = *patch.ErrorMessage
	}
	if patch.ClearError {
		merge["error_code"] = nil
		merge["error_message"] = nil
	}
	if patch.LastSynced != nil {
		merge["last_synced"] = *patch.LastSynced
	}
	if len(merge) == 0 {
		return nil
	}

	results, err := surrealdb.Query[[]models.TrainingRecord](ctx, r.c.db, `
		UPDATE type::record("training_record", $id) MERGE $patch RETURN AFTER
	`, map[string]any{"id": id, "patch": merge})
	if err != nil {
		return fmt.Errorf("update record: %w", wrapQueryError(err))
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return fmt.Errorf("update record %q: %w", id, ErrNotFound)
	}
	return nil
}

// Delete removes the record.
func (r *Records) Delete(ctx context.Context, id string) error {
	_, err := surrealdb.Query[any](ctx, r.c.db, `
		DELETE type::record("training_record", $id)
	`, map[string]any{"id": id})
	if err != nil {
		return fmt.Errorf("delete record: %w", wrapQueryError(err))
	}
	return nil
}

// ListErrored returns records in error state for the collection, oldest
// failure first.
func (r *Records) ListErrored(ctx context.Context, collectionID string, limit int) ([]models.TrainingRecord, error) {
	if limit <= 0 {
		limit = 1000
	}
	results, err := surrealdb.Query[[]models.TrainingRecord](ctx, r.c.db, `
		SELECT * FROM training_record
		WHERE collection_id = $collection AND status = "error"
		ORDER BY last_synced ASC
		LIMIT $limit
	`, map[string]any{"collection": collectionID, "limit": limit})
	if err != nil {
		return nil, fmt.Errorf("list errored records: %w", wrapQueryError(err))
	}
	if results == nil || len(*results) == 0 {
		return []models.TrainingRecord{}, nil
	}
	return (*results)[0].Result, nil
}

// ListByCollection returns all records for a collection, item id order.
func (r *Records) ListByCollection(ctx context.Context, collectionID string, limit int) ([]models.TrainingRecord, error) {
	if limit <= 0 {
		limit = 1000
	}
	results, err := surrealdb.Query[[]models.TrainingRecord](ctx, r.c.db, `
		SELECT * FROM training_record
		WHERE collection_id = $collection
		ORDER BY item_id ASC
		LIMIT $limit
	`, map[string]any{"collection": collectionID, "limit": limit})
	if err != nil {
		return nil, fmt.Errorf("list records: %w", wrapQueryError(err))
	}
	if results == nil || len(*results) == 0 {
		return []models.TrainingRecord{}, nil
	}
	return (*results)[0].Result, nil
}

// LastSyncedAt is a convenience for status output: the most recent
// last_synced across the collection, zero time when nothing synced yet.
func (r *Records) LastSyncedAt(ctx context.Context, collectionID string) (time.Time, error) {
	type row struct {
		LastSynced time.Time `json:"last_synced"`
	}
	results, err := surrealdb.Query[[]row](ctx, r.c.db, `
		SELECT last_synced FROM training_record
		WHERE collection_id = $collection AND status = "synced"
		ORDER BY last_synced DESC
		LIMIT 1
	`, map[string]any{"collection": collectionID})
	if err != nil {
		return time.Time{}, fmt.Errorf("last synced: %w", wrapQueryError(err))
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return time.Time{}, nil
	}
	return (*results)[0].Result[0].LastSynced, nil
}

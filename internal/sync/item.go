package sync

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/raphaelgruber/vecsync-go/internal/models"
	"github.com/raphaelgruber/vecsync-go/internal/provider"
)

// Outcomes reported for a single item.
const (
	OutcomeCreated        = "created"
	OutcomeUpdated        = "updated"
	OutcomeSkippedSame    = "skipped:unchanged"
	OutcomeSkippedEmpty   = "skipped:empty_content"
	OutcomeSkippedMissing = "skipped:invalid_item"
)

// syncItem converges one item against the remote store. It is written so
// that no call path leaves an artifact attached without a record pointing
// at it: the new file is uploaded first, attached second, and only then is
// the previous artifact detached and deleted. Any failure after the upload
// tears the new file down again before the error is reported.
func (o *Orchestrator) syncItem(ctx context.Context, col *models.Collection, storeID, itemID string) (string, error) {
	item, err := o.source.GetItem(ctx, itemID)
	if err != nil {
		return "", fmt.Errorf("fetch item %q: %w", itemID, err)
	}
	if item == nil || !item.Published {
		return OutcomeSkippedMissing, fmt.Errorf("item %q: %w", itemID, ErrInvalidItem)
	}

	content := renderItem(item)
	if strings.TrimSpace(content) == "" {
		return OutcomeSkippedEmpty, nil
	}
	hash := fingerprint(content)

	rec, err := o.records.GetByItem(ctx, col.ID, itemID)
	if err != nil {
		return "", fmt.Errorf("load record for %q: %w", itemID, err)
	}

	if rec != nil && rec.Synced() && rec.ContentHash == hash {
		// content unchanged since the last successful sync; just refresh
		// the timestamp, no remote traffic
		now := time.Now()
		if err := o.records.Update(ctx, recID(rec), RecordPatch{LastSynced: &now}); err != nil {
			return "", fmt.Errorf("refresh record for %q: %w", itemID, err)
		}
		return OutcomeSkippedSame, nil
	}

	outcome := OutcomeCreated
	recordID := ""
	oldStoreID, oldFileID := "", ""
	if rec == nil {
		id, err := o.records.Insert(ctx, &models.TrainingRecord{
			CollectionID: col.ID,
			ItemID:       itemID,
			Status:       models.RecordAdding,
		})
		if err != nil {
			return "", fmt.Errorf("insert record for %q: %w", itemID, err)
		}
		recordID = id
	} else {
		outcome = OutcomeUpdated
		recordID = recID(rec)
		oldStoreID, oldFileID = rec.RemoteStoreID, rec.RemoteFileID
		updating := models.RecordUpdating
		// a fresh attempt starts clean; stale error text from a prior
		// failure must not outlive the transition
		if err := o.records.Update(ctx, recordID, RecordPatch{Status: &updating, ClearError: true}); err != nil {
			return "", fmt.Errorf("mark record updating for %q: %w", itemID, err)
		}
	}

	newFileID, err := o.replaceArtifact(ctx, storeID, oldStoreID, oldFileID, itemID, content)
	if err != nil {
		o.persistItemError(ctx, recordID, itemID, err)
		return "", err
	}

	now := time.Now()
	synced := models.RecordSynced
	if err := o.records.Update(ctx, recordID, RecordPatch{
		RemoteStoreID: &storeID,
		RemoteFileID:  &newFileID,
		ContentHash:   &hash,
		Status:        &synced,
		ClearError:    true,
		LastSynced:    &now,
	}); err != nil {
		return "", fmt.Errorf("persist record for %q: %w", itemID, err)
	}
	return outcome, nil
}

// replaceArtifact performs the remote side of an item sync: upload the new
// file, attach it, then retire the previous artifact. On any failure after
// the upload the new file is deleted again so the store never accumulates
// artifacts no record knows about.
func (o *Orchestrator) replaceArtifact(ctx context.Context, storeID, oldStoreID, oldFileID, itemID, content string) (string, error) {
	newFileID, err := o.remote.UploadFile(ctx, itemFilename(itemID), []byte(content))
	if err != nil {
		return "", fmt.Errorf("upload %q: %w", itemID, err)
	}

	if err := o.remote.AttachFile(ctx, storeID, newFileID); err != nil {
		o.discardFile(ctx, "", newFileID)
		return "", fmt.Errorf("attach %q: %w", itemID, err)
	}

	if oldFileID != "" && oldFileID != newFileID {
		if oldStoreID == "" {
			oldStoreID = storeID
		}
		if err := o.remote.DetachFile(ctx, oldStoreID, oldFileID); err != nil {
			o.discardFile(ctx, storeID, newFileID)
			return "", fmt.Errorf("detach previous file for %q: %w", itemID, err)
		}
		if err := o.remote.DeleteFile(ctx, oldFileID); err != nil {
			o.discardFile(ctx, storeID, newFileID)
			return "", fmt.Errorf("delete previous file for %q: %w", itemID, err)
		}
	}
	return newFileID, nil
}

// discardFile tears down a freshly uploaded artifact after a failure,
// detaching it first when it already made it into a store. Best effort: a
// cleanup error is logged, the original failure stays the one surfaced to
// the caller.
func (o *Orchestrator) discardFile(ctx context.Context, storeID, fileID string) {
	if storeID != "" {
		if err := o.remote.DetachFile(ctx, storeID, fileID); err != nil {
			o.logger.Warn("detach of new file failed", "file", fileID, "error", err)
		}
	}
	if err := o.remote.DeleteFile(ctx, fileID); err != nil {
		o.logger.Warn("cleanup of new file failed", "file", fileID, "error", err)
	}
}

func (o *Orchestrator) persistItemError(ctx context.Context, recordID, itemID string, cause error) {
	status := models.RecordError
	code := errorCode(cause)
	msg := cause.Error()
	patch := RecordPatch{Status: &status, ErrorCode: &code, ErrorMessage: &msg}
	if err := o.records.Update(ctx, recordID, patch); err != nil {
		o.logger.Error("persisting item error failed", "item", itemID, "error", err)
	}
}

// RemoveItem retires an item from the collection: detach and delete its
// remote artifact, then drop the local record.
func (o *Orchestrator) RemoveItem(ctx context.Context, collectionID, itemID string) error {
	rec, err := o.records.GetByItem(ctx, collectionID, itemID)
	if err != nil {
		return fmt.Errorf("load record for %q: %w", itemID, err)
	}
	if rec == nil {
		return fmt.Errorf("item %q: %w", itemID, ErrInvalidItem)
	}

	if rec.RemoteFileID != "" {
		if rec.RemoteStoreID != "" {
			if err := o.remote.DetachFile(ctx, rec.RemoteStoreID, rec.RemoteFileID); err != nil {
				return fmt.Errorf("detach %q: %w", itemID, err)
			}
		}
		if err := o.remote.DeleteFile(ctx, rec.RemoteFileID); err != nil {
			return fmt.Errorf("delete file for %q: %w", itemID, err)
		}
	}
	if err := o.records.Delete(ctx, recID(rec)); err != nil {
		return fmt.Errorf("delete record for %q: %w", itemID, err)
	}
	o.logger.Info("item removed from sync", "collection", collectionID, "item", itemID)
	return nil
}

// renderItem builds the markdown document uploaded for one item.
func renderItem(item *Item) string {
	var b strings.Builder
	if item.Title != "" {
		b.WriteString("# ")
		b.WriteString(item.Title)
		b.WriteString("\n\n")
	}
	if item.URL != "" {
		b.WriteString("Source: ")
		b.WriteString(item.URL)
		b.WriteString("\n\n")
	}
	b.WriteString(strings.TrimSpace(item.Body))
	return strings.TrimSpace(b.String())
}

// fingerprint returns the hex sha256 of the prepared content.
func fingerprint(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// itemFilename derives a stable upload filename from the item id.
func itemFilename(itemID string) string {
	name := strings.NewReplacer("/", "_", "\\", "_", " ", "-").Replace(itemID)
	if !strings.HasSuffix(name, ".md") {
		name += ".md"
	}
	return name
}

// errorCode maps a failure to the stable code persisted on the record.
func errorCode(err error) string {
	if perr, ok := provider.AsError(err); ok {
		return string(perr.Kind)
	}
	return "sync_error"
}

func recID(rec *models.TrainingRecord) string {
	s, err := models.RecordIDString(rec.ID)
	if err != nil {
		return ""
	}
	return s
}

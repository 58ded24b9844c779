// Package models defines data structures for vecsync jobs and records.
package models

import (
	"math"
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// JobStatus represents the lifecycle state of the sync job.
type JobStatus string

const (
	JobIdle      JobStatus = "idle"
	JobScheduled JobStatus = "scheduled"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobCanceled  JobStatus = "canceled"
	JobFailed    JobStatus = "failed"
)

// Active reports whether the status claims the single job slot.
func (s JobStatus) Active() bool {
	return s == JobScheduled || s == JobRunning
}

// Terminal reports whether the status is final.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobCanceled || s == JobFailed
}

// JobMode selects how batches are driven.
type JobMode string

const (
	// ModeDirect runs the whole batch loop synchronously in the triggering call.
	ModeDirect JobMode = "direct"
	// ModeCron processes one batch per scheduler tick.
	ModeCron JobMode = "cron"
)

// SyncJob is the single persisted sync job record.
// There is at most one live row (sync_job:current); a new job overwrites the
// previous one only after it reached a terminal status.
type SyncJob struct {
	ID              surrealmodels.RecordID `json:"id"`
	Status          JobStatus              `json:"status"`
	Mode            JobMode                `json:"mode"`
	CollectionID    string                 `json:"collection_id"`
	Items           []string               `json:"items"`
	Total           int                    `json:"total"`
	Processed       int                    `json:"processed"`
	Errors          int                    `json:"errors"`
	Percent         int                    `json:"percent"`
	CancelRequested bool                   `json:"cancel_requested"`
	ErrorMessage    *string                `json:"error_message,omitempty"`
	StartedAt       time.Time              `json:"started_at"`
	LastUpdate      time.Time              `json:"last_update"`
}

// JobHistoryEntry is one archived finished job.
type JobHistoryEntry struct {
	ID           surrealmodels.RecordID `json:"id"`
	Status       JobStatus              `json:"status"`
	Mode         JobMode                `json:"mode"`
	CollectionID string                 `json:"collection_id"`
	Total        int                    `json:"total"`
	Processed    int                    `json:"processed"`
	Errors       int                    `json:"errors"`
	ErrorMessage *string                `json:"error_message,omitempty"`
	StartedAt    time.Time              `json:"started_at"`
	FinishedAt   time.Time              `json:"finished_at"`
}

// Remaining returns the item ids not yet processed, in job order.
func (j *SyncJob) Remaining() []string {
	if j.Processed >= len(j.Items) {
		return nil
	}
	return j.Items[j.Processed:]
}

// Progress recomputes the derived percent value from processed/total.
func Progress(processed, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(processed) / float64(total) * 100))
}

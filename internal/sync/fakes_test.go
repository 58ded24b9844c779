package sync

import (
	"context"
	"fmt"
	"sync"
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/raphaelgruber/vecsync-go/internal/models"
)

// memJobStore is an in-memory JobStore honoring the compare-and-swap
// create contract.
type memJobStore struct {
	mu  sync.Mutex
	job *models.SyncJob
}

func (s *memJobStore) Get(_ context.Context) (*models.SyncJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.job == nil {
		return nil, nil
	}
	cp := *s.job
	return &cp, nil
}

func (s *memJobStore) Create(_ context.Context, job *models.SyncJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.job != nil && s.job.Status.Active() {
		return fmt.Errorf("create sync_job: %w", ErrJobConflict)
	}
	cp := *job
	cp.ID = surrealmodels.NewRecordID("sync_job", "current")
	s.job = &cp
	return nil
}

func (s *memJobStore) Update(_ context.Context, patch JobPatch) (*models.SyncJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.job == nil {
		return nil, ErrNoJob
	}
	if patch.Status != nil {
		s.job.Status = *patch.Status
	}
	if patch.Processed != nil {
		s.job.Processed = *patch.Processed
	}
	if patch.Errors != nil {
		s.job.Errors = *patch.Errors
	}
	if patch.Percent != nil {
		s.job.Percent = *patch.Percent
	}
	if patch.CancelRequested != nil {
		s.job.CancelRequested = *patch.CancelRequested
	}
	if patch.ErrorMessage != nil {
		s.job.ErrorMessage = patch.ErrorMessage
	}
	s.job.LastUpdate = time.Now()
	cp := *s.job
	return &cp, nil
}

// memRecordStore is an in-memory RecordStore.
type memRecordStore struct {
	mu   sync.Mutex
	seq  int
	recs map[string]*models.TrainingRecord
}

func newMemRecordStore() *memRecordStore {
	return &memRecordStore{recs: map[string]*models.TrainingRecord{}}
}

func (s *memRecordStore) GetByItem(_ context.Context, collectionID, itemID string) (*models.TrainingRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.recs {
		if rec.CollectionID == collectionID && rec.ItemID == itemID {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *memRecordStore) Insert(_ context.Context, rec *models.TrainingRecord) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	id := fmt.Sprintf("rec-%d", s.seq)
	cp := *rec
	cp.ID = surrealmodels.NewRecordID("training_record", id)
	s.recs[id] = &cp
	return id, nil
}

func (s *memRecordStore) Update(_ context.Context, id string, patch RecordPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recs[id]
	if !ok {
		return fmt.Errorf("record %q not found", id)
	}
	if patch.RemoteStoreID != nil {
		rec.RemoteStoreID = *patch.RemoteStoreID
	}
	if patch.RemoteFileID != nil {
		rec.RemoteFileID = *patch.RemoteFileID
	}
	if patch.ContentHash != nil {
		rec.ContentHash = *patch.ContentHash
	}
	if patch.Status != nil {
		rec.Status = *patch.Status
	}
	if patch.ErrorCode != nil {
		rec.ErrorCode = patch.ErrorCode
	}
	if patch.ErrorMessage != nil {
		rec.ErrorMessage = patch.ErrorMessage
	}
	if patch.ClearError {
		rec.ErrorCode = nil
		rec.ErrorMessage = nil
	}
	if patch.LastSynced != nil {
		rec.LastSynced = *patch.LastSynced
	}
	return nil
}

func (s *memRecordStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.recs[id]; !ok {
		return fmt.Errorf("record %q not found", id)
	}
	delete(s.recs, id)
	return nil
}

func (s *memRecordStore) ListErrored(_ context.Context, collectionID string, _ int) ([]models.TrainingRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.TrainingRecord
	for _, rec := range s.recs {
		if rec.CollectionID == collectionID && rec.Status == models.RecordError {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (s *memRecordStore) byItem(collectionID, itemID string) *models.TrainingRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.recs {
		if rec.CollectionID == collectionID && rec.ItemID == itemID {
			cp := *rec
			return &cp
		}
	}
	return nil
}

// fakeSource serves a fixed item set.
type fakeSource struct {
	items map[string]*Item
	order []string
}

func newFakeSource(items ...*Item) *fakeSource {
	s := &fakeSource{items: map[string]*Item{}}
	for _, it := range items {
		s.items[it.ID] = it
		s.order = append(s.order, it.ID)
	}
	return s
}

func (s *fakeSource) ListPublishedItems(_ context.Context, _ string) ([]string, error) {
	var ids []string
	for _, id := range s.order {
		if s.items[id].Published {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (s *fakeSource) GetItem(_ context.Context, itemID string) (*Item, error) {
	return s.items[itemID], nil
}

// remoteCall records one invocation against the fake remote.
type remoteCall struct {
	op    string // "ensure", "upload", "attach", "detach", "delete"
	store string
	file  string
	name  string
}

// fakeRemote records calls and fails on demand. failOn maps an op name to
// the error returned; failOnce maps an op name to errors consumed one per
// call.
type fakeRemote struct {
	mu       sync.Mutex
	calls    []remoteCall
	failOn   map[string]error
	failOnce map[string][]error
	fileSeq  int
	onCall   func(remoteCall)
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{failOn: map[string]error{}, failOnce: map[string][]error{}}
}

func (r *fakeRemote) fail(op string) error {
	if errs := r.failOnce[op]; len(errs) > 0 {
		err := errs[0]
		r.failOnce[op] = errs[1:]
		return err
	}
	return r.failOn[op]
}

func (r *fakeRemote) record(c remoteCall) error {
	r.mu.Lock()
	r.calls = append(r.calls, c)
	err := r.fail(c.op)
	hook := r.onCall
	r.mu.Unlock()
	if hook != nil {
		hook(c)
	}
	return err
}

func (r *fakeRemote) EnsureVectorStore(_ context.Context, name string) (string, error) {
	if err := r.record(remoteCall{op: "ensure", name: name}); err != nil {
		return "", err
	}
	return "vs_" + name, nil
}

func (r *fakeRemote) UploadFile(_ context.Context, filename string, _ []byte) (string, error) {
	r.mu.Lock()
	r.fileSeq++
	id := fmt.Sprintf("file-%d", r.fileSeq)
	r.mu.Unlock()
	if err := r.record(remoteCall{op: "upload", name: filename, file: id}); err != nil {
		return "", err
	}
	return id, nil
}

func (r *fakeRemote) AttachFile(_ context.Context, storeID, fileID string) error {
	return r.record(remoteCall{op: "attach", store: storeID, file: fileID})
}

func (r *fakeRemote) DetachFile(_ context.Context, storeID, fileID string) error {
	return r.record(remoteCall{op: "detach", store: storeID, file: fileID})
}

func (r *fakeRemote) DeleteFile(_ context.Context, fileID string) error {
	return r.record(remoteCall{op: "delete", file: fileID})
}

func (r *fakeRemote) ops() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.calls))
	for i, c := range r.calls {
		out[i] = c.op
	}
	return out
}

func (r *fakeRemote) countOp(op string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if c.op == op {
			n++
		}
	}
	return n
}

// fakeMetrics tallies item outcomes.
type fakeMetrics struct {
	mu      sync.Mutex
	synced  int
	skipped int
	failed  int
}

func (m *fakeMetrics) RecordItem(synced, skipped bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case skipped:
		m.skipped++
	case synced:
		m.synced++
	default:
		m.failed++
	}
}

func (m *fakeMetrics) counts() (synced, skipped, failed int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.synced, m.skipped, m.failed
}

// fakeCollections serves a single collection.
type fakeCollections struct {
	col *models.Collection
}

func (c *fakeCollections) Get(collectionID string) (*models.Collection, error) {
	if c.col == nil || c.col.ID != collectionID {
		return nil, fmt.Errorf("unknown collection %q", collectionID)
	}
	return c.col, nil
}

// fakeScheduler records scheduling without firing anything.
type fakeScheduler struct {
	mu        sync.Mutex
	scheduled []time.Duration
	pending   func()
	cleared   int
}

func (s *fakeScheduler) ScheduleOnce(delay time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scheduled = append(s.scheduled, delay)
	s.pending = fn
}

func (s *fakeScheduler) ClearScheduled() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleared++
	s.pending = nil
}

// firePending runs the last scheduled callback, if any.
func (s *fakeScheduler) firePending() bool {
	s.mu.Lock()
	fn := s.pending
	s.pending = nil
	s.mu.Unlock()
	if fn == nil {
		return false
	}
	fn()
	return true
}

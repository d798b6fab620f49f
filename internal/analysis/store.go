package analysis

import (
	"context"
	"sync"
	"time"

	"manbo/pkg/errors"
)

// Update carries the terminal payload of a transition. Result and Error are
// only honored when the target status is terminal.
type Update struct {
	Result map[string]interface{}
	Error  string
}

// Store persists job records. Implementations must make Get return a
// snapshot that later mutations cannot alter.
type Store interface {
	Create(ctx context.Context, record *JobRecord) error
	Get(ctx context.Context, id string) (*JobRecord, error)
	Transition(ctx context.Context, id string, next JobStatus, update Update) error
}

// MemoryStore is the in-process Store used when Redis is not configured.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]*JobRecord
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]*JobRecord)}
}

// Create stores a new record. The record must be in the queued state.
func (s *MemoryStore) Create(_ context.Context, record *JobRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[record.ID]; exists {
		return errors.Wrapf(errors.ErrAlreadyExists, "job %s", record.ID)
	}

	clone := cloneRecord(record)
	s.jobs[record.ID] = clone
	return nil
}

// Get returns a deep copy of the record.
func (s *MemoryStore) Get(_ context.Context, id string) (*JobRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.jobs[id]
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "job %s", id)
	}
	return cloneRecord(record), nil
}

// Transition advances a job's status, setting StartedAt when entering
// running and CompletedAt when entering a terminal state. Timestamps are
// set exactly once; invalid transitions are rejected.
func (s *MemoryStore) Transition(_ context.Context, id string, next JobStatus, update Update) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.jobs[id]
	if !ok {
		return errors.Wrapf(errors.ErrNotFound, "job %s", id)
	}
	if !CanTransition(record.Status, next) {
		return errors.Wrapf(errors.ErrInvalidTransition, "job %s: %s -> %s", id, record.Status, next)
	}

	ApplyTransition(record, next, update, time.Now())
	return nil
}

// ApplyTransition mutates a record for a validated status change. External
// stores reuse it so timestamp and payload semantics stay in one place.
func ApplyTransition(record *JobRecord, next JobStatus, update Update, now time.Time) {
	record.Status = next

	switch next {
	case StatusRunning:
		if record.StartedAt == nil {
			t := now
			record.StartedAt = &t
		}
	case StatusCompleted:
		if record.CompletedAt == nil {
			t := now
			record.CompletedAt = &t
		}
		record.Result = update.Result
		record.Error = ""
	case StatusFailed:
		if record.CompletedAt == nil {
			t := now
			record.CompletedAt = &t
		}
		record.Result = nil
		record.Error = update.Error
	}
}

func cloneRecord(record *JobRecord) *JobRecord {
	clone := *record
	if record.StartedAt != nil {
		t := *record.StartedAt
		clone.StartedAt = &t
	}
	if record.CompletedAt != nil {
		t := *record.CompletedAt
		clone.CompletedAt = &t
	}
	if record.Params.Analysts != nil {
		clone.Params.Analysts = append([]string(nil), record.Params.Analysts...)
	}
	if record.Result != nil {
		clone.Result = make(map[string]interface{}, len(record.Result))
		for k, v := range record.Result {
			clone.Result[k] = v
		}
	}
	return &clone
}

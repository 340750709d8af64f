package job

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
)

// Compile-time check that MemoryRepository implements Repository.
var _ Repository = (*MemoryRepository)(nil)

// MemoryRepository is an in-memory implementation of Repository.
// It uses a map with RWMutex for thread-safe access.
type MemoryRepository struct {
	mu     sync.RWMutex
	events map[string]EventRecord
}

// NewMemoryRepository creates a new in-memory event repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		events: make(map[string]EventRecord),
	}
}

// Save stores a copy of ev.
func (r *MemoryRepository) Save(_ context.Context, ev EventRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[ev.ProjectID] = cloneRecord(ev)
	return nil
}

// Latest returns a copy of the stored record.
func (r *MemoryRepository) Latest(_ context.Context, projectID string) (EventRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ev, ok := r.events[projectID]
	if !ok {
		return EventRecord{}, ErrEventNotFound
	}
	return cloneRecord(ev), nil
}

// List returns copies of all records, most recent first.
func (r *MemoryRepository) List(_ context.Context) ([]EventRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]EventRecord, 0, len(r.events))
	for _, ev := range r.events {
		result = append(result, cloneRecord(ev))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ReceivedAt.After(result[j].ReceivedAt)
	})
	return result, nil
}

// Delete removes the record of a project.
func (r *MemoryRepository) Delete(_ context.Context, projectID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.events[projectID]; !ok {
		return ErrEventNotFound
	}
	delete(r.events, projectID)
	return nil
}

func cloneRecord(ev EventRecord) EventRecord {
	if ev.Payload != nil {
		ev.Payload = append(json.RawMessage(nil), ev.Payload...)
	}
	return ev
}

package record

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory record store for testing.
// Data is lost when the process exits.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[MessageRef]*FlowRecord
	closed  bool
}

// NewMemoryStore creates a new in-memory record store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[MessageRef]*FlowRecord),
	}
}

// Get implements Store.
func (m *MemoryStore) Get(_ context.Context, ref MessageRef) (*FlowRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	rec, ok := m.records[ref]
	if !ok {
		return nil, ErrNotFound
	}
	return copyRecord(rec), nil
}

// ByFlowID implements Store.
func (m *MemoryStore) ByFlowID(_ context.Context, flowID uuid.UUID) (*FlowRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	var newest *FlowRecord
	for _, rec := range m.records {
		if rec.FlowID != flowID {
			continue
		}
		if newest == nil || rec.CreatedAt.After(newest.CreatedAt) {
			newest = rec
		}
	}
	if newest == nil {
		return nil, ErrNotFound
	}
	return copyRecord(newest), nil
}

// Put implements Store.
func (m *MemoryStore) Put(_ context.Context, rec *FlowRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	stored := copyRecord(rec)
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	if stored.ProgressClassID == "" {
		stored.ProgressClassID = NoProgress
	}
	m.records[rec.Message] = stored
	return nil
}

// ClearProgress implements Store.
func (m *MemoryStore) ClearProgress(_ context.Context, ref MessageRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	rec, ok := m.records[ref]
	if !ok {
		return ErrNotFound
	}
	rec.ProgressClassID = NoProgress
	rec.Progress = nil
	return nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(_ context.Context, ref MessageRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	delete(m.records, ref)
	return nil
}

// MessageIDsForFlow implements Store.
func (m *MemoryStore) MessageIDsForFlow(_ context.Context, flowID uuid.UUID, channelID int64) ([]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	ids := []int64{}
	for ref, rec := range m.records {
		if rec.FlowID == flowID && ref.ChannelID == channelID {
			ids = append(ids, ref.MessageID)
		}
	}
	return ids, nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	return nil
}

func copyRecord(rec *FlowRecord) *FlowRecord {
	cp := *rec
	cp.Config = append([]byte(nil), rec.Config...)
	if rec.Progress != nil {
		cp.Progress = append([]byte(nil), rec.Progress...)
	}
	return &cp
}

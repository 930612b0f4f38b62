package memory

import (
	"fmt"
	"sort"
	"sync"

	"github.com/PolyEmperion/PolyEmperion-sdk/pkg/persistence"
	"github.com/PolyEmperion/PolyEmperion-sdk/pkg/types"
)

// MemorySubmissionStore is an in-memory ISubmissionStore intended for tests
// and short-lived tooling. All data is lost when the process exits.
// Thread-safe via sync.RWMutex; entries are copied on the way in and out to
// prevent external mutation.
type MemorySubmissionStore struct {
	mu      sync.RWMutex
	entries map[string]*types.SubmissionEntry
	closed  bool
}

var _ persistence.ISubmissionStore = (*MemorySubmissionStore)(nil)

// NewMemorySubmissionStore creates an empty in-memory journal.
func NewMemorySubmissionStore() *MemorySubmissionStore {
	return &MemorySubmissionStore{
		entries: make(map[string]*types.SubmissionEntry),
	}
}

// SaveSubmission persists a journal entry, overwriting any existing entry
// with the same transaction id.
func (m *MemorySubmissionStore) SaveSubmission(entry *types.SubmissionEntry) error {
	if entry == nil {
		return fmt.Errorf("cannot save nil SubmissionEntry")
	}
	if entry.TransactionID == "" {
		return fmt.Errorf("cannot save SubmissionEntry without a transaction id")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("submission store is closed")
	}

	copied := *entry
	m.entries[entry.TransactionID] = &copied
	return nil
}

// UpdateObservedState merges a freshly observed record into the stored entry.
func (m *MemorySubmissionStore) UpdateObservedState(id string, record *types.TransactionRecord) error {
	if record == nil {
		return fmt.Errorf("cannot update from nil TransactionRecord")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("submission store is closed")
	}

	entry, exists := m.entries[id]
	if !exists {
		return nil
	}
	entry.State = record.State
	if record.RelayHash != "" {
		entry.RelayHash = record.RelayHash
	}
	if record.ChainTransactionHash != "" {
		entry.ChainTransactionHash = record.ChainTransactionHash
	}
	return nil
}

// GetSubmission retrieves an entry by transaction id.
func (m *MemorySubmissionStore) GetSubmission(id string) (*types.SubmissionEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, fmt.Errorf("submission store is closed")
	}

	entry, exists := m.entries[id]
	if !exists {
		return nil, nil // not found is not an error
	}
	copied := *entry
	return &copied, nil
}

// ListSubmissions returns all entries ordered by submission time.
func (m *MemorySubmissionStore) ListSubmissions() ([]*types.SubmissionEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, fmt.Errorf("submission store is closed")
	}

	entries := make([]*types.SubmissionEntry, 0, len(m.entries))
	for _, entry := range m.entries {
		copied := *entry
		entries = append(entries, &copied)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].SubmittedAt.Before(entries[j].SubmittedAt)
	})
	return entries, nil
}

// DeleteSubmission removes an entry. Idempotent.
func (m *MemorySubmissionStore) DeleteSubmission(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("submission store is closed")
	}

	delete(m.entries, id)
	return nil
}

// Close marks the store closed. Idempotent.
func (m *MemorySubmissionStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// HealthCheck reports whether the store is usable.
func (m *MemorySubmissionStore) HealthCheck() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return fmt.Errorf("submission store is closed")
	}
	return nil
}

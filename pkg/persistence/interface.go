package persistence

import "github.com/PolyEmperion/PolyEmperion-sdk/pkg/types"

// ISubmissionStore is a local journal of submissions made through this
// client. The relay remains the source of truth for transaction state; the
// journal mirrors what was submitted and last observed so tools can resume
// tracking across restarts.
//
// All implementations must be thread-safe.
type ISubmissionStore interface {
	// SaveSubmission persists a journal entry, keyed by transaction id.
	// Saving an existing id overwrites it (idempotent upsert).
	SaveSubmission(entry *types.SubmissionEntry) error

	// UpdateObservedState merges a freshly observed record into the stored
	// entry. Unknown ids are ignored; returns error only on storage failure.
	UpdateObservedState(id string, record *types.TransactionRecord) error

	// GetSubmission retrieves an entry by transaction id.
	// Returns nil if the id is unknown, error only on storage failure.
	GetSubmission(id string) (*types.SubmissionEntry, error)

	// ListSubmissions returns all entries ordered by submission time
	// (oldest first). Returns an empty slice when the journal is empty.
	ListSubmissions() ([]*types.SubmissionEntry, error)

	// DeleteSubmission removes an entry. Idempotent; returns nil for
	// unknown ids.
	DeleteSubmission(id string) error

	// Close cleanly shuts down the store. Idempotent; operations after
	// Close return errors.
	Close() error

	// HealthCheck verifies the store is operational. Called by tools at
	// startup to fail fast.
	HealthCheck() error
}

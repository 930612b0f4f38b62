package memory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/PolyEmperion/PolyEmperion-sdk/pkg/types"
)

func testEntry(id string, submittedAt time.Time) *types.SubmissionEntry {
	return &types.SubmissionEntry{
		TransactionID: id,
		Kind:          types.SubmissionKindProxy,
		State:         types.StateNew,
		SubmittedAt:   submittedAt,
	}
}

func TestMemorySubmissionStore_SaveAndGet(t *testing.T) {
	store := NewMemorySubmissionStore()
	defer func() { _ = store.Close() }()

	require.NoError(t, store.SaveSubmission(testEntry("tx-1", time.Now())))

	entry, err := store.GetSubmission("tx-1")
	require.NoError(t, err)
	require.NotNil(t, entry)
	require.Equal(t, types.StateNew, entry.State)

	// unknown ids are not an error
	entry, err = store.GetSubmission("missing")
	require.NoError(t, err)
	require.Nil(t, entry)
}

func TestMemorySubmissionStore_SaveValidation(t *testing.T) {
	store := NewMemorySubmissionStore()
	defer func() { _ = store.Close() }()

	require.Error(t, store.SaveSubmission(nil))
	require.Error(t, store.SaveSubmission(&types.SubmissionEntry{}))
}

func TestMemorySubmissionStore_SaveIsUpsert(t *testing.T) {
	store := NewMemorySubmissionStore()
	defer func() { _ = store.Close() }()

	first := testEntry("tx-1", time.Now())
	require.NoError(t, store.SaveSubmission(first))

	second := testEntry("tx-1", time.Now())
	second.State = types.StateMined
	require.NoError(t, store.SaveSubmission(second))

	entry, err := store.GetSubmission("tx-1")
	require.NoError(t, err)
	require.Equal(t, types.StateMined, entry.State)
}

func TestMemorySubmissionStore_UpdateObservedState(t *testing.T) {
	store := NewMemorySubmissionStore()
	defer func() { _ = store.Close() }()

	require.NoError(t, store.SaveSubmission(testEntry("tx-1", time.Now())))

	require.NoError(t, store.UpdateObservedState("tx-1", &types.TransactionRecord{
		ID:                   "tx-1",
		State:                types.StateConfirmed,
		ChainTransactionHash: "0xcafe",
	}))

	entry, err := store.GetSubmission("tx-1")
	require.NoError(t, err)
	require.Equal(t, types.StateConfirmed, entry.State)
	require.Equal(t, "0xcafe", entry.ChainTransactionHash)

	// observing an id that was never journaled is a no-op
	require.NoError(t, store.UpdateObservedState("unknown", &types.TransactionRecord{
		ID:    "unknown",
		State: types.StateConfirmed,
	}))
	entry, err = store.GetSubmission("unknown")
	require.NoError(t, err)
	require.Nil(t, entry)
}

func TestMemorySubmissionStore_UpdateKeepsExistingHashes(t *testing.T) {
	store := NewMemorySubmissionStore()
	defer func() { _ = store.Close() }()

	saved := testEntry("tx-1", time.Now())
	saved.RelayHash = "0xoriginal"
	require.NoError(t, store.SaveSubmission(saved))

	// an observation without hashes must not erase the stored ones
	require.NoError(t, store.UpdateObservedState("tx-1", &types.TransactionRecord{
		ID:    "tx-1",
		State: types.StateMined,
	}))

	entry, err := store.GetSubmission("tx-1")
	require.NoError(t, err)
	require.Equal(t, "0xoriginal", entry.RelayHash)
	require.Equal(t, types.StateMined, entry.State)
}

func TestMemorySubmissionStore_ListOrderedBySubmissionTime(t *testing.T) {
	store := NewMemorySubmissionStore()
	defer func() { _ = store.Close() }()

	base := time.Now()
	require.NoError(t, store.SaveSubmission(testEntry("tx-c", base.Add(2*time.Second))))
	require.NoError(t, store.SaveSubmission(testEntry("tx-a", base)))
	require.NoError(t, store.SaveSubmission(testEntry("tx-b", base.Add(time.Second))))

	entries, err := store.ListSubmissions()
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, "tx-a", entries[0].TransactionID)
	require.Equal(t, "tx-b", entries[1].TransactionID)
	require.Equal(t, "tx-c", entries[2].TransactionID)
}

func TestMemorySubmissionStore_Delete(t *testing.T) {
	store := NewMemorySubmissionStore()
	defer func() { _ = store.Close() }()

	require.NoError(t, store.SaveSubmission(testEntry("tx-1", time.Now())))
	require.NoError(t, store.DeleteSubmission("tx-1"))

	entry, err := store.GetSubmission("tx-1")
	require.NoError(t, err)
	require.Nil(t, entry)

	// deleting again is fine
	require.NoError(t, store.DeleteSubmission("tx-1"))
}

func TestMemorySubmissionStore_CopiesOnWayInAndOut(t *testing.T) {
	store := NewMemorySubmissionStore()
	defer func() { _ = store.Close() }()

	original := testEntry("tx-1", time.Now())
	require.NoError(t, store.SaveSubmission(original))
	original.State = types.StateFailed

	entry, err := store.GetSubmission("tx-1")
	require.NoError(t, err)
	require.Equal(t, types.StateNew, entry.State)

	entry.State = types.StateFailed
	again, err := store.GetSubmission("tx-1")
	require.NoError(t, err)
	require.Equal(t, types.StateNew, again.State)
}

func TestMemorySubmissionStore_Close(t *testing.T) {
	store := NewMemorySubmissionStore()
	require.NoError(t, store.HealthCheck())
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())

	require.Error(t, store.HealthCheck())
	require.Error(t, store.SaveSubmission(testEntry("tx-1", time.Now())))
	_, err := store.GetSubmission("tx-1")
	require.Error(t, err)
	_, err = store.ListSubmissions()
	require.Error(t, err)
}

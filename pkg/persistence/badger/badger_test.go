package badger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/PolyEmperion/PolyEmperion-sdk/pkg/types"
)

func newTestStore(t *testing.T) *BadgerSubmissionStore {
	t.Helper()
	store, err := NewBadgerSubmissionStore(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestBadgerSubmissionStore_RoundTrip(t *testing.T) {
	store := newTestStore(t)

	submitted := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, store.SaveSubmission(&types.SubmissionEntry{
		TransactionID: "tx-1",
		Kind:          types.SubmissionKindSafe,
		State:         types.StateNew,
		Metadata:      "first",
		SubmittedAt:   submitted,
	}))

	entry, err := store.GetSubmission("tx-1")
	require.NoError(t, err)
	require.NotNil(t, entry)
	require.Equal(t, types.SubmissionKindSafe, entry.Kind)
	require.Equal(t, "first", entry.Metadata)
	require.True(t, entry.SubmittedAt.Equal(submitted))

	missing, err := store.GetSubmission("missing")
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestBadgerSubmissionStore_UpdateObservedState(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.SaveSubmission(&types.SubmissionEntry{
		TransactionID: "tx-1",
		Kind:          types.SubmissionKindProxy,
		State:         types.StateNew,
		SubmittedAt:   time.Now(),
	}))

	require.NoError(t, store.UpdateObservedState("tx-1", &types.TransactionRecord{
		ID:                   "tx-1",
		State:                types.StateConfirmed,
		RelayHash:            "0xaaaa",
		ChainTransactionHash: "0xbbbb",
	}))

	entry, err := store.GetSubmission("tx-1")
	require.NoError(t, err)
	require.Equal(t, types.StateConfirmed, entry.State)
	require.Equal(t, "0xaaaa", entry.RelayHash)
	require.Equal(t, "0xbbbb", entry.ChainTransactionHash)

	// unknown ids are ignored, not created
	require.NoError(t, store.UpdateObservedState("unknown", &types.TransactionRecord{
		ID:    "unknown",
		State: types.StateConfirmed,
	}))
	entry, err = store.GetSubmission("unknown")
	require.NoError(t, err)
	require.Nil(t, entry)
}

func TestBadgerSubmissionStore_ListAndDelete(t *testing.T) {
	store := newTestStore(t)

	base := time.Now().UTC()
	for i, id := range []string{"tx-b", "tx-a", "tx-c"} {
		offsets := []time.Duration{time.Second, 0, 2 * time.Second}
		require.NoError(t, store.SaveSubmission(&types.SubmissionEntry{
			TransactionID: id,
			Kind:          types.SubmissionKindProxy,
			State:         types.StateNew,
			SubmittedAt:   base.Add(offsets[i]),
		}))
	}

	entries, err := store.ListSubmissions()
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, "tx-a", entries[0].TransactionID)
	require.Equal(t, "tx-b", entries[1].TransactionID)
	require.Equal(t, "tx-c", entries[2].TransactionID)

	require.NoError(t, store.DeleteSubmission("tx-b"))
	require.NoError(t, store.DeleteSubmission("tx-b"))

	entries, err = store.ListSubmissions()
	require.NoError(t, err)
	require.Len(t, entries, 2)
}

func TestBadgerSubmissionStore_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	store, err := NewBadgerSubmissionStore(dir, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, store.SaveSubmission(&types.SubmissionEntry{
		TransactionID: "tx-durable",
		Kind:          types.SubmissionKindProxy,
		State:         types.StateMined,
		SubmittedAt:   time.Now(),
	}))
	require.NoError(t, store.Close())

	reopened, err := NewBadgerSubmissionStore(dir, zap.NewNop())
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	entry, err := reopened.GetSubmission("tx-durable")
	require.NoError(t, err)
	require.NotNil(t, entry)
	require.Equal(t, types.StateMined, entry.State)
}

func TestBadgerSubmissionStore_Close(t *testing.T) {
	store, err := NewBadgerSubmissionStore(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, store.HealthCheck())
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())

	require.Error(t, store.HealthCheck())
	_, err = store.GetSubmission("tx-1")
	require.Error(t, err)
}

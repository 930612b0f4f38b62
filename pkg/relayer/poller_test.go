package relayer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/PolyEmperion/PolyEmperion-sdk/pkg/persistence/memory"
	"github.com/PolyEmperion/PolyEmperion-sdk/pkg/testutil"
	"github.com/PolyEmperion/PolyEmperion-sdk/pkg/types"
)

func newPollerTestClient(t *testing.T, relay *testutil.FakeRelay) *Client {
	t.Helper()
	client, err := NewClient(&ClientConfig{
		Backend: &BackendConfig{SecretKey: testSecretKey},
		Relay:   relay,
	})
	require.NoError(t, err)
	return client
}

func TestAwaitConfirmation_ImmediateDesiredState(t *testing.T) {
	relay := testutil.NewFakeRelay()
	relay.StateSequences["tx-1"] = []types.TransactionState{types.StateConfirmed}
	client := newPollerTestClient(t, relay)

	// an hour-long interval proves the first poll never sleeps
	start := time.Now()
	record, reached, err := client.AwaitConfirmation(context.Background(), "tx-1", &ConfirmationOptions{
		PollInterval: time.Hour,
	})
	require.NoError(t, err)
	require.True(t, reached)
	require.Equal(t, types.StateConfirmed, record.State)
	require.Equal(t, 1, relay.PollCounts["tx-1"])
	require.Less(t, time.Since(start), time.Second)
}

func TestAwaitConfirmation_FailStateStopsPolling(t *testing.T) {
	relay := testutil.NewFakeRelay()
	relay.StateSequences["tx-2"] = []types.TransactionState{types.StateFailed}
	client := newPollerTestClient(t, relay)

	record, reached, err := client.AwaitConfirmation(context.Background(), "tx-2", &ConfirmationOptions{
		PollInterval: time.Hour,
	})
	require.NoError(t, err)
	require.False(t, reached)
	require.Equal(t, types.StateFailed, record.State)
	require.Equal(t, 1, relay.PollCounts["tx-2"])
}

func TestAwaitConfirmation_BudgetExhausted(t *testing.T) {
	relay := testutil.NewFakeRelay()
	relay.StateSequences["tx-3"] = []types.TransactionState{types.StateNew}
	client := newPollerTestClient(t, relay)

	record, reached, err := client.AwaitConfirmation(context.Background(), "tx-3", &ConfirmationOptions{
		MaxPolls:     3,
		PollInterval: time.Millisecond,
	})
	require.NoError(t, err)
	require.False(t, reached)
	require.Equal(t, types.StateNew, record.State)
	require.Equal(t, 3, relay.PollCounts["tx-3"])
}

func TestAwaitConfirmation_ProgressesThroughStates(t *testing.T) {
	relay := testutil.NewFakeRelay()
	relay.StateSequences["tx-4"] = []types.TransactionState{
		types.StateNew,
		types.StateMined,
		types.StateConfirmed,
	}
	client := newPollerTestClient(t, relay)

	record, reached, err := client.AwaitConfirmation(context.Background(), "tx-4", &ConfirmationOptions{
		MaxPolls:     10,
		PollInterval: time.Millisecond,
	})
	require.NoError(t, err)
	require.True(t, reached)
	require.Equal(t, types.StateConfirmed, record.State)
	require.Equal(t, 3, relay.PollCounts["tx-4"])
}

func TestAwaitConfirmation_CustomDesiredStates(t *testing.T) {
	relay := testutil.NewFakeRelay()
	relay.StateSequences["tx-5"] = []types.TransactionState{
		types.StateNew,
		types.StateMined,
	}
	client := newPollerTestClient(t, relay)

	record, reached, err := client.AwaitConfirmation(context.Background(), "tx-5", &ConfirmationOptions{
		DesiredStates: []types.TransactionState{types.StateMined, types.StateConfirmed},
		MaxPolls:      10,
		PollInterval:  time.Millisecond,
	})
	require.NoError(t, err)
	require.True(t, reached)
	require.Equal(t, types.StateMined, record.State)
	require.Equal(t, 2, relay.PollCounts["tx-5"])
}

func TestAwaitConfirmation_CancellationInterruptsWait(t *testing.T) {
	relay := testutil.NewFakeRelay()
	relay.StateSequences["tx-6"] = []types.TransactionState{types.StateNew, types.StateNew}
	client := newPollerTestClient(t, relay)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, reached, err := client.AwaitConfirmation(ctx, "tx-6", &ConfirmationOptions{
		MaxPolls:     10,
		PollInterval: time.Hour,
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.False(t, reached)
	// one poll ran before the wait was interrupted
	require.Equal(t, 1, relay.PollCounts["tx-6"])
}

func TestAwaitConfirmation_TransportErrorPropagates(t *testing.T) {
	relay := testutil.NewFakeRelay()
	relay.QueryErr = errors.New("relay unreachable")
	client := newPollerTestClient(t, relay)

	_, reached, err := client.AwaitConfirmation(context.Background(), "tx-7", nil)
	require.ErrorContains(t, err, "relay unreachable")
	require.False(t, reached)
}

func TestAwaitConfirmation_UnknownTransaction(t *testing.T) {
	relay := testutil.NewFakeRelay()
	client := newPollerTestClient(t, relay)

	_, reached, err := client.AwaitConfirmation(context.Background(), "no-such-id", nil)
	require.ErrorContains(t, err, "no entries")
	require.False(t, reached)
}

func TestAwaitConfirmation_UpdatesJournal(t *testing.T) {
	relay := testutil.NewFakeRelay()
	relay.SubmitResponse = submitResponse("tx-8", types.StateNew)
	relay.StateSequences["tx-8"] = []types.TransactionState{
		types.StateNew,
		types.StateConfirmed,
	}

	store := memory.NewMemorySubmissionStore()
	client, err := NewClient(&ClientConfig{
		Backend: &BackendConfig{SecretKey: testSecretKey},
		Relay:   relay,
		Store:   store,
	})
	require.NoError(t, err)

	record, err := client.SubmitProxyBatch(context.Background(), []types.ProxyCall{testProxyCall()}, "")
	require.NoError(t, err)
	require.Equal(t, "tx-8", record.ID)

	_, reached, err := client.AwaitConfirmation(context.Background(), "tx-8", &ConfirmationOptions{
		MaxPolls:     5,
		PollInterval: time.Millisecond,
	})
	require.NoError(t, err)
	require.True(t, reached)

	entry, err := store.GetSubmission("tx-8")
	require.NoError(t, err)
	require.NotNil(t, entry)
	require.Equal(t, types.StateConfirmed, entry.State)
}

func TestConfirmationOptionsDefaults(t *testing.T) {
	merged := (&ConfirmationOptions{MaxPolls: 5}).withDefaults()
	require.Equal(t, 5, merged.MaxPolls)
	require.Equal(t, []types.TransactionState{types.StateConfirmed}, merged.DesiredStates)
	require.Equal(t, types.StateFailed, merged.FailState)
	require.Equal(t, 2*time.Second, merged.PollInterval)

	defaults := (*ConfirmationOptions)(nil).withDefaults()
	require.Equal(t, 60, defaults.MaxPolls)
	require.Equal(t, 2*time.Second, defaults.PollInterval)
}

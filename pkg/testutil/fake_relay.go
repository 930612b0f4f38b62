package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/PolyEmperion/PolyEmperion-sdk/pkg/clients/relayClient"
	"github.com/PolyEmperion/PolyEmperion-sdk/pkg/types"
)

// FakeRelay is a scripted in-memory IRelayClient for tests. Each call to
// GetTransaction advances through the scripted state sequence for that id,
// so poll loops observe realistic transitions without a live relay.
type FakeRelay struct {
	mu sync.Mutex

	// RelayAddress returned by GetRelayAddress
	RelayAddress common.Address
	// Nonces maps "address|kind" to the nonce to report
	Nonces map[string]types.Nonce
	// SubmitResponse returned by all three submission paths
	SubmitResponse *relayClient.SubmitResponse
	// SubmitErr, when set, fails all submission paths
	SubmitErr error
	// StateSequences maps transaction id to the states reported on
	// successive GetTransaction calls; the final state repeats once the
	// sequence is exhausted
	StateSequences map[string][]types.TransactionState
	// QueryErr, when set, fails GetTransaction(s)
	QueryErr error

	// PollCounts tracks GetTransaction calls per id
	PollCounts map[string]int
	// SubmittedProxyCalls records the last proxy batch received
	SubmittedProxyCalls []types.ProxyCall
	// SubmittedSafeCalls records the last safe batch received
	SubmittedSafeCalls []types.SafeCall
}

var _ relayClient.IRelayClient = (*FakeRelay)(nil)

// NewFakeRelay creates a FakeRelay with empty script tables.
func NewFakeRelay() *FakeRelay {
	return &FakeRelay{
		Nonces:         make(map[string]types.Nonce),
		StateSequences: make(map[string][]types.TransactionState),
		PollCounts:     make(map[string]int),
	}
}

func (f *FakeRelay) GetRelayAddress(_ context.Context) (common.Address, error) {
	return f.RelayAddress, nil
}

func (f *FakeRelay) GetNonce(_ context.Context, address common.Address, kind types.SignerKind) (types.Nonce, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	nonce, ok := f.Nonces[address.Hex()+"|"+string(kind)]
	if !ok {
		return "", fmt.Errorf("no scripted nonce for %s (%s)", address.Hex(), kind)
	}
	return nonce, nil
}

func (f *FakeRelay) ExecuteProxyTransactions(_ context.Context, calls []types.ProxyCall, _ string) (*relayClient.SubmitResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SubmitErr != nil {
		return nil, f.SubmitErr
	}
	f.SubmittedProxyCalls = calls
	return f.SubmitResponse, nil
}

func (f *FakeRelay) ExecuteSafeTransactions(_ context.Context, calls []types.SafeCall, _ string) (*relayClient.SubmitResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SubmitErr != nil {
		return nil, f.SubmitErr
	}
	f.SubmittedSafeCalls = calls
	return f.SubmitResponse, nil
}

func (f *FakeRelay) DeploySafe(_ context.Context) (*relayClient.SubmitResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SubmitErr != nil {
		return nil, f.SubmitErr
	}
	return f.SubmitResponse, nil
}

func (f *FakeRelay) GetTransaction(_ context.Context, id string) ([]types.TransactionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.QueryErr != nil {
		return nil, f.QueryErr
	}

	sequence, ok := f.StateSequences[id]
	if !ok || len(sequence) == 0 {
		return nil, nil
	}

	poll := f.PollCounts[id]
	f.PollCounts[id] = poll + 1

	// build the history as the relay would: one entry per state observed
	// so far, newest last
	upto := poll
	if upto >= len(sequence) {
		upto = len(sequence) - 1
	}
	records := make([]types.TransactionRecord, 0, upto+1)
	for i := 0; i <= upto; i++ {
		records = append(records, types.TransactionRecord{
			ID:    id,
			State: sequence[i],
		})
	}
	return records, nil
}

func (f *FakeRelay) GetTransactions(_ context.Context) ([]types.TransactionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.QueryErr != nil {
		return nil, f.QueryErr
	}

	var records []types.TransactionRecord
	for id, sequence := range f.StateSequences {
		if len(sequence) == 0 {
			continue
		}
		records = append(records, types.TransactionRecord{
			ID:    id,
			State: sequence[len(sequence)-1],
		})
	}
	return records, nil
}

package relayClient

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/PolyEmperion/PolyEmperion-sdk/pkg/types"
)

// IRelayClient is the thin binding to the relay network's endpoints. The
// relay's wire behavior is treated as given; this interface only mirrors its
// contract so higher layers can be tested against fakes.
type IRelayClient interface {
	// GetRelayAddress returns the relay's own submitting address.
	GetRelayAddress(ctx context.Context) (common.Address, error)

	// GetNonce returns the current replay-protection counter for the
	// (address, signer kind) pair.
	GetNonce(ctx context.Context, address common.Address, kind types.SignerKind) (types.Nonce, error)

	// ExecuteProxyTransactions submits an ordered batch of proxy calls.
	ExecuteProxyTransactions(ctx context.Context, calls []types.ProxyCall, metadata string) (*SubmitResponse, error)

	// ExecuteSafeTransactions submits an ordered batch of multi-sig wallet calls.
	ExecuteSafeTransactions(ctx context.Context, calls []types.SafeCall, metadata string) (*SubmitResponse, error)

	// DeploySafe requests creation of a multi-sig wallet for the signer.
	DeploySafe(ctx context.Context) (*SubmitResponse, error)

	// GetTransaction returns the relay's historical entries for one id,
	// ordered oldest first.
	GetTransaction(ctx context.Context, id string) ([]types.TransactionRecord, error)

	// GetTransactions returns all transactions for the configured identity.
	GetTransactions(ctx context.Context) ([]types.TransactionRecord, error)
}

// Compile-time check to ensure Client implements IRelayClient
var _ IRelayClient = (*Client)(nil)

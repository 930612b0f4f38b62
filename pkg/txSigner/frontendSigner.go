package txSigner

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/PolyEmperion/PolyEmperion-sdk/pkg/types"
)

// FrontendSigner implements ISigner over an externally-supplied
// InteractiveSigner. Address resolution runs in the background so that
// construction never blocks; the resolved address is written exactly once and
// published by closing the resolved channel.
type FrontendSigner struct {
	interactive InteractiveSigner
	logger      *zap.Logger

	resolved   chan struct{}
	address    common.Address
	resolveErr error
}

var _ ISigner = (*FrontendSigner)(nil)

// NewFrontendSigner wraps an interactive signer and starts address
// resolution. Construction never contacts the relay and never blocks on the
// interactive signer.
func NewFrontendSigner(interactive InteractiveSigner, logger *zap.Logger) *FrontendSigner {
	f := &FrontendSigner{
		interactive: interactive,
		logger:      logger,
		resolved:    make(chan struct{}),
	}

	go f.resolveAddress()

	return f
}

func (f *FrontendSigner) resolveAddress() {
	// The single write below is published by the channel close; readers only
	// touch address/resolveErr after observing the close.
	defer close(f.resolved)

	addr, err := f.interactive.Address(context.Background())
	if err != nil {
		f.resolveErr = fmt.Errorf("failed to resolve interactive signer address: %w", err)
		f.logger.Sugar().Warnw("Interactive signer address resolution failed", "error", err)
		return
	}

	f.address = addr
	f.logger.Sugar().Debugw("Interactive signer address resolved", "address", addr.Hex())
}

// Address returns the resolved address without blocking. Fails with
// ErrNoAddressAvailable until resolution completes.
func (f *FrontendSigner) Address() (common.Address, error) {
	select {
	case <-f.resolved:
		if f.resolveErr != nil {
			return common.Address{}, f.resolveErr
		}
		return f.address, nil
	default:
		return common.Address{}, fmt.Errorf("%w: interactive signer address not yet resolved", types.ErrNoAddressAvailable)
	}
}

// AddressReady blocks until the address resolves or ctx ends.
func (f *FrontendSigner) AddressReady(ctx context.Context) (common.Address, error) {
	select {
	case <-f.resolved:
		if f.resolveErr != nil {
			return common.Address{}, f.resolveErr
		}
		return f.address, nil
	case <-ctx.Done():
		return common.Address{}, ctx.Err()
	}
}

// SignMessage delegates to the interactive signer.
func (f *FrontendSigner) SignMessage(ctx context.Context, message []byte) ([]byte, error) {
	sig, err := f.interactive.SignMessage(ctx, message)
	if err != nil {
		return nil, fmt.Errorf("interactive signer failed to sign message: %w", err)
	}
	return sig, nil
}

package txSigner

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/PolyEmperion/PolyEmperion-sdk/pkg/types"
)

// ISigner is the uniform signing surface the relay client consumes,
// regardless of which signing mode produced it.
type ISigner interface {
	// Address returns the signer address without blocking. Before a frontend
	// signer has resolved its address this fails with ErrNoAddressAvailable.
	Address() (common.Address, error)

	// AddressReady blocks until the address is resolved or ctx ends.
	AddressReady(ctx context.Context) (common.Address, error)

	// SignMessage signs an arbitrary message for relay request authorization.
	// Implementations hash the message with keccak256 before signing and
	// return a 65-byte r||s||v signature.
	SignMessage(ctx context.Context, message []byte) ([]byte, error)
}

// InteractiveSigner is the externally-supplied signer consumed by the
// frontend signing mode. Address resolution may be asynchronous and slow;
// implementations must honor ctx.
type InteractiveSigner interface {
	Address(ctx context.Context) (common.Address, error)
	SignMessage(ctx context.Context, message []byte) ([]byte, error)
}

// SignerConfig is the tagged-union signing configuration. Exactly one of
// PrivateKey (backend mode) or Interactive (frontend mode) must be set;
// supplying both is rejected as ambiguous rather than resolved by precedence.
type SignerConfig struct {
	// PrivateKey is a hex-encoded secp256k1 secret key (backend mode)
	PrivateKey string `json:"privateKey" yaml:"privateKey"`

	// Interactive is an externally-supplied signer (frontend mode)
	Interactive InteractiveSigner `json:"-" yaml:"-"`
}

// NewSigner validates the signing configuration and constructs the matching
// signer. Construction never contacts the relay.
func NewSigner(cfg *SignerConfig, logger *zap.Logger) (ISigner, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: signer config cannot be nil", types.ErrConfiguration)
	}
	if cfg.PrivateKey != "" && cfg.Interactive != nil {
		return nil, fmt.Errorf("%w: both backend and frontend signing configured", types.ErrConfiguration)
	}

	switch {
	case cfg.PrivateKey != "":
		return NewPrivateKeySigner(cfg.PrivateKey)
	case cfg.Interactive != nil:
		return NewFrontendSigner(cfg.Interactive, logger), nil
	default:
		return nil, fmt.Errorf("%w: neither backend nor frontend signing configured", types.ErrConfiguration)
	}
}

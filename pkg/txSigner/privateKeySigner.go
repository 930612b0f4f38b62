package txSigner

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/PolyEmperion/PolyEmperion-sdk/pkg/types"
)

// PrivateKeySigner implements ISigner using a locally-held secret key
// (backend mode). The address is derived synchronously at construction.
type PrivateKeySigner struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
}

var _ ISigner = (*PrivateKeySigner)(nil)

// NewPrivateKeySigner creates a PrivateKeySigner from a hex-encoded key.
// Fails with ErrInvalidKey on malformed input.
func NewPrivateKeySigner(privateKeyHex string) (*PrivateKeySigner, error) {
	privateKeyHex = strings.TrimPrefix(privateKeyHex, "0x")

	privateKey, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", types.ErrInvalidKey, err)
	}

	return &PrivateKeySigner{
		privateKey: privateKey,
		address:    crypto.PubkeyToAddress(privateKey.PublicKey),
	}, nil
}

// Address returns the derived address. Always available for backend mode.
func (p *PrivateKeySigner) Address() (common.Address, error) {
	return p.address, nil
}

// AddressReady returns the derived address immediately.
func (p *PrivateKeySigner) AddressReady(_ context.Context) (common.Address, error) {
	return p.address, nil
}

// SignMessage signs keccak256(message) and returns a 65-byte r||s||v
// signature.
func (p *PrivateKeySigner) SignMessage(_ context.Context, message []byte) ([]byte, error) {
	digest := crypto.Keccak256(message)
	sig, err := crypto.Sign(digest, p.privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign message: %w", err)
	}
	return sig, nil
}

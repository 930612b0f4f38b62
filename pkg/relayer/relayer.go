package relayer

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/PolyEmperion/PolyEmperion-sdk/pkg/clients/relayClient"
	"github.com/PolyEmperion/PolyEmperion-sdk/pkg/config"
	"github.com/PolyEmperion/PolyEmperion-sdk/pkg/persistence"
	"github.com/PolyEmperion/PolyEmperion-sdk/pkg/txSigner"
	"github.com/PolyEmperion/PolyEmperion-sdk/pkg/types"
)

// BackendConfig configures backend signing mode: a locally-held secret key.
type BackendConfig struct {
	// SecretKey is a hex-encoded secp256k1 private key
	SecretKey string
}

// FrontendConfig configures frontend signing mode: an externally-supplied
// interactive signer whose address resolves asynchronously.
type FrontendConfig struct {
	InteractiveSigner txSigner.InteractiveSigner
}

// ClientConfig holds the configuration for the relay SDK client. Exactly one
// of Backend or Frontend must be set; setting both is rejected as ambiguous.
type ClientConfig struct {
	// RelayEndpoint overrides the default relay base URL for the chain
	RelayEndpoint string
	// ChainID is the target chain
	ChainID config.ChainId
	// Backend configures local-key signing
	Backend *BackendConfig
	// Frontend configures externally-supplied interactive signing
	Frontend *FrontendConfig
	// Auth is an optional relay-specific credential pair
	Auth *config.RelayAuth
	// Store is an optional local submission journal
	Store persistence.ISubmissionStore
	// Relay overrides the HTTP transport. Used for testing and custom
	// transports; normally left nil.
	Relay relayClient.IRelayClient
	// Logger defaults to a no-op logger when nil
	Logger *zap.Logger
}

// Client is the public surface of the gasless relay SDK.
type Client struct {
	relay  relayClient.IRelayClient
	signer txSigner.ISigner
	store  persistence.ISubmissionStore
	logger *zap.Logger
}

// NewClient validates the configuration and constructs the SDK client.
// Configuration errors are fatal and synchronous; construction never submits
// anything to the relay.
func NewClient(cfg *ClientConfig) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: config cannot be nil", types.ErrConfiguration)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	signerCfg := &txSigner.SignerConfig{}
	if cfg.Backend != nil {
		signerCfg.PrivateKey = cfg.Backend.SecretKey
	}
	if cfg.Frontend != nil {
		signerCfg.Interactive = cfg.Frontend.InteractiveSigner
	}
	signer, err := txSigner.NewSigner(signerCfg, logger)
	if err != nil {
		return nil, err
	}

	relay := cfg.Relay
	if relay == nil {
		endpoint := cfg.RelayEndpoint
		if endpoint == "" {
			endpoint, err = config.GetRelayEndpointForChainId(cfg.ChainID)
			if err != nil {
				return nil, fmt.Errorf("%w: %s", types.ErrConfiguration, err)
			}
		}
		relay, err = relayClient.NewClient(&relayClient.ClientConfig{
			BaseUrl: endpoint,
			ChainID: cfg.ChainID,
			Auth:    cfg.Auth,
		}, signer, logger)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", types.ErrConfiguration, err)
		}
	}

	return &Client{
		relay:  relay,
		signer: signer,
		store:  cfg.Store,
		logger: logger,
	}, nil
}

// Signer exposes the configured signer, mainly so callers can wait on
// frontend address resolution explicitly.
func (c *Client) Signer() txSigner.ISigner {
	return c.signer
}

// SubmitProxyBatch submits an ordered, non-empty batch of proxy calls on
// behalf of the signer's externally-owned account.
func (c *Client) SubmitProxyBatch(ctx context.Context, calls []types.ProxyCall, metadata string) (*types.TransactionRecord, error) {
	if len(calls) == 0 {
		return nil, fmt.Errorf("proxy batch cannot be empty")
	}
	for i, call := range calls {
		if !common.IsHexAddress(call.To) {
			return nil, fmt.Errorf("proxy batch call %d: invalid destination address %q", i, call.To)
		}
	}

	resp, err := c.relay.ExecuteProxyTransactions(ctx, calls, metadata)
	if err != nil {
		return nil, fmt.Errorf("submit proxy batch: %w", err)
	}
	record, err := normalizeSubmitResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("submit proxy batch: %w", err)
	}

	c.logger.Sugar().Infow("Submitted proxy batch",
		"transaction_id", record.ID,
		"state", record.State,
		"calls", len(calls),
	)
	c.recordSubmission(record, types.SubmissionKindProxy, metadata)

	return record, nil
}

// SubmitSafeBatch submits an ordered, non-empty batch of multi-sig wallet
// calls. Each call's operation discriminator is passed through to the relay
// unmodified.
func (c *Client) SubmitSafeBatch(ctx context.Context, calls []types.SafeCall, metadata string) (*types.TransactionRecord, error) {
	if len(calls) == 0 {
		return nil, fmt.Errorf("safe batch cannot be empty")
	}
	for i, call := range calls {
		if !common.IsHexAddress(call.To) {
			return nil, fmt.Errorf("safe batch call %d: invalid destination address %q", i, call.To)
		}
		if call.Operation == "" {
			return nil, fmt.Errorf("safe batch call %d: operation is required", i)
		}
	}

	resp, err := c.relay.ExecuteSafeTransactions(ctx, calls, metadata)
	if err != nil {
		return nil, fmt.Errorf("submit safe batch: %w", err)
	}
	record, err := normalizeSubmitResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("submit safe batch: %w", err)
	}

	c.logger.Sugar().Infow("Submitted safe batch",
		"transaction_id", record.ID,
		"state", record.State,
		"calls", len(calls),
	)
	c.recordSubmission(record, types.SubmissionKindSafe, metadata)

	return record, nil
}

// DeploySafeWallet requests creation of a new multi-sig wallet bound to the
// signer's identity.
func (c *Client) DeploySafeWallet(ctx context.Context) (*types.TransactionRecord, error) {
	resp, err := c.relay.DeploySafe(ctx)
	if err != nil {
		return nil, fmt.Errorf("deploy safe wallet: %w", err)
	}
	record, err := normalizeSubmitResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("deploy safe wallet: %w", err)
	}

	c.logger.Sugar().Infow("Requested safe wallet deployment",
		"transaction_id", record.ID,
		"state", record.State,
	)
	c.recordSubmission(record, types.SubmissionKindSafeDeploy, "")

	return record, nil
}

// GetRelayerAddress returns the relay's own submitting address.
func (c *Client) GetRelayerAddress(ctx context.Context) (common.Address, error) {
	return c.relay.GetRelayAddress(ctx)
}

// GetNonce returns the current replay-protection counter for the given
// address and signer kind. A nil address resolves to the configured signer's
// address; under frontend mode before resolution completes this fails with
// ErrNoAddressAvailable rather than blocking. Kind defaults to EOA.
func (c *Client) GetNonce(ctx context.Context, address *common.Address, kind types.SignerKind) (types.Nonce, error) {
	if kind == "" {
		kind = types.SignerKindEOA
	}

	var addr common.Address
	if address != nil {
		addr = *address
	} else {
		var err error
		addr, err = c.signer.Address()
		if err != nil {
			return "", fmt.Errorf("get nonce: %w", err)
		}
	}

	nonce, err := c.relay.GetNonce(ctx, addr, kind)
	if err != nil {
		return "", fmt.Errorf("get nonce: %w", err)
	}
	return nonce, nil
}

// GetTransaction returns the relay's historical entries for one id, ordered
// oldest first.
func (c *Client) GetTransaction(ctx context.Context, id string) ([]types.TransactionRecord, error) {
	return c.relay.GetTransaction(ctx, id)
}

// GetTransactions returns all transactions for the configured identity.
func (c *Client) GetTransactions(ctx context.Context) ([]types.TransactionRecord, error) {
	return c.relay.GetTransactions(ctx)
}

// latestRecord observes the newest entry the relay holds for id.
func (c *Client) latestRecord(ctx context.Context, id string) (*types.TransactionRecord, error) {
	records, err := c.relay.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("relay returned no entries for transaction %s", id)
	}
	latest := records[len(records)-1]
	return &latest, nil
}

// recordSubmission writes the submission to the local journal, if one is
// configured. Journal failures are logged, never surfaced: the submission
// already succeeded on the relay.
func (c *Client) recordSubmission(record *types.TransactionRecord, kind types.SubmissionKind, metadata string) {
	if c.store == nil {
		return
	}

	from := ""
	if addr, err := c.signer.Address(); err == nil {
		from = addr.Hex()
	}

	err := c.store.SaveSubmission(&types.SubmissionEntry{
		TransactionID:        record.ID,
		Kind:                 kind,
		State:                record.State,
		RelayHash:            record.RelayHash,
		ChainTransactionHash: record.ChainTransactionHash,
		Metadata:             metadata,
		From:                 from,
		SubmittedAt:          time.Now().UTC(),
	})
	if err != nil {
		c.logger.Sugar().Warnw("Failed to journal submission",
			"transaction_id", record.ID,
			"error", err,
		)
	}
}

// observeState mirrors a freshly observed record into the journal.
func (c *Client) observeState(record *types.TransactionRecord) {
	if c.store == nil {
		return
	}
	if err := c.store.UpdateObservedState(record.ID, record); err != nil {
		c.logger.Sugar().Warnw("Failed to update journaled state",
			"transaction_id", record.ID,
			"error", err,
		)
	}
}

package relayClient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/sha3"
	"golang.org/x/time/rate"

	"github.com/PolyEmperion/PolyEmperion-sdk/pkg/config"
	"github.com/PolyEmperion/PolyEmperion-sdk/pkg/types"
)

var (
	retryAttempts = retry.Attempts(3)
	retryDelay    = retry.Delay(500 * time.Millisecond)
	retryError    = retry.LastErrorOnly(true)
)

const (
	headerRequestId = "X-Request-Id"
	headerAddress   = "X-Relay-Address"
	headerSignature = "X-Relay-Signature"
	headerDigest    = "X-Relay-Digest"
	headerAPIKey    = "X-Relay-Api-Key"
	headerAPISecret = "X-Relay-Api-Secret"

	defaultRequestsPerSecond = 10
	defaultBurst             = 5
	defaultRequestTimeout    = 30 * time.Second
)

// RequestSigner authorizes relay submissions. ISigner from pkg/txSigner
// satisfies it.
type RequestSigner interface {
	AddressReady(ctx context.Context) (common.Address, error)
	SignMessage(ctx context.Context, message []byte) ([]byte, error)
}

// ClientConfig holds the configuration for the relay HTTP client
type ClientConfig struct {
	// BaseUrl is the relay base URL, e.g. https://relay.polyemperion.com
	BaseUrl string
	// ChainID is the target chain
	ChainID config.ChainId
	// Auth is an optional relay credential pair attached to every request
	Auth *config.RelayAuth
	// RequestsPerSecond caps outgoing request rate (0 means default)
	RequestsPerSecond float64
}

// Client is the HTTP implementation of IRelayClient. Submissions are signed
// by the configured RequestSigner; read-only queries are retried a bounded
// number of times, submissions never are.
type Client struct {
	baseUrl    string
	chainId    config.ChainId
	auth       *config.RelayAuth
	signer     RequestSigner
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// NewClient creates a relay client. The signer may be nil for read-only use;
// submissions then fail.
func NewClient(cfg *ClientConfig, signer RequestSigner, logger *zap.Logger) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("relay client config cannot be nil")
	}
	if cfg.BaseUrl == "" {
		return nil, fmt.Errorf("relay base URL cannot be empty")
	}
	if _, err := url.Parse(cfg.BaseUrl); err != nil {
		return nil, fmt.Errorf("invalid relay base URL %s: %w", cfg.BaseUrl, err)
	}
	if cfg.Auth != nil {
		if err := cfg.Auth.Validate(); err != nil {
			return nil, fmt.Errorf("invalid relay auth: %w", err)
		}
	}

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = defaultRequestsPerSecond
	}

	return &Client{
		baseUrl: cfg.BaseUrl,
		chainId: cfg.ChainID,
		auth:    cfg.Auth,
		signer:  signer,
		httpClient: &http.Client{
			Timeout: defaultRequestTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(rps), defaultBurst),
		logger:  logger,
	}, nil
}

// SetHttpClient allows setting a custom HTTP client. Useful for testing.
func (c *Client) SetHttpClient(client *http.Client) {
	c.httpClient = client
}

type addressResponse struct {
	Address string `json:"address"`
}

// GetRelayAddress returns the relay's own submitting address.
func (c *Client) GetRelayAddress(ctx context.Context) (common.Address, error) {
	var resp addressResponse
	if err := c.doGet(ctx, "/address", nil, &resp); err != nil {
		return common.Address{}, fmt.Errorf("failed to get relay address: %w", err)
	}
	if !common.IsHexAddress(resp.Address) {
		return common.Address{}, fmt.Errorf("%w: relay address %q is not a valid address", types.ErrMalformedRelayResponse, resp.Address)
	}
	return common.HexToAddress(resp.Address), nil
}

type nonceResponse struct {
	Nonce json.Number `json:"nonce"`
}

// GetNonce returns the current nonce for the (address, signer kind) pair.
func (c *Client) GetNonce(ctx context.Context, address common.Address, kind types.SignerKind) (types.Nonce, error) {
	query := url.Values{}
	query.Set("address", address.Hex())
	query.Set("type", string(kind))

	var resp nonceResponse
	if err := c.doGet(ctx, "/nonce", query, &resp); err != nil {
		return "", fmt.Errorf("failed to get nonce for %s (%s): %w", address.Hex(), kind, err)
	}
	return types.Nonce(resp.Nonce.String()), nil
}

type proxyRequest struct {
	From         string            `json:"from"`
	ChainID      uint              `json:"chainId"`
	Transactions []types.ProxyCall `json:"transactions"`
	Metadata     string            `json:"metadata,omitempty"`
}

// ExecuteProxyTransactions submits a proxy-call batch.
func (c *Client) ExecuteProxyTransactions(ctx context.Context, calls []types.ProxyCall, metadata string) (*SubmitResponse, error) {
	from, err := c.fromAddress(ctx)
	if err != nil {
		return nil, err
	}
	return c.doSignedPost(ctx, "/submit", &proxyRequest{
		From:         from.Hex(),
		ChainID:      uint(c.chainId),
		Transactions: calls,
		Metadata:     metadata,
	})
}

type safeRequest struct {
	From         string           `json:"from"`
	ChainID      uint             `json:"chainId"`
	Transactions []types.SafeCall `json:"transactions"`
	Metadata     string           `json:"metadata,omitempty"`
}

// ExecuteSafeTransactions submits a multi-sig wallet batch.
func (c *Client) ExecuteSafeTransactions(ctx context.Context, calls []types.SafeCall, metadata string) (*SubmitResponse, error) {
	from, err := c.fromAddress(ctx)
	if err != nil {
		return nil, err
	}
	return c.doSignedPost(ctx, "/submit-safe", &safeRequest{
		From:         from.Hex(),
		ChainID:      uint(c.chainId),
		Transactions: calls,
		Metadata:     metadata,
	})
}

type deploySafeRequest struct {
	From    string `json:"from"`
	ChainID uint   `json:"chainId"`
}

// DeploySafe requests creation of a multi-sig wallet bound to the signer.
func (c *Client) DeploySafe(ctx context.Context) (*SubmitResponse, error) {
	from, err := c.fromAddress(ctx)
	if err != nil {
		return nil, err
	}
	return c.doSignedPost(ctx, "/deploy-safe", &deploySafeRequest{
		From:    from.Hex(),
		ChainID: uint(c.chainId),
	})
}

// GetTransaction returns the relay's historical entries for one id, ordered
// oldest first.
func (c *Client) GetTransaction(ctx context.Context, id string) ([]types.TransactionRecord, error) {
	query := url.Values{}
	query.Set("id", id)

	var resp []recordJSON
	if err := c.doGet(ctx, "/transaction", query, &resp); err != nil {
		return nil, fmt.Errorf("failed to get transaction %s: %w", id, err)
	}
	return toRecords(resp), nil
}

// GetTransactions returns all transactions for the configured identity.
func (c *Client) GetTransactions(ctx context.Context) ([]types.TransactionRecord, error) {
	var resp []recordJSON
	if err := c.doGet(ctx, "/transactions", nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to get transactions: %w", err)
	}
	return toRecords(resp), nil
}

func (c *Client) fromAddress(ctx context.Context) (common.Address, error) {
	if c.signer == nil {
		return common.Address{}, fmt.Errorf("%w: relay client has no signer configured", types.ErrNoAddressAvailable)
	}
	addr, err := c.signer.AddressReady(ctx)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to resolve signer address: %w", err)
	}
	return addr, nil
}

// doGet performs a rate-limited, retried GET against a read-only endpoint and
// decodes the JSON body into out.
func (c *Client) doGet(ctx context.Context, path string, query url.Values, out interface{}) error {
	requestURL := c.baseUrl + path
	if len(query) > 0 {
		requestURL += "?" + query.Encode()
	}

	return retry.Do(func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return retry.Unrecoverable(err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
		if err != nil {
			return retry.Unrecoverable(err)
		}
		c.setCommonHeaders(req)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("relay returned %d: %s", resp.StatusCode, string(body))
		}
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("failed to decode relay response: %w", err)
		}
		return nil
	}, retry.Context(ctx), retryAttempts, retryDelay, retryError)
}

// doSignedPost submits a signed request. Submissions are not retried; the
// caller layers its own retry policy if it wants one.
func (c *Client) doSignedPost(ctx context.Context, path string, payload interface{}) (*SubmitResponse, error) {
	if c.signer == nil {
		return nil, fmt.Errorf("%w: relay client has no signer configured", types.ErrNoAddressAvailable)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal relay request: %w", err)
	}

	addr, err := c.signer.AddressReady(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve signer address: %w", err)
	}
	sig, err := c.signer.SignMessage(ctx, body)
	if err != nil {
		return nil, fmt.Errorf("failed to sign relay request: %w", err)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseUrl+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	c.setCommonHeaders(req)
	req.Header.Set(headerAddress, addr.Hex())
	req.Header.Set(headerSignature, hexutil.Encode(sig))
	req.Header.Set(headerDigest, hexutil.Encode(keccak256(body)))

	c.logger.Sugar().Debugw("Submitting to relay",
		"path", path,
		"from", addr.Hex(),
		"chain_id", c.chainId,
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("relay request to %s failed: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read relay response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s (status %d)", types.ErrRelayRejected, relayErrorMessage(respBody), resp.StatusCode)
	}

	var submitResp SubmitResponse
	if err := json.Unmarshal(respBody, &submitResp); err != nil {
		return nil, fmt.Errorf("%w: %s", types.ErrMalformedRelayResponse, err)
	}
	return &submitResp, nil
}

func (c *Client) setCommonHeaders(req *http.Request) {
	req.Header.Set(headerRequestId, uuid.New().String())
	if c.auth != nil {
		req.Header.Set(headerAPIKey, c.auth.APIKey)
		req.Header.Set(headerAPISecret, c.auth.Secret)
	}
}

// relayErrorMessage pulls the relay's own message out of an error body,
// falling back to the raw body.
func relayErrorMessage(body []byte) string {
	var parsed struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Error != "" {
			return parsed.Error
		}
		if parsed.Message != "" {
			return parsed.Message
		}
	}
	return string(body)
}

func keccak256(data []byte) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	return h.Sum(nil)
}

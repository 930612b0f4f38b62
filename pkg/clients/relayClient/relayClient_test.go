package relayClient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/PolyEmperion/PolyEmperion-sdk/pkg/config"
	"github.com/PolyEmperion/PolyEmperion-sdk/pkg/txSigner"
	"github.com/PolyEmperion/PolyEmperion-sdk/pkg/types"
)

const (
	// well-known anvil test account 0
	testPrivateKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testAddress    = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
)

func newTestClient(t *testing.T, baseUrl string) *Client {
	t.Helper()

	signer, err := txSigner.NewPrivateKeySigner(testPrivateKey)
	require.NoError(t, err)

	client, err := NewClient(&ClientConfig{
		BaseUrl: baseUrl,
		ChainID: config.ChainId_PolygonAmoy,
		Auth: &config.RelayAuth{
			APIKey: "test-key",
			Secret: "test-secret",
		},
	}, signer, zap.NewNop())
	require.NoError(t, err)
	return client
}

func TestNewClient_Validation(t *testing.T) {
	signer, err := txSigner.NewPrivateKeySigner(testPrivateKey)
	require.NoError(t, err)

	t.Run("nil config", func(t *testing.T) {
		_, err := NewClient(nil, signer, zap.NewNop())
		require.Error(t, err)
	})

	t.Run("empty base URL", func(t *testing.T) {
		_, err := NewClient(&ClientConfig{}, signer, zap.NewNop())
		require.ErrorContains(t, err, "base URL")
	})

	t.Run("invalid auth", func(t *testing.T) {
		_, err := NewClient(&ClientConfig{
			BaseUrl: "https://relay.example.com",
			Auth:    &config.RelayAuth{APIKey: "key-without-secret"},
		}, signer, zap.NewNop())
		require.ErrorContains(t, err, "auth")
	})
}

func TestGetRelayAddress(t *testing.T) {
	t.Run("decodes a valid address", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/address", r.URL.Path)
			require.NotEmpty(t, r.Header.Get("X-Request-Id"))
			require.Equal(t, "test-key", r.Header.Get("X-Relay-Api-Key"))
			require.Equal(t, "test-secret", r.Header.Get("X-Relay-Api-Secret"))
			_, _ = w.Write([]byte(`{"address":"0x5555555555555555555555555555555555555555"}`))
		}))
		defer server.Close()

		addr, err := newTestClient(t, server.URL).GetRelayAddress(context.Background())
		require.NoError(t, err)
		require.Equal(t, common.HexToAddress("0x5555555555555555555555555555555555555555"), addr)
	})

	t.Run("rejects a malformed address", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"address":"not-an-address"}`))
		}))
		defer server.Close()

		_, err := newTestClient(t, server.URL).GetRelayAddress(context.Background())
		require.ErrorIs(t, err, types.ErrMalformedRelayResponse)
	})
}

func TestGetNonce(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/nonce", r.URL.Path)
		require.Equal(t, testAddress, r.URL.Query().Get("address"))
		require.Equal(t, "SAFE", r.URL.Query().Get("type"))
		_, _ = w.Write([]byte(`{"nonce":42}`))
	}))
	defer server.Close()

	nonce, err := newTestClient(t, server.URL).GetNonce(
		context.Background(), common.HexToAddress(testAddress), types.SignerKindSafe)
	require.NoError(t, err)
	require.Equal(t, types.Nonce("42"), nonce)
}

func TestGetNonce_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"nonce":"1"}`))
	}))
	defer server.Close()

	nonce, err := newTestClient(t, server.URL).GetNonce(
		context.Background(), common.HexToAddress(testAddress), types.SignerKindEOA)
	require.NoError(t, err)
	require.Equal(t, types.Nonce("1"), nonce)
	require.Equal(t, int32(2), calls.Load())
}

func TestExecuteProxyTransactions(t *testing.T) {
	calls := []types.ProxyCall{
		{To: "0x1111111111111111111111111111111111111111", TypeCode: "0", Data: "0x01", Value: "0"},
		{To: "0x2222222222222222222222222222222222222222", TypeCode: "0", Data: "0x02", Value: "100"},
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/submit", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		var req proxyRequest
		require.NoError(t, json.Unmarshal(body, &req))
		require.Equal(t, testAddress, req.From)
		require.Equal(t, uint(config.ChainId_PolygonAmoy), req.ChainID)
		require.Equal(t, calls, req.Transactions)
		require.Equal(t, "batch 7", req.Metadata)

		// digest and signature must both bind the exact body bytes
		digest := crypto.Keccak256(body)
		require.Equal(t, hexutil.Encode(digest), r.Header.Get("X-Relay-Digest"))

		sig, err := hexutil.Decode(r.Header.Get("X-Relay-Signature"))
		require.NoError(t, err)
		pub, err := crypto.SigToPub(digest, sig)
		require.NoError(t, err)
		require.Equal(t, testAddress, crypto.PubkeyToAddress(*pub).Hex())
		require.Equal(t, testAddress, r.Header.Get("X-Relay-Address"))

		_, _ = w.Write([]byte(`{"transactionId":"tx-123","status":"STATE_NEW","relayHash":"0xaaaa"}`))
	}))
	defer server.Close()

	resp, err := newTestClient(t, server.URL).ExecuteProxyTransactions(context.Background(), calls, "batch 7")
	require.NoError(t, err)
	require.Equal(t, "tx-123", resp.TransactionID)
	require.Equal(t, "STATE_NEW", resp.State)
	require.Equal(t, "0xaaaa", resp.Hash)
}

func TestExecuteSafeTransactions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/submit-safe", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":"tx-safe","state":"STATE_NEW"}`))
	}))
	defer server.Close()

	resp, err := newTestClient(t, server.URL).ExecuteSafeTransactions(context.Background(), []types.SafeCall{
		{To: "0x1111111111111111111111111111111111111111", Operation: "0", Data: "0x", Value: "0"},
	}, "")
	require.NoError(t, err)
	require.Equal(t, "tx-safe", resp.TransactionID)
}

func TestDeploySafe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/deploy-safe", r.URL.Path)

		var req deploySafeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, testAddress, req.From)

		_, _ = w.Write([]byte(`{"transactionID":"tx-deploy","state":"STATE_NEW"}`))
	}))
	defer server.Close()

	resp, err := newTestClient(t, server.URL).DeploySafe(context.Background())
	require.NoError(t, err)
	require.Equal(t, "tx-deploy", resp.TransactionID)
}

func TestDoSignedPost_ErrorPaths(t *testing.T) {
	t.Run("rejection surfaces the relay's message", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"error":"insufficient sponsorship budget"}`))
		}))
		defer server.Close()

		_, err := newTestClient(t, server.URL).DeploySafe(context.Background())
		require.ErrorIs(t, err, types.ErrRelayRejected)
		require.ErrorContains(t, err, "insufficient sponsorship budget")
	})

	t.Run("unparseable success body is malformed", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`not json`))
		}))
		defer server.Close()

		_, err := newTestClient(t, server.URL).DeploySafe(context.Background())
		require.ErrorIs(t, err, types.ErrMalformedRelayResponse)
	})

	t.Run("submissions without a signer fail", func(t *testing.T) {
		client, err := NewClient(&ClientConfig{
			BaseUrl: "https://relay.example.com",
		}, nil, zap.NewNop())
		require.NoError(t, err)

		_, err = client.DeploySafe(context.Background())
		require.ErrorIs(t, err, types.ErrNoAddressAvailable)
	})
}

func TestGetTransaction(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/transaction", r.URL.Path)
		require.Equal(t, "tx-hist", r.URL.Query().Get("id"))
		// the relay mixes field aliases across entries
		_, _ = w.Write([]byte(`[
			{"id":"tx-hist","state":"STATE_NEW"},
			{"transactionId":"tx-hist","status":"STATE_MINED","txHash":"0xcccc"}
		]`))
	}))
	defer server.Close()

	records, err := newTestClient(t, server.URL).GetTransaction(context.Background(), "tx-hist")
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, types.StateNew, records[0].State)
	require.Equal(t, types.StateMined, records[1].State)
	require.Equal(t, "0xcccc", records[1].ChainTransactionHash)
}

func TestGetTransactions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/transactions", r.URL.Path)
		_, _ = w.Write([]byte(`[{"id":"tx-a","state":"STATE_CONFIRMED","relayHash":"0xdddd"}]`))
	}))
	defer server.Close()

	records, err := newTestClient(t, server.URL).GetTransactions(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "tx-a", records[0].ID)
	require.Equal(t, types.StateConfirmed, records[0].State)
	require.Equal(t, "0xdddd", records[0].RelayHash)
}

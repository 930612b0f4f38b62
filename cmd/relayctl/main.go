package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/PolyEmperion/PolyEmperion-sdk/pkg/config"
	"github.com/PolyEmperion/PolyEmperion-sdk/pkg/logger"
	"github.com/PolyEmperion/PolyEmperion-sdk/pkg/persistence"
	badgerstore "github.com/PolyEmperion/PolyEmperion-sdk/pkg/persistence/badger"
	redisstore "github.com/PolyEmperion/PolyEmperion-sdk/pkg/persistence/redis"
	"github.com/PolyEmperion/PolyEmperion-sdk/pkg/relayer"
	"github.com/PolyEmperion/PolyEmperion-sdk/pkg/types"
)

func main() {
	app := &cli.App{
		Name:  "relayctl",
		Usage: "Submit and track gasless transactions through the relay",
		Description: `A client for submitting transaction batches through the fee-sponsoring relay.

Supported operations:
- Submit proxy-call and safe-wallet batches
- Deploy a safe wallet bound to your signing key
- Query nonces, relay address, and transaction status
- Wait for confirmation of a submitted transaction`,
		Version: "1.0.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "relay-endpoint",
				Usage:   "Relay base URL (overrides the chain default)",
				EnvVars: []string{config.EnvRelayEndpoint},
			},
			&cli.UintFlag{
				Name:    "chain-id",
				Usage:   "Target chain ID: " + config.GetSupportedChainIDsString(),
				Value:   uint(config.ChainId_PolygonMainnet),
				EnvVars: []string{config.EnvRelayChainID},
			},
			&cli.StringFlag{
				Name:    "private-key",
				Usage:   "Hex-encoded signing key (backend mode)",
				EnvVars: []string{config.EnvRelayKey},
			},
			&cli.StringFlag{
				Name:    "api-key",
				Usage:   "Relay API key (optional credential pair)",
				EnvVars: []string{config.EnvRelayAPIKey},
			},
			&cli.StringFlag{
				Name:    "api-secret",
				Usage:   "Relay API secret (optional credential pair)",
				EnvVars: []string{config.EnvRelaySecret},
			},
			&cli.StringFlag{
				Name:    "data-dir",
				Usage:   "Directory for the local submission journal",
				Value:   "~/.relayctl",
				EnvVars: []string{config.EnvRelayDataDir},
			},
			&cli.StringFlag{
				Name:    "redis-address",
				Usage:   "Redis address (host:port) for a shared submission journal instead of the local one",
				EnvVars: []string{config.EnvRelayRedisAddress},
			},
			&cli.StringFlag{
				Name:    "redis-password",
				Usage:   "Redis password",
				EnvVars: []string{config.EnvRelayRedisPassword},
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Usage:   "Enable debug logging",
				EnvVars: []string{config.EnvRelayVerbose},
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "submit",
				Usage: "Submit a proxy-call batch from a JSON file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "calls",
						Usage:    "Path to a JSON array of calls {to, typeCode, data, value}",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "metadata",
						Usage: "Optional metadata attached to the submission",
					},
					&cli.BoolFlag{
						Name:  "wait",
						Usage: "Wait for confirmation after submitting",
					},
				},
				Action: submitCommand,
			},
			{
				Name:  "submit-safe",
				Usage: "Submit a safe-wallet batch from a JSON file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "calls",
						Usage:    "Path to a JSON array of calls {to, operation, data, value}",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "metadata",
						Usage: "Optional metadata attached to the submission",
					},
					&cli.BoolFlag{
						Name:  "wait",
						Usage: "Wait for confirmation after submitting",
					},
				},
				Action: submitSafeCommand,
			},
			{
				Name:   "deploy-safe",
				Usage:  "Deploy a safe wallet bound to the signing key",
				Action: deploySafeCommand,
			},
			{
				Name:  "nonce",
				Usage: "Query the current nonce for an address",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "address",
						Usage: "Address to query (defaults to the signer address)",
					},
					&cli.StringFlag{
						Name:  "type",
						Usage: "Signer kind tag: EOA or SAFE",
						Value: string(types.SignerKindEOA),
					},
				},
				Action: nonceCommand,
			},
			{
				Name:   "relay-address",
				Usage:  "Print the relay's own submitting address",
				Action: relayAddressCommand,
			},
			{
				Name:      "status",
				Usage:     "Show the relay's entries for a transaction id",
				ArgsUsage: "<transaction-id>",
				Action:    statusCommand,
			},
			{
				Name:   "list",
				Usage:  "List journaled submissions",
				Action: listCommand,
			},
			{
				Name:      "wait",
				Usage:     "Wait for a transaction to reach a terminal state",
				ArgsUsage: "<transaction-id>",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "max-polls",
						Usage: "Maximum number of status polls",
						Value: 60,
					},
					&cli.IntFlag{
						Name:  "poll-interval-ms",
						Usage: "Milliseconds between polls",
						Value: 2000,
					},
				},
				Action: waitCommand,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func buildClient(c *cli.Context, withStore bool) (*relayer.Client, *zap.Logger, error) {
	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: c.Bool("verbose")})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}

	var store persistence.ISubmissionStore
	if withStore {
		store, err = openJournal(c, l)
		if err != nil {
			return nil, nil, err
		}
		if err := store.HealthCheck(); err != nil {
			return nil, nil, fmt.Errorf("submission journal unhealthy: %w", err)
		}
	}

	cfg := &relayer.ClientConfig{
		RelayEndpoint: c.String("relay-endpoint"),
		ChainID:       config.ChainId(c.Uint("chain-id")),
		Store:         store,
		Logger:        l,
	}
	if key := c.String("private-key"); key != "" {
		cfg.Backend = &relayer.BackendConfig{SecretKey: key}
	}
	if apiKey := c.String("api-key"); apiKey != "" {
		cfg.Auth = &config.RelayAuth{
			APIKey: apiKey,
			Secret: c.String("api-secret"),
		}
	}

	client, err := relayer.NewClient(cfg)
	if err != nil {
		return nil, nil, err
	}
	return client, l, nil
}

// openJournal picks the journal backend: Redis when an address is given,
// otherwise the local badger journal under data-dir.
func openJournal(c *cli.Context, l *zap.Logger) (persistence.ISubmissionStore, error) {
	if addr := c.String("redis-address"); addr != "" {
		store, err := redisstore.NewRedisSubmissionStore(&redisstore.RedisConfig{
			Address:  addr,
			Password: c.String("redis-password"),
		}, l)
		if err != nil {
			return nil, fmt.Errorf("failed to open redis submission journal: %w", err)
		}
		return store, nil
	}

	dataDir := expandHome(c.String("data-dir"))
	store, err := badgerstore.NewBadgerSubmissionStore(filepath.Join(dataDir, "journal"), l)
	if err != nil {
		return nil, fmt.Errorf("failed to open submission journal: %w", err)
	}
	return store, nil
}

func submitCommand(c *cli.Context) error {
	var calls []types.ProxyCall
	if err := readJSONFile(c.String("calls"), &calls); err != nil {
		return err
	}

	client, _, err := buildClient(c, true)
	if err != nil {
		return err
	}

	record, err := client.SubmitProxyBatch(c.Context, calls, c.String("metadata"))
	if err != nil {
		return err
	}
	printRecord(record)

	if c.Bool("wait") {
		return awaitAndPrint(c, client, record.ID, nil)
	}
	return nil
}

func submitSafeCommand(c *cli.Context) error {
	var calls []types.SafeCall
	if err := readJSONFile(c.String("calls"), &calls); err != nil {
		return err
	}

	client, _, err := buildClient(c, true)
	if err != nil {
		return err
	}

	record, err := client.SubmitSafeBatch(c.Context, calls, c.String("metadata"))
	if err != nil {
		return err
	}
	printRecord(record)

	if c.Bool("wait") {
		return awaitAndPrint(c, client, record.ID, nil)
	}
	return nil
}

func deploySafeCommand(c *cli.Context) error {
	client, _, err := buildClient(c, true)
	if err != nil {
		return err
	}

	record, err := client.DeploySafeWallet(c.Context)
	if err != nil {
		return err
	}
	printRecord(record)
	return nil
}

func nonceCommand(c *cli.Context) error {
	client, _, err := buildClient(c, false)
	if err != nil {
		return err
	}

	var address *common.Address
	if s := c.String("address"); s != "" {
		if !common.IsHexAddress(s) {
			return fmt.Errorf("invalid address: %s", s)
		}
		addr := common.HexToAddress(s)
		address = &addr
	}

	nonce, err := client.GetNonce(c.Context, address, types.SignerKind(c.String("type")))
	if err != nil {
		return err
	}
	fmt.Println(nonce)
	return nil
}

func relayAddressCommand(c *cli.Context) error {
	client, _, err := buildClient(c, false)
	if err != nil {
		return err
	}

	address, err := client.GetRelayerAddress(c.Context)
	if err != nil {
		return err
	}
	fmt.Println(address.Hex())
	return nil
}

func statusCommand(c *cli.Context) error {
	id := c.Args().First()
	if id == "" {
		return fmt.Errorf("transaction id is required")
	}

	client, _, err := buildClient(c, false)
	if err != nil {
		return err
	}

	records, err := client.GetTransaction(c.Context, id)
	if err != nil {
		return err
	}
	for i := range records {
		printRecord(&records[i])
	}
	return nil
}

func listCommand(c *cli.Context) error {
	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: c.Bool("verbose")})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	store, err := openJournal(c, l)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	entries, err := store.ListSubmissions()
	if err != nil {
		return err
	}
	for _, entry := range entries {
		fmt.Printf("%s  %-12s %-16s %s\n",
			entry.SubmittedAt.Format("2006-01-02 15:04:05"),
			entry.Kind, entry.State, entry.TransactionID)
	}
	return nil
}

func waitCommand(c *cli.Context) error {
	id := c.Args().First()
	if id == "" {
		return fmt.Errorf("transaction id is required")
	}

	client, _, err := buildClient(c, true)
	if err != nil {
		return err
	}
	return awaitAndPrint(c, client, id, &relayer.ConfirmationOptions{
		MaxPolls:     c.Int("max-polls"),
		PollInterval: time.Duration(c.Int("poll-interval-ms")) * time.Millisecond,
	})
}

func awaitAndPrint(c *cli.Context, client *relayer.Client, id string, opts *relayer.ConfirmationOptions) error {
	record, reached, err := client.AwaitConfirmation(c.Context, id, opts)
	if err != nil {
		return err
	}
	if !reached {
		if record != nil {
			fmt.Printf("not confirmed (last state %s)\n", record.State)
		} else {
			fmt.Println("not confirmed")
		}
		return nil
	}
	printRecord(record)
	return nil
}

func printRecord(record *types.TransactionRecord) {
	fmt.Printf("id=%s state=%s relayHash=%s txHash=%s\n",
		record.ID, record.State, record.RelayHash, record.ChainTransactionHash)
}

func readJSONFile(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

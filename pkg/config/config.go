package config

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/kelseyhightower/envconfig"
	"k8s.io/apimachinery/pkg/util/validation/field"
)

// Environment variable names recognized by relayctl
const (
	EnvRelayEndpoint = "RELAY_ENDPOINT"
	EnvRelayChainID  = "RELAY_CHAIN_ID"
	EnvRelayKey      = "RELAY_PRIVATE_KEY"
	EnvRelayAPIKey   = "RELAY_API_KEY"
	EnvRelaySecret   = "RELAY_API_SECRET"
	EnvRelayDataDir  = "RELAY_DATA_DIR"
	EnvRelayVerbose  = "RELAY_VERBOSE"

	EnvRelayRedisAddress  = "RELAY_REDIS_ADDRESS"
	EnvRelayRedisPassword = "RELAY_REDIS_PASSWORD"
)

type ChainId uint

const (
	ChainId_PolygonMainnet ChainId = 137
	ChainId_PolygonAmoy    ChainId = 80002
	ChainId_Anvil          ChainId = 31337
)

type ChainName string

const (
	ChainName_PolygonMainnet ChainName = "polygon"
	ChainName_PolygonAmoy    ChainName = "amoy"
	ChainName_Anvil          ChainName = "devnet"
)

var ChainIdToName = map[ChainId]ChainName{
	ChainId_PolygonMainnet: ChainName_PolygonMainnet,
	ChainId_PolygonAmoy:    ChainName_PolygonAmoy,
	ChainId_Anvil:          ChainName_Anvil,
}
var ChainNameToId = map[ChainName]ChainId{
	ChainName_PolygonMainnet: ChainId_PolygonMainnet,
	ChainName_PolygonAmoy:    ChainId_PolygonAmoy,
	ChainName_Anvil:          ChainId_Anvil,
}

// Default relay base URLs per chain. An explicit endpoint in the client
// configuration always overrides these.
var DefaultRelayEndpoints = map[ChainId]string{
	ChainId_PolygonMainnet: "https://relay.polyemperion.com",
	ChainId_PolygonAmoy:    "https://relay-amoy.polyemperion.com",
	ChainId_Anvil:          "http://localhost:8755",
}

// GetRelayEndpointForChainId returns the default relay endpoint for a chain.
func GetRelayEndpointForChainId(chainId ChainId) (string, error) {
	endpoint, ok := DefaultRelayEndpoints[chainId]
	if !ok {
		return "", fmt.Errorf("unsupported chain ID: %d", chainId)
	}
	return endpoint, nil
}

// GetSupportedChainIDs returns all chain IDs the relay operates on.
func GetSupportedChainIDs() []ChainId {
	return []ChainId{
		ChainId_PolygonMainnet,
		ChainId_PolygonAmoy,
		ChainId_Anvil,
	}
}

// GetSupportedChainIDsString returns the supported chain IDs for CLI help.
func GetSupportedChainIDsString() string {
	return fmt.Sprintf("%d (polygon), %d (amoy), %d (anvil)",
		ChainId_PolygonMainnet, ChainId_PolygonAmoy, ChainId_Anvil)
}

// RelayAuth is an optional relay-specific credential pair attached to every
// request as headers, independent of the per-request signature.
type RelayAuth struct {
	APIKey string `json:"apiKey" yaml:"apiKey"`
	Secret string `json:"secret" yaml:"secret"`
}

func (a *RelayAuth) Validate() error {
	var allErrors field.ErrorList
	if a.APIKey == "" {
		allErrors = append(allErrors, field.Required(field.NewPath("apiKey"), "apiKey is required"))
	}
	if a.Secret == "" {
		allErrors = append(allErrors, field.Required(field.NewPath("secret"), "secret is required"))
	}
	if len(allErrors) > 0 {
		return allErrors.ToAggregate()
	}
	return nil
}

// EnvConfig is the environment-sourced configuration consumed by relayctl.
type EnvConfig struct {
	RelayEndpoint string `envconfig:"RELAY_ENDPOINT"`
	ChainID       uint   `envconfig:"RELAY_CHAIN_ID" default:"137"`
	PrivateKey    string `envconfig:"RELAY_PRIVATE_KEY"`
	APIKey        string `envconfig:"RELAY_API_KEY"`
	APISecret     string `envconfig:"RELAY_API_SECRET"`
	DataDir       string `envconfig:"RELAY_DATA_DIR" default:"~/.relayctl"`
	Verbose       bool   `envconfig:"RELAY_VERBOSE"`
	RedisAddress  string `envconfig:"RELAY_REDIS_ADDRESS"`
	RedisPassword string `envconfig:"RELAY_REDIS_PASSWORD"`
}

// LoadEnvConfig reads relayctl configuration from the environment.
func LoadEnvConfig() (*EnvConfig, error) {
	var cfg EnvConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to read config from environment: %w", err)
	}
	return &cfg, nil
}

// ValidateAddress checks that s is a well-formed hex address.
func ValidateAddress(s string) error {
	if s == "" {
		return fmt.Errorf("address cannot be empty")
	}
	if !common.IsHexAddress(s) {
		return fmt.Errorf("invalid address format: %s", s)
	}
	return nil
}

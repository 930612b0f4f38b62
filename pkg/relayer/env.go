package relayer

import (
	"go.uber.org/zap"

	"github.com/PolyEmperion/PolyEmperion-sdk/pkg/config"
)

// NewClientFromEnv builds a backend-mode client from RELAY_* environment
// variables. Frontend mode cannot be configured this way since an interactive
// signer is a live object, not a string.
func NewClientFromEnv(logger *zap.Logger) (*Client, error) {
	envCfg, err := config.LoadEnvConfig()
	if err != nil {
		return nil, err
	}

	cfg := &ClientConfig{
		RelayEndpoint: envCfg.RelayEndpoint,
		ChainID:       config.ChainId(envCfg.ChainID),
		Logger:        logger,
	}
	if envCfg.PrivateKey != "" {
		cfg.Backend = &BackendConfig{SecretKey: envCfg.PrivateKey}
	}
	if envCfg.APIKey != "" {
		cfg.Auth = &config.RelayAuth{
			APIKey: envCfg.APIKey,
			Secret: envCfg.APISecret,
		}
	}

	return NewClient(cfg)
}

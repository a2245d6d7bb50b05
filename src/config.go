package src

import (
	"fmt"

	"onboarding_flow/src/model"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is prepended to every environment variable, e.g. ONBOARD_LOG_LEVEL
const EnvPrefix = "ONBOARD"

type Config struct {
	LogConfig     model.LogConfig     `envconfig:"LOG"`
	StorageConfig model.StorageConfig `envconfig:"STORAGE"`
	RPCConfig     model.RPCConfig     `envconfig:"RPC"`
	PollConfig    model.PollConfig    `envconfig:"POLL"`
	// FlowsFile overrides the built-in flow table (.yaml, .yml or .toml)
	FlowsFile string `envconfig:"FLOWS_FILE"`
}

func LoadConfig() (*Config, error) {
	var config Config
	err := envconfig.Process(EnvPrefix, &config)
	if err != nil {
		return nil, fmt.Errorf("error processing environment configuration: %w", err)
	}

	return &config, nil
}

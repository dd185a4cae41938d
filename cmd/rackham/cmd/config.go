package cmd

import (
	"fmt"
	"sync"

	"github.com/go-viper/mapstructure/v2"
	"github.com/oneconcern/rackham/pkg/dlogger"
	"github.com/oneconcern/rackham/pkg/resources"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const policyKey = "policy"

// CLIConfig describes the CLI configuration.
//
// A configuration file may override any part of the cluster policy under the "policy" key,
// e.g.
//
//	policy:
//	  maxCPUs: 16
//	  tiers:
//	    - partition: node
//	      constraint: mem512GB
//	      maxMem: 512G
//	      mem: 512G
//
// Omitted fields keep their Rackham defaults. Tiers, when given, replace the default tiers.
type CLIConfig struct {
	LogLevel  string           `mapstructure:"loglevel" json:"loglevel" yaml:"loglevel"`
	LogFormat string           `mapstructure:"logformat" json:"logformat" yaml:"logformat"`
	Policy    resources.Policy `mapstructure:"-" json:"policy" yaml:"policy"`

	onceLogger sync.Once
	logger     *zap.Logger
	loggerErr  error
}

func newConfig() (*CLIConfig, error) {
	var config CLIConfig
	err := viper.Unmarshal(&config)
	if err != nil {
		return nil, err
	}

	config.Policy = resources.Rackham()
	if viper.IsSet(policyKey) {
		if viper.IsSet(policyKey + ".tiers") {
			config.Policy.Tiers = nil
		}
		err = viper.UnmarshalKey(policyKey, &config.Policy, viper.DecodeHook(
			mapstructure.ComposeDecodeHookFunc(
				resources.MemDecodeHook(),
				mapstructure.StringToSliceHookFunc(","),
			),
		))
		if err != nil {
			return nil, fmt.Errorf("decode policy: %w", err)
		}
	}
	if err = config.Policy.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *CLIConfig) getLogger() (*zap.Logger, error) {
	c.onceLogger.Do(func() {
		c.logger, c.loggerErr = dlogger.GetLogger(c.LogLevel, dlogger.WithEncoding(c.LogFormat))
	})
	if c.loggerErr != nil {
		return nil, fmt.Errorf("failed to set log level: %w", c.loggerErr)
	}
	return c.logger, nil
}

func (c *CLIConfig) adjustOpts() ([]resources.Option, error) {
	logger, err := c.getLogger()
	if err != nil {
		return nil, err
	}
	return []resources.Option{
		resources.WithLogger(logger),
		resources.WithPolicy(c.Policy),
	}, nil
}

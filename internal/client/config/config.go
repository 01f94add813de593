package config

import (
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/crowdfund/internal/client/models"
	"github.com/ethereum/go-ethereum/common"
)

// Config holds runtime settings for the crowdfund CLI.
type Config struct {
	RPCEndpoint     string `env:"RPC_ENDPOINT"`
	ContractAddress string `env:"CONTRACT_ADDRESS"`
	// ChainID is the network the contract lives on; zero accepts any.
	ChainID      uint64 `env:"CHAIN_ID"`
	KeystoreDir  string `env:"KEYSTORE_DIR"`
	DatabasePath string `env:"DATABASE_PATH"`

	NetworkCheckInterval time.Duration `env:"NETWORK_CHECK_INTERVAL"`
	ReadConcurrency      int           `env:"READ_CONCURRENCY"`

	MinDeadlineLead time.Duration `env:"MIN_DEADLINE_LEAD"`
	MinFundingGoal  string        `env:"MIN_FUNDING_GOAL"`

	LogLevel  string `env:"LOG_LEVEL"`
	LogFormat string `env:"LOG_FORMAT"`
}

// LoadDefaults points the client at the Sepolia deployment over a websocket
// endpoint, so contract events are pushed rather than polled.
func (c *Config) LoadDefaults() {
	c.RPCEndpoint = "wss://ethereum-sepolia-rpc.publicnode.com"
	c.ContractAddress = "0xd593813d5149984bEE37C141356d70530d1f86E5"
	c.ChainID = 11155111
	c.KeystoreDir = "keystore"
	c.DatabasePath = "crowdfund.db"
	c.NetworkCheckInterval = 5 * time.Second
	c.ReadConcurrency = 8
	c.MinDeadlineLead = 5 * time.Minute
	c.MinFundingGoal = "0.01"
	c.LogLevel = "info"
	c.LogFormat = "text"
}

// Validate checks values that would otherwise fail deep inside the client.
func (c *Config) Validate() error {
	if !common.IsHexAddress(c.ContractAddress) {
		return fmt.Errorf("invalid contract address %q", c.ContractAddress)
	}
	if _, err := models.ParseEther(c.MinFundingGoal); err != nil {
		return fmt.Errorf("invalid minimum funding goal: %w", err)
	}
	if c.ReadConcurrency < 1 {
		return fmt.Errorf("read concurrency must be positive, got %d", c.ReadConcurrency)
	}
	if c.NetworkCheckInterval <= 0 {
		return fmt.Errorf("network check interval must be positive, got %s", c.NetworkCheckInterval)
	}
	return nil
}

func (c *Config) Address() common.Address {
	return common.HexToAddress(c.ContractAddress)
}

// MinGoal is MinFundingGoal as an amount. Call Validate first.
func (c *Config) MinGoal() models.Amount {
	a, err := models.ParseEther(c.MinFundingGoal)
	if err != nil {
		return models.Amount{}
	}
	return a
}

// LoadConfig builds a Config from defaults, the JSON file, the environment
// and args, later sources taking precedence, and validates the result.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseJSON(cfg, args); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg, nil); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MustLoad is LoadConfig over os.Args that exits on error.
func MustLoad() *Config {
	cfg, err := LoadConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}
	return cfg
}

package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/crowdfund/internal/flagx"
	"github.com/dmitrijs2005/crowdfund/internal/timex"
)

// JSONConfig is a DTO used exclusively for JSON unmarshalling. Absent fields
// leave the corresponding Config value untouched.
type JSONConfig struct {
	RPCEndpoint          string         `json:"rpc_endpoint"`
	ContractAddress      string         `json:"contract_address"`
	ChainID              uint64         `json:"chain_id"`
	KeystoreDir          string         `json:"keystore_dir"`
	DatabasePath         string         `json:"database_path"`
	NetworkCheckInterval timex.Duration `json:"network_check_interval"`
	ReadConcurrency      int            `json:"read_concurrency"`
	MinDeadlineLead      timex.Duration `json:"min_deadline_lead"`
	MinFundingGoal       string         `json:"min_funding_goal"`
	LogLevel             string         `json:"log_level"`
	LogFormat            string         `json:"log_format"`
}

// parseJSON overlays cfg with the file named by -c/-config in args, if any.
func parseJSON(cfg *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	var jc JSONConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&cfg.RPCEndpoint, jc.RPCEndpoint)
	setString(&cfg.ContractAddress, jc.ContractAddress)
	setString(&cfg.KeystoreDir, jc.KeystoreDir)
	setString(&cfg.DatabasePath, jc.DatabasePath)
	setString(&cfg.MinFundingGoal, jc.MinFundingGoal)
	setString(&cfg.LogLevel, jc.LogLevel)
	setString(&cfg.LogFormat, jc.LogFormat)
	if jc.ChainID != 0 {
		cfg.ChainID = jc.ChainID
	}
	if jc.ReadConcurrency != 0 {
		cfg.ReadConcurrency = jc.ReadConcurrency
	}
	if jc.NetworkCheckInterval.Duration != 0 {
		cfg.NetworkCheckInterval = jc.NetworkCheckInterval.Duration
	}
	if jc.MinDeadlineLead.Duration != 0 {
		cfg.MinDeadlineLead = jc.MinDeadlineLead.Duration
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

package config

import (
	"flag"
	"io"

	"github.com/dmitrijs2005/crowdfund/internal/flagx"
)

var knownFlags = []string{"-r", "-a", "-n", "-k", "-d", "-i", "-l", "-f"}

// parseFlags populates Config fields from the flags in args it knows about;
// everything else is left to other loaders.
func parseFlags(cfg *Config, args []string) error {
	fs := flag.NewFlagSet("crowdfund", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.RPCEndpoint, "r", cfg.RPCEndpoint, "JSON-RPC endpoint of the ledger node")
	fs.StringVar(&cfg.ContractAddress, "a", cfg.ContractAddress, "crowdfunding contract address")
	fs.Uint64Var(&cfg.ChainID, "n", cfg.ChainID, "expected chain id")
	fs.StringVar(&cfg.KeystoreDir, "k", cfg.KeystoreDir, "keystore directory")
	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "authorization database path")
	fs.DurationVar(&cfg.NetworkCheckInterval, "i", cfg.NetworkCheckInterval, "network check interval")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")
	fs.StringVar(&cfg.LogFormat, "f", cfg.LogFormat, "log format (text or json)")

	return fs.Parse(flagx.FilterArgs(args, knownFlags))
}

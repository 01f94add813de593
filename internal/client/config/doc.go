// Package config loads runtime configuration for the crowdfund CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJSON) selected via flags: -c or -config.
//  3. Environment variables prefixed with CROWDFUND_ (see parseEnv).
//  4. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-r string     JSON-RPC endpoint of the ledger node
//	-a string     crowdfunding contract address
//	-n uint       expected chain id
//	-k string     keystore directory
//	-d string     authorization database path
//	-i duration   network check interval, also the event poll interval on
//	              endpoints without subscriptions (plain http)
//	-l string     log level (debug, info, warn, error)
//	-f string     log format (text, json)
//
// # JSON schema
//
// Intervals use timex.Duration, so they may be strings like "5s" or integer
// nanoseconds:
//
//	{
//	  "rpc_endpoint": "wss://ethereum-sepolia-rpc.publicnode.com",
//	  "contract_address": "0xd593813d5149984bEE37C141356d70530d1f86E5",
//	  "network_check_interval": "5s",
//	  "min_funding_goal": "0.01"
//	}
package config

// Package config also contains DEX-specific configuration surfaces.
package config

import "strings"

// Venues the swap can be routed through.
const (
	VenueWhirlpool = "whirlpool"
	VenueJupiter   = "jupiter"
)

// Environment variables read by ApplyEnv.
const (
	EnvProviderURL = "ANCHOR_PROVIDER_URL"
	EnvWallet      = "ANCHOR_WALLET"
	EnvPrivateKey  = "SOLANA_PRIVATE_KEY_BASE58"
	EnvCommitment  = "SOLANA_COMMITMENT"
	EnvJupiterBase = "JUPITER_BASE_URL"
	EnvLogLevel    = "LOG_LEVEL"
	EnvConfigPath  = "SWAP_CONFIG"
)

// Dex defines network endpoints and defaults for decentralized execution.
type Dex struct {
	Chain       string `yaml:"chain"` // e.g. "solana"
	RpcURL      string `yaml:"rpc_url"`
	Commitment  string `yaml:"commitment"`   // processed|confirmed|finalized
	JupiterBase string `yaml:"jupiter_base"` // https://quote-api.jup.ag
	Venue       string `yaml:"venue"`        // whirlpool|jupiter
	// PriorityFeeMicroLamports adds a compute unit price to Whirlpool swaps when non-zero.
	PriorityFeeMicroLamports uint64 `yaml:"priority_fee_micro_lamports"`
}

// Wallet stores env-backed signing material metadata.
type Wallet struct {
	KeypairPath      string `yaml:"keypair_path"`
	PrivateKeyBase58 string `yaml:"private_key_base58"`
}

// ApplyEnv overlays non-empty environment values onto cfg.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	set(EnvProviderURL, &cfg.Dex.RpcURL)
	set(EnvWallet, &cfg.Wallet.KeypairPath)
	set(EnvPrivateKey, &cfg.Wallet.PrivateKeyBase58)
	set(EnvCommitment, &cfg.Dex.Commitment)
	set(EnvJupiterBase, &cfg.Dex.JupiterBase)
	set(EnvLogLevel, &cfg.App.LogLevel)
}

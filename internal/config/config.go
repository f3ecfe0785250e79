// Package config exposes strongly typed application configuration structs loaded from YAML.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	solana "github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"whirlswap-go/internal/risk"
	"whirlswap-go/internal/swap"
)

// App captures process-wide runtime settings such as name, environment, metrics, and logging levels.
type App struct {
	Name        string `yaml:"name"`
	Env         string `yaml:"env"`
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
	// JournalPath appends every submitted swap as a JSON line when set.
	JournalPath string `yaml:"journal_path"`
}

// Token names an SPL mint and how to display it.
type Token struct {
	Mint     string `yaml:"mint"`
	Decimals uint8  `yaml:"decimals"`
	Symbol   string `yaml:"symbol"`
}

// Slippage is a fraction numerator/denominator.
type Slippage struct {
	Numerator   uint64 `yaml:"numerator"`
	Denominator uint64 `yaml:"denominator"`
}

// Swap describes the single trade the process attempts.
type Swap struct {
	// Pool is optional; when empty the address is derived from the mints and TickSpacing.
	Pool         string   `yaml:"pool"`
	TickSpacing  uint16   `yaml:"tick_spacing"`
	Input        Token    `yaml:"input"`
	Output       Token    `yaml:"output"`
	AmountIn     string   `yaml:"amount_in"`
	Slippage     Slippage `yaml:"slippage"`
	MaxRetries   int      `yaml:"max_retries"`
	RetryDelayMs int      `yaml:"retry_delay_ms"`
}

// Risk encodes guard-rails for how much size the executor may take on.
type Risk struct {
	// MaxAmountIn caps the input amount in display units; empty disables the cap.
	MaxAmountIn string `yaml:"max_amount_in"`
}

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App    App    `yaml:"app"`
	Dex    Dex    `yaml:"dex"`
	Wallet Wallet `yaml:"wallet"`
	Swap   Swap   `yaml:"swap"`
	Risk   Risk   `yaml:"risk"`
}

// Default returns the built-in parameters: 0.001 SOL into COCO through a fixed Whirlpool.
func Default() *Config {
	return &Config{
		App: App{Name: "whirlswap", Env: "mainnet", LogLevel: "info"},
		Dex: Dex{
			Chain:       "solana",
			Commitment:  "confirmed",
			JupiterBase: "https://quote-api.jup.ag",
			Venue:       VenueWhirlpool,
		},
		Swap: Swap{
			Pool:         "Gk5jgVnUxk7QyYhRMrpLDfZq5ztfA5SLpgowPQjKFrth",
			TickSpacing:  128,
			Input:        Token{Mint: solana.WrappedSol.String(), Decimals: 9, Symbol: "SOL"},
			Output:       Token{Mint: "74DSHnK1qqr4z1pXjLjPAVi8XFngZ635jEVpdkJtnizQ", Decimals: 9, Symbol: "COCO"},
			AmountIn:     "0.001",
			Slippage:     Slippage{Numerator: 300, Denominator: 1000},
			MaxRetries:   10000,
			RetryDelayMs: 500,
		},
	}
}

// Load reads a YAML file from disk over the defaults.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	config := Default()
	if err := yaml.NewDecoder(file).Decode(config); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return config, nil
}

// Save persists a Config struct to disk as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Resolved is the validated, typed form of the Swap section.
type Resolved struct {
	// Pool is zero when it has to be derived.
	Pool     solana.PublicKey
	Input    swap.Token
	Output   swap.Token
	Amount   decimal.Decimal
	AmountIn uint64
	Slippage swap.Percentage
	Delay    time.Duration
}

// Resolve parses the Swap section. Every error wraps swap.ErrConfig.
func (s Swap) Resolve() (*Resolved, error) {
	var r Resolved
	var err error
	if s.Pool != "" {
		if r.Pool, err = solana.PublicKeyFromBase58(s.Pool); err != nil {
			return nil, fmt.Errorf("%w: swap.pool: %v", swap.ErrConfig, err)
		}
	} else if s.TickSpacing == 0 {
		return nil, fmt.Errorf("%w: swap.tick_spacing is required when swap.pool is empty", swap.ErrConfig)
	}
	if r.Input, err = s.Input.resolve("swap.input"); err != nil {
		return nil, err
	}
	if r.Output, err = s.Output.resolve("swap.output"); err != nil {
		return nil, err
	}
	if r.Input.Mint.Equals(r.Output.Mint) {
		return nil, fmt.Errorf("%w: input and output mints are the same", swap.ErrConfig)
	}

	if r.Amount, err = decimal.NewFromString(strings.TrimSpace(s.AmountIn)); err != nil {
		return nil, fmt.Errorf("%w: swap.amount_in %q: %v", swap.ErrConfig, s.AmountIn, err)
	}
	if !r.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: swap.amount_in must be positive", swap.ErrConfig)
	}
	if r.AmountIn, err = r.Input.ToBaseUnits(r.Amount); err != nil {
		return nil, fmt.Errorf("%w: swap.amount_in: %v", swap.ErrConfig, err)
	}

	r.Slippage = swap.FromFraction(s.Slippage.Numerator, s.Slippage.Denominator)
	if err := r.Slippage.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", swap.ErrConfig, err)
	}
	if s.MaxRetries <= 0 {
		return nil, fmt.Errorf("%w: swap.max_retries must be positive", swap.ErrConfig)
	}
	if s.RetryDelayMs < 0 {
		return nil, fmt.Errorf("%w: swap.retry_delay_ms must not be negative", swap.ErrConfig)
	}
	r.Delay = time.Duration(s.RetryDelayMs) * time.Millisecond
	return &r, nil
}

func (t Token) resolve(field string) (swap.Token, error) {
	mint, err := solana.PublicKeyFromBase58(t.Mint)
	if err != nil {
		return swap.Token{}, fmt.Errorf("%w: %s.mint %q: %v", swap.ErrConfig, field, t.Mint, err)
	}
	symbol := t.Symbol
	if symbol == "" {
		symbol = t.Mint
	}
	return swap.Token{Mint: mint, Decimals: t.Decimals, Symbol: symbol}, nil
}

// MaxAmount parses the risk cap; zero means unlimited.
func (r Risk) MaxAmount() (decimal.Decimal, error) {
	if strings.TrimSpace(r.MaxAmountIn) == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(r.MaxAmountIn))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: risk.max_amount_in %q: %v", swap.ErrConfig, r.MaxAmountIn, err)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: risk.max_amount_in must not be negative", swap.ErrConfig)
	}
	return d, nil
}

// Validate checks everything that can be checked without touching the network.
func (c *Config) Validate() error {
	var errs []error
	if c.Dex.RpcURL == "" {
		errs = append(errs, fmt.Errorf("%w: %s is not set", swap.ErrConfig, EnvProviderURL))
	} else if u, err := url.Parse(c.Dex.RpcURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("%w: %s %q is not an http(s) URL", swap.ErrConfig, EnvProviderURL, c.Dex.RpcURL))
	}
	if c.Wallet.KeypairPath == "" && c.Wallet.PrivateKeyBase58 == "" {
		errs = append(errs, fmt.Errorf("%w: set %s or %s", swap.ErrConfig, EnvWallet, EnvPrivateKey))
	}
	switch strings.ToLower(c.Dex.Commitment) {
	case "", "processed", "confirmed", "finalized":
	default:
		errs = append(errs, fmt.Errorf("%w: unknown commitment %q", swap.ErrConfig, c.Dex.Commitment))
	}
	switch c.Dex.Venue {
	case "", VenueWhirlpool, VenueJupiter:
	default:
		errs = append(errs, fmt.Errorf("%w: unknown dex.venue %q", swap.ErrConfig, c.Dex.Venue))
	}

	resolved, err := c.Swap.Resolve()
	if err != nil {
		errs = append(errs, err)
	}
	limit, err := c.Risk.MaxAmount()
	if err != nil {
		errs = append(errs, err)
	} else if resolved != nil && !(risk.Limits{MaxAmountIn: limit}).Allow(resolved.Amount) {
		errs = append(errs, fmt.Errorf("%w: swap.amount_in %s exceeds risk.max_amount_in %s",
			swap.ErrConfig, resolved.Amount, limit))
	}
	return errors.Join(errs...)
}

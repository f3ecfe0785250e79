// Package whirlpool is a minimal client for the Orca Whirlpool concentrated-liquidity program.
//
// It decodes pool and tick-array accounts, estimates exact-input swaps using the
// program's Q64.64 sqrt-price math, and assembles swap transactions.
package whirlpool

import (
	"crypto/sha256"
	"math/big"

	solana "github.com/gagliardetto/solana-go"
)

var (
	// ProgramID is the mainnet Orca Whirlpool program.
	ProgramID = solana.MustPublicKeyFromBase58("whirLbMiicVdio4qvUfM5KAg6Ct8VwpYzGff3uctyCc")
	// ConfigID is Orca's mainnet WhirlpoolsConfig account used in pool PDAs.
	ConfigID = solana.MustPublicKeyFromBase58("2LecshUwdy9xi7meFgHtFJQNSKk4KdTrcpvaB56dP2NQ")

	computeBudgetProgramID = solana.MustPublicKeyFromBase58("ComputeBudget111111111111111111111111111111")
)

const (
	// TickArraySize is the number of ticks stored per tick-array account.
	TickArraySize = 88
	// MinTickIndex and MaxTickIndex bound every initializable tick.
	MinTickIndex = -443636
	MaxTickIndex = 443636

	feeRateDenominator = 1_000_000

	whirlpoolAccountLen = 653
	tickLen             = 113
	tickArrayAccountLen = 8 + 4 + TickArraySize*tickLen + 32
)

var (
	// MinSqrtPrice and MaxSqrtPrice are the Q64.64 sqrt prices at the tick bounds.
	MinSqrtPrice, _ = new(big.Int).SetString("4295048016", 10)
	MaxSqrtPrice, _ = new(big.Int).SetString("79226673515401279992447579055", 10)

	q64 = new(big.Int).Lsh(big.NewInt(1), 64)

	whirlpoolDiscriminator = anchorDiscriminator("account:Whirlpool")
	tickArrayDiscriminator = anchorDiscriminator("account:TickArray")
	swapDiscriminator      = anchorDiscriminator("global:swap")
)

func anchorDiscriminator(name string) [8]byte {
	sum := sha256.Sum256([]byte(name))
	var out [8]byte
	copy(out[:], sum[:8])
	return out
}

// Package swap standardizes payloads shared between venue adapters and the executor.
package swap

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/big"

	solana "github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

// ErrConfig marks errors caused by configuration rather than network conditions; retrying will not help.
var ErrConfig = errors.New("configuration error")

// Token describes an SPL mint together with its display metadata.
type Token struct {
	Mint     solana.PublicKey
	Decimals uint8
	Symbol   string
}

var maxUint64 = decimal.NewFromBigInt(new(big.Int).SetUint64(math.MaxUint64), 0)

// ToBaseUnits converts a display quantity (e.g. 0.001 SOL) into the mint's smallest unit.
func (t Token) ToBaseUnits(amount decimal.Decimal) (uint64, error) {
	if amount.IsNegative() {
		return 0, fmt.Errorf("%s amount %s is negative", t.Symbol, amount)
	}
	scaled := amount.Shift(int32(t.Decimals))
	if !scaled.Equal(scaled.Truncate(0)) {
		return 0, fmt.Errorf("%s amount %s has more than %d decimals", t.Symbol, amount, t.Decimals)
	}
	if scaled.GreaterThan(maxUint64) {
		return 0, fmt.Errorf("%s amount %s overflows u64", t.Symbol, amount)
	}
	return scaled.BigInt().Uint64(), nil
}

// FromBaseUnits renders a raw on-chain amount as a display quantity.
func (t Token) FromBaseUnits(amount uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(amount), -int32(t.Decimals))
}

// Percentage is a fraction used for slippage tolerances.
type Percentage struct {
	Numerator   uint64
	Denominator uint64
}

// FromFraction builds a Percentage of numerator/denominator.
func FromFraction(numerator, denominator uint64) Percentage {
	return Percentage{Numerator: numerator, Denominator: denominator}
}

// Validate rejects zero denominators and fractions of 100% or more.
func (p Percentage) Validate() error {
	if p.Denominator == 0 {
		return errors.New("slippage denominator must be positive")
	}
	if p.Numerator >= p.Denominator {
		return fmt.Errorf("slippage %d/%d must be below 100%%", p.Numerator, p.Denominator)
	}
	return nil
}

// Bps expresses the fraction in basis points, rounding down.
func (p Percentage) Bps() int {
	if p.Denominator == 0 {
		return 0
	}
	return int(p.Numerator * 10_000 / p.Denominator)
}

// MinOut lowers amount by the tolerance, rounding down.
func (p Percentage) MinOut(amount uint64) uint64 {
	if p.Denominator == 0 {
		return amount
	}
	out := new(big.Int).SetUint64(amount)
	out.Mul(out, new(big.Int).SetUint64(p.Denominator-p.Numerator))
	out.Quo(out, new(big.Int).SetUint64(p.Denominator))
	return out.Uint64()
}

func (p Percentage) String() string {
	if p.Denominator == 0 {
		return "0%"
	}
	return decimal.NewFromInt(int64(p.Numerator)).
		Div(decimal.NewFromInt(int64(p.Denominator))).
		Shift(2).String() + "%"
}

// Blockhash pairs a recent blockhash with the last block height it stays valid for.
type Blockhash struct {
	Hash                 solana.Hash
	LastValidBlockHeight uint64
}

// Quote is a venue-specific estimate for one swap attempt.
type Quote interface {
	EstimatedAmountIn() uint64
	EstimatedAmountOut() uint64
}

// Transaction is a prepared swap that can be signed and submitted exactly once.
type Transaction interface {
	BuildAndExecute(ctx context.Context) (solana.Signature, error)
}

// Pool is an opaque handle to a fetched liquidity pool.
type Pool interface {
	Address() solana.PublicKey
	Swap(ctx context.Context, quote Quote) (Transaction, error)
}

// Order names everything needed to quote a single exact-input swap.
type Order struct {
	Pool     Pool
	Input    Token
	Output   Token
	AmountIn uint64
	Slippage Percentage
}

package whirlpool

import (
	"errors"
	"math/big"
)

var (
	// ErrTickArraySequenceExhausted means the loaded tick arrays cannot absorb the full input.
	ErrTickArraySequenceExhausted = errors.New("swap crosses beyond the loaded tick arrays")
	// ErrInsufficientLiquidity means the price limit was hit before the input was consumed.
	ErrInsufficientLiquidity = errors.New("insufficient liquidity for swap amount")
)

var sqrtTickBase = func() *big.Float {
	base := new(big.Float).SetPrec(256).SetFloat64(1.0001)
	return new(big.Float).SetPrec(256).Sqrt(base)
}()

// SqrtPriceFromTick returns sqrt(1.0001^tick) as a Q64.64 integer.
func SqrtPriceFromTick(tick int32) *big.Int {
	n := tick
	if n < 0 {
		n = -n
	}
	result := new(big.Float).SetPrec(256).SetInt64(1)
	base := new(big.Float).SetPrec(256).Set(sqrtTickBase)
	for n > 0 {
		if n&1 == 1 {
			result.Mul(result, base)
		}
		base.Mul(base, base)
		n >>= 1
	}
	if tick < 0 {
		result.Quo(new(big.Float).SetPrec(256).SetInt64(1), result)
	}
	result.Mul(result, new(big.Float).SetPrec(256).SetInt(q64))
	out, _ := result.Int(nil)
	return out
}

// amountDeltaA is the token A needed to move between two sqrt prices at liquidity l.
func amountDeltaA(sqrtA, sqrtB, l *big.Int, roundUp bool) *big.Int {
	lower, upper := ordered(sqrtA, sqrtB)
	num := new(big.Int).Lsh(l, 64)
	num.Mul(num, new(big.Int).Sub(upper, lower))
	den := new(big.Int).Mul(upper, lower)
	return div(num, den, roundUp)
}

// amountDeltaB is the token B needed to move between two sqrt prices at liquidity l.
func amountDeltaB(sqrtA, sqrtB, l *big.Int, roundUp bool) *big.Int {
	lower, upper := ordered(sqrtA, sqrtB)
	num := new(big.Int).Mul(l, new(big.Int).Sub(upper, lower))
	return div(num, q64, roundUp)
}

// nextSqrtPriceFromA moves the price down by adding amount of token A.
func nextSqrtPriceFromA(sqrtPrice, l, amount *big.Int) *big.Int {
	if amount.Sign() == 0 {
		return new(big.Int).Set(sqrtPrice)
	}
	lShifted := new(big.Int).Lsh(l, 64)
	num := new(big.Int).Mul(lShifted, sqrtPrice)
	den := new(big.Int).Add(lShifted, new(big.Int).Mul(amount, sqrtPrice))
	return div(num, den, true)
}

// nextSqrtPriceFromB moves the price up by adding amount of token B.
func nextSqrtPriceFromB(sqrtPrice, l, amount *big.Int) *big.Int {
	delta := new(big.Int).Lsh(amount, 64)
	delta.Quo(delta, l)
	return delta.Add(delta, sqrtPrice)
}

type swapStep struct {
	amountIn  *big.Int
	amountOut *big.Int
	fee       *big.Int
	nextPrice *big.Int
}

// computeSwapStep consumes as much of remaining as fits between current and target at liquidity l.
func computeSwapStep(remaining *big.Int, feeRate uint16, l, current, target *big.Int, aToB bool) swapStep {
	feeDen := big.NewInt(feeRateDenominator)
	keep := big.NewInt(feeRateDenominator - int64(feeRate))

	afterFee := new(big.Int).Mul(remaining, keep)
	afterFee.Quo(afterFee, feeDen)

	var toTarget *big.Int
	if aToB {
		toTarget = amountDeltaA(target, current, l, true)
	} else {
		toTarget = amountDeltaB(current, target, l, true)
	}

	step := swapStep{}
	if afterFee.Cmp(toTarget) >= 0 {
		step.nextPrice = new(big.Int).Set(target)
		step.amountIn = toTarget
	} else {
		if aToB {
			step.nextPrice = nextSqrtPriceFromA(current, l, afterFee)
		} else {
			step.nextPrice = nextSqrtPriceFromB(current, l, afterFee)
		}
		step.amountIn = afterFee
	}

	if aToB {
		step.amountOut = amountDeltaB(step.nextPrice, current, l, false)
	} else {
		step.amountOut = amountDeltaA(current, step.nextPrice, l, false)
	}

	if step.nextPrice.Cmp(target) == 0 {
		fee := new(big.Int).Mul(step.amountIn, big.NewInt(int64(feeRate)))
		step.fee = div(fee, keep, true)
		if spent := new(big.Int).Add(step.amountIn, step.fee); spent.Cmp(remaining) > 0 {
			step.fee = new(big.Int).Sub(remaining, step.amountIn)
		}
	} else {
		step.fee = new(big.Int).Sub(remaining, step.amountIn)
	}
	return step
}

func ordered(a, b *big.Int) (*big.Int, *big.Int) {
	if a.Cmp(b) > 0 {
		return b, a
	}
	return a, b
}

func div(num, den *big.Int, roundUp bool) *big.Int {
	q, r := new(big.Int).QuoRem(num, den, new(big.Int))
	if roundUp && r.Sign() != 0 {
		q.Add(q, big.NewInt(1))
	}
	return q
}

package whirlpool

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	solana "github.com/gagliardetto/solana-go"

	"whirlswap-go/internal/swap"
)

// Quote is an exact-input swap estimate ready to be turned into a swap instruction.
type Quote struct {
	AmountIn               uint64
	OtherAmountThreshold   uint64
	SqrtPriceLimit         *big.Int
	AmountSpecifiedIsInput bool
	AToB                   bool
	TickArrays             [3]solana.PublicKey

	EstimatedIn           uint64
	EstimatedOut          uint64
	EstimatedFee          uint64
	EstimatedEndSqrtPrice *big.Int
}

// EstimatedAmountIn implements swap.Quote.
func (q *Quote) EstimatedAmountIn() uint64 { return q.EstimatedIn }

// EstimatedAmountOut implements swap.Quote.
func (q *Quote) EstimatedAmountOut() uint64 { return q.EstimatedOut }

// SwapQuoteByInputToken estimates swapping amount of inputMint through pool.
// With refresh set the pool account is re-read instead of using the handle's snapshot.
func SwapQuoteByInputToken(
	ctx context.Context,
	pool *Pool,
	inputMint solana.PublicKey,
	amount uint64,
	slippage swap.Percentage,
	programID solana.PublicKey,
	fetcher AccountFetcher,
	refresh bool,
) (*Quote, error) {
	if amount == 0 {
		return nil, fmt.Errorf("%w: input amount is zero", swap.ErrConfig)
	}
	if err := slippage.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", swap.ErrConfig, err)
	}

	data := pool.Data()
	if refresh {
		fresh, err := fetcher.FetchWhirlpool(ctx, pool.Address())
		if err != nil {
			return nil, err
		}
		data = fresh
	}

	var aToB bool
	switch {
	case inputMint.Equals(data.TokenMintA):
		aToB = true
	case inputMint.Equals(data.TokenMintB):
		aToB = false
	default:
		return nil, fmt.Errorf("%w: mint %s is not in pool %s", swap.ErrConfig, inputMint, pool.Address())
	}

	starts := SwapTickArrayStarts(data.TickCurrentIndex, data.TickSpacing, aToB)
	if len(starts) == 0 {
		return nil, ErrTickArraySequenceExhausted
	}
	addresses := make([]solana.PublicKey, len(starts))
	for i, start := range starts {
		addr, err := TickArrayAddress(programID, pool.Address(), start)
		if err != nil {
			return nil, err
		}
		addresses[i] = addr
	}
	arrays, err := fetcher.FetchTickArrays(ctx, addresses)
	if err != nil {
		return nil, err
	}
	if len(arrays) == 0 || arrays[0] == nil {
		return nil, fmt.Errorf("tick array %s (start %d) is not initialized", addresses[0], starts[0])
	}

	var sequence []*TickArray
	for _, ta := range arrays {
		if ta == nil {
			break
		}
		sequence = append(sequence, ta)
	}

	result, err := simulateSwap(data, sequence, amount, aToB)
	if err != nil {
		return nil, err
	}

	q := &Quote{
		AmountIn:               amount,
		OtherAmountThreshold:   slippage.MinOut(result.amountOut),
		AmountSpecifiedIsInput: true,
		AToB:                   aToB,
		EstimatedIn:            result.amountIn,
		EstimatedOut:           result.amountOut,
		EstimatedFee:           result.fee,
		EstimatedEndSqrtPrice:  result.endSqrtPrice,
	}
	q.SqrtPriceLimit = new(big.Int).Set(MaxSqrtPrice)
	if aToB {
		q.SqrtPriceLimit = new(big.Int).Set(MinSqrtPrice)
	}
	last := sequence[len(sequence)-1].Address
	for i := range q.TickArrays {
		q.TickArrays[i] = last
		if i < len(sequence) {
			q.TickArrays[i] = sequence[i].Address
		}
	}
	return q, nil
}

type swapResult struct {
	amountIn     uint64
	amountOut    uint64
	fee          uint64
	endSqrtPrice *big.Int
}

// simulateSwap walks initialized ticks across the given arrays, ordered in swap direction.
func simulateSwap(data *Whirlpool, arrays []*TickArray, amount uint64, aToB bool) (*swapResult, error) {
	remaining := new(big.Int).SetUint64(amount)
	out := new(big.Int)
	fees := new(big.Int)
	sqrtPrice := new(big.Int).Set(data.SqrtPrice)
	liquidity := new(big.Int).Set(data.Liquidity)
	tick := data.TickCurrentIndex

	limit := MaxSqrtPrice
	if aToB {
		limit = MinSqrtPrice
	}

	for remaining.Sign() > 0 && sqrtPrice.Cmp(limit) != 0 {
		next, initialized, err := nextTick(arrays, tick, data.TickSpacing, aToB)
		if err != nil {
			return nil, err
		}
		target := SqrtPriceFromTick(next.index)
		if (aToB && target.Cmp(limit) < 0) || (!aToB && target.Cmp(limit) > 0) {
			target = limit
		}

		step := computeSwapStep(remaining, data.FeeRate, liquidity, sqrtPrice, target, aToB)
		remaining.Sub(remaining, step.amountIn)
		remaining.Sub(remaining, step.fee)
		out.Add(out, step.amountOut)
		fees.Add(fees, step.fee)

		if step.nextPrice.Cmp(target) == 0 {
			if initialized {
				if aToB {
					liquidity.Sub(liquidity, next.tick.LiquidityNet)
				} else {
					liquidity.Add(liquidity, next.tick.LiquidityNet)
				}
				if liquidity.Sign() < 0 {
					return nil, errors.New("liquidity underflow while crossing tick")
				}
			}
			tick = next.index
			if aToB {
				tick--
			}
		}
		sqrtPrice = step.nextPrice
	}
	if remaining.Sign() > 0 {
		return nil, ErrInsufficientLiquidity
	}
	if !out.IsUint64() {
		return nil, errors.New("estimated output overflows u64")
	}
	return &swapResult{
		amountIn:     amount,
		amountOut:    out.Uint64(),
		fee:          fees.Uint64(),
		endSqrtPrice: sqrtPrice,
	}, nil
}

type tickRef struct {
	index int32
	tick  Tick
}

// nextTick finds the next initialized tick in swap direction, stopping at tick-array
// boundaries so each array is entered explicitly.
func nextTick(arrays []*TickArray, current int32, tickSpacing uint16, aToB bool) (tickRef, bool, error) {
	spacing := int32(tickSpacing)
	t := floorToSpacing(current, spacing)
	if !aToB {
		t += spacing
	}
	for {
		ta := arrayFor(arrays, t, spacing)
		if ta == nil {
			if !aToB && arrayFor(arrays, t-spacing, spacing) != nil {
				// one past the last array: stop at its upper boundary
				return tickRef{index: t}, false, nil
			}
			return tickRef{}, false, ErrTickArraySequenceExhausted
		}
		tk := ta.Ticks[(t-ta.StartTickIndex)/spacing]
		if tk.Initialized {
			return tickRef{index: t, tick: tk}, true, nil
		}
		if aToB {
			if t == ta.StartTickIndex {
				return tickRef{index: t}, false, nil
			}
			t -= spacing
		} else {
			t += spacing
		}
	}
}

func arrayFor(arrays []*TickArray, t, spacing int32) *TickArray {
	span := spacing * TickArraySize
	for _, ta := range arrays {
		if t >= ta.StartTickIndex && t < ta.StartTickIndex+span {
			return ta
		}
	}
	return nil
}

func floorToSpacing(t, spacing int32) int32 {
	mod := ((t % spacing) + spacing) % spacing
	return t - mod
}

package whirlpool

import (
	"context"
	"errors"
	"math/big"
	"testing"

	solana "github.com/gagliardetto/solana-go"

	"whirlswap-go/internal/swap"
)

func emptyArrays(starts ...int32) []*TickArray {
	out := make([]*TickArray, len(starts))
	for i, s := range starts {
		out[i] = &TickArray{Address: solana.NewWallet().PublicKey(), StartTickIndex: s}
		for j := range out[i].Ticks {
			out[i].Ticks[j] = Tick{LiquidityNet: new(big.Int), LiquidityGross: new(big.Int)}
		}
	}
	return out
}

func TestTickArrayStartIndex(t *testing.T) {
	cases := []struct {
		tick   int32
		offset int32
		want   int32
	}{
		{0, 0, 0},
		{5631, 0, 0},
		{5632, 0, 5632},
		{-1, 0, -5632},
		{-5632, 0, -5632},
		{-5633, 0, -11264},
		{0, -1, -5632},
		{0, 2, 11264},
	}
	for _, tc := range cases {
		if got := TickArrayStartIndex(tc.tick, 64, tc.offset); got != tc.want {
			t.Fatalf("TickArrayStartIndex(%d, 64, %d) = %d, want %d", tc.tick, tc.offset, got, tc.want)
		}
	}
}

func TestSwapTickArrayStarts(t *testing.T) {
	down := SwapTickArrayStarts(100, 64, true)
	if len(down) != 3 || down[0] != 0 || down[1] != -5632 || down[2] != -11264 {
		t.Fatalf("unexpected a-to-b starts %v", down)
	}
	up := SwapTickArrayStarts(5600, 64, false)
	if len(up) != 3 || up[0] != 5632 || up[1] != 11264 || up[2] != 16896 {
		t.Fatalf("unexpected b-to-a starts %v", up)
	}
	edge := SwapTickArrayStarts(MinTickIndex+10, 64, true)
	if len(edge) != 1 {
		t.Fatalf("expected arrays past the minimum tick to be dropped, got %v", edge)
	}
}

func TestSqrtPriceFromTick(t *testing.T) {
	if got := SqrtPriceFromTick(0); got.Cmp(q64) != 0 {
		t.Fatalf("expected 2^64 at tick 0, got %s", got)
	}
	// compare against the program's bound constants to within a millionth
	for _, tc := range []struct {
		tick int32
		want *big.Int
	}{{MinTickIndex, MinSqrtPrice}, {MaxTickIndex, MaxSqrtPrice}} {
		got := SqrtPriceFromTick(tc.tick)
		diff := new(big.Int).Sub(got, tc.want)
		diff.Abs(diff).Mul(diff, big.NewInt(1_000_000))
		if diff.Cmp(tc.want) > 0 {
			t.Fatalf("tick %d: got %s, want about %s", tc.tick, got, tc.want)
		}
	}
	if SqrtPriceFromTick(-64).Cmp(SqrtPriceFromTick(64)) >= 0 {
		t.Fatalf("expected sqrt price to increase with tick")
	}
}

func TestSimulateSwapWithinRange(t *testing.T) {
	pool := testWhirlpool()

	aToB, err := simulateSwap(pool, emptyArrays(0, -5632, -11264), 1_000_000, true)
	if err != nil {
		t.Fatalf("a-to-b simulate returned error: %v", err)
	}
	if aToB.fee != 3000 {
		t.Fatalf("expected 3000 fee, got %d", aToB.fee)
	}
	if aToB.amountOut < 996_998 || aToB.amountOut > 996_999 {
		t.Fatalf("unexpected a-to-b output %d", aToB.amountOut)
	}
	if aToB.endSqrtPrice.Cmp(pool.SqrtPrice) >= 0 {
		t.Fatalf("expected price to move down")
	}

	bToA, err := simulateSwap(pool, emptyArrays(0, 5632, 11264), 1_000_000, false)
	if err != nil {
		t.Fatalf("b-to-a simulate returned error: %v", err)
	}
	if bToA.amountOut < 996_998 || bToA.amountOut > 996_999 {
		t.Fatalf("unexpected b-to-a output %d", bToA.amountOut)
	}
	if bToA.endSqrtPrice.Cmp(pool.SqrtPrice) <= 0 {
		t.Fatalf("expected price to move up")
	}
}

func TestSimulateSwapCrossesInitializedTick(t *testing.T) {
	pool := testWhirlpool()
	pool.Liquidity = big.NewInt(1_000_000_000)

	flat, err := simulateSwap(pool, emptyArrays(0, -5632, -11264), 10_000_000, true)
	if err != nil {
		t.Fatalf("flat simulate returned error: %v", err)
	}

	arrays := emptyArrays(0, -5632, -11264)
	// tick -64 is the last slot of the array starting at -5632
	arrays[1].Ticks[87] = Tick{Initialized: true, LiquidityNet: big.NewInt(500_000_000), LiquidityGross: big.NewInt(500_000_000)}
	crossed, err := simulateSwap(pool, arrays, 10_000_000, true)
	if err != nil {
		t.Fatalf("crossing simulate returned error: %v", err)
	}
	if crossed.amountOut >= flat.amountOut {
		t.Fatalf("expected thinner liquidity to yield less: crossed=%d flat=%d", crossed.amountOut, flat.amountOut)
	}
	if crossed.amountOut == 0 {
		t.Fatalf("expected some output after crossing")
	}
}

func TestSimulateSwapExhaustsTickArrays(t *testing.T) {
	pool := testWhirlpool()
	pool.Liquidity = new(big.Int)
	_, err := simulateSwap(pool, emptyArrays(0, -5632), 1_000, true)
	if !errors.Is(err, ErrTickArraySequenceExhausted) {
		t.Fatalf("expected ErrTickArraySequenceExhausted, got %v", err)
	}
}

type fakeFetcher struct {
	pool       *Whirlpool
	arrays     map[solana.PublicKey]*TickArray
	poolReads  int
	arrayReads int
}

func (f *fakeFetcher) FetchWhirlpool(context.Context, solana.PublicKey) (*Whirlpool, error) {
	f.poolReads++
	return f.pool, nil
}

func (f *fakeFetcher) FetchTickArrays(_ context.Context, addrs []solana.PublicKey) ([]*TickArray, error) {
	f.arrayReads++
	out := make([]*TickArray, len(addrs))
	for i, a := range addrs {
		out[i] = f.arrays[a]
	}
	return out, nil
}

func fixturePool(t *testing.T, data *Whirlpool, starts ...int32) (*Pool, *fakeFetcher) {
	t.Helper()
	address := solana.NewWallet().PublicKey()
	fetcher := &fakeFetcher{pool: data, arrays: map[solana.PublicKey]*TickArray{}}
	for _, ta := range emptyArrays(starts...) {
		addr, err := TickArrayAddress(ProgramID, address, ta.StartTickIndex)
		if err != nil {
			t.Fatalf("TickArrayAddress: %v", err)
		}
		ta.Address = addr
		fetcher.arrays[addr] = ta
	}
	client := &Client{programID: ProgramID, fetcher: fetcher}
	return &Pool{address: address, data: data, client: client}, fetcher
}

func TestSwapQuoteByInputToken(t *testing.T) {
	data := testWhirlpool()
	// only two of the three arrays exist on chain
	pool, fetcher := fixturePool(t, data, 0, -5632)

	q, err := SwapQuoteByInputToken(context.Background(), pool, data.TokenMintA, 1_000_000,
		swap.FromFraction(300, 1000), ProgramID, fetcher, true)
	if err != nil {
		t.Fatalf("SwapQuoteByInputToken returned error: %v", err)
	}
	if fetcher.poolReads != 1 {
		t.Fatalf("expected refresh to re-read the pool, got %d reads", fetcher.poolReads)
	}
	if !q.AToB || !q.AmountSpecifiedIsInput || q.AmountIn != 1_000_000 {
		t.Fatalf("unexpected quote direction fields: %+v", q)
	}
	if q.SqrtPriceLimit.Cmp(MinSqrtPrice) != 0 {
		t.Fatalf("expected min sqrt price limit for a-to-b")
	}
	if q.OtherAmountThreshold != swap.FromFraction(300, 1000).MinOut(q.EstimatedOut) {
		t.Fatalf("threshold %d does not apply slippage to %d", q.OtherAmountThreshold, q.EstimatedOut)
	}
	second, _ := TickArrayAddress(ProgramID, pool.Address(), -5632)
	if !q.TickArrays[1].Equals(second) || !q.TickArrays[2].Equals(second) {
		t.Fatalf("expected missing third array to reuse the last initialized one: %v", q.TickArrays)
	}

	if _, err := SwapQuoteByInputToken(context.Background(), pool, data.TokenMintA, 1_000_000,
		swap.FromFraction(300, 1000), ProgramID, fetcher, false); err != nil {
		t.Fatalf("snapshot quote returned error: %v", err)
	}
	if fetcher.poolReads != 1 {
		t.Fatalf("expected snapshot quote to skip pool read, got %d reads", fetcher.poolReads)
	}
}

func TestSwapQuoteByInputTokenErrors(t *testing.T) {
	data := testWhirlpool()
	pool, fetcher := fixturePool(t, data, 0, -5632, -11264)
	slippage := swap.FromFraction(300, 1000)

	_, err := SwapQuoteByInputToken(context.Background(), pool, solana.NewWallet().PublicKey(), 1, slippage, ProgramID, fetcher, true)
	if !errors.Is(err, swap.ErrConfig) {
		t.Fatalf("expected ErrConfig for foreign mint, got %v", err)
	}
	_, err = SwapQuoteByInputToken(context.Background(), pool, data.TokenMintA, 0, slippage, ProgramID, fetcher, true)
	if !errors.Is(err, swap.ErrConfig) {
		t.Fatalf("expected ErrConfig for zero amount, got %v", err)
	}

	// the array holding the current tick does not exist
	pool, fetcher = fixturePool(t, data, -5632)
	_, err = SwapQuoteByInputToken(context.Background(), pool, data.TokenMintB, 1_000, slippage, ProgramID, fetcher, true)
	if err == nil || errors.Is(err, swap.ErrConfig) {
		t.Fatalf("expected transient missing tick array error, got %v", err)
	}
}

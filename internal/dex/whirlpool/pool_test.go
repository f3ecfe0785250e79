package whirlpool

import (
	"bytes"
	"context"
	"testing"

	solana "github.com/gagliardetto/solana-go"

	dex "whirlswap-go/internal/dex/solana"
	"whirlswap-go/internal/swap"
)

func TestSwapInstructionsWrapsSol(t *testing.T) {
	data := testWhirlpool()
	pool, fetcher := fixturePool(t, data, 0, -5632, -11264)
	owner := solana.NewWallet().PublicKey()

	q, err := SwapQuoteByInputToken(context.Background(), pool, data.TokenMintA, 1_000_000,
		swap.FromFraction(300, 1000), ProgramID, fetcher, true)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	ixs, err := pool.SwapInstructions(owner, q)
	if err != nil {
		t.Fatalf("SwapInstructions returned error: %v", err)
	}
	// ata a, ata b, transfer, sync native, swap, close
	if len(ixs) != 6 {
		t.Fatalf("expected 6 instructions, got %d", len(ixs))
	}

	swapIx := ixs[4]
	if !swapIx.ProgramID().Equals(ProgramID) {
		t.Fatalf("expected swap instruction for whirlpool program, got %s", swapIx.ProgramID())
	}
	if got := len(swapIx.Accounts()); got != 11 {
		t.Fatalf("expected 11 swap accounts, got %d", got)
	}
	if !swapIx.Accounts()[1].PublicKey.Equals(owner) || !swapIx.Accounts()[1].IsSigner {
		t.Fatalf("expected owner as signing token authority")
	}
	if !swapIx.Accounts()[2].PublicKey.Equals(pool.Address()) {
		t.Fatalf("expected pool as third account")
	}
	raw, err := swapIx.Data()
	if err != nil {
		t.Fatalf("swap data: %v", err)
	}
	if len(raw) != 8+8+8+16+1+1 {
		t.Fatalf("unexpected swap data length %d", len(raw))
	}
	if !bytes.Equal(raw[:8], swapDiscriminator[:]) {
		t.Fatalf("swap data missing discriminator")
	}
	if raw[40] != 1 || raw[41] != 1 {
		t.Fatalf("expected exact-input a-to-b flags, got %v", raw[40:])
	}

	if !ixs[2].ProgramID().Equals(solana.SystemProgramID) {
		t.Fatalf("expected lamport transfer before the swap")
	}
	if !ixs[5].ProgramID().Equals(solana.TokenProgramID) {
		t.Fatalf("expected wrapped SOL account close after the swap")
	}
}

func TestSwapInstructionsPriorityFee(t *testing.T) {
	data := testWhirlpool()
	data.TokenMintA = solana.NewWallet().PublicKey()
	pool, fetcher := fixturePool(t, data, 0, -5632, -11264)
	pool.client.priorityFee = 10_000

	q, err := SwapQuoteByInputToken(context.Background(), pool, data.TokenMintA, 1_000_000,
		swap.FromFraction(1, 100), ProgramID, fetcher, true)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	ixs, err := pool.SwapInstructions(solana.NewWallet().PublicKey(), q)
	if err != nil {
		t.Fatalf("SwapInstructions returned error: %v", err)
	}
	// compute price, ata a, ata b, swap
	if len(ixs) != 4 {
		t.Fatalf("expected 4 instructions without SOL wrapping, got %d", len(ixs))
	}
	if !ixs[0].ProgramID().Equals(computeBudgetProgramID) {
		t.Fatalf("expected compute budget instruction first")
	}
}

func TestPoolSwapRejectsForeignQuote(t *testing.T) {
	pool, _ := fixturePool(t, testWhirlpool(), 0)
	pool.client.sender = dex.NewSender("https://rpc", solana.NewWallet().PrivateKey, "confirmed")
	if _, err := pool.Swap(context.Background(), otherQuote{}); err == nil {
		t.Fatalf("expected error for quote from another venue")
	}
}

func TestPoolPrice(t *testing.T) {
	pool, _ := fixturePool(t, testWhirlpool(), 0)
	if got := pool.Price(9, 9).String(); got != "1" {
		t.Fatalf("expected price 1 at sqrt price 2^64, got %s", got)
	}
	if got := pool.Price(9, 6).String(); got != "1000" {
		t.Fatalf("expected decimal-adjusted price 1000, got %s", got)
	}
}

type otherQuote struct{}

func (otherQuote) EstimatedAmountIn() uint64  { return 0 }
func (otherQuote) EstimatedAmountOut() uint64 { return 0 }

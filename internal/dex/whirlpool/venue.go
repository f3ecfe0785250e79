package whirlpool

import (
	"context"
	"fmt"

	solana "github.com/gagliardetto/solana-go"

	"whirlswap-go/internal/swap"
)

// Venue quotes directly against Whirlpool accounts, re-reading pool state on every quote.
type Venue struct {
	client *Client
}

// NewVenue adapts a Client for the executor.
func NewVenue(client *Client) *Venue { return &Venue{client: client} }

// GetPool fetches the pool handle once at startup.
func (v *Venue) GetPool(ctx context.Context, address solana.PublicKey) (swap.Pool, error) {
	return v.client.GetPool(ctx, address)
}

// Quote prices order against the current on-chain pool state.
func (v *Venue) Quote(ctx context.Context, order swap.Order) (swap.Quote, error) {
	pool, ok := order.Pool.(*Pool)
	if !ok {
		return nil, fmt.Errorf("%w: whirlpool venue cannot quote pool of type %T", swap.ErrConfig, order.Pool)
	}
	data := pool.Data()
	pair := (order.Input.Mint.Equals(data.TokenMintA) && order.Output.Mint.Equals(data.TokenMintB)) ||
		(order.Input.Mint.Equals(data.TokenMintB) && order.Output.Mint.Equals(data.TokenMintA))
	if !pair {
		return nil, fmt.Errorf("%w: pool %s does not pair %s with %s",
			swap.ErrConfig, pool.Address(), order.Input.Symbol, order.Output.Symbol)
	}
	return SwapQuoteByInputToken(ctx, pool, order.Input.Mint, order.AmountIn, order.Slippage,
		v.client.ProgramID(), v.client.Fetcher(), true)
}

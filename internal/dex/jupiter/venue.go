package jupiter

import (
	"context"
	"fmt"

	solana "github.com/gagliardetto/solana-go"

	"whirlswap-go/internal/swap"
)

// PoolGetter resolves the pool a quote must route through.
type PoolGetter interface {
	GetPool(ctx context.Context, address solana.PublicKey) (swap.Pool, error)
}

// Venue quotes through Jupiter but only accepts a single direct hop through the configured pool.
type Venue struct {
	client *Client
	pools  PoolGetter
}

// NewVenue restricts client to direct Whirlpool routes.
func NewVenue(client *Client, pools PoolGetter) *Venue {
	client.OnlyDirectRoutes = true
	if len(client.Dexes) == 0 {
		client.Dexes = []string{"Whirlpool"}
	}
	return &Venue{client: client, pools: pools}
}

// GetPool resolves the pool and binds it to Jupiter-built transactions.
func (v *Venue) GetPool(ctx context.Context, address solana.PublicKey) (swap.Pool, error) {
	inner, err := v.pools.GetPool(ctx, address)
	if err != nil {
		return nil, err
	}
	return &pool{Pool: inner, client: v.client}, nil
}

// Quote asks Jupiter for a direct route and rejects routes through any other pool.
func (v *Venue) Quote(ctx context.Context, order swap.Order) (swap.Quote, error) {
	q, err := v.client.GetQuote(ctx, order.Input.Mint.String(), order.Output.Mint.String(), order.AmountIn, order.Slippage.Bps())
	if err != nil {
		return nil, err
	}
	want := order.Pool.Address().String()
	if len(q.RoutePlan) != 1 || q.RoutePlan[0].SwapInfo.AmmKey != want {
		return nil, fmt.Errorf("jupiter route does not go through pool %s", want)
	}
	return q, nil
}

type pool struct {
	swap.Pool
	client *Client
}

// Unwrap returns the underlying pool handle.
func (p *pool) Unwrap() swap.Pool { return p.Pool }

func (p *pool) Swap(_ context.Context, q swap.Quote) (swap.Transaction, error) {
	quote, ok := q.(*Quote)
	if !ok {
		return nil, fmt.Errorf("jupiter cannot execute quote of type %T", q)
	}
	return &transaction{client: p.client, quote: quote}, nil
}

type transaction struct {
	client *Client
	quote  *Quote
}

func (t *transaction) BuildAndExecute(ctx context.Context) (solana.Signature, error) {
	return t.client.BuildAndSendSwap(ctx, t.quote)
}

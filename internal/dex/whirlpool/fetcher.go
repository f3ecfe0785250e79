package whirlpool

import (
	"context"
	"fmt"

	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// AccountFetcher loads Whirlpool program accounts.
type AccountFetcher interface {
	FetchWhirlpool(ctx context.Context, address solana.PublicKey) (*Whirlpool, error)
	// FetchTickArrays returns one entry per address, nil where the account does not exist.
	FetchTickArrays(ctx context.Context, addresses []solana.PublicKey) ([]*TickArray, error)
}

// RPCFetcher reads accounts straight from an RPC node on every call.
type RPCFetcher struct {
	rpc        *rpc.Client
	programID  solana.PublicKey
	commitment rpc.CommitmentType
}

// NewRPCFetcher builds an uncached fetcher.
func NewRPCFetcher(client *rpc.Client, programID solana.PublicKey, commitment rpc.CommitmentType) *RPCFetcher {
	return &RPCFetcher{rpc: client, programID: programID, commitment: commitment}
}

// FetchWhirlpool reads and decodes a pool account owned by the program.
func (f *RPCFetcher) FetchWhirlpool(ctx context.Context, address solana.PublicKey) (*Whirlpool, error) {
	out, err := f.rpc.GetAccountInfoWithOpts(ctx, address, &rpc.GetAccountInfoOpts{
		Encoding:   solana.EncodingBase64,
		Commitment: f.commitment,
	})
	if err != nil {
		return nil, fmt.Errorf("get whirlpool %s: %w", address, err)
	}
	if out == nil || out.Value == nil {
		return nil, fmt.Errorf("get whirlpool %s: %w", address, rpc.ErrNotFound)
	}
	if !out.Value.Owner.Equals(f.programID) {
		return nil, fmt.Errorf("account %s is owned by %s, not %s", address, out.Value.Owner, f.programID)
	}
	pool, err := DecodeWhirlpool(out.Value.Data.GetBinary())
	if err != nil {
		return nil, fmt.Errorf("whirlpool %s: %w", address, err)
	}
	return pool, nil
}

// FetchTickArrays reads several tick arrays in one round trip.
func (f *RPCFetcher) FetchTickArrays(ctx context.Context, addresses []solana.PublicKey) ([]*TickArray, error) {
	out, err := f.rpc.GetMultipleAccountsWithOpts(ctx, addresses, &rpc.GetMultipleAccountsOpts{
		Encoding:   solana.EncodingBase64,
		Commitment: f.commitment,
	})
	if err != nil {
		return nil, fmt.Errorf("get tick arrays: %w", err)
	}
	if out == nil || len(out.Value) != len(addresses) {
		return nil, fmt.Errorf("get tick arrays: expected %d accounts", len(addresses))
	}
	arrays := make([]*TickArray, len(addresses))
	for i, acc := range out.Value {
		if acc == nil || !acc.Owner.Equals(f.programID) {
			continue
		}
		ta, err := DecodeTickArray(addresses[i], acc.Data.GetBinary())
		if err != nil {
			return nil, fmt.Errorf("tick array %s: %w", addresses[i], err)
		}
		arrays[i] = ta
	}
	return arrays, nil
}

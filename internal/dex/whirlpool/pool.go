package whirlpool

import (
	"bytes"
	"context"
	"fmt"

	bin "github.com/gagliardetto/binary"
	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/shopspring/decimal"

	dex "whirlswap-go/internal/dex/solana"
	"whirlswap-go/internal/swap"
)

// Client binds the Whirlpool program to an RPC connection and signer.
type Client struct {
	sender      *dex.Sender
	programID   solana.PublicKey
	commitment  rpc.CommitmentType
	fetcher     AccountFetcher
	priorityFee uint64
}

// Option customizes a Client.
type Option func(*Client)

// WithProgramID targets a non-mainnet deployment of the program.
func WithProgramID(id solana.PublicKey) Option {
	return func(c *Client) { c.programID = id }
}

// WithFetcher replaces the RPC-backed account fetcher.
func WithFetcher(f AccountFetcher) Option {
	return func(c *Client) { c.fetcher = f }
}

// WithPriorityFee prepends a compute-unit price (micro-lamports) to swap transactions.
func WithPriorityFee(microLamports uint64) Option {
	return func(c *Client) { c.priorityFee = microLamports }
}

// NewClient builds a pool client on top of sender's RPC connection.
func NewClient(sender *dex.Sender, opts ...Option) *Client {
	c := &Client{
		sender:     sender,
		programID:  ProgramID,
		commitment: sender.Commit,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.fetcher == nil {
		c.fetcher = NewRPCFetcher(sender.RPC, c.programID, c.commitment)
	}
	return c
}

// ProgramID returns the configured program.
func (c *Client) ProgramID() solana.PublicKey { return c.programID }

// Fetcher returns the account fetcher used for quotes.
func (c *Client) Fetcher() AccountFetcher { return c.fetcher }

// GetPool loads the pool at address.
func (c *Client) GetPool(ctx context.Context, address solana.PublicKey) (*Pool, error) {
	data, err := c.fetcher.FetchWhirlpool(ctx, address)
	if err != nil {
		return nil, err
	}
	return &Pool{address: address, data: data, client: c}, nil
}

// Pool is a fetched Whirlpool handle. Its snapshot is never mutated.
type Pool struct {
	address solana.PublicKey
	data    *Whirlpool
	client  *Client
}

// Address implements swap.Pool.
func (p *Pool) Address() solana.PublicKey { return p.address }

// Data returns the account snapshot taken when the pool was fetched.
func (p *Pool) Data() *Whirlpool { return p.data }

// Price reports token B per token A at the snapshot sqrt price, adjusted for decimals.
func (p *Pool) Price(decimalsA, decimalsB uint8) decimal.Decimal {
	sqrt := decimal.NewFromBigInt(p.data.SqrtPrice, 0).Div(decimal.NewFromBigInt(q64, 0))
	return sqrt.Mul(sqrt).Shift(int32(decimalsA) - int32(decimalsB))
}

// Swap implements swap.Pool, turning a quote from this pool into a transaction.
func (p *Pool) Swap(_ context.Context, q swap.Quote) (swap.Transaction, error) {
	quote, ok := q.(*Quote)
	if !ok {
		return nil, fmt.Errorf("whirlpool cannot execute quote of type %T", q)
	}
	ixs, err := p.SwapInstructions(p.client.sender.PublicKey(), quote)
	if err != nil {
		return nil, err
	}
	return dex.NewTransactionBuilder(p.client.sender, ixs...), nil
}

// SwapInstructions assembles token-account setup, optional SOL wrapping, and the swap itself.
func (p *Pool) SwapInstructions(owner solana.PublicKey, q *Quote) ([]solana.Instruction, error) {
	ownerA, _, err := solana.FindAssociatedTokenAddress(owner, p.data.TokenMintA)
	if err != nil {
		return nil, fmt.Errorf("derive ata for %s: %w", p.data.TokenMintA, err)
	}
	ownerB, _, err := solana.FindAssociatedTokenAddress(owner, p.data.TokenMintB)
	if err != nil {
		return nil, fmt.Errorf("derive ata for %s: %w", p.data.TokenMintB, err)
	}
	oracle, err := OracleAddress(p.client.programID, p.address)
	if err != nil {
		return nil, err
	}

	var ixs []solana.Instruction
	if p.client.priorityFee > 0 {
		ixs = append(ixs, setComputeUnitPrice(p.client.priorityFee))
	}
	ixs = append(ixs,
		createATAIdempotent(owner, ownerA, owner, p.data.TokenMintA),
		createATAIdempotent(owner, ownerB, owner, p.data.TokenMintB),
	)

	inputMint, inputATA := p.data.TokenMintB, ownerB
	if q.AToB {
		inputMint, inputATA = p.data.TokenMintA, ownerA
	}
	if inputMint.Equals(solana.WrappedSol) {
		ixs = append(ixs,
			system.NewTransferInstruction(q.AmountIn, owner, inputATA).Build(),
			token.NewSyncNativeInstruction(inputATA).Build(),
		)
	}

	data, err := encodeSwapArgs(q)
	if err != nil {
		return nil, err
	}
	ixs = append(ixs, solana.NewInstruction(p.client.programID, solana.AccountMetaSlice{
		solana.Meta(solana.TokenProgramID),
		solana.Meta(owner).SIGNER(),
		solana.Meta(p.address).WRITE(),
		solana.Meta(ownerA).WRITE(),
		solana.Meta(p.data.TokenVaultA).WRITE(),
		solana.Meta(ownerB).WRITE(),
		solana.Meta(p.data.TokenVaultB).WRITE(),
		solana.Meta(q.TickArrays[0]).WRITE(),
		solana.Meta(q.TickArrays[1]).WRITE(),
		solana.Meta(q.TickArrays[2]).WRITE(),
		solana.Meta(oracle).WRITE(),
	}, data))

	switch {
	case p.data.TokenMintA.Equals(solana.WrappedSol):
		ixs = append(ixs, token.NewCloseAccountInstruction(ownerA, owner, owner, nil).Build())
	case p.data.TokenMintB.Equals(solana.WrappedSol):
		ixs = append(ixs, token.NewCloseAccountInstruction(ownerB, owner, owner, nil).Build())
	}
	return ixs, nil
}

func encodeSwapArgs(q *Quote) ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := bin.NewBinEncoder(buf)
	steps := []func() error{
		func() error { return enc.WriteBytes(swapDiscriminator[:], false) },
		func() error { return enc.WriteUint64(q.AmountIn, bin.LE) },
		func() error { return enc.WriteUint64(q.OtherAmountThreshold, bin.LE) },
		func() error { return enc.WriteUint128(bigToUint128(q.SqrtPriceLimit), bin.LE) },
		func() error { return enc.WriteBool(q.AmountSpecifiedIsInput) },
		func() error { return enc.WriteBool(q.AToB) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, fmt.Errorf("encode swap args: %w", err)
		}
	}
	return buf.Bytes(), nil
}

func createATAIdempotent(payer, ata, owner, mint solana.PublicKey) solana.Instruction {
	return solana.NewInstruction(solana.SPLAssociatedTokenAccountProgramID, solana.AccountMetaSlice{
		solana.Meta(payer).WRITE().SIGNER(),
		solana.Meta(ata).WRITE(),
		solana.Meta(owner),
		solana.Meta(mint),
		solana.Meta(solana.SystemProgramID),
		solana.Meta(solana.TokenProgramID),
	}, []byte{1})
}

func setComputeUnitPrice(microLamports uint64) solana.Instruction {
	buf := new(bytes.Buffer)
	enc := bin.NewBinEncoder(buf)
	_ = enc.WriteUint8(3)
	_ = enc.WriteUint64(microLamports, bin.LE)
	return solana.NewInstruction(computeBudgetProgramID, solana.AccountMetaSlice{}, buf.Bytes())
}

package whirlpool

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"

	bin "github.com/gagliardetto/binary"
	solana "github.com/gagliardetto/solana-go"
)

// Whirlpool is the subset of the on-chain pool account the client needs.
type Whirlpool struct {
	WhirlpoolsConfig solana.PublicKey
	TickSpacing      uint16
	FeeRate          uint16
	ProtocolFeeRate  uint16
	Liquidity        *big.Int
	SqrtPrice        *big.Int
	TickCurrentIndex int32
	TokenMintA       solana.PublicKey
	TokenVaultA      solana.PublicKey
	TokenMintB       solana.PublicKey
	TokenVaultB      solana.PublicKey
}

// Tick is one slot of a tick array.
type Tick struct {
	Initialized    bool
	LiquidityNet   *big.Int
	LiquidityGross *big.Int
}

// TickArray holds TickArraySize consecutive ticks starting at StartTickIndex.
type TickArray struct {
	Address        solana.PublicKey
	StartTickIndex int32
	Ticks          [TickArraySize]Tick
	Whirlpool      solana.PublicKey
}

// DecodeWhirlpool parses raw Whirlpool account data.
func DecodeWhirlpool(data []byte) (*Whirlpool, error) {
	if len(data) < whirlpoolAccountLen {
		return nil, fmt.Errorf("whirlpool account too short: %d bytes", len(data))
	}
	if !bytes.Equal(data[:8], whirlpoolDiscriminator[:]) {
		return nil, errors.New("account is not a whirlpool")
	}
	r := reader{dec: bin.NewBinDecoder(data[8:])}

	var w Whirlpool
	w.WhirlpoolsConfig = r.pubkey()
	r.skip(1) // bump
	w.TickSpacing = r.u16()
	r.skip(2) // fee tier index seed
	w.FeeRate = r.u16()
	w.ProtocolFeeRate = r.u16()
	w.Liquidity = r.u128()
	w.SqrtPrice = r.u128()
	w.TickCurrentIndex = r.i32()
	r.skip(16) // protocol fees owed
	w.TokenMintA = r.pubkey()
	w.TokenVaultA = r.pubkey()
	r.skip(16)
	w.TokenMintB = r.pubkey()
	w.TokenVaultB = r.pubkey()
	if r.err != nil {
		return nil, fmt.Errorf("decode whirlpool: %w", r.err)
	}
	if w.TickSpacing == 0 {
		return nil, errors.New("decode whirlpool: zero tick spacing")
	}
	return &w, nil
}

// DecodeTickArray parses raw TickArray account data.
func DecodeTickArray(address solana.PublicKey, data []byte) (*TickArray, error) {
	if len(data) < tickArrayAccountLen {
		return nil, fmt.Errorf("tick array account too short: %d bytes", len(data))
	}
	if !bytes.Equal(data[:8], tickArrayDiscriminator[:]) {
		return nil, errors.New("account is not a tick array")
	}
	r := reader{dec: bin.NewBinDecoder(data[8:])}

	ta := &TickArray{Address: address}
	ta.StartTickIndex = r.i32()
	for i := range ta.Ticks {
		ta.Ticks[i].Initialized = r.boolean()
		ta.Ticks[i].LiquidityNet = r.i128()
		ta.Ticks[i].LiquidityGross = r.u128()
		r.skip(16 + 16 + 16*3) // fee and reward growth
	}
	ta.Whirlpool = r.pubkey()
	if r.err != nil {
		return nil, fmt.Errorf("decode tick array: %w", r.err)
	}
	return ta, nil
}

// reader keeps the first decode error so field reads stay linear.
type reader struct {
	dec *bin.Decoder
	err error
}

func (r *reader) skip(n int) {
	if r.err == nil {
		_, r.err = r.dec.ReadNBytes(n)
	}
}

func (r *reader) pubkey() solana.PublicKey {
	if r.err != nil {
		return solana.PublicKey{}
	}
	b, err := r.dec.ReadNBytes(32)
	if err != nil {
		r.err = err
		return solana.PublicKey{}
	}
	return solana.PublicKeyFromBytes(b)
}

func (r *reader) boolean() bool {
	if r.err != nil {
		return false
	}
	v, err := r.dec.ReadBool()
	r.err = err
	return v
}

func (r *reader) u16() uint16 {
	if r.err != nil {
		return 0
	}
	v, err := r.dec.ReadUint16(bin.LE)
	r.err = err
	return v
}

func (r *reader) i32() int32 {
	if r.err != nil {
		return 0
	}
	v, err := r.dec.ReadInt32(bin.LE)
	r.err = err
	return v
}

func (r *reader) u128() *big.Int {
	if r.err != nil {
		return new(big.Int)
	}
	v, err := r.dec.ReadUint128(bin.LE)
	r.err = err
	return uint128ToBig(v)
}

func (r *reader) i128() *big.Int {
	out := r.u128()
	if out.Bit(127) == 1 {
		out.Sub(out, new(big.Int).Lsh(big.NewInt(1), 128))
	}
	return out
}

func uint128ToBig(v bin.Uint128) *big.Int {
	out := new(big.Int).SetUint64(v.Hi)
	out.Lsh(out, 64)
	return out.Or(out, new(big.Int).SetUint64(v.Lo))
}

// bigToUint128 truncates a non-negative value to 128 bits; negative values are two's complement.
func bigToUint128(v *big.Int) bin.Uint128 {
	x := new(big.Int).Set(v)
	if x.Sign() < 0 {
		x.Add(x, new(big.Int).Lsh(big.NewInt(1), 128))
	}
	mask := new(big.Int).SetUint64(^uint64(0))
	lo := new(big.Int).And(x, mask).Uint64()
	hi := new(big.Int).And(new(big.Int).Rsh(x, 64), mask).Uint64()
	return bin.Uint128{Lo: lo, Hi: hi}
}

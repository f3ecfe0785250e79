package whirlpool

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strconv"

	solana "github.com/gagliardetto/solana-go"
)

// WhirlpoolAddress derives the pool PDA for a config, mint pair and tick spacing.
func WhirlpoolAddress(programID, config, mintA, mintB solana.PublicKey, tickSpacing uint16) (solana.PublicKey, error) {
	spacing := make([]byte, 2)
	binary.LittleEndian.PutUint16(spacing, tickSpacing)
	addr, _, err := solana.FindProgramAddress([][]byte{
		[]byte("whirlpool"),
		config[:],
		mintA[:],
		mintB[:],
		spacing,
	}, programID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive whirlpool: %w", err)
	}
	return addr, nil
}

// OrderMints returns the pair in the pool's canonical A/B order (ascending key bytes).
func OrderMints(x, y solana.PublicKey) (solana.PublicKey, solana.PublicKey) {
	if bytes.Compare(x[:], y[:]) < 0 {
		return x, y
	}
	return y, x
}

// DerivePoolAddress finds the pool for an unordered mint pair under config.
func DerivePoolAddress(programID, config, mintX, mintY solana.PublicKey, tickSpacing uint16) (solana.PublicKey, error) {
	mintA, mintB := OrderMints(mintX, mintY)
	return WhirlpoolAddress(programID, config, mintA, mintB, tickSpacing)
}

// TickArrayAddress derives the tick-array PDA starting at startTickIndex.
func TickArrayAddress(programID, pool solana.PublicKey, startTickIndex int32) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress([][]byte{
		[]byte("tick_array"),
		pool[:],
		[]byte(strconv.Itoa(int(startTickIndex))),
	}, programID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive tick array %d: %w", startTickIndex, err)
	}
	return addr, nil
}

// OracleAddress derives the pool oracle PDA.
func OracleAddress(programID, pool solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress([][]byte{[]byte("oracle"), pool[:]}, programID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive oracle: %w", err)
	}
	return addr, nil
}

// TickArrayStartIndex returns the first tick of the array holding tickIndex, moved by offset arrays.
func TickArrayStartIndex(tickIndex int32, tickSpacing uint16, offset int32) int32 {
	span := int32(tickSpacing) * TickArraySize
	idx := tickIndex / span
	if tickIndex%span != 0 && tickIndex < 0 {
		idx--
	}
	return (idx + offset) * span
}

// SwapTickArrayStarts lists the three array starts a swap from tickCurrent may traverse.
func SwapTickArrayStarts(tickCurrent int32, tickSpacing uint16, aToB bool) []int32 {
	span := int32(tickSpacing) * TickArraySize
	shift := int32(0)
	step := int32(1)
	if aToB {
		step = -1
	} else {
		shift = int32(tickSpacing)
	}
	minStart := TickArrayStartIndex(MinTickIndex, tickSpacing, 0)
	maxStart := TickArrayStartIndex(MaxTickIndex, tickSpacing, 0)

	starts := make([]int32, 0, 3)
	first := TickArrayStartIndex(tickCurrent+shift, tickSpacing, 0)
	for i := int32(0); i < 3; i++ {
		start := first + step*i*span
		if start < minStart || start > maxStart {
			break
		}
		starts = append(starts, start)
	}
	return starts
}

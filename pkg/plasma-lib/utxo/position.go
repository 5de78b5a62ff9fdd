package utxo

import (
	"encoding/binary"
	"fmt"
)

const (
	// BlockOffset is the weight of the block number in an encoded position.
	BlockOffset uint64 = 1_000_000_000
	// TxOffset is the weight of the tx index in an encoded position.
	TxOffset uint64 = 10_000
	// MaxTxIndex is the exclusive upper bound of a tx index within a block.
	MaxTxIndex = BlockOffset / TxOffset

	// DefaultChildBlockInterval is the distance between two consecutive child
	// chain blocks. Block numbers in between are reserved for deposits.
	DefaultChildBlockInterval uint64 = 1000
)

// Pos is the encoded form of a Position. Its natural order is the
// chronological-then-positional priority of the output it points to.
type Pos uint64

// Position locates an output in the child chain.
type Position struct {
	BlockNum    uint64
	TxIndex     uint64
	OutputIndex uint64
}

// Encode packs the given location into a single position value.
func Encode(blockNum, txIndex, outputIndex uint64) Pos {
	return Pos(blockNum*BlockOffset + txIndex*TxOffset + outputIndex)
}

// Decode splits a position value into its components.
// It never fails, components are a pure projection of the encoded value.
func Decode(pos Pos) Position {
	v := uint64(pos)
	return Position{
		BlockNum:    v / BlockOffset,
		TxIndex:     (v % BlockOffset) / TxOffset,
		OutputIndex: v % TxOffset,
	}
}

// FromBytes32 reads a position from its big-endian 32 byte representation.
func FromBytes32(buf [32]byte) (Pos, error) {
	for _, b := range buf[:24] {
		if b != 0 {
			return 0, fmt.Errorf("position overflows 64 bits")
		}
	}
	return Pos(binary.BigEndian.Uint64(buf[24:])), nil
}

func (p Position) Encode() Pos {
	return Encode(p.BlockNum, p.TxIndex, p.OutputIndex)
}

func (p Position) Validate() error {
	if p.OutputIndex >= TxOffset {
		return fmt.Errorf(
			"output index %d out of range, must be lower than %d", p.OutputIndex, TxOffset,
		)
	}
	if p.TxIndex >= MaxTxIndex {
		return fmt.Errorf(
			"tx index %d out of range, must be lower than %d", p.TxIndex, MaxTxIndex,
		)
	}
	return nil
}

// IsDeposit returns whether the position belongs to a deposit block, ie. a
// block number that is not a multiple of the child block interval.
func (p Position) IsDeposit(childBlockInterval uint64) bool {
	if childBlockInterval == 0 {
		childBlockInterval = DefaultChildBlockInterval
	}
	return p.BlockNum%childBlockInterval != 0
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d:%d", p.BlockNum, p.TxIndex, p.OutputIndex)
}

func (p Pos) Position() Position {
	return Decode(p)
}

func (p Pos) Uint64() uint64 {
	return uint64(p)
}

// Bytes32 returns the big-endian 32 byte representation of the position,
// which is how transactions reference their inputs.
func (p Pos) Bytes32() [32]byte {
	var buf [32]byte
	binary.BigEndian.PutUint64(buf[24:], uint64(p))
	return buf
}

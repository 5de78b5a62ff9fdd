package exitid

import (
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/childchain/exitd/pkg/plasma-lib/utxo"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	// ExitIDSize is the size in bytes of an exit id.
	ExitIDSize = 20

	inFlightShift = 105
	inFlightFlag  = 151
)

var maxExitID = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 8*ExitIDSize), big.NewInt(1))

// ExitID identifies an exit claim.
type ExitID [ExitIDSize]byte

// ExitIDFromString parses a hex encoded exit id, with or without 0x prefix.
func ExitIDFromString(s string) (ExitID, error) {
	buf, err := hex.DecodeString(trim0x(s))
	if err != nil {
		return ExitID{}, fmt.Errorf("invalid exit id format, must be hex")
	}
	if len(buf) != ExitIDSize {
		return ExitID{}, fmt.Errorf(
			"invalid exit id length, got %d want %d", len(buf), ExitIDSize,
		)
	}
	var id ExitID
	copy(id[:], buf)
	return id, nil
}

func (id ExitID) String() string {
	return hex.EncodeToString(id[:])
}

func (id ExitID) Big() *big.Int {
	return new(big.Int).SetBytes(id[:])
}

// IsInFlight returns whether the id has the in-flight flag set.
func (id ExitID) IsInFlight() bool {
	return id.Big().Bit(inFlightFlag) == 1
}

// InFlightExitID derives the id of the in-flight exit for the given tx.
// It is (keccak256(tx) >> 105) | 1 << 151, truncated to 160 bits.
func InFlightExitID(txBytes []byte) ExitID {
	v := new(big.Int).SetBytes(crypto.Keccak256(txBytes))
	v.Rsh(v, inFlightShift)
	v.SetBit(v, inFlightFlag, 1)
	v.And(v, maxExitID)

	var id ExitID
	math.ReadBits(v, id[:])
	return id
}

// NormalOutputID identifies an output created by a child chain transaction.
func NormalOutputID(txBytes []byte, outputIndex uint64) common.Hash {
	return crypto.Keccak256Hash(txBytes, uint256Bytes(outputIndex))
}

// DepositOutputID identifies an output created by a deposit. The position is
// part of the preimage since deposit transactions may be byte-identical.
func DepositOutputID(txBytes []byte, outputIndex uint64, pos utxo.Pos) common.Hash {
	return crypto.Keccak256Hash(txBytes, uint256Bytes(outputIndex), uint256Bytes(pos.Uint64()))
}

// OutputID picks the derivation matching the block the position points to.
func OutputID(txBytes []byte, pos utxo.Pos, childBlockInterval uint64) common.Hash {
	position := utxo.Decode(pos)
	if position.IsDeposit(childBlockInterval) {
		return DepositOutputID(txBytes, position.OutputIndex, pos)
	}
	return NormalOutputID(txBytes, position.OutputIndex)
}

func uint256Bytes(v uint64) []byte {
	return math.U256Bytes(new(big.Int).SetUint64(v))
}

func trim0x(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

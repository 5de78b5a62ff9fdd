package transaction

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
)

const (
	// MaxInputs is the maximum number of inputs a transaction can declare.
	MaxInputs = 4
	// MaxOutputs is the maximum number of outputs a transaction can declare.
	MaxOutputs = 4
)

// Input is an opaque reference to the output being spent, for payment
// transactions the big-endian 32 byte encoding of its position.
type Input [32]byte

func (i Input) String() string {
	return common.Hash(i).Hex()
}

// Output is a value owned by the entity encoded in the guard.
type Output struct {
	OutputType uint
	Guard      common.Address
	Token      common.Address
	Amount     *uint256.Int
}

func (o Output) isNull() bool {
	return o.Guard == (common.Address{}) &&
		o.Token == (common.Address{}) &&
		(o.Amount == nil || o.Amount.IsZero())
}

// Transaction is the decoded form of a child chain transaction.
// It must be treated as immutable once decoded.
type Transaction struct {
	TxType   uint
	Inputs   []Input
	Outputs  []Output
	TxData   uint64
	MetaData common.Hash

	raw []byte
}

type rlpOutput struct {
	OutputType uint
	Guard      common.Address
	Token      common.Address
	Amount     *big.Int
}

type rlpTransaction struct {
	TxType   uint
	Inputs   [][32]byte
	Outputs  []rlpOutput
	TxData   uint64
	MetaData [32]byte
}

// New builds a transaction and its canonical encoding.
func New(
	txType uint, inputs []Input, outputs []Output, metaData common.Hash,
) (*Transaction, error) {
	tx := &Transaction{
		TxType:   txType,
		Inputs:   inputs,
		Outputs:  outputs,
		MetaData: metaData,
	}
	if err := tx.validate(); err != nil {
		return nil, err
	}
	raw, err := tx.encode()
	if err != nil {
		return nil, err
	}
	tx.raw = raw
	return tx, nil
}

// Decode parses the given rlp encoded transaction.
func Decode(raw []byte) (*Transaction, error) {
	if len(raw) <= 0 {
		return nil, fmt.Errorf("missing tx")
	}

	var decoded rlpTransaction
	if err := rlp.DecodeBytes(raw, &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode tx: %s", err)
	}

	inputs := make([]Input, 0, len(decoded.Inputs))
	for _, in := range decoded.Inputs {
		inputs = append(inputs, Input(in))
	}

	outputs := make([]Output, 0, len(decoded.Outputs))
	for i, out := range decoded.Outputs {
		amount, overflow := uint256.FromBig(out.Amount)
		if overflow {
			return nil, fmt.Errorf("amount of output %d overflows 256 bits", i)
		}
		outputs = append(outputs, Output{
			OutputType: out.OutputType,
			Guard:      out.Guard,
			Token:      out.Token,
			Amount:     amount,
		})
	}

	tx := &Transaction{
		TxType:   decoded.TxType,
		Inputs:   inputs,
		Outputs:  outputs,
		TxData:   decoded.TxData,
		MetaData: decoded.MetaData,
		raw:      bytes.Clone(raw),
	}
	if err := tx.validate(); err != nil {
		return nil, err
	}
	return tx, nil
}

// Bytes returns the wire encoding of the transaction.
func (t *Transaction) Bytes() []byte {
	return bytes.Clone(t.raw)
}

// Hash returns the keccak256 of the wire encoding.
func (t *Transaction) Hash() common.Hash {
	return crypto.Keccak256Hash(t.raw)
}

// IsDeposit reports whether the transaction creates funds without spending
// any input, like the ones the root chain mints for deposit blocks.
func (t *Transaction) IsDeposit() bool {
	return len(t.Inputs) == 0
}

// Output returns the output at the given index.
func (t *Transaction) Output(index uint64) (*Output, error) {
	if index >= uint64(len(t.Outputs)) {
		return nil, fmt.Errorf(
			"output index %d out of range, tx has %d outputs", index, len(t.Outputs),
		)
	}
	out := t.Outputs[index]
	return &out, nil
}

func (t *Transaction) validate() error {
	if len(t.Inputs) > MaxInputs {
		return fmt.Errorf("too many inputs, got %d max %d", len(t.Inputs), MaxInputs)
	}
	if len(t.Outputs) <= 0 {
		return fmt.Errorf("missing outputs")
	}
	if len(t.Outputs) > MaxOutputs {
		return fmt.Errorf("too many outputs, got %d max %d", len(t.Outputs), MaxOutputs)
	}
	for i, out := range t.Outputs {
		if out.isNull() {
			return fmt.Errorf("output %d is null", i)
		}
	}
	return nil
}

func (t *Transaction) encode() ([]byte, error) {
	tx := rlpTransaction{
		TxType:   t.TxType,
		Inputs:   make([][32]byte, 0, len(t.Inputs)),
		Outputs:  make([]rlpOutput, 0, len(t.Outputs)),
		TxData:   t.TxData,
		MetaData: t.MetaData,
	}
	for _, in := range t.Inputs {
		tx.Inputs = append(tx.Inputs, in)
	}
	for _, out := range t.Outputs {
		amount := new(big.Int)
		if out.Amount != nil {
			amount = out.Amount.ToBig()
		}
		tx.Outputs = append(tx.Outputs, rlpOutput{
			OutputType: out.OutputType,
			Guard:      out.Guard,
			Token:      out.Token,
			Amount:     amount,
		})
	}
	return rlp.EncodeToBytes(tx)
}

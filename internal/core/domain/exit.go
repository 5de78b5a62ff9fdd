package domain

import (
	"encoding/json"
	"fmt"

	"github.com/childchain/exitd/pkg/plasma-lib/exitid"
	"github.com/childchain/exitd/pkg/plasma-lib/transaction"
	"github.com/childchain/exitd/pkg/plasma-lib/utxo"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

const (
	// FinalizedBit is the exit map flag set once the exit is processed.
	FinalizedBit = 255

	outputSlotOffset = transaction.MaxInputs
)

// ExitMap is a 256 bit flag set, big-endian. Bits [0, MaxInputs) track the
// inputs, bits [MaxInputs, MaxInputs+MaxOutputs) track the outputs and bit
// 255 marks the exit as finalized.
type ExitMap [32]byte

func (m ExitMap) IsSet(bit uint) bool {
	if bit > FinalizedBit {
		return false
	}
	return m[31-bit/8]&(1<<(bit%8)) != 0
}

func (m ExitMap) Set(bit uint) ExitMap {
	if bit > FinalizedBit {
		return m
	}
	m[31-bit/8] |= 1 << (bit % 8)
	return m
}

func (m ExitMap) Clear(bit uint) ExitMap {
	if bit > FinalizedBit {
		return m
	}
	m[31-bit/8] &^= 1 << (bit % 8)
	return m
}

func (m ExitMap) IsEmpty() bool {
	return m == ExitMap{}
}

func (m ExitMap) String() string {
	return common.Hash(m).Hex()
}

// WithdrawData describes what an exiting piece entitles to.
type WithdrawData struct {
	OutputId   common.Hash
	ExitTarget common.Address
	Token      common.Address
	Amount     *uint256.Int
}

// InFlightExit is the record of an exit started from a tx that might not be
// included in a block.
type InFlightExit struct {
	ExitId         exitid.ExitID
	TxHash         common.Hash
	BondOwner      common.Address
	// Position is the youngest position among the tx inputs.
	Position       utxo.Pos
	StartTimestamp int64
	ExitMap        ExitMap
	IsCanonical    bool
	Inputs         []WithdrawData
	Outputs        []WithdrawData
}

func (e InFlightExit) IsFinalized() bool {
	return e.ExitMap.IsSet(FinalizedBit)
}

func (e *InFlightExit) Finalize() {
	e.ExitMap = e.ExitMap.Set(FinalizedBit)
}

func (e InFlightExit) IsInputPiggybacked(index uint) bool {
	if index >= transaction.MaxInputs {
		return false
	}
	return e.ExitMap.IsSet(index)
}

func (e InFlightExit) IsOutputPiggybacked(index uint) bool {
	if index >= transaction.MaxOutputs {
		return false
	}
	return e.ExitMap.IsSet(outputSlotOffset + index)
}

func (e *InFlightExit) PiggybackInput(index uint) error {
	if index >= uint(len(e.Inputs)) {
		return fmt.Errorf("input index %d out of range", index)
	}
	if e.IsFinalized() {
		return fmt.Errorf("exit is finalized")
	}
	e.ExitMap = e.ExitMap.Set(index)
	return nil
}

func (e *InFlightExit) PiggybackOutput(index uint) error {
	if index >= uint(len(e.Outputs)) {
		return fmt.Errorf("output index %d out of range", index)
	}
	if e.IsFinalized() {
		return fmt.Errorf("exit is finalized")
	}
	e.ExitMap = e.ExitMap.Set(outputSlotOffset + index)
	return nil
}

func (e InFlightExit) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.view())
}

type withdrawDataView struct {
	OutputId   string `json:"outputId"`
	ExitTarget string `json:"exitTarget"`
	Token      string `json:"token"`
	Amount     string `json:"amount"`
}

type inFlightExitView struct {
	ExitId         string             `json:"exitId"`
	TxHash         string             `json:"txHash"`
	BondOwner      string             `json:"bondOwner"`
	Position       uint64             `json:"position"`
	StartTimestamp int64              `json:"startTimestamp"`
	ExitMap        string             `json:"exitMap"`
	IsCanonical    bool               `json:"isCanonical"`
	Inputs         []withdrawDataView `json:"inputs"`
	Outputs        []withdrawDataView `json:"outputs"`
}

func (e InFlightExit) view() inFlightExitView {
	toView := func(list []WithdrawData) []withdrawDataView {
		views := make([]withdrawDataView, 0, len(list))
		for _, w := range list {
			amount := "0"
			if w.Amount != nil {
				amount = w.Amount.Dec()
			}
			views = append(views, withdrawDataView{
				OutputId:   w.OutputId.Hex(),
				ExitTarget: w.ExitTarget.Hex(),
				Token:      w.Token.Hex(),
				Amount:     amount,
			})
		}
		return views
	}
	return inFlightExitView{
		ExitId:         e.ExitId.String(),
		TxHash:         e.TxHash.Hex(),
		BondOwner:      e.BondOwner.Hex(),
		Position:       e.Position.Uint64(),
		StartTimestamp: e.StartTimestamp,
		ExitMap:        e.ExitMap.String(),
		IsCanonical:    e.IsCanonical,
		Inputs:         toView(e.Inputs),
		Outputs:        toView(e.Outputs),
	}
}

package dbutil

import (
	"fmt"
	"math"

	"github.com/childchain/exitd/internal/core/domain"
	"github.com/childchain/exitd/pkg/plasma-lib/exitid"
	"github.com/childchain/exitd/pkg/plasma-lib/utxo"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
)

// WithdrawData is the storage form of domain.WithdrawData.
type WithdrawData struct {
	OutputId   string `json:"outputId"`
	ExitTarget string `json:"exitTarget"`
	Token      string `json:"token"`
	Amount     string `json:"amount"`
}

// InFlightExit is the storage form of domain.InFlightExit.
type InFlightExit struct {
	ExitId         string         `json:"exitId"`
	TxHash         string         `json:"txHash"`
	BondOwner      string         `json:"bondOwner"`
	Position       uint64         `json:"position"`
	StartTimestamp int64          `json:"startTimestamp"`
	ExitMap        string         `json:"exitMap"`
	IsCanonical    bool           `json:"isCanonical"`
	Inputs         []WithdrawData `json:"inputs"`
	Outputs        []WithdrawData `json:"outputs"`
}

type Block struct {
	Number    uint64 `json:"number"`
	Root      string `json:"root"`
	Timestamp int64  `json:"timestamp"`
}

func ToInFlightExit(exit domain.InFlightExit) InFlightExit {
	return InFlightExit{
		ExitId:         exit.ExitId.String(),
		TxHash:         exit.TxHash.Hex(),
		BondOwner:      exit.BondOwner.Hex(),
		Position:       exit.Position.Uint64(),
		StartTimestamp: exit.StartTimestamp,
		ExitMap:        hexutil.Encode(exit.ExitMap[:]),
		IsCanonical:    exit.IsCanonical,
		Inputs:         ToWithdrawDataList(exit.Inputs),
		Outputs:        ToWithdrawDataList(exit.Outputs),
	}
}

func ToWithdrawDataList(list []domain.WithdrawData) []WithdrawData {
	records := make([]WithdrawData, 0, len(list))
	for _, w := range list {
		records = append(records, ToWithdrawData(w))
	}
	return records
}

func ToWithdrawData(w domain.WithdrawData) WithdrawData {
	amount := "0"
	if w.Amount != nil {
		amount = w.Amount.Dec()
	}
	return WithdrawData{
		OutputId:   w.OutputId.Hex(),
		ExitTarget: w.ExitTarget.Hex(),
		Token:      w.Token.Hex(),
		Amount:     amount,
	}
}

func (e InFlightExit) ToDomain() (*domain.InFlightExit, error) {
	id, err := exitid.ExitIDFromString(e.ExitId)
	if err != nil {
		return nil, err
	}
	exitMap, err := hexutil.Decode(e.ExitMap)
	if err != nil {
		return nil, fmt.Errorf("invalid exit map: %s", err)
	}
	if len(exitMap) != len(domain.ExitMap{}) {
		return nil, fmt.Errorf("invalid exit map length %d", len(exitMap))
	}
	inputs, err := FromWithdrawDataList(e.Inputs)
	if err != nil {
		return nil, fmt.Errorf("invalid inputs: %s", err)
	}
	outputs, err := FromWithdrawDataList(e.Outputs)
	if err != nil {
		return nil, fmt.Errorf("invalid outputs: %s", err)
	}

	exit := &domain.InFlightExit{
		ExitId:         id,
		TxHash:         common.HexToHash(e.TxHash),
		BondOwner:      common.HexToAddress(e.BondOwner),
		Position:       utxo.Pos(e.Position),
		StartTimestamp: e.StartTimestamp,
		IsCanonical:    e.IsCanonical,
		Inputs:         inputs,
		Outputs:        outputs,
	}
	copy(exit.ExitMap[:], exitMap)
	return exit, nil
}

func FromWithdrawDataList(records []WithdrawData) ([]domain.WithdrawData, error) {
	list := make([]domain.WithdrawData, 0, len(records))
	for _, r := range records {
		w, err := r.ToDomain()
		if err != nil {
			return nil, err
		}
		list = append(list, *w)
	}
	return list, nil
}

func (w WithdrawData) ToDomain() (*domain.WithdrawData, error) {
	amount, err := uint256.FromDecimal(w.Amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %s: %s", w.Amount, err)
	}
	return &domain.WithdrawData{
		OutputId:   common.HexToHash(w.OutputId),
		ExitTarget: common.HexToAddress(w.ExitTarget),
		Token:      common.HexToAddress(w.Token),
		Amount:     amount,
	}, nil
}

func ToBlock(block domain.Block) Block {
	return Block{
		Number:    block.Number,
		Root:      block.Root.Hex(),
		Timestamp: block.Timestamp,
	}
}

func (b Block) ToDomain() *domain.Block {
	return &domain.Block{
		Number:    b.Number,
		Root:      common.HexToHash(b.Root),
		Timestamp: b.Timestamp,
	}
}

// ToInt64 converts values stored in signed sql columns.
func ToInt64(v uint64) (int64, error) {
	if v > math.MaxInt64 {
		return 0, fmt.Errorf("value %d overflows int64", v)
	}
	return int64(v), nil
}

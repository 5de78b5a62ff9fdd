package payment

import (
	"github.com/childchain/exitd/internal/core/ports"
	"github.com/childchain/exitd/pkg/plasma-lib/transaction"
	"github.com/childchain/exitd/pkg/plasma-lib/utxo"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	log "github.com/sirupsen/logrus"
)

type stateTransitionVerifier struct{}

// NewStateTransitionVerifier checks that, for every token, a payment tx
// doesn't spend more than its inputs hold.
func NewStateTransitionVerifier() ports.StateTransitionVerifier {
	return &stateTransitionVerifier{}
}

func (v *stateTransitionVerifier) IsValid(
	inFlightTx []byte, inputTxs [][]byte, inputPositions []utxo.Pos,
) bool {
	tx, err := transaction.Decode(inFlightTx)
	if err != nil {
		log.WithError(err).Debug("state transition: failed to decode in-flight tx")
		return false
	}
	if tx.TxType != TxType {
		return false
	}
	if len(inputTxs) != len(tx.Inputs) || len(inputPositions) != len(tx.Inputs) {
		return false
	}

	available := make(map[common.Address]*uint256.Int)
	for i, raw := range inputTxs {
		inputTx, err := transaction.Decode(raw)
		if err != nil {
			log.WithError(err).Debugf("state transition: failed to decode input tx %d", i)
			return false
		}
		output, err := inputTx.Output(inputPositions[i].Position().OutputIndex)
		if err != nil {
			return false
		}
		if !add(available, output.Token, output.Amount) {
			return false
		}
	}

	spent := make(map[common.Address]*uint256.Int)
	for _, output := range tx.Outputs {
		if !add(spent, output.Token, output.Amount) {
			return false
		}
	}

	for token, amount := range spent {
		in, ok := available[token]
		if !ok || amount.Gt(in) {
			return false
		}
	}
	return true
}

// add accumulates amount into sums[token], it returns false on overflow.
func add(sums map[common.Address]*uint256.Int, token common.Address, amount *uint256.Int) bool {
	if amount == nil {
		return true
	}
	sum, ok := sums[token]
	if !ok {
		sum = new(uint256.Int)
		sums[token] = sum
	}
	_, overflow := sum.AddOverflow(sum, amount)
	return !overflow
}

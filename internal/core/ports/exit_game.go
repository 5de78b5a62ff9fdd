package ports

import (
	"github.com/childchain/exitd/pkg/plasma-lib/utxo"
	"github.com/ethereum/go-ethereum/common"
)

// DefaultOutputType is the output type whose guard is the owner address.
const DefaultOutputType uint = 0

// SpendingCondition checks that a witness authorizes spendingTx to consume
// the output identified by outputId.
type SpendingCondition interface {
	Verify(
		guard common.Address, pos utxo.Pos, outputId common.Hash,
		spendingTx []byte, inputIndex uint16, witness []byte,
	) (bool, error)
}

type SpendingConditionRegistry interface {
	SpendingCondition(outputType, spendingTxType uint) (SpendingCondition, bool)
}

// OutputGuardHandler parses the pre-image of a non-default output guard.
type OutputGuardHandler interface {
	ComputeGuard(preImage []byte) (common.Address, error)
	ExitTarget(preImage []byte) (common.Address, error)
}

type OutputGuardRegistry interface {
	OutputGuardHandler(outputType uint) (OutputGuardHandler, bool)
}

type StateTransitionVerifier interface {
	IsValid(inFlightTx []byte, inputTxs [][]byte, inputPositions []utxo.Pos) bool
}

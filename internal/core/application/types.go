package application

import (
	"context"

	"github.com/childchain/exitd/internal/core/domain"
	"github.com/childchain/exitd/pkg/errors"
	"github.com/childchain/exitd/pkg/plasma-lib/exitid"
	"github.com/ethereum/go-ethereum/common"
)

type Service interface {
	// StartInFlightExit admits an exit claim for the outputs spent by an in-flight tx.
	StartInFlightExit(
		ctx context.Context, sender common.Address, req StartInFlightExitRequest,
	) (*domain.InFlightExit, errors.Error)
	GetInFlightExit(ctx context.Context, inFlightTx []byte) (*domain.InFlightExit, errors.Error)
	GetInFlightExitByID(ctx context.Context, id exitid.ExitID) (*domain.InFlightExit, errors.Error)
	ListInFlightExits(ctx context.Context) ([]domain.InFlightExit, errors.Error)
	// SubmitBlock records the merkle root committed for a child chain block.
	SubmitBlock(ctx context.Context, number uint64, root common.Hash) errors.Error
	Stop()
}

// StartInFlightExitRequest carries the in-flight tx and, for each of its
// inputs, everything needed to prove the input exists and was spent.
// All the per-input lists are ordered as the tx inputs.
type StartInFlightExitRequest struct {
	InFlightTx []byte
	InputTxs   [][]byte
	// InputUtxosPos are the encoded positions of the spent outputs.
	InputUtxosPos                 []uint64
	InputUtxosTypes               []uint
	InputTxsInclusionProofs       [][]byte
	InFlightTxWitnesses           [][]byte
	OutputGuardPreimagesForInputs [][]byte
}

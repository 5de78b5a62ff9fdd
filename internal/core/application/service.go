package application

import (
	"context"
	"encoding/hex"
	goerrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/childchain/exitd/internal/core/domain"
	"github.com/childchain/exitd/internal/core/ports"
	"github.com/childchain/exitd/pkg/errors"
	"github.com/childchain/exitd/pkg/plasma-lib/exitid"
	"github.com/childchain/exitd/pkg/plasma-lib/merkle"
	"github.com/childchain/exitd/pkg/plasma-lib/transaction"
	"github.com/childchain/exitd/pkg/plasma-lib/utxo"
	"github.com/ethereum/go-ethereum/common"
	log "github.com/sirupsen/logrus"
)

type service struct {
	// services
	repoManager        ports.RepoManager
	spendingConditions ports.SpendingConditionRegistry
	outputGuards       ports.OutputGuardRegistry
	stateVerifier      ports.StateTransitionVerifier
	alerts             ports.Alerts

	// config
	childBlockInterval uint64

	now func() time.Time
	// serializes admissions, the exit existence check and insertion must be
	// atomic with respect to any other admission
	lock *sync.Mutex
}

func NewService(
	repoManager ports.RepoManager,
	spendingConditions ports.SpendingConditionRegistry,
	outputGuards ports.OutputGuardRegistry,
	stateVerifier ports.StateTransitionVerifier,
	alerts ports.Alerts,
	childBlockInterval uint64,
) (Service, error) {
	if repoManager == nil {
		return nil, fmt.Errorf("missing repo manager")
	}
	if spendingConditions == nil {
		return nil, fmt.Errorf("missing spending condition registry")
	}
	if outputGuards == nil {
		return nil, fmt.Errorf("missing output guard registry")
	}
	if stateVerifier == nil {
		return nil, fmt.Errorf("missing state transition verifier")
	}
	if childBlockInterval == 0 {
		childBlockInterval = utxo.DefaultChildBlockInterval
	}

	return &service{
		repoManager:        repoManager,
		spendingConditions: spendingConditions,
		outputGuards:       outputGuards,
		stateVerifier:      stateVerifier,
		alerts:             alerts,
		childBlockInterval: childBlockInterval,
		now:                time.Now,
		lock:               &sync.Mutex{},
	}, nil
}

func (s *service) Stop() {
	s.repoManager.Close()
	log.Debug("closed connection to db")
}

func (s *service) StartInFlightExit(
	ctx context.Context, sender common.Address, req StartInFlightExitRequest,
) (*domain.InFlightExit, errors.Error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	exit, err := s.startInFlightExit(ctx, sender, req)
	if err != nil {
		err.Log().WithField("sender", sender.Hex()).Debug("in-flight exit rejected")
		return nil, err
	}

	log.WithFields(log.Fields{
		"exit_id":  exit.ExitId.String(),
		"tx_hash":  exit.TxHash.Hex(),
		"position": exit.Position,
	}).Info("in-flight exit started")

	s.notify(ctx, *exit, sender)
	return exit, nil
}

func (s *service) GetInFlightExit(
	ctx context.Context, inFlightTx []byte,
) (*domain.InFlightExit, errors.Error) {
	if _, err := transaction.Decode(inFlightTx); err != nil {
		return nil, errors.MALFORMED_TX.New("failed to decode in-flight tx: %s", err).
			WithMetadata(errors.TxMetadata{Tx: hex.EncodeToString(inFlightTx)})
	}
	return s.GetInFlightExitByID(ctx, exitid.InFlightExitID(inFlightTx))
}

func (s *service) GetInFlightExitByID(
	ctx context.Context, id exitid.ExitID,
) (*domain.InFlightExit, errors.Error) {
	exit, err := s.repoManager.InFlightExits().Get(ctx, id)
	if err != nil {
		return nil, errors.INTERNAL_ERROR.Wrap(err)
	}
	if exit == nil {
		return nil, errors.EXIT_NOT_FOUND.New("in-flight exit %s not found", id).
			WithMetadata(errors.ExitMetadata{ExitId: id.String()})
	}
	return exit, nil
}

func (s *service) ListInFlightExits(ctx context.Context) ([]domain.InFlightExit, errors.Error) {
	exits, err := s.repoManager.InFlightExits().GetAll(ctx)
	if err != nil {
		return nil, errors.INTERNAL_ERROR.Wrap(err)
	}
	return exits, nil
}

func (s *service) SubmitBlock(ctx context.Context, number uint64, root common.Hash) errors.Error {
	if number == 0 {
		return errors.INVALID_BLOCK.New("block number must be greater than zero").
			WithMetadata(errors.BlockMetadata{BlockNum: number})
	}
	if root == (common.Hash{}) {
		return errors.INVALID_BLOCK.New("missing block root").
			WithMetadata(errors.BlockMetadata{BlockNum: number})
	}

	block := domain.Block{Number: number, Root: root, Timestamp: s.now().Unix()}
	if err := s.repoManager.Blocks().AddBlock(ctx, block); err != nil {
		if goerrors.Is(err, domain.ErrBlockAlreadyExists) {
			return errors.INVALID_BLOCK.New("block %d already submitted", number).
				WithMetadata(errors.BlockMetadata{BlockNum: number})
		}
		return errors.INTERNAL_ERROR.Wrap(err)
	}

	log.WithFields(log.Fields{
		"number": number,
		"root":   root.Hex(),
	}).Debug("block submitted")
	return nil
}

func (s *service) startInFlightExit(
	ctx context.Context, sender common.Address, req StartInFlightExitRequest,
) (*domain.InFlightExit, errors.Error) {
	// Decode the in-flight tx and the input positions.
	inFlightTx, err := transaction.Decode(req.InFlightTx)
	if err != nil {
		return nil, errors.MALFORMED_TX.New("failed to decode in-flight tx: %s", err).
			WithMetadata(errors.TxMetadata{Tx: hex.EncodeToString(req.InFlightTx)})
	}
	if inFlightTx.IsDeposit() {
		return nil, errors.MALFORMED_TX.New("in-flight tx has no inputs").
			WithMetadata(errors.TxMetadata{Tx: hex.EncodeToString(req.InFlightTx)})
	}
	exitId := exitid.InFlightExitID(req.InFlightTx)

	positions, verr := decodePositions(req.InputUtxosPos)
	if verr != nil {
		return nil, verr
	}

	numInputs := len(inFlightTx.Inputs)
	if err := checkArity(numInputs, req); err != nil {
		return nil, err
	}

	if err := checkDuplicateInputs(inFlightTx.Inputs); err != nil {
		return nil, err
	}

	existing, err := s.repoManager.InFlightExits().Get(ctx, exitId)
	if err != nil {
		return nil, errors.INTERNAL_ERROR.Wrap(err)
	}
	if existing != nil {
		md := errors.ExitMetadata{ExitId: exitId.String(), TxHash: existing.TxHash.Hex()}
		if existing.IsFinalized() {
			return nil, errors.EXIT_ALREADY_FINALIZED.New(
				"in-flight exit %s is already finalized", exitId,
			).WithMetadata(md)
		}
		return nil, errors.EXIT_ALREADY_ACTIVE.New(
			"there is an active in-flight exit %s from this tx", exitId,
		).WithMetadata(md)
	}

	outputIds := make([]common.Hash, 0, numInputs)
	for i, pos := range positions {
		outputIds = append(outputIds, exitid.OutputID(req.InputTxs[i], pos, s.childBlockInterval))
	}

	for i, pos := range positions {
		if err := s.verifyInclusion(ctx, i, pos, req.InputTxs[i], req.InputTxsInclusionProofs[i]); err != nil {
			return nil, err
		}
	}

	spentOutputs := make([]transaction.Output, 0, numInputs)
	for i, pos := range positions {
		output, err := s.verifySpend(i, pos, outputIds[i], inFlightTx.TxType, req)
		if err != nil {
			return nil, err
		}
		spentOutputs = append(spentOutputs, *output)
	}

	if !s.stateVerifier.IsValid(req.InFlightTx, req.InputTxs, positions) {
		return nil, errors.INVALID_STATE_TRANSITION.New(
			"in-flight tx is not a valid state transition of its inputs",
		).WithMetadata(errors.TxMetadata{Tx: hex.EncodeToString(req.InFlightTx)})
	}

	exit, verr := s.newInFlightExit(sender, exitId, inFlightTx, positions, outputIds, spentOutputs, req)
	if verr != nil {
		return nil, verr
	}

	if err := s.repoManager.InFlightExits().Add(ctx, *exit); err != nil {
		if goerrors.Is(err, domain.ErrExitAlreadyExists) {
			return nil, errors.EXIT_ALREADY_ACTIVE.New(
				"there is an active in-flight exit %s from this tx", exitId,
			).WithMetadata(errors.ExitMetadata{ExitId: exitId.String()})
		}
		return nil, errors.INTERNAL_ERROR.Wrap(err)
	}
	return exit, nil
}

// verifyInclusion checks that the input tx is a leaf of the tree committed
// for the block of the spent position.
func (s *service) verifyInclusion(
	ctx context.Context, index int, pos utxo.Pos, inputTx, proof []byte,
) errors.Error {
	position := pos.Position()
	md := errors.InclusionMetadata{
		InputIndex: index, BlockNum: position.BlockNum, TxIndex: position.TxIndex,
	}

	block, err := s.repoManager.Blocks().GetBlock(ctx, position.BlockNum)
	if err != nil {
		if goerrors.Is(err, domain.ErrBlockNotFound) {
			return errors.NOT_INCLUDED_IN_LEDGER.New(
				"input tx %d is not included in plasma: block %d not found",
				index, position.BlockNum,
			).WithMetadata(md)
		}
		return errors.INTERNAL_ERROR.Wrap(err)
	}

	if !merkle.CheckMembership(inputTx, position.TxIndex, block.Root, proof) {
		return errors.NOT_INCLUDED_IN_LEDGER.New(
			"input tx %d is not included in plasma", index,
		).WithMetadata(md)
	}
	return nil
}

// verifySpend checks that the in-flight tx is authorized to spend the output
// at the given input index and returns such output.
func (s *service) verifySpend(
	index int, pos utxo.Pos, outputId common.Hash, txType uint, req StartInFlightExitRequest,
) (*transaction.Output, errors.Error) {
	inputTx, err := transaction.Decode(req.InputTxs[index])
	if err != nil {
		return nil, errors.MALFORMED_TX.New("failed to decode input tx %d: %s", index, err).
			WithMetadata(errors.TxMetadata{Tx: hex.EncodeToString(req.InputTxs[index])})
	}
	output, err := inputTx.Output(pos.Position().OutputIndex)
	if err != nil {
		return nil, errors.INVALID_UTXO_POSITION.New("input %d: %s", index, err).
			WithMetadata(errors.UtxoPosMetadata{InputIndex: index, UtxoPos: pos.Uint64()})
	}

	outputType := req.InputUtxosTypes[index]
	if output.OutputType != outputType {
		return nil, errors.GUARD_MISMATCH.New(
			"input %d: declared output type %d does not match committed type %d",
			index, outputType, output.OutputType,
		).WithMetadata(errors.GuardMismatchMetadata{
			InputIndex: index, ExpectedGuard: output.Guard.Hex(),
		})
	}

	if outputType != ports.DefaultOutputType {
		handler, ok := s.outputGuards.OutputGuardHandler(outputType)
		if !ok {
			return nil, errors.NO_GUARD_PARSER.New(
				"input %d: no output guard handler for output type %d", index, outputType,
			).WithMetadata(errors.OutputTypeMetadata{InputIndex: index, OutputType: outputType})
		}
		guard, err := handler.ComputeGuard(req.OutputGuardPreimagesForInputs[index])
		if err != nil || guard != output.Guard {
			return nil, errors.GUARD_MISMATCH.New(
				"input %d: output guard pre-image does not match the committed guard", index,
			).WithMetadata(errors.GuardMismatchMetadata{
				InputIndex: index, ExpectedGuard: output.Guard.Hex(), GotGuard: guard.Hex(),
			})
		}
	}

	condition, ok := s.spendingConditions.SpendingCondition(outputType, txType)
	if !ok {
		return nil, errors.NO_SPENDING_CONDITION.New(
			"input %d: no spending condition for output type %d and tx type %d",
			index, outputType, txType,
		).WithMetadata(errors.OutputTypeMetadata{
			InputIndex: index, OutputType: outputType, TxType: txType,
		})
	}

	valid, err := condition.Verify(
		output.Guard, pos, outputId, req.InFlightTx, uint16(index), req.InFlightTxWitnesses[index],
	)
	if err != nil || !valid {
		msg := fmt.Sprintf("input %d: spending condition failed", index)
		if err != nil {
			msg = fmt.Sprintf("%s: %s", msg, err)
		}
		return nil, errors.SPENDING_CONDITION_FAILED.New("%s", msg).
			WithMetadata(errors.InputMetadata{InputIndex: index, OutputId: outputId.Hex()})
	}
	return output, nil
}

func (s *service) newInFlightExit(
	sender common.Address, exitId exitid.ExitID, inFlightTx *transaction.Transaction,
	positions []utxo.Pos, outputIds []common.Hash, spentOutputs []transaction.Output,
	req StartInFlightExitRequest,
) (*domain.InFlightExit, errors.Error) {
	inputs := make([]domain.WithdrawData, 0, len(spentOutputs))
	for i, output := range spentOutputs {
		exitTarget, err := s.exitTarget(i, output, req)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, domain.WithdrawData{
			OutputId:   outputIds[i],
			ExitTarget: exitTarget,
			Token:      output.Token,
			Amount:     output.Amount.Clone(),
		})
	}

	// in-flight txs are never deposits, their outputs always get a normal id
	outputs := make([]domain.WithdrawData, 0, len(inFlightTx.Outputs))
	for i, output := range inFlightTx.Outputs {
		outputs = append(outputs, domain.WithdrawData{
			OutputId: exitid.NormalOutputID(req.InFlightTx, uint64(i)),
			Token:    output.Token,
			Amount:   output.Amount.Clone(),
		})
	}

	return &domain.InFlightExit{
		ExitId:         exitId,
		TxHash:         inFlightTx.Hash(),
		BondOwner:      sender,
		Position:       youngestPosition(positions),
		StartTimestamp: s.now().Unix(),
		IsCanonical:    true,
		Inputs:         inputs,
		Outputs:        outputs,
	}, nil
}

func (s *service) exitTarget(
	index int, output transaction.Output, req StartInFlightExitRequest,
) (common.Address, errors.Error) {
	outputType := req.InputUtxosTypes[index]
	if outputType == ports.DefaultOutputType {
		return output.Guard, nil
	}

	handler, ok := s.outputGuards.OutputGuardHandler(outputType)
	if !ok {
		return common.Address{}, errors.NO_GUARD_PARSER.New(
			"input %d: no output guard handler for output type %d", index, outputType,
		).WithMetadata(errors.OutputTypeMetadata{InputIndex: index, OutputType: outputType})
	}
	target, err := handler.ExitTarget(req.OutputGuardPreimagesForInputs[index])
	if err != nil {
		return common.Address{}, errors.GUARD_MISMATCH.New(
			"input %d: failed to extract exit target from guard pre-image: %s", index, err,
		).WithMetadata(errors.GuardMismatchMetadata{
			InputIndex: index, ExpectedGuard: output.Guard.Hex(),
		})
	}
	return target, nil
}

func (s *service) notify(ctx context.Context, exit domain.InFlightExit, sender common.Address) {
	id := exit.ExitId.String()
	event := domain.NewInFlightExitStarted(id, sender, exit.TxHash)
	if err := s.repoManager.Events().Save(
		ctx, domain.InFlightExitTopic, id, []domain.Event{event},
	); err != nil {
		log.WithError(err).WithField("exit_id", id).Warn("failed to publish in-flight exit event")
	}

	go s.sendInFlightExitAlert(exit, sender)
}

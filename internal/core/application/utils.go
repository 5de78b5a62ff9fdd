package application

import (
	"github.com/childchain/exitd/pkg/errors"
	"github.com/childchain/exitd/pkg/plasma-lib/transaction"
	"github.com/childchain/exitd/pkg/plasma-lib/utxo"
)

func decodePositions(values []uint64) ([]utxo.Pos, errors.Error) {
	positions := make([]utxo.Pos, 0, len(values))
	for i, v := range values {
		pos := utxo.Pos(v)
		position := pos.Position()
		if err := position.Validate(); err != nil {
			return nil, errors.INVALID_UTXO_POSITION.New("input %d: %s", i, err).
				WithMetadata(errors.UtxoPosMetadata{InputIndex: i, UtxoPos: v})
		}
		// block numbering starts from 1
		if position.BlockNum == 0 {
			return nil, errors.INVALID_UTXO_POSITION.New(
				"input %d: block number must be greater than zero", i,
			).WithMetadata(errors.UtxoPosMetadata{InputIndex: i, UtxoPos: v})
		}
		positions = append(positions, pos)
	}
	return positions, nil
}

// checkArity requires every per-input list of the request to have exactly
// one entry for each input of the in-flight tx.
func checkArity(numInputs int, req StartInFlightExitRequest) errors.Error {
	lengths := []struct {
		field string
		len   int
	}{
		{"input_utxos_pos", len(req.InputUtxosPos)},
		{"input_utxos_types", len(req.InputUtxosTypes)},
		{"input_txs_inclusion_proofs", len(req.InputTxsInclusionProofs)},
		{"in_flight_tx_witnesses", len(req.InFlightTxWitnesses)},
		{"input_txs", len(req.InputTxs)},
		{"output_guard_preimages_for_inputs", len(req.OutputGuardPreimagesForInputs)},
	}
	for _, l := range lengths {
		if l.len != numInputs {
			return errors.INPUT_COUNT_MISMATCH.New(
				"number of %s does not match number of in-flight tx inputs, got %d expected %d",
				l.field, l.len, numInputs,
			).WithMetadata(errors.InputCountMismatchMetadata{
				Field: l.field, Expected: numInputs, Got: l.len,
			})
		}
	}
	return nil
}

func checkDuplicateInputs(inputs []transaction.Input) errors.Error {
	for i := 0; i < len(inputs); i++ {
		for j := i + 1; j < len(inputs); j++ {
			if inputs[i] == inputs[j] {
				return errors.DUPLICATE_INPUT.New(
					"in-flight tx spends input %s more than once", inputs[i],
				).WithMetadata(errors.DuplicateInputMetadata{
					Input: inputs[i].String(), FirstIndex: i, SecondIndex: j,
				})
			}
		}
	}
	return nil
}

func youngestPosition(positions []utxo.Pos) utxo.Pos {
	var youngest utxo.Pos
	for _, pos := range positions {
		if pos > youngest {
			youngest = pos
		}
	}
	return youngest
}

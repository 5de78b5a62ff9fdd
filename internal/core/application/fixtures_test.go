package application

import (
	"fmt"
	"testing"
	"time"

	"github.com/childchain/exitd/internal/core/domain"
	"github.com/childchain/exitd/internal/core/ports"
	"github.com/childchain/exitd/pkg/plasma-lib/merkle"
	"github.com/childchain/exitd/pkg/plasma-lib/transaction"
	"github.com/childchain/exitd/pkg/plasma-lib/utxo"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const paymentTxType uint = 1

var (
	owner       = common.HexToAddress("0x1c2a0ee8f4c03a53b46b9c5b4c6e8d1e9a8b4f21")
	receiver    = common.HexToAddress("0x7e5f4552091a69125d5dfcb7b8c2659029395bdf")
	sender      = common.HexToAddress("0x2b5ad5c4795c026514f8317c7a215e218dccd6cf")
	hashedGuard = common.HexToAddress("0x00000000000000000000000000000000deadbeef")
	eth         = common.Address{}

	testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
)

type fixture struct {
	req        StartInFlightExitRequest
	inFlightTx *transaction.Transaction
	positions  []utxo.Pos
	roots      map[uint64]common.Hash
	trees      map[uint64]*merkle.Tree
}

// newFixture builds an in-flight tx spending one output at each of the given
// positions, together with the input txs, the blocks that include them and
// the inclusion proofs.
func newFixture(t *testing.T, positions []utxo.Pos, outputTypes []uint) fixture {
	t.Helper()
	if outputTypes == nil {
		outputTypes = make([]uint, len(positions))
	}

	inputTxs := make([][]byte, 0, len(positions))
	leaves := make(map[uint64]map[uint64][]byte)
	inFlightInputs := make([]transaction.Input, 0, len(positions))
	preimages := make([][]byte, 0, len(positions))
	witnesses := make([][]byte, 0, len(positions))

	for i, pos := range positions {
		position := pos.Position()
		outputs := make([]transaction.Output, 0, position.OutputIndex+1)
		for j := uint64(0); j <= position.OutputIndex; j++ {
			outputs = append(outputs, transaction.Output{
				OutputType: ports.DefaultOutputType,
				Guard:      owner,
				Token:      eth,
				Amount:     uint256.NewInt(10),
			})
		}
		if outputTypes[i] != ports.DefaultOutputType {
			outputs[position.OutputIndex].OutputType = outputTypes[i]
			outputs[position.OutputIndex].Guard = hashedGuard
		}
		parent := transaction.Input(utxo.Encode(uint64(i+1), 0, 0).Bytes32())
		inputTx, err := transaction.New(
			paymentTxType, []transaction.Input{parent}, outputs, common.Hash{},
		)
		require.NoError(t, err)

		inputTxs = append(inputTxs, inputTx.Bytes())
		if leaves[position.BlockNum] == nil {
			leaves[position.BlockNum] = make(map[uint64][]byte)
		}
		leaves[position.BlockNum][position.TxIndex] = inputTx.Bytes()
		inFlightInputs = append(inFlightInputs, transaction.Input(pos.Bytes32()))
		witnesses = append(witnesses, []byte(fmt.Sprintf("witness-%d", i)))
		if outputTypes[i] != ports.DefaultOutputType {
			preimages = append(preimages, []byte(fmt.Sprintf("preimage-%d", i)))
		} else {
			preimages = append(preimages, nil)
		}
	}

	trees := make(map[uint64]*merkle.Tree)
	roots := make(map[uint64]common.Hash)
	for blockNum, blockLeaves := range leaves {
		maxIndex := uint64(0)
		for txIndex := range blockLeaves {
			maxIndex = max(maxIndex, txIndex)
		}
		all := make([][]byte, maxIndex+1)
		for txIndex := range all {
			if leaf, ok := blockLeaves[uint64(txIndex)]; ok {
				all[txIndex] = leaf
				continue
			}
			all[txIndex] = []byte(fmt.Sprintf("filler-%d-%d", blockNum, txIndex))
		}
		tree, err := merkle.NewTree(all)
		require.NoError(t, err)
		trees[blockNum] = tree
		roots[blockNum] = tree.Root()
	}

	proofs := make([][]byte, 0, len(positions))
	for _, pos := range positions {
		position := pos.Position()
		proof, err := trees[position.BlockNum].Proof(position.TxIndex)
		require.NoError(t, err)
		proofs = append(proofs, proof)
	}

	inFlightTx, err := transaction.New(
		paymentTxType, inFlightInputs,
		[]transaction.Output{{
			OutputType: ports.DefaultOutputType,
			Guard:      receiver,
			Token:      eth,
			Amount:     uint256.NewInt(uint64(10 * len(positions))),
		}},
		common.Hash{},
	)
	require.NoError(t, err)

	rawPositions := make([]uint64, 0, len(positions))
	for _, pos := range positions {
		rawPositions = append(rawPositions, pos.Uint64())
	}

	return fixture{
		req: StartInFlightExitRequest{
			InFlightTx:                    inFlightTx.Bytes(),
			InputTxs:                      inputTxs,
			InputUtxosPos:                 rawPositions,
			InputUtxosTypes:               outputTypes,
			InputTxsInclusionProofs:       proofs,
			InFlightTxWitnesses:           witnesses,
			OutputGuardPreimagesForInputs: preimages,
		},
		inFlightTx: inFlightTx,
		positions:  positions,
		roots:      roots,
		trees:      trees,
	}
}

type testMocks struct {
	repoManager *mockRepoManager
	events      *mockEventRepository
	blocks      *mockBlockRepository
	exits       *fakeInFlightExitRepository
	conditions  *mockSpendingConditionRegistry
	condition   *mockSpendingCondition
	guards      *mockOutputGuardRegistry
	handler     *mockOutputGuardHandler
	verifier    *mockStateTransitionVerifier
}

func newTestMocks() *testMocks {
	m := &testMocks{
		events:     &mockEventRepository{},
		blocks:     &mockBlockRepository{},
		exits:      newFakeInFlightExitRepository(),
		conditions: &mockSpendingConditionRegistry{},
		condition:  &mockSpendingCondition{},
		guards:     &mockOutputGuardRegistry{},
		handler:    &mockOutputGuardHandler{},
		verifier:   &mockStateTransitionVerifier{},
	}
	m.repoManager = &mockRepoManager{events: m.events, blocks: m.blocks, exits: m.exits}
	return m
}

// happyPath registers the expectations of a successful admission. Tests
// overriding any of them must register their own before calling this.
func (m *testMocks) happyPath(f fixture) *testMocks {
	for blockNum, root := range f.roots {
		m.blocks.On("GetBlock", mock.Anything, blockNum).
			Return(&domain.Block{Number: blockNum, Root: root}, nil).Maybe()
	}
	m.conditions.On("SpendingCondition", mock.Anything, paymentTxType).
		Return(m.condition, true).Maybe()
	m.condition.On(
		"Verify", mock.Anything, mock.Anything, mock.Anything,
		mock.Anything, mock.Anything, mock.Anything,
	).Return(true, nil).Maybe()
	m.guards.On("OutputGuardHandler", mock.Anything).Return(m.handler, true).Maybe()
	m.handler.On("ComputeGuard", mock.Anything).Return(hashedGuard, nil).Maybe()
	m.handler.On("ExitTarget", mock.Anything).Return(owner, nil).Maybe()
	m.verifier.On("IsValid", mock.Anything, mock.Anything, mock.Anything).Return(true).Maybe()
	m.events.On("Save", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil).Maybe()
	return m
}

func (m *testMocks) newService(t *testing.T) *service {
	t.Helper()
	svc, err := NewService(
		m.repoManager, m.conditions, m.guards, m.verifier, nil, utxo.DefaultChildBlockInterval,
	)
	require.NoError(t, err)
	s := svc.(*service)
	s.now = func() time.Time { return testNow }
	return s
}

// treeWithLeaf returns the root of a tree having leaf at the given index and
// the proof of its membership.
func treeWithLeaf(t *testing.T, leaf []byte, index uint64) (common.Hash, []byte) {
	t.Helper()
	leaves := make([][]byte, index+1)
	for i := range leaves {
		leaves[i] = []byte(fmt.Sprintf("filler-%d", i))
	}
	leaves[index] = leaf
	tree, err := merkle.NewTree(leaves)
	require.NoError(t, err)
	proof, err := tree.Proof(index)
	require.NoError(t, err)
	return tree.Root(), proof
}

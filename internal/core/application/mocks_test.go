package application

import (
	"context"
	"sync"

	"github.com/childchain/exitd/internal/core/domain"
	"github.com/childchain/exitd/internal/core/ports"
	"github.com/childchain/exitd/pkg/plasma-lib/exitid"
	"github.com/childchain/exitd/pkg/plasma-lib/utxo"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/mock"
)

// Mock implementations of the service collaborators

type mockRepoManager struct {
	events *mockEventRepository
	blocks *mockBlockRepository
	exits  *fakeInFlightExitRepository
}

func (m *mockRepoManager) Events() domain.EventRepository                { return m.events }
func (m *mockRepoManager) Blocks() domain.BlockRepository                { return m.blocks }
func (m *mockRepoManager) InFlightExits() domain.InFlightExitRepository { return m.exits }
func (m *mockRepoManager) Close()                                        {}

type mockEventRepository struct {
	mock.Mock
}

func (m *mockEventRepository) Save(
	ctx context.Context, topic, id string, events []domain.Event,
) error {
	args := m.Called(ctx, topic, id, events)
	return args.Error(0)
}

// Stub implementations for unused EventRepository methods
func (m *mockEventRepository) RegisterEventsHandler(string, func([]domain.Event)) {}
func (m *mockEventRepository) ClearRegisteredHandlers(...string)                 {}
func (m *mockEventRepository) Close()                                            {}

type mockBlockRepository struct {
	mock.Mock
}

func (m *mockBlockRepository) AddBlock(ctx context.Context, block domain.Block) error {
	args := m.Called(ctx, block)
	return args.Error(0)
}

func (m *mockBlockRepository) GetBlock(ctx context.Context, number uint64) (*domain.Block, error) {
	args := m.Called(ctx, number)
	var block *domain.Block
	if b := args.Get(0); b != nil {
		block = b.(*domain.Block)
	}
	return block, args.Error(1)
}

func (m *mockBlockRepository) Close() {}

// fakeInFlightExitRepository keeps exits in memory so that tests can run
// the pipeline more than once against the same store.
type fakeInFlightExitRepository struct {
	lock  sync.Mutex
	exits map[exitid.ExitID]domain.InFlightExit
	adds  int
}

func newFakeInFlightExitRepository() *fakeInFlightExitRepository {
	return &fakeInFlightExitRepository{exits: make(map[exitid.ExitID]domain.InFlightExit)}
}

func (r *fakeInFlightExitRepository) Add(_ context.Context, exit domain.InFlightExit) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if _, ok := r.exits[exit.ExitId]; ok {
		return domain.ErrExitAlreadyExists
	}
	r.exits[exit.ExitId] = exit
	r.adds++
	return nil
}

func (r *fakeInFlightExitRepository) Get(
	_ context.Context, id exitid.ExitID,
) (*domain.InFlightExit, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	exit, ok := r.exits[id]
	if !ok {
		return nil, nil
	}
	return &exit, nil
}

func (r *fakeInFlightExitRepository) Update(_ context.Context, exit domain.InFlightExit) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if _, ok := r.exits[exit.ExitId]; !ok {
		return domain.ErrExitNotFound
	}
	r.exits[exit.ExitId] = exit
	return nil
}

func (r *fakeInFlightExitRepository) GetAll(context.Context) ([]domain.InFlightExit, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	exits := make([]domain.InFlightExit, 0, len(r.exits))
	for _, exit := range r.exits {
		exits = append(exits, exit)
	}
	return exits, nil
}

func (r *fakeInFlightExitRepository) Close() {}

type mockSpendingConditionRegistry struct {
	mock.Mock
}

func (m *mockSpendingConditionRegistry) SpendingCondition(
	outputType, spendingTxType uint,
) (ports.SpendingCondition, bool) {
	args := m.Called(outputType, spendingTxType)
	var condition ports.SpendingCondition
	if c := args.Get(0); c != nil {
		condition = c.(ports.SpendingCondition)
	}
	return condition, args.Bool(1)
}

type mockSpendingCondition struct {
	mock.Mock
}

func (m *mockSpendingCondition) Verify(
	guard common.Address, pos utxo.Pos, outputId common.Hash,
	spendingTx []byte, inputIndex uint16, witness []byte,
) (bool, error) {
	args := m.Called(guard, pos, outputId, spendingTx, inputIndex, witness)
	return args.Bool(0), args.Error(1)
}

type mockOutputGuardRegistry struct {
	mock.Mock
}

func (m *mockOutputGuardRegistry) OutputGuardHandler(
	outputType uint,
) (ports.OutputGuardHandler, bool) {
	args := m.Called(outputType)
	var handler ports.OutputGuardHandler
	if h := args.Get(0); h != nil {
		handler = h.(ports.OutputGuardHandler)
	}
	return handler, args.Bool(1)
}

type mockOutputGuardHandler struct {
	mock.Mock
}

func (m *mockOutputGuardHandler) ComputeGuard(preImage []byte) (common.Address, error) {
	args := m.Called(preImage)
	return args.Get(0).(common.Address), args.Error(1)
}

func (m *mockOutputGuardHandler) ExitTarget(preImage []byte) (common.Address, error) {
	args := m.Called(preImage)
	return args.Get(0).(common.Address), args.Error(1)
}

type mockStateTransitionVerifier struct {
	mock.Mock
}

func (m *mockStateTransitionVerifier) IsValid(
	inFlightTx []byte, inputTxs [][]byte, inputPositions []utxo.Pos,
) bool {
	args := m.Called(inFlightTx, inputTxs, inputPositions)
	return args.Bool(0)
}

package inmemorydb

import (
	"context"
	"sort"
	"sync"

	"github.com/childchain/exitd/internal/core/domain"
	"github.com/childchain/exitd/pkg/plasma-lib/exitid"
)

type inFlightExitRepository struct {
	lock  sync.RWMutex
	exits map[exitid.ExitID]domain.InFlightExit
}

func NewInFlightExitRepository(_ ...interface{}) (domain.InFlightExitRepository, error) {
	return &inFlightExitRepository{
		exits: make(map[exitid.ExitID]domain.InFlightExit),
	}, nil
}

func (r *inFlightExitRepository) Add(_ context.Context, exit domain.InFlightExit) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if _, ok := r.exits[exit.ExitId]; ok {
		return domain.ErrExitAlreadyExists
	}
	r.exits[exit.ExitId] = clone(exit)
	return nil
}

func (r *inFlightExitRepository) Get(
	_ context.Context, id exitid.ExitID,
) (*domain.InFlightExit, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	exit, ok := r.exits[id]
	if !ok {
		return nil, nil
	}
	exit = clone(exit)
	return &exit, nil
}

func (r *inFlightExitRepository) Update(_ context.Context, exit domain.InFlightExit) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if _, ok := r.exits[exit.ExitId]; !ok {
		return domain.ErrExitNotFound
	}
	r.exits[exit.ExitId] = clone(exit)
	return nil
}

func (r *inFlightExitRepository) GetAll(_ context.Context) ([]domain.InFlightExit, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	exits := make([]domain.InFlightExit, 0, len(r.exits))
	for _, exit := range r.exits {
		exits = append(exits, clone(exit))
	}
	sort.SliceStable(exits, func(i, j int) bool {
		return exits[i].Position < exits[j].Position
	})
	return exits, nil
}

func (r *inFlightExitRepository) Close() {}

// clone copies the slices and amounts so callers never share state with the store.
func clone(exit domain.InFlightExit) domain.InFlightExit {
	exit.Inputs = cloneWithdrawData(exit.Inputs)
	exit.Outputs = cloneWithdrawData(exit.Outputs)
	return exit
}

func cloneWithdrawData(list []domain.WithdrawData) []domain.WithdrawData {
	if list == nil {
		return nil
	}
	cloned := make([]domain.WithdrawData, 0, len(list))
	for _, w := range list {
		if w.Amount != nil {
			w.Amount = w.Amount.Clone()
		}
		cloned = append(cloned, w)
	}
	return cloned
}

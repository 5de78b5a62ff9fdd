package registry

import (
	"fmt"
	"sync"

	"github.com/childchain/exitd/internal/core/ports"
)

type conditionKey struct {
	outputType     uint
	spendingTxType uint
}

// Registry maps type tags to the exit game implementations.
// Once registered, an implementation can't be replaced.
type Registry struct {
	conditions map[conditionKey]ports.SpendingCondition
	handlers   map[uint]ports.OutputGuardHandler
	lock       *sync.RWMutex
}

func New() *Registry {
	return &Registry{
		conditions: make(map[conditionKey]ports.SpendingCondition),
		handlers:   make(map[uint]ports.OutputGuardHandler),
		lock:       &sync.RWMutex{},
	}
}

func (r *Registry) RegisterSpendingCondition(
	outputType, spendingTxType uint, condition ports.SpendingCondition,
) error {
	if spendingTxType == 0 {
		return fmt.Errorf("registration not possible with spending tx type 0")
	}
	if condition == nil {
		return fmt.Errorf("missing spending condition")
	}

	r.lock.Lock()
	defer r.lock.Unlock()

	key := conditionKey{outputType, spendingTxType}
	if _, ok := r.conditions[key]; ok {
		return fmt.Errorf(
			"spending condition already registered for output type %d and tx type %d",
			outputType, spendingTxType,
		)
	}
	r.conditions[key] = condition
	return nil
}

func (r *Registry) RegisterOutputGuardHandler(
	outputType uint, handler ports.OutputGuardHandler,
) error {
	if outputType == ports.DefaultOutputType {
		return fmt.Errorf("default output type guards are not parsed")
	}
	if handler == nil {
		return fmt.Errorf("missing output guard handler")
	}

	r.lock.Lock()
	defer r.lock.Unlock()

	if _, ok := r.handlers[outputType]; ok {
		return fmt.Errorf("output guard handler already registered for output type %d", outputType)
	}
	r.handlers[outputType] = handler
	return nil
}

func (r *Registry) SpendingCondition(
	outputType, spendingTxType uint,
) (ports.SpendingCondition, bool) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	condition, ok := r.conditions[conditionKey{outputType, spendingTxType}]
	return condition, ok
}

func (r *Registry) OutputGuardHandler(outputType uint) (ports.OutputGuardHandler, bool) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	handler, ok := r.handlers[outputType]
	return handler, ok
}

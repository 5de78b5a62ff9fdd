package payment

import (
	"fmt"

	"github.com/childchain/exitd/internal/infrastructure/exitgame/registry"
)

const (
	// TxType is the type of payment transactions.
	TxType uint = 1

	// OutputTypeOwner outputs are guarded by the owner address.
	OutputTypeOwner uint = 0
	// OutputTypeHashedOwner outputs are guarded by the hash of a pre-image
	// starting with the owner address.
	OutputTypeHashedOwner uint = 1
)

// Register wires the payment exit game into the given registry.
func Register(reg *registry.Registry, domainSeparator DomainSeparator) error {
	hashedGuard := NewHashedOwnerGuardHandler()

	if err := reg.RegisterOutputGuardHandler(OutputTypeHashedOwner, hashedGuard); err != nil {
		return fmt.Errorf("failed to register hashed owner guard handler: %s", err)
	}
	if err := reg.RegisterSpendingCondition(
		OutputTypeOwner, TxType, NewOwnerSpendingCondition(domainSeparator),
	); err != nil {
		return fmt.Errorf("failed to register owner spending condition: %s", err)
	}
	if err := reg.RegisterSpendingCondition(
		OutputTypeHashedOwner, TxType,
		NewHashedOwnerSpendingCondition(domainSeparator, hashedGuard),
	); err != nil {
		return fmt.Errorf("failed to register hashed owner spending condition: %s", err)
	}
	return nil
}

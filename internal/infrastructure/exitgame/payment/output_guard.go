package payment

import (
	"fmt"

	"github.com/childchain/exitd/internal/core/ports"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

type hashedOwnerGuardHandler struct{}

// NewHashedOwnerGuardHandler parses guards computed as the last 20 bytes of
// keccak256(preImage), where the pre-image starts with the owner address.
func NewHashedOwnerGuardHandler() ports.OutputGuardHandler {
	return &hashedOwnerGuardHandler{}
}

func (h *hashedOwnerGuardHandler) ComputeGuard(preImage []byte) (common.Address, error) {
	if err := validatePreImage(preImage); err != nil {
		return common.Address{}, err
	}
	return common.BytesToAddress(crypto.Keccak256(preImage)[12:]), nil
}

func (h *hashedOwnerGuardHandler) ExitTarget(preImage []byte) (common.Address, error) {
	if err := validatePreImage(preImage); err != nil {
		return common.Address{}, err
	}
	return common.BytesToAddress(preImage[:common.AddressLength]), nil
}

func validatePreImage(preImage []byte) error {
	if len(preImage) < common.AddressLength {
		return fmt.Errorf(
			"pre-image too short, got %d bytes min %d", len(preImage), common.AddressLength,
		)
	}
	return nil
}

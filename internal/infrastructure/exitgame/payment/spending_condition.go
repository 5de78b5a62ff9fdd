package payment

import (
	"bytes"
	"fmt"

	"github.com/childchain/exitd/internal/core/ports"
	"github.com/childchain/exitd/pkg/plasma-lib/transaction"
	"github.com/childchain/exitd/pkg/plasma-lib/utxo"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

type ownerSpendingCondition struct {
	domainSeparator DomainSeparator
}

// NewOwnerSpendingCondition authorizes a payment tx to spend an output whose
// guard is the owner address if the witness is the owner's signature.
func NewOwnerSpendingCondition(domainSeparator DomainSeparator) ports.SpendingCondition {
	return &ownerSpendingCondition{domainSeparator}
}

func (c *ownerSpendingCondition) Verify(
	guard common.Address, pos utxo.Pos, _ common.Hash,
	spendingTx []byte, inputIndex uint16, witness []byte,
) (bool, error) {
	if err := checkSpentInput(spendingTx, pos, inputIndex); err != nil {
		return false, err
	}
	signer, err := c.domainSeparator.Signer(spendingTx, witness)
	if err != nil {
		return false, err
	}
	return signer == guard, nil
}

type hashedOwnerSpendingCondition struct {
	domainSeparator DomainSeparator
	guardHandler    ports.OutputGuardHandler
}

// NewHashedOwnerSpendingCondition expects the witness to be the owner's
// signature followed by the guard pre-image.
func NewHashedOwnerSpendingCondition(
	domainSeparator DomainSeparator, guardHandler ports.OutputGuardHandler,
) ports.SpendingCondition {
	return &hashedOwnerSpendingCondition{domainSeparator, guardHandler}
}

func (c *hashedOwnerSpendingCondition) Verify(
	guard common.Address, pos utxo.Pos, _ common.Hash,
	spendingTx []byte, inputIndex uint16, witness []byte,
) (bool, error) {
	if err := checkSpentInput(spendingTx, pos, inputIndex); err != nil {
		return false, err
	}
	if len(witness) < crypto.SignatureLength {
		return false, fmt.Errorf("witness too short")
	}
	sig, preImage := witness[:crypto.SignatureLength], witness[crypto.SignatureLength:]

	computed, err := c.guardHandler.ComputeGuard(preImage)
	if err != nil {
		return false, err
	}
	if computed != guard {
		return false, nil
	}
	owner, err := c.guardHandler.ExitTarget(preImage)
	if err != nil {
		return false, err
	}

	signer, err := c.domainSeparator.Signer(spendingTx, sig)
	if err != nil {
		return false, err
	}
	return signer == owner, nil
}

// checkSpentInput makes sure the input at inputIndex references pos.
func checkSpentInput(spendingTx []byte, pos utxo.Pos, inputIndex uint16) error {
	tx, err := transaction.Decode(spendingTx)
	if err != nil {
		return err
	}
	if tx.TxType != TxType {
		return fmt.Errorf("unexpected spending tx type %d", tx.TxType)
	}
	if int(inputIndex) >= len(tx.Inputs) {
		return fmt.Errorf("input index %d out of range", inputIndex)
	}
	expected := pos.Bytes32()
	if !bytes.Equal(tx.Inputs[inputIndex][:], expected[:]) {
		return fmt.Errorf("input %d does not spend position %d", inputIndex, pos)
	}
	return nil
}

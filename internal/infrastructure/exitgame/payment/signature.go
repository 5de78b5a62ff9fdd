package payment

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var domainTypeHash = crypto.Keccak256Hash([]byte(
	"EIP712Domain(string name,string version,address verifyingContract,bytes32 salt)",
))

// DomainSeparator binds signatures to one deployment of the root chain contracts.
type DomainSeparator common.Hash

func NewDomainSeparator(
	name, version string, verifyingContract common.Address, salt common.Hash,
) DomainSeparator {
	return DomainSeparator(crypto.Keccak256Hash(
		domainTypeHash[:],
		crypto.Keccak256([]byte(name)),
		crypto.Keccak256([]byte(version)),
		common.LeftPadBytes(verifyingContract[:], 32),
		salt[:],
	))
}

// SigHash is the digest signed by the owners of the outputs spent by tx.
func (d DomainSeparator) SigHash(tx []byte) common.Hash {
	return crypto.Keccak256Hash([]byte("\x19\x01"), d[:], crypto.Keccak256(tx))
}

// Sign returns the 65 byte [R || S || V] signature of tx, with V in {27, 28}.
func (d DomainSeparator) Sign(tx []byte, key *ecdsa.PrivateKey) ([]byte, error) {
	sig, err := crypto.Sign(d.SigHash(tx).Bytes(), key)
	if err != nil {
		return nil, err
	}
	sig[crypto.RecoveryIDOffset] += 27
	return sig, nil
}

// Signer recovers the address that signed tx.
func (d DomainSeparator) Signer(tx, sig []byte) (common.Address, error) {
	if len(sig) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf(
			"invalid signature length, got %d want %d", len(sig), crypto.SignatureLength,
		)
	}

	normalized := common.CopyBytes(sig)
	if normalized[crypto.RecoveryIDOffset] >= 27 {
		normalized[crypto.RecoveryIDOffset] -= 27
	}
	r := new(big.Int).SetBytes(normalized[:32])
	s := new(big.Int).SetBytes(normalized[32:64])
	if !crypto.ValidateSignatureValues(normalized[crypto.RecoveryIDOffset], r, s, true) {
		return common.Address{}, fmt.Errorf("invalid signature values")
	}

	pubkey, err := crypto.SigToPub(d.SigHash(tx).Bytes(), normalized)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to recover signer: %s", err)
	}
	return crypto.PubkeyToAddress(*pubkey), nil
}

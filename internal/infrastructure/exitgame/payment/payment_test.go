package payment_test

import (
	"crypto/ecdsa"
	"testing"

	"github.com/childchain/exitd/internal/core/ports"
	"github.com/childchain/exitd/internal/infrastructure/exitgame/payment"
	"github.com/childchain/exitd/internal/infrastructure/exitgame/registry"
	"github.com/childchain/exitd/pkg/plasma-lib/transaction"
	"github.com/childchain/exitd/pkg/plasma-lib/utxo"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

var (
	domainSeparator = payment.NewDomainSeparator(
		"OMG Network", "1",
		common.HexToAddress("0xd17e1233a03affb9092d5109179b43d6a8828607"),
		common.HexToHash("0xfad5c7f626d80f9256ef01929f3beb96e058b8b4b0e3fe52d84f054c0e2a7a83"),
	)
	eth   = common.Address{}
	token = common.HexToAddress("0x0000000000000000000000000000000000000abc")
)

func newKey(t *testing.T) (*ecdsa.PrivateKey, common.Address) {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return key, crypto.PubkeyToAddress(key.PublicKey)
}

func newTx(
	t *testing.T, txType uint, inputs []utxo.Pos, outputs ...transaction.Output,
) []byte {
	t.Helper()
	ins := make([]transaction.Input, 0, len(inputs))
	for _, pos := range inputs {
		ins = append(ins, transaction.Input(pos.Bytes32()))
	}
	tx, err := transaction.New(txType, ins, outputs, common.Hash{})
	require.NoError(t, err)
	return tx.Bytes()
}

func output(guard, token common.Address, amount uint64) transaction.Output {
	return transaction.Output{Guard: guard, Token: token, Amount: uint256.NewInt(amount)}
}

func TestOwnerSpendingCondition(t *testing.T) {
	key, owner := newKey(t)
	otherKey, _ := newKey(t)
	pos := utxo.Encode(1000, 2, 0)
	other := utxo.Encode(2000, 0, 1)
	spendingTx := newTx(t, payment.TxType, []utxo.Pos{other, pos}, output(owner, eth, 1))
	condition := payment.NewOwnerSpendingCondition(domainSeparator)

	sig, err := domainSeparator.Sign(spendingTx, key)
	require.NoError(t, err)
	require.Len(t, sig, crypto.SignatureLength)

	t.Run("valid", func(t *testing.T) {
		ok, err := condition.Verify(owner, pos, common.Hash{}, spendingTx, 1, sig)
		require.NoError(t, err)
		require.True(t, ok)

		// recovery ids in {0, 1} are accepted too
		raw := common.CopyBytes(sig)
		raw[crypto.RecoveryIDOffset] -= 27
		ok, err = condition.Verify(owner, pos, common.Hash{}, spendingTx, 1, raw)
		require.NoError(t, err)
		require.True(t, ok)
	})

	t.Run("invalid", func(t *testing.T) {
		otherSig, err := domainSeparator.Sign(spendingTx, otherKey)
		require.NoError(t, err)
		ok, err := condition.Verify(owner, pos, common.Hash{}, spendingTx, 1, otherSig)
		require.NoError(t, err)
		require.False(t, ok)

		otherDomain := payment.NewDomainSeparator("OMG Network", "2", common.Address{}, common.Hash{})
		wrongDomainSig, err := otherDomain.Sign(spendingTx, key)
		require.NoError(t, err)
		ok, err = condition.Verify(owner, pos, common.Hash{}, spendingTx, 1, wrongDomainSig)
		require.NoError(t, err)
		require.False(t, ok)

		_, err = condition.Verify(owner, pos, common.Hash{}, spendingTx, 0, sig)
		require.Error(t, err)
		_, err = condition.Verify(owner, pos, common.Hash{}, spendingTx, 2, sig)
		require.Error(t, err)
		_, err = condition.Verify(owner, pos, common.Hash{}, spendingTx, 1, sig[:64])
		require.Error(t, err)
		_, err = condition.Verify(owner, pos, common.Hash{}, []byte{0x01}, 1, sig)
		require.Error(t, err)

		nonPayment := newTx(t, 2, []utxo.Pos{other, pos}, output(owner, eth, 1))
		nonPaymentSig, err := domainSeparator.Sign(nonPayment, key)
		require.NoError(t, err)
		_, err = condition.Verify(owner, pos, common.Hash{}, nonPayment, 1, nonPaymentSig)
		require.Error(t, err)
	})
}

func TestHashedOwner(t *testing.T) {
	key, owner := newKey(t)
	preImage := append(owner.Bytes(), []byte("salt")...)
	handler := payment.NewHashedOwnerGuardHandler()

	guard, err := handler.ComputeGuard(preImage)
	require.NoError(t, err)
	require.Equal(t, common.BytesToAddress(crypto.Keccak256(preImage)[12:]), guard)

	target, err := handler.ExitTarget(preImage)
	require.NoError(t, err)
	require.Equal(t, owner, target)

	_, err = handler.ComputeGuard([]byte("short"))
	require.Error(t, err)
	_, err = handler.ExitTarget(nil)
	require.Error(t, err)

	t.Run("spending_condition", func(t *testing.T) {
		pos := utxo.Encode(3000, 0, 1)
		spendingTx := newTx(t, payment.TxType, []utxo.Pos{pos}, output(owner, eth, 1))
		condition := payment.NewHashedOwnerSpendingCondition(domainSeparator, handler)

		sig, err := domainSeparator.Sign(spendingTx, key)
		require.NoError(t, err)
		witness := append(common.CopyBytes(sig), preImage...)

		ok, err := condition.Verify(guard, pos, common.Hash{}, spendingTx, 0, witness)
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = condition.Verify(owner, pos, common.Hash{}, spendingTx, 0, witness)
		require.NoError(t, err)
		require.False(t, ok)

		_, err = condition.Verify(guard, pos, common.Hash{}, spendingTx, 0, sig)
		require.Error(t, err)
		_, err = condition.Verify(guard, pos, common.Hash{}, spendingTx, 0, sig[:10])
		require.Error(t, err)
	})
}

func TestStateTransitionVerifier(t *testing.T) {
	_, owner := newKey(t)
	verifier := payment.NewStateTransitionVerifier()

	posA := utxo.Encode(1000, 0, 0)
	posB := utxo.Encode(2000, 1, 1)
	inputTxA := newTx(t, payment.TxType, []utxo.Pos{utxo.Encode(1, 0, 0)}, output(owner, eth, 10))
	inputTxB := newTx(
		t, payment.TxType, []utxo.Pos{utxo.Encode(2, 0, 0)},
		output(owner, eth, 100), output(owner, token, 7),
	)
	inputTxs := [][]byte{inputTxA, inputTxB}
	positions := []utxo.Pos{posA, posB}

	fixtures := []struct {
		name     string
		txType   uint
		outputs  []transaction.Output
		expected bool
	}{
		{"exact", payment.TxType, []transaction.Output{output(owner, eth, 10), output(owner, token, 7)}, true},
		{"with_fee", payment.TxType, []transaction.Output{output(owner, token, 5)}, true},
		{"overspend", payment.TxType, []transaction.Output{output(owner, token, 8)}, false},
		{"unknown_token", payment.TxType, []transaction.Output{output(owner, eth, 11)}, false},
		{"foreign_token", payment.TxType, []transaction.Output{output(owner, common.HexToAddress("0x01"), 1)}, false},
		{"wrong_tx_type", 2, []transaction.Output{output(owner, token, 1)}, false},
	}
	for _, f := range fixtures {
		t.Run(f.name, func(t *testing.T) {
			tx := newTx(t, f.txType, positions, f.outputs...)
			require.Equal(t, f.expected, verifier.IsValid(tx, inputTxs, positions))
		})
	}

	t.Run("malformed", func(t *testing.T) {
		tx := newTx(t, payment.TxType, positions, output(owner, token, 1))
		require.False(t, verifier.IsValid([]byte{0x01}, inputTxs, positions))
		require.False(t, verifier.IsValid(tx, [][]byte{inputTxA}, positions))
		require.False(t, verifier.IsValid(tx, [][]byte{inputTxA, {0x01}}, positions))
		require.False(t, verifier.IsValid(tx, inputTxs, []utxo.Pos{posA, utxo.Encode(2000, 1, 9)}))
	})

	t.Run("overflow", func(t *testing.T) {
		huge := transaction.Output{Guard: owner, Token: eth, Amount: new(uint256.Int).SetAllOne()}
		a := newTx(t, payment.TxType, []utxo.Pos{utxo.Encode(1, 0, 0)}, huge)
		b := newTx(t, payment.TxType, []utxo.Pos{utxo.Encode(2, 0, 0)}, huge)
		tx := newTx(t, payment.TxType, []utxo.Pos{posA, utxo.Encode(2000, 0, 0)}, output(owner, eth, 1))
		require.False(t, verifier.IsValid(tx, [][]byte{a, b}, []utxo.Pos{posA, utxo.Encode(2000, 0, 0)}))
	})
}

func TestRegister(t *testing.T) {
	reg := registry.New()
	require.NoError(t, payment.Register(reg, domainSeparator))

	_, ok := reg.SpendingCondition(payment.OutputTypeOwner, payment.TxType)
	require.True(t, ok)
	_, ok = reg.SpendingCondition(payment.OutputTypeHashedOwner, payment.TxType)
	require.True(t, ok)
	_, ok = reg.OutputGuardHandler(payment.OutputTypeHashedOwner)
	require.True(t, ok)
	_, ok = reg.OutputGuardHandler(ports.DefaultOutputType)
	require.False(t, ok)

	require.Error(t, payment.Register(reg, domainSeparator))
}

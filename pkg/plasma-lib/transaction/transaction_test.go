package transaction_test

import (
	"testing"

	"github.com/childchain/exitd/pkg/plasma-lib/transaction"
	"github.com/childchain/exitd/pkg/plasma-lib/utxo"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

var (
	owner = common.HexToAddress("0x1c2a0ee8f4c03a53b46b9c5b4c6e8d1e9a8b4f21")
	token = common.HexToAddress("0x0000000000000000000000000000000000000000")
)

func TestTransaction(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		inputs := []transaction.Input{
			transaction.Input(utxo.Encode(1000, 0, 0).Bytes32()),
			transaction.Input(utxo.Encode(2000, 3, 1).Bytes32()),
		}
		outputs := []transaction.Output{
			{OutputType: 0, Guard: owner, Token: token, Amount: uint256.NewInt(10)},
			{OutputType: 1, Guard: owner, Token: token, Amount: uint256.NewInt(5)},
		}
		tx, err := transaction.New(1, inputs, outputs, common.Hash{})
		require.NoError(t, err)

		raw := tx.Bytes()
		require.NotEmpty(t, raw)
		require.Equal(t, crypto.Keccak256Hash(raw), tx.Hash())

		decoded, err := transaction.Decode(raw)
		require.NoError(t, err)
		require.Equal(t, uint(1), decoded.TxType)
		require.Equal(t, inputs, decoded.Inputs)
		require.Len(t, decoded.Outputs, 2)
		require.Equal(t, tx.Hash(), decoded.Hash())

		out, err := decoded.Output(1)
		require.NoError(t, err)
		require.Equal(t, uint(1), out.OutputType)
		require.Equal(t, owner, out.Guard)
		require.Equal(t, uint64(5), out.Amount.Uint64())

		_, err = decoded.Output(2)
		require.Error(t, err)
	})

	t.Run("deposit", func(t *testing.T) {
		outputs := []transaction.Output{
			{Guard: owner, Token: token, Amount: uint256.NewInt(100)},
		}
		tx, err := transaction.New(1, nil, outputs, common.Hash{})
		require.NoError(t, err)
		require.True(t, tx.IsDeposit())

		raw, err := rlp.EncodeToBytes([]any{
			uint(1), [][32]byte{},
			[]any{[]any{uint(0), owner, token, uint(100)}},
			uint(0), common.Hash{},
		})
		require.NoError(t, err)
		require.Equal(t, tx.Bytes(), raw)

		decoded, err := transaction.Decode(raw)
		require.NoError(t, err)
		require.True(t, decoded.IsDeposit())
		require.Empty(t, decoded.Inputs)

		out, err := decoded.Output(0)
		require.NoError(t, err)
		require.Equal(t, owner, out.Guard)
		require.Equal(t, uint64(100), out.Amount.Uint64())
	})

	t.Run("invalid", func(t *testing.T) {
		in := transaction.Input(utxo.Encode(1000, 0, 0).Bytes32())
		out := transaction.Output{Guard: owner, Token: token, Amount: uint256.NewInt(1)}

		fixtures := []struct {
			name          string
			inputs        []transaction.Input
			outputs       []transaction.Output
			expectedError string
		}{
			{
				"too_many_inputs",
				[]transaction.Input{in, in, in, in, in},
				[]transaction.Output{out},
				"too many inputs",
			},
			{"no_outputs", []transaction.Input{in}, nil, "missing outputs"},
			{
				"too_many_outputs",
				[]transaction.Input{in},
				[]transaction.Output{out, out, out, out, out},
				"too many outputs",
			},
			{
				"null_output",
				[]transaction.Input{in},
				[]transaction.Output{{Amount: uint256.NewInt(0)}},
				"output 0 is null",
			},
		}
		for _, f := range fixtures {
			t.Run(f.name, func(t *testing.T) {
				tx, err := transaction.New(1, f.inputs, f.outputs, common.Hash{})
				require.Error(t, err)
				require.Contains(t, err.Error(), f.expectedError)
				require.Nil(t, tx)
			})
		}
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := transaction.Decode(nil)
		require.Error(t, err)

		_, err = transaction.Decode([]byte{0xde, 0xad, 0xbe, 0xef})
		require.Error(t, err)

		notATx, err := rlp.EncodeToBytes([]uint{1, 2, 3})
		require.NoError(t, err)
		_, err = transaction.Decode(notATx)
		require.Error(t, err)

		in := transaction.Input(utxo.Encode(1000, 0, 0).Bytes32())
		out := transaction.Output{Guard: owner, Token: token, Amount: uint256.NewInt(1)}
		tx, err := transaction.New(1, []transaction.Input{in}, []transaction.Output{out}, common.Hash{})
		require.NoError(t, err)
		_, err = transaction.Decode(append(tx.Bytes(), 0x01))
		require.Error(t, err)
	})
}

package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	grpccodes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// generateErrorFixtures creates test fixtures with sample metadata for each error type
func generateErrorFixtures() []Error {
	return []Error{
		// INTERNAL_ERROR
		INTERNAL_ERROR.New("Internal server error occurred").
			WithMetadata(map[string]any{
				"component": "database",
				"operation": "insert",
			}),

		// MALFORMED_TX
		MALFORMED_TX.New("failed to decode in-flight tx").
			WithMetadata(TxMetadata{Tx: "f8c401e1a0000000000000000000000000000000000000000000000000000003b9aca000"}),

		// INVALID_UTXO_POSITION
		INVALID_UTXO_POSITION.New("output index out of range").
			WithMetadata(UtxoPosMetadata{InputIndex: 1, UtxoPos: 1_000_010_000}),

		// INPUT_COUNT_MISMATCH
		INPUT_COUNT_MISMATCH.New("number of inclusion proofs does not match number of inputs").
			WithMetadata(InputCountMismatchMetadata{Field: "inclusion_proofs", Expected: 2, Got: 1}),

		// DUPLICATE_INPUT
		DUPLICATE_INPUT.New("input spent more than once").
			WithMetadata(DuplicateInputMetadata{
				Input:       "000000000000000000000000000000000000000000000000000000003b9aca00",
				FirstIndex:  0,
				SecondIndex: 1,
			}),

		// EXIT_ALREADY_ACTIVE
		EXIT_ALREADY_ACTIVE.New("there is an active in-flight exit from this transaction").
			WithMetadata(ExitMetadata{ExitId: "00000000000000000000000000800000003f5a11"}),

		// EXIT_ALREADY_FINALIZED
		EXIT_ALREADY_FINALIZED.New("in-flight exit already finalized").
			WithMetadata(ExitMetadata{ExitId: "00000000000000000000000000800000003f5a11"}),

		// NOT_INCLUDED_IN_LEDGER
		NOT_INCLUDED_IN_LEDGER.New("input tx is not included in plasma").
			WithMetadata(InclusionMetadata{InputIndex: 0, BlockNum: 1000, TxIndex: 3}),

		// GUARD_MISMATCH
		GUARD_MISMATCH.New("output guard pre-image does not match").
			WithMetadata(GuardMismatchMetadata{
				InputIndex:    0,
				ExpectedGuard: "0x1c2a0ee8f4c03a53b46b9c5b4c6e8d1e9a8b4f21",
				GotGuard:      "0x0000000000000000000000000000000000000001",
			}),

		// NO_SPENDING_CONDITION
		NO_SPENDING_CONDITION.New("spending condition not found").
			WithMetadata(OutputTypeMetadata{InputIndex: 0, OutputType: 7, TxType: 1}),

		// SPENDING_CONDITION_FAILED
		SPENDING_CONDITION_FAILED.New("spending condition failed").
			WithMetadata(InputMetadata{InputIndex: 1}),

		// INVALID_STATE_TRANSITION
		INVALID_STATE_TRANSITION.New("invalid state transition").
			WithMetadata(TxMetadata{Tx: "f8c401"}),

		// NO_GUARD_PARSER
		NO_GUARD_PARSER.New("output guard handler not found").
			WithMetadata(OutputTypeMetadata{InputIndex: 0, OutputType: 9}),

		// EXIT_NOT_FOUND
		EXIT_NOT_FOUND.New("in-flight exit not found").
			WithMetadata(ExitMetadata{ExitId: "00000000000000000000000000800000003f5a11"}),

		// INVALID_BLOCK
		INVALID_BLOCK.New("block already submitted").
			WithMetadata(BlockMetadata{BlockNum: 1000}),
	}
}

func TestErrorGRPCStatus(t *testing.T) {
	fixtures := generateErrorFixtures()

	for _, err := range fixtures {
		require.NotNil(t, err)
		require.NotEmpty(t, err.Error())

		st := status.Convert(err)
		require.NotNil(t, st)
		require.Equal(t, err.GrpcCode(), st.Code())
		require.Equal(t, err.Error(), st.Message())
	}
}

func TestErrorMetadata(t *testing.T) {
	err := INPUT_COUNT_MISMATCH.New("mismatch").
		WithMetadata(InputCountMismatchMetadata{Field: "witnesses", Expected: 2, Got: 3})

	md := err.Metadata()
	require.Equal(t, "witnesses", md["field"])
	require.Equal(t, "2", md["expected"])
	require.Equal(t, "3", md["got"])
	require.Equal(t, "INPUT_COUNT_MISMATCH", err.CodeName())
	require.Equal(t, uint16(3), err.Code())
	require.Equal(t, "INPUT_COUNT_MISMATCH", err.Log().Data["name"])
}

func TestCodeIs(t *testing.T) {
	err := EXIT_ALREADY_ACTIVE.New("exit exists")

	require.True(t, EXIT_ALREADY_ACTIVE.Is(err))
	require.False(t, EXIT_ALREADY_FINALIZED.Is(err))
	require.True(t, EXIT_ALREADY_ACTIVE.Is(fmt.Errorf("wrapped: %w", err)))
	require.False(t, EXIT_ALREADY_ACTIVE.Is(nil))
	require.False(t, EXIT_ALREADY_ACTIVE.Is(fmt.Errorf("plain")))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := fmt.Errorf("badger: key exists")
	err := INTERNAL_ERROR.Wrap(cause)

	require.ErrorIs(t, err, cause)
	require.Equal(t, grpccodes.Internal, status.Code(err))
	require.Contains(t, err.Error(), "INTERNAL_ERROR (0): badger: key exists")
}

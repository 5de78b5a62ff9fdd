package registry_test

import (
	"testing"

	"github.com/childchain/exitd/internal/core/ports"
	"github.com/childchain/exitd/internal/infrastructure/exitgame/registry"
	"github.com/childchain/exitd/pkg/plasma-lib/utxo"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

type stubCondition struct{}

func (stubCondition) Verify(
	common.Address, utxo.Pos, common.Hash, []byte, uint16, []byte,
) (bool, error) {
	return true, nil
}

type stubHandler struct{}

func (stubHandler) ComputeGuard([]byte) (common.Address, error) { return common.Address{}, nil }
func (stubHandler) ExitTarget([]byte) (common.Address, error)   { return common.Address{}, nil }

func TestRegistry(t *testing.T) {
	var _ ports.SpendingConditionRegistry = registry.New()
	var _ ports.OutputGuardRegistry = registry.New()

	t.Run("spending_conditions", func(t *testing.T) {
		reg := registry.New()

		_, ok := reg.SpendingCondition(0, 1)
		require.False(t, ok)

		require.NoError(t, reg.RegisterSpendingCondition(0, 1, stubCondition{}))
		require.NoError(t, reg.RegisterSpendingCondition(1, 1, stubCondition{}))

		condition, ok := reg.SpendingCondition(0, 1)
		require.True(t, ok)
		require.NotNil(t, condition)

		_, ok = reg.SpendingCondition(0, 2)
		require.False(t, ok)

		require.Error(t, reg.RegisterSpendingCondition(0, 1, stubCondition{}))
		require.Error(t, reg.RegisterSpendingCondition(0, 0, stubCondition{}))
		require.Error(t, reg.RegisterSpendingCondition(2, 1, nil))
	})

	t.Run("output_guard_handlers", func(t *testing.T) {
		reg := registry.New()

		_, ok := reg.OutputGuardHandler(1)
		require.False(t, ok)

		require.NoError(t, reg.RegisterOutputGuardHandler(1, stubHandler{}))
		handler, ok := reg.OutputGuardHandler(1)
		require.True(t, ok)
		require.NotNil(t, handler)

		require.Error(t, reg.RegisterOutputGuardHandler(1, stubHandler{}))
		require.Error(t, reg.RegisterOutputGuardHandler(ports.DefaultOutputType, stubHandler{}))
		require.Error(t, reg.RegisterOutputGuardHandler(2, nil))
	})
}

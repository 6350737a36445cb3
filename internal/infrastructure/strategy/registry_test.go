package strategy

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/erp/costing/internal/domain/shared"
	"github.com/erp/costing/internal/domain/shared/strategy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockCostStrategy struct {
	strategy.BaseStrategy
	method strategy.CostMethod
}

func newMockCostStrategy(method strategy.CostMethod) *mockCostStrategy {
	return &mockCostStrategy{
		BaseStrategy: strategy.NewBaseStrategy(string(method), strategy.StrategyTypeCost, "Mock cost strategy"),
		method:       method,
	}
}

func (s *mockCostStrategy) Method() strategy.CostMethod {
	return s.method
}

func (s *mockCostStrategy) Allocate(_ context.Context, _ strategy.CostContext, _ strategy.BatchSource) (*strategy.CostAllocation, error) {
	return &strategy.CostAllocation{Method: s.method}, nil
}

func TestCostStrategyRegistry_Register(t *testing.T) {
	r := NewCostStrategyRegistry()

	require.NoError(t, r.Register(newMockCostStrategy(strategy.CostMethodFIFO)))

	err := r.Register(newMockCostStrategy(strategy.CostMethodFIFO))
	assert.True(t, errors.Is(err, shared.ErrAlreadyExists))

	err = r.Register(newMockCostStrategy("moving_average"))
	assert.True(t, errors.Is(err, strategy.ErrInvalidCostMethod))
}

func TestCostStrategyRegistry_Get(t *testing.T) {
	r := NewCostStrategyRegistry()
	require.NoError(t, r.Register(newMockCostStrategy(strategy.CostMethodLIFO)))

	s, err := r.Get(strategy.CostMethodLIFO)
	require.NoError(t, err)
	assert.Equal(t, strategy.CostMethodLIFO, s.Method())

	_, err = r.Get(strategy.CostMethodFIFO)
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}

func TestNewRegistryWithDefaults(t *testing.T) {
	r, err := NewRegistryWithDefaults()
	require.NoError(t, err)

	assert.Equal(t, strategy.AllCostMethods(), r.Methods())

	tests := []struct {
		input    strategy.CostMethod
		expected strategy.CostMethod
	}{
		{strategy.CostMethodFIFO, strategy.CostMethodFIFO},
		{strategy.CostMethodLIFO, strategy.CostMethodLIFO},
		{strategy.CostMethodWeightedAverage, strategy.CostMethodWeightedAverage},
		{strategy.CostMethodStandard, strategy.CostMethodStandard},
		{"", strategy.CostMethodWeightedAverage},
		{"specific", strategy.CostMethodWeightedAverage},
	}
	for _, tt := range tests {
		t.Run(string(tt.input), func(t *testing.T) {
			s, err := r.Resolve(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, s.Method())
		})
	}
}

func TestCostStrategyRegistry_ResolveWithoutDefault(t *testing.T) {
	r := NewCostStrategyRegistry()
	require.NoError(t, r.Register(newMockCostStrategy(strategy.CostMethodFIFO)))

	_, err := r.Resolve("unknown")
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}

func TestCostStrategyRegistry_ConcurrentAccess(t *testing.T) {
	r, err := NewRegistryWithDefaults()
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, m := range strategy.AllCostMethods() {
				s, err := r.Resolve(m)
				assert.NoError(t, err)
				assert.Equal(t, m, s.Method())
			}
		}()
	}
	wg.Wait()
}

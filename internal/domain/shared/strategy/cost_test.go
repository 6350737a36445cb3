package strategy

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCostMethod(t *testing.T) {
	tests := []struct {
		input    string
		expected CostMethod
		wantErr  bool
	}{
		{"fifo", CostMethodFIFO, false},
		{"LIFO", CostMethodLIFO, false},
		{" weighted_average ", CostMethodWeightedAverage, false},
		{"standard", CostMethodStandard, false},
		{"moving_average", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			method, err := ParseCostMethod(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidCostMethod))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, method)
		})
	}
}

func TestResolveCostMethod_FallsBackToWeightedAverage(t *testing.T) {
	assert.Equal(t, CostMethodFIFO, ResolveCostMethod("fifo"))
	assert.Equal(t, CostMethodWeightedAverage, ResolveCostMethod(""))
	assert.Equal(t, CostMethodWeightedAverage, ResolveCostMethod("specific"))
}

func TestCostMethod_UsesBatches(t *testing.T) {
	assert.True(t, CostMethodFIFO.UsesBatches())
	assert.True(t, CostMethodLIFO.UsesBatches())
	assert.False(t, CostMethodWeightedAverage.UsesBatches())
	assert.False(t, CostMethodStandard.UsesBatches())
}

func TestCostAllocation_LineCostTotal(t *testing.T) {
	alloc := &CostAllocation{
		Shortfall: decimal.NewFromInt(2),
		BatchesUsed: []BatchUsage{
			{LineCost: decimal.NewFromInt(50)},
			{LineCost: decimal.RequireFromString("40.125")},
		},
	}

	assert.True(t, alloc.HasShortfall())
	assert.True(t, decimal.RequireFromString("90.125").Equal(alloc.LineCostTotal()))
}

func TestCostContext_UnitCostPrecision(t *testing.T) {
	assert.Equal(t, DefaultUnitCostPrecision, CostContext{}.UnitCostPrecision())
	assert.Equal(t, int32(4), CostContext{Precision: 4}.UnitCostPrecision())
}

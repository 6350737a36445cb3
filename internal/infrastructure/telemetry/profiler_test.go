package telemetry

import (
	"context"
	"runtime/pprof"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestNewProfiler_Disabled(t *testing.T) {
	p, err := NewProfiler(ProfilerConfig{}, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.False(t, p.IsEnabled())
	assert.NoError(t, p.Stop())
	assert.NoError(t, p.Stop())
}

func TestNewProfiler_Validation(t *testing.T) {
	_, err := NewProfiler(ProfilerConfig{Enabled: true, ApplicationName: "costing"}, zaptest.NewLogger(t))
	assert.ErrorContains(t, err, "server address")

	_, err = NewProfiler(ProfilerConfig{Enabled: true, ServerAddress: "http://localhost:4040"}, zaptest.NewLogger(t))
	assert.ErrorContains(t, err, "application name")
}

func TestProfiler_NilIsNoop(t *testing.T) {
	var p *Profiler
	assert.False(t, p.IsEnabled())
	assert.NoError(t, p.Stop())
}

func TestWithProfilingLabels(t *testing.T) {
	var operation, method string
	var hasRequestID bool
	WithProfilingLabels(context.Background(), map[string]string{
		"Operation":   "costing.commit",
		"cost-method": "fifo",
		"request_id":  "req-1",
	}, func(ctx context.Context) {
		operation, _ = pprof.Label(ctx, ProfilingLabelOperation)
		method, _ = pprof.Label(ctx, ProfilingLabelCostMethod)
		_, hasRequestID = pprof.Label(ctx, "request_id")
	})

	assert.Equal(t, "costing.commit", operation)
	assert.Equal(t, "fifo", method)
	assert.False(t, hasRequestID)
}

func TestWithProfilingLabels_EmptyRunsDirectly(t *testing.T) {
	called := false
	WithProfilingLabels(context.Background(), nil, func(context.Context) { called = true })
	assert.True(t, called)
}

func TestSanitizeLabels(t *testing.T) {
	pairs := sanitizeLabels(map[string]string{
		"route":     "/api/v1/costing/commits",
		"empty":     "",
		"trace_id":  "abc",
		"Tenant ID": strings.Repeat("x", 200),
	})

	require.Len(t, pairs, 4)
	assert.Equal(t, "route", pairs[0])
	assert.Equal(t, "tenant_id", pairs[2])
	assert.Len(t, pairs[3], maxLabelValueLength)
}

func TestSanitizeLabelKey(t *testing.T) {
	assert.Equal(t, "cost_method", sanitizeLabelKey("Cost-Method"))
	assert.Equal(t, "a_b", sanitizeLabelKey("a b!"))
	assert.Empty(t, sanitizeLabelKey("!!"))
}

func TestOperationLabels(t *testing.T) {
	labels := OperationLabels("costing.valuate", "lifo")
	assert.Equal(t, "costing.valuate", labels[ProfilingLabelOperation])
	assert.Equal(t, "lifo", labels[ProfilingLabelCostMethod])
}

package xmetrics

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestRegisterCounters(t *testing.T) {
	env := newTestEnv(t)
	var issued atomic.Int64

	reg, err := RegisterCounters(env.meter, []Attr{String("engine", "snowflake")},
		CounterSpec{Name: "xsnow.generator.issued", Description: "ids issued", Read: issued.Load},
		CounterSpec{Name: "xsnow.generator.rollbacks", Read: func() int64 { return 2 }},
	)
	require.NoError(t, err)

	issued.Add(5)
	metrics := env.collect(t)

	sum, ok := metrics["xsnow.generator.issued"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.True(t, sum.IsMonotonic)
	assert.Equal(t, int64(5), sum.DataPoints[0].Value)
	assert.Equal(t, "snowflake", attrValue(sum.DataPoints[0].Attributes, "engine"))

	rb := metrics["xsnow.generator.rollbacks"].Data.(metricdata.Sum[int64])
	assert.Equal(t, int64(2), rb.DataPoints[0].Value)

	require.NoError(t, reg.Unregister())
	if m, ok := env.collect(t)["xsnow.generator.issued"]; ok {
		s, _ := m.Data.(metricdata.Sum[int64])
		assert.Empty(t, s.DataPoints, "注销后不再观测")
	}
}

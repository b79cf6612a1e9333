package otel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestDisabledProviderIsNoop(t *testing.T) {
	p := New(Config{Enabled: false, ServiceName: "mapbuilder"})

	assert.False(t, p.Enabled())
	assert.Equal(t, "mapbuilder", p.ServiceName())
	assert.IsType(t, noop.Meter{}, p.Meter("test"))
}

func TestPackageMeterCountersWork(t *testing.T) {
	New(Config{})

	c, err := Meter("history").Int64Counter("test.counter")
	require.NoError(t, err)
	assert.NotPanics(t, func() { c.Add(context.Background(), 1) })
}

func TestEnabledProvider(t *testing.T) {
	p := New(Config{Enabled: true, ServiceName: "svc"})

	assert.True(t, p.Enabled())
	assert.NotNil(t, p.Meter("test"))
}

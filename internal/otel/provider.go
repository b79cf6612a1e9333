// Package otel hands out meters for the editor's counters.
// Without an installed SDK the global provider is a no-op.
package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const instrumentationPrefix = "github.com/tdmap/mapbuilder/internal/"

// Config holds OTel configuration
type Config struct {
	Enabled     bool
	ServiceName string
}

// Provider selects between the global meter provider and a no-op one.
type Provider struct {
	config Config
}

// New creates a provider. When disabled the global meter provider is
// replaced with a no-op so counters created later cost nothing.
func New(cfg Config) *Provider {
	if !cfg.Enabled {
		otel.SetMeterProvider(noop.NewMeterProvider())
	}
	return &Provider{config: cfg}
}

// Meter returns a meter with the given name for creating metrics.
func (p *Provider) Meter(name string) metric.Meter {
	if !p.config.Enabled {
		return noop.Meter{}
	}
	return otel.Meter(name)
}

// Enabled returns whether OTel is enabled
func (p *Provider) Enabled() bool {
	return p.config.Enabled
}

// ServiceName returns the configured service name
func (p *Provider) ServiceName() string {
	return p.config.ServiceName
}

// Meter returns the global meter for an internal package.
func Meter(pkg string) metric.Meter {
	return otel.Meter(instrumentationPrefix + pkg)
}

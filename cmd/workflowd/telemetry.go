package main

import (
	"context"
	"fmt"

	"github.com/kbukum/flowengine/component"
	"github.com/kbukum/flowengine/observability"
)

// telemetry owns the OTLP tracer and meter providers.
type telemetry struct {
	cfg       observability.ExportConfig
	providers *observability.Providers
}

func newTelemetry(cfg *Config) *telemetry {
	ec := observability.DefaultExportConfig(cfg.Name)
	ec.ServiceVersion = cfg.Version
	ec.Environment = cfg.Environment
	ec.Endpoint = cfg.Tracing.Endpoint
	ec.Insecure = cfg.Tracing.Insecure
	ec.SampleRate = cfg.Tracing.SampleRate
	ec.MetricInterval = cfg.Tracing.MetricInterval
	return &telemetry{cfg: ec}
}

func (t *telemetry) Name() string { return "telemetry" }

func (t *telemetry) Start(ctx context.Context) error {
	p, err := observability.Setup(ctx, t.cfg)
	if err != nil {
		return err
	}
	t.providers = p
	return nil
}

// Stop flushes pending spans and metrics.
func (t *telemetry) Stop(ctx context.Context) error {
	return t.providers.Shutdown(ctx)
}

func (t *telemetry) Health(context.Context) component.Health {
	if t.providers == nil {
		return component.Health{Name: t.Name(), Status: component.StatusUnhealthy, Message: "not started"}
	}
	return component.Health{Name: t.Name(), Status: component.StatusHealthy}
}

func (t *telemetry) Describe() component.Description {
	return component.Description{
		Name:    "OpenTelemetry",
		Type:    "otlp",
		Details: fmt.Sprintf("endpoint=%s sample=%.2f", t.cfg.Endpoint, t.cfg.SampleRate),
	}
}

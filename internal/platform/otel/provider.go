// Package otel wires OpenTelemetry tracing for the campuswalk commands.
package otel

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/louisbranch/campuswalk/internal/platform/config"
)

// Settings controls trace export.
type Settings struct {
	Enabled  bool    `env:"CAMPUSWALK_OTEL_ENABLED" envDefault:"true"`
	Endpoint string  `env:"CAMPUSWALK_OTEL_ENDPOINT"`
	Ratio    float64 `env:"CAMPUSWALK_OTEL_SAMPLE_RATIO" envDefault:"1"`
}

// LoadSettings reads Settings from the environment.
func LoadSettings() (Settings, error) {
	var s Settings
	if err := config.ParseEnv(&s); err != nil {
		return Settings{}, err
	}
	s.Endpoint = strings.TrimSpace(s.Endpoint)
	if s.Ratio < 0 || s.Ratio > 1 {
		return Settings{}, fmt.Errorf("otel sample ratio %v out of range [0, 1]", s.Ratio)
	}
	return s, nil
}

// Active reports whether spans are exported.
func (s Settings) Active() bool {
	return s.Enabled && s.Endpoint != ""
}

// Setup initialises tracing for serviceName from the environment.
//
// Tracing is opt-in: without CAMPUSWALK_OTEL_ENDPOINT, or with
// CAMPUSWALK_OTEL_ENABLED=false, Setup returns a no-op shutdown and leaves
// the global provider alone.
func Setup(ctx context.Context, serviceName string) (shutdown func(context.Context) error, err error) {
	s, err := LoadSettings()
	if err != nil {
		return noop, err
	}
	return SetupWith(ctx, serviceName, s)
}

// SetupWith is Setup with explicit settings. The returned shutdown flushes
// pending spans.
func SetupWith(ctx context.Context, serviceName string, s Settings) (func(context.Context) error, error) {
	if !s.Active() {
		return noop, nil
	}

	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(s.Endpoint))
	if err != nil {
		return noop, fmt.Errorf("otel exporter: %w", err)
	}

	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(serviceName)))
	if err != nil {
		return noop, fmt.Errorf("otel resource: %w", err)
	}

	sampler := sdktrace.AlwaysSample()
	if s.Ratio < 1 {
		sampler = sdktrace.ParentBased(sdktrace.TraceIDRatioBased(s.Ratio))
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return tp.Shutdown, nil
}

func noop(context.Context) error { return nil }

package otel_test

import (
	"context"
	"testing"

	"github.com/louisbranch/campuswalk/internal/platform/otel"
)

func TestLoadSettingsDefaults(t *testing.T) {
	t.Setenv("CAMPUSWALK_OTEL_ENDPOINT", "")
	t.Setenv("CAMPUSWALK_OTEL_ENABLED", "")
	t.Setenv("CAMPUSWALK_OTEL_SAMPLE_RATIO", "")

	s, err := otel.LoadSettings()
	if err != nil {
		t.Fatalf("load settings: %v", err)
	}
	if !s.Enabled || s.Ratio != 1 || s.Active() {
		t.Fatalf("settings = %+v, want enabled, ratio 1, inactive", s)
	}
}

func TestLoadSettingsRejectsRatio(t *testing.T) {
	t.Setenv("CAMPUSWALK_OTEL_SAMPLE_RATIO", "1.5")

	if _, err := otel.LoadSettings(); err == nil {
		t.Fatal("expected ratio error")
	}
}

func TestSetupNoopWithoutEndpoint(t *testing.T) {
	t.Setenv("CAMPUSWALK_OTEL_ENDPOINT", "")
	t.Setenv("CAMPUSWALK_OTEL_ENABLED", "")

	shutdown, err := otel.Setup(context.Background(), "walkthrough")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := shutdown(ctx); err != nil {
		t.Fatalf("noop shutdown: %v", err)
	}
}

func TestSetupNoopWhenDisabled(t *testing.T) {
	t.Setenv("CAMPUSWALK_OTEL_ENDPOINT", "http://localhost:4318")
	t.Setenv("CAMPUSWALK_OTEL_ENABLED", "false")

	shutdown, err := otel.Setup(context.Background(), "walkthrough")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestSetupWithEndpoint(t *testing.T) {
	// Non-routable address; nothing is exported before shutdown.
	s := otel.Settings{Enabled: true, Endpoint: "http://192.0.2.1:4318", Ratio: 0.5}

	shutdown, err := otel.SetupWith(context.Background(), "seed", s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

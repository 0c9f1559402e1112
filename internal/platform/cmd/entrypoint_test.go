package cmd

import (
	"context"
	"errors"
	"flag"
	"testing"
)

type testConfig struct {
	Script string `env:"CAMPUSWALK_CMD_TEST_SCRIPT" envDefault:"tour.lua"`
	Locale string `env:"CAMPUSWALK_CMD_TEST_LOCALE" envDefault:"en"`
}

func TestParseConfigReadsEnvAndFlags(t *testing.T) {
	t.Setenv("CAMPUSWALK_CMD_TEST_SCRIPT", "env.lua")
	t.Setenv("CAMPUSWALK_CMD_TEST_LOCALE", "pt-BR")

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg := testConfig{}
	if err := ParseConfig(&cfg); err != nil {
		t.Fatalf("load config defaults: %v", err)
	}
	fs.StringVar(&cfg.Script, "script", cfg.Script, "script")
	fs.StringVar(&cfg.Locale, "locale", cfg.Locale, "locale")

	if err := ParseArgs(fs, []string{"-script", "flag.lua"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	if cfg.Script != "flag.lua" {
		t.Fatalf("expected flag value for script, got %q", cfg.Script)
	}
	if cfg.Locale != "pt-BR" {
		t.Fatalf("expected env locale, got %q", cfg.Locale)
	}
}

func TestParseConfigRejectsNilTarget(t *testing.T) {
	if err := ParseConfig[testConfig](nil); err == nil {
		t.Fatal("expected nil target error")
	}
}

func TestParseArgsRejectsNilParser(t *testing.T) {
	if err := ParseArgs(nil, []string{}); err == nil {
		t.Fatal("expected parse args to reject nil parser")
	}
}

func TestRunWithTelemetryRejectsMissingInputs(t *testing.T) {
	if err := RunWithTelemetry(context.Background(), "", func(context.Context) error { return nil }); err == nil {
		t.Fatal("expected missing service error")
	}
	if err := RunWithTelemetry(context.Background(), ServiceWalkthrough, nil); err == nil {
		t.Fatal("expected missing run function error")
	}
}

func TestRunWithTelemetryReturnsRunError(t *testing.T) {
	t.Setenv("CAMPUSWALK_OTEL_ENDPOINT", "")
	want := errors.New("boom")

	err := RunWithTelemetry(context.Background(), ServiceSeed, func(context.Context) error { return want })
	if !errors.Is(err, want) {
		t.Fatalf("run error = %v, want %v", err, want)
	}
}

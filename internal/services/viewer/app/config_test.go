package app

import (
	"errors"
	"reflect"
	"testing"

	"github.com/louisbranch/campuswalk/internal/services/viewer/domain/camera"
)

func TestLoadConfigDefaultsMatchDefaultConfig(t *testing.T) {
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if !reflect.DeepEqual(cfg, DefaultConfig()) {
		t.Fatalf("env defaults = %+v, want %+v", cfg, DefaultConfig())
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("CAMPUSWALK_MOVE_SPEED", "1.5")
	t.Setenv("CAMPUSWALK_LOCOMOTION_MODE", "strafe")
	t.Setenv("CAMPUSWALK_RIG_ORDER", "overhead,follow")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.MoveSpeed != 1.5 {
		t.Fatalf("move speed = %v, want 1.5", cfg.MoveSpeed)
	}
	rigs, err := cfg.RigConfigs()
	if err != nil {
		t.Fatalf("rig configs: %v", err)
	}
	if len(rigs) != 2 || rigs[0].ID != camera.Overhead || rigs[1].ID != camera.Follow {
		t.Fatalf("rigs = %+v, want overhead then follow", rigs)
	}
	locomotionCfg, err := cfg.Locomotion()
	if err != nil {
		t.Fatalf("locomotion: %v", err)
	}
	if locomotionCfg.Mode != "strafe" {
		t.Fatalf("mode = %q, want strafe", locomotionCfg.Mode)
	}
}

func TestLoadConfigRejectsBadNumber(t *testing.T) {
	t.Setenv("CAMPUSWALK_TIMELINE_MIN", "next year")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestRigConfigsUseCampusProjections(t *testing.T) {
	rigs, err := DefaultConfig().RigConfigs()
	if err != nil {
		t.Fatalf("rig configs: %v", err)
	}
	want := map[camera.RigID]camera.Projection{
		camera.Follow:   {FOV: 105, Aspect: 1280.0 / 720.0, Near: 0.1, Far: 1000},
		camera.Overhead: {FOV: 90, Aspect: 1280.0 / 720.0, Near: 0.01, Far: 1000},
		camera.Free:     {FOV: 75, Aspect: 1280.0 / 720.0, Near: 0.1, Far: 1000},
	}
	for _, rig := range rigs {
		if rig.Projection != want[rig.ID] {
			t.Fatalf("%v projection = %+v, want %+v", rig.ID, rig.Projection, want[rig.ID])
		}
	}
	if rigs[0].Distance != 5 || rigs[0].Height != 2 || rigs[1].Altitude != 50 {
		t.Fatalf("rig offsets = %+v", rigs)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		target error
	}{
		{name: "inverted timeline", mutate: func(c *Config) { c.TimelineMin, c.TimelineMax = 2025, 2023 }},
		{name: "unknown mode", mutate: func(c *Config) { c.LocomotionMode = "fly" }},
		{name: "negative speed", mutate: func(c *Config) { c.MoveSpeed = -1 }},
		{name: "unknown rig", mutate: func(c *Config) { c.RigOrder = []string{"follow", "cinematic"} }, target: camera.ErrUnknownRig},
		{name: "no rigs", mutate: func(c *Config) { c.RigOrder = nil }, target: camera.ErrNoRigs},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if tt.target != nil && !errors.Is(err, tt.target) {
				t.Fatalf("error = %v, want %v", err, tt.target)
			}
		})
	}
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

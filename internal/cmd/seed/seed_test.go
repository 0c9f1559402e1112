package seed

import (
	"bytes"
	"context"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func noEnv(string) (string, bool) { return "", false }

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil, noEnv)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Bundled != "campus" {
		t.Fatalf("bundled = %q, want campus", cfg.Bundled)
	}
	root := filepath.Dir(filepath.Dir(cfg.TimelineDB))
	if _, err := os.Stat(filepath.Join(root, "go.mod")); err != nil {
		t.Fatalf("expected default database under the repo root: %v", err)
	}
}

func TestParseConfigUsesEnvLookup(t *testing.T) {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	lookup := func(key string) (string, bool) {
		if key == "CAMPUSWALK_TIMELINE_DB" {
			return " /tmp/campus.db ", true
		}
		return "", false
	}

	cfg, err := ParseConfig(fs, []string{"-reset"}, lookup)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.TimelineDB != "/tmp/campus.db" || !cfg.Reset {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestRunListsBundledManifests(t *testing.T) {
	var out bytes.Buffer
	if err := Run(context.Background(), Config{List: true}, &out, nil); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.String(), "  campus\n") {
		t.Fatalf("output = %q", out.String())
	}
}

func TestRunSeedsBundledCampus(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "timeline.db")
	var out bytes.Buffer

	err := Run(context.Background(), Config{TimelineDB: path, Bundled: "campus", Reset: true}, &out, nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.String(), "seeded campus.glb: 2 years, 24 exclusions, 0 ranges") {
		t.Fatalf("output = %q", out.String())
	}
}

func TestRunRejectsMissingManifest(t *testing.T) {
	err := Run(context.Background(), Config{TimelineDB: filepath.Join(t.TempDir(), "t.db"), Bundled: "moon"}, nil, nil)
	if err == nil {
		t.Fatal("expected error for unknown bundled manifest")
	}
}

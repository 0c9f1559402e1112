package seed

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/louisbranch/campuswalk/internal/services/viewer/storage/sqlite"
	"github.com/louisbranch/campuswalk/internal/tools/seed"
)

// Config holds seed command configuration.
type Config struct {
	TimelineDB string
	Manifest   string
	Bundled    string
	Reset      bool
	Verbose    bool
	List       bool
}

// EnvLookup returns the value for a key when present.
type EnvLookup func(string) (string, bool)

// ParseConfig parses flags into a Config. The database defaults to
// data/timeline.db under the repository root.
func ParseConfig(fs *flag.FlagSet, args []string, lookup EnvLookup) (Config, error) {
	cfg := Config{
		TimelineDB: envOrDefault(lookup, []string{"CAMPUSWALK_TIMELINE_DB"}, ""),
		Bundled:    envOrDefault(lookup, []string{"CAMPUSWALK_SEED_MANIFEST"}, "campus"),
	}

	fs.StringVar(&cfg.TimelineDB, "timeline-db", cfg.TimelineDB, "sqlite timeline database path")
	fs.StringVar(&cfg.Manifest, "manifest", "", "path to a manifest file (overrides -bundled)")
	fs.StringVar(&cfg.Bundled, "bundled", cfg.Bundled, "bundled manifest name")
	fs.BoolVar(&cfg.Reset, "reset", false, "delete the stored timeline before writing")
	fs.BoolVar(&cfg.Verbose, "v", false, "verbose output")
	fs.BoolVar(&cfg.List, "list", false, "list bundled manifests")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if cfg.TimelineDB == "" {
		root, err := repoRoot()
		if err != nil {
			return Config{}, err
		}
		cfg.TimelineDB = filepath.Join(root, "data", "timeline.db")
	}
	return cfg, nil
}

// Run executes the seed command.
func Run(ctx context.Context, cfg Config, out io.Writer, errOut io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}

	if cfg.List {
		names, err := seed.BundledNames()
		if err != nil {
			return err
		}
		fmt.Fprintln(out, "Bundled manifests:")
		for _, name := range names {
			fmt.Fprintf(out, "  %s\n", name)
		}
		return nil
	}

	manifest, err := loadManifest(cfg)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.TimelineDB), 0o755); err != nil {
		return fmt.Errorf("create timeline directory: %w", err)
	}
	store, err := sqlite.Open(cfg.TimelineDB)
	if err != nil {
		return fmt.Errorf("open timeline store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(errOut, "close timeline store: %v\n", err)
		}
	}()

	summary, err := seed.Apply(ctx, store, manifest, seed.Options{
		Reset:   cfg.Reset,
		Verbose: cfg.Verbose,
		Out:     out,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "seeded %s: %d years, %d exclusions, %d ranges\n",
		summary.Scene, summary.Years, summary.Exclusions, summary.Ranges)
	return nil
}

func loadManifest(cfg Config) (seed.Manifest, error) {
	if strings.TrimSpace(cfg.Manifest) != "" {
		return seed.LoadManifest(cfg.Manifest)
	}
	if strings.TrimSpace(cfg.Bundled) == "" {
		return seed.Manifest{}, errors.New("manifest path or bundled name is required")
	}
	return seed.BundledManifest(cfg.Bundled)
}

func repoRoot() (string, error) {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return "", errors.New("failed to resolve runtime caller")
	}

	dir := filepath.Dir(filename)
	for {
		candidate := filepath.Join(dir, "go.mod")
		if _, err := os.Stat(candidate); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("go.mod not found from %s", filename)
}

func envOrDefault(lookup EnvLookup, keys []string, fallback string) string {
	for _, key := range keys {
		if lookup == nil {
			break
		}
		value, ok := lookup(key)
		if ok {
			trimmed := strings.TrimSpace(value)
			if trimmed != "" {
				return trimmed
			}
		}
	}
	return fallback
}

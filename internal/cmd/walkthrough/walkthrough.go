package walkthrough

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"time"

	platformcmd "github.com/louisbranch/campuswalk/internal/platform/cmd"
	"github.com/louisbranch/campuswalk/internal/services/viewer/app"
	"github.com/louisbranch/campuswalk/internal/services/viewer/storage/sqlite"
	"github.com/louisbranch/campuswalk/internal/tools/walkthrough"
)

// Config holds walkthrough command configuration.
type Config struct {
	Script     string        `env:"CAMPUSWALK_WALKTHROUGH_FILE"`
	Assertions bool          `env:"CAMPUSWALK_WALKTHROUGH_ASSERT"     envDefault:"true"`
	Verbose    bool          `env:"CAMPUSWALK_WALKTHROUGH_VERBOSE"`
	Timeout    time.Duration `env:"CAMPUSWALK_WALKTHROUGH_TIMEOUT"    envDefault:"10s"`
	LoadDelay  int           `env:"CAMPUSWALK_WALKTHROUGH_LOAD_DELAY" envDefault:"1"`
	Locale     string        `env:"CAMPUSWALK_LOCALE"                 envDefault:"en"`
	TimelineDB string        `env:"CAMPUSWALK_TIMELINE_DB"`

	Viewer app.Config
}

// ParseConfig loads env defaults and then parses flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := platformcmd.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.Script, "script", cfg.Script, "path to walkthrough lua file")
	fs.BoolVar(&cfg.Assertions, "assert", cfg.Assertions, "enable assertions (disable to log expectations)")
	fs.BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "enable verbose logging")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "timeout per step")
	fs.IntVar(&cfg.LoadDelay, "load-delay", cfg.LoadDelay, "ticks before a scene or avatar load completes")
	fs.StringVar(&cfg.Locale, "locale", cfg.Locale, "HUD locale")
	fs.StringVar(&cfg.TimelineDB, "timeline-db", cfg.TimelineDB, "sqlite timeline database for timeline_store")
	if err := platformcmd.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run executes the walkthrough command and prints a one-line summary.
func Run(ctx context.Context, cfg Config, out io.Writer, errOut io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}
	if cfg.Script == "" {
		return errors.New("walkthrough script path is required")
	}

	mode := walkthrough.AssertionStrict
	if !cfg.Assertions {
		mode = walkthrough.AssertionLogOnly
	}

	logger := log.New(errOut, "", 0)
	runCfg := walkthrough.Config{
		Session:    cfg.Viewer,
		Locale:     cfg.Locale,
		LoadDelay:  cfg.LoadDelay,
		Timeout:    cfg.Timeout,
		Assertions: mode,
		Verbose:    cfg.Verbose,
		Logger:     logger,
	}
	if cfg.TimelineDB != "" {
		store, err := sqlite.Open(cfg.TimelineDB)
		if err != nil {
			return fmt.Errorf("open timeline store: %w", err)
		}
		defer store.Close()
		runCfg.Store = store
	}

	report, err := walkthrough.RunFile(ctx, runCfg, cfg.Script)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s: %d steps, %d frames, %d failed assertions, %d timeline warnings\n",
		report.Name, report.Steps, report.Stats.Rendered, report.Failures, report.Warnings)
	fmt.Fprintln(out, report.Status)
	return nil
}

// Package walkthrough replays scripted viewer sessions written in Lua and
// checks what the viewer would show after each step.
package walkthrough

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/louisbranch/campuswalk/internal/platform/timeouts"
	"github.com/louisbranch/campuswalk/internal/services/viewer/app"
	"github.com/louisbranch/campuswalk/internal/services/viewer/domain/animation"
	"github.com/louisbranch/campuswalk/internal/services/viewer/domain/frame"
	"github.com/louisbranch/campuswalk/internal/services/viewer/domain/timeline"
	"github.com/louisbranch/campuswalk/internal/services/viewer/hud"
	"github.com/louisbranch/campuswalk/internal/services/viewer/storage"
)

const (
	tracerName = "github.com/louisbranch/campuswalk/internal/tools/walkthrough"

	defaultTickDelta = 1.0 / 60
	defaultTolerance = 1e-6
	defaultWaitTicks = 120
)

// ErrNoStore indicates a walkthrough that reads its timeline from a store
// when none is configured.
var ErrNoStore = errors.New("timeline store is not configured")

// Config controls walkthrough execution.
type Config struct {
	Session app.Config
	Locale  string
	// LoadDelay is the number of ticks before a load request resolves.
	LoadDelay  int
	Timeout    time.Duration
	Assertions AssertionMode
	Verbose    bool
	Logger     *log.Logger
	Store      storage.TimelineStore
}

// DefaultConfig returns default runner configuration.
func DefaultConfig() Config {
	return Config{
		Session:    app.DefaultConfig(),
		Locale:     "en",
		LoadDelay:  1,
		Timeout:    timeouts.WalkthroughStep,
		Assertions: AssertionStrict,
	}
}

// Report summarizes a finished walkthrough.
type Report struct {
	Name     string
	Steps    int
	Failures int
	Warnings int
	Stats    frame.Stats
	// Status is the HUD line of the last frame.
	Status string
}

// Runner executes walkthroughs against an in-process viewer session.
type Runner struct {
	cfg        app.Config
	store      storage.TimelineStore
	assertions *Assertions
	logger     *log.Logger
	tracer     trace.Tracer
	verbose    bool
	timeout    time.Duration
	locale     string
	loadDelay  int
}

// NewRunner validates cfg and prepares a runner.
func NewRunner(cfg Config) (*Runner, error) {
	if err := cfg.Session.Validate(); err != nil {
		return nil, fmt.Errorf("session config: %w", err)
	}
	if cfg.LoadDelay < 0 {
		return nil, errors.New("load delay must not be negative")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "", 0)
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = timeouts.WalkthroughStep
	}

	return &Runner{
		cfg:        cfg.Session,
		store:      cfg.Store,
		assertions: &Assertions{Mode: cfg.Assertions, Logger: logger},
		logger:     logger,
		tracer:     otel.Tracer(tracerName),
		verbose:    cfg.Verbose,
		timeout:    timeout,
		locale:     cfg.Locale,
		loadDelay:  cfg.LoadDelay,
	}, nil
}

// RunFile loads and executes a walkthrough file.
func RunFile(ctx context.Context, cfg Config, path string) (Report, error) {
	runner, err := NewRunner(cfg)
	if err != nil {
		return Report{}, err
	}
	walkthrough, err := LoadFromFile(path)
	if err != nil {
		return Report{}, err
	}
	return runner.Run(ctx, walkthrough)
}

// runState is the session a walkthrough drives.
type runState struct {
	walkthrough *Walkthrough
	session     *app.Session
	loaders     *memoryLoaders
	renderer    *recordingRenderer
	hud         *hud.HUD
	clips       map[animation.State]*animation.Action
}

// Run executes the walkthrough steps. Each step gets its own span.
func (r *Runner) Run(ctx context.Context, walkthrough *Walkthrough) (Report, error) {
	if walkthrough == nil {
		return Report{}, errors.New("walkthrough is required")
	}
	ctx, span := r.tracer.Start(ctx, "walkthrough.run", trace.WithAttributes(
		attribute.String("walkthrough.name", walkthrough.Name),
		attribute.Int("walkthrough.steps", len(walkthrough.Steps)),
	))
	defer span.End()

	r.assertions = &Assertions{Mode: r.assertions.Mode, Logger: r.logger}
	r.logf("walkthrough start: %s (%d steps)", walkthrough.Name, len(walkthrough.Steps))

	run, err := r.prepare(ctx, walkthrough)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Report{Name: walkthrough.Name}, err
	}

	for index, step := range walkthrough.Steps {
		stepNumber := index + 1
		r.logf("step %d/%d start: %s", stepNumber, len(walkthrough.Steps), step.Kind)
		stepStart := time.Now()

		stepCtx, stepSpan := r.tracer.Start(ctx, "walkthrough.step", trace.WithAttributes(
			attribute.Int("walkthrough.step.index", stepNumber),
			attribute.String("walkthrough.step.kind", step.Kind),
		))
		stepCtx, cancel := context.WithTimeout(stepCtx, r.timeout)
		err := r.runStep(stepCtx, run, step)
		cancel()
		if err != nil {
			stepSpan.RecordError(err)
			stepSpan.SetStatus(codes.Error, err.Error())
			stepSpan.End()
			span.SetStatus(codes.Error, "step failed")
			report := r.report(run, index)
			return report, fmt.Errorf("step %d (%s): %w", stepNumber, step.Kind, err)
		}
		stepSpan.End()
		r.logf("step %d/%d done: %s (%s)", stepNumber, len(walkthrough.Steps), step.Kind, time.Since(stepStart))
	}

	report := r.report(run, len(walkthrough.Steps))
	span.SetAttributes(attribute.Int("walkthrough.failures", report.Failures))
	r.logf("walkthrough done: %s", walkthrough.Name)
	return report, nil
}

func (r *Runner) prepare(ctx context.Context, walkthrough *Walkthrough) (*runState, error) {
	display, err := hud.New(r.locale)
	if err != nil {
		return nil, err
	}
	loaders := newMemoryLoaders(r.loadDelay)
	renderer := newRecordingRenderer(display)

	session, err := app.NewSession(r.cfg, app.Deps{
		Scenes:   loaders,
		Actors:   loaders,
		Renderer: renderer,
		Logger:   r.logger,
	})
	if err != nil {
		return nil, err
	}
	run := &runState{
		walkthrough: walkthrough,
		session:     session,
		loaders:     loaders,
		renderer:    renderer,
		hud:         display,
	}

	rule, err := r.resolveRule(ctx, walkthrough)
	if err != nil {
		return nil, err
	}
	if rule != nil {
		session.SetRule(rule)
	}

	if len(walkthrough.Entities) > 0 {
		loaders.putScene(walkthrough.Scene, walkthrough.Entities)
		if err := session.LoadScene(ctx, walkthrough.Scene); err != nil {
			return nil, err
		}
	}
	if walkthrough.Actor != nil {
		run.clips = loaders.putActor(defaultActorPath, *walkthrough.Actor)
		if err := session.LoadActor(ctx, defaultActorPath); err != nil {
			return nil, err
		}
	}
	return run, nil
}

// declaredRule shows each entity in the years it declared, or in every year
// of the domain when it declared none.
type declaredRule struct {
	timeline.ExplicitRule[int]
	domain []int
}

func (r declaredRule) Domain() []int {
	return r.domain
}

func (r *Runner) resolveRule(ctx context.Context, walkthrough *Walkthrough) (timeline.Rule[int], error) {
	domain := timeline.DomainRange(r.cfg.TimelineMin, r.cfg.TimelineMax)
	spec := walkthrough.Timeline

	declared := false
	for _, entity := range walkthrough.Entities {
		if len(entity.Years) > 0 {
			declared = true
			break
		}
	}
	if declared && spec.kind() != "" {
		return nil, fmt.Errorf("entity years and a %s timeline are both declared", spec.kind())
	}

	switch spec.kind() {
	case "script":
		if walkthrough.state == nil {
			return nil, errors.New("timeline script requires a loaded walkthrough")
		}
		return scriptRule{state: walkthrough.state, domain: domain, logger: r.logger}, nil
	case "store":
		if r.store == nil {
			return nil, ErrNoStore
		}
		return app.LoadRule(ctx, r.store, spec.Store, walkthrough.metaKeys()...)
	case "stored":
		return app.RuleFromTimeline(storage.Timeline{
			Scene:      walkthrough.Scene,
			Domain:     storage.YearRange{From: r.cfg.TimelineMin, To: r.cfg.TimelineMax},
			Exclusions: spec.Exclusions,
			Ranges:     spec.Ranges,
			Filter:     spec.Filter,
		}, walkthrough.metaKeys()...)
	}

	if !declared {
		return nil, nil
	}
	rule := declaredRule{ExplicitRule: timeline.ExplicitRule[int]{}, domain: domain}
	for _, entity := range walkthrough.Entities {
		if len(entity.Years) > 0 {
			rule.ExplicitRule[entity.Name] = entity.Years
		} else {
			rule.ExplicitRule[entity.Name] = domain
		}
	}
	return rule, nil
}

// tick resolves due loads, then runs one session frame.
func (r *Runner) tick(run *runState, dt float64) {
	run.loaders.advance()
	run.session.Tick(dt)
}

func (r *Runner) report(run *runState, steps int) Report {
	return Report{
		Name:     run.walkthrough.Name,
		Steps:    steps,
		Failures: r.assertions.Failures(),
		Warnings: run.session.Warnings(),
		Stats:    run.session.Stats(),
		Status:   r.status(run),
	}
}

func (r *Runner) status(run *runState) string {
	var position *mgl64.Vec3
	if actor := run.session.Locomotion().Actor(); actor != nil {
		p := actor.Position()
		position = &p
	}
	return run.hud.Status(run.session.Year(), run.session.Rigs().Active(), position, len(run.renderer.labels))
}

func (r *Runner) logf(format string, args ...any) {
	if !r.verbose || r.logger == nil {
		return
	}
	r.logger.Printf(format, args...)
}

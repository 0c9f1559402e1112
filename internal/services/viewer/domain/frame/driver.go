// Package frame runs the per-tick update sequence and hands the result to a
// renderer.
package frame

import (
	"errors"
	"fmt"
	"io"
	"log"
	"math"

	"github.com/louisbranch/campuswalk/internal/services/viewer/domain/animation"
	"github.com/louisbranch/campuswalk/internal/services/viewer/domain/camera"
	"github.com/louisbranch/campuswalk/internal/services/viewer/domain/locomotion"
	"github.com/louisbranch/campuswalk/internal/services/viewer/domain/scene"
)

// ErrIncompleteContext indicates a driver built without a required component.
var ErrIncompleteContext = errors.New("frame context is incomplete")

// Renderer draws one frame.
type Renderer interface {
	Render(registry *scene.Registry, view camera.Camera) error
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(registry *scene.Registry, view camera.Camera) error

// Render calls f.
func (f RendererFunc) Render(registry *scene.Registry, view camera.Camera) error {
	return f(registry, view)
}

// Context holds everything a tick touches.
type Context struct {
	Registry   *scene.Registry
	Locomotion *locomotion.Controller
	Animation  *animation.Selector
	Rigs       *camera.Manager
	Renderer   Renderer
	Logger     *log.Logger
}

// Stats counts driver activity since creation.
type Stats struct {
	Ticks    int
	Rendered int
	// Absorbed counts steps skipped because the actor is not loaded yet.
	Absorbed int
	// Failed counts logged step errors.
	Failed int
}

// Driver advances the scene one tick at a time.
type Driver struct {
	ctx       Context
	lastState locomotion.State
	stats     Stats
}

// NewDriver validates ctx and returns a driver. A nil renderer is allowed and
// skips submission; a nil logger discards output.
func NewDriver(ctx Context) (*Driver, error) {
	switch {
	case ctx.Registry == nil:
		return nil, fmt.Errorf("%w: registry", ErrIncompleteContext)
	case ctx.Locomotion == nil:
		return nil, fmt.Errorf("%w: locomotion", ErrIncompleteContext)
	case ctx.Animation == nil:
		return nil, fmt.Errorf("%w: animation", ErrIncompleteContext)
	case ctx.Rigs == nil:
		return nil, fmt.Errorf("%w: camera rigs", ErrIncompleteContext)
	}
	if ctx.Logger == nil {
		ctx.Logger = log.New(io.Discard, "", 0)
	}
	return &Driver{ctx: ctx, lastState: ctx.Locomotion.State()}, nil
}

// ErrInvalidDelta indicates a negative or non-finite tick delta.
var ErrInvalidDelta = errors.New("tick delta must be finite and not negative")

// Tick runs locomotion, animation, the active rig and the renderer in that
// order. No step error stops the sequence. An invalid dt is logged and the
// tick runs with dt 0.
func (d *Driver) Tick(dt float64) {
	d.stats.Ticks++

	if dt < 0 || math.IsNaN(dt) || math.IsInf(dt, 0) {
		d.check("delta", fmt.Errorf("%w: %v", ErrInvalidDelta, dt))
		dt = 0
	}

	d.check("locomotion", d.ctx.Locomotion.Tick(dt))

	if state := d.ctx.Locomotion.State(); state != d.lastState {
		d.ctx.Animation.OnLocomotionChanged(state)
		d.lastState = state
	}
	d.ctx.Animation.Advance(dt)

	d.check("camera", d.ctx.Rigs.Tick(d.actorPose()))

	if d.ctx.Renderer == nil {
		return
	}
	if d.check("render", d.ctx.Renderer.Render(d.ctx.Registry, d.ctx.Rigs.View())) {
		d.stats.Rendered++
	}
}

// Stats returns the activity counters.
func (d *Driver) Stats() Stats {
	return d.stats
}

// Context returns the driver context.
func (d *Driver) Context() Context {
	return d.ctx
}

func (d *Driver) actorPose() *camera.ActorPose {
	actor := d.ctx.Locomotion.Actor()
	if actor == nil || actor.Entity == nil {
		return nil
	}
	return &camera.ActorPose{Position: actor.Position(), Heading: actor.Heading}
}

// check records err for step and reports whether the step succeeded.
func (d *Driver) check(step string, err error) bool {
	switch {
	case err == nil:
		return true
	case errors.Is(err, scene.ErrActorNotReady):
		d.stats.Absorbed++
	default:
		d.stats.Failed++
		d.ctx.Logger.Printf("frame %d: %s: %v", d.stats.Ticks, step, err)
	}
	return false
}

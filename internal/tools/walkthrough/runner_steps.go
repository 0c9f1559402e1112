package walkthrough

import (
	"context"
	"math"
	"slices"
	"strings"

	"github.com/louisbranch/campuswalk/internal/services/viewer/app"
	"github.com/louisbranch/campuswalk/internal/services/viewer/domain/animation"
	"github.com/louisbranch/campuswalk/internal/services/viewer/domain/camera"
)

func (r *Runner) runStep(ctx context.Context, run *runState, step Step) error {
	switch step.Kind {
	case "press":
		return r.runKeyStep(run, step, true)
	case "release":
		return r.runKeyStep(run, step, false)
	case "tick":
		return r.runTickStep(ctx, run, step)
	case "wait_loaded":
		return r.runWaitLoadedStep(ctx, run, step)
	case "year":
		return r.runYearStep(run, step)
	case "resize":
		return r.runResizeStep(run, step)
	case "toggle_camera":
		run.session.KeyDown(app.KeyToggleCamera)
		run.session.KeyUp(app.KeyToggleCamera)
		return nil
	case "rig":
		return r.runRigStep(run, step)
	case "orbit":
		return r.runOrbitStep(run, step)
	case "zoom":
		return r.runZoomStep(run, step)
	case "reload":
		return run.session.LoadScene(ctx, run.walkthrough.Scene)
	case "reset_view":
		run.session.ResetView()
		return nil
	case "remove":
		return r.runRemoveStep(run, step)
	case "expect_visible":
		return r.runExpectVisibleStep(run, step)
	case "expect_hidden":
		return r.runExpectHiddenStep(run, step)
	case "expect_position":
		return r.runExpectPositionStep(run, step)
	case "expect_camera":
		return r.runExpectCameraStep(run, step)
	case "expect_heading":
		return r.runExpectHeadingStep(run, step)
	case "expect_animation":
		return r.runExpectAnimationStep(run, step)
	case "expect_rig":
		return r.runExpectRigStep(run, step)
	case "expect_warnings":
		return r.runExpectWarningsStep(run, step)
	case "expect_hud":
		return r.runExpectHUDStep(run, step)
	case "expect_years":
		return r.runExpectYearsStep(run, step)
	case "expect_bucket":
		return r.runExpectBucketStep(run, step)
	default:
		return r.failf("unknown step kind %q", step.Kind)
	}
}

func (r *Runner) runKeyStep(run *runState, step Step, down bool) error {
	key, err := requiredString(step.Args, "key")
	if err != nil {
		return r.failf("%v", err)
	}
	if down {
		run.session.KeyDown(keyName(key))
	} else {
		run.session.KeyUp(keyName(key))
	}
	return nil
}

func (r *Runner) runTickStep(ctx context.Context, run *runState, step Step) error {
	dt := optionalFloat(step.Args, "dt", defaultTickDelta)
	count := optionalInt(step.Args, "count", 1)
	if dt < 0 || math.IsNaN(dt) || math.IsInf(dt, 0) || count < 1 {
		return r.failf("tick needs a finite dt >= 0 and count >= 1, got %v x %d", dt, count)
	}
	for i := 0; i < count; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.tick(run, dt)
	}
	return nil
}

// runWaitLoadedStep ticks with a zero delta until no load is pending.
func (r *Runner) runWaitLoadedStep(ctx context.Context, run *runState, step Step) error {
	limit := optionalInt(step.Args, "max", defaultWaitTicks)
	for ticks := 0; run.session.Loading(); ticks++ {
		if ticks >= limit {
			return r.assertf("still loading after %d ticks", limit)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		r.tick(run, 0)
	}
	return nil
}

func (r *Runner) runYearStep(run *runState, step Step) error {
	year, err := readInt(step.Args, "year")
	if err != nil {
		return r.failf("%v", err)
	}
	run.session.SetYear(year)
	return nil
}

func (r *Runner) runResizeStep(run *runState, step Step) error {
	width, err := readInt(step.Args, "width")
	if err != nil {
		return r.failf("%v", err)
	}
	height, err := readInt(step.Args, "height")
	if err != nil {
		return r.failf("%v", err)
	}
	if err := run.session.Resize(width, height); err != nil {
		return r.failf("%v", err)
	}
	return nil
}

func (r *Runner) runRigStep(run *runState, step Step) error {
	name, err := requiredString(step.Args, "name")
	if err != nil {
		return r.failf("%v", err)
	}
	id, err := camera.ParseRigID(name)
	if err != nil {
		return r.failf("%v", err)
	}
	if err := run.session.SetRig(id); err != nil {
		return r.failf("%v", err)
	}
	return nil
}

func (r *Runner) runOrbitStep(run *runState, step Step) error {
	azimuth, err := readFloat(step.Args, "azimuth")
	if err != nil {
		return r.failf("%v", err)
	}
	run.session.Orbit(azimuth, optionalFloat(step.Args, "polar", 0))
	return nil
}

func (r *Runner) runRemoveStep(run *runState, step Step) error {
	name, err := requiredString(step.Args, "name")
	if err != nil {
		return r.failf("%v", err)
	}
	run.session.RemoveEntity(name)
	return nil
}

func (r *Runner) runZoomStep(run *runState, step Step) error {
	scale, err := readFloat(step.Args, "scale")
	if err != nil || scale <= 0 {
		return r.failf("zoom scale must be positive")
	}
	run.session.Zoom(scale)
	return nil
}

// visibleSceneNames lists visible scene entities in sorted order; the actor
// is not part of the scene.
func visibleSceneNames(session *app.Session) []string {
	names := []string{}
	for _, name := range session.Registry().VisibleNames() {
		if name != session.ActorName() {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

func (r *Runner) runExpectVisibleStep(run *runState, step Step) error {
	want := slices.Clone(readNames(step.Args))
	if want == nil {
		want = []string{}
	}
	slices.Sort(want)
	got := visibleSceneNames(run.session)
	if !slices.Equal(got, want) {
		return r.assertf("visible = %v, want %v", got, want)
	}
	return nil
}

func (r *Runner) runExpectHiddenStep(run *runState, step Step) error {
	for _, name := range readNames(step.Args) {
		entity, err := run.session.Registry().Get(name)
		if err != nil {
			if assertErr := r.assertf("hidden %s: %v", name, err); assertErr != nil {
				return assertErr
			}
			continue
		}
		if entity.Visible {
			if err := r.assertf("%s is visible, want hidden", name); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Runner) runExpectPositionStep(run *runState, step Step) error {
	want, err := readVector(step.Args)
	if err != nil {
		return r.failf("%v", err)
	}
	actor := run.session.Locomotion().Actor()
	if actor == nil {
		return r.assertf("actor is not loaded")
	}
	tolerance := optionalFloat(step.Args, "tolerance", defaultTolerance)
	if got := actor.Position(); got.Sub(want).Len() > tolerance {
		return r.assertf("actor position = %v, want %v", got, want)
	}
	return nil
}

func (r *Runner) runExpectCameraStep(run *runState, step Step) error {
	want, err := readVector(step.Args)
	if err != nil {
		return r.failf("%v", err)
	}
	if !run.renderer.rendered() {
		return r.assertf("no frame rendered yet")
	}
	tolerance := optionalFloat(step.Args, "tolerance", defaultTolerance)
	if got := run.renderer.view.Pose.Position; got.Sub(want).Len() > tolerance {
		return r.assertf("camera position = %v, want %v", got, want)
	}
	return nil
}

func (r *Runner) runExpectHeadingStep(run *runState, step Step) error {
	want, err := readFloat(step.Args, "heading")
	if err != nil {
		return r.failf("%v", err)
	}
	actor := run.session.Locomotion().Actor()
	if actor == nil {
		return r.assertf("actor is not loaded")
	}
	tolerance := optionalFloat(step.Args, "tolerance", defaultTolerance)
	if math.Abs(actor.Heading-want) > tolerance {
		return r.assertf("actor heading = %v, want %v", actor.Heading, want)
	}
	return nil
}

// runExpectAnimationStep accepts "idle", "walk" or "none".
func (r *Runner) runExpectAnimationStep(run *runState, step Step) error {
	name, err := requiredString(step.Args, "state")
	if err != nil {
		return r.failf("%v", err)
	}
	playing, ok := run.session.Animation().Playing()
	if strings.EqualFold(name, "none") {
		if ok {
			return r.assertf("animation = %s, want none", playing)
		}
		return nil
	}
	want, err := animation.ParseState(name)
	if err != nil {
		return r.failf("%v", err)
	}
	if !ok {
		selector := run.session.Animation()
		return r.assertf("no animation playing (clips loaded: %t, requested %s), want %s",
			selector.Loaded(), selector.Current(), want)
	}
	if playing != want {
		return r.assertf("animation = %s, want %s", playing, want)
	}
	if action := run.clips[want]; action != nil && !action.Playing() {
		return r.assertf("%s clip is selected but not playing", want)
	}
	return nil
}

func (r *Runner) runExpectRigStep(run *runState, step Step) error {
	name, err := requiredString(step.Args, "name")
	if err != nil {
		return r.failf("%v", err)
	}
	want, err := camera.ParseRigID(name)
	if err != nil {
		return r.failf("%v", err)
	}
	if got := run.session.Rigs().Active(); got != want {
		return r.assertf("active rig = %s, want %s", got, want)
	}
	return nil
}

func (r *Runner) runExpectWarningsStep(run *runState, step Step) error {
	want, err := readInt(step.Args, "count")
	if err != nil {
		return r.failf("%v", err)
	}
	if got := run.session.Warnings(); got != want {
		return r.assertf("timeline warnings = %d, want %d", got, want)
	}
	return nil
}

func (r *Runner) runExpectHUDStep(run *runState, step Step) error {
	want, err := requiredString(step.Args, "contains")
	if err != nil {
		return r.failf("%v", err)
	}
	if got := r.status(run); !strings.Contains(got, want) {
		return r.assertf("hud = %q, want it to contain %q", got, want)
	}
	return nil
}

func (r *Runner) runExpectYearsStep(run *runState, step Step) error {
	want, _ := step.Args["years"].([]int)
	if want == nil {
		want = []int{}
	}
	got := run.session.Years()
	if got == nil {
		got = []int{}
	}
	if !slices.Equal(got, want) {
		return r.assertf("timeline years = %v, want %v", got, want)
	}
	return nil
}

// runExpectBucketStep compares the bucket of one year, ignoring order.
func (r *Runner) runExpectBucketStep(run *runState, step Step) error {
	year, err := readInt(step.Args, "year")
	if err != nil {
		return r.failf("%v", err)
	}
	index := run.session.Index()
	if !index.HasKey(year) {
		return r.assertf("no timeline bucket for %d", year)
	}
	bucket, _ := index.Bucket(year)
	got := slices.Sorted(slices.Values(bucket.Names))
	want := slices.Sorted(slices.Values(readNames(step.Args)))
	if !slices.Equal(got, want) {
		return r.assertf("bucket %d = %v, want %v", year, got, want)
	}
	return nil
}

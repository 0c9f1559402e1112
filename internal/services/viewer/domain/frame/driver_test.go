package frame

import (
	"bytes"
	"errors"
	"log"
	"math"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/louisbranch/campuswalk/internal/services/viewer/domain/animation"
	"github.com/louisbranch/campuswalk/internal/services/viewer/domain/camera"
	"github.com/louisbranch/campuswalk/internal/services/viewer/domain/locomotion"
	"github.com/louisbranch/campuswalk/internal/services/viewer/domain/scene"
)

type frameRecord struct {
	actorZ  float64
	cameraZ float64
	rig     camera.RigID
}

type recorder struct {
	frames []frameRecord
	err    error
}

func (r *recorder) Render(registry *scene.Registry, view camera.Camera) error {
	record := frameRecord{cameraZ: view.Pose.Position.Z(), rig: view.ID}
	if actor, err := registry.Get("avatar"); err == nil {
		record.actorZ = actor.Transform.Position.Z()
	}
	r.frames = append(r.frames, record)
	return r.err
}

type fixture struct {
	driver     *Driver
	registry   *scene.Registry
	locomotion *locomotion.Controller
	animation  *animation.Selector
	renderer   *recorder
	logs       *bytes.Buffer
	idle, walk *animation.Action
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	rigs, err := camera.NewManager([]camera.RigConfig{
		{ID: camera.Follow, Projection: camera.Projection{FOV: 105, Aspect: 1, Near: 0.1, Far: 1000}, Distance: 5, Height: 2},
		{ID: camera.Overhead, Projection: camera.Projection{FOV: 90, Aspect: 1, Near: 0.01, Far: 1000}, Altitude: 50},
	}, nil)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	f := &fixture{
		registry:   scene.NewRegistry(),
		locomotion: locomotion.NewController(locomotion.DefaultConfig()),
		animation:  animation.NewSelector(),
		renderer:   &recorder{},
		logs:       &bytes.Buffer{},
		idle:       animation.NewAction("idle", 2),
		walk:       animation.NewAction("walk", 1),
	}
	f.driver, err = NewDriver(Context{
		Registry:   f.registry,
		Locomotion: f.locomotion,
		Animation:  f.animation,
		Rigs:       rigs,
		Renderer:   f.renderer,
		Logger:     log.New(f.logs, "", 0),
	})
	if err != nil {
		t.Fatalf("new driver: %v", err)
	}
	return f
}

func (f *fixture) loadActor(t *testing.T) *locomotion.Actor {
	t.Helper()

	entity := &scene.Entity{Visible: true, HasGeometry: true}
	if err := f.registry.Register("avatar", entity); err != nil {
		t.Fatalf("register avatar: %v", err)
	}
	actor := locomotion.NewActor(entity)
	f.locomotion.Attach(actor)
	if err := f.animation.Install(map[animation.State]animation.Clip{animation.Idle: f.idle, animation.Walk: f.walk}); err != nil {
		t.Fatalf("install clips: %v", err)
	}
	return actor
}

func TestNewDriverRequiresComponents(t *testing.T) {
	_, err := NewDriver(Context{Registry: scene.NewRegistry()})
	if !errors.Is(err, ErrIncompleteContext) {
		t.Fatalf("new driver error = %v, want %v", err, ErrIncompleteContext)
	}
}

func TestTickBeforeActorLoads(t *testing.T) {
	f := newFixture(t)

	f.locomotion.KeyDown(locomotion.Forward)
	f.driver.Tick(1)
	f.driver.Tick(1)

	stats := f.driver.Stats()
	if stats.Ticks != 2 || stats.Rendered != 2 {
		t.Fatalf("stats = %+v, want 2 ticks rendered", stats)
	}
	if stats.Absorbed != 4 {
		t.Fatalf("absorbed = %d, want 4 (locomotion and camera per tick)", stats.Absorbed)
	}
	if stats.Failed != 0 || f.logs.Len() != 0 {
		t.Fatalf("unexpected failures: %+v, logs %q", stats, f.logs.String())
	}
	if f.animation.Current() != animation.Walk {
		t.Fatalf("desired clip = %v, want walk recorded before load", f.animation.Current())
	}
}

func TestForwardTickThenRelease(t *testing.T) {
	f := newFixture(t)
	actor := f.loadActor(t)

	f.locomotion.KeyDown(locomotion.Forward)
	f.driver.Tick(1)

	if got := actor.Position(); got != (mgl64.Vec3{0, 0, 0.5}) {
		t.Fatalf("position = %v, want (0, 0, 0.5)", got)
	}
	if state, ok := f.animation.Playing(); !ok || state != animation.Walk {
		t.Fatalf("playing = %v, %v, want walk", state, ok)
	}
	if f.idle.Playing() {
		t.Fatal("idle clip still playing alongside walk")
	}

	f.locomotion.KeyUp(locomotion.Forward)
	f.driver.Tick(1)

	if got := actor.Position(); got != (mgl64.Vec3{0, 0, 0.5}) {
		t.Fatalf("position after release = %v, want unchanged", got)
	}
	if state, ok := f.animation.Playing(); !ok || state != animation.Idle {
		t.Fatalf("playing = %v, %v, want idle", state, ok)
	}
	if f.walk.Playing() {
		t.Fatal("walk clip still playing after release")
	}
}

func TestCameraSeesMovedActorInSameTick(t *testing.T) {
	f := newFixture(t)
	f.loadActor(t)

	f.locomotion.KeyDown(locomotion.Forward)
	f.driver.Tick(1)

	last := f.renderer.frames[len(f.renderer.frames)-1]
	if last.actorZ != 0.5 {
		t.Fatalf("rendered actor z = %v, want 0.5", last.actorZ)
	}
	if last.cameraZ != 0.5-5 {
		t.Fatalf("rendered camera z = %v, want %v", last.cameraZ, 0.5-5)
	}
	if last.rig != camera.Follow {
		t.Fatalf("rendered rig = %v, want follow", last.rig)
	}
}

func TestRenderFailureDoesNotStopLoop(t *testing.T) {
	f := newFixture(t)
	actor := f.loadActor(t)
	f.renderer.err = errors.New("device lost")

	f.locomotion.KeyDown(locomotion.Forward)
	f.driver.Tick(1)
	f.driver.Tick(1)

	if got := actor.Position().Z(); got != 1 {
		t.Fatalf("z = %v, want 1 after two ticks", got)
	}
	stats := f.driver.Stats()
	if stats.Failed != 2 || stats.Rendered != 0 {
		t.Fatalf("stats = %+v, want 2 failed renders", stats)
	}
	if !strings.Contains(f.logs.String(), "render: device lost") {
		t.Fatalf("logs = %q, want render failure", f.logs.String())
	}
}

func TestAnimationAdvancesPlayingClip(t *testing.T) {
	f := newFixture(t)
	f.loadActor(t)

	f.driver.Tick(0.5)
	f.driver.Tick(0.25)

	if got := f.idle.Time(); got != 0.75 {
		t.Fatalf("idle time = %v, want 0.75", got)
	}
	if f.walk.Time() != 0 {
		t.Fatalf("walk time = %v, want 0", f.walk.Time())
	}
}

func TestNilRendererSkipsSubmission(t *testing.T) {
	f := newFixture(t)
	f.driver.ctx.Renderer = nil
	f.loadActor(t)

	f.driver.Tick(1)
	if stats := f.driver.Stats(); stats.Rendered != 0 || stats.Ticks != 1 {
		t.Fatalf("stats = %+v, want one tick without render", stats)
	}
}

func TestInvalidDeltaRunsAsZero(t *testing.T) {
	f := newFixture(t)
	actor := f.loadActor(t)
	f.locomotion.KeyDown(locomotion.Forward)

	for _, dt := range []float64{math.Inf(1), math.NaN(), -1} {
		f.driver.Tick(dt)
	}

	if got := actor.Position(); got != (mgl64.Vec3{}) {
		t.Fatalf("position = %v, want unchanged", got)
	}
	stats := f.driver.Stats()
	if stats.Ticks != 3 || stats.Failed != 3 || stats.Rendered != 3 {
		t.Fatalf("stats = %+v, want 3 ticks, 3 failures, 3 renders", stats)
	}
	if !strings.Contains(f.logs.String(), "tick delta must be finite") {
		t.Fatalf("logs = %q", f.logs.String())
	}
}

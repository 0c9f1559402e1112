package camera

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/louisbranch/campuswalk/internal/services/viewer/domain/scene"
)

type fakeFree struct {
	updates int
	pose    Pose
}

func (f *fakeFree) Update() { f.updates++ }

func (f *fakeFree) Pose() Pose { return f.pose }

func campusRigs() []RigConfig {
	return []RigConfig{
		{ID: Follow, Projection: Projection{FOV: 105, Aspect: 1.5, Near: 0.1, Far: 1000}, Distance: 5, Height: 2},
		{ID: Overhead, Projection: Projection{FOV: 90, Aspect: 1.5, Near: 0.01, Far: 1000}, Altitude: 50},
		{ID: Free, Projection: Projection{FOV: 75, Aspect: 1.5, Near: 0.1, Far: 1000}},
	}
}

func newManager(t *testing.T, free FreeController) *Manager {
	t.Helper()

	manager, err := NewManager(campusRigs(), free)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return manager
}

func TestNextCyclesDeclaredOrder(t *testing.T) {
	manager := newManager(t, nil)

	if manager.Active() != Follow {
		t.Fatalf("active = %v, want follow", manager.Active())
	}
	want := []RigID{Overhead, Free, Follow}
	for i, id := range want {
		if got := manager.Next(); got != id {
			t.Fatalf("next #%d = %v, want %v", i+1, got, id)
		}
	}
	if manager.Active() != Follow {
		t.Fatalf("active after full cycle = %v, want follow", manager.Active())
	}
}

func TestSetActiveRejectsUnconfiguredRig(t *testing.T) {
	manager, err := NewManager(campusRigs()[:2], nil)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	err = manager.SetActive(Free)
	if !errors.Is(err, ErrUnknownRig) {
		t.Fatalf("set active error = %v, want %v", err, ErrUnknownRig)
	}
	var unknown *UnknownRigError
	if !errors.As(err, &unknown) || unknown.ID != Free {
		t.Fatalf("expected UnknownRigError for free, got %v", err)
	}
	if err := manager.SetActive(RigID(42)); !errors.Is(err, ErrUnknownRig) {
		t.Fatalf("set active out of range error = %v", err)
	}
	if manager.Active() != Follow {
		t.Fatalf("active = %v, want follow after rejected switch", manager.Active())
	}

	if err := manager.SetActive(Overhead); err != nil {
		t.Fatalf("set active: %v", err)
	}
	if manager.Active() != Overhead {
		t.Fatalf("active = %v, want overhead", manager.Active())
	}
}

func TestNewManagerRejectsBadConfiguration(t *testing.T) {
	if _, err := NewManager(nil, nil); !errors.Is(err, ErrNoRigs) {
		t.Fatalf("empty config error = %v, want %v", err, ErrNoRigs)
	}

	dup := []RigConfig{{ID: Follow}, {ID: Follow}}
	if _, err := NewManager(dup, nil); !errors.Is(err, ErrUnknownRig) {
		t.Fatalf("duplicate config error = %v, want %v", err, ErrUnknownRig)
	}

	if _, err := NewManager([]RigConfig{{ID: RigID(9)}}, nil); !errors.Is(err, ErrUnknownRig) {
		t.Fatalf("unknown config error = %v, want %v", err, ErrUnknownRig)
	}
}

func TestFollowTrailsHeading(t *testing.T) {
	manager := newManager(t, nil)

	actor := &ActorPose{Position: mgl64.Vec3{1, 0, 3}}
	if err := manager.Tick(actor); err != nil {
		t.Fatalf("tick: %v", err)
	}
	view := manager.View()
	if !closeTo(view.Pose.Position, mgl64.Vec3{1, 2, -2}) {
		t.Fatalf("position = %v, want (1, 2, -2)", view.Pose.Position)
	}
	if !closeTo(view.Pose.Target, actor.Position) {
		t.Fatalf("target = %v, want %v", view.Pose.Target, actor.Position)
	}

	actor.Heading = math.Pi / 2
	if err := manager.Tick(actor); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if got := manager.View().Pose.Position; !closeTo(got, mgl64.Vec3{-4, 2, 3}) {
		t.Fatalf("position after turn = %v, want (-4, 2, 3)", got)
	}
}

func TestOverheadKeepsAltitude(t *testing.T) {
	manager := newManager(t, nil)
	if err := manager.SetActive(Overhead); err != nil {
		t.Fatalf("set active: %v", err)
	}

	for _, position := range []mgl64.Vec3{{0, 0, 0}, {12, 3, -7}} {
		actor := &ActorPose{Position: position, Heading: 1}
		if err := manager.Tick(actor); err != nil {
			t.Fatalf("tick: %v", err)
		}
		view := manager.View()
		want := mgl64.Vec3{position.X(), 50, position.Z()}
		if !closeTo(view.Pose.Position, want) {
			t.Fatalf("position = %v, want %v", view.Pose.Position, want)
		}
		if !closeTo(view.Pose.Target, position) {
			t.Fatalf("target = %v, want %v", view.Pose.Target, position)
		}
	}
}

func TestOverheadAtRigAltitudeKeepsFiniteView(t *testing.T) {
	manager := newManager(t, nil)
	if err := manager.SetActive(Overhead); err != nil {
		t.Fatalf("set active: %v", err)
	}
	if err := manager.Tick(&ActorPose{Position: mgl64.Vec3{4, 50, -2}}); err != nil {
		t.Fatalf("tick: %v", err)
	}

	view := manager.View()
	if want := (mgl64.Vec3{4, 49, -2}); !closeTo(view.Pose.Target, want) {
		t.Fatalf("target = %v, want %v", view.Pose.Target, want)
	}
	matrix := view.ViewMatrix()
	for i, value := range matrix {
		if math.IsNaN(value) || math.IsInf(value, 0) {
			t.Fatalf("view matrix[%d] = %v", i, value)
		}
	}
}

func TestFreeForwardsUpdatesWithoutActor(t *testing.T) {
	free := &fakeFree{pose: Pose{Position: mgl64.Vec3{0, 1, 5}}}
	manager := newManager(t, free)
	if err := manager.SetActive(Free); err != nil {
		t.Fatalf("set active: %v", err)
	}

	if err := manager.Tick(nil); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if err := manager.Tick(&ActorPose{Position: mgl64.Vec3{9, 9, 9}}); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if free.updates != 2 {
		t.Fatalf("updates = %d, want 2", free.updates)
	}
	if got := manager.View().Pose.Position; !closeTo(got, mgl64.Vec3{0, 1, 5}) {
		t.Fatalf("position = %v, want orbit pose", got)
	}
}

func TestFreeNotUpdatedWhileInactive(t *testing.T) {
	free := &fakeFree{}
	manager := newManager(t, free)

	if err := manager.Tick(&ActorPose{}); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if free.updates != 0 {
		t.Fatalf("updates = %d, want 0 while follow is active", free.updates)
	}
}

func TestTickWithoutActor(t *testing.T) {
	manager := newManager(t, nil)
	if err := manager.Tick(nil); !errors.Is(err, scene.ErrActorNotReady) {
		t.Fatalf("tick error = %v, want %v", err, scene.ErrActorNotReady)
	}
}

func TestOnResizeUpdatesEveryRig(t *testing.T) {
	manager := newManager(t, nil)
	manager.OnResize(16.0 / 9.0)

	for _, id := range manager.Order() {
		rig, ok := manager.Rig(id)
		if !ok {
			t.Fatalf("missing rig %v", id)
		}
		if rig.Projection.Aspect != 16.0/9.0 {
			t.Fatalf("%v aspect = %v, want %v", id, rig.Projection.Aspect, 16.0/9.0)
		}
	}

	manager.OnResize(0)
	rig, _ := manager.Rig(Overhead)
	if rig.Projection.Aspect != 16.0/9.0 {
		t.Fatalf("invalid resize changed aspect to %v", rig.Projection.Aspect)
	}
}

func TestCameraMatrices(t *testing.T) {
	view := Camera{
		Projection: Projection{FOV: 90, Aspect: 1, Near: 0.1, Far: 100},
		Pose:       Pose{Position: mgl64.Vec3{0, 0, 5}, Target: mgl64.Vec3{}, Up: mgl64.Vec3{0, 1, 0}},
	}

	origin := view.ViewMatrix().Mul4x1(mgl64.Vec4{0, 0, 0, 1})
	if !closeTo(origin.Vec3(), mgl64.Vec3{0, 0, -5}) {
		t.Fatalf("origin in view space = %v, want (0, 0, -5)", origin)
	}
	if got := view.ProjectionMatrix().At(0, 0); !mgl64.FloatEqualThreshold(got, 1, 1e-9) {
		t.Fatalf("projection[0][0] = %v, want 1 for 90 degree fov", got)
	}
}

func TestParseRigID(t *testing.T) {
	tests := map[string]RigID{
		"follow":       Follow,
		"third-person": Follow,
		"Drone":        Overhead,
		"orbit":        Free,
	}
	for in, want := range tests {
		got, err := ParseRigID(in)
		if err != nil {
			t.Fatalf("ParseRigID(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseRigID(%q) = %v, want %v", in, got, want)
		}
	}
	if _, err := ParseRigID("cinematic"); !errors.Is(err, ErrUnknownRig) {
		t.Fatalf("ParseRigID error = %v, want %v", err, ErrUnknownRig)
	}
}

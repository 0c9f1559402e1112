package camera

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestNewOrbitRoundTripsPosition(t *testing.T) {
	orbit := NewOrbit(mgl64.Vec3{0, 1, 5}, mgl64.Vec3{})
	orbit.Update()

	if got := orbit.Pose().Position; !closeTo(got, mgl64.Vec3{0, 1, 5}) {
		t.Fatalf("position = %v, want (0, 1, 5)", got)
	}
}

func TestOrbitRotateWithoutDamping(t *testing.T) {
	orbit := NewOrbit(mgl64.Vec3{0, 0, 5}, mgl64.Vec3{})
	orbit.Rotate(math.Pi/2, 0)
	orbit.Update()

	if got := orbit.Pose().Position; !closeTo(got, mgl64.Vec3{5, 0, 0}) {
		t.Fatalf("position = %v, want (5, 0, 0)", got)
	}
	orbit.Update()
	if got := orbit.Pose().Position; !closeTo(got, mgl64.Vec3{5, 0, 0}) {
		t.Fatalf("position drifted to %v", got)
	}
}

func TestOrbitDampingEasesIn(t *testing.T) {
	orbit := NewOrbit(mgl64.Vec3{0, 0, 5}, mgl64.Vec3{})
	orbit.Damping = 0.5
	orbit.Rotate(1, 0)

	orbit.Update()
	first := orbit.azimuth
	orbit.Update()
	second := orbit.azimuth

	if !mgl64.FloatEqual(first, 0.5) {
		t.Fatalf("azimuth after first update = %v, want 0.5", first)
	}
	if !mgl64.FloatEqual(second, 0.75) {
		t.Fatalf("azimuth after second update = %v, want 0.75", second)
	}
}

func TestOrbitZoomAndReset(t *testing.T) {
	orbit := NewOrbit(mgl64.Vec3{0, 0, 10}, mgl64.Vec3{})
	orbit.MinRadius = 2
	orbit.Zoom(0.1)
	orbit.Update()

	if got := orbit.Pose().Position.Len(); !mgl64.FloatEqual(got, 2) {
		t.Fatalf("radius = %v, want clamped 2", got)
	}

	orbit.Reset()
	orbit.Update()
	if got := orbit.Pose().Position; !closeTo(got, mgl64.Vec3{0, 0, 10}) {
		t.Fatalf("position after reset = %v, want (0, 0, 10)", got)
	}
}

func TestOrbitPolarStaysAwayFromPoles(t *testing.T) {
	orbit := NewOrbit(mgl64.Vec3{0, 0, 5}, mgl64.Vec3{})
	orbit.Rotate(0, -10)
	orbit.Update()

	if orbit.polar <= 0 {
		t.Fatalf("polar = %v, want > 0", orbit.polar)
	}
}

func closeTo(a, b mgl64.Vec3) bool {
	return a.Sub(b).Len() < 1e-9
}

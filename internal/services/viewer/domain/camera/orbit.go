package camera

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	defaultDamping = 0.05
	polarEpsilon   = 1e-6
)

// Orbit is an interactive orbit controller around Target with optional
// damping. Input accumulates deltas; Update applies them.
type Orbit struct {
	Target mgl64.Vec3
	// Damping in (0, 1] eases deltas over several updates; 0 applies them at once.
	Damping   float64
	MinRadius float64
	MaxRadius float64

	radius  float64
	azimuth float64
	polar   float64

	deltaAzimuth float64
	deltaPolar   float64
	scale        float64

	initial struct {
		target                 mgl64.Vec3
		radius, azimuth, polar float64
	}
}

// NewOrbit creates a controller at position looking at target.
func NewOrbit(position, target mgl64.Vec3) *Orbit {
	o := &Orbit{Target: target, scale: 1, MaxRadius: math.Inf(1)}
	offset := position.Sub(target)
	o.radius = offset.Len()
	if o.radius > 0 {
		o.azimuth = math.Atan2(offset.X(), offset.Z())
		o.polar = math.Acos(mgl64.Clamp(offset.Y()/o.radius, -1, 1))
	}
	o.initial.target = target
	o.initial.radius = o.radius
	o.initial.azimuth = o.azimuth
	o.initial.polar = o.polar
	return o
}

// DefaultOrbit returns a damped orbit at (0, 1, 5) looking at the origin.
func DefaultOrbit() *Orbit {
	o := NewOrbit(mgl64.Vec3{0, 1, 5}, mgl64.Vec3{})
	o.Damping = defaultDamping
	return o
}

// Rotate queues an azimuth/polar change in radians.
func (o *Orbit) Rotate(deltaAzimuth, deltaPolar float64) {
	o.deltaAzimuth += deltaAzimuth
	o.deltaPolar += deltaPolar
}

// Zoom queues a radius scale; values below 1 move closer.
func (o *Orbit) Zoom(scale float64) {
	if scale > 0 {
		o.scale *= scale
	}
}

// Reset restores the initial placement and drops pending input.
func (o *Orbit) Reset() {
	o.Target = o.initial.target
	o.radius = o.initial.radius
	o.azimuth = o.initial.azimuth
	o.polar = o.initial.polar
	o.deltaAzimuth, o.deltaPolar, o.scale = 0, 0, 1
}

// Update applies pending input.
func (o *Orbit) Update() {
	factor := 1.0
	if o.Damping > 0 && o.Damping < 1 {
		factor = o.Damping
	}
	o.azimuth += o.deltaAzimuth * factor
	o.polar += o.deltaPolar * factor
	o.polar = mgl64.Clamp(o.polar, polarEpsilon, math.Pi-polarEpsilon)

	o.radius *= o.scale
	o.radius = mgl64.Clamp(o.radius, o.MinRadius, o.MaxRadius)
	o.scale = 1

	if factor < 1 {
		o.deltaAzimuth *= 1 - factor
		o.deltaPolar *= 1 - factor
	} else {
		o.deltaAzimuth, o.deltaPolar = 0, 0
	}
}

// Pose returns the current camera pose.
func (o *Orbit) Pose() Pose {
	sinPolar := math.Sin(o.polar)
	offset := mgl64.Vec3{
		o.radius * sinPolar * math.Sin(o.azimuth),
		o.radius * math.Cos(o.polar),
		o.radius * sinPolar * math.Cos(o.azimuth),
	}
	return Pose{Position: o.Target.Add(offset), Target: o.Target, Up: mgl64.Vec3{0, 1, 0}}
}

var _ FreeController = (*Orbit)(nil)

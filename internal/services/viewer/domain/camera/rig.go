// Package camera owns the camera rigs that frame the actor and switches the
// active one.
package camera

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
)

var (
	// ErrUnknownRig matches every rig id or rig configuration that is not usable.
	ErrUnknownRig = errors.New("unknown camera rig")
	// ErrNoRigs indicates a manager configured without rigs.
	ErrNoRigs = errors.New("at least one camera rig is required")
)

// UnknownRigError reports a rig id outside the configured set.
type UnknownRigError struct {
	ID RigID
}

func (e *UnknownRigError) Error() string {
	return fmt.Sprintf("unknown camera rig: %s", e.ID)
}

// Is matches ErrUnknownRig.
func (e *UnknownRigError) Is(target error) bool {
	return target == ErrUnknownRig
}

// RigID identifies a camera rig kind.
type RigID int

const (
	// Follow trails the actor from behind.
	Follow RigID = iota + 1
	// Overhead hovers above the actor at a fixed altitude.
	Overhead
	// Free is driven by an interactive orbit controller.
	Free
)

func (id RigID) String() string {
	switch id {
	case Follow:
		return "follow"
	case Overhead:
		return "overhead"
	case Free:
		return "free"
	default:
		return fmt.Sprintf("rig(%d)", int(id))
	}
}

// ParseRigID parses a rig name.
func ParseRigID(value string) (RigID, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "follow", "third-person", "thirdperson":
		return Follow, nil
	case "overhead", "drone", "birdeye":
		return Overhead, nil
	case "free", "orbit":
		return Free, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownRig, value)
	}
}

// Projection is a perspective projection. FOV is vertical, in degrees.
type Projection struct {
	FOV    float64
	Aspect float64
	Near   float64
	Far    float64
}

// Matrix returns the projection matrix.
func (p Projection) Matrix() mgl64.Mat4 {
	return mgl64.Perspective(mgl64.DegToRad(p.FOV), p.Aspect, p.Near, p.Far)
}

// Pose is a camera placement looking at Target.
type Pose struct {
	Position mgl64.Vec3
	Target   mgl64.Vec3
	Up       mgl64.Vec3
}

// ViewMatrix returns the world-to-camera matrix.
func (p Pose) ViewMatrix() mgl64.Mat4 {
	up := p.Up
	if up.Len() == 0 {
		up = mgl64.Vec3{0, 1, 0}
	}
	return mgl64.LookAtV(p.Position, p.Target, up)
}

// Rig is one configured camera.
type Rig struct {
	ID         RigID
	Projection Projection
	Pose       Pose
}

// Camera is the snapshot handed to the renderer.
type Camera struct {
	ID         RigID
	Projection Projection
	Pose       Pose
}

// ViewMatrix returns the camera view matrix.
func (c Camera) ViewMatrix() mgl64.Mat4 {
	return c.Pose.ViewMatrix()
}

// ProjectionMatrix returns the camera projection matrix.
func (c Camera) ProjectionMatrix() mgl64.Mat4 {
	return c.Projection.Matrix()
}

// ActorPose is the actor state rigs follow.
type ActorPose struct {
	Position mgl64.Vec3
	Heading  float64
}

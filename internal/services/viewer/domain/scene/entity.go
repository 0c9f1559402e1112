// Package scene holds the controllable scene entities of a loaded campus model.
package scene

import "github.com/go-gl/mathgl/mgl64"

// Transform is an entity's placement in world space.
type Transform struct {
	Position mgl64.Vec3
	// Rotation holds Euler angles in radians (X, Y, Z).
	Rotation mgl64.Vec3
}

// Label is the on-screen caption carried by an entity.
//
// A label has no visibility of its own: it is shown exactly when its entity is.
type Label struct {
	Text string
	// Offset is relative to the entity position (roof height plus margin).
	Offset mgl64.Vec3
}

// Entity is one named, controllable scene object.
type Entity struct {
	Name        string
	Transform   Transform
	Visible     bool
	HasGeometry bool
	Metadata    map[string]string
	Label       *Label
}

// LabelVisible reports whether the entity label should be drawn.
func (e *Entity) LabelVisible() bool {
	return e != nil && e.Label != nil && e.Visible
}

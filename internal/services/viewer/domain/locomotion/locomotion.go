// Package locomotion turns directional key events into actor movement.
package locomotion

import (
	"fmt"
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/louisbranch/campuswalk/internal/services/viewer/domain/scene"
)

// State is the locomotion state of the actor.
type State int

const (
	Idle State = iota
	MovingForward
	MovingBackward
	MovingLeft
	MovingRight
	Rotating
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case MovingForward:
		return "forward"
	case MovingBackward:
		return "backward"
	case MovingLeft:
		return "left"
	case MovingRight:
		return "right"
	case Rotating:
		return "rotating"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Direction is one of the four directional inputs.
type Direction int

const (
	Forward Direction = iota + 1
	Backward
	Left
	Right
)

func (d Direction) String() string {
	switch d {
	case Forward:
		return "forward"
	case Backward:
		return "backward"
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return fmt.Sprintf("direction(%d)", int(d))
	}
}

// Mode selects how lateral input moves the actor.
type Mode string

const (
	// ModeTurn rotates the heading on left/right and walks along the heading.
	ModeTurn Mode = "turn"
	// ModeStrafe moves on fixed world axes and never changes the heading.
	ModeStrafe Mode = "strafe"
)

// ParseMode parses a locomotion mode name.
func ParseMode(value string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(value))) {
	case ModeTurn, "":
		return ModeTurn, nil
	case ModeStrafe:
		return ModeStrafe, nil
	default:
		return "", fmt.Errorf("unknown locomotion mode %q", value)
	}
}

// Config controls movement speed and style.
type Config struct {
	Mode Mode
	// MoveSpeed is world units per second of tick time.
	MoveSpeed float64
	// TurnStep is the heading change in radians per left/right key event.
	TurnStep float64
}

// DefaultConfig returns the campus walk defaults.
func DefaultConfig() Config {
	return Config{Mode: ModeTurn, MoveSpeed: 0.5, TurnStep: 0.1}
}

// Actor is the user-controlled entity.
type Actor struct {
	Entity *scene.Entity
	// Heading is the rotation about +Y in radians; 0 faces +Z.
	Heading        float64
	VelocityIntent mgl64.Vec3
}

// NewActor wraps entity, taking the heading from its Y rotation.
func NewActor(entity *scene.Entity) *Actor {
	if entity == nil {
		return nil
	}
	return &Actor{Entity: entity, Heading: entity.Transform.Rotation.Y()}
}

// Position returns the actor position.
func (a *Actor) Position() mgl64.Vec3 {
	return a.Entity.Transform.Position
}

// Forward returns the unit vector the actor faces.
func (a *Actor) Forward() mgl64.Vec3 {
	return HeadingVector(a.Heading)
}

// HeadingVector returns the horizontal unit vector for heading.
func HeadingVector(heading float64) mgl64.Vec3 {
	return mgl64.Vec3{math.Sin(heading), 0, math.Cos(heading)}
}

// Controller is the locomotion state machine. The newest direction pressed
// wins; releasing it returns to Idle.
type Controller struct {
	cfg    Config
	actor  *Actor
	state  State
	active Direction
}

// NewController creates an idle controller.
func NewController(cfg Config) *Controller {
	if cfg.Mode == "" {
		cfg.Mode = ModeTurn
	}
	return &Controller{cfg: cfg}
}

// Attach binds the controller to actor.
func (c *Controller) Attach(actor *Actor) {
	c.actor = actor
}

// Actor returns the attached actor, or nil before the avatar loaded.
func (c *Controller) Actor() *Actor {
	return c.actor
}

// State returns the current locomotion state.
func (c *Controller) State() State {
	return c.state
}

// Config returns the controller configuration.
func (c *Controller) Config() Config {
	return c.cfg
}

// KeyDown handles a directional key press. In turn mode a left/right press
// rotates the heading by one step per event, including key repeats.
func (c *Controller) KeyDown(dir Direction) {
	switch dir {
	case Forward, Backward, Left, Right:
	default:
		return
	}
	c.active = dir

	if c.cfg.Mode == ModeTurn && (dir == Left || dir == Right) {
		c.state = Rotating
		if c.actor != nil {
			step := c.cfg.TurnStep
			if dir == Right {
				step = -step
			}
			c.actor.Heading += step
			c.actor.Entity.Transform.Rotation[1] = c.actor.Heading
			c.actor.VelocityIntent = mgl64.Vec3{}
		}
		return
	}

	switch dir {
	case Forward:
		c.state = MovingForward
	case Backward:
		c.state = MovingBackward
	case Left:
		c.state = MovingLeft
	case Right:
		c.state = MovingRight
	}
}

// KeyUp handles a directional key release. Only the active direction stops
// movement.
func (c *Controller) KeyUp(dir Direction) {
	if c.state == Idle || dir != c.active {
		return
	}
	c.state = Idle
	c.active = 0
	if c.actor != nil {
		c.actor.VelocityIntent = mgl64.Vec3{}
	}
}

// Tick advances the actor by MoveSpeed*dt along the current direction.
func (c *Controller) Tick(dt float64) error {
	if c.actor == nil || c.actor.Entity == nil {
		return scene.ErrActorNotReady
	}

	dir := c.direction()
	c.actor.VelocityIntent = dir.Mul(c.cfg.MoveSpeed)
	if dir.Len() == 0 || dt <= 0 {
		return nil
	}
	transform := &c.actor.Entity.Transform
	transform.Position = transform.Position.Add(dir.Mul(c.cfg.MoveSpeed * dt))
	return nil
}

// direction returns the unit movement vector for the current state.
func (c *Controller) direction() mgl64.Vec3 {
	if c.cfg.Mode == ModeStrafe {
		switch c.state {
		case MovingForward:
			return mgl64.Vec3{0, 0, 1}
		case MovingBackward:
			return mgl64.Vec3{0, 0, -1}
		case MovingLeft:
			return mgl64.Vec3{-1, 0, 0}
		case MovingRight:
			return mgl64.Vec3{1, 0, 0}
		}
		return mgl64.Vec3{}
	}

	switch c.state {
	case MovingForward:
		return c.actor.Forward()
	case MovingBackward:
		return c.actor.Forward().Mul(-1)
	}
	return mgl64.Vec3{}
}

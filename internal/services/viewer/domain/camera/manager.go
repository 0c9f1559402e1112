package camera

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/louisbranch/campuswalk/internal/services/viewer/domain/scene"
)

// minLookDistance is the smallest eye to target distance with a defined view.
const minLookDistance = 1e-9

// RigConfig declares one rig. Distance and Height apply to Follow; Altitude
// applies to Overhead.
type RigConfig struct {
	ID         RigID
	Projection Projection
	Distance   float64
	Height     float64
	Altitude   float64
}

// FreeController owns the pose of the Free rig.
type FreeController interface {
	Update()
	Pose() Pose
}

// poseStrategy recomputes one rig pose per tick.
type poseStrategy interface {
	update(rig *Rig, actor *ActorPose) error
}

type followStrategy struct {
	distance float64
	height   float64
}

func (s followStrategy) update(rig *Rig, actor *ActorPose) error {
	if actor == nil {
		return scene.ErrActorNotReady
	}
	forward := mgl64.Vec3{math.Sin(actor.Heading), 0, math.Cos(actor.Heading)}
	rig.Pose = Pose{
		Position: actor.Position.Sub(forward.Mul(s.distance)).Add(mgl64.Vec3{0, s.height, 0}),
		Target:   actor.Position,
		Up:       mgl64.Vec3{0, 1, 0},
	}
	return nil
}

type overheadStrategy struct {
	altitude float64
}

func (s overheadStrategy) update(rig *Rig, actor *ActorPose) error {
	if actor == nil {
		return scene.ErrActorNotReady
	}
	eye := mgl64.Vec3{actor.Position.X(), s.altitude, actor.Position.Z()}
	target := actor.Position
	// An actor at the rig altitude would put the eye on the target.
	if eye.Sub(target).Len() < minLookDistance {
		target = eye.Sub(mgl64.Vec3{0, 1, 0})
	}
	rig.Pose = Pose{Position: eye, Target: target, Up: mgl64.Vec3{0, 0, 1}}
	return nil
}

type freeStrategy struct {
	controller FreeController
}

func (s freeStrategy) update(rig *Rig, _ *ActorPose) error {
	s.controller.Update()
	rig.Pose = s.controller.Pose()
	return nil
}

// Manager owns the configured rigs and the active pointer.
type Manager struct {
	order      []RigID
	rigs       map[RigID]*Rig
	strategies map[RigID]poseStrategy
	active     int
	free       FreeController
}

// NewManager builds rigs in the declared order; the first one starts active.
// free drives the Free rig; a default Orbit is used when nil.
func NewManager(configs []RigConfig, free FreeController) (*Manager, error) {
	if len(configs) == 0 {
		return nil, ErrNoRigs
	}
	m := &Manager{
		rigs:       make(map[RigID]*Rig, len(configs)),
		strategies: make(map[RigID]poseStrategy, len(configs)),
	}
	for _, cfg := range configs {
		if _, dup := m.rigs[cfg.ID]; dup {
			return nil, fmt.Errorf("%w: %s configured twice", ErrUnknownRig, cfg.ID)
		}
		if cfg.Projection.Aspect <= 0 {
			cfg.Projection.Aspect = 1
		}
		rig := &Rig{ID: cfg.ID, Projection: cfg.Projection}

		switch cfg.ID {
		case Follow:
			m.strategies[cfg.ID] = followStrategy{distance: cfg.Distance, height: cfg.Height}
			rig.Pose = Pose{
				Position: mgl64.Vec3{0, cfg.Height, -cfg.Distance},
				Up:       mgl64.Vec3{0, 1, 0},
			}
		case Overhead:
			m.strategies[cfg.ID] = overheadStrategy{altitude: cfg.Altitude}
			rig.Pose = Pose{
				Position: mgl64.Vec3{0, cfg.Altitude, 0},
				Up:       mgl64.Vec3{0, 0, 1},
			}
		case Free:
			if free == nil {
				free = DefaultOrbit()
			}
			m.free = free
			m.strategies[cfg.ID] = freeStrategy{controller: free}
			rig.Pose = free.Pose()
		default:
			return nil, &UnknownRigError{ID: cfg.ID}
		}
		m.rigs[cfg.ID] = rig
		m.order = append(m.order, cfg.ID)
	}
	return m, nil
}

// SetActive makes id the active rig.
func (m *Manager) SetActive(id RigID) error {
	for i, candidate := range m.order {
		if candidate == id {
			m.active = i
			return nil
		}
	}
	return &UnknownRigError{ID: id}
}

// Next activates the rig after the active one in declared order, wrapping
// around, and returns its id.
func (m *Manager) Next() RigID {
	m.active = (m.active + 1) % len(m.order)
	return m.order[m.active]
}

// Active returns the active rig id.
func (m *Manager) Active() RigID {
	return m.order[m.active]
}

// Order returns the configured rig ids in declared order.
func (m *Manager) Order() []RigID {
	order := make([]RigID, len(m.order))
	copy(order, m.order)
	return order
}

// Rig returns a configured rig.
func (m *Manager) Rig(id RigID) (*Rig, bool) {
	rig, ok := m.rigs[id]
	return rig, ok
}

// FreeController returns the Free rig collaborator, or nil.
func (m *Manager) FreeController() FreeController {
	return m.free
}

// Tick recomputes the active rig pose. actor is nil until the avatar loads;
// the Free rig does not need it.
func (m *Manager) Tick(actor *ActorPose) error {
	id := m.order[m.active]
	return m.strategies[id].update(m.rigs[id], actor)
}

// OnResize applies aspect to every configured rig.
func (m *Manager) OnResize(aspect float64) {
	if aspect <= 0 || math.IsNaN(aspect) || math.IsInf(aspect, 0) {
		return
	}
	for _, rig := range m.rigs {
		rig.Projection.Aspect = aspect
	}
}

// View returns the active camera snapshot.
func (m *Manager) View() Camera {
	rig := m.rigs[m.order[m.active]]
	return Camera{ID: rig.ID, Projection: rig.Projection, Pose: rig.Pose}
}

// Package app wires the viewer domain into a session driven by UI events and
// a per-frame tick.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"slices"
	"strings"
	"sync"

	"github.com/louisbranch/campuswalk/internal/services/viewer/domain/animation"
	"github.com/louisbranch/campuswalk/internal/services/viewer/domain/camera"
	"github.com/louisbranch/campuswalk/internal/services/viewer/domain/frame"
	"github.com/louisbranch/campuswalk/internal/services/viewer/domain/locomotion"
	"github.com/louisbranch/campuswalk/internal/services/viewer/domain/scene"
	"github.com/louisbranch/campuswalk/internal/services/viewer/domain/timeline"
	"github.com/louisbranch/campuswalk/internal/services/viewer/load"
)

// Keys understood by KeyDown and KeyUp.
const (
	KeyForward      = "ArrowUp"
	KeyBackward     = "ArrowDown"
	KeyLeft         = "ArrowLeft"
	KeyRight        = "ArrowRight"
	KeyToggleCamera = " "
)

var (
	// ErrNoLoader indicates a load request without a configured loader.
	ErrNoLoader = errors.New("loader is not configured")
	// ErrInvalidViewport indicates a resize to a non-positive size.
	ErrInvalidViewport = errors.New("viewport dimensions must be positive")
)

// Deps holds the session collaborators. Every field is optional.
type Deps struct {
	Scenes   SceneLoader
	Actors   ActorLoader
	Renderer frame.Renderer
	// Free drives the free rig; a damped orbit is used when nil.
	Free   camera.FreeController
	Logger *log.Logger
}

type orbitInput interface {
	Rotate(deltaAzimuth, deltaPolar float64)
	Zoom(scale float64)
	Reset()
}

// Session owns one viewer: the entity registry, the timeline index and the
// per-tick components.
//
// Event methods (KeyDown, SetYear, Resize, LoadScene, ...) may be called from
// any goroutine; they are queued and applied at the start of the next Tick.
// Tick and the accessors must be called from the loop goroutine.
type Session struct {
	cfg    Config
	logger *log.Logger
	scenes SceneLoader
	actors ActorLoader

	mu        sync.Mutex
	pending   []func()
	sceneLoad *pendingLoad[Scene]
	actorLoad *pendingLoad[Actor]

	registry   *scene.Registry
	sceneNames []string
	sceneReady bool
	index      *timeline.Index[int]
	rule       timeline.Rule[int]
	year       int
	warnings   int

	locomotion *locomotion.Controller
	animation  *animation.Selector
	rigs       *camera.Manager
	free       camera.FreeController
	driver     *frame.Driver
	actorName  string
}

type pendingLoad[T any] struct {
	path   string
	future *load.Future[T]
}

// NewSession validates cfg and builds an empty session. The timeline starts
// at cfg.TimelineDefault with every entity visible across the domain.
func NewSession(cfg Config, deps Deps) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	locomotionCfg, err := cfg.Locomotion()
	if err != nil {
		return nil, err
	}
	rigConfigs, err := cfg.RigConfigs()
	if err != nil {
		return nil, err
	}
	rigs, err := camera.NewManager(rigConfigs, deps.Free)
	if err != nil {
		return nil, fmt.Errorf("camera rigs: %w", err)
	}

	logger := deps.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	s := &Session{
		cfg:        cfg,
		logger:     logger,
		scenes:     deps.Scenes,
		actors:     deps.Actors,
		registry:   scene.NewRegistry(),
		year:       cfg.TimelineDefault,
		locomotion: locomotion.NewController(locomotionCfg),
		animation:  animation.NewSelector(),
		rigs:       rigs,
		free:       rigs.FreeController(),
	}
	s.rule = s.defaultRule()
	s.index = timeline.NewIndex[int](sceneTarget{session: s}, s.onUnknownKey)

	s.driver, err = frame.NewDriver(frame.Context{
		Registry:   s.registry,
		Locomotion: s.locomotion,
		Animation:  s.animation,
		Rigs:       s.rigs,
		Renderer:   deps.Renderer,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// sceneTarget limits timeline visibility to scene entities so the actor is
// never hidden by the slider.
type sceneTarget struct {
	session *Session
}

func (t sceneTarget) AllNames() []string {
	return append([]string(nil), t.session.sceneNames...)
}

func (t sceneTarget) SetVisible(name string, visible bool) {
	t.session.registry.SetVisible(name, visible)
}

func (s *Session) defaultRule() timeline.Rule[int] {
	domain := timeline.DomainRange(s.cfg.TimelineMin, s.cfg.TimelineMax)
	return timeline.NewExclusionRule(domain, nil)
}

func (s *Session) onUnknownKey(warning *timeline.UnknownKeyWarning) {
	s.warnings++
	s.logger.Printf("timeline: %v", warning)
}

// LoadScene starts loading the scene at path. The result is installed on a
// later tick; a newer request replaces a pending one.
func (s *Session) LoadScene(ctx context.Context, path string) error {
	if s.scenes == nil {
		return fmt.Errorf("load scene: %w", ErrNoLoader)
	}
	future := s.scenes.LoadScene(ctx, path)
	s.mu.Lock()
	s.sceneLoad = &pendingLoad[Scene]{path: path, future: future}
	s.mu.Unlock()
	return nil
}

// LoadActor starts loading the avatar at path.
func (s *Session) LoadActor(ctx context.Context, path string) error {
	if s.actors == nil {
		return fmt.Errorf("load actor: %w", ErrNoLoader)
	}
	future := s.actors.LoadActor(ctx, path)
	s.mu.Lock()
	s.actorLoad = &pendingLoad[Actor]{path: path, future: future}
	s.mu.Unlock()
	return nil
}

// KeyDown queues a key press. Unknown keys are ignored.
func (s *Session) KeyDown(key string) {
	if key == KeyToggleCamera {
		s.enqueue(func() { s.rigs.Next() })
		return
	}
	if dir, ok := keyDirection(key); ok {
		s.enqueue(func() { s.locomotion.KeyDown(dir) })
	}
}

// KeyUp queues a key release.
func (s *Session) KeyUp(key string) {
	if dir, ok := keyDirection(key); ok {
		s.enqueue(func() { s.locomotion.KeyUp(dir) })
	}
}

func keyDirection(key string) (locomotion.Direction, bool) {
	switch key {
	case KeyForward:
		return locomotion.Forward, true
	case KeyBackward:
		return locomotion.Backward, true
	case KeyLeft:
		return locomotion.Left, true
	case KeyRight:
		return locomotion.Right, true
	default:
		return 0, false
	}
}

// SetYear queues a timeline slider change. Years outside the configured
// domain are still applied; they hide every entity and log a warning.
func (s *Session) SetYear(year int) {
	s.enqueue(func() { s.applyYear(year) })
}

// SetRule queues a new timeline rule; nil restores the default rule.
func (s *Session) SetRule(rule timeline.Rule[int]) {
	s.enqueue(func() {
		if rule == nil {
			rule = s.defaultRule()
		}
		s.rule = rule
		if s.sceneReady {
			s.rebuildIndex(true)
		}
	})
}

// SetRig queues a switch to rig id. Ids without a configured rig are rejected
// immediately.
func (s *Session) SetRig(id camera.RigID) error {
	if _, ok := s.rigs.Rig(id); !ok {
		return &camera.UnknownRigError{ID: id}
	}
	s.enqueue(func() {
		if err := s.rigs.SetActive(id); err != nil {
			s.logger.Printf("set rig: %v", err)
		}
	})
	return nil
}

// Resize queues a viewport change applied to every rig.
func (s *Session) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("resize %dx%d: %w", width, height, ErrInvalidViewport)
	}
	aspect := float64(width) / float64(height)
	s.enqueue(func() { s.rigs.OnResize(aspect) })
	return nil
}

// Orbit queues a free-camera rotation in radians.
func (s *Session) Orbit(deltaAzimuth, deltaPolar float64) {
	s.enqueue(func() {
		if orbit, ok := s.free.(orbitInput); ok {
			orbit.Rotate(deltaAzimuth, deltaPolar)
		}
	})
}

// Zoom queues a free-camera zoom; values below 1 move closer.
func (s *Session) Zoom(scale float64) {
	s.enqueue(func() {
		if orbit, ok := s.free.(orbitInput); ok {
			orbit.Zoom(scale)
		}
	})
}

// ResetView queues a free-camera reset to its initial placement.
func (s *Session) ResetView() {
	s.enqueue(func() {
		if orbit, ok := s.free.(orbitInput); ok {
			orbit.Reset()
		}
	})
}

// RemoveEntity queues the removal of a scene entity. Unknown names and the
// avatar are ignored.
func (s *Session) RemoveEntity(name string) {
	name = strings.TrimSpace(name)
	s.enqueue(func() {
		i := slices.Index(s.sceneNames, name)
		if i < 0 {
			return
		}
		s.sceneNames = slices.Delete(s.sceneNames, i, i+1)
		s.registry.Remove(name)
		s.rebuildIndex(false)
	})
}

func (s *Session) enqueue(event func()) {
	s.mu.Lock()
	s.pending = append(s.pending, event)
	s.mu.Unlock()
}

// Tick installs finished loads, applies queued events and runs one frame.
func (s *Session) Tick(dt float64) {
	sceneLoad, actorLoad, events := s.takeReady()

	if sceneLoad != nil {
		s.installScene(sceneLoad)
	}
	if actorLoad != nil {
		s.installActor(actorLoad)
	}
	for _, event := range events {
		event()
	}
	s.driver.Tick(dt)
}

// takeReady removes resolved loads and queued events under the lock.
func (s *Session) takeReady() (*pendingLoad[Scene], *pendingLoad[Actor], []func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var sceneLoad *pendingLoad[Scene]
	if s.sceneLoad != nil {
		if _, ready, _ := s.sceneLoad.future.Poll(); ready {
			sceneLoad, s.sceneLoad = s.sceneLoad, nil
		}
	}
	var actorLoad *pendingLoad[Actor]
	if s.actorLoad != nil {
		if _, ready, _ := s.actorLoad.future.Poll(); ready {
			actorLoad, s.actorLoad = s.actorLoad, nil
		}
	}
	events := s.pending
	s.pending = nil
	return sceneLoad, actorLoad, events
}

// Loading reports whether a scene or actor load is still pending.
func (s *Session) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sceneLoad != nil || s.actorLoad != nil
}

func (s *Session) installScene(pending *pendingLoad[Scene]) {
	data, _, err := pending.future.Poll()
	if err != nil {
		s.logger.Printf("load scene %s: %v", pending.path, err)
		return
	}
	if err := s.validateScene(data); err != nil {
		s.logger.Printf("load scene %s: %v", pending.path, err)
		return
	}

	if s.actorName == "" {
		s.registry.Reset()
	} else {
		for _, name := range s.sceneNames {
			s.registry.Remove(name)
		}
	}
	s.sceneNames = s.sceneNames[:0]
	for _, item := range data.Entities {
		name := strings.TrimSpace(item.Name)
		if err := s.registry.Register(name, item.entity()); err != nil {
			s.logger.Printf("load scene %s: %v", pending.path, err)
			continue
		}
		s.sceneNames = append(s.sceneNames, name)
	}
	s.sceneReady = true
	s.rebuildIndex(false)
}

func (s *Session) validateScene(data Scene) error {
	seen := make(map[string]struct{}, len(data.Entities))
	for _, item := range data.Entities {
		name := strings.TrimSpace(item.Name)
		if name == "" {
			return scene.ErrNameRequired
		}
		if _, dup := seen[name]; dup || (s.actorName != "" && name == s.actorName) {
			return &scene.DuplicateNameError{Name: name}
		}
		seen[name] = struct{}{}
	}
	return nil
}

func (s *Session) installActor(pending *pendingLoad[Actor]) {
	data, _, err := pending.future.Poll()
	if err != nil {
		s.logger.Printf("load actor %s: %v", pending.path, err)
		return
	}
	name := strings.TrimSpace(data.Name)
	if name == "" {
		name = "avatar"
	}
	if name != s.actorName && s.registry.Has(name) {
		s.logger.Printf("load actor %s: %v", pending.path, &scene.DuplicateNameError{Name: name})
		return
	}

	if s.actorName != "" {
		s.registry.Remove(s.actorName)
	}
	entity := &scene.Entity{
		Transform:   data.Transform,
		Visible:     true,
		HasGeometry: true,
		Label:       newLabel(data.Label, data.Top),
	}
	if err := s.registry.Register(name, entity); err != nil {
		s.logger.Printf("load actor %s: %v", pending.path, err)
		return
	}
	s.actorName = name
	s.locomotion.Attach(locomotion.NewActor(entity))

	if len(data.Clips) == 0 {
		s.animation.Uninstall()
		return
	}
	if err := s.animation.Install(data.Clips); err != nil {
		s.logger.Printf("load actor %s: clips: %v", pending.path, err)
	}
}

func (s *Session) applyYear(year int) {
	if year < s.cfg.TimelineMin || year > s.cfg.TimelineMax {
		s.logger.Printf("timeline: year %d outside %d-%d", year, s.cfg.TimelineMin, s.cfg.TimelineMax)
	}
	s.year = year
	if s.sceneReady {
		s.index.SetTimelineKey(year)
	}
}

// rebuildIndex recomputes the buckets for the loaded scene. The same year
// under the same rule is reapplied without a second unknown-key warning.
func (s *Session) rebuildIndex(ruleChanged bool) {
	entities := make([]timeline.EntityInfo, 0, len(s.sceneNames))
	for _, name := range s.sceneNames {
		entity, err := s.registry.Get(name)
		if err != nil {
			continue
		}
		entities = append(entities, timeline.EntityInfo{
			Name:        entity.Name,
			HasGeometry: entity.HasGeometry,
			Metadata:    entity.Metadata,
		})
	}
	s.index.Rebuild(entities, s.rule)
	if key, ok := s.index.Key(); ok && key == s.year && !ruleChanged {
		s.index.Reapply()
		return
	}
	s.index.SetTimelineKey(s.year)
}

// Registry returns the entity registry.
func (s *Session) Registry() *scene.Registry { return s.registry }

// Index returns the timeline index.
func (s *Session) Index() *timeline.Index[int] { return s.index }

// Locomotion returns the locomotion controller.
func (s *Session) Locomotion() *locomotion.Controller { return s.locomotion }

// Animation returns the animation selector.
func (s *Session) Animation() *animation.Selector { return s.animation }

// Rigs returns the camera rig manager.
func (s *Session) Rigs() *camera.Manager { return s.rigs }

// Years returns the timeline years that have a bucket, in domain order.
func (s *Session) Years() []int { return s.index.Keys() }

// Stats returns frame driver counters.
func (s *Session) Stats() frame.Stats { return s.driver.Stats() }

// Year returns the last applied timeline year.
func (s *Session) Year() int { return s.year }

// Warnings returns how many unknown-key warnings the index reported.
func (s *Session) Warnings() int { return s.warnings }

// SceneNames returns the loaded scene entity names in load order.
func (s *Session) SceneNames() []string {
	return append([]string(nil), s.sceneNames...)
}

// ActorName returns the avatar entity name, or "" before it loads.
func (s *Session) ActorName() string { return s.actorName }

// Config returns the session configuration.
func (s *Session) Config() Config { return s.cfg }

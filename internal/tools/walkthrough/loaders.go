package walkthrough

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/louisbranch/campuswalk/internal/services/viewer/app"
	"github.com/louisbranch/campuswalk/internal/services/viewer/domain/animation"
	"github.com/louisbranch/campuswalk/internal/services/viewer/domain/scene"
	"github.com/louisbranch/campuswalk/internal/services/viewer/load"
)

// ErrAssetNotFound indicates a load request for a path the walkthrough did
// not declare.
var ErrAssetNotFound = errors.New("asset not found")

// memoryLoaders serves declared assets and resolves each request after a
// fixed number of ticks.
type memoryLoaders struct {
	delay int

	mu      sync.Mutex
	scenes  map[string]app.Scene
	actors  map[string]app.Actor
	pending []*delayedLoad
}

type delayedLoad struct {
	remaining int
	resolve   func()
}

func newMemoryLoaders(delay int) *memoryLoaders {
	return &memoryLoaders{
		delay:  delay,
		scenes: map[string]app.Scene{},
		actors: map[string]app.Actor{},
	}
}

func (m *memoryLoaders) LoadScene(_ context.Context, path string) *load.Future[app.Scene] {
	m.mu.Lock()
	data, ok := m.scenes[path]
	m.mu.Unlock()

	var err error
	if !ok {
		err = fmt.Errorf("scene %s: %w", path, ErrAssetNotFound)
	}
	return deferLoad(m, data, err)
}

func (m *memoryLoaders) LoadActor(_ context.Context, path string) *load.Future[app.Actor] {
	m.mu.Lock()
	data, ok := m.actors[path]
	m.mu.Unlock()

	var err error
	if !ok {
		err = fmt.Errorf("actor %s: %w", path, ErrAssetNotFound)
	}
	return deferLoad(m, data, err)
}

func deferLoad[T any](m *memoryLoaders, value T, err error) *load.Future[T] {
	if m.delay <= 0 {
		return load.Resolved(value, err)
	}
	future, resolve := load.NewPromise[T]()
	m.mu.Lock()
	m.pending = append(m.pending, &delayedLoad{
		remaining: m.delay,
		resolve:   func() { resolve(value, err) },
	})
	m.mu.Unlock()
	return future
}

// advance counts one tick down on every pending load and resolves the ones
// that are due.
func (m *memoryLoaders) advance() {
	m.mu.Lock()
	var due []*delayedLoad
	kept := m.pending[:0]
	for _, pending := range m.pending {
		pending.remaining--
		if pending.remaining <= 0 {
			due = append(due, pending)
			continue
		}
		kept = append(kept, pending)
	}
	m.pending = kept
	m.mu.Unlock()

	for _, pending := range due {
		pending.resolve()
	}
}

func (m *memoryLoaders) putScene(path string, specs []EntitySpec) {
	data := app.Scene{Path: path, Entities: make([]app.SceneEntity, 0, len(specs))}
	for _, spec := range specs {
		data.Entities = append(data.Entities, app.SceneEntity{
			Name:        spec.Name,
			HasGeometry: spec.Geometry,
			Transform:   scene.Transform{Position: spec.Position},
			Metadata:    spec.Meta,
			Label:       spec.Label,
			Top:         spec.Top,
		})
	}
	m.mu.Lock()
	m.scenes[path] = data
	m.mu.Unlock()
}

// putActor stores the avatar and returns its clips so the runner can inspect
// them.
func (m *memoryLoaders) putActor(path string, spec ActorSpec) map[animation.State]*animation.Action {
	data := app.Actor{
		Name:      spec.Name,
		Transform: scene.Transform{Position: spec.Position},
		Label:     spec.Label,
		Top:       spec.Top,
	}
	var actions map[animation.State]*animation.Action
	if spec.Clips {
		actions = map[animation.State]*animation.Action{
			animation.Idle: animation.NewAction("idle", spec.IdleDuration),
			animation.Walk: animation.NewAction("walk", spec.WalkDuration),
		}
		data.Clips = map[animation.State]animation.Clip{
			animation.Idle: actions[animation.Idle],
			animation.Walk: actions[animation.Walk],
		}
	}
	m.mu.Lock()
	m.actors[path] = data
	m.mu.Unlock()
	return actions
}

var (
	_ app.SceneLoader = (*memoryLoaders)(nil)
	_ app.ActorLoader = (*memoryLoaders)(nil)
)

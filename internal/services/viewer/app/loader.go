package app

import (
	"context"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/louisbranch/campuswalk/internal/services/viewer/domain/animation"
	"github.com/louisbranch/campuswalk/internal/services/viewer/domain/scene"
	"github.com/louisbranch/campuswalk/internal/services/viewer/load"
)

// labelMargin lifts labels above the entity roof.
const labelMargin = 2

// SceneEntity is one loaded scene node.
type SceneEntity struct {
	Name        string
	HasGeometry bool
	Transform   scene.Transform
	Metadata    map[string]string
	// Label is the caption text; empty means no label.
	Label string
	// Top is the bounding box height above the entity origin.
	Top float64
}

// Scene is a loaded campus model.
type Scene struct {
	Path     string
	Entities []SceneEntity
}

// Actor is a loaded avatar with its animation clips.
type Actor struct {
	Name      string
	Transform scene.Transform
	Label     string
	Top       float64
	// Clips may be empty; the avatar then moves without animation.
	Clips map[animation.State]animation.Clip
}

// SceneLoader starts loading a scene.
type SceneLoader interface {
	LoadScene(ctx context.Context, path string) *load.Future[Scene]
}

// ActorLoader starts loading an avatar.
type ActorLoader interface {
	LoadActor(ctx context.Context, path string) *load.Future[Actor]
}

func newLabel(text string, top float64) *scene.Label {
	if text == "" {
		return nil
	}
	return &scene.Label{Text: text, Offset: mgl64.Vec3{0, top + labelMargin, 0}}
}

func (e SceneEntity) entity() *scene.Entity {
	metadata := make(map[string]string, len(e.Metadata))
	for key, value := range e.Metadata {
		metadata[key] = value
	}
	return &scene.Entity{
		Transform:   e.Transform,
		Visible:     true,
		HasGeometry: e.HasGeometry,
		Metadata:    metadata,
		Label:       newLabel(e.Label, e.Top),
	}
}

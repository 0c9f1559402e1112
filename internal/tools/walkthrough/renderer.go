package walkthrough

import (
	"github.com/louisbranch/campuswalk/internal/services/viewer/domain/camera"
	"github.com/louisbranch/campuswalk/internal/services/viewer/domain/frame"
	"github.com/louisbranch/campuswalk/internal/services/viewer/domain/scene"
	"github.com/louisbranch/campuswalk/internal/services/viewer/hud"
)

// recordingRenderer stands in for a GPU renderer: it keeps the last camera
// and the label texts that would have been drawn.
type recordingRenderer struct {
	hud *hud.HUD

	frames int
	view   camera.Camera
	labels []string
}

func newRecordingRenderer(h *hud.HUD) *recordingRenderer {
	return &recordingRenderer{hud: h}
}

func (r *recordingRenderer) Render(registry *scene.Registry, view camera.Camera) error {
	r.frames++
	r.view = view
	r.labels = r.hud.Labels(registry)
	return nil
}

// rendered reports whether at least one frame was drawn.
func (r *recordingRenderer) rendered() bool {
	return r.frames > 0
}

var _ frame.Renderer = (*recordingRenderer)(nil)

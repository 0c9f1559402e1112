// Package hud formats the on-screen viewer text for a locale.
package hud

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"

	"github.com/louisbranch/campuswalk/internal/services/viewer/domain/camera"
	"github.com/louisbranch/campuswalk/internal/services/viewer/domain/scene"
)

const (
	keyYear       = "hud.year"
	keyCamera     = "hud.camera"
	keyPosition   = "hud.position"
	keyNoPosition = "hud.position.none"
	keyLabels     = "hud.labels"
)

var supportedTags = []language.Tag{
	language.English,
	language.MustParse("pt-BR"),
}

var tagMatcher = language.NewMatcher(supportedTags)

var messages = map[language.Tag]map[string]string{
	language.English: {
		keyYear:       "Year: %s",
		keyCamera:     "Camera: %s",
		keyPosition:   "Position: %.1f, %.1f, %.1f",
		keyNoPosition: "Position: loading",
		keyLabels:     "Labels: %d",

		rigKey(camera.Follow):   "follow",
		rigKey(camera.Overhead): "overhead",
		rigKey(camera.Free):     "free",
	},
	language.MustParse("pt-BR"): {
		keyYear:       "Ano: %s",
		keyCamera:     "Câmera: %s",
		keyPosition:   "Posição: %.1f; %.1f; %.1f",
		keyNoPosition: "Posição: carregando",
		keyLabels:     "Rótulos: %d",

		rigKey(camera.Follow):   "terceira pessoa",
		rigKey(camera.Overhead): "vista aérea",
		rigKey(camera.Free):     "livre",
	},
}

var builder = newCatalog()

func newCatalog() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for tag, entries := range messages {
		for key, value := range entries {
			if err := b.SetString(tag, key, value); err != nil {
				panic(fmt.Sprintf("hud catalog %s %s: %v", tag, key, err))
			}
		}
	}
	return b
}

func rigKey(id camera.RigID) string {
	return "hud.rig." + id.String()
}

// Supported returns the locales with translated text.
func Supported() []language.Tag {
	return append([]language.Tag(nil), supportedTags...)
}

// HUD formats viewer text in one locale.
type HUD struct {
	tag     language.Tag
	printer *message.Printer
}

// New returns a HUD for the closest supported match of locale. An empty
// locale selects English.
func New(locale string) (*HUD, error) {
	tag := language.English
	if locale = strings.TrimSpace(locale); locale != "" {
		parsed, err := language.Parse(locale)
		if err != nil {
			return nil, fmt.Errorf("parse locale %q: %w", locale, err)
		}
		_, index, _ := tagMatcher.Match(parsed)
		tag = supportedTags[index]
	}
	return &HUD{tag: tag, printer: message.NewPrinter(tag, message.Catalog(builder))}, nil
}

// Tag returns the resolved locale.
func (h *HUD) Tag() language.Tag {
	return h.tag
}

// Year returns the timeline slider caption. Years are printed without digit
// grouping.
func (h *HUD) Year(year int) string {
	return h.printer.Sprintf(keyYear, strconv.Itoa(year))
}

// Rig returns the caption of the active camera rig.
func (h *HUD) Rig(id camera.RigID) string {
	name := id.String()
	if id >= camera.Follow && id <= camera.Free {
		name = h.printer.Sprintf(rigKey(id))
	}
	return h.printer.Sprintf(keyCamera, name)
}

// Position returns the actor coordinates; nil means the actor is loading.
func (h *HUD) Position(position *mgl64.Vec3) string {
	if position == nil {
		return h.printer.Sprintf(keyNoPosition)
	}
	return h.printer.Sprintf(keyPosition, position.X(), position.Y(), position.Z())
}

// Labels returns the visible label texts of registry in registration order.
func (h *HUD) Labels(registry *scene.Registry) []string {
	var labels []string
	registry.Each(func(entity *scene.Entity) {
		if entity.LabelVisible() {
			labels = append(labels, entity.Label.Text)
		}
	})
	return labels
}

// Status joins year, rig and position into one status line.
func (h *HUD) Status(year int, id camera.RigID, position *mgl64.Vec3, labels int) string {
	return strings.Join([]string{
		h.Year(year),
		h.Rig(id),
		h.Position(position),
		h.printer.Sprintf(keyLabels, labels),
	}, " | ")
}

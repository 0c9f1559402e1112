package hud

import (
	"slices"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"golang.org/x/text/language"

	"github.com/louisbranch/campuswalk/internal/services/viewer/domain/camera"
	"github.com/louisbranch/campuswalk/internal/services/viewer/domain/scene"
)

func newHUD(t *testing.T, locale string) *HUD {
	t.Helper()

	h, err := New(locale)
	if err != nil {
		t.Fatalf("new hud %q: %v", locale, err)
	}
	return h
}

func TestEnglishStatus(t *testing.T) {
	h := newHUD(t, "")

	if got := h.Year(2025); got != "Year: 2025" {
		t.Fatalf("year = %q, want %q", got, "Year: 2025")
	}
	if got := h.Rig(camera.Overhead); got != "Camera: overhead" {
		t.Fatalf("rig = %q", got)
	}
	position := mgl64.Vec3{1, 0, -4.5}
	if got := h.Position(&position); got != "Position: 1.0, 0.0, -4.5" {
		t.Fatalf("position = %q", got)
	}
	if got := h.Position(nil); got != "Position: loading" {
		t.Fatalf("nil position = %q", got)
	}

	want := "Year: 2024 | Camera: follow | Position: 1.0, 0.0, -4.5 | Labels: 2"
	if got := h.Status(2024, camera.Follow, &position, 2); got != want {
		t.Fatalf("status = %q, want %q", got, want)
	}
}

func TestBrazilianPortuguese(t *testing.T) {
	h := newHUD(t, "pt-BR")

	if h.Tag().String() != "pt-BR" {
		t.Fatalf("tag = %v, want pt-BR", h.Tag())
	}
	if got := h.Year(2023); got != "Ano: 2023" {
		t.Fatalf("year = %q", got)
	}
	if got := h.Rig(camera.Free); got != "Câmera: livre" {
		t.Fatalf("rig = %q", got)
	}
	position := mgl64.Vec3{0, 0, 0.5}
	if got := h.Position(&position); got != "Posição: 0,0; 0,0; 0,5" {
		t.Fatalf("position = %q", got)
	}
}

func TestUnsupportedLocaleFallsBackToEnglish(t *testing.T) {
	h := newHUD(t, "fr-FR")
	if h.Tag().String() != "en" {
		t.Fatalf("tag = %v, want en", h.Tag())
	}
	if _, err := New("not a locale!"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLabelsFollowVisibility(t *testing.T) {
	registry := scene.NewRegistry()
	for _, name := range []string{"Poole_House", "Talbot_House", "tree_01"} {
		entity := &scene.Entity{Visible: true}
		if name != "tree_01" {
			entity.Label = &scene.Label{Text: name}
		}
		if err := registry.Register(name, entity); err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}
	registry.SetVisible("Talbot_House", false)

	got := newHUD(t, "en").Labels(registry)
	if !slices.Equal(got, []string{"Poole_House"}) {
		t.Fatalf("labels = %v, want [Poole_House]", got)
	}
}

func TestSupportedReturnsCopy(t *testing.T) {
	tags := Supported()
	tags[0] = language.French
	if Supported()[0].String() != "en" {
		t.Fatal("Supported exposed internal slice")
	}
}

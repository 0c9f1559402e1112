package walkthrough

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryLoadersResolveAfterDelay(t *testing.T) {
	loaders := newMemoryLoaders(2)
	loaders.putScene("campus.glb", []EntitySpec{{Name: "A", Geometry: true}})

	future := loaders.LoadScene(context.Background(), "campus.glb")
	loaders.advance()
	if _, ready, _ := future.Poll(); ready {
		t.Fatal("scene resolved after one tick, want two")
	}
	loaders.advance()
	data, ready, err := future.Poll()
	if !ready || err != nil {
		t.Fatalf("poll = ready %v, err %v", ready, err)
	}
	if len(data.Entities) != 1 || data.Entities[0].Name != "A" || !data.Entities[0].HasGeometry {
		t.Fatalf("scene = %+v", data)
	}
}

func TestMemoryLoadersUnknownPath(t *testing.T) {
	loaders := newMemoryLoaders(0)

	_, ready, err := loaders.LoadActor(context.Background(), "missing.glb").Poll()
	if !ready {
		t.Fatal("zero delay load should resolve immediately")
	}
	if !errors.Is(err, ErrAssetNotFound) {
		t.Fatalf("error = %v, want %v", err, ErrAssetNotFound)
	}
}

func TestPutActorWithoutClips(t *testing.T) {
	loaders := newMemoryLoaders(0)

	if clips := loaders.putActor("avatar.glb", ActorSpec{Name: "avatar"}); clips != nil {
		t.Fatalf("clips = %v, want none", clips)
	}
	data, _, err := loaders.LoadActor(context.Background(), "avatar.glb").Poll()
	if err != nil {
		t.Fatalf("load actor: %v", err)
	}
	if len(data.Clips) != 0 {
		t.Fatalf("actor clips = %d, want 0", len(data.Clips))
	}
}

package server

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestPublisherCopiesTransform(t *testing.T) {
	w, _, ents := materializedWorld(t, 2)
	e := w.Entry(ents[0])

	p := mgl64.Vec3{1.25, 0.5, -3}
	rot := mgl64.QuatRotate(0.7, mgl64.Vec3{0, 0, 1})
	tf := Transform.Get(e)
	tf.Translation = p
	tf.Rotation = rot

	if got := NewPublisher().Publish(w); got != 2 {
		t.Fatalf("Publish = %d, want 2", got)
	}
	pos := PlayerPosition.Get(e)
	if pos.Translation != p {
		t.Fatalf("translation = %v, want %v", pos.Translation, p)
	}
	if pos.Rotation != rot {
		t.Fatalf("rotation = %v, want %v", pos.Rotation, rot)
	}
}

func TestPublisherSkipsShells(t *testing.T) {
	w, reg, _ := materializedWorld(t, 1)
	shell := spawnShell(w, reg, NewSpawnCounter(5), 9, mgl64.Vec3{4, 4, 4})

	if got := NewPublisher().Publish(w); got != 1 {
		t.Fatalf("Publish = %d, want 1", got)
	}
	approxVec(t, PlayerPosition.Get(w.Entry(shell)).Translation, mgl64.Vec3{4, 4, 4}, "shell position")
}

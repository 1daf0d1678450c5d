package server

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/yohamta/donburi"
)

func TestMaterializerWaitsForFullRoster(t *testing.T) {
	w := donburi.NewWorld()
	reg := NewRegistry()
	counter := NewSpawnCounter(2)
	ent := spawnShell(w, reg, counter, 1, mgl64.Vec3{1, 1, 1})

	m := NewMaterializer(counter, true)
	if got := m.Run(w); got != 0 {
		t.Fatalf("Run with 1/2 players = %d, want 0", got)
	}
	if w.Entry(ent).HasComponent(Transform) {
		t.Fatalf("entity got a Transform before the roster was full")
	}

	spawnShell(w, reg, counter, 2, mgl64.Vec3{2, 1, 2})
	if got := m.Run(w); got != 2 {
		t.Fatalf("Run with 2/2 players = %d, want 2", got)
	}
}

func TestMaterializerAttachesBundleExactlyOnce(t *testing.T) {
	w := donburi.NewWorld()
	reg := NewRegistry()
	counter := NewSpawnCounter(3)
	var ents []donburi.Entity
	for i := 1; i <= 3; i++ {
		ents = append(ents, spawnShell(w, reg, counter, ClientID(i), mgl64.Vec3{float64(i), 1, 0}))
	}

	m := NewMaterializer(counter, true)
	if got := m.Run(w); got != 3 {
		t.Fatalf("first Run = %d, want 3", got)
	}
	for i, ent := range ents {
		e := w.Entry(ent)
		if !e.HasComponent(Mesh) || !e.HasComponent(Transform) || !e.HasComponent(Velocity) ||
			!e.HasComponent(ExternalForce) || !e.HasComponent(LastTouchedTime) || !e.HasComponent(GravityModifier) ||
			!e.HasComponent(Collider) || !e.HasComponent(RigidBody) || !e.HasComponent(Ccd) {
			t.Fatalf("entity %d is missing part of the bundle", i)
		}
		approxVec(t, Transform.Get(e).Translation, mgl64.Vec3{float64(i + 1), 1, 0}, "transform")
		if mesh := Mesh.Get(e); mesh.Radius != PlayerRadius || mesh.Color != ColorFor(i+1) {
			t.Fatalf("mesh = %+v", mesh)
		}
		if c := Collider.Get(e); c.Radius != PlayerRadius {
			t.Fatalf("collider radius = %v", c.Radius)
		}
		if r := Restitution.Get(e); r.Coefficient != PlayerRestitution {
			t.Fatalf("restitution = %v", r.Coefficient)
		}
		if lt := LastTouchedTime.GetValue(e); lt.Time != 0 || lt.Sticky {
			t.Fatalf("last touched time = %+v, want zero", lt)
		}
		if LastTouchedID.Get(e).ID != 0 {
			t.Fatalf("last touched id = %v, want 0", LastTouchedID.Get(e).ID)
		}
		gm := GravityModifier.Get(e)
		if gm.Base != 1 || gm.Current != 1 || gm.Remaining.Remaining() != 0 {
			t.Fatalf("gravity modifier = %+v", gm)
		}
		if v := Velocity.GetValue(e); v != (VelocityData{}) {
			t.Fatalf("velocity = %+v, want zero", v)
		}
		if f := ExternalForce.GetValue(e); f != (ExternalForceData{}) {
			t.Fatalf("external force = %+v, want zero", f)
		}
	}

	// 再次运行不会重复挂载，也不会改动已有组件
	Velocity.Get(w.Entry(ents[0])).Linear = mgl64.Vec3{1, 2, 3}
	for i := 0; i < 3; i++ {
		if got := m.Run(w); got != 0 {
			t.Fatalf("Run #%d after materialization = %d, want 0", i+2, got)
		}
	}
	approxVec(t, Velocity.Get(w.Entry(ents[0])).Linear, mgl64.Vec3{1, 2, 3}, "velocity after rerun")
}

func TestMaterializerWithoutPhysics(t *testing.T) {
	w := donburi.NewWorld()
	reg := NewRegistry()
	counter := NewSpawnCounter(1)
	ent := spawnShell(w, reg, counter, 1, mgl64.Vec3{})

	if got := NewMaterializer(counter, false).Run(w); got != 1 {
		t.Fatalf("Run = %d, want 1", got)
	}
	e := w.Entry(ent)
	if !e.HasComponent(Mesh) || !e.HasComponent(Transform) {
		t.Fatalf("visual bundle missing")
	}
	if e.HasComponent(Velocity) || e.HasComponent(ExternalForce) || e.HasComponent(LastTouchedTime) {
		t.Fatalf("physics bundle attached with physics disabled")
	}
}

func TestMaterializerSkipsPredicted(t *testing.T) {
	w := donburi.NewWorld()
	reg := NewRegistry()
	counter := NewSpawnCounter(1)
	ent := spawnShell(w, reg, counter, 1, mgl64.Vec3{})
	w.Entry(ent).AddComponent(Predicted)

	if got := NewMaterializer(counter, true).Run(w); got != 0 {
		t.Fatalf("Run = %d, want 0", got)
	}
	if w.Entry(ent).HasComponent(Transform) {
		t.Fatalf("predicted entity was materialized")
	}
}

func TestMaterializerNoCandidates(t *testing.T) {
	w := donburi.NewWorld()
	counter := NewSpawnCounter(0)
	if got := NewMaterializer(counter, true).Run(w); got != 0 {
		t.Fatalf("Run on empty world = %d, want 0", got)
	}
}

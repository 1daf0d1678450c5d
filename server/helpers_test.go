package server

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/yohamta/donburi"
)

// spawnShell 模拟加入流程：创建实体外壳、注册并计数
func spawnShell(w donburi.World, reg *Registry, counter *SpawnCounter, id ClientID, at mgl64.Vec3) donburi.Entity {
	ent := w.Create(PlayerPosition, PlayerColor, NetOwner)
	e := w.Entry(ent)
	PlayerPosition.SetValue(e, PlayerPositionData{Translation: at, Rotation: mgl64.QuatIdent()})
	PlayerColor.SetValue(e, ColorFor(int(id)))
	NetOwner.SetValue(e, NetOwnerData{Client: id})
	reg.Register(id, ent)
	counter.NoteSpawned()
	return ent
}

// materializedWorld 返回 n 个已挂载物理组件的玩家（ClientID 1..n）
func materializedWorld(t *testing.T, n int) (donburi.World, *Registry, []donburi.Entity) {
	t.Helper()
	w := donburi.NewWorld()
	reg := NewRegistry()
	counter := NewSpawnCounter(n)
	ents := make([]donburi.Entity, 0, n)
	for i := 1; i <= n; i++ {
		ents = append(ents, spawnShell(w, reg, counter, ClientID(i), mgl64.Vec3{float64(i) * 3, PlayerRadius, 0}))
	}
	if got := NewMaterializer(counter, true).Run(w); got != n {
		t.Fatalf("materialized = %d, want %d", got, n)
	}
	return w, reg, ents
}

func approxEqual(t *testing.T, got, want, tol float64, field string) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Fatalf("%s = %.8f, want %.8f (tol=%.8f)", field, got, want, tol)
	}
}

func approxVec(t *testing.T, got, want mgl64.Vec3, field string) {
	t.Helper()
	for i := range got {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Fatalf("%s = %v, want %v", field, got, want)
		}
	}
}

func hasNaN(v mgl64.Vec3) bool {
	return math.IsNaN(v[0]) || math.IsNaN(v[1]) || math.IsNaN(v[2])
}

package server

import (
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/filter"
)

const (
	PlayerRadius       = 0.5
	PlayerRestitution  = 0.7
	DefaultGravityBase = 1.0
)

// SpawnCounter 已生成玩家数 / 期望玩家数
// current 只由加入流程递增，其余组件只读
type SpawnCounter struct {
	current atomic.Int32
	max     int32
}

func NewSpawnCounter(max int) *SpawnCounter {
	return &SpawnCounter{max: int32(max)}
}

func (c *SpawnCounter) NoteSpawned() { c.current.Add(1) }

func (c *SpawnCounter) Current() int { return int(c.current.Load()) }

func (c *SpawnCounter) Max() int { return int(c.max) }

// Full 人数到齐后才开始 materialize
func (c *SpawnCounter) Full() bool { return c.current.Load() >= c.max }

// Materializer 为裸玩家实体挂载渲染与物理组件
type Materializer struct {
	counter *SpawnCounter
	physics bool
	query   *donburi.Query
}

func NewMaterializer(counter *SpawnCounter, physics bool) *Materializer {
	return &Materializer{
		counter: counter,
		physics: physics,
		// 以 Transform 缺失作为选择条件：挂载后实体不再被选中
		query: donburi.NewQuery(filter.And(
			filter.Contains(PlayerPosition, PlayerColor),
			filter.Not(filter.Contains(Transform)),
			filter.Not(filter.Contains(Predicted)),
		)),
	}
}

// Run 每个 Tick 调用一次，返回本次挂载的实体数
func (m *Materializer) Run(w donburi.World) int {
	if !m.counter.Full() {
		return 0
	}
	// 先收集再修改，查询遍历中不改动 archetype
	var pending []donburi.Entity
	m.query.Each(w, func(e *donburi.Entry) {
		pending = append(pending, e.Entity())
	})
	for _, ent := range pending {
		e := w.Entry(ent)
		pos := PlayerPosition.Get(e)
		color := PlayerColor.GetValue(e)
		Log.Infow("attach player model", "entity", e.Entity(), "position", pos.Translation, "physics", m.physics)
		m.attachModel(e, pos.Translation, color)
		if m.physics {
			m.attachPhysics(e)
		}
	}
	if len(pending) != 0 {
		Log.Debugf("materialized %d players", len(pending))
	}
	return len(pending)
}

func (m *Materializer) attachModel(e *donburi.Entry, at mgl64.Vec3, color PlayerColorData) {
	attach(e, Mesh, MeshData{Shape: ShapeSphere, Radius: PlayerRadius, Color: color})
	attach(e, Transform, TransformData{Translation: at, Rotation: mgl64.QuatIdent()})
}

func (m *Materializer) attachPhysics(e *donburi.Entry) {
	attach(e, Collider, ColliderData{Radius: PlayerRadius})
	attach(e, Restitution, RestitutionData{Coefficient: PlayerRestitution})
	attach(e, RigidBody, RigidBodyData{Kind: BodyDynamic})
	attach(e, ActiveEvents, ActiveEventsData{Collision: true})
	attach(e, Velocity, VelocityData{})
	attach(e, ExternalForce, ExternalForceData{})
	attach(e, GravityScale, GravityScaleData{Scale: 1})
	attach(e, Ccd, CcdData{Enabled: true})
	attach(e, LastTouchedID, LastTouchedIDData{ID: 0})
	attach(e, LastTouchedTime, LastTouchedTimeData{Time: 0, Sticky: false})
	attach(e, GravityModifier, GravityModifierData{
		Base:      DefaultGravityBase,
		Remaining: NewTimer(0),
		Current:   DefaultGravityBase,
	})
}

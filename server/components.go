package server

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/yohamta/donburi"
)

// 网络同步的权威状态（由 State Publisher 写入，广播给客户端）
type PlayerPositionData struct {
	Translation mgl64.Vec3
	Rotation    mgl64.Quat
}

type PlayerColorData struct {
	RGB [3]float64
}

// NetOwnerData 记录实体归属的客户端
type NetOwnerData struct {
	Client ClientID
}

// 渲染层需要的形状与材质
type ShapeKind int

const (
	ShapeSphere ShapeKind = iota
)

type MeshData struct {
	Shape  ShapeKind
	Radius float64
	Color  PlayerColorData
}

// TransformData 模拟侧的位姿；存在即表示实体已完成 materialize
type TransformData struct {
	Translation mgl64.Vec3
	Rotation    mgl64.Quat
}

type ColliderData struct {
	Radius float64
}

type RestitutionData struct {
	Coefficient float64
}

type BodyKind int

const (
	BodyDynamic BodyKind = iota
	BodyFixed
)

type RigidBodyData struct {
	Kind BodyKind
}

type ActiveEventsData struct {
	Collision bool
}

type VelocityData struct {
	Linear  mgl64.Vec3
	Angular mgl64.Vec3
}

// ExternalForceData 累积的外力/扭矩，跨 Tick 保留，由积分器消耗
type ExternalForceData struct {
	Force  mgl64.Vec3
	Torque mgl64.Vec3
}

type GravityScaleData struct {
	Scale float64
}

type CcdData struct {
	Enabled bool
}

// LastTouchedIDData 最近一次接触该玩家的对象（0 表示场地/无人）
type LastTouchedIDData struct {
	ID ClientID
}

// LastTouchedTimeData 最近一次接触的模拟时间；Sticky 为 true 时门控常开
type LastTouchedTimeData struct {
	Time   float64
	Sticky bool
}

// Timer 一次性倒计时
type Timer struct {
	Duration time.Duration
	Elapsed  time.Duration
	fired    bool
}

func NewTimer(d time.Duration) Timer { return Timer{Duration: d} }

// Tick 推进计时器，到期后的第一次 Tick 返回 true
func (t *Timer) Tick(dt time.Duration) bool {
	if t.fired {
		return false
	}
	t.Elapsed += dt
	if t.Elapsed >= t.Duration {
		t.fired = true
		return true
	}
	return false
}

func (t *Timer) Finished() bool { return t.Elapsed >= t.Duration }

func (t *Timer) Remaining() time.Duration {
	if t.Finished() {
		return 0
	}
	return t.Duration - t.Elapsed
}

type GravityModifierData struct {
	Base      float64
	Remaining Timer
	Current   float64
}

var (
	PlayerPosition  = donburi.NewComponentType[PlayerPositionData]()
	PlayerColor     = donburi.NewComponentType[PlayerColorData]()
	NetOwner        = donburi.NewComponentType[NetOwnerData]()
	Mesh            = donburi.NewComponentType[MeshData]()
	Transform       = donburi.NewComponentType[TransformData]()
	Collider        = donburi.NewComponentType[ColliderData]()
	Restitution     = donburi.NewComponentType[RestitutionData]()
	RigidBody       = donburi.NewComponentType[RigidBodyData]()
	ActiveEvents    = donburi.NewComponentType[ActiveEventsData]()
	Velocity        = donburi.NewComponentType[VelocityData]()
	ExternalForce   = donburi.NewComponentType[ExternalForceData]()
	GravityScale    = donburi.NewComponentType[GravityScaleData]()
	Ccd             = donburi.NewComponentType[CcdData]()
	LastTouchedID   = donburi.NewComponentType[LastTouchedIDData]()
	LastTouchedTime = donburi.NewComponentType[LastTouchedTimeData]()
	GravityModifier = donburi.NewComponentType[GravityModifierData]()

	// Predicted 客户端预测副本的标记，服务端实体不会带它，但选择条件保留
	Predicted = donburi.NewTag()
)

// attach 为实体添加组件并写入初始值
func attach[T any](e *donburi.Entry, c *donburi.ComponentType[T], v T) {
	e.AddComponent(c)
	c.SetValue(e, v)
}

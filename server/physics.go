package server

import (
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/filter"
)

const (
	Gravity = 9.81
	// 实心球转动惯量 2/5·m·r²，质量取 1
	sphereInertia  = 0.4 * PlayerRadius * PlayerRadius
	angularDamping = 0.5
	rollingGrip    = 8.0
	groundEpsilon  = 1e-3
	restingSpeed   = 1.0
	// KillPlaneY 低于该高度视为掉出场地，重新出生
	KillPlaneY = -20.0
)

// CollisionEvent 两个开启碰撞事件的刚体发生接触
type CollisionEvent struct {
	A, B donburi.Entity
}

// Integrator 简化的刚体积分：球体在圆形场地上滚动
type Integrator struct {
	arenaRadius float64
	respawn     func(e *donburi.Entry)
	bodies      *donburi.Query
	modifiers   *donburi.Query
}

func NewIntegrator(arenaRadius float64, respawn func(e *donburi.Entry)) *Integrator {
	return &Integrator{
		arenaRadius: arenaRadius,
		respawn:     respawn,
		bodies: donburi.NewQuery(filter.Contains(
			Transform, Velocity, ExternalForce, RigidBody, Collider,
		)),
		modifiers: donburi.NewQuery(filter.Contains(GravityModifier)),
	}
}

// Step 推进 dt 秒，返回本步产生的碰撞事件
func (in *Integrator) Step(w donburi.World, dt float64, now float64) []CollisionEvent {
	in.tickModifiers(w, dt)

	var bodies []*donburi.Entry
	in.bodies.Each(w, func(e *donburi.Entry) {
		if RigidBody.Get(e).Kind == BodyDynamic {
			bodies = append(bodies, e)
		}
	})

	for _, e := range bodies {
		in.integrate(e, dt, now)
	}
	events := in.resolveContacts(bodies, now)

	for _, e := range bodies {
		if Transform.Get(e).Translation.Y() < KillPlaneY && in.respawn != nil {
			in.respawn(e)
		}
	}
	return events
}

func (in *Integrator) integrate(e *donburi.Entry, dt, now float64) {
	tf := Transform.Get(e)
	vel := Velocity.Get(e)
	force := ExternalForce.Get(e)
	radius := Collider.Get(e).Radius

	vel.Angular = vel.Angular.Add(force.Torque.Mul(dt / sphereInertia))
	vel.Angular = vel.Angular.Mul(math.Max(0, 1-angularDamping*dt))
	vel.Linear = vel.Linear.Add(force.Force.Mul(dt))

	vel.Linear[1] -= Gravity * gravityFactor(e) * dt

	if in.onFloor(tf.Translation, radius) {
		// 接地时水平速度向纯滚动速度收敛
		roll := vel.Angular.Cross(mgl64.Vec3{0, radius, 0})
		k := math.Min(1, rollingGrip*dt)
		vel.Linear[0] += (roll[0] - vel.Linear[0]) * k
		vel.Linear[2] += (roll[2] - vel.Linear[2]) * k
	}

	tf.Translation = tf.Translation.Add(vel.Linear.Mul(dt))

	if in.onFloor(tf.Translation, radius) && tf.Translation.Y() < radius {
		tf.Translation[1] = radius
		if vy := vel.Linear.Y(); vy < 0 {
			// 低速落地不再反弹，静止的球不会抖动
			if -vy < restingSpeed {
				vel.Linear[1] = 0
			} else {
				vel.Linear[1] = -vy * restitutionOf(e)
			}
		}
		touch(e, 0, now)
	}

	if w := vel.Angular.Len(); w > minSpeed {
		dq := mgl64.QuatRotate(w*dt, vel.Angular.Mul(1/w))
		tf.Rotation = dq.Mul(tf.Rotation).Normalize()
	}
}

// onFloor 场地是 y=0 平面上半径 arenaRadius 的圆盘
func (in *Integrator) onFloor(p mgl64.Vec3, radius float64) bool {
	if math.Hypot(p.X(), p.Z()) > in.arenaRadius {
		return false
	}
	return p.Y() <= radius+groundEpsilon && p.Y() > -radius
}

func (in *Integrator) resolveContacts(bodies []*donburi.Entry, now float64) []CollisionEvent {
	var events []CollisionEvent
	for i := 0; i < len(bodies); i++ {
		for j := i + 1; j < len(bodies); j++ {
			a, b := bodies[i], bodies[j]
			ta, tb := Transform.Get(a), Transform.Get(b)
			minDist := Collider.Get(a).Radius + Collider.Get(b).Radius
			delta := tb.Translation.Sub(ta.Translation)
			dist := delta.Len()
			if dist >= minDist {
				continue
			}
			n := mgl64.Vec3{1, 0, 0}
			if dist > minSpeed {
				n = delta.Mul(1 / dist)
			}
			// 按一半穿透量各自推开
			push := n.Mul((minDist - dist) / 2)
			ta.Translation = ta.Translation.Sub(push)
			tb.Translation = tb.Translation.Add(push)

			va, vb := Velocity.Get(a), Velocity.Get(b)
			rel := vb.Linear.Sub(va.Linear).Dot(n)
			if rel < 0 {
				e := math.Min(restitutionOf(a), restitutionOf(b))
				impulse := n.Mul(-(1 + e) * rel / 2)
				va.Linear = va.Linear.Sub(impulse)
				vb.Linear = vb.Linear.Add(impulse)
			}

			touch(a, ownerOf(b), now)
			touch(b, ownerOf(a), now)
			if emitsCollisions(a) && emitsCollisions(b) {
				events = append(events, CollisionEvent{A: a.Entity(), B: b.Entity()})
			}
		}
	}
	return events
}

func (in *Integrator) tickModifiers(w donburi.World, dt float64) {
	step := time.Duration(dt * float64(time.Second))
	in.modifiers.Each(w, func(e *donburi.Entry) {
		gm := GravityModifier.Get(e)
		if gm.Remaining.Tick(step) {
			gm.Current = gm.Base
		}
	})
}

// ApplyGravityModifier 临时调整重力，d 结束后恢复为 Base
func ApplyGravityModifier(e *donburi.Entry, scale float64, d time.Duration) bool {
	if !e.HasComponent(GravityModifier) {
		return false
	}
	gm := GravityModifier.Get(e)
	gm.Current = scale
	gm.Remaining = NewTimer(d)
	return true
}

func gravityFactor(e *donburi.Entry) float64 {
	f := 1.0
	if e.HasComponent(GravityScale) {
		f = GravityScale.Get(e).Scale
	}
	if e.HasComponent(GravityModifier) {
		f *= GravityModifier.Get(e).Current
	}
	return f
}

func restitutionOf(e *donburi.Entry) float64 {
	if e.HasComponent(Restitution) {
		return Restitution.Get(e).Coefficient
	}
	return 0
}

func emitsCollisions(e *donburi.Entry) bool {
	return e.HasComponent(ActiveEvents) && ActiveEvents.Get(e).Collision
}

func ownerOf(e *donburi.Entry) ClientID {
	if e.HasComponent(NetOwner) {
		return NetOwner.Get(e).Client
	}
	return 0
}

// touch 刷新接触标记，门控据此打开
func touch(e *donburi.Entry, by ClientID, now float64) {
	if e.HasComponent(LastTouchedID) {
		LastTouchedID.Get(e).ID = by
	}
	if e.HasComponent(LastTouchedTime) {
		LastTouchedTime.Get(e).Time = now
	}
}
